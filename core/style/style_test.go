package style

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, PaperA4, cfg.PaperSize)
	assert.Equal(t, [6]int{32, 24, 20, 18, 16, 14}, cfg.HeadingSizes())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"inverted headings allowed", func(c *Config) { c.H2Size = 40 }, false},
		{"unchecked colour", func(c *Config) { c.TextColor = "not a colour" }, false},
		{"zero margin", func(c *Config) { c.Margin = 0 }, false},
		{"stale custom size ignored", func(c *Config) { c.CustomWidth = -1 }, false},
		{"unknown font", func(c *Config) { c.FontFamily = "Comic Sans" }, true},
		{"unknown heading font", func(c *Config) { c.HeadingFontFamily = "" }, true},
		{"zero base", func(c *Config) { c.BaseSize = 0 }, true},
		{"zero h4", func(c *Config) { c.H4Size = 0 }, true},
		{"negative margin", func(c *Config) { c.Margin = -5 }, true},
		{"zero line height", func(c *Config) { c.LineHeight = 0 }, true},
		{"unknown paper", func(c *Config) { c.PaperSize = "B5" }, true},
		{"bad custom", func(c *Config) { c.PaperSize = PaperCustom; c.CustomHeight = 0 }, true},
		{"custom", func(c *Config) { c.PaperSize = PaperCustom; c.CustomWidth = 100.5 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want RGB
		ok   bool
	}{
		{"#1f2937", RGB{0x1f, 0x29, 0x37}, true},
		{"ffffff", RGB{0xff, 0xff, 0xff}, true},
		{"#abc", RGB{0xaa, 0xbb, 0xcc}, true},
		{"red", RGB{}, false},
		{"#12345", RGB{}, false},
		{"#gggggg", RGB{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseColor(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	assert.Equal(t, RGB{1, 2, 3}, ColorOr("nope", RGB{1, 2, 3}))
	assert.Equal(t, "0a0b0c", RGB{10, 11, 12}.Hex())
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "style.toml")
	content := "paper_size = \"Letter\"\nh1_size = 40\naccent_color = \"#ff0000\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	want := Default()
	want.PaperSize = PaperLetter
	want.H1Size = 40
	want.AccentColor = "#ff0000"
	assert.Equal(t, want, cfg)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "style.toml")
	require.NoError(t, os.WriteFile(path, []byte("paper_size = \"B5\"\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "unknown paper size")
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Default()))
	assert.Contains(t, buf.String(), `paper_size = "A4"`)
	assert.Contains(t, buf.String(), `font_family = "Inter"`)
}
