package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderGFM(t *testing.T) {
	r := New()

	tests := []struct {
		name     string
		input    string
		contains []string
	}{
		{
			name:     "heading",
			input:    "# Title",
			contains: []string{"<h1", ">Title</h1>"},
		},
		{
			name:     "table",
			input:    "| a | b |\n| --- | --- |\n| 1 | 2 |\n",
			contains: []string{"<table>", "<th>a</th>", "<td>2</td>"},
		},
		{
			name:     "strikethrough",
			input:    "~~gone~~",
			contains: []string{"<del>gone</del>"},
		},
		{
			name:     "autolink",
			input:    "see https://example.com now",
			contains: []string{`href="https://example.com"`},
		},
		{
			name:     "task list",
			input:    "- [x] done\n- [ ] todo\n",
			contains: []string{`type="checkbox"`, "checked", "disabled"},
		},
		{
			name:     "highlighted code",
			input:    "```go\nfunc main() {}\n```\n",
			contains: []string{`class="chroma"`, "main"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Render(tt.input)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestRenderDropsRawHTML(t *testing.T) {
	out, err := New().Render("hello\n\n<script>alert(1)</script>\n\n<b onclick=\"x()\">bold</b>\n")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, "alert(1)")
}

func TestHighlightCSS(t *testing.T) {
	css, err := New().HighlightCSS()
	require.NoError(t, err)
	assert.Contains(t, css, ".chroma")
}
