// Package style defines the document appearance configuration shared by the
// preview container and every export strategy.
package style

import (
	"fmt"
	"strconv"
	"strings"
)

// FontFamily is one of the fonts offered by the style panel.
type FontFamily string

const (
	FontInter         FontFamily = "Inter"
	FontLora          FontFamily = "Lora"
	FontJetBrainsMono FontFamily = "JetBrains Mono"
	FontSystemUI      FontFamily = "system-ui"
)

// PaperSize names a physical page format.
type PaperSize string

const (
	PaperA3     PaperSize = "A3"
	PaperA4     PaperSize = "A4"
	PaperA5     PaperSize = "A5"
	PaperLetter PaperSize = "Letter"
	PaperCustom PaperSize = "Custom"
)

// Dimensions is a page size in millimetres.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PaperDimensions is the fixed lookup table for every named paper size.
var PaperDimensions = map[PaperSize]Dimensions{
	PaperA3:     {Width: 297, Height: 420},
	PaperA4:     {Width: 210, Height: 297},
	PaperA5:     {Width: 148, Height: 210},
	PaperLetter: {Width: 215.9, Height: 279.4},
}

// Config describes the appearance of a rendered document. It is treated as
// an immutable value for the duration of a render or an export; the style
// panel replaces it wholesale.
type Config struct {
	FontFamily        FontFamily `toml:"font_family" json:"fontFamily"`
	HeadingFontFamily FontFamily `toml:"heading_font_family" json:"headingFontFamily"`

	BaseSize int `toml:"base_size" json:"baseSize"`
	H1Size   int `toml:"h1_size" json:"h1Size"`
	H2Size   int `toml:"h2_size" json:"h2Size"`
	H3Size   int `toml:"h3_size" json:"h3Size"`
	H4Size   int `toml:"h4_size" json:"h4Size"`
	H5Size   int `toml:"h5_size" json:"h5Size"`
	H6Size   int `toml:"h6_size" json:"h6Size"`

	LineHeight       float64 `toml:"line_height" json:"lineHeight"`
	ParagraphSpacing float64 `toml:"paragraph_spacing" json:"paragraphSpacing"`

	TextColor       string `toml:"text_color" json:"textColor"`
	AccentColor     string `toml:"accent_color" json:"accentColor"`
	BackgroundColor string `toml:"background_color" json:"backgroundColor"`

	// Margin is the page margin in millimetres.
	Margin    int       `toml:"margin" json:"margin"`
	PaperSize PaperSize `toml:"paper_size" json:"paperSize"`

	// CustomWidth and CustomHeight only apply when PaperSize is Custom.
	// They are kept when another size is selected.
	CustomWidth  float64 `toml:"custom_width" json:"customWidth"`
	CustomHeight float64 `toml:"custom_height" json:"customHeight"`
}

// Default returns the configuration a new session starts with.
func Default() Config {
	return Config{
		FontFamily:        FontInter,
		HeadingFontFamily: FontInter,
		BaseSize:          16,
		H1Size:            32,
		H2Size:            24,
		H3Size:            20,
		H4Size:            18,
		H5Size:            16,
		H6Size:            14,
		LineHeight:        1.6,
		ParagraphSpacing:  1.5,
		TextColor:         "#1f2937",
		AccentColor:       "#3b82f6",
		BackgroundColor:   "#ffffff",
		Margin:            40,
		PaperSize:         PaperA4,
		CustomWidth:       210,
		CustomHeight:      297,
	}
}

// Fonts lists the selectable font families in panel order.
func Fonts() []FontFamily {
	return []FontFamily{FontInter, FontLora, FontJetBrainsMono, FontSystemUI}
}

// PaperSizes lists the selectable paper sizes in panel order.
func PaperSizes() []PaperSize {
	return []PaperSize{PaperA3, PaperA4, PaperA5, PaperLetter, PaperCustom}
}

// HeadingSizes returns h1..h6 in order. No ordering between levels is
// enforced.
func (c Config) HeadingSizes() [6]int {
	return [6]int{c.H1Size, c.H2Size, c.H3Size, c.H4Size, c.H5Size, c.H6Size}
}

// Validate checks enumerations and numeric ranges. Colours are not checked.
func (c Config) Validate() error {
	if !validFont(c.FontFamily) {
		return fmt.Errorf("unknown font family %q", c.FontFamily)
	}
	if !validFont(c.HeadingFontFamily) {
		return fmt.Errorf("unknown heading font family %q", c.HeadingFontFamily)
	}
	if c.BaseSize <= 0 {
		return fmt.Errorf("base size must be positive (got %d)", c.BaseSize)
	}
	for i, size := range c.HeadingSizes() {
		if size <= 0 {
			return fmt.Errorf("h%d size must be positive (got %d)", i+1, size)
		}
	}
	if c.LineHeight <= 0 {
		return fmt.Errorf("line height must be positive (got %g)", c.LineHeight)
	}
	if c.ParagraphSpacing <= 0 {
		return fmt.Errorf("paragraph spacing must be positive (got %g)", c.ParagraphSpacing)
	}
	if c.Margin < 0 {
		return fmt.Errorf("margin must not be negative (got %d)", c.Margin)
	}
	if c.PaperSize == PaperCustom {
		if c.CustomWidth <= 0 || c.CustomHeight <= 0 {
			return fmt.Errorf("custom paper size must be positive (got %gx%g)", c.CustomWidth, c.CustomHeight)
		}
		return nil
	}
	if _, ok := PaperDimensions[c.PaperSize]; !ok {
		return fmt.Errorf("unknown paper size %q", c.PaperSize)
	}
	return nil
}

func validFont(f FontFamily) bool {
	for _, known := range Fonts() {
		if f == known {
			return true
		}
	}
	return false
}

// RGB is an 8-bit colour.
type RGB struct {
	R, G, B uint8
}

// ParseColor parses "#rgb" or "#rrggbb". The leading '#' is optional.
func ParseColor(s string) (RGB, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return RGB{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, false
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, true
}

// ColorOr parses s and falls back to def when s is not a hex colour.
func ColorOr(s string, def RGB) RGB {
	if c, ok := ParseColor(s); ok {
		return c
	}
	return def
}

// Hex formats c as "rrggbb" without the leading '#'.
func (c RGB) Hex() string {
	return fmt.Sprintf("%02x%02x%02x", c.R, c.G, c.B)
}
