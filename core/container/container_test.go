package container

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/markify/core/markdown"
	"github.com/gaurav-prasanna/markify/core/style"
)

// lookup finds the value of property in the rule matching selector.
func lookup(t *testing.T, sheet *css.Stylesheet, selector, property string) string {
	t.Helper()
	for _, rule := range sheet.Rules {
		for _, sel := range rule.Selectors {
			if sel != selector {
				continue
			}
			for _, d := range rule.Declarations {
				if d.Property == property {
					return d.Value
				}
			}
		}
	}
	t.Fatalf("no %s declaration for %q", property, selector)
	return ""
}

// reparse checks the generated stylesheet survives a round trip through a
// CSS parser and returns the parsed result.
func reparse(t *testing.T, sheet *css.Stylesheet) *css.Stylesheet {
	t.Helper()
	parsed, err := parser.Parse(sheet.String())
	require.NoError(t, err)
	return parsed
}

func TestResolveDimensionsNamedIgnoresCustom(t *testing.T) {
	for size, want := range style.PaperDimensions {
		cfg := style.Default()
		cfg.PaperSize = size
		cfg.CustomWidth = 999
		cfg.CustomHeight = 111
		assert.Equal(t, want, ResolveDimensions(cfg), size)
	}
}

func TestResolveDimensionsCustom(t *testing.T) {
	cfg := style.Default()
	cfg.PaperSize = style.PaperCustom
	cfg.CustomWidth = 100.25
	cfg.CustomHeight = 333.5
	assert.Equal(t, style.Dimensions{Width: 100.25, Height: 333.5}, ResolveDimensions(cfg))
}

func TestResolveDimensionsUnknownPanics(t *testing.T) {
	cfg := style.Default()
	cfg.PaperSize = "B5"
	assert.Panics(t, func() { ResolveDimensions(cfg) })
}

func TestHeadingScaling(t *testing.T) {
	cfg := style.Default()
	cfg.H1Size = 33
	cfg.H2Size = 50 // larger than h1 on purpose
	cfg.H3Size = 7
	cfg.H6Size = 2

	for _, mobile := range []bool{false, true} {
		sheet := reparse(t, Stylesheet(cfg, ComputeGeometry(cfg, mobile)))
		for i, size := range cfg.HeadingSizes() {
			want := size
			if mobile {
				want = ScaleHeading(size)
			}
			sel := "#document-preview h" + string(rune('1'+i))
			assert.Equal(t, px(want), lookup(t, sheet, sel, "font-size"), "mobile=%v %s", mobile, sel)
		}
	}

	assert.Equal(t, 25, ScaleHeading(33))
	assert.Equal(t, 38, ScaleHeading(50))
	assert.Equal(t, 5, ScaleHeading(7))
	assert.Equal(t, 2, ScaleHeading(2))
}

func TestComputeGeometryMobileKeepsPhysicalPage(t *testing.T) {
	cfg := style.Default()
	cfg.BaseSize = 13

	geo := ComputeGeometry(cfg, true)
	assert.Equal(t, style.Dimensions{Width: 210, Height: 297}, geo.Page)
	assert.Equal(t, "100%", geo.Width.String())
	assert.Equal(t, "auto", geo.MinHeight.String())
	assert.Equal(t, "24px 16px 24px 16px", geo.Padding.String())
	assert.Equal(t, 12, geo.FontSize)
}

func TestDefaultScenario(t *testing.T) {
	c, err := New(markdown.New())
	require.NoError(t, err)

	doc, err := c.Build("# H\n\nPara", style.Default(), false)
	require.NoError(t, err)

	geo := doc.Geometry
	assert.Equal(t, "210mm", geo.Width.String())
	assert.Equal(t, "297mm", geo.MinHeight.String())
	assert.Equal(t, "40mm 40mm 40mm 40mm", geo.Padding.String())

	sheet := reparse(t, doc.Stylesheet())
	assert.Equal(t, "32px", lookup(t, sheet, "#document-preview h1", "font-size"))
	assert.Equal(t, "210mm", lookup(t, sheet, "#document-preview", "width"))
	assert.Equal(t, "40mm 40mm 40mm 40mm", lookup(t, sheet, "#document-preview", "padding"))

	mobile, err := c.Build("# H\n\nPara", style.Default(), true)
	require.NoError(t, err)
	assert.Equal(t, "24px", lookup(t, reparse(t, mobile.Stylesheet()), "#document-preview h1", "font-size"))

	// exports always see the physical page
	desktop := mobile.Desktop()
	assert.Equal(t, geo, desktop.Geometry)
	assert.Equal(t, mobile.Inner, desktop.Inner)
	assert.True(t, mobile.Geometry.Mobile)
}

func TestStylesheetFollowsConfig(t *testing.T) {
	cfg := style.Default()
	cfg.AccentColor = "#ff00aa"
	cfg.HeadingFontFamily = style.FontLora
	cfg.ParagraphSpacing = 2.25

	sheet := reparse(t, Stylesheet(cfg, ComputeGeometry(cfg, false)))
	assert.Equal(t, "#ff00aa", lookup(t, sheet, "#document-preview a", "color"))
	assert.Equal(t, "4px solid #ff00aa", lookup(t, sheet, "#document-preview blockquote", "border-left"))
	assert.Equal(t, "'Lora', serif", lookup(t, sheet, "#document-preview h3", "font-family"))
	assert.Equal(t, "2.25em", lookup(t, sheet, "#document-preview p", "margin-bottom"))
	assert.Equal(t, "12px", lookup(t, sheet, "#document-preview td", "padding"))
}

func TestFontURL(t *testing.T) {
	cfg := style.Default()
	cfg.HeadingFontFamily = style.FontLora
	u := FontURL(cfg)
	assert.Contains(t, u, "family=Inter:")
	assert.Contains(t, u, "family=Lora:")
	assert.Contains(t, u, "family=JetBrains+Mono:")

	cfg.FontFamily = style.FontSystemUI
	cfg.HeadingFontFamily = style.FontSystemUI
	assert.NotContains(t, FontURL(cfg), "system-ui")
}

func TestPageWrapsInnerMarkup(t *testing.T) {
	c, err := New(markdown.New())
	require.NoError(t, err)
	doc, err := c.Build("# Hello\n\n| a |\n| - |\n| b |\n", style.Default(), false)
	require.NoError(t, err)

	page, err := doc.Page(PageOptions{Title: "Hello"})
	require.NoError(t, err)

	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	root := parsed.Find("#" + ElementID)
	require.Equal(t, 1, root.Length())
	assert.Equal(t, 1, root.Find("h1").Length())
	assert.Equal(t, 1, root.Find("table").Length())
	assert.Equal(t, 1, parsed.Find(`link[rel="stylesheet"]`).Length())

	noFonts, err := doc.Page(PageOptions{SkipFonts: true})
	require.NoError(t, err)
	assert.NotContains(t, noFonts, "fonts.googleapis.com")
}

func TestFragment(t *testing.T) {
	c, err := New(markdown.New())
	require.NoError(t, err)
	doc, err := c.Build("text", style.Default(), true)
	require.NoError(t, err)

	frag, err := doc.Fragment()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(frag, "<style>"))
	assert.Contains(t, frag, `id="document-preview"`)
	assert.Contains(t, frag, "100%")
}

func TestBuildRejectsInvalidStyle(t *testing.T) {
	c, err := New(markdown.New())
	require.NoError(t, err)
	cfg := style.Default()
	cfg.PaperSize = "B5"
	_, err = c.Build("x", cfg, false)
	assert.ErrorContains(t, err, "invalid style")
}

type failingRenderer struct{}

func (failingRenderer) Render(string) (string, error) { return "", errors.New("boom") }

func TestBuildPropagatesRendererError(t *testing.T) {
	c, err := New(failingRenderer{})
	require.NoError(t, err)
	_, err = c.Build("x", style.Default(), false)
	assert.EqualError(t, err, "boom")
}

func TestColorsCannotCloseStyleBlock(t *testing.T) {
	c, err := New(markdown.New())
	require.NoError(t, err)

	cfg := style.Default()
	cfg.TextColor = "red}</style><script>alert(1)</script><style>"
	cfg.AccentColor = "blue;} body { display: none"
	cfg.BackgroundColor = `#fff</style><img src=x onerror=alert(2)>`
	doc, err := c.Build("text", cfg, false)
	require.NoError(t, err)

	frag, err := doc.Fragment()
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(frag, "</style>"))
	assert.NotContains(t, frag, "<script>")

	page, err := doc.Page(PageOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(page, "</style>"))
	assert.NotContains(t, page, "<script>")
	assert.NotContains(t, page, "onerror")

	def := style.Default()
	sheet := reparse(t, doc.Stylesheet())
	assert.Equal(t, def.TextColor, lookup(t, sheet, "#document-preview", "color"))
	assert.Equal(t, def.AccentColor, lookup(t, sheet, "#document-preview a", "color"))
	assert.Equal(t, def.BackgroundColor, lookup(t, sheet, "#document-preview", "background-color"))
}

func TestColor(t *testing.T) {
	tests := []struct{ in, want string }{
		{"#ABC", "#aabbcc"},
		{" #112233 ", "#112233"},
		{"rebeccapurple", "rebeccapurple"},
		{"rgb(10, 20, 30)", "rgb(10, 20, 30)"},
		{"hsla(120, 50%, 50%, 0.3)", "hsla(120, 50%, 50%, 0.3)"},
		{"red;color:blue", "#000000"},
		{"url(x)", "#000000"},
		{"", "#000000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Color(tt.in, "#000000"), tt.in)
	}
}
