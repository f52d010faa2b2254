package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/markify/core"
	"github.com/gaurav-prasanna/markify/core/container"
	"github.com/gaurav-prasanna/markify/core/docx"
	"github.com/gaurav-prasanna/markify/core/markdown"
	"github.com/gaurav-prasanna/markify/core/style"
)

func snapshot(t *testing.T, md string, mobile bool) core.Snapshot {
	t.Helper()
	c, err := container.New(markdown.New())
	require.NoError(t, err)
	cfg := style.Default()
	doc, err := c.Build(md, cfg, mobile)
	require.NoError(t, err)
	return core.Snapshot{Markdown: md, Style: cfg, Document: doc}
}

func TestMarkdownPassthrough(t *testing.T) {
	inputs := []string{
		"",
		"# Title\r\n\r\nbody with **bold** and ünïcödé\n",
		"no trailing newline",
		"<b>raw html</b>\n```\ncode\n```",
	}
	for _, in := range inputs {
		a, err := NewMarkdownStrategy().Export(context.Background(), core.Snapshot{Markdown: in})
		require.NoError(t, err)
		assert.Equal(t, []byte(in), a.Data)
		assert.Equal(t, MarkdownMIMEType, a.MIMEType)
	}
}

func TestParagraphs(t *testing.T) {
	got := Paragraphs("# One\r\n## Two\n### Three\n#### Four\n\n   \n**bold** text\n#NoSpace")
	want := []docx.Paragraph{
		{Heading: 1, Text: "One"},
		{Heading: 2, Text: "Two"},
		{Heading: 3, Text: "Three"},
		{Text: "#### Four"},
		{},
		{},
		{Text: "**bold** text"},
		{Text: "#NoSpace"},
	}
	assert.Equal(t, want, got)
}

func TestDOCXStrategy(t *testing.T) {
	snap := core.Snapshot{Markdown: "# Report\n\nplain", Style: style.Default()}
	snap.Style.PaperSize = style.PaperLetter
	snap.Style.FontFamily = style.FontSystemUI

	a, err := NewDOCXStrategy().Export(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, "report.docx", a.Filename)
	assert.Equal(t, docx.MIMEType, a.MIMEType)

	zr, err := zip.NewReader(bytes.NewReader(a.Data), int64(len(a.Data)))
	require.NoError(t, err)
	parts := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		parts[f.Name] = string(b)
	}
	assert.Contains(t, parts["word/document.xml"], `<w:pgSz w:w="12240" w:h="15840"/>`)
	assert.Contains(t, parts["word/document.xml"], ">plain<")
	assert.Contains(t, parts["word/styles.xml"], `w:ascii="Segoe UI"`)
	// 16px body text is 12pt, i.e. 24 half-points.
	assert.Contains(t, parts["word/styles.xml"], `<w:sz w:val="24"/>`)
}

func TestHTMLStrategySingleRoot(t *testing.T) {
	snap := snapshot(t, "# Hello\n\nSome *text*.", true)

	a, err := NewHTMLStrategy().Export(context.Background(), snap)
	require.NoError(t, err)
	page := string(a.Data)

	assert.Equal(t, 1, strings.Count(page, `id="document-preview"`))
	assert.Contains(t, page, snap.Document.Inner)
	assert.Contains(t, page, "<title>Hello</title>")
	// Exports use the physical page even for a mobile preview.
	assert.Contains(t, page, "width: 210mm")
	assert.Equal(t, "hello.html", a.Filename)
}

func TestHTMLStrategyNeedsDocument(t *testing.T) {
	_, err := NewHTMLStrategy().Export(context.Background(), core.Snapshot{})
	assert.ErrorIs(t, err, errNoDocument)
}

func TestFilename(t *testing.T) {
	tests := []struct {
		md     string
		format core.Format
		want   string
	}{
		{"# Hello World\n", core.FormatPDF, "hello-world.pdf"},
		{"intro\n\n# Later Title #\n", core.FormatPNG, "later-title.png"},
		{"```\n# not a title\n```\n# Real", core.FormatHTML, "real.html"},
		{"## Only h2", core.FormatMarkdown, "document.md"},
		{"", core.FormatODT, "document.docx"},
		{"#hashtag", core.FormatDOCX, "document.docx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Filename(tt.md, tt.format), tt.md)
	}
}

func TestStrategiesRegistersEveryFormat(t *testing.T) {
	s := Strategies(NewFPDFEngine(nil, ""), NewRasterEngine(nil, ""))
	for _, f := range core.Formats() {
		assert.Contains(t, s, f)
	}
	assert.Same(t, s[core.FormatDOCX], s[core.FormatODT])
}

func TestSelectEngines(t *testing.T) {
	pdf, err := SelectPDFEngine("", EngineConfig{FontDir: "fonts"})
	require.NoError(t, err)
	assert.Equal(t, "fonts", pdf.(*FPDFEngine).FontDir)

	pdf, err = SelectPDFEngine(EngineChrome, EngineConfig{ChromePath: "/nope"})
	require.NoError(t, err)
	assert.IsType(t, &ChromeEngine{}, pdf)

	png, err := SelectPNGEngine(EngineRaster, EngineConfig{FontDir: "fonts"})
	require.NoError(t, err)
	assert.Equal(t, "fonts", png.(*RasterEngine).FontDir)

	_, err = SelectPDFEngine("wkhtml", EngineConfig{})
	assert.Error(t, err)
	_, err = SelectPNGEngine("canvas", EngineConfig{})
	assert.Error(t, err)
}

func TestChromeUnavailable(t *testing.T) {
	e := NewChromeEngine("", nil)
	e.lookPath = func(string) (string, error) { return "", errors.New("not found") }
	assert.ErrorIs(t, e.Available(), ErrCapabilityUnavailable)

	_, err := NewPDFStrategy(e).Export(context.Background(), snapshot(t, "x", false))
	var exportErr *Error
	require.ErrorAs(t, err, &exportErr)
	assert.Equal(t, KindUnavailable, exportErr.Kind)

	missing := NewChromeEngine("/definitely/not/chrome", nil)
	assert.ErrorIs(t, missing.Available(), ErrCapabilityUnavailable)
}
