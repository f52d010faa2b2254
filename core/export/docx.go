package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/markify/core"
	"github.com/gaurav-prasanna/markify/core/container"
	"github.com/gaurav-prasanna/markify/core/docx"
	"github.com/gaurav-prasanna/markify/core/style"
)

// pxToPt converts CSS pixels to points.
const pxToPt = 0.75

var (
	defaultText       = style.RGB{R: 0x1f, G: 0x29, B: 0x37}
	defaultBackground = style.RGB{R: 0xff, G: 0xff, B: 0xff}
	defaultAccent     = style.RGB{R: 0x3b, G: 0x82, B: 0xf6}
)

// Paragraphs maps Markdown source to word-processor paragraphs, one per
// line. Only "# ", "## " and "### " prefixes become headings; every other
// line, including inline markup and deeper headings, is kept verbatim as a
// plain paragraph. Whitespace-only lines become empty paragraphs.
func Paragraphs(markdown string) []docx.Paragraph {
	lines := strings.Split(markdown, "\n")
	out := make([]docx.Paragraph, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case strings.HasPrefix(line, "### "):
			out = append(out, docx.Paragraph{Heading: 3, Text: line[4:]})
		case strings.HasPrefix(line, "## "):
			out = append(out, docx.Paragraph{Heading: 2, Text: line[3:]})
		case strings.HasPrefix(line, "# "):
			out = append(out, docx.Paragraph{Heading: 1, Text: line[2:]})
		case strings.TrimSpace(line) == "":
			out = append(out, docx.Paragraph{})
		default:
			out = append(out, docx.Paragraph{Text: line})
		}
	}
	return out
}

// wordFont names the installed font a word processor should use for f.
func wordFont(f style.FontFamily) string {
	if f == style.FontSystemUI {
		return "Segoe UI"
	}
	return string(f)
}

// DOCXStrategy builds a word-processor document from the Markdown source
// line by line. It serves both the docx and the odt menu entries.
type DOCXStrategy struct{}

// NewDOCXStrategy creates a DOCXStrategy.
func NewDOCXStrategy() *DOCXStrategy {
	return &DOCXStrategy{}
}

// Export packages the snapshot's paragraphs with its style applied.
func (s *DOCXStrategy) Export(_ context.Context, snap core.Snapshot) (*core.Artifact, error) {
	cfg := snap.Style
	page := container.ResolveDimensions(cfg)

	opts := docx.Options{
		Title:            pageTitle(snap.Markdown),
		BodyFont:         wordFont(cfg.FontFamily),
		HeadingFont:      wordFont(cfg.HeadingFontFamily),
		BodySize:         float64(cfg.BaseSize) * pxToPt,
		Color:            style.ColorOr(cfg.TextColor, defaultText).Hex(),
		LineHeight:       cfg.LineHeight,
		ParagraphSpacing: cfg.ParagraphSpacing,
		PageWidth:        page.Width,
		PageHeight:       page.Height,
		Margin:           float64(cfg.Margin),
	}
	for i, size := range cfg.HeadingSizes() {
		opts.HeadingSizes[i] = float64(size) * pxToPt
	}

	data, err := docx.Package(Paragraphs(snap.Markdown), opts)
	if err != nil {
		return nil, fmt.Errorf("packaging document: %w", err)
	}
	return &core.Artifact{
		Data:     data,
		MIMEType: docx.MIMEType,
		Filename: Filename(snap.Markdown, core.FormatDOCX),
	}, nil
}
