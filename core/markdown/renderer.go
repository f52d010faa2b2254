// Package markdown is the Renderer adapter: it turns a Markdown string into a
// sanitized HTML fragment with the GitHub-Flavored-Markdown extensions
// enabled. Raw HTML embedded in the Markdown source is never passed through.
package markdown

import (
	"bytes"
	"fmt"
	"regexp"

	chroma "github.com/alecthomas/chroma/v2"
	chtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// HighlightStyle is the chroma style used for fenced code blocks. It is a
// dark style to match the dark code block background of the preview.
const HighlightStyle = "github-dark"

var classNames = regexp.MustCompile(`^[\w\- ]+$`)

// Renderer converts Markdown into HTML.
type Renderer struct {
	md  goldmark.Markdown
	pol *bluemonday.Policy
}

// New creates a Renderer with GFM (tables, strikethrough, autolinks, task
// lists) and syntax highlighting.
func New() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(HighlightStyle),
				highlighting.WithFormatOptions(
					chtml.TabWidth(4),
					chtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)

	pol := bluemonday.UGCPolicy()
	pol.AllowAttrs("class").Matching(classNames).OnElements("pre", "code", "span")
	pol.AllowAttrs("type").Matching(regexp.MustCompile(`^checkbox$`)).OnElements("input")
	pol.AllowAttrs("checked", "disabled").OnElements("input")
	pol.AllowAttrs("start").Matching(bluemonday.Integer).OnElements("ol")

	return &Renderer{md: md, pol: pol}
}

// Render converts markdown into a sanitized HTML fragment.
func (r *Renderer) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return r.pol.SanitizeReader(&buf).String(), nil
}

// HighlightCSS returns the class-based stylesheet for highlighted code.
func (r *Renderer) HighlightCSS() (string, error) {
	st := styles.Get(HighlightStyle)
	if st == nil {
		st = styles.Fallback
	}
	return highlightCSS(st)
}

func highlightCSS(st *chroma.Style) (string, error) {
	var buf bytes.Buffer
	if err := chtml.New(chtml.WithClasses(true)).WriteCSS(&buf, st); err != nil {
		return "", fmt.Errorf("writing highlight css: %w", err)
	}
	return buf.String(), nil
}
