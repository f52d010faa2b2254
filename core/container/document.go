package container

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aymerick/douceur/css"

	"github.com/gaurav-prasanna/markify/core/style"
)

// MarkdownRenderer is the Renderer adapter the container delegates to.
type MarkdownRenderer interface {
	Render(markdown string) (string, error)
}

// highlighter is implemented by renderers that emit class-based syntax
// highlighting and can describe the matching stylesheet.
type highlighter interface {
	HighlightCSS() (string, error)
}

// Container assembles Documents from Markdown and a style config.
type Container struct {
	renderer  MarkdownRenderer
	highlight []*css.Rule
}

// New creates a Container rendering through r.
func New(r MarkdownRenderer) (*Container, error) {
	c := &Container{renderer: r}
	if h, ok := r.(highlighter); ok {
		raw, err := h.HighlightCSS()
		if err != nil {
			return nil, err
		}
		c.highlight, err = scopeRules(raw)
		if err != nil {
			return nil, fmt.Errorf("scoping highlight css: %w", err)
		}
	}
	return c, nil
}

// Build renders markdown and wraps it in the geometry derived from cfg.
func (c *Container) Build(markdown string, cfg style.Config, mobile bool) (*Document, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid style: %w", err)
	}
	inner, err := c.renderer.Render(markdown)
	if err != nil {
		return nil, err
	}
	return &Document{
		Style:     cfg,
		Geometry:  ComputeGeometry(cfg, mobile),
		Inner:     inner,
		highlight: c.highlight,
	}, nil
}

// Document is a rendered Markdown document placed in its page geometry.
// It is never mutated after Build.
type Document struct {
	Style    style.Config
	Geometry Geometry
	// Inner is the sanitized markup rendered from the Markdown source.
	Inner string

	highlight []*css.Rule
}

// Stylesheet returns the scoped style block for this document.
func (d *Document) Stylesheet() *css.Stylesheet {
	sheet := Stylesheet(d.Style, d.Geometry)
	sheet.Rules = append(sheet.Rules, d.highlight...)
	return sheet
}

// CSS returns the stylesheet as text.
func (d *Document) CSS() string {
	return d.Stylesheet().String()
}

// Desktop returns the document laid out on its physical page, which is the
// geometry every export uses regardless of the viewport it was previewed on.
func (d *Document) Desktop() *Document {
	if !d.Geometry.Mobile {
		return d
	}
	cp := *d
	cp.Geometry = ComputeGeometry(d.Style, false)
	return &cp
}

// DOM parses the inner markup. The returned selection is the body holding
// the rendered nodes.
func (d *Document) DOM() (*goquery.Selection, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(d.Inner))
	if err != nil {
		return nil, fmt.Errorf("parsing rendered document: %w", err)
	}
	return doc.Find("body").First(), nil
}

var fragmentTmpl = template.Must(template.New("fragment").Parse(
	`<style>{{.CSS}}</style>
<div id="{{.ID}}" class="preview-content">{{.Inner}}</div>`))

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
{{- if .FontURL}}
<link rel="stylesheet" href="{{.FontURL}}">
{{- end}}
<style>
body { margin: 0; background: {{.Background}}; }
{{.CSS}}
</style>
</head>
<body>
<div id="{{.ID}}" class="preview-content">{{.Inner}}</div>
</body>
</html>
`))

type templateData struct {
	ID         string
	Title      string
	FontURL    string
	Background template.CSS
	CSS        template.CSS
	Inner      template.HTML
}

func (d *Document) templateData(title string, fonts bool) templateData {
	data := templateData{
		ID:         ElementID,
		Title:      title,
		Background: template.CSS(colorsOf(d.Style).background),
		CSS:        template.CSS(d.CSS()),
		Inner:      template.HTML(d.Inner),
	}
	if fonts {
		data.FontURL = FontURL(d.Style)
	}
	return data
}

// Fragment returns the style block followed by the wrapped document, ready
// to be embedded in a larger page.
func (d *Document) Fragment() (string, error) {
	var b strings.Builder
	if err := fragmentTmpl.Execute(&b, d.templateData("", false)); err != nil {
		return "", fmt.Errorf("executing fragment template: %w", err)
	}
	return b.String(), nil
}

// PageOptions controls standalone page generation.
type PageOptions struct {
	Title string
	// SkipFonts omits the web font reference.
	SkipFonts bool
}

// Page returns a standalone HTML document containing exactly one
// ElementID root around the inner markup.
func (d *Document) Page(opts PageOptions) (string, error) {
	title := opts.Title
	if title == "" {
		title = "Document"
	}
	var b strings.Builder
	if err := pageTmpl.Execute(&b, d.templateData(title, !opts.SkipFonts)); err != nil {
		return "", fmt.Errorf("executing page template: %w", err)
	}
	return b.String(), nil
}
