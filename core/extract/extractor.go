// Package extract implements the Extractor interface.
// It reduces HTML to the content worth keeping as Markdown, whether it is a
// full page being imported or a fragment produced by the rich-text editor:
//  1. Removing noise elements (scripts, navigation, forms, embeds)
//  2. Unwrapping editor wrappers that carry no structure, keeping the bold
//     and italic their inline styles expressed
//  3. Finding the best content container (<main>, <article>, or <body>)
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noiseSelectors are HTML elements removed before extraction.
// These contribute no meaningful content to the document text.
var noiseSelectors = []string{
	"script", "style", "noscript", "template",
	"meta", "link", "title",
	"nav", "footer", "header", "aside",
	"iframe", "video", "audio", "object", "embed",
	"svg", "canvas",
	"form", "button", "select", "textarea",
	"input:not([type=checkbox])",
	".sidebar", ".menu", ".navigation", ".ads", ".advertisement",
}

// wrapperSelectors are elements whose children are kept but which add no
// structure of their own (Google Docs and Word clipboard wrappers, spans).
var wrapperSelectors = []string{
	`b[id^="docs-internal-guid"]`,
	"span", "font", "o\\:p",
}

// HTMLExtractor strips noise from HTML and returns the main content fragment.
type HTMLExtractor struct{}

// New creates an HTMLExtractor.
func New() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Extract takes raw HTML and returns a cleaned HTML fragment containing
// only the main content. Images are kept.
func (e *HTMLExtractor) Extract(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	// Remove noise elements first (operates on the whole document).
	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}
	doc.Find("span[style]").Each(func(_ int, s *goquery.Selection) {
		st := strings.ReplaceAll(strings.ToLower(s.AttrOr("style", "")), " ", "")
		if strings.Contains(st, "font-style:italic") {
			s.WrapInnerHtml("<em></em>")
		}
		if strings.Contains(st, "font-weight:700") || strings.Contains(st, "font-weight:bold") {
			s.WrapInnerHtml("<strong></strong>")
		}
	})
	for _, sel := range wrapperSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if s.Contents().Length() == 0 {
				s.Remove()
				return
			}
			s.Contents().Unwrap()
		})
	}
	doc.Find("[style]").RemoveAttr("style")
	doc.Find("[class]").RemoveAttr("class")

	// Find the best content container in priority order.
	// <main> is the most semantically correct, then <article>, then <body>.
	var content *goquery.Selection
	for _, tag := range []string{"main", "article", "body"} {
		sel := doc.Find(tag)
		if sel.Length() > 0 {
			content = sel.First()
			break
		}
	}

	if content == nil {
		return "", fmt.Errorf("no content container found in HTML")
	}

	result, err := content.Html()
	if err != nil {
		return "", fmt.Errorf("serializing content: %w", err)
	}

	return strings.TrimSpace(result), nil
}
