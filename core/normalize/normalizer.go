// Package normalize implements the Normalizer interface.
// It converts cleaned HTML into Markdown, the canonical format every
// editor surface and exporter works from.
package normalize

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/strikethrough"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// MarkdownNormalizer converts HTML to GitHub-Flavored Markdown using
// html-to-markdown, so tables and strikethrough survive a round trip
// through the rich-text editor.
type MarkdownNormalizer struct {
	conv *converter.Converter
}

// New creates a MarkdownNormalizer.
func New() *MarkdownNormalizer {
	return &MarkdownNormalizer{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(
					commonmark.WithHeadingStyle(commonmark.HeadingStyleATX),
					commonmark.WithBulletListMarker("-"),
					commonmark.WithCodeBlockFence("```"),
				),
				strikethrough.NewStrikethroughPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Normalize converts a cleaned HTML fragment into Markdown.
func (n *MarkdownNormalizer) Normalize(html string) (string, error) {
	return n.convert(html)
}

// NormalizePage converts HTML fetched from pageURL, resolving relative links
// and images against it.
func (n *MarkdownNormalizer) NormalizePage(html, pageURL string) (string, error) {
	return n.convert(html, converter.WithDomain(pageURL))
}

func (n *MarkdownNormalizer) convert(html string, opts ...converter.ConvertOptionFunc) (string, error) {
	markdown, err := n.conv.ConvertString(html, opts...)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return "", nil
	}
	return markdown + "\n", nil
}
