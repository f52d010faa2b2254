package export

import (
	"context"

	"github.com/gaurav-prasanna/markify/core"
)

// MarkdownMIMEType is the media type of the Markdown artifact.
const MarkdownMIMEType = "text/markdown; charset=utf-8"

// MarkdownStrategy writes the Markdown source as-is. Markdown is already the
// canonical format, so the bytes are exactly the editor contents.
type MarkdownStrategy struct{}

// NewMarkdownStrategy creates a MarkdownStrategy.
func NewMarkdownStrategy() *MarkdownStrategy {
	return &MarkdownStrategy{}
}

// Export returns the snapshot's Markdown (passthrough).
func (s *MarkdownStrategy) Export(_ context.Context, snap core.Snapshot) (*core.Artifact, error) {
	return &core.Artifact{
		Data:     []byte(snap.Markdown),
		MIMEType: MarkdownMIMEType,
		Filename: Filename(snap.Markdown, core.FormatMarkdown),
	}, nil
}
