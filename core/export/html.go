package export

import (
	"context"
	"errors"

	"github.com/gaurav-prasanna/markify/core"
	"github.com/gaurav-prasanna/markify/core/container"
)

// HTMLMIMEType is the media type of the standalone page.
const HTMLMIMEType = "text/html; charset=utf-8"

var errNoDocument = errors.New("snapshot has no rendered document")

// HTMLStrategy writes a standalone page: the desktop stylesheet inlined and
// exactly one document root holding the rendered markup verbatim.
type HTMLStrategy struct{}

// NewHTMLStrategy creates an HTMLStrategy.
func NewHTMLStrategy() *HTMLStrategy {
	return &HTMLStrategy{}
}

// Export renders the snapshot document as a standalone page.
func (s *HTMLStrategy) Export(_ context.Context, snap core.Snapshot) (*core.Artifact, error) {
	if snap.Document == nil {
		return nil, errNoDocument
	}
	page, err := snap.Document.Desktop().Page(container.PageOptions{Title: pageTitle(snap.Markdown)})
	if err != nil {
		return nil, err
	}
	return &core.Artifact{
		Data:     []byte(page),
		MIMEType: HTMLMIMEType,
		Filename: Filename(snap.Markdown, core.FormatHTML),
	}, nil
}

func pageTitle(markdown string) string {
	if t := Title(markdown); t != "" {
		return t
	}
	return "Document"
}
