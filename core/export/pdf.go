package export

import (
	"context"

	"github.com/gaurav-prasanna/markify/core"
	"github.com/gaurav-prasanna/markify/core/container"
)

// PDFMIMEType is the media type of the PDF artifact.
const PDFMIMEType = "application/pdf"

// PDFEngine renders a document laid out on its physical page into a PDF.
type PDFEngine interface {
	// Available returns an error wrapping ErrCapabilityUnavailable when the
	// engine cannot run.
	Available() error
	PDF(ctx context.Context, doc *container.Document, title string) ([]byte, error)
}

// PDFStrategy exports the rendered document as a PDF sized to the
// configured paper.
type PDFStrategy struct {
	Engine PDFEngine
}

// NewPDFStrategy creates a PDFStrategy using engine.
func NewPDFStrategy(engine PDFEngine) *PDFStrategy {
	return &PDFStrategy{Engine: engine}
}

// Available reports whether the engine can run.
func (s *PDFStrategy) Available() error {
	return s.Engine.Available()
}

// Export renders the snapshot document as a PDF.
func (s *PDFStrategy) Export(ctx context.Context, snap core.Snapshot) (*core.Artifact, error) {
	if err := s.Engine.Available(); err != nil {
		return nil, unavailable(core.FormatPDF, err)
	}
	if snap.Document == nil {
		return nil, errNoDocument
	}
	data, err := s.Engine.PDF(ctx, snap.Document.Desktop(), pageTitle(snap.Markdown))
	if err != nil {
		return nil, err
	}
	return &core.Artifact{
		Data:     data,
		MIMEType: PDFMIMEType,
		Filename: Filename(snap.Markdown, core.FormatPDF),
	}, nil
}
