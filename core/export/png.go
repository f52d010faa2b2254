package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/gaurav-prasanna/markify/core"
	"github.com/gaurav-prasanna/markify/core/container"
)

// PNGMIMEType is the media type of the image artifact.
const PNGMIMEType = "image/png"

// DefaultScale is the pixel ratio of the first PNG attempt.
const DefaultScale = 2

// RasterOptions controls one rasterization attempt.
type RasterOptions struct {
	Scale float64
	// SkipFonts draws with the built-in fonts instead of loading external
	// font files or web fonts.
	SkipFonts bool
	// SkipImages leaves out every image of the document.
	SkipImages bool
}

// PNGEngine rasterizes a document laid out on its physical page.
type PNGEngine interface {
	Available() error
	PNG(ctx context.Context, doc *container.Document, opts RasterOptions) ([]byte, error)
}

// PNGStrategy exports the rendered document as an image. A failed first
// attempt is retried once without external fonts and images.
type PNGStrategy struct {
	Engine PNGEngine
}

// NewPNGStrategy creates a PNGStrategy using engine.
func NewPNGStrategy(engine PNGEngine) *PNGStrategy {
	return &PNGStrategy{Engine: engine}
}

// Available reports whether the engine can run.
func (s *PNGStrategy) Available() error {
	return s.Engine.Available()
}

// Export rasterizes the snapshot document at DefaultScale.
func (s *PNGStrategy) Export(ctx context.Context, snap core.Snapshot) (*core.Artifact, error) {
	if err := s.Engine.Available(); err != nil {
		return nil, unavailable(core.FormatPNG, err)
	}
	if snap.Document == nil {
		return nil, errNoDocument
	}
	doc := snap.Document.Desktop()

	data, first := s.Engine.PNG(ctx, doc, RasterOptions{Scale: DefaultScale})
	if first != nil {
		if ctx.Err() != nil {
			return nil, first
		}
		var second error
		data, second = s.Engine.PNG(ctx, doc, RasterOptions{Scale: DefaultScale, SkipFonts: true, SkipImages: true})
		if second != nil {
			return nil, errors.Join(
				fmt.Errorf("first attempt: %w", first),
				fmt.Errorf("retry without fonts and images: %w", second),
			)
		}
	}
	return &core.Artifact{
		Data:     data,
		MIMEType: PNGMIMEType,
		Filename: Filename(snap.Markdown, core.FormatPNG),
	}, nil
}
