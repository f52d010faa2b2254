package export

import (
	"fmt"
	"log/slog"

	"github.com/gaurav-prasanna/markify/core"
)

// Engine names accepted by SelectPDFEngine and SelectPNGEngine.
const (
	EngineFPDF   = "fpdf"
	EngineRaster = "raster"
	EngineChrome = "chrome"
)

// EngineConfig carries what the engines need from the host.
type EngineConfig struct {
	Fetcher    core.Fetcher
	FontDir    string
	ChromePath string
	Logger     *slog.Logger
}

// SelectPDFEngine creates the PDF engine called name.
func SelectPDFEngine(name string, cfg EngineConfig) (PDFEngine, error) {
	switch name {
	case "", EngineFPDF:
		return NewFPDFEngine(cfg.Fetcher, cfg.FontDir), nil
	case EngineChrome:
		return NewChromeEngine(cfg.ChromePath, cfg.Logger), nil
	default:
		return nil, fmt.Errorf("unknown pdf engine %q (want %s or %s)", name, EngineFPDF, EngineChrome)
	}
}

// SelectPNGEngine creates the PNG engine called name.
func SelectPNGEngine(name string, cfg EngineConfig) (PNGEngine, error) {
	switch name {
	case "", EngineRaster:
		return NewRasterEngine(cfg.Fetcher, cfg.FontDir), nil
	case EngineChrome:
		return NewChromeEngine(cfg.ChromePath, cfg.Logger), nil
	default:
		return nil, fmt.Errorf("unknown png engine %q (want %s or %s)", name, EngineRaster, EngineChrome)
	}
}

// Strategies registers one strategy per export format. The docx and odt
// entries share the same strategy.
func Strategies(pdf PDFEngine, png PNGEngine) map[core.Format]core.Strategy {
	word := NewDOCXStrategy()
	return map[core.Format]core.Strategy{
		core.FormatPDF:      NewPDFStrategy(pdf),
		core.FormatDOCX:     word,
		core.FormatODT:      word,
		core.FormatPNG:      NewPNGStrategy(png),
		core.FormatHTML:     NewHTMLStrategy(),
		core.FormatMarkdown: NewMarkdownStrategy(),
	}
}
