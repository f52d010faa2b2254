package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/markify/core"
	"github.com/gaurav-prasanna/markify/core/container"
	"github.com/gaurav-prasanna/markify/core/editor"
	"github.com/gaurav-prasanna/markify/core/export"
	"github.com/gaurav-prasanna/markify/core/extract"
	"github.com/gaurav-prasanna/markify/core/fetch"
	"github.com/gaurav-prasanna/markify/core/markdown"
	"github.com/gaurav-prasanna/markify/core/normalize"
	"github.com/gaurav-prasanna/markify/core/session"
	"github.com/gaurav-prasanna/markify/core/style"
)

// Engine flags shared by export and serve.
var (
	flagStyle      string
	flagPDFEngine  string
	flagPNGEngine  string
	flagFontDir    string
	flagChromePath string
)

func addStyleFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagStyle, "style", "", "TOML style file (default: built-in style)")
}

func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagPDFEngine, "pdf_engine", export.EngineFPDF, "PDF engine: fpdf or chrome")
	cmd.Flags().StringVar(&flagPNGEngine, "png_engine", export.EngineRaster, "PNG engine: raster or chrome")
	cmd.Flags().StringVar(&flagFontDir, "font_dir", "", "Directory with TTF files for the raster and fpdf engines (env MARKIFY_FONT_DIR)")
	cmd.Flags().StringVar(&flagChromePath, "chrome_path", "", "Chrome or Chromium executable (env MARKIFY_CHROME_PATH)")
}

// readSource reads Markdown from path, or from stdin when path is "-". It
// also returns the directory relative image paths resolve against.
func readSource(path string) (string, string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		wd, err := os.Getwd()
		if err != nil {
			return "", "", fmt.Errorf("getting working directory: %w", err)
		}
		return string(data), wd, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", fmt.Errorf("resolving %s: %w", path, err)
	}
	return string(data), filepath.Dir(abs), nil
}

func loadStyle() (style.Config, error) {
	if flagStyle == "" {
		return style.Default(), nil
	}
	return style.Load(flagStyle)
}

// newSession builds an editing session over md with the style from --style.
func newSession(md string) (*session.Session, error) {
	cfg, err := loadStyle()
	if err != nil {
		return nil, err
	}
	c, err := container.New(markdown.New())
	if err != nil {
		return nil, fmt.Errorf("initializing renderer: %w", err)
	}
	return session.New(c, editor.New(extract.New(), normalize.New()), cfg, md)
}

// newStrategies selects the engines named by the flags and registers one
// strategy per format.
func newStrategies(cmd *cobra.Command, baseDir string) (map[core.Format]core.Strategy, error) {
	cfg := export.EngineConfig{
		Fetcher:    fetch.New(fetch.WithBaseDir(baseDir)),
		FontDir:    flagOrEnv(cmd, "font_dir", "MARKIFY_FONT_DIR"),
		ChromePath: flagOrEnv(cmd, "chrome_path", "MARKIFY_CHROME_PATH"),
		Logger:     logger,
	}
	pdf, err := export.SelectPDFEngine(flagPDFEngine, cfg)
	if err != nil {
		return nil, err
	}
	png, err := export.SelectPNGEngine(flagPNGEngine, cfg)
	if err != nil {
		return nil, err
	}
	return export.Strategies(pdf, png), nil
}
