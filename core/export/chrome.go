package export

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/gaurav-prasanna/markify/core/container"
)

const defaultChromeTimeout = 60 * time.Second

var chromeCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
	"headless-shell",
}

// ChromeEngine prints and screenshots the standalone page with a headless
// Chrome. It is unavailable when no browser executable can be found.
type ChromeEngine struct {
	// ExecPath overrides executable discovery.
	ExecPath string
	Timeout  time.Duration
	Logger   *slog.Logger

	lookPath func(string) (string, error)
}

// NewChromeEngine creates a ChromeEngine. An empty execPath searches PATH.
func NewChromeEngine(execPath string, logger *slog.Logger) *ChromeEngine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ChromeEngine{ExecPath: execPath, Timeout: defaultChromeTimeout, Logger: logger, lookPath: exec.LookPath}
}

func (e *ChromeEngine) executable() string {
	if e.ExecPath != "" {
		if _, err := os.Stat(e.ExecPath); err == nil {
			return e.ExecPath
		}
		return ""
	}
	look := e.lookPath
	if look == nil {
		look = exec.LookPath
	}
	for _, name := range chromeCandidates {
		if p, err := look(name); err == nil {
			return p
		}
	}
	return ""
}

// Available fails when no browser executable is found.
func (e *ChromeEngine) Available() error {
	if e.executable() == "" {
		return fmt.Errorf("%w: no Chrome or Chromium executable found", ErrCapabilityUnavailable)
	}
	return nil
}

// run loads html into a fresh browser tab and runs actions against it.
func (e *ChromeEngine) run(ctx context.Context, html string, actions ...chromedp.Action) error {
	path := e.executable()
	if path == "" {
		return e.Available()
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = defaultChromeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tmp, err := os.CreateTemp("", "markify-*.html")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(html); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	tmp.Close()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(path),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			e.Logger.Debug(fmt.Sprintf("chromedp: "+format, args...))
		}),
	)
	defer browserCancel()

	tasks := chromedp.Tasks{
		chromedp.Navigate("file://" + tmp.Name()),
		chromedp.WaitReady("#" + container.ElementID),
	}
	tasks = append(tasks, actions...)
	if err := chromedp.Run(browserCtx, tasks); err != nil {
		return fmt.Errorf("running chrome: %w", err)
	}
	return nil
}

// PDF prints the standalone page on paper of the document's physical size.
// The page margin is part of the document padding, so the printer margin
// is zero.
func (e *ChromeEngine) PDF(ctx context.Context, doc *container.Document, title string) ([]byte, error) {
	html, err := doc.Page(container.PageOptions{Title: title})
	if err != nil {
		return nil, err
	}
	var data []byte
	err = e.run(ctx, html, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		data, _, err = page.PrintToPDF().
			WithPaperWidth(doc.Geometry.Page.Width / 25.4).
			WithPaperHeight(doc.Geometry.Page.Height / 25.4).
			WithMarginTop(0).
			WithMarginBottom(0).
			WithMarginLeft(0).
			WithMarginRight(0).
			WithPrintBackground(true).
			WithPreferCSSPageSize(false).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	return data, nil
}

// PNG captures the document element at opts.Scale device pixels per CSS
// pixel.
func (e *ChromeEngine) PNG(ctx context.Context, doc *container.Document, opts RasterOptions) ([]byte, error) {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	if opts.SkipImages {
		inner, err := withoutImages(doc.Inner)
		if err != nil {
			return nil, err
		}
		cp := *doc
		cp.Inner = inner
		doc = &cp
	}
	html, err := doc.Page(container.PageOptions{SkipFonts: opts.SkipFonts})
	if err != nil {
		return nil, err
	}
	width := int64(math.Ceil(doc.Geometry.Page.Width / 25.4 * cssDPI))
	height := int64(math.Ceil(doc.Geometry.Page.Height / 25.4 * cssDPI))

	var data []byte
	err = e.run(ctx, html,
		chromedp.EmulateViewport(width, height, chromedp.EmulateScale(opts.Scale)),
		chromedp.Screenshot("#"+container.ElementID, &data, chromedp.ByQuery),
	)
	if err != nil {
		return nil, err
	}
	return data, nil
}
