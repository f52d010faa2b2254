// Package core defines the pipeline interfaces for Markify.
// Each stage of the pipeline is a clean, testable interface.
package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/markify/core/container"
	"github.com/gaurav-prasanna/markify/core/style"
)

// Format tags an export target.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatODT      Format = "odt" // produces the DOCX artifact
	FormatPNG      Format = "png"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "md"
)

// Formats lists every export format in menu order.
func Formats() []Format {
	return []Format{FormatPDF, FormatDOCX, FormatODT, FormatPNG, FormatHTML, FormatMarkdown}
}

// ParseFormat converts a user supplied tag into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pdf":
		return FormatPDF, nil
	case "docx", "word":
		return FormatDOCX, nil
	case "odt":
		return FormatODT, nil
	case "png", "image":
		return FormatPNG, nil
	case "html", "htm":
		return FormatHTML, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", s)
	}
}

// Artifact is an exported file: bytes plus the metadata a download needs.
// Artifacts are produced per export request and never retained.
type Artifact struct {
	Data     []byte
	MIMEType string
	Filename string
}

// Snapshot is the (markdown, styles, rendered document) triple captured when
// an export starts. Later edits never reach an export already in flight.
type Snapshot struct {
	Markdown string
	Style    style.Config
	Document *container.Document
}

// Strategy produces one export format from a snapshot.
type Strategy interface {
	Export(ctx context.Context, snap Snapshot) (*Artifact, error)
}

// Trigger hands a finished artifact to the user: a file on disk, a one-shot
// download URL. It returns where the artifact went.
type Trigger interface {
	Deliver(ctx context.Context, a *Artifact) (string, error)
}

// Notifier surfaces a one-line, non-blocking message to the user.
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

// Notify calls f(msg).
func (f NotifierFunc) Notify(msg string) { f(msg) }

// FetchResult holds a fetched resource and its response metadata.
type FetchResult struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// HTML returns the body as text.
func (r *FetchResult) HTML() string {
	return string(r.Body)
}

// Fetcher retrieves pages and images referenced by a document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// Extractor pulls the main content from raw HTML, stripping noise.
type Extractor interface {
	Extract(html string) (string, error)
}

// Normalizer converts cleaned HTML into Markdown (the canonical format).
type Normalizer interface {
	Normalize(html string) (string, error)
}
