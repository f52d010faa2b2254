// Package fetch implements the Fetcher interface.
// It retrieves pages to import and images referenced by a document, over
// HTTP or from the local filesystem next to the Markdown source.
package fetch

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/gaurav-prasanna/markify/core"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "Markify/1.0 (https://github.com/gaurav-prasanna/markify)"
	maxBodySize      = 32 << 20
)

// Fetcher fetches web pages and images via HTTP, data URIs, or local files.
type Fetcher struct {
	client  *http.Client
	fs      afero.Fs
	baseDir string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithFs sets the filesystem local paths are read from.
func WithFs(fs afero.Fs) Option {
	return func(f *Fetcher) { f.fs = fs }
}

// WithBaseDir resolves relative local paths against dir, usually the
// directory holding the Markdown source.
func WithBaseDir(dir string) Option {
	return func(f *Fetcher) { f.baseDir = dir }
}

// New creates a Fetcher with a sensible timeout.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{Timeout: defaultTimeout},
		fs:     afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the resource named by ref.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (*core.FetchResult, error) {
	u, err := url.Parse(ref)
	if err != nil || len(u.Scheme) <= 1 {
		// No scheme, or a Windows drive letter.
		return f.fetchFile(ref)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.fetchHTTP(ctx, ref)
	case "data":
		return fetchData(ref)
	case "file":
		return f.fetchFile(u.Path)
	default:
		return nil, fmt.Errorf("unsupported scheme %q in %s", u.Scheme, ref)
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, ref string) (*core.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,image/*;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, ref)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &core.FetchResult{
		URL:         ref,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func (f *Fetcher) fetchFile(path string) (*core.FetchResult, error) {
	if !filepath.IsAbs(path) && f.baseDir != "" {
		path = filepath.Join(f.baseDir, path)
	}
	body, err := afero.ReadFile(f.fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return &core.FetchResult{
		URL:         path,
		StatusCode:  http.StatusOK,
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Body:        body,
	}, nil
}

// fetchData decodes an RFC 2397 data URI.
func fetchData(ref string) (*core.FetchResult, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URI")
	}
	contentType, encoded := meta, false
	if strings.HasSuffix(meta, ";base64") {
		contentType, encoded = strings.TrimSuffix(meta, ";base64"), true
	}
	if contentType == "" {
		contentType = "text/plain;charset=US-ASCII"
	}

	var body []byte
	if encoded {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decoding data URI: %w", err)
		}
		body = b
	} else {
		s, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("decoding data URI: %w", err)
		}
		body = []byte(s)
	}
	return &core.FetchResult{
		URL:         "data:",
		StatusCode:  http.StatusOK,
		ContentType: contentType,
		Body:        body,
	}, nil
}
