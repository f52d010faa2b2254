package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/markify/core"
	"github.com/gaurav-prasanna/markify/core/container"
	"github.com/gaurav-prasanna/markify/core/editor"
	"github.com/gaurav-prasanna/markify/core/export"
	"github.com/gaurav-prasanna/markify/core/extract"
	"github.com/gaurav-prasanna/markify/core/markdown"
	"github.com/gaurav-prasanna/markify/core/normalize"
	"github.com/gaurav-prasanna/markify/core/session"
	"github.com/gaurav-prasanna/markify/core/style"
)

type strategyFunc func(ctx context.Context, snap core.Snapshot) (*core.Artifact, error)

func (f strategyFunc) Export(ctx context.Context, snap core.Snapshot) (*core.Artifact, error) {
	return f(ctx, snap)
}

type fixture struct {
	url       string
	session   *session.Session
	downloads *Downloads
}

func defaultStrategies() map[core.Format]core.Strategy {
	return map[core.Format]core.Strategy{
		core.FormatMarkdown: export.NewMarkdownStrategy(),
		core.FormatHTML:     export.NewHTMLStrategy(),
		core.FormatDOCX:     export.NewDOCXStrategy(),
		core.FormatPDF:      export.NewPDFStrategy(export.NewChromeEngine("/nonexistent/chrome", nil)),
		core.FormatPNG: strategyFunc(func(context.Context, core.Snapshot) (*core.Artifact, error) {
			return nil, errors.New("canvas too large")
		}),
	}
}

func newFixture(t *testing.T, md string, strategies map[core.Format]core.Strategy, opts ...func(*Config)) *fixture {
	t.Helper()
	c, err := container.New(markdown.New())
	require.NoError(t, err)
	sess, err := session.New(c, editor.New(extract.New(), normalize.New()), style.Default(), md)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	downloads := NewDownloads()
	notices := &Notices{}
	coord := export.NewCoordinator(downloads, strategies,
		export.WithNotifier(notices),
		export.WithMetrics(export.NewMetrics(reg)))

	cfg := Config{
		Session:     sess,
		Coordinator: coord,
		Downloads:   downloads,
		Notices:     notices,
		Gatherer:    reg,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	handler, err := New(cfg).Router()
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &fixture{url: srv.URL, session: sess, downloads: downloads}
}

func do(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func doWithOrigin(t *testing.T, method, url, origin string, header map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", origin)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func decode(t *testing.T, body string, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(body), v))
}

func TestPage(t *testing.T) {
	f := newFixture(t, "# Hello page", defaultStrategies())

	resp, body := do(t, http.MethodGet, f.url+"/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `id="document-preview"`)
	assert.Contains(t, body, "Hello page")
	assert.Contains(t, body, "<title>Hello page · Markify</title>")
	assert.Contains(t, body, `data-format="pdf"`)
	assert.Contains(t, body, "Words: 3")
	assert.Contains(t, body, "Lines: 1")

	_, mobile := do(t, http.MethodGet, f.url+"/?mobile=1", "")
	assert.Contains(t, mobile, "100%")
}

func TestMarkdownEdits(t *testing.T) {
	f := newFixture(t, "", defaultStrategies())

	resp, _ := do(t, http.MethodPut, f.url+"/api/markdown", "# Typed")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, body := do(t, http.MethodGet, f.url+"/api/markdown", "")
	assert.Equal(t, "# Typed", body)

	resp, body = do(t, http.MethodPut, f.url+"/api/richtext", "<h2>Rich</h2><p><em>text</em></p>")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var got map[string]string
	decode(t, body, &got)
	assert.Equal(t, "## Rich\n\n*text*\n", got["markdown"])
	assert.Equal(t, got["markdown"], f.session.Markdown())
}

func TestStyles(t *testing.T) {
	f := newFixture(t, "", defaultStrategies())

	_, body := do(t, http.MethodGet, f.url+"/api/styles", "")
	var cfg style.Config
	decode(t, body, &cfg)
	assert.Equal(t, style.Default(), cfg)

	resp, _ := do(t, http.MethodPut, f.url+"/api/styles", `{"paperSize":"Letter","margin":20}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, style.PaperLetter, f.session.Style().PaperSize)
	assert.Equal(t, 20, f.session.Style().Margin)

	tests := []struct {
		name string
		body string
	}{
		{"invalid value", `{"baseSize":0}`},
		{"unknown field", `{"fontSize":12}`},
		{"not json", `margin=3`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodPut, f.url+"/api/styles", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, body, `"message"`)
			assert.Equal(t, style.PaperLetter, f.session.Style().PaperSize)
		})
	}
}

func TestPreview(t *testing.T) {
	f := newFixture(t, "Some *text*", defaultStrategies())

	_, body := do(t, http.MethodGet, f.url+"/api/preview", "")
	var got struct {
		HTML     string
		CSS      string
		Geometry struct {
			Width string
		}
	}
	decode(t, body, &got)
	assert.Contains(t, got.HTML, "<em>text</em>")
	assert.Contains(t, got.CSS, "#document-preview")
	assert.Equal(t, "210mm", got.Geometry.Width)
}

func TestExportDownloadsOnce(t *testing.T) {
	md := "# Release Notes\n\nbody\n"
	f := newFixture(t, md, defaultStrategies())

	resp, body := do(t, http.MethodPost, f.url+"/api/export/md", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var got exportResponse
	decode(t, body, &got)
	assert.Equal(t, "release-notes.md", got.Filename)
	assert.Equal(t, len(md), got.Size)
	assert.True(t, strings.HasPrefix(got.URL, DownloadPrefix))

	resp, body = do(t, http.MethodGet, f.url+got.URL, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, md, body)
	assert.Equal(t, export.MarkdownMIMEType, resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename=release-notes.md`, resp.Header.Get("Content-Disposition"))

	resp, _ = do(t, http.MethodGet, f.url+got.URL, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Zero(t, f.downloads.Len())
}

func TestExportErrors(t *testing.T) {
	f := newFixture(t, "# Doc", defaultStrategies())

	tests := []struct {
		format  string
		code    int
		message string
	}{
		{"rtf", http.StatusBadRequest, "unsupported export format"},
		{"pdf", http.StatusServiceUnavailable, "not ready yet"},
		{"png", http.StatusInternalServerError, "png export failed"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			resp, body := do(t, http.MethodPost, f.url+"/api/export/"+tt.format, "")
			assert.Equal(t, tt.code, resp.StatusCode)
			var got map[string]string
			decode(t, body, &got)
			assert.Contains(t, got["message"], tt.message)
		})
	}

	_, body := do(t, http.MethodGet, f.url+"/api/status", "")
	var status statusResponse
	decode(t, body, &status)
	assert.False(t, status.Exporting)
	assert.Contains(t, status.Notice, "png export failed")
	assert.Contains(t, status.Formats, core.FormatDOCX)
	assert.NotContains(t, status.Formats, core.FormatODT)
}

func TestExportWhileBusy(t *testing.T) {
	started, release := make(chan struct{}), make(chan struct{})
	strategies := defaultStrategies()
	strategies[core.FormatHTML] = strategyFunc(func(context.Context, core.Snapshot) (*core.Artifact, error) {
		close(started)
		<-release
		return &core.Artifact{Data: []byte("<html>"), Filename: "document.html"}, nil
	})
	f := newFixture(t, "", strategies)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		resp, _ := do(t, http.MethodPost, f.url+"/api/export/html", "")
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	}()
	<-started

	resp, body := do(t, http.MethodPost, f.url+"/api/export/md", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body, "already running")

	_, body = do(t, http.MethodGet, f.url+"/api/status", "")
	assert.Contains(t, body, `"exporting":true`)

	close(release)
	wg.Wait()
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, "", defaultStrategies())
	do(t, http.MethodPost, f.url+"/api/export/md", "")

	_, body := do(t, http.MethodGet, f.url+"/metrics", "")
	assert.Contains(t, body, `markify_exports_total{format="md",outcome="success"} 1`)
}

func TestCrossOriginRejected(t *testing.T) {
	allowed := "http://127.0.0.1:8080"
	preflight := map[string]string{
		"Access-Control-Request-Method":  http.MethodPut,
		"Access-Control-Request-Headers": "Content-Type",
	}

	t.Run("no origins configured", func(t *testing.T) {
		f := newFixture(t, "# Hi", defaultStrategies())

		resp := doWithOrigin(t, http.MethodGet, f.url+"/api/markdown", "https://evil.example", nil)
		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))

		resp = doWithOrigin(t, http.MethodOptions, f.url+"/api/markdown", "https://evil.example", preflight)
		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Methods"))
	})

	t.Run("listen origin only", func(t *testing.T) {
		f := newFixture(t, "# Hi", defaultStrategies(), func(c *Config) {
			c.Origins = []string{allowed}
		})

		resp := doWithOrigin(t, http.MethodOptions, f.url+"/api/markdown", "https://evil.example", preflight)
		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))

		resp = doWithOrigin(t, http.MethodGet, f.url+"/api/markdown", "https://evil.example", nil)
		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))

		resp = doWithOrigin(t, http.MethodOptions, f.url+"/api/markdown", allowed, preflight)
		assert.Equal(t, allowed, resp.Header.Get("Access-Control-Allow-Origin"))
	})
}

func TestListenOrigins(t *testing.T) {
	assert.Equal(t, []string{"http://localhost:8080", "http://127.0.0.1:8080"}, ListenOrigins("127.0.0.1:8080"))
	assert.Equal(t, []string{"http://localhost:9000", "http://127.0.0.1:9000"}, ListenOrigins(":9000"))
	assert.Equal(t, []string{"http://docs.internal:80"}, ListenOrigins("docs.internal:80"))
	assert.Equal(t, []string{"http://[::1]:8080"}, ListenOrigins("[::1]:8080"))
}

func TestStyledColorsCannotInjectScript(t *testing.T) {
	f := newFixture(t, "# Hi", defaultStrategies())

	resp, _ := do(t, http.MethodPut, f.url+"/api/styles", `{"textColor":"red}</style><script>alert(1)</script><style>"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, page := do(t, http.MethodGet, f.url+"/", "")
	assert.NotContains(t, page, "<script>alert(1)")
	assert.NotContains(t, page, "alert(1)</script>")
}

func TestStatusCounts(t *testing.T) {
	f := newFixture(t, "# Hello\n\nsome words here", defaultStrategies())

	_, body := do(t, http.MethodGet, f.url+"/api/status", "")
	assert.Contains(t, body, `"words":5`)
	assert.Contains(t, body, `"lines":3`)

	do(t, http.MethodPut, f.url+"/api/markdown", "")
	_, body = do(t, http.MethodGet, f.url+"/api/status", "")
	var status statusResponse
	decode(t, body, &status)
	assert.Equal(t, 0, status.Words)
	assert.Equal(t, 1, status.Lines)
}
