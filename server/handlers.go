package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gaurav-prasanna/markify/core"
	"github.com/gaurav-prasanna/markify/core/container"
	"github.com/gaurav-prasanna/markify/core/export"
	"github.com/gaurav-prasanna/markify/core/session"
	"github.com/gaurav-prasanna/markify/core/style"
)

func (s *Server) returnData(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("Couldn't send response", slog.Any("err", err))
	}
}

func (s *Server) errorData(w http.ResponseWriter, code int, msg string) {
	s.returnData(w, code, map[string]string{"message": msg})
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
}

func (s *Server) handleGetMarkdown(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", export.MarkdownMIMEType)
	io.WriteString(w, s.session.Markdown())
}

func (s *Server) handlePutMarkdown(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.errorData(w, http.StatusBadRequest, "Couldn't read request body")
		return
	}
	s.session.Binding().Type(string(body))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePutRichText(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.errorData(w, http.StatusBadRequest, "Couldn't read request body")
		return
	}
	md, err := s.session.Binding().EditRich(string(body))
	if err != nil {
		s.logger.Warn("Rich text edit rejected", slog.Any("err", err))
		s.errorData(w, http.StatusBadRequest, "Couldn't convert the edited content to Markdown")
		return
	}
	s.returnData(w, http.StatusOK, map[string]string{"markdown": md})
}

func (s *Server) handleGetStyles(w http.ResponseWriter, r *http.Request) {
	s.returnData(w, http.StatusOK, s.session.Style())
}

func (s *Server) handlePutStyles(w http.ResponseWriter, r *http.Request) {
	cfg := style.Default()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		s.errorData(w, http.StatusBadRequest, "Invalid style: "+err.Error())
		return
	}
	if err := s.session.SetStyle(cfg); err != nil {
		s.errorData(w, http.StatusBadRequest, err.Error())
		return
	}
	s.returnData(w, http.StatusOK, cfg)
}

type previewResponse struct {
	HTML     string             `json:"html"`
	CSS      string             `json:"css"`
	FontURL  string             `json:"fontUrl,omitempty"`
	Geometry container.Geometry `json:"geometry"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	doc, err := s.session.Preview(isMobile(r))
	if err != nil {
		s.logger.Error("Preview failed", slog.Any("err", err))
		s.errorData(w, http.StatusInternalServerError, "Couldn't render the document")
		return
	}
	s.returnData(w, http.StatusOK, previewResponse{
		HTML:     doc.Inner,
		CSS:      doc.CSS(),
		FontURL:  container.FontURL(doc.Style),
		Geometry: doc.Geometry,
	})
}

type statusResponse struct {
	Exporting bool          `json:"exporting"`
	Notice    string        `json:"notice,omitempty"`
	Formats   []core.Format `json:"formats"`
	session.Stats
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.returnData(w, http.StatusOK, statusResponse{
		Exporting: s.coord.Exporting(),
		Notice:    s.notices.Last(),
		Formats:   s.formats(),
		Stats:     s.session.Stats(),
	})
}

func (s *Server) formats() []core.Format {
	var formats []core.Format
	for _, f := range core.Formats() {
		if s.coord.Supports(f) {
			formats = append(formats, f)
		}
	}
	return formats
}

type exportResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int    `json:"size"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := core.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.errorData(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := s.session.Snapshot()
	if err != nil {
		s.logger.Error("Snapshot failed", slog.String("format", string(format)), slog.Any("err", err))
		s.errorData(w, http.StatusInternalServerError, export.Message(err))
		return
	}

	// Exports run to completion even if the client goes away.
	url, err := s.coord.Export(context.WithoutCancel(r.Context()), format, snap)
	switch {
	case errors.Is(err, export.ErrBusy):
		s.errorData(w, http.StatusConflict, export.Message(err))
		return
	case errors.Is(err, export.ErrCapabilityUnavailable):
		s.errorData(w, http.StatusServiceUnavailable, export.Message(err))
		return
	case err != nil:
		s.errorData(w, http.StatusInternalServerError, export.Message(err))
		return
	}

	resp := exportResponse{URL: url}
	if a, ok := s.downloads.Stat(url); ok {
		resp.Filename = a.Filename
		resp.Size = len(a.Data)
	}
	s.returnData(w, http.StatusCreated, resp)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	a, ok := s.downloads.Take(chi.URLParam(r, "id"))
	if !ok {
		s.errorData(w, http.StatusNotFound, "This download has expired. Export the document again.")
		return
	}
	w.Header().Set("Content-Type", a.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
	w.Header().Set("Cache-Control", "no-store")
	w.Write(a.Data)
}

func isMobile(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("mobile"))
	return v
}
