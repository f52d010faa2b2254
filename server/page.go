package server

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gaurav-prasanna/markify/core"
	"github.com/gaurav-prasanna/markify/core/container"
	"github.com/gaurav-prasanna/markify/core/export"
	"github.com/gaurav-prasanna/markify/core/session"
)

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} · Markify</title>
{{- if .FontURL}}
<link rel="stylesheet" href="{{.FontURL}}">
{{- end}}
<style>
body { margin: 0; background: #e5e7eb; font-family: system-ui, sans-serif; }
.toolbar { display: flex; gap: 8px; padding: 8px 16px; background: #111827; }
.toolbar button { padding: 4px 12px; }
.toolbar .notice { color: #f9fafb; margin-left: auto; }
.footer { display: flex; gap: 16px; padding: 4px 16px; font-size: 10px; color: #6b7280; }
.page { display: flex; justify-content: center; padding: {{if .Mobile}}0{{else}}24px{{end}}; }
</style>
</head>
<body>
<div class="toolbar">
{{- range .Formats}}
<button type="button" data-format="{{.}}">{{.}}</button>
{{- end}}
<span class="notice" id="notice"></span>
</div>
<div class="page">{{.Fragment}}</div>
<div class="footer"><span>Words: {{.Stats.Words}}</span><span>Lines: {{.Stats.Lines}}</span></div>
<script>
document.querySelectorAll("[data-format]").forEach(function (b) {
  b.addEventListener("click", async function () {
    var buttons = document.querySelectorAll("[data-format]");
    buttons.forEach(function (x) { x.disabled = true; });
    try {
      var res = await fetch("/api/export/" + b.dataset.format, { method: "POST" });
      var body = await res.json();
      if (res.ok) { window.location = body.url; }
      else { document.getElementById("notice").textContent = body.message; }
    } finally {
      buttons.forEach(function (x) { x.disabled = false; });
    }
  });
});
</script>
</body>
</html>
`))

type pageData struct {
	Title    string
	FontURL  string
	Mobile   bool
	Formats  []core.Format
	Fragment template.HTML
	Stats    session.Stats
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	doc, err := s.session.Preview(isMobile(r))
	if err != nil {
		s.logger.Error("Preview failed", slog.Any("err", err))
		http.Error(w, "Couldn't render the document", http.StatusInternalServerError)
		return
	}
	fragment, err := doc.Fragment()
	if err != nil {
		s.logger.Error("Preview failed", slog.Any("err", err))
		http.Error(w, "Couldn't render the document", http.StatusInternalServerError)
		return
	}

	title := export.Title(s.session.Markdown())
	if title == "" {
		title = "Untitled"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = pageTmpl.Execute(w, pageData{
		Title:    title,
		FontURL:  container.FontURL(doc.Style),
		Mobile:   doc.Geometry.Mobile,
		Formats:  s.formats(),
		Fragment: template.HTML(fragment),
		Stats:    s.session.Stats(),
	})
	if err != nil {
		s.logger.Warn("Couldn't send page", slog.Any("err", err))
	}
}
