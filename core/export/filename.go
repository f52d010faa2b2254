package export

import (
	"strings"

	"github.com/gosimple/slug"

	"github.com/gaurav-prasanna/markify/core"
)

const fallbackName = "document"

// Extension returns the file extension for an artifact of format f.
func Extension(f core.Format) string {
	switch f {
	case core.FormatPDF:
		return ".pdf"
	case core.FormatDOCX, core.FormatODT:
		return ".docx"
	case core.FormatPNG:
		return ".png"
	case core.FormatHTML:
		return ".html"
	default:
		return ".md"
	}
}

// Title returns the text of the first level-1 ATX heading outside fenced
// code, or "" when there is none.
func Title(markdown string) string {
	fence := ""
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimLeft(line, " ")
		if fence != "" {
			if strings.HasPrefix(trimmed, fence) {
				fence = ""
			}
			continue
		}
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			fence = trimmed[:3]
			continue
		}
		if len(line)-len(trimmed) > 3 {
			continue
		}
		if trimmed == "#" || strings.HasPrefix(trimmed, "# ") || strings.HasPrefix(trimmed, "#\t") {
			title := strings.TrimSpace(trimmed[1:])
			title = strings.TrimSpace(strings.TrimRight(title, "#"))
			return title
		}
	}
	return ""
}

// Filename suggests a download name for markdown exported as f.
func Filename(markdown string, f core.Format) string {
	name := slug.Make(Title(markdown))
	if name == "" {
		name = fallbackName
	}
	return name + Extension(f)
}
