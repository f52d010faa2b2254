// Package docx packages a flat list of paragraphs and headings into a
// WordprocessingML (.docx) file.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"
)

// MIMEType is the media type of a .docx package.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Paragraph is one body paragraph. Heading is 0 for plain text and 1-6 for a
// heading of that level. An empty Text yields an empty paragraph.
type Paragraph struct {
	Heading int
	Text    string
}

// Options carries document-wide appearance.
type Options struct {
	Title string

	BodyFont    string
	HeadingFont string
	// Sizes in points.
	BodySize     float64
	HeadingSizes [6]float64
	// Color is a hex colour without the leading '#'.
	Color string

	LineHeight       float64 // multiple of single spacing
	ParagraphSpacing float64 // em of the body size, after each paragraph

	// Page geometry in millimetres.
	PageWidth, PageHeight, Margin float64

	Created time.Time
}

// Package renders paragraphs into a .docx archive.
func Package(paragraphs []Paragraph, opts Options) ([]byte, error) {
	for i, p := range paragraphs {
		if p.Heading < 0 || p.Heading > 6 {
			return nil, fmt.Errorf("paragraph %d: invalid heading level %d", i, p.Heading)
		}
	}
	if opts.Created.IsZero() {
		opts.Created = time.Now().UTC()
	}

	parts := []struct {
		name string
		tmpl *template.Template
		data any
	}{
		{"[Content_Types].xml", contentTypesTmpl, nil},
		{"_rels/.rels", rootRelsTmpl, nil},
		{"docProps/core.xml", coreTmpl, opts},
		{"word/_rels/document.xml.rels", documentRelsTmpl, nil},
		{"word/styles.xml", stylesTmpl, newStylesData(opts)},
		{"word/document.xml", documentTmpl, newDocumentData(paragraphs, opts)},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", part.name, err)
		}
		if err := part.tmpl.Execute(w, part.data); err != nil {
			return nil, fmt.Errorf("writing %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing package: %w", err)
	}
	return buf.Bytes(), nil
}

// twips converts millimetres to twentieths of a point.
func twips(mm float64) int {
	return int(math.Round(mm / 25.4 * 1440))
}

// halfPoints converts points to the half-point unit used for font sizes.
func halfPoints(pt float64) int {
	return int(math.Round(pt * 2))
}

type paragraphData struct {
	Style string
	Text  string
}

type documentData struct {
	Paragraphs []paragraphData
	PageW      int
	PageH      int
	Margin     int
}

func newDocumentData(paragraphs []Paragraph, opts Options) documentData {
	data := documentData{
		PageW:  twips(opts.PageWidth),
		PageH:  twips(opts.PageHeight),
		Margin: twips(opts.Margin),
	}
	for _, p := range paragraphs {
		pd := paragraphData{Text: p.Text}
		if p.Heading > 0 {
			pd.Style = fmt.Sprintf("Heading%d", p.Heading)
		}
		data.Paragraphs = append(data.Paragraphs, pd)
	}
	return data
}

type headingStyle struct {
	Level int
	Size  int
}

type stylesData struct {
	BodyFont    string
	HeadingFont string
	BodySize    int
	Color       string
	Line        int
	After       int
	Headings    []headingStyle
}

func newStylesData(opts Options) stylesData {
	data := stylesData{
		BodyFont:    opts.BodyFont,
		HeadingFont: opts.HeadingFont,
		BodySize:    halfPoints(opts.BodySize),
		Color:       strings.TrimPrefix(opts.Color, "#"),
		Line:        int(math.Round(240 * opts.LineHeight)),
		After:       int(math.Round(opts.ParagraphSpacing * opts.BodySize * 20)),
	}
	for i, size := range opts.HeadingSizes {
		data.Headings = append(data.Headings, headingStyle{Level: i + 1, Size: halfPoints(size)})
	}
	return data
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

var funcs = template.FuncMap{
	"esc":     escape,
	"outline": func(level int) int { return level - 1 },
}

func mustParse(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).Parse(text))
}

var contentTypesTmpl = mustParse("content-types", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>
</Types>`)

var rootRelsTmpl = mustParse("root-rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>
</Relationships>`)

var documentRelsTmpl = mustParse("document-rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`)

var coreTmpl = mustParse("core", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
<dc:title>{{esc .Title}}</dc:title>
<dc:creator>Markify</dc:creator>
<dcterms:created xsi:type="dcterms:W3CDTF">{{.Created.Format "2006-01-02T15:04:05Z07:00"}}</dcterms:created>
</cp:coreProperties>`)

var stylesTmpl = mustParse("styles", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:docDefaults>
<w:rPrDefault><w:rPr><w:rFonts w:ascii="{{esc .BodyFont}}" w:hAnsi="{{esc .BodyFont}}" w:cs="{{esc .BodyFont}}"/><w:color w:val="{{esc .Color}}"/><w:sz w:val="{{.BodySize}}"/><w:szCs w:val="{{.BodySize}}"/></w:rPr></w:rPrDefault>
<w:pPrDefault><w:pPr><w:spacing w:after="{{.After}}" w:line="{{.Line}}" w:lineRule="auto"/></w:pPr></w:pPrDefault>
</w:docDefaults>
<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:qFormat/></w:style>
{{- range .Headings}}
<w:style w:type="paragraph" w:styleId="Heading{{.Level}}"><w:name w:val="heading {{.Level}}"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/><w:pPr><w:keepNext/><w:outlineLvl w:val="{{.Level | outline}}"/></w:pPr><w:rPr><w:rFonts w:ascii="{{esc $.HeadingFont}}" w:hAnsi="{{esc $.HeadingFont}}" w:cs="{{esc $.HeadingFont}}"/><w:b/><w:bCs/><w:sz w:val="{{.Size}}"/><w:szCs w:val="{{.Size}}"/></w:rPr></w:style>
{{- end}}
</w:styles>`)

var documentTmpl = mustParse("document", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
{{- range .Paragraphs}}
{{- if and (eq .Text "") (eq .Style "")}}
<w:p/>
{{- else}}
<w:p>{{if .Style}}<w:pPr><w:pStyle w:val="{{.Style}}"/></w:pPr>{{end}}<w:r><w:t xml:space="preserve">{{esc .Text}}</w:t></w:r></w:p>
{{- end}}
{{- end}}
<w:sectPr><w:pgSz w:w="{{.PageW}}" w:h="{{.PageH}}"/><w:pgMar w:top="{{.Margin}}" w:right="{{.Margin}}" w:bottom="{{.Margin}}" w:left="{{.Margin}}" w:header="708" w:footer="708" w:gutter="0"/></w:sectPr>
</w:body>
</w:document>`)
