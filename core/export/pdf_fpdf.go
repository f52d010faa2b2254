package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/jung-kurt/gofpdf"
	"github.com/spf13/afero"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gaurav-prasanna/markify/core"
	"github.com/gaurav-prasanna/markify/core/container"
	"github.com/gaurav-prasanna/markify/core/style"
)

const (
	mmPerPt      = 25.4 / 72
	listIndentMM = 6.0
	quoteIndent  = 5.0
)

var (
	codeBackground = style.RGB{R: 0x1e, G: 0x29, B: 0x3b}
	codeForeground = style.RGB{R: 0xf8, G: 0xfa, B: 0xfc}
	ruleColor      = style.RGB{R: 0xe2, G: 0xe8, B: 0xf0}
	headerFill     = style.RGB{R: 0xf8, G: 0xfa, B: 0xfc}
)

// FPDFEngine lays the flattened document out with gofpdf. It needs no
// external program.
//
// Without a font directory the built-in PDF fonts are used, which only
// cover cp1252. With one, the same TTF files the raster engine reads are
// embedded as UTF-8 fonts.
type FPDFEngine struct {
	// Fetcher loads images. An image that cannot be loaded fails the export.
	Fetcher core.Fetcher
	FontDir string
	Fs      afero.Fs
}

// NewFPDFEngine creates an FPDFEngine loading images through f and fonts
// from fontDir on the host filesystem.
func NewFPDFEngine(f core.Fetcher, fontDir string) *FPDFEngine {
	return &FPDFEngine{Fetcher: f, FontDir: fontDir, Fs: afero.NewOsFs()}
}

// Available fails when a configured font directory does not exist.
func (e *FPDFEngine) Available() error {
	return fontDirAvailable(e.fs(), e.FontDir)
}

func (e *FPDFEngine) fs() afero.Fs {
	if e.Fs == nil {
		return afero.NewOsFs()
	}
	return e.Fs
}

// PDF renders doc on pages of its physical size.
func (e *FPDFEngine) PDF(ctx context.Context, doc *container.Document, title string) ([]byte, error) {
	body, err := doc.DOM()
	if err != nil {
		return nil, err
	}
	cfg := doc.Style
	page := doc.Geometry.Page
	margin := float64(cfg.Margin)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: page.Width, Ht: page.Height},
	})
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(title, true)
	pdf.SetCreator("Markify", true)

	bg := style.ColorOr(cfg.BackgroundColor, defaultBackground)
	pdf.SetHeaderFunc(func() {
		pdf.SetFillColor(int(bg.R), int(bg.G), int(bg.B))
		pdf.Rect(0, 0, page.Width, page.Height, "F")
	})

	w := &pdfWriter{
		ctx:     ctx,
		pdf:     pdf,
		tr:      pdf.UnicodeTranslatorFromDescriptor(""),
		fetcher: e.Fetcher,
		cfg:     cfg,
		geo:     doc.Geometry,
		margin:  margin,
		text:    style.ColorOr(cfg.TextColor, defaultText),
		accent:  style.ColorOr(cfg.AccentColor, defaultAccent),
		family:  coreFont(cfg.FontFamily),
		heading: coreFont(cfg.HeadingFontFamily),
		mono:    coreFont(style.FontJetBrainsMono),
	}
	if e.FontDir != "" {
		if err := e.embedFonts(pdf, cfg); err != nil {
			return nil, err
		}
		w.tr = basicPlane
		w.family, w.heading, w.mono = utf8Body, utf8Heading, utf8Mono
	}
	pdf.AddPage()
	for i, b := range Flatten(body) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := w.block(i, b); err != nil {
			return nil, err
		}
		if pdf.Err() {
			return nil, fmt.Errorf("laying out block %d: %w", i, pdf.Error())
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Families registered for the UTF-8 fonts.
const (
	utf8Body    = "markify-body"
	utf8Heading = "markify-heading"
	utf8Mono    = "markify-mono"
)

// pdfStyles pairs each gofpdf style with the font file variants tried for
// it, best first.
var pdfStyles = []struct {
	style    string
	variants []string
}{
	{"", []string{"Regular", "Bold"}},
	{"B", []string{"Bold", "Regular"}},
	{"I", []string{"Italic", "Regular"}},
	{"BI", []string{"BoldItalic", "Bold", "Italic", "Regular"}},
}

// builtinTTF is used for system-ui, which has no font files.
var builtinTTF = map[string][]byte{
	"Regular":    goregular.TTF,
	"Bold":       gobold.TTF,
	"Italic":     goitalic.TTF,
	"BoldItalic": gobolditalic.TTF,
}

// embedFonts registers the body, heading and monospace families of cfg in
// every style the writer sets.
func (e *FPDFEngine) embedFonts(pdf *gofpdf.Fpdf, cfg style.Config) error {
	for _, f := range []struct {
		name   string
		family style.FontFamily
	}{
		{utf8Body, cfg.FontFamily},
		{utf8Heading, cfg.HeadingFontFamily},
		{utf8Mono, style.FontJetBrainsMono},
	} {
		if err := e.embedFamily(pdf, f.name, f.family); err != nil {
			return err
		}
	}
	if pdf.Err() {
		return fmt.Errorf("embedding fonts: %w", pdf.Error())
	}
	return nil
}

func (e *FPDFEngine) embedFamily(pdf *gofpdf.Fpdf, name string, family style.FontFamily) error {
	files := make(map[string][]byte)
	load := func(variant string) []byte {
		if data, ok := files[variant]; ok {
			return data
		}
		var data []byte
		if family == style.FontSystemUI {
			data = builtinTTF[variant]
		} else if b, err := readFontFile(e.fs(), e.FontDir, family, variant); err == nil {
			data = b
		}
		files[variant] = data
		return data
	}
	for _, st := range pdfStyles {
		var data []byte
		for _, v := range st.variants {
			if data = load(v); data != nil {
				break
			}
		}
		if data == nil {
			return fmt.Errorf("loading font %s: no regular or bold face in %s", fontFile(family, "Regular"), e.FontDir)
		}
		pdf.AddUTF8FontFromBytes(name, st.style, data)
	}
	return nil
}

// basicPlane replaces runes outside the Basic Multilingual Plane, which
// gofpdf cannot index in a UTF-8 font.
func basicPlane(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 0xFFFF {
			return unicode.ReplacementChar
		}
		return r
	}, s)
}

// coreFont maps a configured family to the closest built-in PDF font.
func coreFont(f style.FontFamily) string {
	switch f {
	case style.FontLora:
		return "Times"
	case style.FontJetBrainsMono:
		return "Courier"
	default:
		return "Helvetica"
	}
}

type pdfWriter struct {
	ctx     context.Context
	pdf     *gofpdf.Fpdf
	tr      func(string) string
	fetcher core.Fetcher

	cfg    style.Config
	geo    container.Geometry
	margin float64

	text, accent          style.RGB
	family, heading, mono string
}

func (w *pdfWriter) basePt() float64 { return float64(w.geo.FontSize) * pxToPt }

// lineMM is the line height for a font of pt points.
func (w *pdfWriter) lineMM(pt float64) float64 { return pt * w.cfg.LineHeight * mmPerPt }

func (w *pdfWriter) gapMM() float64 { return w.cfg.ParagraphSpacing * w.basePt() * mmPerPt }

func (w *pdfWriter) contentWidth() float64 {
	pw, _ := w.pdf.GetPageSize()
	left, _, right, _ := w.pdf.GetMargins()
	return pw - left - right
}

func (w *pdfWriter) setColor(c style.RGB) {
	w.pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
}

func (w *pdfWriter) block(i int, b Block) error {
	if b.Quote {
		w.pdf.SetLeftMargin(w.margin + quoteIndent)
		w.pdf.SetX(w.margin + quoteIndent)
		defer w.quoteBar(w.pdf.PageNo(), w.pdf.GetY())
	}

	switch b.Kind {
	case BlockHeading:
		pt := float64(w.geo.Headings[b.Level-1]) * pxToPt
		if i > 0 {
			w.pdf.Ln(pt * 0.6 * mmPerPt)
		}
		w.runs(b.Runs, w.heading, pt, "B")
		w.pdf.Ln(pt * 0.4 * mmPerPt)
	case BlockParagraph:
		w.runs(b.Runs, w.family, w.basePt(), "")
		w.pdf.Ln(w.gapMM())
	case BlockListItem:
		left, _, _, _ := w.pdf.GetMargins()
		indent := left + listIndentMM*float64(b.Level+1)
		w.pdf.SetLeftMargin(indent)
		w.pdf.SetX(indent - listIndentMM)
		w.pdf.SetFont(w.family, "", w.basePt())
		w.setColor(w.text)
		w.pdf.CellFormat(listIndentMM, w.lineMM(w.basePt()), w.tr(b.Marker), "", 0, "L", false, 0, "")
		w.runs(b.Runs, w.family, w.basePt(), "")
		w.pdf.SetLeftMargin(left)
		w.pdf.Ln(w.lineMM(w.basePt()) * 0.25)
	case BlockCode:
		pt := w.basePt() * 0.85
		w.pdf.SetFont(w.mono, "", pt)
		w.pdf.SetFillColor(int(codeBackground.R), int(codeBackground.G), int(codeBackground.B))
		w.setColor(codeForeground)
		w.pdf.SetCellMargin(3)
		w.pdf.MultiCell(0, w.lineMM(pt), w.tr(b.Code), "", "L", true)
		w.pdf.SetCellMargin(0)
		w.pdf.Ln(w.gapMM())
	case BlockRule:
		y := w.pdf.GetY() + 2
		left, _, _, _ := w.pdf.GetMargins()
		w.pdf.SetDrawColor(int(ruleColor.R), int(ruleColor.G), int(ruleColor.B))
		w.pdf.Line(left, y, left+w.contentWidth(), y)
		w.pdf.SetY(y + 2 + w.gapMM())
	case BlockTable:
		w.table(b)
	case BlockImage:
		return w.image(b)
	}
	return nil
}

func (w *pdfWriter) quoteBar(page int, top float64) {
	if w.pdf.PageNo() == page {
		w.pdf.SetDrawColor(int(w.accent.R), int(w.accent.G), int(w.accent.B))
		w.pdf.SetLineWidth(1)
		w.pdf.Line(w.margin+1, top, w.margin+1, w.pdf.GetY())
		w.pdf.SetLineWidth(0.2)
	}
	w.pdf.SetLeftMargin(w.margin)
	w.pdf.SetX(w.margin)
}

// runs writes flowing text, ending the line after the last run.
func (w *pdfWriter) runs(runs []Run, family string, pt float64, base string) {
	lh := w.lineMM(pt)
	for _, r := range runs {
		fam, size, st := family, pt, base
		if r.Code {
			fam, size = w.mono, pt*0.85
		}
		if r.Bold && !strings.Contains(st, "B") {
			st += "B"
		}
		if r.Italic {
			st += "I"
		}
		if r.Strike {
			st += "S"
		}
		color := w.text
		if r.Link != "" {
			st += "U"
			color = w.accent
		}
		w.pdf.SetFont(fam, st, size)
		w.setColor(color)
		if r.Link != "" && !strings.HasPrefix(r.Link, "#") {
			w.pdf.WriteLinkString(lh, w.tr(r.Text), r.Link)
		} else {
			w.pdf.Write(lh, w.tr(r.Text))
		}
	}
	w.pdf.Ln(lh)
}

func (w *pdfWriter) table(b Block) {
	cols := 0
	for _, row := range b.Rows {
		cols = max(cols, len(row))
	}
	if cols == 0 {
		return
	}
	pt := w.basePt()
	lh := w.lineMM(pt)
	colW := w.contentWidth() / float64(cols)
	w.pdf.SetDrawColor(int(ruleColor.R), int(ruleColor.G), int(ruleColor.B))
	w.pdf.SetFillColor(int(headerFill.R), int(headerFill.G), int(headerFill.B))
	w.pdf.SetCellMargin(1.5)
	for i, row := range b.Rows {
		header := b.Header && i == 0
		st := ""
		if header {
			st = "B"
		}
		w.pdf.SetFont(w.family, st, pt)
		w.setColor(w.text)
		for c := 0; c < cols; c++ {
			cell := ""
			if c < len(row) {
				cell = w.fit(w.tr(row[c]), colW-3)
			}
			w.pdf.CellFormat(colW, lh, cell, "1", 0, "L", header, 0, "")
		}
		w.pdf.Ln(lh)
	}
	w.pdf.SetCellMargin(0)
	w.pdf.Ln(w.gapMM())
}

// fit truncates s to width with an ellipsis.
func (w *pdfWriter) fit(s string, width float64) string {
	if w.pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && w.pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

func (w *pdfWriter) image(b Block) error {
	if w.fetcher == nil {
		return fmt.Errorf("loading image %s: no fetcher configured", b.Src)
	}
	res, err := w.fetcher.Fetch(w.ctx, b.Src)
	if err != nil {
		return fmt.Errorf("loading image %s: %w", b.Src, err)
	}
	typ := imageType(res.ContentType, b.Src)
	if typ == "" {
		return fmt.Errorf("loading image %s: unsupported type %q", b.Src, res.ContentType)
	}
	opts := gofpdf.ImageOptions{ImageType: typ, ReadDpi: true}
	info := w.pdf.RegisterImageOptionsReader(b.Src, opts, bytes.NewReader(res.Body))
	if w.pdf.Err() {
		return fmt.Errorf("decoding image %s: %w", b.Src, w.pdf.Error())
	}
	if info == nil {
		return errors.New("decoding image " + b.Src)
	}
	iw, ih := info.Extent()
	if cw := w.contentWidth(); iw > cw {
		ih *= cw / iw
		iw = cw
	}
	w.pdf.ImageOptions(b.Src, w.pdf.GetX(), w.pdf.GetY(), iw, ih, true, opts, 0, "")
	w.pdf.Ln(w.gapMM())
	return nil
}

// imageType returns the gofpdf image type for a response.
func imageType(contentType, src string) string {
	switch {
	case strings.HasPrefix(contentType, "image/png"):
		return "PNG"
	case strings.HasPrefix(contentType, "image/jpeg"):
		return "JPG"
	case strings.HasPrefix(contentType, "image/gif"):
		return "GIF"
	}
	switch strings.ToLower(path.Ext(strings.SplitN(src, "?", 2)[0])) {
	case ".png":
		return "PNG"
	case ".jpg", ".jpeg":
		return "JPG"
	case ".gif":
		return "GIF"
	}
	return ""
}
