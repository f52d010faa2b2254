package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"
	"sync"
	"unicode"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/spf13/afero"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	_ "golang.org/x/image/webp"

	"github.com/gaurav-prasanna/markify/core"
	"github.com/gaurav-prasanna/markify/core/container"
	"github.com/gaurav-prasanna/markify/core/style"
)

const cssDPI = 96

// Canvas limits. A page beyond them is reported as a conversion failure
// instead of being allocated.
const (
	maxCanvasSide   = 16384
	maxCanvasPixels = 1 << 28
)

// ErrCanvasTooLarge is returned when the page does not fit the raster limits.
var ErrCanvasTooLarge = errors.New("canvas exceeds the raster size limit")

func checkCanvas(w, h int) error {
	if w <= 0 || h <= 0 || w > maxCanvasSide || h > maxCanvasSide || w*h > maxCanvasPixels {
		return fmt.Errorf("%w: %dx%d px", ErrCanvasTooLarge, w, h)
	}
	return nil
}

// RasterEngine draws the flattened document with freetype. Fonts come from
// FontDir when set (files named like "Inter-Regular.ttf", "Lora-Bold.ttf",
// "JetBrainsMono-Regular.ttf") and from the embedded Go fonts otherwise.
type RasterEngine struct {
	Fetcher core.Fetcher
	FontDir string
	Fs      afero.Fs
}

// NewRasterEngine creates a RasterEngine reading fonts from fontDir on the
// host filesystem.
func NewRasterEngine(f core.Fetcher, fontDir string) *RasterEngine {
	return &RasterEngine{Fetcher: f, FontDir: fontDir, Fs: afero.NewOsFs()}
}

// Available fails when a configured font directory does not exist.
func (e *RasterEngine) Available() error {
	return fontDirAvailable(e.fs(), e.FontDir)
}

func (e *RasterEngine) fs() afero.Fs {
	if e.Fs == nil {
		return afero.NewOsFs()
	}
	return e.Fs
}

// PNG rasterizes doc at opts.Scale pixels per CSS pixel.
func (e *RasterEngine) PNG(ctx context.Context, doc *container.Document, opts RasterOptions) ([]byte, error) {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	body, err := doc.DOM()
	if err != nil {
		return nil, err
	}
	fonts, err := e.fontSet(doc.Style, opts.SkipFonts)
	if err != nil {
		return nil, err
	}

	r := newRaster(ctx, doc, fonts, opts, e.Fetcher)
	if err := checkCanvas(r.width, r.mm(doc.Geometry.Page.Height)); err != nil {
		return nil, err
	}
	blocks := Flatten(body)

	// The first pass only measures, so the canvas can be sized to fit.
	if err := r.layout(blocks); err != nil {
		return nil, err
	}
	height := max(r.mm(doc.Geometry.Page.Height), r.y+r.pad)
	if err := checkCanvas(r.width, height); err != nil {
		return nil, err
	}
	r.img = image.NewRGBA(image.Rect(0, 0, r.width, height))
	draw.Draw(r.img, r.img.Bounds(), image.NewUniform(r.bg), image.Point{}, draw.Src)
	r.dc.SetDst(r.img)
	r.dc.SetClip(r.img.Bounds())
	if err := r.layout(blocks); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, r.img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

type fontSet struct {
	regular, bold, italic, boldItalic *truetype.Font
	heading                           *truetype.Font
	mono                              *truetype.Font
}

var builtinFonts = sync.OnceValues(func() (*fontSet, error) {
	fs := &fontSet{}
	for _, f := range []struct {
		dst **truetype.Font
		ttf []byte
	}{
		{&fs.regular, goregular.TTF},
		{&fs.bold, gobold.TTF},
		{&fs.italic, goitalic.TTF},
		{&fs.boldItalic, gobolditalic.TTF},
		{&fs.mono, gomono.TTF},
	} {
		parsed, err := freetype.ParseFont(f.ttf)
		if err != nil {
			return nil, fmt.Errorf("parsing built-in font: %w", err)
		}
		*f.dst = parsed
	}
	fs.heading = fs.bold
	return fs, nil
})

// fontSet resolves the faces for cfg. External files are only consulted
// when a font directory is configured and skip is false.
func (e *RasterEngine) fontSet(cfg style.Config, skip bool) (*fontSet, error) {
	builtin, err := builtinFonts()
	if err != nil {
		return nil, err
	}
	if skip || e.FontDir == "" {
		return builtin, nil
	}
	fs := *builtin
	if cfg.FontFamily != style.FontSystemUI {
		if fs.regular, err = e.loadFont(cfg.FontFamily, "Regular"); err != nil {
			return nil, err
		}
		if fs.bold, err = e.loadFont(cfg.FontFamily, "Bold"); err != nil {
			return nil, err
		}
		if f, err := e.loadFont(cfg.FontFamily, "Italic"); err == nil {
			fs.italic = f
		}
	}
	fs.heading = fs.bold
	if cfg.HeadingFontFamily != style.FontSystemUI && cfg.HeadingFontFamily != cfg.FontFamily {
		if fs.heading, err = e.loadFont(cfg.HeadingFontFamily, "Bold"); err != nil {
			return nil, err
		}
	}
	if fs.mono, err = e.loadFont(style.FontJetBrainsMono, "Regular"); err != nil {
		return nil, err
	}
	return &fs, nil
}

func (e *RasterEngine) loadFont(family style.FontFamily, variant string) (*truetype.Font, error) {
	data, err := readFontFile(e.fs(), e.FontDir, family, variant)
	if err != nil {
		return nil, err
	}
	f, err := freetype.ParseFont(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font %s: %w", fontFile(family, variant), err)
	}
	return f, nil
}

type faceKey struct {
	f    *truetype.Font
	size float64
}

// raster lays blocks out top to bottom. With img nil it only advances y.
type raster struct {
	ctx     context.Context
	fetcher core.Fetcher
	fonts   *fontSet
	faces   map[faceKey]font.Face
	images  map[string]image.Image
	dc      *freetype.Context
	img     *image.RGBA

	cfg        style.Config
	geo        container.Geometry
	scale      float64
	skipImages bool

	width, pad int
	y          int

	text, accent, bg color.Color
}

func newRaster(ctx context.Context, doc *container.Document, fonts *fontSet, opts RasterOptions, fetcher core.Fetcher) *raster {
	r := &raster{
		ctx:        ctx,
		fetcher:    fetcher,
		fonts:      fonts,
		faces:      map[faceKey]font.Face{},
		images:     map[string]image.Image{},
		dc:         freetype.NewContext(),
		cfg:        doc.Style,
		geo:        doc.Geometry,
		scale:      opts.Scale,
		skipImages: opts.SkipImages,
		text:       rgba(style.ColorOr(doc.Style.TextColor, defaultText)),
		accent:     rgba(style.ColorOr(doc.Style.AccentColor, defaultAccent)),
		bg:         rgba(style.ColorOr(doc.Style.BackgroundColor, defaultBackground)),
	}
	r.dc.SetDPI(72)
	r.dc.SetHinting(font.HintingFull)
	r.width = r.mm(doc.Geometry.Page.Width)
	r.pad = r.mm(float64(doc.Style.Margin))
	return r
}

func rgba(c style.RGB) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

// mm converts millimetres to device pixels.
func (r *raster) mm(v float64) int {
	return int(v / 25.4 * cssDPI * r.scale)
}

// px converts CSS pixels to device pixels.
func (r *raster) px(v float64) float64 {
	return v * r.scale
}

func (r *raster) right() int { return r.width - r.pad }

func (r *raster) face(f *truetype.Font, size float64) font.Face {
	k := faceKey{f, size}
	if face, ok := r.faces[k]; ok {
		return face
	}
	face := truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	r.faces[k] = face
	return face
}

func (r *raster) measure(f *truetype.Font, size float64, s string) int {
	return font.MeasureString(r.face(f, size), s).Ceil()
}

func (r *raster) fill(rect image.Rectangle, c color.Color) {
	if r.img != nil {
		draw.Draw(r.img, rect, image.NewUniform(c), image.Point{}, draw.Over)
	}
}

func (r *raster) drawString(f *truetype.Font, size float64, c color.Color, s string, x, baseline int) {
	if r.img == nil {
		return
	}
	r.dc.SetFont(f)
	r.dc.SetFontSize(size)
	r.dc.SetSrc(image.NewUniform(c))
	_, _ = r.dc.DrawString(s, freetype.Pt(x, baseline))
}

func (r *raster) layout(blocks []Block) error {
	r.y = r.pad
	for i, b := range blocks {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		if err := r.block(i, b); err != nil {
			return err
		}
	}
	return nil
}

func (r *raster) block(i int, b Block) error {
	left := r.pad
	if b.Quote {
		left += int(r.px(16))
	}
	top := r.y
	base := r.px(float64(r.geo.FontSize))
	gap := int(base * r.cfg.ParagraphSpacing)

	switch b.Kind {
	case BlockHeading:
		size := r.px(float64(r.geo.Headings[b.Level-1]))
		if i > 0 {
			r.y += int(size * 0.6)
		}
		r.paragraph(b.Runs, left, r.fonts.heading, size)
		if b.Level == 1 {
			r.fill(image.Rect(left, r.y+int(r.px(4)), r.right(), r.y+int(r.px(5))), color.RGBA{0xee, 0xee, 0xee, 0xff})
			r.y += int(r.px(8))
		}
		r.y += int(size * 0.4)
	case BlockParagraph:
		r.paragraph(b.Runs, left, r.fonts.regular, base)
		r.y += gap
	case BlockListItem:
		indent := left + int(r.px(24))*(b.Level+1)
		size := base
		lh := int(size * r.cfg.LineHeight)
		r.drawString(r.fonts.regular, size, r.text, b.Marker, indent-int(r.px(18)), r.y+baselineOffset(lh, size))
		r.paragraph(b.Runs, indent, r.fonts.regular, size)
		r.y += int(r.px(4))
	case BlockCode:
		r.code(b.Code, left, base*0.85)
		r.y += gap
	case BlockRule:
		r.y += int(r.px(8))
		r.fill(image.Rect(left, r.y, r.right(), r.y+max(1, int(r.px(1)))), rgba(ruleColor))
		r.y += int(r.px(8)) + gap
	case BlockTable:
		r.table(b, left, base)
		r.y += gap
	case BlockImage:
		if r.skipImages {
			return nil
		}
		if err := r.image(b, left); err != nil {
			return err
		}
		r.y += gap
	}

	if b.Quote {
		r.fill(image.Rect(r.pad, top, r.pad+int(r.px(4)), r.y), r.accent)
	}
	return nil
}

func baselineOffset(lineHeight int, size float64) int {
	return (lineHeight-int(size))/2 + int(size*0.8)
}

type piece struct {
	text      string
	f         *truetype.Font
	size      float64
	color     color.Color
	underline bool
	strike    bool
	width     int
	space     bool
	newline   bool
}

func (r *raster) runFont(run Run, regular *truetype.Font) *truetype.Font {
	switch {
	case run.Code:
		return r.fonts.mono
	case regular == r.fonts.heading:
		return regular
	case run.Bold && run.Italic:
		return r.fonts.boldItalic
	case run.Bold:
		return r.fonts.bold
	case run.Italic:
		return r.fonts.italic
	}
	return regular
}

// pieces splits runs into words and spaces ready for line filling.
func (r *raster) pieces(runs []Run, regular *truetype.Font, size float64) []piece {
	var out []piece
	for _, run := range runs {
		f := r.runFont(run, regular)
		sz := size
		if run.Code {
			sz = size * 0.85
		}
		col := r.text
		if run.Link != "" {
			col = r.accent
		}
		for _, tok := range splitWords(run.Text) {
			p := piece{text: tok, f: f, size: sz, color: col, underline: run.Link != "", strike: run.Strike}
			switch {
			case tok == "\n":
				p.newline = true
			case strings.TrimSpace(tok) == "":
				p.space = true
				p.width = r.measure(f, sz, tok)
			default:
				p.width = r.measure(f, sz, tok)
			}
			out = append(out, p)
		}
	}
	return out
}

// splitWords splits s into words, runs of spaces and newlines.
func splitWords(s string) []string {
	var out []string
	var cur strings.Builder
	space := false
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, ch := range s {
		if ch == '\n' {
			flush()
			out = append(out, "\n")
			continue
		}
		isSpace := unicode.IsSpace(ch)
		if isSpace != space {
			flush()
			space = isSpace
		}
		cur.WriteRune(ch)
	}
	flush()
	return out
}

// paragraph fills lines between left and the right padding.
func (r *raster) paragraph(runs []Run, left int, regular *truetype.Font, size float64) {
	lh := int(size * r.cfg.LineHeight)
	maxW := r.right() - left
	var line []piece
	lineW := 0

	emit := func() {
		for len(line) > 0 && line[len(line)-1].space {
			line = line[:len(line)-1]
		}
		x := left
		baseline := r.y + baselineOffset(lh, size)
		for _, p := range line {
			r.drawString(p.f, p.size, p.color, p.text, x, baseline)
			if p.underline {
				r.fill(image.Rect(x, baseline+2, x+p.width, baseline+2+max(1, int(r.px(1)))), p.color)
			}
			if p.strike {
				mid := baseline - int(p.size*0.3)
				r.fill(image.Rect(x, mid, x+p.width, mid+max(1, int(r.px(1)))), p.color)
			}
			x += p.width
		}
		r.y += lh
		line = line[:0]
		lineW = 0
	}

	for _, p := range r.pieces(runs, regular, size) {
		switch {
		case p.newline:
			emit()
			continue
		case p.space && len(line) == 0:
			continue
		}
		if !p.space && lineW+p.width > maxW && len(line) > 0 {
			emit()
		}
		if !p.space && p.width > maxW {
			for _, part := range r.breakWord(p, maxW) {
				line = append(line, part)
				emit()
			}
			continue
		}
		line = append(line, p)
		lineW += p.width
	}
	if len(line) > 0 {
		emit()
	}
}

// breakWord splits a word wider than maxW at rune boundaries.
func (r *raster) breakWord(p piece, maxW int) []piece {
	var parts []piece
	var cur strings.Builder
	for _, ch := range p.text {
		next := cur.String() + string(ch)
		if cur.Len() > 0 && r.measure(p.f, p.size, next) > maxW {
			part := p
			part.text = cur.String()
			part.width = r.measure(p.f, p.size, part.text)
			parts = append(parts, part)
			cur.Reset()
		}
		cur.WriteRune(ch)
	}
	part := p
	part.text = cur.String()
	part.width = r.measure(p.f, p.size, part.text)
	return append(parts, part)
}

func (r *raster) code(text string, left int, size float64) {
	pad := int(r.px(16))
	lh := int(size * 1.4)
	maxW := r.right() - left - 2*pad
	var lines []string
	for _, ln := range strings.Split(strings.ReplaceAll(text, "\t", "    "), "\n") {
		if ln == "" || r.measure(r.fonts.mono, size, ln) <= maxW {
			lines = append(lines, ln)
			continue
		}
		for _, part := range r.breakWord(piece{text: ln, f: r.fonts.mono, size: size}, maxW) {
			lines = append(lines, part.text)
		}
	}
	height := len(lines)*lh + 2*pad
	r.fill(image.Rect(left, r.y, r.right(), r.y+height), rgba(codeBackground))
	y := r.y + pad
	for _, ln := range lines {
		r.drawString(r.fonts.mono, size, rgba(codeForeground), ln, left+pad, y+baselineOffset(lh, size))
		y += lh
	}
	r.y += height
}

func (r *raster) table(b Block, left int, size float64) {
	cols := 0
	for _, row := range b.Rows {
		cols = max(cols, len(row))
	}
	if cols == 0 {
		return
	}
	cellPad := int(r.px(12))
	lh := int(size*r.cfg.LineHeight) + cellPad
	colW := (r.right() - left) / cols
	border := rgba(ruleColor)
	line := max(1, int(r.px(1)))
	for i, row := range b.Rows {
		header := b.Header && i == 0
		f := r.fonts.regular
		if header {
			f = r.fonts.bold
			r.fill(image.Rect(left, r.y, left+colW*cols, r.y+lh), rgba(headerFill))
		}
		for c := 0; c < cols; c++ {
			x := left + c*colW
			if c < len(row) {
				cell := r.truncate(f, size, row[c], colW-cellPad)
				r.drawString(f, size, r.text, cell, x+cellPad/2, r.y+baselineOffset(lh, size))
			}
			r.fill(image.Rect(x, r.y, x+line, r.y+lh), border)
		}
		r.fill(image.Rect(left+colW*cols, r.y, left+colW*cols+line, r.y+lh), border)
		r.fill(image.Rect(left, r.y, left+colW*cols, r.y+line), border)
		r.y += lh
	}
	r.fill(image.Rect(left, r.y, left+colW*cols+line, r.y+line), border)
}

func (r *raster) truncate(f *truetype.Font, size float64, s string, width int) string {
	if r.measure(f, size, s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && r.measure(f, size, string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func (r *raster) image(b Block, left int) error {
	img, err := r.loadImage(b.Src)
	if err != nil {
		return err
	}
	maxW := r.right() - left
	bounds := img.Bounds()
	w, h := int(r.px(float64(bounds.Dx()))), int(r.px(float64(bounds.Dy())))
	if w > maxW {
		h = h * maxW / w
		w = maxW
	}
	if r.img != nil {
		dst := image.Rect(left, r.y, left+w, r.y+max(h, 1))
		xdraw.CatmullRom.Scale(r.img, dst, img, bounds, xdraw.Over, nil)
	}
	r.y += h
	return nil
}

func (r *raster) loadImage(src string) (image.Image, error) {
	if img, ok := r.images[src]; ok {
		return img, nil
	}
	if r.fetcher == nil {
		return nil, fmt.Errorf("loading image %s: no fetcher configured", src)
	}
	res, err := r.fetcher.Fetch(r.ctx, src)
	if err != nil {
		return nil, fmt.Errorf("loading image %s: %w", src, err)
	}
	img, _, err := image.Decode(bytes.NewReader(res.Body))
	if err != nil {
		return nil, fmt.Errorf("decoding image %s: %w", src, err)
	}
	r.images[src] = img
	return img, nil
}
