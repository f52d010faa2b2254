package export

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// BlockKind classifies a flattened block.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockListItem
	BlockCode
	BlockRule
	BlockImage
	BlockTable
)

// Run is a stretch of inline text sharing one set of attributes.
type Run struct {
	Text   string
	Bold   bool
	Italic bool
	Code   bool
	Strike bool
	Link   string
}

// Block is one vertically stacked element of a rendered document. The PDF
// and raster engines both lay out this list so they agree on structure.
type Block struct {
	Kind BlockKind
	// Level is the heading level for headings and the nesting depth
	// (starting at 0) for list items.
	Level  int
	Marker string
	Quote  bool
	Runs   []Run

	Code     string
	Src, Alt string
	Rows     [][]string
	Header   bool
}

// Text concatenates the block's runs.
func (b Block) Text() string {
	var sb strings.Builder
	for _, r := range b.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

var spaces = regexp.MustCompile(`\s+`)

// Flatten walks the rendered nodes under body into blocks.
func Flatten(body *goquery.Selection) []Block {
	f := &flattener{}
	f.blocks(body, false)
	return f.out
}

type flattener struct {
	out    []Block
	images []Block
}

func (f *flattener) add(b Block) {
	if b.Kind == BlockParagraph || b.Kind == BlockHeading || b.Kind == BlockListItem {
		b.Runs = trimRuns(b.Runs)
		if len(b.Runs) == 0 && b.Kind != BlockListItem {
			f.flushImages()
			return
		}
	}
	f.out = append(f.out, b)
	f.flushImages()
}

func (f *flattener) flushImages() {
	f.out = append(f.out, f.images...)
	f.images = nil
}

func (f *flattener) blocks(sel *goquery.Selection, quote bool) {
	var loose []Run
	flushLoose := func() {
		if len(loose) > 0 {
			f.add(Block{Kind: BlockParagraph, Quote: quote, Runs: loose})
			loose = nil
		}
	}

	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		if n.Type == html.TextNode {
			loose = appendText(loose, Run{}, n.Data)
			return
		}
		if n.Type != html.ElementNode {
			return
		}
		switch n.DataAtom {
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			flushLoose()
			level := int(n.Data[1] - '0')
			f.add(Block{Kind: BlockHeading, Level: level, Quote: quote, Runs: f.inline(s, Run{Bold: true}, nil)})
		case atom.P:
			flushLoose()
			f.add(Block{Kind: BlockParagraph, Quote: quote, Runs: f.inline(s, Run{}, nil)})
		case atom.Pre:
			flushLoose()
			f.add(Block{Kind: BlockCode, Quote: quote, Code: strings.TrimSuffix(s.Text(), "\n")})
		case atom.Blockquote:
			flushLoose()
			f.blocks(s, true)
		case atom.Ul, atom.Ol:
			flushLoose()
			f.list(s, 0, quote)
		case atom.Hr:
			flushLoose()
			f.add(Block{Kind: BlockRule, Quote: quote})
		case atom.Table:
			flushLoose()
			f.table(s, quote)
		case atom.Img:
			flushLoose()
			f.images = append(f.images, imageBlock(s))
			f.flushImages()
		case atom.Div, atom.Section, atom.Article, atom.Details:
			flushLoose()
			f.blocks(s, quote)
		default:
			loose = f.inline(s, inlineStyle(n, s, Run{}), loose)
		}
	})
	flushLoose()
}

func (f *flattener) list(sel *goquery.Selection, depth int, quote bool) {
	ordered := goquery.NodeName(sel) == "ol"
	start := 1
	if v, ok := sel.Attr("start"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			start = n
		}
	}
	sel.ChildrenFiltered("li").Each(func(i int, li *goquery.Selection) {
		marker := "•"
		if ordered {
			marker = strconv.Itoa(start+i) + "."
		}
		f.add(Block{Kind: BlockListItem, Level: depth, Marker: marker, Quote: quote, Runs: f.inline(li, Run{}, nil)})
		li.Find("ul, ol").FilterFunction(func(_ int, nested *goquery.Selection) bool {
			return nested.ParentsFiltered("li").First().IsSelection(li)
		}).Each(func(_ int, nested *goquery.Selection) {
			f.list(nested, depth+1, quote)
		})
	})
}

func (f *flattener) table(sel *goquery.Selection, quote bool) {
	b := Block{Kind: BlockTable, Quote: quote}
	sel.Find("tr").Each(func(i int, tr *goquery.Selection) {
		var row []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			row = append(row, strings.TrimSpace(spaces.ReplaceAllString(cell.Text(), " ")))
		})
		if i == 0 && tr.Find("th").Length() > 0 {
			b.Header = true
		}
		b.Rows = append(b.Rows, row)
	})
	if len(b.Rows) > 0 {
		f.add(b)
	}
}

// inline collects the text runs under sel. Images found inline are queued
// and emitted as blocks after the enclosing block.
func (f *flattener) inline(sel *goquery.Selection, base Run, out []Run) []Run {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		switch n.Type {
		case html.TextNode:
			out = appendText(out, base, n.Data)
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Ul, atom.Ol:
				return
			case atom.Br:
				out = append(out, Run{Text: "\n"})
				return
			case atom.Img:
				f.images = append(f.images, imageBlock(s))
				return
			case atom.Input:
				if t, _ := s.Attr("type"); t == "checkbox" {
					box := "[ ] "
					if _, checked := s.Attr("checked"); checked {
						box = "[x] "
					}
					out = append(out, Run{Text: box, Code: true})
				}
				return
			}
			out = f.inline(s, inlineStyle(n, s, base), out)
		}
	})
	return out
}

func inlineStyle(n *html.Node, s *goquery.Selection, r Run) Run {
	switch n.DataAtom {
	case atom.Strong, atom.B:
		r.Bold = true
	case atom.Em, atom.I:
		r.Italic = true
	case atom.Code, atom.Kbd, atom.Samp:
		r.Code = true
	case atom.Del, atom.S, atom.Strike:
		r.Strike = true
	case atom.A:
		if href, ok := s.Attr("href"); ok {
			r.Link = href
		}
	}
	return r
}

func imageBlock(s *goquery.Selection) Block {
	src, _ := s.Attr("src")
	alt, _ := s.Attr("alt")
	return Block{Kind: BlockImage, Src: src, Alt: alt}
}

// appendText adds text with whitespace collapsed, merging into the previous
// run when the attributes match.
func appendText(out []Run, style Run, text string) []Run {
	if style.Code {
		text = strings.ReplaceAll(text, "\n", " ")
	} else {
		text = spaces.ReplaceAllString(text, " ")
	}
	if text == "" {
		return out
	}
	if len(out) > 0 {
		last := &out[len(out)-1]
		if strings.HasSuffix(last.Text, " ") && strings.HasPrefix(text, " ") {
			text = text[1:]
			if text == "" {
				return out
			}
		}
		prev := *last
		prev.Text = ""
		if prev == style {
			last.Text += text
			return out
		}
	}
	style.Text = text
	return append(out, style)
}

// trimRuns drops leading and trailing blanks.
func trimRuns(runs []Run) []Run {
	for len(runs) > 0 {
		runs[0].Text = strings.TrimLeft(runs[0].Text, " \n")
		if runs[0].Text != "" {
			break
		}
		runs = runs[1:]
	}
	for len(runs) > 0 {
		last := len(runs) - 1
		runs[last].Text = strings.TrimRight(runs[last].Text, " \n")
		if runs[last].Text != "" {
			break
		}
		runs = runs[:last]
	}
	return runs
}

// withoutImages returns the inner markup with every image removed.
func withoutImages(inner string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(inner))
	if err != nil {
		return "", err
	}
	body := doc.Find("body")
	body.Find("img").Remove()
	return body.Html()
}
