package container

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"

	"github.com/gaurav-prasanna/markify/core/style"
)

// ElementID is the id of the element wrapping the rendered document. Every
// rule of the stylesheet is scoped under it.
const ElementID = "document-preview"

const scope = "#" + ElementID

// FontStack returns the CSS font-family value for f.
func FontStack(f style.FontFamily) string {
	switch f {
	case style.FontLora:
		return "'Lora', serif"
	case style.FontJetBrainsMono:
		return "'JetBrains Mono', monospace"
	case style.FontSystemUI:
		return "system-ui, -apple-system, 'Segoe UI', sans-serif"
	default:
		return "'" + string(f) + "', sans-serif"
	}
}

// FontURL returns the web font stylesheet for the families cfg uses, plus
// the monospace family used for code. It returns "" when nothing needs
// loading.
func FontURL(cfg style.Config) string {
	used := map[style.FontFamily]bool{
		cfg.FontFamily:          true,
		cfg.HeadingFontFamily:   true,
		style.FontJetBrainsMono: true,
	}
	var families []string
	for _, f := range style.Fonts() {
		if !used[f] || f == style.FontSystemUI {
			continue
		}
		families = append(families, "family="+url.QueryEscape(string(f))+":wght@400;600;700")
	}
	if len(families) == 0 {
		return ""
	}
	return "https://fonts.googleapis.com/css2?" + strings.Join(families, "&") + "&display=swap"
}

var cssColor = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]{3,32}|(rgb|rgba|hsl|hsla)\([0-9.,%\s]+\))$`)

// Color returns s when it is a plain CSS colour value, normalising hex
// colours, and def otherwise. Only the returned value may be written into a
// style block.
func Color(s, def string) string {
	s = strings.TrimSpace(s)
	if c, ok := style.ParseColor(s); ok {
		return "#" + c.Hex()
	}
	if cssColor.MatchString(s) {
		return s
	}
	return def
}

// colors holds the cleaned colour values of a config.
type colors struct {
	text, accent, background string
}

func colorsOf(cfg style.Config) colors {
	def := style.Default()
	return colors{
		text:       Color(cfg.TextColor, def.TextColor),
		accent:     Color(cfg.AccentColor, def.AccentColor),
		background: Color(cfg.BackgroundColor, def.BackgroundColor),
	}
}

type declaration struct {
	property, value string
}

func decl(property, value string) declaration {
	return declaration{property: property, value: value}
}

func px(v int) string { return strconv.Itoa(v) + "px" }

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func em(v float64) string { return num(v) + "em" }

// pick returns desktop or mobile depending on geo.
func pick(geo Geometry, desktop, mobile string) string {
	if geo.Mobile {
		return mobile
	}
	return desktop
}

type sheetBuilder struct {
	sheet *css.Stylesheet
}

func (b *sheetBuilder) rule(selectors []string, decls ...declaration) {
	rule := css.NewRule(css.QualifiedRule)
	for _, sel := range selectors {
		if sel == "" {
			rule.Selectors = append(rule.Selectors, scope)
		} else {
			rule.Selectors = append(rule.Selectors, scope+" "+sel)
		}
	}
	rule.Prelude = strings.Join(rule.Selectors, ", ")
	for _, d := range decls {
		rule.Declarations = append(rule.Declarations, &css.Declaration{Property: d.property, Value: d.value})
	}
	b.sheet.Rules = append(b.sheet.Rules, rule)
}

// Stylesheet builds the scoped style block for cfg laid out with geo. The
// same function serves the live preview and every DOM-based export.
func Stylesheet(cfg style.Config, geo Geometry) *css.Stylesheet {
	b := &sheetBuilder{sheet: css.NewStylesheet()}
	col := colorsOf(cfg)

	b.rule([]string{""},
		decl("box-sizing", "border-box"),
		decl("font-family", FontStack(cfg.FontFamily)),
		decl("font-size", px(geo.FontSize)),
		decl("line-height", num(cfg.LineHeight)),
		decl("color", col.text),
		decl("background-color", col.background),
		decl("padding", geo.Padding.String()),
		decl("width", geo.Width.String()),
		decl("max-width", pick(geo, "none", "100%")),
		decl("min-height", geo.MinHeight.String()),
		decl("margin", "0 auto"),
		decl("overflow", "hidden"),
	)

	marginTop := [6]string{"0", "1.5em", "1.2em", "1.1em", "1em", "1em"}
	marginBottom := [6]string{"0.8em", "0.6em", "0.5em", "0.5em", "0.5em", "0.5em"}
	for i, size := range geo.Headings {
		weight := "600"
		if i == 0 {
			weight = "700"
		}
		decls := []declaration{
			decl("font-family", FontStack(cfg.HeadingFontFamily)),
			decl("font-size", px(size)),
			decl("font-weight", weight),
			decl("color", col.text),
			decl("margin-top", marginTop[i]),
			decl("margin-bottom", marginBottom[i]),
			decl("word-wrap", "break-word"),
		}
		if i == 0 {
			decls = append(decls, decl("border-bottom", "1px solid #eee"), decl("padding-bottom", "0.3em"))
		}
		b.rule([]string{fmt.Sprintf("h%d", i+1)}, decls...)
	}

	b.rule([]string{"p"},
		decl("margin-top", "0"),
		decl("margin-bottom", em(cfg.ParagraphSpacing)),
		decl("line-height", num(cfg.LineHeight)),
		decl("word-wrap", "break-word"),
	)
	b.rule([]string{"a"},
		decl("color", col.accent),
		decl("text-decoration", "underline"),
		decl("word-break", "break-word"),
	)
	b.rule([]string{"code"},
		decl("background", "#f1f5f9"),
		decl("padding", "0.2em 0.4em"),
		decl("border-radius", "4px"),
		decl("font-family", FontStack(style.FontJetBrainsMono)),
		decl("font-size", "0.85em"),
		decl("word-break", "break-word"),
	)
	b.rule([]string{"pre"},
		decl("background", "#1e293b"),
		decl("color", "#f8fafc"),
		decl("padding", pick(geo, "1.5em", "1em")),
		decl("border-radius", "8px"),
		decl("overflow-x", "auto"),
		decl("margin-bottom", "1.5em"),
		decl("font-size", pick(geo, "0.9em", "0.8em")),
	)
	b.rule([]string{"pre code"},
		decl("background", "transparent"),
		decl("padding", "0"),
		decl("border-radius", "0"),
		decl("color", "inherit"),
		decl("font-size", "inherit"),
	)
	b.rule([]string{"table"},
		decl("width", "100%"),
		decl("border-collapse", "collapse"),
		decl("margin-bottom", "1.5em"),
		decl("font-size", pick(geo, "1em", "0.85em")),
		decl("display", "block"),
		decl("overflow-x", "auto"),
	)
	b.rule([]string{"th", "td"},
		decl("border", "1px solid #e2e8f0"),
		decl("padding", pick(geo, "12px", "8px")),
		decl("text-align", "left"),
		decl("white-space", "nowrap"),
	)
	b.rule([]string{"th"},
		decl("background", "#f8fafc"),
		decl("font-weight", "600"),
	)
	b.rule([]string{"ul", "ol"},
		decl("padding-left", pick(geo, "1.5em", "1.25em")),
		decl("margin-bottom", "1em"),
	)
	b.rule([]string{"li"}, decl("margin-bottom", "0.25em"))
	b.rule([]string{"blockquote"},
		decl("border-left", "4px solid "+col.accent),
		decl("padding-left", "1em"),
		decl("margin", "1em 0"),
		decl("color", "#6b7280"),
		decl("font-style", "italic"),
	)
	b.rule([]string{"img"},
		decl("max-width", "100%"),
		decl("height", "auto"),
		decl("border-radius", "8px"),
	)
	b.rule([]string{"hr"},
		decl("border", "none"),
		decl("border-top", "1px solid #e5e7eb"),
		decl("margin", "2em 0"),
	)

	return b.sheet
}

var cssComment = regexp.MustCompile(`(?s)/\*.*?\*/`)

// scopeRules parses an external stylesheet and prefixes every qualified
// rule with the document scope.
func scopeRules(raw string) ([]*css.Rule, error) {
	sheet, err := parser.Parse(cssComment.ReplaceAllString(raw, ""))
	if err != nil {
		return nil, fmt.Errorf("parsing stylesheet: %w", err)
	}
	var rules []*css.Rule
	for _, rule := range sheet.Rules {
		if rule.Kind != css.QualifiedRule {
			continue
		}
		for i, sel := range rule.Selectors {
			rule.Selectors[i] = scope + " " + sel
		}
		rule.Prelude = strings.Join(rule.Selectors, ", ")
		rules = append(rules, rule)
	}
	return rules, nil
}
