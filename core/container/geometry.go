// Package container is the Document Container: it turns a StyleConfig into
// concrete page geometry and a scoped stylesheet, and wraps rendered
// Markdown in that geometry. The resulting Document is the single visual
// source of truth for the on-screen preview and the DOM-based exports.
package container

import (
	"fmt"
	"math"
	"strconv"

	"github.com/gaurav-prasanna/markify/core/style"
)

// MobileHeadingScale shrinks headings on constrained viewports.
const MobileHeadingScale = 0.75

// Length is a CSS length.
type Length struct {
	Value float64
	Unit  string
}

// MM returns a length in millimetres.
func MM(v float64) Length { return Length{Value: v, Unit: "mm"} }

// PX returns a length in CSS pixels.
func PX(v float64) Length { return Length{Value: v, Unit: "px"} }

// Percent returns a percentage length.
func Percent(v float64) Length { return Length{Value: v, Unit: "%"} }

// Auto is the CSS "auto" keyword.
var Auto = Length{Unit: "auto"}

func (l Length) String() string {
	if l.Unit == "auto" {
		return "auto"
	}
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + l.Unit
}

// MarshalText implements encoding.TextMarshaler.
func (l Length) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Box is a four-sided length, in CSS order.
type Box struct {
	Top, Right, Bottom, Left Length
}

func (b Box) String() string {
	return fmt.Sprintf("%s %s %s %s", b.Top, b.Right, b.Bottom, b.Left)
}

// MarshalText implements encoding.TextMarshaler.
func (b Box) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// Geometry is the concrete layout derived from a style config for one
// viewport class. Page always holds the physical page size, even when the
// on-screen width collapses to the viewport.
type Geometry struct {
	Mobile    bool             `json:"mobile"`
	Page      style.Dimensions `json:"page"`
	Width     Length           `json:"width"`
	MinHeight Length           `json:"minHeight"`
	Padding   Box              `json:"padding"`
	FontSize  int              `json:"fontSize"`
	Headings  [6]int           `json:"headings"`
}

// ResolveDimensions returns the physical page size in millimetres. Custom
// sizes are returned verbatim; named sizes come from the lookup table.
func ResolveDimensions(cfg style.Config) style.Dimensions {
	if cfg.PaperSize == style.PaperCustom {
		return style.Dimensions{Width: cfg.CustomWidth, Height: cfg.CustomHeight}
	}
	dims, ok := style.PaperDimensions[cfg.PaperSize]
	if !ok {
		panic(fmt.Sprintf("container: unknown paper size %q", cfg.PaperSize))
	}
	return dims
}

// ComputeGeometry converts cfg into concrete geometry for a desktop or a
// mobile viewport.
func ComputeGeometry(cfg style.Config, mobile bool) Geometry {
	page := ResolveDimensions(cfg)
	geo := Geometry{
		Mobile:   mobile,
		Page:     page,
		Headings: cfg.HeadingSizes(),
	}

	if !mobile {
		margin := MM(float64(cfg.Margin))
		geo.Width = MM(page.Width)
		geo.MinHeight = MM(page.Height)
		geo.Padding = Box{Top: margin, Right: margin, Bottom: margin, Left: margin}
		geo.FontSize = cfg.BaseSize
		return geo
	}

	geo.Width = Percent(100)
	geo.MinHeight = Auto
	geo.Padding = Box{Top: PX(24), Right: PX(16), Bottom: PX(24), Left: PX(16)}
	geo.FontSize = max(cfg.BaseSize-2, 12)
	for i, size := range geo.Headings {
		geo.Headings[i] = ScaleHeading(size)
	}
	return geo
}

// ScaleHeading applies MobileHeadingScale, rounding half up.
func ScaleHeading(size int) int {
	return int(math.Round(float64(size) * MobileHeadingScale))
}
