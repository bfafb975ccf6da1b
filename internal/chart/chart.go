// Package chart draws the percentage ring shown in evaluation documents.
package chart

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
)

var (
	Progress  = color.NRGBA{R: 0x14, G: 0x9B, B: 0x8D, A: 0xFF}
	Remaining = color.NRGBA{R: 0xD3, G: 0xD3, B: 0xD3, A: 0xFF}
	Edge      = color.White
	Ink       = color.Black
)

const (
	DefaultDPI = 150
	// Inches is the side of the square figure.
	Inches = 2.5
	// DefaultSize is the side in pixels at DefaultDPI.
	DefaultSize = Inches * DefaultDPI

	// RingWidth is the ring thickness as a fraction of the outer radius.
	RingWidth = 0.35
	// Label is printed under the percentage.
	Label = "Porcentaje UE"
)

// Options controls the raster size. SizePx wins over DPI when both are set.
type Options struct {
	SizePx int
	DPI    float64
}

func (o Options) withDefaults() Options {
	if o.DPI <= 0 {
		o.DPI = DefaultDPI
	}
	if o.SizePx <= 0 {
		o.SizePx = int(Inches * o.DPI)
	}
	return o
}

var (
	fontOnce sync.Once
	boldFont *truetype.Font
	fontErr  error
)

func face(points, dpi float64) (font.Face, error) {
	fontOnce.Do(func() {
		boldFont, fontErr = truetype.Parse(gobold.TTF)
	})
	if fontErr != nil {
		return nil, fmt.Errorf("parse chart font: %w", fontErr)
	}
	return truetype.NewFace(boldFont, &truetype.Options{Size: points, DPI: dpi, Hinting: font.HintingFull}), nil
}

// Clamp limits a percentage to 0..100.
func Clamp(percentage int) int {
	return max(0, min(100, percentage))
}

// Ring draws a two-colour ring filled clockwise from twelve o'clock up to
// percentage, with the value and Label in the middle, on a transparent
// background.
func Ring(percentage int, opts Options) (image.Image, error) {
	opts = opts.withDefaults()
	percentage = Clamp(percentage)

	size := float64(opts.SizePx)
	ppi := size / Inches
	dc := gg.NewContext(opts.SizePx, opts.SizePx)

	cx, cy := size/2, size/2
	outer := size/2 - 0.1*ppi
	inner := outer * (1 - RingWidth)
	edge := 2 * ppi / 72

	start := -math.Pi / 2
	split := start + 2*math.Pi*float64(percentage)/100
	end := start + 2*math.Pi

	switch percentage {
	case 0:
		annulus(dc, cx, cy, inner, outer, Remaining)
	case 100:
		annulus(dc, cx, cy, inner, outer, Progress)
	default:
		wedge(dc, cx, cy, inner, outer, start, split, Progress, edge)
		wedge(dc, cx, cy, inner, outer, split, end, Remaining, edge)
	}

	big, err := face(22, ppi)
	if err != nil {
		return nil, err
	}
	small, err := face(9, ppi)
	if err != nil {
		return nil, err
	}
	dc.SetColor(Ink)
	dc.SetFontFace(big)
	dc.DrawStringAnchored(fmt.Sprintf("%d%%", percentage), cx, cy-0.1*outer, 0.5, 0.5)
	dc.SetFontFace(small)
	dc.DrawStringAnchored(Label, cx, cy+0.25*outer, 0.5, 0.5)

	return dc.Image(), nil
}

// annulus fills the whole ring as two closed circles, leaving no seam at
// the start angle.
func annulus(dc *gg.Context, cx, cy, inner, outer float64, c color.Color) {
	dc.DrawCircle(cx, cy, outer)
	dc.DrawCircle(cx, cy, inner)
	dc.SetFillRule(gg.FillRuleEvenOdd)
	dc.SetColor(c)
	dc.Fill()
	dc.SetFillRule(gg.FillRuleWinding)
}

// wedge fills the ring sector between angles a1 and a2 (radians, clockwise
// in image space) and outlines it when edge > 0.
func wedge(dc *gg.Context, cx, cy, inner, outer, a1, a2 float64, c color.Color, edge float64) {
	dc.NewSubPath()
	dc.DrawArc(cx, cy, outer, a1, a2)
	dc.DrawArc(cx, cy, inner, a2, a1)
	dc.ClosePath()
	dc.SetColor(c)
	if edge <= 0 {
		dc.Fill()
		return
	}
	dc.FillPreserve()
	dc.SetColor(Edge)
	dc.SetLineWidth(edge)
	dc.Stroke()
}

// Encode writes the ring for percentage as PNG.
func Encode(w io.Writer, percentage int, opts Options) error {
	img, err := Ring(percentage, opts)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// WriteFile writes the ring for percentage as a PNG file at path.
func WriteFile(path string, percentage int, opts Options) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := Encode(f, percentage, opts); err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	return nil
}
