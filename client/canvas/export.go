package canvas

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const defaultTextColor = "#1a1a1a"

// ExportOptions controls Export
type ExportOptions struct {
	// Scale multiplies the document size. Zero means 1.
	Scale float64
	// Vars personalizes text layers before rendering
	Vars map[string]string
}

// Export flattens the visible layers into one PNG
func (e *Editor) Export(opts ExportOptions) ([]byte, error) {
	if !e.ready {
		return nil, ErrNotInitialized
	}
	img := e.Render(opts)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode canvas: %w", err)
	}
	return buf.Bytes(), nil
}

// Render draws the document onto a white raster
func (e *Editor) Render(opts ExportOptions) *image.RGBA {
	doc := personalize(e.doc, opts.Vars)

	base := image.NewRGBA(image.Rect(0, 0, doc.Width, doc.Height))
	draw.Draw(base, base.Bounds(), image.White, image.Point{}, draw.Src)

	for _, el := range doc.Elements {
		if !el.Visible || el.Opacity <= 0 {
			continue
		}
		switch el.Type {
		case ElementImage:
			if src, ok := e.images[el.ID]; ok {
				drawImage(base, src, el)
			}
		case ElementText:
			drawText(base, el)
		}
	}

	scale := opts.Scale
	if scale <= 0 || scale == 1 {
		return base
	}
	w := max(1, int(math.Round(float64(doc.Width)*scale)))
	h := max(1, int(math.Round(float64(doc.Height)*scale)))
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(out, out.Bounds(), base, base.Bounds(), draw.Src, nil)
	return out
}

func elementRect(g Geometry) image.Rectangle {
	x0, y0 := int(math.Round(g.X)), int(math.Round(g.Y))
	return image.Rect(x0, y0, x0+int(math.Round(g.Width)), y0+int(math.Round(g.Height)))
}

func drawImage(dst *image.RGBA, src image.Image, el Element) {
	r := elementRect(el.Geometry)
	if r.Empty() {
		return
	}
	var opts *draw.Options
	if el.Opacity < 1 {
		opts = &draw.Options{SrcMask: image.NewUniform(color.Alpha{A: uint8(math.Round(el.Opacity * 255))})}
	}
	draw.CatmullRom.Scale(dst, r, src, src.Bounds(), draw.Over, opts)
}

// drawText wraps text to the element width in the fixed 7x13 face
func drawText(dst *image.RGBA, el Element) {
	r := elementRect(el.Geometry)
	if r.Empty() || el.Text == "" {
		return
	}
	col := parseHexColor(el.Color)
	col.A = uint8(math.Round(float64(col.A) * el.Opacity))

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst.SubImage(r).(*image.RGBA),
		Src:  image.NewUniform(col),
		Face: face,
	}

	lineHeight := face.Metrics().Height.Ceil()
	maxChars := max(1, r.Dx()/face.Advance)
	y := r.Min.Y + face.Ascent
	for _, line := range wrap(el.Text, maxChars) {
		if y > r.Max.Y {
			break
		}
		d.Dot = fixed.P(r.Min.X, y)
		d.DrawString(line)
		y += lineHeight
	}
}

func wrap(text string, width int) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := ""
		for _, w := range words {
			switch {
			case line == "":
				line = w
			case len(line)+1+len(w) <= width:
				line += " " + w
			default:
				lines = append(lines, line)
				line = w
			}
		}
		lines = append(lines, line)
	}
	return lines
}

// parseHexColor reads #rrggbb and falls back to the default text color
func parseHexColor(s string) color.NRGBA {
	if s == "" {
		s = defaultTextColor
	}
	s = strings.TrimPrefix(s, "#")
	v, err := strconv.ParseUint(s, 16, 32)
	if len(s) != 6 || err != nil {
		return parseHexColor(defaultTextColor)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
