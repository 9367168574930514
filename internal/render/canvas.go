package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
)

// Canvas is a raster drawing surface.
type Canvas interface {
	Clear(c color.RGBA)
	DrawDot(at Pixel, radius float64, c color.RGBA, alpha float64)
	DrawGradientLine(from, to Pixel, start, end color.RGBA, alpha float64, steps int, width float64)
	DrawText(s string, at Pixel, ax, ay float64, c color.RGBA)
	Image() image.Image
}

// GGCanvas draws with fogleman/gg.
type GGCanvas struct {
	dc *gg.Context
}

// NewGGCanvas returns a width x height canvas. A non-empty fontPath loads
// that TrueType face at fontSize points; otherwise gg's built-in face is
// used.
func NewGGCanvas(width, height int, fontPath string, fontSize float64) (*GGCanvas, error) {
	dc := gg.NewContext(width, height)
	if fontPath != "" {
		if err := dc.LoadFontFace(fontPath, fontSize); err != nil {
			return nil, fmt.Errorf("loading font %s: %w", fontPath, err)
		}
	}
	dc.SetLineCap(gg.LineCapRound)
	return &GGCanvas{dc: dc}, nil
}

func (g *GGCanvas) Clear(c color.RGBA) {
	g.dc.SetColor(c)
	g.dc.Clear()
}

func (g *GGCanvas) DrawDot(at Pixel, radius float64, c color.RGBA, alpha float64) {
	setRGBA(g.dc, c, alpha)
	g.dc.DrawCircle(at.X, at.Y, radius)
	g.dc.Fill()
}

// DrawGradientLine strokes steps-1 sub-segments between steps sampled
// points, each in its own shade from start to end.
func (g *GGCanvas) DrawGradientLine(from, to Pixel, start, end color.RGBA, alpha float64, steps int, width float64) {
	pts := Subdivide(from, to, steps)
	shades := Gradient(start, end, len(pts)-1)
	g.dc.SetLineWidth(width)
	for i := 0; i+1 < len(pts); i++ {
		setRGBA(g.dc, shades[i], alpha)
		g.dc.DrawLine(pts[i].X, pts[i].Y, pts[i+1].X, pts[i+1].Y)
		g.dc.Stroke()
	}
}

func (g *GGCanvas) DrawText(s string, at Pixel, ax, ay float64, c color.RGBA) {
	setRGBA(g.dc, c, 1)
	g.dc.DrawStringAnchored(s, at.X, at.Y, ax, ay)
}

func (g *GGCanvas) Image() image.Image {
	return g.dc.Image()
}

func setRGBA(dc *gg.Context, c color.RGBA, alpha float64) {
	dc.SetRGBA(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255, alpha)
}

// Draw paints sc on cv: background, base dots, edges, markers, legend and
// title, in that order.
func Draw(sc Scene, cv Canvas) {
	st := sc.Style
	cv.Clear(st.Background)

	for _, d := range sc.Dots {
		cv.DrawDot(d, DefaultDotRadius, st.DotColor, 1)
	}
	for _, seg := range sc.Segments {
		cv.DrawGradientLine(seg.From, seg.To, seg.Start, seg.End, st.EdgeAlpha, st.EdgeSteps, st.EdgeWidth)
	}
	for _, m := range sc.Markers {
		cv.DrawDot(m.At, DefaultMarker, m.Color, 0.5)
	}

	lineHeight := st.FontSize * 1.4
	x := float64(st.Width) - 20
	for i, e := range sc.Legend {
		y := 30 + float64(i)*lineHeight
		cv.DrawDot(Pixel{X: x, Y: y}, DefaultMarker, e.Color, 1)
		cv.DrawText(e.Keyword, Pixel{X: x - 2*DefaultMarker, Y: y}, 1, 0.5, st.TextColor)
	}
	cv.DrawText(sc.Title, Pixel{X: float64(st.Width) / 2, Y: float64(st.Height) - 20}, 0.5, 0.5, st.TextColor)
}
