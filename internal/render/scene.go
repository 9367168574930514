// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render turns a dataset into per-year citation network frames.
// BuildScene computes what to draw in pixel space; Draw paints a scene on
// a Canvas.
package render

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/pdiddy/methnet/internal/keywords"
	"github.com/pdiddy/methnet/internal/layout"
	"github.com/pdiddy/methnet/pkg/types"
)

// Defaults follow the original figure: a 10 inch square at 100 dpi with
// faint edges sampled at 10 points.
const (
	DefaultSize      = 1000
	DefaultEdgeAlpha = 0.2
	DefaultEdgeSteps = 10
	DefaultEdgeWidth = 1.0
	DefaultDotRadius = 1.0
	DefaultMarker    = 5.0
)

// Style holds resolved drawing parameters.
type Style struct {
	Keywords      []string
	KeywordColors []color.RGBA
	ConstantColor color.RGBA
	NoneColor     color.RGBA
	Background    color.RGBA
	DotColor      color.RGBA
	TextColor     color.RGBA

	Title  string
	Width  int
	Height int

	// Radius of the circle in pixels.
	Radius float64

	EdgeAlpha float64
	EdgeSteps int
	EdgeWidth float64

	// FontPath optionally names a TrueType font; empty uses the built-in face.
	FontPath string
	FontSize float64
}

// NewStyle resolves cfg's color names for keywords and fills defaults.
func NewStyle(cfg types.FigureConfig, kws []string) (Style, error) {
	palette, err := Palette(kws, cfg.MethodColors)
	if err != nil {
		return Style{}, err
	}
	named := func(name, fallback string) (color.RGBA, error) {
		if strings.TrimSpace(name) == "" {
			name = fallback
		}
		return ParseColor(name)
	}

	s := Style{
		Keywords:      append([]string(nil), kws...),
		KeywordColors: palette,
		Title:         cfg.Title,
		Width:         cfg.Size,
		Height:        cfg.Size,
		FontPath:      cfg.FontPath,
	}
	if s.ConstantColor, err = named(cfg.ConstantColor, "black"); err != nil {
		return Style{}, fmt.Errorf("constant color: %w", err)
	}
	if s.NoneColor, err = named(cfg.NoneColor, "black"); err != nil {
		return Style{}, fmt.Errorf("none color: %w", err)
	}
	if s.Background, err = named(cfg.Background, "black"); err != nil {
		return Style{}, fmt.Errorf("background: %w", err)
	}
	s.withDefaults()
	return s, nil
}

func (s *Style) withDefaults() {
	if s.Width <= 0 {
		s.Width = DefaultSize
	}
	if s.Height <= 0 {
		s.Height = DefaultSize
	}
	if s.Radius <= 0 {
		s.Radius = 0.4 * math.Min(float64(s.Width), float64(s.Height))
	}
	if s.EdgeAlpha <= 0 {
		s.EdgeAlpha = DefaultEdgeAlpha
	}
	if s.EdgeSteps < 2 {
		s.EdgeSteps = DefaultEdgeSteps
	}
	if s.EdgeWidth <= 0 {
		s.EdgeWidth = DefaultEdgeWidth
	}
	if s.FontSize <= 0 {
		s.FontSize = 18
	}
	if s.DotColor == (color.RGBA{}) {
		s.DotColor = color.RGBA{R: 0x69, G: 0x69, B: 0x69, A: 0xff}
	}
	if s.TextColor == (color.RGBA{}) {
		s.TextColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
}

// Pixel is a canvas position, y pointing down.
type Pixel struct {
	X, Y float64
}

// Segment is one citation edge, drawn as a gradient from Start at the
// citing paper to End at the cited paper.
type Segment struct {
	Citing, Cited string
	From, To      Pixel
	Start, End    color.RGBA
}

// Marker highlights a citing paper that mentions a keyword.
type Marker struct {
	PMCID string
	At    Pixel
	Color color.RGBA
}

// LegendEntry pairs a keyword with its color.
type LegendEntry struct {
	Keyword string
	Color   color.RGBA
}

// Scene is everything one frame shows.
type Scene struct {
	Year  int
	Style Style
	Title string

	Dots     []Pixel
	Segments []Segment
	Markers  []Marker
	Legend   []LegendEntry

	// Records is the number of papers published up to Year; Unmatched of
	// those mention no keyword.
	Records   int
	Unmatched int
}

// BuildScene lays out the frame for year: papers with 0 < Year <= year
// draw an edge to each paper they cite. Edge color comes from the first
// keyword, in configured order, with a positive count.
func BuildScene(ds *types.Dataset, coords layout.Coordinates, year int, style Style) Scene {
	style.withDefaults()
	toPixel := pixelMapper(coords, style)

	sc := Scene{
		Year:  year,
		Style: style,
		Title: frameTitle(style.Title, year),
	}
	for _, id := range coords.IDs() {
		p, _ := coords.Point(id)
		sc.Dots = append(sc.Dots, toPixel(p))
	}
	for i, kw := range style.Keywords {
		sc.Legend = append(sc.Legend, LegendEntry{Keyword: kw, Color: keywordColor(style, i)})
	}

	for _, rec := range ds.Records {
		if rec.Year <= 0 || rec.Year > year {
			continue
		}
		sc.Records++

		start := style.NoneColor
		_, idx, matched := keywords.Dominant(rec.KeywordCounts, style.Keywords)
		if matched {
			start = keywordColor(style, idx)
		} else {
			sc.Unmatched++
		}

		from, ok := coords.Point(rec.PMCID)
		if !ok {
			continue
		}
		if matched {
			sc.Markers = append(sc.Markers, Marker{PMCID: rec.PMCID, At: toPixel(from), Color: start})
		}
		for _, ref := range rec.Refs {
			to, ok := coords.Point(ref)
			if !ok {
				continue
			}
			sc.Segments = append(sc.Segments, Segment{
				Citing: rec.PMCID,
				Cited:  ref,
				From:   toPixel(from),
				To:     toPixel(to),
				Start:  start,
				End:    style.ConstantColor,
			})
		}
	}
	return sc
}

func keywordColor(style Style, i int) color.RGBA {
	if i < len(style.KeywordColors) {
		return style.KeywordColors[i]
	}
	return style.NoneColor
}

func frameTitle(title string, year int) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Sprint(year)
	}
	return fmt.Sprintf("%s (%d)", title, year)
}

// pixelMapper scales layout coordinates onto the canvas, centered, with
// y flipped.
func pixelMapper(coords layout.Coordinates, style Style) func(layout.Point) Pixel {
	cx, cy := float64(style.Width)/2, float64(style.Height)/2
	scale := 1.0
	if r := coords.Radius(); r > 0 {
		scale = style.Radius / r
	}
	return func(p layout.Point) Pixel {
		return Pixel{X: cx + p.X*scale, Y: cy - p.Y*scale}
	}
}

// Subdivide returns steps evenly spaced points from a to b inclusive.
func Subdivide(a, b Pixel, steps int) []Pixel {
	if steps < 2 {
		steps = 2
	}
	pts := make([]Pixel, steps)
	for i := range pts {
		t := float64(i) / float64(steps-1)
		pts[i] = Pixel{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
	}
	return pts
}

// Gradient returns n colors from start to end inclusive.
func Gradient(start, end color.RGBA, n int) []color.RGBA {
	if n <= 1 {
		return []color.RGBA{start}
	}
	out := make([]color.RGBA, n)
	for i := range out {
		out[i] = Lerp(start, end, float64(i)/float64(n-1))
	}
	return out
}
