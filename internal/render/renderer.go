package render

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/rs/zerolog"

	"github.com/pdiddy/methnet/internal/layout"
	"github.com/pdiddy/methnet/internal/observability"
	"github.com/pdiddy/methnet/pkg/types"
)

// FramePath is the per-year PNG for gifID.
func FramePath(imageDir, gifID string, year int) string {
	return filepath.Join(imageDir, fmt.Sprintf("visualization__%s__%d.png", gifID, year))
}

// Frame is one rendered year.
type Frame struct {
	Year      int
	Path      string
	Image     image.Image
	Edges     int
	Records   int
	Unmatched int
}

// Renderer draws and saves frames for one figure.
type Renderer struct {
	Style    Style
	ImageDir string
	GIFID    string
	Logger   zerolog.Logger
	Metrics  *observability.Metrics

	// NewCanvas overrides the drawing surface; nil uses GGCanvas.
	NewCanvas func(width, height int) (Canvas, error)
}

// RenderYear draws the cumulative network up to year and writes it to
// FramePath.
func (r *Renderer) RenderYear(ds *types.Dataset, coords layout.Coordinates, year int) (Frame, error) {
	sc := BuildScene(ds, coords, year, r.Style)
	cv, err := r.canvas(sc.Style)
	if err != nil {
		return Frame{}, err
	}
	Draw(sc, cv)

	path := FramePath(r.ImageDir, r.GIFID, year)
	if err := os.MkdirAll(r.ImageDir, 0o755); err != nil {
		return Frame{}, fmt.Errorf("creating image directory: %w", err)
	}
	img := cv.Image()
	if err := gg.SavePNG(path, img); err != nil {
		return Frame{}, fmt.Errorf("saving frame %d: %w", year, err)
	}
	r.Metrics.FrameRendered()
	r.Logger.Info().
		Int("year", year).
		Int("records", sc.Records).
		Int("edges", len(sc.Segments)).
		Int("unmatched", sc.Unmatched).
		Str("path", path).
		Msg("frame rendered")

	return Frame{
		Year:      year,
		Path:      path,
		Image:     img,
		Edges:     len(sc.Segments),
		Records:   sc.Records,
		Unmatched: sc.Unmatched,
	}, nil
}

func (r *Renderer) canvas(st Style) (Canvas, error) {
	if r.NewCanvas != nil {
		return r.NewCanvas(st.Width, st.Height)
	}
	return NewGGCanvas(st.Width, st.Height, st.FontPath, st.FontSize)
}
