// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package methnet is the pipeline entry point: GetData builds or loads the
// citation dataset and GetMethnet turns it into an animated citation
// network. Both are idempotent per identifier; existing outputs are reused.
package methnet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/rs/zerolog"

	"github.com/pdiddy/methnet/internal/animate"
	"github.com/pdiddy/methnet/internal/dataset"
	"github.com/pdiddy/methnet/internal/eutils"
	"github.com/pdiddy/methnet/internal/layout"
	"github.com/pdiddy/methnet/internal/observability"
	"github.com/pdiddy/methnet/internal/ratelimit"
	"github.com/pdiddy/methnet/internal/render"
	"github.com/pdiddy/methnet/pkg/types"
)

// layoutRadius is the circle radius in layout units; frames rescale it to
// pixels.
const layoutRadius = 10

// ErrNoDatedRecords is returned when no record has a publication year, so
// no frame can be drawn.
var ErrNoDatedRecords = errors.New("dataset has no dated records")

// Options carries everything one run needs.
type Options struct {
	Query    string
	Keywords []string
	DataID   string
	GIFID    string

	Data   types.DataConfig
	Figure types.FigureConfig

	Logger  zerolog.Logger
	Metrics *observability.Metrics

	// ClientOptions are applied to the E-utilities client, after the
	// logger, metrics and throttler derived from the fields above.
	ClientOptions []eutils.Option
}

// Result describes the outputs of GetMethnet.
type Result struct {
	GIFPath      string
	PNGPath      string
	ManifestPath string
	Dataset      *types.Dataset

	// Skipped is true when the GIF already existed and nothing was drawn.
	Skipped bool
}

// GIFPath is the animation for gifID.
func GIFPath(imageDir, gifID string) string {
	return filepath.Join(imageDir, "visualization__"+gifID+".gif")
}

// PNGPath is the final-year still for gifID.
func PNGPath(imageDir, gifID string) string {
	return filepath.Join(imageDir, "visualization__"+gifID+".png")
}

// ManifestPath is the run manifest for gifID.
func ManifestPath(imageDir, gifID string) string {
	return filepath.Join(imageDir, "visualization__"+gifID+".yaml")
}

// GetData returns the dataset for opts.DataID, downloading it when no
// cached copy exists.
func GetData(ctx context.Context, opts Options) (*types.Dataset, error) {
	log := opts.Logger.With().Str("stage", "data").Logger()

	throttle := ratelimit.New(opts.Data.NCBI.APIKey != "")
	clientOpts := append([]eutils.Option{
		eutils.WithLogger(log),
		eutils.WithMetrics(opts.Metrics),
		eutils.WithThrottler(throttle),
	}, opts.ClientOptions...)
	client := eutils.New(opts.Data.NCBI, clientOpts...)

	policy := opts.Data.OnError
	if policy == "" {
		policy = types.PolicyAbort
	}
	b := &dataset.Builder{
		Client:    client,
		Throttler: client.Throttler(),
		Logger:    log,
		Metrics:   opts.Metrics,
		Policy:    policy,
		Resume:    opts.Data.Resume,
	}
	return b.Build(ctx, dataset.Request{
		Query:    opts.Query,
		Keywords: opts.Keywords,
		DataID:   opts.DataID,
		DataDir:  opts.Data.DataDir,
	})
}

// GetMethnet builds the dataset, then renders one frame per publication
// year and assembles them into a GIF. When the GIF for opts.GIFID already
// exists the dataset is still loaded but nothing is drawn.
func GetMethnet(ctx context.Context, opts Options) (Result, error) {
	if opts.GIFID == "" {
		return Result{}, fmt.Errorf("empty gif id")
	}
	ds, err := GetData(ctx, opts)
	if err != nil {
		return Result{}, err
	}

	imageDir := opts.Figure.ImageDir
	res := Result{
		GIFPath:      GIFPath(imageDir, opts.GIFID),
		PNGPath:      PNGPath(imageDir, opts.GIFID),
		ManifestPath: ManifestPath(imageDir, opts.GIFID),
		Dataset:      ds,
	}
	log := observability.WithRun(opts.Logger, opts.DataID, opts.GIFID).With().Str("stage", "figure").Logger()

	if _, err := os.Stat(res.GIFPath); err == nil {
		log.Info().Str("path", res.GIFPath).Msg("figure already made")
		res.Skipped = true
		return res, nil
	}

	years := ds.Years()
	if len(years) == 0 {
		return res, ErrNoDatedRecords
	}

	style, err := render.NewStyle(opts.Figure, opts.Keywords)
	if err != nil {
		return res, fmt.Errorf("resolving figure style: %w", err)
	}
	ids := layout.IdentifierSet(ds, layout.Options{
		SortByYear: opts.Figure.SortByYear,
		Shuffle:    opts.Figure.Shuffle,
		Seed:       opts.Figure.Seed,
	})
	coords := layout.Circle(ids, layoutRadius)
	log.Info().Int("identifiers", len(ids)).Ints("years", years).Msg("making figure")

	r := &render.Renderer{
		Style:    style,
		ImageDir: imageDir,
		GIFID:    opts.GIFID,
		Logger:   log,
		Metrics:  opts.Metrics,
	}
	var (
		rendered []render.Frame
		frames   []animate.Frame
	)
	for _, year := range years {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		fr, err := r.RenderYear(ds, coords, year)
		if err != nil {
			return res, err
		}
		rendered = append(rendered, fr)
		frames = append(frames, animate.Frame{Year: fr.Year, Image: fr.Image})
	}

	final := rendered[len(rendered)-1]
	if err := gg.SavePNG(res.PNGPath, final.Image); err != nil {
		return res, fmt.Errorf("saving final frame: %w", err)
	}
	log.Info().
		Int("unmatched", final.Unmatched).
		Int("records", final.Records).
		Msg("papers mentioning none of the keywords")

	asm := animate.New()
	if opts.Figure.RepeatLast != 0 {
		asm.RepeatLast = opts.Figure.RepeatLast
	}
	if opts.Figure.FrameDelay > 0 {
		asm.FrameDelay = opts.Figure.FrameDelay
	}
	if _, err := asm.Assemble(frames, res.GIFPath); err != nil {
		return res, fmt.Errorf("assembling gif: %w", err)
	}

	m := newManifest(opts, style, ds, len(ids), rendered, res)
	if err := writeManifest(res.ManifestPath, m); err != nil {
		return res, err
	}
	log.Info().Str("gif", res.GIFPath).Str("png", res.PNGPath).Msg("figure saved")
	return res, nil
}
