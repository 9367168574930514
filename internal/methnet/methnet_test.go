package methnet

import (
	"bytes"
	"context"
	"image/gif"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/methnet/internal/dataset"
	"github.com/pdiddy/methnet/internal/eutils"
	"github.com/pdiddy/methnet/internal/eutils/eutilstest"
	"github.com/pdiddy/methnet/internal/observability"
	"github.com/pdiddy/methnet/internal/ratelimit"
	"github.com/pdiddy/methnet/pkg/types"
)

func abServer(t *testing.T) *eutilstest.Server {
	t.Helper()
	srv := eutilstest.NewServer()
	t.Cleanup(srv.Close)
	srv.Hits = []string{"10", "20"}
	srv.PMCIDs["10"] = "PMC1"
	srv.PMCIDs["20"] = "PMC2"
	srv.Articles["1"] = eutilstest.Article{PMID: "10", Title: "A", Year: "2018", Body: "processed in SPM", Cites: []string{"2"}}
	srv.Articles["2"] = eutilstest.Article{PMID: "20", Title: "B", Year: "2017", Body: "no tools named"}
	return srv
}

func testOptions(t *testing.T, srv *eutilstest.Server) Options {
	t.Helper()
	quiet := ratelimit.New(false)
	quiet.Sleep = func(time.Duration) {}
	dir := t.TempDir()
	return Options{
		Query:    "fmri AND language",
		Keywords: []string{"spm", "afni"},
		DataID:   "ab",
		GIFID:    "ab",
		Data: types.DataConfig{
			NCBI:    types.NCBIConfig{Email: "dev@example.org"},
			DataDir: filepath.Join(dir, "data"),
		},
		Figure: types.FigureConfig{
			ImageDir:     filepath.Join(dir, "images"),
			MethodColors: []string{"green", "dodgerblue"},
			SortByYear:   true,
			Title:        "fmri",
			Size:         120,
		},
		Logger:  zerolog.Nop(),
		Metrics: observability.NewMetrics(),
		ClientOptions: []eutils.Option{
			eutils.WithHTTPClient(srv.Client()),
			eutils.WithBaseURLs(srv.EutilsURL(), srv.IDConvURL()),
			eutils.WithThrottler(quiet),
		},
	}
}

func TestGetData(t *testing.T) {
	srv := abServer(t)
	opts := testOptions(t, srv)

	ds, err := GetData(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	assert.FileExists(t, dataset.DataPath(opts.Data.DataDir, "ab"))
	assert.Equal(t, 1.0, testutil.ToFloat64(opts.Metrics.Requests.WithLabelValues("esearch")))

	again, err := GetData(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, ds, again)
	assert.Equal(t, 6, srv.Requests(""))
}

func TestGetMethnet(t *testing.T) {
	srv := abServer(t)
	opts := testOptions(t, srv)

	res, err := GetMethnet(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, filepath.Join(opts.Figure.ImageDir, "visualization__ab.gif"), res.GIFPath)
	assert.FileExists(t, res.PNGPath)
	assert.FileExists(t, filepath.Join(opts.Figure.ImageDir, "visualization__ab__2017.png"))
	assert.FileExists(t, filepath.Join(opts.Figure.ImageDir, "visualization__ab__2018.png"))
	assert.Equal(t, 2.0, testutil.ToFloat64(opts.Metrics.FramesRendered))

	f, err := os.Open(res.GIFPath)
	require.NoError(t, err)
	defer f.Close()
	g, err := gif.DecodeAll(f)
	require.NoError(t, err)
	assert.Len(t, g.Image, 2+10)

	m, err := ReadManifest(res.ManifestPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"spm", "afni"}, m.Keywords)
	require.Len(t, m.Frames, 2)
	assert.Equal(t, 2017, m.Frames[0].Year)
	assert.Equal(t, 0, m.Frames[0].Edges)
	assert.Equal(t, 2018, m.Frames[1].Year)
	assert.Equal(t, 1, m.Frames[1].Edges)
	assert.Equal(t, 1, m.Frames[1].Unmatched)
	assert.Equal(t, 2, m.Identifiers)
	assert.Equal(t, "#008000", m.Colors[0].Color)
	assert.Equal(t, "#000000", m.ConstantColor)
}

func TestGetMethnet_ExistingGIFRendersNothing(t *testing.T) {
	srv := abServer(t)
	opts := testOptions(t, srv)

	first, err := GetMethnet(context.Background(), opts)
	require.NoError(t, err)
	requests := srv.Requests("")

	opts.Metrics = observability.NewMetrics()
	var logs bytes.Buffer
	opts.Logger = zerolog.New(&logs)
	second, err := GetMethnet(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Contains(t, logs.String(), `"gif_id":"`+opts.GIFID+`"`)
	assert.Contains(t, logs.String(), `"data_id":"`+opts.DataID+`"`)
	assert.Equal(t, first.GIFPath, second.GIFPath)
	assert.Equal(t, first.Dataset, second.Dataset)
	assert.Equal(t, requests, srv.Requests(""))
	assert.Equal(t, 0.0, testutil.ToFloat64(opts.Metrics.FramesRendered))
}

func TestGetMethnet_NoDatedRecords(t *testing.T) {
	srv := eutilstest.NewServer()
	defer srv.Close()
	srv.Hits = []string{"10"}
	srv.PMCIDs["10"] = "PMC1"
	srv.Articles["1"] = eutilstest.Article{Title: "undated"}

	_, err := GetMethnet(context.Background(), testOptions(t, srv))
	assert.ErrorIs(t, err, ErrNoDatedRecords)
}

func TestGetMethnet_RequiresGIFID(t *testing.T) {
	opts := testOptions(t, abServer(t))
	opts.GIFID = ""
	_, err := GetMethnet(context.Background(), opts)
	assert.Error(t, err)
}
