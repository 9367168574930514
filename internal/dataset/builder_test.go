package dataset

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/methnet/internal/eutils"
	"github.com/pdiddy/methnet/internal/eutils/eutilstest"
	"github.com/pdiddy/methnet/internal/httputil"
	"github.com/pdiddy/methnet/internal/observability"
	"github.com/pdiddy/methnet/internal/ratelimit"
	"github.com/pdiddy/methnet/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func quietThrottler(slept *[]time.Duration) *ratelimit.Throttler {
	th := ratelimit.New(false)
	th.Sleep = func(d time.Duration) {
		if slept != nil {
			*slept = append(*slept, d)
		}
	}
	return th
}

func newBuilder(t *testing.T, srv *eutilstest.Server) (*Builder, *[]time.Duration) {
	t.Helper()
	client := eutils.New(types.NCBIConfig{Email: "dev@example.org"},
		eutils.WithHTTPClient(srv.Client()),
		eutils.WithBaseURLs(srv.EutilsURL(), srv.IDConvURL()),
		eutils.WithThrottler(quietThrottler(nil)),
	)
	var slept []time.Duration
	return &Builder{
		Client:    client,
		Throttler: quietThrottler(&slept),
		Logger:    zerolog.Nop(),
		Metrics:   observability.NewMetrics(),
		Policy:    types.PolicyAbort,
	}, &slept
}

// twoPaperServer serves three hits, two with PMC copies.
func twoPaperServer(t *testing.T) *eutilstest.Server {
	t.Helper()
	srv := eutilstest.NewServer()
	t.Cleanup(srv.Close)
	srv.Hits = []string{"11", "22", "33"}
	srv.PMCIDs["11"] = "PMC1"
	srv.PMCIDs["33"] = "PMC3"
	srv.Articles["1"] = eutilstest.Article{PMID: "11", Title: "First", Journal: "NeuroImage", Year: "2017", Month: "3", Body: "afni afni", Cites: []string{"3", "9"}}
	srv.Articles["3"] = eutilstest.Article{PMID: "33", Title: "Third", Journal: "Brain", Year: "2018", Body: "spm"}
	return srv
}

func TestBuild_EndToEnd(t *testing.T) {
	srv := eutilstest.NewServer()
	defer srv.Close()
	srv.Hits = []string{"100", "200"}
	srv.PMCIDs["100"] = "PMC1"
	srv.Articles["1"] = eutilstest.Article{
		PMID:    "100",
		Title:   "Analysis of fMRI data",
		Journal: "Hum Brain Mapp",
		Year:    "2019",
		Body:    "We used SPM and later spm12.",
		Cites:   []string{"5"},
	}

	b, _ := newBuilder(t, srv)
	dir := t.TempDir()
	ds, err := b.Build(context.Background(), Request{Query: "fmri", Keywords: []string{"spm", "afni"}, DataID: "x", DataDir: dir})
	require.NoError(t, err)
	assert.Equal(t, StatePersisted, b.State())

	require.Len(t, ds.Records, 1)
	rec := ds.Records[0]
	assert.Equal(t, "PMC1", rec.PMCID)
	assert.Equal(t, "100", rec.PMID)
	assert.Equal(t, 2019, rec.Year)
	assert.Equal(t, map[string]int{"spm": 2, "afni": 0}, rec.KeywordCounts)
	assert.Equal(t, []string{"PMC5"}, rec.Refs)
	assert.Contains(t, rec.SearchURL, "esearch.fcgi")
	assert.Contains(t, rec.TranslateURL, "idconv")
	assert.Contains(t, rec.FullTextURL, "efetch.fcgi")
	assert.Contains(t, rec.LinksURL, "elink.fcgi")

	data, err := os.ReadFile(DataPath(dir, "x"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "pmcid,pmid,month,year,title,journal,refs,spm,afni,search_url"))
	assert.Contains(t, lines[1], "PMC1,100,,2019,Analysis of fMRI data,Hum Brain Mapp,[5],2,0,")

	assert.Equal(t, 1.0, testutil.ToFloat64(b.Metrics.RecordsFetched))
}

func TestBuild_CachedRunIssuesNoRequests(t *testing.T) {
	srv := twoPaperServer(t)
	b, _ := newBuilder(t, srv)
	req := Request{Query: "q", Keywords: []string{"spm", "afni"}, DataID: "cached", DataDir: t.TempDir()}

	first, err := b.Build(context.Background(), req)
	require.NoError(t, err)
	requests := srv.Requests("")
	assert.Equal(t, 1+1+2+2, requests)

	second, err := b.Build(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, requests, srv.Requests(""), "cached build must not touch the network")
	assert.Equal(t, first, second)
	assert.Equal(t, StatePersisted, b.State())
}

func TestBuild_KeepsSearchOrder(t *testing.T) {
	srv := twoPaperServer(t)
	b, _ := newBuilder(t, srv)
	ds, err := b.Build(context.Background(), Request{Query: "q", Keywords: []string{"spm"}, DataID: "order", DataDir: t.TempDir()})
	require.NoError(t, err)

	require.Len(t, ds.Records, 2)
	assert.Equal(t, "PMC1", ds.Records[0].PMCID)
	assert.Equal(t, "PMC3", ds.Records[1].PMCID)
	assert.Equal(t, 3, ds.Records[0].Month)
	assert.Equal(t, []string{}, ds.Records[1].Refs)
}

func TestBuild_ZeroResultsPersistsEmptyDataset(t *testing.T) {
	srv := eutilstest.NewServer()
	defer srv.Close()
	b, _ := newBuilder(t, srv)
	dir := t.TempDir()

	ds, err := b.Build(context.Background(), Request{Query: "nothing", Keywords: []string{"spm"}, DataID: "empty", DataDir: dir})
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
	assert.FileExists(t, DataPath(dir, "empty"))
	assert.Equal(t, 0, srv.Requests("efetch"))
}

func TestBuild_AbortDumpsPartialTable(t *testing.T) {
	srv := twoPaperServer(t)
	srv.FailFetch["3"] = true
	b, _ := newBuilder(t, srv)
	var logs bytes.Buffer
	b.Logger = zerolog.New(&logs)
	dir := t.TempDir()

	_, err := b.Build(context.Background(), Request{Query: "q", Keywords: []string{"spm", "afni"}, DataID: "bad", DataDir: dir})
	require.Error(t, err)
	assert.Equal(t, StateFailed, b.State())
	assert.Contains(t, logs.String(), `"data_id":"bad"`)
	assert.Contains(t, logs.String(), `"eutils_stage":"fulltext"`)
	assert.Regexp(t, `"url":"[^"]*efetch\.fcgi`, logs.String())
	assert.True(t, strings.HasPrefix(err.Error(), "fetching records: "))

	var fe *eutils.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "PMC3", fe.PMCID)
	assert.Equal(t, eutils.StageFullText, fe.Stage)
	assert.ErrorIs(t, err, httputil.ErrStatus)

	assert.NoFileExists(t, DataPath(dir, "bad"))
	partial, err := ReadCSV(ErrorTablePath(dir, "bad"))
	require.NoError(t, err)
	require.Len(t, partial.Records, 1)
	assert.Equal(t, "PMC1", partial.Records[0].PMCID)

	resp, err := os.ReadFile(ErrorResponsePath(dir, "bad"))
	require.NoError(t, err)
	assert.Equal(t, "<error>backend unavailable</error>", string(resp))
}

func TestBuild_SkipPolicyContinues(t *testing.T) {
	srv := twoPaperServer(t)
	srv.FailFetch["1"] = true
	b, _ := newBuilder(t, srv)
	b.Policy = types.PolicySkip
	dir := t.TempDir()

	ds, err := b.Build(context.Background(), Request{Query: "q", Keywords: []string{"spm"}, DataID: "skip", DataDir: dir})
	require.NoError(t, err)
	require.Len(t, ds.Records, 1)
	assert.Equal(t, "PMC3", ds.Records[0].PMCID)
	assert.Equal(t, 1.0, testutil.ToFloat64(b.Metrics.RecordsSkipped))
	assert.FileExists(t, DataPath(dir, "skip"))
}

type failingSearch struct{ *eutils.Client }

func (failingSearch) Search(_ context.Context, query string) (eutils.SearchResult, error) {
	return eutils.SearchResult{}, &eutils.SearchError{Query: query, Err: eutils.ErrAPI}
}

func (failingSearch) LastBody() []byte { return []byte("<eSearchResult><ERROR>bad</ERROR></eSearchResult>") }

func TestBuild_SearchFailureAbortsUnderSkipPolicy(t *testing.T) {
	dir := t.TempDir()
	b := &Builder{Client: failingSearch{}, Logger: zerolog.Nop(), Policy: types.PolicySkip}

	_, err := b.Build(context.Background(), Request{Query: "q", Keywords: []string{"spm"}, DataID: "s", DataDir: dir})
	var se *eutils.SearchError
	require.True(t, errors.As(err, &se))
	assert.True(t, strings.HasPrefix(err.Error(), "searching: "))
	assert.Equal(t, StateFailed, b.State())
	assert.FileExists(t, ErrorTablePath(dir, "s"))
	assert.FileExists(t, ErrorResponsePath(dir, "s"))
}

func TestBuild_ResumeSkipsCompletedRecords(t *testing.T) {
	srv := twoPaperServer(t)
	srv.FailFetch["3"] = true
	b, _ := newBuilder(t, srv)
	b.Resume = true
	dir := t.TempDir()
	req := Request{Query: "q", Keywords: []string{"spm", "afni"}, DataID: "resume", DataDir: dir}

	_, err := b.Build(context.Background(), req)
	require.Error(t, err)
	assert.FileExists(t, CheckpointPath(dir, "resume"))
	assert.Equal(t, 2, srv.Requests("efetch"))

	delete(srv.FailFetch, "3")
	ds, err := b.Build(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, ds.Records, 2)
	assert.Equal(t, "PMC1", ds.Records[0].PMCID)
	assert.Equal(t, 3, srv.Requests("efetch"), "completed record must not be fetched again")
	assert.Equal(t, 1.0, testutil.ToFloat64(b.Metrics.RecordsResumed))
	assert.NoFileExists(t, CheckpointPath(dir, "resume"))
}

func TestBuild_WithoutResumeRestarts(t *testing.T) {
	srv := twoPaperServer(t)
	srv.FailFetch["3"] = true
	b, _ := newBuilder(t, srv)
	req := Request{Query: "q", Keywords: []string{"spm"}, DataID: "fresh", DataDir: t.TempDir()}

	_, err := b.Build(context.Background(), req)
	require.Error(t, err)
	delete(srv.FailFetch, "3")
	_, err = b.Build(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 4, srv.Requests("efetch"))
}

func TestBuild_ThrottlesAfterRecords(t *testing.T) {
	srv := eutilstest.NewServer()
	defer srv.Close()
	for _, id := range []string{"1", "2", "3"} {
		srv.Hits = append(srv.Hits, "10"+id)
		srv.PMCIDs["10"+id] = "PMC" + id
		srv.Articles[id] = eutilstest.Article{Year: "2020"}
	}
	b, slept := newBuilder(t, srv)

	_, err := b.Build(context.Background(), Request{Query: "q", Keywords: []string{"spm"}, DataID: "t", DataDir: t.TempDir()})
	require.NoError(t, err)
	// Two requests per record against a ceiling of three: one pause after
	// the second record.
	assert.Equal(t, []time.Duration{ratelimit.DefaultPause}, *slept)
}

func TestBuild_ThrottlesSkippedRecords(t *testing.T) {
	srv := eutilstest.NewServer()
	defer srv.Close()
	for i := 0; i < 10; i++ {
		id := strconv.Itoa(i + 1)
		srv.Hits = append(srv.Hits, "10"+id)
		srv.PMCIDs["10"+id] = "PMC" + id
		srv.FailFetch[id] = true
	}
	b, slept := newBuilder(t, srv)
	b.Policy = types.PolicySkip

	ds, err := b.Build(context.Background(), Request{Query: "q", Keywords: []string{"spm"}, DataID: "allfail", DataDir: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, ds.Records)
	assert.Equal(t, 10, srv.Requests("efetch"))
	assert.Equal(t, 10.0, testutil.ToFloat64(b.Metrics.RecordsSkipped))
	// One failed efetch per record against a ceiling of three: a pause
	// after the fourth and the eighth record.
	assert.Equal(t, []time.Duration{ratelimit.DefaultPause, ratelimit.DefaultPause}, *slept)
}

func TestBuild_InvalidRequest(t *testing.T) {
	b := &Builder{Logger: zerolog.Nop()}
	tests := []struct {
		name string
		req  Request
	}{
		{"empty id", Request{Keywords: []string{"spm"}}},
		{"no keywords", Request{DataID: "x"}},
		{"blank keyword", Request{DataID: "x", Keywords: []string{" "}}},
		{"reserved column", Request{DataID: "x", Keywords: []string{"year"}}},
		{"duplicate", Request{DataID: "x", Keywords: []string{"spm", "spm"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Build(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestBuild_CancelledContext(t *testing.T) {
	srv := twoPaperServer(t)
	b, _ := newBuilder(t, srv)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Build(ctx, Request{Query: "q", Keywords: []string{"spm"}, DataID: "c", DataDir: t.TempDir()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "searching", StateSearching.String())
	assert.Equal(t, "fetching records", StateFetchingPerRecord.String())
	assert.Equal(t, "State(42)", State(42).String())
}

func TestCheckpoint_SignatureMismatchClears(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cp.db")

	cp, err := OpenCheckpoint(ctx, path, Signature("q", []string{"spm"}))
	require.NoError(t, err)
	require.NoError(t, cp.Append(ctx, types.Record{PMCID: "PMC1", Year: 2020, KeywordCounts: map[string]int{"spm": 1}}))
	require.NoError(t, cp.Close())

	cp, err = OpenCheckpoint(ctx, path, Signature("q", []string{"spm"}))
	require.NoError(t, err)
	done, err := cp.Completed(ctx)
	require.NoError(t, err)
	require.Contains(t, done, "PMC1")
	assert.Equal(t, []string{}, done["PMC1"].Refs)
	require.NoError(t, cp.Close())

	cp, err = OpenCheckpoint(ctx, path, Signature("q", []string{"spm", "afni"}))
	require.NoError(t, err)
	done, err = cp.Completed(ctx)
	require.NoError(t, err)
	assert.Empty(t, done)

	require.NoError(t, cp.Close())
	require.NoError(t, RemoveCheckpoint(path))
	assert.NoFileExists(t, path)
}
