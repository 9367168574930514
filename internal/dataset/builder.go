// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dataset builds the citation table for a PubMed query: search,
// PMID to PMCID translation, then one full-text and one citation request
// per paper. Finished tables are cached as CSV keyed by a data id.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/methnet/internal/eutils"
	"github.com/pdiddy/methnet/internal/keywords"
	"github.com/pdiddy/methnet/internal/observability"
	"github.com/pdiddy/methnet/internal/ratelimit"
	"github.com/pdiddy/methnet/pkg/types"
)

// Fetcher is the remote surface the builder needs. *eutils.Client
// satisfies it.
type Fetcher interface {
	Search(ctx context.Context, query string) (eutils.SearchResult, error)
	Translate(ctx context.Context, pmids []string) ([]eutils.IDPair, []string, error)
	FetchFullText(ctx context.Context, pmcid string, hist eutils.History) (eutils.FullText, error)
	FetchCitations(ctx context.Context, pmcid string) ([]string, string, error)
	LastBody() []byte
}

// State is the position of a build in its lifecycle.
type State int

const (
	StateNotStarted State = iota
	StateSearching
	StateTranslating
	StateFetchingPerRecord
	StatePersisted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not started"
	case StateSearching:
		return "searching"
	case StateTranslating:
		return "translating"
	case StateFetchingPerRecord:
		return "fetching records"
	case StatePersisted:
		return "persisted"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrInvalidRequest is returned for requests that cannot name a dataset.
var ErrInvalidRequest = errors.New("invalid dataset request")

// Request names one dataset.
type Request struct {
	Query    string
	Keywords []string
	DataID   string
	DataDir  string
}

func (r Request) validate() error {
	if strings.TrimSpace(r.DataID) == "" {
		return fmt.Errorf("%w: empty data id", ErrInvalidRequest)
	}
	if len(r.Keywords) == 0 {
		return fmt.Errorf("%w: no keywords", ErrInvalidRequest)
	}
	seen := make(map[string]bool, len(r.Keywords))
	for _, kw := range r.Keywords {
		switch {
		case strings.TrimSpace(kw) == "":
			return fmt.Errorf("%w: empty keyword", ErrInvalidRequest)
		case reservedColumn(kw):
			return fmt.Errorf("%w: keyword %q collides with a dataset column", ErrInvalidRequest, kw)
		case seen[kw]:
			return fmt.Errorf("%w: duplicate keyword %q", ErrInvalidRequest, kw)
		}
		seen[kw] = true
	}
	return nil
}

// Builder runs dataset builds. It is not safe for concurrent use.
type Builder struct {
	Client    Fetcher
	Throttler *ratelimit.Throttler
	Logger    zerolog.Logger
	Metrics   *observability.Metrics

	// Policy selects abort or skip on per-record fetch failures.
	Policy types.FailurePolicy

	// Resume keeps a per-record checkpoint so a rerun continues where a
	// failed run stopped.
	Resume bool

	state State
}

// State reports the state reached by the last Build.
func (b *Builder) State() State {
	return b.state
}

// Build returns the dataset for req, loading the cached CSV when one
// exists and running the full acquisition otherwise.
func (b *Builder) Build(ctx context.Context, req Request) (*types.Dataset, error) {
	b.state = StateNotStarted
	if err := req.validate(); err != nil {
		return nil, err
	}
	log := observability.WithRun(b.Logger, req.DataID, "")

	path := DataPath(req.DataDir, req.DataID)
	if _, err := os.Stat(path); err == nil {
		ds, err := ReadCSV(path)
		if err != nil {
			return nil, fmt.Errorf("loading cached dataset: %w", err)
		}
		log.Info().Str("path", path).Int("records", ds.Len()).Msg("dataset already downloaded")
		b.state = StatePersisted
		return ds, nil
	}

	ds := &types.Dataset{Keywords: append([]string(nil), req.Keywords...)}
	if err := b.collect(ctx, req, ds, log); err != nil {
		failedIn := b.state
		b.state = StateFailed
		b.dump(req, ds, log)
		log.Error().Err(err).
			Str("state", failedIn.String()).
			Str("eutils_stage", string(eutils.StageOf(err))).
			Str("url", eutils.URLOf(err)).
			Int("records", ds.Len()).
			Msg("dataset build failed")
		return nil, fmt.Errorf("%s: %w", failedIn, err)
	}

	if err := WriteCSV(path, ds); err != nil {
		b.state = StateFailed
		return nil, fmt.Errorf("saving dataset: %w", err)
	}
	if b.Resume {
		if err := RemoveCheckpoint(CheckpointPath(req.DataDir, req.DataID)); err != nil {
			log.Warn().Err(err).Msg("removing checkpoint")
		}
	}
	b.state = StatePersisted
	log.Info().Str("path", path).Int("records", ds.Len()).Msg("dataset saved")
	return ds, nil
}

func (b *Builder) collect(ctx context.Context, req Request, ds *types.Dataset, log zerolog.Logger) error {
	b.state = StateSearching
	log.Info().Str("query", req.Query).Msg("searching PubMed")
	found, err := b.Client.Search(ctx, req.Query)
	if err != nil {
		return err
	}
	log.Info().Int("hits", len(found.PMIDs)).Int("count", found.Count).Msg("search complete")

	b.state = StateTranslating
	pairs, _, err := b.Client.Translate(ctx, found.PMIDs)
	if err != nil {
		return err
	}
	pairs = searchOrder(found.PMIDs, pairs)
	log.Info().Int("papers", len(pairs)).Int("dropped", len(found.PMIDs)-len(pairs)).Msg("identifiers translated")

	b.state = StateFetchingPerRecord
	var done map[string]types.Record
	if b.Resume {
		cp, err := OpenCheckpoint(ctx, CheckpointPath(req.DataDir, req.DataID), Signature(req.Query, req.Keywords))
		if err != nil {
			return err
		}
		defer cp.Close()
		if done, err = cp.Completed(ctx); err != nil {
			return err
		}
		return b.fetchAll(ctx, req, found, pairs, ds, done, cp, log)
	}
	return b.fetchAll(ctx, req, found, pairs, ds, done, nil, log)
}

func (b *Builder) fetchAll(ctx context.Context, req Request, found eutils.SearchResult, pairs []eutils.IDPair,
	ds *types.Dataset, done map[string]types.Record, cp *Checkpoint, log zerolog.Logger) error {
	pending := 0
	for i, p := range pairs {
		if err := ctx.Err(); err != nil {
			return err
		}
		progress := fmt.Sprintf("%d / %d", i+1, len(pairs))

		if rec, ok := done[p.PMCID]; ok {
			ds.Records = append(ds.Records, rec)
			b.Metrics.RecordResumed()
			log.Debug().Str("pmcid", p.PMCID).Str("progress", progress).Msg("record resumed")
			continue
		}

		rec, requests, err := b.fetchRecord(ctx, req, found, p)
		pending += requests
		if err != nil {
			if b.Policy != types.PolicySkip || !eutils.IsFetchError(err) {
				return err
			}
			b.Metrics.RecordSkipped()
			log.Warn().Err(err).Str("pmcid", p.PMCID).Str("progress", progress).Msg("record skipped")
		} else {
			ds.Records = append(ds.Records, rec)
			b.Metrics.RecordFetched()
			if cp != nil {
				if err := cp.Append(ctx, rec); err != nil {
					return err
				}
			}
			log.Info().Str("pmcid", p.PMCID).Str("progress", progress).Msg("record fetched")
		}

		// Skipped records issued requests too.
		if b.Throttler.Throttle(pending) {
			pending = 0
		}
	}
	return nil
}

// fetchRecord assembles one record and reports how many requests it issued.
func (b *Builder) fetchRecord(ctx context.Context, req Request, found eutils.SearchResult, p eutils.IDPair) (types.Record, int, error) {
	ft, err := b.Client.FetchFullText(ctx, p.PMCID, found.History)
	if err != nil {
		return types.Record{}, 1, err
	}
	refs, linksURL, err := b.Client.FetchCitations(ctx, p.PMCID)
	if err != nil {
		return types.Record{}, 2, err
	}

	pmid := ft.PMID
	if pmid == "" {
		pmid = p.PMID
	}
	return types.Record{
		PMCID:         p.PMCID,
		PMID:          pmid,
		Year:          ft.Year,
		Month:         ft.Month,
		Title:         ft.Title,
		Journal:       ft.Journal,
		KeywordCounts: keywords.Count(ft.Text, req.Keywords),
		Refs:          refs,
		SearchURL:     found.URL,
		TranslateURL:  p.URL,
		FullTextURL:   ft.URL,
		LinksURL:      linksURL,
	}, 2, nil
}

// dump writes the partial table and the last raw response for postmortem
// and deletes any stale dataset file for the id.
func (b *Builder) dump(req Request, ds *types.Dataset, log zerolog.Logger) {
	tablePath := ErrorTablePath(req.DataDir, req.DataID)
	if err := WriteCSV(tablePath, ds); err != nil {
		log.Warn().Err(err).Msg("writing error table")
	}
	respPath := ErrorResponsePath(req.DataDir, req.DataID)
	if err := os.WriteFile(respPath, b.Client.LastBody(), 0o644); err != nil {
		log.Warn().Err(err).Msg("writing error response")
	}
	if err := os.Remove(DataPath(req.DataDir, req.DataID)); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("removing stale dataset")
	}
	log.Info().Str("table", tablePath).Str("response", respPath).Msg("failure dump written")
}

// searchOrder returns pairs ordered by the search result and deduplicated
// by PMCID.
func searchOrder(pmids []string, pairs []eutils.IDPair) []eutils.IDPair {
	byPMID := make(map[string]eutils.IDPair, len(pairs))
	for _, p := range pairs {
		byPMID[p.PMID] = p
	}
	ordered := make([]eutils.IDPair, 0, len(pairs))
	seen := make(map[string]bool, len(pairs))
	for _, id := range pmids {
		p, ok := byPMID[id]
		if !ok || seen[p.PMCID] {
			continue
		}
		seen[p.PMCID] = true
		ordered = append(ordered, p)
	}
	return ordered
}
