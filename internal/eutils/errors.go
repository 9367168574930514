package eutils

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step a request belongs to.
type Stage string

const (
	StageSearch    Stage = "search"
	StageTranslate Stage = "translate"
	StageFullText  Stage = "fulltext"
	StageLinks     Stage = "links"
)

var (
	// ErrMalformedXML indicates a response body that could not be parsed.
	ErrMalformedXML = errors.New("malformed XML response")

	// ErrAPI indicates an E-utilities error element in an otherwise valid response.
	ErrAPI = errors.New("E-utilities error response")
)

// SearchError reports a failed search request.
type SearchError struct {
	Query string
	URL   string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search %q: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// TranslateError reports a failed identifier translation batch.
type TranslateError struct {
	// Batch is the zero-based index of the failing batch.
	Batch int
	URL   string
	Err   error
}

func (e *TranslateError) Error() string {
	return fmt.Sprintf("translate batch %d: %v", e.Batch, e.Err)
}

func (e *TranslateError) Unwrap() error { return e.Err }

// FetchError reports a failed per-record request (full text or citations).
type FetchError struct {
	Stage Stage
	PMCID string
	URL   string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.PMCID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err is a per-record fetch failure.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// StageOf returns the stage of a typed eutils error, or "" for other errors.
func StageOf(err error) Stage {
	var (
		se *SearchError
		te *TranslateError
		fe *FetchError
	)
	switch {
	case errors.As(err, &fe):
		return fe.Stage
	case errors.As(err, &te):
		return StageTranslate
	case errors.As(err, &se):
		return StageSearch
	default:
		return ""
	}
}

// URLOf returns the request URL carried by a typed eutils error.
func URLOf(err error) string {
	var (
		se *SearchError
		te *TranslateError
		fe *FetchError
	)
	switch {
	case errors.As(err, &fe):
		return fe.URL
	case errors.As(err, &te):
		return te.URL
	case errors.As(err, &se):
		return se.URL
	default:
		return ""
	}
}
