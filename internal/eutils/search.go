package eutils

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"
)

// History is the esearch history-server context (usehistory=y).
type History struct {
	QueryKey string `json:"query_key,omitempty" yaml:"query_key,omitempty"`
	WebEnv   string `json:"webenv,omitempty" yaml:"webenv,omitempty"`
}

// SearchResult holds the PMIDs matching a query.
type SearchResult struct {
	PMIDs []string

	// Count is the total number of matches reported by PubMed, which can
	// exceed len(PMIDs) when the result cap truncated the list.
	Count     int
	Truncated bool
	History   History
	URL       string
}

// Search runs one esearch against PubMed. Zero matches, including a
// phrase-not-found error list, is an empty result rather than an error.
// Matches beyond the configured cap are dropped with a warning; there is
// no pagination.
func (c *Client) Search(ctx context.Context, query string) (SearchResult, error) {
	reqURL := c.SearchURL(query)
	out := SearchResult{URL: reqURL}

	body, err := c.get(ctx, endpointSearch, reqURL)
	if err != nil {
		return out, &SearchError{Query: query, URL: reqURL, Err: err}
	}

	var res eSearchResult
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&res); err != nil {
		return out, &SearchError{Query: query, URL: reqURL, Err: fmt.Errorf("%w: %v", ErrMalformedXML, err)}
	}
	if res.Error != "" {
		return out, &SearchError{Query: query, URL: reqURL, Err: fmt.Errorf("%w: %s", ErrAPI, strings.TrimSpace(res.Error))}
	}
	if res.ErrorList != nil && len(res.ErrorList.PhraseNotFound) > 0 && len(res.IDList.IDs) == 0 {
		c.log.Warn().Strs("phrases", res.ErrorList.PhraseNotFound).Msg("search phrases not found")
		return out, nil
	}

	for _, id := range res.IDList.IDs {
		if id = strings.TrimSpace(id); id != "" {
			out.PMIDs = append(out.PMIDs, id)
		}
	}
	out.Count = res.Count
	out.History = History{QueryKey: res.QueryKey, WebEnv: res.WebEnv}

	if res.Count > c.cfg.MaxResults {
		out.Truncated = true
		c.log.Warn().
			Int("matches", res.Count).
			Int("cap", c.cfg.MaxResults).
			Msg("search matched more papers than the result cap; extra results are dropped")
	}
	if len(out.PMIDs) > c.cfg.MaxResults {
		out.PMIDs = out.PMIDs[:c.cfg.MaxResults]
	}
	return out, nil
}
