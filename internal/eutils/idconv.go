package eutils

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
)

// IDPair is one PMID to PMCID translation together with the request that
// produced it.
type IDPair struct {
	PMID  string
	PMCID string
	URL   string
}

// pmcidAttr matches the converter's pmcid attribute convention.
var pmcidAttr = regexp.MustCompile(`^PMC\d+$`)

// Translate converts PMIDs to PMCIDs in batches of at most
// MaxTranslateBatch identifiers. PMIDs without a PMC counterpart are
// dropped silently. The result is a set of explicit pairs; its order
// follows the converter's responses and callers must not rely on it
// matching the input. The request URLs are returned in batch order.
func (c *Client) Translate(ctx context.Context, pmids []string) ([]IDPair, []string, error) {
	var (
		pairs   []IDPair
		urls    []string
		pending int
	)
	for i, batch := range Batches(pmids, MaxTranslateBatch) {
		if i > 0 && c.throttle.Throttle(pending) {
			pending = 0
		}
		reqURL := c.TranslateURL(batch)
		urls = append(urls, reqURL)

		got, err := c.translateBatch(ctx, batch, reqURL)
		pending++
		if err != nil {
			return pairs, urls, &TranslateError{Batch: i, URL: reqURL, Err: err}
		}
		pairs = append(pairs, got...)
	}
	return pairs, urls, nil
}

func (c *Client) translateBatch(ctx context.Context, batch []string, reqURL string) ([]IDPair, error) {
	body, err := c.get(ctx, endpointIDConv, reqURL)
	if err != nil {
		return nil, err
	}

	var res idconvResponse
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
	}
	if res.Status == "error" && len(res.Records) == 0 {
		return nil, fmt.Errorf("%w: converter status error", ErrAPI)
	}

	requested := make(map[string]bool, len(batch))
	for _, id := range batch {
		requested[strings.TrimSpace(id)] = true
	}

	var pairs []IDPair
	seen := make(map[string]bool)
	for _, rec := range res.Records {
		pmcid := strings.TrimSpace(rec.PMCID)
		if !pmcidAttr.MatchString(pmcid) {
			continue
		}
		pmid := strings.TrimSpace(rec.RequestedID)
		if pmid == "" {
			pmid = strings.TrimSpace(rec.PMID)
		}
		if !requested[pmid] || seen[pmid] {
			continue
		}
		seen[pmid] = true
		pairs = append(pairs, IDPair{PMID: pmid, PMCID: pmcid, URL: reqURL})
	}
	return pairs, nil
}

// Batches splits ids into consecutive chunks of at most size elements.
func Batches(ids []string, size int) [][]string {
	if size <= 0 {
		size = MaxTranslateBatch
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
