package eutils

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/pdiddy/methnet/pkg/types"
)

const citesLinkName = "pmc_pmc_cites"

// FetchCitations lists the PMC papers cited by pmcid, in link order, as
// canonical PMCIDs. It also returns the request URL. A paper without
// citation links yields an empty list.
func (c *Client) FetchCitations(ctx context.Context, pmcid string) ([]string, string, error) {
	reqURL := c.LinksURL(pmcid)

	body, err := c.get(ctx, endpointLink, reqURL)
	if err != nil {
		return nil, reqURL, &FetchError{Stage: StageLinks, PMCID: pmcid, URL: reqURL, Err: err}
	}

	var res eLinkResult
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&res); err != nil {
		return nil, reqURL, &FetchError{Stage: StageLinks, PMCID: pmcid, URL: reqURL, Err: fmt.Errorf("%w: %v", ErrMalformedXML, err)}
	}
	if res.Error != "" {
		return nil, reqURL, &FetchError{Stage: StageLinks, PMCID: pmcid, URL: reqURL, Err: fmt.Errorf("%w: %s", ErrAPI, strings.TrimSpace(res.Error))}
	}
	return citedIDs(res), reqURL, nil
}

// citedIDs collects the pmc_pmc_cites links in document order, dropping
// malformed and repeated identifiers.
func citedIDs(res eLinkResult) []string {
	refs := []string{}
	seen := make(map[string]bool)
	for _, ls := range res.LinkSets {
		for _, db := range ls.LinkSetDbs {
			if db.LinkName != citesLinkName {
				continue
			}
			for _, l := range db.Links {
				id, ok := types.NormalizePMCID(l.ID)
				if !ok || seen[id] {
					continue
				}
				seen[id] = true
				refs = append(refs, id)
			}
		}
	}
	return refs
}
