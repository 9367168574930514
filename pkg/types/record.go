// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the methnet pipeline:
// the citation Record, the Dataset table, and stage configuration.
package types

import (
	"regexp"
	"sort"
	"strings"
)

// Record is one row of the dataset: a single PMC paper with its metadata,
// keyword mention counts, and outgoing citations.
type Record struct {
	// PMCID is the PubMed Central identifier in canonical "PMC<digits>" form.
	// It is the primary key of the dataset.
	PMCID string `json:"pmcid" yaml:"pmcid"`

	// PMID is the PubMed identifier embedded in the article metadata.
	PMID string `json:"pmid" yaml:"pmid"`

	// Year and Month of publication. Zero means absent.
	Year  int `json:"year" yaml:"year"`
	Month int `json:"month,omitempty" yaml:"month,omitempty"`

	Title   string `json:"title" yaml:"title"`
	Journal string `json:"journal" yaml:"journal"`

	// KeywordCounts maps each configured method keyword to its occurrence
	// count in the full text.
	KeywordCounts map[string]int `json:"keyword_counts" yaml:"keyword_counts"`

	// Refs lists the PMCIDs this paper cites, in link order. Entries need
	// not resolve to a Record in the same dataset.
	Refs []string `json:"refs" yaml:"refs"`

	// Provenance URLs of the requests that produced this record.
	SearchURL    string `json:"search_url,omitempty" yaml:"search_url,omitempty"`
	TranslateURL string `json:"idconv_url,omitempty" yaml:"idconv_url,omitempty"`
	FullTextURL  string `json:"fulltext_url,omitempty" yaml:"fulltext_url,omitempty"`
	LinksURL     string `json:"links_url,omitempty" yaml:"links_url,omitempty"`
}

// Dataset is the tabular result of a data acquisition run. Keywords fixes
// the keyword column order; Records keeps table order.
type Dataset struct {
	Keywords []string `json:"keywords" yaml:"keywords"`
	Records  []Record `json:"records" yaml:"records"`
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Years returns the distinct non-zero publication years in ascending order.
func (d *Dataset) Years() []int {
	seen := make(map[int]bool)
	var years []int
	for _, r := range d.Records {
		if r.Year <= 0 || seen[r.Year] {
			continue
		}
		seen[r.Year] = true
		years = append(years, r.Year)
	}
	sort.Ints(years)
	return years
}

var pmcidPattern = regexp.MustCompile(`^(?i:PMC)?(\d+)$`)

// NormalizePMCID returns the canonical "PMC<digits>" form of a PMC
// identifier given either as "PMC123" or as bare digits. The boolean is
// false when s is not PMC-identifier shaped.
func NormalizePMCID(s string) (string, bool) {
	m := pmcidPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	return "PMC" + m[1], true
}

// PMCIDNumber returns the numeric part of a PMC identifier, as used by
// efetch and elink for db=pmc.
func PMCIDNumber(pmcid string) string {
	m := pmcidPattern.FindStringSubmatch(strings.TrimSpace(pmcid))
	if m == nil {
		return ""
	}
	return m[1]
}
