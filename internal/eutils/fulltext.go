package eutils

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// FullText is a PMC article as returned by efetch, with the metadata fields
// methnet keeps. Missing fields are left empty or zero.
type FullText struct {
	PMCID   string
	PMID    string
	Title   string
	Journal string
	Year    int
	Month   int

	// Text is the whole raw document, used for keyword counting.
	Text string
	URL  string
}

// FetchFullText retrieves the JATS XML for pmcid. Only unreadable XML or a
// failed request is an error; absent fields degrade to empty values.
func (c *Client) FetchFullText(ctx context.Context, pmcid string, hist History) (FullText, error) {
	reqURL := c.FullTextURL(pmcid, hist)
	ft := FullText{PMCID: pmcid, URL: reqURL}

	body, err := c.get(ctx, endpointFetch, reqURL)
	if err != nil {
		return ft, &FetchError{Stage: StageFullText, PMCID: pmcid, URL: reqURL, Err: err}
	}
	ft.Text = string(body)

	meta, err := parseArticleMeta(body)
	if err != nil {
		return ft, &FetchError{Stage: StageFullText, PMCID: pmcid, URL: reqURL, Err: err}
	}
	ft.PMID = meta.pmid
	ft.Title = meta.title
	ft.Journal = meta.journal
	ft.Year = parseYear(meta.year)
	ft.Month = parseMonth(meta.month)
	return ft, nil
}

type articleMeta struct {
	title, journal, month, year, pmid string
	found                             map[string]bool
}

// metaFields is the number of distinct fields parseArticleMeta collects.
const metaFields = 5

// parseArticleMeta walks the document once and keeps the first occurrence
// of each field of interest. It stops as soon as every field is found.
func parseArticleMeta(body []byte) (articleMeta, error) {
	meta := articleMeta{found: make(map[string]bool)}

	d := xml.NewDecoder(bytes.NewReader(body))
	d.Strict = false
	d.AutoClose = xml.HTMLAutoClose
	d.Entity = xml.HTMLEntity

	for len(meta.found) < metaFields {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return meta, nil
		}
		if err != nil {
			return meta, fmt.Errorf("%w: %v", ErrMalformedXML, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		field := fieldFor(start)
		if field == "" || meta.found[field] {
			continue
		}
		text, err := elementText(d)
		if err != nil {
			return meta, fmt.Errorf("%w: %v", ErrMalformedXML, err)
		}
		meta.found[field] = true
		switch field {
		case "title":
			meta.title = text
		case "journal":
			meta.journal = text
		case "month":
			meta.month = text
		case "year":
			meta.year = text
		case "pmid":
			meta.pmid = text
		}
	}
	return meta, nil
}

func fieldFor(start xml.StartElement) string {
	switch start.Name.Local {
	case "article-title":
		return "title"
	case "journal-title":
		return "journal"
	case "month":
		return "month"
	case "year":
		return "year"
	case "article-id":
		for _, a := range start.Attr {
			if a.Name.Local == "pub-id-type" && a.Value == "pmid" {
				return "pmid"
			}
		}
	}
	return ""
}

// elementText consumes tokens up to the end of the current element and
// returns its character data, nested markup included, with whitespace
// collapsed.
func elementText(d *xml.Decoder) (string, error) {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			b.Write(t)
		}
	}
	return strings.Join(strings.Fields(b.String()), " "), nil
}

func parseYear(s string) int {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || y < 0 {
		return 0
	}
	return y
}

var monthNames = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// parseMonth accepts numeric months and English month names or abbreviations.
func parseMonth(s string) int {
	s = strings.TrimSpace(s)
	if m, err := strconv.Atoi(s); err == nil {
		if m >= 1 && m <= 12 {
			return m
		}
		return 0
	}
	if len(s) >= 3 {
		return monthNames[strings.ToLower(s[:3])]
	}
	return 0
}
