package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/methnet/pkg/types"
)

// FormatTable writes a human-readable summary of ds, one line per record.
func FormatTable(ds *types.Dataset, w io.Writer) {
	if ds.Len() == 0 {
		fmt.Fprintln(w, "No records.")
		return
	}

	fmt.Fprintf(w, "%-12s  %-4s  %-50s  %-24s  %4s  %s\n",
		"PMCID", "Year", "Title", "Keywords", "Refs", "Journal")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for _, r := range ds.Records {
		year := ""
		if r.Year > 0 {
			year = fmt.Sprintf("%d", r.Year)
		}
		fmt.Fprintf(w, "%-12s  %-4s  %-50s  %-24s  %4d  %s\n",
			r.PMCID, year, truncate(r.Title, 50), truncate(formatCounts(r, ds.Keywords), 24), len(r.Refs), truncate(r.Journal, 30))
	}

	unmatched := 0
	for _, r := range ds.Records {
		if !mentionsAny(r, ds.Keywords) {
			unmatched++
		}
	}
	fmt.Fprintf(w, "\n%d records, %d mention none of the keywords\n", ds.Len(), unmatched)
}

// FormatJSON writes ds as indented JSON.
func FormatJSON(ds *types.Dataset, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ds)
}

func formatCounts(r types.Record, kws []string) string {
	var parts []string
	for _, kw := range kws {
		if n := r.KeywordCounts[kw]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", kw, n))
		}
	}
	return strings.Join(parts, " ")
}

func mentionsAny(r types.Record, kws []string) bool {
	for _, kw := range kws {
		if r.KeywordCounts[kw] > 0 {
			return true
		}
	}
	return false
}

// truncate shortens s to at most max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
