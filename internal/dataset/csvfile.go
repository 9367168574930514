package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdiddy/methnet/pkg/types"
)

// Fixed columns of the dataset file. Keyword columns sit between refs and
// the provenance URL columns.
var (
	leadColumns = []string{"pmcid", "pmid", "month", "year", "title", "journal", "refs"}
	urlColumns  = []string{"search_url", "idconv_url", "fulltext_url", "links_url"}
)

// reservedColumn reports whether name is a fixed column of the dataset file.
func reservedColumn(name string) bool {
	for _, c := range leadColumns {
		if c == name {
			return true
		}
	}
	for _, c := range urlColumns {
		if c == name {
			return true
		}
	}
	return false
}

// DataPath is the dataset file for dataID.
func DataPath(dir, dataID string) string {
	return filepath.Join(dir, "pubmed_data__"+dataID+".csv")
}

// ErrorTablePath holds the partial table dumped by a failed run.
func ErrorTablePath(dir, dataID string) string {
	return filepath.Join(dir, "pubmed_data__"+dataID+"__error.csv")
}

// ErrorResponsePath holds the last raw response of a failed run.
func ErrorResponsePath(dir, dataID string) string {
	return filepath.Join(dir, "pubmed_data__"+dataID+"__error_response.xml")
}

// CheckpointPath is the per-record resume log for dataID.
func CheckpointPath(dir, dataID string) string {
	return filepath.Join(dir, "pubmed_data__"+dataID+".checkpoint.db")
}

// WriteCSV writes ds to path through a temporary file renamed into place,
// so a crash never leaves a truncated dataset behind.
func WriteCSV(path string, ds *types.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(path), err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".dataset-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	writeErr := EncodeCSV(tmpFile, ds)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing dataset: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// EncodeCSV writes the header and one row per record.
func EncodeCSV(w io.Writer, ds *types.Dataset) error {
	cw := csv.NewWriter(w)

	header := append([]string{}, leadColumns...)
	header = append(header, ds.Keywords...)
	header = append(header, urlColumns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range ds.Records {
		row := []string{
			r.PMCID,
			r.PMID,
			optionalInt(r.Month),
			optionalInt(r.Year),
			r.Title,
			r.Journal,
			FormatRefs(r.Refs),
		}
		for _, kw := range ds.Keywords {
			row = append(row, strconv.Itoa(r.KeywordCounts[kw]))
		}
		row = append(row, r.SearchURL, r.TranslateURL, r.FullTextURL, r.LinksURL)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV loads a dataset file. Keyword columns are recovered from the
// header in file order.
func ReadCSV(path string) (*types.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ds, err := DecodeCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ds, nil
}

// DecodeCSV parses the dataset file format.
func DecodeCSV(r io.Reader) (*types.Dataset, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("missing header")
	}

	col := make(map[string]int)
	ds := &types.Dataset{}
	for i, name := range rows[0] {
		col[name] = i
		if !reservedColumn(name) {
			ds.Keywords = append(ds.Keywords, name)
		}
	}
	if _, ok := col["pmcid"]; !ok {
		return nil, fmt.Errorf("missing pmcid column")
	}

	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	for n, row := range rows[1:] {
		line := n + 2
		rec := types.Record{
			PMCID:         get(row, "pmcid"),
			PMID:          get(row, "pmid"),
			Title:         get(row, "title"),
			Journal:       get(row, "journal"),
			SearchURL:     get(row, "search_url"),
			TranslateURL:  get(row, "idconv_url"),
			FullTextURL:   get(row, "fulltext_url"),
			LinksURL:      get(row, "links_url"),
			KeywordCounts: make(map[string]int, len(ds.Keywords)),
		}
		if rec.Month, err = parseOptionalInt(get(row, "month")); err != nil {
			return nil, fmt.Errorf("line %d: month: %w", line, err)
		}
		if rec.Year, err = parseOptionalInt(get(row, "year")); err != nil {
			return nil, fmt.Errorf("line %d: year: %w", line, err)
		}
		if rec.Refs, err = ParseRefs(get(row, "refs")); err != nil {
			return nil, fmt.Errorf("line %d: refs: %w", line, err)
		}
		for _, kw := range ds.Keywords {
			v, err := parseCount(get(row, kw))
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, kw, err)
			}
			rec.KeywordCounts[kw] = v
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

// FormatRefs renders refs as a literal list of integers, e.g. "[123, 456]".
func FormatRefs(refs []string) string {
	nums := make([]string, 0, len(refs))
	for _, r := range refs {
		if n := types.PMCIDNumber(r); n != "" {
			nums = append(nums, n)
		}
	}
	return "[" + strings.Join(nums, ", ") + "]"
}

// ParseRefs reads a literal list written by FormatRefs. Quoted entries and
// PMC-prefixed entries are accepted. The result is never nil.
func ParseRefs(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	refs := []string{}
	if s == "" {
		return refs, nil
	}
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("not a list literal: %q", s)
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return refs, nil
	}
	for _, part := range strings.Split(inner, ",") {
		part = strings.Trim(strings.TrimSpace(part), `'"`)
		id, ok := types.NormalizePMCID(part)
		if !ok {
			return nil, fmt.Errorf("bad identifier %q", part)
		}
		refs = append(refs, id)
	}
	return refs, nil
}

func optionalInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func parseOptionalInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	// Tables written by other tools may carry floats such as "2019.0".
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("not a finite number: %q", s)
		}
		return int(f), nil
	}
	return strconv.Atoi(s)
}

// parseCount accepts integer counts and the boolean form some older tables use.
func parseCount(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "false":
		return 0, nil
	case "true":
		return 1, nil
	}
	return parseOptionalInt(s)
}
