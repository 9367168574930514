package dataset

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/methnet/pkg/types"
)

func TestFormatRefs(t *testing.T) {
	assert.Equal(t, "[]", FormatRefs(nil))
	assert.Equal(t, "[123, 456]", FormatRefs([]string{"PMC123", "PMC456"}))
	assert.Equal(t, "[7]", FormatRefs([]string{"bogus", "7"}))
}

func TestParseRefs(t *testing.T) {
	tests := []struct {
		in      string
		want    []string
		wantErr bool
	}{
		{"", []string{}, false},
		{"[]", []string{}, false},
		{"[123, 456]", []string{"PMC123", "PMC456"}, false},
		{"['PMC9']", []string{"PMC9"}, false},
		{"123", nil, true},
		{"[abc]", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRefs(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteReadCSV(t *testing.T) {
	ds := &types.Dataset{
		Keywords: []string{"spm", "afni"},
		Records: []types.Record{
			{
				PMCID:         "PMC1",
				PMID:          "100",
				Year:          2019,
				Month:         6,
				Title:         "Comma, and \"quotes\"",
				Journal:       "NeuroImage",
				KeywordCounts: map[string]int{"spm": 2, "afni": 0},
				Refs:          []string{"PMC5", "PMC6"},
				SearchURL:     "https://example.org/esearch.fcgi?term=a",
				TranslateURL:  "https://example.org/idconv/?ids=1%2C2",
				FullTextURL:   "https://example.org/efetch.fcgi?id=1",
				LinksURL:      "https://example.org/elink.fcgi?id=1",
			},
			{
				PMCID:         "PMC2",
				KeywordCounts: map[string]int{"spm": 0, "afni": 1},
				Refs:          []string{},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "nested", "data.csv")
	require.NoError(t, WriteCSV(path, ds))

	got, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, ds, got)

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".dataset-*"))
	require.NoError(t, err)
	assert.Empty(t, matches, "temp file must not be left behind")
}

func TestDecodeCSV_ForeignTable(t *testing.T) {
	in := strings.Join([]string{
		"pmcid,pmid,month,year,title,journal,refs,fsl,spm,search_url,idconv_url,fulltext_url,links_url",
		"PMC3,30,,2018.0,T,J,\"[1, 2]\",True,False,,,,",
	}, "\n")

	ds, err := DecodeCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"fsl", "spm"}, ds.Keywords)
	require.Len(t, ds.Records, 1)
	assert.Equal(t, 2018, ds.Records[0].Year)
	assert.Equal(t, map[string]int{"fsl": 1, "spm": 0}, ds.Records[0].KeywordCounts)
	assert.Equal(t, []string{"PMC1", "PMC2"}, ds.Records[0].Refs)
}

func TestDecodeCSV_Errors(t *testing.T) {
	_, err := DecodeCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = DecodeCSV(strings.NewReader("pmid,year\n1,2019\n"))
	assert.ErrorContains(t, err, "pmcid")

	_, err = DecodeCSV(strings.NewReader("pmcid,year\nPMC1,soon\n"))
	assert.ErrorContains(t, err, "line 2: year")

	for _, v := range []string{"nan", "NaN", "inf", "-Inf"} {
		_, err = DecodeCSV(strings.NewReader("pmcid,year\nPMC1," + v + "\n"))
		assert.ErrorContains(t, err, "line 2: year", v)
	}
}

func TestEncodeCSV_HeaderOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, &types.Dataset{Keywords: []string{"afni"}}))
	assert.Equal(t, "pmcid,pmid,month,year,title,journal,refs,afni,search_url,idconv_url,fulltext_url,links_url\n", buf.String())
}
