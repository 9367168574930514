package methnet

import (
	"fmt"
	"image/color"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/methnet/internal/render"
	"github.com/pdiddy/methnet/pkg/types"
)

// Manifest records what a figure run produced and with which settings.
type Manifest struct {
	GIFID    string   `yaml:"gif_id"`
	DataID   string   `yaml:"data_id"`
	Query    string   `yaml:"query"`
	Keywords []string `yaml:"keywords"`

	Colors        []KeywordColor `yaml:"colors"`
	ConstantColor string         `yaml:"constant_color"`
	NoneColor     string         `yaml:"none_color"`
	SortByYear    bool           `yaml:"sort_by_year"`
	Shuffle       bool           `yaml:"shuffle,omitempty"`

	Records     int `yaml:"records"`
	Identifiers int `yaml:"identifiers"`

	Frames []ManifestFrame `yaml:"frames"`
	GIF    string          `yaml:"gif"`
	PNG    string          `yaml:"png"`

	CreatedAt time.Time `yaml:"created_at"`
}

// KeywordColor is one legend entry.
type KeywordColor struct {
	Keyword string `yaml:"keyword"`
	Color   string `yaml:"color"`
}

// ManifestFrame summarizes one rendered year.
type ManifestFrame struct {
	Year      int    `yaml:"year"`
	Path      string `yaml:"path"`
	Records   int    `yaml:"records"`
	Edges     int    `yaml:"edges"`
	Unmatched int    `yaml:"unmatched"`
}

func newManifest(opts Options, style render.Style, ds *types.Dataset, identifiers int, frames []render.Frame, res Result) Manifest {
	m := Manifest{
		GIFID:         opts.GIFID,
		DataID:        opts.DataID,
		Query:         opts.Query,
		Keywords:      append([]string(nil), opts.Keywords...),
		ConstantColor: hex(style.ConstantColor),
		NoneColor:     hex(style.NoneColor),
		SortByYear:    opts.Figure.SortByYear,
		Shuffle:       opts.Figure.Shuffle && !opts.Figure.SortByYear,
		Records:       ds.Len(),
		Identifiers:   identifiers,
		GIF:           res.GIFPath,
		PNG:           res.PNGPath,
		CreatedAt:     time.Now().UTC(),
	}
	for i, kw := range style.Keywords {
		m.Colors = append(m.Colors, KeywordColor{Keyword: kw, Color: hex(style.KeywordColors[i])})
	}
	for _, f := range frames {
		m.Frames = append(m.Frames, ManifestFrame{
			Year:      f.Year,
			Path:      f.Path,
			Records:   f.Records,
			Edges:     f.Edges,
			Unmatched: f.Unmatched,
		})
	}
	return m
}

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func writeManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by GetMethnet.
func ReadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return m, nil
}
