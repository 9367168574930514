// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package layout places papers on a circle for the citation figure.
package layout

import (
	"math"
	"math/rand"
	"sort"

	"github.com/pdiddy/methnet/pkg/types"
)

// DefaultSeed is the shuffle seed used when Options.Seed is zero.
const DefaultSeed int64 = 39838475

// Options controls the order of the identifier set.
type Options struct {
	// SortByYear stable-sorts records by publication year before refs are
	// appended.
	SortByYear bool

	// Shuffle reorders the whole set with a seeded permutation. Ignored
	// when SortByYear is set.
	Shuffle bool
	Seed    int64
}

// IdentifierSet returns every PMCID that must be placed: the dataset's own
// records in table order, then cited papers in first-seen order. Each id
// appears once.
func IdentifierSet(ds *types.Dataset, opts Options) []string {
	records := append([]types.Record(nil), ds.Records...)
	if opts.SortByYear {
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Year < records[j].Year
		})
	}

	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	for _, r := range records {
		add(r.PMCID)
	}
	for _, r := range records {
		for _, ref := range r.Refs {
			add(ref)
		}
	}

	if opts.Shuffle && !opts.SortByYear {
		seed := opts.Seed
		if seed == 0 {
			seed = DefaultSeed
		}
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	}
	return ids
}

// Point is a position relative to the circle center, y pointing up.
type Point struct {
	X, Y float64
}

// Coordinates maps identifiers to circle positions and remembers their
// order.
type Coordinates struct {
	ids    []string
	points map[string]Point
	radius float64
}

// Circle places the n-th of N ids at angle 2πn/N on a circle of the given
// radius centered on the origin.
func Circle(ids []string, radius float64) Coordinates {
	c := Coordinates{
		ids:    append([]string(nil), ids...),
		points: make(map[string]Point, len(ids)),
		radius: radius,
	}
	n := float64(len(ids))
	for i, id := range ids {
		angle := 2 * math.Pi * float64(i) / n
		c.points[id] = Point{X: radius * math.Cos(angle), Y: radius * math.Sin(angle)}
	}
	return c
}

// IDs returns the placed identifiers in placement order.
func (c Coordinates) IDs() []string {
	return append([]string(nil), c.ids...)
}

// Point returns the position of id.
func (c Coordinates) Point(id string) (Point, bool) {
	p, ok := c.points[id]
	return p, ok
}

// Len returns the number of placed identifiers.
func (c Coordinates) Len() int { return len(c.ids) }

// Radius returns the circle radius.
func (c Coordinates) Radius() float64 { return c.radius }
