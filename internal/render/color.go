package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// DefaultCycle supplies colors for keywords beyond the configured list.
var DefaultCycle = []string{
	"green", "dodgerblue", "orange", "red", "purple",
	"brown", "hotpink", "olive", "cyan", "gold",
}

// ParseColor accepts a CSS color name or a #rrggbb / #rgb hex triplet.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(s, "#") {
		return parseHex(s[1:])
	}
	if c, ok := colornames.Map[s]; ok {
		return c, nil
	}
	return color.RGBA{}, fmt.Errorf("unknown color %q", s)
}

func parseHex(h string) (color.RGBA, error) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("bad hex color %q", "#"+h)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("bad hex color %q: %w", "#"+h, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// Palette resolves one color per keyword. Keywords past the end of names
// take the next unused entry of DefaultCycle, wrapping around.
func Palette(keywords, names []string) ([]color.RGBA, error) {
	used := make(map[string]bool)
	for _, n := range names {
		used[strings.ToLower(strings.TrimSpace(n))] = true
	}

	out := make([]color.RGBA, 0, len(keywords))
	next := 0
	for i := range keywords {
		name := ""
		if i < len(names) {
			name = names[i]
		} else {
			name = pickDefault(&next, used)
		}
		c, err := ParseColor(name)
		if err != nil {
			return nil, fmt.Errorf("color for %q: %w", keywords[i], err)
		}
		out = append(out, c)
	}
	return out, nil
}

func pickDefault(next *int, used map[string]bool) string {
	for tries := 0; tries < len(DefaultCycle); tries++ {
		name := DefaultCycle[*next%len(DefaultCycle)]
		*next++
		if !used[name] {
			used[name] = true
			return name
		}
	}
	name := DefaultCycle[*next%len(DefaultCycle)]
	*next++
	return name
}

// Lerp mixes a toward b by t in [0, 1].
func Lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}
