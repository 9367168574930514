// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package keywords

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCount(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		keywords []string
		want     map[string]int
	}{
		{
			name:     "case insensitive",
			text:     "We used SPM12 and spm for preprocessing; AFNI was not used.",
			keywords: []string{"spm", "afni", "fsl"},
			want:     map[string]int{"spm": 2, "afni": 1, "fsl": 0},
		},
		{
			name:     "substring inside longer word counts",
			text:     "fslmaths and FSL FEAT",
			keywords: []string{"fsl"},
			want:     map[string]int{"fsl": 2},
		},
		{
			name:     "non-overlapping left to right",
			text:     "aaaa",
			keywords: []string{"aa"},
			want:     map[string]int{"aa": 2},
		},
		{
			name:     "keyword is substring of another keyword",
			text:     "nilearn",
			keywords: []string{"nilearn", "learn"},
			want:     map[string]int{"nilearn": 1, "learn": 1},
		},
		{
			name:     "empty keyword counts zero",
			text:     "anything",
			keywords: []string{""},
			want:     map[string]int{"": 0},
		},
		{
			name:     "no keywords",
			text:     "spm",
			keywords: nil,
			want:     map[string]int{},
		},
		{
			name:     "mixed-case keyword",
			text:     "nilearn NILEARN",
			keywords: []string{"NiLearn"},
			want:     map[string]int{"NiLearn": 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Count(tt.text, tt.keywords))
		})
	}
}

func TestCount_MatchesStringsCountProperty(t *testing.T) {
	texts := []string{
		"<article><body>SPM and spm8, AFNI afni3dDeconvolve</body></article>",
		"xyzXYZxyz",
		"",
	}
	kws := []string{"spm", "AFNI", "xyz", "zx"}
	for _, text := range texts {
		got := Count(text, kws)
		for _, k := range kws {
			assert.Equal(t, strings.Count(strings.ToLower(text), strings.ToLower(k)), got[k], "text=%q kw=%q", text, k)
		}
	}
}

func TestDominant(t *testing.T) {
	kws := []string{"spm", "afni", "nilearn", "fsl"}

	kw, idx, ok := Dominant(map[string]int{"spm": 0, "afni": 3, "fsl": 9}, kws)
	assert.True(t, ok)
	assert.Equal(t, "afni", kw)
	assert.Equal(t, 1, idx)

	_, idx, ok = Dominant(map[string]int{"spm": 0, "afni": 0}, kws)
	assert.False(t, ok)
	assert.Equal(t, -1, idx)

	kw, _, ok = Dominant(map[string]int{"spm": 1, "fsl": 1}, kws)
	assert.True(t, ok)
	assert.Equal(t, "spm", kw)
}
