// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package keywords counts method-keyword mentions in article full text.
//
// Matching is case-insensitive substring counting, not word matching. A
// keyword that occurs inside a longer word or inside another keyword is
// counted there too: "fsl" matches within "fslmaths", and very short
// keywords such as "r" will over-count heavily. Choose distinctive
// keywords.
package keywords

import "strings"

// Count returns, for each keyword, the number of non-overlapping
// occurrences of the lower-cased keyword in the lower-cased text, scanning
// left to right. Empty keywords count zero. Every keyword gets an entry.
func Count(text string, keywords []string) map[string]int {
	counts := make(map[string]int, len(keywords))
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw == "" {
			counts[kw] = 0
			continue
		}
		counts[kw] = strings.Count(lower, strings.ToLower(kw))
	}
	return counts
}

// Dominant returns the first keyword, in configured order, whose count is
// positive, along with its index. ok is false when no keyword matched.
func Dominant(counts map[string]int, keywords []string) (keyword string, index int, ok bool) {
	for i, kw := range keywords {
		if counts[kw] > 0 {
			return kw, i, true
		}
	}
	return "", -1, false
}
