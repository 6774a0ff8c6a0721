// Package textmatch normalizes product names and scores keyword overlap between them.
package textmatch

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultCategory is returned when no category keyword matches.
const DefaultCategory = "general"

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// storefront suffixes seen in scraped titles
var noisePhrases = []string{
	"online at best price",
	"buy online",
	"price in india",
	"flipkart.com",
	"amazon.in",
	"amazon.com",
}

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "with": {}, "without": {}, "by": {}, "from": {}, "best": {}, "price": {},
	"online": {}, "storage": {}, "ram": {}, "gb": {}, "tb": {}, "inch": {}, "cm": {}, "mm": {},
	"new": {}, "amazon": {}, "flipkart": {}, "myntra": {}, "product": {}, "india": {}, "buy": {},
}

var genericNames = map[string]struct{}{
	"amazon product":   {},
	"flipkart product": {},
	"myntra product":   {},
	"product":          {},
}

type categoryRule struct {
	name     string
	keywords []string
}

// first match wins, so "watch" resolves to electronics
var categoryRules = []categoryRule{
	{"electronics", []string{"phone", "laptop", "tablet", "watch", "earphone", "headphone", "camera", "tv", "monitor", "keyboard", "mouse", "speaker"}},
	{"fashion", []string{"shirt", "jeans", "shoe", "dress", "jacket", "trouser", "bag", "sunglasses", "watch", "belt", "hat"}},
	{"home", []string{"furniture", "bed", "sofa", "chair", "table", "lamp", "curtain", "vacuum", "mixer", "blender", "kettle"}},
	{"books", []string{"book", "novel", "diary", "notebook", "pen", "pencil"}},
	{"sports", []string{"gym", "fitness", "yoga", "dumbbell", "treadmill", "cycle"}},
}

// Normalize lowercases s, strips storefront noise and punctuation, and collapses whitespace.
// The result is the canonical product key.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	cleaned := strings.ToLower(s)
	for _, phrase := range noisePhrases {
		cleaned = strings.ReplaceAll(cleaned, phrase, " ")
	}
	cleaned = nonAlnum.ReplaceAllString(cleaned, " ")
	cleaned = whitespace.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// Keywords returns the sorted, de-duplicated significant tokens of s.
// Stop words and tokens of two characters or fewer are dropped.
func Keywords(s string) []string {
	norm := Normalize(s)
	if _, generic := genericNames[norm]; generic {
		return nil
	}
	seen := make(map[string]struct{})
	out := make([]string, 0, 8)
	for _, w := range strings.Fields(norm) {
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// IsGeneric reports whether s is a placeholder name that carries no product identity.
func IsGeneric(s string) bool {
	_, ok := genericNames[Normalize(s)]
	return ok
}

// Jaccard returns |a∩b| / |a∪b| for two keyword sets. Empty input scores 0.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, w := range a {
		set[w] = struct{}{}
	}
	inter := 0
	union := len(set)
	seenB := make(map[string]struct{}, len(b))
	for _, w := range b {
		if _, dup := seenB[w]; dup {
			continue
		}
		seenB[w] = struct{}{}
		if _, ok := set[w]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// InferCategory maps a product name to a category using substring keyword rules.
func InferCategory(name string) string {
	norm := Normalize(name)
	if norm == "" {
		return DefaultCategory
	}
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(norm, kw) {
				return rule.name
			}
		}
	}
	return DefaultCategory
}

// NormalizeCategory canonicalizes a caller-supplied category label.
func NormalizeCategory(s string) string {
	return strings.ReplaceAll(Normalize(s), " ", "_")
}
