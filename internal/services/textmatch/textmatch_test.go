package textmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStripsNoise(t *testing.T) {
	got := Normalize("Apple iPhone 15 (Blue, 128 GB) - Buy Online at Best Price | Flipkart.com")
	assert.Equal(t, "apple iphone 15 blue 128 gb buy", got)
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "", Normalize("  --  "))
}

func TestKeywordsDropsStopWordsAndShortTokens(t *testing.T) {
	got := Keywords("The new Samsung Galaxy S24 with 8 GB RAM")
	assert.Equal(t, []string{"galaxy", "s24", "samsung"}, got)
}

func TestKeywordsGenericName(t *testing.T) {
	assert.Empty(t, Keywords("Amazon Product"))
	assert.True(t, IsGeneric("amazon product"))
	assert.False(t, IsGeneric("amazon echo dot"))
}

func TestJaccard(t *testing.T) {
	cases := []struct {
		name string
		a, b []string
		want float64
	}{
		{"identical", []string{"iphone"}, []string{"iphone"}, 1},
		{"half", []string{"iphone", "pro"}, []string{"iphone"}, 0.5},
		{"disjoint", []string{"iphone"}, []string{"galaxy"}, 0},
		{"empty", nil, []string{"galaxy"}, 0},
		{"dup tokens", []string{"a1", "b1"}, []string{"a1", "a1"}, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Jaccard(tc.a, tc.b), 1e-9)
		})
	}
}

func TestInferCategory(t *testing.T) {
	cases := map[string]string{
		"iPhone 15 Pro":            "electronics",
		"Smart Watch Series 9":     "electronics",
		"Levi's Slim Jeans":        "fashion",
		"Prestige Electric Kettle": "home",
		"Spiral Notebook A5":       "books",
		"Yoga Mat":                 "sports",
		"Quantum Flux Widget":      DefaultCategory,
		"":                         DefaultCategory,
	}
	for name, want := range cases {
		assert.Equal(t, want, InferCategory(name), name)
	}
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, "home_kitchen", NormalizeCategory(" Home & Kitchen "))
	assert.Equal(t, "electronics", NormalizeCategory("Electronics"))
}
