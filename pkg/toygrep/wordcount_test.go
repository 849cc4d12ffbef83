package toygrep

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountWords(t *testing.T) {
	t.Parallel()

	counts := CountWords("I love dogs and LOVE cats, don't I?")

	assert.Equal(t, map[string]int{
		"i":     2,
		"love":  2,
		"dogs":  1,
		"and":   1,
		"cats":  1,
		"don't": 1,
	}, counts)
	assert.Equal(t, 8, TotalWords(counts))
}

func TestCountWords_Unicode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want map[string]int
	}{
		{"accents", "Café café naïve", map[string]int{"café": 2, "naïve": 1}},
		{"cyrillic", "Привет мир, привет", map[string]int{"привет": 2, "мир": 1}},
		{"digits and underscores", "snake_case 42 ٣", map[string]int{"snake_case": 1, "42": 1, "٣": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, CountWords(tt.text))
		})
	}
}

func TestMostUsed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		counts map[string]int
		want   WordCount
		ok     bool
	}{
		{"empty", map[string]int{}, WordCount{}, false},
		{"single winner", map[string]int{"a": 1, "b": 3, "c": 2}, WordCount{"b", 3}, true},
		{"tie breaks lexicographically", map[string]int{"zeta": 2, "alpha": 2}, WordCount{"alpha", 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := MostUsed(tt.counts)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMergeCounts(t *testing.T) {
	t.Parallel()

	dst := map[string]int{"a": 1}
	MergeCounts(dst, map[string]int{"a": 2, "b": 1})

	assert.Equal(t, map[string]int{"a": 3, "b": 1}, dst)
}
