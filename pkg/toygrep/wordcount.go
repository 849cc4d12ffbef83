package toygrep

import (
	"regexp"
	"strings"
)

// wordRE matches runs of Unicode letters, digits, underscores and apostrophes
var wordRE = regexp.MustCompile(`[\p{L}\p{N}_']+`)

// CountWords tokenizes text into lower-cased words and counts them.
func CountWords(text string) map[string]int {
	counts := make(map[string]int)
	for _, word := range wordRE.FindAllString(text, -1) {
		counts[strings.ToLower(word)]++
	}

	return counts
}

// MergeCounts adds every count in src to dst.
func MergeCounts(dst, src map[string]int) {
	for word, n := range src {
		dst[word] += n
	}
}

// MostUsed returns the most frequent word. Ties go to the lexicographically
// smallest word so the answer does not depend on map iteration order.
func MostUsed(counts map[string]int) (WordCount, bool) {
	var best WordCount
	found := false

	for word, n := range counts {
		if !found || n > best.Count || (n == best.Count && word < best.Word) {
			best = WordCount{Word: word, Count: n}
			found = true
		}
	}

	return best, found
}

// TotalWords sums all counts.
func TotalWords(counts map[string]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}

	return total
}
