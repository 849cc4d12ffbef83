package toygrep

import (
	"strings"
	"unicode/utf8"
)

// Find returns up to limit non-overlapping occurrences of pattern in text,
// scanning left to right. A limit <= 0 means unbounded.
//
// Each match carries its surrounding context: the match itself padded by one
// character on either side where the text allows it. An empty pattern never
// matches.
func Find(text, pattern string, limit int) []Match {
	if pattern == "" {
		return nil
	}

	var matches []Match
	idx := 0

	for limit <= 0 || len(matches) < limit {
		i := strings.Index(text[idx:], pattern)
		if i == -1 {
			break
		}

		begin := idx + i
		end := begin + len(pattern)
		matches = append(matches, Match{
			Context: text[padLeft(text, begin):padRight(text, end)],
			Offset:  begin,
		})

		// resume after the match so occurrences never overlap
		idx = end
	}

	return matches
}

func padLeft(text string, begin int) int {
	if begin == 0 {
		return 0
	}
	_, size := utf8.DecodeLastRuneInString(text[:begin])
	return begin - size
}

func padRight(text string, end int) int {
	if end >= len(text) {
		return len(text)
	}
	_, size := utf8.DecodeRuneInString(text[end:])
	return end + size
}
