package toygrep

import (
	"fmt"
	"strings"
)

// Match is a single pattern occurrence with one character of context on
// each side. Offset is a byte offset relative to the searched text.
type Match struct {
	Context string `json:"context"`
	Offset  int    `json:"offset"`
}

func (m Match) String() string {
	return fmt.Sprintf("(%q, %d)", m.Context, m.Offset)
}

// FormatMatches renders matches for the master's report line. An empty set
// renders as "nothing".
func FormatMatches(matches []Match) string {
	if len(matches) == 0 {
		return "nothing"
	}

	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = m.String()
	}

	return "[" + strings.Join(parts, ", ") + "]"
}

// Slice is a half-open byte range [Begin, End) of the corpus.
type Slice struct {
	Begin int `json:"begin"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the slice.
func (s Slice) Len() int { return s.End - s.Begin }

// WordCount is the most frequent word of a corpus.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}
