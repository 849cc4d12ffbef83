package generator

import (
	"bytes"
	"io"
	"math/rand/v2"
	"unicode/utf8"
)

var defaultWords = []string{
	"love", "dogs", "cats", "and", "the", "a", "of", "to", "in", "is",
	"it", "you", "that", "he", "was", "for", "on", "are", "with", "as",
	"i", "his", "they", "be", "at", "one", "have", "this", "from", "or",
	"had", "by", "word", "but", "what", "some", "we", "can", "out", "other",
	"were", "all", "there", "when", "up", "use", "your", "how", "said", "an",
}

// wordsPerLine bounds the length of generated lines
const wordsPerLine = 12

// WordGenerator writes lines of words drawn from Words, for word counting
type WordGenerator struct {
	Words []string
	rand  *rand.Rand
}

func (g *WordGenerator) Init(r *rand.Rand) { g.rand = r }

func (g *WordGenerator) Write(w io.Writer, n int64) error {
	var buf bytes.Buffer
	col := 0

	for n > 0 {
		buf.Reset()
		for buf.Len() < chunkSize {
			if col > 0 {
				if col == wordsPerLine {
					buf.WriteByte('\n')
					col = 0
				} else {
					buf.WriteByte(' ')
				}
			}
			buf.WriteString(g.Words[g.rand.IntN(len(g.Words))])
			col++
		}

		chunk := buf.Bytes()
		if int64(len(chunk)) >= n {
			_, err := w.Write(trimPartialRune(chunk[:n]))
			return err
		}
		if _, err := w.Write(chunk); err != nil {
			return err
		}
		n -= int64(len(chunk))
	}

	return nil
}

// trimPartialRune drops a multibyte character cut off at the end of b
func trimPartialRune(b []byte) []byte {
	for len(b) > 0 {
		r, size := utf8.DecodeLastRune(b)
		if r != utf8.RuneError || size > 1 {
			break
		}
		b = b[:len(b)-1]
	}
	return b
}

func (g *WordGenerator) Description() string {
	return "Lines of common English words"
}
