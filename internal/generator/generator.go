// Package generator produces random corpora to search.
package generator

import (
	"fmt"
	"io"
	"maps"
	"math/rand/v2"
	"slices"
	"unicode/utf8"
)

// Letters is the default alphabet: ASCII letters, upper and lower case
const Letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// chunkSize is how many bytes a generator writes per call
const chunkSize = 64 << 10

// Generator writes random text
type Generator interface {
	// Init seeds the generator with its own random source
	Init(r *rand.Rand)

	// Write writes n bytes of UTF-8 text to w. A multibyte character is
	// never split, so the output may fall short of n by less than
	// utf8.UTFMax bytes when the last character would not fit.
	Write(w io.Writer, n int64) error

	Description() string
}

// Registry maps generator names to factories
var Registry = map[string]func() Generator{
	"letters": func() Generator { return &LetterGenerator{Alphabet: Letters} },
	"words":   func() Generator { return &WordGenerator{Words: defaultWords} },
}

func Get(name string) (Generator, error) {
	factory, exists := Registry[name]
	if !exists {
		return nil, fmt.Errorf("unknown generator: %s", name)
	}
	return factory(), nil
}

func List() []string {
	return slices.Sorted(maps.Keys(Registry))
}

// NewRand returns a random source. A zero seed picks a random one.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// LetterGenerator picks every character uniformly from Alphabet
type LetterGenerator struct {
	Alphabet string
	rand     *rand.Rand
}

func (g *LetterGenerator) Init(r *rand.Rand) { g.rand = r }

func (g *LetterGenerator) Write(w io.Writer, n int64) error {
	if g.Alphabet == "" {
		return fmt.Errorf("empty alphabet")
	}
	if !utf8.ValidString(g.Alphabet) {
		return fmt.Errorf("alphabet is not valid UTF-8")
	}

	alphabet := []rune(g.Alphabet)
	buf := make([]byte, 0, min(n, chunkSize)+utf8.UTFMax)

	for n > 0 {
		buf = buf[:0]
		full := false

		for target := min(n, chunkSize); int64(len(buf)) < target; {
			r := alphabet[g.rand.IntN(len(alphabet))]
			if int64(len(buf)+utf8.RuneLen(r)) > n {
				full = true
				break
			}
			buf = utf8.AppendRune(buf, r)
		}

		if _, err := w.Write(buf); err != nil {
			return err
		}
		n -= int64(len(buf))

		if full {
			break
		}
	}

	return nil
}

func (g *LetterGenerator) Description() string {
	return "Random characters from an alphabet (default: ASCII letters)"
}
