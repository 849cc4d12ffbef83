package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkg.jsn.cam/toygrep/internal/generator"
	"pkg.jsn.cam/toygrep/pkg/toygrep"
)

// execute runs the root command with args. Commands share package-level
// flag state that pflag never resets, so these tests run in order and must
// not run in parallel.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	t.Setenv("TOYGREP_LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()

	return out.String(), err
}

func TestJournalCommand_RequiresPath(t *testing.T) {
	_, err := execute(t, "journal", "show", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no journal configured")
}

func TestRunCommand_NoWorkers(t *testing.T) {
	_, err := execute(t, "run", "-w", "0", "-p", "love")
	require.ErrorIs(t, err, toygrep.ErrNoWorkers)
}

func TestRunCommand_Search(t *testing.T) {
	input := filepath.Join(t.TempDir(), "text.txt")
	require.NoError(t, os.WriteFile(input, []byte("I love dogs and love cats"), 0o644))

	out, err := execute(t, "run", "-w", "2", "--op", "search", "-p", "love", "-i", input)
	require.NoError(t, err)

	assert.Contains(t, out, `Master: slave-1 scanned text and found [(" love ", 2)]`)
	assert.Contains(t, out, `Master: slave-2 scanned text and found [(" love ", 4)]`)
	assert.Contains(t, out, "elapsed: ")
}

func TestRunCommand_WordCountWithJournal(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "text.txt")
	journalPath := filepath.Join(dir, "runs.db")
	require.NoError(t, os.WriteFile(input, []byte("cat dog cat bird cat dog"), 0o644))

	out, err := execute(t, "run", "-w", "3", "--op", "wordcount", "-i", input, "--journal", journalPath)
	require.NoError(t, err)
	assert.Contains(t, out, `Master: most used word is "cat" (3 occurrences)`)

	out, err = execute(t, "journal", "list", "--journal", journalPath)
	require.NoError(t, err)
	assert.Contains(t, out, "RUN ID")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "wordcount")
}

func TestGenerateCommand(t *testing.T) {
	output := filepath.Join(t.TempDir(), "corpus.txt")

	_, err := execute(t, "generate", "--size", "4KiB", "--seed", "7", "-q", "-o", output)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Len(t, data, 4096)
}

func TestGenerateCommand_MultibyteAlphabet(t *testing.T) {
	output := filepath.Join(t.TempDir(), "corpus.txt")

	_, err := execute(t, "generate", "--size", "1KiB", "--alphabet", "äöü", "-q", "-o", output)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.True(t, utf8.Valid(data))
	assert.Len(t, data, 1024)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteCorpus_ReportsWriteErrors(t *testing.T) {
	gen, err := generator.Get("letters")
	require.NoError(t, err)
	gen.Init(generator.NewRand(1))

	// small enough to stay in the buffer until the final flush
	err = writeCorpus(gen, failingWriter{}, 16, false)
	assert.ErrorContains(t, err, "disk full")
}
