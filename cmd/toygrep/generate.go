package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"pkg.jsn.cam/toygrep/internal/generator"
)

var generateFlags struct {
	size     string
	output   string
	kind     string
	alphabet string
	seed     uint64
	quiet    bool
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a random text corpus",
	Example: `  toygrep generate --size 100MB -o text.txt
  toygrep generate --size 1MiB --kind words --seed 42 -o words.txt`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&generateFlags.size, "size", "1MB", "corpus size, e.g. 512KB, 10MiB")
	f.StringVarP(&generateFlags.output, "output", "o", "text.txt", `output file, "-" for stdout`)
	f.StringVar(&generateFlags.kind, "kind", "letters", "generator: "+strings.Join(generator.List(), ", "))
	f.StringVar(&generateFlags.alphabet, "alphabet", generator.Letters, "characters used by the letters generator")
	f.Uint64Var(&generateFlags.seed, "seed", 0, "random seed (0 = random)")
	f.BoolVarP(&generateFlags.quiet, "quiet", "q", false, "hide the progress bar")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	size, err := humanize.ParseBytes(generateFlags.size)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", generateFlags.size, err)
	}

	gen, err := generator.Get(generateFlags.kind)
	if err != nil {
		return err
	}
	if lg, ok := gen.(*generator.LetterGenerator); ok && cmd.Flags().Changed("alphabet") {
		lg.Alphabet = generateFlags.alphabet
	}
	gen.Init(generator.NewRand(generateFlags.seed))

	var (
		out  io.Writer = cmd.OutOrStdout()
		file *os.File
	)
	if generateFlags.output != "-" {
		if dir := filepath.Dir(generateFlags.output); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		file, err = os.Create(generateFlags.output)
		if err != nil {
			return err
		}
		out = file
	}

	if err := writeCorpus(gen, out, size, file != nil && !generateFlags.quiet); err != nil {
		if file != nil {
			file.Close()
		}
		return err
	}
	if file != nil {
		if err := file.Close(); err != nil {
			return fmt.Errorf("close %s: %w", generateFlags.output, err)
		}
	}

	if generateFlags.output != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "\nwrote %s of %s text to %s\n",
			humanize.Bytes(size), generateFlags.kind, generateFlags.output)
	}

	return nil
}

// writeCorpus writes size bytes from gen to out through a buffer, optionally
// drawing a progress bar.
func writeCorpus(gen generator.Generator, out io.Writer, size uint64, progress bool) error {
	bw := bufio.NewWriter(out)
	w := io.Writer(bw)
	if progress {
		bar := progressbar.DefaultBytes(int64(size), "generating")
		defer bar.Close()
		w = io.MultiWriter(bw, bar)
	}

	if err := gen.Write(w, int64(size)); err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	return bw.Flush()
}
