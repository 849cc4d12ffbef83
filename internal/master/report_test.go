package master

import (
	"bytes"
	"errors"
	"testing"

	"pkg.jsn.cam/toygrep/pkg/toygrep"
	"pkg.jsn.cam/toygrep/pkg/toygrep/protocol"
)

func TestFormatResult(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		result protocol.Result
		want   string
	}{
		{
			name:   "no matches",
			result: protocol.Result{WorkerID: 3, Op: protocol.OpSearch},
			want:   "Master: slave-3 scanned text and found nothing",
		},
		{
			name: "two matches",
			result: protocol.Result{WorkerID: 1, Op: protocol.OpSearch, Matches: []toygrep.Match{
				{Context: " love ", Offset: 2},
				{Context: " love ", Offset: 16},
			}},
			want: `Master: slave-1 scanned text and found [(" love ", 2), (" love ", 16)]`,
		},
		{
			name:   "word count",
			result: protocol.Result{WorkerID: 2, Op: protocol.OpWordCount, Counts: map[string]int{"a": 2, "b": 1}},
			want:   "Master: slave-2 counted 3 words (2 distinct)",
		},
		{
			name:   "failure",
			result: protocol.Result{WorkerID: 4, Op: protocol.OpSearch, Error: "unknown op"},
			want:   "Master: slave-4 failed: unknown op",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := FormatResult(tt.result); got != tt.want {
				t.Errorf("FormatResult() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLineReporter_End(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		op     protocol.Op
		counts map[string]int
		runErr error
		want   string
	}{
		{"search prints nothing", protocol.OpSearch, nil, nil, ""},
		{"most used word", protocol.OpWordCount, map[string]int{"b": 2, "a": 2, "c": 1}, nil, "Master: most used word is \"a\" (2 occurrences)\n"},
		{"no words", protocol.OpWordCount, map[string]int{}, nil, "Master: no words found\n"},
		{"aborted run", protocol.OpWordCount, map[string]int{"a": 1}, errors.New("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			r := NewLineReporter(&out)
			s := &Summary{RunInfo: RunInfo{Op: tt.op}, Counts: tt.counts}

			if err := r.End(s, tt.runErr); err != nil {
				t.Fatalf("End() error = %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("End() wrote %q, want %q", out.String(), tt.want)
			}
		})
	}
}
