package master

import (
	"fmt"
	"time"

	"pkg.jsn.cam/toygrep/pkg/toygrep"
	"pkg.jsn.cam/toygrep/pkg/toygrep/protocol"
)

// RunInfo describes a run as it starts
type RunInfo struct {
	ID          string
	Op          protocol.Op
	Pattern     string
	Input       string
	Workers     int
	Tasks       int
	CorpusBytes int
	StartedAt   time.Time
}

// Summary aggregates the results of a run
type Summary struct {
	RunInfo

	Completed int
	Failed    int
	// Matches found across all tasks, with offsets into the whole corpus,
	// in order of receipt
	Matches []toygrep.Match
	// Counts is the merged word frequency table of a wordcount run
	Counts  map[string]int
	Elapsed time.Duration
	Aborted bool
}

func newSummary(info RunInfo) *Summary {
	s := &Summary{RunInfo: info}
	if info.Op == protocol.OpWordCount {
		s.Counts = make(map[string]int)
	}
	return s
}

func (s *Summary) add(c Completion) {
	s.Completed++
	if !c.Result.OK() {
		s.Failed++
		return
	}

	base := c.Task.Payload.Slice.Begin
	for _, match := range c.Result.Matches {
		s.Matches = append(s.Matches, toygrep.Match{Context: match.Context, Offset: base + match.Offset})
	}
	if s.Counts != nil {
		toygrep.MergeCounts(s.Counts, c.Result.Counts)
	}
}

// MostUsed returns the most frequent word of a wordcount run
func (s *Summary) MostUsed() (toygrep.WordCount, bool) {
	return toygrep.MostUsed(s.Counts)
}

// Err reports failed tasks as ErrTaskFailed
func (s *Summary) Err() error {
	if s.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d tasks", toygrep.ErrTaskFailed, s.Failed, s.Tasks)
}
