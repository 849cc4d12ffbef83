package master

import (
	"fmt"
	"io"

	"pkg.jsn.cam/toygrep/pkg/toygrep"
	"pkg.jsn.cam/toygrep/pkg/toygrep/protocol"
)

// Reporter observes a run. Report is called once per completed task, in
// the order results are received.
type Reporter interface {
	Begin(info RunInfo) error
	Report(c Completion) error
	// End is called once; runErr is set when the run was aborted
	End(s *Summary, runErr error) error
}

// LineReporter writes one human-readable line per completed task
type LineReporter struct {
	w io.Writer
}

func NewLineReporter(w io.Writer) *LineReporter {
	return &LineReporter{w: w}
}

func (r *LineReporter) Begin(RunInfo) error { return nil }

func (r *LineReporter) Report(c Completion) error {
	_, err := fmt.Fprintln(r.w, FormatResult(c.Result))
	return err
}

func (r *LineReporter) End(s *Summary, runErr error) error {
	if runErr != nil || s.Op != protocol.OpWordCount {
		return nil
	}

	best, ok := s.MostUsed()
	if !ok {
		_, err := fmt.Fprintln(r.w, "Master: no words found")
		return err
	}

	_, err := fmt.Fprintf(r.w, "Master: most used word is %q (%d occurrences)\n", best.Word, best.Count)
	return err
}

// FormatResult renders the report line for one result
func FormatResult(res protocol.Result) string {
	if !res.OK() {
		return fmt.Sprintf("Master: slave-%d failed: %s", res.WorkerID, res.Error)
	}

	switch res.Op {
	case protocol.OpWordCount:
		return fmt.Sprintf("Master: slave-%d counted %d words (%d distinct)",
			res.WorkerID, toygrep.TotalWords(res.Counts), len(res.Counts))
	default:
		return fmt.Sprintf("Master: slave-%d scanned text and found %s",
			res.WorkerID, toygrep.FormatMatches(res.Matches))
	}
}
