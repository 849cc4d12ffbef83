package master

import (
	"time"

	"pkg.jsn.cam/toygrep/internal/journal"
)

// JournalReporter records the run in a journal. The record is saved when the
// run starts and again when it ends, so an interrupted run still shows up as
// running.
type JournalReporter struct {
	journal *journal.Journal
	rec     *journal.RunRecord
}

func NewJournalReporter(j *journal.Journal) *JournalReporter {
	return &JournalReporter{journal: j}
}

func (r *JournalReporter) Begin(info RunInfo) error {
	r.rec = &journal.RunRecord{
		ID:          info.ID,
		Op:          string(info.Op),
		Pattern:     info.Pattern,
		Input:       info.Input,
		Workers:     info.Workers,
		CorpusBytes: info.CorpusBytes,
		Status:      journal.StatusRunning,
		StartedAt:   info.StartedAt,
	}

	return r.journal.Save(r.rec)
}

func (r *JournalReporter) Report(c Completion) error {
	r.rec.Tasks = append(r.rec.Tasks, journal.TaskSummary{
		TaskID:   c.Task.ID,
		WorkerID: c.Result.WorkerID,
		Slice:    c.Task.Payload.Slice,
		Matches:  len(c.Result.Matches),
		Words:    len(c.Result.Counts),
		Error:    c.Result.Error,
	})

	return nil
}

func (r *JournalReporter) End(s *Summary, runErr error) error {
	r.rec.FinishedAt = time.Now()
	r.rec.Elapsed = s.Elapsed

	switch {
	case runErr != nil:
		r.rec.Status = journal.StatusAborted
		r.rec.Error = runErr.Error()
	case s.Failed > 0:
		r.rec.Status = journal.StatusFailed
		r.rec.Error = s.Err().Error()
	default:
		r.rec.Status = journal.StatusCompleted
	}

	return r.journal.Save(r.rec)
}
