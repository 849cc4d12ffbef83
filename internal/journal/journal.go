// Package journal keeps a record of every run the master performs. It is
// write-once history for operators; nothing reads it back to resume work.
package journal

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pkg.jsn.cam/toygrep/pkg/storage"
	"pkg.jsn.cam/toygrep/pkg/toygrep"
)

const runsBucket = "runs"

var ErrRunNotFound = errors.New("run not found")

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"  // finished, but some tasks returned errors
	StatusAborted   Status = "aborted" // stopped before the queue drained
)

// TaskSummary is what the journal keeps of one completed task
type TaskSummary struct {
	TaskID   string        `json:"task_id"`
	WorkerID int           `json:"worker_id"`
	Slice    toygrep.Slice `json:"slice"`
	Matches  int           `json:"matches,omitempty"`
	Words    int           `json:"words,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// RunRecord describes one master run
type RunRecord struct {
	ID          string        `json:"id"`
	Op          string        `json:"op"`
	Pattern     string        `json:"pattern,omitempty"`
	Input       string        `json:"input,omitempty"`
	Workers     int           `json:"workers"`
	CorpusBytes int           `json:"corpus_bytes"`
	Status      Status        `json:"status"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at,omitzero"`
	Elapsed     time.Duration `json:"elapsed"`
	Tasks       []TaskSummary `json:"tasks,omitempty"`
}

// Failed counts the tasks that came back with an error
func (r *RunRecord) Failed() int {
	n := 0
	for _, t := range r.Tasks {
		if t.Error != "" {
			n++
		}
	}
	return n
}

// NewRunID returns a time-ordered id so runs list in start order
func NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Journal stores RunRecords in a storage.Backend
type Journal struct {
	backend storage.Backend
	log     *zap.Logger
}

// Open creates or opens a bbolt journal at path
func Open(path string, log *zap.Logger) (*Journal, error) {
	backend, err := storage.NewBboltBackend(path)
	if err != nil {
		return nil, err
	}

	j, err := New(backend, log)
	if err != nil {
		backend.Close()
		return nil, err
	}

	j.log.Debug("Journal opened", zap.String("path", path))

	return j, nil
}

func New(backend storage.Backend, log *zap.Logger) (*Journal, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := backend.CreateBucket(runsBucket); err != nil {
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &Journal{backend: backend, log: log.Named("journal")}, nil
}

// Save writes rec, replacing any earlier version of the same run
func (j *Journal) Save(rec *RunRecord) error {
	if rec.ID == "" {
		return errors.New("run record has no id")
	}
	if err := storage.PutJSON(j.backend, runsBucket, rec.ID, rec); err != nil {
		return fmt.Errorf("save run %s: %w", rec.ID, err)
	}

	return nil
}

func (j *Journal) Get(id string) (*RunRecord, error) {
	rec, err := storage.GetJSON[RunRecord](j.backend, runsBucket, id)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// List returns runs newest first. A limit <= 0 returns all of them.
func (j *Journal) List(limit int) ([]RunRecord, error) {
	runs, err := storage.ListJSON[RunRecord](j.backend, runsBucket)
	if err != nil {
		return nil, err
	}

	slices.Reverse(runs)
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	return runs, nil
}

func (j *Journal) Close() error {
	return j.backend.Close()
}
