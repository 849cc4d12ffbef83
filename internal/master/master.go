// Package master drives a run: it partitions the corpus into tasks, hands
// them to idle workers, reports each result as it arrives, and terminates
// every worker once the queue is drained.
package master

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pkg.jsn.cam/toygrep/internal/journal"
	"pkg.jsn.cam/toygrep/pkg/executors"
	"pkg.jsn.cam/toygrep/pkg/toygrep"
	"pkg.jsn.cam/toygrep/pkg/toygrep/protocol"
	"pkg.jsn.cam/toygrep/pkg/transport"
)

const defaultPollInterval = time.Millisecond

var errAlreadyRan = errors.New("master already ran")

type WorkerStatus int

const (
	WorkerIdle WorkerStatus = iota
	WorkerBusy
)

func (s WorkerStatus) String() string {
	if s == WorkerBusy {
		return "busy"
	}
	return "idle"
}

// WorkerHandle is the master's view of one worker
type WorkerHandle struct {
	ID         int
	Status     WorkerStatus
	Tasks      int // tasks completed
	Terminated bool
}

// Options configures a run
type Options struct {
	Op      protocol.Op
	Pattern string
	// Limit caps matches per task, 0 means unbounded
	Limit int
	// Overlap extends each slice by len(Pattern)-1 bytes so a match
	// crossing a slice boundary is still found, once
	Overlap bool
	// PollInterval is how long the loop sleeps after an iteration in which
	// nothing was assigned or collected
	PollInterval time.Duration
	// Input labels the corpus in logs and the journal
	Input     string
	RunID     string
	Reporters []Reporter
	Logger    *zap.Logger
}

// Master owns the work queue and the worker handles of one run. All of its
// methods must be called from a single goroutine; Snapshot is the exception.
type Master struct {
	comm    transport.Comm
	opts    Options
	queue   *WorkQueue
	handles []*WorkerHandle
	log     *zap.Logger

	ran     bool
	summary *Summary
	status  statusBoard
}

// New creates a master for the topology behind comm
func New(comm transport.Comm, opts Options) (*Master, error) {
	if comm.Size() < 2 {
		return nil, fmt.Errorf("%w: topology has size %d", toygrep.ErrNoWorkers, comm.Size())
	}
	if opts.Op == "" {
		opts.Op = protocol.OpSearch
	}
	if !executors.IsValidExecutor(opts.Op) {
		return nil, fmt.Errorf("%w: %q", toygrep.ErrUnknownOp, opts.Op)
	}
	if opts.Op == protocol.OpSearch && opts.Pattern == "" {
		return nil, toygrep.ErrEmptyPattern
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	log := opts.Logger.Named("master")

	m := &Master{
		comm:  comm,
		opts:  opts,
		queue: NewWorkQueue(comm, log),
		log:   log,
	}
	for _, id := range transport.Workers(comm) {
		m.handles = append(m.handles, &WorkerHandle{ID: id, Status: WorkerIdle})
	}

	return m, nil
}

// Workers returns the worker handles
func (m *Master) Workers() []*WorkerHandle { return m.handles }

func (m *Master) handle(id int) (*WorkerHandle, error) {
	if id < 1 || id > len(m.handles) {
		return nil, fmt.Errorf("%w: %d", toygrep.ErrUnknownWorker, id)
	}
	return m.handles[id-1], nil
}

func (m *Master) idle() []int {
	var ids []int
	for _, h := range m.handles {
		if h.Status == WorkerIdle && !h.Terminated {
			ids = append(ids, h.ID)
		}
	}
	return ids
}

// Run processes corpus to completion and terminates every worker.
//
// A worker that never replies stalls the run: there is no timeout or retry,
// so bound the run with ctx. Task failures reported by workers do not stop
// the run; they are counted in the summary, whose Err reports them.
func (m *Master) Run(ctx context.Context, corpus string) (*Summary, error) {
	if m.ran {
		return nil, errAlreadyRan
	}
	m.ran = true

	started := time.Now()
	runID := m.opts.RunID
	if runID == "" {
		runID = journal.NewRunID()
	}

	overlap := 0
	if m.opts.Overlap && m.opts.Op == protocol.OpSearch {
		overlap = len(m.opts.Pattern) - 1
	}
	parts, err := toygrep.PartitionWithOverlap(len(corpus), len(m.handles), overlap)
	if err != nil {
		return nil, err
	}

	for _, s := range parts {
		m.queue.AddWork(protocol.Payload{
			Op:      m.opts.Op,
			Text:    corpus[s.Begin:s.End],
			Pattern: m.opts.Pattern,
			Limit:   m.opts.Limit,
			Slice:   s,
		})
	}

	info := RunInfo{
		ID:          runID,
		Op:          m.opts.Op,
		Pattern:     m.opts.Pattern,
		Input:       m.opts.Input,
		Workers:     len(m.handles),
		Tasks:       len(parts),
		CorpusBytes: len(corpus),
		StartedAt:   started,
	}
	m.summary = newSummary(info)

	m.log.Info("Starting run",
		zap.String("run_id", runID),
		zap.String("op", string(m.opts.Op)),
		zap.Int("workers", len(m.handles)),
		zap.Int("tasks", len(parts)),
		zap.Int("corpus_bytes", len(corpus)),
		zap.Bool("overlap", overlap > 0))

	for _, r := range m.opts.Reporters {
		if err := r.Begin(info); err != nil {
			m.log.Warn("Reporter failed to start", zap.Error(err))
		}
	}
	m.publish()

	runErr := m.loop(ctx)
	if runErr == nil {
		runErr = m.terminateAll(ctx)
	}

	m.summary.Elapsed = time.Since(started)
	m.summary.Aborted = runErr != nil
	m.publish()

	for _, r := range m.opts.Reporters {
		if err := r.End(m.summary, runErr); err != nil {
			m.log.Warn("Reporter failed to finish", zap.Error(err))
		}
	}

	if runErr != nil {
		m.log.Error("Run aborted",
			zap.String("run_id", runID),
			zap.Int("completed", m.queue.Completed()),
			zap.Int("pending", m.queue.Pending()),
			zap.Int("assigned", m.queue.Assigned()),
			zap.Error(runErr))
		return m.summary, runErr
	}

	m.log.Info("Run finished",
		zap.String("run_id", runID),
		zap.Int("tasks", m.summary.Tasks),
		zap.Int("failed", m.summary.Failed),
		zap.Duration("elapsed", m.summary.Elapsed))

	return m.summary, nil
}

func (m *Master) loop(ctx context.Context) error {
	for !m.queue.Done() {
		if err := ctx.Err(); err != nil {
			return err
		}

		assigned, err := m.queue.AssignTo(ctx, m.idle())
		for _, id := range assigned {
			m.handles[id-1].Status = WorkerBusy
		}
		if err != nil {
			return err
		}

		completions, err := m.queue.CollectCompleted()
		for _, c := range completions {
			m.complete(c)
		}
		if err != nil {
			return err
		}

		if len(assigned) == 0 && len(completions) == 0 {
			select {
			case <-ctx.Done():
			case <-time.After(m.opts.PollInterval):
			}
			continue
		}
		m.publish()
	}

	return nil
}

func (m *Master) complete(c Completion) {
	h := m.handles[c.Result.WorkerID-1]
	h.Status = WorkerIdle
	h.Tasks++

	m.summary.add(c)

	if !c.Result.OK() {
		m.log.Warn("Task failed",
			zap.String("task_id", c.Task.ID),
			zap.Int("worker_id", h.ID),
			zap.String("error", c.Result.Error))
	} else {
		m.log.Debug("Task completed",
			zap.String("task_id", c.Task.ID),
			zap.Int("worker_id", h.ID),
			zap.Duration("took", c.Elapsed))
	}

	for _, r := range m.opts.Reporters {
		if err := r.Report(c); err != nil {
			m.log.Warn("Reporter failed", zap.String("task_id", c.Task.ID), zap.Error(err))
		}
	}
}

func (m *Master) terminateAll(ctx context.Context) error {
	for _, h := range m.handles {
		if err := m.Terminate(ctx, h.ID); err != nil {
			return err
		}
	}

	return nil
}

// Terminate tells worker id to stop. It is only allowed once the queue is
// done, and at most once per worker.
func (m *Master) Terminate(ctx context.Context, id int) error {
	h, err := m.handle(id)
	if err != nil {
		return err
	}
	if !m.ran {
		return fmt.Errorf("%w: run has not started", toygrep.ErrNotDone)
	}
	if !m.queue.Done() {
		return fmt.Errorf("%w: %d pending, %d assigned", toygrep.ErrNotDone, m.queue.Pending(), m.queue.Assigned())
	}
	if h.Terminated {
		return fmt.Errorf("%w: worker %d", toygrep.ErrAlreadyTerminated, id)
	}
	if h.Status == WorkerBusy {
		return fmt.Errorf("%w: worker %d", toygrep.ErrWorkerBusy, id)
	}

	if err := m.comm.Send(ctx, id, protocol.NewTerminateMessage()); err != nil {
		return fmt.Errorf("terminate worker %d: %w", id, err)
	}
	h.Terminated = true

	m.log.Debug("Terminated worker", zap.Int("worker_id", id), zap.Int("tasks", h.Tasks))

	return nil
}
