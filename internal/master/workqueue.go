package master

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pkg.jsn.cam/toygrep/pkg/toygrep"
	"pkg.jsn.cam/toygrep/pkg/toygrep/protocol"
	"pkg.jsn.cam/toygrep/pkg/transport"
)

type TaskState int

const (
	TaskPending TaskState = iota
	TaskAssigned
	TaskDone
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskAssigned:
		return "assigned"
	case TaskDone:
		return "done"
	default:
		return fmt.Sprintf("TaskState(%d)", int(s))
	}
}

// Task is a unit of work owned by the queue
type Task struct {
	ID         string
	Payload    protocol.Payload
	State      TaskState
	WorkerID   int
	AssignedAt time.Time
}

// Completion pairs a finished task with the worker's reply
type Completion struct {
	Task    *Task
	Result  protocol.Result
	Elapsed time.Duration
}

// WorkQueue holds the tasks of a run and tracks which worker holds which
// task. It is not safe for concurrent use; the master loop owns it.
type WorkQueue struct {
	comm      transport.Comm
	pending   []*Task
	assigned  map[int]*Task // worker id -> task
	completed int
	log       *zap.Logger
}

func NewWorkQueue(comm transport.Comm, log *zap.Logger) *WorkQueue {
	if log == nil {
		log = zap.NewNop()
	}

	return &WorkQueue{
		comm:     comm,
		assigned: make(map[int]*Task),
		log:      log,
	}
}

// AddWork appends a pending task carrying payload
func (q *WorkQueue) AddWork(payload protocol.Payload) *Task {
	task := &Task{
		ID:      uuid.NewString(),
		Payload: payload,
		State:   TaskPending,
	}
	q.pending = append(q.pending, task)

	return task
}

// AssignTo hands the oldest pending task to each idle worker in turn and
// returns the workers that received one. It stops early when the queue runs
// dry. On a send error the task stays at the head of the queue and the
// workers assigned before the failure are still returned.
func (q *WorkQueue) AssignTo(ctx context.Context, idle []int) ([]int, error) {
	var got []int

	for _, id := range idle {
		if len(q.pending) == 0 {
			break
		}
		if held, busy := q.assigned[id]; busy {
			return got, fmt.Errorf("%w: worker %d still holds task %s", toygrep.ErrWorkerBusy, id, held.ID)
		}

		task := q.pending[0]
		msg := protocol.NewTaskMessage(protocol.Task{ID: task.ID, Payload: task.Payload})
		if err := q.comm.Send(ctx, id, msg); err != nil {
			return got, fmt.Errorf("assign task %s to worker %d: %w", task.ID, id, err)
		}

		q.pending[0] = nil
		q.pending = q.pending[1:]
		task.State = TaskAssigned
		task.WorkerID = id
		task.AssignedAt = time.Now()
		q.assigned[id] = task
		got = append(got, id)

		q.log.Debug("Assigned task",
			zap.String("task_id", task.ID),
			zap.Int("worker_id", id),
			zap.Int("begin", task.Payload.Slice.Begin),
			zap.Int("end", task.Payload.Slice.End))
	}

	return got, nil
}

// CollectCompleted polls every worker holding a task, without blocking, and
// returns the replies that have arrived in worker order. Each reply frees
// its worker.
func (q *WorkQueue) CollectCompleted() ([]Completion, error) {
	var done []Completion

	for _, id := range slices.Sorted(maps.Keys(q.assigned)) {
		msg, ok, err := q.comm.TryRecv(id)
		if err != nil {
			return done, fmt.Errorf("collect from worker %d: %w", id, err)
		}
		if !ok {
			continue
		}

		task := q.assigned[id]
		if msg.Kind != protocol.KindResult || msg.Result == nil {
			return done, fmt.Errorf("%w: worker %d sent %q while holding task %s",
				toygrep.ErrUnexpectedMessage, id, msg.Kind, task.ID)
		}
		if msg.Result.TaskID != task.ID {
			return done, fmt.Errorf("%w: worker %d answered task %s, expected %s",
				toygrep.ErrUnexpectedMessage, id, msg.Result.TaskID, task.ID)
		}

		result := *msg.Result
		result.WorkerID = id
		task.State = TaskDone
		delete(q.assigned, id)
		q.completed++

		done = append(done, Completion{
			Task:    task,
			Result:  result,
			Elapsed: time.Since(task.AssignedAt),
		})
	}

	return done, nil
}

// Done reports whether every task has been answered
func (q *WorkQueue) Done() bool {
	return len(q.pending) == 0 && len(q.assigned) == 0
}

func (q *WorkQueue) Pending() int   { return len(q.pending) }
func (q *WorkQueue) Assigned() int  { return len(q.assigned) }
func (q *WorkQueue) Completed() int { return q.completed }

// Holding returns the task assigned to worker id, if any
func (q *WorkQueue) Holding(id int) (*Task, bool) {
	task, ok := q.assigned[id]
	return task, ok
}
