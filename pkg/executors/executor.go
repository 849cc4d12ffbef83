// Package executors holds the operations a worker can run on a task payload.
package executors

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"pkg.jsn.cam/toygrep/pkg/executors/search"
	"pkg.jsn.cam/toygrep/pkg/executors/wordcount"
	"pkg.jsn.cam/toygrep/pkg/toygrep"
	"pkg.jsn.cam/toygrep/pkg/toygrep/protocol"
)

// Executor runs one operation over a payload and fills the data fields of
// the result. TaskID, WorkerID and Op are set by the caller.
type Executor interface {
	Execute(ctx context.Context, payload protocol.Payload, result *protocol.Result) error
	Description() string
}

var Executors = map[protocol.Op]Executor{
	protocol.OpSearch:    search.SearchExecutor{},
	protocol.OpWordCount: wordcount.WordCountExecutor{},
}

func IsValidExecutor(op protocol.Op) bool {
	_, exists := Executors[op]
	return exists
}

func GetExecutor(op protocol.Op) (Executor, error) {
	exec, exists := Executors[op]
	if !exists {
		return nil, fmt.Errorf("%w: %q", toygrep.ErrUnknownOp, op)
	}
	return exec, nil
}

func ListExecutors() []protocol.Op {
	return slices.Sorted(maps.Keys(Executors))
}

func GetDescription(op protocol.Op) (string, error) {
	exec, err := GetExecutor(op)
	if err != nil {
		return "", err
	}
	return exec.Description(), nil
}

// Run executes task on behalf of workerID. It never returns without a
// result: an unknown op, an operation error or a panic all become a
// failed Result so the master can account for the task.
func Run(ctx context.Context, workerID int, task protocol.Task) (result protocol.Result) {
	result = protocol.Result{
		TaskID:   task.ID,
		WorkerID: workerID,
		Op:       task.Payload.Op,
	}

	defer func() {
		if r := recover(); r != nil {
			result.Matches, result.Counts = nil, nil
			result.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	exec, err := GetExecutor(task.Payload.Op)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	if err := exec.Execute(ctx, task.Payload, &result); err != nil {
		result.Matches, result.Counts = nil, nil
		result.Error = err.Error()
	}

	return result
}
