package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pkg.jsn.cam/toygrep/pkg/executors"
	"pkg.jsn.cam/toygrep/pkg/toygrep/protocol"
)

// Processor runs tasks through the executor registry
type Processor struct {
	workerID int
	log      *zap.Logger
}

func NewProcessor(workerID int, log *zap.Logger) *Processor {
	return &Processor{workerID: workerID, log: log}
}

// Process runs task to completion and builds the reply. Failures are carried
// in the result, never returned.
func (p *Processor) Process(ctx context.Context, task protocol.Task) protocol.Result {
	p.log.Debug("Processing task",
		zap.String("task_id", task.ID),
		zap.String("op", string(task.Payload.Op)),
		zap.Int("begin", task.Payload.Slice.Begin),
		zap.Int("end", task.Payload.Slice.End))

	start := time.Now()
	result := executors.Run(ctx, p.workerID, task)

	if !result.OK() {
		p.log.Warn("Task failed",
			zap.String("task_id", task.ID),
			zap.String("error", result.Error))
		return result
	}

	p.log.Debug("Task completed",
		zap.String("task_id", task.ID),
		zap.Int("matches", len(result.Matches)),
		zap.Int("distinct_words", len(result.Counts)),
		zap.Duration("took", time.Since(start)))

	return result
}
