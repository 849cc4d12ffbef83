// Package worker implements the worker side of a run: receive a task from
// the master, execute it, reply, until told to terminate.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"pkg.jsn.cam/toygrep/pkg/executors"
	"pkg.jsn.cam/toygrep/pkg/toygrep"
	"pkg.jsn.cam/toygrep/pkg/toygrep/protocol"
	"pkg.jsn.cam/toygrep/pkg/transport"
)

type State int32

const (
	StateWaiting State = iota
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Node is a worker bound to one rank of a topology
type Node struct {
	id        int
	comm      transport.Comm
	processor *Processor
	log       *zap.Logger

	state     atomic.Int32
	processed atomic.Int64
}

// NewNode creates a worker that serves comm's rank
func NewNode(comm transport.Comm, log *zap.Logger) *Node {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("worker").With(zap.Int("worker_id", comm.Rank()))

	return &Node{
		id:        comm.Rank(),
		comm:      comm,
		processor: NewProcessor(comm.Rank(), log),
		log:       log,
	}
}

func (n *Node) ID() int { return n.id }

func (n *Node) State() State { return State(n.state.Load()) }

// Processed is the number of tasks answered so far
func (n *Node) Processed() int { return int(n.processed.Load()) }

// Start serves tasks until the master sends Terminate. It returns nil on
// termination and an error if the transport fails, ctx ends, or the master
// sends something a worker cannot handle.
func (n *Node) Start(ctx context.Context) error {
	n.log.Info("Starting worker",
		zap.String("version", protocol.ToyGrepVersion),
		zap.Any("executors", executors.ListExecutors()))

	for {
		msg, err := n.comm.Recv(ctx, protocol.MasterRank)
		if err != nil {
			return fmt.Errorf("worker %d: %w", n.id, err)
		}

		switch msg.Kind {
		case protocol.KindTask:
			if msg.Task == nil {
				return fmt.Errorf("%w: task message without task", toygrep.ErrUnexpectedMessage)
			}

			result := n.processor.Process(ctx, *msg.Task)
			if err := n.comm.Send(ctx, protocol.MasterRank, protocol.NewResultMessage(result)); err != nil {
				return fmt.Errorf("worker %d: reply to task %s: %w", n.id, msg.Task.ID, err)
			}
			n.processed.Add(1)

		case protocol.KindTerminate:
			n.state.Store(int32(StateTerminated))
			n.log.Info("Terminated", zap.Int("processed", n.Processed()))
			return nil

		default:
			return fmt.Errorf("%w: worker %d got %q", toygrep.ErrUnexpectedMessage, n.id, msg.Kind)
		}
	}
}
