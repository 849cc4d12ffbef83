// Package transport provides point-to-point message passing between the
// master (rank 0) and its workers (ranks 1..W).
//
// Delivery is reliable and ordered per (source, destination) pair. Nothing is
// promised about ordering across pairs.
package transport

import (
	"context"
	"errors"
	"fmt"

	"pkg.jsn.cam/toygrep/pkg/toygrep"
	"pkg.jsn.cam/toygrep/pkg/toygrep/protocol"
)

// ErrClosed is returned by operations on a closed transport
var ErrClosed = errors.New("transport closed")

// Comm is one participant's view of the topology.
type Comm interface {
	// Rank is this participant's address. The master is always rank 0.
	Rank() int

	// Size is the number of participants, master included.
	Size() int

	// Send delivers msg to dest. It may block until the destination's
	// mailbox has room or ctx is done.
	Send(ctx context.Context, dest int, msg protocol.Message) error

	// Recv blocks until a message from source arrives or ctx is done.
	Recv(ctx context.Context, source int) (protocol.Message, error)

	// TryRecv returns the next message from source if one is waiting.
	// It never blocks.
	TryRecv(source int) (protocol.Message, bool, error)

	// Close releases the participant's resources.
	Close() error
}

// Workers returns the worker ranks of a topology.
func Workers(c Comm) []int {
	ranks := make([]int, 0, c.Size()-1)
	for r := 1; r < c.Size(); r++ {
		ranks = append(ranks, r)
	}

	return ranks
}

func checkRank(rank, size int) error {
	if rank < 0 || rank >= size {
		return fmt.Errorf("%w: rank %d outside topology of size %d", toygrep.ErrUnknownWorker, rank, size)
	}

	return nil
}

func transportErr(op string, rank int, err error) error {
	return fmt.Errorf("%w: %s rank %d: %w", toygrep.ErrTransport, op, rank, err)
}
