package transport

import (
	"context"
	"sync"

	"pkg.jsn.cam/toygrep/pkg/toygrep/protocol"
)

// mailboxSize bounds the messages in flight between one pair of ranks.
const mailboxSize = 16

// MemNetwork is an in-process topology: one mailbox per (source, dest) pair.
// Useful for local runs and tests.
type MemNetwork struct {
	boxes  [][]chan protocol.Message // boxes[dest][source]
	closed chan struct{}
	once   sync.Once
}

// NewMemNetwork creates a topology with a master and the given number of
// workers.
func NewMemNetwork(workers int) *MemNetwork {
	size := workers + 1
	boxes := make([][]chan protocol.Message, size)
	for dest := range boxes {
		boxes[dest] = make([]chan protocol.Message, size)
		for src := range boxes[dest] {
			boxes[dest][src] = make(chan protocol.Message, mailboxSize)
		}
	}

	return &MemNetwork{boxes: boxes, closed: make(chan struct{})}
}

// Comm returns the endpoint for rank.
func (n *MemNetwork) Comm(rank int) Comm {
	return &memComm{net: n, rank: rank}
}

// Close unblocks every pending Send and Recv.
func (n *MemNetwork) Close() error {
	n.once.Do(func() { close(n.closed) })
	return nil
}

type memComm struct {
	net  *MemNetwork
	rank int
}

func (c *memComm) Rank() int { return c.rank }
func (c *memComm) Size() int { return len(c.net.boxes) }

func (c *memComm) Send(ctx context.Context, dest int, msg protocol.Message) error {
	if err := checkRank(dest, c.Size()); err != nil {
		return err
	}
	msg.Source = c.rank

	select {
	case <-c.net.closed:
		return transportErr("send to", dest, ErrClosed)
	default:
	}

	select {
	case c.net.boxes[dest][c.rank] <- msg:
		return nil
	case <-c.net.closed:
		return transportErr("send to", dest, ErrClosed)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *memComm) Recv(ctx context.Context, source int) (protocol.Message, error) {
	if err := checkRank(source, c.Size()); err != nil {
		return protocol.Message{}, err
	}

	select {
	case msg := <-c.net.boxes[c.rank][source]:
		return msg, nil
	case <-c.net.closed:
		return protocol.Message{}, transportErr("recv from", source, ErrClosed)
	case <-ctx.Done():
		return protocol.Message{}, ctx.Err()
	}
}

func (c *memComm) TryRecv(source int) (protocol.Message, bool, error) {
	if err := checkRank(source, c.Size()); err != nil {
		return protocol.Message{}, false, err
	}

	select {
	case msg := <-c.net.boxes[c.rank][source]:
		return msg, true, nil
	default:
	}

	select {
	case <-c.net.closed:
		return protocol.Message{}, false, transportErr("recv from", source, ErrClosed)
	default:
		return protocol.Message{}, false, nil
	}
}

// Close is a no-op for a single endpoint; close the MemNetwork instead.
func (c *memComm) Close() error { return nil }
