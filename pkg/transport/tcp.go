package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pkg.jsn.cam/toygrep/pkg/toygrep"
	"pkg.jsn.cam/toygrep/pkg/toygrep/protocol"
)

// handshakeTimeout bounds the Hello/Welcome exchange on an accepted conn.
const handshakeTimeout = 10 * time.Second

// ErrRejected is returned by DialTCP when the master refuses the worker
var ErrRejected = errors.New("rejected by master")

// Hello and Welcome are always JSON so peers can agree on the codec used
// for everything after them.
var handshakeCodec = JSON()

// TCPOptions configures the TCP transport
type TCPOptions struct {
	Codec       string // frame codec the worker proposes (cbor or json)
	DialTimeout time.Duration
	Logger      *zap.Logger
}

func (o TCPOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// tcpPeer is one end of an established, handshaken connection
type tcpPeer struct {
	rank   int
	nodeID string
	conn   net.Conn
	codec  Codec

	wmu sync.Mutex
	bw  *bufio.Writer

	inbox chan protocol.Message
	done  chan struct{}
	once  sync.Once
	err   error // written by readLoop before inbox is closed
}

func newTCPPeer(rank int, nodeID string, conn net.Conn, bw *bufio.Writer, codec Codec) *tcpPeer {
	return &tcpPeer{
		rank:   rank,
		nodeID: nodeID,
		conn:   conn,
		codec:  codec,
		bw:     bw,
		inbox:  make(chan protocol.Message, mailboxSize),
		done:   make(chan struct{}),
	}
}

// readLoop decodes frames into the inbox until the connection fails.
func (p *tcpPeer) readLoop(br *bufio.Reader) {
	defer close(p.inbox)

	for {
		msg, err := readFrame(br, p.codec)
		if err != nil {
			p.err = err
			return
		}

		select {
		case p.inbox <- msg:
		case <-p.done:
			p.err = ErrClosed
			return
		}
	}
}

func (p *tcpPeer) send(ctx context.Context, msg protocol.Message) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = p.conn.SetWriteDeadline(deadline)
		defer p.conn.SetWriteDeadline(time.Time{})
	}

	if err := writeFrame(p.bw, p.codec, msg); err != nil {
		return transportErr("send to", p.rank, err)
	}

	return nil
}

func (p *tcpPeer) recv(ctx context.Context) (protocol.Message, error) {
	select {
	case msg, ok := <-p.inbox:
		if !ok {
			return protocol.Message{}, p.closedErr()
		}
		return msg, nil
	case <-ctx.Done():
		return protocol.Message{}, ctx.Err()
	}
}

func (p *tcpPeer) tryRecv() (protocol.Message, bool, error) {
	select {
	case msg, ok := <-p.inbox:
		if !ok {
			return protocol.Message{}, false, p.closedErr()
		}
		return msg, true, nil
	default:
		return protocol.Message{}, false, nil
	}
}

func (p *tcpPeer) closedErr() error {
	if p.err != nil {
		return transportErr("recv from", p.rank, p.err)
	}
	return transportErr("recv from", p.rank, ErrClosed)
}

func (p *tcpPeer) close() error {
	p.once.Do(func() { close(p.done) })
	return p.conn.Close()
}

// TCPMaster is the master's endpoint of a TCP topology. Workers dial it and
// are given ranks 1..W in the order their handshake completes.
type TCPMaster struct {
	ln      net.Listener
	workers int
	peers   []*tcpPeer
	log     *zap.Logger
}

// ListenTCP binds addr for a topology of the given number of workers.
// Call AcceptWorkers before using the Comm.
func ListenTCP(addr string, workers int, opts TCPOptions) (*TCPMaster, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: got %d", toygrep.ErrNoWorkers, workers)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: listen %s: %w", toygrep.ErrTransport, addr, err)
	}

	return &TCPMaster{
		ln:      ln,
		workers: workers,
		log:     opts.logger().Named("transport"),
	}, nil
}

// Addr returns the listening address
func (m *TCPMaster) Addr() net.Addr { return m.ln.Addr() }

// AcceptWorkers blocks until every worker has joined or ctx is done.
// Workers that fail the handshake are rejected and do not take a rank.
func (m *TCPMaster) AcceptWorkers(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = m.ln.Close()
		case <-done:
		}
	}()

	for len(m.peers) < m.workers {
		conn, err := m.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: accept: %w", toygrep.ErrTransport, err)
		}

		rank := len(m.peers) + 1
		peer, br, err := m.handshake(conn, rank)
		if err != nil {
			m.log.Warn("Rejected worker",
				zap.String("remote", conn.RemoteAddr().String()),
				zap.Error(err))
			_ = conn.Close()
			continue
		}

		m.peers = append(m.peers, peer)
		go peer.readLoop(br)

		m.log.Info("Worker joined",
			zap.Int("rank", rank),
			zap.String("node_id", peer.nodeID),
			zap.String("codec", peer.codec.Name()),
			zap.String("remote", conn.RemoteAddr().String()),
			zap.Int("joined", len(m.peers)),
			zap.Int("expected", m.workers))
	}

	return nil
}

func (m *TCPMaster) handshake(conn net.Conn, rank int) (*tcpPeer, *bufio.Reader, error) {
	_ = conn.SetDeadline(time.Now().Add(handshakeTimeout))
	defer conn.SetDeadline(time.Time{})

	br := bufio.NewReader(conn)
	bw := bufio.NewWriter(conn)

	msg, err := readFrame(br, handshakeCodec)
	if err != nil {
		return nil, nil, err
	}
	if msg.Kind != protocol.KindHello || msg.Hello == nil {
		return nil, nil, fmt.Errorf("%w: %s before hello", toygrep.ErrUnexpectedMessage, msg.Kind)
	}
	hello := msg.Hello

	reject := func(reason error) (*tcpPeer, *bufio.Reader, error) {
		_ = writeFrame(bw, handshakeCodec, protocol.Message{
			Kind:    protocol.KindWelcome,
			Welcome: &protocol.Welcome{Error: reason.Error()},
		})
		return nil, nil, reason
	}

	if err := protocol.CheckHello(hello); err != nil {
		return reject(err)
	}

	codec, err := CodecByName(hello.Codec)
	if err != nil {
		return reject(err)
	}

	welcome := protocol.Message{
		Kind:    protocol.KindWelcome,
		Source:  protocol.MasterRank,
		Welcome: &protocol.Welcome{Rank: rank, Size: m.workers + 1},
	}
	if err := writeFrame(bw, handshakeCodec, welcome); err != nil {
		return nil, nil, err
	}

	return newTCPPeer(rank, hello.NodeID, conn, bw, codec), br, nil
}

func (m *TCPMaster) Rank() int { return protocol.MasterRank }
func (m *TCPMaster) Size() int { return m.workers + 1 }

func (m *TCPMaster) peer(rank int) (*tcpPeer, error) {
	if err := checkRank(rank, m.Size()); err != nil {
		return nil, err
	}
	if rank == protocol.MasterRank || rank > len(m.peers) {
		return nil, fmt.Errorf("%w: rank %d has not joined", toygrep.ErrUnknownWorker, rank)
	}

	return m.peers[rank-1], nil
}

func (m *TCPMaster) Send(ctx context.Context, dest int, msg protocol.Message) error {
	p, err := m.peer(dest)
	if err != nil {
		return err
	}
	msg.Source = protocol.MasterRank

	return p.send(ctx, msg)
}

func (m *TCPMaster) Recv(ctx context.Context, source int) (protocol.Message, error) {
	p, err := m.peer(source)
	if err != nil {
		return protocol.Message{}, err
	}

	return p.recv(ctx)
}

func (m *TCPMaster) TryRecv(source int) (protocol.Message, bool, error) {
	p, err := m.peer(source)
	if err != nil {
		return protocol.Message{}, false, err
	}

	return p.tryRecv()
}

// Close stops listening and drops every worker connection
func (m *TCPMaster) Close() error {
	err := m.ln.Close()
	for _, p := range m.peers {
		_ = p.close()
	}
	if errors.Is(err, net.ErrClosed) {
		return nil
	}

	return err
}

// TCPWorker is a worker's endpoint of a TCP topology
type TCPWorker struct {
	master *tcpPeer
	rank   int
	size   int
	nodeID string
}

// DialTCP connects to the master at addr and completes the handshake. It
// blocks until the master admits the worker, rejects it, or ctx is done.
func DialTCP(ctx context.Context, addr string, opts TCPOptions) (*TCPWorker, error) {
	codec, err := CodecByName(opts.Codec)
	if err != nil {
		return nil, err
	}

	d := net.Dialer{Timeout: opts.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", toygrep.ErrTransport, addr, err)
	}

	// the master only answers once it is accepting workers, so the wait is
	// bounded by ctx rather than a fixed deadline
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	nodeID := uuid.NewString()
	br := bufio.NewReader(conn)
	bw := bufio.NewWriter(conn)

	hello := protocol.Message{
		Kind: protocol.KindHello,
		Hello: &protocol.Hello{
			NodeID:  nodeID,
			Version: protocol.ToyGrepVersion,
			Codec:   codec.Name(),
		},
	}
	if err := writeFrame(bw, handshakeCodec, hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: hello: %w", toygrep.ErrTransport, err)
	}

	msg, err := readFrame(br, handshakeCodec)
	if err != nil {
		conn.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: welcome: %w", toygrep.ErrTransport, err)
	}
	if msg.Kind != protocol.KindWelcome || msg.Welcome == nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %s before welcome", toygrep.ErrUnexpectedMessage, msg.Kind)
	}
	if msg.Welcome.Error != "" {
		conn.Close()
		return nil, fmt.Errorf("%w: %s", ErrRejected, msg.Welcome.Error)
	}

	master := newTCPPeer(protocol.MasterRank, "master", conn, bw, codec)
	go master.readLoop(br)

	opts.logger().Named("transport").Info("Joined master",
		zap.String("addr", addr),
		zap.String("node_id", nodeID),
		zap.Int("rank", msg.Welcome.Rank),
		zap.Int("size", msg.Welcome.Size))

	return &TCPWorker{
		master: master,
		rank:   msg.Welcome.Rank,
		size:   msg.Welcome.Size,
		nodeID: nodeID,
	}, nil
}

// NodeID is the identity the worker announced in its Hello
func (w *TCPWorker) NodeID() string { return w.nodeID }

func (w *TCPWorker) Rank() int { return w.rank }
func (w *TCPWorker) Size() int { return w.size }

func (w *TCPWorker) Send(ctx context.Context, dest int, msg protocol.Message) error {
	if dest != protocol.MasterRank {
		return fmt.Errorf("%w: workers only talk to the master, not rank %d", toygrep.ErrUnknownWorker, dest)
	}
	msg.Source = w.rank

	return w.master.send(ctx, msg)
}

func (w *TCPWorker) Recv(ctx context.Context, source int) (protocol.Message, error) {
	if source != protocol.MasterRank {
		return protocol.Message{}, fmt.Errorf("%w: workers only talk to the master, not rank %d", toygrep.ErrUnknownWorker, source)
	}

	return w.master.recv(ctx)
}

func (w *TCPWorker) TryRecv(source int) (protocol.Message, bool, error) {
	if source != protocol.MasterRank {
		return protocol.Message{}, false, fmt.Errorf("%w: workers only talk to the master, not rank %d", toygrep.ErrUnknownWorker, source)
	}

	return w.master.tryRecv()
}

func (w *TCPWorker) Close() error {
	return w.master.close()
}
