package transport

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkg.jsn.cam/toygrep/pkg/toygrep"
	"pkg.jsn.cam/toygrep/pkg/toygrep/protocol"
)

func startTCPMaster(t *testing.T, workers int) *TCPMaster {
	t.Helper()

	master, err := ListenTCP("127.0.0.1:0", workers, TCPOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { master.Close() })

	return master
}

func TestTCP_HandshakeAndExchange(t *testing.T) {
	t.Parallel()

	for _, codec := range []string{CodecCBOR, CodecJSON} {
		t.Run(codec, func(t *testing.T) {
			t.Parallel()

			master := startTCPMaster(t, 1)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			accepted := make(chan error, 1)
			go func() { accepted <- master.AcceptWorkers(ctx) }()

			worker, err := DialTCP(ctx, master.Addr().String(), TCPOptions{Codec: codec})
			require.NoError(t, err)
			defer worker.Close()

			require.NoError(t, <-accepted)
			assert.Equal(t, 1, worker.Rank())
			assert.Equal(t, 2, worker.Size())
			assert.NotEmpty(t, worker.NodeID())

			task := protocol.Task{ID: "t1", Payload: protocol.Payload{
				Op: protocol.OpSearch, Text: "I love dogs", Pattern: "love",
				Slice: toygrep.Slice{Begin: 0, End: 11},
			}}
			require.NoError(t, master.Send(ctx, 1, protocol.NewTaskMessage(task)))

			msg, err := worker.Recv(ctx, 0)
			require.NoError(t, err)
			require.Equal(t, protocol.KindTask, msg.Kind)
			assert.Equal(t, task, *msg.Task)

			result := protocol.Result{
				TaskID: "t1", WorkerID: 1, Op: protocol.OpSearch,
				Matches: []toygrep.Match{{Context: " love ", Offset: 2}},
			}
			require.NoError(t, worker.Send(ctx, 0, protocol.NewResultMessage(result)))

			var got protocol.Message
			require.Eventually(t, func() bool {
				m, ok, err := master.TryRecv(1)
				require.NoError(t, err)
				got = m
				return ok
			}, 2*time.Second, 5*time.Millisecond)

			assert.Equal(t, protocol.KindResult, got.Kind)
			assert.Equal(t, 1, got.Source)
			assert.Equal(t, result.Matches, got.Result.Matches)
		})
	}
}

func TestTCP_RanksFollowJoinOrder(t *testing.T) {
	t.Parallel()

	master := startTCPMaster(t, 2)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	accepted := make(chan error, 1)
	go func() { accepted <- master.AcceptWorkers(ctx) }()

	first, err := DialTCP(ctx, master.Addr().String(), TCPOptions{})
	require.NoError(t, err)
	defer first.Close()

	second, err := DialTCP(ctx, master.Addr().String(), TCPOptions{})
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, <-accepted)
	assert.Equal(t, 1, first.Rank())
	assert.Equal(t, 2, second.Rank())
	assert.Equal(t, []int{1, 2}, Workers(master))
}

func TestTCP_RejectsIncompatibleVersion(t *testing.T) {
	t.Parallel()

	master := startTCPMaster(t, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go master.AcceptWorkers(ctx)

	conn, err := net.Dial("tcp", master.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	br, bw := bufio.NewReader(conn), bufio.NewWriter(conn)
	require.NoError(t, writeFrame(bw, handshakeCodec, protocol.Message{
		Kind:  protocol.KindHello,
		Hello: &protocol.Hello{NodeID: "old", Version: "v0.9.0", Codec: CodecJSON},
	}))

	msg, err := readFrame(br, handshakeCodec)
	require.NoError(t, err)
	require.Equal(t, protocol.KindWelcome, msg.Kind)
	assert.Contains(t, msg.Welcome.Error, "incompatible")
	assert.Zero(t, msg.Welcome.Rank)
}

func TestTCP_AcceptHonoursContext(t *testing.T) {
	t.Parallel()

	master := startTCPMaster(t, 3)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := master.AcceptWorkers(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTCP_SendToUnjoinedRank(t *testing.T) {
	t.Parallel()

	master := startTCPMaster(t, 2)
	err := master.Send(context.Background(), 1, protocol.NewTerminateMessage())
	assert.ErrorIs(t, err, toygrep.ErrUnknownWorker)
}

func TestListenTCP_NoWorkers(t *testing.T) {
	t.Parallel()

	_, err := ListenTCP("127.0.0.1:0", 0, TCPOptions{})
	assert.ErrorIs(t, err, toygrep.ErrNoWorkers)
}
