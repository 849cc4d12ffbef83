package transport

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"pkg.jsn.cam/toygrep/pkg/toygrep/protocol"
)

// maxFrameSize bounds a single envelope; a task carries one corpus slice.
const maxFrameSize = 1 << 28

var errFrameTooLarge = errors.New("frame exceeds maximum size")

// writeFrame writes one length-prefixed (u32 big endian) envelope and
// flushes it.
func writeFrame(w *bufio.Writer, codec Codec, msg protocol.Message) error {
	body, err := codec.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Kind, err)
	}
	if len(body) > maxFrameSize {
		return errFrameTooLarge
	}

	var lenbuf [4]byte
	binary.BigEndian.PutUint32(lenbuf[:], uint32(len(body)))

	if _, err := w.Write(lenbuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}

	return w.Flush()
}

// readFrame reads and decodes one envelope.
func readFrame(r *bufio.Reader, codec Codec) (protocol.Message, error) {
	var msg protocol.Message

	var lenbuf [4]byte
	if _, err := io.ReadFull(r, lenbuf[:]); err != nil {
		return msg, err
	}

	n := binary.BigEndian.Uint32(lenbuf[:])
	if n > maxFrameSize {
		return msg, errFrameTooLarge
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return msg, err
	}

	if err := codec.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("decode frame: %w", err)
	}

	return msg, nil
}
