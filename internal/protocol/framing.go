package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxFrameSize guards against a corrupt or malicious length prefix causing
// an unbounded allocation.
const maxFrameSize = 1 << 20

// WriteFrame writes msg's serialized form prefixed by a 4-byte big-endian
// length, so the reader on the other end of a stream-oriented connection
// (TCP) knows exactly how many bytes to read for the next message.
func WriteFrame(w io.Writer, msg any) error {
	payload, err := Serialize(msg)
	if err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// ReadFrame blocks until a complete length-prefixed frame has arrived on r,
// then parses it.
func ReadFrame(r io.Reader) (any, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameSize {
		return nil, fmt.Errorf("%w: frame of %d bytes exceeds limit", ErrMalformed, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return Parse(payload)
}
