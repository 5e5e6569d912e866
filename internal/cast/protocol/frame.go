package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxFrameSize bounds how large a single CastMessage frame is allowed to
// be, guarding against a misbehaving receiver sending a bogus length
// prefix that would otherwise make ReadFrame allocate unbounded memory.
const maxFrameSize = 16 * 1024 * 1024

// WriteFrame writes payload to w prefixed with its length as a 4-byte
// big-endian uint32, the framing the real Cast v2 wire protocol uses.
func WriteFrame(w io.Writer, payload []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("protocol: writing frame length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("protocol: writing frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("protocol: reading frame length: %w", err)
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > maxFrameSize {
		return nil, fmt.Errorf("protocol: frame length %d exceeds maximum %d", length, maxFrameSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("protocol: reading frame payload: %w", err)
	}
	return payload, nil
}
