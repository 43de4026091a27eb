package net

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxPayload is the largest packet a feed frame can carry.
const MaxPayload = 0xFFFF - 2

var ErrFrameSize = errors.New("feed frame size out of range")

// ReadFrame reads one feed frame from r.
// Wire format: [2 bytes LE: total length including header][payload].
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	n := int(binary.LittleEndian.Uint16(header[:])) - 2
	if n <= 0 {
		return nil, fmt.Errorf("%w: header says %d", ErrFrameSize, n+2)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload (%d bytes): %w", n, err)
	}
	return payload, nil
}

// WriteFrame writes data as one feed frame. Header and payload go out in a
// single write.
func WriteFrame(w io.Writer, data []byte) error {
	if len(data) == 0 || len(data) > MaxPayload {
		return fmt.Errorf("%w: %d bytes", ErrFrameSize, len(data))
	}
	frame := make([]byte, 2, len(data)+2)
	binary.LittleEndian.PutUint16(frame, uint16(len(data)+2))
	frame = append(frame, data...)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
