package channel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
)

// DefaultMaxFrameSize limits frames to 10MB to prevent memory exhaustion
// when the peer misbehaves.
const DefaultMaxFrameSize = 10 * 1024 * 1024

// ErrFrameTooLarge is returned when a frame exceeds the configured size cap.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// Message is one JSON document exchanged with the peer.
type Message = map[string]interface{}

// ReadFrame reads a single length-prefixed JSON frame: a 4-byte little-endian
// length followed by that many bytes of JSON. Returns io.EOF when the stream
// ends cleanly on a frame boundary.
func ReadFrame(r io.Reader, maxSize int) (Message, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}

	length := binary.LittleEndian.Uint32(header[:])
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}
	if length > uint32(maxSize) {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("truncated frame: %w", err)
	}

	var msg Message
	if err := sonic.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	return msg, nil
}

// WriteFrame writes a single length-prefixed JSON frame.
func WriteFrame(w io.Writer, msg Message, maxSize int) error {
	payload, err := sonic.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}
	if len(payload) > maxSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write frame payload: %w", err)
	}
	return nil
}
