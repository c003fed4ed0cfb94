package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize is the length cap enforced on both directions (§4.1).
const MaxFrameSize = 65536

var (
	// ErrFrameTooLarge is returned when the length prefix (read side) or the
	// encoded body (write side) exceeds MaxFrameSize.
	ErrFrameTooLarge = errors.New("wire: frame too large")
	// ErrDecodeFailed covers malformed MessagePack or an envelope-level
	// schema mismatch.
	ErrDecodeFailed = errors.New("wire: decode failed")
	// ErrEndOfStream is returned on a short read of the length prefix,
	// meaning the peer closed its side of the channel.
	ErrEndOfStream = errors.New("wire: end of stream")
)

// Codec reads and writes framed envelopes. Stateless, safe for one reader
// goroutine and one writer goroutine to use concurrently on the same
// connection (distinct methods, never the same method).
type Codec struct{}

// ReadEnvelope reads exactly one frame: a 4-byte little-endian length prefix
// followed by that many bytes of MessagePack, and decodes it into an
// Envelope with Payload left as an untyped tree.
func (Codec) ReadEnvelope(r io.Reader) (*Envelope, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrEndOfStream
		}
		return nil, fmt.Errorf("wire: read length prefix: %w", err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated body", ErrDecodeFailed)
		}
		return nil, fmt.Errorf("wire: read body: %w", err)
	}
	env, err := decodeEnvelope(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return env, nil
}

// WriteEnvelope encodes env, verifies the size cap, and writes the framed
// wire representation as two writes (length prefix, then body), flushing w
// afterwards if it supports Flush.
func (Codec) WriteEnvelope(w io.Writer, env *Envelope) error {
	body, err := encodeEnvelope(env)
	if err != nil {
		return fmt.Errorf("wire: encode: %w", err)
	}
	if len(body) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(body))
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("wire: write length prefix: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("wire: write body: %w", err)
	}
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
