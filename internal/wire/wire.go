// Package wire frames values for cross-process handoff.
//
// A frame is laid out as:
//
//	[0:4]   magic "AEW1"
//	[4:12]  xxh3 checksum of the compressed payload (little endian)
//	[12:]   zstd-compressed JSON payload
//
// Frames are produced by one rank and consumed by another, so the layout is a
// compatibility boundary: changing it invalidates entries written by older code.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"

	gojson "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/xxh3"

	"github.com/arloliu/atomenv/types"
)

const headerSize = 12

var magic = []byte("AEW1")

// EncodeAll and DecodeAll are safe for concurrent use on a shared coder.
var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
)

// Marshal encodes v into a checksummed frame.
//
// Parameters:
//   - v: Value to encode (must be JSON-serializable)
//
// Returns:
//   - []byte: Frame bytes
//   - error: JSON encoding error
func Marshal(v any) ([]byte, error) {
	payload, err := gojson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: encode payload: %w", err)
	}

	frame := make([]byte, headerSize, headerSize+len(payload)/2)
	copy(frame, magic)
	frame = encoder.EncodeAll(payload, frame)
	binary.LittleEndian.PutUint64(frame[4:headerSize], xxh3.Hash(frame[headerSize:]))

	return frame, nil
}

// Unmarshal verifies and decodes a frame produced by Marshal into v.
//
// Returns:
//   - error: ErrChecksumMismatch (wrapped) for a corrupt or foreign frame,
//     or a decoding error
func Unmarshal(frame []byte, v any) error {
	if len(frame) < headerSize || !bytes.Equal(frame[:4], magic) {
		return fmt.Errorf("%w: not a wire frame (%d bytes)", types.ErrChecksumMismatch, len(frame))
	}

	want := binary.LittleEndian.Uint64(frame[4:headerSize])
	if got := xxh3.Hash(frame[headerSize:]); got != want {
		return fmt.Errorf("%w: want %016x, got %016x", types.ErrChecksumMismatch, want, got)
	}

	payload, err := decoder.DecodeAll(frame[headerSize:], nil)
	if err != nil {
		return fmt.Errorf("wire: decompress payload: %w", err)
	}

	if err := gojson.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("wire: decode payload: %w", err)
	}

	return nil
}
