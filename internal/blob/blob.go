// Package blob compresses chapter payloads for storage. Payloads are
// standard zstd frames, so the algorithm is recoverable from the stored
// bytes themselves rather than from whatever the code happens to link
// against when the row is read back years later.
package blob

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// DefaultLevel matches the level the library has always compressed at.
// Changing it only affects new rows; old frames stay readable.
const DefaultLevel = 8

// ErrCorrupt is returned when a stored payload cannot be decompressed.
// Truncated or damaged frames surface this instead of partial content.
var ErrCorrupt = errors.New("blob: corrupt or truncated payload")

// Codec compresses and decompresses chapter payloads. A Codec is safe
// for concurrent use.
type Codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCodec creates a codec compressing at the given zstd level (1-22).
func NewCodec(level int) (*Codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, fmt.Errorf("blob: create encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("blob: create decoder: %w", err)
	}
	return &Codec{enc: enc, dec: dec}, nil
}

// Compress returns p as a self-contained zstd frame.
func (c *Codec) Compress(p []byte) []byte {
	return c.enc.EncodeAll(p, nil)
}

// Decompress inflates a stored frame. Any decoding failure is reported
// as ErrCorrupt; no partial content is ever returned.
func (c *Codec) Decompress(p []byte) ([]byte, error) {
	out, err := c.dec.DecodeAll(p, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return out, nil
}
