package partition

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/hadoop835/iggy/pkg/directory"
)

// compressor transforms a message payload before it reaches the segment
// store and reverses the transform on read. The in-memory cache never sees
// the compressed form; only Store.Append/Read does.
type compressor interface {
	compress(payload []byte) ([]byte, error)
	decompress(payload []byte) ([]byte, error)
}

type noopCompressor struct{}

func (noopCompressor) compress(payload []byte) ([]byte, error)   { return payload, nil }
func (noopCompressor) decompress(payload []byte) ([]byte, error) { return payload, nil }

// zstdCompressor wraps a reusable encoder/decoder pair. Both are safe for
// concurrent use across goroutines, so one pair serves every partition of
// a topic.
type zstdCompressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newZstdCompressor() (*zstdCompressor, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("partition: new zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("partition: new zstd decoder: %w", err)
	}
	return &zstdCompressor{encoder: encoder, decoder: decoder}, nil
}

func (c *zstdCompressor) compress(payload []byte) ([]byte, error) {
	return c.encoder.EncodeAll(payload, make([]byte, 0, len(payload))), nil
}

func (c *zstdCompressor) decompress(payload []byte) ([]byte, error) {
	return c.decoder.DecodeAll(payload, nil)
}

func compressorFor(alg directory.CompressionAlgorithm) (compressor, error) {
	switch alg {
	case directory.CompressionZstd:
		return newZstdCompressor()
	default:
		return noopCompressor{}, nil
	}
}
