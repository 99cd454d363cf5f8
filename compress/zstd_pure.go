//go:build !(cgo && gozstd)

package compress

import (
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// zstdDecoderPool pools zstd decoders for reuse. Decoders run without
// allocations after warmup, so loading many files reuses them through Reset.
var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(false),
		)
		if err != nil {
			// This should never happen with valid options
			panic(fmt.Sprintf("failed to create zstd decoder for pool: %v", err))
		}

		return decoder
	},
}

// zstdEncoderPool pools zstd encoders for reuse.
var zstdEncoderPool = sync.Pool{
	New: func() any {
		encoder, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			// This should never happen with valid options
			panic(fmt.Sprintf("failed to create zstd encoder for pool: %v", err))
		}

		return encoder
	},
}

// NewReader returns a pooled decoder reading from r. Close returns the
// decoder to the pool.
func (c ZstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	decoder, _ := zstdDecoderPool.Get().(*zstd.Decoder)
	if err := decoder.Reset(r); err != nil {
		zstdDecoderPool.Put(decoder)
		return nil, fmt.Errorf("zstd reader: %w", err)
	}

	return &zstdReader{decoder: decoder}, nil
}

// NewWriter returns a pooled encoder writing to w. Close writes the frame
// trailer and returns the encoder to the pool.
func (c ZstdCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	encoder, _ := zstdEncoderPool.Get().(*zstd.Encoder)
	encoder.Reset(w)

	return &zstdWriter{encoder: encoder}, nil
}

type zstdReader struct {
	decoder *zstd.Decoder
}

func (z *zstdReader) Read(p []byte) (int, error) {
	if z.decoder == nil {
		return 0, errClosed
	}

	return z.decoder.Read(p)
}

func (z *zstdReader) Close() error {
	if z.decoder == nil {
		return nil
	}
	// Reset(nil) releases the source; the decoder stays usable.
	_ = z.decoder.Reset(nil)
	zstdDecoderPool.Put(z.decoder)
	z.decoder = nil

	return nil
}

type zstdWriter struct {
	encoder *zstd.Encoder
}

func (z *zstdWriter) Write(p []byte) (int, error) {
	if z.encoder == nil {
		return 0, errClosed
	}

	return z.encoder.Write(p)
}

func (z *zstdWriter) Close() error {
	if z.encoder == nil {
		return nil
	}
	err := z.encoder.Close()
	z.encoder.Reset(nil)
	zstdEncoderPool.Put(z.encoder)
	z.encoder = nil

	return err
}
