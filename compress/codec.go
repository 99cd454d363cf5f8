package compress

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/arloliu/plycol/errs"
	"github.com/arloliu/plycol/format"
)

// Codec wraps a byte stream in a compression container.
//
// Readers and writers returned by a Codec are single use. Closing a writer
// flushes the container trailer but never closes the underlying writer.
type Codec interface {
	// Type returns the container type produced and consumed by the codec.
	Type() format.CompressionType

	// NewReader returns a reader yielding the decompressed content of r.
	NewReader(r io.Reader) (io.ReadCloser, error)

	// NewWriter returns a writer compressing everything written into w.
	// The container is complete only after Close.
	NewWriter(w io.Writer) (io.WriteCloser, error)
}

// Stats describes the effect of compressing one stream.
type Stats struct {
	// Algorithm identifies the compression algorithm used
	Algorithm format.CompressionType

	// OriginalSize is the size of the stream before compression
	OriginalSize int64

	// CompressedSize is the size of the stream after compression
	CompressedSize int64
}

// CompressionRatio returns the compression ratio (compressed size / original size).
//
// Values less than 1.0 indicate successful compression.
//
// Returns:
//   - float64: Compression ratio (0.0 if original size is zero)
func (s Stats) CompressionRatio() float64 {
	if s.OriginalSize == 0 {
		return 0.0
	}

	return float64(s.CompressedSize) / float64(s.OriginalSize)
}

// SpaceSavings returns the space savings as a percentage (0-100%).
func (s Stats) SpaceSavings() float64 {
	return (1.0 - s.CompressionRatio()) * 100.0
}

// CreateCodec is a factory function that creates a Codec based on the specified compression type.
//
// Parameters:
//   - compressionType: Type of compression (None, Zstd, S2, LZ4 or Gzip)
//   - target: Description of target usage (for error messages)
//
// Returns:
//   - Codec: Codec instance for the specified type
//   - error: errs.ErrUnsupportedCompression for an unknown type
func CreateCodec(compressionType format.CompressionType, target string) (Codec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewNoOpCodec(), nil
	case format.CompressionZstd:
		return NewZstdCodec(), nil
	case format.CompressionS2:
		return NewS2Codec(), nil
	case format.CompressionLZ4:
		return NewLZ4Codec(), nil
	case format.CompressionGzip:
		return NewGzipCodec(), nil
	default:
		return nil, fmt.Errorf("%w: invalid %s compression: %s", errs.ErrUnsupportedCompression, target, compressionType)
	}
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCodec(),
	format.CompressionZstd: NewZstdCodec(),
	format.CompressionS2:   NewS2Codec(),
	format.CompressionLZ4:  NewLZ4Codec(),
	format.CompressionGzip: NewGzipCodec(),
}

// GetCodec retrieves a built-in Codec for the specified compression type.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedCompression, compressionType)
}

var errClosed = errors.New("compress: use of closed stream")

// Container magic numbers.
var (
	zstdMagic   = []byte{0x28, 0xB5, 0x2F, 0xFD}
	gzipMagic   = []byte{0x1F, 0x8B}
	lz4Magic    = []byte{0x04, 0x22, 0x4D, 0x18}
	s2Magic     = []byte("\xff\x06\x00\x00S2sTwO")
	snappyMagic = []byte("\xff\x06\x00\x00sNaPpY")
)

// SniffSize is the number of leading bytes Detect needs to recognize every
// supported container.
const SniffSize = 10

// Detect identifies the container of a stream from its first bytes.
// Anything unrecognized, including a plain "ply" header, is CompressionNone.
func Detect(prefix []byte) format.CompressionType {
	switch {
	case bytes.HasPrefix(prefix, zstdMagic):
		return format.CompressionZstd
	case bytes.HasPrefix(prefix, gzipMagic):
		return format.CompressionGzip
	case bytes.HasPrefix(prefix, lz4Magic):
		return format.CompressionLZ4
	case bytes.HasPrefix(prefix, s2Magic), bytes.HasPrefix(prefix, snappyMagic):
		return format.CompressionS2
	default:
		return format.CompressionNone
	}
}

// Sniff peeks at the head of r and returns the detected container. No bytes
// are consumed.
func Sniff(r *bufio.Reader) (format.CompressionType, error) {
	prefix, err := r.Peek(SniffSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return format.CompressionNone, err
	}

	return Detect(prefix), nil
}

// NewReader detects the container of r and returns a reader of its
// decompressed content together with the detected type.
func NewReader(r io.Reader) (io.ReadCloser, format.CompressionType, error) {
	br, ok := r.(*bufio.Reader)
	if !ok || br.Size() < SniffSize {
		br = bufio.NewReader(r)
	}

	ct, err := Sniff(br)
	if err != nil {
		return nil, ct, err
	}
	codec, err := GetCodec(ct)
	if err != nil {
		return nil, ct, err
	}
	rc, err := codec.NewReader(br)
	if err != nil {
		return nil, ct, fmt.Errorf("open %s stream: %w", ct, err)
	}

	return rc, ct, nil
}

var extensions = map[string]format.CompressionType{
	".zst":  format.CompressionZstd,
	".zstd": format.CompressionZstd,
	".sz":   format.CompressionS2,
	".s2":   format.CompressionS2,
	".lz4":  format.CompressionLZ4,
	".gz":   format.CompressionGzip,
}

// FromPath returns the container implied by the extension of path, e.g.
// "scan.ply.zst". Paths without a known extension are CompressionNone.
func FromPath(path string) format.CompressionType {
	if ct, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}

	return format.CompressionNone
}

// Extension returns the canonical file extension of a container, "" for
// CompressionNone.
func Extension(ct format.CompressionType) string {
	switch ct { //nolint: exhaustive
	case format.CompressionZstd:
		return ".zst"
	case format.CompressionS2:
		return ".sz"
	case format.CompressionLZ4:
		return ".lz4"
	case format.CompressionGzip:
		return ".gz"
	default:
		return ""
	}
}
