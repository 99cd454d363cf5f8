package compress

import (
	"io"

	"github.com/arloliu/plycol/format"
	"github.com/klauspost/compress/gzip"
)

// GzipCodec provides gzip streams, readable by every archive tool.
type GzipCodec struct{}

var _ Codec = (*GzipCodec)(nil)

// NewGzipCodec creates a new gzip codec.
func NewGzipCodec() GzipCodec {
	return GzipCodec{}
}

func (c GzipCodec) Type() format.CompressionType {
	return format.CompressionGzip
}

func (c GzipCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

func (c GzipCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriterLevel(w, gzip.DefaultCompression)
}
