package compress

import (
	"io"

	"github.com/arloliu/plycol/format"
	"github.com/klauspost/compress/s2"
)

// S2Codec provides S2 framed streams: fast compression with a moderate ratio.
// The reader also accepts Snappy framed streams.
type S2Codec struct{}

var _ Codec = (*S2Codec)(nil)

// NewS2Codec creates a new S2 codec.
func NewS2Codec() S2Codec {
	return S2Codec{}
}

func (c S2Codec) Type() format.CompressionType {
	return format.CompressionS2
}

func (c S2Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(s2.NewReader(r)), nil
}

func (c S2Codec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return s2.NewWriter(w, s2.WriterConcurrency(1)), nil
}
