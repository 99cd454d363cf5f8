package compress

import "github.com/arloliu/plycol/format"

// ZstdCodec provides Zstandard streams, the best ratio of the supported
// containers and the usual choice for archiving large scans.
//
// The pure Go implementation from klauspost/compress is used by default.
// Building with cgo and the "gozstd" tag switches to the libzstd binding.
type ZstdCodec struct{}

var _ Codec = (*ZstdCodec)(nil)

// NewZstdCodec creates a new Zstd codec with default settings.
//
// Example:
//
//	codec := NewZstdCodec()
//	w, err := codec.NewWriter(file)
//	if err != nil {
//		return err
//	}
//	defer w.Close()
func NewZstdCodec() ZstdCodec {
	return ZstdCodec{}
}

func (c ZstdCodec) Type() format.CompressionType {
	return format.CompressionZstd
}
