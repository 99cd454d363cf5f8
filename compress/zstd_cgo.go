//go:build cgo && gozstd

package compress

import (
	"io"

	"github.com/valyala/gozstd"
)

const gozstdLevel = 3

// NewReader returns a libzstd stream reader. Close releases its C resources.
func (c ZstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return &gozstdReader{r: gozstd.NewReader(r)}, nil
}

// NewWriter returns a libzstd stream writer. Close flushes the frame and
// releases its C resources.
func (c ZstdCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return &gozstdWriter{w: gozstd.NewWriterLevel(w, gozstdLevel)}, nil
}

type gozstdReader struct {
	r *gozstd.Reader
}

func (g *gozstdReader) Read(p []byte) (int, error) {
	if g.r == nil {
		return 0, errClosed
	}

	return g.r.Read(p)
}

func (g *gozstdReader) Close() error {
	if g.r != nil {
		g.r.Release()
		g.r = nil
	}

	return nil
}

type gozstdWriter struct {
	w *gozstd.Writer
}

func (g *gozstdWriter) Write(p []byte) (int, error) {
	if g.w == nil {
		return 0, errClosed
	}

	return g.w.Write(p)
}

func (g *gozstdWriter) Close() error {
	if g.w == nil {
		return nil
	}
	err := g.w.Close()
	g.w.Release()
	g.w = nil

	return err
}
