package column

import (
	"fmt"

	"github.com/arloliu/plycol/errs"
	"github.com/arloliu/plycol/format"
)

const minBufferGrowth = 4096

// Buffer accumulates host-order values in aligned memory and hands them over
// to a column once complete. It grows with the data actually appended, so a
// record count read from an untrusted header never sizes an allocation on its
// own.
//
// The buffer must not be used after one of Scalar, List or Ragged returned.
type Buffer struct {
	data []byte
}

// NewBuffer returns an empty buffer with room for capacity bytes.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{data: alloc(capacity)[:0]}
}

// Len returns the number of bytes appended so far.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Extend grows the buffer by n bytes and returns them for the caller to fill.
// The returned slice is only valid until the next call.
func (b *Buffer) Extend(n int) []byte {
	start := len(b.data)
	if n > cap(b.data)-start {
		grown := alloc(max(2*cap(b.data), start+n, minBufferGrowth))
		copy(grown, b.data)
		b.data = grown[:start]
	}
	b.data = b.data[:start+n]

	return b.data[start:]
}

// Scalar turns the buffer into a scalar column holding one value per
// kind-sized slot.
func (b *Buffer) Scalar(kind format.Kind) (*Column, error) {
	size := kind.Size()
	if size == 0 {
		return nil, fmt.Errorf("%w: invalid kind %s", errs.ErrKindMismatch, kind)
	}
	if len(b.data)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes do not hold whole %s values",
			errs.ErrSchemaMismatch, len(b.data), kind)
	}

	return &Column{
		kind:   kind,
		layout: LayoutScalar,
		rows:   len(b.data) / size,
		width:  1,
		data:   b.take(),
	}, nil
}

// List turns the buffer into a fixed-width list column of shape (rows, width).
func (b *Buffer) List(kind format.Kind, rows, width int) (*Column, error) {
	size := kind.Size()
	if size == 0 {
		return nil, fmt.Errorf("%w: invalid kind %s", errs.ErrKindMismatch, kind)
	}
	if rows < 0 || width < 0 {
		return nil, fmt.Errorf("%w: invalid list shape (%d, %d)", errs.ErrSchemaMismatch, rows, width)
	}

	stride := width * size
	ok := len(b.data) == 0 && (rows == 0 || width == 0)
	if stride > 0 {
		ok = len(b.data)%stride == 0 && len(b.data)/stride == rows
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d bytes do not match list shape (%d, %d) of %s",
			errs.ErrSchemaMismatch, len(b.data), rows, width, kind)
	}

	return &Column{
		kind:   kind,
		layout: LayoutList,
		rows:   rows,
		width:  width,
		data:   b.take(),
	}, nil
}

// Ragged turns the buffer into a ragged list column; see NewRagged for the
// offsets contract.
func (b *Buffer) Ragged(kind format.Kind, offsets []int64) (*Column, error) {
	return NewRagged(kind, offsets, b.take())
}

func (b *Buffer) take() []byte {
	data := b.data
	b.data = nil

	return data
}
