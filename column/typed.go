package column

import (
	"fmt"
	"unsafe"

	"github.com/arloliu/plycol/errs"
	"github.com/arloliu/plycol/format"
)

// Number is the set of Go types that back PLY kinds one to one.
type Number interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64
}

// KindOf returns the PLY kind stored by T.
func KindOf[T Number]() format.Kind {
	var zero T
	switch any(zero).(type) {
	case int8:
		return format.Int8
	case uint8:
		return format.Uint8
	case int16:
		return format.Int16
	case uint16:
		return format.Uint16
	case int32:
		return format.Int32
	case uint32:
		return format.Uint32
	case int64:
		return format.Int64
	case uint64:
		return format.Uint64
	case float32:
		return format.Float32
	case float64:
		return format.Float64
	}

	return format.KindInvalid
}

// Values returns a typed view over all values of c, row-major for list and
// matrix layouts. The second result is false when T does not match the column
// kind; no conversion is ever performed.
//
// The view aliases the column storage and must be treated as read-only.
func Values[T Number](c *Column) ([]T, bool) {
	if c == nil || KindOf[T]() != c.kind {
		return nil, false
	}

	return view[T](c.data), true
}

// Row returns a typed view of the values of row i.
func Row[T Number](c *Column, i int) ([]T, bool) {
	if c == nil || KindOf[T]() != c.kind || i < 0 || i >= c.rows {
		return nil, false
	}

	return view[T](c.RowBytes(i)), true
}

// MustValues is Values for callers that already checked the kind.
// It panics with errs.ErrKindMismatch otherwise.
func MustValues[T Number](c *Column) []T {
	v, ok := Values[T](c)
	if !ok {
		panic(fmt.Errorf("%w: column is %s, requested %s", errs.ErrKindMismatch, c.kind, KindOf[T]()))
	}

	return v
}

// FromSlice wraps values as a scalar column without copying.
// The column takes ownership of values.
func FromSlice[T Number](values []T) *Column {
	return &Column{
		kind:   KindOf[T](),
		layout: LayoutScalar,
		rows:   len(values),
		width:  1,
		data:   asBytes(values),
	}
}

// FromFixedList wraps row-major values as a list column of the given width
// without copying.
func FromFixedList[T Number](values []T, width int) (*Column, error) {
	if width < 0 || (width == 0 && len(values) != 0) || (width > 0 && len(values)%width != 0) {
		return nil, fmt.Errorf("%w: %d values cannot form rows of width %d", errs.ErrSchemaMismatch, len(values), width)
	}
	rows := 0
	if width > 0 {
		rows = len(values) / width
	}

	return &Column{
		kind:   KindOf[T](),
		layout: LayoutList,
		rows:   rows,
		width:  width,
		data:   asBytes(values),
	}, nil
}

// FromFixedListRows builds a list column with rows zero-width lists. It covers
// the degenerate case FromFixedList cannot express.
func FromFixedListRows[T Number](rows int) *Column {
	return NewList(KindOf[T](), rows, 0)
}

// FromRagged wraps offsets and flat values as a ragged list column.
func FromRagged[T Number](offsets []int64, values []T) (*Column, error) {
	return NewRagged(KindOf[T](), offsets, asBytes(values))
}

// FromRows copies rows into a ragged list column.
func FromRows[T Number](rows [][]T) *Column {
	total := 0
	for _, r := range rows {
		total += len(r)
	}

	size := KindOf[T]().Size()
	data := alloc(total * size)
	flat := view[T](data)
	offsets := make([]int64, len(rows)+1)
	pos := 0
	for i, r := range rows {
		copy(flat[pos:], r)
		pos += len(r)
		offsets[i+1] = int64(pos)
	}

	return &Column{
		kind:    KindOf[T](),
		layout:  LayoutRagged,
		rows:    len(rows),
		data:    data,
		offsets: offsets,
	}
}

func view[T Number](b []byte) []T {
	var zero T
	n := len(b) / int(unsafe.Sizeof(zero))
	if n == 0 {
		return []T{}
	}

	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n)
}

func asBytes[T Number](values []T) []byte {
	if len(values) == 0 {
		return []byte{}
	}
	var zero T

	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(values))), len(values)*int(unsafe.Sizeof(zero)))
}
