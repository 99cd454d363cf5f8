package column

import (
	"bytes"
	"fmt"
	"math"
	"unsafe"

	"github.com/arloliu/plycol/errs"
	"github.com/arloliu/plycol/format"
	"github.com/arloliu/plycol/internal/hash"
)

// Layout describes how the values of a column are arranged.
type Layout uint8

const (
	// LayoutScalar holds one value per row, shape (rows).
	LayoutScalar Layout = iota + 1
	// LayoutList holds a fixed-width list per row, shape (rows, width).
	LayoutList
	// LayoutRagged holds a variable-length list per row as offsets plus flat values.
	LayoutRagged
	// LayoutMatrix holds several stacked scalar properties, shape (rows, width).
	LayoutMatrix
)

func (l Layout) String() string {
	switch l {
	case LayoutScalar:
		return "scalar"
	case LayoutList:
		return "list"
	case LayoutRagged:
		return "ragged"
	case LayoutMatrix:
		return "matrix"
	default:
		return "unknown"
	}
}

// Column is one contiguous, homogeneous buffer of a property.
//
// Values are stored in host byte order in exactly the declared kind. A Column
// is immutable once it has been added to an Element; the slices returned by
// Bytes, Offsets and Values alias the internal storage and must not be modified.
type Column struct {
	kind    format.Kind
	layout  Layout
	rows    int
	width   int
	data    []byte
	offsets []int64
}

// NewScalar allocates a zeroed scalar column of rows values.
//
// It panics when rows is negative or the column would not fit in memory.
func NewScalar(kind format.Kind, rows int) *Column {
	return &Column{
		kind:   kind,
		layout: LayoutScalar,
		rows:   rows,
		width:  1,
		data:   alloc(byteLen(rows, 1, kind.Size())),
	}
}

// NewList allocates a zeroed fixed-width list column of shape (rows, width).
//
// It panics when the shape is negative or the column would not fit in memory.
func NewList(kind format.Kind, rows, width int) *Column {
	return &Column{
		kind:   kind,
		layout: LayoutList,
		rows:   rows,
		width:  width,
		data:   alloc(byteLen(rows, width, kind.Size())),
	}
}

// byteLen returns rows*width*size, panicking on negative or overflowing shapes.
func byteLen(rows, width, size int) int {
	if rows < 0 || width < 0 {
		panic(fmt.Sprintf("ply: invalid column shape (%d, %d)", rows, width))
	}
	n, ok := mulInt(rows, width)
	if ok {
		n, ok = mulInt(n, size)
	}
	if !ok {
		panic(fmt.Sprintf("ply: column shape (%d, %d) of %d-byte values overflows", rows, width, size))
	}

	return n
}

// mulInt multiplies two non-negative ints and reports whether the product fits.
func mulInt(a, b int) (int, bool) {
	if a != 0 && b > math.MaxInt/a {
		return 0, false
	}

	return a * b, true
}

// NewRagged builds a ragged list column from value offsets and flat host-order
// values. offsets must have rows+1 non-decreasing entries starting at 0, the
// last one equal to the number of values in raw.
//
// raw is copied when it is not suitably aligned for kind, otherwise the column
// takes ownership of it.
func NewRagged(kind format.Kind, offsets []int64, raw []byte) (*Column, error) {
	if len(offsets) == 0 || offsets[0] != 0 {
		return nil, fmt.Errorf("%w: ragged offsets must start at 0", errs.ErrSchemaMismatch)
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return nil, fmt.Errorf("%w: ragged offsets decrease at row %d", errs.ErrSchemaMismatch, i-1)
		}
	}

	size := kind.Size()
	if size == 0 {
		return nil, fmt.Errorf("%w: invalid kind %s", errs.ErrKindMismatch, kind)
	}
	if int64(len(raw)) != offsets[len(offsets)-1]*int64(size) {
		return nil, fmt.Errorf("%w: ragged values hold %d bytes, offsets require %d",
			errs.ErrSchemaMismatch, len(raw), offsets[len(offsets)-1]*int64(size))
	}

	return &Column{
		kind:    kind,
		layout:  LayoutRagged,
		rows:    len(offsets) - 1,
		data:    aligned(raw, size),
		offsets: offsets,
	}, nil
}

func (c *Column) Kind() format.Kind {
	return c.kind
}

func (c *Column) Layout() Layout {
	return c.layout
}

// Rows returns the number of records covered by the column.
func (c *Column) Rows() int {
	return c.rows
}

// Width returns the number of values per row: 1 for scalars, the list or
// matrix width for fixed layouts and 0 for ragged lists.
func (c *Column) Width() int {
	return c.width
}

// IsList reports whether the column backs a PLY list property.
func (c *Column) IsList() bool {
	return c.layout == LayoutList || c.layout == LayoutRagged
}

func (c *Column) IsRagged() bool {
	return c.layout == LayoutRagged
}

// Shape returns (rows) for scalars, (rows, width) for lists and matrices and
// (rows) for ragged lists, whose per-row lengths come from Offsets.
func (c *Column) Shape() []int {
	switch c.layout {
	case LayoutList, LayoutMatrix:
		return []int{c.rows, c.width}
	default:
		return []int{c.rows}
	}
}

// Len returns the total number of values stored.
func (c *Column) Len() int {
	if c.kind.Size() == 0 {
		return 0
	}

	return len(c.data) / c.kind.Size()
}

// Bytes returns the raw host-order storage.
func (c *Column) Bytes() []byte {
	return c.data
}

// Offsets returns the rows+1 value offsets of a ragged column, nil otherwise.
func (c *Column) Offsets() []int64 {
	return c.offsets
}

// RowLen returns the number of values of row i.
func (c *Column) RowLen(i int) int {
	if c.layout == LayoutRagged {
		return int(c.offsets[i+1] - c.offsets[i])
	}

	return c.width
}

// MaxRowLen returns the longest row length, 0 for an empty column.
func (c *Column) MaxRowLen() int {
	if c.layout != LayoutRagged {
		if c.rows == 0 {
			return 0
		}

		return c.width
	}

	longest := 0
	for i := 0; i < c.rows; i++ {
		if n := c.RowLen(i); n > longest {
			longest = n
		}
	}

	return longest
}

// RowBytes returns the raw bytes of row i.
func (c *Column) RowBytes(i int) []byte {
	size := c.kind.Size()
	if c.layout == LayoutRagged {
		return c.data[c.offsets[i]*int64(size) : c.offsets[i+1]*int64(size)]
	}
	stride := c.width * size

	return c.data[i*stride : (i+1)*stride]
}

// Checksum returns an xxHash64 over kind, layout, shape, offsets and values.
// Two columns with equal checksums hold bit-identical buffers with
// overwhelming probability; values are hashed in host byte order.
func (c *Column) Checksum() uint64 {
	d := hash.NewDigest()
	d.WriteUint64(uint64(c.kind))
	d.WriteUint64(uint64(c.layout))
	d.WriteUint64(uint64(c.rows))
	d.WriteUint64(uint64(c.width))
	for _, off := range c.offsets {
		d.WriteUint64(uint64(off))
	}
	d.Write(c.data)

	return d.Sum64()
}

// Equal reports whether two columns have the same kind, layout, shape and
// bit-identical values.
func (c *Column) Equal(other *Column) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.kind != other.kind || c.layout != other.layout || c.rows != other.rows || c.width != other.width {
		return false
	}
	if len(c.offsets) != len(other.offsets) {
		return false
	}
	for i := range c.offsets {
		if c.offsets[i] != other.offsets[i] {
			return false
		}
	}

	return bytes.Equal(c.data, other.data)
}

func (c *Column) String() string {
	return fmt.Sprintf("%s %s %v", c.kind, c.layout, c.Shape())
}

// alloc returns n zeroed bytes backed by 8-byte aligned memory so that typed
// views of any kind are valid.
func alloc(n int) []byte {
	if n <= 0 {
		return []byte{}
	}
	words := make([]uint64, (n+7)/8)

	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), n)
}

// aligned returns raw itself when it can back a typed view of size-byte values,
// or an aligned copy.
func aligned(raw []byte, size int) []byte {
	if len(raw) == 0 {
		return []byte{}
	}
	if uintptr(unsafe.Pointer(unsafe.SliceData(raw)))%uintptr(size) == 0 {
		return raw
	}
	out := alloc(len(raw))
	copy(out, raw)

	return out
}
