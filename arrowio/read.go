package arrowio

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/arloliu/plycol/column"
	"github.com/arloliu/plycol/endian"
	"github.com/arloliu/plycol/errs"
	"github.com/arloliu/plycol/format"
)

// DefaultElement names elements read from Arrow files without MetaElement.
const DefaultElement = "vertex"

// ReadFile reads an Arrow IPC file into a single element, copying the
// values. Every record batch is appended in order.
//
// Primitive fields become scalar properties, fixed_size_list fields
// fixed-width lists, list and large_list fields ragged lists. Null values
// cannot be represented and are rejected with errs.ErrSchemaMismatch.
func ReadFile(r ipc.ReadAtSeeker) (*column.Element, error) {
	if !endian.IsNativeLittleEndian() {
		return nil, errBigEndianHost
	}

	fr, err := ipc.NewFileReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow reader: %w", err)
	}
	defer fr.Close()

	schema := fr.Schema()
	name := DefaultElement
	if idx := schema.Metadata().FindKey(MetaElement); idx >= 0 {
		name = schema.Metadata().Values()[idx]
	}

	accs := make([]accumulator, schema.NumFields())
	for j, f := range schema.Fields() {
		if err := accs[j].init(f); err != nil {
			return nil, err
		}
	}

	rows := 0
	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read record batch %d: %w", i, err)
		}
		for j, col := range rec.Columns() {
			if err := accs[j].add(col); err != nil {
				return nil, fmt.Errorf("field %q: %w", schema.Field(j).Name, err)
			}
		}
		rows += int(rec.NumRows())
	}

	el := column.NewElement(name, rows)
	for j, f := range schema.Fields() {
		c, err := accs[j].column(rows)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		if err := el.Add(f.Name, c); err != nil {
			return nil, err
		}
	}

	return el, nil
}

// accumulator gathers the values of one field across record batches.
type accumulator struct {
	kind    format.Kind
	layout  column.Layout
	width   int
	values  []byte
	offsets []int64
}

func (a *accumulator) init(f arrow.Field) error {
	elem := f.Type
	switch t := f.Type.(type) {
	case *arrow.FixedSizeListType:
		a.layout = column.LayoutList
		a.width = int(t.Len())
		elem = t.Elem()
	case *arrow.LargeListType:
		a.layout = column.LayoutRagged
		elem = t.Elem()
	case *arrow.ListType:
		a.layout = column.LayoutRagged
		elem = t.Elem()
	default:
		a.layout = column.LayoutScalar
	}
	if a.layout == column.LayoutRagged {
		a.offsets = []int64{0}
	}

	kind, err := KindOf(elem)
	if err != nil {
		return fmt.Errorf("field %q: %w", f.Name, err)
	}
	a.kind = kind

	return nil
}

func (a *accumulator) add(arr arrow.Array) error {
	if arr.NullN() > 0 {
		return fmt.Errorf("%w: %d null values", errs.ErrSchemaMismatch, arr.NullN())
	}

	switch l := arr.(type) {
	case *array.FixedSizeList:
		start := l.Data().Offset() * a.width
		a.values = append(a.values, primitiveBytes(l.ListValues(), start, l.Len()*a.width, a.kind)...)
	case *array.LargeList:
		a.addRagged(l.ListValues(), l.Offsets())
	case *array.List:
		offs := l.Offsets()
		wide := make([]int64, len(offs))
		for i, o := range offs {
			wide[i] = int64(o)
		}
		a.addRagged(l.ListValues(), wide)
	default:
		a.values = append(a.values, primitiveBytes(arr, 0, arr.Len(), a.kind)...)
	}

	return nil
}

func (a *accumulator) addRagged(values arrow.Array, offs []int64) {
	if len(offs) == 0 {
		return
	}
	base := offs[0]
	last := a.offsets[len(a.offsets)-1]
	for _, o := range offs[1:] {
		a.offsets = append(a.offsets, last+o-base)
	}
	a.values = append(a.values, primitiveBytes(values, int(base), int(offs[len(offs)-1]-base), a.kind)...)
}

func (a *accumulator) column(rows int) (*column.Column, error) {
	switch a.layout {
	case column.LayoutRagged:
		return column.NewRagged(a.kind, a.offsets, a.values)
	case column.LayoutList:
		c := column.NewList(a.kind, rows, a.width)
		copy(c.Bytes(), a.values)

		return c, nil
	default:
		c := column.NewScalar(a.kind, rows)
		copy(c.Bytes(), a.values)

		return c, nil
	}
}

// primitiveBytes returns the raw values [start, start+n) of a primitive array,
// honoring the array offset.
func primitiveBytes(arr arrow.Array, start, n int, kind format.Kind) []byte {
	if n == 0 {
		return nil
	}
	size := kind.Size()
	data := arr.Data()
	off := data.Offset() + start

	return data.Buffers()[1].Bytes()[off*size : (off+n)*size]
}
