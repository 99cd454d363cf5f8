package arrowio

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/arloliu/plycol/column"
	"github.com/arloliu/plycol/endian"
	"github.com/arloliu/plycol/errs"
	"github.com/arloliu/plycol/format"
)

// Schema metadata keys.
const (
	MetaElement = "ply.element"
	MetaCount   = "ply.count"
)

var errBigEndianHost = errors.New("arrowio: arrow buffers are little-endian, host is big-endian")

// DataType returns the Arrow primitive type of a kind.
func DataType(k format.Kind) (arrow.DataType, error) {
	switch k { //nolint: exhaustive
	case format.Int8:
		return arrow.PrimitiveTypes.Int8, nil
	case format.Uint8:
		return arrow.PrimitiveTypes.Uint8, nil
	case format.Int16:
		return arrow.PrimitiveTypes.Int16, nil
	case format.Uint16:
		return arrow.PrimitiveTypes.Uint16, nil
	case format.Int32:
		return arrow.PrimitiveTypes.Int32, nil
	case format.Uint32:
		return arrow.PrimitiveTypes.Uint32, nil
	case format.Int64:
		return arrow.PrimitiveTypes.Int64, nil
	case format.Uint64:
		return arrow.PrimitiveTypes.Uint64, nil
	case format.Float32:
		return arrow.PrimitiveTypes.Float32, nil
	case format.Float64:
		return arrow.PrimitiveTypes.Float64, nil
	default:
		return nil, fmt.Errorf("%w: no arrow type for %s", errs.ErrKindMismatch, k)
	}
}

// KindOf returns the kind of an Arrow primitive type.
func KindOf(dt arrow.DataType) (format.Kind, error) {
	switch dt.ID() { //nolint: exhaustive
	case arrow.INT8:
		return format.Int8, nil
	case arrow.UINT8:
		return format.Uint8, nil
	case arrow.INT16:
		return format.Int16, nil
	case arrow.UINT16:
		return format.Uint16, nil
	case arrow.INT32:
		return format.Int32, nil
	case arrow.UINT32:
		return format.Uint32, nil
	case arrow.INT64:
		return format.Int64, nil
	case arrow.UINT64:
		return format.Uint64, nil
	case arrow.FLOAT32:
		return format.Float32, nil
	case arrow.FLOAT64:
		return format.Float64, nil
	default:
		return format.KindInvalid, fmt.Errorf("%w: arrow type %s has no PLY kind", errs.ErrKindMismatch, dt)
	}
}

// FieldType returns the Arrow type of a column: a primitive for scalars,
// fixed_size_list for fixed-width lists and large_list for ragged lists.
func FieldType(c *column.Column) (arrow.DataType, error) {
	prim, err := DataType(c.Kind())
	if err != nil {
		return nil, err
	}

	switch c.Layout() {
	case column.LayoutScalar:
		return prim, nil
	case column.LayoutList, column.LayoutMatrix:
		return arrow.FixedSizeListOf(int32(c.Width()), prim), nil
	case column.LayoutRagged:
		return arrow.LargeListOf(prim), nil
	default:
		return nil, fmt.Errorf("%w: layout %s", errs.ErrSchemaMismatch, c.Layout())
	}
}

// Schema returns the Arrow schema of an element, one non-nullable field per
// property in declaration order.
func Schema(el *column.Element) (*arrow.Schema, error) {
	fields := make([]arrow.Field, 0, el.Len())
	for name, c := range el.Declared() {
		dt, err := FieldType(c)
		if err != nil {
			return nil, fmt.Errorf("element %q property %q: %w", el.Name(), name, err)
		}
		fields = append(fields, arrow.Field{Name: name, Type: dt})
	}
	meta := arrow.NewMetadata(
		[]string{MetaElement, MetaCount},
		[]string{el.Name(), strconv.Itoa(el.Count())},
	)

	return arrow.NewSchema(fields, &meta), nil
}

// Record wraps the columns of el into an Arrow record without copying: the
// Arrow buffers alias the column storage, which must outlive the record.
// The caller releases the record.
func Record(el *column.Element) (arrow.Record, error) {
	if !endian.IsNativeLittleEndian() {
		return nil, errBigEndianHost
	}

	schema, err := Schema(el)
	if err != nil {
		return nil, err
	}

	cols := make([]arrow.Array, 0, el.Len())
	defer func() {
		for _, a := range cols {
			a.Release()
		}
	}()

	i := 0
	for _, c := range el.Declared() {
		data := arrayData(c, schema.Field(i).Type)
		cols = append(cols, array.MakeFromData(data))
		data.Release()
		i++
	}

	return array.NewRecord(schema, cols, int64(el.Count())), nil
}

func arrayData(c *column.Column, dt arrow.DataType) arrow.ArrayData {
	values := memory.NewBufferBytes(c.Bytes())

	switch t := dt.(type) {
	case *arrow.FixedSizeListType:
		child := array.NewData(t.Elem(), c.Rows()*c.Width(), []*memory.Buffer{nil, values}, nil, 0, 0)
		defer child.Release()

		return array.NewData(dt, c.Rows(), []*memory.Buffer{nil}, []arrow.ArrayData{child}, 0, 0)
	case *arrow.LargeListType:
		offsets := memory.NewBufferBytes(arrow.Int64Traits.CastToBytes(c.Offsets()))
		n := int(c.Offsets()[c.Rows()])
		child := array.NewData(t.Elem(), n, []*memory.Buffer{nil, values}, nil, 0, 0)
		defer child.Release()

		return array.NewData(dt, c.Rows(), []*memory.Buffer{nil, offsets}, []arrow.ArrayData{child}, 0, 0)
	default:
		return array.NewData(dt, c.Rows(), []*memory.Buffer{nil, values}, nil, 0, 0)
	}
}

// WriteFile writes el as an Arrow IPC file holding a single record batch.
func WriteFile(w io.Writer, el *column.Element) error {
	rec, err := Record(el)
	if err != nil {
		return err
	}
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return fmt.Errorf("failed to create Arrow writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to close Arrow writer: %w", err)
	}

	return nil
}
