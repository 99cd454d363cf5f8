package codec

import (
	"fmt"
	"io"
	"math"
	"slices"
	"unsafe"

	"github.com/arloliu/plycol/endian"
	"github.com/arloliu/plycol/errs"
	"github.com/arloliu/plycol/format"
	"github.com/arloliu/plycol/header"
	"github.com/arloliu/plycol/internal/pool"
)

// DefaultTableElement names the element written by WriteFloatTable when the
// table does not carry one.
const DefaultTableElement = "vertex"

// FloatTable is a single-element file of float properties held as one
// row-major matrix of shape (Rows, len(Properties)), the usual layout of
// Gaussian splat point clouds.
type FloatTable struct {
	Element    string
	Properties []string
	Rows       int
	Data       []float32
}

// Width returns the number of values per row.
func (t FloatTable) Width() int {
	return len(t.Properties)
}

// Row returns the values of row i, aliasing Data.
func (t FloatTable) Row(i int) []float32 {
	w := t.Width()

	return t.Data[i*w : (i+1)*w]
}

// Column returns a copy of the values of the named property.
func (t FloatTable) Column(name string) ([]float32, bool) {
	j := -1
	for i, p := range t.Properties {
		if p == name {
			j = i
			break
		}
	}
	if j < 0 {
		return nil, false
	}

	w := t.Width()
	out := make([]float32, t.Rows)
	for r := range out {
		out[r] = t.Data[r*w+j]
	}

	return out, true
}

// ReadFloatTable reads a binary file made of exactly one element whose
// properties are all scalar floats, straight into a single matrix.
//
// Files of any other shape are rejected with errs.ErrSchemaMismatch; use
// Decoder for those.
func ReadFloatTable(r io.Reader, opts ...DecoderOption) (FloatTable, error) {
	d, err := NewDecoder(r, opts...)
	if err != nil {
		return FloatTable{}, err
	}
	schema, err := d.Schema()
	if err != nil {
		return FloatTable{}, err
	}

	if len(schema.Elements) != 1 {
		return FloatTable{}, fmt.Errorf("%w: float table needs exactly one element, file has %d",
			errs.ErrSchemaMismatch, len(schema.Elements))
	}
	if !schema.Format.IsBinary() {
		return FloatTable{}, fmt.Errorf("%w: float table needs a binary body, file is %s",
			errs.ErrSchemaMismatch, schema.Format)
	}

	decl := &schema.Elements[0]
	t := FloatTable{
		Element:    decl.Name,
		Properties: make([]string, len(decl.Properties)),
		Rows:       decl.Count,
	}
	for i, p := range decl.Properties {
		if p.IsList() || p.Kind != format.Float32 {
			return FloatTable{}, fmt.Errorf("%w: float table property %q is declared as %q",
				errs.ErrSchemaMismatch, p.Name, p.String())
		}
		t.Properties[i] = p.Name
	}
	if err := d.checkBudget(schema); err != nil {
		return FloatTable{}, err
	}

	total := t.Rows * t.Width()
	if t.Width() > 0 && t.Rows > math.MaxInt/4/t.Width() {
		return FloatTable{}, fmt.Errorf("%w: element %q declares %d rows of %d floats, more than can be addressed",
			errs.ErrTruncatedFile, decl.Name, t.Rows, t.Width())
	}

	t.Data = make([]float32, 0, d.reserve(total, 4)/4)
	rowsPerChunk := max(1, readStep/(4*max(1, t.Width())))
	for start := 0; start < t.Rows && total > 0; start += rowsPerChunk {
		rows := min(rowsPerChunk, t.Rows-start)
		n := len(t.Data)
		t.Data = slices.Grow(t.Data, rows*t.Width())[:n+rows*t.Width()]
		if m, err := io.ReadFull(d.r, float32Bytes(t.Data[n:])); err != nil {
			return FloatTable{}, truncated(err, decl.Name, start+m/(4*t.Width()))
		}
	}
	if engine := schema.Format.Engine(); !endian.IsNative(engine) {
		endian.SwapInPlace(float32Bytes(t.Data), 4)
	}

	return t, nil
}

// WriteFloatTable writes t as a binary little-endian file with one element
// of float properties.
func WriteFloatTable(w io.Writer, t FloatTable) error {
	if len(t.Data) != t.Rows*t.Width() {
		return fmt.Errorf("%w: float table holds %d values, shape is (%d, %d)",
			errs.ErrSchemaMismatch, len(t.Data), t.Rows, t.Width())
	}

	name := t.Element
	if name == "" {
		name = DefaultTableElement
	}
	decl := header.Element{Name: name, Count: t.Rows}
	for _, p := range t.Properties {
		decl.Properties = append(decl.Properties, header.Scalar(p, format.Float32))
	}
	schema := &header.Schema{
		Format:   format.BinaryLittleEndian,
		Version:  header.DefaultVersion,
		Elements: []header.Element{decl},
	}

	if err := header.Write(w, schema); err != nil {
		return err
	}

	raw := float32Bytes(t.Data)
	if endian.IsNativeLittleEndian() {
		_, err := w.Write(raw)
		return err
	}

	buf := pool.GetChunk()
	defer pool.PutChunk(buf)
	for len(raw) > 0 {
		n := min(len(raw), pool.ChunkDefaultSize)
		buf.B = endian.AppendSwapped(buf.B[:0], raw[:n], 4)
		if _, err := buf.WriteTo(w); err != nil {
			return err
		}
		raw = raw[n:]
	}

	return nil
}

func float32Bytes(v []float32) []byte {
	if len(v) == 0 {
		return []byte{}
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(v))), len(v)*4)
}
