package codec

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/arloliu/plycol/column"
	"github.com/arloliu/plycol/endian"
	"github.com/arloliu/plycol/errs"
	"github.com/arloliu/plycol/format"
	"github.com/arloliu/plycol/header"
	"github.com/arloliu/plycol/internal/options"
	"github.com/arloliu/plycol/internal/pool"
)

// Encoder writes a column.Store as a PLY stream.
//
// An Encoder can encode several stores in sequence, each as a complete stream.
// It is not safe for concurrent use.
type Encoder struct {
	w        io.Writer
	format   format.Format
	comments []string
	objInfo  []string
}

// NewEncoder creates an encoder writing to w.
//
// Parameters:
//   - w: destination of the stream
//   - opts: encoding options (WithFormat, WithComments, WithObjInfo)
//
// Returns:
//   - *Encoder: the encoder
//   - error: an option failed
func NewEncoder(w io.Writer, opts ...EncoderOption) (*Encoder, error) {
	e := &Encoder{w: w}
	if err := options.Apply(e, opts...); err != nil {
		return nil, err
	}

	return e, nil
}

// Encode writes the header of schema followed by the body built from store.
//
// The store is checked against the schema before the first byte is written:
// on errs.ErrSchemaMismatch the destination is untouched. Properties and
// elements of the store that the schema does not declare are ignored.
//
// Binary bodies reproduce every value bit for bit. Ascii bodies print floats
// in their shortest round-trip form, which is exact for every value except
// NaN: every NaN is written as the token NaN, dropping its sign and payload,
// and reads back as a quiet NaN.
func (e *Encoder) Encode(schema *header.Schema, store *column.Store) error {
	s := schema
	if e.format.Valid() || len(e.comments) > 0 || len(e.objInfo) > 0 {
		s = schema.Clone()
		if e.format.Valid() {
			s.Format = e.format
		}
		s.Comments = append(s.Comments, e.comments...)
		s.ObjInfo = append(s.ObjInfo, e.objInfo...)
	}

	hdr, err := s.Bytes()
	if err != nil {
		return err
	}
	plan, err := Check(s, store)
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(e.w, pool.ChunkDefaultSize)
	if _, err := bw.Write(hdr); err != nil {
		return err
	}

	buf := pool.GetChunk()
	defer pool.PutChunk(buf)

	for i := range s.Elements {
		decl := &s.Elements[i]
		if s.Format == format.ASCII {
			err = writeASCII(bw, buf, decl, plan[i])
		} else {
			err = writeBinary(bw, buf, decl, plan[i], s.Format.Engine())
		}
		if err != nil {
			return fmt.Errorf("element %q: %w", decl.Name, err)
		}
	}

	return bw.Flush()
}

// Check verifies that store holds every element and property schema declares,
// with the declared kind, list-ness and record count, and that every list
// length fits its count kind.
//
// The returned columns are ordered like the schema: one slice per element,
// one column per property.
func Check(schema *header.Schema, store *column.Store) ([][]*column.Column, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", errs.ErrSchemaMismatch)
	}

	plan := make([][]*column.Column, len(schema.Elements))
	for i := range schema.Elements {
		decl := &schema.Elements[i]
		el, ok := store.Element(decl.Name)
		if !ok {
			return nil, fmt.Errorf("%w: element %q missing from store", errs.ErrSchemaMismatch, decl.Name)
		}
		if el.Count() != decl.Count {
			return nil, fmt.Errorf("%w: element %q has %d records, schema declares %d",
				errs.ErrSchemaMismatch, decl.Name, el.Count(), decl.Count)
		}

		cols := make([]*column.Column, len(decl.Properties))
		for j, p := range decl.Properties {
			c, ok := el.Column(p.Name)
			if !ok {
				return nil, fmt.Errorf("%w: element %q property %q missing from store",
					errs.ErrSchemaMismatch, decl.Name, p.Name)
			}
			if err := checkColumn(decl, p, c); err != nil {
				return nil, err
			}
			cols[j] = c
		}
		plan[i] = cols
	}

	return plan, nil
}

func checkColumn(decl *header.Element, p header.Property, c *column.Column) error {
	if c.Kind() != p.Kind {
		return fmt.Errorf("%w: element %q property %q is %s, schema declares %s",
			errs.ErrSchemaMismatch, decl.Name, p.Name, c.Kind(), p.Kind)
	}
	if c.Rows() != decl.Count {
		return fmt.Errorf("%w: element %q property %q has %d rows, schema declares %d",
			errs.ErrSchemaMismatch, decl.Name, p.Name, c.Rows(), decl.Count)
	}

	switch c.Layout() {
	case column.LayoutScalar:
		if p.IsList() {
			return fmt.Errorf("%w: element %q property %q is scalar, schema declares a list",
				errs.ErrSchemaMismatch, decl.Name, p.Name)
		}
	case column.LayoutList, column.LayoutRagged:
		if !p.IsList() {
			return fmt.Errorf("%w: element %q property %q is a list, schema declares a scalar",
				errs.ErrSchemaMismatch, decl.Name, p.Name)
		}
		if longest := c.MaxRowLen(); uint64(longest) > p.CountKind.MaxCount() {
			return fmt.Errorf("%w: element %q property %q has a list of %d values, %s counts hold at most %d",
				errs.ErrSchemaMismatch, decl.Name, p.Name, longest, p.CountKind, p.CountKind.MaxCount())
		}
	default:
		return fmt.Errorf("%w: element %q property %q: %s columns cannot be written",
			errs.ErrSchemaMismatch, decl.Name, p.Name, c.Layout())
	}

	return nil
}

// writeBinary serializes records in the byte order of engine, staging whole
// records in buf and flushing it every ChunkDefaultSize bytes.
func writeBinary(w io.Writer, buf *pool.ByteBuffer, decl *header.Element, cols []*column.Column, engine endian.EndianEngine) error {
	swap := !endian.IsNative(engine)
	b := buf.B[:0]

	for r := 0; r < decl.Count; r++ {
		for j, p := range decl.Properties {
			c := cols[j]
			if p.IsList() {
				b = appendCount(b, c.RowLen(r), p.CountKind, engine)
			}
			if swap {
				b = endian.AppendSwapped(b, c.RowBytes(r), p.Kind.Size())
			} else {
				b = append(b, c.RowBytes(r)...)
			}
		}

		if len(b) >= pool.ChunkDefaultSize {
			if _, err := w.Write(b); err != nil {
				return err
			}
			b = b[:0]
		}
	}
	buf.B = b

	_, err := buf.WriteTo(w)

	return err
}

// writeASCII serializes one line per record: scalar values, and for lists the
// length followed by the values, separated by single spaces.
func writeASCII(w io.Writer, buf *pool.ByteBuffer, decl *header.Element, cols []*column.Column) error {
	b := buf.B[:0]

	for r := 0; r < decl.Count; r++ {
		for j, p := range decl.Properties {
			if j > 0 {
				b = append(b, ' ')
			}

			c := cols[j]
			size := p.Kind.Size()
			row := c.RowBytes(r)
			if !p.IsList() {
				b = appendFormatted(b, row, p.Kind)
				continue
			}

			n := c.RowLen(r)
			b = strconv.AppendInt(b, int64(n), 10)
			for k := 0; k < n; k++ {
				b = append(b, ' ')
				b = appendFormatted(b, row[k*size:(k+1)*size], p.Kind)
			}
		}
		b = append(b, '\n')

		if len(b) >= pool.ChunkDefaultSize {
			if _, err := w.Write(b); err != nil {
				return err
			}
			b = b[:0]
		}
	}
	buf.B = b

	_, err := buf.WriteTo(w)

	return err
}
