package codec

import (
	"fmt"
	"io"
	"math"

	"github.com/arloliu/plycol/column"
	"github.com/arloliu/plycol/endian"
	"github.com/arloliu/plycol/errs"
	"github.com/arloliu/plycol/format"
	"github.com/arloliu/plycol/header"
	"github.com/arloliu/plycol/internal/pool"
)

// maxListLen bounds a single list length so that a corrupt count cannot
// trigger an allocation overflow.
const maxListLen = math.MaxInt32

// readStep is the largest single read of a length taken from the file.
const readStep = 1024 * 1024

// listState tracks one list property while its records are read.
type listState struct {
	ragged  bool
	width   int
	values  *column.Buffer
	offsets []int64
}

// decodeBinary reads decl.Count records of a binary body.
//
// Values are copied in file byte order and fixed with one SwapInPlace pass per
// column when the file order differs from the host order.
func (d *Decoder) decodeBinary(decl *header.Element, f format.Format) (*column.Element, error) {
	engine := f.Engine()
	swap := !endian.IsNative(engine)

	var (
		cols []*column.Column
		err  error
	)
	if rowSize, ok := decl.RowSize(); ok {
		cols, err = d.readScalarRows(decl, rowSize)
	} else {
		cols, err = d.readRecords(decl, engine)
	}
	if err != nil {
		return nil, err
	}

	el := column.NewElement(decl.Name, decl.Count)
	for i, p := range decl.Properties {
		if swap {
			endian.SwapInPlace(cols[i].Bytes(), p.Kind.Size())
		}
		if err := el.Add(p.Name, cols[i]); err != nil {
			return nil, err
		}
	}

	return el, nil
}

// readScalarRows reads an element without list properties in pooled chunks
// of whole rows and scatters each chunk into the property columns.
func (d *Decoder) readScalarRows(decl *header.Element, rowSize int) ([]*column.Column, error) {
	bufs := make([]*column.Buffer, len(decl.Properties))
	for i, p := range decl.Properties {
		bufs[i] = column.NewBuffer(d.reserve(decl.Count, p.Kind.Size()))
	}

	if rowSize > 0 && decl.Count > 0 {
		if err := d.scatterRows(decl, rowSize, bufs); err != nil {
			return nil, err
		}
	}

	cols := make([]*column.Column, len(bufs))
	for i, p := range decl.Properties {
		c, err := bufs[i].Scalar(p.Kind)
		if err != nil {
			return nil, fmt.Errorf("element %q property %q: %w", decl.Name, p.Name, err)
		}
		cols[i] = c
	}

	return cols, nil
}

func (d *Decoder) scatterRows(decl *header.Element, rowSize int, bufs []*column.Buffer) error {
	rowsPerChunk := max(1, pool.ChunkDefaultSize/rowSize)

	// A single property is laid out in the file exactly as in its column.
	if len(bufs) == 1 {
		for start := 0; start < decl.Count; start += rowsPerChunk {
			rows := min(rowsPerChunk, decl.Count-start)
			if n, err := io.ReadFull(d.r, bufs[0].Extend(rows*rowSize)); err != nil {
				return truncated(err, decl.Name, start+n/rowSize)
			}
		}

		return nil
	}

	chunk := pool.GetChunk()
	defer pool.PutChunk(chunk)

	sizes := make([]int, len(bufs))
	dsts := make([][]byte, len(bufs))
	for i, p := range decl.Properties {
		sizes[i] = p.Kind.Size()
	}

	for start := 0; start < decl.Count; start += rowsPerChunk {
		rows := min(rowsPerChunk, decl.Count-start)
		buf := chunk.Resize(rows * rowSize)
		if n, err := io.ReadFull(d.r, buf); err != nil {
			return truncated(err, decl.Name, start+n/rowSize)
		}

		for i, b := range bufs {
			dsts[i] = b.Extend(rows * sizes[i])
		}
		off := 0
		for r := range rows {
			for i, dst := range dsts {
				size := sizes[i]
				copy(dst[r*size:(r+1)*size], buf[off:off+size])
				off += size
			}
		}
	}

	return nil
}

// readRecords reads an element with at least one list property record by
// record, appending each value to the buffer of its column.
func (d *Decoder) readRecords(decl *header.Element, engine endian.EndianEngine) ([]*column.Column, error) {
	props := decl.Properties
	bufs := make([]*column.Buffer, len(props))
	lists := d.newListStates(decl)
	for i, p := range props {
		if !p.IsList() {
			bufs[i] = column.NewBuffer(d.reserve(decl.Count, p.Kind.Size()))
		}
	}

	var scratch [8]byte
	for r := 0; r < decl.Count; r++ {
		for i, p := range props {
			if !p.IsList() {
				if _, err := io.ReadFull(d.r, bufs[i].Extend(p.Kind.Size())); err != nil {
					return nil, truncated(err, decl.Name, r)
				}

				continue
			}

			cb := scratch[:p.CountKind.Size()]
			if _, err := io.ReadFull(d.r, cb); err != nil {
				return nil, truncated(err, decl.Name, r)
			}
			n, err := readCount(cb, p.CountKind, engine)
			if err == nil && n > maxListLen {
				err = fmt.Errorf("list length %d out of range", n)
			}
			if err != nil {
				return nil, fmt.Errorf("%w: element %q property %q record %d: %v",
					errs.ErrMalformedRecord, decl.Name, p.Name, r, err)
			}

			nbytes := n * int64(p.Kind.Size())
			if left := d.remaining(); left >= 0 && nbytes > left {
				return nil, fmt.Errorf("%w: element %q property %q record %d declares %d values, %d bytes left",
					errs.ErrTruncatedFile, decl.Name, p.Name, r, n, left)
			}

			st := &lists[i]
			if err := d.startList(st, decl, p, r, int(n)); err != nil {
				return nil, err
			}
			if err := readInto(d.r, st.values, nbytes); err != nil {
				return nil, truncated(err, decl.Name, r)
			}
			if st.ragged {
				st.offsets = append(st.offsets, st.offsets[len(st.offsets)-1]+n)
			}
		}
	}

	cols := make([]*column.Column, len(props))
	for i, p := range props {
		var err error
		if p.IsList() {
			cols[i], err = lists[i].column(p.Kind, decl.Count)
		} else {
			cols[i], err = bufs[i].Scalar(p.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("element %q property %q: %w", decl.Name, p.Name, err)
		}
	}

	return cols, nil
}

// newListStates prepares one state per property of decl; only the list
// properties use theirs.
func (d *Decoder) newListStates(decl *header.Element) []listState {
	lists := make([]listState, len(decl.Properties))
	for i, p := range decl.Properties {
		if p.IsList() && d.isRagged(decl.Name, p.Name) {
			lists[i].ragged = true
			lists[i].values = column.NewBuffer(0)
			lists[i].offsets = make([]int64, 1, 1+d.reserve(decl.Count, 8)/8)
		}
	}

	return lists
}

// startList records the length n of the list in record r. The first record of
// a fixed-width list sets its width, later ones must match it.
func (d *Decoder) startList(st *listState, decl *header.Element, p header.Property, r, n int) error {
	if st.ragged {
		return nil
	}
	if r == 0 {
		st.width = n
		st.values = column.NewBuffer(d.reserve(decl.Count, n*p.Kind.Size()))

		return nil
	}
	if n != st.width {
		return fmt.Errorf("%w: element %q property %q record %d has %d values, expected %d",
			errs.ErrIrregularList, decl.Name, p.Name, r, n, st.width)
	}

	return nil
}

// column finalizes the list column. Elements without records yield a list of
// width 0.
func (st *listState) column(kind format.Kind, count int) (*column.Column, error) {
	if st.ragged {
		return st.values.Ragged(kind, st.offsets)
	}
	if st.values == nil {
		return column.NewList(kind, count, 0), nil
	}

	return st.values.List(kind, count, st.width)
}

// readInto appends n bytes read from r to b step by step, so a bogus length
// fails on EOF before it is fully allocated.
func readInto(r io.Reader, b *column.Buffer, n int64) error {
	for n > 0 {
		chunk := int(min(n, readStep))
		if _, err := io.ReadFull(r, b.Extend(chunk)); err != nil {
			return err
		}
		n -= int64(chunk)
	}

	return nil
}
