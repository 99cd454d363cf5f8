package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/plycol/column"
	"github.com/arloliu/plycol/errs"
	"github.com/arloliu/plycol/format"
	"github.com/arloliu/plycol/header"
	"github.com/arloliu/plycol/internal/options"
)

const (
	readBufferSize = 64 * 1024
	preallocLimit  = 4 * 1024 * 1024
)

// Decoder reads one PLY stream into a column.Store.
//
// A Decoder is single use and not safe for concurrent use.
type Decoder struct {
	src       *countingReader
	r         *bufio.Reader
	raggedAll bool
	ragged    map[propertyKey]struct{}
	sizeHint  int64
	used      bool
}

// NewDecoder creates a decoder reading from r.
//
// Parameters:
//   - r: the PLY stream, positioned at the "ply" magic line
//   - opts: decoding options (WithRaggedLists, WithRaggedProperty, WithSizeHint)
//
// Returns:
//   - *Decoder: the decoder
//   - error: an option failed
func NewDecoder(r io.Reader, opts ...DecoderOption) (*Decoder, error) {
	src := &countingReader{r: r}
	d := &Decoder{
		src:      src,
		r:        bufio.NewReaderSize(src, readBufferSize),
		sizeHint: -1,
	}
	if err := options.Apply(d, opts...); err != nil {
		return nil, err
	}

	return d, nil
}

// Decode parses the header and materializes every element of the body.
//
// Elements are decoded in header order. Any failure returns neither a schema
// nor a store; partially decoded elements are discarded.
func (d *Decoder) Decode() (*header.Schema, *column.Store, error) {
	if d.used {
		return nil, nil, errors.New("ply: decoder already used")
	}
	d.used = true

	schema, err := header.Parse(d.r)
	if err != nil {
		return nil, nil, err
	}

	if err := d.checkBudget(schema); err != nil {
		return nil, nil, err
	}

	store := column.NewStore()
	for i := range schema.Elements {
		decl := &schema.Elements[i]

		var el *column.Element
		if schema.Format == format.ASCII {
			el, err = d.decodeASCII(decl)
		} else {
			el, err = d.decodeBinary(decl, schema.Format)
		}
		if err != nil {
			return nil, nil, err
		}
		if err := store.AddElement(el); err != nil {
			return nil, nil, err
		}
	}

	return schema, store, nil
}

// Schema parses only the header. The body is left unread.
func (d *Decoder) Schema() (*header.Schema, error) {
	if d.used {
		return nil, errors.New("ply: decoder already used")
	}
	d.used = true

	return header.Parse(d.r)
}

func (d *Decoder) isRagged(element, property string) bool {
	if d.raggedAll {
		return true
	}
	_, ok := d.ragged[propertyKey{element: element, property: property}]

	return ok
}

// offset returns the number of stream bytes consumed so far.
func (d *Decoder) offset() int64 {
	return d.src.n - int64(d.r.Buffered())
}

// remaining returns the bytes left according to the size hint, or -1.
func (d *Decoder) remaining() int64 {
	if d.sizeHint < 0 {
		return -1
	}

	return d.sizeHint - d.offset()
}

// checkBudget rejects bodies whose smallest possible size already exceeds the
// declared stream size. A binary record takes at least MinRowSize bytes, an
// ascii record at least one digit and one separator per property, the last
// line possibly lacking its terminator.
func (d *Decoder) checkBudget(schema *header.Schema) error {
	left := d.remaining()
	if left < 0 {
		return nil
	}
	if schema.Format == format.ASCII {
		left++
	}

	var need int64
	for i := range schema.Elements {
		e := &schema.Elements[i]
		per := int64(e.MinRowSize())
		if schema.Format == format.ASCII {
			per = 2 * int64(len(e.Properties))
		}
		if per == 0 {
			continue
		}
		if int64(e.Count) > (left-need)/per {
			return fmt.Errorf("%w: element %q declares %d records of at least %d bytes, %d bytes available",
				errs.ErrTruncatedFile, e.Name, e.Count, per, left-need)
		}
		need += int64(e.Count) * per
	}

	return nil
}

// reserve returns how many bytes to set aside up front for count values of
// size bytes. Without a size hint the reservation is capped at preallocLimit
// and buffers grow with the data actually read.
func (d *Decoder) reserve(count, size int) int {
	if count <= 0 || size <= 0 {
		return 0
	}
	limit := int64(preallocLimit)
	if left := d.remaining(); left > limit {
		limit = left
	}

	return int(min(int64(count), limit/int64(size))) * size
}

// truncated classifies a read failure: running out of input is a truncated
// file, anything else is passed through.
func truncated(err error, element string, record int) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: element %q ends at record %d", errs.ErrTruncatedFile, element, record)
	}

	return fmt.Errorf("element %q record %d: %w", element, record, err)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)

	return n, err
}
