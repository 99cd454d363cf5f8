package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/arloliu/plycol/column"
	"github.com/arloliu/plycol/errs"
	"github.com/arloliu/plycol/header"
)

// decodeASCII reads decl.Count records of an ascii body, one non-blank line
// per record.
func (d *Decoder) decodeASCII(decl *header.Element) (*column.Element, error) {
	props := decl.Properties
	bufs := make([]*column.Buffer, len(props))
	lists := d.newListStates(decl)
	for i, p := range props {
		if !p.IsList() {
			bufs[i] = column.NewBuffer(d.reserve(decl.Count, p.Kind.Size()))
		}
	}

	for r := 0; r < decl.Count; r++ {
		line, err := d.nextLine()
		if err != nil {
			return nil, truncated(err, decl.Name, r)
		}

		tok := tokenizer{s: line}
		for i, p := range props {
			t, ok := tok.next()
			if !ok {
				return nil, fmt.Errorf("%w: element %q property %q record %d: missing value",
					errs.ErrMalformedRecord, decl.Name, p.Name, r)
			}

			size := p.Kind.Size()
			if !p.IsList() {
				if _, err := appendParsed(bufs[i].Extend(size)[:0:size], t, p.Kind); err != nil {
					return nil, malformed(decl.Name, p.Name, r, t, err)
				}

				continue
			}

			n, err := parseCount(t, p.CountKind)
			if err == nil && n > int64(len(line)) {
				err = fmt.Errorf("list length %d exceeds the record", n)
			}
			if err != nil {
				return nil, malformed(decl.Name, p.Name, r, t, err)
			}

			st := &lists[i]
			if err := d.startList(st, decl, p, r, int(n)); err != nil {
				return nil, err
			}

			dst := st.values.Extend(int(n) * size)[:0]
			for range n {
				v, ok := tok.next()
				if !ok {
					return nil, fmt.Errorf("%w: element %q property %q record %d: list declares %d values, line ends early",
						errs.ErrMalformedRecord, decl.Name, p.Name, r, n)
				}
				if dst, err = appendParsed(dst, v, p.Kind); err != nil {
					return nil, malformed(decl.Name, p.Name, r, v, err)
				}
			}

			if st.ragged {
				st.offsets = append(st.offsets, st.offsets[len(st.offsets)-1]+n)
			}
		}

		if t, ok := tok.next(); ok {
			return nil, fmt.Errorf("%w: element %q record %d: unexpected trailing token %q",
				errs.ErrMalformedRecord, decl.Name, r, truncateToken(t))
		}
	}

	el := column.NewElement(decl.Name, decl.Count)
	for i, p := range props {
		var (
			c   *column.Column
			err error
		)
		if p.IsList() {
			c, err = lists[i].column(p.Kind, decl.Count)
		} else {
			c, err = bufs[i].Scalar(p.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("element %q property %q: %w", decl.Name, p.Name, err)
		}
		if err := el.Add(p.Name, c); err != nil {
			return nil, err
		}
	}

	return el, nil
}

// nextLine returns the next non-blank body line.
func (d *Decoder) nextLine() (string, error) {
	for {
		line, err := readLine(d.r)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) != "" {
			return line, nil
		}
	}
}

// readLine reads one line of any length without its terminator. io.EOF is
// returned only when no bytes are left.
func readLine(r *bufio.Reader) (string, error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			buf = append(buf, chunk...)
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		if buf == nil {
			if len(chunk) == 0 && err != nil {
				return "", io.EOF
			}

			return string(chunk), nil
		}

		return string(append(buf, chunk...)), nil
	}
}

// tokenizer splits a record line on ascii whitespace without allocating.
type tokenizer struct {
	s   string
	pos int
}

func (t *tokenizer) next() (string, bool) {
	for t.pos < len(t.s) && isSpace(t.s[t.pos]) {
		t.pos++
	}
	if t.pos == len(t.s) {
		return "", false
	}
	start := t.pos
	for t.pos < len(t.s) && !isSpace(t.s[t.pos]) {
		t.pos++
	}

	return t.s[start:t.pos], true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func malformed(element, property string, record int, token string, err error) error {
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		err = numErr.Err
	}

	return fmt.Errorf("%w: element %q property %q record %d: token %q: %v",
		errs.ErrMalformedRecord, element, property, record, truncateToken(token), err)
}

func truncateToken(s string) string {
	const limit = 32
	if len(s) > limit {
		return s[:limit] + "..."
	}

	return s
}
