package header

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/arloliu/plycol/errs"
	"github.com/arloliu/plycol/format"
)

// MaxHeaderSize bounds the number of bytes read before end_header is found.
const MaxHeaderSize = 1024 * 1024

const (
	magicLine     = "ply"
	kwFormat      = "format"
	kwComment     = "comment"
	kwObjInfo     = "obj_info"
	kwElement     = "element"
	kwProperty    = "property"
	kwList        = "list"
	kwEndOfHeader = "end_header"
)

// Parse reads a PLY header from r and leaves r positioned at the first byte of
// the body.
//
// Lines may end with LF or CRLF; the terminator of end_header is consumed
// exactly, so a binary body that follows is never misaligned. Parse fails with
// errs.ErrInvalidFormat (magic or format line), errs.ErrSchema (structure),
// errs.ErrUnknownType (type token) or errs.ErrTruncatedFile (no end_header).
func Parse(r *bufio.Reader) (*Schema, error) {
	p := parser{r: r, schema: &Schema{}}

	return p.parse()
}

type parser struct {
	r        *bufio.Reader
	schema   *Schema
	consumed int
	line     int
	current  *Element
}

func (p *parser) parse() (*Schema, error) {
	magic, err := p.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty stream", errs.ErrInvalidFormat)
		}

		return nil, err
	}
	if magic != magicLine {
		return nil, fmt.Errorf("%w: bad magic line %q", errs.ErrInvalidFormat, truncate(magic))
	}

	for {
		line, err := p.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: stream ended before end_header (line %d)", errs.ErrTruncatedFile, p.line)
			}

			return nil, err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case kwComment:
			p.schema.Comments = append(p.schema.Comments, keywordText(line, kwComment))
		case kwObjInfo:
			p.schema.ObjInfo = append(p.schema.ObjInfo, keywordText(line, kwObjInfo))
		case kwFormat:
			if err := p.parseFormat(fields); err != nil {
				return nil, err
			}
		case kwElement:
			if err := p.parseElement(fields); err != nil {
				return nil, err
			}
		case kwProperty:
			if err := p.parseProperty(fields); err != nil {
				return nil, err
			}
		case kwEndOfHeader:
			if !p.schema.Format.Valid() {
				return nil, fmt.Errorf("%w: missing format line", errs.ErrInvalidFormat)
			}
			p.flush()

			return p.schema, nil
		default:
			return nil, fmt.Errorf("%w: line %d: unexpected keyword %q", errs.ErrSchema, p.line, truncate(fields[0]))
		}
	}
}

func (p *parser) parseFormat(fields []string) error {
	if p.schema.Format.Valid() {
		return fmt.Errorf("%w: line %d: duplicate format line", errs.ErrInvalidFormat, p.line)
	}
	if len(fields) != 3 {
		return fmt.Errorf("%w: line %d: expected \"format <type> <version>\"", errs.ErrInvalidFormat, p.line)
	}

	f, err := format.ParseFormat(fields[1])
	if err != nil {
		return err
	}
	p.schema.Format = f
	p.schema.Version = fields[2]

	return nil
}

func (p *parser) parseElement(fields []string) error {
	if len(fields) != 3 {
		return fmt.Errorf("%w: line %d: expected \"element <name> <count>\"", errs.ErrSchema, p.line)
	}

	name := fields[1]
	count, err := strconv.ParseInt(fields[2], 10, 0)
	if err != nil || count < 0 || !isDigit(fields[2][0]) {
		return fmt.Errorf("%w: element %q: invalid count %q", errs.ErrSchema, name, fields[2])
	}
	if _, dup := p.schema.Element(name); dup || (p.current != nil && p.current.Name == name) {
		return fmt.Errorf("%w: duplicate element %q", errs.ErrSchema, name)
	}

	p.flush()
	p.current = &Element{Name: name, Count: int(count)}

	return nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func (p *parser) parseProperty(fields []string) error {
	if p.current == nil {
		return fmt.Errorf("%w: line %d: property declared before any element", errs.ErrSchema, p.line)
	}

	var prop Property
	if len(fields) > 1 && fields[1] == kwList {
		if len(fields) != 5 {
			return fmt.Errorf("%w: element %q line %d: expected \"property list <count_type> <value_type> <name>\"",
				errs.ErrSchema, p.current.Name, p.line)
		}
		countKind, err := format.ParseKind(fields[2])
		if err != nil {
			return fmt.Errorf("element %q property %q: %w", p.current.Name, fields[4], err)
		}
		if !countKind.IsInteger() {
			return fmt.Errorf("%w: element %q property %q: list count type %q is not an integer type",
				errs.ErrSchema, p.current.Name, fields[4], fields[2])
		}
		valueKind, err := format.ParseKind(fields[3])
		if err != nil {
			return fmt.Errorf("element %q property %q: %w", p.current.Name, fields[4], err)
		}
		prop = List(fields[4], countKind, valueKind)
	} else {
		if len(fields) != 3 {
			return fmt.Errorf("%w: element %q line %d: expected \"property <type> <name>\"",
				errs.ErrSchema, p.current.Name, p.line)
		}
		kind, err := format.ParseKind(fields[1])
		if err != nil {
			return fmt.Errorf("element %q property %q: %w", p.current.Name, fields[2], err)
		}
		prop = Scalar(fields[2], kind)
	}

	if _, dup := p.current.Property(prop.Name); dup {
		return fmt.Errorf("%w: element %q has duplicate property %q", errs.ErrSchema, p.current.Name, prop.Name)
	}
	p.current.Properties = append(p.current.Properties, prop)

	return nil
}

func (p *parser) flush() {
	if p.current != nil {
		p.schema.Elements = append(p.schema.Elements, *p.current)
		p.current = nil
	}
}

// readLine returns the next header line without its LF or CRLF terminator.
// A final line without terminator is returned as is; io.EOF is reported only
// when nothing is left.
func (p *parser) readLine() (string, error) {
	var buf []byte
	for {
		chunk, err := p.r.ReadSlice('\n')
		p.consumed += len(chunk)
		if p.consumed > MaxHeaderSize {
			return "", fmt.Errorf("%w: header exceeds %d bytes", errs.ErrInvalidFormat, MaxHeaderSize)
		}
		buf = append(buf, chunk...)

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		if err != nil && len(buf) == 0 {
			return "", io.EOF
		}
		p.line++

		line := strings.TrimSuffix(string(buf), "\n")

		return strings.TrimSuffix(line, "\r"), nil
	}
}

// keywordText returns the free text following a comment or obj_info keyword.
func keywordText(line, keyword string) string {
	text := strings.TrimLeft(line, " \t")
	text = strings.TrimPrefix(text, keyword)

	return strings.TrimPrefix(strings.TrimPrefix(text, " "), "\t")
}

func truncate(s string) string {
	const limit = 32
	if len(s) > limit {
		return s[:limit] + "..."
	}

	return s
}
