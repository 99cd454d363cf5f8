package codec

import (
	"fmt"
	"math"
	"strconv"

	"github.com/arloliu/plycol/endian"
	"github.com/arloliu/plycol/errs"
	"github.com/arloliu/plycol/format"
)

// readCount decodes a list length stored as kind in the byte order of engine.
func readCount(b []byte, kind format.Kind, engine endian.EndianEngine) (int64, error) {
	var n int64
	switch kind { //nolint: exhaustive
	case format.Int8:
		n = int64(int8(b[0]))
	case format.Uint8:
		n = int64(b[0])
	case format.Int16:
		n = int64(int16(engine.Uint16(b)))
	case format.Uint16:
		n = int64(engine.Uint16(b))
	case format.Int32:
		n = int64(int32(engine.Uint32(b)))
	case format.Uint32:
		n = int64(engine.Uint32(b))
	case format.Int64:
		n = int64(engine.Uint64(b))
	case format.Uint64:
		u := engine.Uint64(b)
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("list length %d out of range", u)
		}
		n = int64(u)
	default:
		return 0, fmt.Errorf("%w: list count kind %s", errs.ErrSchema, kind)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative list length %d", n)
	}

	return n, nil
}

// appendCount encodes a list length as kind in the byte order of engine.
func appendCount(dst []byte, n int, kind format.Kind, engine endian.EndianEngine) []byte {
	switch kind.Size() {
	case 1:
		return append(dst, byte(n))
	case 2:
		return engine.AppendUint16(dst, uint16(n))
	case 4:
		return engine.AppendUint32(dst, uint32(n))
	default:
		return engine.AppendUint64(dst, uint64(n))
	}
}

// parseCount parses an ascii list length token.
func parseCount(tok string, kind format.Kind) (int64, error) {
	if kind.IsSigned() {
		n, err := strconv.ParseInt(tok, 10, kind.Size()*8)
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, fmt.Errorf("negative list length %d", n)
		}

		return n, nil
	}

	u, err := strconv.ParseUint(tok, 10, kind.Size()*8)
	if err != nil {
		return 0, err
	}
	if u > math.MaxInt64 {
		return 0, fmt.Errorf("list length %d out of range", u)
	}

	return int64(u), nil
}

// appendParsed parses an ascii token as kind and appends it in host byte order.
func appendParsed(dst []byte, tok string, kind format.Kind) ([]byte, error) {
	ne := endian.Native()
	bits := kind.Size() * 8

	switch {
	case kind.IsFloat():
		v, err := strconv.ParseFloat(tok, bits)
		if err != nil {
			return dst, err
		}
		if kind == format.Float32 {
			return ne.AppendUint32(dst, math.Float32bits(float32(v))), nil
		}

		return ne.AppendUint64(dst, math.Float64bits(v)), nil
	case kind.IsSigned():
		v, err := strconv.ParseInt(tok, 10, bits)
		if err != nil {
			return dst, err
		}

		return appendInteger(dst, uint64(v), bits, ne), nil
	default:
		v, err := strconv.ParseUint(tok, 10, bits)
		if err != nil {
			return dst, err
		}

		return appendInteger(dst, v, bits, ne), nil
	}
}

func appendInteger(dst []byte, v uint64, bits int, engine endian.EndianEngine) []byte {
	switch bits {
	case 8:
		return append(dst, byte(v))
	case 16:
		return engine.AppendUint16(dst, uint16(v))
	case 32:
		return engine.AppendUint32(dst, uint32(v))
	default:
		return engine.AppendUint64(dst, v)
	}
}

// appendFormatted appends the ascii token of one host-order value.
// Floats use the shortest representation that parses back to the same bits.
func appendFormatted(dst []byte, b []byte, kind format.Kind) []byte {
	ne := endian.Native()

	switch kind { //nolint: exhaustive
	case format.Int8:
		return strconv.AppendInt(dst, int64(int8(b[0])), 10)
	case format.Uint8:
		return strconv.AppendUint(dst, uint64(b[0]), 10)
	case format.Int16:
		return strconv.AppendInt(dst, int64(int16(ne.Uint16(b))), 10)
	case format.Uint16:
		return strconv.AppendUint(dst, uint64(ne.Uint16(b)), 10)
	case format.Int32:
		return strconv.AppendInt(dst, int64(int32(ne.Uint32(b))), 10)
	case format.Uint32:
		return strconv.AppendUint(dst, uint64(ne.Uint32(b)), 10)
	case format.Int64:
		return strconv.AppendInt(dst, int64(ne.Uint64(b)), 10)
	case format.Uint64:
		return strconv.AppendUint(dst, ne.Uint64(b), 10)
	case format.Float32:
		return strconv.AppendFloat(dst, float64(math.Float32frombits(ne.Uint32(b))), 'g', -1, 32)
	default:
		return strconv.AppendFloat(dst, math.Float64frombits(ne.Uint64(b)), 'g', -1, 64)
	}
}
