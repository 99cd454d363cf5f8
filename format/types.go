// Package format defines the enumerations shared by every layer of the codec:
// scalar value kinds (the PLY type registry), body wire formats and the
// container compression applied around a whole file.
package format

import (
	"fmt"
	"math"

	"github.com/arloliu/plycol/endian"
	"github.com/arloliu/plycol/errs"
)

type (
	Kind            uint8
	Format          uint8
	CompressionType uint8
)

const (
	KindInvalid Kind = iota
	Int8             // Int8 is the PLY "char" type.
	Uint8            // Uint8 is the PLY "uchar" type.
	Int16            // Int16 is the PLY "short" type.
	Uint16           // Uint16 is the PLY "ushort" type.
	Int32            // Int32 is the PLY "int" type.
	Uint32           // Uint32 is the PLY "uint" type.
	Int64            // Int64 has no classic PLY token; written as "int64".
	Uint64           // Uint64 has no classic PLY token; written as "uint64".
	Float32          // Float32 is the PLY "float" type.
	Float64          // Float64 is the PLY "double" type.
)

const (
	ASCII              Format = 0x1 // ASCII is the whitespace-delimited text body.
	BinaryLittleEndian Format = 0x2 // BinaryLittleEndian is the little-endian binary body.
	BinaryBigEndian    Format = 0x3 // BinaryBigEndian is the big-endian binary body.
)

const (
	CompressionNone CompressionType = 0x1 // CompressionNone represents a plain file.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents a Zstandard stream.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents an S2 stream.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents an LZ4 frame stream.
	CompressionGzip CompressionType = 0x5 // CompressionGzip represents a gzip stream.
)

// kindTokens maps every recognized header token to its kind.
// The first eight are the classic PLY names, the rest are the sized aliases
// written by newer exporters.
var kindTokens = map[string]Kind{
	"char":    Int8,
	"uchar":   Uint8,
	"short":   Int16,
	"ushort":  Uint16,
	"int":     Int32,
	"uint":    Uint32,
	"float":   Float32,
	"double":  Float64,
	"int8":    Int8,
	"uint8":   Uint8,
	"int16":   Int16,
	"uint16":  Uint16,
	"int32":   Int32,
	"uint32":  Uint32,
	"int64":   Int64,
	"uint64":  Uint64,
	"float32": Float32,
	"float64": Float64,
}

var kindSizes = [...]int{
	KindInvalid: 0,
	Int8:        1,
	Uint8:       1,
	Int16:       2,
	Uint16:      2,
	Int32:       4,
	Uint32:      4,
	Int64:       8,
	Uint64:      8,
	Float32:     4,
	Float64:     8,
}

var kindNames = [...]string{
	KindInvalid: "invalid",
	Int8:        "char",
	Uint8:       "uchar",
	Int16:       "short",
	Uint16:      "ushort",
	Int32:       "int",
	Uint32:      "uint",
	Int64:       "int64",
	Uint64:      "uint64",
	Float32:     "float",
	Float64:     "double",
}

// ParseKind resolves a header type token to its kind.
//
// Returns errs.ErrUnknownType (wrapped with the token) for anything outside the
// registry. No fallback is attempted: an unknown type means the record layout
// cannot be computed.
func ParseKind(token string) (Kind, error) {
	if k, ok := kindTokens[token]; ok {
		return k, nil
	}

	return KindInvalid, fmt.Errorf("%w: %q", errs.ErrUnknownType, token)
}

// Kinds returns all valid kinds in declaration order.
func Kinds() []Kind {
	return []Kind{Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64, Uint64, Float32, Float64}
}

// Valid reports whether k is one of the registry kinds.
func (k Kind) Valid() bool {
	return k > KindInvalid && k <= Float64
}

// Size returns the width of one value in bytes, 0 for an invalid kind.
func (k Kind) Size() int {
	if int(k) >= len(kindSizes) {
		return 0
	}

	return kindSizes[k]
}

// String returns the canonical header token of the kind.
func (k Kind) String() string {
	if int(k) >= len(kindNames) {
		return "invalid"
	}

	return kindNames[k]
}

func (k Kind) IsFloat() bool {
	return k == Float32 || k == Float64
}

func (k Kind) IsInteger() bool {
	return k.Valid() && !k.IsFloat()
}

func (k Kind) IsSigned() bool {
	switch k { //nolint: exhaustive
	case Int8, Int16, Int32, Int64, Float32, Float64:
		return true
	default:
		return false
	}
}

// MaxCount returns the largest list length a count of this kind can express.
// Returns 0 for float kinds, which are never valid list counts.
func (k Kind) MaxCount() uint64 {
	switch k { //nolint: exhaustive
	case Int8:
		return math.MaxInt8
	case Uint8:
		return math.MaxUint8
	case Int16:
		return math.MaxInt16
	case Uint16:
		return math.MaxUint16
	case Int32:
		return math.MaxInt32
	case Uint32:
		return math.MaxUint32
	case Int64:
		return math.MaxInt64
	case Uint64:
		return math.MaxUint64
	default:
		return 0
	}
}

// ParseFormat resolves the token of a "format" header line.
func ParseFormat(token string) (Format, error) {
	switch token {
	case "ascii":
		return ASCII, nil
	case "binary_little_endian":
		return BinaryLittleEndian, nil
	case "binary_big_endian":
		return BinaryBigEndian, nil
	default:
		return 0, fmt.Errorf("%w: unsupported format %q", errs.ErrInvalidFormat, token)
	}
}

// String returns the header token of the format.
func (f Format) String() string {
	switch f {
	case ASCII:
		return "ascii"
	case BinaryLittleEndian:
		return "binary_little_endian"
	case BinaryBigEndian:
		return "binary_big_endian"
	default:
		return "unknown"
	}
}

func (f Format) Valid() bool {
	return f >= ASCII && f <= BinaryBigEndian
}

func (f Format) IsBinary() bool {
	return f == BinaryLittleEndian || f == BinaryBigEndian
}

// Engine returns the byte order of a binary format.
// ASCII bodies have no byte order; the host order is returned for them so that
// the columnar buffers they produce can be written with the same engine.
func (f Format) Engine() endian.EndianEngine {
	switch f {
	case BinaryLittleEndian:
		return endian.GetLittleEndianEngine()
	case BinaryBigEndian:
		return endian.GetBigEndianEngine()
	default:
		return endian.Native()
	}
}

// ParseCompression resolves a compression name as used in configuration files
// and command line flags.
func ParseCompression(name string) (CompressionType, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "s2":
		return CompressionS2, nil
	case "lz4":
		return CompressionLZ4, nil
	case "gzip", "gz":
		return CompressionGzip, nil
	default:
		return 0, fmt.Errorf("%w: %q", errs.ErrUnsupportedCompression, name)
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	case CompressionGzip:
		return "Gzip"
	default:
		return "Unknown"
	}
}
