// Package endian provides the byte order utilities used by the binary PLY body
// codec.
//
// EndianEngine combines binary.ByteOrder and binary.AppendByteOrder so the
// decoder can read count values in file order and the encoder can append them
// without temporary buffers:
//
//	engine := endian.GetBigEndianEngine()
//	n := engine.Uint32(countBytes)
//	buf = engine.AppendUint32(buf, n)
//
// Columnar buffers are always kept in host order. Binary bodies whose byte order
// differs from the host are copied verbatim and then fixed with a single
// SwapInPlace pass per column, which is far cheaper than decoding value by value.
//
// # Thread Safety
//
// All functions in this package are safe for concurrent use.
package endian

import (
	"encoding/binary"
	"unsafe"
)

// EndianEngine combines ByteOrder and AppendByteOrder interfaces from encoding/binary.
//
// binary.LittleEndian and binary.BigEndian satisfy it.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

var native EndianEngine = detectNative()

func detectNative() EndianEngine {
	// 0x0100: the first byte in memory is 0x01 only on big-endian hosts.
	var i uint16 = 0x0100
	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// Native returns the engine matching the host byte order.
func Native() EndianEngine {
	return native
}

func IsNativeLittleEndian() bool {
	return native == EndianEngine(binary.LittleEndian)
}

// IsNative reports whether engine uses the host byte order, i.e. whether bytes
// read with it can be used in place without swapping.
func IsNative(engine EndianEngine) bool {
	return engine == native
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}

// SwapInPlace reverses the byte order of every width-sized value in buf.
//
// Widths of 0 and 1 are no-ops. len(buf) must be a multiple of width; a trailing
// partial value is left untouched.
func SwapInPlace(buf []byte, width int) {
	switch width {
	case 2:
		for i := 0; i+1 < len(buf); i += 2 {
			buf[i], buf[i+1] = buf[i+1], buf[i]
		}
	case 4:
		for i := 0; i+3 < len(buf); i += 4 {
			v := binary.LittleEndian.Uint32(buf[i:])
			binary.BigEndian.PutUint32(buf[i:], v)
		}
	case 8:
		for i := 0; i+7 < len(buf); i += 8 {
			v := binary.LittleEndian.Uint64(buf[i:])
			binary.BigEndian.PutUint64(buf[i:], v)
		}
	default:
		if width < 2 {
			return
		}
		for i := 0; i+width <= len(buf); i += width {
			v := buf[i : i+width]
			for l, r := 0, width-1; l < r; l, r = l+1, r-1 {
				v[l], v[r] = v[r], v[l]
			}
		}
	}
}

// AppendSwapped appends src to dst with the byte order of every width-sized
// value reversed.
func AppendSwapped(dst, src []byte, width int) []byte {
	start := len(dst)
	dst = append(dst, src...)
	SwapInPlace(dst[start:], width)

	return dst
}
