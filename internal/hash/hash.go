// Package hash provides the xxHash64 helpers behind schema fingerprints and
// column checksums.
package hash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// String computes the xxHash64 of s.
func String(s string) uint64 {
	return xxhash.Sum64String(s)
}

// Digest accumulates a 64-bit checksum over a sequence of fields.
//
// Integers are written in little-endian order regardless of the host so the
// same content yields the same sum on every platform.
type Digest struct {
	d       *xxhash.Digest
	scratch [8]byte
}

// NewDigest returns an empty digest.
func NewDigest() *Digest {
	return &Digest{d: xxhash.New()}
}

// WriteString adds s followed by a zero separator so that adjacent strings
// cannot collide by concatenation.
func (h *Digest) WriteString(s string) {
	_, _ = h.d.WriteString(s)
	_, _ = h.d.Write([]byte{0})
}

// WriteUint64 adds v as 8 little-endian bytes.
func (h *Digest) WriteUint64(v uint64) {
	binary.LittleEndian.PutUint64(h.scratch[:], v)
	_, _ = h.d.Write(h.scratch[:])
}

// Write adds raw bytes.
func (h *Digest) Write(b []byte) {
	_, _ = h.d.Write(b)
}

// Sum64 returns the checksum of everything written so far.
func (h *Digest) Sum64() uint64 {
	return h.d.Sum64()
}
