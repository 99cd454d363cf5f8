package pool

import (
	"io"
	"sync"
)

// Default sizes of the body staging buffers.
const (
	ChunkDefaultSize  = 1024 * 64        // 64KiB, one flush unit of the encoder
	ChunkMaxThreshold = 1024 * 1024 * 16 // 16MiB, larger buffers are not pooled
)

// ByteBuffer is a growable byte slice that can be recycled through a ByteBufferPool.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified capacity.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

// Reset empties the buffer but keeps its memory.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Resize sets the length of the buffer to n, growing the capacity when needed.
// The content of the first min(n, Len()) bytes is preserved.
func (bb *ByteBuffer) Resize(n int) []byte {
	if n > cap(bb.B) {
		grown := make([]byte, n)
		copy(grown, bb.B)
		bb.B = grown

		return bb.B
	}
	bb.B = bb.B[:n]

	return bb.B
}

// Write appends data to the buffer. It never fails.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// WriteTo writes the buffered bytes to w and empties the buffer on success.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	if err == nil {
		bb.Reset()
	}

	return int64(n), err
}

// ByteBufferPool recycles ByteBuffers through a sync.Pool.
//
// Buffers that grew beyond maxThreshold are dropped on Put so that a single
// huge file does not pin its staging memory for the life of the process.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a pool handing out buffers of defaultSize capacity.
func NewByteBufferPool(defaultSize int, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves an empty ByteBuffer from the pool.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns a ByteBuffer to the pool for reuse.
func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}

	if bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold {
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

var chunkPool = NewByteBufferPool(ChunkDefaultSize, ChunkMaxThreshold)

// GetChunk retrieves a buffer from the default body chunk pool.
func GetChunk() *ByteBuffer {
	return chunkPool.Get()
}

// PutChunk returns a buffer to the default body chunk pool.
func PutChunk(bb *ByteBuffer) {
	chunkPool.Put(bb)
}
