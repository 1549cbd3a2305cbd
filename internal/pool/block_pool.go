// Package pool provides sync.Pool-backed byte buffer reuse. The file
// buffer's block cache hands a released block's buffer back to the
// package-level pool (PutBlock); new blocks are allocated with
// NewByteBuffer, not taken from the pool with GetBlock, so a block fetch
// still allocates.
package pool

import (
	"io"
	"sync"
)

// DefaultBlockSize is the file buffer's default block size and therefore
// the default capacity handed out by the package-level block pool.
const DefaultBlockSize = 512

// MaxPooledBlockSize is the largest buffer the package-level block pool
// will retain; larger ones are discarded on Put to avoid memory bloat from
// one oversized block pinning a pool slot.
const MaxPooledBlockSize = 1024 * 1024 // 1 MiB

// ByteBuffer is a growable byte slice wrapper that supports being reset
// and returned to a pool instead of being garbage collected.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified default size.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset resets the buffer to be empty, but retains the allocated memory
// for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// MustWrite writes data to the buffer, growing it if necessary.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.B = append(bb.B, data...)
}

// SetLength sets the length of the buffer to n, growing the backing array
// if n exceeds the current capacity.
func (bb *ByteBuffer) SetLength(n int) {
	if n <= cap(bb.B) {
		bb.B = bb.B[:n]
		return
	}

	bb.Grow(n - len(bb.B))
	bb.B = bb.B[:n]
}

// Grow ensures the buffer can hold requiredBytes more bytes without
// reallocating.
func (bb *ByteBuffer) Grow(requiredBytes int) {
	available := cap(bb.B) - len(bb.B)
	if available >= requiredBytes {
		return
	}

	newBuf := make([]byte, len(bb.B), len(bb.B)+requiredBytes)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

// Write appends the contents of data to the buffer, growing it as needed.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// WriteTo writes the contents of the buffer to w.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// ByteBufferPool is a sync.Pool of ByteBuffers bounded by a maximum
// retained size, so an unusually large buffer doesn't get pinned in the
// pool forever.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a new ByteBufferPool with buffers of the
// given default size, discarding anything put back above maxThreshold
// (0 disables the threshold).
func NewByteBufferPool(defaultSize, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a ByteBuffer from the pool.
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

var defaultBlockPool = NewByteBufferPool(DefaultBlockSize, MaxPooledBlockSize)

// GetBlock retrieves a block-sized ByteBuffer from the default pool.
func GetBlock() *ByteBuffer {
	return defaultBlockPool.Get()
}

// PutBlock returns a block-sized ByteBuffer to the default pool.
func PutBlock(bb *ByteBuffer) {
	defaultBlockPool.Put(bb)
}
