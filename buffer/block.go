package buffer

import "github.com/ttocsneb/mbon/internal/pool"

// block is one cached page of the backing stream. len(data) may be less
// than the buffer's block_size only for the highest-id block, which
// represents a file tail that hasn't been extended to a full block yet.
type block struct {
	id         uint64
	buf        *pool.ByteBuffer
	lastAccess uint64
	modified   bool
}

func newBlock(id uint64, size int) *block {
	return &block{id: id, buf: pool.NewByteBuffer(size)}
}

func (b *block) data() []byte {
	return b.buf.Bytes()
}

func (b *block) setData(p []byte) {
	b.buf.Reset()
	b.buf.MustWrite(p)
}

func (b *block) release() {
	pool.PutBlock(b.buf)
	b.buf = nil
}
