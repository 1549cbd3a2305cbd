package buffer

import (
	"errors"
	"io"
	"sort"

	"github.com/ttocsneb/mbon/errs"
)

// FileBuffer wraps a seekable byte stream, cutting I/O into fixed-size
// blocks cached with a write-back LRU policy. It implements io.ReadWriteSeeker.
type FileBuffer struct {
	f   io.ReadWriteSeeker
	cfg *Config

	blocks map[uint64]*block

	accessCount uint64

	logicalCursor uint64

	physicalCursor uint64
	physicalKnown  bool
}

// NewFileBuffer wraps f, applying opts to configure block size and cache
// limits.
func NewFileBuffer(f io.ReadWriteSeeker, opts ...Option) (*FileBuffer, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return &FileBuffer{f: f, cfg: cfg, blocks: make(map[uint64]*block)}, nil
}

func (fb *FileBuffer) nextAccess() uint64 {
	fb.accessCount++
	return fb.accessCount
}

// Seek repositions the logical cursor. It may consult the backing stream's
// size for io.SeekEnd, but otherwise performs no I/O.
func (fb *FileBuffer) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = int64(fb.logicalCursor)
	case io.SeekEnd:
		size, err := fb.size()
		if err != nil {
			return 0, err
		}
		base = size
	default:
		return 0, errs.Internal("buffer: invalid whence")
	}

	pos := base + offset
	if pos < 0 {
		return 0, errs.Internal("buffer: negative seek position")
	}
	fb.logicalCursor = uint64(pos)
	return pos, nil
}

func (fb *FileBuffer) size() (int64, error) {
	n, err := fb.f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, errs.IO(err)
	}
	fb.physicalCursor = uint64(n)
	fb.physicalKnown = true
	return n, nil
}

// fetch loads block id from the backing stream, inserting it clean. It
// reports errs.ErrEndOfFile if the block lies entirely past the stream's
// end.
func (fb *FileBuffer) fetch(id uint64) (*block, error) {
	target := id * fb.cfg.blockSize
	if !fb.physicalKnown || fb.physicalCursor != target {
		if _, err := fb.f.Seek(int64(target), io.SeekStart); err != nil {
			return nil, errs.IO(err)
		}
		fb.physicalCursor = target
		fb.physicalKnown = true
	}

	buf := make([]byte, fb.cfg.blockSize)
	total := 0
	for total < len(buf) {
		n, err := fb.f.Read(buf[total:])
		total += n
		if err != nil {
			if err == io.EOF {
				break
			}
			fb.physicalKnown = false
			return nil, errs.IO(err)
		}
		if n == 0 {
			break
		}
	}
	fb.physicalCursor = target + uint64(total)

	if total == 0 {
		return nil, errs.ErrEndOfFile
	}

	b := newBlock(id, int(fb.cfg.blockSize))
	b.setData(buf[:total])
	b.lastAccess = fb.nextAccess()
	fb.blocks[id] = b
	return b, nil
}

// Read fills p from the logical cursor, fetching cache misses as needed. It
// returns a short count with a nil error once it has returned at least one
// byte and the next block can't be satisfied without blocking or hitting
// EOF; callers should re-invoke to continue.
func (fb *FileBuffer) Read(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		blockID := fb.logicalCursor / fb.cfg.blockSize
		offset := fb.logicalCursor % fb.cfg.blockSize

		b, ok := fb.blocks[blockID]
		if !ok {
			fetched, err := fb.fetch(blockID)
			if err != nil {
				if total > 0 {
					break
				}
				if errors.Is(err, errs.ErrEndOfFile) {
					return 0, io.EOF
				}
				return 0, err
			}
			b = fetched
		}

		data := b.data()
		if offset >= uint64(len(data)) {
			break // tail block exhausted: EOF
		}

		n := copy(p[total:], data[offset:])
		total += n
		fb.logicalCursor += uint64(n)
		b.lastAccess = fb.nextAccess()

		if uint64(len(data)) < fb.cfg.blockSize && offset+uint64(n) >= uint64(len(data)) {
			break // short (tail) block fully drained
		}
	}

	fb.overflowCheck()
	if total == 0 {
		return 0, io.EOF
	}
	return total, nil
}

// Write patches or creates blocks starting at the logical cursor, marking
// each touched block modified. Flush persists them later.
func (fb *FileBuffer) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		blockID := fb.logicalCursor / fb.cfg.blockSize
		offset := fb.logicalCursor % fb.cfg.blockSize
		remaining := p[total:]

		b, ok := fb.blocks[blockID]
		if !ok {
			if offset == 0 && uint64(len(remaining)) >= fb.cfg.blockSize {
				nb := newBlock(blockID, int(fb.cfg.blockSize))
				nb.setData(remaining[:fb.cfg.blockSize])
				nb.modified = true
				nb.lastAccess = fb.nextAccess()
				fb.blocks[blockID] = nb
				total += int(fb.cfg.blockSize)
				fb.logicalCursor += fb.cfg.blockSize
				continue
			}

			fetched, err := fb.fetch(blockID)
			if err != nil {
				if !errors.Is(err, errs.ErrEndOfFile) {
					if total > 0 {
						break
					}
					return total, err
				}
				fetched = newBlock(blockID, int(fb.cfg.blockSize))
				fetched.lastAccess = fb.nextAccess()
				fb.blocks[blockID] = fetched
			}
			b = fetched
		}

		data := b.data()
		need := offset + uint64(len(remaining))
		if need > fb.cfg.blockSize {
			need = fb.cfg.blockSize
		}
		if uint64(len(data)) < need {
			grown := make([]byte, need)
			copy(grown, data)
			b.setData(grown)
			data = b.data()
		}

		n := copy(data[offset:need], remaining)
		if n == 0 {
			break
		}
		b.modified = true
		b.lastAccess = fb.nextAccess()
		total += n
		fb.logicalCursor += uint64(n)
	}

	fb.overflowCheck()
	return total, nil
}

// Flush writes every modified block back to the stream in ascending
// block_id order, then flushes the backing stream if it supports it.
func (fb *FileBuffer) Flush() error {
	ids := make([]uint64, 0, len(fb.blocks))
	for id, b := range fb.blocks {
		if b.modified {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		b := fb.blocks[id]
		target := id * fb.cfg.blockSize
		if !fb.physicalKnown || fb.physicalCursor != target {
			if _, err := fb.f.Seek(int64(target), io.SeekStart); err != nil {
				return errs.IO(err)
			}
			fb.physicalCursor = target
			fb.physicalKnown = true
		}

		n, err := fb.f.Write(b.data())
		if err != nil {
			fb.physicalKnown = false
			return errs.IO(err)
		}
		fb.physicalCursor = target + uint64(n)
		b.modified = false
	}

	if flusher, ok := fb.f.(interface{ Flush() error }); ok {
		if err := flusher.Flush(); err != nil {
			return errs.IO(err)
		}
	}
	return nil
}

// ClearCache flushes then drops every cached block.
func (fb *FileBuffer) ClearCache() error {
	if err := fb.Flush(); err != nil {
		return err
	}
	for _, b := range fb.blocks {
		b.release()
	}
	fb.blocks = make(map[uint64]*block)
	return nil
}

// overflowCheck evicts clean LRU blocks down to ideal_blocks once the cache
// has grown past max_blocks. Dirty blocks are never evicted here.
func (fb *FileBuffer) overflowCheck() {
	if len(fb.blocks) <= fb.cfg.maxBlocks {
		return
	}
	toEvict := len(fb.blocks) - fb.cfg.idealBlocks
	if toEvict <= 0 {
		return
	}

	h := newEvictHeap(toEvict)
	for _, b := range fb.blocks {
		if b.modified {
			continue
		}
		h.consider(b)
	}

	victims := h.blocks()
	for _, b := range victims {
		delete(fb.blocks, b.id)
		b.release()
	}

	if len(victims) >= fb.cfg.maxBlocks/2 {
		fb.cfg.logger.Warn("buffer: large eviction pass",
			"evicted", len(victims), "cache_size", len(fb.blocks)+len(victims),
			"max_blocks", fb.cfg.maxBlocks, "ideal_blocks", fb.cfg.idealBlocks)
	}
}
