//go:build mbon_cooperative

package buffer

import (
	"context"
	"errors"
	"io"

	"github.com/ttocsneb/mbon/errs"
	"github.com/ttocsneb/mbon/stream"
)

// opKind names the in-flight operation a StepBuffer is driving to
// completion across repeated Step calls.
type opKind int

const (
	opIdle opKind = iota
	opSeekPhysical
	opFetchBlock
	opFlushBlock
	opClosing
)

// bufState is StepBuffer's in-flight operation state, advanced one
// suspension-bounded unit per Step call. The blocking FileBuffer does not
// use it: it loops ordinary blocking calls directly and shares only the
// block type, the eviction heap and Config with StepBuffer. bufState exists
// for the cooperative facade, where the backing stream itself may report
// errs.ErrWouldBlock mid-operation.
type bufState struct {
	op      opKind
	blockID uint64

	// fetch/flush progress against the backing stream, in raw bytes.
	tmp    []byte
	tmpLen int

	// the logical-level operation that triggered the current fetch/flush:
	// forWrite distinguishes a read-miss fetch from a write-miss fetch, and
	// callerBuf/callerOff track the caller's Read/Write progress across
	// block boundaries.
	forWrite  bool
	callerBuf []byte
	callerOff int
	lastN     int

	flushIDs []uint64
	flushIdx int
}

// StepBuffer is the cooperative counterpart to FileBuffer: Step(ctx)
// performs one block-granularity unit of work (one fetch, one flush, one
// physical seek) against a SuspendableReadWriteSeeker and reports
// done=false to ask for another call. Seek and cache bookkeeping are
// synchronous, same as FileBuffer.
type StepBuffer struct {
	f   stream.SuspendableReadWriteSeeker
	cfg *Config

	blocks      map[uint64]*block
	accessCount uint64

	logicalCursor  uint64
	physicalCursor uint64
	physicalKnown  bool

	state bufState
}

// NewStepBuffer wraps f, applying opts to configure block size and cache
// limits.
func NewStepBuffer(f stream.SuspendableReadWriteSeeker, opts ...Option) (*StepBuffer, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return &StepBuffer{f: f, cfg: cfg, blocks: make(map[uint64]*block)}, nil
}

func (sb *StepBuffer) nextAccess() uint64 {
	sb.accessCount++
	return sb.accessCount
}

// Seek repositions the logical cursor. It performs no I/O and never
// suspends.
func (sb *StepBuffer) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = int64(sb.logicalCursor)
	case io.SeekEnd:
		return 0, errs.Unsupported("StepBuffer.Seek(io.SeekEnd) requires a known file size; seek from a prior Read/Write result instead")
	default:
		return 0, errs.Internal("buffer: invalid whence")
	}

	pos := base + offset
	if pos < 0 {
		return 0, errs.Internal("buffer: negative seek position")
	}
	sb.logicalCursor = uint64(pos)
	return pos, nil
}

// N returns the byte count transferred by the most recently completed
// StartRead/StartWrite.
func (sb *StepBuffer) N() int { return sb.state.lastN }

// StartRead arms the state machine to fill p from the logical cursor. Call
// Step repeatedly until it reports done.
func (sb *StepBuffer) StartRead(p []byte) {
	sb.state = bufState{op: opIdle, callerBuf: p, forWrite: false}
}

// StartWrite arms the state machine to write p at the logical cursor.
func (sb *StepBuffer) StartWrite(p []byte) {
	sb.state = bufState{op: opIdle, callerBuf: p, forWrite: true}
}

// StartFlush arms the state machine to persist every modified block.
func (sb *StepBuffer) StartFlush() {
	ids := make([]uint64, 0, len(sb.blocks))
	for id, b := range sb.blocks {
		if b.modified {
			ids = append(ids, id)
		}
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	sb.state = bufState{op: opFlushBlock, flushIDs: ids}
}

// Step advances the in-flight operation by one suspension-bounded unit. It
// returns done=true once the armed StartRead/StartWrite/StartFlush has
// fully completed (or hit EOF). A nil ctx is treated as context.Background.
func (sb *StepBuffer) Step(ctx context.Context) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	switch sb.state.op {
	case opFlushBlock:
		return sb.stepFlush(ctx)
	default:
		if sb.state.forWrite {
			return sb.stepWrite(ctx)
		}
		return sb.stepRead(ctx)
	}
}

func (sb *StepBuffer) stepRead(ctx context.Context) (bool, error) {
	if sb.state.callerOff >= len(sb.state.callerBuf) {
		sb.state.lastN = sb.state.callerOff
		return true, nil
	}

	blockID := sb.logicalCursor / sb.cfg.blockSize
	offset := sb.logicalCursor % sb.cfg.blockSize

	b, ok := sb.blocks[blockID]
	if !ok {
		done, err := sb.stepFetch(ctx, blockID)
		if err != nil {
			if errors.Is(err, errs.ErrEndOfFile) {
				sb.state.lastN = sb.state.callerOff
				return true, nil
			}
			return false, err
		}
		if !done {
			return false, nil
		}
		b = sb.blocks[blockID]
	}

	data := b.data()
	if offset >= uint64(len(data)) {
		sb.state.lastN = sb.state.callerOff
		return true, nil
	}

	n := copy(sb.state.callerBuf[sb.state.callerOff:], data[offset:])
	sb.state.callerOff += n
	sb.logicalCursor += uint64(n)
	b.lastAccess = sb.nextAccess()

	if uint64(len(data)) < sb.cfg.blockSize && offset+uint64(n) >= uint64(len(data)) {
		sb.state.lastN = sb.state.callerOff
		sb.overflowCheck()
		return true, nil
	}
	if sb.state.callerOff >= len(sb.state.callerBuf) {
		sb.state.lastN = sb.state.callerOff
		sb.overflowCheck()
		return true, nil
	}
	return false, nil
}

func (sb *StepBuffer) stepWrite(ctx context.Context) (bool, error) {
	if sb.state.callerOff >= len(sb.state.callerBuf) {
		sb.state.lastN = sb.state.callerOff
		sb.overflowCheck()
		return true, nil
	}

	blockID := sb.logicalCursor / sb.cfg.blockSize
	offset := sb.logicalCursor % sb.cfg.blockSize
	remaining := sb.state.callerBuf[sb.state.callerOff:]

	b, ok := sb.blocks[blockID]
	if !ok {
		if offset == 0 && uint64(len(remaining)) >= sb.cfg.blockSize {
			nb := newBlock(blockID, int(sb.cfg.blockSize))
			nb.setData(remaining[:sb.cfg.blockSize])
			nb.modified = true
			nb.lastAccess = sb.nextAccess()
			sb.blocks[blockID] = nb
			sb.state.callerOff += int(sb.cfg.blockSize)
			sb.logicalCursor += sb.cfg.blockSize
			return false, nil
		}

		done, err := sb.stepFetch(ctx, blockID)
		if err != nil {
			if !errors.Is(err, errs.ErrEndOfFile) {
				return false, err
			}
			nb := newBlock(blockID, int(sb.cfg.blockSize))
			nb.lastAccess = sb.nextAccess()
			sb.blocks[blockID] = nb
		} else if !done {
			return false, nil
		}
		b = sb.blocks[blockID]
	}

	data := b.data()
	need := offset + uint64(len(remaining))
	if need > sb.cfg.blockSize {
		need = sb.cfg.blockSize
	}
	if uint64(len(data)) < need {
		grown := make([]byte, need)
		copy(grown, data)
		b.setData(grown)
		data = b.data()
	}

	n := copy(data[offset:need], remaining)
	b.modified = true
	b.lastAccess = sb.nextAccess()
	sb.state.callerOff += n
	sb.logicalCursor += uint64(n)

	if sb.state.callerOff >= len(sb.state.callerBuf) {
		sb.state.lastN = sb.state.callerOff
		sb.overflowCheck()
		return true, nil
	}
	return false, nil
}

// stepFetch drives a single block fetch to completion across however many
// Step calls the backing stream's suspensions require, reporting done=true
// once the block is cached (or errs.ErrEndOfFile if it lies past the end).
func (sb *StepBuffer) stepFetch(ctx context.Context, id uint64) (bool, error) {
	if sb.state.op != opFetchBlock || sb.state.blockID != id {
		sb.state = bufState{
			op:        opFetchBlock,
			blockID:   id,
			tmp:       make([]byte, sb.cfg.blockSize),
			forWrite:  sb.state.forWrite,
			callerBuf: sb.state.callerBuf,
			callerOff: sb.state.callerOff,
		}
	}

	target := id * sb.cfg.blockSize
	resume := target + uint64(sb.state.tmpLen)
	if !sb.physicalKnown || sb.physicalCursor != resume {
		if _, err := sb.f.Seek(int64(resume), io.SeekStart); err != nil {
			return false, errs.IO(err)
		}
		sb.physicalCursor = resume
		sb.physicalKnown = true
	}

	if sb.state.tmpLen < len(sb.state.tmp) {
		n, err := sb.f.Read(sb.state.tmp[sb.state.tmpLen:])
		sb.state.tmpLen += n
		sb.physicalCursor = target + uint64(sb.state.tmpLen)
		if err != nil {
			if errors.Is(err, errs.ErrWouldBlock) {
				return false, nil
			}
			if err == io.EOF {
				// fall through: treat accumulated bytes as the final block
			} else {
				sb.physicalKnown = false
				return false, errs.IO(err)
			}
		} else if n == 0 {
			// fall through: stream reports clean EOF via n==0, err==nil
		} else {
			return false, nil // more room, more Step calls welcome
		}
	}

	restoreBuf, restoreOff, restoreFW := sb.state.callerBuf, sb.state.callerOff, sb.state.forWrite

	if sb.state.tmpLen == 0 {
		sb.state = bufState{op: opIdle, callerBuf: restoreBuf, callerOff: restoreOff, forWrite: restoreFW}
		return false, errs.ErrEndOfFile
	}

	b := newBlock(id, int(sb.cfg.blockSize))
	b.setData(sb.state.tmp[:sb.state.tmpLen])
	b.lastAccess = sb.nextAccess()
	sb.blocks[id] = b

	sb.state = bufState{op: opIdle, callerBuf: restoreBuf, callerOff: restoreOff, forWrite: restoreFW}
	return true, nil
}

func (sb *StepBuffer) stepFlush(ctx context.Context) (bool, error) {
	if sb.state.flushIdx >= len(sb.state.flushIDs) {
		if flusher, ok := sb.f.(interface{ Flush() error }); ok {
			if err := flusher.Flush(); err != nil {
				return false, errs.IO(err)
			}
		}
		return true, nil
	}

	id := sb.state.flushIDs[sb.state.flushIdx]
	b, ok := sb.blocks[id]
	if !ok {
		sb.state.flushIdx++
		return false, nil
	}

	target := id * sb.cfg.blockSize
	if !sb.physicalKnown || sb.physicalCursor != target {
		if _, err := sb.f.Seek(int64(target), io.SeekStart); err != nil {
			return false, errs.IO(err)
		}
		sb.physicalCursor = target
		sb.physicalKnown = true
	}

	n, err := sb.f.Write(b.data())
	if err != nil {
		if errors.Is(err, errs.ErrWouldBlock) {
			return false, nil
		}
		sb.physicalKnown = false
		return false, errs.IO(err)
	}
	sb.physicalCursor = target + uint64(n)
	b.modified = false
	sb.state.flushIdx++
	return false, nil
}

// overflowCheck mirrors FileBuffer's eviction policy.
func (sb *StepBuffer) overflowCheck() {
	if len(sb.blocks) <= sb.cfg.maxBlocks {
		return
	}
	toEvict := len(sb.blocks) - sb.cfg.idealBlocks
	if toEvict <= 0 {
		return
	}

	h := newEvictHeap(toEvict)
	for _, b := range sb.blocks {
		if b.modified {
			continue
		}
		h.consider(b)
	}
	for _, b := range h.blocks() {
		delete(sb.blocks, b.id)
		b.release()
	}
}
