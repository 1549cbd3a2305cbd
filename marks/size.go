package marks

import (
	"io"

	"github.com/ttocsneb/mbon/errs"
)

// Size is the rich dialect's dynamically sized unsigned integer: a
// ULEB128-style varint with stop-bit continuation, refusing encodings
// that would need more than 64 bits.
type Size uint64

// maxSizeContinuationBytes is the number of continuation bytes (after the
// first) a 64-bit value can need: ceil(64/7) - 1 == 9.
const maxSizeContinuationBytes = 9

// ParseSize reads a Size from r.
func ParseSize(r io.Reader) (Size, int, error) {
	var value uint64
	read := 0

	var buf [1]byte
	for i := 0; ; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			if err == io.EOF {
				return 0, read, errs.ErrEndOfFile
			}
			return 0, read, errs.IO(err)
		}

		b := buf[0]
		v := uint64(b & 0b0111_1111)

		if i == maxSizeContinuationBytes && b > 1 {
			// 9*7 + 1 == 64: any more significant bits overflow 64 bits.
			return 0, read, errs.ErrInvalidMark
		}

		value |= v << (7 * uint(i))
		read++

		if b&0b1000_0000 == 0 {
			break
		}
	}

	return Size(value), read, nil
}

// Write writes the Size to w, returning the number of bytes written.
func (s Size) Write(w io.Writer) (int, error) {
	value := uint64(s)
	written := 0

	if value == 0 {
		if _, err := w.Write([]byte{0}); err != nil {
			return 0, errs.IO(err)
		}
		return 1, nil
	}

	for value > 0 {
		b := byte(value & 0b0111_1111)
		value >>= 7
		if value > 0 {
			b |= 0b1000_0000
		}
		if _, err := w.Write([]byte{b}); err != nil {
			return written, errs.IO(err)
		}
		written++
	}

	return written, nil
}

// Len returns the number of bytes the Size would occupy on the wire.
func (s Size) Len() uint64 {
	if s == 0 {
		return 1
	}

	value := uint64(s)
	var n uint64
	for value > 0 {
		value >>= 7
		n++
	}

	return n
}
