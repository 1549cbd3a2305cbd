package marks

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ttocsneb/mbon/errs"
)

// Legacy dialect tag bytes (§6.1).
const (
	tagLong   = 'l' // Int, width 8
	tagInt    = 'i' // Int, width 4
	tagShort  = 'h' // Int, width 2
	tagChar   = 'c' // Char, width 1
	tagFloat  = 'f' // Float, width 4
	tagDouble = 'd' // Float, width 8
	tagNull   = 'n'
	tagBytes  = 'b'
	tagStr    = 's'
	tagObject = 'o'
	tagEnum   = 'e'
	tagArray  = 'a'
	tagList   = 'A'
	tagDict   = 'm'
	tagMap    = 'M'
)

// legacyTag returns the one-byte ASCII tag for m under the legacy
// dialect, or errs.ErrInvalidMark if m's kind/width has no legacy
// encoding.
func legacyTag(m *Mark) (byte, error) {
	switch m.kind {
	case KindInt:
		switch m.width {
		case 8:
			return tagLong, nil
		case 4:
			return tagInt, nil
		case 2:
			return tagShort, nil
		default:
			return 0, fmt.Errorf("%w: legacy dialect has no %d-byte int", errs.ErrInvalidMark, m.width)
		}
	case KindChar:
		if m.width != 1 {
			return 0, fmt.Errorf("%w: legacy dialect only has 1-byte char", errs.ErrInvalidMark)
		}
		return tagChar, nil
	case KindFloat:
		switch m.width {
		case 4:
			return tagFloat, nil
		case 8:
			return tagDouble, nil
		default:
			return 0, fmt.Errorf("%w: legacy dialect has no %d-byte float", errs.ErrInvalidMark, m.width)
		}
	case KindNull:
		return tagNull, nil
	case KindBytes:
		return tagBytes, nil
	case KindStr:
		return tagStr, nil
	case KindObject:
		return tagObject, nil
	case KindEnum:
		return tagEnum, nil
	case KindArray:
		return tagArray, nil
	case KindList:
		return tagList, nil
	case KindDict:
		return tagDict, nil
	case KindMap:
		return tagMap, nil
	default:
		return 0, fmt.Errorf("%w: %s has no legacy encoding", errs.ErrInvalidMark, m.kind)
	}
}

// legacyMarkLen is the number of bytes the mark header occupies under the
// legacy dialect: one tag byte, plus any u32 size fields and child marks.
func (m *Mark) legacyMarkLen() uint64 {
	switch m.kind {
	case KindStr, KindBytes, KindObject, KindList, KindMap:
		return 1 + 4
	case KindEnum:
		return 1 + m.inner.legacyMarkLen()
	case KindArray:
		return 1 + m.inner.legacyMarkLen() + 4
	case KindDict:
		return 1 + m.key.legacyMarkLen() + m.val.legacyMarkLen() + 4
	default:
		return 1
	}
}

func writeU32(w io.Writer, v uint64) (int, error) {
	if v > 0xFFFFFFFF {
		return 0, errs.ErrSizeOverflow
	}

	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))

	n, err := w.Write(buf[:])
	if err != nil {
		return n, errs.IO(err)
	}

	return n, nil
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, errs.ErrEndOfFile
		}
		return 0, errs.IO(err)
	}

	return binary.BigEndian.Uint32(buf[:]), nil
}

// WriteMark writes m's legacy-dialect mark header (tag byte plus any size
// fields and child marks) to w, returning the number of bytes written.
func WriteMark(w io.Writer, m *Mark) (int, error) {
	tag, err := legacyTag(m)
	if err != nil {
		return 0, err
	}

	written := 0
	if _, err := w.Write([]byte{tag}); err != nil {
		return written, errs.IO(err)
	}
	written++

	switch m.kind {
	case KindStr, KindBytes, KindObject:
		n, err := writeU32(w, m.size)
		written += n
		if err != nil {
			return written, err
		}
	case KindList, KindMap:
		n, err := writeU32(w, m.size)
		written += n
		if err != nil {
			return written, err
		}
	case KindEnum:
		n, err := WriteMark(w, m.inner)
		written += n
		if err != nil {
			return written, err
		}
	case KindArray:
		n, err := WriteMark(w, m.inner)
		written += n
		if err != nil {
			return written, err
		}
		n, err = writeU32(w, m.size)
		written += n
		if err != nil {
			return written, err
		}
	case KindDict:
		n, err := WriteMark(w, m.key)
		written += n
		if err != nil {
			return written, err
		}
		n, err = WriteMark(w, m.val)
		written += n
		if err != nil {
			return written, err
		}
		n, err = writeU32(w, m.size)
		written += n
		if err != nil {
			return written, err
		}
	}

	return written, nil
}

// ParseMark reads a legacy-dialect mark header from r.
func ParseMark(r io.Reader) (*Mark, error) {
	var tagBuf [1]byte
	if _, err := io.ReadFull(r, tagBuf[:]); err != nil {
		if err == io.EOF {
			return nil, errs.ErrEndOfFile
		}
		return nil, errs.IO(err)
	}

	switch tagBuf[0] {
	case tagLong:
		return NewInt(8), nil
	case tagInt:
		return NewInt(4), nil
	case tagShort:
		return NewInt(2), nil
	case tagChar:
		return NewChar(1), nil
	case tagFloat:
		return NewFloat(4), nil
	case tagDouble:
		return NewFloat(8), nil
	case tagNull:
		return NewNull(), nil
	case tagBytes:
		n, err := readU32(r)
		if err != nil {
			return nil, err
		}
		return NewBytes(uint64(n)), nil
	case tagStr:
		n, err := readU32(r)
		if err != nil {
			return nil, err
		}
		return NewStr(uint64(n)), nil
	case tagObject:
		n, err := readU32(r)
		if err != nil {
			return nil, err
		}
		return NewObject(uint64(n)), nil
	case tagEnum:
		inner, err := ParseMark(r)
		if err != nil {
			return nil, err
		}
		return NewEnum(4, inner), nil
	case tagArray:
		inner, err := ParseMark(r)
		if err != nil {
			return nil, err
		}
		n, err := readU32(r)
		if err != nil {
			return nil, err
		}
		return NewArray(uint64(n), inner), nil
	case tagList:
		n, err := readU32(r)
		if err != nil {
			return nil, err
		}
		return NewList(uint64(n)), nil
	case tagDict:
		key, err := ParseMark(r)
		if err != nil {
			return nil, err
		}
		val, err := ParseMark(r)
		if err != nil {
			return nil, err
		}
		n, err := readU32(r)
		if err != nil {
			return nil, err
		}
		return NewDict(uint64(n), key, val), nil
	case tagMap:
		n, err := readU32(r)
		if err != nil {
			return nil, err
		}
		return NewMap(uint64(n)), nil
	default:
		return nil, fmt.Errorf("%w: unknown legacy tag %q", errs.ErrInvalidMark, tagBuf[0])
	}
}
