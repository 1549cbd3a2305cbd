package marks

import (
	"fmt"
	"io"

	"github.com/ttocsneb/mbon/errs"
)

// Rich dialect tag IDs: the high six bits name the kind, the low two
// bits carry a width exponent (0..3 → 1,2,4,8 bytes) for the kinds that
// have one.
//
// Bytes and Object have no rich-dialect tag: the format never assigned
// them one, so richID reports errs.ErrInvalidMark for those kinds. They
// remain legacy-only.
const (
	richNullID     = 0xc0
	richUnsignedID = 0x64
	richSignedID   = 0x68
	richFloatID    = 0x6c
	richCharID     = 0x70
	richStringID   = 0x54
	richArrayID    = 0x40
	richListID     = 0x44
	richStructID   = 0x48
	richMapID      = 0x4c
	richEnumID     = 0x74
	richSpaceID    = 0x80
	richPaddingID  = 0x04
	richPointerID  = 0x28
	richRcID       = 0x2c
	richHeapID     = 0x10

	richKindMask = 0b1111_1100
)

// richWidthBits maps a byte width to the tag's low two bits.
func richWidthBits(width uint8) (uint8, error) {
	switch width {
	case 1:
		return 0, nil
	case 2:
		return 1, nil
	case 4:
		return 2, nil
	case 8:
		return 3, nil
	default:
		return 0, fmt.Errorf("%w: invalid width %d", errs.ErrInvalidMark, width)
	}
}

// richWidthFromBits is the inverse of richWidthBits.
func richWidthFromBits(bits uint8) uint8 {
	return 1 << (bits & 0b11)
}

// richID returns the one-byte rich-dialect tag for m.
func (m *Mark) richID() (byte, error) {
	switch m.kind {
	case KindNull:
		return richNullID, nil
	case KindUnsigned:
		b, err := richWidthBits(m.width)
		if err != nil {
			return 0, err
		}
		return b | richUnsignedID, nil
	case KindInt:
		b, err := richWidthBits(m.width)
		if err != nil {
			return 0, err
		}
		return b | richSignedID, nil
	case KindFloat:
		b, err := richWidthBits(m.width)
		if err != nil {
			return 0, err
		}
		return b | richFloatID, nil
	case KindChar:
		b, err := richWidthBits(m.width)
		if err != nil {
			return 0, err
		}
		return b | richCharID, nil
	case KindStr:
		return richStringID, nil
	case KindArray:
		return richArrayID, nil
	case KindList:
		return richListID, nil
	case KindDict:
		return richStructID, nil
	case KindMap:
		return richMapID, nil
	case KindEnum:
		b, err := richWidthBits(m.width)
		if err != nil {
			return 0, err
		}
		return b | richEnumID, nil
	case KindSpace:
		return richSpaceID, nil
	case KindPadding:
		return richPaddingID, nil
	case KindPointer:
		b, err := richWidthBits(m.width)
		if err != nil {
			return 0, err
		}
		return b | richPointerID, nil
	case KindRc:
		b, err := richWidthBits(m.width)
		if err != nil {
			return 0, err
		}
		return b | richRcID, nil
	case KindHeap:
		return richHeapID, nil
	default:
		return 0, fmt.Errorf("%w: %s has no rich encoding", errs.ErrInvalidMark, m.kind)
	}
}

// richMarkLen is the number of bytes the mark header occupies under the
// rich dialect: one tag byte, plus any Size varints and child marks.
func (m *Mark) richMarkLen() uint64 {
	switch m.kind {
	case KindStr:
		return 1 + Size(m.size).Len()
	case KindArray:
		return 1 + m.inner.richMarkLen() + Size(m.size).Len()
	case KindList:
		return 1 + Size(m.size).Len()
	case KindDict:
		return 1 + m.key.richMarkLen() + m.val.richMarkLen() + Size(m.size).Len()
	case KindMap:
		return 1 + Size(m.size).Len()
	case KindEnum:
		return 1 + m.inner.richMarkLen()
	case KindPadding:
		return 1 + Size(m.size).Len()
	case KindRc:
		return 1 + m.inner.richMarkLen()
	case KindHeap:
		return 1 + Size(m.size).Len()
	default:
		return 1
	}
}

// WriteRichMark writes m's rich-dialect mark header to w.
func WriteRichMark(w io.Writer, m *Mark) (int, error) {
	tag, err := m.richID()
	if err != nil {
		return 0, err
	}

	written := 0
	if _, err := w.Write([]byte{tag}); err != nil {
		return 0, errs.IO(err)
	}
	written++

	switch m.kind {
	case KindStr, KindList, KindMap, KindPadding, KindHeap:
		n, err := Size(m.size).Write(w)
		written += n
		if err != nil {
			return written, err
		}
	case KindArray:
		n, err := WriteRichMark(w, m.inner)
		written += n
		if err != nil {
			return written, err
		}
		n, err = Size(m.size).Write(w)
		written += n
		if err != nil {
			return written, err
		}
	case KindDict:
		n, err := WriteRichMark(w, m.key)
		written += n
		if err != nil {
			return written, err
		}
		n, err = WriteRichMark(w, m.val)
		written += n
		if err != nil {
			return written, err
		}
		n, err = Size(m.size).Write(w)
		written += n
		if err != nil {
			return written, err
		}
	case KindEnum, KindRc:
		n, err := WriteRichMark(w, m.inner)
		written += n
		if err != nil {
			return written, err
		}
	}

	return written, nil
}

// ParseRichMark reads a rich-dialect mark header from r.
func ParseRichMark(r io.Reader) (*Mark, error) {
	var tagBuf [1]byte
	if _, err := io.ReadFull(r, tagBuf[:]); err != nil {
		if err == io.EOF {
			return nil, errs.ErrEndOfFile
		}
		return nil, errs.IO(err)
	}

	id := tagBuf[0]
	widthBits := id & 0b11

	switch id & richKindMask {
	case richNullID:
		return NewNull(), nil
	case richUnsignedID:
		return NewUnsigned(richWidthFromBits(widthBits)), nil
	case richSignedID:
		return NewInt(richWidthFromBits(widthBits)), nil
	case richFloatID:
		w := richWidthFromBits(widthBits)
		if w != 4 && w != 8 {
			return nil, fmt.Errorf("%w: invalid float width %d", errs.ErrInvalidMark, w)
		}
		return NewFloat(w), nil
	case richCharID:
		return NewChar(richWidthFromBits(widthBits)), nil
	case richStringID:
		size, _, err := ParseSize(r)
		if err != nil {
			return nil, err
		}
		return NewStr(uint64(size)), nil
	case richArrayID:
		inner, err := ParseRichMark(r)
		if err != nil {
			return nil, err
		}
		size, _, err := ParseSize(r)
		if err != nil {
			return nil, err
		}
		return NewArray(uint64(size), inner), nil
	case richListID:
		size, _, err := ParseSize(r)
		if err != nil {
			return nil, err
		}
		return NewList(uint64(size)), nil
	case richStructID:
		key, err := ParseRichMark(r)
		if err != nil {
			return nil, err
		}
		val, err := ParseRichMark(r)
		if err != nil {
			return nil, err
		}
		size, _, err := ParseSize(r)
		if err != nil {
			return nil, err
		}
		return NewDict(uint64(size), key, val), nil
	case richMapID:
		size, _, err := ParseSize(r)
		if err != nil {
			return nil, err
		}
		return NewMap(uint64(size)), nil
	case richEnumID:
		inner, err := ParseRichMark(r)
		if err != nil {
			return nil, err
		}
		return NewEnum(richWidthFromBits(widthBits), inner), nil
	case richSpaceID:
		return NewSpace(), nil
	case richPaddingID:
		size, _, err := ParseSize(r)
		if err != nil {
			return nil, err
		}
		return NewPadding(uint64(size)), nil
	case richPointerID:
		return NewPointer(richWidthFromBits(widthBits)), nil
	case richRcID:
		inner, err := ParseRichMark(r)
		if err != nil {
			return nil, err
		}
		return NewRc(richWidthFromBits(widthBits), inner), nil
	case richHeapID:
		size, _, err := ParseSize(r)
		if err != nil {
			return nil, err
		}
		return NewHeap(uint64(size)), nil
	default:
		return nil, fmt.Errorf("%w: unknown rich tag 0x%02x", errs.ErrInvalidMark, id)
	}
}
