// Package parser reads a self-describing mbon byte stream into a
// data.Value tree.
package parser

import (
	"bufio"
	"io"
	"math"
	"unicode/utf8"

	"github.com/ttocsneb/mbon/data"
	"github.com/ttocsneb/mbon/endian"
	"github.com/ttocsneb/mbon/errs"
	"github.com/ttocsneb/mbon/marks"
	"github.com/ttocsneb/mbon/object"
)

// Deserializable accepts a decoded data.Value to populate a host type. It
// stands in for the schema-binding layer's Deserialize hook, out of scope
// for this repository.
type Deserializable interface {
	Deserialize(v data.Value) error
}

// peeker is satisfied by readers (e.g. *bufio.Reader) that support
// look-ahead without consuming bytes.
type peeker interface {
	Peek(n int) ([]byte, error)
}

// Parser reads values from a byte source.
type Parser struct {
	r       io.Reader
	dialect marks.Dialect
	endian  endian.EndianEngine
}

// New returns a Parser reading the legacy (big-endian) dialect.
func New(r io.Reader) *Parser {
	return NewWithDialect(r, marks.Legacy)
}

// NewWithDialect returns a Parser for the given dialect.
func NewWithDialect(r io.Reader, dialect marks.Dialect) *Parser {
	eng := endian.GetBigEndianEngine()
	if dialect == marks.Rich {
		eng = endian.GetLittleEndianEngine()
	}
	return &Parser{r: r, dialect: dialect, endian: eng}
}

// PeekType returns the upcoming value's tag byte without consuming it. It
// requires the underlying source to support look-ahead (e.g. wrap it in
// bufio.NewReader first); otherwise it reports errs.ErrUnsupported.
func (p *Parser) PeekType() (byte, error) {
	pk, ok := p.r.(peeker)
	if !ok {
		return 0, errs.Unsupported("PeekType requires a peekable reader")
	}

	b, err := pk.Peek(1)
	if err != nil {
		if err == io.EOF {
			return 0, errs.ErrEndOfFile
		}
		return 0, errs.IO(err)
	}
	return b[0], nil
}

// NextMark recursively parses a mark from the source.
func (p *Parser) NextMark() (*marks.Mark, error) {
	if p.dialect == marks.Rich {
		return marks.ParseRichMark(p.r)
	}
	return marks.ParseMark(p.r)
}

// NextValue reads a mark and its full data.
func (p *Parser) NextValue() (data.Value, error) {
	m, err := p.NextMark()
	if err != nil {
		return nil, err
	}
	return p.NextData(m)
}

// Next decodes the next value and hands it to t's Deserialize hook.
func (p *Parser) Next(t Deserializable) error {
	v, err := p.NextValue()
	if err != nil {
		return err
	}
	return t.Deserialize(v)
}

// NextObj decodes the next value, requires it to be an Object, and hands
// its bytes to t's ParseObject hook.
func (p *Parser) NextObj(t object.Parser) error {
	v, err := p.NextValue()
	if err != nil {
		return err
	}
	obj, ok := v.(data.Object)
	if !ok {
		return errs.Expected("Object")
	}
	return t.ParseObject(obj.V)
}

// SkipNext parses a mark then discards exactly mark.DataLen() bytes.
func (p *Parser) SkipNext() error {
	m, err := p.NextMark()
	if err != nil {
		return err
	}

	n, err := io.CopyN(io.Discard, p.r, int64(m.DataLen()))
	if err != nil {
		if err == io.EOF {
			return errs.ErrEndOfFile
		}
		return errs.IO(err)
	}
	if uint64(n) != m.DataLen() {
		return errs.DataError("short read while skipping")
	}
	return nil
}

// SeekNext is SkipNext's seek-based equivalent: it parses a mark, then
// advances the source by mark.DataLen() via Seek rather than a bounded
// copy. It requires the source to implement io.Seeker.
func (p *Parser) SeekNext() error {
	seeker, ok := p.r.(io.Seeker)
	if !ok {
		return errs.Unsupported("SeekNext requires a seekable reader")
	}

	m, err := p.NextMark()
	if err != nil {
		return err
	}

	if _, err := seeker.Seek(int64(m.DataLen()), io.SeekCurrent); err != nil {
		return errs.IO(err)
	}
	return nil
}

// NextData reads the data payload for a mark already in hand, fully
// materializing composites.
func (p *Parser) NextData(m *marks.Mark) (data.Value, error) {
	switch m.Kind() {
	case marks.KindNull, marks.KindSpace:
		return data.Null{}, nil
	case marks.KindInt:
		v, err := p.readInt(m.Width())
		return data.Int{Width: m.Width(), V: v}, err
	case marks.KindUnsigned:
		v, err := p.readUint(m.Width())
		return data.Unsigned{Width: m.Width(), V: v}, err
	case marks.KindFloat:
		v, err := p.readFloat(m.Width())
		return data.Float{Width: m.Width(), V: v}, err
	case marks.KindChar:
		v, err := p.readUint(m.Width())
		return data.Char{Width: m.Width(), V: rune(v)}, err
	case marks.KindStr:
		return p.readStr(m.Size())
	case marks.KindBytes:
		b, err := p.readN(m.Size())
		return data.Bytes{V: b}, err
	case marks.KindObject:
		b, err := p.readN(m.Size())
		return data.Object{V: b}, err
	case marks.KindEnum:
		variant, err := p.readUint(m.Width())
		if err != nil {
			return nil, err
		}
		inner, err := p.NextData(m.Inner())
		if err != nil {
			return nil, err
		}
		return data.Enum{VariantWidth: m.Width(), Variant: variant, Inner: inner}, nil
	case marks.KindArray:
		items := make([]data.Value, m.Size())
		for i := range items {
			v, err := p.NextData(m.Inner())
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return data.List{Items: items}, nil
	case marks.KindList:
		return p.readWindowedList(m.Size())
	case marks.KindDict:
		items := make([]data.KV, m.Size())
		for i := range items {
			k, err := p.NextData(m.Key())
			if err != nil {
				return nil, err
			}
			v, err := p.NextData(m.Val())
			if err != nil {
				return nil, err
			}
			items[i] = data.KV{Key: k, Val: v}
		}
		return data.Dict{Items: items}, nil
	case marks.KindMap:
		return p.readWindowedMap(m.Size())
	case marks.KindPadding, marks.KindPointer, marks.KindRc, marks.KindHeap:
		return nil, errs.Unsupported(m.Kind().String() + " data materialization")
	default:
		return nil, errs.Internal("parser: unhandled mark kind")
	}
}

func (p *Parser) readWindowedList(byteLen uint64) (data.Value, error) {
	lr := &io.LimitedReader{R: p.r, N: int64(byteLen)}
	sub := &Parser{r: lr, dialect: p.dialect, endian: p.endian}

	var items []data.Value
	for lr.N > 0 {
		before := lr.N
		m, err := sub.NextMark()
		if err != nil {
			return nil, err
		}
		if int64(m.DataLen()) > lr.N {
			return nil, errs.InvalidData("list element mark crosses byte_len boundary")
		}
		v, err := sub.NextData(m)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		if lr.N == before {
			return nil, errs.Internal("parser: list window made no progress")
		}
	}
	if lr.N != 0 {
		return nil, errs.DataError("list window left unconsumed bytes")
	}
	return data.List{Items: items}, nil
}

func (p *Parser) readWindowedMap(byteLen uint64) (data.Value, error) {
	lr := &io.LimitedReader{R: p.r, N: int64(byteLen)}
	sub := &Parser{r: lr, dialect: p.dialect, endian: p.endian}

	var items []data.KV
	for lr.N > 0 {
		km, err := sub.NextMark()
		if err != nil {
			return nil, err
		}
		k, err := sub.NextData(km)
		if err != nil {
			return nil, err
		}
		vm, err := sub.NextMark()
		if err != nil {
			return nil, err
		}
		v, err := sub.NextData(vm)
		if err != nil {
			return nil, err
		}
		items = append(items, data.KV{Key: k, Val: v})
	}
	if lr.N != 0 {
		return nil, errs.DataError("map window left unconsumed bytes")
	}
	return data.Dict{Items: items}, nil
}

func (p *Parser) readN(n uint64) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(p.r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errs.ErrEndOfFile
		}
		return nil, errs.IO(err)
	}
	return buf, nil
}

func (p *Parser) readStr(n uint64) (data.Value, error) {
	b, err := p.readN(n)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(b) {
		return nil, errs.InvalidData("Str payload is not valid UTF-8")
	}
	return data.Str{V: string(b)}, nil
}

func (p *Parser) readInt(width uint8) (int64, error) {
	u, err := p.readUint(width)
	if err != nil {
		return 0, err
	}
	switch width {
	case 1:
		return int64(int8(u)), nil
	case 2:
		return int64(int16(u)), nil
	case 4:
		return int64(int32(u)), nil
	case 8:
		return int64(u), nil
	default:
		return 0, errs.Internal("parser: invalid int width")
	}
}

func (p *Parser) readUint(width uint8) (uint64, error) {
	switch width {
	case 1:
		b, err := p.readN(1)
		if err != nil {
			return 0, err
		}
		return uint64(b[0]), nil
	case 2:
		b, err := p.readN(2)
		if err != nil {
			return 0, err
		}
		return uint64(p.endian.Uint16(b)), nil
	case 4:
		b, err := p.readN(4)
		if err != nil {
			return 0, err
		}
		return uint64(p.endian.Uint32(b)), nil
	case 8:
		b, err := p.readN(8)
		if err != nil {
			return 0, err
		}
		return p.endian.Uint64(b), nil
	default:
		return 0, errs.Internal("parser: invalid uint width")
	}
}

func (p *Parser) readFloat(width uint8) (float64, error) {
	switch width {
	case 4:
		b, err := p.readN(4)
		if err != nil {
			return 0, err
		}
		return float64(math.Float32frombits(p.endian.Uint32(b))), nil
	case 8:
		b, err := p.readN(8)
		if err != nil {
			return 0, err
		}
		return math.Float64frombits(p.endian.Uint64(b)), nil
	default:
		return 0, errs.Internal("parser: invalid float width")
	}
}

// NewBuffered wraps r in a bufio.Reader so PeekType can be used.
func NewBuffered(r io.Reader) *Parser {
	return New(bufio.NewReader(r))
}
