// Package dumper writes a self-describing mbon byte stream for a
// data.Value tree.
package dumper

import (
	"io"
	"math"

	"github.com/ttocsneb/mbon/data"
	"github.com/ttocsneb/mbon/endian"
	"github.com/ttocsneb/mbon/errs"
	"github.com/ttocsneb/mbon/marks"
	"github.com/ttocsneb/mbon/object"
)

// Serializable converts a host type into a data.Value for WriteValue to
// encode. It stands in for the schema-binding layer's Serialize hook,
// which is out of scope for this repository.
type Serializable interface {
	Serialize() (data.Value, error)
}

// Dumper is a pure transducer: it writes to its sink and holds no
// buffering semantics of its own beyond what the sink imposes.
type Dumper struct {
	w       io.Writer
	dialect marks.Dialect
	endian  endian.EndianEngine
}

// New returns a Dumper writing the legacy (big-endian) dialect, the only
// dialect this repository wires end to end.
func New(w io.Writer) *Dumper {
	return NewWithDialect(w, marks.Legacy)
}

// NewWithDialect returns a Dumper for the given dialect. Only Legacy is
// exercised by WriteValue's composite classification and WriteList/
// WriteMap; Rich is accepted for completeness of the mark codec but its
// data materialization for Padding/Pointer/Rc/Heap is unsupported (see
// marks.Dialect's doc comment).
func NewWithDialect(w io.Writer, dialect marks.Dialect) *Dumper {
	eng := endian.GetBigEndianEngine()
	if dialect == marks.Rich {
		eng = endian.GetLittleEndianEngine()
	}
	return &Dumper{w: w, dialect: dialect, endian: eng}
}

// Flush delegates to the sink if it exposes a Flush method.
func (d *Dumper) Flush() error {
	if f, ok := d.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

func (d *Dumper) write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	if err != nil {
		return n, errs.IO(err)
	}
	return n, nil
}

func (d *Dumper) writeMark(m *marks.Mark) (int, error) {
	if d.dialect == marks.Rich {
		return marks.WriteRichMark(d.w, m)
	}
	return marks.WriteMark(d.w, m)
}

// WriteNull writes a Null mark with no data.
func (d *Dumper) WriteNull() (int, error) {
	return d.writeMark(marks.NewNull())
}

// WriteScalar writes a scalar value's mark and fixed-width data. v must be
// one of data.Null, data.Int, data.Unsigned, data.Float, data.Char.
func (d *Dumper) WriteScalar(v data.Value) (int, error) {
	return d.WriteValue(v)
}

// WriteBytes writes tag + size + data for an opaque byte payload.
func (d *Dumper) WriteBytes(b []byte) (int, error) {
	return d.WriteValue(data.Bytes{V: b})
}

// WriteStr writes tag + size + data for a UTF-8 string.
func (d *Dumper) WriteStr(s string) (int, error) {
	return d.WriteValue(data.Str{V: s})
}

// WriteObject writes tag + size + data for an opaque embedded blob.
func (d *Dumper) WriteObject(o []byte) (int, error) {
	return d.WriteValue(data.Object{V: o})
}

// WriteObj calls t.DumpObject to obtain bytes and writes them as an
// Object value.
func (d *Dumper) WriteObj(t object.Dumper) (int, error) {
	b, err := t.DumpObject()
	if err != nil {
		return 0, err
	}
	return d.WriteObject(b)
}

// WriteEnum writes an Enum mark (carrying inner's mark) followed by the
// variant word and inner's data.
func (d *Dumper) WriteEnum(variantWidth uint8, variant uint64, inner data.Value) (int, error) {
	return d.WriteValue(data.Enum{VariantWidth: variantWidth, Variant: variant, Inner: inner})
}

// WriteList classifies vs and writes it as Array(n, mark) when every
// adjacent pair of element marks is structurally equal, or List(byteLen)
// otherwise.
func (d *Dumper) WriteList(vs []data.Value) (int, error) {
	return d.WriteValue(data.List{Items: vs})
}

// WriteMap classifies pairs and writes it as Dict(n, km, vm) when all key
// marks agree and all value marks agree, or Map(byteLen) otherwise.
func (d *Dumper) WriteMap(pairs []data.KV) (int, error) {
	return d.WriteValue(data.Dict{Items: pairs})
}

// Write converts t via its Serializable binding, then writes the result.
func (d *Dumper) Write(t Serializable) (int, error) {
	v, err := t.Serialize()
	if err != nil {
		return 0, err
	}
	return d.WriteValue(v)
}

// WriteValue dispatches on v's concrete type, writing its mark followed
// by its data.
func (d *Dumper) WriteValue(v data.Value) (int, error) {
	written, err := d.writeMark(v.Mark())
	if err != nil {
		return written, err
	}

	n, err := d.writeData(v)
	written += n
	return written, err
}

func (d *Dumper) writeData(v data.Value) (int, error) {
	switch val := v.(type) {
	case data.Null:
		return 0, nil
	case data.Int:
		return d.writeInt(val.Width, val.V)
	case data.Unsigned:
		return d.writeUint(val.Width, val.V)
	case data.Float:
		return d.writeFloat(val.Width, val.V)
	case data.Char:
		return d.writeUint(val.Width, uint64(val.V))
	case data.Str:
		return d.write([]byte(val.V))
	case data.Bytes:
		return d.write(val.V)
	case data.Object:
		return d.write(val.V)
	case data.Enum:
		n, err := d.writeUint(val.VariantWidth, val.Variant)
		if err != nil {
			return n, err
		}
		m, err := d.writeData(val.Inner)
		return n + m, err
	case data.List:
		return d.writeSequence(val.Items)
	case data.Dict:
		return d.writePairs(val.Items)
	default:
		return 0, errs.Internal("dumper: unhandled value type")
	}
}

func (d *Dumper) writeSequence(items []data.Value) (int, error) {
	isArray := len(items) > 0
	for i := 1; i < len(items) && isArray; i++ {
		if !items[i-1].Mark().Equal(items[i].Mark()) {
			isArray = false
		}
	}

	written := 0
	for _, item := range items {
		if !isArray {
			n, err := d.writeMark(item.Mark())
			written += n
			if err != nil {
				return written, err
			}
		}
		n, err := d.writeData(item)
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func (d *Dumper) writePairs(items []data.KV) (int, error) {
	isDict := len(items) > 0
	for i := 1; i < len(items) && isDict; i++ {
		if !items[i-1].Key.Mark().Equal(items[i].Key.Mark()) ||
			!items[i-1].Val.Mark().Equal(items[i].Val.Mark()) {
			isDict = false
		}
	}

	written := 0
	for _, kv := range items {
		if !isDict {
			n, err := d.writeMark(kv.Key.Mark())
			written += n
			if err != nil {
				return written, err
			}
		}
		n, err := d.writeData(kv.Key)
		written += n
		if err != nil {
			return written, err
		}
		if !isDict {
			n, err = d.writeMark(kv.Val.Mark())
			written += n
			if err != nil {
				return written, err
			}
		}
		n, err = d.writeData(kv.Val)
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func (d *Dumper) writeInt(width uint8, v int64) (int, error) {
	switch width {
	case 1:
		return d.write([]byte{byte(v)})
	case 2:
		buf := make([]byte, 2)
		d.endian.PutUint16(buf, uint16(v))
		return d.write(buf)
	case 4:
		buf := make([]byte, 4)
		d.endian.PutUint32(buf, uint32(v))
		return d.write(buf)
	case 8:
		buf := make([]byte, 8)
		d.endian.PutUint64(buf, uint64(v))
		return d.write(buf)
	default:
		return 0, errs.Internal("dumper: invalid int width")
	}
}

func (d *Dumper) writeUint(width uint8, v uint64) (int, error) {
	switch width {
	case 1:
		return d.write([]byte{byte(v)})
	case 2:
		buf := make([]byte, 2)
		d.endian.PutUint16(buf, uint16(v))
		return d.write(buf)
	case 4:
		buf := make([]byte, 4)
		d.endian.PutUint32(buf, uint32(v))
		return d.write(buf)
	case 8:
		buf := make([]byte, 8)
		d.endian.PutUint64(buf, v)
		return d.write(buf)
	default:
		return 0, errs.Internal("dumper: invalid uint width")
	}
}

func (d *Dumper) writeFloat(width uint8, v float64) (int, error) {
	switch width {
	case 4:
		buf := make([]byte, 4)
		d.endian.PutUint32(buf, math.Float32bits(float32(v)))
		return d.write(buf)
	case 8:
		buf := make([]byte, 8)
		d.endian.PutUint64(buf, math.Float64bits(v))
		return d.write(buf)
	default:
		return 0, errs.Internal("dumper: invalid float width")
	}
}
