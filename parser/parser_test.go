package parser

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ttocsneb/mbon/data"
	"github.com/ttocsneb/mbon/dumper"
)

func TestNextValueScalarRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	d := dumper.New(&buf)
	_, err := d.WriteScalar(data.Int{Width: 4, V: 0x3000})
	require.NoError(t, err)

	p := New(&buf)
	v, err := p.NextValue()
	require.NoError(t, err)
	require.Equal(t, data.Int{Width: 4, V: 0x3000}, v)
}

func TestNextValueArrayRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	d := dumper.New(&buf)
	items := []data.Value{
		data.Char{Width: 1, V: 1},
		data.Char{Width: 1, V: 2},
		data.Char{Width: 1, V: 3},
	}
	_, err := d.WriteList(items)
	require.NoError(t, err)

	p := New(&buf)
	v, err := p.NextValue()
	require.NoError(t, err)
	require.Equal(t, data.List{Items: items}, v)
}

func TestNextValueHeterogeneousListRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	d := dumper.New(&buf)
	items := []data.Value{
		data.Str{V: "Hello"},
		data.Char{Width: 1, V: 2},
	}
	_, err := d.WriteList(items)
	require.NoError(t, err)

	p := New(&buf)
	v, err := p.NextValue()
	require.NoError(t, err)
	require.Equal(t, data.List{Items: items}, v)
}

func TestNextValueMapRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	d := dumper.New(&buf)
	pairs := []data.KV{
		{Key: data.Str{V: "a"}, Val: data.Char{Width: 1, V: 2}},
		{Key: data.Str{V: "b"}, Val: data.Char{Width: 1, V: 5}},
	}
	_, err := d.WriteMap(pairs)
	require.NoError(t, err)

	p := New(&buf)
	v, err := p.NextValue()
	require.NoError(t, err)
	require.Equal(t, data.Dict{Items: pairs}, v)
}

func TestNextValueEnumRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	d := dumper.New(&buf)
	_, err := d.WriteEnum(4, 1, data.Int{Width: 4, V: 0x3000})
	require.NoError(t, err)

	p := New(&buf)
	v, err := p.NextValue()
	require.NoError(t, err)
	require.Equal(t, data.Enum{VariantWidth: 4, Variant: 1, Inner: data.Int{Width: 4, V: 0x3000}}, v)
}

func TestSkipNextThenNextValue(t *testing.T) {
	var buf bytes.Buffer
	d := dumper.New(&buf)

	_, err := d.WriteStr("012345678901234567890123456789")
	require.NoError(t, err)
	_, err = d.WriteScalar(data.Int{Width: 4, V: 0x42})
	require.NoError(t, err)

	p := New(&buf)
	require.NoError(t, p.SkipNext())

	v, err := p.NextValue()
	require.NoError(t, err)
	require.Equal(t, data.Int{Width: 4, V: 0x42}, v)
}

func TestPeekTypeRequiresPeekableReader(t *testing.T) {
	p := New(bytes.NewReader(nil))
	_, err := p.PeekType()
	require.Error(t, err)
}

func TestPeekTypeWithBufferedReader(t *testing.T) {
	var buf bytes.Buffer
	d := dumper.New(&buf)
	_, err := d.WriteNull()
	require.NoError(t, err)

	p := NewBuffered(&buf)
	tag, err := p.PeekType()
	require.NoError(t, err)
	require.Equal(t, byte('n'), tag)

	v, err := p.NextValue()
	require.NoError(t, err)
	require.Equal(t, data.Null{}, v)
}

func TestReadWindowedListRejectsCrossingBoundary(t *testing.T) {
	// A List whose declared byte_len is shorter than its first element's
	// data_len must fail rather than silently truncate.
	var inner bytes.Buffer
	d := dumper.New(&inner)
	_, err := d.WriteScalar(data.Int{Width: 4, V: 1})
	require.NoError(t, err)

	var buf bytes.Buffer
	buf.WriteByte('A')
	buf.Write([]byte{0, 0, 0, 2}) // byte_len = 2, but the Int mark+data needs 5
	buf.Write(inner.Bytes())

	p := New(&buf)
	_, err = p.NextValue()
	require.Error(t, err)
}
