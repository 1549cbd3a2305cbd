package marks

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteParseMarkScalarRoundTrip(t *testing.T) {
	cases := []*Mark{
		NewNull(),
		NewInt(2),
		NewInt(4),
		NewInt(8),
		NewChar(1),
		NewFloat(4),
		NewFloat(8),
	}

	for _, m := range cases {
		var buf bytes.Buffer
		n, err := WriteMark(&buf, m)
		require.NoError(t, err)
		require.Equal(t, buf.Len(), n)

		got, err := ParseMark(&buf)
		require.NoError(t, err)
		require.True(t, m.Equal(got))
	}
}

func TestWriteMarkIntTagBytes(t *testing.T) {
	var buf bytes.Buffer
	_, err := WriteMark(&buf, NewInt(4))
	require.NoError(t, err)
	require.Equal(t, []byte{'i'}, buf.Bytes())
}

func TestWriteParseStrBytesObject(t *testing.T) {
	for _, m := range []*Mark{NewStr(5), NewBytes(7), NewObject(0)} {
		var buf bytes.Buffer
		_, err := WriteMark(&buf, m)
		require.NoError(t, err)

		got, err := ParseMark(&buf)
		require.NoError(t, err)
		require.True(t, m.Equal(got))
	}
}

func TestWriteParseArray(t *testing.T) {
	m := NewArray(10, NewInt(4))

	var buf bytes.Buffer
	n, err := WriteMark(&buf, m)
	require.NoError(t, err)
	require.Equal(t, uint64(n), m.MarkLen(Legacy))

	got, err := ParseMark(&buf)
	require.NoError(t, err)
	require.True(t, m.Equal(got))
}

func TestWriteParseDict(t *testing.T) {
	m := NewDict(3, NewStr(0), NewInt(8))

	var buf bytes.Buffer
	_, err := WriteMark(&buf, m)
	require.NoError(t, err)

	got, err := ParseMark(&buf)
	require.NoError(t, err)
	require.True(t, m.Equal(got))
}

func TestWriteParseEnum(t *testing.T) {
	m := NewEnum(4, NewFloat(8))

	var buf bytes.Buffer
	_, err := WriteMark(&buf, m)
	require.NoError(t, err)

	got, err := ParseMark(&buf)
	require.NoError(t, err)
	// legacy always parses a u32 variant width.
	require.Equal(t, uint8(4), got.Width())
	require.True(t, m.Inner().Equal(got.Inner()))
}

func TestParseMarkUnknownTag(t *testing.T) {
	_, err := ParseMark(bytes.NewReader([]byte{'z'}))
	require.Error(t, err)
}

func TestParseMarkEmptyReader(t *testing.T) {
	_, err := ParseMark(bytes.NewReader(nil))
	require.Error(t, err)
}

func TestLegacyTagRejectsUnsupportedKinds(t *testing.T) {
	_, err := legacyTag(NewUnsigned(4))
	require.Error(t, err)

	_, err = legacyTag(NewSpace())
	require.Error(t, err)
}
