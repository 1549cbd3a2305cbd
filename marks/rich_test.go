package marks

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteParseRichMarkScalarRoundTrip(t *testing.T) {
	cases := []*Mark{
		NewNull(),
		NewUnsigned(1),
		NewUnsigned(8),
		NewInt(2),
		NewFloat(4),
		NewFloat(8),
		NewChar(4),
		NewSpace(),
		NewPointer(8),
	}

	for _, m := range cases {
		var buf bytes.Buffer
		_, err := WriteRichMark(&buf, m)
		require.NoError(t, err)

		got, err := ParseRichMark(&buf)
		require.NoError(t, err)
		require.True(t, m.Equal(got))
	}
}

func TestWriteParseRichStr(t *testing.T) {
	m := NewStr(300)

	var buf bytes.Buffer
	n, err := WriteRichMark(&buf, m)
	require.NoError(t, err)
	require.Equal(t, uint64(n), m.MarkLen(Rich))

	got, err := ParseRichMark(&buf)
	require.NoError(t, err)
	require.True(t, m.Equal(got))
}

func TestWriteParseRichArray(t *testing.T) {
	m := NewArray(5, NewUnsigned(2))

	var buf bytes.Buffer
	_, err := WriteRichMark(&buf, m)
	require.NoError(t, err)

	got, err := ParseRichMark(&buf)
	require.NoError(t, err)
	require.True(t, m.Equal(got))
}

func TestWriteParseRichDict(t *testing.T) {
	m := NewDict(4, NewStr(0), NewFloat(8))

	var buf bytes.Buffer
	_, err := WriteRichMark(&buf, m)
	require.NoError(t, err)

	got, err := ParseRichMark(&buf)
	require.NoError(t, err)
	require.True(t, m.Equal(got))
}

func TestWriteParseRichEnumAndRc(t *testing.T) {
	enum := NewEnum(2, NewInt(4))

	var buf bytes.Buffer
	_, err := WriteRichMark(&buf, enum)
	require.NoError(t, err)

	got, err := ParseRichMark(&buf)
	require.NoError(t, err)
	require.True(t, enum.Equal(got))

	rc := NewRc(4, NewStr(8))
	buf.Reset()
	_, err = WriteRichMark(&buf, rc)
	require.NoError(t, err)

	got, err = ParseRichMark(&buf)
	require.NoError(t, err)
	require.True(t, rc.Equal(got))
}

func TestWriteParseRichPaddingAndHeap(t *testing.T) {
	for _, m := range []*Mark{NewPadding(42), NewHeap(0)} {
		var buf bytes.Buffer
		_, err := WriteRichMark(&buf, m)
		require.NoError(t, err)

		got, err := ParseRichMark(&buf)
		require.NoError(t, err)
		require.True(t, m.Equal(got))
	}
}

func TestRichWidthBitsRoundTrip(t *testing.T) {
	for _, w := range []uint8{1, 2, 4, 8} {
		bits, err := richWidthBits(w)
		require.NoError(t, err)
		require.Equal(t, w, richWidthFromBits(bits))
	}

	_, err := richWidthBits(3)
	require.Error(t, err)
}

func TestWriteRichMarkRejectsBytesAndObject(t *testing.T) {
	var buf bytes.Buffer
	_, err := WriteRichMark(&buf, NewBytes(4))
	require.Error(t, err)

	_, err = WriteRichMark(&buf, NewObject(4))
	require.Error(t, err)
}

func TestParseRichMarkUnknownTag(t *testing.T) {
	_, err := ParseRichMark(bytes.NewReader([]byte{0xff}))
	require.Error(t, err)
}

func TestParseRichMarkEmptyReader(t *testing.T) {
	_, err := ParseRichMark(bytes.NewReader(nil))
	require.Error(t, err)
}
