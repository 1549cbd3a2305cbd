package marks

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSizeRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 16384, 1<<35 - 1, 1<<63 - 1}

	for _, v := range values {
		var buf bytes.Buffer
		n, err := Size(v).Write(&buf)
		require.NoError(t, err)
		require.Equal(t, buf.Len(), n)
		require.Equal(t, uint64(n), Size(v).Len())

		got, read, err := ParseSize(&buf)
		require.NoError(t, err)
		require.Equal(t, n, read)
		require.Equal(t, v, uint64(got))
	}
}

func TestSizeZeroIsOneByte(t *testing.T) {
	var buf bytes.Buffer
	n, err := Size(0).Write(&buf)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []byte{0}, buf.Bytes())
}

func TestSizeContinuationBit(t *testing.T) {
	var buf bytes.Buffer
	_, err := Size(300).Write(&buf)
	require.NoError(t, err)

	b := buf.Bytes()
	require.Len(t, b, 2)
	require.NotZero(t, b[0]&0b1000_0000)
	require.Zero(t, b[1]&0b1000_0000)
}

func TestParseSizeOverflowRejected(t *testing.T) {
	// 9 continuation bytes followed by a final byte contributing more
	// than one significant bit overflows 64 bits.
	raw := bytes.Repeat([]byte{0xff}, 9)
	raw = append(raw, 0x02)

	_, _, err := ParseSize(bytes.NewReader(raw))
	require.Error(t, err)
}

func TestParseSizeEOF(t *testing.T) {
	_, _, err := ParseSize(bytes.NewReader(nil))
	require.Error(t, err)

	// continuation bit set but stream ends before the terminating byte.
	_, _, err = ParseSize(bytes.NewReader([]byte{0x80}))
	require.Error(t, err)
}
