package concurrent

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ttocsneb/mbon/buffer"
	"github.com/ttocsneb/mbon/data"
	"github.com/ttocsneb/mbon/dumper"
	"github.com/ttocsneb/mbon/engine"
	"github.com/ttocsneb/mbon/errs"
	"github.com/ttocsneb/mbon/marks"
)

func newTestClient(t *testing.T, body []byte) (*Handle, *Client) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "concurrent-test-*.mbon")
	require.NoError(t, err)
	_, err = f.Write(body)
	require.NoError(t, err)
	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)

	buf, err := buffer.NewFileBuffer(f, buffer.WithBlockSize(8))
	require.NoError(t, err)
	e := engine.New(buf, marks.Legacy)
	return Spawn(e)
}

func TestClientParseMarkAndData(t *testing.T) {
	var out bytes.Buffer
	d := dumper.New(&out)
	_, err := d.WriteScalar(data.Int{Width: 4, V: 99})
	require.NoError(t, err)

	h, c := newTestClient(t, out.Bytes())
	defer h.Close()

	ctx := context.Background()
	m, loc, err := c.ParseMark(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, marks.KindInt, m.Kind())

	v, err := c.ParseData(ctx, m, loc)
	require.NoError(t, err)
	require.Equal(t, data.Int{Width: 4, V: 99}, v)
}

func TestMultipleClonedClientsShareOneActor(t *testing.T) {
	var out bytes.Buffer
	d := dumper.New(&out)
	_, err := d.WriteScalar(data.Int{Width: 4, V: 1})
	require.NoError(t, err)

	h, c1 := newTestClient(t, out.Bytes())
	defer h.Close()
	c2 := c1.Clone()

	ctx := context.Background()
	m1, loc1, err := c1.ParseMark(ctx, 0)
	require.NoError(t, err)
	m2, loc2, err := c2.ParseMark(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, m1.Kind(), m2.Kind())
	require.Equal(t, loc1, loc2)
}

func TestCloseReportsConnectionReset(t *testing.T) {
	h, c := newTestClient(t, []byte{})
	h.Close()

	_, _, err := c.ParseMark(context.Background(), 0)
	require.ErrorIs(t, err, errs.ErrConnectionReset)
}

func TestContextCancellationBeforeReply(t *testing.T) {
	h, c := newTestClient(t, []byte{})
	defer h.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, _, err := c.ParseMark(ctx, 0)
	require.Error(t, err)
}
