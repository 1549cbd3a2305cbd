package engine

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ttocsneb/mbon/buffer"
	"github.com/ttocsneb/mbon/data"
	"github.com/ttocsneb/mbon/dumper"
	"github.com/ttocsneb/mbon/errs"
	"github.com/ttocsneb/mbon/marks"
)

func newTestEngine(t *testing.T, body []byte) *Engine {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "engine-test-*.mbon")
	require.NoError(t, err)
	_, err = f.Write(body)
	require.NoError(t, err)
	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)

	buf, err := buffer.NewFileBuffer(f, buffer.WithBlockSize(8))
	require.NoError(t, err)
	return New(buf, marks.Legacy)
}

func TestVerifySignatureAccepts(t *testing.T) {
	e := newTestEngine(t, Signature[:])
	require.NoError(t, e.VerifySignature())
}

func TestVerifySignatureRejectsGarbage(t *testing.T) {
	e := newTestEngine(t, []byte("not a signature"))
	require.ErrorIs(t, e.VerifySignature(), errs.ErrInvalidSignature)
}

func TestParseMarkAndScalarData(t *testing.T) {
	var out bytes.Buffer
	d := dumper.New(&out)
	_, err := d.WriteScalar(data.Int{Width: 4, V: 0x2A})
	require.NoError(t, err)

	e := newTestEngine(t, out.Bytes())
	m, dataLoc, err := e.ParseMark(0)
	require.NoError(t, err)
	require.Equal(t, marks.KindInt, m.Kind())

	v, err := e.ParseData(m, dataLoc)
	require.NoError(t, err)
	require.Equal(t, data.Int{Width: 4, V: 0x2A}, v)
}

func TestParseDataArrayShellFetchByIndex(t *testing.T) {
	var out bytes.Buffer
	d := dumper.New(&out)
	items := []data.Value{
		data.Char{Width: 1, V: 1},
		data.Char{Width: 1, V: 2},
		data.Char{Width: 1, V: 3},
	}
	_, err := d.WriteList(items)
	require.NoError(t, err)

	e := newTestEngine(t, out.Bytes())
	item, err := e.ParseItem(0)
	require.NoError(t, err)

	shell, ok := item.Data.(*ListShell)
	require.True(t, ok)
	require.Equal(t, 3, shell.Len())

	v2, err := shell.Fetch(e, 2)
	require.NoError(t, err)
	require.Equal(t, data.Char{Width: 1, V: 3}, v2)

	cached, ok := shell.Get(2)
	require.True(t, ok)
	require.Equal(t, v2, cached)

	_, ok = shell.Get(0)
	require.False(t, ok, "index 0 was never fetched")
}

func TestParseItemFullMaterializesHeterogeneousList(t *testing.T) {
	var out bytes.Buffer
	d := dumper.New(&out)
	items := []data.Value{
		data.Str{V: "x"},
		data.Char{Width: 1, V: 9},
	}
	_, err := d.WriteList(items)
	require.NoError(t, err)

	e := newTestEngine(t, out.Bytes())
	item, err := e.ParseItemFull(0)
	require.NoError(t, err)
	require.Equal(t, data.List{Items: items}, item.Data)
}

func TestLookupDictFindsMatchingKey(t *testing.T) {
	var out bytes.Buffer
	d := dumper.New(&out)
	pairs := []data.KV{
		{Key: data.Str{V: "a"}, Val: data.Char{Width: 1, V: 2}},
		{Key: data.Str{V: "b"}, Val: data.Char{Width: 1, V: 5}},
	}
	_, err := d.WriteMap(pairs)
	require.NoError(t, err)

	e := newTestEngine(t, out.Bytes())
	item, err := e.ParseItem(0)
	require.NoError(t, err)

	shell, ok := item.Data.(*DictShell)
	require.True(t, ok)

	v, found, err := e.LookupDict(shell, data.Str{V: "b"})
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, data.Char{Width: 1, V: 5}, v)

	_, found, err = e.LookupDict(shell, data.Str{V: "z"})
	require.NoError(t, err)
	require.False(t, found)
}

func TestLookupDictResolvesCompositeKeys(t *testing.T) {
	// Keys are themselves Lists (same mark, so the Dict stays homogeneous),
	// which means each FetchPair hands back a key shell with nothing
	// fetched yet: MaybeEq must come back nil on the first compare, not a
	// false that would make LookupDict wrongly skip the matching index.
	var out bytes.Buffer
	d := dumper.New(&out)
	pairs := []data.KV{
		{
			Key: data.List{Items: []data.Value{data.Int{Width: 4, V: 1}, data.Int{Width: 4, V: 2}}},
			Val: data.Char{Width: 1, V: 9},
		},
		{
			Key: data.List{Items: []data.Value{data.Int{Width: 4, V: 3}, data.Int{Width: 4, V: 4}}},
			Val: data.Char{Width: 1, V: 10},
		},
	}
	_, err := d.WriteMap(pairs)
	require.NoError(t, err)

	e := newTestEngine(t, out.Bytes())
	item, err := e.ParseItem(0)
	require.NoError(t, err)

	shell, ok := item.Data.(*DictShell)
	require.True(t, ok)

	searchKey := data.List{Items: []data.Value{data.Int{Width: 4, V: 3}, data.Int{Width: 4, V: 4}}}
	v, found, err := e.LookupDict(shell, searchKey)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, data.Char{Width: 1, V: 10}, v)

	missingKey := data.List{Items: []data.Value{data.Int{Width: 4, V: 9}, data.Int{Width: 4, V: 9}}}
	_, found, err = e.LookupDict(shell, missingKey)
	require.NoError(t, err)
	require.False(t, found)
}

func TestParseItemNStopsAtByteWindow(t *testing.T) {
	var out bytes.Buffer
	d := dumper.New(&out)
	_, err := d.WriteScalar(data.Int{Width: 4, V: 1})
	require.NoError(t, err)
	_, err = d.WriteScalar(data.Int{Width: 4, V: 2})
	require.NoError(t, err)

	e := newTestEngine(t, out.Bytes())
	items, err := e.ParseItemN(0, nil, uint64(out.Len()), true)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, data.Int{Width: 4, V: 1}, items[0].Data)
	require.Equal(t, data.Int{Width: 4, V: 2}, items[1].Data)
}

func TestParseItemNRejectsCrossingBoundary(t *testing.T) {
	var out bytes.Buffer
	d := dumper.New(&out)
	_, err := d.WriteScalar(data.Int{Width: 4, V: 1})
	require.NoError(t, err)
	_, err = d.WriteScalar(data.Int{Width: 4, V: 2})
	require.NoError(t, err)

	e := newTestEngine(t, out.Bytes())
	_, err = e.ParseItemN(0, nil, 6, true) // first item alone is 5 bytes; 6 crosses mid-second
	require.ErrorIs(t, err, errs.ErrInvalidMark)
}

func TestParseDataNRepeatsKnownMark(t *testing.T) {
	// An Array packs n copies of inner's data back to back with no marks
	// between them, so ParseDataN can stride through it directly.
	var out bytes.Buffer
	d := dumper.New(&out)
	_, err := d.WriteList([]data.Value{
		data.Char{Width: 1, V: 7},
		data.Char{Width: 1, V: 8},
	})
	require.NoError(t, err)

	e := newTestEngine(t, out.Bytes())
	m, dataLoc, err := e.ParseMark(0)
	require.NoError(t, err)
	require.Equal(t, marks.KindArray, m.Kind())

	vs, err := e.ParseDataN(m.Inner(), dataLoc, int(m.Size()))
	require.NoError(t, err)
	require.Equal(t, []data.Value{data.Char{Width: 1, V: 7}, data.Char{Width: 1, V: 8}}, vs)
}
