//go:build mbon_cooperative

package buffer

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ttocsneb/mbon/errs"
)

// flakyFile is an in-memory SuspendableReadWriteSeeker that reports
// errs.ErrWouldBlock on every other call, forcing callers to drive it with
// multiple Step calls.
type flakyFile struct {
	buf    []byte
	cursor int64
	calls  int
}

func (f *flakyFile) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = f.cursor
	case io.SeekEnd:
		base = int64(len(f.buf))
	}
	f.cursor = base + offset
	return f.cursor, nil
}

func (f *flakyFile) Read(p []byte) (int, error) {
	f.calls++
	if f.calls%2 == 0 {
		return 0, errs.ErrWouldBlock
	}
	if f.cursor >= int64(len(f.buf)) {
		return 0, io.EOF
	}
	n := copy(p, f.buf[f.cursor:])
	f.cursor += int64(n)
	return n, nil
}

func (f *flakyFile) Write(p []byte) (int, error) {
	f.calls++
	if f.calls%2 == 0 {
		return 0, errs.ErrWouldBlock
	}
	end := f.cursor + int64(len(p))
	if end > int64(len(f.buf)) {
		grown := make([]byte, end)
		copy(grown, f.buf)
		f.buf = grown
	}
	n := copy(f.buf[f.cursor:end], p)
	f.cursor = end
	return n, nil
}

func TestStepBufferReadSurvivesWouldBlock(t *testing.T) {
	ff := &flakyFile{buf: []byte("hello cooperative world")}
	sb, err := NewStepBuffer(ff, WithBlockSize(8))
	require.NoError(t, err)

	out := make([]byte, 11)
	sb.StartRead(out)

	ctx := context.Background()
	steps := 0
	for {
		done, err := sb.Step(ctx)
		require.NoError(t, err)
		steps++
		if done {
			break
		}
		require.Less(t, steps, 1000, "Step loop did not converge")
	}

	require.Equal(t, 11, sb.N())
	require.Equal(t, "hello coope", string(out))
}

func TestStepBufferWriteThenFlush(t *testing.T) {
	ff := &flakyFile{}
	sb, err := NewStepBuffer(ff, WithBlockSize(8))
	require.NoError(t, err)

	payload := []byte("cooperative scheduling")
	sb.StartWrite(payload)

	ctx := context.Background()
	for {
		done, err := sb.Step(ctx)
		require.NoError(t, err)
		if done {
			break
		}
	}
	require.Equal(t, len(payload), sb.N())

	sb.StartFlush()
	for {
		done, err := sb.Step(ctx)
		require.NoError(t, err)
		if done {
			break
		}
	}

	require.Equal(t, payload, ff.buf)
}

func TestStepBufferReadPastEndReportsEOF(t *testing.T) {
	ff := &flakyFile{buf: []byte("abc")}
	sb, err := NewStepBuffer(ff, WithBlockSize(8))
	require.NoError(t, err)

	if _, err := sb.Seek(10, io.SeekStart); err != nil {
		t.Fatal(err)
	}

	out := make([]byte, 4)
	sb.StartRead(out)

	ctx := context.Background()
	for {
		done, err := sb.Step(ctx)
		require.NoError(t, err)
		if done {
			break
		}
	}
	require.Equal(t, 0, sb.N())
}
