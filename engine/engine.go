// Package engine implements lazy, random-access parsing over a paged file
// buffer: marks and scalars are read eagerly, but composite values come
// back as shells that only fetch children on demand.
package engine

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ttocsneb/mbon/buffer"
	"github.com/ttocsneb/mbon/data"
	"github.com/ttocsneb/mbon/dumper"
	"github.com/ttocsneb/mbon/marks"
	"github.com/ttocsneb/mbon/parser"

	"github.com/ttocsneb/mbon/errs"
)

// PartialItem is a mark paired with its file position and, once fetched,
// its data.
type PartialItem struct {
	Mark *marks.Mark
	Pos  uint64
	Data data.Value // nil until fetched
}

// Engine sits on a *buffer.FileBuffer and implements data.Fetcher, so the
// lazy composite shells it hands back can pull further children through
// the same cache without this package importing them back.
type Engine struct {
	buf     *buffer.FileBuffer
	dialect marks.Dialect
}

// New wraps an already-configured file buffer.
func New(buf *buffer.FileBuffer, dialect marks.Dialect) *Engine {
	return &Engine{buf: buf, dialect: dialect}
}

// OpenRead opens path read-only and wraps it in a file buffer, applying any
// buffer.Option given.
func OpenRead(path string, opts ...buffer.Option) (*Engine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.IO(err)
	}
	buf, err := buffer.NewFileBuffer(f, opts...)
	if err != nil {
		return nil, err
	}
	return New(buf, marks.Legacy), nil
}

// OpenWrite opens (creating if needed) path for read/write and wraps it in
// a file buffer.
func OpenWrite(path string, opts ...buffer.Option) (*Engine, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errs.IO(err)
	}
	buf, err := buffer.NewFileBuffer(f, opts...)
	if err != nil {
		return nil, err
	}
	return New(buf, marks.Legacy), nil
}

// Flush delegates to the underlying file buffer.
func (e *Engine) Flush() error { return e.buf.Flush() }

// ParseMark seeks to loc, parses a mark, and returns it paired with the
// position immediately past it (the start of its data region) — what
// ParseData expects as its loc argument.
func (e *Engine) ParseMark(loc uint64) (*marks.Mark, uint64, error) {
	if _, err := e.buf.Seek(int64(loc), io.SeekStart); err != nil {
		return nil, 0, errs.IO(err)
	}

	var m *marks.Mark
	var err error
	if e.dialect == marks.Rich {
		m, err = marks.ParseRichMark(e.buf)
	} else {
		m, err = marks.ParseMark(e.buf)
	}
	if err != nil {
		return nil, 0, err
	}
	return m, loc + m.MarkLen(e.dialect), nil
}

// ParseData seeks to loc (the data region for mark) and decodes it,
// shallowly: scalars and strings are materialized in full, composites come
// back as lazy shells over e.
func (e *Engine) ParseData(mark *marks.Mark, loc uint64) (data.Value, error) {
	switch mark.Kind() {
	case marks.KindArray, marks.KindList:
		return newListShell(mark, loc), nil
	case marks.KindDict, marks.KindMap:
		return newDictShell(mark, loc), nil
	default:
		if _, err := e.buf.Seek(int64(loc), io.SeekStart); err != nil {
			return nil, errs.IO(err)
		}
		p := parser.NewWithDialect(e.buf, e.dialect)
		return p.NextData(mark)
	}
}

// ParseDataFull is ParseData followed by recursively fetching every child
// of any shell it returns.
func (e *Engine) ParseDataFull(mark *marks.Mark, loc uint64) (data.Value, error) {
	v, err := e.ParseData(mark, loc)
	if err != nil {
		return nil, err
	}
	return materialize(e, v)
}

func materialize(e *Engine, v data.Value) (data.Value, error) {
	switch shell := v.(type) {
	case *ListShell:
		n, err := shell.Count(e)
		if err != nil {
			return nil, err
		}
		items := make([]data.Value, n)
		for i := range items {
			child, err := shell.Fetch(e, i)
			if err != nil {
				return nil, err
			}
			full, err := materialize(e, child)
			if err != nil {
				return nil, err
			}
			items[i] = full
		}
		return data.List{Items: items}, nil
	case *DictShell:
		n, err := shell.Count(e)
		if err != nil {
			return nil, err
		}
		pairs := make([]data.KV, n)
		for i := range pairs {
			k, val, err := shell.FetchPair(e, i)
			if err != nil {
				return nil, err
			}
			kf, err := materialize(e, k)
			if err != nil {
				return nil, err
			}
			vf, err := materialize(e, val)
			if err != nil {
				return nil, err
			}
			pairs[i] = data.KV{Key: kf, Val: vf}
		}
		return data.Dict{Items: pairs}, nil
	default:
		return v, nil
	}
}

// ParseItem parses the mark at loc then its data shallowly.
func (e *Engine) ParseItem(loc uint64) (PartialItem, error) {
	m, dataLoc, err := e.ParseMark(loc)
	if err != nil {
		return PartialItem{}, err
	}
	v, err := e.ParseData(m, dataLoc)
	if err != nil {
		return PartialItem{}, err
	}
	return PartialItem{Mark: m, Pos: loc, Data: v}, nil
}

// ParseItemFull is ParseItem with full recursive materialization.
func (e *Engine) ParseItemFull(loc uint64) (PartialItem, error) {
	m, dataLoc, err := e.ParseMark(loc)
	if err != nil {
		return PartialItem{}, err
	}
	v, err := e.ParseDataFull(m, dataLoc)
	if err != nil {
		return PartialItem{}, err
	}
	return PartialItem{Mark: m, Pos: loc, Data: v}, nil
}

// ParseItemN parses up to count items (if non-nil) or until limitBytes
// have been consumed from loc, whichever comes first. It rejects a final
// mark that would cross the limitBytes boundary. Pass math.MaxUint64 for
// limitBytes when only count should bound the scan.
func (e *Engine) ParseItemN(loc uint64, count *int, limitBytes uint64, parseData bool) ([]PartialItem, error) {
	var items []PartialItem
	consumed := uint64(0)
	cursor := loc

	for {
		if count != nil && len(items) >= *count {
			break
		}
		if consumed >= limitBytes {
			break
		}

		m, dataLoc, err := e.ParseMark(cursor)
		if err != nil {
			if len(items) > 0 && errors.Is(err, errs.ErrEndOfFile) {
				break
			}
			return nil, err
		}
		total := m.TotalLen(e.dialect)
		if consumed+total > limitBytes {
			return nil, fmt.Errorf("%w: item at %d crosses the byte window boundary", errs.ErrInvalidMark, cursor)
		}

		item := PartialItem{Mark: m, Pos: cursor}
		if parseData {
			v, err := e.ParseData(m, dataLoc)
			if err != nil {
				return nil, err
			}
			item.Data = v
		}
		items = append(items, item)
		consumed += total
		cursor = dataLoc + m.DataLen()
	}

	return items, nil
}

// ParseDataN parses n repetitions of mark starting at loc, used when the
// caller already knows the repeated shape (e.g. stepping through an Array
// or Dict one element/pair at a time rather than via the lazy shell).
func (e *Engine) ParseDataN(mark *marks.Mark, loc uint64, n int) ([]data.Value, error) {
	out := make([]data.Value, n)
	cursor := loc
	stride := mark.DataLen()
	for i := 0; i < n; i++ {
		v, err := e.ParseData(mark, cursor)
		if err != nil {
			return nil, err
		}
		out[i] = v
		cursor += stride
	}
	return out, nil
}

// LookupDict performs the documented convenience random-access key lookup
// over a Dict/Map shell: scan keys in order, fetching and comparing each
// with MaybeEq. A composite key (nested List/Dict) starts out as a freshly
// created shell with nothing fetched, so MaybeEq can come back undetermined
// (nil) rather than a definite false; when that happens, force-fetch the
// next unresolved field of whichever side still has one and retry before
// moving on to the next index, per spec.md's "fetch until it's known"
// lookup contract.
func (e *Engine) LookupDict(shell *DictShell, key data.Value) (data.Value, bool, error) {
	n, err := shell.Count(e)
	if err != nil {
		return nil, false, err
	}
	for i := 0; i < n; i++ {
		k, v, err := shell.FetchPair(e, i)
		if err != nil {
			return nil, false, err
		}
		eq, err := resolveMaybeEq(e, k, key)
		if err != nil {
			return nil, false, err
		}
		if eq {
			return v, true, nil
		}
	}
	return nil, false, nil
}

// LookupMap is an alias for LookupDict: this repository's Dict/Map
// collapsing (see data package docs) means both wire encodings share one
// shell type.
func (e *Engine) LookupMap(shell *DictShell, key data.Value) (data.Value, bool, error) {
	return e.LookupDict(shell, key)
}

// Dump writes v through the engine's dialect at the current logical
// cursor, a thin convenience over constructing a dumper.Dumper by hand.
func (e *Engine) Dump(v data.Value) (int, error) {
	d := dumper.NewWithDialect(e.buf, e.dialect)
	return d.WriteValue(v)
}
