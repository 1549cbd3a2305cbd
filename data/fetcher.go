package data

import "github.com/ttocsneb/mbon/marks"

// Fetcher is the random-access parsing contract the lazy engine shells
// (engine.ListShell for Array/List, engine.DictShell for Dict/Map)
// pull more data through. engine.Engine implements this interface; data
// itself has no dependency on the engine package, avoiding an import
// cycle between the two.
type Fetcher interface {
	// ParseMark reads the mark at loc, returning it alongside the
	// position immediately past it — where its data region begins, the
	// loc ParseData expects.
	ParseMark(loc uint64) (*marks.Mark, uint64, error)

	// ParseData reads the (possibly shallow) data for mark, whose data
	// region starts at loc.
	ParseData(mark *marks.Mark, loc uint64) (Value, error)
}
