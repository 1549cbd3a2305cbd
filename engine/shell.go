package engine

import (
	"math"

	"github.com/ttocsneb/mbon/data"
	"github.com/ttocsneb/mbon/errs"
	"github.com/ttocsneb/mbon/marks"
)

// ListShell is the lazy composite shell for both wire encodings our data
// model collapses into data.List: Array (homogeneous, O(1) child
// addressing) and List (heterogeneous, sequential walk). Fetch pulls
// children through any data.Fetcher, not just the Engine that produced the
// shell, so the concurrent wrapper's Client can drive it too.
type ListShell struct {
	m     *marks.Mark
	start uint64

	homogeneous bool
	childMark   *marks.Mark
	childLen    uint64

	items   []data.Value
	fetched []bool

	walkPos     uint64
	walkedCount int
	walkedAll   bool
}

func newListShell(m *marks.Mark, start uint64) *ListShell {
	s := &ListShell{m: m, start: start}
	if m.Kind() == marks.KindArray {
		s.homogeneous = true
		s.childMark = m.Inner()
		s.childLen = s.childMark.DataLen()
		n := int(m.Size())
		s.items = make([]data.Value, n)
		s.fetched = make([]bool, n)
	} else {
		s.walkPos = start
	}
	return s
}

// Mark returns the shell's own mark.
func (s *ListShell) Mark() *marks.Mark { return s.m }

// Len returns the element count known so far: the full count for a
// homogeneous Array, or however many a heterogeneous List has been walked
// to reach. Use Count to force a full walk.
func (s *ListShell) Len() int {
	return len(s.items)
}

// Count returns the total element count, walking a heterogeneous List's
// window to completion first if needed.
func (s *ListShell) Count(client data.Fetcher) (int, error) {
	if s.homogeneous {
		return len(s.items), nil
	}
	if err := s.walk(client, math.MaxInt); err != nil {
		return 0, err
	}
	return len(s.items), nil
}

// walk advances the sequential walk (List kind only) until element upTo
// is fetched or the window is exhausted, setting walkedAll once the end of
// the window is reached.
func (s *ListShell) walk(client data.Fetcher, upTo int) error {
	for !s.walkedAll && s.walkedCount <= upTo {
		if s.walkPos >= s.start+s.m.DataLen() {
			s.walkedAll = true
			break
		}
		childMark, dataLoc, err := client.ParseMark(s.walkPos)
		if err != nil {
			return err
		}
		v, err := client.ParseData(childMark, dataLoc)
		if err != nil {
			return err
		}
		s.items = append(s.items, v)
		s.fetched = append(s.fetched, true)
		s.walkPos = dataLoc + childMark.DataLen()
		s.walkedCount++
	}
	if s.walkPos >= s.start+s.m.DataLen() {
		s.walkedAll = true
	}
	return nil
}

// Fetch returns child index, pulling it (and, for a heterogeneous List,
// every preceding element) through client if not already cached.
func (s *ListShell) Fetch(client data.Fetcher, index int) (data.Value, error) {
	if s.homogeneous {
		if index < 0 || index >= len(s.items) {
			return nil, errs.Internal("engine: list index out of range")
		}
		if s.fetched[index] {
			return s.items[index], nil
		}
		pos := s.start + uint64(index)*s.childLen
		v, err := client.ParseData(s.childMark, pos)
		if err != nil {
			return nil, err
		}
		s.items[index] = v
		s.fetched[index] = true
		return v, nil
	}

	if err := s.walk(client, index); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(s.items) {
		return nil, errs.Internal("engine: list index out of range")
	}
	return s.items[index], nil
}

// Get returns a previously fetched child without triggering I/O.
func (s *ListShell) Get(index int) (data.Value, bool) {
	if index < 0 || index >= len(s.fetched) {
		return nil, false
	}
	if !s.fetched[index] {
		return nil, false
	}
	return s.items[index], true
}

// MaybeEq is the three-valued equality lazy shells compare with: definite
// false on a mark mismatch or a known count mismatch (a heterogeneous
// List's count is known once it has been walked to the end), definite true only once every element
// pair that's been fetched on both sides compares equal and every element
// is fetched, else nil ("depends on an unfetched child").
func (s *ListShell) MaybeEq(other data.Value) *bool {
	falseV := false
	switch o := other.(type) {
	case *ListShell:
		if !s.m.Equal(o.m) {
			return &falseV
		}
		n := len(s.fetched)
		if n != len(o.fetched) {
			sDone := s.homogeneous || s.walkedAll
			oDone := o.homogeneous || o.walkedAll
			if (sDone && oDone) || (sDone && n < len(o.fetched)) || (oDone && len(o.fetched) < n) {
				return &falseV
			}
			return nil
		}
		allFetched := true
		for i := 0; i < n; i++ {
			if !s.fetched[i] || !o.fetched[i] {
				allFetched = false
				continue
			}
			eq := s.items[i].MaybeEq(o.items[i])
			if eq == nil {
				allFetched = false
				continue
			}
			if !*eq {
				return &falseV
			}
		}
		if !allFetched {
			return nil
		}
		trueV := true
		return &trueV
	case data.List:
		if len(s.fetched) > len(o.Items) || ((s.homogeneous || s.walkedAll) && len(s.fetched) != len(o.Items)) {
			return &falseV
		}
		allFetched := len(s.fetched) == len(o.Items)
		for i, item := range o.Items[:len(s.fetched)] {
			if !s.fetched[i] {
				allFetched = false
				continue
			}
			eq := s.items[i].MaybeEq(item)
			if eq == nil {
				allFetched = false
				continue
			}
			if !*eq {
				return &falseV
			}
		}
		if !allFetched {
			return nil
		}
		trueV := true
		return &trueV
	default:
		return &falseV
	}
}

// resolveMaybeEq compares a and b, force-fetching further fields of
// whichever side is an unresolved shell until MaybeEq returns a definite
// answer. Composite keys (a shell compared against a shell, or a shell
// compared against an already-materialized data.List/data.Dict) start out
// with nothing fetched, so the first MaybeEq call routinely comes back nil
// rather than false; a lookup must keep pulling fields in rather than
// treating "undetermined" as "not a match".
func resolveMaybeEq(client data.Fetcher, a, b data.Value) (bool, error) {
	for {
		if eq := a.MaybeEq(b); eq != nil {
			return *eq, nil
		}

		progressed, err := advanceShell(client, a)
		if err != nil {
			return false, err
		}
		if !progressed {
			progressed, err = advanceShell(client, b)
			if err != nil {
				return false, err
			}
		}
		if !progressed {
			return false, errs.Internal("engine: MaybeEq undetermined with no shell field left to fetch")
		}
	}
}

// advanceShell fetches one more not-yet-fetched field of v if v is a
// ListShell or DictShell, reporting whether it made progress. It descends
// into already-fetched children first-unresolved-child-wins, so a shell
// nested inside an already-fetched slot still gets pulled.
func advanceShell(client data.Fetcher, v data.Value) (bool, error) {
	switch s := v.(type) {
	case *ListShell:
		for i := range s.fetched {
			if !s.fetched[i] {
				if _, err := s.Fetch(client, i); err != nil {
					return false, err
				}
				return true, nil
			}
		}
		if !s.homogeneous && !s.walkedAll {
			before := len(s.fetched)
			if err := s.walk(client, before); err != nil {
				return false, err
			}
			return len(s.fetched) > before, nil
		}
		for _, item := range s.items {
			progressed, err := advanceShell(client, item)
			if err != nil {
				return false, err
			}
			if progressed {
				return true, nil
			}
		}
		return false, nil
	case *DictShell:
		for i := range s.fetched {
			if !s.fetched[i] {
				if _, _, err := s.FetchPair(client, i); err != nil {
					return false, err
				}
				return true, nil
			}
		}
		if !s.homogeneous && !s.walkedAll {
			before := len(s.fetched)
			if err := s.walk(client, before); err != nil {
				return false, err
			}
			return len(s.fetched) > before, nil
		}
		for i := range s.keys {
			progressed, err := advanceShell(client, s.keys[i])
			if err != nil {
				return false, err
			}
			if progressed {
				return true, nil
			}
			progressed, err = advanceShell(client, s.vals[i])
			if err != nil {
				return false, err
			}
			if progressed {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, nil
	}
}

// DictShell is the lazy composite shell for wire Dict (homogeneous,
// O(1)-addressable pairs) and Map (heterogeneous, sequential walk),
// collapsed together the same way data.Dict collapses them once fully
// materialized.
type DictShell struct {
	m     *marks.Mark
	start uint64

	homogeneous  bool
	keyMark      *marks.Mark
	valMark      *marks.Mark
	pairStride   uint64
	keys         []data.Value
	vals         []data.Value
	fetched      []bool
	walkPos      uint64
	walkedCount  int
	walkedAll    bool
}

func newDictShell(m *marks.Mark, start uint64) *DictShell {
	s := &DictShell{m: m, start: start}
	if m.Kind() == marks.KindDict {
		s.homogeneous = true
		s.keyMark = m.Key()
		s.valMark = m.Val()
		s.pairStride = s.keyMark.DataLen() + s.valMark.DataLen()
		n := int(m.Size())
		s.keys = make([]data.Value, n)
		s.vals = make([]data.Value, n)
		s.fetched = make([]bool, n)
	} else {
		s.walkPos = start
	}
	return s
}

// Mark returns the shell's own mark.
func (s *DictShell) Mark() *marks.Mark { return s.m }

// Len returns the pair count known so far; see ListShell.Len's note. Use
// Count to force a full walk of a heterogeneous Map.
func (s *DictShell) Len() int {
	return len(s.keys)
}

// Count returns the total pair count, walking a heterogeneous Map's
// window to completion first if needed.
func (s *DictShell) Count(client data.Fetcher) (int, error) {
	if s.homogeneous {
		return len(s.keys), nil
	}
	if err := s.walk(client, math.MaxInt); err != nil {
		return 0, err
	}
	return len(s.keys), nil
}

func (s *DictShell) walk(client data.Fetcher, upTo int) error {
	for !s.walkedAll && s.walkedCount <= upTo {
		if s.walkPos >= s.start+s.m.DataLen() {
			s.walkedAll = true
			break
		}
		km, kLoc, err := client.ParseMark(s.walkPos)
		if err != nil {
			return err
		}
		k, err := client.ParseData(km, kLoc)
		if err != nil {
			return err
		}
		vPos := kLoc + km.DataLen()
		vm, vLoc, err := client.ParseMark(vPos)
		if err != nil {
			return err
		}
		v, err := client.ParseData(vm, vLoc)
		if err != nil {
			return err
		}
		s.keys = append(s.keys, k)
		s.vals = append(s.vals, v)
		s.fetched = append(s.fetched, true)
		s.walkPos = vLoc + vm.DataLen()
		s.walkedCount++
	}
	if s.walkPos >= s.start+s.m.DataLen() {
		s.walkedAll = true
	}
	return nil
}

// FetchPair returns (key, value) for pair index, pulling it (and, for a
// heterogeneous Map, every preceding pair) through client if needed.
func (s *DictShell) FetchPair(client data.Fetcher, index int) (data.Value, data.Value, error) {
	if s.homogeneous {
		if index < 0 || index >= len(s.keys) {
			return nil, nil, errs.Internal("engine: dict index out of range")
		}
		if s.fetched[index] {
			return s.keys[index], s.vals[index], nil
		}
		pos := s.start + uint64(index)*s.pairStride
		k, err := client.ParseData(s.keyMark, pos)
		if err != nil {
			return nil, nil, err
		}
		v, err := client.ParseData(s.valMark, pos+s.keyMark.DataLen())
		if err != nil {
			return nil, nil, err
		}
		s.keys[index] = k
		s.vals[index] = v
		s.fetched[index] = true
		return k, v, nil
	}

	if err := s.walk(client, index); err != nil {
		return nil, nil, err
	}
	if index < 0 || index >= len(s.keys) {
		return nil, nil, errs.Internal("engine: dict index out of range")
	}
	return s.keys[index], s.vals[index], nil
}

// Get returns a previously fetched pair without triggering I/O.
func (s *DictShell) Get(index int) (key, val data.Value, ok bool) {
	if index < 0 || index >= len(s.fetched) || !s.fetched[index] {
		return nil, nil, false
	}
	return s.keys[index], s.vals[index], true
}

// MaybeEq is DictShell's three-valued equality, analogous to ListShell's.
func (s *DictShell) MaybeEq(other data.Value) *bool {
	falseV := false
	o, ok := other.(*DictShell)
	if !ok {
		if od, ok2 := other.(data.Dict); ok2 {
			if len(s.fetched) > len(od.Items) || ((s.homogeneous || s.walkedAll) && len(s.fetched) != len(od.Items)) {
				return &falseV
			}
			allFetched := len(s.fetched) == len(od.Items)
			for i, kv := range od.Items[:len(s.fetched)] {
				if !s.fetched[i] {
					allFetched = false
					continue
				}
				keq := s.keys[i].MaybeEq(kv.Key)
				veq := s.vals[i].MaybeEq(kv.Val)
				if keq == nil || veq == nil {
					allFetched = false
					continue
				}
				if !*keq || !*veq {
					return &falseV
				}
			}
			if !allFetched {
				return nil
			}
			trueV := true
			return &trueV
		}
		return &falseV
	}

	if !s.m.Equal(o.m) {
		return &falseV
	}
	n := len(s.fetched)
	if n != len(o.fetched) {
		sDone := s.homogeneous || s.walkedAll
		oDone := o.homogeneous || o.walkedAll
		if (sDone && oDone) || (sDone && n < len(o.fetched)) || (oDone && len(o.fetched) < n) {
			return &falseV
		}
		return nil
	}
	allFetched := true
	for i := 0; i < n; i++ {
		if !s.fetched[i] || !o.fetched[i] {
			allFetched = false
			continue
		}
		keq := s.keys[i].MaybeEq(o.keys[i])
		veq := s.vals[i].MaybeEq(o.vals[i])
		if keq == nil || veq == nil {
			allFetched = false
			continue
		}
		if !*keq || !*veq {
			return &falseV
		}
	}
	if !allFetched {
		return nil
	}
	trueV := true
	return &trueV
}
