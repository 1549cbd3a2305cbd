// Package data defines the materialized value tree mbon reads and writes,
// and the Fetcher contract the lazy engine shells (see the engine package)
// use to pull more of a composite into memory on demand.
//
// The conceptual value set collapses List/Array and Dict/Map into single
// Go types: Array and Dict are wire-level encodings chosen for homogeneous
// sequences, not distinct logical shapes (spec.md's Value enum names only
// List and Map). Classification between the two encodings happens in the
// dumper at write time.
package data

import (
	"unicode/utf8"

	"github.com/ttocsneb/mbon/internal/hash"
	"github.com/ttocsneb/mbon/marks"
)

// hashFastRejectThreshold is the payload size above which Bytes/Str/Object
// equality checks a cheap xxHash64 digest before falling back to a
// byte-for-byte comparison. Below it the digest isn't worth computing.
const hashFastRejectThreshold = 64

// Value is any decoded or to-be-encoded mbon value, including the lazy
// composite shells the engine package builds on top of a Fetcher.
type Value interface {
	// Mark returns the mark describing this value's type and size.
	Mark() *marks.Mark

	// MaybeEq reports whether this value equals other. It returns a
	// definite *true/*false for values that can be compared outright,
	// and nil when the answer depends on data this value hasn't fetched
	// yet (lazy engine shells only — see the engine package).
	MaybeEq(other Value) *bool
}

func boolPtr(b bool) *bool { return &b }

// Null is the absence of a value.
type Null struct{}

func (Null) Mark() *marks.Mark { return marks.NewNull() }

func (Null) MaybeEq(other Value) *bool {
	_, ok := other.(Null)
	return boolPtr(ok)
}

// Int is a signed integer of the given byte width (1, 2, 4 or 8).
type Int struct {
	Width uint8
	V     int64
}

func (v Int) Mark() *marks.Mark { return marks.NewInt(v.Width) }

func (v Int) MaybeEq(other Value) *bool {
	o, ok := other.(Int)
	return boolPtr(ok && o.Width == v.Width && o.V == v.V)
}

// Unsigned is an unsigned integer of the given byte width (rich dialect).
type Unsigned struct {
	Width uint8
	V     uint64
}

func (v Unsigned) Mark() *marks.Mark { return marks.NewUnsigned(v.Width) }

func (v Unsigned) MaybeEq(other Value) *bool {
	o, ok := other.(Unsigned)
	return boolPtr(ok && o.Width == v.Width && o.V == v.V)
}

// Float is an IEEE-754 float of width 4 or 8.
type Float struct {
	Width uint8
	V     float64
}

func (v Float) Mark() *marks.Mark { return marks.NewFloat(v.Width) }

func (v Float) MaybeEq(other Value) *bool {
	o, ok := other.(Float)
	return boolPtr(ok && o.Width == v.Width && o.V == v.V)
}

// Char is a code point stored as an unsigned width-byte integer.
type Char struct {
	Width uint8
	V     rune
}

func (v Char) Mark() *marks.Mark { return marks.NewChar(v.Width) }

func (v Char) MaybeEq(other Value) *bool {
	o, ok := other.(Char)
	return boolPtr(ok && o.Width == v.Width && o.V == v.V)
}

// Valid reports whether V is a valid Unicode scalar value representable by
// the mark's width. Conversion never panics; callers that need a rune must
// check this (or compare against utf8.RuneError) before using V.
func (v Char) Valid() bool {
	if v.Width < 4 && int64(v.V) >= int64(1)<<(8*uint(v.Width)) {
		return false
	}
	return v.V >= 0 && utf8.ValidRune(v.V)
}

// Str is a UTF-8 string.
type Str struct{ V string }

func (v Str) Mark() *marks.Mark { return marks.NewStr(uint64(len(v.V))) }

func (v Str) MaybeEq(other Value) *bool {
	o, ok := other.(Str)
	if !ok {
		return boolPtr(false)
	}
	if len(v.V) >= hashFastRejectThreshold && len(o.V) >= hashFastRejectThreshold {
		return boolPtr(hash.Sum64String(v.V) == hash.Sum64String(o.V) && v.V == o.V)
	}
	return boolPtr(v.V == o.V)
}

// Bytes is an opaque byte payload.
type Bytes struct{ V []byte }

func (v Bytes) Mark() *marks.Mark { return marks.NewBytes(uint64(len(v.V))) }

func (v Bytes) MaybeEq(other Value) *bool {
	o, ok := other.(Bytes)
	if !ok {
		return boolPtr(false)
	}
	return boolPtr(bytesMaybeEqual(v.V, o.V))
}

// Object is an opaque embedded blob produced by the host application's
// object.Dumper.
type Object struct{ V []byte }

func (v Object) Mark() *marks.Mark { return marks.NewObject(uint64(len(v.V))) }

func (v Object) MaybeEq(other Value) *bool {
	o, ok := other.(Object)
	if !ok {
		return boolPtr(false)
	}
	return boolPtr(bytesMaybeEqual(v.V, o.V))
}

// bytesMaybeEqual compares a and b directly below the fast-reject
// threshold (hashing short payloads costs more than it saves) and via
// hash.MaybeEqual's digest-then-compare above it.
func bytesMaybeEqual(a, b []byte) bool {
	if len(a) < hashFastRejectThreshold || len(b) < hashFastRejectThreshold {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	}
	return hash.MaybeEqual(a, b)
}

// Enum is a sum type: a variant word (VariantWidth bytes) followed by the
// data for Inner's mark.
type Enum struct {
	VariantWidth uint8
	Variant      uint64
	Inner        Value
}

func (v Enum) Mark() *marks.Mark {
	return marks.NewEnum(v.VariantWidth, v.Inner.Mark())
}

func (v Enum) MaybeEq(other Value) *bool {
	o, ok := other.(Enum)
	if !ok {
		return boolPtr(false)
	}
	if o.Variant != v.Variant || o.VariantWidth != v.VariantWidth {
		return boolPtr(false)
	}
	return v.Inner.MaybeEq(o.Inner)
}

// KV is one key/value pair inside a Dict/Map value.
type KV struct {
	Key Value
	Val Value
}

// List is an ordered sequence of values. The dumper encodes it as a wire
// Array when every adjacent pair of element marks is structurally equal,
// and as a wire List otherwise.
type List struct{ Items []Value }

// Mark reports the mark List would be written with under the current
// homogeneity of Items: Array(n, inner) if all elements share a mark,
// List(byteLen) otherwise. dialect only matters for byte-length accounting
// of a heterogeneous list, so Mark defaults to the legacy dialect's
// accounting; callers writing the rich dialect should prefer the dumper's
// own classification instead of relying on this convenience.
func (v List) Mark() *marks.Mark {
	if len(v.Items) == 0 {
		return marks.NewList(0)
	}

	first := v.Items[0].Mark()
	homogeneous := true
	for _, item := range v.Items[1:] {
		if !first.Equal(item.Mark()) {
			homogeneous = false
			break
		}
	}
	if homogeneous {
		return marks.NewArray(uint64(len(v.Items)), first)
	}

	var total uint64
	for _, item := range v.Items {
		total += item.Mark().TotalLen(marks.Legacy)
	}
	return marks.NewList(total)
}

func (v List) MaybeEq(other Value) *bool {
	o, ok := other.(List)
	if !ok {
		return boolPtr(false)
	}
	if len(v.Items) != len(o.Items) {
		return boolPtr(false)
	}

	result := true
	for i := range v.Items {
		eq := v.Items[i].MaybeEq(o.Items[i])
		if eq == nil {
			return nil
		}
		if !*eq {
			result = false
		}
	}
	return boolPtr(result)
}

// Dict is an ordered sequence of key/value pairs, encoded the same way
// List is: as a wire Dict when all keys share a mark and all values share
// a mark, as a wire Map otherwise.
type Dict struct{ Items []KV }

func (v Dict) Mark() *marks.Mark {
	if len(v.Items) == 0 {
		return marks.NewMap(0)
	}

	keyMark := v.Items[0].Key.Mark()
	valMark := v.Items[0].Val.Mark()
	homogeneous := true
	for _, kv := range v.Items[1:] {
		if !keyMark.Equal(kv.Key.Mark()) || !valMark.Equal(kv.Val.Mark()) {
			homogeneous = false
			break
		}
	}
	if homogeneous {
		return marks.NewDict(uint64(len(v.Items)), keyMark, valMark)
	}

	var total uint64
	for _, kv := range v.Items {
		total += kv.Key.Mark().TotalLen(marks.Legacy) + kv.Val.Mark().TotalLen(marks.Legacy)
	}
	return marks.NewMap(total)
}

func (v Dict) MaybeEq(other Value) *bool {
	o, ok := other.(Dict)
	if !ok {
		return boolPtr(false)
	}
	if len(v.Items) != len(o.Items) {
		return boolPtr(false)
	}

	result := true
	for i := range v.Items {
		keq := v.Items[i].Key.MaybeEq(o.Items[i].Key)
		if keq == nil {
			return nil
		}
		veq := v.Items[i].Val.MaybeEq(o.Items[i].Val)
		if veq == nil {
			return nil
		}
		if !*keq || !*veq {
			result = false
		}
	}
	return boolPtr(result)
}
