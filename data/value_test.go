package data

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ttocsneb/mbon/marks"
)

func TestScalarMaybeEq(t *testing.T) {
	a := Int{Width: 4, V: 42}
	b := Int{Width: 4, V: 42}
	c := Int{Width: 4, V: 7}

	require.Equal(t, boolPtr(true), a.MaybeEq(b))
	require.Equal(t, boolPtr(false), a.MaybeEq(c))
	require.Equal(t, boolPtr(false), a.MaybeEq(Float{Width: 4, V: 42}))
}

func TestNullMaybeEq(t *testing.T) {
	require.Equal(t, boolPtr(true), Null{}.MaybeEq(Null{}))
	require.Equal(t, boolPtr(false), Null{}.MaybeEq(Int{Width: 4}))
}

func TestBytesMaybeEq(t *testing.T) {
	a := Bytes{V: []byte("hello")}
	b := Bytes{V: []byte("hello")}
	c := Bytes{V: []byte("world")}

	require.Equal(t, boolPtr(true), a.MaybeEq(b))
	require.Equal(t, boolPtr(false), a.MaybeEq(c))
}

func TestListClassifiesHomogeneousAsArray(t *testing.T) {
	l := List{Items: []Value{Int{Width: 4, V: 1}, Int{Width: 4, V: 2}, Int{Width: 4, V: 3}}}

	m := l.Mark()
	require.Equal(t, marks.KindArray, m.Kind())
	require.Equal(t, uint64(3), m.Size())
}

func TestListClassifiesHeterogeneousAsList(t *testing.T) {
	l := List{Items: []Value{Int{Width: 4, V: 1}, Str{V: "x"}}}

	m := l.Mark()
	require.Equal(t, marks.KindList, m.Kind())
}

func TestEmptyListIsList(t *testing.T) {
	require.Equal(t, marks.KindList, List{}.Mark().Kind())
}

func TestDictClassification(t *testing.T) {
	homogeneous := Dict{Items: []KV{
		{Key: Str{V: "a"}, Val: Int{Width: 4, V: 1}},
		{Key: Str{V: "a"}, Val: Int{Width: 4, V: 2}},
	}}
	require.Equal(t, marks.KindDict, homogeneous.Mark().Kind())

	heterogeneous := Dict{Items: []KV{
		{Key: Str{V: "a"}, Val: Int{Width: 4, V: 1}},
		{Key: Str{V: "ab"}, Val: Int{Width: 8, V: 2}},
	}}
	require.Equal(t, marks.KindMap, heterogeneous.Mark().Kind())
}

func TestListMaybeEqNestedComparison(t *testing.T) {
	a := List{Items: []Value{Int{Width: 4, V: 1}, Str{V: "x"}}}
	b := List{Items: []Value{Int{Width: 4, V: 1}, Str{V: "x"}}}
	c := List{Items: []Value{Int{Width: 4, V: 1}, Str{V: "y"}}}

	require.Equal(t, boolPtr(true), a.MaybeEq(b))
	require.Equal(t, boolPtr(false), a.MaybeEq(c))
}

func TestEnumMaybeEq(t *testing.T) {
	a := Enum{VariantWidth: 4, Variant: 1, Inner: Int{Width: 4, V: 5}}
	b := Enum{VariantWidth: 4, Variant: 1, Inner: Int{Width: 4, V: 5}}
	c := Enum{VariantWidth: 4, Variant: 2, Inner: Int{Width: 4, V: 5}}

	require.Equal(t, boolPtr(true), a.MaybeEq(b))
	require.Equal(t, boolPtr(false), a.MaybeEq(c))
}
