package main

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ttocsneb/mbon/data"
)

func TestFormatValueScalars(t *testing.T) {
	require.Equal(t, "null", formatValue(data.Null{}))
	require.Equal(t, "42", formatValue(data.Int{Width: 4, V: 42}))
	require.Equal(t, `"hi"`, formatValue(data.Str{V: "hi"}))
	require.Equal(t, "bytes[3]", formatValue(data.Bytes{V: []byte{1, 2, 3}}))
}

func TestFormatValueNestedList(t *testing.T) {
	v := data.List{Items: []data.Value{
		data.Int{Width: 4, V: 1},
		data.Str{V: "a"},
	}}
	require.Equal(t, `[1, "a"]`, formatValue(v))
}

func TestFormatValueDict(t *testing.T) {
	v := data.Dict{Items: []data.KV{
		{Key: data.Str{V: "k"}, Val: data.Int{Width: 4, V: 7}},
	}}
	require.Equal(t, `{"k": 7}`, formatValue(v))
}
