// Package endian provides byte order utilities for binary encoding and
// decoding.
//
// This package extends Go's standard encoding/binary package by combining
// ByteOrder and AppendByteOrder interfaces into a unified EndianEngine
// interface. mbon's legacy wire dialect is fixed big-endian and its rich
// dialect is fixed little-endian (endianness is never negotiated in-band,
// only chosen once at construction), so every package that encodes or
// decodes multi-byte scalars selects one of the two engines below and
// never switches it mid-stream.
//
// # Basic usage
//
//	import "github.com/ttocsneb/mbon/endian"
//
//	engine := endian.GetBigEndianEngine() // legacy dialect
//	buf = engine.AppendUint32(buf, 0x3000_0000)
//
// # Performance
//
// Using EndianEngine (which includes AppendByteOrder) avoids the
// allocate-then-copy pattern PutUint64 plus append would otherwise need:
//
//	// Using EndianEngine (recommended)
//	buf = engine.AppendUint64(buf, value)
//
//	// Using ByteOrder only
//	tmp := make([]byte, 8)
//	engine.PutUint64(tmp, value)
//	buf = append(buf, tmp...) // extra allocation
//
// # Thread safety
//
// All functions in this package are safe for concurrent use. The returned
// EndianEngine instances are immutable and stateless.
package endian

import "encoding/binary"

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary
// into a single interface for convenient byte order operations.
//
// This interface is satisfied by binary.LittleEndian and binary.BigEndian
// from the standard library.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine used by the rich
// dialect.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine used by the legacy
// dialect.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}
