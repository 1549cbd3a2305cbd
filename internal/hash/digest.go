// Package hash provides the xxHash64 fast-reject helpers used by the data
// package's Str, Bytes and Object equality (MaybeEq) and by the file
// buffer's test suite to cross-check a whole backing file cheaply.
package hash

import "github.com/cespare/xxhash/v2"

// Sum64 returns the xxHash64 digest of data.
func Sum64(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// Sum64String returns the xxHash64 digest of s without an allocation.
func Sum64String(s string) uint64 {
	return xxhash.Sum64String(s)
}

// MaybeEqual performs a cheap fast-reject comparison of two byte slices
// using their xxHash64 digests before falling back to a byte-for-byte
// comparison.
//
// A mismatched digest proves inequality; a matched digest is not proof of
// equality (collisions are possible, however unlikely) so the full
// comparison always runs regardless of the digest outcome. Callers that
// only need the fast-reject property can short circuit on a false return
// without paying for bytes.Equal, but for correctness-sensitive callers
// (data.Bytes and data.Object MaybeEq) the returned bool is the authoritative answer.
func MaybeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}

	if Sum64(a) != Sum64(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
