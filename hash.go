package msgpack

import "github.com/cespare/xxhash/v2"

// hash.go provides the collision-resistant hash behind the dynamic Value
// map (dynamic.go), whose keys come straight from untrusted input.
// Object-as-map property lookup does not use it: wire keys are looked up
// in a Go map built from the shape's declared property names, and are
// never inserted into it. Go's built-in map already randomizes its seed per process, but
// that randomization is an implementation detail with no documented
// collision-resistance guarantee; xxhash gives the codec an explicit,
// inspectable hash it controls independent of runtime internals.

// hashString returns a 64-bit hash of s suitable for bucketing
// untrusted keys.
func hashString(s string) uint64 {
	return xxhash.Sum64String(s)
}

// hashBytes returns a 64-bit hash of b.
func hashBytes(b []byte) uint64 {
	return xxhash.Sum64(b)
}
