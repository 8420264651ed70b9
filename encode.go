package msgpack

import (
	"encoding/binary"
	"math"
	"time"
)

// encode.go is the write half of the wire primitives: one-to-one mapping
// from in-memory
// primitives to the shortest valid MessagePack encoding, over a contiguous
// []byte. Each function appends to buf and returns the grown slice, the
// same "AppendXxxx" shape used by other from-scratch binary codecs in the
// pack (other_examples/a1b5ce57_synadia-labs-cbor-go's documented
// Append-family functions); append-and-return composes cleanly with the
// segmented writer in writer.go, which owns the actual memory acquisition.

// appendNil appends the one-byte nil token.
func appendNil(buf []byte) []byte {
	return append(buf, formatNil)
}

// appendBool appends the one-byte true/false token.
func appendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, formatTrue)
	}
	return append(buf, formatFalse)
}

// appendInt appends v using the shortest valid integer encoding.
// Non-negative values route through the unsigned family (a positive value
// has the same logical identity either way, and uint8 beats int16 for
// 128..255); negatives use negative fixint or the int family.
func appendInt(buf []byte, v int64) []byte {
	if v >= 0 {
		return appendUint(buf, uint64(v))
	}
	switch {
	case v >= -32:
		return append(buf, byte(v))
	case v >= math.MinInt8:
		return append(buf, formatInt8, byte(int8(v)))
	case v >= math.MinInt16:
		b := [2]byte{}
		binary.BigEndian.PutUint16(b[:], uint16(int16(v)))
		return append(append(buf, formatInt16), b[:]...)
	case v >= math.MinInt32:
		b := [4]byte{}
		binary.BigEndian.PutUint32(b[:], uint32(int32(v)))
		return append(append(buf, formatInt32), b[:]...)
	default:
		b := [8]byte{}
		binary.BigEndian.PutUint64(b[:], uint64(v))
		return append(append(buf, formatInt64), b[:]...)
	}
}

// appendUint appends v using the shortest valid unsigned-integer encoding:
// positive fixint, uint8, uint16, uint32, or uint64.
func appendUint(buf []byte, v uint64) []byte {
	switch {
	case v <= formatPositiveFixIntMax:
		return append(buf, byte(v))
	case v <= math.MaxUint8:
		return append(buf, formatUint8, byte(v))
	case v <= math.MaxUint16:
		b := [2]byte{}
		binary.BigEndian.PutUint16(b[:], uint16(v))
		return append(append(buf, formatUint16), b[:]...)
	case v <= math.MaxUint32:
		b := [4]byte{}
		binary.BigEndian.PutUint32(b[:], uint32(v))
		return append(append(buf, formatUint32), b[:]...)
	default:
		b := [8]byte{}
		binary.BigEndian.PutUint64(b[:], v)
		return append(append(buf, formatUint64), b[:]...)
	}
}

// appendFloat32 appends v as a 32-bit float token.
func appendFloat32(buf []byte, v float32) []byte {
	b := [4]byte{}
	binary.BigEndian.PutUint32(b[:], math.Float32bits(v))
	return append(append(buf, formatFloat32), b[:]...)
}

// appendFloat64 appends v as a 64-bit float token.
func appendFloat64(buf []byte, v float64) []byte {
	b := [8]byte{}
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	return append(append(buf, formatFloat64), b[:]...)
}

// appendFloat appends v as a float32 token when prefer32 is set and v is
// losslessly representable as float32; otherwise as a float64 token. Per
// This is the only write path that varies by caller preference
// rather than by value alone.
func appendFloat(buf []byte, v float64, prefer32 bool) []byte {
	if prefer32 {
		if f32 := float32(v); float64(f32) == v {
			return appendFloat32(buf, f32)
		}
	}
	return appendFloat64(buf, v)
}

// appendStringHeader appends the shortest valid string length header for a
// UTF-8 payload of the given byte length: fixstr, str8, str16, or str32.
func appendStringHeader(buf []byte, length int) []byte {
	switch {
	case length < 32:
		return append(buf, byte(formatFixStr|length))
	case length <= math.MaxUint8:
		return append(buf, formatStr8, byte(length))
	case length <= math.MaxUint16:
		b := [2]byte{}
		binary.BigEndian.PutUint16(b[:], uint16(length))
		return append(append(buf, formatStr16), b[:]...)
	default:
		b := [4]byte{}
		binary.BigEndian.PutUint32(b[:], uint32(length))
		return append(append(buf, formatStr32), b[:]...)
	}
}

// appendString UTF-8 encodes s exactly once and appends the header and
// payload.
func appendString(buf []byte, s string) []byte {
	buf = appendStringHeader(buf, len(s))
	return append(buf, s...)
}

// appendBinHeader appends the shortest valid binary length header: bin8,
// bin16, or bin32.
func appendBinHeader(buf []byte, length int) []byte {
	switch {
	case length <= math.MaxUint8:
		return append(buf, formatBin8, byte(length))
	case length <= math.MaxUint16:
		b := [2]byte{}
		binary.BigEndian.PutUint16(b[:], uint16(length))
		return append(append(buf, formatBin16), b[:]...)
	default:
		b := [4]byte{}
		binary.BigEndian.PutUint32(b[:], uint32(length))
		return append(append(buf, formatBin32), b[:]...)
	}
}

// appendBin appends a binary header and payload for b.
func appendBin(buf []byte, b []byte) []byte {
	buf = appendBinHeader(buf, len(b))
	return append(buf, b...)
}

// appendArrayHeader appends the shortest valid array-size header: fixarray,
// array16, or array32.
func appendArrayHeader(buf []byte, n int) []byte {
	switch {
	case n < 16:
		return append(buf, byte(formatFixArray|n))
	case n <= math.MaxUint16:
		b := [2]byte{}
		binary.BigEndian.PutUint16(b[:], uint16(n))
		return append(append(buf, formatArray16), b[:]...)
	default:
		b := [4]byte{}
		binary.BigEndian.PutUint32(b[:], uint32(n))
		return append(append(buf, formatArray32), b[:]...)
	}
}

// appendMapHeader appends the shortest valid map-size header: fixmap,
// map16, or map32.
func appendMapHeader(buf []byte, n int) []byte {
	switch {
	case n < 16:
		return append(buf, byte(formatFixMap|n))
	case n <= math.MaxUint16:
		b := [2]byte{}
		binary.BigEndian.PutUint16(b[:], uint16(n))
		return append(append(buf, formatMap16), b[:]...)
	default:
		b := [4]byte{}
		binary.BigEndian.PutUint32(b[:], uint32(n))
		return append(append(buf, formatMap32), b[:]...)
	}
}

// appendExtHeader appends the shortest valid extension header (fixext1/2/
// 4/8/16, or ext8/16/32) followed by the signed type code. extType must be
// in -128..127; the caller validates custom (non-negative) codes before
// reaching here (see ExtensionRegistry.Register).
func appendExtHeader(buf []byte, extType int8, length int) []byte {
	switch length {
	case 1:
		return append(buf, formatFixExt1, byte(extType))
	case 2:
		return append(buf, formatFixExt2, byte(extType))
	case 4:
		return append(buf, formatFixExt4, byte(extType))
	case 8:
		return append(buf, formatFixExt8, byte(extType))
	case 16:
		return append(buf, formatFixExt16, byte(extType))
	}
	switch {
	case length <= math.MaxUint8:
		return append(buf, formatExt8, byte(length), byte(extType))
	case length <= math.MaxUint16:
		b := [2]byte{}
		binary.BigEndian.PutUint16(b[:], uint16(length))
		return append(append(append(buf, formatExt16), b[:]...), byte(extType))
	default:
		b := [4]byte{}
		binary.BigEndian.PutUint32(b[:], uint32(length))
		return append(append(append(buf, formatExt32), b[:]...), byte(extType))
	}
}

// appendTimestamp appends tm as extension type -1, choosing the smallest
// lossless form: 4 bytes when it fits in 32-bit seconds with no
// fractional part, 8 bytes when seconds fit in 34 bits, else 12 bytes.
func appendTimestamp(buf []byte, tm time.Time) []byte {
	secs := tm.Unix()
	nanos := uint64(tm.Nanosecond())

	if nanos == 0 && secs >= 0 && secs <= math.MaxUint32 {
		buf = appendExtHeader(buf, extTimestamp, 4)
		b := [4]byte{}
		binary.BigEndian.PutUint32(b[:], uint32(secs))
		return append(buf, b[:]...)
	}

	if secs>>34 == 0 {
		data := nanos<<34 | uint64(secs)
		buf = appendExtHeader(buf, extTimestamp, 8)
		b := [8]byte{}
		binary.BigEndian.PutUint64(b[:], data)
		return append(buf, b[:]...)
	}

	buf = appendExtHeader(buf, extTimestamp, 12)
	b := [12]byte{}
	binary.BigEndian.PutUint32(b[0:4], uint32(nanos))
	binary.BigEndian.PutUint64(b[4:12], uint64(secs))
	return append(buf, b[:]...)
}
