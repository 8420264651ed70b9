package msgpack

import (
	"encoding/binary"
	"math"
	"time"
	"unicode/utf8"
)

// decode.go is the read half of the wire primitives, over a contiguous
// []byte: accept any valid encoding of the requested type, normalize on
// the way out (uint8(3) and int16(3) decode identically), and report
// exactly how far into the buffer a short read got so the segmented reader
// (reader.go) can retry without redoing work.
//
// Every decode* function returns (value, consumed, err). On success,
// consumed is the number of bytes the token occupied. On
// CodeInsufficientBuffer, consumed is meaningless and the *Error carries
// Examined instead; callers must not advance past a failed decode.

func need(buf []byte, n int) error {
	if len(buf) < n {
		return insufficientBuffer(len(buf))
	}
	return nil
}

// decodeNil consumes a nil token.
func decodeNil(buf []byte) (consumed int, err error) {
	if err = need(buf, 1); err != nil {
		return 0, err
	}
	if buf[0] != formatNil {
		return 0, newErrorf(CodeUnexpectedToken, "expected nil, got byte 0x%02x", buf[0])
	}
	return 1, nil
}

// decodeBool consumes a true/false token.
func decodeBool(buf []byte) (v bool, consumed int, err error) {
	if err = need(buf, 1); err != nil {
		return false, 0, err
	}
	switch buf[0] {
	case formatTrue:
		return true, 1, nil
	case formatFalse:
		return false, 1, nil
	default:
		return false, 0, newErrorf(CodeUnexpectedToken, "expected bool, got byte 0x%02x", buf[0])
	}
}

// decodeInt64 reads any valid signed or unsigned integer encoding
// (including negative fixint) and returns it as int64, the widest signed
// destination, so it never overflows.
func decodeInt64(buf []byte) (v int64, consumed int, err error) {
	if err = need(buf, 1); err != nil {
		return 0, 0, err
	}
	b := buf[0]
	switch {
	case isPositiveFixInt(b):
		return int64(b), 1, nil
	case isNegativeFixInt(b):
		return int64(int8(b)), 1, nil
	}
	switch b {
	case formatInt8:
		if err = need(buf, 2); err != nil {
			return 0, 0, err
		}
		return int64(int8(buf[1])), 2, nil
	case formatInt16:
		if err = need(buf, 3); err != nil {
			return 0, 0, err
		}
		return int64(int16(binary.BigEndian.Uint16(buf[1:3]))), 3, nil
	case formatInt32:
		if err = need(buf, 5); err != nil {
			return 0, 0, err
		}
		return int64(int32(binary.BigEndian.Uint32(buf[1:5]))), 5, nil
	case formatInt64:
		if err = need(buf, 9); err != nil {
			return 0, 0, err
		}
		return int64(binary.BigEndian.Uint64(buf[1:9])), 9, nil
	case formatUint8:
		if err = need(buf, 2); err != nil {
			return 0, 0, err
		}
		return int64(buf[1]), 2, nil
	case formatUint16:
		if err = need(buf, 3); err != nil {
			return 0, 0, err
		}
		return int64(binary.BigEndian.Uint16(buf[1:3])), 3, nil
	case formatUint32:
		if err = need(buf, 5); err != nil {
			return 0, 0, err
		}
		return int64(binary.BigEndian.Uint32(buf[1:5])), 5, nil
	case formatUint64:
		if err = need(buf, 9); err != nil {
			return 0, 0, err
		}
		u := binary.BigEndian.Uint64(buf[1:9])
		if u > math.MaxInt64 {
			return 0, 9, newErrorf(CodeOverflow, "uint64 value %d does not fit in int64", u)
		}
		return int64(u), 9, nil
	default:
		return 0, 0, newErrorf(CodeUnexpectedToken, "expected integer, got byte 0x%02x", b)
	}
}

// decodeInt reads an integer and range-checks it against a destination
// width in bits (8, 16, 32, or 64), raising CodeOverflow if it does not
// fit. Negative-fixint values decode correctly for any width that can
// represent them.
func decodeInt(buf []byte, bits int) (v int64, consumed int, err error) {
	v, consumed, err = decodeInt64(buf)
	if err != nil {
		return 0, consumed, err
	}
	var lo, hi int64
	switch bits {
	case 8:
		lo, hi = math.MinInt8, math.MaxInt8
	case 16:
		lo, hi = math.MinInt16, math.MaxInt16
	case 32:
		lo, hi = math.MinInt32, math.MaxInt32
	default:
		return v, consumed, nil
	}
	if v < lo || v > hi {
		return 0, consumed, newErrorf(CodeOverflow, "value %d does not fit in int%d", v, bits)
	}
	return v, consumed, nil
}

// decodeUint64 reads any valid signed or unsigned integer encoding and
// returns it as uint64, raising CodeOverflow if the encoded value is
// negative. formatUint64 is handled directly rather than routed through
// decodeInt64, since a uint64 value above math.MaxInt64 is valid and must
// not be rejected just because int64 cannot represent it.
func decodeUint64(buf []byte) (v uint64, consumed int, err error) {
	if err = need(buf, 1); err != nil {
		return 0, 0, err
	}
	if buf[0] == formatUint64 {
		if err = need(buf, 9); err != nil {
			return 0, 0, err
		}
		return binary.BigEndian.Uint64(buf[1:9]), 9, nil
	}
	signed, consumed, err := decodeInt64(buf)
	if err != nil {
		return 0, consumed, err
	}
	if signed < 0 {
		return 0, consumed, newErrorf(CodeOverflow, "negative value %d does not fit in an unsigned destination", signed)
	}
	return uint64(signed), consumed, nil
}

// decodeUint reads an integer and range-checks it against an unsigned
// destination width in bits.
func decodeUint(buf []byte, bits int) (v uint64, consumed int, err error) {
	v, consumed, err = decodeUint64(buf)
	if err != nil {
		return 0, consumed, err
	}
	var hi uint64
	switch bits {
	case 8:
		hi = math.MaxUint8
	case 16:
		hi = math.MaxUint16
	case 32:
		hi = math.MaxUint32
	default:
		return v, consumed, nil
	}
	if v > hi {
		return 0, consumed, newErrorf(CodeOverflow, "value %d does not fit in uint%d", v, bits)
	}
	return v, consumed, nil
}

// decodeFloat64 accepts either a float32 or float64 token and returns the
// value widened to float64.
func decodeFloat64(buf []byte) (v float64, consumed int, err error) {
	if err = need(buf, 1); err != nil {
		return 0, 0, err
	}
	switch buf[0] {
	case formatFloat32:
		if err = need(buf, 5); err != nil {
			return 0, 0, err
		}
		return float64(math.Float32frombits(binary.BigEndian.Uint32(buf[1:5]))), 5, nil
	case formatFloat64:
		if err = need(buf, 9); err != nil {
			return 0, 0, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(buf[1:9])), 9, nil
	default:
		return 0, 0, newErrorf(CodeUnexpectedToken, "expected float, got byte 0x%02x", buf[0])
	}
}

// decodeFloat32 accepts either encoding and narrows to float32. A float64
// token whose value overflows float32 range still narrows (matching the
// community msgpack libraries' behavior of truncating rather than erroring
// here); callers that need exactness should read via decodeFloat64.
func decodeFloat32(buf []byte) (v float32, consumed int, err error) {
	f, consumed, err := decodeFloat64(buf)
	if err != nil {
		return 0, consumed, err
	}
	return float32(f), consumed, nil
}

// decodeStringHeader reads a string length header (fixstr/str8/16/32) and
// returns the byte length of the payload and the header's own size.
func decodeStringHeader(buf []byte) (length, headerLen int, err error) {
	if err = need(buf, 1); err != nil {
		return 0, 0, err
	}
	b := buf[0]
	switch {
	case isFixStr(b):
		return int(b & 0x1f), 1, nil
	}
	switch b {
	case formatStr8:
		if err = need(buf, 2); err != nil {
			return 0, 0, err
		}
		return int(buf[1]), 2, nil
	case formatStr16:
		if err = need(buf, 3); err != nil {
			return 0, 0, err
		}
		return int(binary.BigEndian.Uint16(buf[1:3])), 3, nil
	case formatStr32:
		if err = need(buf, 5); err != nil {
			return 0, 0, err
		}
		return int(binary.BigEndian.Uint32(buf[1:5])), 5, nil
	default:
		return 0, 0, newErrorf(CodeUnexpectedToken, "expected string, got byte 0x%02x", b)
	}
}

// decodeString reads a complete string token and validates UTF-8.
func decodeString(buf []byte) (s string, consumed int, err error) {
	length, headerLen, err := decodeStringHeader(buf)
	if err != nil {
		return "", 0, err
	}
	total := headerLen + length
	if err = need(buf, total); err != nil {
		return "", 0, err
	}
	payload := buf[headerLen:total]
	if !utf8.Valid(payload) {
		return "", total, newError(CodeInvalidUTF8)
	}
	return string(payload), total, nil
}

// decodeBinHeader reads a binary length header (bin8/16/32).
func decodeBinHeader(buf []byte) (length, headerLen int, err error) {
	if err = need(buf, 1); err != nil {
		return 0, 0, err
	}
	switch buf[0] {
	case formatBin8:
		if err = need(buf, 2); err != nil {
			return 0, 0, err
		}
		return int(buf[1]), 2, nil
	case formatBin16:
		if err = need(buf, 3); err != nil {
			return 0, 0, err
		}
		return int(binary.BigEndian.Uint16(buf[1:3])), 3, nil
	case formatBin32:
		if err = need(buf, 5); err != nil {
			return 0, 0, err
		}
		return int(binary.BigEndian.Uint32(buf[1:5])), 5, nil
	default:
		return 0, 0, newErrorf(CodeUnexpectedToken, "expected binary, got byte 0x%02x", buf[0])
	}
}

// decodeBin reads a complete binary token, returning a copy of the payload.
func decodeBin(buf []byte) (data []byte, consumed int, err error) {
	length, headerLen, err := decodeBinHeader(buf)
	if err != nil {
		return nil, 0, err
	}
	total := headerLen + length
	if err = need(buf, total); err != nil {
		return nil, 0, err
	}
	data = make([]byte, length)
	copy(data, buf[headerLen:total])
	return data, total, nil
}

// decodeArrayHeader reads a fixarray/array16/array32 header and returns the
// element count.
func decodeArrayHeader(buf []byte) (n, consumed int, err error) {
	if err = need(buf, 1); err != nil {
		return 0, 0, err
	}
	b := buf[0]
	if isFixArray(b) {
		return int(b & 0x0f), 1, nil
	}
	switch b {
	case formatArray16:
		if err = need(buf, 3); err != nil {
			return 0, 0, err
		}
		return int(binary.BigEndian.Uint16(buf[1:3])), 3, nil
	case formatArray32:
		if err = need(buf, 5); err != nil {
			return 0, 0, err
		}
		return int(binary.BigEndian.Uint32(buf[1:5])), 5, nil
	default:
		return 0, 0, newErrorf(CodeUnexpectedToken, "expected array, got byte 0x%02x", b)
	}
}

// decodeMapHeader reads a fixmap/map16/map32 header and returns the pair
// count.
func decodeMapHeader(buf []byte) (n, consumed int, err error) {
	if err = need(buf, 1); err != nil {
		return 0, 0, err
	}
	b := buf[0]
	if isFixMap(b) {
		return int(b & 0x0f), 1, nil
	}
	switch b {
	case formatMap16:
		if err = need(buf, 3); err != nil {
			return 0, 0, err
		}
		return int(binary.BigEndian.Uint16(buf[1:3])), 3, nil
	case formatMap32:
		if err = need(buf, 5); err != nil {
			return 0, 0, err
		}
		return int(binary.BigEndian.Uint32(buf[1:5])), 5, nil
	default:
		return 0, 0, newErrorf(CodeUnexpectedToken, "expected map, got byte 0x%02x", b)
	}
}

// extHeaderLength returns the total header size (not counting the
// extension body) for a given leading byte, or 0 if b does not start an
// extension token.
func extHeaderLength(b byte) int {
	switch b {
	case formatFixExt1, formatFixExt2, formatFixExt4, formatFixExt8, formatFixExt16:
		return 2
	case formatExt8:
		return 3
	case formatExt16:
		return 4
	case formatExt32:
		return 6
	default:
		return 0
	}
}

// decodeExtHeader reads an extension header and returns the signed type
// code, the body length, and the header's own size.
func decodeExtHeader(buf []byte) (extType int8, length, headerLen int, err error) {
	if err = need(buf, 1); err != nil {
		return 0, 0, 0, err
	}
	b := buf[0]
	switch b {
	case formatFixExt1:
		length = 1
	case formatFixExt2:
		length = 2
	case formatFixExt4:
		length = 4
	case formatFixExt8:
		length = 8
	case formatFixExt16:
		length = 16
	case formatExt8:
		if err = need(buf, 2); err != nil {
			return 0, 0, 0, err
		}
		length = int(buf[1])
	case formatExt16:
		if err = need(buf, 3); err != nil {
			return 0, 0, 0, err
		}
		length = int(binary.BigEndian.Uint16(buf[1:3]))
	case formatExt32:
		if err = need(buf, 5); err != nil {
			return 0, 0, 0, err
		}
		length = int(binary.BigEndian.Uint32(buf[1:5]))
	default:
		return 0, 0, 0, newErrorf(CodeUnexpectedToken, "expected extension, got byte 0x%02x", b)
	}
	headerLen = extHeaderLength(b)
	if err = need(buf, headerLen); err != nil {
		return 0, 0, 0, err
	}
	extType = int8(buf[headerLen-1])
	return extType, length, headerLen, nil
}

// decodeTimestamp reads a msgpack extension-type -1 timestamp in any of
// its three canonical sizes.
func decodeTimestamp(buf []byte) (tm time.Time, consumed int, err error) {
	extType, length, headerLen, err := decodeExtHeader(buf)
	if err != nil {
		return time.Time{}, 0, err
	}
	if extType != extTimestamp {
		return time.Time{}, 0, newErrorf(CodeUnexpectedToken, "expected timestamp extension (-1), got type %d", extType)
	}
	total := headerLen + length
	if err = need(buf, total); err != nil {
		return time.Time{}, 0, err
	}
	body := buf[headerLen:total]
	switch length {
	case 4:
		secs := binary.BigEndian.Uint32(body)
		return time.Unix(int64(secs), 0).UTC(), total, nil
	case 8:
		data := binary.BigEndian.Uint64(body)
		nanos := int64(data >> 34)
		secs := int64(data & 0x3ffffffff)
		return time.Unix(secs, nanos).UTC(), total, nil
	case 12:
		nanos := int64(binary.BigEndian.Uint32(body[0:4]))
		secs := int64(binary.BigEndian.Uint64(body[4:12]))
		return time.Unix(secs, nanos).UTC(), total, nil
	default:
		return time.Time{}, 0, newErrorf(CodeUnexpectedToken, "invalid timestamp extension length %d", length)
	}
}

// skipValue advances past exactly one complete msgpack value, regardless of
// type, recursing into arrays/maps/extensions as needed. depth is the
// caller's remaining recursion budget, so skipping an unknown key's
// value stays depth-bounded no matter how deeply it nests.
func skipValue(buf []byte, depth int) (consumed int, err error) {
	if depth <= 0 {
		return 0, newError(CodeDepthLimitExceeded)
	}
	if err = need(buf, 1); err != nil {
		return 0, err
	}
	b := buf[0]

	switch {
	case isPositiveFixInt(b), isNegativeFixInt(b):
		return 1, nil
	case isFixStr(b):
		_, n, err := decodeString(buf)
		return n, err
	case isFixArray(b):
		return skipContainer(buf, int(b&0x0f), 1, false, depth)
	case isFixMap(b):
		return skipContainer(buf, int(b&0x0f), 1, true, depth)
	}

	switch b {
	case formatNil, formatFalse, formatTrue:
		return 1, nil
	case formatUint8, formatInt8:
		return 2, need(buf, 2)
	case formatUint16, formatInt16:
		return 3, need(buf, 3)
	case formatUint32, formatInt32, formatFloat32:
		return 5, need(buf, 5)
	case formatUint64, formatInt64, formatFloat64:
		return 9, need(buf, 9)
	case formatStr8, formatStr16, formatStr32:
		_, n, err := decodeString(buf)
		return n, err
	case formatBin8, formatBin16, formatBin32:
		_, n, err := decodeBin(buf)
		return n, err
	case formatArray16, formatArray32:
		n, headerLen, err := decodeArrayHeader(buf)
		if err != nil {
			return 0, err
		}
		return skipContainer(buf, n, headerLen, false, depth)
	case formatMap16, formatMap32:
		n, headerLen, err := decodeMapHeader(buf)
		if err != nil {
			return 0, err
		}
		return skipContainer(buf, n, headerLen, true, depth)
	case formatFixExt1, formatFixExt2, formatFixExt4, formatFixExt8, formatFixExt16,
		formatExt8, formatExt16, formatExt32:
		_, length, headerLen, err := decodeExtHeader(buf)
		if err != nil {
			return 0, err
		}
		total := headerLen + length
		return total, need(buf, total)
	default:
		return 0, newErrorf(CodeUnexpectedToken, "unrecognized leading byte 0x%02x", b)
	}
}

// skipContainer skips n elements (or n key/value pairs, if isMap) starting
// after a header of headerLen bytes.
func skipContainer(buf []byte, n, headerLen int, isMap bool, depth int) (consumed int, err error) {
	pos := headerLen
	count := n
	if isMap {
		count *= 2
	}
	for i := 0; i < count; i++ {
		advanced, err := skipValue(buf[pos:], depth-1)
		if err != nil {
			if ib, ok := err.(*Error); ok && ib.Code == CodeInsufficientBuffer {
				return 0, insufficientBuffer(pos + ib.Examined)
			}
			return 0, err
		}
		pos += advanced
	}
	return pos, nil
}
