package msgpack

import (
	"bytes"
	"math"
	"testing"
	"time"
)

// TestIntegerShortestEncoding tests that every integer write picks the
// minimal valid wire form.
func TestIntegerShortestEncoding(t *testing.T) {
	cases := []struct {
		value    int64
		expected []byte
	}{
		{0, []byte{0x00}},
		{3, []byte{0x03}},
		{127, []byte{0x7f}},
		{128, []byte{formatUint8, 0x80}},
		{255, []byte{formatUint8, 0xff}},
		{256, []byte{formatUint16, 0x01, 0x00}},
		{65535, []byte{formatUint16, 0xff, 0xff}},
		{65536, []byte{formatUint32, 0x00, 0x01, 0x00, 0x00}},
		{-1, []byte{0xff}},
		{-32, []byte{0xe0}},
		{-33, []byte{formatInt8, 0xdf}},
		{-128, []byte{formatInt8, 0x80}},
		{-129, []byte{formatInt16, 0xff, 0x7f}},
		{-32768, []byte{formatInt16, 0x80, 0x00}},
		{-32769, []byte{formatInt32, 0xff, 0xff, 0x7f, 0xff}},
	}
	for _, tc := range cases {
		got := appendInt(nil, tc.value)
		if !bytes.Equal(got, tc.expected) {
			t.Errorf("appendInt(%d) = % x, expected % x", tc.value, got, tc.expected)
		}
	}

	if got := appendUint(nil, math.MaxUint64); got[0] != formatUint64 || len(got) != 9 {
		t.Errorf("appendUint(MaxUint64) = % x, expected 9-byte uint64 form", got)
	}
}

// TestIntegerDecodeAcceptsAnyEncoding tests that a value decodes
// identically regardless of which valid wire form carried it.
func TestIntegerDecodeAcceptsAnyEncoding(t *testing.T) {
	encodings := [][]byte{
		{0x03},
		{formatUint8, 0x03},
		{formatUint16, 0x00, 0x03},
		{formatUint32, 0x00, 0x00, 0x00, 0x03},
		{formatUint64, 0, 0, 0, 0, 0, 0, 0, 0x03},
		{formatInt8, 0x03},
		{formatInt16, 0x00, 0x03},
		{formatInt32, 0x00, 0x00, 0x00, 0x03},
		{formatInt64, 0, 0, 0, 0, 0, 0, 0, 0x03},
	}
	for _, enc := range encodings {
		v, consumed, err := decodeInt(enc, 64)
		if err != nil {
			t.Fatalf("decodeInt(% x): %v", enc, err)
		}
		if v != 3 || consumed != len(enc) {
			t.Errorf("decodeInt(% x) = (%d, %d), expected (3, %d)", enc, v, consumed, len(enc))
		}
		u, _, err := decodeUint(enc, 64)
		if err != nil {
			t.Fatalf("decodeUint(% x): %v", enc, err)
		}
		if u != 3 {
			t.Errorf("decodeUint(% x) = %d, expected 3", enc, u)
		}
	}
}

// TestNegativeFixIntDecodesAtEveryWidth tests that negative fixint values
// decode for any signed width that can represent them.
func TestNegativeFixIntDecodesAtEveryWidth(t *testing.T) {
	for _, bits := range []int{8, 16, 32, 64} {
		v, _, err := decodeInt([]byte{0xe0}, bits)
		if err != nil {
			t.Fatalf("decodeInt(0xe0, %d): %v", bits, err)
		}
		if v != -32 {
			t.Errorf("decodeInt(0xe0, %d) = %d, expected -32", bits, v)
		}
	}
}

// TestIntegerOverflow tests the width and sign checks on integer reads.
func TestIntegerOverflow(t *testing.T) {
	// 300 does not fit int8.
	enc := appendInt(nil, 300)
	if _, _, err := decodeInt(enc, 8); !IsCode(err, CodeOverflow) {
		t.Errorf("decodeInt(300, 8) error = %v, expected Overflow", err)
	}
	// -1 does not fit any unsigned destination.
	if _, _, err := decodeUint([]byte{0xff}, 64); !IsCode(err, CodeOverflow) {
		t.Errorf("decodeUint(-1) error = %v, expected Overflow", err)
	}
	// A uint64 above MaxInt64 does not fit int64.
	enc = appendUint(nil, math.MaxUint64)
	if _, _, err := decodeInt(enc, 64); !IsCode(err, CodeOverflow) {
		t.Errorf("decodeInt(MaxUint64) error = %v, expected Overflow", err)
	}
	// But it decodes fine as uint64.
	u, _, err := decodeUint(enc, 64)
	if err != nil || u != math.MaxUint64 {
		t.Errorf("decodeUint(MaxUint64) = (%d, %v), expected (MaxUint64, nil)", u, err)
	}
}

// TestFloatRoundTrip tests bitwise float fidelity and the prefer-32 write
// path.
func TestFloatRoundTrip(t *testing.T) {
	for _, f := range []float64{0, 1.5, -2.25, math.MaxFloat64, math.SmallestNonzeroFloat64, math.Inf(1), math.Inf(-1)} {
		enc := appendFloat64(nil, f)
		got, _, err := decodeFloat64(enc)
		if err != nil {
			t.Fatalf("decodeFloat64(%g): %v", f, err)
		}
		if math.Float64bits(got) != math.Float64bits(f) {
			t.Errorf("float64 round trip of %g produced %g", f, got)
		}
	}

	// 1.5 is losslessly float32; 0.1 is not.
	if enc := appendFloat(nil, 1.5, true); enc[0] != formatFloat32 {
		t.Errorf("appendFloat(1.5, prefer32) used format 0x%02x, expected float32", enc[0])
	}
	if enc := appendFloat(nil, 0.1, true); enc[0] != formatFloat64 {
		t.Errorf("appendFloat(0.1, prefer32) used format 0x%02x, expected float64", enc[0])
	}
	if enc := appendFloat(nil, 1.5, false); enc[0] != formatFloat64 {
		t.Errorf("appendFloat(1.5, !prefer32) used format 0x%02x, expected float64", enc[0])
	}

	// A float64 read accepts a float32 token.
	enc := appendFloat32(nil, 2.5)
	got, _, err := decodeFloat64(enc)
	if err != nil || got != 2.5 {
		t.Errorf("decodeFloat64(float32 2.5) = (%g, %v)", got, err)
	}
}

// TestStringHeaderSelection tests fixstr/str8/str16 boundaries.
func TestStringHeaderSelection(t *testing.T) {
	cases := []struct {
		length int
		format byte
	}{
		{0, formatFixStr},
		{31, formatFixStr | 31},
		{32, formatStr8},
		{255, formatStr8},
		{256, formatStr16},
		{65535, formatStr16},
		{65536, formatStr32},
	}
	for _, tc := range cases {
		s := string(make([]byte, tc.length))
		enc := appendString(nil, s)
		if enc[0] != tc.format {
			t.Errorf("string of length %d used format 0x%02x, expected 0x%02x", tc.length, enc[0], tc.format)
		}
		got, consumed, err := decodeString(enc)
		if err != nil {
			t.Fatalf("decodeString(len %d): %v", tc.length, err)
		}
		if got != s || consumed != len(enc) {
			t.Errorf("string of length %d did not round trip", tc.length)
		}
	}
}

// TestBinHeaderSelection tests bin8/bin16/bin32 boundaries.
func TestBinHeaderSelection(t *testing.T) {
	cases := []struct {
		length int
		format byte
	}{
		{0, formatBin8},
		{255, formatBin8},
		{256, formatBin16},
		{65535, formatBin16},
		{65536, formatBin32},
	}
	for _, tc := range cases {
		data := make([]byte, tc.length)
		enc := appendBin(nil, data)
		if enc[0] != tc.format {
			t.Errorf("bin of length %d used format 0x%02x, expected 0x%02x", tc.length, enc[0], tc.format)
		}
		got, consumed, err := decodeBin(enc)
		if err != nil {
			t.Fatalf("decodeBin(len %d): %v", tc.length, err)
		}
		if len(got) != tc.length || consumed != len(enc) {
			t.Errorf("bin of length %d did not round trip", tc.length)
		}
	}
}

// TestContainerHeaderSelection tests fixmap/fixarray and their 16/32-bit
// forms.
func TestContainerHeaderSelection(t *testing.T) {
	if enc := appendArrayHeader(nil, 15); enc[0] != formatFixArray|15 {
		t.Errorf("array(15) = 0x%02x, expected fixarray", enc[0])
	}
	if enc := appendArrayHeader(nil, 16); enc[0] != formatArray16 {
		t.Errorf("array(16) = 0x%02x, expected array16", enc[0])
	}
	if enc := appendArrayHeader(nil, 70000); enc[0] != formatArray32 {
		t.Errorf("array(70000) = 0x%02x, expected array32", enc[0])
	}
	if enc := appendMapHeader(nil, 15); enc[0] != formatFixMap|15 {
		t.Errorf("map(15) = 0x%02x, expected fixmap", enc[0])
	}
	if enc := appendMapHeader(nil, 16); enc[0] != formatMap16 {
		t.Errorf("map(16) = 0x%02x, expected map16", enc[0])
	}
	if enc := appendMapHeader(nil, 70000); enc[0] != formatMap32 {
		t.Errorf("map(70000) = 0x%02x, expected map32", enc[0])
	}

	n, _, err := decodeArrayHeader(appendArrayHeader(nil, 70000))
	if err != nil || n != 70000 {
		t.Errorf("array header 70000 round trip = (%d, %v)", n, err)
	}
	n, _, err = decodeMapHeader(appendMapHeader(nil, 70000))
	if err != nil || n != 70000 {
		t.Errorf("map header 70000 round trip = (%d, %v)", n, err)
	}
}

// TestTimestampThreeForms tests that timestamps pick the smallest lossless
// extension body and decode from all three.
func TestTimestampThreeForms(t *testing.T) {
	cases := []struct {
		tm       time.Time
		bodyLen  int
		leadByte byte
	}{
		// Seconds only, fits 32 bits: 4-byte form.
		{time.Unix(1672617600, 0).UTC(), 4, formatFixExt4},
		// Nanoseconds present: 8-byte form.
		{time.Unix(1672617600, 500).UTC(), 8, formatFixExt8},
		// Before the epoch: 12-byte form.
		{time.Unix(-1, 0).UTC(), 12, formatExt8},
	}
	for _, tc := range cases {
		enc := appendTimestamp(nil, tc.tm)
		if enc[0] != tc.leadByte {
			t.Errorf("timestamp %v lead byte 0x%02x, expected 0x%02x", tc.tm, enc[0], tc.leadByte)
		}
		got, consumed, err := decodeTimestamp(enc)
		if err != nil {
			t.Fatalf("decodeTimestamp(%v): %v", tc.tm, err)
		}
		if !got.Equal(tc.tm) || consumed != len(enc) {
			t.Errorf("timestamp %v round tripped to %v", tc.tm, got)
		}
	}
}

// TestUnexpectedTokenDistinctFromInsufficient tests that a wrong leading
// byte and a short buffer produce different codes.
func TestUnexpectedTokenDistinctFromInsufficient(t *testing.T) {
	if _, _, err := decodeBool([]byte{formatNil}); !IsCode(err, CodeUnexpectedToken) {
		t.Errorf("decodeBool(nil token) = %v, expected UnexpectedToken", err)
	}
	if _, _, err := decodeBool(nil); !IsCode(err, CodeInsufficientBuffer) {
		t.Errorf("decodeBool(empty) = %v, expected InsufficientBuffer", err)
	}
	// A fixstr header present but payload missing reports insufficiency, not
	// a structural error.
	partial := appendString(nil, "hello")[:3]
	if _, _, err := decodeString(partial); !IsCode(err, CodeInsufficientBuffer) {
		t.Errorf("decodeString(partial) = %v, expected InsufficientBuffer", err)
	}
}

// TestInvalidUTF8Rejected tests string payload validation.
func TestInvalidUTF8Rejected(t *testing.T) {
	enc := []byte{formatFixStr | 2, 0xff, 0xfe}
	if _, _, err := decodeString(enc); !IsCode(err, CodeInvalidUTF8) {
		t.Errorf("decodeString(invalid utf8) = %v, expected InvalidUtf8", err)
	}
}

// TestSkipValueNested tests whole-value skip across nested containers and
// its depth guard.
func TestSkipValueNested(t *testing.T) {
	var buf []byte
	buf = appendMapHeader(buf, 1)
	buf = appendString(buf, "k")
	buf = appendArrayHeader(buf, 2)
	buf = appendMapHeader(buf, 1)
	buf = appendString(buf, "inner")
	buf = appendInt(buf, 5)
	buf = appendBin(buf, []byte{1, 2, 3})
	trailer := appendBool(buf, true)

	consumed, err := skipValue(trailer, 16)
	if err != nil {
		t.Fatalf("skipValue: %v", err)
	}
	if consumed != len(buf) {
		t.Errorf("skipValue consumed %d, expected %d", consumed, len(buf))
	}

	if _, err := skipValue(trailer, 2); !IsCode(err, CodeDepthLimitExceeded) {
		t.Errorf("skipValue with depth 2 = %v, expected DepthLimitExceeded", err)
	}
}
