package msgpack

import (
	"encoding/binary"
	"reflect"
	"time"
)

// dynamic.go implements dynamic/untyped deserialization: a
// variant-tree Value usable by code that has no shape for the data it is
// reading. Grounded on decode.go's own token classification (same format
// byte ranges, same normalize-on-decode rule) but built bottom-up into a
// tree instead of driving a converter.

// ValueKind identifies which case of the dynamic Value tagged union is
// populated.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindUInt
	KindSInt
	KindFloat32
	KindFloat64
	KindString
	KindBytes
	KindArray
	KindMap
	KindExtension
)

// Value is one node of the dynamic decode tree. Exactly the fields
// matching Kind are meaningful, mirroring shape.Shape's own "one struct,
// tagged by Kind" shape rather than an interface-per-case hierarchy.
type Value struct {
	Kind ValueKind

	Bool    bool
	UInt    uint64
	SInt    int64
	Float32 float32
	Float64 float64
	String  string
	Bytes   []byte
	Array   []Value
	Map     *Map

	ExtType int8
	ExtBody []byte

	Timestamp time.Time
}

// mapEntry is one key/value pair of a Map, kept in insertion order.
type mapEntry struct {
	key   Value
	value Value
}

// Map is an insertion-order-preserving dictionary of dynamic Values,
// keyed with integer-normalization equality: a UInt key and an SInt key
// encoding the same non-negative number index the same entry, and a
// negative SInt key is distinct from any UInt key.
// Lookup uses xxhash (hash.go) bucketing the same way object-as-map
// property lookup does, since both are indexing untrusted wire data.
type Map struct {
	entries []mapEntry
	index   map[uint64][]int
}

// NewMap returns an empty Map ready for Set calls.
func NewMap() *Map {
	return &Map{index: make(map[uint64][]int)}
}

// Len reports the number of entries.
func (m *Map) Len() int { return len(m.entries) }

// Entries returns the map's key/value pairs in insertion order. The
// returned pairs must not be mutated through the slice; use Set to change
// the map.
func (m *Map) Entries() []struct {
	Key   Value
	Value Value
} {
	out := make([]struct {
		Key   Value
		Value Value
	}, len(m.entries))
	for i, e := range m.entries {
		out[i].Key = e.key
		out[i].Value = e.value
	}
	return out
}

// Get looks up key under normalized-key equality, returning (value, true)
// if present.
func (m *Map) Get(key Value) (Value, bool) {
	h := keyHash(key)
	for _, idx := range m.index[h] {
		if keysEqual(m.entries[idx].key, key) {
			return m.entries[idx].value, true
		}
	}
	return Value{}, false
}

// Set inserts key/value, or overwrites the existing value in place
// (keeping original insertion position) if key is already present under
// normalized-key equality.
func (m *Map) Set(key, value Value) {
	h := keyHash(key)
	for _, idx := range m.index[h] {
		if keysEqual(m.entries[idx].key, key) {
			m.entries[idx].value = value
			return
		}
	}
	idx := len(m.entries)
	m.entries = append(m.entries, mapEntry{key: key, value: value})
	m.index[h] = append(m.index[h], idx)
}

// keysEqual implements normalized-key equality: numeric keys
// compare by normalized signed/unsigned value, and Null, Bool, String and
// Bytes keys compare by value. Keys of any other kind (float, array, map,
// extension) never compare equal, so each one gets its own entry.
func keysEqual(a, b Value) bool {
	an, aIsNum, aNeg := normalizeNumericKey(a)
	bn, bIsNum, bNeg := normalizeNumericKey(b)
	if aIsNum && bIsNum {
		return aNeg == bNeg && an == bn
	}
	if aIsNum != bIsNum {
		return false
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindString:
		return a.String == b.String
	case KindBytes:
		return string(a.Bytes) == string(b.Bytes)
	default:
		return false
	}
}

// normalizeNumericKey reduces a UInt or SInt Value to a magnitude plus
// sign flag so 45 (UInt) and 45 (SInt) compare equal while -45 compares
// unequal to either.
func normalizeNumericKey(v Value) (magnitude uint64, isNumeric bool, negative bool) {
	switch v.Kind {
	case KindUInt:
		return v.UInt, true, false
	case KindSInt:
		if v.SInt < 0 {
			return uint64(-v.SInt), true, true
		}
		return uint64(v.SInt), true, false
	default:
		return 0, false, false
	}
}

// keyHash buckets a key the same way for either numeric representation of
// the same value, and independently for every other kind.
func keyHash(v Value) uint64 {
	if mag, isNum, neg := normalizeNumericKey(v); isNum {
		var b [9]byte
		if neg {
			b[0] = 1
		}
		binary.BigEndian.PutUint64(b[1:], mag)
		return hashBytes(b[:])
	}
	switch v.Kind {
	case KindString:
		return hashString(v.String)
	case KindBytes:
		return hashBytes(v.Bytes)
	case KindBool:
		if v.Bool {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// parseTimestampBody parses an already-extracted timestamp extension
// body (one of the three canonical sizes) the same way decode.go's
// decodeTimestamp parses the body following a header it read itself; used
// here because DecodeDynamic has already consumed the header via
// DecodeExtHeader by the time it knows the extension type is -1.
func parseTimestampBody(body []byte) (time.Time, error) {
	switch len(body) {
	case 4:
		secs := binary.BigEndian.Uint32(body)
		return time.Unix(int64(secs), 0).UTC(), nil
	case 8:
		data := binary.BigEndian.Uint64(body)
		nanos := int64(data >> 34)
		secs := int64(data & 0x3ffffffff)
		return time.Unix(secs, nanos).UTC(), nil
	case 12:
		nanos := int64(binary.BigEndian.Uint32(body[0:4]))
		secs := int64(binary.BigEndian.Uint64(body[4:12]))
		return time.Unix(secs, nanos).UTC(), nil
	default:
		return time.Time{}, newErrorf(CodeUnexpectedToken, "invalid timestamp extension length %d", len(body))
	}
}

// DecodeDynamic reads one complete msgpack value into the variant-tree
// model, honoring the depth guard symmetrically with every other
// recursive decode in this package.
func DecodeDynamic(r *Reader, ctx *Context) (Value, error) {
	if err := ctx.DepthStep(); err != nil {
		return Value{}, err
	}
	defer ctx.DepthRelease()

	b, err := r.PeekFormat()
	if err != nil {
		return Value{}, err
	}

	switch {
	case b == formatNil:
		if err := r.DecodeNil(); err != nil {
			return Value{}, err
		}
		return Value{Kind: KindNull}, nil

	case b == formatTrue || b == formatFalse:
		v, err := r.DecodeBool()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindBool, Bool: v}, nil

	case isPositiveFixInt(b), b == formatUint8, b == formatUint16, b == formatUint32, b == formatUint64:
		v, err := r.DecodeUint(64)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindUInt, UInt: v}, nil

	case isNegativeFixInt(b), b == formatInt8, b == formatInt16, b == formatInt32, b == formatInt64:
		v, err := r.DecodeInt(64)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindSInt, SInt: v}, nil

	case b == formatFloat32:
		v, err := r.DecodeFloat32()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindFloat32, Float32: v}, nil

	case b == formatFloat64:
		v, err := r.DecodeFloat64()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindFloat64, Float64: v}, nil

	case isFixStr(b), b == formatStr8, b == formatStr16, b == formatStr32:
		s, err := r.DecodeString()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindString, String: s}, nil

	case b == formatBin8, b == formatBin16, b == formatBin32:
		data, err := r.DecodeBin()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindBytes, Bytes: data}, nil

	case isFixArray(b), b == formatArray16, b == formatArray32:
		n, err := r.DecodeArrayHeader()
		if err != nil {
			return Value{}, err
		}
		arr := make([]Value, n)
		for i := 0; i < n; i++ {
			elem, err := DecodeDynamic(r, ctx)
			if err != nil {
				return Value{}, wrapPath(err, arrayPathSegment(i))
			}
			arr[i] = elem
		}
		return Value{Kind: KindArray, Array: arr}, nil

	case isFixMap(b), b == formatMap16, b == formatMap32:
		n, err := r.DecodeMapHeader()
		if err != nil {
			return Value{}, err
		}
		m := NewMap()
		for i := 0; i < n; i++ {
			k, err := DecodeDynamic(r, ctx)
			if err != nil {
				return Value{}, err
			}
			v, err := DecodeDynamic(r, ctx)
			if err != nil {
				return Value{}, err
			}
			m.Set(k, v)
		}
		return Value{Kind: KindMap, Map: m}, nil

	case b == formatExt8, b == formatExt16, b == formatExt32,
		b == formatFixExt1, b == formatFixExt2, b == formatFixExt4, b == formatFixExt8, b == formatFixExt16:
		extType, length, err := r.DecodeExtHeader()
		if err != nil {
			return Value{}, err
		}
		body, err := r.DecodeExtBody(length)
		if err != nil {
			return Value{}, err
		}
		if extType == extTimestamp {
			tm, err := parseTimestampBody(body)
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: KindExtension, ExtType: extType, Timestamp: tm}, nil
		}
		return Value{Kind: KindExtension, ExtType: extType, ExtBody: body}, nil

	default:
		return Value{}, newErrorf(CodeUnexpectedToken, "unrecognized leading byte 0x%02x", b)
	}
}

// EncodeDynamic writes v back out, the encode-side counterpart of
// DecodeDynamic. Round-tripping a Value through Decode then Encode
// reproduces the original bytes (modulo the normalized-width choices
// every writer in this package already makes for integers).
func EncodeDynamic(w *Writer, v Value, ctx *Context) error {
	switch v.Kind {
	case KindNull:
		return w.WriteNil()
	case KindBool:
		return w.WriteBool(v.Bool)
	case KindUInt:
		return w.WriteUint(v.UInt)
	case KindSInt:
		return w.WriteInt(v.SInt)
	case KindFloat32:
		return w.WriteFloat32(v.Float32)
	case KindFloat64:
		return w.WriteFloat64(v.Float64)
	case KindString:
		return w.WriteString(v.String)
	case KindBytes:
		return w.WriteBin(v.Bytes)
	case KindArray:
		if err := ctx.DepthStep(); err != nil {
			return err
		}
		defer ctx.DepthRelease()
		if err := w.WriteArrayHeader(len(v.Array)); err != nil {
			return err
		}
		for i, elem := range v.Array {
			if err := EncodeDynamic(w, elem, ctx); err != nil {
				return wrapPath(err, arrayPathSegment(i))
			}
		}
		return nil
	case KindMap:
		if err := ctx.DepthStep(); err != nil {
			return err
		}
		defer ctx.DepthRelease()
		if v.Map == nil {
			return w.WriteMapHeader(0)
		}
		if err := w.WriteMapHeader(v.Map.Len()); err != nil {
			return err
		}
		for _, e := range v.Map.entries {
			if err := EncodeDynamic(w, e.key, ctx); err != nil {
				return err
			}
			if err := EncodeDynamic(w, e.value, ctx); err != nil {
				return err
			}
		}
		return nil
	case KindExtension:
		if !v.Timestamp.IsZero() && v.ExtType == extTimestamp {
			return w.WriteTimestamp(v.Timestamp)
		}
		if err := w.WriteExtHeader(v.ExtType, len(v.ExtBody)); err != nil {
			return err
		}
		return w.WriteRaw(v.ExtBody)
	default:
		return newErrorf(CodeUnexpectedToken, "unrecognized dynamic value kind %d", v.Kind)
	}
}

// dynamicValueType lets Context.GetConverter recognize Value as a fixed
// wire protocol the same way it recognizes RawMessagePack (raw.go): a
// caller deserializing into a *Value never needs a shape.Provider.
var dynamicValueType = reflect.TypeOf(Value{})

// dynamicConverter adapts DecodeDynamic/EncodeDynamic to the Converter
// interface.
type dynamicConverter struct{}

func (dynamicConverter) Write(w *Writer, v reflect.Value, ctx *Context) error {
	return EncodeDynamic(w, v.Interface().(Value), ctx)
}

func (dynamicConverter) Read(r *Reader, ctx *Context) (reflect.Value, error) {
	v, err := DecodeDynamic(r, ctx)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(v), nil
}

func (dynamicConverter) PrefersAsync() bool { return false }
