package msgpack

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/richinsley/msgpack/reflectshape"
)

// TestRawMessagePackPassThrough tests that a raw field captures its value
// bytes on read and re-emits them verbatim on write.
func TestRawMessagePackPassThrough(t *testing.T) {
	type envelope struct {
		Kind string         `msgpack:"kind"`
		Body RawMessagePack `msgpack:"body"`
	}

	inner := appendMapHeader(nil, 1)
	inner = appendString(inner, "nested")
	inner = appendArrayHeader(inner, 2)
	inner = appendInt(inner, 1)
	inner = appendInt(inner, 2)

	in := envelope{Kind: "event", Body: NewRawMessagePack(inner)}
	s := NewSerializer(reflectshape.New())
	data, err := s.Serialize(in)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	var got envelope
	if err := s.Deserialize(data, &got); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got.Kind != "event" || !bytes.Equal(got.Body.Bytes(), inner) {
		t.Errorf("round trip = %+v", got)
	}

	// The re-serialized envelope is byte-identical.
	again, err := s.Serialize(got)
	if err != nil {
		t.Fatalf("re-Serialize: %v", err)
	}
	if !bytes.Equal(again, data) {
		t.Errorf("re-encode differs\n got % x\nwant % x", again, data)
	}
}

// TestRawMessagePackBorrowedUntilOwned tests that decoded raw bytes
// borrow the source buffer until ToOwned copies them out.
func TestRawMessagePackBorrowedUntilOwned(t *testing.T) {
	source := appendString(nil, "borrowed")
	var raw RawMessagePack
	if err := Deserialize(source, &raw, nil); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if raw.IsOwned() {
		t.Fatal("decoded raw value claims ownership of borrowed segments")
	}

	owned := raw.ToOwned()
	if !owned.IsOwned() {
		t.Fatal("ToOwned did not mark the copy owned")
	}
	// Corrupt the source; the owned copy must not see it.
	source[1] ^= 0xff
	if bytes.Equal(raw.Bytes(), owned.Bytes()) {
		t.Error("owned copy still aliases the source buffer")
	}
	if owned.ToOwned().Bytes()[1] != owned.Bytes()[1] {
		t.Error("ToOwned of an owned value must be a no-op")
	}
}

// TestRawMessagePackAsTopLevelTarget tests decoding an arbitrary value
// without interpretation and round-tripping it.
func TestRawMessagePackAsTopLevelTarget(t *testing.T) {
	var data []byte
	data = appendArrayHeader(data, 3)
	data = appendNil(data)
	data = appendBool(data, true)
	data = appendString(data, "x")

	var raw RawMessagePack
	if err := Deserialize(data, &raw, nil); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !bytes.Equal(raw.Bytes(), data) {
		t.Errorf("captured % x, expected % x", raw.Bytes(), data)
	}

	out, err := Serialize(raw, nil)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("re-emit = % x", out)
	}
}

// TestRawMessagePackDepthGuard tests that capturing a raw value is still
// bounded.
func TestRawMessagePackDepthGuard(t *testing.T) {
	var data []byte
	for i := 0; i < 100; i++ {
		data = appendArrayHeader(data, 1)
	}
	data = appendNil(data)

	var raw RawMessagePack
	err := Deserialize(data, &raw, nil, WithMaxDepth(32))
	if !IsCode(err, CodeDepthLimitExceeded) {
		t.Errorf("Deserialize = %v, expected DepthLimitExceeded", err)
	}
}

// TestRawConverterType is a sanity check that the raw type routes to its
// fixed converter with no provider involved.
func TestRawConverterType(t *testing.T) {
	ctx := NewContext(nil, nil)
	conv, err := ctx.GetConverter(reflect.TypeOf(RawMessagePack{}))
	if err != nil {
		t.Fatalf("GetConverter: %v", err)
	}
	if _, ok := conv.(rawConverter); !ok {
		t.Errorf("converter = %T", conv)
	}
}
