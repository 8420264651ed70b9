package msgpack

import "reflect"

// raw.go implements RawMessagePack: a
// slice of bytes known to encode exactly one complete msgpack value,
// passed through a Write/Read round trip without ever being decoded into a
// Go value. A converter target for "copy the bytes, don't interpret them."

// RawMessagePack is a borrowed or owned span of exactly one encoded
// msgpack value. Decoding into a RawMessagePack field captures the bytes
// of that value (via Reader.Skip) without constructing anything from
// them; encoding one re-emits the captured bytes verbatim.
//
// Bytes produced by decode are borrowed from the segment chain they were
// read from and are only valid until that chain is
// consumed further or released. Call ToOwned before retaining a
// RawMessagePack beyond the lifetime of its source.
type RawMessagePack struct {
	data  []byte
	owned bool
}

// NewRawMessagePack wraps pre-encoded msgpack bytes the caller already
// owns (e.g. read from a file). The result is immediately usable without a
// ToOwned call.
func NewRawMessagePack(data []byte) RawMessagePack {
	return RawMessagePack{data: data, owned: true}
}

// Bytes returns the encoded msgpack bytes. The returned slice must not be
// retained past the lifetime of the segment chain it was decoded from
// unless IsOwned reports true or ToOwned has been called.
func (r RawMessagePack) Bytes() []byte { return r.data }

// IsOwned reports whether Bytes is backed by memory this RawMessagePack
// exclusively controls (true for ToOwned's result and for values built by
// NewRawMessagePack).
func (r RawMessagePack) IsOwned() bool { return r.owned }

// ToOwned copies the borrowed bytes into a freshly allocated, exclusively
// owned buffer, required before storing a RawMessagePack beyond the
// lifetime of its decode source.
func (r RawMessagePack) ToOwned() RawMessagePack {
	if r.owned {
		return r
	}
	owned := make([]byte, len(r.data))
	copy(owned, r.data)
	return RawMessagePack{data: owned, owned: true}
}

var rawMessagePackType = reflect.TypeOf(RawMessagePack{})

// rawConverter is the built-in converter for RawMessagePack, consulted by
// Context.GetConverter the same way primitiveConverter is (it is a fixed
// wire protocol, not a shape a Provider describes).
type rawConverter struct{}

func (rawConverter) Write(w *Writer, v reflect.Value, ctx *Context) error {
	raw := v.Interface().(RawMessagePack)
	return w.WriteRaw(raw.data)
}

func (rawConverter) Read(r *Reader, ctx *Context) (reflect.Value, error) {
	data, err := r.DecodeRaw(ctx.Options().MaxDepth - ctx.depth + 1)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(RawMessagePack{data: data}), nil
}

func (rawConverter) PrefersAsync() bool { return false }
