package msgpack

import (
	"context"
	"reflect"

	"github.com/richinsley/msgpack/shape"
)

// Serializer owns the converter cache shared by every operation run
// through it: cache lifetime is tied to the serializer instance, and
// concurrent operations share it with single-flight construction per
// key. A Serializer is safe for use from multiple
// goroutines; each operation gets its own Context with its own depth
// counter and cancellation, so operations never observe each other's
// in-flight state.
type Serializer struct {
	provider shape.Provider
	opts     []Option
	cache    *converterCache
}

// NewSerializer builds a Serializer around provider with a fixed set of
// options. Options passed to an individual operation are applied on top
// of these.
func NewSerializer(provider shape.Provider, opts ...Option) *Serializer {
	return &Serializer{
		provider: provider,
		opts:     opts,
		cache:    newConverterCache(1024),
	}
}

func (s *Serializer) newContext(cancel context.Context, opts []Option) *Context {
	merged := make([]Option, 0, len(s.opts)+len(opts))
	merged = append(merged, s.opts...)
	merged = append(merged, opts...)
	return newContextWithCache(cancel, s.provider, s.cache, merged...)
}

// Serialize encodes value into a single contiguous byte slice.
func (s *Serializer) Serialize(value interface{}, opts ...Option) ([]byte, error) {
	ctx := s.newContext(nil, opts)
	sink := NewSliceWriter(256)
	w := NewWriter(sink, defaultWriteChunk)

	v := reflect.ValueOf(value)
	conv, err := ctx.GetConverter(v.Type())
	if err != nil {
		return nil, err
	}
	if err := conv.Write(w, v, ctx); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return sink.Bytes(), nil
}

// Deserialize decodes a single value from data into out, a non-nil
// pointer.
func (s *Serializer) Deserialize(data []byte, out interface{}, opts ...Option) error {
	ctx := s.newContext(nil, opts)
	r := NewReader(NewBuffer(data))

	ptr := reflect.ValueOf(out)
	if ptr.Kind() != reflect.Ptr || ptr.IsNil() {
		return newErrorf(CodeInvalidOperation, "Deserialize requires a non-nil pointer, got %T", out)
	}
	elemType := ptr.Elem().Type()

	conv, err := ctx.GetConverter(elemType)
	if err != nil {
		return err
	}
	result, err := conv.Read(r, ctx)
	if err != nil {
		// data is the whole input, so running short is a malformed value
		// rather than a request for more bytes.
		if IsCode(err, CodeInsufficientBuffer) {
			return &Error{Code: CodeUnspecified, cause: err}
		}
		return err
	}
	ptr.Elem().Set(result)
	return nil
}

// SerializeAsync encodes value into sink incrementally, flushing as it
// goes. cancel, when non-nil, is observed at every DepthStep.
func (s *Serializer) SerializeAsync(cancel context.Context, value interface{}, sink BufferWriter, opts ...Option) error {
	ctx := s.newContext(cancel, opts)
	w := NewWriter(sink, defaultWriteChunk)

	v := reflect.ValueOf(value)
	conv, err := ctx.GetConverter(v.Type())
	if err != nil {
		return err
	}
	if err := conv.Write(w, v, ctx); err != nil {
		return err
	}
	return w.Flush()
}

// DeserializeAsync decodes a single value of outType from source, a
// ByteSource that may deliver bytes incrementally, via a StreamReader.
func (s *Serializer) DeserializeAsync(cancel context.Context, source ByteSource, outType reflect.Type, opts ...Option) (reflect.Value, error) {
	ctx := s.newContext(cancel, opts)
	sr := NewStreamReader(source, ctx, nil)
	return sr.ReadValue(outType)
}
