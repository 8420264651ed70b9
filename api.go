package msgpack

import (
	"context"
	"encoding/binary"
	"io"
	"reflect"

	"github.com/richinsley/msgpack/shape"
)

// api.go is the top-level entry surface: Serialize/Deserialize for a
// complete in-memory buffer and SerializeAsync/DeserializeAsync for an
// incremental source or sink, plus FramedWriter/FramedReader for putting
// several self-delimited values on one stream.

// Serialize encodes value into a single contiguous byte slice, using
// provider to describe value's type and opts to configure the operation.
// The synchronous path never suspends and never logs. Callers doing more
// than one operation should build a Serializer instead, so converter
// construction work is shared across calls.
func Serialize(value interface{}, provider shape.Provider, opts ...Option) ([]byte, error) {
	return NewSerializer(provider).Serialize(value, opts...)
}

// Deserialize decodes a single value of type out's element type from data.
// out must be a non-nil pointer; its pointed-to type is what shape and
// converter dispatch target.
func Deserialize(data []byte, out interface{}, provider shape.Provider, opts ...Option) error {
	return NewSerializer(provider).Deserialize(data, out, opts...)
}

// SerializeAsync encodes value into sink incrementally via a BufferWriter,
// flushing as it goes rather than accumulating the whole result in memory
// first. cancel, when non-nil, is observed the same way the synchronous
// Context observes it (DepthStep's cancellation check).
func SerializeAsync(cancel context.Context, value interface{}, sink BufferWriter, provider shape.Provider, opts ...Option) error {
	return NewSerializer(provider).SerializeAsync(cancel, value, sink, opts...)
}

// DeserializeAsync decodes a single value of outType from source, a
// ByteSource that may deliver bytes incrementally. It drives a
// StreamReader so CodeInsufficientBuffer is satisfied by pulling more
// bytes rather than surfacing to the caller.
func DeserializeAsync(cancel context.Context, source ByteSource, outType reflect.Type, provider shape.Provider, opts ...Option) (reflect.Value, error) {
	return NewSerializer(provider).DeserializeAsync(cancel, source, outType, opts...)
}

// FramedWriter sends length-prefixed msgpack messages over an io.Writer,
// so several self-delimited values can share one stream.
// Each message is a 4-byte big-endian length followed by that many bytes
// of msgpack.
type FramedWriter struct {
	w    io.Writer
	pool *BufferPool
}

// NewFramedWriter wraps w for length-prefixed framing.
func NewFramedWriter(w io.Writer) *FramedWriter {
	return &FramedWriter{w: w, pool: NewBufferPool(4096, 8)}
}

// WriteMessage sends data as one length-prefixed frame.
func (fw *FramedWriter) WriteMessage(data []byte) error {
	lenBuf := fw.pool.Get()[:4]
	binary.BigEndian.PutUint32(lenBuf, uint32(len(data)))
	_, err := fw.w.Write(lenBuf)
	fw.pool.Put(lenBuf)
	if err != nil {
		return err
	}
	if flusher, ok := fw.w.(interface{ Flush() error }); ok {
		if err := flusher.Flush(); err != nil {
			return err
		}
	}
	if _, err := fw.w.Write(data); err != nil {
		return err
	}
	if flusher, ok := fw.w.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

// FramedReader reads length-prefixed msgpack messages off an io.Reader,
// the read side of FramedWriter's envelope.
type FramedReader struct {
	r    io.Reader
	pool *BufferPool
}

// NewFramedReader wraps r for length-prefixed framing.
func NewFramedReader(r io.Reader) *FramedReader {
	return &FramedReader{r: r, pool: NewBufferPool(4096, 8)}
}

// ReadMessage reads the next length-prefixed frame in full.
func (fr *FramedReader) ReadMessage() ([]byte, error) {
	lenBuf := fr.pool.Get()[:4]
	if _, err := io.ReadFull(fr.r, lenBuf); err != nil {
		fr.pool.Put(lenBuf)
		return nil, err
	}
	length := binary.BigEndian.Uint32(lenBuf)
	fr.pool.Put(lenBuf)

	if length <= uint32(fr.pool.size) {
		buf := fr.pool.Get()[:length]
		if _, err := io.ReadFull(fr.r, buf); err != nil {
			fr.pool.Put(buf)
			return nil, err
		}
		out := make([]byte, length)
		copy(out, buf)
		fr.pool.Put(buf)
		return out, nil
	}

	data := make([]byte, length)
	_, err := io.ReadFull(fr.r, data)
	return data, err
}
