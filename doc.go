// Package msgpack implements a MessagePack encoder/decoder built around a
// type-shape abstraction rather than struct reflection tags alone: callers
// supply a shape.Provider describing each type's wire shape (object,
// enumerable, dictionary, nullable, enum, union, or a surrogate), and the
// package compiles that description into a tree of Converters on first
// use, memoized per (type, options) pair. A Serializer owns one such
// cache across operations; the package-level Serialize/Deserialize
// helpers build a throwaway one per call.
//
// # Architecture Overview
//
// Encoding and decoding are split into three layers:
//
//  1. Wire primitives (format.go, encode.go, decode.go): the raw
//     byte-level rules for every MessagePack format family, always using
//     the shortest valid encoding for a given value.
//
//  2. Segmented I/O (segment.go, reader.go, writer.go): a Buffer window
//     that lets a Reader decode against data delivered in arbitrary,
//     possibly non-contiguous chunks, and a Writer that accumulates
//     encoded output into a pooled scratch buffer before flushing it to a
//     BufferWriter sink.
//
//  3. Shape-driven dispatch (dispatch.go, object.go, union.go,
//     context.go): given a reflect.Type and a shape.Shape describing it,
//     buildConverter recursively composes a Converter from primitive
//     leaves (primitives.go) up through nullable wrappers, enumerables,
//     dictionaries, objects, and discriminated unions, breaking reference
//     cycles with a forwarding placeholder.
//
// # Basic usage
//
//	data, err := msgpack.Serialize(value, provider)
//
//	var out MyType
//	err := msgpack.Deserialize(data, &out, provider)
//
// provider is a shape.Provider; reflectshape.New() returns the default
// reflection-based implementation, driven by `msgpack:"name,omitempty"`
// struct tags.
//
// # Streaming
//
// DeserializeAsync drives the same converters against a ByteSource that
// may not have all its bytes available yet. Suspension happens inside a
// single token decode (Reader.run's replenish loop), never across an
// in-progress composite value, so a streaming decode of an Object that
// has already read some properties never re-reads them after a
// suspension. Options.MaxAsyncBuffer is the threshold the streaming reader
// compares the already-buffered byte count against: at or above it the
// decode is a synchronous fast path, below it the call is recorded as
// async. No bytes are fetched ahead of the decode on either path.
//
// # Security
//
// Every recursive descent through a composite converter, on both the
// encode and decode path, consumes one unit of Context's depth budget
// (Options.MaxDepth, default 64) and gives it back on return, so a
// pathologically or adversarially nested value is rejected with
// CodeDepthLimitExceeded well before it could exhaust the goroutine
// stack. Untrusted map keys of the dynamic Value tree are hashed with
// xxhash rather than Go's built-in map hash to resist hash-flooding.
// Object-as-map property lookup only looks wire keys up in a table of the
// shape's declared names and never inserts them.
//
// # What this package does not do
//
// Command-line tooling, JSON parsing, LZ4 framing, and a
// subtype-registry configuration surface for union dispatch are treated
// as external collaborators that consume this package's Reader/Writer
// and Converter interfaces rather than being implemented by it. The one
// JSON piece included is ConvertToJson, a one-way msgpack-to-JSON
// debugging printer.
package msgpack
