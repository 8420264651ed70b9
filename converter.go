package msgpack

import (
	"reflect"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Converter is the unit of dispatch: a bundle of Write/Read
// operations specialized for one reflect.Type. Composite
// converters (object, union, dictionary, ...) hold references to the
// sub-converters of their component types, obtained from the Context's
// cache, and delegate to them recursively.
type Converter interface {
	// Write encodes v (of the converter's Go type) through w.
	Write(w *Writer, v reflect.Value, ctx *Context) error

	// Read decodes one value of the converter's Go type from r.
	Read(r *Reader, ctx *Context) (reflect.Value, error)

	// PrefersAsync reports whether, inside a streaming reader, this
	// converter should be invoked via its async path even when bytes are
	// already buffered. Composite converters usually
	// inherit this from whichever sub-converter triggered construction;
	// leaf converters return false.
	PrefersAsync() bool
}

// converterFunc adapts a pair of plain functions into a Converter for
// leaf types that need no extra state; used by the extension registry
// (extension.go) to wrap a caller's encode/decode pair without defining a
// dedicated type per registered extension.
type converterFunc struct {
	write func(w *Writer, v reflect.Value, ctx *Context) error
	read  func(r *Reader, ctx *Context) (reflect.Value, error)
	async bool
}

func (c *converterFunc) Write(w *Writer, v reflect.Value, ctx *Context) error {
	return c.write(w, v, ctx)
}

func (c *converterFunc) Read(r *Reader, ctx *Context) (reflect.Value, error) {
	return c.read(r, ctx)
}

func (c *converterFunc) PrefersAsync() bool { return c.async }

// forwardingConverter is the cycle-breaking placeholder for
// self-referential shape graphs: allocated into the cache before a composite
// converter recurses into its own component shapes, so a self-referential
// shape graph resolves to this indirection instead of looping forever.
// Once the real converter is built, resolve() patches target so every
// holder of the placeholder starts reaching the finished converter.
// target is atomic because a concurrent operation may hold the
// placeholder while the building goroutine resolves it: readers see
// either nil or the fully built converter, never a torn write.
type forwardingConverter struct {
	target atomic.Value // holds a Converter
}

func (f *forwardingConverter) get() Converter {
	c, _ := f.target.Load().(Converter)
	return c
}

func (f *forwardingConverter) Write(w *Writer, v reflect.Value, ctx *Context) error {
	c := f.get()
	if c == nil {
		return errors.New("msgpack: converter cycle resolved to nil target (internal error)")
	}
	return c.Write(w, v, ctx)
}

func (f *forwardingConverter) Read(r *Reader, ctx *Context) (reflect.Value, error) {
	c := f.get()
	if c == nil {
		return reflect.Value{}, errors.New("msgpack: converter cycle resolved to nil target (internal error)")
	}
	return c.Read(r, ctx)
}

func (f *forwardingConverter) PrefersAsync() bool {
	c := f.get()
	if c == nil {
		return false
	}
	return c.PrefersAsync()
}

func (f *forwardingConverter) resolve(target Converter) {
	f.target.Store(target)
}
