package msgpack

import (
	"reflect"
	"sync"
)

// extension.go implements the user extension registry: custom extensions
// are registered by type code, and registration validates that the code
// is in 0..127 since negative codes are reserved for pre-defined
// extensions.
// Timestamp (extTimestamp, -1) is the only pre-defined extension this
// package ships; the registry only ever hands out non-negative codes so a
// caller can never collide with it or with extensions defined later.

// ExtensionRegistry maps Go types to msgpack extension type codes and the
// encode/decode functions that convert between a registered type's values
// and the extension payload bytes.
type ExtensionRegistry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]*extensionEntry
	byCode map[int8]*extensionEntry
}

type extensionEntry struct {
	code   int8
	typ    reflect.Type
	encode func(v reflect.Value) ([]byte, error)
	decode func(data []byte) (reflect.Value, error)
}

// NewExtensionRegistry returns an empty registry.
func NewExtensionRegistry() *ExtensionRegistry {
	return &ExtensionRegistry{
		byType: make(map[reflect.Type]*extensionEntry),
		byCode: make(map[int8]*extensionEntry),
	}
}

// Register binds t to code, using encode/decode to convert between a
// reflect.Value of type t and the extension payload. code must be in
// 0..127; negative codes are rejected since they are reserved for
// pre-defined extensions (only -1/timestamp exists today, but the whole
// negative range is held back).
func (reg *ExtensionRegistry) Register(
	t reflect.Type,
	code int8,
	encode func(v reflect.Value) ([]byte, error),
	decode func(data []byte) (reflect.Value, error),
) error {
	if code < 0 {
		return newErrorf(CodeInvalidOperation, "extension type code %d is reserved for pre-defined extensions (negative codes)", code)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, exists := reg.byType[t]; exists {
		return newErrorf(CodeInvalidOperation, "extension already registered for type %s", t)
	}
	if _, exists := reg.byCode[code]; exists {
		return newErrorf(CodeInvalidOperation, "extension type code %d already registered", code)
	}

	entry := &extensionEntry{code: code, typ: t, encode: encode, decode: decode}
	reg.byType[t] = entry
	reg.byCode[code] = entry
	return nil
}

// converterFor returns a Converter for t if an extension is registered
// for it, wrapping the entry's encode/decode pair as a converterFunc.
func (reg *ExtensionRegistry) converterFor(t reflect.Type) (Converter, bool) {
	if reg == nil {
		return nil, false
	}
	reg.mu.RLock()
	entry, ok := reg.byType[t]
	reg.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return &converterFunc{
		write: func(w *Writer, v reflect.Value, ctx *Context) error {
			body, err := entry.encode(v)
			if err != nil {
				return err
			}
			if err := w.WriteExtHeader(entry.code, len(body)); err != nil {
				return err
			}
			return w.WriteRaw(body)
		},
		read: func(r *Reader, ctx *Context) (reflect.Value, error) {
			extType, length, err := r.DecodeExtHeader()
			if err != nil {
				return reflect.Value{}, err
			}
			if extType != entry.code {
				return reflect.Value{}, newErrorf(CodeUnexpectedToken, "expected extension type %d for %s, got %d", entry.code, entry.typ, extType)
			}
			body, err := r.DecodeExtBody(length)
			if err != nil {
				return reflect.Value{}, err
			}
			return entry.decode(body)
		},
	}, true
}
