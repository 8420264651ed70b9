package msgpack

import (
	"reflect"
	"time"
)

// primitives.go supplies the built-in leaf Converters for the Go kinds the
// wire format encodes directly: the "primitive leaves" that
// converter dispatch bottoms out on. A shape.Provider never needs to
// special-case int/string/bool itself; Context.GetConverter falls back to
// this table whenever the bound Provider has no shape to offer (shape
// None), and consults it directly when no Provider is bound at all.

var (
	timeType  = reflect.TypeOf(time.Time{})
	bytesType = reflect.TypeOf([]byte(nil))
)

// primitiveConverter returns a built-in Converter for t, or nil if t is not
// one of the recognized scalar kinds, []byte, or time.Time.
func primitiveConverter(t reflect.Type) Converter {
	if t == nil {
		return nil
	}
	if t == timeType {
		return timeConverter{}
	}
	if t == bytesType {
		return bytesConverter{}
	}
	switch t.Kind() {
	case reflect.Bool:
		return boolConverter{}
	case reflect.Int, reflect.Int64:
		return intConverter{goType: t, bits: 64}
	case reflect.Int8:
		return intConverter{goType: t, bits: 8}
	case reflect.Int16:
		return intConverter{goType: t, bits: 16}
	case reflect.Int32:
		return intConverter{goType: t, bits: 32}
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return uintConverter{goType: t, bits: 64}
	case reflect.Uint8:
		return uintConverter{goType: t, bits: 8}
	case reflect.Uint16:
		return uintConverter{goType: t, bits: 16}
	case reflect.Uint32:
		return uintConverter{goType: t, bits: 32}
	case reflect.Float32:
		return float32Converter{}
	case reflect.Float64:
		return float64Converter{}
	case reflect.String:
		return stringConverter{goType: t}
	default:
		return nil
	}
}

type boolConverter struct{}

func (boolConverter) Write(w *Writer, v reflect.Value, ctx *Context) error {
	return w.WriteBool(v.Bool())
}
func (boolConverter) Read(r *Reader, ctx *Context) (reflect.Value, error) {
	v, err := r.DecodeBool()
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(v), nil
}
func (boolConverter) PrefersAsync() bool { return false }

// intConverter handles every signed integer kind; goType lets Read
// reconstruct a named type (e.g. a `type Level int8`) rather than always
// returning a bare int64.
type intConverter struct {
	goType reflect.Type
	bits   int
}

func (c intConverter) Write(w *Writer, v reflect.Value, ctx *Context) error {
	return w.WriteInt(v.Int())
}
func (c intConverter) Read(r *Reader, ctx *Context) (reflect.Value, error) {
	n, err := r.DecodeInt(c.bits)
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.New(c.goType).Elem()
	out.SetInt(n)
	return out, nil
}
func (c intConverter) PrefersAsync() bool { return false }

type uintConverter struct {
	goType reflect.Type
	bits   int
}

func (c uintConverter) Write(w *Writer, v reflect.Value, ctx *Context) error {
	return w.WriteUint(v.Uint())
}
func (c uintConverter) Read(r *Reader, ctx *Context) (reflect.Value, error) {
	n, err := r.DecodeUint(c.bits)
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.New(c.goType).Elem()
	out.SetUint(n)
	return out, nil
}
func (c uintConverter) PrefersAsync() bool { return false }

type float32Converter struct{}

func (float32Converter) Write(w *Writer, v reflect.Value, ctx *Context) error {
	return w.WriteFloat32(float32(v.Float()))
}
func (float32Converter) Read(r *Reader, ctx *Context) (reflect.Value, error) {
	v, err := r.DecodeFloat32()
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(v), nil
}
func (float32Converter) PrefersAsync() bool { return false }

type float64Converter struct{}

func (float64Converter) Write(w *Writer, v reflect.Value, ctx *Context) error {
	return w.WriteFloat64(v.Float())
}
func (float64Converter) Read(r *Reader, ctx *Context) (reflect.Value, error) {
	v, err := r.DecodeFloat64()
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(v), nil
}
func (float64Converter) PrefersAsync() bool { return false }

type stringConverter struct {
	goType reflect.Type
}

func (c stringConverter) Write(w *Writer, v reflect.Value, ctx *Context) error {
	return w.WriteString(v.String())
}
func (c stringConverter) Read(r *Reader, ctx *Context) (reflect.Value, error) {
	s, err := r.DecodeString()
	if err != nil {
		return reflect.Value{}, err
	}
	if c.goType != nil && c.goType.Kind() == reflect.String && c.goType != reflect.TypeOf("") {
		out := reflect.New(c.goType).Elem()
		out.SetString(s)
		return out, nil
	}
	return reflect.ValueOf(s), nil
}
func (c stringConverter) PrefersAsync() bool { return false }

type bytesConverter struct{}

func (bytesConverter) Write(w *Writer, v reflect.Value, ctx *Context) error {
	return w.WriteBin(v.Bytes())
}
func (bytesConverter) Read(r *Reader, ctx *Context) (reflect.Value, error) {
	b, err := r.DecodeBin()
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(b), nil
}
func (bytesConverter) PrefersAsync() bool { return false }

type timeConverter struct{}

func (timeConverter) Write(w *Writer, v reflect.Value, ctx *Context) error {
	return w.WriteTimestamp(v.Interface().(time.Time))
}
func (timeConverter) Read(r *Reader, ctx *Context) (reflect.Value, error) {
	tm, err := r.DecodeTimestamp()
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(tm), nil
}
func (timeConverter) PrefersAsync() bool { return false }
