package msgpack

import (
	"reflect"
	"strconv"

	"github.com/richinsley/msgpack/shape"
)

// dispatch.go is the converter dispatcher, a recursive case-analysis: given a
// type shape, compose a Converter from primitive leaves up. Called only
// from Context.GetConverter, which has already installed a
// forwardingConverter placeholder in the cache under this shape's key so
// that a self-referential shape graph resolves through the placeholder
// instead of recursing forever.
func buildConverter(sh shape.Shape, ctx *Context, self *forwardingConverter) (Converter, error) {
	switch sh.Kind {
	case shape.KindNone:
		reason := sh.NoneReason
		if reason == "" {
			reason = "no shape description was supplied"
		}
		name := "<unknown>"
		if sh.GoType != nil {
			name = sh.GoType.String()
		}
		return nil, notSupported(name, reason)

	case shape.KindNullable:
		return buildNullableConverter(sh, ctx)

	case shape.KindEnum:
		return buildEnumConverter(sh)

	case shape.KindEnumerable:
		return buildEnumerableConverter(sh, ctx)

	case shape.KindDictionary:
		return buildDictionaryConverter(sh, ctx)

	case shape.KindObject:
		return buildObjectConverter(sh, ctx)

	case shape.KindUnion:
		return buildUnionConverter(sh, ctx)

	case shape.KindSurrogate:
		return buildSurrogateConverter(sh, ctx)

	default:
		return nil, notSupported(sh.GoType.String(), "unrecognized shape kind")
	}
}

// nullableConverter handles the Nullable shape kind: write nil for an absent
// value (a nil pointer), else delegate to the inner converter on the
// pointed-to value; on read, nil token yields a nil pointer, any other
// token delegates then wraps the result in a new pointer.
type nullableConverter struct {
	elemType reflect.Type
	inner    Converter
}

func buildNullableConverter(sh shape.Shape, ctx *Context) (Converter, error) {
	inner, err := ctx.GetConverter(sh.Element.GoType)
	if err != nil {
		return nil, err
	}
	return &nullableConverter{elemType: sh.Element.GoType, inner: inner}, nil
}

func (c *nullableConverter) Write(w *Writer, v reflect.Value, ctx *Context) error {
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return w.WriteNil()
	}
	target := v
	if v.Kind() == reflect.Ptr {
		target = v.Elem()
	}
	return c.inner.Write(w, target, ctx)
}

func (c *nullableConverter) Read(r *Reader, ctx *Context) (reflect.Value, error) {
	b, err := r.PeekFormat()
	if err != nil {
		return reflect.Value{}, err
	}
	if b == formatNil {
		if err := r.DecodeNil(); err != nil {
			return reflect.Value{}, err
		}
		return reflect.Zero(reflect.PtrTo(c.elemType)), nil
	}
	inner, err := c.inner.Read(r, ctx)
	if err != nil {
		return reflect.Value{}, err
	}
	ptr := reflect.New(c.elemType)
	ptr.Elem().Set(inner)
	return ptr, nil
}

func (c *nullableConverter) PrefersAsync() bool { return c.inner.PrefersAsync() }

// enumConverter handles the Enum shape kind: serialize as the underlying
// integer by default, or as the declared name when EnumAsString is set
// and the value has one. Reads accept either form unconditionally. The
// underlying type may be any signed or unsigned integer kind; names are
// keyed by the value widened to int64, which is lossless for every
// representable enum value of a width the kinds below allow.
type enumConverter struct {
	goType   reflect.Type
	names    map[int64]string
	values   map[string]int64
	bits     int
	unsigned bool
}

func buildEnumConverter(sh shape.Shape) (Converter, error) {
	bits := 64
	unsigned := false
	if sh.GoType != nil {
		switch sh.GoType.Kind() {
		case reflect.Int8:
			bits = 8
		case reflect.Int16:
			bits = 16
		case reflect.Int32:
			bits = 32
		case reflect.Uint8:
			bits, unsigned = 8, true
		case reflect.Uint16:
			bits, unsigned = 16, true
		case reflect.Uint32:
			bits, unsigned = 32, true
		case reflect.Uint, reflect.Uint64, reflect.Uintptr:
			unsigned = true
		}
	}
	return &enumConverter{
		goType:   sh.GoType,
		names:    sh.EnumNames,
		values:   sh.EnumValues,
		bits:     bits,
		unsigned: unsigned,
	}, nil
}

func (c *enumConverter) Write(w *Writer, v reflect.Value, ctx *Context) error {
	if c.unsigned {
		u := v.Uint()
		if ctx.Options().EnumAsString {
			if name, ok := c.names[int64(u)]; ok {
				return w.WriteString(name)
			}
		}
		return w.WriteUint(u)
	}
	n := v.Int()
	if ctx.Options().EnumAsString {
		if name, ok := c.names[n]; ok {
			return w.WriteString(name)
		}
	}
	return w.WriteInt(n)
}

func (c *enumConverter) Read(r *Reader, ctx *Context) (reflect.Value, error) {
	b, err := r.PeekFormat()
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.New(c.goType).Elem()
	if b == formatStr8 || b == formatStr16 || b == formatStr32 || isFixStr(b) {
		s, err := r.DecodeString()
		if err != nil {
			return reflect.Value{}, err
		}
		v, ok := c.values[s]
		if !ok {
			return reflect.Value{}, unknownUnionDiscriminator(s)
		}
		if c.unsigned {
			out.SetUint(uint64(v))
		} else {
			out.SetInt(v)
		}
		return out, nil
	}
	if c.unsigned {
		u, err := r.DecodeUint(c.bits)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetUint(u)
		return out, nil
	}
	n, err := r.DecodeInt(c.bits)
	if err != nil {
		return reflect.Value{}, err
	}
	out.SetInt(n)
	return out, nil
}

func (c *enumConverter) PrefersAsync() bool { return false }

// enumerableConverter handles the Enumerable shape kind: write an array header
// of the known count, then each element; on read, read an array header,
// then n elements into a freshly allocated slice.
type enumerableConverter struct {
	sliceType reflect.Type
	elem      Converter
}

func buildEnumerableConverter(sh shape.Shape, ctx *Context) (Converter, error) {
	elem, err := ctx.GetConverter(sh.Element.GoType)
	if err != nil {
		return nil, err
	}
	return &enumerableConverter{sliceType: sh.GoType, elem: elem}, nil
}

func (c *enumerableConverter) Write(w *Writer, v reflect.Value, ctx *Context) error {
	if err := ctx.DepthStep(); err != nil {
		return err
	}
	defer ctx.DepthRelease()

	n := v.Len()
	if err := w.WriteArrayHeader(n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := c.elem.Write(w, v.Index(i), ctx); err != nil {
			return wrapPath(err, arrayPathSegment(i))
		}
	}
	return nil
}

func (c *enumerableConverter) Read(r *Reader, ctx *Context) (reflect.Value, error) {
	if err := ctx.DepthStep(); err != nil {
		return reflect.Value{}, err
	}
	defer ctx.DepthRelease()

	n, err := r.DecodeArrayHeader()
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.MakeSlice(c.sliceType, n, n)
	for i := 0; i < n; i++ {
		v, err := c.elem.Read(r, ctx)
		if err != nil {
			return reflect.Value{}, wrapPath(err, arrayPathSegment(i))
		}
		out.Index(i).Set(v)
	}
	return out, nil
}

func (c *enumerableConverter) PrefersAsync() bool { return c.elem.PrefersAsync() }

// dictionaryConverter handles the Dictionary shape kind: write a map header of
// the count then interleaved key/value pairs; on read, build the target
// map using the shape's comparer, if any, to normalize keys.
type dictionaryConverter struct {
	mapType  reflect.Type
	key      Converter
	value    Converter
	comparer shape.Comparer
}

func buildDictionaryConverter(sh shape.Shape, ctx *Context) (Converter, error) {
	key, err := ctx.GetConverter(sh.KeyShape.GoType)
	if err != nil {
		return nil, err
	}
	value, err := ctx.GetConverter(sh.ValueShape.GoType)
	if err != nil {
		return nil, err
	}
	comparer := sh.Comparer
	if comparer == nil && ctx.Options().ComparerProvider != nil {
		comparer = ctx.Options().ComparerProvider(sh.KeyShape.GoType)
	}
	return &dictionaryConverter{mapType: sh.GoType, key: key, value: value, comparer: comparer}, nil
}

func (c *dictionaryConverter) Write(w *Writer, v reflect.Value, ctx *Context) error {
	if err := ctx.DepthStep(); err != nil {
		return err
	}
	defer ctx.DepthRelease()

	keys := v.MapKeys()
	if err := w.WriteMapHeader(len(keys)); err != nil {
		return err
	}
	for _, k := range keys {
		if err := c.key.Write(w, k, ctx); err != nil {
			return err
		}
		if err := c.value.Write(w, v.MapIndex(k), ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *dictionaryConverter) Read(r *Reader, ctx *Context) (reflect.Value, error) {
	if err := ctx.DepthStep(); err != nil {
		return reflect.Value{}, err
	}
	defer ctx.DepthRelease()

	n, err := r.DecodeMapHeader()
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.MakeMapWithSize(c.mapType, n)
	for i := 0; i < n; i++ {
		k, err := c.key.Read(r, ctx)
		if err != nil {
			return reflect.Value{}, err
		}
		v, err := c.value.Read(r, ctx)
		if err != nil {
			return reflect.Value{}, err
		}
		// A custom comparer folds keys it considers equal onto the first
		// spelling seen, so the built map honors the caller's equality
		// rather than Go's.
		if c.comparer != nil {
			canonical := k
			for _, existing := range out.MapKeys() {
				if c.comparer.Equal(existing.Interface(), k.Interface()) {
					canonical = existing
					break
				}
			}
			out.SetMapIndex(canonical, v)
			continue
		}
		out.SetMapIndex(k, v)
	}
	return out, nil
}

func (c *dictionaryConverter) PrefersAsync() bool {
	return c.key.PrefersAsync() || c.value.PrefersAsync()
}

// surrogateConverter handles the Surrogate shape kind: apply the declared
// transform then delegate to the transformed value's converter.
type surrogateConverter struct {
	goType    reflect.Type
	surrogate Converter
	to        func(reflect.Value) reflect.Value
	from      func(reflect.Value) reflect.Value
}

func buildSurrogateConverter(sh shape.Shape, ctx *Context) (Converter, error) {
	surrogate, err := ctx.GetConverter(sh.Element.GoType)
	if err != nil {
		return nil, err
	}
	return &surrogateConverter{
		goType:    sh.GoType,
		surrogate: surrogate,
		to:        sh.To,
		from:      sh.From,
	}, nil
}

func (c *surrogateConverter) Write(w *Writer, v reflect.Value, ctx *Context) error {
	return c.surrogate.Write(w, c.to(v), ctx)
}

func (c *surrogateConverter) Read(r *Reader, ctx *Context) (reflect.Value, error) {
	v, err := c.surrogate.Read(r, ctx)
	if err != nil {
		return reflect.Value{}, err
	}
	return c.from(v), nil
}

func (c *surrogateConverter) PrefersAsync() bool { return c.surrogate.PrefersAsync() }

func arrayPathSegment(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}
