package msgpack

import (
	"reflect"

	"github.com/richinsley/msgpack/shape"
)

// object.go implements the object-as-map and object-as-array
// protocols, selected per Object shape by whether any property declares
// an explicit integer key.

type boundProperty struct {
	prop shape.Property
	name PreformattedString
}

// objectMapConverter implements the object-as-map protocol.
type objectMapConverter struct {
	goType      reflect.Type
	properties  []boundProperty
	byName      map[string]int
	required    []int
	constructor func(args []reflect.Value) reflect.Value
	strategy    shape.ConstructionStrategy
	async       bool
}

// objectArrayConverter implements the object-as-array protocol.
type objectArrayConverter struct {
	goType      reflect.Type
	byIndex     []*shape.Property // nil entries mean "no property claims this index"
	constructor func(args []reflect.Value) reflect.Value
	strategy    shape.ConstructionStrategy
	async       bool
}

func buildObjectConverter(sh shape.Shape, ctx *Context) (Converter, error) {
	usesArray := false
	for _, p := range sh.Properties {
		if p.Key != nil {
			usesArray = true
			break
		}
	}

	if usesArray {
		return buildObjectArrayConverter(sh, ctx)
	}
	return buildObjectMapConverter(sh, ctx)
}

func buildObjectMapConverter(sh shape.Shape, ctx *Context) (Converter, error) {
	policy := ctx.Options().NamingPolicy
	c := &objectMapConverter{
		goType:      sh.GoType,
		byName:      make(map[string]int),
		constructor: sh.Constructor,
		strategy:    sh.Strategy,
	}

	for _, p := range sh.Properties {
		if p.Ignored {
			continue
		}
		name := p.ExplicitName
		if name == "" {
			name = normalizeName(p.Name, policy)
		}
		pre := ctx.cache.strings.Get(name)
		c.properties = append(c.properties, boundProperty{prop: p, name: pre})
		idx := len(c.properties) - 1
		c.byName[name] = idx
		if p.Required {
			c.required = append(c.required, idx)
		}

		conv, err := ctx.GetConverter(p.Type)
		if err != nil {
			return nil, err
		}
		if conv.PrefersAsync() {
			c.async = true
		}
	}
	return c, nil
}

func (c *objectMapConverter) Write(w *Writer, v reflect.Value, ctx *Context) error {
	if err := ctx.DepthStep(); err != nil {
		return err
	}
	defer ctx.DepthRelease()

	serializeDefaults := ctx.Options().SerializeDefaultValues

	type pending struct {
		name PreformattedString
		val  reflect.Value
		conv Converter
	}
	var items []pending

	for _, bp := range c.properties {
		val := bp.prop.Get(v)
		if bp.prop.HasDefault && !serializeDefaults && valuesEqual(val, bp.prop.Default) {
			continue
		}
		conv, err := ctx.GetConverter(bp.prop.Type)
		if err != nil {
			return err
		}
		items = append(items, pending{name: bp.name, val: val, conv: conv})
	}

	if err := w.WriteMapHeader(len(items)); err != nil {
		return err
	}
	for _, it := range items {
		if err := w.WriteRaw(it.name.MsgpackForm); err != nil {
			return err
		}
		if err := it.conv.Write(w, it.val, ctx); err != nil {
			return wrapPath(err, "."+it.name.Text)
		}
	}
	return nil
}

func (c *objectMapConverter) Read(r *Reader, ctx *Context) (reflect.Value, error) {
	if err := ctx.DepthStep(); err != nil {
		return reflect.Value{}, err
	}
	defer ctx.DepthRelease()

	n, err := r.DecodeMapHeader()
	if err != nil {
		return reflect.Value{}, err
	}

	bound := make([]bool, len(c.properties))
	values := make([]reflect.Value, len(c.properties))
	seen := make(map[string]bool, n)
	rejectDup := ctx.Options().RejectDuplicateProperties

	for i := 0; i < n; i++ {
		key, err := c.readKey(r, ctx)
		if err != nil {
			return reflect.Value{}, err
		}
		if rejectDup && seen[key] {
			return reflect.Value{}, duplicateProperty(key)
		}
		seen[key] = true

		idx, known := c.byName[key]
		if !known {
			// +1: the skipped value's own level does not consume budget,
			// so a scalar under an unknown key still skips at max depth.
			if err := r.Skip(ctx.Options().MaxDepth - ctx.depth + 1); err != nil {
				return reflect.Value{}, err
			}
			continue
		}
		bp := c.properties[idx]
		conv, err := ctx.GetConverter(bp.prop.Type)
		if err != nil {
			return reflect.Value{}, err
		}
		val, err := conv.Read(r, ctx)
		if err != nil {
			return reflect.Value{}, wrapPath(err, "."+key)
		}
		values[idx] = val
		bound[idx] = true
	}

	for _, idx := range c.required {
		if !bound[idx] {
			return reflect.Value{}, missingRequiredProperty(c.properties[idx].name.Text)
		}
	}
	for idx, bp := range c.properties {
		if !bound[idx] && bp.prop.HasDefault {
			values[idx] = reflect.ValueOf(bp.prop.Default)
			bound[idx] = true
		}
	}

	if c.strategy == shape.ConstructAllArgs && c.constructor != nil {
		args := make([]reflect.Value, len(c.properties))
		for idx, bp := range c.properties {
			if bound[idx] {
				args[idx] = values[idx]
			} else {
				args[idx] = reflect.Zero(bp.prop.Type)
			}
		}
		return c.constructor(args), nil
	}

	out := reflect.New(c.goType).Elem()
	for idx, bp := range c.properties {
		if bound[idx] && bp.prop.Set != nil {
			bp.prop.Set(out, values[idx])
		}
	}
	return out, nil
}

// readKey reads the next map key. With InternStrings set, known property
// names are matched byte-for-byte against their preformatted forms so no
// heap string is allocated per key; unknown keys fall back to a plain
// string decode.
func (c *objectMapConverter) readKey(r *Reader, ctx *Context) (string, error) {
	if ctx.Options().InternStrings {
		for j := range c.properties {
			ok, err := r.TryMatch(c.properties[j].name)
			if err != nil {
				return "", err
			}
			if ok {
				return c.properties[j].name.Text, nil
			}
		}
	}
	return r.DecodeString()
}

func (c *objectMapConverter) PrefersAsync() bool { return c.async }

func buildObjectArrayConverter(sh shape.Shape, ctx *Context) (Converter, error) {
	maxKey := -1
	for _, p := range sh.Properties {
		if p.Key != nil && *p.Key > maxKey {
			maxKey = *p.Key
		}
	}
	c := &objectArrayConverter{
		goType:      sh.GoType,
		byIndex:     make([]*shape.Property, maxKey+1),
		constructor: sh.Constructor,
		strategy:    sh.Strategy,
	}
	props := make([]shape.Property, len(sh.Properties))
	copy(props, sh.Properties)
	for i := range props {
		p := &props[i]
		if p.Key == nil {
			continue
		}
		c.byIndex[*p.Key] = p
		conv, err := ctx.GetConverter(p.Type)
		if err != nil {
			return nil, err
		}
		if conv.PrefersAsync() {
			c.async = true
		}
	}

	// A constructor parameter that cannot be fed from
	// any declared key/property is an unsupported object shape, reported
	// at construction time.
	if c.strategy == shape.ConstructAllArgs {
		for _, p := range c.byIndex {
			if p == nil {
				return nil, notSupported(sh.GoType.String(), "constructor parameter has no matching declared key")
			}
		}
	}
	return c, nil
}

func (c *objectArrayConverter) Write(w *Writer, v reflect.Value, ctx *Context) error {
	if err := ctx.DepthStep(); err != nil {
		return err
	}
	defer ctx.DepthRelease()

	if err := w.WriteArrayHeader(len(c.byIndex)); err != nil {
		return err
	}
	for i, p := range c.byIndex {
		if p == nil {
			if err := w.WriteNil(); err != nil {
				return err
			}
			continue
		}
		conv, err := ctx.GetConverter(p.Type)
		if err != nil {
			return err
		}
		if err := conv.Write(w, p.Get(v), ctx); err != nil {
			return wrapPath(err, arrayPathSegment(i))
		}
	}
	return nil
}

func (c *objectArrayConverter) Read(r *Reader, ctx *Context) (reflect.Value, error) {
	if err := ctx.DepthStep(); err != nil {
		return reflect.Value{}, err
	}
	defer ctx.DepthRelease()

	n, err := r.DecodeArrayHeader()
	if err != nil {
		return reflect.Value{}, err
	}

	values := make([]reflect.Value, len(c.byIndex))
	for i := 0; i < n; i++ {
		var p *shape.Property
		if i < len(c.byIndex) {
			p = c.byIndex[i]
		}
		if p == nil {
			// +1: the skipped value's own level does not consume budget,
			// so a scalar under an unknown key still skips at max depth.
			if err := r.Skip(ctx.Options().MaxDepth - ctx.depth + 1); err != nil {
				return reflect.Value{}, err
			}
			continue
		}
		conv, err := ctx.GetConverter(p.Type)
		if err != nil {
			return reflect.Value{}, err
		}
		v, err := conv.Read(r, ctx)
		if err != nil {
			return reflect.Value{}, wrapPath(err, arrayPathSegment(i))
		}
		values[i] = v
	}

	if c.strategy == shape.ConstructAllArgs && c.constructor != nil {
		for i, p := range c.byIndex {
			if p != nil && !values[i].IsValid() {
				values[i] = reflect.Zero(p.Type)
			}
		}
		return c.constructor(values), nil
	}

	out := reflect.New(c.goType).Elem()
	for i, p := range c.byIndex {
		if p != nil && values[i].IsValid() && p.Set != nil {
			p.Set(out, values[i])
		}
	}
	return out, nil
}

func (c *objectArrayConverter) PrefersAsync() bool { return c.async }

// valuesEqual reports whether a reflect.Value equals a plain Go default
// value, used for the SerializeDefaultValues == false skip path.
// Uncomparable types (slices, maps) cannot use ==; for those, "equal to
// default" means both sides are their type's zero value.
func valuesEqual(v reflect.Value, def interface{}) bool {
	if !v.IsValid() {
		return def == nil
	}
	if !v.Type().Comparable() {
		if !v.IsZero() {
			return false
		}
		return def == nil || reflect.ValueOf(def).IsZero()
	}
	return v.Interface() == def
}
