// Package reflectshape is the default shape.Provider: it derives a Shape
// for an arbitrary Go type by walking its reflect.Type, reading
// `msgpack:"name,omitempty"`-style struct tags the same way
// github.com/vmihailenco/msgpack parses them (via tagparser), rather than
// requiring every caller to hand-write a shape.Type witness. A witness
// still takes priority: ShapeOf checks for one before falling back to
// reflection.
package reflectshape

import (
	"reflect"
	"sync"

	"github.com/vmihailenco/tagparser/v2"

	"github.com/richinsley/msgpack/shape"
)

// Provider is a reflection-based shape.Provider, memoizing the Shape it
// derives for each distinct reflect.Type so repeated ShapeOf calls for the
// same type (one per GetConverter cache miss, typically just once) do not
// re-walk the struct fields.
type Provider struct {
	mu     sync.Mutex
	shapes map[reflect.Type]shape.Shape
}

// New returns a ready-to-use reflection-based Provider.
func New() *Provider {
	return &Provider{shapes: make(map[reflect.Type]shape.Shape)}
}

// ShapeOf implements shape.Provider. A type implementing shape.Type is
// asked for its own Shape directly: a type that can describe itself
// always wins over reflection.
func (p *Provider) ShapeOf(t reflect.Type) (shape.Shape, error) {
	p.mu.Lock()
	if sh, ok := p.shapes[t]; ok {
		p.mu.Unlock()
		return sh, nil
	}
	p.mu.Unlock()

	sh := p.derive(t)

	p.mu.Lock()
	p.shapes[t] = sh
	p.mu.Unlock()
	return sh, nil
}

func (p *Provider) derive(t reflect.Type) shape.Shape {
	if t.Implements(witnessType) {
		zero := reflect.Zero(t)
		return zero.Interface().(shape.Type).Shape()
	}
	if reflect.PtrTo(t).Implements(witnessType) {
		zero := reflect.New(t)
		return zero.Interface().(shape.Type).Shape()
	}

	switch t.Kind() {
	case reflect.Ptr:
		return shape.Shape{Kind: shape.KindNullable, GoType: t, Element: elemShape(p, t.Elem())}
	case reflect.Slice, reflect.Array:
		return shape.Shape{Kind: shape.KindEnumerable, GoType: t, Element: elemShape(p, t.Elem())}
	case reflect.Map:
		return shape.Shape{
			Kind:       shape.KindDictionary,
			GoType:     t,
			KeyShape:   elemShape(p, t.Key()),
			ValueShape: elemShape(p, t.Elem()),
		}
	case reflect.Struct:
		return p.structShape(t)
	default:
		return shape.Shape{Kind: shape.KindNone, GoType: t, NoneReason: "reflectshape: no default shape for kind " + t.Kind().String()}
	}
}

var witnessType = reflect.TypeOf((*shape.Type)(nil)).Elem()

// elemShape derives (and caches) the shape for a nested type the same way
// ShapeOf does for a top-level one, so Element/KeyShape/ValueShape benefit
// from the same memoization.
func elemShape(p *Provider, t reflect.Type) *shape.Shape {
	sh, _ := p.ShapeOf(t)
	return &sh
}

// structShape builds an Object shape from a struct's exported fields,
// honoring `msgpack:"name,omitempty"` tags the way vmihailenco/msgpack
// does: a `-` name excludes the field, an explicit name overrides
// normalization, and `omitempty` (mapped here to !Required, HasDefault,
// Default=zero value) lets the field be absent on the wire.
func (p *Provider) structShape(t reflect.Type) shape.Shape {
	var props []shape.Property
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}

		tagStr := f.Tag.Get("msgpack")
		tag := tagparser.Parse(tagStr)
		if tag.Name == "-" {
			continue
		}

		prop := shape.Property{
			Name:     f.Name,
			Type:     f.Type,
			Get:      fieldGetter(i),
			Set:      fieldSetter(i),
			Required: true,
		}
		if tag.Name != "" {
			prop.ExplicitName = tag.Name
		}
		if tag.HasOption("omitempty") {
			prop.Required = false
			prop.HasDefault = true
			prop.Default = reflect.Zero(f.Type).Interface()
		}
		props = append(props, prop)
	}

	return shape.Shape{
		Kind:       shape.KindObject,
		GoType:     t,
		Properties: props,
		Strategy:   shape.ConstructDefaultThenSet,
	}
}

func fieldGetter(i int) func(owner reflect.Value) reflect.Value {
	return func(owner reflect.Value) reflect.Value {
		return owner.Field(i)
	}
}

func fieldSetter(i int) func(owner reflect.Value, v reflect.Value) {
	return func(owner reflect.Value, v reflect.Value) {
		owner.Field(i).Set(v)
	}
}
