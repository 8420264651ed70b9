// Package shape describes the externally supplied type-shape IR that
// drives converter dispatch: a separately generated description of a
// user type's structure that the codec consumes but never computes
// itself. This package defines
// only the tagged-union description itself; a reflection-based default
// producer of it lives in the sibling reflectshape package, and any code
// generator or hand-written witness can supply shapes the same way.
package shape

import "reflect"

// Kind identifies which case of the type-shape tagged union a Shape
// represents.
type Kind int

const (
	// KindNone means no shape could be determined for the type; dispatch
	// must fail at construction time with NotSupported.
	KindNone Kind = iota
	KindObject
	KindEnumerable
	KindDictionary
	KindNullable
	KindEnum
	KindSurrogate
	KindUnion
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "Object"
	case KindEnumerable:
		return "Enumerable"
	case KindDictionary:
		return "Dictionary"
	case KindNullable:
		return "Nullable"
	case KindEnum:
		return "Enum"
	case KindSurrogate:
		return "Surrogate"
	case KindUnion:
		return "Union"
	default:
		return "None"
	}
}

// ConstructionStrategy identifies how an Object shape's values are built
// on deserialize.
type ConstructionStrategy int

const (
	// ConstructDefaultThenSet allocates a zero value and sets properties
	// one at a time.
	ConstructDefaultThenSet ConstructionStrategy = iota
	// ConstructAllArgs calls a constructor taking every property as a
	// positional argument, in declared order.
	ConstructAllArgs
	// ConstructBuilder accumulates properties into an intermediate
	// builder value, then calls a Build step.
	ConstructBuilder
)

// Property describes one member of an Object shape.
type Property struct {
	// Name is the Go member name; Shape.Name() normalizes it through a
	// NamingPolicy when no ExplicitName is set.
	Name string

	// ExplicitName, if non-empty, is used verbatim instead of a
	// normalized Name.
	ExplicitName string

	// Key, if non-nil, gives this property's integer position for the
	// object-as-array protocol. An Object shape uses
	// object-as-array if and only if any property has a non-nil Key.
	Key *int

	// Type is the property's static type, used to look up its converter.
	Type reflect.Type

	// Required marks a property that must be bound on read or the decode
	// fails with MissingRequiredProperty.
	Required bool

	// HasDefault and Default describe the value used when the property is
	// omitted from the wire and Required is false.
	HasDefault bool
	Default    interface{}

	// Get reads the property's current value out of a constructed Go
	// value (addressable, for ConstructDefaultThenSet).
	Get func(owner reflect.Value) reflect.Value

	// Set writes a decoded value into a constructed Go value. Nil for
	// construction strategies that bind positionally instead.
	Set func(owner reflect.Value, v reflect.Value)

	// Ignored marks a property excluded from serialization entirely
	// and never written.
	Ignored bool
}

// UnionMember describes one alternative of a Union shape.
type UnionMember struct {
	// Discriminator is the configured integer alias or type name written
	// as the union's first array element. Unused by the
	// shape-based variant, which instead distinguishes members by
	// RequiredProperties.
	Discriminator interface{}

	Type Type

	// RequiredProperties lists the member's required property names, used
	// by the shape-based decision tree.
	RequiredProperties []string
}

// Shape is the tagged-union type-shape description. Exactly the fields
// relevant to Kind are meaningful; one struct tagged by Kind rather than
// one Go type per kind, since dispatch switches on Kind anyway.
type Shape struct {
	Kind Kind

	// GoType is the reflect.Type this shape describes. Used as half of
	// the converter cache key.
	GoType reflect.Type

	// Object fields.
	Properties  []Property
	Strategy    ConstructionStrategy
	Constructor func(args []reflect.Value) reflect.Value

	// Enumerable / Nullable / Surrogate-to fields: the element/inner type's
	// own shape.
	Element *Shape

	// Dictionary fields.
	KeyShape   *Shape
	ValueShape *Shape
	Comparer   Comparer

	// Enum fields.
	Underlying *Shape // the enum's backing integer shape
	EnumNames  map[int64]string
	EnumValues map[string]int64

	// Surrogate fields: From converts a decoded surrogate value back to
	// GoType; To converts a GoType value to the surrogate representation
	// before writing.
	From func(v reflect.Value) reflect.Value
	To   func(v reflect.Value) reflect.Value

	// Union fields.
	Members []UnionMember

	// NoneReason explains why KindNone was produced, surfaced in the
	// NotSupported error message.
	NoneReason string
}

// Type is implemented by anything that can produce a Shape for itself,
// the seam a code generator or hand-written witness implements (see the
// package doc's reference to "witness").
type Type interface {
	Shape() Shape
}

// Comparer is the single structural-equality/hash helper used wherever a
// custom equality is needed: dictionary keys and, were it ever required,
// deduplicating union members.
type Comparer interface {
	Equal(a, b interface{}) bool
	Hash(v interface{}) uint64
}

// Provider supplies a Shape for a reflect.Type that did not come with a
// Type witness of its own: the registry seam between the codec and
// whatever generates shape descriptions.
type Provider interface {
	ShapeOf(t reflect.Type) (Shape, error)
}
