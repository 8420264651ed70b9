package msgpack

// options.go assembles the Options snapshot threaded through every
// Context. Plain functional options over a plain struct; no builder type
// or configuration framework.

import (
	"reflect"

	"github.com/richinsley/msgpack/shape"
)

// NamingPolicy controls how a struct member name is normalized into a
// wire property name when the shape does not declare an explicit name.
type NamingPolicy int

const (
	// NamingIdentity passes the member name through unchanged.
	NamingIdentity NamingPolicy = iota
	// NamingCamelCase lowercases the leading run of uppercase letters,
	// keeping the final one uppercase when followed by a lowercase letter.
	NamingCamelCase
	// NamingPascalCase uppercases only the first code point.
	NamingPascalCase
)

// Options is the immutable configuration snapshot captured on a Context
// at the start of a top-level operation.
type Options struct {
	// MaxDepth bounds recursion for both serialize and deserialize.
	// Chosen so ordinary object graphs survive comfortably
	// while pathological/adversarial nesting is rejected well before it
	// could exhaust the goroutine stack.
	MaxDepth int

	// MaxAsyncBuffer is the streaming reader's pre-buffering threshold:
	// once buffered-but-unconsumed bytes reach this count, the
	// streaming reader takes the synchronous fast path; below it the
	// ReadValue call is recorded as async (StreamReader.TookAsyncPath).
	// Both paths run the same converter, which pulls more bytes from the
	// ByteSource whenever a token comes up short.
	MaxAsyncBuffer int

	// NamingPolicy is applied to object properties with no explicit name.
	NamingPolicy NamingPolicy

	// InternStrings routes property-name decoding through the
	// preformatted-string cache's try-match path instead of
	// allocating a fresh string per read.
	InternStrings bool

	// SerializeDefaultValues controls whether properties equal to their
	// declared default are still written. Off (the default) skips them;
	// on writes every property regardless.
	SerializeDefaultValues bool

	// EnumAsString writes enum values as their declared names instead of
	// the underlying integer. Values with no declared name still fall back
	// to the integer form. Reads accept both forms regardless of this
	// setting.
	EnumAsString bool

	// RejectDuplicateProperties turns a repeated object-as-map key into
	// CodeDuplicateProperty instead of silently letting the later
	// occurrence win.
	RejectDuplicateProperties bool

	// PreserveReferences is reserved for future cyclic-value support; off
	// by default, and not implemented in this core (graphs of shapes may
	// cycle, but graphs of runtime values are not deduplicated).
	PreserveReferences bool

	// Extensions is consulted by Context.GetConverter before the bound
	// shape.Provider, the same tier RawMessagePack, time.Time and []byte
	// take. Nil means no registry is configured.
	Extensions *ExtensionRegistry

	// Converters overrides dispatch per type: a type present here uses the
	// given converter unconditionally, before any other tier is consulted.
	// Override sets should be fixed at Serializer construction; per-call
	// variation of this map is not distinguished by the converter cache
	// beyond its size.
	Converters map[reflect.Type]Converter

	// ComparerProvider supplies a custom equality comparer for dictionary
	// key types whose shapes do not declare one of their own.
	ComparerProvider func(t reflect.Type) shape.Comparer
}

const (
	defaultMaxDepth       = 64
	defaultMaxAsyncBuffer = 0
)

// DefaultOptions returns the baseline snapshot used when no Option is
// supplied.
func DefaultOptions() Options {
	return Options{
		MaxDepth:       defaultMaxDepth,
		MaxAsyncBuffer: defaultMaxAsyncBuffer,
		NamingPolicy:   NamingIdentity,
	}
}

// Option mutates an Options snapshot under construction.
type Option func(*Options)

// WithMaxDepth overrides the recursion guard.
func WithMaxDepth(n int) Option {
	return func(o *Options) { o.MaxDepth = n }
}

// WithMaxAsyncBuffer overrides the streaming reader's sync-fast-path
// threshold.
func WithMaxAsyncBuffer(n int) Option {
	return func(o *Options) { o.MaxAsyncBuffer = n }
}

// WithNamingPolicy overrides the default property-name normalization.
func WithNamingPolicy(p NamingPolicy) Option {
	return func(o *Options) { o.NamingPolicy = p }
}

// WithInternStrings turns on try-match decoding of property names against
// the preformatted-string cache.
func WithInternStrings(v bool) Option {
	return func(o *Options) { o.InternStrings = v }
}

// WithSerializeDefaultValues controls whether default-valued properties
// are still written.
func WithSerializeDefaultValues(v bool) Option {
	return func(o *Options) { o.SerializeDefaultValues = v }
}

// WithRejectDuplicateProperties turns on CodeDuplicateProperty for
// repeated object-as-map keys.
func WithRejectDuplicateProperties(v bool) Option {
	return func(o *Options) { o.RejectDuplicateProperties = v }
}

// WithEnumAsString writes enums by declared name instead of integer.
func WithEnumAsString(v bool) Option {
	return func(o *Options) { o.EnumAsString = v }
}

// WithExtensions binds a registry of custom extension-type converters.
func WithExtensions(reg *ExtensionRegistry) Option {
	return func(o *Options) { o.Extensions = reg }
}

// WithConverter overrides the converter used for t.
func WithConverter(t reflect.Type, c Converter) Option {
	return func(o *Options) {
		if o.Converters == nil {
			o.Converters = make(map[reflect.Type]Converter)
		}
		o.Converters[t] = c
	}
}

// WithComparerProvider supplies custom equality for dictionary keys.
func WithComparerProvider(p func(t reflect.Type) shape.Comparer) Option {
	return func(o *Options) { o.ComparerProvider = p }
}

// NewOptions builds an Options snapshot from DefaultOptions plus the given
// overrides, applied in order.
func NewOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

// fingerprint returns a value stable enough to key the converter cache on
// (shape identity, options). Only the fields that change converter shape
// need to participate; purely cosmetic fields (e.g. InternStrings) do
// not change which converter is correct, only how it runs.
func (o Options) fingerprint() [5]int {
	naming := int(o.NamingPolicy)
	serializeDefaults := 0
	if o.SerializeDefaultValues {
		serializeDefaults = 1
	}
	rejectDup := 0
	if o.RejectDuplicateProperties {
		rejectDup = 1
	}
	comparer := 0
	if o.ComparerProvider != nil {
		comparer = 1
	}
	return [5]int{naming, serializeDefaults, rejectDup, comparer, len(o.Converters)}
}
