package msgpack

import (
	"context"
	"reflect"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/richinsley/msgpack/shape"
)

// Context carries the per-operation state of one serialization: a depth
// counter, a cancellation signal, the converter cache, and the options
// snapshot. It is created at the outer Serialize/Deserialize call,
// threaded by reference through the call graph, and dropped at return.
type Context struct {
	opts Options

	depth int

	cancel context.Context

	provider shape.Provider

	cache *converterCache

	// Logger is used only on the streaming path; nil means
	// disabled, which is also the zero value, so a Context built without
	// NewContext's defaulting still costs nothing extra on the sync path.
	Logger *logrus.Logger

	// bound reports whether shape-driven converter lookup is available;
	// false until a provider has been attached. GetConverter on a
	// non-scalar type with no provider bound fails with InvalidOperation.
	bound bool

	// building tracks the cache keys whose converters are under
	// construction on this Context right now. A composite converter
	// recursing through its own component shapes re-requests its own key;
	// handing back the forwarding placeholder here is what breaks shape
	// cycles instead of deadlocking inside the single-flight build.
	building map[cacheKey]bool
}

// converterCache is the shared, concurrency-safe store behind
// Context.GetConverter: readers see either the cycle-breaking
// placeholder or the fully built converter, never a half-built one.
// Construction for any given key is single-flight.
type converterCache struct {
	mu      sync.Mutex
	entries *lru.Cache[cacheKey, *cacheEntry]

	// strings is the preformatted-string cache shared by every object
	// converter built through this cache. It lives here rather than at
	// package level so no process-wide mutable state exists; its
	// contents are computed during converter construction and read-only
	// thereafter.
	strings *StringCache
}

type cacheKey struct {
	typ  reflect.Type
	opts [5]int
}

type cacheEntry struct {
	once      sync.Once
	converter Converter
	fwd       *forwardingConverter
	err       error
}

func newConverterCache(size int) *converterCache {
	if size <= 0 {
		size = 1024
	}
	c, _ := lru.New[cacheKey, *cacheEntry](size)
	return &converterCache{entries: c, strings: NewStringCache(4096)}
}

// NewContext builds a Context ready to drive one top-level
// Serialize/Deserialize/SerializeAsync/DeserializeAsync call. The
// converter cache it creates lives only as long as the Context; use a
// Serializer to share a cache across operations.
func NewContext(cancel context.Context, provider shape.Provider, opts ...Option) *Context {
	return newContextWithCache(cancel, provider, newConverterCache(1024), opts...)
}

func newContextWithCache(cancel context.Context, provider shape.Provider, cache *converterCache, opts ...Option) *Context {
	if cancel == nil {
		cancel = context.Background()
	}
	return &Context{
		opts:     NewOptions(opts...),
		cancel:   cancel,
		provider: provider,
		cache:    cache,
		bound:    provider != nil,
	}
}

// Options returns the options snapshot bound to this Context.
func (c *Context) Options() Options { return c.opts }

// DepthStep increments the depth counter, failing with
// DepthLimitExceeded when it would exceed MaxDepth, and with Cancelled if
// the Context's cancellation token has already fired. Every
// recursive descent through a composite converter must call DepthStep on
// the way in and, once it succeeds, a deferred DepthRelease on the way
// out.
func (c *Context) DepthStep() error {
	select {
	case <-c.cancel.Done():
		return newError(CodeCancelled)
	default:
	}
	c.depth++
	if c.depth > c.opts.MaxDepth {
		c.depth--
		return newError(CodeDepthLimitExceeded)
	}
	return nil
}

// DepthRelease gives back one level of depth budget after a recursive
// call returns, so sibling subtrees (not just nested ones) are bounded by
// MaxDepth rather than by the total node count across the whole value.
func (c *Context) DepthRelease() {
	if c.depth > 0 {
		c.depth--
	}
}

// Cancelled reports whether the bound cancellation token has fired.
func (c *Context) Cancelled() bool {
	select {
	case <-c.cancel.Done():
		return true
	default:
		return false
	}
}

// GetConverter returns the converter for t, building it via dispatch if
// it is not already cached. With no shape provider bound, only overrides,
// the fixed-protocol types, registered extensions and scalar leaves
// resolve; any other type fails with InvalidOperation.
func (c *Context) GetConverter(t reflect.Type) (Converter, error) {
	// The caller's override list beats every other tier.
	if conv, ok := c.opts.Converters[t]; ok {
		return conv, nil
	}
	// Fixed wire protocols never consult the shape provider: RawMessagePack,
	// the dynamic Value tree, time.Time (the timestamp extension), and
	// []byte (bin) each have exactly one encoding regardless of options.
	// Registered extensions are the caller's own fixed protocols and take
	// the same tier.
	switch t {
	case rawMessagePackType:
		return rawConverter{}, nil
	case dynamicValueType:
		return dynamicConverter{}, nil
	case timeType:
		return timeConverter{}, nil
	case bytesType:
		return bytesConverter{}, nil
	}
	if c.opts.Extensions != nil {
		if conv, ok := c.opts.Extensions.converterFor(t); ok {
			return conv, nil
		}
	}
	if !c.bound {
		// Scalar leaves still work without a provider; anything needing a
		// shape description does not.
		if conv := primitiveConverter(t); conv != nil {
			return conv, nil
		}
		return nil, newErrorf(CodeInvalidOperation, "GetConverter called with no shape provider bound")
	}
	key := cacheKey{typ: t, opts: c.opts.fingerprint()}

	c.cache.mu.Lock()
	entry, ok := c.cache.entries.Get(key)
	if !ok {
		entry = &cacheEntry{fwd: &forwardingConverter{}}
		c.cache.entries.Add(key, entry)
	}
	// entry.converter is written under this same lock by whichever
	// goroutine wins the single-flight build, so this early read never
	// observes a half-built converter.
	built := entry.converter
	c.cache.mu.Unlock()

	if built != nil {
		return built, nil
	}

	// Re-entered from inside this key's own build (a cyclic shape graph):
	// resolve through the placeholder, which patches to the finished
	// converter once the outer build completes.
	if c.building[key] {
		return entry.fwd, nil
	}
	if c.building == nil {
		c.building = make(map[cacheKey]bool)
	}
	c.building[key] = true

	var buildErr error
	entry.once.Do(func() {
		sh, err := c.provider.ShapeOf(t)
		if err != nil {
			buildErr = err
			entry.err = err
			return
		}
		// A provider that has nothing to say about a scalar kind (shape
		// None) falls back to the built-in leaf converter; a provider that
		// DOES describe it (e.g. an Enum shape for a named integer type)
		// always wins over the leaf.
		if sh.Kind == shape.KindNone {
			if prim := primitiveConverter(t); prim != nil {
				entry.fwd.resolve(prim)
				c.cache.mu.Lock()
				entry.converter = prim
				c.cache.mu.Unlock()
				return
			}
		}
		conv, err := buildConverter(sh, c, entry.fwd)
		if err != nil {
			buildErr = err
			entry.err = err
			return
		}
		entry.fwd.resolve(conv)
		c.cache.mu.Lock()
		entry.converter = conv
		c.cache.mu.Unlock()
	})
	delete(c.building, key)

	if entry.converter != nil {
		return entry.converter, nil
	}
	if entry.err != nil {
		return nil, entry.err
	}
	return entry.fwd, buildErr
}
