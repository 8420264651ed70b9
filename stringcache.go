package msgpack

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// stringcache.go implements a cache of preformatted short strings
// (typically property names), keyed by text, so that writers emit
// pre-encoded bytes directly and readers can try-match a wire string
// token against a candidate without allocating a heap string.
// Backed by hashicorp/golang-lru/v2, the same dependency used for the
// converter cache's secondary storage.

// PreformattedString is an immutable {text, utf8-bytes, msgpack-bytes}
// record. Equality (Matches) is defined on Text; two PreformattedStrings
// built independently from the same text compare equal.
type PreformattedString struct {
	Text        string
	UTF8        []byte
	MsgpackForm []byte
}

func newPreformattedString(text string) PreformattedString {
	utf8 := []byte(text)
	return PreformattedString{
		Text:        text,
		UTF8:        utf8,
		MsgpackForm: appendString(nil, text),
	}
}

// StringCache is a bounded cache of PreformattedString records.
type StringCache struct {
	entries *lru.Cache[string, PreformattedString]
}

// NewStringCache builds a StringCache holding up to size entries.
func NewStringCache(size int) *StringCache {
	if size <= 0 {
		size = 512
	}
	c, _ := lru.New[string, PreformattedString](size)
	return &StringCache{entries: c}
}

// Get returns the PreformattedString for text, computing and caching it
// on first use.
func (c *StringCache) Get(text string) PreformattedString {
	if v, ok := c.entries.Get(text); ok {
		return v
	}
	v := newPreformattedString(text)
	c.entries.Add(text, v)
	return v
}

// Matches reports whether got is textually equal to p. Equality is on
// Text, never on how the bytes happened to be encoded; the wire-level
// allocation-free counterpart is Reader.TryMatch.
func (p PreformattedString) Matches(got string) bool {
	return p.Text == got
}
