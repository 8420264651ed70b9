package msgpack

import (
	"bytes"
	"time"
)

// reader.go is the synchronous segmented reader built on the Buffer
// window (segment.go) and the decode primitives (decode.go). It is the
// engine both Deserialize (a single already-complete buffer) and the
// streaming reader (stream.go, which retries atop the same primitives
// after replenishing) drive.

// Reader decodes MessagePack tokens from a Buffer window. All decode
// methods follow the same contract: on success they consume exactly the
// bytes of the token; on CodeInsufficientBuffer they consume nothing, so a
// caller may Append more data and retry the identical call.
//
// When replenish is non-nil (only the streaming reader, stream.go, sets
// it), run's retry loop becomes the streaming suspension point: a single
// logical token that comes up short calls replenish to fetch more bytes
// and re-attempts the SAME decode call, never an outer composite Read.
// This is what lets a streaming reader resume a partially-read Object or
// Union without re-decoding the tokens it already consumed: suspension
// happens inside one Reader call, never across several.
type Reader struct {
	buf       *Buffer
	replenish func() error
}

// NewReader wraps a Buffer for synchronous decoding. A Reader built this
// way never suspends: CodeInsufficientBuffer is returned to the caller
// immediately, matching "the synchronous path never blocks".
func NewReader(buf *Buffer) *Reader {
	return &Reader{buf: buf}
}

// view returns up to maxLen unconsumed bytes for a decode attempt. decode
// primitives report CodeInsufficientBuffer themselves when the view turns
// out to be too short for the token they found; the reader does not need
// to guess the token length up front.
func (r *Reader) view(maxLen int) []byte {
	return r.buf.Bytes(maxLen)
}

// run is the shared shape of every Reader method: call a decode*
// function against the full unconsumed window and, on success, advance the
// Buffer by exactly the bytes consumed. On CodeInsufficientBuffer, if a
// replenish hook is bound it fetches more bytes and retries the identical
// decode call from the token's start (the Buffer was never advanced);
// otherwise the error surfaces immediately.
func (r *Reader) run(decode func([]byte) (consumed int, err error)) error {
	for {
		consumed, err := decode(r.view(r.buf.Len()))
		if err == nil {
			r.buf.Consume(consumed)
			return nil
		}
		if r.replenish == nil || !IsCode(err, CodeInsufficientBuffer) {
			return err
		}
		if rerr := r.replenish(); rerr != nil {
			return rerr
		}
	}
}

// Len reports the number of unconsumed bytes.
func (r *Reader) Len() int { return r.buf.Len() }

// PeekFormat returns the leading format byte of the next token without
// consuming it. Used by the dynamic decoder (dynamic.go) and union
// dispatch (union.go) to branch before committing to a decode.
func (r *Reader) PeekFormat() (byte, error) {
	for {
		v := r.buf.Bytes(1)
		if len(v) != 0 {
			return v[0], nil
		}
		if r.replenish == nil {
			return 0, insufficientBuffer(0)
		}
		if err := r.replenish(); err != nil {
			return 0, err
		}
	}
}

func (r *Reader) DecodeNil() error {
	return r.run(func(b []byte) (int, error) { return decodeNil(b) })
}

func (r *Reader) DecodeBool() (v bool, err error) {
	err = r.run(func(b []byte) (int, error) {
		var n int
		v, n, err = decodeBool(b)
		return n, err
	})
	return v, err
}

func (r *Reader) DecodeInt(bits int) (v int64, err error) {
	err = r.run(func(b []byte) (int, error) {
		var n int
		v, n, err = decodeInt(b, bits)
		return n, err
	})
	return v, err
}

func (r *Reader) DecodeUint(bits int) (v uint64, err error) {
	err = r.run(func(b []byte) (int, error) {
		var n int
		v, n, err = decodeUint(b, bits)
		return n, err
	})
	return v, err
}

func (r *Reader) DecodeFloat32() (v float32, err error) {
	err = r.run(func(b []byte) (int, error) {
		var n int
		v, n, err = decodeFloat32(b)
		return n, err
	})
	return v, err
}

func (r *Reader) DecodeFloat64() (v float64, err error) {
	err = r.run(func(b []byte) (int, error) {
		var n int
		v, n, err = decodeFloat64(b)
		return n, err
	})
	return v, err
}

func (r *Reader) DecodeString() (s string, err error) {
	err = r.run(func(b []byte) (int, error) {
		var n int
		s, n, err = decodeString(b)
		return n, err
	})
	return s, err
}

func (r *Reader) DecodeBin() (data []byte, err error) {
	err = r.run(func(b []byte) (int, error) {
		var n int
		data, n, err = decodeBin(b)
		return n, err
	})
	return data, err
}

func (r *Reader) DecodeArrayHeader() (n int, err error) {
	err = r.run(func(b []byte) (int, error) {
		var c int
		n, c, err = decodeArrayHeader(b)
		return c, err
	})
	return n, err
}

func (r *Reader) DecodeMapHeader() (n int, err error) {
	err = r.run(func(b []byte) (int, error) {
		var c int
		n, c, err = decodeMapHeader(b)
		return c, err
	})
	return n, err
}

func (r *Reader) DecodeExtHeader() (extType int8, length int, err error) {
	err = r.run(func(b []byte) (int, error) {
		var c int
		extType, length, c, err = decodeExtHeader(b)
		return c, err
	})
	return extType, length, err
}

// DecodeExtBody reads exactly length raw bytes following an extension
// header decoded by DecodeExtHeader. The extension body carries no format
// byte of its own, so unlike the other Decode* methods this has no
// decode* counterpart in decode.go: it is a plain bounded copy, subject to
// the same InsufficientBuffer/replenish contract as every other token.
func (r *Reader) DecodeExtBody(length int) (data []byte, err error) {
	err = r.run(func(b []byte) (int, error) {
		if len(b) < length {
			return 0, insufficientBuffer(len(b))
		}
		data = append([]byte(nil), b[:length]...)
		return length, nil
	})
	return data, err
}

func (r *Reader) DecodeTimestamp() (tm time.Time, err error) {
	err = r.run(func(b []byte) (int, error) {
		var n int
		tm, n, err = decodeTimestamp(b)
		return n, err
	})
	return tm, err
}

// TryMatch reports whether the next token is exactly p's string, by
// comparing wire bytes against p.MsgpackForm without decoding to a heap
// string. The comparison works across segment boundaries. On a mismatch
// nothing is consumed; on a match exactly the token is consumed. Because
// the msgpack form includes the length header, a longer or shorter wire
// string always differs within the compared prefix.
func (r *Reader) TryMatch(p PreformattedString) (bool, error) {
	n := len(p.MsgpackForm)
	for {
		v := r.buf.Bytes(n)
		limit := len(v)
		if limit > n {
			limit = n
		}
		if !bytes.Equal(v[:limit], p.MsgpackForm[:limit]) {
			return false, nil
		}
		if len(v) >= n {
			r.buf.Consume(n)
			return true, nil
		}
		if r.replenish == nil {
			return false, insufficientBuffer(len(v))
		}
		if err := r.replenish(); err != nil {
			return false, err
		}
	}
}

// Skip discards the next complete value, recursing through containers up
// to maxDepth levels deep, and returns an error if that budget is
// exceeded (the bounded-recursion guarantee applies to skip just as much
// as to structured decode, since an attacker-controlled unknown-key value
// is exactly the case skip exists for).
func (r *Reader) Skip(maxDepth int) error {
	return r.run(func(b []byte) (int, error) { return skipValue(b, maxDepth) })
}

// DecodeRaw captures the bytes of the next complete value without
// interpreting them, for RawMessagePack (raw.go). The returned slice is
// borrowed from the underlying segment chain whenever the
// value lies entirely within one segment; ToOwned must be called before
// retaining it past the lifetime of that chain.
func (r *Reader) DecodeRaw(maxDepth int) (data []byte, err error) {
	err = r.run(func(b []byte) (int, error) {
		n, e := skipValue(b, maxDepth)
		if e == nil {
			data = b[:n]
		}
		return n, e
	})
	return data, err
}
