package msgpack

import (
	"io"
	"reflect"

	"github.com/sirupsen/logrus"
)

// stream.go implements the streaming reader: a Reader whose
// InsufficientBuffer retries are satisfied by pulling more bytes from a
// ByteSource instead of returning the error to the caller: append
// bytes, retry the one token that came up short.

// StreamReader wraps a Reader over a Buffer fed incrementally by a
// ByteSource. Every decode call the underlying Reader makes transparently
// blocks-and-retries on CodeInsufficientBuffer by calling the bound
// ByteSource, so a Converter composed from ordinary Reader calls needs no
// awareness that it is running in streaming mode.
type StreamReader struct {
	r      *Reader
	buf    *Buffer
	source ByteSource
	ctx    *Context

	// asyncThreshold is Options.MaxAsyncBuffer, the pre-buffering
	// policy: once buf.Len() reaches this many bytes, ReadValue takes the
	// synchronous fast path; below it the call is recorded as async. No
	// bytes are fetched ahead of the decode on either path.
	asyncThreshold int

	// tookAsyncPath records whether the most recent ReadValue call entered
	// the async path (buffered bytes below threshold at entry, or a
	// mid-decode suspend occurred). Exposed via TookAsyncPath so the
	// pre-buffering decision is observable by tests.
	tookAsyncPath bool

	logger *logrus.Logger
}

// NewStreamReader builds a StreamReader. initial may be nil; it seeds the
// Buffer the same way NewBuffer does.
func NewStreamReader(source ByteSource, ctx *Context, initial []byte) *StreamReader {
	buf := NewBuffer(initial)
	s := &StreamReader{
		buf:            buf,
		source:         source,
		ctx:            ctx,
		asyncThreshold: ctx.Options().MaxAsyncBuffer,
		logger:         ctx.Logger,
	}
	reader := NewReader(buf)
	reader.replenish = s.replenish
	s.r = reader
	return s
}

// replenish is the Reader's suspension hook: it asks the ByteSource for
// more bytes, observing cancellation first (any suspension may observe
// the cancellation token), and appends whatever arrives. It
// reports CodeEmptyBuffer once the source is exhausted with nothing new
// to offer; that case is terminal.
func (s *StreamReader) replenish() error {
	if s.ctx.Cancelled() {
		if s.logger != nil {
			s.logger.Debug("msgpack: stream reader observed cancellation during suspend")
		}
		return newError(CodeCancelled)
	}
	s.tookAsyncPath = true
	if s.logger != nil {
		s.logger.Debug("msgpack: stream reader suspending for more bytes")
	}
	chunk, err := s.source.Next()
	if len(chunk) > 0 {
		s.buf.Append(chunk)
	}
	if err != nil {
		if err == io.EOF {
			if len(chunk) > 0 {
				return nil
			}
			return newError(CodeEmptyBuffer)
		}
		return err
	}
	if len(chunk) == 0 {
		return newError(CodeEmptyBuffer)
	}
	if s.logger != nil {
		s.logger.WithField("bytes", len(chunk)).Debug("msgpack: stream reader resumed")
	}
	return nil
}

// TookAsyncPath reports whether the most recent ReadValue call ever
// suspended (including the pre-buffering decision itself).
func (s *StreamReader) TookAsyncPath() bool { return s.tookAsyncPath }

// ReadValue decodes one top-level value of type t, applying the
// pre-buffering policy: when buf.Len() is already at least asyncThreshold,
// the decode is attempted as a synchronous fast path and only falls back
// to replenishing if it genuinely runs out mid-value (a value can always
// turn out larger than what was pre-buffered). Below the threshold,
// ReadValue is marked as having taken the async path before the first
// decode attempt even if that attempt happens to succeed without
// suspending: the dispatch decision, not just the outcome, is what
// TookAsyncPath reports.
func (s *StreamReader) ReadValue(t reflect.Type) (reflect.Value, error) {
	s.tookAsyncPath = false
	if s.buf.Len() < s.asyncThreshold {
		s.tookAsyncPath = true
	}
	conv, err := s.ctx.GetConverter(t)
	if err != nil {
		return reflect.Value{}, err
	}
	return conv.Read(s.r, s.ctx)
}

// Reader exposes the underlying synchronous-shaped Reader for callers that
// want to drive individual token decodes directly (e.g. a dynamic decode
// loop reading a stream of top-level values).
func (s *StreamReader) Reader() *Reader { return s.r }
