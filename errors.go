package msgpack

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code identifies the category of a serialization error. Callers that need
// to branch on failure type should compare against these constants rather
// than inspecting error strings.
type Code int

const (
	// CodeUnspecified is a generic structural failure with no more specific code.
	CodeUnspecified Code = iota

	// CodeInsufficientBuffer means a decode could not complete because the
	// segment sequence ran out of bytes mid-token. Only ever surfaces from
	// the low-level reader; the streaming layer (stream.go) converts it into
	// a suspend/replenish cycle, and Deserialize converts it into
	// CodeUnspecified if the sequence is known to be complete.
	CodeInsufficientBuffer

	// CodeEmptyBuffer means the segment sequence has no more bytes and no
	// more are coming; terminal.
	CodeEmptyBuffer

	// CodeUnexpectedToken means the leading byte did not match the type
	// being requested.
	CodeUnexpectedToken

	// CodeOverflow means an integer value does not fit in the requested
	// destination width.
	CodeOverflow

	// CodeInvalidUTF8 means string bytes failed UTF-8 validation.
	CodeInvalidUTF8

	// CodeMissingRequiredProperty means an object-as-map read completed
	// without binding a property marked required.
	CodeMissingRequiredProperty

	// CodeDuplicateProperty means the same property key appeared twice in
	// an object-as-map read and the active options reject duplicates.
	CodeDuplicateProperty

	// CodeUnknownUnionDiscriminator means a union's discriminator value did
	// not match any registered subtype.
	CodeUnknownUnionDiscriminator

	// CodeDepthLimitExceeded means a nested value exceeded Options.MaxDepth.
	CodeDepthLimitExceeded

	// CodeNotSupported means the shape cannot be converted, e.g. an
	// abstract type with no union configuration, or an object-as-array
	// shape with an unplaceable constructor parameter.
	CodeNotSupported

	// CodeCancelled means the operation observed a cancelled context.
	CodeCancelled

	// CodeInvalidOperation means a degenerate caller-supplied resource (for
	// example a buffer writer that returns a zero-length memory region) was
	// detected, or the API was used outside its contract (get-converter
	// called with no shape provider bound).
	CodeInvalidOperation
)

func (c Code) String() string {
	switch c {
	case CodeInsufficientBuffer:
		return "InsufficientBuffer"
	case CodeEmptyBuffer:
		return "EmptyBuffer"
	case CodeUnexpectedToken:
		return "UnexpectedToken"
	case CodeOverflow:
		return "Overflow"
	case CodeInvalidUTF8:
		return "InvalidUtf8"
	case CodeMissingRequiredProperty:
		return "MissingRequiredProperty"
	case CodeDuplicateProperty:
		return "DuplicateProperty"
	case CodeUnknownUnionDiscriminator:
		return "UnknownUnionDiscriminator"
	case CodeDepthLimitExceeded:
		return "DepthLimitExceeded"
	case CodeNotSupported:
		return "NotSupported"
	case CodeCancelled:
		return "Cancelled"
	case CodeInvalidOperation:
		return "InvalidOperation"
	default:
		return "Unspecified"
	}
}

// Error is the codec's structural error type. It carries a stable Code, an
// optional property Path (populated as the error is wrapped up the call
// graph, e.g. "$.propA[3].propB"), and an optional Name used by codes that
// name something specific (a missing property, an unknown discriminator).
//
// Only the outermost Error reaches the caller; inner causes are preserved
// via Unwrap so tests can assert on them with errors.As/errors.Is.
type Error struct {
	Code Code
	Path string
	Name string

	// Examined is populated only on CodeInsufficientBuffer: the number of
	// bytes of the current token that were already looked at before the
	// reader concluded it needed more. A caller may retry after
	// appending bytes past this position without losing work.
	Examined int

	cause error
}

func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Name != "" {
		msg = fmt.Sprintf("%s(%q)", msg, e.Name)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s at %s", msg, e.Path)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.cause.Error())
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// newError builds a leaf Error with no cause.
func newError(code Code) *Error {
	return &Error{Code: code}
}

// insufficientBuffer builds an InsufficientBuffer error, recording
// how many bytes of the in-flight token were already examined.
func insufficientBuffer(examined int) *Error {
	return &Error{Code: CodeInsufficientBuffer, Examined: examined}
}

// newErrorf builds a leaf Error wrapping a formatted cause message.
func newErrorf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, cause: errors.Errorf(format, args...)}
}

// wrapPath attaches or extends a property path on an existing *Error,
// preserving the original code and cause. Non-*Error values are wrapped as
// CodeUnspecified so a path can still be attached.
func wrapPath(err error, segment string) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		joined := segment
		if se.Path != "" {
			joined = segment + se.Path
		}
		return &Error{Code: se.Code, Path: joined, Name: se.Name, cause: se.cause}
	}
	return &Error{Code: CodeUnspecified, Path: segment, cause: errors.WithStack(err)}
}

// missingRequiredProperty builds a MissingRequiredProperty error.
func missingRequiredProperty(name string) error {
	return &Error{Code: CodeMissingRequiredProperty, Name: name}
}

// duplicateProperty builds a DuplicateProperty error.
func duplicateProperty(name string) error {
	return &Error{Code: CodeDuplicateProperty, Name: name}
}

// unknownUnionDiscriminator builds an UnknownUnionDiscriminator error.
func unknownUnionDiscriminator(value string) error {
	return &Error{Code: CodeUnknownUnionDiscriminator, Name: value}
}

// notSupported builds a NotSupported error. The message names the
// offending type, points at the witness mechanism for declaring a shape,
// and links the shapes documentation, so the fix is discoverable from the
// error text alone.
func notSupported(typeName, reason string) error {
	return &Error{
		Code: CodeNotSupported,
		Name: typeName,
		cause: errors.Errorf(
			"type %q has no witness describing its shape (%s); see https://github.com/richinsley/msgpack/blob/main/docs/shapes.md",
			typeName, reason,
		),
	}
}

// IsCode reports whether err (or any error it wraps) carries the given Code.
func IsCode(err error, code Code) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
