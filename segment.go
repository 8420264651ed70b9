package msgpack

// segment.go implements the reader's buffer window: a view over one or more
// non-contiguous byte slices ("segments") that lets the reader work
// against data arriving in arbitrary chunks without copying it into one
// contiguous allocation up front. Segments may be owned copies or
// borrowed references (e.g. an ExternalSegment backed by an io.ReaderAt);
// the window does not care which.

// segment is one link of the buffer chain.
type segment struct {
	data []byte
	next *segment
}

// Buffer is a window over a chain of segments, tracking how much of the
// current segment has been consumed. It is the single type both the
// synchronous reader (reader.go) and the streaming reader (stream.go)
// advance as they parse.
type Buffer struct {
	head   *segment
	tail   *segment
	offset int // bytes already consumed from head.data
	total  int // bytes available across all segments, from offset onward
}

// NewBuffer creates a Buffer over a single initial segment. Passing nil is
// valid and produces an empty Buffer ready to receive segments via Append.
func NewBuffer(initial []byte) *Buffer {
	b := &Buffer{}
	if len(initial) > 0 {
		b.Append(initial)
	}
	return b
}

// Append adds another segment to the end of the chain. Appending an empty
// slice is a no-op; empty segments never carry signal (empty does
// not mean EmptyBuffer, only an explicit end-of-input does).
func (b *Buffer) Append(data []byte) {
	if len(data) == 0 {
		return
	}
	s := &segment{data: data}
	if b.tail == nil {
		b.head, b.tail = s, s
	} else {
		b.tail.next = s
		b.tail = s
	}
	b.total += len(data)
}

// Len reports the number of unconsumed bytes currently in the window.
func (b *Buffer) Len() int {
	return b.total
}

// Bytes returns up to n unconsumed bytes as one contiguous slice. If the
// requested range spans more than one segment, the bytes are copied into
// a freshly allocated slice; if it lies entirely within one segment, the
// underlying segment memory is returned directly (no copy). Bytes(0)
// returns nil. If fewer than n bytes are available, the return is
// shorter than n; callers must check len(result) before assuming a full
// read; Peek/Consume below build the InsufficientBuffer contract on top
// of this.
func (b *Buffer) Bytes(n int) []byte {
	if n <= 0 || b.total == 0 {
		return nil
	}
	if n > b.total {
		n = b.total
	}

	first := b.head.data[b.offset:]
	if n <= len(first) {
		return first[:n]
	}

	out := make([]byte, n)
	copy(out, first)
	pos := len(first)
	for s := b.head.next; s != nil && pos < n; s = s.next {
		pos += copy(out[pos:], s.data)
	}
	return out
}

// Consume discards n bytes from the front of the window. n must not
// exceed Len(); callers that hit InsufficientBuffer must not call Consume
// for the in-flight token (a decode that reported InsufficientBuffer has
// not advanced the reader position).
func (b *Buffer) Consume(n int) {
	for n > 0 && b.head != nil {
		avail := len(b.head.data) - b.offset
		if n < avail {
			b.offset += n
			b.total -= n
			return
		}
		n -= avail
		b.total -= avail
		b.head = b.head.next
		b.offset = 0
		if b.head == nil {
			b.tail = nil
		}
	}
}
