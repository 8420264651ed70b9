package msgpack

import "io"

// ExternalSegment is a ByteSource over any io.ReaderAt (a memory-mapped
// file, a pinned arena, a plain *os.File): it reads spans of an external
// memory-backed region on demand instead of copying the whole region in
// up front, so segments handed to the Buffer window may reference memory
// the codec does not own.
type ExternalSegment struct {
	src       io.ReaderAt
	size      int64
	off       int64
	chunkSize int
}

// NewExternalSegment wraps src, a region of size bytes, as a ByteSource
// that Next()s it out in chunkSize pieces. chunkSize <= 0 selects a 64KiB
// default. Unlike Writer's scratch buffer, each chunk returned by Next is
// retained by the Buffer window's segment chain until consumed, so chunks
// are not pool-backed: a pool would hand the same backing array to two
// live segments at once.
func NewExternalSegment(src io.ReaderAt, size int64, chunkSize int) *ExternalSegment {
	if chunkSize <= 0 {
		chunkSize = 64 * 1024
	}
	return &ExternalSegment{
		src:       src,
		size:      size,
		chunkSize: chunkSize,
	}
}

// Next reads the next chunk from the external region, implementing
// ByteSource. It returns io.EOF once off has reached size, with no
// bytes, matching the contract Reader.run/StreamReader.replenish expect
// from an exhausted source.
func (e *ExternalSegment) Next() ([]byte, error) {
	if e.off >= e.size {
		return nil, io.EOF
	}
	remaining := e.size - e.off
	want := int64(e.chunkSize)
	if remaining < want {
		want = remaining
	}
	buf := make([]byte, want)
	n, err := e.src.ReadAt(buf, e.off)
	e.off += int64(n)
	if err != nil && err != io.EOF {
		return buf[:n], err
	}
	if e.off >= e.size {
		return buf[:n], io.EOF
	}
	return buf[:n], nil
}

// Remaining reports how many bytes of the external region have not yet
// been handed out by Next.
func (e *ExternalSegment) Remaining() int64 { return e.size - e.off }
