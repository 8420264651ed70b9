package msgpack

import (
	"bytes"
	"sync"
	"testing"
)

// TestWriterScratchRecycling tests that repeated encode/flush cycles on
// one Writer run correctly through the pooled scratch buffer.
func TestWriterScratchRecycling(t *testing.T) {
	sink := NewSliceWriter(256)
	w := NewWriter(sink, 32)

	var expected []byte
	for i := 0; i < 20; i++ {
		if err := w.WriteInt(int64(i * 100)); err != nil {
			t.Fatalf("WriteInt: %v", err)
		}
		if err := w.Flush(); err != nil {
			t.Fatalf("Flush: %v", err)
		}
		expected = appendInt(expected, int64(i*100))
	}
	if !bytes.Equal(sink.Bytes(), expected) {
		t.Errorf("output = % x\nexpected % x", sink.Bytes(), expected)
	}
}

// TestPoolDiscardsGrownScratch tests that a scratch buffer append grew
// past the pool's size class is dropped on Put rather than recycled, and
// that the writer's output is unaffected either way.
func TestPoolDiscardsGrownScratch(t *testing.T) {
	pool := NewBufferPool(8, 1)
	scratch := pool.Get()[:0]
	// Encoding a string longer than the size class forces append to
	// reallocate, exactly what Writer.append does to its scratch.
	scratch = appendString(scratch, "longer than eight bytes")
	if cap(scratch) <= 8 {
		t.Fatal("scratch did not grow past the size class")
	}
	pool.Put(scratch[:cap(scratch)])

	// The grown buffer must not have entered the free list.
	next := pool.Get()
	if cap(next) != 8 {
		t.Errorf("pool handed out a %d-cap buffer, expected the 8-byte size class", cap(next))
	}

	// A Writer whose tokens overflow its chunk size still flushes the
	// right bytes.
	sink := NewSliceWriter(64)
	w := NewWriter(sink, 8)
	if err := w.WriteString("longer than eight bytes"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if !bytes.Equal(sink.Bytes(), appendString(nil, "longer than eight bytes")) {
		t.Errorf("overflowing token misencoded: % x", sink.Bytes())
	}
}

// TestPooledEncodeConcurrent tests the free list under concurrent
// borrow/encode/return cycles, the way parallel serializations drive it.
func TestPooledEncodeConcurrent(t *testing.T) {
	pool := NewBufferPool(1024, 4)

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				scratch := pool.Get()[:0]
				scratch = appendMapHeader(scratch, 1)
				scratch = appendString(scratch, "worker")
				scratch = appendInt(scratch, int64(g))

				n, consumed, err := decodeMapHeader(scratch)
				if err != nil || n != 1 {
					t.Errorf("pooled encode corrupted: (%d, %v)", n, err)
				}
				key, c2, err := decodeString(scratch[consumed:])
				if err != nil || key != "worker" {
					t.Errorf("pooled encode corrupted key: (%q, %v)", key, err)
				}
				v, _, err := decodeInt(scratch[consumed+c2:], 64)
				if err != nil || v != int64(g) {
					t.Errorf("pooled encode corrupted value: (%d, %v)", v, err)
				}
				pool.Put(scratch[:cap(scratch)])
			}
		}(g)
	}
	wg.Wait()
}

// TestFramedPumpRecyclesBuffers tests many frames through one
// FramedWriter/FramedReader pair, whose length prefixes and small bodies
// ride the pool.
func TestFramedPumpRecyclesBuffers(t *testing.T) {
	var wire bytes.Buffer
	fw := NewFramedWriter(&wire)

	frames := make([][]byte, 50)
	for i := range frames {
		frames[i] = appendInt(nil, int64(i))
		if err := fw.WriteMessage(frames[i]); err != nil {
			t.Fatalf("WriteMessage %d: %v", i, err)
		}
	}

	fr := NewFramedReader(&wire)
	for i := range frames {
		got, err := fr.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage %d: %v", i, err)
		}
		if !bytes.Equal(got, frames[i]) {
			t.Errorf("frame %d = % x, expected % x", i, got, frames[i])
		}
	}
}

// TestPoolSizeClassDefaults tests the constructor's fallbacks.
func TestPoolSizeClassDefaults(t *testing.T) {
	p := NewBufferPool(0, -1)
	buf := p.Get()
	if cap(buf) != defaultWriteChunk {
		t.Errorf("default size class = %d, expected %d", cap(buf), defaultWriteChunk)
	}
	p.Put(buf)
}
