package ringbuffer

import (
	"bytes"
	"math/rand"
	"sync"
	"testing"
)

func TestNewSizesAreEmpty(t *testing.T) {
	rb := New(16)
	if got := rb.Readable(); got != 0 {
		t.Fatalf("Readable() = %d, want 0", got)
	}
	if got := rb.Writable(); got != 16 {
		t.Fatalf("Writable() = %d, want 16", got)
	}
	if got := rb.Size(); got != 16 {
		t.Fatalf("Size() = %d, want 16", got)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	rb := New(8)
	src := []byte{1, 2, 3, 4}

	if n := rb.Write(src, 0); n != 4 {
		t.Fatalf("Write() = %d, want 4", n)
	}
	if got := rb.Readable(); got != 4 {
		t.Fatalf("Readable() = %d, want 4", got)
	}

	dst := make([]byte, 4)
	if n := rb.Read(dst); n != 4 {
		t.Fatalf("Read() = %d, want 4", n)
	}
	if !bytes.Equal(dst, src) {
		t.Fatalf("Read() = %v, want %v", dst, src)
	}
	if got := rb.Readable(); got != 0 {
		t.Fatalf("Readable() after drain = %d, want 0", got)
	}
}

func TestWriteWraps(t *testing.T) {
	rb := New(4)
	rb.Write([]byte{1, 2, 3}, 0)
	rb.Read(make([]byte, 3)) // head=3, tail=3, pending=0

	// This write wraps around the end of the buffer.
	if n := rb.Write([]byte{9, 8, 7}, 0); n != 3 {
		t.Fatalf("Write() = %d, want 3", n)
	}

	dst := make([]byte, 3)
	rb.Read(dst)
	if !bytes.Equal(dst, []byte{9, 8, 7}) {
		t.Fatalf("Read() after wrap = %v, want [9 8 7]", dst)
	}
}

func TestWriteNilFillsSilence(t *testing.T) {
	rb := New(4)
	rb.buf[0] = 0xFF
	rb.buf[1] = 0xFF

	if n := rb.Write(nil, 2); n != 2 {
		t.Fatalf("Write(nil, 2) = %d, want 2", n)
	}

	dst := make([]byte, 2)
	rb.Read(dst)
	if !bytes.Equal(dst, []byte{0, 0}) {
		t.Fatalf("Read() after silence write = %v, want [0 0]", dst)
	}
}

func TestReadWriteClampToCapacity(t *testing.T) {
	rb := New(4)

	if n := rb.Write([]byte{1, 2, 3, 4, 5, 6}, 0); n != 4 {
		t.Fatalf("Write() over capacity = %d, want 4", n)
	}
	if got := rb.Writable(); got != 0 {
		t.Fatalf("Writable() = %d, want 0", got)
	}

	dst := make([]byte, 10)
	if n := rb.Read(dst); n != 4 {
		t.Fatalf("Read() over available = %d, want 4", n)
	}
}

func TestReset(t *testing.T) {
	rb := New(4)
	rb.Write([]byte{1, 2}, 0)
	rb.Reset()

	if got := rb.Readable(); got != 0 {
		t.Fatalf("Readable() after Reset = %d, want 0", got)
	}
	if got := rb.Writable(); got != 4 {
		t.Fatalf("Writable() after Reset = %d, want 4", got)
	}
}

// TestConcurrentLoopback exercises the buffer the way a Flux worker
// pair would: one writer, one reader, running concurrently, verifying
// the byte stream survives the round trip intact.
func TestConcurrentLoopback(t *testing.T) {
	rb := New(256)
	const total = 1 << 16

	src := make([]byte, total)
	rand.New(rand.NewSource(1)).Read(src)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		written := 0
		for written < total {
			n := rb.Write(src[written:], 0)
			written += int(n)
		}
	}()

	got := make([]byte, 0, total)
	go func() {
		defer wg.Done()
		buf := make([]byte, 64)
		for len(got) < total {
			n := rb.Read(buf)
			got = append(got, buf[:n]...)
		}
	}()

	wg.Wait()

	if !bytes.Equal(got, src) {
		t.Fatalf("loopback data mismatch: got %d bytes, want %d bytes matching", len(got), len(src))
	}
}
