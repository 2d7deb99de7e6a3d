package ring

import (
	"bytes"
	"io"
	"net"
	"testing"
)

func TestReadWriteNoWrap(t *testing.T) {
	b := NewBuffer(16)
	src := []byte("hello world!")
	b.Write(src, 2, len(src))

	dst := make([]byte, len(src))
	b.Read(dst, 2, len(src))
	if !bytes.Equal(dst, src) {
		t.Fatalf("got %q, want %q", dst, src)
	}
}

func TestReadWriteWrap(t *testing.T) {
	b := NewBuffer(8)
	src := []byte("ABCDEFGH") // exactly capacity
	b.Write(src, 0, len(src))

	// Overwrite a 5-byte window starting near the end, wrapping around.
	patch := []byte("xyz12")
	b.Write(patch, 6, len(patch))

	dst := make([]byte, len(patch))
	b.Read(dst, 6, len(patch))
	if !bytes.Equal(dst, patch) {
		t.Fatalf("got %q, want %q", dst, patch)
	}
}

func TestWriteToWrapsAcrossBoundary(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	b := NewBuffer(8)
	b.Write([]byte("abcdefgh"), 0, 8)

	done := make(chan error, 1)
	go func() {
		// offset 4, len 8 spans [4,8) then [0,4): wraps.
		_, err := b.WriteTo(client, 4, 8)
		done <- err
	}()

	got := make([]byte, 8)
	if _, err := io.ReadFull(server, got); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if want := []byte("efghabcd"); !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestReadFromWrapsAcrossBoundary(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	payload := []byte("WXYZwxyz")
	done := make(chan error, 1)
	go func() {
		_, err := client.Write(payload)
		done <- err
	}()

	b := NewBuffer(8)
	n, err := b.ReadFrom(server, 4, 8) // offset 4, len 8: wraps
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 8 {
		t.Fatalf("expected 8 bytes read, got %d", n)
	}

	got := make([]byte, 8)
	b.Read(got, 4, 8)
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}
