package cliexec

import (
	"strings"
	"testing"
)

func TestCappedBufferUnderLimit(t *testing.T) {
	b := &cappedBuffer{max: 100}

	n, err := b.Write([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("Write = (%d, %v), want (5, nil)", n, err)
	}
	if b.String() != "hello" {
		t.Errorf("String() = %q, want hello", b.String())
	}
	if b.Truncated() {
		t.Error("Truncated() = true, want false")
	}
}

func TestCappedBufferOverLimit(t *testing.T) {
	b := &cappedBuffer{max: 8}

	// Writes past the cap must still report full success so the child
	// never blocks on back-pressure.
	n, err := b.Write([]byte("0123456789"))
	if err != nil || n != 10 {
		t.Fatalf("Write = (%d, %v), want (10, nil)", n, err)
	}
	if b.String() != "01234567" {
		t.Errorf("String() = %q, want 01234567", b.String())
	}
	if !b.Truncated() {
		t.Error("Truncated() = false, want true")
	}

	n, err = b.Write([]byte("more"))
	if err != nil || n != 4 {
		t.Fatalf("second Write = (%d, %v), want (4, nil)", n, err)
	}
	if len(b.String()) != 8 {
		t.Errorf("buffer grew past cap: %d bytes", len(b.String()))
	}
}

func TestCappedBufferExactBoundary(t *testing.T) {
	b := &cappedBuffer{max: 4}

	if _, err := b.Write([]byte("abcd")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if b.Truncated() {
		t.Error("Truncated() = true after exact fill, want false")
	}
	if _, err := b.Write([]byte("e")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !b.Truncated() {
		t.Error("Truncated() = false after overflow, want true")
	}
}

func TestCappedBufferLargeStream(t *testing.T) {
	b := &cappedBuffer{max: 1024}

	chunk := []byte(strings.Repeat("x", 333))
	for i := 0; i < 100; i++ {
		if _, err := b.Write(chunk); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if len(b.String()) != 1024 {
		t.Errorf("buffer length = %d, want 1024", len(b.String()))
	}
	if !b.Truncated() {
		t.Error("Truncated() = false, want true")
	}
}
