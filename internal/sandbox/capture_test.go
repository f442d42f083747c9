package sandbox

import (
	"strings"
	"testing"
)

func TestCaptureBufferUnderCap(t *testing.T) {
	b := newCaptureBuffer(100)
	b.WriteString("hello\n")
	b.WriteString("world\n")

	text, truncated := b.Snapshot()
	if text != "hello\nworld\n" {
		t.Errorf("text = %q, want %q", text, "hello\nworld\n")
	}
	if truncated {
		t.Error("truncated = true for writes under the cap")
	}
}

func TestCaptureBufferExactCap(t *testing.T) {
	b := newCaptureBuffer(5)
	b.WriteString("12345")

	text, truncated := b.Snapshot()
	if text != "12345" {
		t.Errorf("text = %q, want %q", text, "12345")
	}
	if truncated {
		t.Error("truncated = true when the write fits exactly")
	}
}

func TestCaptureBufferCutsSingleWrite(t *testing.T) {
	b := newCaptureBuffer(5)
	b.WriteString("1234567890")

	text, truncated := b.Snapshot()
	if text != "12345" {
		t.Errorf("text = %q, want %q", text, "12345")
	}
	if !truncated {
		t.Error("truncated = false after a cut write")
	}
}

func TestCaptureBufferDropsPastCap(t *testing.T) {
	b := newCaptureBuffer(6)
	for range 10 {
		b.WriteString("ab")
	}

	text, truncated := b.Snapshot()
	if text != "ababab" {
		t.Errorf("text = %q, want %q", text, "ababab")
	}
	if !truncated {
		t.Error("truncated = false after dropped writes")
	}
}

func TestCaptureBufferCountsRunes(t *testing.T) {
	b := newCaptureBuffer(3)
	b.WriteString("héllo")

	text, truncated := b.Snapshot()
	if text != "hél" {
		t.Errorf("text = %q, want %q", text, "hél")
	}
	if !truncated {
		t.Error("truncated = false after a cut write")
	}
}

func TestCaptureBufferEmptyWriteAtCap(t *testing.T) {
	b := newCaptureBuffer(4)
	b.WriteString(strings.Repeat("x", 4))
	b.WriteString("")

	if _, truncated := b.Snapshot(); truncated {
		t.Error("empty write at the cap marked the buffer truncated")
	}
}
