package sandbox

import (
	"strings"
	"sync"
)

// captureBuffer is the bounded sink for one guest output stream. Writes
// past the cap are dropped without signaling the guest, so an
// over-producing snippet runs to completion with its output cut at
// exactly the cap. The mutex lets the deadline supervisor snapshot the
// buffer while an abandoned attempt may still be writing; anything
// written after the snapshot is never observed by the caller.
type captureBuffer struct {
	mu      sync.Mutex
	buf     strings.Builder
	limit   int // cap in runes
	written int // runes kept so far
	dropped bool
}

func newCaptureBuffer(limit int) *captureBuffer {
	return &captureBuffer{limit: limit}
}

// WriteString appends s, keeping at most limit runes in total.
func (b *captureBuffer) WriteString(s string) {
	if s == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.written >= b.limit {
		b.dropped = true
		return
	}
	room := b.limit - b.written
	runes := []rune(s)
	if len(runes) > room {
		runes = runes[:room]
		b.dropped = true
	}
	b.buf.WriteString(string(runes))
	b.written += len(runes)
}

// Snapshot returns the captured text so far and whether any write was
// cut or dropped.
func (b *captureBuffer) Snapshot() (text string, truncated bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String(), b.dropped
}
