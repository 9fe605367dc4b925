package cliexec

import (
	"bytes"
	"sync"
)

// cappedBuffer keeps at most max bytes and silently drains the rest so a
// chatty child never deadlocks on pipe back-pressure.
type cappedBuffer struct {
	mu        sync.Mutex
	max       int
	buf       bytes.Buffer
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	remaining := b.max - b.buf.Len()
	switch {
	case remaining >= len(p):
		b.buf.Write(p)
	case remaining > 0:
		b.buf.Write(p[:remaining])
		b.truncated = true
	case len(p) > 0:
		b.truncated = true
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *cappedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}
