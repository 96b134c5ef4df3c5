package camera

import (
	"sync"
	"time"

	"github.com/qxuan512/rtsp-camera-driver/pkg/types"
)

// Buffer holds the most recently captured frame. A single writer (the
// capture loop) replaces the frame; any number of readers snapshot it.
type Buffer struct {
	mu       sync.RWMutex
	frame    *types.Frame
	captured time.Time
}

// NewBuffer returns an empty frame buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Store replaces the latest frame. Ownership of f transfers to the
// buffer; the caller must not mutate it afterwards.
func (b *Buffer) Store(f *types.Frame) {
	b.mu.Lock()
	b.frame = f
	b.captured = time.Now()
	b.mu.Unlock()
}

// Latest returns a snapshot of the most recent frame. The bool is false
// until the first successful capture. The buffer is never cleared, so a
// reader arriving after the loop went dormant still observes the last
// frame from the previous run.
func (b *Buffer) Latest() (types.Frame, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.frame == nil {
		return types.Frame{}, false
	}
	return *b.frame, true
}

// LastCapture returns when the latest frame was stored, or the zero time
// if nothing has been captured yet.
func (b *Buffer) LastCapture() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.captured
}
