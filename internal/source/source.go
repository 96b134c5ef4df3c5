// Package source abstracts the upstream video connection. Each Source
// yields one decoded frame per successful read; the capture loop opens a
// fresh Source for every connection attempt.
package source

import (
	"context"
	"errors"
	"strings"

	"github.com/qxuan512/rtsp-camera-driver/pkg/types"
)

// ErrEndOfStream is returned by ReadFrame when the upstream finished
// cleanly. The capture loop treats it like any other read failure and
// reconnects.
var ErrEndOfStream = errors.New("source: end of stream")

// Source supplies decoded frames from an upstream video feed.
// A Source is used by a single reader goroutine; Close may be called
// from another goroutine (and more than once) to unblock a pending read.
type Source interface {
	Open(ctx context.Context) error
	ReadFrame() (*types.Frame, error)
	Close() error
}

// Factory creates a fresh Source handle for one capture-loop connection.
type Factory func() Source

// New returns a factory for the given address. Paths under /dev are
// treated as local V4L2 devices, anything else as an ffmpeg-readable URL.
func New(addr string, fps int) Factory {
	if strings.HasPrefix(addr, "/dev/") {
		return func() Source { return newV4L2Source(addr) }
	}
	return func() Source { return newFFmpegSource(addr, fps) }
}
