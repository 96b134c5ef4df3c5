//go:build !linux

package source

import (
	"context"
	"fmt"

	"github.com/qxuan512/rtsp-camera-driver/pkg/types"
)

// V4L2 capture relies on Linux ioctls; other platforms get a stub that
// fails at open time so the capture loop reports it like any connect error.
func newV4L2Source(device string) Source {
	return &unsupportedSource{device: device}
}

type unsupportedSource struct {
	device string
}

func (s *unsupportedSource) Open(context.Context) error {
	return fmt.Errorf("v4l2 device %s is only supported on linux", s.device)
}

func (s *unsupportedSource) ReadFrame() (*types.Frame, error) {
	return nil, ErrEndOfStream
}

func (s *unsupportedSource) Close() error {
	return nil
}
