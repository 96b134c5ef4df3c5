//go:build linux

package source

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"sync"
	"time"

	"github.com/blackjack/webcam"

	"github.com/qxuan512/rtsp-camera-driver/pkg/types"
)

// Pixel format fourcc for 'MJPG'.
const pixFmtMJPEG = webcam.PixelFormat(0x47504A4D)

const (
	v4l2Width          = 1280
	v4l2Height         = 720
	v4l2WaitTimeoutSec = 5
)

// v4l2Source reads MJPEG frames from a local camera device.
type v4l2Source struct {
	device    string
	cam       *webcam.Webcam
	closeOnce sync.Once
	seq       uint64
}

func newV4L2Source(device string) Source {
	return &v4l2Source{device: device}
}

func (s *v4l2Source) Open(ctx context.Context) error {
	cam, err := webcam.Open(s.device)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.device, err)
	}
	if _, ok := cam.GetSupportedFormats()[pixFmtMJPEG]; !ok {
		_ = cam.Close()
		return fmt.Errorf("%s does not support MJPEG output", s.device)
	}
	if _, _, _, err := cam.SetImageFormat(pixFmtMJPEG, v4l2Width, v4l2Height); err != nil {
		_ = cam.Close()
		return fmt.Errorf("set format on %s: %w", s.device, err)
	}
	if err := cam.StartStreaming(); err != nil {
		_ = cam.Close()
		return fmt.Errorf("start streaming on %s: %w", s.device, err)
	}
	s.cam = cam
	return nil
}

func (s *v4l2Source) ReadFrame() (*types.Frame, error) {
	for {
		if err := s.cam.WaitForFrame(v4l2WaitTimeoutSec); err != nil {
			if _, ok := err.(*webcam.Timeout); ok {
				continue
			}
			return nil, fmt.Errorf("wait for frame: %w", err)
		}

		data, err := s.cam.ReadFrame()
		if err != nil {
			return nil, fmt.Errorf("read frame: %w", err)
		}
		if len(data) == 0 {
			continue
		}

		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode frame: %w", err)
		}

		s.seq++
		return &types.Frame{Image: img, Timestamp: time.Now(), Number: s.seq}, nil
	}
}

func (s *v4l2Source) Close() error {
	s.closeOnce.Do(func() {
		if s.cam != nil {
			_ = s.cam.StopStreaming()
			_ = s.cam.Close()
		}
	})
	return nil
}
