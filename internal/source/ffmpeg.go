package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/qxuan512/rtsp-camera-driver/pkg/types"
)

// ffmpegSource connects to an RTSP (or any ffmpeg-readable) URL and
// decodes it through an ffmpeg child process emitting an MJPEG pipe.
type ffmpegSource struct {
	url string
	fps int

	cmd       *exec.Cmd
	cancel    context.CancelFunc
	scanner   *frameScanner
	closeOnce sync.Once
	seq       uint64
}

func newFFmpegSource(url string, fps int) Source {
	return &ffmpegSource{url: url, fps: fps}
}

func (s *ffmpegSource) Open(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-rtsp_transport", "tcp",
		"-i", s.url,
		"-r", strconv.Itoa(s.fps),
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", "3",
		"-",
	)
	cmd.Stderr = io.Discard

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	s.cmd = cmd
	s.cancel = cancel
	s.scanner = newFrameScanner(stdout)
	return nil
}

func (s *ffmpegSource) ReadFrame() (*types.Frame, error) {
	data, err := s.scanner.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEndOfStream
		}
		return nil, fmt.Errorf("read mjpeg stream: %w", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	s.seq++
	return &types.Frame{Image: img, Timestamp: time.Now(), Number: s.seq}, nil
}

func (s *ffmpegSource) Close() error {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		if s.cmd != nil {
			// ffmpeg exits with an error after the kill; nothing to report.
			_ = s.cmd.Wait()
		}
	})
	return nil
}
