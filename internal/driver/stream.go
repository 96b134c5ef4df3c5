package driver

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/qxuan512/rtsp-camera-driver/internal/logger"
)

// streamBoundary is the multipart boundary marker between MJPEG parts.
const streamBoundary = "frame"

// handleStream serves a continuous MJPEG stream. The subscription is
// held for the lifetime of the response and released on every exit path.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	sid := shortID()
	s.cam.Subscribe()
	defer s.cam.Unsubscribe()
	s.metrics.ActiveStreams.Add(1)
	defer s.metrics.ActiveStreams.Add(-1)
	s.metrics.StreamClientsTotal.Add(1)

	logger.Info("HTTP", "Stream %s: client connected (subscribers=%d)", sid, s.cam.Subscribers())
	defer logger.Info("HTTP", "Stream %s: client disconnected", sid)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
	w.Header().Set("Cache-Control", "no-cache")
	// Establish the response before the first frame exists, so a client
	// connecting during an upstream outage sees an open stream with zero
	// parts rather than a hung request.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	interval := time.Second / time.Duration(s.cfg.TargetFPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, ok := s.cam.Latest()
		if !ok {
			// Transient gap: skip this tick, the stream never terminates
			// just because no frame is available yet.
			continue
		}

		data, err := s.enc.Encode(frame)
		if err != nil {
			s.metrics.EncodeErrors.Add(1)
			continue
		}

		if err := writePart(w, data); err != nil {
			logger.Debug("HTTP", "Stream %s: client went away: %v", sid, err)
			return
		}
		flusher.Flush()
		s.metrics.StreamFramesSent.Add(1)
	}
}

func writePart(w io.Writer, data []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\n\r\n", streamBoundary); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}
