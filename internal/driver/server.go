// Package driver exposes the camera over HTTP: device info, single
// captures, and a continuous MJPEG stream.
package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/qxuan512/rtsp-camera-driver/internal/camera"
	"github.com/qxuan512/rtsp-camera-driver/internal/config"
	"github.com/qxuan512/rtsp-camera-driver/internal/encoder"
	"github.com/qxuan512/rtsp-camera-driver/internal/logger"
	"github.com/qxuan512/rtsp-camera-driver/internal/metrics"
	"github.com/qxuan512/rtsp-camera-driver/pkg/types"
)

// capturePollInterval is how often consumer paths re-check the frame
// buffer while waiting for a first frame.
const capturePollInterval = 10 * time.Millisecond

// Server serves the camera driver's HTTP endpoints.
type Server struct {
	cfg     *config.Config
	cam     *camera.Controller
	enc     *encoder.Encoder
	metrics *metrics.Metrics
}

// NewServer returns a configured driver server.
func NewServer(cfg *config.Config, cam *camera.Controller, enc *encoder.Encoder, m *metrics.Metrics) *Server {
	if m == nil {
		m = metrics.New()
	}
	return &Server{cfg: cfg, cam: cam, enc: enc, metrics: m}
}

// Handler exposes the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/info", s.handleInfo)
	mux.HandleFunc("/capture", s.handleCapture)
	mux.HandleFunc("/stream", s.handleStream)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{
		"device_name":  "RTSP Camera",
		"device_model": "RTSP Camera",
		"manufacturer": "Generic",
		"device_type":  "IP Camera",
		"protocol":     "RTSP",
		"data_points":  "video stream",
		"commands":     []string{"start stream", "stop stream"},
	})
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sid := shortID()
	s.cam.Subscribe()
	defer s.cam.Unsubscribe()

	frame, ok := s.waitForFrame(r.Context())
	if !ok {
		logger.Debug("HTTP", "Capture %s: no frame within %v", sid, s.cfg.CaptureGrace)
		writeJSONWithStatus(w, map[string]any{"error": "camera not ready"}, http.StatusServiceUnavailable)
		return
	}

	data, err := s.enc.Encode(frame)
	if err != nil {
		s.metrics.EncodeErrors.Add(1)
		logger.Warn("HTTP", "Capture %s: encode failed: %v", sid, err)
		writeJSONWithStatus(w, map[string]any{"error": "failed to encode frame"}, http.StatusServiceUnavailable)
		return
	}

	s.metrics.SnapshotsServed.Add(1)
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Disposition", `attachment; filename="capture.jpg"`)
	_, _ = w.Write(data)
}

// waitForFrame polls the frame buffer until a frame exists, the grace
// period elapses, or the request is cancelled. It never blocks past the
// grace deadline.
func (s *Server) waitForFrame(ctx context.Context) (types.Frame, bool) {
	deadline := time.NewTimer(s.cfg.CaptureGrace)
	defer deadline.Stop()
	tick := time.NewTicker(capturePollInterval)
	defer tick.Stop()

	for {
		if frame, ok := s.cam.Latest(); ok {
			return frame, true
		}
		select {
		case <-ctx.Done():
			return types.Frame{}, false
		case <-deadline.C:
			// One last look; the frame may have landed on the deadline.
			return s.cam.Latest()
		case <-tick.C:
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, hasFrame := s.cam.Latest()
	payload := map[string]any{
		"status":          "ok",
		"capture_running": s.cam.Running(),
		"subscribers":     s.cam.Subscribers(),
		"has_frame":       hasFrame,
	}
	if last := s.cam.LastCapture(); !last.IsZero() {
		payload["last_capture"] = last.UTC().Format(time.RFC3339)
	}
	writeJSON(w, payload)
}

func shortID() string {
	return uuid.NewString()[:8]
}

func writeJSON(w http.ResponseWriter, payload any) {
	writeJSONWithStatus(w, payload, http.StatusOK)
}

func writeJSONWithStatus(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Marshal the message so the fallback stays valid JSON no matter
		// what characters the error carries.
		msg, _ := json.Marshal(err.Error())
		_, _ = fmt.Fprintf(w, `{"error":%s}`, msg)
	}
}
