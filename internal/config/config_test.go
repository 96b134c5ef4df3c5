package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RTSP_URL", "SERVER_HOST", "SERVER_PORT", "JPEG_QUALITY",
		"TARGET_FPS", "RECONNECT_BACKOFF", "CAPTURE_GRACE", "STREAM_OVERLAY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadRequiresSourceURL(t *testing.T) {
	clearEnv(t)
	if _, err := Load(); err == nil {
		t.Fatalf("Load() without RTSP_URL should fail")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("RTSP_URL", "rtsp://camera.local/stream")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.SourceURL != "rtsp://camera.local/stream" {
		t.Errorf("SourceURL = %q", cfg.SourceURL)
	}
	if cfg.Host != DefaultHost {
		t.Errorf("Host = %q, want %q", cfg.Host, DefaultHost)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.JPEGQuality != DefaultJPEGQuality {
		t.Errorf("JPEGQuality = %d, want %d", cfg.JPEGQuality, DefaultJPEGQuality)
	}
	if cfg.TargetFPS != DefaultTargetFPS {
		t.Errorf("TargetFPS = %d, want %d", cfg.TargetFPS, DefaultTargetFPS)
	}
	if cfg.ReconnectBackoff != DefaultReconnectBackoff {
		t.Errorf("ReconnectBackoff = %v, want %v", cfg.ReconnectBackoff, DefaultReconnectBackoff)
	}
	if cfg.CaptureGrace != DefaultCaptureGrace {
		t.Errorf("CaptureGrace = %v, want %v", cfg.CaptureGrace, DefaultCaptureGrace)
	}
	if cfg.StreamOverlay {
		t.Errorf("StreamOverlay should default to false")
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("RTSP_URL", "rtsp://10.0.0.5:554/live")
	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("JPEG_QUALITY", "55")
	t.Setenv("TARGET_FPS", "30")
	t.Setenv("RECONNECT_BACKOFF", "2s")
	t.Setenv("CAPTURE_GRACE", "250ms")
	t.Setenv("STREAM_OVERLAY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:9000" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
	if cfg.JPEGQuality != 55 {
		t.Errorf("JPEGQuality = %d", cfg.JPEGQuality)
	}
	if cfg.TargetFPS != 30 {
		t.Errorf("TargetFPS = %d", cfg.TargetFPS)
	}
	if cfg.ReconnectBackoff != 2*time.Second {
		t.Errorf("ReconnectBackoff = %v", cfg.ReconnectBackoff)
	}
	if cfg.CaptureGrace != 250*time.Millisecond {
		t.Errorf("CaptureGrace = %v", cfg.CaptureGrace)
	}
	if !cfg.StreamOverlay {
		t.Errorf("StreamOverlay should be true")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing source", func(c *Config) { c.SourceURL = "" }},
		{"port too low", func(c *Config) { c.Port = 0 }},
		{"port too high", func(c *Config) { c.Port = 70000 }},
		{"quality too low", func(c *Config) { c.JPEGQuality = 0 }},
		{"quality too high", func(c *Config) { c.JPEGQuality = 101 }},
		{"fps zero", func(c *Config) { c.TargetFPS = 0 }},
		{"negative backoff", func(c *Config) { c.ReconnectBackoff = -time.Second }},
		{"zero grace", func(c *Config) { c.CaptureGrace = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				SourceURL:        "rtsp://camera.local/stream",
				Host:             DefaultHost,
				Port:             DefaultPort,
				JPEGQuality:      DefaultJPEGQuality,
				TargetFPS:        DefaultTargetFPS,
				ReconnectBackoff: DefaultReconnectBackoff,
				CaptureGrace:     DefaultCaptureGrace,
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("Validate() should fail")
			}
		})
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("RTSP_URL", "rtsp://camera.local/stream")
	t.Setenv("SERVER_PORT", "not-a-port")
	t.Setenv("CAPTURE_GRACE", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want default %d", cfg.Port, DefaultPort)
	}
	if cfg.CaptureGrace != DefaultCaptureGrace {
		t.Errorf("CaptureGrace = %v, want default %v", cfg.CaptureGrace, DefaultCaptureGrace)
	}
}
