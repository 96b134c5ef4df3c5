package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultHost             = "0.0.0.0"
	DefaultPort             = 8080
	DefaultJPEGQuality      = 80
	DefaultTargetFPS        = 15
	DefaultReconnectBackoff = time.Second
	DefaultCaptureGrace     = 100 * time.Millisecond
)

// Config holds the runtime configuration for the camera driver.
type Config struct {
	// SourceURL is the upstream video source: an RTSP URL, or a
	// /dev/video* path for a local V4L2 device.
	SourceURL string

	Host string
	Port int

	// JPEGQuality is applied when encoding frames for consumers (1-100).
	JPEGQuality int

	// TargetFPS paces both the capture loop and the MJPEG stream.
	TargetFPS int

	// ReconnectBackoff is the pause between reconnect attempts after a
	// failed upstream connect or read.
	ReconnectBackoff time.Duration

	// CaptureGrace bounds how long a single-capture request waits for a
	// first frame before reporting unavailability.
	CaptureGrace time.Duration

	// StreamOverlay stamps the capture timestamp onto outgoing frames.
	StreamOverlay bool
}

// Load resolves the configuration from the environment.
// RTSP_URL is required; everything else falls back to defaults.
func Load() (*Config, error) {
	cfg := &Config{
		SourceURL:        os.Getenv("RTSP_URL"),
		Host:             getEnvOrDefault("SERVER_HOST", DefaultHost),
		Port:             getEnvAsIntOrDefault("SERVER_PORT", DefaultPort),
		JPEGQuality:      getEnvAsIntOrDefault("JPEG_QUALITY", DefaultJPEGQuality),
		TargetFPS:        getEnvAsIntOrDefault("TARGET_FPS", DefaultTargetFPS),
		ReconnectBackoff: getEnvAsDurationOrDefault("RECONNECT_BACKOFF", DefaultReconnectBackoff),
		CaptureGrace:     getEnvAsDurationOrDefault("CAPTURE_GRACE", DefaultCaptureGrace),
		StreamOverlay:    getEnvAsBoolOrDefault("STREAM_OVERLAY", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the driver cannot run with.
func (c *Config) Validate() error {
	if c.SourceURL == "" {
		return fmt.Errorf("RTSP_URL environment variable must be set")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("invalid JPEG quality: %d", c.JPEGQuality)
	}
	if c.TargetFPS < 1 || c.TargetFPS > 120 {
		return fmt.Errorf("invalid target FPS: %d", c.TargetFPS)
	}
	if c.ReconnectBackoff <= 0 {
		return fmt.Errorf("invalid reconnect backoff: %v", c.ReconnectBackoff)
	}
	if c.CaptureGrace <= 0 {
		return fmt.Errorf("invalid capture grace period: %v", c.CaptureGrace)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
