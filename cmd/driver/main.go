package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	_ "net/http/pprof" // Enable pprof
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qxuan512/rtsp-camera-driver/internal/camera"
	"github.com/qxuan512/rtsp-camera-driver/internal/config"
	"github.com/qxuan512/rtsp-camera-driver/internal/driver"
	"github.com/qxuan512/rtsp-camera-driver/internal/encoder"
	"github.com/qxuan512/rtsp-camera-driver/internal/logger"
	"github.com/qxuan512/rtsp-camera-driver/internal/metrics"
	"github.com/qxuan512/rtsp-camera-driver/internal/source"
)

var (
	// Command-line flags; camera settings come from the environment.
	metricsAddr = flag.String("metrics", ":9090", "Metrics server address")
	pprofAddr   = flag.String("pprof", ":6060", "pprof server address")
	logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error, silent)")
	logColor    = flag.Bool("log-color", true, "Enable colored log output")
)

func main() {
	flag.Parse()

	// Initialize logger
	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, *logColor)

	logger.Info("Main", "Camera driver starting...")
	logger.Info("Main", "Log level: %s", level)

	// Load configuration from the environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger.Info("Main", "Source URL: %s", cfg.SourceURL)
	logger.Info("Main", "HTTP server: %s", cfg.Addr())
	logger.Info("Main", "Metrics server: %s", *metricsAddr)
	logger.Info("Main", "Target FPS: %d, JPEG quality: %d", cfg.TargetFPS, cfg.JPEGQuality)

	m := metrics.New()

	cam := camera.NewController(camera.Options{
		NewSource:        source.New(cfg.SourceURL, cfg.TargetFPS),
		TargetFPS:        cfg.TargetFPS,
		ReconnectBackoff: cfg.ReconnectBackoff,
		Metrics:          m,
	})

	enc := encoder.New(cfg.JPEGQuality, cfg.StreamOverlay)
	srv := driver.NewServer(cfg, cam, enc, m)

	// Request contexts descend from baseCtx so active stream handlers
	// exit within one poll interval once shutdown begins; Shutdown alone
	// never cancels them and would wait out its full timeout.
	baseCtx, stopRequests := context.WithCancel(context.Background())
	defer stopRequests()

	httpServer := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     srv.Handler(),
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}

	// Start pprof server
	go func() {
		log.Printf("Starting pprof server on %s", *pprofAddr)
		if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
			log.Printf("pprof server error: %v", err)
		}
	}()

	// Start metrics server
	go func() {
		log.Printf("Starting metrics server on %s", *metricsAddr)
		if err := m.StartServer(*metricsAddr); err != nil {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	// Start HTTP server
	go func() {
		log.Printf("Starting HTTP server on %s", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")

	stopRequests()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	cam.Close()

	log.Println("Server stopped")
}
