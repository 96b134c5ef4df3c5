// Package camera implements the shared capture pipeline: one background
// loop pulls frames from the upstream source into a latest-frame buffer,
// and reference-counted subscriptions decide when that loop runs.
package camera

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/qxuan512/rtsp-camera-driver/internal/logger"
	"github.com/qxuan512/rtsp-camera-driver/internal/metrics"
	"github.com/qxuan512/rtsp-camera-driver/internal/source"
	"github.com/qxuan512/rtsp-camera-driver/pkg/types"
)

// Options configure a Controller.
type Options struct {
	// NewSource creates a fresh upstream handle per connection attempt.
	NewSource source.Factory

	// TargetFPS paces the read loop so it neither busy-spins nor
	// overwhelms the upstream. Defaults to 15.
	TargetFPS int

	// ReconnectBackoff is the pause before reopening after a failed
	// connect or read. Defaults to one second.
	ReconnectBackoff time.Duration

	// Metrics receives capture counters. A private instance is created
	// when nil.
	Metrics *metrics.Metrics
}

// Controller owns the capture loop and its demand-driven lifecycle.
// Consumers declare interest with Subscribe/Unsubscribe; the loop runs
// while at least one subscriber remains and reconnects on upstream
// failure for as long as it is supposed to be running.
type Controller struct {
	opts Options
	buf  *Buffer

	mu          sync.Mutex
	subscribers int
	running     bool
	generation  uint64
	stopCh      chan struct{}
	loopDone    chan struct{}
	closed      bool
}

// NewController creates a dormant Controller.
func NewController(opts Options) *Controller {
	if opts.TargetFPS <= 0 {
		opts.TargetFPS = 15
	}
	if opts.ReconnectBackoff <= 0 {
		opts.ReconnectBackoff = time.Second
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	return &Controller{
		opts: opts,
		buf:  NewBuffer(),
	}
}

// Latest returns the most recent captured frame, if any. It never blocks
// waiting for a new frame; callers needing one poll with their own
// retry policy.
func (c *Controller) Latest() (types.Frame, bool) {
	return c.buf.Latest()
}

// LastCapture reports when the buffer last received a frame. The zero
// time means no frame has ever been captured.
func (c *Controller) LastCapture() time.Time {
	return c.buf.LastCapture()
}

// Subscribe registers a consumer. The first subscriber starts the
// capture loop.
func (c *Controller) Subscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.subscribers++
	c.opts.Metrics.ActiveSubscribers.Store(int64(c.subscribers))
	if c.subscribers == 1 {
		c.startLocked()
	}
}

// Unsubscribe releases a consumer. Extra calls are a no-op; the count
// never goes negative. The last subscriber stops the capture loop.
func (c *Controller) Unsubscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subscribers == 0 {
		return
	}
	c.subscribers--
	c.opts.Metrics.ActiveSubscribers.Store(int64(c.subscribers))
	if c.subscribers == 0 {
		c.stopLocked()
	}
}

// Subscribers returns the current consumer count.
func (c *Controller) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribers
}

// Running reports whether the capture loop is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Close force-stops the capture loop, waits for it to exit, and rejects
// further subscriptions. The last frame stays readable.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.subscribers = 0
	c.opts.Metrics.ActiveSubscribers.Store(0)
	done := c.loopDone
	c.stopLocked()
	c.mu.Unlock()

	if done != nil {
		<-done
	}
}

// startLocked launches the capture loop. The running flag is the
// single-flight guard: a concurrent start request while already running
// is a no-op, so two first-subscribers cannot spawn duplicate loops.
func (c *Controller) startLocked() {
	if c.running {
		return
	}
	c.running = true
	c.generation++
	gen := c.generation

	stop := make(chan struct{})
	c.stopCh = stop
	prev := c.loopDone
	done := make(chan struct{})
	c.loopDone = done

	c.opts.Metrics.CaptureRunning.Store(1)

	go func() {
		defer close(done)
		// A loop stopped by a rapid unsubscribe/subscribe may still be
		// releasing its source; it must finish before we open a new one.
		if prev != nil {
			<-prev
		}
		c.run(gen, stop)
	}()
}

func (c *Controller) stopLocked() {
	if !c.running {
		return
	}
	c.running = false
	close(c.stopCh)
	c.opts.Metrics.CaptureRunning.Store(0)
}

// run is the capture loop: connect, stream frames into the buffer, and
// on any failure back off and reconnect until stopped.
func (c *Controller) run(gen uint64, stop <-chan struct{}) {
	m := c.opts.Metrics
	interval := time.Second / time.Duration(c.opts.TargetFPS)

	logger.Info("Camera", "Capture loop #%d starting", gen)
	defer logger.Info("Camera", "Capture loop #%d stopped", gen)

	for {
		select {
		case <-stop:
			return
		default:
		}

		src := c.opts.NewSource()
		m.ConnectAttempts.Add(1)
		if err := src.Open(context.Background()); err != nil {
			_ = src.Close()
			m.ConnectErrors.Add(1)
			logger.Warn("Camera", "Connect failed: %v", err)
			if !sleepUnlessStopped(stop, c.opts.ReconnectBackoff) {
				return
			}
			continue
		}
		logger.Info("Camera", "Upstream connected")

		// Closing the source from here unblocks a ReadFrame stuck on I/O,
		// so the loop exits promptly when the last subscriber leaves.
		connDone := make(chan struct{})
		go func() {
			select {
			case <-stop:
				_ = src.Close()
			case <-connDone:
			}
		}()

		c.stream(src, stop, interval)

		close(connDone)
		_ = src.Close()

		select {
		case <-stop:
			return
		default:
		}
		m.Reconnects.Add(1)
		logger.Info("Camera", "Reconnecting in %v", c.opts.ReconnectBackoff)
		if !sleepUnlessStopped(stop, c.opts.ReconnectBackoff) {
			return
		}
	}
}

// stream reads frames into the buffer until the source fails or the loop
// is stopped.
func (c *Controller) stream(src source.Source, stop <-chan struct{}, interval time.Duration) {
	m := c.opts.Metrics

	for {
		select {
		case <-stop:
			return
		default:
		}

		frame, err := src.ReadFrame()
		if err != nil {
			if errors.Is(err, source.ErrEndOfStream) {
				logger.Info("Camera", "Upstream ended")
			} else {
				m.CaptureErrors.Add(1)
				logger.Warn("Camera", "Read failed: %v", err)
			}
			return
		}

		c.buf.Store(frame)
		m.FramesCaptured.Add(1)

		if !sleepUnlessStopped(stop, interval) {
			return
		}
	}
}

// sleepUnlessStopped waits for d, returning false if stop closes first.
func sleepUnlessStopped(stop <-chan struct{}, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-stop:
		return false
	case <-t.C:
		return true
	}
}
