package camera

import (
	"image"
	"testing"
	"time"

	"github.com/qxuan512/rtsp-camera-driver/pkg/types"
)

func TestBufferEmpty(t *testing.T) {
	b := NewBuffer()
	if _, ok := b.Latest(); ok {
		t.Fatalf("Latest() on empty buffer should report absent")
	}
	if !b.LastCapture().IsZero() {
		t.Fatalf("LastCapture() on empty buffer should be zero")
	}
}

func TestBufferStoresLatest(t *testing.T) {
	b := NewBuffer()
	img := image.NewGray(image.Rect(0, 0, 2, 2))

	b.Store(&types.Frame{Image: img, Timestamp: time.Now(), Number: 1})
	b.Store(&types.Frame{Image: img, Timestamp: time.Now(), Number: 2})

	frame, ok := b.Latest()
	if !ok {
		t.Fatalf("Latest() should report present after Store")
	}
	if frame.Number != 2 {
		t.Fatalf("Latest().Number = %d, want 2 (newest wins)", frame.Number)
	}
	if b.LastCapture().IsZero() {
		t.Fatalf("LastCapture() should be set after Store")
	}
}

func TestBufferSnapshotIsStable(t *testing.T) {
	b := NewBuffer()
	img := image.NewGray(image.Rect(0, 0, 2, 2))

	b.Store(&types.Frame{Image: img, Number: 1})
	snap, _ := b.Latest()
	b.Store(&types.Frame{Image: img, Number: 2})

	if snap.Number != 1 {
		t.Fatalf("snapshot changed after overwrite: Number = %d, want 1", snap.Number)
	}
}
