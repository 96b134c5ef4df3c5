package types

import (
	"image"
	"time"
)

// Frame is a single decoded video frame with its capture metadata.
// A Frame is immutable once produced; the capture loop allocates a fresh
// one per read and never writes into a frame it has already published.
type Frame struct {
	Image     image.Image // Decoded pixels
	Timestamp time.Time   // Capture timestamp
	Number    uint64      // Sequential frame number within one connection
}
