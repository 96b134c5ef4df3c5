// Package encoder converts captured frames into JPEG payloads for the
// HTTP surface.
package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/qxuan512/rtsp-camera-driver/pkg/types"
)

// Encoder renders frames as JPEG at a fixed quality, optionally stamping
// the capture timestamp onto the image.
type Encoder struct {
	quality int
	overlay bool
}

// New returns an encoder with the given JPEG quality, clamped to 1-100.
func New(quality int, overlay bool) *Encoder {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	return &Encoder{quality: quality, overlay: overlay}
}

// Encode renders f as a JPEG.
func (e *Encoder) Encode(f types.Frame) ([]byte, error) {
	if f.Image == nil {
		return nil, errors.New("encoder: empty frame")
	}

	img := f.Image
	if e.overlay {
		img = stampTimestamp(img, f.Timestamp)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// stampTimestamp draws the capture time in the top-left corner of a copy
// of src. White text on a black backing box so it stays readable on
// light frames.
func stampTimestamp(src image.Image, ts time.Time) image.Image {
	bounds := src.Bounds()
	img := image.NewRGBA(bounds)
	draw.Draw(img, bounds, src, bounds.Min, draw.Src)

	label := ts.Format("2006/01/02 15:04:05")
	d := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(bounds.Min.X+10, bounds.Min.Y+20),
	}

	width := d.MeasureString(label).Ceil()
	box := image.Rect(bounds.Min.X+6, bounds.Min.Y+8, bounds.Min.X+14+width, bounds.Min.Y+24)
	draw.Draw(img, box.Intersect(bounds), image.Black, image.Point{}, draw.Src)
	d.DrawString(label)

	return img
}
