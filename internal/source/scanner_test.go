package source

import (
	"bytes"
	"io"
	"testing"
)

func makeJPEG(payload ...byte) []byte {
	frame := []byte{0xFF, 0xD8}
	frame = append(frame, payload...)
	return append(frame, 0xFF, 0xD9)
}

// chunkReader yields its chunks one Read at a time, forcing the scanner
// to handle frames split across reads.
type chunkReader struct {
	chunks [][]byte
	i      int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.i >= len(r.chunks) {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[r.i])
	r.i++
	return n, nil
}

func TestScannerSingleFrame(t *testing.T) {
	frame := makeJPEG(0x01, 0x02, 0x03)
	s := newFrameScanner(bytes.NewReader(frame))

	got, err := s.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if !bytes.Equal(got, frame) {
		t.Fatalf("Next() = % x, want % x", got, frame)
	}
	if _, err := s.Next(); err != io.EOF {
		t.Fatalf("Next() after stream end = %v, want io.EOF", err)
	}
}

func TestScannerMultipleFrames(t *testing.T) {
	first := makeJPEG(0x11)
	second := makeJPEG(0x22, 0x23)
	s := newFrameScanner(bytes.NewReader(append(append([]byte{}, first...), second...)))

	got, err := s.Next()
	if err != nil {
		t.Fatalf("first Next() error: %v", err)
	}
	if !bytes.Equal(got, first) {
		t.Fatalf("first frame = % x, want % x", got, first)
	}

	got, err = s.Next()
	if err != nil {
		t.Fatalf("second Next() error: %v", err)
	}
	if !bytes.Equal(got, second) {
		t.Fatalf("second frame = % x, want % x", got, second)
	}
}

func TestScannerSkipsGarbageBeforeFrame(t *testing.T) {
	frame := makeJPEG(0x42)
	stream := append([]byte{0x00, 0x01, 0xFF, 0x00}, frame...)
	s := newFrameScanner(bytes.NewReader(stream))

	got, err := s.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if !bytes.Equal(got, frame) {
		t.Fatalf("Next() = % x, want % x", got, frame)
	}
}

func TestScannerFrameSplitAcrossReads(t *testing.T) {
	frame := makeJPEG(0xAA, 0xBB, 0xCC, 0xDD)
	r := &chunkReader{chunks: [][]byte{
		frame[:1], // split inside the SOI marker
		frame[1:4],
		frame[4:7], // split inside the EOI marker
		frame[7:],
	}}
	s := newFrameScanner(r)

	got, err := s.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if !bytes.Equal(got, frame) {
		t.Fatalf("Next() = % x, want % x", got, frame)
	}
}

func TestScannerPartialFrameAtEOF(t *testing.T) {
	partial := []byte{0xFF, 0xD8, 0x01, 0x02} // no EOI
	s := newFrameScanner(bytes.NewReader(partial))

	if _, err := s.Next(); err != io.EOF {
		t.Fatalf("Next() = %v, want io.EOF", err)
	}
}
