package source

import (
	"bytes"
	"io"
)

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// frameScanner splits a raw MJPEG byte stream into complete JPEG images
// by scanning for the SOI/EOI markers.
type frameScanner struct {
	r   io.Reader
	buf bytes.Buffer
	tmp []byte
}

func newFrameScanner(r io.Reader) *frameScanner {
	return &frameScanner{r: r, tmp: make([]byte, 64*1024)}
}

// Next returns the next complete JPEG image from the stream. It returns
// io.EOF (or the underlying read error) once the stream ends with no
// complete image left in the buffer.
func (s *frameScanner) Next() ([]byte, error) {
	for {
		if frame := s.extract(); frame != nil {
			return frame, nil
		}
		n, err := s.r.Read(s.tmp)
		if n > 0 {
			s.buf.Write(s.tmp[:n])
		}
		if err != nil {
			if frame := s.extract(); frame != nil {
				return frame, nil
			}
			return nil, err
		}
	}
}

// extract pops one complete JPEG off the front of the buffer, dropping
// any garbage before its SOI marker. Returns nil when no complete image
// is buffered yet.
func (s *frameScanner) extract() []byte {
	data := s.buf.Bytes()

	start := bytes.Index(data, jpegSOI)
	if start < 0 {
		// Keep the last byte in case it is the first half of a split SOI.
		if len(data) > 1 {
			s.truncateFront(len(data) - 1)
		}
		return nil
	}

	end := bytes.Index(data[start+2:], jpegEOI)
	if end < 0 {
		if start > 0 {
			s.truncateFront(start)
		}
		return nil
	}
	end += start + 2 + len(jpegEOI)

	frame := make([]byte, end-start)
	copy(frame, data[start:end])
	s.truncateFront(end)
	return frame
}

// truncateFront drops the first n buffered bytes.
func (s *frameScanner) truncateFront(n int) {
	rest := append([]byte(nil), s.buf.Bytes()[n:]...)
	s.buf.Reset()
	s.buf.Write(rest)
}
