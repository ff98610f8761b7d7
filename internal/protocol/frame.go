package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// One envelope per line. json.Marshal never emits raw newlines, so a
// bare '\n' is an unambiguous frame boundary on the byte stream.

const readBufSize = 4 * 1024

var ErrFrameTooLarge = errors.New("frame too large")

// Reader accumulates partial reads and splits coalesced ones, yielding
// exactly one envelope's bytes per call.
type Reader struct {
	s *bufio.Scanner
}

// NewReader wraps a stream; frames longer than maxFrame bytes fail the
// stream with ErrFrameTooLarge.
func NewReader(r io.Reader, maxFrame int) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, readBufSize), maxFrame)
	return &Reader{s: s}
}

// Next returns the next envelope, io.EOF at clean end of stream.
// Blank lines are skipped. The returned slice is the caller's to keep.
func (r *Reader) Next() ([]byte, error) {
	for r.s.Scan() {
		line := bytes.TrimSpace(r.s.Bytes())
		if len(line) == 0 {
			continue
		}
		return bytes.Clone(line), nil
	}
	if err := r.s.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, ErrFrameTooLarge
		}
		return nil, err
	}
	return nil, io.EOF
}

// Writer emits one delimited envelope per call. It is not threadsafe;
// each connection funnels all writes through a single write pump.
type Writer struct {
	w *bufio.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) WriteFrame(data []byte) error {
	if _, err := w.w.Write(data); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}
