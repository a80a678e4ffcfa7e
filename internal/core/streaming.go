package core

// Readers applied to an uploaded CSV before it reaches encoding/csv. They
// work on the stream so memory stays flat regardless of file size.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NewBOMSkippingReader drops a leading UTF-8 byte order mark, which
// spreadsheet programs on Windows add to exported CSV files.
func NewBOMSkippingReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// UTF8Sanitizer replaces every byte that is not part of a valid UTF-8
// sequence with '?'. A sequence split across two reads of the underlying
// reader is held back until it is complete.
type UTF8Sanitizer struct {
	r       io.Reader
	pending []byte
	scratch []byte
	err     error
}

// NewUTF8Sanitizer wraps r.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{r: r}
}

// Read implements io.Reader. p must hold at least utf8.UTFMax bytes.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) < utf8.UTFMax {
		return 0, io.ErrShortBuffer
	}
	for {
		if n := s.drain(p); n > 0 {
			return n, nil
		}
		if s.err != nil {
			return 0, s.err
		}
		s.fill(len(p))
	}
}

func (s *UTF8Sanitizer) fill(hint int) {
	if cap(s.scratch) < hint {
		s.scratch = make([]byte, hint)
	}
	n, err := s.r.Read(s.scratch[:hint])
	s.pending = append(s.pending, s.scratch[:n]...)
	s.err = err
}

// drain copies complete runes from pending into p.
func (s *UTF8Sanitizer) drain(p []byte) int {
	w := 0
	for len(s.pending) > 0 {
		// Wait for the rest of a split sequence unless the input has ended.
		if s.err == nil && !utf8.FullRune(s.pending) {
			break
		}
		r, size := utf8.DecodeRune(s.pending)
		if r == utf8.RuneError && size == 1 {
			if w == len(p) {
				break
			}
			p[w] = '?'
			w++
			s.pending = s.pending[1:]
			continue
		}
		if w+size > len(p) {
			break
		}
		w += copy(p[w:], s.pending[:size])
		s.pending = s.pending[size:]
	}
	return w
}

// CountingReader tracks bytes read for progress reporting.
type CountingReader struct {
	r         io.Reader
	BytesRead int64
	Total     int64 // 0 when unknown
}

// NewCountingReader wraps r. total is the expected size, or 0.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{r: r, Total: total}
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.BytesRead += int64(n)
	return n, err
}

// Progress returns the percentage read, or 0 when the total is unknown.
func (c *CountingReader) Progress() int {
	if c.Total <= 0 {
		return 0
	}
	return int(c.BytesRead * 100 / c.Total)
}

// WrapForStreaming strips the BOM, then sanitizes UTF-8, then counts what
// the CSV reader consumes.
func WrapForStreaming(r io.Reader, total int64) *CountingReader {
	return NewCountingReader(NewUTF8Sanitizer(NewBOMSkippingReader(r)), total)
}
