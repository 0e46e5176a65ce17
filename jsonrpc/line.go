package jsonrpc

import (
	"bytes"
	"fmt"
	"io"
)

// DefaultMaxLineBytes bounds a single framed message.
const DefaultMaxLineBytes = 16 << 20

const readChunk = 32 << 10

// LineReader splits a stream into newline-terminated lines.
//
// Unlike bufio.Reader, bytes already received are never discarded when the
// underlying Read fails, so a caller may retry after a deadline error and
// continue the same line. LineReader is not safe for concurrent use.
type LineReader struct {
	r   io.Reader
	buf []byte
	max int
}

// NewLineReader returns a reader over r. A non-positive maxBytes selects
// DefaultMaxLineBytes.
func NewLineReader(r io.Reader, maxBytes int) *LineReader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxLineBytes
	}
	return &LineReader{r: r, max: maxBytes}
}

// ReadLine returns the next line without its terminator. Blank lines are
// skipped. When the underlying reader fails, the error is returned and any
// partial line stays buffered.
func (l *LineReader) ReadLine() ([]byte, error) {
	for {
		if i := bytes.IndexByte(l.buf, '\n'); i >= 0 {
			line := bytes.TrimSpace(l.buf[:i])
			l.buf = l.buf[i+1:]
			if len(line) == 0 {
				continue
			}
			out := make([]byte, len(line))
			copy(out, line)
			return out, nil
		}
		if len(l.buf) > l.max {
			return nil, fmt.Errorf("%w: more than %d bytes", ErrLineTooLong, l.max)
		}

		chunk := make([]byte, readChunk)
		n, err := l.r.Read(chunk)
		l.buf = append(l.buf, chunk[:n]...)
		if err != nil {
			if n > 0 && bytes.IndexByte(chunk[:n], '\n') >= 0 {
				// Deliver complete lines before surfacing the error.
				continue
			}
			return nil, err
		}
	}
}

// Buffered returns the number of bytes held for an incomplete line.
func (l *LineReader) Buffered() int {
	return len(l.buf)
}

// Reset discards buffered data and switches to a new stream.
func (l *LineReader) Reset(r io.Reader) {
	l.r = r
	l.buf = nil
}
