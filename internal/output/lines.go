package output

import (
	"io"
	"sync"
)

// LineWriter writes one compact JSON document per line. It is safe for
// concurrent use; lines never interleave.
type LineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{w: w}
}

// Write encodes v followed by a newline.
func (l *LineWriter) Write(v interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return WriteJSON(l.w, v, false)
}
