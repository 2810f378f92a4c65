package log

import (
	"bytes"
	"log/syslog"
	"sync"
)

// Writer turns lines written by a stdlib *log.Logger into messages of one priority.
type Writer struct {
	Priority syslog.Priority

	mu  sync.Mutex
	buf bytes.Buffer
}

func NewWriter(prio syslog.Priority) *Writer {
	return &Writer{Priority: prio}
}

func (w *Writer) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, b := range p {
		if b == '\n' {
			Log(w.Priority, "%s", w.buf.String())
			w.buf.Reset()
			continue
		}
		w.buf.WriteByte(b)
	}
	return len(p), nil
}
