package toolchain

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
)

// LogWriter forwards process output to a logger, one record per line.
type LogWriter struct {
	logger *slog.Logger
	level  slog.Level
	stream string

	mu  sync.Mutex
	buf bytes.Buffer
}

// NewLogWriter returns a writer that logs complete lines at level, tagged
// with the stream name.
func NewLogWriter(logger *slog.Logger, level slog.Level, stream string) *LogWriter {
	return &LogWriter{logger: logger, level: level, stream: stream}
}

// Write buffers p and logs every complete line.
func (w *LogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadBytes('\n')
		if err != nil {
			// Incomplete line: put it back for the next write.
			rest := append([]byte(nil), line...)
			w.buf.Reset()
			w.buf.Write(rest)
			break
		}
		w.emit(line[:len(line)-1])
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (w *LogWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() > 0 {
		w.emit(w.buf.Bytes())
		w.buf.Reset()
	}
}

func (w *LogWriter) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(line) == 0 {
		return
	}
	w.logger.Log(context.Background(), w.level, string(line), "stream", w.stream)
}
