package tools

import (
	"bytes"
	"context"
	"io"
	"sync"
)

type contextKeyTarget struct{}

func withTarget(ctx context.Context, target string) context.Context {
	return context.WithValue(ctx, contextKeyTarget{}, target)
}

func targetFrom(ctx context.Context) string {
	target, _ := ctx.Value(contextKeyTarget{}).(string)
	return target
}

// prefixWriter tags each complete line with the target it belongs to, so
// concurrent operations can share one destination. All writers for a
// destination share mu; a line is never split across writes to dst.
type prefixWriter struct {
	mu     *sync.Mutex
	dst    io.Writer
	prefix []byte
	buf    []byte
}

func newPrefixWriter(mu *sync.Mutex, dst io.Writer, target string) *prefixWriter {
	var prefix []byte
	if target != "" {
		prefix = []byte("[" + target + "] ")
	}
	return &prefixWriter{mu: mu, dst: dst, prefix: prefix}
}

func (w *prefixWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		if err := w.emit(w.buf[:i+1]); err != nil {
			return 0, err
		}
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// Flush writes a trailing line that had no newline.
func (w *prefixWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) == 0 {
		return nil
	}
	line := append(w.buf, '\n')
	w.buf = nil
	return w.emit(line)
}

func (w *prefixWriter) emit(line []byte) error {
	out := make([]byte, 0, len(w.prefix)+len(line))
	out = append(out, w.prefix...)
	out = append(out, line...)
	_, err := w.dst.Write(out)
	return err
}
