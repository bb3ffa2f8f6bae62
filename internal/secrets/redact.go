package secrets

import (
	"io"
	"strings"
	"sync"
)

// Mask replaces redacted secret values in output
const Mask = "***"

// Redactor masks a set of secret values in strings and streams. Captured
// stage output is passed through a Redactor before it is persisted or
// logged, so the publish credential never appears in any stage's output.
type Redactor struct {
	replacer *strings.Replacer
	empty    bool
}

// NewRedactor creates a redactor for the given secret values. Empty values
// are ignored so an unset credential does not mask empty strings.
func NewRedactor(values ...string) *Redactor {
	pairs := make([]string, 0, len(values)*2)
	for _, v := range values {
		if v == "" {
			continue
		}
		pairs = append(pairs, v, Mask)
	}

	return &Redactor{
		replacer: strings.NewReplacer(pairs...),
		empty:    len(pairs) == 0,
	}
}

// Redact masks all secret values in s
func (r *Redactor) Redact(s string) string {
	if r.empty {
		return s
	}
	return r.replacer.Replace(s)
}

// RedactError masks secret values in an error's message, returning the
// masked text. A nil error yields an empty string.
func (r *Redactor) RedactError(err error) string {
	if err == nil {
		return ""
	}
	return r.Redact(err.Error())
}

// Writer returns an io.Writer that masks secrets before forwarding to w.
//
// Writes are line-buffered: a secret split across two writes within one
// line is still masked once the line completes. Callers must Close the
// writer (or call Flush) to release a trailing unterminated line.
func (r *Redactor) Writer(w io.Writer) *RedactingWriter {
	return &RedactingWriter{redactor: r, dst: w}
}

// RedactingWriter masks secret values in a byte stream
type RedactingWriter struct {
	redactor *Redactor
	dst      io.Writer
	mu       sync.Mutex
	buf      strings.Builder
}

// Write buffers p and forwards completed lines with secrets masked
func (w *RedactingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)

	data := w.buf.String()
	idx := strings.LastIndexByte(data, '\n')
	if idx < 0 {
		return len(p), nil
	}

	complete, rest := data[:idx+1], data[idx+1:]
	w.buf.Reset()
	w.buf.WriteString(rest)

	if _, err := io.WriteString(w.dst, w.redactor.Redact(complete)); err != nil {
		return len(p), err
	}

	return len(p), nil
}

// Flush writes any buffered partial line, masked
func (w *RedactingWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() == 0 {
		return nil
	}

	data := w.buf.String()
	w.buf.Reset()

	_, err := io.WriteString(w.dst, w.redactor.Redact(data))
	return err
}

// Close flushes the writer
func (w *RedactingWriter) Close() error {
	return w.Flush()
}
