// Package maskio implements the streaming redaction writer. It wraps an
// output sink and guarantees no active secret reaches the sink in
// cleartext, even when a secret's bytes arrive split across separate
// Write calls.
package maskio

import (
	"errors"
	"io"
	"unicode/utf8"

	"github.com/veilstream/veil/internal/pattern"
	"github.com/veilstream/veil/internal/secrets"
)

// DefaultToken replaces every confirmed secret match. It is fixed
// length so output never reveals how long the secret was.
const DefaultToken = "****"

// ErrClosed is returned by Write after the stream has been closed.
var ErrClosed = errors.New("maskio: write to closed stream")

// Recorder receives masking statistics. Implementations must be safe
// for use from the stream's writer goroutine; the stream never blocks
// on a recorder.
type Recorder interface {
	// SecretMasked is called once per confirmed match replaced in the
	// output.
	SecretMasked()
	// BytesFiltered is called with the number of raw bytes accepted by
	// a successful Write.
	BytesFiltered(n int)
}

// Writer filters secrets out of a byte stream before forwarding it to
// the sink. A Writer belongs to exactly one execution context and is
// written by a single logical producer at a time; it does no internal
// locking.
//
// Between writes the Writer retains the suffix of the window that could
// still be the prefix of an unfinished secret: normally at most
// MaxLen()-1 bytes. When a match runs past that boundary the whole
// candidate is held back so a longer secret can still supersede it,
// which bounds retention at 2*MaxLen()-2 bytes, plus up to 3 bytes of
// backoff so a UTF-8 sequence is never split.
type Writer struct {
	sink     io.Writer
	supplier secrets.Supplier
	token    []byte
	rec      Recorder

	retained []byte
	scratch  []byte // window assembly buffer, reused across writes
	out      []byte // masked output buffer, reused across writes
	closed   bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithToken overrides the mask token. The token must be non-empty and
// must not vary with the matched secret.
func WithToken(token string) Option {
	return func(w *Writer) {
		if token != "" {
			w.token = []byte(token)
		}
	}
}

// WithRecorder attaches a masking statistics recorder.
func WithRecorder(rec Recorder) Option {
	return func(w *Writer) {
		w.rec = rec
	}
}

// NewWriter wraps sink with a masking filter bound to supplier. The
// supplier is consulted on every write, so secrets added to or removed
// from the scope take effect on the next chunk; bytes already flushed
// are never rescanned.
func NewWriter(sink io.Writer, supplier secrets.Supplier, opts ...Option) *Writer {
	w := &Writer{
		sink:     sink,
		supplier: supplier,
		token:    []byte(DefaultToken),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write scans p, together with any bytes retained from earlier writes,
// and forwards the safely-decided prefix with confirmed secrets
// replaced by the mask token. It returns len(p) on success even though
// the number of bytes reaching the sink differs.
//
// If the sink write fails the error propagates and the retention state
// is left exactly as it was before the call, so a caller-level retry
// cannot double-emit or shift match boundaries.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}

	agg := w.supplier.Current()

	// Fast path: no active secrets. Drain anything previously retained
	// and pass the chunk through untouched.
	if agg.IsNoop() {
		if len(w.retained) > 0 {
			if _, err := w.sink.Write(w.retained); err != nil {
				return 0, err
			}
			w.retained = w.retained[:0]
		}
		if len(p) > 0 {
			if _, err := w.sink.Write(p); err != nil {
				return 0, err
			}
		}
		if w.rec != nil {
			w.rec.BytesFiltered(len(p))
		}
		return len(p), nil
	}

	window := append(w.scratch[:0], w.retained...)
	window = append(window, p...)
	w.scratch = window

	masked, safe, matches := w.scan(window, agg, false)
	if len(masked) > 0 {
		if _, err := w.sink.Write(masked); err != nil {
			return 0, err
		}
	}

	w.retained = append(w.retained[:0], window[safe:]...)
	if w.rec != nil {
		for range matches {
			w.rec.SecretMasked()
		}
		w.rec.BytesFiltered(len(p))
	}
	return len(p), nil
}

// scan masks window up to its safe boundary and returns the masked
// bytes, the offset where retention starts, and the confirmed match
// positions. With final set, the whole window is safe: no more data
// will arrive, so nothing can extend a match past the end.
func (w *Writer) scan(window []byte, agg *pattern.Aggregate, final bool) (masked []byte, safe int, confirmed [][]int) {
	safe = len(window)
	if !final {
		safe -= agg.MaxLen() - 1
		if safe < 0 {
			safe = 0
		}
		// The boundary must not split a multi-byte sequence; back off
		// to a rune start and retain the partial rune instead.
		for safe > 0 && safe < len(window) && !utf8.RuneStart(window[safe]) {
			safe--
		}
	}

	out := w.out[:0]
	pos := 0
	for _, m := range agg.Matches(window) {
		start, end := m[0], m[1]
		if start >= safe {
			break
		}
		if end > safe && !final {
			// The match runs past the safe boundary; a longer secret
			// could still supersede it once more bytes arrive. Hold the
			// entire candidate back.
			safe = start
			break
		}
		out = append(out, window[pos:start]...)
		out = append(out, w.token...)
		pos = end
		confirmed = append(confirmed, m)
	}
	if pos < safe {
		out = append(out, window[pos:safe]...)
	}
	w.out = out
	return out, safe, confirmed
}

// Flush performs a final scan over the retained bytes as a complete
// window, masking any secret that ends exactly at the end of input,
// and forwards everything, trailing unmatched bytes included.
func (w *Writer) Flush() error {
	if len(w.retained) == 0 {
		return nil
	}
	agg := w.supplier.Current()

	var masked []byte
	var matches [][]int
	if agg.IsNoop() {
		masked = w.retained
	} else {
		masked, _, matches = w.scan(w.retained, agg, true)
	}
	if len(masked) > 0 {
		if _, err := w.sink.Write(masked); err != nil {
			return err
		}
	}
	w.retained = w.retained[:0]
	if w.rec != nil {
		for range matches {
			w.rec.SecretMasked()
		}
	}
	return nil
}

// Close flushes the retained tail and seals the stream. It is
// idempotent: any call after the first is a no-op returning nil, and it
// never re-flushes. The sink itself is not closed; its lifecycle
// belongs to whoever supplied it.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.Flush()
}

var _ io.WriteCloser = (*Writer)(nil)
