// Package eventstream decodes an incrementally-delivered byte stream into an
// ordered sequence of typed stage events.
//
// Each deliverable unit is a line prefixed with "data:" followed by one
// JSON-encoded event envelope. Chunk boundaries carry no meaning: a line may
// arrive split across any number of reads and is only interpreted once its
// terminating newline has been received.
package eventstream

import (
	"bytes"
	"io"
	"strings"

	"github.com/kuware/council-core/core/events"
)

const eventPrefix = "data:"

const readChunkSize = 4096

// Reader turns a byte-producing stream into a lazy, in-order, finite
// sequence of stage events. Each request owns one Reader instance; a Reader
// is not safe for concurrent use.
type Reader struct {
	source io.Reader

	// residual holds the trailing partial line of the previous chunk until
	// its terminating newline arrives.
	residual []byte
	dropped  int
}

func NewReader(source io.Reader) *Reader {
	return &Reader{source: source}
}

// Events yields parsed events strictly in the order their terminating
// newline was received. Lines that fail to parse are dropped with a recorded
// diagnostic and do not abort the stream. The sequence terminates when the
// underlying stream signals end-of-data.
//
// Usable directly as a range-over-func iterator:
//
//	for event := range reader.Events { ... }
func (r *Reader) Events(yield func(events.StageEvent) bool) {
	chunk := make([]byte, readChunkSize)
	for {
		n, err := r.source.Read(chunk)
		if n > 0 {
			r.residual = append(r.residual, chunk[:n]...)
			if !r.drainCompleteLines(yield) {
				return
			}
		}

		if err != nil {
			if err != io.EOF {
				logger.Warn("event stream read failed", "error", err)
			}
			if len(bytes.TrimSpace(r.residual)) > 0 {
				// A partial line with no terminating newline is never an
				// event; it is unfinished data the stream cut off.
				logger.Debug("discarding unterminated residual at end of stream",
					"bytes", len(r.residual))
			}
			return
		}
	}
}

// Dropped reports how many complete lines failed to parse and were skipped.
func (r *Reader) Dropped() int {
	return r.dropped
}

func (r *Reader) drainCompleteLines(yield func(events.StageEvent) bool) bool {
	for {
		newline := bytes.IndexByte(r.residual, '\n')
		if newline < 0 {
			return true
		}

		line := strings.TrimRight(string(r.residual[:newline]), "\r")
		r.residual = r.residual[newline+1:]

		if !strings.HasPrefix(line, eventPrefix) {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, eventPrefix))
		if payload == "" {
			continue
		}

		event, err := events.ParseEnvelope([]byte(payload))
		if err != nil {
			r.dropped++
			logger.Warn("dropping malformed event line", "error", err)
			continue
		}

		if !yield(event) {
			return false
		}
	}
}
