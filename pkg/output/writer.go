package output

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"
)

// ErrWriterClosed is returned by writes after Close.
var ErrWriterClosed = errors.New("output: writer closed")

// Writer emits JSONL records for a batch run.
//
// Implementations must be safe for concurrent use from multiple goroutines.
// Each Write* method emits a complete record as a single line of JSON
// followed by a newline.
type Writer interface {
	// WriteItem emits one mapping's outcome.
	WriteItem(ctx context.Context, item *ItemRecord) error

	// WriteError emits a batch-level error record.
	WriteError(ctx context.Context, rec *ErrorRecord) error

	// WriteSummary emits the final summary record.
	WriteSummary(ctx context.Context, sum *SummaryRecord) error

	// Close flushes any buffered output and releases resources.
	Close() error
}

// JSONLWriter writes records as newline-delimited JSON to an io.Writer.
//
// Writes are serialized with a mutex so lines never interleave.
type JSONLWriter struct {
	w        io.Writer
	batchID  string
	provider string

	mu     sync.Mutex
	closed bool
}

var _ Writer = (*JSONLWriter)(nil)

// NewJSONLWriter creates a JSONL writer. batchID correlates all records of
// one batch; provider identifies the storage vendor the batch ran against.
func NewJSONLWriter(w io.Writer, batchID, provider string) *JSONLWriter {
	return &JSONLWriter{w: w, batchID: batchID, provider: provider}
}

// WriteItem emits one mapping's outcome.
func (jw *JSONLWriter) WriteItem(ctx context.Context, item *ItemRecord) error {
	return jw.writeRecord(ctx, TypeItem, item)
}

// WriteError emits a batch-level error record.
func (jw *JSONLWriter) WriteError(ctx context.Context, rec *ErrorRecord) error {
	return jw.writeRecord(ctx, TypeError, rec)
}

// WriteSummary emits the final summary record.
func (jw *JSONLWriter) WriteSummary(ctx context.Context, sum *SummaryRecord) error {
	return jw.writeRecord(ctx, TypeSummary, sum)
}

// Close marks the writer closed. The underlying io.Writer is owned by the
// caller and is not closed here.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	jw.closed = true
	return nil
}

func (jw *JSONLWriter) writeRecord(ctx context.Context, recordType string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	line, err := json.Marshal(Record{
		Type:     recordType,
		TS:       time.Now().UTC(),
		BatchID:  jw.batchID,
		Provider: jw.provider,
		Data:     payload,
	})
	if err != nil {
		return err
	}

	jw.mu.Lock()
	defer jw.mu.Unlock()
	if jw.closed {
		return ErrWriterClosed
	}
	if _, err := jw.w.Write(append(line, '\n')); err != nil {
		return err
	}
	return nil
}
