// Package output provides JSONL reporting for batch operations.
//
// Output is structured as typed record envelopes. Each line is a
// self-contained JSON object that can be parsed independently, so reports
// stream cleanly into log pipelines.
package output

import (
	"encoding/json"
	"time"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: imaginestorage.<type>.v<version>
const (
	// TypeItem identifies per-object batch item records.
	TypeItem = "imaginestorage.item.v1"

	// TypeError identifies error records.
	TypeError = "imaginestorage.error.v1"

	// TypeSummary identifies final summary records.
	TypeSummary = "imaginestorage.summary.v1"
)

// Record is the envelope for all JSONL output.
//
// Each line contains a Record with a type-specific payload in the Data
// field. The type field determines how to interpret the payload.
type Record struct {
	// Type identifies the record type (e.g., "imaginestorage.item.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// BatchID is the correlation ID for this batch.
	BatchID string `json:"batch_id"`

	// Provider identifies the storage provider (e.g., "aws", "gcp").
	Provider string `json:"provider"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// ItemRecord is the data payload for one batch mapping's outcome.
type ItemRecord struct {
	// From is the source stored path.
	From string `json:"from"`

	// To is the destination stored path.
	To string `json:"to"`

	// Dispatched reports whether the copy was started at all.
	Dispatched bool `json:"dispatched"`

	// Error holds the failure message, empty on success.
	Error string `json:"error,omitempty"`
}

// ErrorRecord is the data payload for batch-level failures.
type ErrorRecord struct {
	// Message is the human-readable error description.
	Message string `json:"message"`

	// Op names the operation that failed.
	Op string `json:"op,omitempty"`
}

// SummaryRecord is the data payload for the final batch summary.
type SummaryRecord struct {
	// Total is the number of mappings submitted.
	Total int `json:"total"`

	// Succeeded is the number of copies that completed.
	Succeeded int `json:"succeeded"`

	// Failed is the number of copies that errored.
	Failed int `json:"failed"`

	// Skipped is the number of mappings never dispatched.
	Skipped int `json:"skipped"`

	// DurationMS is the wall-clock batch duration in milliseconds.
	DurationMS int64 `json:"duration_ms"`
}
