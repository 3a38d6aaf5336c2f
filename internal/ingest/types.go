// Package ingest connects the document pipeline to the search core: it
// consumes document events from Kafka, drives indexing, persists status
// transitions, and publishes index-status events.
package ingest

import "time"

// Event operations.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// DocumentEvent is one message on the document-ingest topic.
type DocumentEvent struct {
	DocumentID    string    `json:"documentId"`
	Title         string    `json:"title"`
	ExtractedText string    `json:"extractedText"`
	OCRText       string    `json:"ocrText"`
	Summary       string    `json:"summary"`
	Op            string    `json:"op"`
	IngestedAt    time.Time `json:"ingestedAt"`
}

// StatusEvent is published to the index-status topic after each
// processed document.
type StatusEvent struct {
	DocumentID string    `json:"documentId"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Chunks     int       `json:"chunks"`
	Timestamp  time.Time `json:"timestamp"`
}
