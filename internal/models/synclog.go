package models

import "time"

// SyncStatus classifies the overall outcome of one run.
type SyncStatus string

const (
	SyncSuccess SyncStatus = "success"
	SyncPartial SyncStatus = "partial"
	SyncFailed  SyncStatus = "failed"
)

// SyncLogEntry is one recorded failure inside a run. Page is empty for
// run-level failures (configuration, page listing).
type SyncLogEntry struct {
	Page      string    `json:"page,omitempty"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// SyncLog is the audit record of a single run. Exactly one row is written
// per invocation, after processing finishes; rows are never updated.
type SyncLog struct {
	ID              int64          `json:"id"`
	SyncStartedAt   time.Time      `json:"sync_started_at"`
	SyncCompletedAt time.Time      `json:"sync_completed_at"`
	Status          SyncStatus     `json:"status"`
	PagesProcessed  int            `json:"pages_processed"`
	PagesFailed     int            `json:"pages_failed"`
	ErrorLog        []SyncLogEntry `json:"error_log,omitempty"`
}

// Classify computes the run outcome from the page counters. A run that
// discovered zero pages is trivially successful.
func Classify(pagesProcessed, pagesFailed int) SyncStatus {
	switch {
	case pagesFailed == 0:
		return SyncSuccess
	case pagesFailed < pagesProcessed:
		return SyncPartial
	default:
		return SyncFailed
	}
}
