package model

import "time"

// FailureStage identifies which pipeline stage produced a failure record.
type FailureStage string

const (
	StageEnumeration   FailureStage = "enumeration"
	StageScan          FailureStage = "scan"
	StageDownload      FailureStage = "download"
	StageDecompression FailureStage = "decompression"
	StageDeletion      FailureStage = "deletion"
)

// FailureRecord is one captured per-item or per-root failure. Failures never
// propagate as fatal errors; they surface only through the summary.
type FailureRecord struct {
	Stage  FailureStage
	Name   string
	Reason string
}

// SessionSummary is the single accounting record of a run. It is accumulated
// by the orchestrator as items complete and handed to the caller exactly
// once, after all stages have finished or been cancelled.
type SessionSummary struct {
	RunID   string
	Started time.Time
	Elapsed time.Duration

	Downloaded     int
	Skipped        int
	FailedDownload int
	Cancelled      int

	Extracted     int
	FailedExtract int
	Deleted       int
	FailedDelete  int

	BytesTransferred int64

	Failures []FailureRecord
	Warnings []string
}

// TotalItems returns the number of plan items the summary accounts for.
func (s *SessionSummary) TotalItems() int {
	return s.Downloaded + s.Skipped + s.FailedDownload + s.Cancelled
}

// HasFailures reports whether any stage recorded a failure.
func (s *SessionSummary) HasFailures() bool {
	return len(s.Failures) > 0
}
