package model

// Outcome is the terminal state of one plan item or extraction.
type Outcome int

const (
	// OutcomeSuccess means the item completed fully.
	OutcomeSuccess Outcome = iota
	// OutcomeSkipped means the item was not attempted because its stem was
	// already present locally.
	OutcomeSkipped
	// OutcomeFailed means all attempts were exhausted.
	OutcomeFailed
	// OutcomeCancelled means the shared cancellation signal fired before or
	// during the item.
	OutcomeCancelled
)

// String returns the lowercase name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// DownloadResult records the terminal state of one plan item. Produced
// exactly once per item, never mutated after creation.
type DownloadResult struct {
	Item             PlanItem
	Outcome          Outcome
	BytesTransferred int64
	Attempts         int
	Err              error
}

// ExtractResult records the terminal state of one decompression.
type ExtractResult struct {
	CompressedPath string
	OutputPath     string
	Outcome        Outcome
	Err            error

	// SourceDeleted reports whether the compressed source was removed after
	// a verified extraction.
	SourceDeleted bool
	// DeleteErr is set when deletion was requested but failed; the
	// extraction itself still counts as successful.
	DeleteErr error
}
