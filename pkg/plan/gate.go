package plan

// Gating thresholds.
const (
	// LargeItemCount triggers a confirmation for bulky plans.
	LargeItemCount = 100
	// LargeTotalBytes triggers a confirmation for heavy plans (10 GiB).
	LargeTotalBytes int64 = 10 * 1024 * 1024 * 1024
	// LowSpaceFloorBytes is the post-download free-space safety floor
	// (100 GiB).
	LowSpaceFloorBytes int64 = 100 * 1024 * 1024 * 1024
)

// GateDecision is the pre-flight verdict on a plan. When multiple
// conditions hold the strictest wins: Reject > ConfirmLowSpace >
// ConfirmLarge > Proceed.
type GateDecision int

const (
	// GateProceed allows the download to start without confirmation.
	GateProceed GateDecision = iota
	// GateConfirmLarge requires confirmation: many items or many bytes.
	GateConfirmLarge
	// GateConfirmLowSpace requires confirmation: the download would leave
	// less than the safety floor free.
	GateConfirmLowSpace
	// GateReject refuses unconditionally: the download does not fit.
	GateReject
)

// String returns a short name for the decision.
func (d GateDecision) String() string {
	switch d {
	case GateProceed:
		return "proceed"
	case GateConfirmLarge:
		return "confirm-large"
	case GateConfirmLowSpace:
		return "confirm-low-space"
	case GateReject:
		return "reject"
	default:
		return "unknown"
	}
}

// NeedsConfirmation reports whether the caller must obtain confirmation
// before the plan may execute.
func (d GateDecision) NeedsConfirmation() bool {
	return d == GateConfirmLarge || d == GateConfirmLowSpace
}

// EvaluateGate is the pure gating policy. It considers only items not
// already present: totalBytes must be the sum over missing entries with
// known sizes, itemCount the number of missing entries.
func EvaluateGate(itemCount int, totalBytes, freeDiskBytes int64) GateDecision {
	remaining := freeDiskBytes - totalBytes
	if remaining < 0 {
		return GateReject
	}
	if remaining < LowSpaceFloorBytes {
		return GateConfirmLowSpace
	}
	if itemCount >= LargeItemCount || totalBytes >= LargeTotalBytes {
		return GateConfirmLarge
	}
	return GateProceed
}
