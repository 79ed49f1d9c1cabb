package services

// Thresholds collects every tunable decision boundary in the core so rule
// logic never hard-codes a literal.
type Thresholds struct {
	// DeadlineWindowDays is the look-ahead window for the
	// deadline_approaching alert.
	DeadlineWindowDays int

	// StaleDays is how long a workflow may sit without any step status
	// change before a stale_activity alert fires.
	StaleDays int

	// MaxPendingSteps is how many simultaneously pending (not_started or
	// in_progress) steps a workflow may hold before a too_many_pending
	// alert fires.
	MaxPendingSteps int

	// SetupMilestonePercent is the overall-progress floor below which the
	// setup-nudge alert fires.
	SetupMilestonePercent int

	// NearCompletionPercent is the overall-progress ceiling above which the
	// near-completion alert fires.
	NearCompletionPercent int

	// LatenessMajorDays is the timeline overrun, in days, at which an
	// automatic major timeline deviation opens.
	LatenessMajorDays int

	// LatenessCriticalDays is the timeline overrun at which the deviation
	// severity becomes critical and the timeline score bottoms out at 0.
	LatenessCriticalDays int
}

// DefaultThresholds returns the thresholds used by the application.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DeadlineWindowDays:    7,
		StaleDays:             15,
		MaxPendingSteps:       5,
		SetupMilestonePercent: 30,
		NearCompletionPercent: 80,
		LatenessMajorDays:     7,
		LatenessCriticalDays:  14,
	}
}
