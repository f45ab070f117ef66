package refresh

import "time"

// Outcome is the terminal state of one refresh run.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeSkipped   Outcome = "skipped"
)

// RunState is the process-wide record of refresh activity. It is written only
// by the run holding the coordinator lock and may be read at any time.
type RunState struct {
	InProgress  bool
	LastStarted time.Time
	// LastCompleted is when the most recent run ended, whatever its outcome.
	LastCompleted time.Time
	LastOutcome   Outcome
	Succeeded     int
	Failed        int
	Unprocessed   int
	Total         int
}

// Report summarizes a single call to RunOnce.
type Report struct {
	Outcome     Outcome
	StartedAt   time.Time
	FinishedAt  time.Time
	Total       int
	Succeeded   int
	Failed      int
	Unprocessed int
}

// Duration is the wall-clock time the run took.
func (r Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
