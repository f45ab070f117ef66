package refresh

import (
	"context"
	"errors"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// Status is the read-only view served to operators.
type Status struct {
	InProgress       bool       `json:"in_progress"`
	LastStarted      *time.Time `json:"last_started"`
	LastCompleted    *time.Time `json:"last_completed"`
	LastOutcome      Outcome    `json:"last_outcome,omitempty"`
	NextRun          *time.Time `json:"next_run"`
	SuccessCount     int        `json:"success_count"`
	FailureCount     int        `json:"failure_count"`
	UnprocessedCount int        `json:"unprocessed_count"`
	CachedEntities   int        `json:"cached_entities"`
	RegistrySize     int        `json:"registry_size"`
}

// Reporter composes run state and store contents. It never mutates either.
type Reporter struct {
	coord        *Coordinator
	store        domain.SnapshotReader
	registrySize int
	interval     time.Duration
}

func NewReporter(coord *Coordinator, store domain.SnapshotReader, registrySize int, interval time.Duration) *Reporter {
	return &Reporter{coord: coord, store: store, registrySize: registrySize, interval: interval}
}

func (r *Reporter) Status(ctx context.Context) (Status, error) {
	state := r.coord.State()

	slugs, err := r.store.List(ctx)
	if err != nil {
		return Status{}, err
	}

	st := Status{
		InProgress:       state.InProgress,
		LastStarted:      timePtr(state.LastStarted),
		LastCompleted:    timePtr(state.LastCompleted),
		LastOutcome:      state.LastOutcome,
		SuccessCount:     state.Succeeded,
		FailureCount:     state.Failed,
		UnprocessedCount: state.Unprocessed,
		CachedEntities:   len(slugs),
		RegistrySize:     r.registrySize,
	}
	if !state.LastCompleted.IsZero() {
		next := state.LastCompleted.Add(r.interval).UTC()
		st.NextRun = &next
	}
	return st, nil
}

// CheckReadiness returns nil once a run has finished or the store already
// holds snapshots from a previous process.
func (r *Reporter) CheckReadiness(ctx context.Context) error {
	if !r.coord.State().LastCompleted.IsZero() {
		return nil
	}
	slugs, err := r.store.List(ctx)
	if err != nil {
		return err
	}
	if len(slugs) == 0 {
		return errors.New("no refresh has completed and the store is empty")
	}
	return nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
