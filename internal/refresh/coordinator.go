// Package refresh drives periodic refresh runs over every registered location
// and exposes their progress.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Locations supplies the entities to refresh.
type Locations interface {
	Entries() []domain.Location
}

// Publisher announces a committed snapshot to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, snap domain.PredictionSnapshot) error
}

// Options tunes a Coordinator.
type Options struct {
	// Workers bounds how many entities are processed at once. 1 is sequential.
	Workers int
	// FetchSpacing is the minimum gap between two upstream fetches across all workers.
	FetchSpacing time.Duration
	// RunTimeout bounds a whole run. Zero means no bound.
	RunTimeout time.Duration
}

// Coordinator runs refresh passes one at a time. A second caller never waits
// for the lock; it gets a skipped report back immediately.
type Coordinator struct {
	locations  Locations
	fetcher    domain.Fetcher
	classifier domain.Classifier
	store      domain.SnapshotStore
	publisher  Publisher
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
	tracer     trace.Tracer

	workers    int
	spacing    time.Duration
	runTimeout time.Duration

	mu    sync.Mutex
	state atomic.Pointer[RunState]
}

// NewCoordinator wires a coordinator. publisher may be nil.
func NewCoordinator(
	locations Locations,
	fetcher domain.Fetcher,
	classifier domain.Classifier,
	store domain.SnapshotStore,
	publisher Publisher,
	clock clockwork.Clock,
	logger *slog.Logger,
	metrics *observability.Metrics,
	opts Options,
) *Coordinator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	c := &Coordinator{
		locations:  locations,
		fetcher:    fetcher,
		classifier: classifier,
		store:      store,
		publisher:  publisher,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
		tracer:     otel.Tracer("github.com/couchcryptid/flood-risk-service/internal/refresh"),
		workers:    opts.Workers,
		spacing:    opts.FetchSpacing,
		runTimeout: opts.RunTimeout,
	}
	c.state.Store(&RunState{})
	return c
}

// RunOnce performs one refresh pass if no other pass is running, and returns
// a skipped report otherwise.
func (c *Coordinator) RunOnce(ctx context.Context) Report {
	if !c.acquire() {
		return c.skipped()
	}
	defer c.release()
	return c.run(ctx)
}

// State returns a copy of the current run state.
func (c *Coordinator) State() RunState {
	return *c.state.Load()
}

// Running reports whether a pass is in progress.
func (c *Coordinator) Running() bool {
	return c.State().InProgress
}

func (c *Coordinator) acquire() bool { return c.mu.TryLock() }

func (c *Coordinator) release() { c.mu.Unlock() }

func (c *Coordinator) skipped() Report {
	c.metrics.RunsTotal.WithLabelValues(string(OutcomeSkipped)).Inc()
	c.logger.Info("refresh skipped, run already in progress")
	now := c.clock.Now()
	return Report{Outcome: OutcomeSkipped, StartedAt: now, FinishedAt: now}
}

// update applies fn to a copy of the state and publishes it. Callers hold mu.
func (c *Coordinator) update(fn func(*RunState)) {
	next := *c.state.Load()
	fn(&next)
	c.state.Store(&next)
}

// run executes a pass. The caller must hold the lock.
func (c *Coordinator) run(parent context.Context) Report {
	entries := c.locations.Entries()
	report := Report{StartedAt: c.clock.Now(), Total: len(entries)}

	c.update(func(s *RunState) {
		s.InProgress = true
		s.LastStarted = report.StartedAt
	})
	c.metrics.RunInProgress.Set(1)
	defer c.metrics.RunInProgress.Set(0)

	runCtx, cancel := c.withRunTimeout(parent)
	defer cancel()
	runCtx, span := c.tracer.Start(runCtx, "refresh.run",
		trace.WithAttributes(attribute.Int("refresh.entities", len(entries))))
	defer span.End()

	c.logger.Info("refresh started",
		"entities", len(entries),
		"workers", c.workers,
		"fetch_spacing", c.spacing,
	)

	var succeeded, failed, unprocessed atomic.Int64
	limiter := newLimiter(c.spacing)

	g := new(errgroup.Group)
	g.SetLimit(c.workers)
	for i, loc := range entries {
		if runCtx.Err() != nil {
			unprocessed.Add(int64(len(entries) - i))
			break
		}
		g.Go(func() error {
			switch err := c.processEntity(runCtx, limiter, loc); {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, errAborted):
				unprocessed.Add(1)
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = c.clock.Now()
	report.Succeeded = int(succeeded.Load())
	report.Failed = int(failed.Load())
	report.Unprocessed = int(unprocessed.Load())
	report.Outcome = outcomeOf(parent, runCtx)

	c.update(func(s *RunState) {
		s.InProgress = false
		s.LastCompleted = report.FinishedAt
		s.LastOutcome = report.Outcome
		s.Succeeded = report.Succeeded
		s.Failed = report.Failed
		s.Unprocessed = report.Unprocessed
		s.Total = report.Total
	})

	c.metrics.RunsTotal.WithLabelValues(string(report.Outcome)).Inc()
	c.metrics.RunDuration.Observe(report.Duration().Seconds())
	c.metrics.LastCompletedUnix.Set(float64(report.FinishedAt.Unix()))
	c.metrics.EntitiesUnfinished.Add(float64(report.Unprocessed))

	span.SetAttributes(
		attribute.String("refresh.outcome", string(report.Outcome)),
		attribute.Int("refresh.succeeded", report.Succeeded),
		attribute.Int("refresh.failed", report.Failed),
	)

	level := slog.LevelInfo
	if report.Outcome != OutcomeCompleted {
		level = slog.LevelWarn
	}
	c.logger.Log(parent, level, "refresh finished",
		"outcome", report.Outcome,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"unprocessed", report.Unprocessed,
		"duration", report.Duration(),
	)
	return report
}

func (c *Coordinator) withRunTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.runTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.runTimeout)
}

func outcomeOf(parent, runCtx context.Context) Outcome {
	switch {
	case parent.Err() != nil:
		return OutcomeCancelled
	case runCtx.Err() != nil:
		return OutcomeTimedOut
	default:
		return OutcomeCompleted
	}
}

func newLimiter(spacing time.Duration) *rate.Limiter {
	if spacing <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(spacing), 1)
}

// errAborted marks an entity the run gave up on before it could finish.
var errAborted = errors.New("run aborted")

// Processing stages, used as log and metric labels.
const (
	stageFetch    = "fetch"
	stageClassify = "classify"
	stageStore    = "store"
)

type entityError struct {
	stage string
	err   error
}

func (e *entityError) Error() string { return e.stage + ": " + e.err.Error() }

func (e *entityError) Unwrap() error { return e.err }

// processEntity refreshes one location. Errors are logged and counted here;
// the returned error only tells the caller which tally to bump.
func (c *Coordinator) processEntity(ctx context.Context, limiter *rate.Limiter, loc domain.Location) (err error) {
	ctx, span := c.tracer.Start(ctx, "refresh.entity", trace.WithAttributes(attribute.String("slug", loc.Slug)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			c.metrics.EntityResults.WithLabelValues("panic").Inc()
			c.logger.Error("entity refresh panicked", "slug", loc.Slug, "panic", r)
		}
		if err != nil && !errors.Is(err, errAborted) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	snap, err := c.refreshEntity(ctx, limiter, loc)
	if err != nil {
		if aborted(err) {
			c.logger.Debug("entity not finished before run ended", "slug", loc.Slug, "error", err)
			return errAborted
		}
		var ee *entityError
		stage := ""
		if errors.As(err, &ee) {
			stage = ee.stage
		}
		c.metrics.EntityResults.WithLabelValues(resultLabel(stage, err)).Inc()
		c.logger.Warn("entity refresh failed", "slug", loc.Slug, "stage", stage, "error", err)
		return err
	}

	c.metrics.EntityResults.WithLabelValues("success").Inc()
	c.logger.Debug("entity refreshed",
		"slug", loc.Slug,
		"observation_date", snap.ObservationDate.Format(time.DateOnly),
		"probability", snap.Probability,
		"category", snap.Interpretation.Category,
	)
	c.publish(ctx, snap)
	return nil
}

func (c *Coordinator) refreshEntity(ctx context.Context, limiter *rate.Limiter, loc domain.Location) (domain.PredictionSnapshot, error) {
	if ctx.Err() != nil {
		return domain.PredictionSnapshot{}, errAborted
	}
	if err := limiter.Wait(ctx); err != nil {
		return domain.PredictionSnapshot{}, errAborted
	}

	obs, err := c.fetcher.Fetch(ctx, loc.Lat, loc.Lon)
	if err != nil {
		return domain.PredictionSnapshot{}, &entityError{stage: stageFetch, err: err}
	}

	p, err := c.classifier.Predict(ctx, obs.Features)
	if err == nil {
		err = domain.ValidateProbability(p)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrClassifier) {
			err = fmt.Errorf("%w: %w", domain.ErrClassifier, err)
		}
		return domain.PredictionSnapshot{}, &entityError{stage: stageClassify, err: err}
	}

	snap := domain.NewSnapshot(loc, obs, p, c.clock.Now())
	if err := c.store.Save(ctx, snap); err != nil {
		if !errors.Is(err, domain.ErrStoreWrite) {
			err = fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
		}
		return domain.PredictionSnapshot{}, &entityError{stage: stageStore, err: err}
	}
	return snap, nil
}

// publish is best effort: the snapshot is already committed.
func (c *Coordinator) publish(ctx context.Context, snap domain.PredictionSnapshot) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, snap); err != nil {
		c.metrics.PublishErrors.Inc()
		c.logger.Warn("publish snapshot failed", "slug", snap.Slug, "error", err)
	}
}

// aborted reports whether err came from the run ending rather than from the
// entity itself.
func aborted(err error) bool {
	return errors.Is(err, errAborted) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func resultLabel(stage string, err error) string {
	switch {
	case errors.Is(err, domain.ErrNoValidData):
		return "no_valid_data"
	case stage == stageClassify:
		return "classifier_error"
	case stage == stageStore:
		return "store_error"
	default:
		return "fetch_failed"
	}
}
