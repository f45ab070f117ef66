package refresh

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

var t0 = time.Date(2026, 10, 17, 3, 0, 0, 0, time.UTC)

type staticLocations []domain.Location

func (s staticLocations) Entries() []domain.Location { return s }

func locations(slugs ...string) staticLocations {
	out := make(staticLocations, len(slugs))
	for i, slug := range slugs {
		out[i] = domain.Location{
			Slug:   slug,
			Name:   slug,
			Group:  "sulsel",
			Parent: "Sulawesi Selatan",
			Lat:    float64(-i - 1),
			Lon:    119.4,
		}
	}
	return out
}

// features returns a valid vector whose precipitation encodes the
// probability the fake classifier will report (precip / 100).
func features(precip float64) domain.FeatureVector {
	return domain.FeatureVector{
		Precipitation: precip, TempMin: 24, TempMax: 31, Humidity: 85,
		WindSpeed: 2, WindDirection: 240, SurfacePressure: 100.5, SolarRadiation: 18,
	}
}

// fakeFetcher resolves a location by latitude. Unknown latitudes get a 10% vector.
type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	byLat map[float64]func(ctx context.Context) (domain.Observation, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context, lat, _ float64) (domain.Observation, error) {
	f.mu.Lock()
	f.calls++
	fn := f.byLat[lat]
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return domain.Observation{Date: t0.AddDate(0, 0, -2).Truncate(24 * time.Hour), Features: features(10)}, nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) on(lat float64, fn func(ctx context.Context) (domain.Observation, error)) {
	if f.byLat == nil {
		f.byLat = make(map[float64]func(ctx context.Context) (domain.Observation, error))
	}
	f.byLat[lat] = fn
}

func observe(precip float64) func(context.Context) (domain.Observation, error) {
	return func(context.Context) (domain.Observation, error) {
		return domain.Observation{Date: t0.AddDate(0, 0, -1).Truncate(24 * time.Hour), Features: features(precip)}, nil
	}
}

func failWith(err error) func(context.Context) (domain.Observation, error) {
	return func(context.Context) (domain.Observation, error) {
		return domain.Observation{}, err
	}
}

type fakeClassifier struct {
	panicOn float64
}

func (c fakeClassifier) Predict(_ context.Context, fv domain.FeatureVector) (float64, error) {
	if c.panicOn != 0 && fv.Precipitation == c.panicOn {
		panic("model exploded")
	}
	if fv.Precipitation < 0 {
		return 0, errors.New("inference failed")
	}
	return fv.Precipitation / 100, nil
}

type memStore struct {
	mu      sync.Mutex
	snaps   map[string]domain.PredictionSnapshot
	failFor map[string]bool
}

func newMemStore() *memStore {
	return &memStore{snaps: make(map[string]domain.PredictionSnapshot), failFor: make(map[string]bool)}
}

func (s *memStore) Save(_ context.Context, snap domain.PredictionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[snap.Slug] {
		return errors.New("disk full")
	}
	s.snaps[snap.Slug] = snap
	return nil
}

func (s *memStore) Load(_ context.Context, slug string) (domain.PredictionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[slug]
	if !ok {
		return domain.PredictionSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

func (s *memStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slugs := make([]string, 0, len(s.snaps))
	for slug := range s.snaps {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, snap domain.PredictionSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, snap.Slug)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock is the subset of clockwork's fake clock the tests drive.
type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
	BlockUntilContext(ctx context.Context, n int) error
}

type fixture struct {
	locs      staticLocations
	fetcher   *fakeFetcher
	store     *memStore
	publisher *fakePublisher
	clock     fakeClock
	metrics   *observability.Metrics
}

func newFixture(slugs ...string) *fixture {
	return &fixture{
		locs:      locations(slugs...),
		fetcher:   &fakeFetcher{},
		store:     newMemStore(),
		publisher: &fakePublisher{},
		clock:     clockwork.NewFakeClockAt(t0),
		metrics:   observability.NewMetricsForTesting(),
	}
}

func (f *fixture) coordinator(classifier domain.Classifier, opts Options) *Coordinator {
	return NewCoordinator(f.locs, f.fetcher, classifier, f.store, f.publisher, f.clock, discardLogger(), f.metrics, opts)
}
