// Package app wires configuration into the concrete components shared by
// the refresher service and the riskctl CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/flood-risk-service/internal/adapter/classifier"
	kafkaadapter "github.com/couchcryptid/flood-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/flood-risk-service/internal/adapter/power"
	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/couchcryptid/flood-risk-service/internal/refresh"
	"github.com/couchcryptid/flood-risk-service/internal/registry"
	"github.com/couchcryptid/flood-risk-service/internal/store"
	"github.com/jonboulle/clockwork"
)

// App holds the long-lived components built from a Config.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Registry    *registry.Registry
	Store       domain.SnapshotStore
	Coordinator *refresh.Coordinator
	Reporter    *refresh.Reporter

	closers []func() error
}

// Build constructs every component needed to run refreshes and serve results.
func Build(ctx context.Context, cfg *config.Config, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) (*App, error) {
	reg, err := LoadRegistry(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, Registry: reg}

	snapshots, closeStore, err := OpenStore(ctx, cfg, metrics)
	if err != nil {
		return nil, err
	}
	a.Store = snapshots
	a.closers = append(a.closers, closeStore)

	clf, err := newClassifier(cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	fetcher := power.NewClient(power.Options{
		BaseURL:      cfg.PowerBaseURL,
		Community:    cfg.PowerCommunity,
		Timeout:      cfg.PowerTimeout,
		LookbackDays: cfg.PowerLookbackDays,
		MaxRetries:   cfg.PowerMaxRetries,
		RetryBackoff: cfg.PowerRetryBackoff,
	}, clock, metrics, logger)

	var publisher refresh.Publisher
	if cfg.PublishEnabled() {
		p := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		a.closers = append(a.closers, p.Close)
		publisher = p
		logger.Info("snapshot publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	a.Coordinator = refresh.NewCoordinator(reg, fetcher, clf, snapshots, publisher, clock, logger, metrics, refresh.Options{
		Workers:      cfg.RefreshWorkers,
		FetchSpacing: cfg.FetchSpacing,
		RunTimeout:   cfg.RefreshTimeout,
	})
	a.Reporter = refresh.NewReporter(a.Coordinator, snapshots, reg.Len(), cfg.RefreshInterval)
	return a, nil
}

// Close releases the store and publisher.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// LoadRegistry returns the file registry at LOCATIONS_PATH, or the embedded default.
func LoadRegistry(cfg *config.Config) (*registry.Registry, error) {
	if cfg.LocationsPath == "" {
		return registry.Default()
	}
	return registry.LoadFromPath(cfg.LocationsPath)
}

// OpenStore opens the configured backend, wrapped in the LRU cache unless
// STORE_CACHE_SIZE is 0. The returned func closes the backend.
func OpenStore(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (domain.SnapshotStore, func() error, error) {
	var (
		backend domain.SnapshotStore
		closer  = func() error { return nil }
	)

	switch cfg.StoreBackend {
	case config.StorePostgres:
		pg, err := store.NewPostgresStore(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		backend, closer = pg, pg.Close
	default:
		fs, err := store.NewFileStore(cfg.StoreDir)
		if err != nil {
			return nil, nil, err
		}
		backend = fs
	}

	if cfg.StoreCacheSize > 0 {
		backend = store.NewCachedStore(backend, cfg.StoreCacheSize, metrics)
	}
	return backend, closer, nil
}

func newClassifier(cfg *config.Config, logger *slog.Logger) (domain.Classifier, error) {
	if cfg.ClassifierURL != "" {
		logger.Info("using remote classifier", "url", cfg.ClassifierURL, "timeout", cfg.ClassifierTimeout)
		return classifier.NewHTTPClient(cfg.ClassifierURL, cfg.ClassifierTimeout), nil
	}
	model, err := classifier.LoadLogistic(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load classifier: %w", err)
	}
	logger.Info("using local classifier", "model", model.Name(), "path", cfg.ModelPath)
	return model, nil
}
