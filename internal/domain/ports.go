package domain

import "context"

// Fetcher retrieves the most recent fully valid observation for a coordinate.
type Fetcher interface {
	Fetch(ctx context.Context, lat, lon float64) (Observation, error)
}

// Classifier turns a feature vector into a flood probability in [0, 1].
type Classifier interface {
	Predict(ctx context.Context, features FeatureVector) (float64, error)
}

// SnapshotReader is the read side of the prediction store.
type SnapshotReader interface {
	// Load returns ErrNotFound for slugs never written.
	Load(ctx context.Context, slug string) (PredictionSnapshot, error)
	// List returns the slugs that currently have a snapshot, sorted.
	List(ctx context.Context) ([]string, error)
}

// SnapshotStore persists snapshots. A reader observes either the previous or
// the new snapshot for a slug, never a partial write.
type SnapshotStore interface {
	SnapshotReader
	Save(ctx context.Context, snap PredictionSnapshot) error
}
