package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

const schema = `
CREATE TABLE IF NOT EXISTS prediction_snapshots (
	slug         TEXT PRIMARY KEY,
	payload      JSONB NOT NULL,
	probability  DOUBLE PRECISION NOT NULL,
	category     TEXT NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL
)`

// PostgresStore keeps snapshots in a single table keyed by slug. Each save is
// one upsert statement, so readers never observe a partial row.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to dsn and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromDB wraps an existing connection pool.
func NewPostgresStoreFromDB(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the snapshot table if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Save upserts the snapshot for snap.Slug.
func (s *PostgresStore) Save(ctx context.Context, snap domain.PredictionSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %w", domain.ErrStoreWrite, snap.Slug, err)
	}

	const query = `
		INSERT INTO prediction_snapshots (slug, payload, probability, category, generated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (slug) DO UPDATE SET
			payload = EXCLUDED.payload,
			probability = EXCLUDED.probability,
			category = EXCLUDED.category,
			generated_at = EXCLUDED.generated_at`

	_, err = s.db.ExecContext(ctx, query,
		snap.Slug,
		payload,
		snap.Probability,
		string(snap.Interpretation.Category),
		snap.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %w", domain.ErrStoreWrite, snap.Slug, err)
	}
	return nil
}

// Load returns the current snapshot for slug.
func (s *PostgresStore) Load(ctx context.Context, slug string) (domain.PredictionSnapshot, error) {
	var payload []byte
	err := s.db.GetContext(ctx, &payload, `SELECT payload FROM prediction_snapshots WHERE slug = $1`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PredictionSnapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.PredictionSnapshot{}, fmt.Errorf("query snapshot %s: %w", slug, err)
	}

	var snap domain.PredictionSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return domain.PredictionSnapshot{}, fmt.Errorf("decode snapshot %s: %w", slug, err)
	}
	return snap, nil
}

// List returns the slugs with a stored snapshot, sorted.
func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	var slugs []string
	if err := s.db.SelectContext(ctx, &slugs, `SELECT slug FROM prediction_snapshots ORDER BY slug`); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return slugs, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
