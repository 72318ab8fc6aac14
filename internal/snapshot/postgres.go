package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"pantheon/pkg/platform/sentinel"
)

// Postgres stores snapshots in a single table keyed by (kind, aggregate_id).
// Upserts keep the latest version; history lives in the event mirror, not
// here.
type Postgres struct {
	db *sql.DB
}

// Open connects via the pgx stdlib driver and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	store := &Postgres{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgres wraps an existing connection pool without migrating.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS aggregate_snapshots (
			kind         TEXT NOT NULL,
			aggregate_id TEXT NOT NULL,
			version      INT  NOT NULL,
			data         JSONB NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (kind, aggregate_id)
		)`)
	if err != nil {
		return fmt.Errorf("migrate snapshots table: %w", err)
	}
	return nil
}

func (s *Postgres) Save(ctx context.Context, blob Blob) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO aggregate_snapshots (kind, aggregate_id, version, data, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (kind, aggregate_id)
		DO UPDATE SET version = EXCLUDED.version, data = EXCLUDED.data, updated_at = now()`,
		string(blob.Kind), blob.ID, blob.Version, blob.Data)
	if err != nil {
		return fmt.Errorf("save snapshot %s/%s: %w", blob.Kind, blob.ID, err)
	}
	return nil
}

func (s *Postgres) Load(ctx context.Context, kind Kind, id string) (Blob, error) {
	blob := Blob{Kind: kind, ID: id}
	err := s.db.QueryRowContext(ctx, `
		SELECT version, data FROM aggregate_snapshots
		WHERE kind = $1 AND aggregate_id = $2`,
		string(kind), id).Scan(&blob.Version, &blob.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return Blob{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Blob{}, fmt.Errorf("load snapshot %s/%s: %w", kind, id, err)
	}
	return blob, nil
}

func (s *Postgres) LoadAll(ctx context.Context, kind Kind) ([]Blob, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT aggregate_id, version, data FROM aggregate_snapshots
		WHERE kind = $1`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("load snapshots %s: %w", kind, err)
	}
	defer rows.Close()

	var out []Blob
	for rows.Next() {
		blob := Blob{Kind: kind}
		if err := rows.Scan(&blob.ID, &blob.Version, &blob.Data); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		out = append(out, blob)
	}
	return out, rows.Err()
}

func (s *Postgres) Delete(ctx context.Context, kind Kind, id string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM aggregate_snapshots WHERE kind = $1 AND aggregate_id = $2`,
		string(kind), id)
	if err != nil {
		return fmt.Errorf("delete snapshot %s/%s: %w", kind, id, err)
	}
	return nil
}

// Health checks database reachability.
func (s *Postgres) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Postgres) Close() error {
	return s.db.Close()
}
