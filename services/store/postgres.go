package store

import (
	"context"
	"errors"
	"fmt"

	apperrors "sjsage522/akiyawatch/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS properties (
	id         TEXT        PRIMARY KEY,
	title      TEXT        NOT NULL,
	price      BIGINT      NOT NULL,
	status     TEXT        NOT NULL,
	url        TEXT        NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS price_history (
	id          BIGSERIAL   PRIMARY KEY,
	property_id TEXT        NOT NULL REFERENCES properties (id),
	price       BIGINT      NOT NULL,
	changed_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_price_history_property_id ON price_history (property_id);
`

// dbtx is the subset of *pgxpool.Pool the store uses
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on top of a pgx connection pool
type PostgresStore struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewPool creates a connection pool and checks the connection
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, apperrors.NewConfiguration("DATABASE_URL is required", nil)
	}

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, apperrors.NewConfiguration("failed to parse database URL", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, apperrors.NewPersistence("postgres", "unable to create connection pool", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.NewPersistence("postgres", "unable to ping database", err)
	}

	return pool, nil
}

// NewPostgresStore creates a store backed by pool
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &PostgresStore{db: pool, pool: pool}, nil
}

// Migrate creates the tables if they do not exist yet
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return apperrors.NewPersistence("postgres", "failed to migrate schema", err)
	}
	return nil
}

// LastPrice returns the stored price of a property
func (s *PostgresStore) LastPrice(ctx context.Context, id string) (int64, bool, error) {
	var price int64
	err := s.db.QueryRow(ctx, `SELECT price FROM properties WHERE id = $1`, id).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, apperrors.NewPersistence(id, "failed to look up property", err)
	}
	return price, true, nil
}

// UpsertProperty inserts the property or overwrites every column of the
// existing row. updated_at doubles as the last-seen marker.
func (s *PostgresStore) UpsertProperty(ctx context.Context, p Property) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO properties (id, title, price, status, url, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			title      = EXCLUDED.title,
			price      = EXCLUDED.price,
			status     = EXCLUDED.status,
			url        = EXCLUDED.url,
			updated_at = EXCLUDED.updated_at
	`, p.ID, p.Title, p.Price, p.Status, p.URL)
	if err != nil {
		return apperrors.NewPersistence(p.ID, "failed to upsert property", err)
	}
	return nil
}

// AppendPriceHistory inserts one price history row
func (s *PostgresStore) AppendPriceHistory(ctx context.Context, entry PriceHistoryEntry) error {
	var err error
	if entry.ChangedAt.IsZero() {
		_, err = s.db.Exec(ctx,
			`INSERT INTO price_history (property_id, price) VALUES ($1, $2)`,
			entry.PropertyID, entry.Price)
	} else {
		_, err = s.db.Exec(ctx,
			`INSERT INTO price_history (property_id, price, changed_at) VALUES ($1, $2, $3)`,
			entry.PropertyID, entry.Price, entry.ChangedAt)
	}
	if err != nil {
		return apperrors.NewPersistence(entry.PropertyID, "failed to append price history", describePgError(err))
	}
	return nil
}

// Close closes the pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// describePgError adds the SQLSTATE to server-side errors
func describePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s (SQLSTATE %s): %w", pgErr.Message, pgErr.Code, err)
	}
	return err
}
