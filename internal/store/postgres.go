package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"issuerd/internal/config"
	"issuerd/pkg/contracts/domain"
)

// schemaSQL creates the licenses table when absent. Column names, including
// the quoted camel-case ones, are part of the deployed contract and must not
// be renamed without a migration.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS licenses (
    id SERIAL PRIMARY KEY,
    license_key VARCHAR(255) UNIQUE NOT NULL,
    product_id VARCHAR(255) NOT NULL,
    status VARCHAR(50) DEFAULT 'available',
    entity_id VARCHAR(255),
    "numberOfSeats" INTEGER NOT NULL DEFAULT 1,
    "exp" TIMESTAMP WITH TIME ZONE DEFAULT NULL,
    "editions" VARCHAR(100) NOT NULL DEFAULT '{"en": "Commercial"}',
    date_created TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
    date_assigned TIMESTAMP WITH TIME ZONE
);
`

const recordColumns = `license_key, product_id, status, entity_id, "numberOfSeats", "exp", "editions", date_created, date_assigned`

// PostgresStore implements Store on top of a pgx connection pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore connects to the database described by cfg and verifies
// connectivity before returning.
func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{
		pool:   pool,
		logger: logger.With(slog.String("component", "store")),
	}, nil
}

// Bootstrap creates the licenses table if it does not already exist.
func (s *PostgresStore) Bootstrap(ctx context.Context) error {
	start := time.Now()
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to bootstrap licenses table: %w", err)
	}
	s.logger.InfoContext(ctx, "licenses table bootstrap complete",
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Lookup fetches a record by its (key, productID) pair.
func (s *PostgresStore) Lookup(ctx context.Context, key, productID string) (*domain.LicenseRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM licenses WHERE license_key = $1 AND product_id = $2`,
		key, productID)

	rec, err := scanRecord(row)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup failed: %w", err)
	}
	return rec, nil
}

// Assign performs the available-to-assigned transition as one transaction:
// the current row is locked with SELECT ... FOR UPDATE, its status checked,
// and the conditional update applied before commit. A naive read-then-write
// across two round-trips would let two concurrent callers both observe
// "available" and both succeed.
func (s *PostgresStore) Assign(ctx context.Context, key, productID, entityID string) (*domain.LicenseRecord, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var status string
	err = tx.QueryRow(ctx,
		`SELECT status FROM licenses WHERE license_key = $1 AND product_id = $2 FOR UPDATE`,
		key, productID).Scan(&status)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("assign status read failed: %w", err)
	}
	if domain.LicenseStatus(status) != domain.LicenseStatusAvailable {
		return nil, ErrNotAvailable
	}

	row := tx.QueryRow(ctx,
		`UPDATE licenses
		 SET status = 'assigned', entity_id = $1, date_assigned = NOW()
		 WHERE license_key = $2 AND product_id = $3
		 RETURNING `+recordColumns,
		entityID, key, productID)

	rec, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("assign update failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("assign commit failed: %w", err)
	}

	s.logger.InfoContext(ctx, "license assigned",
		slog.String("license_key", maskKey(key)),
		slog.String("product_id", productID))
	return rec, nil
}

// Release moves each assigned key back to available inside one transaction.
func (s *PostgresStore) Release(ctx context.Context, keys []string) (int, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	released := 0
	for _, key := range keys {
		tag, err := tx.Exec(ctx,
			`UPDATE licenses
			 SET status = 'available', entity_id = NULL, date_assigned = NULL
			 WHERE license_key = $1 AND status = 'assigned'`,
			key)
		if err != nil {
			return 0, fmt.Errorf("release of %s failed: %w", maskKey(key), err)
		}
		released += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("release commit failed: %w", err)
	}

	s.logger.InfoContext(ctx, "licenses released",
		slog.Int("requested", len(keys)),
		slog.Int("released", released))
	return released, nil
}

// Ping verifies storage connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// scanRecord reads one licenses row, decoding the stored editions JSON back
// into a map so callers never see the opaque string form.
func scanRecord(row pgx.Row) (*domain.LicenseRecord, error) {
	var (
		rec         domain.LicenseRecord
		status      string
		editionsRaw string
	)
	err := row.Scan(&rec.LicenseKey, &rec.ProductID, &status, &rec.EntityID,
		&rec.NumberOfSeats, &rec.Expiration, &editionsRaw, &rec.DateCreated, &rec.DateAssigned)
	if err != nil {
		return nil, err
	}
	rec.Status = domain.LicenseStatus(status)

	editions, err := ParseEditions(editionsRaw)
	if err != nil {
		return nil, fmt.Errorf("stored editions value is malformed: %w", err)
	}
	rec.Editions = editions
	return &rec, nil
}

// ParseEditions decodes the stored editions JSON into a locale -> label map.
func ParseEditions(raw string) (map[string]string, error) {
	if raw == "" {
		return map[string]string{}, nil
	}
	var editions map[string]string
	if err := json.Unmarshal([]byte(raw), &editions); err != nil {
		return nil, err
	}
	return editions, nil
}

// maskKey masks a license key for logging.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
