package profilestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/adamsbytes/rocinante-sub014/internal/behavior"
)

// DBPool abstracts pgxpool.Pool so tests can substitute a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const createProfilesTable = `
CREATE TABLE IF NOT EXISTS behavior_profiles (
    account_hash TEXT PRIMARY KEY,
    account_type TEXT NOT NULL,
    record JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);`

const upsertProfile = `
INSERT INTO behavior_profiles (account_hash, account_type, record, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (account_hash) DO UPDATE SET
    account_type = EXCLUDED.account_type,
    record = EXCLUDED.record,
    updated_at = EXCLUDED.updated_at;`

const selectProfile = `
SELECT record FROM behavior_profiles WHERE account_hash = $1;`

const deleteProfile = `
DELETE FROM behavior_profiles WHERE account_hash = $1;`

// PostgresStore keeps profile records as JSONB rows keyed by account hash.
type PostgresStore struct {
	pool DBPool
	log  *zap.Logger
}

// NewPostgresStore verifies the connection and ensures the schema exists.
func NewPostgresStore(ctx context.Context, pool DBPool, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, createProfilesTable); err != nil {
		return nil, fmt.Errorf("failed to ensure profile schema: %w", err)
	}
	return &PostgresStore{pool: pool, log: logger.Named("profilestore")}, nil
}

// Load fetches and decodes the record for an account.
func (s *PostgresStore) Load(ctx context.Context, accountHash string) (behavior.ProfileRecord, error) {
	var rec behavior.ProfileRecord
	if err := validateHash(accountHash); err != nil {
		return rec, err
	}

	var raw []byte
	err := s.pool.QueryRow(ctx, selectProfile, accountHash).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, fmt.Errorf("failed to query profile %s: %w", accountHash, err)
	}

	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, fmt.Errorf("failed to decode profile %s: %w", accountHash, err)
	}
	if rec.SchemaVersion > behavior.ProfileSchemaVersion {
		return rec, fmt.Errorf("profile %s has schema version %d, newer than supported %d",
			accountHash, rec.SchemaVersion, behavior.ProfileSchemaVersion)
	}
	return rec, nil
}

// Save upserts the record as JSONB.
func (s *PostgresStore) Save(ctx context.Context, rec behavior.ProfileRecord) error {
	if rec.AccountHash == behavior.DefaultAccountHash {
		return ErrSentinelProfile
	}
	if err := validateHash(rec.AccountHash); err != nil {
		return err
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode profile %s: %w", rec.AccountHash, err)
	}

	if _, err := s.pool.Exec(ctx, upsertProfile,
		rec.AccountHash, rec.AccountType, raw, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert profile %s: %w", rec.AccountHash, err)
	}
	s.log.Debug("Saved profile", zap.String("account", rec.AccountHash))
	return nil
}

// Delete removes the record for an account. Missing rows return ErrNotFound.
func (s *PostgresStore) Delete(ctx context.Context, accountHash string) error {
	if err := validateHash(accountHash); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, deleteProfile, accountHash)
	if err != nil {
		return fmt.Errorf("failed to delete profile %s: %w", accountHash, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
