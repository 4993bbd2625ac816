/**
 * PostgreSQL Profile Store
 *
 * Durable key-value persistence for calibration profiles, keyed by
 * application identity. The profile itself is a JSONB document so the
 * schema can evolve additively: unknown fields are ignored and missing
 * fields default on read.
 */

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/overlens/calibration-worker/internal/calibration"
	"github.com/overlens/calibration-worker/internal/logging"
)

// ProfileStore handles calibration profile persistence
type ProfileStore struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewProfileStore creates a PostgreSQL-backed profile store
func NewProfileStore(databaseURL string) (*ProfileStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Profile reads happen on every application activation; keep a small
	// warm pool.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &ProfileStore{
		db:     db,
		logger: logging.NewLogger("ProfileStore"),
	}, nil
}

// EnsureSchema creates the profile table when it does not exist
func (s *ProfileStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS calibration_profiles (
			application_id TEXT PRIMARY KEY,
			profile        JSONB NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure profile schema: %w", err)
	}
	return nil
}

// Get returns the stored profile for an application identity, or nil when
// none exists.
func (s *ProfileStore) Get(ctx context.Context, applicationID string) (*calibration.CalibrationProfile, error) {
	if applicationID == "" {
		return nil, fmt.Errorf("application ID is required")
	}

	var raw []byte
	query := `SELECT profile FROM calibration_profiles WHERE application_id = $1`
	err := s.db.QueryRowContext(ctx, query, applicationID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile for %q: %w", applicationID, err)
	}

	profile, err := DecodeProfile(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode profile for %q: %w", applicationID, err)
	}
	return profile, nil
}

// Put writes a complete replacement profile for an application identity.
func (s *ProfileStore) Put(ctx context.Context, applicationID string, profile *calibration.CalibrationProfile) error {
	if applicationID == "" {
		return fmt.Errorf("application ID is required")
	}
	if profile == nil {
		return fmt.Errorf("profile is required")
	}

	raw, err := EncodeProfile(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	query := `
		INSERT INTO calibration_profiles (application_id, profile, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (application_id) DO UPDATE SET
			profile = EXCLUDED.profile,
			updated_at = NOW()`

	if _, err := s.db.ExecContext(ctx, query, applicationID, raw); err != nil {
		return fmt.Errorf("failed to store profile for %q: %w", applicationID, err)
	}

	s.logger.Info("Profile stored",
		"application", applicationID,
		"threshold", profile.ConfidenceThreshold,
		"attempts", profile.Attempts)
	return nil
}

// List returns every application identity with a stored profile
func (s *ProfileStore) List(ctx context.Context) ([]string, error) {
	query := `SELECT application_id FROM calibration_profiles ORDER BY application_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan application ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	return ids, nil
}

// Ping checks database connectivity
func (s *ProfileStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *ProfileStore) Close() error {
	return s.db.Close()
}
