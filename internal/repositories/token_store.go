package repositories

import (
	"context"
	"errors"
	"fmt"

	crdbpgxv5 "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/jackc/pgx/v5"

	"github.com/vidfriends/vidclient/internal/db"
	"github.com/vidfriends/vidclient/internal/session"
)

// PostgresTokenStore persists client credentials to PostgreSQL or
// CockroachDB, one row per (profile, kind).
type PostgresTokenStore struct {
	pool    db.Pool
	profile string
}

// NewPostgresTokenStore constructs a token store for the given profile.
func NewPostgresTokenStore(pool db.Pool, profile string) *PostgresTokenStore {
	if profile == "" {
		profile = "default"
	}
	return &PostgresTokenStore{pool: pool, profile: profile}
}

// Get implements session.Store.
func (s *PostgresTokenStore) Get(ctx context.Context, kind session.Kind) (string, bool, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return "", false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var token string
	err = conn.QueryRow(ctx, `
        SELECT token
        FROM client_sessions
        WHERE profile = $1 AND kind = $2
    `, s.profile, string(kind)).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select %s: %w", kind, err)
	}
	return token, true, nil
}

// Set implements session.Store.
func (s *PostgresTokenStore) Set(ctx context.Context, kind session.Kind, value string) error {
	return s.SetMany(ctx, map[session.Kind]string{kind: value})
}

// SetMany implements session.BatchStore. The upserts share one transaction so
// a refreshed access token and its rotated refresh token land together.
func (s *PostgresTokenStore) SetMany(ctx context.Context, values map[session.Kind]string) error {
	if len(values) == 0 {
		return nil
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	err = crdbpgxv5.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for kind, value := range values {
			if _, err := tx.Exec(ctx, `
                INSERT INTO client_sessions (profile, kind, token, updated_at)
                VALUES ($1, $2, $3, NOW())
                ON CONFLICT (profile, kind)
                DO UPDATE SET token = EXCLUDED.token, updated_at = EXCLUDED.updated_at
            `, s.profile, string(kind), value); err != nil {
				return fmt.Errorf("upsert %s: %w", kind, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear implements session.Store.
func (s *PostgresTokenStore) Clear(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
        DELETE FROM client_sessions
        WHERE profile = $1
    `, s.profile); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
