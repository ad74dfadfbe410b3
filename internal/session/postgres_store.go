package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists tokens in the client_sessions table:
//
//	CREATE TABLE client_sessions (
//	    profile       TEXT PRIMARY KEY,
//	    access_token  TEXT NOT NULL,
//	    refresh_token TEXT NOT NULL,
//	    updated_at    TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	db      *pgxpool.Pool
	profile string
}

// NewPostgresStore builds a Postgres-backed session store.
func NewPostgresStore(db *pgxpool.Pool, profile string) *PostgresStore {
	return &PostgresStore{db: db, profile: profile}
}

// EnsureSchema creates the table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS client_sessions (
        profile TEXT PRIMARY KEY,
        access_token TEXT NOT NULL,
        refresh_token TEXT NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL)`)
	return err
}

// Load fetches the tokens for the configured profile.
func (s *PostgresStore) Load(ctx context.Context) (Tokens, error) {
	row := s.db.QueryRow(ctx, `SELECT access_token, refresh_token FROM client_sessions WHERE profile = $1`, s.profile)
	var tokens Tokens
	if err := row.Scan(&tokens.AccessToken, &tokens.RefreshToken); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tokens{}, ErrNoSession
		}
		return Tokens{}, err
	}
	return tokens, nil
}

// Save upserts the tokens.
func (s *PostgresStore) Save(ctx context.Context, tokens Tokens) error {
	_, err := s.db.Exec(ctx, `INSERT INTO client_sessions (profile, access_token, refresh_token, updated_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (profile) DO UPDATE SET access_token = EXCLUDED.access_token,
            refresh_token = EXCLUDED.refresh_token, updated_at = EXCLUDED.updated_at`,
		s.profile, tokens.AccessToken, tokens.RefreshToken, time.Now().UTC())
	return err
}

// Clear deletes the profile row.
func (s *PostgresStore) Clear(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DELETE FROM client_sessions WHERE profile = $1`, s.profile)
	return err
}
