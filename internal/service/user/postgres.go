package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a "users" table with preferences in a JSONB column.
//
// Expected table (managed outside this service):
//
//	id TEXT PRIMARY KEY, email TEXT NOT NULL, display_name TEXT NOT NULL,
//	avatar_url TEXT, bio TEXT, role TEXT NOT NULL, status TEXT NOT NULL,
//	preferences JSONB NOT NULL, created_at TIMESTAMPTZ NOT NULL, updated_at TIMESTAMPTZ NOT NULL
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, email, display_name, avatar_url, bio, role, status, preferences, created_at, updated_at`

func (s *PostgresStore) Get(ctx context.Context, id string) (*User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user %s: %w", id, err)
	}
	return u, nil
}

func (s *PostgresStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	if err := s.db.QueryRow(ctx, q, strings.TrimSpace(email)).Scan(&exists); err != nil {
		return false, fmt.Errorf("select email exists: %w", err)
	}
	return exists, nil
}

// Upsert is a single statement; created_at, role and status keep their stored
// values when the row already exists.
func (s *PostgresStore) Upsert(ctx context.Context, u *User) (*User, error) {
	const q = `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			email        = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			avatar_url   = EXCLUDED.avatar_url,
			bio          = EXCLUDED.bio,
			preferences  = EXCLUDED.preferences,
			updated_at   = EXCLUDED.updated_at
		RETURNING ` + userColumns

	prefs, err := json.Marshal(toPreferencesDocument(u.Preferences.Materialize()))
	if err != nil {
		return nil, fmt.Errorf("encode preferences: %w", err)
	}

	saved, err := scanUser(s.db.QueryRow(ctx, q,
		u.ID,
		u.Email,
		u.DisplayName,
		u.AvatarURL,
		u.Bio,
		string(u.Role),
		string(u.Status),
		prefs,
		u.CreatedAt.UTC(),
		u.UpdatedAt.UTC(),
	))
	if err != nil {
		return nil, fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	return saved, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		doc   userDocument
		prefs []byte
	)
	err := row.Scan(
		&doc.ID,
		&doc.Email,
		&doc.DisplayName,
		&doc.AvatarURL,
		&doc.Bio,
		&doc.Role,
		&doc.Status,
		&prefs,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(prefs) > 0 {
		doc.Preferences = &preferencesDocument{}
		if err := json.Unmarshal(prefs, doc.Preferences); err != nil {
			return nil, fmt.Errorf("decode preferences: %w", err)
		}
	}

	return doc.toUser(), nil
}

var _ Store = (*PostgresStore)(nil)
