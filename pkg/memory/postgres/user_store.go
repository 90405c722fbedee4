package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/memoroo/memoroo/pkg/apperr"
	"github.com/memoroo/memoroo/pkg/memory"
)

// pgUniqueViolation is the PostgreSQL error code raised on duplicate unique
// values, here the users.email constraint.
const pgUniqueViolation = "23505"

// CreateUser implements [memory.UserStore]. Duplicate emails surface as
// KindConflict.
func (s *Store) CreateUser(ctx context.Context, u memory.User) error {
	if u.ID == "" {
		return fmt.Errorf("user store: create: id must not be empty")
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	const q = `
		INSERT INTO users (id, email, display_name, token_digest, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, q, u.ID, u.Email, u.DisplayName, u.TokenDigest, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperr.New(apperr.KindConflict, "user store: create: email %q already registered", u.Email)
		}
		return fmt.Errorf("user store: create: %w", err)
	}
	return nil
}

// GetUser implements [memory.UserStore]. Returns (nil, nil) when not found.
func (s *Store) GetUser(ctx context.Context, id string) (*memory.User, error) {
	const q = `
		SELECT id, email, display_name, token_digest, created_at
		FROM   users
		WHERE  id = $1`

	return s.queryOneUser(ctx, q, id)
}

// GetUserByTokenDigest implements [memory.UserStore]. Empty digests never
// match, so an account without an API token cannot be resolved by an empty
// Authorization header.
func (s *Store) GetUserByTokenDigest(ctx context.Context, digest string) (*memory.User, error) {
	if digest == "" {
		return nil, nil
	}

	const q = `
		SELECT id, email, display_name, token_digest, created_at
		FROM   users
		WHERE  token_digest = $1`

	return s.queryOneUser(ctx, q, digest)
}

// queryOneUser runs a single-row user query, mapping no-rows to (nil, nil).
func (s *Store) queryOneUser(ctx context.Context, q string, arg any) (*memory.User, error) {
	rows, err := s.pool.Query(ctx, q, arg)
	if err != nil {
		return nil, fmt.Errorf("user store: query: %w", err)
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.User, error) {
		var u memory.User
		if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.TokenDigest, &u.CreatedAt); err != nil {
			return memory.User{}, err
		}
		return u, nil
	})
	if err != nil {
		return nil, fmt.Errorf("user store: scan rows: %w", err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}
