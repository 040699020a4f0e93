package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avdeev/driveauth/internal/common"
	"github.com/avdeev/driveauth/internal/dbx"
	"github.com/avdeev/driveauth/internal/directory"
)

// PostgresStore persists session records so they survive server restarts.
// Atomic read-modify-write is provided by a row lock inside a transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const sessionColumns = `id, user_id, username, email,
       captcha_answer, captcha_set, attempts, locked_until,
       remember, expires_at`

func (p *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	s, err := scanSession(p.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if time.Now().After(s.ExpiresAt) {
		_, _ = p.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
		return nil, common.ErrNoSession
	}
	return s, nil
}

func (p *PostgresStore) Put(ctx context.Context, s *Session) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			username = EXCLUDED.username,
			email = EXCLUDED.email,
			captcha_answer = EXCLUDED.captcha_answer,
			captcha_set = EXCLUDED.captcha_set,
			attempts = EXCLUDED.attempts,
			locked_until = EXCLUDED.locked_until,
			remember = EXCLUDED.remember,
			expires_at = EXCLUDED.expires_at`
	_, err := p.db.ExecContext(ctx, query, sessionArgs(s)...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (p *PostgresStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	var updated *Session

	err := dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 FOR UPDATE`
		s, err := scanSession(tx.QueryRowContext(ctx, query, id))
		if err != nil {
			return err
		}
		if time.Now().After(s.ExpiresAt) {
			_, _ = tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
			return common.ErrNoSession
		}
		if err := fn(s); err != nil {
			return err
		}

		update := `
			UPDATE sessions SET
				user_id = $2, username = $3, email = $4,
				captcha_answer = $5, captcha_set = $6,
				attempts = $7, locked_until = $8,
				remember = $9, expires_at = $10
			WHERE id = $1`
		if _, err := tx.ExecContext(ctx, update, sessionArgs(s)...); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		updated = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func sessionArgs(s *Session) []any {
	var userID, username, email sql.NullString
	if s.User != nil {
		userID = sql.NullString{String: s.User.ID, Valid: true}
		username = sql.NullString{String: s.User.Username, Valid: true}
		email = sql.NullString{String: s.User.Email, Valid: true}
	}
	var lockedUntil sql.NullTime
	if !s.Lockout.Until.IsZero() {
		lockedUntil = sql.NullTime{Time: s.Lockout.Until, Valid: true}
	}
	return []any{
		s.ID, userID, username, email,
		s.CaptchaAnswer, s.CaptchaSet,
		s.Lockout.Attempts, lockedUntil,
		s.Remember, s.ExpiresAt,
	}
}

func scanSession(row *sql.Row) (*Session, error) {
	var (
		s           Session
		userID      sql.NullString
		username    sql.NullString
		email       sql.NullString
		lockedUntil sql.NullTime
	)
	err := row.Scan(&s.ID, &userID, &username, &email,
		&s.CaptchaAnswer, &s.CaptchaSet,
		&s.Lockout.Attempts, &lockedUntil,
		&s.Remember, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNoSession
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if userID.Valid {
		s.User = &directory.Identity{
			ID:       userID.String,
			Username: username.String,
			Email:    email.String,
		}
	}
	if lockedUntil.Valid {
		s.Lockout.Until = lockedUntil.Time
	}
	return &s, nil
}
