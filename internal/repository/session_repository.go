package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/junnyjoe/home-services/internal/models"
)

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, user_id, device_id, refresh_token_hash, created_at, last_seen_at, expires_at`

func (r *SessionRepository) Create(ctx context.Context, session models.Session) error {
	const query = `
		INSERT INTO user_sessions (
			id, user_id, device_id, refresh_token_hash, created_at, last_seen_at, expires_at
		) VALUES (
			$1, $2, $3, $4, NOW(), NOW(), $5
		)
		ON CONFLICT (user_id, device_id)
		DO UPDATE SET
			id = EXCLUDED.id,
			refresh_token_hash = EXCLUDED.refresh_token_hash,
			last_seen_at = NOW(),
			expires_at = EXCLUDED.expires_at
	`

	_, err := r.db.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.DeviceID,
		session.RefreshTokenHash,
		session.ExpiresAt,
	)
	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM user_sessions WHERE id = $1`
	return scanSession(r.db.QueryRow(ctx, query, id))
}

func (r *SessionRepository) FindByRefreshHash(ctx context.Context, refreshHash []byte) (models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM user_sessions WHERE refresh_token_hash = $1`
	return scanSession(r.db.QueryRow(ctx, query, refreshHash))
}

func (r *SessionRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM user_sessions WHERE user_id = $1`
	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *SessionRepository) DeleteOldestSessions(ctx context.Context, userID string, keepLatest int) error {
	const query = `
		DELETE FROM user_sessions
		WHERE id IN (
			SELECT id FROM user_sessions
			WHERE user_id = $1
			ORDER BY last_seen_at DESC
			OFFSET $2
		)
	`
	_, err := r.db.Exec(ctx, query, userID, keepLatest)
	return err
}

func (r *SessionRepository) DeleteByID(ctx context.Context, id string) error {
	const query = `DELETE FROM user_sessions WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM user_sessions WHERE expires_at <= $1`
	cmd, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *SessionRepository) Touch(ctx context.Context, id string) error {
	const query = `UPDATE user_sessions SET last_seen_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func scanSession(row pgx.Row) (models.Session, error) {
	var session models.Session
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.DeviceID,
		&session.RefreshTokenHash,
		&session.CreatedAt,
		&session.LastSeenAt,
		&session.ExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}
