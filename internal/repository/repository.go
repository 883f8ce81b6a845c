// Package repository stores the development API's accounts and refresh-token
// sessions, in Postgres or in memory.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/junnyjoe/home-services/internal/models"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrSessionNotFound = errors.New("session not found")
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Users interface {
	Create(ctx context.Context, account models.Account) error
	FindByEmail(ctx context.Context, email string) (models.Account, error)
	GetByID(ctx context.Context, id string) (models.Account, error)
	UpdateProfile(ctx context.Context, id string, profile models.ProfileInput) error
}

type Sessions interface {
	// Create inserts a session, replacing the one held by the same device.
	Create(ctx context.Context, session models.Session) error
	GetByID(ctx context.Context, id string) (models.Session, error)
	FindByRefreshHash(ctx context.Context, refreshHash []byte) (models.Session, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	// DeleteOldestSessions keeps the keepLatest most recently seen sessions.
	DeleteOldestSessions(ctx context.Context, userID string, keepLatest int) error
	DeleteByID(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Touch(ctx context.Context, id string) error
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
