package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/junnyjoe/home-services/internal/models"
)

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, first_name, last_name, email, phone, role, password_hash, created_at, updated_at`

func (r *UserRepository) Create(ctx context.Context, account models.Account) error {
	const query = `
		INSERT INTO users (
			id, first_name, last_name, email, phone, role, password_hash, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW(), NOW()
		)
	`

	_, err := r.db.Exec(ctx, query,
		account.ID,
		account.FirstName,
		account.LastName,
		account.Email,
		account.Phone,
		string(account.Role),
		account.PasswordHash,
	)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanAccount(r.db.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.Account, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, id))
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, profile models.ProfileInput) error {
	const query = `
		UPDATE users
		SET first_name = $2, last_name = $3, email = $4, phone = $5, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.db.Exec(ctx, query, id, profile.FirstName, profile.LastName, profile.Email, profile.Phone)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var (
		account models.Account
		role    string
	)
	if err := row.Scan(
		&account.ID,
		&account.FirstName,
		&account.LastName,
		&account.Email,
		&account.Phone,
		&role,
		&account.PasswordHash,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, ErrUserNotFound
		}
		return models.Account{}, err
	}
	account.Role = models.UserRole(role)
	return account, nil
}
