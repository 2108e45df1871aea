package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/digitalstore/internal/model"
)

const userColumns = `id, name, email, password_hash, role, is_active, is_email_verified,
	 email_verification_token, email_verification_expires, last_login,
	 total_purchases, total_spent, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.IsEmailVerified,
		&u.EmailVerificationToken, &u.EmailVerificationExpires, &u.LastLogin,
		&u.TotalPurchases, &u.TotalSpentCents, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser создаёт нового пользователя с токеном подтверждения email.
func (r *PostgresRepository) CreateUser(ctx context.Context, name, email string, passwordHash []byte, verificationToken string, verificationExpires time.Time) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, email_verification_token, email_verification_expires)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+userColumns,
		name, email, passwordHash, verificationToken, verificationExpires,
	)

	u, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return u, nil
}

// GetUserByEmail возвращает пользователя по адресу электронной почты.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return u, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return u, nil
}

// VerifyEmailToken подтверждает email по токену и очищает токен.
// Токен должен существовать и быть непросроченным.
func (r *PostgresRepository) VerifyEmailToken(ctx context.Context, token string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE users
		 SET is_email_verified = TRUE,
		     email_verification_token = NULL,
		     email_verification_expires = NULL,
		     updated_at = now()
		 WHERE email_verification_token = $1
		   AND email_verification_expires > now()
		 RETURNING `+userColumns,
		token,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVerificationNotFound
		}
		return nil, fmt.Errorf("verify email token: %w", err)
	}

	return u, nil
}

// UpdateLastLogin отмечает время последнего входа пользователя.
func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET last_login = now(), updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
