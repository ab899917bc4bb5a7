package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loki135/CodeSensei/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrDuplicate    = errors.New("username or email already taken")
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, username, email, password_hash, name, role, is_deleted, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, FALSE, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Role,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// FindByLogin resolves a non-deleted account by username or email. Soft-deleted
// rows are excluded here so a deleted account can never authenticate.
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (models.User, error) {
	const query = `
		SELECT id, username, email, password_hash, name, role, is_deleted, deleted_at, created_at, updated_at
		FROM users
		WHERE (username = $1 OR email = $1) AND is_deleted = FALSE
	`

	return r.scanOne(r.pool.QueryRow(ctx, query, login))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	const query = `
		SELECT id, username, email, password_hash, name, role, is_deleted, deleted_at, created_at, updated_at
		FROM users
		WHERE id = $1 AND is_deleted = FALSE
	`

	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) UpdateName(ctx context.Context, id string, name string) error {
	const query = `UPDATE users SET name = $2, updated_at = NOW() WHERE id = $1 AND is_deleted = FALSE`
	cmd, err := r.pool.Exec(ctx, query, id, name)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id string, passwordHash []byte) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1 AND is_deleted = FALSE`
	cmd, err := r.pool.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// PurgeAccount deletes the account's reviews and the account row in one
// transaction. A partial result (orphaned reviews or a deleted account with
// reviews left behind) must be impossible, so any failure rolls back both.
func (r *UserRepository) PurgeAccount(ctx context.Context, id string) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin purge: %w", err)
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `DELETE FROM reviews WHERE user_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete reviews: %w", err)
	}
	reviewsDeleted := cmd.RowsAffected()

	cmd, err = tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete user: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return 0, ErrUserNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit purge: %w", err)
	}
	return reviewsDeleted, nil
}

func (r *UserRepository) scanOne(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Role,
		&user.IsDeleted,
		&user.DeletedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
