package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loki135/CodeSensei/internal/models"
)

var ErrReviewNotFound = errors.New("review not found")

type ReviewRepository struct {
	pool *pgxpool.Pool
}

func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

func (r *ReviewRepository) Create(ctx context.Context, review models.Review) error {
	const query = `
		INSERT INTO reviews (
			id, user_id, code, type, language, review, status, object_key, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		review.ID,
		review.UserID,
		review.Code,
		review.Type,
		review.Language,
		review.Review,
		review.Status,
		review.ObjectKey,
	)
	return err
}

func (r *ReviewRepository) ListByUser(ctx context.Context, userID string) ([]models.Review, error) {
	const query = `
		SELECT id, user_id, code, type, language, review, status, object_key, created_at, updated_at
		FROM reviews
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReviews(rows)
}

func (r *ReviewRepository) ListAll(ctx context.Context, limit, offset int) ([]models.Review, error) {
	const query = `
		SELECT id, user_id, code, type, language, review, status, object_key, created_at, updated_at
		FROM reviews
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReviews(rows)
}

func (r *ReviewRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM reviews WHERE user_id = $1`
	var count int64
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

type ReviewStats struct {
	TotalReviews  int64            `json:"totalReviews"`
	LastReviewAt  *time.Time       `json:"lastReviewDate"`
	ReviewsByType map[string]int64 `json:"reviewsByType"`
}

func (r *ReviewRepository) StatsByUser(ctx context.Context, userID string) (ReviewStats, error) {
	stats := ReviewStats{ReviewsByType: make(map[string]int64)}

	const query = `
		SELECT type, COUNT(*), MAX(created_at)
		FROM reviews
		WHERE user_id = $1
		GROUP BY type
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return ReviewStats{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			reviewType string
			count      int64
			last       time.Time
		)
		if err := rows.Scan(&reviewType, &count, &last); err != nil {
			return ReviewStats{}, err
		}
		stats.ReviewsByType[reviewType] = count
		stats.TotalReviews += count
		if stats.LastReviewAt == nil || last.After(*stats.LastReviewAt) {
			t := last
			stats.LastReviewAt = &t
		}
	}
	return stats, rows.Err()
}

func scanReviews(rows pgx.Rows) ([]models.Review, error) {
	var reviews []models.Review
	for rows.Next() {
		var review models.Review
		if err := rows.Scan(
			&review.ID,
			&review.UserID,
			&review.Code,
			&review.Type,
			&review.Language,
			&review.Review,
			&review.Status,
			&review.ObjectKey,
			&review.CreatedAt,
			&review.UpdatedAt,
		); err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}
