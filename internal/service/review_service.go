package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/loki135/CodeSensei/internal/ids"
	"github.com/loki135/CodeSensei/internal/models"
	"github.com/loki135/CodeSensei/internal/review"
)

const maxCodeLength = 5000

var (
	ErrReviewValidation = errors.New("invalid review request")
	ErrGeneratorFailed  = errors.New("error communicating with AI service")
)

type ReviewStore interface {
	Create(ctx context.Context, review models.Review) error
	ListByUser(ctx context.Context, userID string) ([]models.Review, error)
}

type SubmissionWriter interface {
	PutSubmission(ctx context.Context, userID, reviewID string, code []byte) (string, error)
}

// ReviewService submits code to the generator and records the result. The
// raw payload is archived to the object store; its absence never fails a
// submission.
type ReviewService struct {
	reviews   ReviewStore
	generator review.Generator
	archive   SubmissionWriter
	log       zerolog.Logger
}

func NewReviewService(reviews ReviewStore, generator review.Generator, archive SubmissionWriter, log zerolog.Logger) *ReviewService {
	return &ReviewService{
		reviews:   reviews,
		generator: generator,
		archive:   archive,
		log:       log,
	}
}

type SubmitInput struct {
	UserID   string
	Code     string
	Type     string
	Language string
}

func (s *ReviewService) Submit(ctx context.Context, input SubmitInput) (models.Review, error) {
	input.Code = strings.TrimSpace(input.Code)
	input.Type = strings.TrimSpace(input.Type)
	input.Language = strings.TrimSpace(input.Language)

	if err := validateSubmission(input); err != nil {
		return models.Review{}, err
	}

	suggestions, err := s.generator.Generate(ctx, input.Code, input.Language, input.Type)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", input.UserID).Msg("generator call failed")
		return models.Review{}, ErrGeneratorFailed
	}

	rec := models.Review{
		ID:       ids.New(),
		UserID:   input.UserID,
		Code:     input.Code,
		Type:     models.ReviewType(input.Type),
		Language: input.Language,
		Review:   suggestions,
		Status:   models.ReviewStatusCompleted,
	}

	if s.archive != nil {
		key, err := s.archive.PutSubmission(ctx, input.UserID, rec.ID, []byte(input.Code))
		if err != nil {
			s.log.Warn().Err(err).Str("review_id", rec.ID).Msg("archive submission failed")
		} else {
			rec.ObjectKey = key
		}
	}

	if err := s.reviews.Create(ctx, rec); err != nil {
		return models.Review{}, err
	}
	return rec, nil
}

func (s *ReviewService) History(ctx context.Context, userID string) ([]models.Review, error) {
	return s.reviews.ListByUser(ctx, userID)
}

func validateSubmission(input SubmitInput) error {
	if input.Code == "" {
		return fmt.Errorf("%w: code is required", ErrReviewValidation)
	}
	if len(input.Code) > maxCodeLength {
		return fmt.Errorf("%w: code must be less than %d characters", ErrReviewValidation, maxCodeLength)
	}

	switch models.ReviewType(input.Type) {
	case models.ReviewTypeBug, models.ReviewTypeOptimization, models.ReviewTypeReadability:
	default:
		return fmt.Errorf("%w: invalid review type", ErrReviewValidation)
	}

	if _, ok := models.ReviewLanguages[input.Language]; !ok {
		return fmt.Errorf("%w: invalid language", ErrReviewValidation)
	}
	return nil
}
