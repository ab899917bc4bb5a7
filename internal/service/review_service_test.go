package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loki135/CodeSensei/internal/models"
)

type fakeGenerator struct {
	text string
	err  error
}

func (f *fakeGenerator) Generate(_ context.Context, _, _, _ string) (string, error) {
	return f.text, f.err
}

type fakeReviewStore struct {
	created []models.Review
	err     error
}

func (f *fakeReviewStore) Create(_ context.Context, review models.Review) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, review)
	return nil
}

func (f *fakeReviewStore) ListByUser(_ context.Context, userID string) ([]models.Review, error) {
	var out []models.Review
	for _, r := range f.created {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeSubmissionWriter struct {
	keys []string
	err  error
}

func (f *fakeSubmissionWriter) PutSubmission(_ context.Context, userID, reviewID string, _ []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	key := "users/" + userID + "/reviews/" + reviewID
	f.keys = append(f.keys, key)
	return key, nil
}

func validInput() SubmitInput {
	return SubmitInput{
		UserID:   "user-1",
		Code:     "console.log(1)",
		Type:     "bug",
		Language: "javascript",
	}
}

func TestSubmitReview(t *testing.T) {
	store := &fakeReviewStore{}
	writer := &fakeSubmissionWriter{}
	svc := NewReviewService(store, &fakeGenerator{text: "looks fine"}, writer, zerolog.Nop())

	result, err := svc.Submit(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, "looks fine", result.Review)
	assert.Equal(t, models.ReviewStatusCompleted, result.Status)
	assert.Equal(t, models.ReviewTypeBug, result.Type)
	require.Len(t, store.created, 1)
	require.Len(t, writer.keys, 1)
	assert.Equal(t, writer.keys[0], result.ObjectKey)
}

func TestSubmitReviewValidation(t *testing.T) {
	svc := NewReviewService(&fakeReviewStore{}, &fakeGenerator{}, nil, zerolog.Nop())

	cases := []struct {
		name   string
		mutate func(*SubmitInput)
	}{
		{"empty code", func(in *SubmitInput) { in.Code = "   " }},
		{"code too long", func(in *SubmitInput) { in.Code = strings.Repeat("x", 5001) }},
		{"bad type", func(in *SubmitInput) { in.Type = "style" }},
		{"bad language", func(in *SubmitInput) { in.Language = "cobol" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)
			_, err := svc.Submit(context.Background(), input)
			assert.ErrorIs(t, err, ErrReviewValidation)
		})
	}
}

func TestSubmitReviewGeneratorFailure(t *testing.T) {
	store := &fakeReviewStore{}
	svc := NewReviewService(store, &fakeGenerator{err: errors.New("upstream 500")}, nil, zerolog.Nop())

	_, err := svc.Submit(context.Background(), validInput())

	assert.ErrorIs(t, err, ErrGeneratorFailed)
	assert.Empty(t, store.created)
}

func TestSubmitReviewArchiveFailureIsBestEffort(t *testing.T) {
	store := &fakeReviewStore{}
	writer := &fakeSubmissionWriter{err: errors.New("bucket unavailable")}
	svc := NewReviewService(store, &fakeGenerator{text: "ok"}, writer, zerolog.Nop())

	result, err := svc.Submit(context.Background(), validInput())

	require.NoError(t, err)
	assert.Empty(t, result.ObjectKey)
	assert.Len(t, store.created, 1)
}

func TestReviewHistoryFiltersByUser(t *testing.T) {
	store := &fakeReviewStore{}
	svc := NewReviewService(store, &fakeGenerator{text: "ok"}, nil, zerolog.Nop())

	_, err := svc.Submit(context.Background(), validInput())
	require.NoError(t, err)

	other := validInput()
	other.UserID = "user-2"
	_, err = svc.Submit(context.Background(), other)
	require.NoError(t, err)

	reviews, err := svc.History(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "user-1", reviews[0].UserID)
}
