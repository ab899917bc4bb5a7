package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loki135/CodeSensei/internal/middleware"
	"github.com/loki135/CodeSensei/internal/models"
	"github.com/loki135/CodeSensei/internal/service"
)

type submitReviewRequest struct {
	Code     string `json:"code" binding:"required"`
	Type     string `json:"type" binding:"required"`
	Language string `json:"language" binding:"required"`
}

type reviewResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Language  string    `json:"language"`
	Review    string    `json:"review"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func toReviewResponse(r models.Review) reviewResponse {
	return reviewResponse{
		ID:        r.ID,
		Type:      string(r.Type),
		Language:  r.Language,
		Review:    r.Review,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
	}
}

func (h HandlerSet) SubmitReview(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.failure(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.failure(c, http.StatusBadRequest, "Validation error", err)
		return
	}

	result, err := h.reviewService.Submit(c.Request.Context(), service.SubmitInput{
		UserID:   user.ID,
		Code:     req.Code,
		Type:     req.Type,
		Language: req.Language,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReviewValidation):
			h.failure(c, http.StatusBadRequest, err.Error(), nil)
		case errors.Is(err, service.ErrGeneratorFailed):
			h.failure(c, http.StatusBadGateway, "Error communicating with AI service", nil)
		default:
			h.failure(c, http.StatusInternalServerError, "Failed to generate review", err)
		}
		return
	}

	h.success(c, http.StatusOK, gin.H{
		"suggestions": result.Review,
		"reviewId":    result.ID,
	})
}

func (h HandlerSet) ReviewHistory(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.failure(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	reviews, err := h.reviewService.History(c.Request.Context(), user.ID)
	if err != nil {
		h.failure(c, http.StatusInternalServerError, "Error fetching history", err)
		return
	}

	out := make([]reviewResponse, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, toReviewResponse(r))
	}
	h.success(c, http.StatusOK, out)
}
