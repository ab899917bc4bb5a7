package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (h HandlerSet) AdminListReviews(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	reviews, err := h.reviews.ListAll(c.Request.Context(), limit, offset)
	if err != nil {
		h.failure(c, http.StatusInternalServerError, "Database error", err)
		return
	}

	out := make([]reviewResponse, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, toReviewResponse(r))
	}
	h.success(c, http.StatusOK, gin.H{"reviews": out})
}
