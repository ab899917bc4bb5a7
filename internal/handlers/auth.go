package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loki135/CodeSensei/internal/middleware"
	"github.com/loki135/CodeSensei/internal/service"
)

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name"`
}

type authResponse struct {
	Token   string `json:"token"`
	Account any    `json:"account"`
}

func (h HandlerSet) RegisterAccount(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.failure(c, http.StatusBadRequest, "Validation error", err)
		return
	}

	result, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Origin:   c.ClientIP(),
	})
	if err != nil {
		h.authFailure(c, err)
		return
	}

	h.success(c, http.StatusCreated, authResponse{
		Token:   result.Token,
		Account: result.User.PublicProfile(),
	})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.failure(c, http.StatusBadRequest, "Validation error", err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Login:    req.Username,
		Password: req.Password,
		Origin:   c.ClientIP(),
	})
	if err != nil {
		h.authFailure(c, err)
		return
	}

	h.success(c, http.StatusOK, authResponse{
		Token:   result.Token,
		Account: result.User.PublicProfile(),
	})
}

func (h HandlerSet) authFailure(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		h.failure(c, http.StatusUnauthorized, "Invalid credentials", nil)
	case errors.Is(err, service.ErrDuplicateAccount):
		h.failure(c, http.StatusBadRequest, "Username or email already taken", nil)
	case errors.Is(err, service.ErrStoreTimeout):
		h.failure(c, http.StatusRequestTimeout, "Request timed out, please retry", nil)
	default:
		h.log.Error().Err(err).Msg("auth operation failed")
		h.failure(c, http.StatusInternalServerError, "Database error", err)
	}
}

type logoutRequest struct {
	Reason string `json:"reason"`
}

// Logout only requires a token to be present; revoking an already-revoked
// token succeeds again with no new history entry.
func (h HandlerSet) Logout(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		h.failure(c, http.StatusBadRequest, "No token provided", nil)
		return
	}

	var req logoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.failure(c, http.StatusBadRequest, "Validation error", err)
			return
		}
	}

	h.authService.Logout(token, req.Reason)
	h.success(c, http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h HandlerSet) LogoutAll(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.failure(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	terminated := h.authService.LogoutAll(user.ID)
	h.success(c, http.StatusOK, gin.H{"sessionsTerminated": terminated})
}

func (h HandlerSet) LogoutOthers(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.failure(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}
	token, _ := middleware.CurrentToken(c)

	terminated := h.authService.LogoutOthers(user.ID, token)
	h.success(c, http.StatusOK, gin.H{"sessionsTerminated": terminated})
}

type sessionResponse struct {
	Device     string    `json:"device"`
	Origin     string    `json:"origin"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Current    bool      `json:"current"`
}

func (h HandlerSet) ListSessions(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.failure(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}
	token, _ := middleware.CurrentToken(c)

	records := h.registry.ListByUser(user.ID)
	sessions := make([]sessionResponse, 0, len(records))
	for _, rec := range records {
		sessions = append(sessions, sessionResponse{
			Device:     rec.Device,
			Origin:     rec.Origin,
			CreatedAt:  rec.IssuedAt,
			LastActive: rec.LastActive,
			ExpiresAt:  rec.ExpiresAt,
			Current:    rec.Token == token,
		})
	}

	h.success(c, http.StatusOK, gin.H{"sessions": sessions})
}

func (h HandlerSet) LogoutHistory(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.failure(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	entries := h.history.ListByUser(user.ID)
	h.success(c, http.StatusOK, gin.H{"history": entries})
}

func (h HandlerSet) Profile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.failure(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	h.success(c, http.StatusOK, user.PublicProfile())
}

type updateProfileRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h HandlerSet) UpdateProfile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.failure(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.failure(c, http.StatusBadRequest, "Validation error", err)
		return
	}

	if err := h.users.UpdateName(c.Request.Context(), user.ID, req.Name); err != nil {
		h.failure(c, http.StatusInternalServerError, "Database error", err)
		return
	}

	user.Name = req.Name
	h.success(c, http.StatusOK, user.PublicProfile())
}

func (h HandlerSet) ProfileStats(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.failure(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	stats, err := h.reviews.StatsByUser(c.Request.Context(), user.ID)
	if err != nil {
		h.failure(c, http.StatusInternalServerError, "Database error", err)
		return
	}

	h.success(c, http.StatusOK, stats)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.failure(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}
	token, _ := middleware.CurrentToken(c)

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.failure(c, http.StatusBadRequest, "Validation error", err)
		return
	}

	err := h.authService.ChangePassword(c.Request.Context(), service.ChangePasswordInput{
		UserID:          user.ID,
		Token:           token,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWrongPassword):
			h.failure(c, http.StatusUnauthorized, "Current password is incorrect", nil)
		case errors.Is(err, service.ErrStoreTimeout):
			h.failure(c, http.StatusRequestTimeout, "Request timed out, please retry", nil)
		case errors.Is(err, service.ErrAccountNotFound):
			h.failure(c, http.StatusNotFound, "Account not found", nil)
		default:
			h.failure(c, http.StatusInternalServerError, "Database error", err)
		}
		return
	}

	h.success(c, http.StatusOK, gin.H{"message": "Password updated successfully. Please log in again."})
}

func (h HandlerSet) DeleteAccount(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.failure(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	result, err := h.authService.DeleteAccount(c.Request.Context(), user.ID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			h.failure(c, http.StatusNotFound, "Account not found", nil)
			return
		}
		h.failure(c, http.StatusInternalServerError, "Account deletion failed, no changes were made", err)
		return
	}

	h.success(c, http.StatusOK, gin.H{
		"reviewsDeleted":     result.ReviewsDeleted,
		"sessionsTerminated": result.SessionsTerminated,
	})
}
