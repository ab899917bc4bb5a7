package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/loki135/CodeSensei/internal/config"
	"github.com/loki135/CodeSensei/internal/middleware"
	"github.com/loki135/CodeSensei/internal/models"
	"github.com/loki135/CodeSensei/internal/repository"
	"github.com/loki135/CodeSensei/internal/review"
	"github.com/loki135/CodeSensei/internal/security"
	"github.com/loki135/CodeSensei/internal/service"
	"github.com/loki135/CodeSensei/internal/session"
	"github.com/loki135/CodeSensei/internal/storage"
)

type HandlerSet struct {
	log           zerolog.Logger
	cfg           *config.AppConfig
	authService   *service.AuthService
	reviewService *service.ReviewService
	db            *pgxpool.Pool
	cache         *redis.Client
	users         *repository.UserRepository
	reviews       *repository.ReviewRepository
	tokens        *security.TokenIssuer
	registry      *session.Registry
	ledger        *session.RevocationLedger
	history       *session.HistoryLog
}

func NewHandlerSet(
	log zerolog.Logger,
	db *pgxpool.Pool,
	cache *redis.Client,
	store *storage.ObjectStore,
	generator review.Generator,
	registry *session.Registry,
	ledger *session.RevocationLedger,
	history *session.HistoryLog,
	cfg *config.AppConfig,
) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	tokens := security.NewTokenIssuer(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	auth := service.NewAuthService(userRepo, tokens, registry, ledger, history, store, cfg.Security.StoreTimeout, log)
	reviews := service.NewReviewService(reviewRepo, generator, store, log)

	return HandlerSet{
		log:           log,
		cfg:           cfg,
		authService:   auth,
		reviewService: reviews,
		db:            db,
		cache:         cache,
		users:         userRepo,
		reviews:       reviewRepo,
		tokens:        tokens,
		registry:      registry,
		ledger:        ledger,
		history:       history,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	router.Use(middleware.RateLimit(h.cache, "global", h.cfg.RateLimit.GlobalMax, h.cfg.RateLimit.GlobalWindow, h.log))

	authed := []gin.HandlerFunc{
		middleware.Auth(h.tokens, h.ledger, h.registry, h.users, h.log),
	}
	if h.cfg.Security.SignatureSecret != "" {
		authed = append(authed, middleware.Signature(h.cfg.Security.SignatureSecret, h.cache))
	}

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.RegisterAccount)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)

		// bulk logout reports a missing token as 400, not 401
		bulk := auth.Group("", middleware.TokenRequired())
		bulk.Use(authed...)
		bulk.POST("/logout-all", h.LogoutAll)
		bulk.POST("/logout-others", h.LogoutOthers)

		protected := auth.Group("")
		protected.Use(authed...)
		protected.GET("/sessions", h.ListSessions)
		protected.GET("/logout-history", h.LogoutHistory)
		protected.GET("/profile", h.Profile)
		protected.PATCH("/profile", h.UpdateProfile)
		protected.GET("/profile/stats", h.ProfileStats)
		protected.POST("/profile/change-password", h.ChangePassword)
		protected.DELETE("/account", h.DeleteAccount)
	}

	reviews := router.Group("/review")
	reviews.Use(authed...)
	reviews.Use(middleware.RateLimit(h.cache, "review", h.cfg.RateLimit.ReviewMax, h.cfg.RateLimit.ReviewWindow, h.log))
	reviews.POST("", h.SubmitReview)

	historyGroup := router.Group("/history")
	historyGroup.Use(authed...)
	historyGroup.GET("", h.ReviewHistory)

	admin := router.Group("/admin")
	admin.Use(authed...)
	admin.Use(middleware.RequireRoles(models.UserRoleAdmin))
	admin.GET("/reviews", h.AdminListReviews)
}
