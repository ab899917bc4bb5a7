package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/loki135/CodeSensei/internal/ids"
	"github.com/loki135/CodeSensei/internal/models"
	"github.com/loki135/CodeSensei/internal/repository"
	"github.com/loki135/CodeSensei/internal/security"
	"github.com/loki135/CodeSensei/internal/session"
)

var (
	// ErrInvalidCredentials covers unknown account, wrong password and
	// soft-deleted account alike so login failures cannot be used to probe
	// which accounts exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrAccountNotFound    = errors.New("account not found")
	ErrDuplicateAccount   = errors.New("username or email already taken")
	ErrStoreTimeout       = errors.New("storage timed out, retry")
)

const (
	ReasonLoggedOut       = "User logged out"
	ReasonLoggedOutAll    = "Logged out from all devices"
	ReasonLoggedOutOther  = "Logged out from another device"
	ReasonPasswordChanged = "Password changed"
	ReasonAccountDeleted  = "Account deleted"
)

// UserStore is the durable credential store the lifecycle manager composes.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByLogin(ctx context.Context, login string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash []byte) error
	PurgeAccount(ctx context.Context, id string) (int64, error)
}

// SubmissionArchive is the object store holding archived review payloads.
type SubmissionArchive interface {
	RemoveUserSubmissions(ctx context.Context, userID string) error
}

// AuthService orchestrates login, logout variants and account deletion over
// the token issuer, the in-memory session state and the durable stores.
type AuthService struct {
	users        UserStore
	tokens       *security.TokenIssuer
	registry     *session.Registry
	ledger       *session.RevocationLedger
	history      *session.HistoryLog
	archive      SubmissionArchive
	storeTimeout time.Duration
	log          zerolog.Logger
}

func NewAuthService(
	users UserStore,
	tokens *security.TokenIssuer,
	registry *session.Registry,
	ledger *session.RevocationLedger,
	history *session.HistoryLog,
	archive SubmissionArchive,
	storeTimeout time.Duration,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:        users,
		tokens:       tokens,
		registry:     registry,
		ledger:       ledger,
		history:      history,
		archive:      archive,
		storeTimeout: storeTimeout,
		log:          log,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Name     string
	Origin   string
}

type AuthResult struct {
	Token string
	User  models.User
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: passwordHash,
		Name:         input.Name,
		Role:         models.UserRoleUser,
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	if err := s.users.Create(storeCtx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return AuthResult{}, ErrDuplicateAccount
		}
		return AuthResult{}, s.mapStoreErr(err)
	}

	return s.openSession(user, input.Origin)
}

type LoginInput struct {
	Login    string
	Password string
	Origin   string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	user, err := s.users.FindByLogin(storeCtx, strings.TrimSpace(input.Login))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, s.mapStoreErr(err)
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, ErrInvalidCredentials
	}

	return s.openSession(user, input.Origin)
}

// openSession issues a token and opens the registry entry from the token's
// own embedded timestamps, so registry expiry can never drift from the
// signature expiry.
func (s *AuthService) openSession(user models.User, origin string) (AuthResult, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, err
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return AuthResult{}, fmt.Errorf("verify issued token: %w", err)
	}

	s.registry.Open(token, user.ID, claims.IssuedAt.Time, claims.ExpiresAt.Time, origin)
	return AuthResult{Token: token, User: user}, nil
}

// Logout revokes the presented token. Revoking an already-revoked or unknown
// token succeeds without recording a second history entry.
func (s *AuthService) Logout(token string, reason string) {
	now := time.Now()
	rec, ok := s.registry.Close(token)

	expiresAt := now.Add(s.tokens.TTL())
	if ok {
		expiresAt = rec.ExpiresAt
	} else if claims, err := s.tokens.Verify(token); err == nil {
		expiresAt = claims.ExpiresAt.Time
	}
	s.ledger.Revoke(token, expiresAt)

	if ok {
		if reason == "" {
			reason = ReasonLoggedOut
		}
		s.history.Record(rec.UserID, rec, reason, now)
	}
}

// LogoutAll revokes every live session of the account, including the one the
// call was made with, and returns the number of sessions terminated.
func (s *AuthService) LogoutAll(userID string) int {
	return s.revokeSessions(userID, "", ReasonLoggedOutAll)
}

// LogoutOthers revokes every live session of the account except the
// presented token's.
func (s *AuthService) LogoutOthers(userID string, currentToken string) int {
	return s.revokeSessions(userID, currentToken, ReasonLoggedOutOther)
}

func (s *AuthService) revokeSessions(userID string, keepToken string, reason string) int {
	now := time.Now()
	terminated := 0
	for _, rec := range s.registry.ListByUser(userID) {
		if rec.Token == keepToken {
			continue
		}
		closed, ok := s.registry.Close(rec.Token)
		if !ok {
			// lost a race with a concurrent logout; the ledger entry
			// already exists
			continue
		}
		s.ledger.Revoke(closed.Token, closed.ExpiresAt)
		s.history.Record(userID, closed, reason, now)
		terminated++
	}
	return terminated
}

type ChangePasswordInput struct {
	UserID          string
	Token           string
	CurrentPassword string
	NewPassword     string
}

// ChangePassword updates the credential and revokes the presented token so
// the caller has to authenticate again with the new password.
func (s *AuthService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	user, err := s.users.GetByID(storeCtx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrAccountNotFound
		}
		return s.mapStoreErr(err)
	}

	ok, err := security.VerifyPassword(input.CurrentPassword, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrWrongPassword
	}

	passwordHash, err := security.HashPassword(input.NewPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(storeCtx, input.UserID, passwordHash); err != nil {
		return s.mapStoreErr(err)
	}

	s.Logout(input.Token, ReasonPasswordChanged)
	return nil
}

type DeleteAccountResult struct {
	ReviewsDeleted     int64
	SessionsTerminated int
}

// DeleteAccount removes the account and its reviews in one durable
// transaction, then cleans up the in-memory session state. The in-memory
// step runs only after the transaction commits and is best-effort: there is
// nothing to roll it back into.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) (DeleteAccountResult, error) {
	reviewsDeleted, err := s.users.PurgeAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return DeleteAccountResult{}, ErrAccountNotFound
		}
		return DeleteAccountResult{}, s.mapStoreErr(err)
	}

	terminated := s.revokeSessions(userID, "", ReasonAccountDeleted)
	s.history.Purge(userID)

	if s.archive != nil {
		if err := s.archive.RemoveUserSubmissions(ctx, userID); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("remove archived submissions failed")
		}
	}

	return DeleteAccountResult{
		ReviewsDeleted:     reviewsDeleted,
		SessionsTerminated: terminated,
	}, nil
}

func (s *AuthService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

func (s *AuthService) mapStoreErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrStoreTimeout
	}
	return err
}
