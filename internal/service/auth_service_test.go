package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loki135/CodeSensei/internal/models"
	"github.com/loki135/CodeSensei/internal/repository"
	"github.com/loki135/CodeSensei/internal/security"
	"github.com/loki135/CodeSensei/internal/session"
)

type fakeUserStore struct {
	mu           sync.Mutex
	users        map[string]models.User
	reviewCounts map[string]int64
	createErr    error
	findErr      error
	purgeErr     error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:        make(map[string]models.User),
		reviewCounts: make(map[string]int64),
	}
}

func (f *fakeUserStore) Create(_ context.Context, user models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) FindByLogin(_ context.Context, login string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return models.User{}, f.findErr
	}
	for _, user := range f.users {
		if (user.Username == login || user.Email == login) && !user.IsDeleted {
			return user, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok || user.IsDeleted {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id string, passwordHash []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok || user.IsDeleted {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	f.users[id] = user
	return nil
}

func (f *fakeUserStore) PurgeAccount(_ context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.purgeErr != nil {
		return 0, f.purgeErr
	}
	if _, ok := f.users[id]; !ok {
		return 0, repository.ErrUserNotFound
	}
	delete(f.users, id)
	count := f.reviewCounts[id]
	delete(f.reviewCounts, id)
	return count, nil
}

type fakeArchive struct {
	mu      sync.Mutex
	removed []string
	err     error
}

func (f *fakeArchive) RemoveUserSubmissions(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, userID)
	return nil
}

type authFixture struct {
	svc      *AuthService
	users    *fakeUserStore
	registry *session.Registry
	ledger   *session.RevocationLedger
	history  *session.HistoryLog
	archive  *fakeArchive
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	users := newFakeUserStore()
	registry := session.NewRegistry()
	ledger := session.NewRevocationLedger()
	history := session.NewHistoryLog()
	archive := &fakeArchive{}
	tokens := security.NewTokenIssuer("0123456789abcdef0123456789abcdef", 24*time.Hour)

	svc := NewAuthService(users, tokens, registry, ledger, history, archive, time.Second, zerolog.Nop())
	return authFixture{
		svc:      svc,
		users:    users,
		registry: registry,
		ledger:   ledger,
		history:  history,
		archive:  archive,
	}
}

func (fx authFixture) register(t *testing.T, username string) AuthResult {
	t.Helper()
	result, err := fx.svc.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@x.com",
		Password: "pw123456",
		Origin:   "10.0.0.1",
	})
	require.NoError(t, err)
	return result
}

func (fx authFixture) login(t *testing.T, username string) AuthResult {
	t.Helper()
	result, err := fx.svc.Login(context.Background(), LoginInput{
		Login:    username,
		Password: "pw123456",
		Origin:   "10.0.0.2",
	})
	require.NoError(t, err)
	return result
}

func TestRegisterOpensSession(t *testing.T) {
	fx := newAuthFixture(t)

	result := fx.register(t, "alice")

	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "alice", result.User.Username)
	assert.Equal(t, "alice@x.com", result.User.Email)
	assert.Equal(t, models.UserRoleUser, result.User.Role)

	rec, ok := fx.registry.Get(result.Token)
	require.True(t, ok)
	assert.Equal(t, result.User.ID, rec.UserID)
	assert.Equal(t, "10.0.0.1", rec.Origin)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), rec.ExpiresAt, time.Minute)
}

func TestRegisterDuplicate(t *testing.T) {
	fx := newAuthFixture(t)
	fx.register(t, "alice")

	_, err := fx.svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "other@x.com",
		Password: "pw123456",
	})

	assert.ErrorIs(t, err, ErrDuplicateAccount)
}

func TestLoginCreatesSecondSession(t *testing.T) {
	fx := newAuthFixture(t)
	first := fx.register(t, "alice")
	second := fx.login(t, "alice")

	assert.NotEqual(t, first.Token, second.Token)
	assert.Len(t, fx.registry.ListByUser(first.User.ID), 2)
}

func TestLoginByEmail(t *testing.T) {
	fx := newAuthFixture(t)
	fx.register(t, "alice")

	result, err := fx.svc.Login(context.Background(), LoginInput{
		Login:    "alice@x.com",
		Password: "pw123456",
	})

	require.NoError(t, err)
	assert.Equal(t, "alice", result.User.Username)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	fx := newAuthFixture(t)
	result := fx.register(t, "alice")

	// wrong password
	_, err := fx.svc.Login(context.Background(), LoginInput{Login: "alice", Password: "nope-nope"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// unknown account
	_, err = fx.svc.Login(context.Background(), LoginInput{Login: "bob", Password: "pw123456"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// soft-deleted account
	fx.users.mu.Lock()
	user := fx.users.users[result.User.ID]
	user.IsDeleted = true
	fx.users.users[result.User.ID] = user
	fx.users.mu.Unlock()

	_, err = fx.svc.Login(context.Background(), LoginInput{Login: "alice", Password: "pw123456"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginStoreTimeout(t *testing.T) {
	fx := newAuthFixture(t)
	fx.users.findErr = fmt.Errorf("query users: %w", context.DeadlineExceeded)

	_, err := fx.svc.Login(context.Background(), LoginInput{Login: "alice", Password: "pw123456"})

	assert.ErrorIs(t, err, ErrStoreTimeout)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	fx := newAuthFixture(t)
	result := fx.register(t, "alice")

	fx.svc.Logout(result.Token, "")

	assert.True(t, fx.ledger.IsRevoked(result.Token))
	_, ok := fx.registry.Get(result.Token)
	assert.False(t, ok)

	entries := fx.history.ListByUser(result.User.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, ReasonLoggedOut, entries[0].Reason)
}

func TestLogoutIsIdempotent(t *testing.T) {
	fx := newAuthFixture(t)
	result := fx.register(t, "alice")

	fx.svc.Logout(result.Token, "User logged out")
	fx.svc.Logout(result.Token, "User logged out")

	assert.True(t, fx.ledger.IsRevoked(result.Token))
	assert.Len(t, fx.history.ListByUser(result.User.ID), 1)
}

func TestLogoutCarriesCallerReason(t *testing.T) {
	fx := newAuthFixture(t)
	result := fx.register(t, "alice")

	fx.svc.Logout(result.Token, "Switching machines")

	entries := fx.history.ListByUser(result.User.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, "Switching machines", entries[0].Reason)
}

func TestLogoutAllTerminatesExactlyOwnSessions(t *testing.T) {
	fx := newAuthFixture(t)
	alice := fx.register(t, "alice")
	fx.login(t, "alice")
	fx.login(t, "alice")
	bob := fx.register(t, "bob")

	terminated := fx.svc.LogoutAll(alice.User.ID)

	assert.Equal(t, 3, terminated)
	assert.Empty(t, fx.registry.ListByUser(alice.User.ID))
	assert.True(t, fx.ledger.IsRevoked(alice.Token))

	// bob is untouched
	assert.False(t, fx.ledger.IsRevoked(bob.Token))
	assert.Len(t, fx.registry.ListByUser(bob.User.ID), 1)

	entries := fx.history.ListByUser(alice.User.ID)
	require.Len(t, entries, 3)
	for _, entry := range entries {
		assert.Equal(t, ReasonLoggedOutAll, entry.Reason)
	}
}

func TestLogoutOthersKeepsCurrentSession(t *testing.T) {
	fx := newAuthFixture(t)
	alice := fx.register(t, "alice")
	second := fx.login(t, "alice")

	terminated := fx.svc.LogoutOthers(alice.User.ID, second.Token)

	assert.Equal(t, 1, terminated)
	assert.False(t, fx.ledger.IsRevoked(second.Token))
	assert.True(t, fx.ledger.IsRevoked(alice.Token))

	_, ok := fx.registry.Get(second.Token)
	assert.True(t, ok)
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	fx := newAuthFixture(t)
	result := fx.register(t, "alice")

	err := fx.svc.ChangePassword(context.Background(), ChangePasswordInput{
		UserID:          result.User.ID,
		Token:           result.Token,
		CurrentPassword: "wrong-password",
		NewPassword:     "newpw12345",
	})

	assert.ErrorIs(t, err, ErrWrongPassword)
	assert.False(t, fx.ledger.IsRevoked(result.Token))
}

func TestChangePasswordRevokesCurrentToken(t *testing.T) {
	fx := newAuthFixture(t)
	result := fx.register(t, "alice")

	err := fx.svc.ChangePassword(context.Background(), ChangePasswordInput{
		UserID:          result.User.ID,
		Token:           result.Token,
		CurrentPassword: "pw123456",
		NewPassword:     "newpw12345",
	})
	require.NoError(t, err)

	assert.True(t, fx.ledger.IsRevoked(result.Token))

	entries := fx.history.ListByUser(result.User.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, ReasonPasswordChanged, entries[0].Reason)

	// old password no longer works, new one does
	_, err = fx.svc.Login(context.Background(), LoginInput{Login: "alice", Password: "pw123456"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = fx.svc.Login(context.Background(), LoginInput{Login: "alice", Password: "newpw12345"})
	assert.NoError(t, err)
}

func TestDeleteAccount(t *testing.T) {
	fx := newAuthFixture(t)
	result := fx.register(t, "alice")
	fx.login(t, "alice")
	fx.users.reviewCounts[result.User.ID] = 3

	deleted, err := fx.svc.DeleteAccount(context.Background(), result.User.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(3), deleted.ReviewsDeleted)
	assert.Equal(t, 2, deleted.SessionsTerminated)

	assert.Empty(t, fx.registry.ListByUser(result.User.ID))
	assert.True(t, fx.ledger.IsRevoked(result.Token))
	assert.Empty(t, fx.history.ListByUser(result.User.ID))
	assert.Equal(t, []string{result.User.ID}, fx.archive.removed)

	// subsequent login fails as invalid credentials, not a conflict
	_, err = fx.svc.Login(context.Background(), LoginInput{Login: "alice", Password: "pw123456"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestDeleteAccountNotFound(t *testing.T) {
	fx := newAuthFixture(t)

	_, err := fx.svc.DeleteAccount(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestDeleteAccountStoreFailureSkipsCleanup(t *testing.T) {
	fx := newAuthFixture(t)
	result := fx.register(t, "alice")
	fx.users.purgeErr = errors.New("transaction aborted")

	_, err := fx.svc.DeleteAccount(context.Background(), result.User.ID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAccountNotFound)

	// the durable purge rolled back, so no in-memory state was touched
	assert.Len(t, fx.registry.ListByUser(result.User.ID), 1)
	assert.False(t, fx.ledger.IsRevoked(result.Token))
	assert.Empty(t, fx.archive.removed)
}

func TestDeleteAccountArchiveFailureIsBestEffort(t *testing.T) {
	fx := newAuthFixture(t)
	result := fx.register(t, "alice")
	fx.archive.err = errors.New("bucket unavailable")

	deleted, err := fx.svc.DeleteAccount(context.Background(), result.User.ID)

	require.NoError(t, err)
	assert.Equal(t, 1, deleted.SessionsTerminated)
}
