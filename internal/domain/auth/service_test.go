package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/core/apperror"
	"atelier/internal/core/id"
)

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memUserRepo struct {
	users map[string]*User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*User)}
}

func (r *memUserRepo) Create(ctx context.Context, user *User) error {
	r.users[user.Email] = user
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, userID id.ID) (*User, error) {
	for _, u := range r.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, apperror.NewNotFound("user", userID.String())
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	if u, ok := r.users[email]; ok {
		return u, nil
	}
	return nil, apperror.NewNotFound("user", email)
}

func (r *memUserRepo) Update(ctx context.Context, user *User) error {
	r.users[user.Email] = user
	return nil
}

func (r *memUserRepo) Delete(ctx context.Context, userID id.ID) error { return nil }

func (r *memUserRepo) List(ctx context.Context, f UserFilter) ([]User, int, error) {
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (r *memUserRepo) Exists(ctx context.Context, email string) (bool, error) {
	_, ok := r.users[email]
	return ok, nil
}

type memTokenRepo struct {
	tokens map[string]*RefreshToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: make(map[string]*RefreshToken)}
}

func (r *memTokenRepo) SaveRefreshToken(ctx context.Context, token *RefreshToken) error {
	r.tokens[token.TokenHash] = token
	return nil
}

func (r *memTokenRepo) GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	if t, ok := r.tokens[tokenHash]; ok {
		return t, nil
	}
	return nil, apperror.NewNotFound("refresh token", tokenHash)
}

func (r *memTokenRepo) RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error {
	for _, t := range r.tokens {
		if t.ID == tokenID {
			now := time.Now()
			t.RevokedAt = &now
			t.RevokedReason = reason
		}
	}
	return nil
}

func (r *memTokenRepo) RevokeAllUserTokens(ctx context.Context, userID id.ID, reason string) error {
	for _, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			now := time.Now()
			t.RevokedAt = &now
			t.RevokedReason = reason
		}
	}
	return nil
}

func (r *memTokenRepo) CleanupExpiredTokens(ctx context.Context) (int, error) { return 0, nil }

func newTestService(t *testing.T) (*Service, *memUserRepo, *memTokenRepo) {
	t.Helper()
	users := newMemUserRepo()
	tokens := newMemTokenRepo()
	jwtSvc := NewJWTService(DefaultJWTConfig("test-secret"))
	svc := NewService(users, tokens, fakeTxManager{}, jwtSvc, DefaultServiceConfig())
	return svc, users, tokens
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterRequest{
		Email:    "Ana@Atelier.dev",
		Password: "correct-horse",
		Name:     "Ana",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@atelier.dev", user.Email, "email is normalized")
	assert.Equal(t, RoleUser, user.Role)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)

	// Duplicate email.
	_, err = svc.Register(ctx, RegisterRequest{Email: "ana@atelier.dev", Password: "correct-horse"})
	require.Error(t, err)

	// Short password.
	_, err = svc.Register(ctx, RegisterRequest{Email: "bob@atelier.dev", Password: "short"})
	require.Error(t, err)

	tokens, loggedIn, err := svc.Login(ctx, Credentials{Email: "ana@atelier.dev", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.NotNil(t, loggedIn.LastLoginAt)
}

func TestLogin_WrongPasswordAndLockout(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "ana@atelier.dev", Password: "correct-horse"})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, _, err = svc.Login(ctx, Credentials{Email: "ana@atelier.dev", Password: "wrong"})
		require.Error(t, err)
	}

	user := users.users["ana@atelier.dev"]
	assert.True(t, user.IsLocked(), "five failures lock the account")

	// Even the right password is rejected while locked.
	_, _, err = svc.Login(ctx, Credentials{Email: "ana@atelier.dev", Password: "correct-horse"})
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestTokenRoundTrip(t *testing.T) {
	jwtSvc := NewJWTService(DefaultJWTConfig("test-secret"))

	admin := NewUser("root@atelier.dev", "hash")
	admin.Role = RoleAdmin
	admin.Name = "Root"

	token, expiresAt, err := jwtSvc.GenerateAccessToken(admin)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	uc, err := jwtSvc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID.String(), uc.UserID)
	assert.Equal(t, "root@atelier.dev", uc.Email)
	assert.Equal(t, RoleAdmin, uc.Role)
	assert.True(t, uc.IsAdmin)

	// Tampered secret fails validation.
	other := NewJWTService(DefaultJWTConfig("other-secret"))
	_, err = other.ValidateToken(token)
	require.Error(t, err)
}

func TestRefreshToken_Rotation(t *testing.T) {
	svc, _, tokenRepo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "ana@atelier.dev", Password: "correct-horse"})
	require.NoError(t, err)

	pair, _, err := svc.Login(ctx, Credentials{Email: "ana@atelier.dev", Password: "correct-horse"})
	require.NoError(t, err)

	next, err := svc.RefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// The consumed token cannot be replayed.
	_, err = svc.RefreshToken(ctx, pair.RefreshToken)
	require.Error(t, err)

	old := tokenRepo.tokens[hashToken(pair.RefreshToken)]
	require.NotNil(t, old.RevokedAt)
	assert.Equal(t, "refreshed", old.RevokedReason)
}

func TestLogout_RevokesAllTokens(t *testing.T) {
	svc, users, tokenRepo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "ana@atelier.dev", Password: "correct-horse"})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, Credentials{Email: "ana@atelier.dev", Password: "correct-horse"})
	require.NoError(t, err)
	_, _, err = svc.Login(ctx, Credentials{Email: "ana@atelier.dev", Password: "correct-horse"})
	require.NoError(t, err)

	user := users.users["ana@atelier.dev"]
	require.NoError(t, svc.Logout(ctx, user.ID))

	for _, tok := range tokenRepo.tokens {
		assert.NotNil(t, tok.RevokedAt)
	}
}
