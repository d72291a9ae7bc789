package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/supermarket/internal/domain"
	"github.com/Skotchmaster/supermarket/internal/repo"
	"github.com/Skotchmaster/supermarket/internal/testutil"
	"github.com/Skotchmaster/supermarket/pkg/tokens"
)

func newTestAuthService(env *testEnv) *AuthService {
	return &AuthService{
		Repo:          env.repo,
		Carts:         env.store,
		Events:        env.events,
		AccessSecret:  []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(newTestEnv(t))
	ctx := context.Background()

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{name: "empty username", in: RegisterInput{Email: "a@b.c", Password: "secret1"}},
		{name: "bad email", in: RegisterInput{Username: "a", Email: "nope", Password: "secret1"}},
		{name: "short password", in: RegisterInput{Username: "a", Email: "a@b.c", Password: "123"}},
	}
	for _, tt := range tests {
		_, err := svc.Register(ctx, tt.in)
		assert.ErrorIs(t, err, domain.ErrValidation, tt.name)
	}
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(newTestEnv(t))
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "uma", Email: "uma@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Username: "uma", Email: "other@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestAuthService_LoginRestoresCartAndRefreshRotates(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	svc := newTestAuthService(env)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Username: "vic", Email: "vic@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "vic", "wrong-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	p := testutil.SeedProduct(t, env.db, "Coffee", "9.00", 5)
	first, err := svc.Login(ctx, "vic@example.com", "secret1")
	require.NoError(t, err)
	sh := domain.Shopper{UserID: u.ID, SessionID: first.SessionID}
	_, err = env.cart.Add(ctx, sh, p.ID, 2)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, sh, first.RefreshToken))

	second, err := svc.Login(ctx, "vic", "secret1")
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, 2, second.CartCount)

	claims, err := tokens.AccessClaimsFromToken(second.AccessToken, svc.AccessSecret)
	require.NoError(t, err)
	assert.Equal(t, second.SessionID, claims.SessionID)
	assert.Equal(t, domain.RoleUser, claims.Role)

	pair, err := svc.Refresh(ctx, second.RefreshToken)
	require.NoError(t, err)
	refreshed, err := tokens.AccessClaimsFromToken(pair.AccessToken, svc.AccessSecret)
	require.NoError(t, err)
	assert.Equal(t, second.SessionID, refreshed.SessionID)

	_, err = svc.Refresh(ctx, second.RefreshToken)
	assert.ErrorIs(t, err, repo.ErrTokenExpiredOrRevoked)

	_, err = svc.Refresh(ctx, first.RefreshToken)
	assert.Error(t, err)
}
