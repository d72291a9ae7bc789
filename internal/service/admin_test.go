package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/supermarket/internal/domain"
	"github.com/Skotchmaster/supermarket/internal/testutil"
)

func TestAdminService_ProtectsAdmins(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	svc := &AdminService{Repo: env.repo, Carts: env.store}
	admin := testutil.SeedUser(t, env.db, "root", domain.RoleAdmin)

	assert.ErrorIs(t, svc.UpdateAccess(ctx, admin.ID, domain.RoleUser, false), domain.ErrForbidden)
	assert.ErrorIs(t, svc.DeleteUser(ctx, admin.ID), domain.ErrForbidden)
	assert.ErrorIs(t, svc.DeleteUser(ctx, 4040), domain.ErrNotFound)

	u := env.shopper(t, "yan")
	require.NoError(t, svc.UpdateAccess(ctx, u.UserID, domain.RoleUser, true))
	got, err := env.repo.GetUserByID(ctx, u.UserID)
	require.NoError(t, err)
	assert.True(t, got.FreeDelivery)

	assert.ErrorIs(t, svc.UpdateAccess(ctx, u.UserID, "owner", false), domain.ErrValidation)
}

func TestAdminService_DeleteUserReleasesCart(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	svc := &AdminService{Repo: env.repo, Carts: env.store}
	sh := env.shopper(t, "zed")
	p := testutil.SeedProduct(t, env.db, "Tuna", "1.75", 6)

	_, err := env.cart.Add(ctx, sh, p.ID, 4)
	require.NoError(t, err)
	require.Equal(t, 2, testutil.Quantity(t, env.db, p.ID))

	require.NoError(t, svc.DeleteUser(ctx, sh.UserID))
	assert.Equal(t, 6, testutil.Quantity(t, env.db, p.ID))
	assert.Empty(t, env.persistedLines(t, sh.UserID))
}

func TestAdminService_DeleteUserIsAllOrNothing(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	svc := &AdminService{Repo: env.repo, Carts: env.store}
	sh := env.shopper(t, "rob")
	p := testutil.SeedProduct(t, env.db, "Soap", "1.10", 5)

	_, err := env.cart.Add(ctx, sh, p.ID, 3)
	require.NoError(t, err)

	env.faults.set("users")
	err = svc.DeleteUser(ctx, sh.UserID)
	require.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, 2, testutil.Quantity(t, env.db, p.ID))
	assert.Len(t, env.persistedLines(t, sh.UserID), 1)

	env.faults.set("")
	require.NoError(t, svc.DeleteUser(ctx, sh.UserID))
	assert.Equal(t, 5, testutil.Quantity(t, env.db, p.ID))
	assert.Empty(t, env.persistedLines(t, sh.UserID))

	_, err = env.sessions.Load(ctx, sh.CartKey())
	assert.Error(t, err)

	_, err = env.cart.Remove(ctx, sh, p.ID)
	require.ErrorIs(t, err, domain.ErrNotInCart)
	_, err = env.cart.Clear(ctx, sh)
	require.ErrorIs(t, err, domain.ErrCartAlreadyEmpty)
	assert.Equal(t, 5, testutil.Quantity(t, env.db, p.ID))
}

func TestAdminService_Dashboard(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	svc := &AdminService{Repo: env.repo, Carts: env.store}
	sh := env.shopper(t, "amy")
	p := testutil.SeedProduct(t, env.db, "Figs", "4.00", 2)

	_, err := env.cart.Add(ctx, sh, p.ID, 2)
	require.NoError(t, err)
	_, err = env.checkout.Commit(ctx, sh, CheckoutRequest{})
	require.NoError(t, err)

	d, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.Products)
	assert.Equal(t, int64(1), d.Orders)
	assert.Equal(t, int64(1), d.PendingUndos)
	assert.Equal(t, "8.00", d.Revenue.StringFixed(2))
	require.Len(t, d.SoldOut, 1)
	assert.Equal(t, "Figs", d.SoldOut[0].Name)
	require.Len(t, d.RecentOrders, 1)
}
