package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/supermarket/internal/domain"
	"github.com/Skotchmaster/supermarket/internal/models"
	"github.com/Skotchmaster/supermarket/internal/repo"
	"github.com/Skotchmaster/supermarket/internal/testutil"
)

type fakeIndex struct {
	ids     []uint
	err     error
	upserts []uint
	deletes []uint
}

func (f *fakeIndex) Search(_ context.Context, _ string, _, _ int) ([]uint, int64, error) {
	return f.ids, int64(len(f.ids)), f.err
}

func (f *fakeIndex) Upsert(_ context.Context, p models.Product) error {
	f.upserts = append(f.upserts, p.ID)
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, id uint) error {
	f.deletes = append(f.deletes, id)
	return nil
}

func TestCatalogService_ListProduceAliases(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	svc := &CatalogService{Repo: env.repo}

	require.NoError(t, env.repo.CreateProduct(ctx, &models.Product{Name: "Carrots", Price: dec("1.00"), Quantity: 3, Category: "Fruits & Vegs"}))
	require.NoError(t, env.repo.CreateProduct(ctx, &models.Product{Name: "Bananas", Price: dec("1.00"), Quantity: 3}))
	require.NoError(t, env.repo.CreateProduct(ctx, &models.Product{Name: "Steak", Price: dec("9.00"), Quantity: 3, Category: "Meats"}))

	out, err := svc.List(ctx, ListQuery{Category: "Fruits and Vegetables"})
	require.NoError(t, err)
	names := make([]string, 0, len(out.Products))
	for _, p := range out.Products {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{"Carrots", "Bananas"}, names)

	out, err = svc.List(ctx, ListQuery{Category: "Meats"})
	require.NoError(t, err)
	require.Len(t, out.Products, 1)
	assert.Equal(t, "Steak", out.Products[0].Name)
}

func TestCatalogService_ListPaginatesAndTrending(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	svc := &CatalogService{Repo: env.repo}

	for i := 0; i < 23; i++ {
		p := testutil.SeedProduct(t, env.db, "Item"+string(rune('A'+i)), "1.00", 1)
		if i%5 == 0 {
			require.NoError(t, env.repo.SetFeatured(ctx, p.ID, true))
		}
	}

	out, err := svc.List(ctx, ListQuery{Page: 3})
	require.NoError(t, err)
	assert.Len(t, out.Products, 3)
	assert.Equal(t, int64(3), out.Meta.TotalPages)
	assert.Len(t, out.Trending, 5)

	out, err = svc.List(ctx, ListQuery{Page: 9})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Meta.Page)
	assert.Len(t, out.Products, 3)

	out, err = svc.List(ctx, ListQuery{Trending: true})
	require.NoError(t, err)
	assert.Len(t, out.Products, 5)
	assert.Empty(t, out.Trending)
}

func TestCatalogService_SearchUsesIndexThenFallsBack(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	a := testutil.SeedProduct(t, env.db, "Green Apple", "1.00", 1)
	b := testutil.SeedProduct(t, env.db, "Apple Juice", "2.00", 1)

	idx := &fakeIndex{ids: []uint{b.ID, a.ID}}
	svc := &CatalogService{Repo: env.repo, Index: idx}

	page, err := svc.Search(ctx, "aple", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, b.ID, page.Data[0].ID)

	idx.err = errors.New("cluster red")
	page, err = svc.Search(ctx, "apple", 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)

	_, err = svc.Search(ctx, "  ", 1, 10)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCatalogService_AdminWrites(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	idx := &fakeIndex{}
	svc := &CatalogService{Repo: env.repo, Index: idx, Events: env.events}

	_, err := svc.Create(ctx, ProductInput{Name: " ", Price: dec("1.00")})
	require.ErrorIs(t, err, domain.ErrValidation)

	p, err := svc.Create(ctx, ProductInput{Name: "Olive Oil", Price: dec("8.00"), Quantity: 2, Category: "Pantry"})
	require.NoError(t, err)

	sale := dec("6.50")
	updated, err := svc.Update(ctx, p.ID, ProductInput{Name: "Olive Oil", Price: dec("8.00"), DiscountPrice: &sale, Quantity: 99, Category: "Pantry"})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Quantity)
	assert.True(t, updated.OnSale())

	qty, err := svc.Restock(ctx, p.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 12, qty)

	_, err = svc.Restock(ctx, p.ID, -20)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	require.NoError(t, svc.Delete(ctx, p.ID))
	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, p.ID), domain.ErrNotFound)

	assert.Equal(t, []uint{p.ID, p.ID}, idx.upserts)
	assert.Equal(t, []uint{p.ID}, idx.deletes)
	_, err = env.repo.GetProduct(ctx, p.ID)
	assert.True(t, repo.IsNotFound(err))
}
