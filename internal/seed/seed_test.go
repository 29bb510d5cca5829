package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	r := repo.New(testutil.OpenDB(t))
	idx := search.NewMemory()

	res, err := Run(ctx, r, idx)
	require.NoError(t, err)
	assert.Equal(t, Result{Users: 2, Categories: 5, Products: 12}, res)

	admin, err := r.UserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, hash.CheckPassword(admin.PasswordHash, DemoPassword))

	cats, err := r.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 5)
	counts := map[string]int64{}
	for _, c := range cats {
		counts[c.Slug] = c.ProductsCount
	}
	assert.Equal(t, map[string]int64{"electronics": 4, "clothing": 3, "home-garden": 2, "sports": 2, "books": 1}, counts)

	hits, err := idx.Search(ctx, "iphone", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Total)
}

func TestRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	r := repo.New(testutil.OpenDB(t))

	_, err := Run(ctx, r, nil)
	require.NoError(t, err)
	res, err := Run(ctx, r, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)

	_, total, err := r.ListProducts(ctx, repo.ProductFilter{Limit: 100})
	require.NoError(t, err)
	assert.EqualValues(t, 12, total)
}
