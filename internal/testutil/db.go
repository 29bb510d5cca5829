// Package testutil builds throwaway databases and fixtures for tests.
package testutil

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/models"
)

// OpenDB returns a migrated in-memory sqlite database with foreign keys on.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	ctx := context.Background()
	gdb, err := db.Open(ctx, db.Options{
		Driver:   "sqlite",
		DSN:      ":memory:?_pragma=foreign_keys(1)",
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, gdb))

	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}

func CreateUser(t *testing.T, gdb *gorm.DB, email, password string, role models.Role) *models.User {
	t.Helper()

	pw, err := hash.HashPassword(password)
	require.NoError(t, err)
	u := &models.User{Name: email, Email: email, PasswordHash: pw, Role: role}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

func CreateCategory(t *testing.T, gdb *gorm.DB, name, slug string) *models.Category {
	t.Helper()

	c := &models.Category{Name: name, Slug: slug}
	require.NoError(t, gdb.Create(c).Error)
	return c
}

func CreateProduct(t *testing.T, gdb *gorm.DB, name, price string, categoryID uint) *models.Product {
	t.Helper()

	p := &models.Product{
		Name:       name,
		Price:      decimal.RequireFromString(price),
		CategoryID: categoryID,
	}
	require.NoError(t, gdb.Omit("Category").Create(p).Error)
	return p
}
