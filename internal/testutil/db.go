// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/supermarket/internal/models"
)

// NewDB opens a fresh in-memory database with the full schema. A single
// connection keeps every query on the same in-memory database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func SeedProduct(t testing.TB, db *gorm.DB, name, price string, qty int) *models.Product {
	t.Helper()

	p := &models.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
		Category: "Pantry",
	}
	if err := db.WithContext(context.Background()).Create(p).Error; err != nil {
		t.Fatalf("seed product %s: %v", name, err)
	}
	return p
}

func SeedUser(t testing.TB, db *gorm.DB, username, role string) *models.User {
	t.Helper()

	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

func Quantity(t testing.TB, db *gorm.DB, productID uint) int {
	t.Helper()

	var p models.Product
	if err := db.Select("id", "quantity").First(&p, productID).Error; err != nil {
		t.Fatalf("load product %d: %v", productID, err)
	}
	return p.Quantity
}
