package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mljjcooking/storefront-backend/pkg/db/models"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  price_cents INTEGER NOT NULL,
  image_url TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(products).Error)
	require.NoError(t, db.Exec("DELETE FROM products").Error)
	return db
}

func newProduct(t *testing.T, db *gorm.DB, name string, priceCents int64, active bool) *models.Product {
	t.Helper()

	p := &models.Product{
		ID:         uuid.New(),
		Name:       name,
		PriceCents: priceCents,
		IsActive:   active,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func TestListActiveExcludesInactive(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	newProduct(t, db, "Banana Bread", 1200, true)
	newProduct(t, db, "Apple Pie", 2500, true)
	newProduct(t, db, "Discontinued Scone", 400, false)

	rows, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Apple Pie", rows[0].Name)
	assert.Equal(t, "Banana Bread", rows[1].Name)
}

func TestFindActiveByIDsSkipsInactiveAndUnknown(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	active := newProduct(t, db, "Sourdough", 900, true)
	inactive := newProduct(t, db, "Old Roll", 300, false)

	rows, err := repo.FindActiveByIDs(context.Background(), []uuid.UUID{active.ID, inactive.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, active.ID, rows[0].ID)
}

func TestFindActiveByIDsEmptyInput(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	rows, err := repo.FindActiveByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
