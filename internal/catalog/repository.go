package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mljjcooking/storefront-backend/pkg/db/models"
)

// Repository reads product listings. The catalog is managed out of band, so
// this layer is read-only.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// ListActive returns all purchasable products ordered by name.
func (r *Repository) ListActive(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&rows).Error
	return rows, err
}

// FindActiveByIDs loads the active products matching the given IDs. Inactive
// or unknown IDs are simply absent from the result.
func (r *Repository) FindActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&rows).Error
	return rows, err
}
