package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mljjcooking/storefront-backend/pkg/db/models"
	pkgerrors "github.com/mljjcooking/storefront-backend/pkg/errors"
)

// Reader is the catalog surface consumed by checkout and the public API.
type Reader interface {
	ListProducts(ctx context.Context) ([]ProductDTO, error)
	LookupForPurchase(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type repository interface {
	ListActive(ctx context.Context) ([]models.Product, error)
	FindActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// ProductDTO is the public product representation.
type ProductDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	ImageURL    *string   `json:"image_url,omitempty"`
}

type service struct {
	repo repository
}

// NewService builds the catalog reader.
func NewService(repo repository) (Reader, error) {
	if repo == nil {
		return nil, errors.New("catalog repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListProducts(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing products")
	}
	out := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out, nil
}

// LookupForPurchase maps the requested IDs to active products. Callers decide
// how to treat missing entries.
func (s *service) LookupForPurchase(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	rows, err := s.repo.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading products")
	}
	found := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		found[row.ID] = row
	}
	return found, nil
}

func toDTO(p models.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		ImageURL:    p.ImageURL,
	}
}
