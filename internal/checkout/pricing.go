package checkout

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mljjcooking/storefront-backend/pkg/db/models"
	pkgerrors "github.com/mljjcooking/storefront-backend/pkg/errors"
)

// maxLineQuantity bounds a single cart line. Keeping it small also keeps
// line totals far away from int64 overflow.
const maxLineQuantity = 100

// CartItem is a client-submitted cart line. Only the id and quantity are
// trusted; every price comes from the catalog.
type CartItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// PricedItem is a repriced cart line.
type PricedItem struct {
	ProductID      uuid.UUID
	Name           string
	UnitPriceCents int64
	Qty            int
	TotalCents     int64
	ImageURL       *string
}

// PricedCart is the authoritative result of repricing a cart.
type PricedCart struct {
	Items      []PricedItem
	TotalCents int64
}

type catalogReader interface {
	LookupForPurchase(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// PriceCart reprices the cart from the catalog. Any unknown or inactive
// product fails the whole cart; the error lists every offending id so the
// client can fix its cart in one round trip.
func PriceCart(ctx context.Context, catalog catalogReader, items []CartItem) (*PricedCart, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]string{"product_id": item.ProductID.String()})
		}
		if item.Quantity > maxLineQuantity {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the per-line maximum").
				WithDetails(map[string]any{"product_id": item.ProductID.String(), "max_quantity": maxLineQuantity})
		}
		ids = append(ids, item.ProductID)
	}

	found, err := catalog.LookupForPurchase(ctx, ids)
	if err != nil {
		return nil, err
	}

	var unavailable []string
	priced := make([]PricedItem, 0, len(items))
	var total int64
	for _, item := range items {
		product, ok := found[item.ProductID]
		if !ok {
			unavailable = append(unavailable, item.ProductID.String())
			continue
		}
		lineTotal := product.PriceCents * int64(item.Quantity)
		priced = append(priced, PricedItem{
			ProductID:      product.ID,
			Name:           product.Name,
			UnitPriceCents: product.PriceCents,
			Qty:            item.Quantity,
			TotalCents:     lineTotal,
			ImageURL:       product.ImageURL,
		})
		total += lineTotal
	}

	if len(unavailable) > 0 {
		sort.Strings(unavailable)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "some items are unavailable: "+strings.Join(unavailable, ", ")).
			WithDetails(map[string]any{"unavailable_product_ids": unavailable})
	}

	return &PricedCart{Items: priced, TotalCents: total}, nil
}
