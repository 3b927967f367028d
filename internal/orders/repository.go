package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mljjcooking/storefront-backend/pkg/db/models"
	"github.com/mljjcooking/storefront-backend/pkg/enums"
)

// Repository persists orders and their line items.
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

// Create inserts the order together with its line items.
func (r *Repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order == nil {
		return nil, errors.New("order is required")
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// FindByID loads the order with its line items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByPaymentIntentID loads the order attached to a Stripe payment intent.
func (r *Repository) FindByPaymentIntentID(ctx context.Context, intentID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "stripe_payment_intent_id = ?", intentID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkPaid transitions the order from pending to paid. The WHERE clause on
// status makes the transition single-winner under concurrent deliveries; the
// returned bool reports whether this call performed the transition.
func (r *Repository) MarkPaid(ctx context.Context, id uuid.UUID, paymentID *string, paidAt time.Time) (bool, error) {
	updates := map[string]any{
		"status":     enums.OrderStatusPaid,
		"updated_at": paidAt,
	}
	if paymentID != nil {
		updates["stripe_payment_id"] = *paymentID
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkFailed transitions the order from pending to failed. Same single-winner
// contract as MarkPaid.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, failedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPending).
		Updates(map[string]any{
			"status":     enums.OrderStatusFailed,
			"updated_at": failedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkFulfilled transitions the order from paid to fulfilled.
func (r *Repository) MarkFulfilled(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPaid).
		Updates(map[string]any{
			"status":     enums.OrderStatusFulfilled,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListParams filters and pages the admin order listing.
type ListParams struct {
	Status *enums.OrderStatus
	Limit  int
	Offset int
}

// List returns orders newest first.
func (r *Repository) List(ctx context.Context, params ListParams) ([]models.Order, int64, error) {
	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := r.db.WithContext(ctx).Model(&models.Order{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Order
	err := query.
		Preload("Items").
		Order("created_at DESC").
		Limit(limit).
		Offset(params.Offset).
		Find(&rows).Error
	return rows, total, err
}
