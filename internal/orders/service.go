package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mljjcooking/storefront-backend/pkg/db/models"
	"github.com/mljjcooking/storefront-backend/pkg/enums"
	pkgerrors "github.com/mljjcooking/storefront-backend/pkg/errors"
	"github.com/mljjcooking/storefront-backend/pkg/logger"
)

// Service exposes admin order operations. Customer-facing writes go through
// checkout; this surface is read plus the fulfillment transition.
type Service interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	GetOrderByIntent(ctx context.Context, intentID string) (*OrderDTO, error)
	ListOrders(ctx context.Context, params ListParams) (*OrderListDTO, error)
	FulfillOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
}

type repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByPaymentIntentID(ctx context.Context, intentID string) (*models.Order, error)
	List(ctx context.Context, params ListParams) ([]models.Order, int64, error)
	MarkFulfilled(ctx context.Context, id uuid.UUID) (bool, error)
}

type service struct {
	repo repository
	logg *logger.Logger
}

// NewService builds the admin order service.
func NewService(repo repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("orders repository is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, orderLookupError(err)
	}
	dto := toOrderDTO(*order)
	return &dto, nil
}

func (s *service) GetOrderByIntent(ctx context.Context, intentID string) (*OrderDTO, error) {
	if intentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}
	order, err := s.repo.FindByPaymentIntentID(ctx, intentID)
	if err != nil {
		return nil, orderLookupError(err)
	}
	dto := toOrderDTO(*order)
	return &dto, nil
}

func (s *service) ListOrders(ctx context.Context, params ListParams) (*OrderListDTO, error) {
	rows, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toOrderDTO(row))
	}
	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return &OrderListDTO{
		Orders: out,
		Total:  total,
		Limit:  limit,
		Offset: params.Offset,
	}, nil
}

// FulfillOrder moves a paid order to fulfilled. Any other starting status is
// rejected so webhook-driven transitions stay the only path into paid/failed.
func (s *service) FulfillOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, orderLookupError(err)
	}
	if order.Status != enums.OrderStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only paid orders can be fulfilled").
			WithDetails(map[string]string{"status": order.Status.String()})
	}

	transitioned, err := s.repo.MarkFulfilled(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fulfilling order")
	}
	if !transitioned {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}

	ctx = s.logg.WithOrderID(ctx, id.String())
	s.logg.Info(ctx, "order fulfilled")

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, orderLookupError(err)
	}
	dto := toOrderDTO(*updated)
	return &dto, nil
}

func orderLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
}
