package checkout

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mljjcooking/storefront-backend/internal/orders"
	"github.com/mljjcooking/storefront-backend/internal/payments"
	"github.com/mljjcooking/storefront-backend/pkg/db/models"
	"github.com/mljjcooking/storefront-backend/pkg/enums"
	pkgerrors "github.com/mljjcooking/storefront-backend/pkg/errors"
	"github.com/mljjcooking/storefront-backend/pkg/logger"
)

// InitiateInput is the validated checkout payload.
type InitiateInput struct {
	Items         []CartItem
	CustomerEmail string
	CustomerName  *string
}

// InitiateResult carries what the storefront needs to confirm the payment
// client side.
type InitiateResult struct {
	ClientSecret string    `json:"client_secret"`
	OrderID      uuid.UUID `json:"order_id"`
	TotalAmount  int64     `json:"total_amount"`
}

// Service orchestrates checkout initiation: price, open the authorization
// hold, persist the pending order.
type Service interface {
	Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Catalog   catalogReader
	Gateway   payments.Gateway
	OrderRepo *orders.Repository
	TxRunner  txRunner
	Currency  enums.Currency
	Logger    *logger.Logger
}

type service struct {
	catalog   catalogReader
	gateway   payments.Gateway
	orderRepo *orders.Repository
	txRunner  txRunner
	currency  enums.Currency
	logg      *logger.Logger
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Catalog == nil {
		return nil, errors.New("catalog reader is required")
	}
	if params.Gateway == nil {
		return nil, errors.New("payment gateway is required")
	}
	if params.OrderRepo == nil {
		return nil, errors.New("orders repository is required")
	}
	if params.TxRunner == nil {
		return nil, errors.New("transaction runner is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	currency := params.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}
	return &service{
		catalog:   params.Catalog,
		gateway:   params.Gateway,
		orderRepo: params.OrderRepo,
		txRunner:  params.TxRunner,
		currency:  currency,
		logg:      params.Logger,
	}, nil
}

func (s *service) Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error) {
	email := strings.TrimSpace(input.CustomerEmail)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}

	cart, err := PriceCart(ctx, s.catalog, input.Items)
	if err != nil {
		return nil, err
	}

	orderID := uuid.New()
	intent, err := s.gateway.CreateIntent(ctx, payments.CreateIntentInput{
		AmountCents:  cart.TotalCents,
		Currency:     string(s.currency),
		ReceiptEmail: email,
		Metadata: map[string]string{
			"order_id": orderID.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:                    orderID,
		CustomerEmail:         email,
		CustomerName:          input.CustomerName,
		Status:                enums.OrderStatusPending,
		Currency:              s.currency,
		TotalCents:            cart.TotalCents,
		StripePaymentIntentID: intent.ID,
	}
	for _, item := range cart.Items {
		order.Items = append(order.Items, models.OrderLineItem{
			ID:             uuid.New(),
			OrderID:        orderID,
			ProductID:      item.ProductID,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Qty,
			ImageURL:       item.ImageURL,
			TotalCents:     item.TotalCents,
		})
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		_, createErr := s.orderRepo.WithTx(tx).Create(ctx, order)
		return createErr
	})
	if err != nil {
		// The intent is already open at the provider; it expires unused.
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting order")
	}

	logCtx := s.logg.WithOrderID(ctx, orderID.String())
	logCtx = s.logg.WithIntentID(logCtx, intent.ID)
	s.logg.Info(logCtx, "checkout initiated")

	return &InitiateResult{
		ClientSecret: intent.ClientSecret,
		OrderID:      orderID,
		TotalAmount:  cart.TotalCents,
	}, nil
}
