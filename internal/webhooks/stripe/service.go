package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	ordersvc "github.com/mljjcooking/storefront-backend/internal/orders"
	"github.com/mljjcooking/storefront-backend/pkg/db/models"
	"github.com/mljjcooking/storefront-backend/pkg/enums"
	pkgerrors "github.com/mljjcooking/storefront-backend/pkg/errors"
	"github.com/mljjcooking/storefront-backend/pkg/logger"
	"github.com/mljjcooking/storefront-backend/pkg/outbox"
	"github.com/mljjcooking/storefront-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderRepository interface {
	WithTx(tx *gorm.DB) *ordersvc.Repository
	FindByPaymentIntentID(ctx context.Context, intentID string) (*models.Order, error)
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ServiceParams struct {
	OrderRepo         orderRepository
	Outbox            outboxEmitter
	TransactionRunner txRunner
	Logger            *logger.Logger
}

// Service applies payment outcomes from Stripe events to the order ledger.
type Service struct {
	orderRepo orderRepository
	outbox    outboxEmitter
	txRunner  txRunner
	logg      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.OrderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order repo required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		orderRepo: params.OrderRepo,
		outbox:    params.Outbox,
		txRunner:  params.TransactionRunner,
		logg:      params.Logger,
	}, nil
}

// HandleEvent reconciles a verified Stripe event into the ledger. Unknown
// event types and unknown orders are acked without error so Stripe stops
// redelivering them.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		return s.applySucceeded(ctx, intent)
	case stripe.EventTypePaymentIntentPaymentFailed:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		return s.applyFailed(ctx, intent)
	default:
		return nil
	}
}

func decodeIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	return &intent, nil
}

func (s *Service) applySucceeded(ctx context.Context, intent *stripe.PaymentIntent) error {
	ctx = s.logg.WithIntentID(ctx, intent.ID)

	order, err := s.orderRepo.FindByPaymentIntentID(ctx, intent.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(ctx, "payment succeeded for unknown order")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order for intent")
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	paymentID := latestChargeID(intent)
	paidAt := time.Now().UTC()

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		transitioned, err := repo.MarkPaid(ctx, order.ID, paymentID, paidAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking order paid")
		}
		if !transitioned {
			s.logg.Info(ctx, "order already settled, skipping paid transition")
			return nil
		}

		// The outbox row commits with the status flip, so the notifier can
		// only ever see transitions that actually happened. The exists check
		// backstops the status guard against a duplicate row per order.
		items := make([]payloads.LineItem, 0, len(order.Items))
		for _, item := range order.Items {
			items = append(items, payloads.LineItem{
				ProductID:      item.ProductID,
				Name:           item.Name,
				UnitPriceCents: item.UnitPriceCents,
				Qty:            item.Qty,
				TotalCents:     item.TotalCents,
			})
		}
		emitErr := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    paidAt,
			Data: payloads.OrderPaidEvent{
				OrderID:         order.ID,
				CustomerEmail:   order.CustomerEmail,
				CustomerName:    order.CustomerName,
				PaymentIntentID: intent.ID,
				PaymentID:       paymentID,
				TotalCents:      order.TotalCents,
				Currency:        string(order.Currency),
				Items:           items,
				PaidAt:          paidAt,
			},
		})
		if emitErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, emitErr, "emitting order paid event")
		}

		s.logg.Info(ctx, "order marked paid")
		return nil
	})
}

func (s *Service) applyFailed(ctx context.Context, intent *stripe.PaymentIntent) error {
	ctx = s.logg.WithIntentID(ctx, intent.ID)

	order, err := s.orderRepo.FindByPaymentIntentID(ctx, intent.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(ctx, "payment failed for unknown order")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order for intent")
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	failedAt := time.Now().UTC()

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		transitioned, err := repo.MarkFailed(ctx, order.ID, failedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking order failed")
		}
		if !transitioned {
			s.logg.Info(ctx, "order already settled, skipping failed transition")
			return nil
		}

		emitErr := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    failedAt,
			Data: payloads.OrderPaymentFailedEvent{
				OrderID:         order.ID,
				CustomerEmail:   order.CustomerEmail,
				PaymentIntentID: intent.ID,
				FailureMessage:  failureMessage(intent),
				FailedAt:        failedAt,
			},
		})
		if emitErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, emitErr, "emitting payment failed event")
		}

		s.logg.Info(ctx, "order marked failed")
		return nil
	})
}

func latestChargeID(intent *stripe.PaymentIntent) *string {
	if intent.LatestCharge == nil || intent.LatestCharge.ID == "" {
		return nil
	}
	id := intent.LatestCharge.ID
	return &id
}

func failureMessage(intent *stripe.PaymentIntent) string {
	if intent.LastPaymentError == nil {
		return ""
	}
	return intent.LastPaymentError.Msg
}
