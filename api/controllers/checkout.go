package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mljjcooking/storefront-backend/api/responses"
	"github.com/mljjcooking/storefront-backend/api/validators"
	checkoutsvc "github.com/mljjcooking/storefront-backend/internal/checkout"
	pkgerrors "github.com/mljjcooking/storefront-backend/pkg/errors"
	"github.com/mljjcooking/storefront-backend/pkg/logger"
	"github.com/mljjcooking/storefront-backend/pkg/metrics"
)

type checkoutInitiateRequest struct {
	Items         []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
	CustomerEmail string                `json:"customer_email" validate:"required,email"`
	CustomerName  *string               `json:"customer_name,omitempty"`
}

type checkoutItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=100"`
}

func (r checkoutInitiateRequest) toInput() (checkoutsvc.InitiateInput, error) {
	items := make([]checkoutsvc.CartItem, 0, len(r.Items))
	for _, item := range r.Items {
		id, err := uuid.Parse(strings.TrimSpace(item.ProductID))
		if err != nil {
			return checkoutsvc.InitiateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id").
				WithDetails(map[string]string{"product_id": item.ProductID})
		}
		items = append(items, checkoutsvc.CartItem{ProductID: id, Quantity: item.Quantity})
	}
	return checkoutsvc.InitiateInput{
		Items:         items,
		CustomerEmail: strings.TrimSpace(r.CustomerEmail),
		CustomerName:  r.CustomerName,
	}, nil
}

// CheckoutInitiate reprices the cart, opens the payment hold, and records the
// pending order.
func CheckoutInitiate(svc checkoutsvc.Service, checkoutMetrics *metrics.CheckoutMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		start := time.Now()

		var payload checkoutInitiateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			checkoutMetrics.IncFailure(failureReason(err))
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			checkoutMetrics.IncFailure(failureReason(err))
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Initiate(r.Context(), input)
		if err != nil {
			checkoutMetrics.IncFailure(failureReason(err))
			checkoutMetrics.ObserveDuration("failure", time.Since(start))
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checkoutMetrics.IncSuccess()
		checkoutMetrics.ObserveDuration("success", time.Since(start))
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func failureReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return strings.ToLower(string(typed.Code()))
	}
	return "unknown"
}
