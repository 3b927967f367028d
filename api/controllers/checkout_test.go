package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	checkoutsvc "github.com/mljjcooking/storefront-backend/internal/checkout"
	pkgerrors "github.com/mljjcooking/storefront-backend/pkg/errors"
)

func TestCheckoutInitiate(t *testing.T) {
	logg := testControllerLogger()
	productID := uuid.New()

	body := func(payload any) *bytes.Reader {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		return bytes.NewReader(raw)
	}

	t.Run("success returns 201", func(t *testing.T) {
		orderID := uuid.New()
		stub := &stubCheckoutService{
			result: &checkoutsvc.InitiateResult{
				ClientSecret: "pi_123_secret_abc",
				OrderID:      orderID,
				TotalAmount:  4900,
			},
		}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/initiate", body(map[string]any{
			"items":          []map[string]any{{"product_id": productID.String(), "quantity": 2}},
			"customer_email": "jane@example.com",
		}))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		CheckoutInitiate(stub, nil, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
		}
		if stub.lastInput.CustomerEmail != "jane@example.com" {
			t.Fatalf("unexpected email %q", stub.lastInput.CustomerEmail)
		}
		if len(stub.lastInput.Items) != 1 || stub.lastInput.Items[0].Quantity != 2 {
			t.Fatalf("unexpected items %+v", stub.lastInput.Items)
		}

		var envelope struct {
			Data checkoutsvc.InitiateResult `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if envelope.Data.ClientSecret != "pi_123_secret_abc" {
			t.Fatalf("unexpected client secret %q", envelope.Data.ClientSecret)
		}
		if envelope.Data.OrderID != orderID {
			t.Fatalf("unexpected order id %s", envelope.Data.OrderID)
		}
	})

	t.Run("missing email rejected", func(t *testing.T) {
		stub := &stubCheckoutService{}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/initiate", body(map[string]any{
			"items": []map[string]any{{"product_id": productID.String(), "quantity": 1}},
		}))
		rec := httptest.NewRecorder()
		CheckoutInitiate(stub, nil, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
		}
		if stub.calls != 0 {
			t.Fatalf("service should not be invoked on validation failure")
		}
	})

	t.Run("oversized quantity rejected", func(t *testing.T) {
		stub := &stubCheckoutService{}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/initiate", body(map[string]any{
			"items":          []map[string]any{{"product_id": productID.String(), "quantity": 1<<62 + 1}},
			"customer_email": "jane@example.com",
		}))
		rec := httptest.NewRecorder()
		CheckoutInitiate(stub, nil, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
		}
		if stub.calls != 0 {
			t.Fatalf("service should not be invoked on validation failure")
		}
	})

	t.Run("bad product id rejected", func(t *testing.T) {
		stub := &stubCheckoutService{}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/initiate", body(map[string]any{
			"items":          []map[string]any{{"product_id": "not-a-uuid", "quantity": 1}},
			"customer_email": "jane@example.com",
		}))
		rec := httptest.NewRecorder()
		CheckoutInitiate(stub, nil, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("service validation error propagates", func(t *testing.T) {
		stub := &stubCheckoutService{
			err: pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("some items are unavailable: %s", productID)),
		}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/initiate", body(map[string]any{
			"items":          []map[string]any{{"product_id": productID.String(), "quantity": 1}},
			"customer_email": "jane@example.com",
		}))
		rec := httptest.NewRecorder()
		CheckoutInitiate(stub, nil, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("gateway outage maps to 503", func(t *testing.T) {
		stub := &stubCheckoutService{
			err: pkgerrors.New(pkgerrors.CodeDependency, "payment provider unavailable"),
		}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/initiate", body(map[string]any{
			"items":          []map[string]any{{"product_id": productID.String(), "quantity": 1}},
			"customer_email": "jane@example.com",
		}))
		rec := httptest.NewRecorder()
		CheckoutInitiate(stub, nil, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})
}

type stubCheckoutService struct {
	result    *checkoutsvc.InitiateResult
	err       error
	calls     int
	lastInput checkoutsvc.InitiateInput
}

func (s *stubCheckoutService) Initiate(ctx context.Context, input checkoutsvc.InitiateInput) (*checkoutsvc.InitiateResult, error) {
	s.calls++
	s.lastInput = input
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}
