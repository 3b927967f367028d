package payments

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/mljjcooking/storefront-backend/pkg/errors"
	"github.com/mljjcooking/storefront-backend/pkg/logger"
	pkgstripe "github.com/mljjcooking/storefront-backend/pkg/stripe"
)

// Intent is the provider-agnostic view of an authorization hold.
type Intent struct {
	ID           string
	ClientSecret string
	AmountCents  int64
	Currency     string
}

// CreateIntentInput carries everything the gateway needs to open an intent.
type CreateIntentInput struct {
	AmountCents  int64
	Currency     string
	ReceiptEmail string
	Metadata     map[string]string
}

// Gateway opens payment authorization holds with the payment provider.
type Gateway interface {
	CreateIntent(ctx context.Context, input CreateIntentInput) (*Intent, error)
}

type intentAPI interface {
	Create(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error)
}

type gateway struct {
	intents intentAPI
	logg    *logger.Logger
}

// NewGateway wraps the Stripe client behind the Gateway interface.
func NewGateway(client *pkgstripe.Client, logg *logger.Logger) (Gateway, error) {
	if client == nil || client.API() == nil {
		return nil, errors.New("stripe client is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &gateway{intents: client.API().V1PaymentIntents, logg: logg}, nil
}

func newGatewayWithAPI(intents intentAPI, logg *logger.Logger) Gateway {
	return &gateway{intents: intents, logg: logg}
}

func (g *gateway) CreateIntent(ctx context.Context, input CreateIntentInput) (*Intent, error) {
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.Currency == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency is required")
	}

	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(input.AmountCents),
		Currency: stripe.String(input.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if input.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(input.ReceiptEmail)
	}
	if len(input.Metadata) > 0 {
		params.Metadata = input.Metadata
	}

	intent, err := g.intents.Create(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating payment intent")
	}
	if intent.ClientSecret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment intent missing client secret")
	}

	logCtx := g.logg.WithIntentID(ctx, intent.ID)
	g.logg.Info(logCtx, "payment intent created")

	return &Intent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		AmountCents:  intent.Amount,
		Currency:     string(intent.Currency),
	}, nil
}
