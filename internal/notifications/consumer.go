package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/mljjcooking/storefront-backend/pkg/config"
	"github.com/mljjcooking/storefront-backend/pkg/enums"
	"github.com/mljjcooking/storefront-backend/pkg/logger"
	"github.com/mljjcooking/storefront-backend/pkg/metrics"
	"github.com/mljjcooking/storefront-backend/pkg/outbox"
	"github.com/mljjcooking/storefront-backend/pkg/outbox/idempotency"
	"github.com/mljjcooking/storefront-backend/pkg/outbox/payloads"
	"github.com/mljjcooking/storefront-backend/pkg/outbox/registry"
)

const orderConfirmationConsumer = "order-confirmations"

// Consumer watches order events and sends confirmation emails for paid orders.
type Consumer struct {
	sender       Sender
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	decoders     *registry.DecoderRegistry
	pickup       config.PickupConfig
	metrics      *metrics.NotifierMetrics
	logg         *logger.Logger
}

// NewConsumer builds the order confirmation consumer.
func NewConsumer(sender Sender, subscription *pubsub.Subscriber, manager *idempotency.Manager, pickup config.PickupConfig, m *metrics.NotifierMetrics, logg *logger.Logger) (*Consumer, error) {
	if sender == nil {
		return nil, fmt.Errorf("email sender required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("orders subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		sender:       sender,
		subscription: subscription,
		idempotency:  manager,
		decoders:     registry.NewOrderEventDecoders(),
		pickup:       pickup,
		metrics:      m,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.ID, msg.Attributes, msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, messageID string, attributes map[string]string, data []byte) processResult {
	eventType := attributes["event_type"]
	fields := map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	if eventType != string(enums.EventOrderPaid) {
		c.logg.Info(logCtx, "skipping non-confirmation event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderConfirmationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	decoded, err := c.decoders.Decode(enums.EventOrderPaid, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, orderConfirmationConsumer, eventID)
		return processResult{nack: true}
	}
	payload, ok := decoded.(*payloads.OrderPaidEvent)
	if !ok {
		c.logg.Error(logCtx, "unexpected payload type", fmt.Errorf("decoded %T", decoded))
		_ = c.idempotency.Delete(ctx, orderConfirmationConsumer, eventID)
		return processResult{nack: true}
	}

	logCtx = c.logg.WithOrderID(logCtx, payload.OrderID.String())

	email := RenderOrderConfirmation(*payload, c.pickup)
	if err := c.sender.Send(ctx, email); err != nil {
		// Confirmation email is best effort: the order is already paid, so a
		// dead mail provider must never bounce the event back into redelivery.
		c.metrics.IncEmail("failed")
		c.logg.Error(logCtx, "confirmation email failed, giving up", err)
		return processResult{ack: true}
	}

	c.metrics.IncEmail("sent")
	c.logg.Info(logCtx, "confirmation email sent")
	return processResult{ack: true}
}
