package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/vastralabs/vastra-backend/pkg/enums"
	"github.com/vastralabs/vastra-backend/pkg/logger"
	"github.com/vastralabs/vastra-backend/pkg/mailer"
	"github.com/vastralabs/vastra-backend/pkg/outbox"
	"github.com/vastralabs/vastra-backend/pkg/outbox/idempotency"
	"github.com/vastralabs/vastra-backend/pkg/outbox/payloads"
)

const orderConfirmationConsumer = "order-confirmations"

// Consumer watches order events and sends confirmation emails.
type Consumer struct {
	mail         mailer.Mailer
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds an order confirmation consumer.
func NewConsumer(mail mailer.Mailer, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if mail == nil {
		return nil, fmt.Errorf("mailer required")
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
		mail:         mail,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
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

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventOrderCreated) {
		c.logg.Debug(logCtx, "skipping non order-created event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
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

	var payload payloads.OrderCreatedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, orderConfirmationConsumer, eventID)
		return processResult{nack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"order_number":   payload.OrderNumber,
		"customer_email": payload.CustomerEmail,
	})

	if err := c.send(ctx, payload); err != nil {
		c.logg.Error(logCtx, "sending order confirmation failed", err)
		_ = c.idempotency.Delete(ctx, orderConfirmationConsumer, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "order confirmation sent")
	return processResult{ack: true}
}

func (c *Consumer) send(ctx context.Context, payload payloads.OrderCreatedEvent) error {
	data := mailer.OrderConfirmationData{
		To:            payload.CustomerEmail,
		CustomerName:  payload.CustomerName,
		OrderNumber:   payload.OrderNumber,
		ItemCount:     payload.ItemCount,
		Subtotal:      "₹" + payload.Subtotal.StringFixed(2),
		DiscountTotal: "₹" + payload.DiscountTotal.StringFixed(2),
		Total:         "₹" + payload.Total.StringFixed(2),
	}
	if payload.CouponCode != nil {
		data.CouponCode = *payload.CouponCode
	}
	return c.mail.SendOrderConfirmation(ctx, data)
}
