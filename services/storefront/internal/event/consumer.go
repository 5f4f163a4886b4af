package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/kafka"
)

// Topics consumed by the storefront.
var (
	TopicPaymentCompleted   = pkgkafka.Topic("payment", "completed")
	TopicFulfillmentUpdated = pkgkafka.Topic("fulfillment", "updated")
)

// OrderUpdater is the part of the order service the consumer drives.
type OrderUpdater interface {
	MarkPaid(ctx context.Context, orderID string) error
	ApplyFulfillmentStatus(ctx context.Context, orderID, status string) error
}

// PaymentCompletedData is the expected payload of payment.completed.
type PaymentCompletedData struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Method    string `json:"method"`
}

// FulfillmentUpdatedData is the expected payload of fulfillment.updated.
type FulfillmentUpdatedData struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// Consumer turns payment and fulfillment events into order changes.
type Consumer struct {
	orders OrderUpdater
	logger *slog.Logger
}

// NewConsumer creates a consumer backed by orders.
func NewConsumer(orders OrderUpdater, logger *slog.Logger) *Consumer {
	return &Consumer{orders: orders, logger: logger}
}

// HandlePaymentCompleted marks the order paid.
func (c *Consumer) HandlePaymentCompleted(ctx context.Context, event *pkgkafka.Event) error {
	var data PaymentCompletedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal payment.completed data: %w", err)
	}
	if data.OrderID == "" {
		data.OrderID = event.AggregateID
	}
	if data.OrderID == "" {
		return fmt.Errorf("payment.completed event %s carries no order id", event.EventID)
	}

	c.logger.InfoContext(ctx, "processing payment.completed event",
		slog.String("order_id", data.OrderID),
		slog.String("payment_id", data.PaymentID),
	)

	if err := c.orders.MarkPaid(ctx, data.OrderID); err != nil {
		return fmt.Errorf("mark order %s paid: %w", data.OrderID, err)
	}
	return nil
}

// HandleFulfillmentUpdated moves the order along its status flow.
func (c *Consumer) HandleFulfillmentUpdated(ctx context.Context, event *pkgkafka.Event) error {
	var data FulfillmentUpdatedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal fulfillment.updated data: %w", err)
	}
	if data.OrderID == "" || data.Status == "" {
		return fmt.Errorf("fulfillment.updated event %s needs order_id and status", event.EventID)
	}

	c.logger.InfoContext(ctx, "processing fulfillment.updated event",
		slog.String("order_id", data.OrderID),
		slog.String("status", data.Status),
	)

	if err := c.orders.ApplyFulfillmentStatus(ctx, data.OrderID, data.Status); err != nil {
		return fmt.Errorf("apply status %s to order %s: %w", data.Status, data.OrderID, err)
	}
	return nil
}
