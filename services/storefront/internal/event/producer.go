package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	pkgkafka "github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/kafka"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/domain"
)

// Topics published by the storefront.
var (
	TopicOrderPlaced        = pkgkafka.Topic("order", "placed")
	TopicOrderStatusChanged = pkgkafka.Topic("order", "status_changed")
	TopicCouponRedeemed     = pkgkafka.Topic("coupon", "redeemed")
	TopicCouponCreated      = pkgkafka.Topic("coupon", "created")
)

// Aggregate types.
const (
	AggregateTypeOrder  = "order"
	AggregateTypeCoupon = "coupon"
)

// SourceStorefront identifies events originating here.
const SourceStorefront = "storefront"

// OrderPlacedData is the payload of order.placed.
type OrderPlacedData struct {
	OrderID       string            `json:"order_id"`
	OrderNumber   string            `json:"order_number"`
	UserID        string            `json:"user_id,omitempty"`
	Status        string            `json:"status"`
	PaymentMethod string            `json:"payment_method"`
	Email         string            `json:"email"`
	Items         []OrderPlacedItem `json:"items"`
	Subtotal      decimal.Decimal   `json:"subtotal"`
	Discount      decimal.Decimal   `json:"discount"`
	DiscountCode  string            `json:"discount_code,omitempty"`
	DeliveryFee   decimal.Decimal   `json:"delivery_fee"`
	Total         decimal.Decimal   `json:"total"`
	District      string            `json:"district"`
}

// OrderPlacedItem is one line of an order.placed payload.
type OrderPlacedItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderStatusChangedData is the payload of order.status_changed.
type OrderStatusChangedData struct {
	OrderID       string `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	UserID        string `json:"user_id,omitempty"`
	OldStatus     string `json:"old_status"`
	NewStatus     string `json:"new_status"`
	PaymentStatus string `json:"payment_status"`
}

// CouponRedeemedData is the payload of coupon.redeemed.
type CouponRedeemedData struct {
	CouponID       string          `json:"coupon_id"`
	Code           string          `json:"code"`
	OrderID        string          `json:"order_id"`
	UserID         string          `json:"user_id,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// CouponCreatedData is the payload of coupon.created.
type CouponCreatedData struct {
	CouponID     string          `json:"coupon_id"`
	Code         string          `json:"code"`
	DiscountType string          `json:"discount_type"`
	Value        decimal.Decimal `json:"value"`
}

// Producer publishes storefront domain events.
type Producer struct {
	kafka  pkgkafka.Publisher
	logger *slog.Logger
}

// NewProducer creates an event producer on top of a Kafka publisher.
func NewProducer(kafka pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishOrderPlaced announces a new order.
func (p *Producer) PublishOrderPlaced(ctx context.Context, o *domain.Order) error {
	items := make([]OrderPlacedItem, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderPlacedItem{
			ProductID: it.ID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
	}

	data := OrderPlacedData{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		Email:         o.CustomerInfo.Email,
		Items:         items,
		Subtotal:      o.Subtotal,
		Discount:      o.Discount,
		DiscountCode:  o.DiscountCode,
		DeliveryFee:   o.DeliveryFee,
		Total:         o.Total,
		District:      o.ShippingAddress.District,
	}
	return p.publish(ctx, TopicOrderPlaced, "order.placed", AggregateTypeOrder, o.ID, data)
}

// PublishOrderStatusChanged announces a status transition.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, o *domain.Order, oldStatus string) error {
	data := OrderStatusChangedData{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		OldStatus:     oldStatus,
		NewStatus:     o.Status,
		PaymentStatus: o.PaymentStatus,
	}
	return p.publish(ctx, TopicOrderStatusChanged, "order.status_changed", AggregateTypeOrder, o.ID, data)
}

// PublishCouponRedeemed announces that an order consumed a coupon.
func (p *Producer) PublishCouponRedeemed(ctx context.Context, code string, r *domain.CouponRedemption) error {
	data := CouponRedeemedData{
		CouponID:       r.CouponID,
		Code:           code,
		OrderID:        r.OrderID,
		UserID:         r.UserID,
		DiscountAmount: r.DiscountAmount,
	}
	return p.publish(ctx, TopicCouponRedeemed, "coupon.redeemed", AggregateTypeCoupon, r.CouponID, data)
}

// PublishCouponCreated announces a new coupon.
func (p *Producer) PublishCouponCreated(ctx context.Context, c *domain.Coupon) error {
	data := CouponCreatedData{
		CouponID:     c.ID,
		Code:         c.Code,
		DiscountType: c.DiscountType,
		Value:        c.DiscountValue,
	}
	return p.publish(ctx, TopicCouponCreated, "coupon.created", AggregateTypeCoupon, c.ID, data)
}

func (p *Producer) publish(ctx context.Context, topic, eventType, aggregateType, aggregateID string, data any) error {
	event, err := pkgkafka.NewEvent(ctx, SourceStorefront, eventType, aggregateType, aggregateID, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("event_type", eventType),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
