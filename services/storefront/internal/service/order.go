package service

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/errors"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/pagination"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/domain"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/event"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/repository"
)

// OrderService reads orders and invoices and applies status changes.
type OrderService struct {
	orders   repository.OrderRepository
	invoices repository.InvoiceRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewOrderService creates an order service.
func NewOrderService(orders repository.OrderRepository, invoices repository.InvoiceRepository, producer *event.Producer, logger *slog.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		invoices: invoices,
		producer: producer,
		logger:   logger,
	}
}

// GetOrder returns an order by id.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("order id is required")
	}
	return s.orders.GetByID(ctx, id)
}

// ListUserOrders returns a page of the user's orders, newest first.
func (s *OrderService) ListUserOrders(ctx context.Context, userID string, page pagination.Params) ([]domain.Order, int, error) {
	if userID == "" {
		return nil, 0, apperrors.InvalidInput("user id is required")
	}
	orders, total, err := s.orders.ListByUser(ctx, userID, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders for user %s: %w", userID, err)
	}
	return orders, total, nil
}

// GetInvoice returns an invoice exactly as it was written.
func (s *OrderService) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("invoice id is required")
	}
	return s.invoices.GetByID(ctx, id)
}

// GetInvoiceByOrder returns the invoice written with an order.
func (s *OrderService) GetInvoiceByOrder(ctx context.Context, orderID string) (*domain.Invoice, error) {
	if orderID == "" {
		return nil, apperrors.InvalidInput("order id is required")
	}
	return s.invoices.GetByOrderID(ctx, orderID)
}

// UpdateStatus moves an order to target. Repeating the current status is a
// no-op; any move outside the allowed flow is rejected.
func (s *OrderService) UpdateStatus(ctx context.Context, id, target string) (*domain.Order, error) {
	if !domain.IsValidStatus(target) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown order status %q", target))
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == target {
		return order, nil
	}
	if !order.CanTransitionTo(target) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("order %s cannot move from %s to %s", order.OrderNumber, order.Status, target))
	}

	previous := order.Status
	if err := s.orders.UpdateStatus(ctx, order.ID, previous, target); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	order.Status = target

	s.publishStatusChanged(ctx, order, previous)
	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", order.ID),
		slog.String("from", previous),
		slog.String("to", target),
	)
	return order, nil
}

// ApplyFulfillmentStatus is UpdateStatus for event consumers.
func (s *OrderService) ApplyFulfillmentStatus(ctx context.Context, id, status string) error {
	_, err := s.UpdateStatus(ctx, id, status)
	return err
}

// MarkPaid records a completed payment. A pending order starts
// processing. Marking a paid order again does nothing.
func (s *OrderService) MarkPaid(ctx context.Context, id string) error {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if order.PaymentStatus == domain.PaymentStatusPaid {
		s.logger.DebugContext(ctx, "order already paid", slog.String("order_id", id))
		return nil
	}
	if order.Status == domain.OrderStatusCancelled {
		return apperrors.Conflict(fmt.Sprintf("order %s was cancelled before payment completed", order.OrderNumber))
	}

	previous := order.Status
	next := previous
	if previous == domain.OrderStatusPending {
		next = domain.OrderStatusProcessing
	}

	if err := s.orders.MarkPaid(ctx, order.ID, next); err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	order.PaymentStatus = domain.PaymentStatusPaid
	order.Status = next

	if next != previous {
		s.publishStatusChanged(ctx, order, previous)
	}
	s.logger.InfoContext(ctx, "order paid",
		slog.String("order_id", order.ID),
		slog.String("status", order.Status),
	)
	return nil
}

func (s *OrderService) publishStatusChanged(ctx context.Context, order *domain.Order, previous string) {
	if err := s.producer.PublishOrderStatusChanged(ctx, order, previous); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
}
