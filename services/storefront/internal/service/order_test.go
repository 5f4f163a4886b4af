package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/errors"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/pagination"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/domain"
)

func newTestOrderService(orders *mockOrderRepository, invoices *mockInvoiceRepository, pub *recordingPublisher) *OrderService {
	return NewOrderService(orders, invoices, newTestProducer(pub), newTestLogger())
}

func storedOrder(status, paymentStatus string) *domain.Order {
	return &domain.Order{
		ID:            "order-1",
		UserID:        "user-42",
		OrderNumber:   "ORD-01JRG1Q3Z0ABCDEF0123456789",
		Status:        status,
		PaymentMethod: domain.PaymentMethodBkash,
		PaymentStatus: paymentStatus,
		Total:         dec("1730"),
	}
}

func TestOrderService_UpdateStatus(t *testing.T) {
	tests := []struct {
		name      string
		from      string
		to        string
		wantWrite bool
		wantErr   error
	}{
		{"pending to processing", domain.OrderStatusPending, domain.OrderStatusProcessing, true, nil},
		{"processing to shipped", domain.OrderStatusProcessing, domain.OrderStatusShipped, true, nil},
		{"shipped to delivered", domain.OrderStatusShipped, domain.OrderStatusDelivered, true, nil},
		{"pending to cancelled", domain.OrderStatusPending, domain.OrderStatusCancelled, true, nil},
		{"same status is a no-op", domain.OrderStatusShipped, domain.OrderStatusShipped, false, nil},
		{"cannot skip shipping", domain.OrderStatusPending, domain.OrderStatusDelivered, false, apperrors.ErrInvalidInput},
		{"delivered is final", domain.OrderStatusDelivered, domain.OrderStatusCancelled, false, apperrors.ErrInvalidInput},
		{"cancelled is final", domain.OrderStatusCancelled, domain.OrderStatusProcessing, false, apperrors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := new(mockOrderRepository)
			pub := &recordingPublisher{}
			svc := newTestOrderService(orders, new(mockInvoiceRepository), pub)

			orders.On("GetByID", mock.Anything, "order-1").Return(storedOrder(tt.from, domain.PaymentStatusPending), nil)
			if tt.wantWrite {
				orders.On("UpdateStatus", mock.Anything, "order-1", tt.from, tt.to).Return(nil)
			}

			o, err := svc.UpdateStatus(context.Background(), "order-1", tt.to)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, o.Status)
			if tt.wantWrite {
				assert.Equal(t, []string{"petshop.order.status_changed"}, pub.topics)
			} else {
				assert.Empty(t, pub.topics)
				orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
			orders.AssertExpectations(t)
		})
	}
}

func TestOrderService_UpdateStatus_UnknownStatus(t *testing.T) {
	orders := new(mockOrderRepository)
	svc := newTestOrderService(orders, new(mockInvoiceRepository), &recordingPublisher{})

	_, err := svc.UpdateStatus(context.Background(), "order-1", "Lost")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	orders.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestOrderService_UpdateStatus_LostRace(t *testing.T) {
	orders := new(mockOrderRepository)
	pub := &recordingPublisher{}
	svc := newTestOrderService(orders, new(mockInvoiceRepository), pub)

	orders.On("GetByID", mock.Anything, "order-1").Return(storedOrder(domain.OrderStatusProcessing, domain.PaymentStatusPaid), nil)
	orders.On("UpdateStatus", mock.Anything, "order-1", domain.OrderStatusProcessing, domain.OrderStatusShipped).
		Return(apperrors.Conflict("order status changed concurrently"))

	err := svc.ApplyFulfillmentStatus(context.Background(), "order-1", domain.OrderStatusShipped)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Empty(t, pub.topics)
}

func TestOrderService_UpdateStatus_NotFound(t *testing.T) {
	orders := new(mockOrderRepository)
	svc := newTestOrderService(orders, new(mockInvoiceRepository), &recordingPublisher{})

	orders.On("GetByID", mock.Anything, "missing").Return(nil, apperrors.NotFound("order", "missing"))

	_, err := svc.UpdateStatus(context.Background(), "missing", domain.OrderStatusShipped)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestOrderService_MarkPaid(t *testing.T) {
	tests := []struct {
		name        string
		order       *domain.Order
		wantStatus  string
		wantWrite   bool
		wantPublish bool
		wantErr     error
	}{
		{
			name:        "pending order starts processing",
			order:       storedOrder(domain.OrderStatusPending, domain.PaymentStatusPending),
			wantStatus:  domain.OrderStatusProcessing,
			wantWrite:   true,
			wantPublish: true,
		},
		{
			name:       "processing order keeps its status",
			order:      storedOrder(domain.OrderStatusProcessing, domain.PaymentStatusPending),
			wantStatus: domain.OrderStatusProcessing,
			wantWrite:  true,
		},
		{
			name:  "already paid is a no-op",
			order: storedOrder(domain.OrderStatusProcessing, domain.PaymentStatusPaid),
		},
		{
			name:    "cancelled order conflicts",
			order:   storedOrder(domain.OrderStatusCancelled, domain.PaymentStatusPending),
			wantErr: apperrors.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := new(mockOrderRepository)
			pub := &recordingPublisher{}
			svc := newTestOrderService(orders, new(mockInvoiceRepository), pub)

			orders.On("GetByID", mock.Anything, "order-1").Return(tt.order, nil)
			if tt.wantWrite {
				orders.On("MarkPaid", mock.Anything, "order-1", tt.wantStatus).Return(nil)
			}

			err := svc.MarkPaid(context.Background(), "order-1")
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			} else {
				require.NoError(t, err)
			}
			if !tt.wantWrite {
				orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
			}
			if tt.wantPublish {
				assert.Equal(t, []string{"petshop.order.status_changed"}, pub.topics)
			} else {
				assert.Empty(t, pub.topics)
			}
			orders.AssertExpectations(t)
		})
	}
}

func TestOrderService_MarkPaid_WriteFails(t *testing.T) {
	orders := new(mockOrderRepository)
	svc := newTestOrderService(orders, new(mockInvoiceRepository), &recordingPublisher{})

	orders.On("GetByID", mock.Anything, "order-1").Return(storedOrder(domain.OrderStatusPending, domain.PaymentStatusPending), nil)
	orders.On("MarkPaid", mock.Anything, "order-1", domain.OrderStatusProcessing).Return(errors.New("mark invoice paid: timeout"))

	err := svc.MarkPaid(context.Background(), "order-1")
	assert.ErrorContains(t, err, "mark order paid")
}

func TestOrderService_Reads(t *testing.T) {
	orders := new(mockOrderRepository)
	invoices := new(mockInvoiceRepository)
	svc := newTestOrderService(orders, invoices, &recordingPublisher{})
	ctx := context.Background()

	page := pagination.DefaultParams()
	orders.On("GetByID", mock.Anything, "order-1").Return(storedOrder(domain.OrderStatusPending, domain.PaymentStatusPending), nil)
	orders.On("ListByUser", mock.Anything, "user-42", page).Return([]domain.Order{*storedOrder(domain.OrderStatusPending, domain.PaymentStatusPending)}, 1, nil)
	invoices.On("GetByID", mock.Anything, "inv-1").Return(&domain.Invoice{ID: "inv-1", OrderID: "order-1"}, nil)
	invoices.On("GetByOrderID", mock.Anything, "order-1").Return(&domain.Invoice{ID: "inv-1", OrderID: "order-1"}, nil)

	o, err := svc.GetOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", o.ID)

	list, total, err := svc.ListUserOrders(ctx, "user-42", page)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)

	inv, err := svc.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", inv.OrderID)

	inv, err = svc.GetInvoiceByOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "inv-1", inv.ID)

	_, err = svc.GetOrder(ctx, "")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	_, _, err = svc.ListUserOrders(ctx, "", page)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	_, err = svc.GetInvoice(ctx, "")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	_, err = svc.GetInvoiceByOrder(ctx, "")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestOrderService_ListUserOrders_RepositoryError(t *testing.T) {
	orders := new(mockOrderRepository)
	svc := newTestOrderService(orders, new(mockInvoiceRepository), &recordingPublisher{})

	page := pagination.DefaultParams()
	orders.On("ListByUser", mock.Anything, "user-42", page).Return(nil, 0, errors.New("pool closed"))

	_, _, err := svc.ListUserOrders(context.Background(), "user-42", page)
	assert.ErrorContains(t, err, "pool closed")
}
