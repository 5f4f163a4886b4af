package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/errors"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/domain"
)

var invoiceCols = []string{
	"id", "invoice_number", "order_id", "user_id", "customer_info", "items",
	"subtotal", "discount", "discount_code", "delivery_fee", "total",
	"payment_method", "payment_status", "order_date",
}

func invoiceRow(t *testing.T, inv *domain.Invoice) []any {
	t.Helper()
	customer, err := json.Marshal(inv.CustomerInfo)
	require.NoError(t, err)
	items, err := json.Marshal(inv.Items)
	require.NoError(t, err)
	return []any{
		inv.ID, inv.InvoiceNumber, inv.OrderID, inv.UserID, customer, items,
		inv.Subtotal, inv.Discount, inv.DiscountCode, inv.DeliveryFee, inv.Total,
		inv.PaymentMethod, inv.PaymentStatus, inv.OrderDate,
	}
}

func TestInvoiceRepository_GetByID_ReturnsStoredFigures(t *testing.T) {
	mock := newMockPool(t)
	repo := NewInvoiceRepository(mock)

	want := domain.NewInvoice("inv-001", sampleOrder())

	mock.ExpectQuery("SELECT (.+) FROM invoices WHERE id").
		WithArgs("inv-001").
		WillReturnRows(pgxmock.NewRows(invoiceCols).AddRow(invoiceRow(t, want)...))

	got, err := repo.GetByID(context.Background(), "inv-001")
	require.NoError(t, err)
	assert.Equal(t, want.InvoiceNumber, got.InvoiceNumber)
	assert.True(t, want.Subtotal.Equal(got.Subtotal))
	assert.True(t, want.Discount.Equal(got.Discount))
	assert.True(t, want.DeliveryFee.Equal(got.DeliveryFee))
	assert.True(t, want.Total.Equal(got.Total))
	assert.Equal(t, want.CustomerInfo, got.CustomerInfo)
	require.Len(t, got.Items, len(want.Items))
	for i := range want.Items {
		assert.Equal(t, want.Items[i].ID, got.Items[i].ID)
		assert.Equal(t, want.Items[i].Quantity, got.Items[i].Quantity)
		assert.True(t, want.Items[i].UnitPrice.Equal(got.Items[i].UnitPrice))
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepository_GetByOrderID(t *testing.T) {
	mock := newMockPool(t)
	repo := NewInvoiceRepository(mock)

	want := domain.NewInvoice("inv-001", sampleOrder())

	mock.ExpectQuery("SELECT (.+) FROM invoices WHERE order_id").
		WithArgs("ord-001").
		WillReturnRows(pgxmock.NewRows(invoiceCols).AddRow(invoiceRow(t, want)...))

	got, err := repo.GetByOrderID(context.Background(), "ord-001")
	require.NoError(t, err)
	assert.Equal(t, "inv-001", got.ID)
	assert.Equal(t, "ord-001", got.OrderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepository_NotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewInvoiceRepository(mock)

	mock.ExpectQuery("SELECT (.+) FROM invoices WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
