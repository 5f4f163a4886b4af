package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/database"
	apperrors "github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/errors"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/domain"
)

const invoiceSelect = `
	SELECT id, invoice_number, order_id, user_id, customer_info, items,
		subtotal, discount, discount_code, delivery_fee, total,
		payment_method, payment_status, order_date
	FROM invoices`

// InvoiceRepository implements repository.InvoiceRepository using PostgreSQL.
type InvoiceRepository struct {
	pool database.DBTX
}

// NewInvoiceRepository creates a PostgreSQL-backed invoice repository.
func NewInvoiceRepository(pool database.DBTX) *InvoiceRepository {
	return &InvoiceRepository{pool: pool}
}

// GetByID retrieves an invoice by its ID.
func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	return r.get(ctx, "GetInvoice", invoiceSelect+` WHERE id = $1`, "invoice", id)
}

// GetByOrderID retrieves the invoice written with an order.
func (r *InvoiceRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Invoice, error) {
	return r.get(ctx, "GetInvoiceByOrder", invoiceSelect+` WHERE order_id = $1`, "invoice for order", orderID)
}

func (r *InvoiceRepository) get(ctx context.Context, op, query, resource, key string) (inv *domain.Invoice, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	var (
		out          domain.Invoice
		customerJSON []byte
		itemsJSON    []byte
	)
	err = r.pool.QueryRow(ctx, query, key).Scan(
		&out.ID,
		&out.InvoiceNumber,
		&out.OrderID,
		&out.UserID,
		&customerJSON,
		&itemsJSON,
		&out.Subtotal,
		&out.Discount,
		&out.DiscountCode,
		&out.DeliveryFee,
		&out.Total,
		&out.PaymentMethod,
		&out.PaymentStatus,
		&out.OrderDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound(resource, key)
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}

	if err := json.Unmarshal(customerJSON, &out.CustomerInfo); err != nil {
		return nil, fmt.Errorf("unmarshal customer info: %w", err)
	}
	if err := json.Unmarshal(itemsJSON, &out.Items); err != nil {
		return nil, fmt.Errorf("unmarshal invoice items: %w", err)
	}
	return &out, nil
}
