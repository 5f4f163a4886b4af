package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/database"
	apperrors "github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/errors"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/pagination"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/domain"
)

// orderSelect reads an order with its items aggregated in position order.
const orderSelect = `
	SELECT
		o.id, o.user_id, o.order_number, o.status, o.payment_method, o.payment_status,
		o.customer_info, o.shipping_address, o.subtotal, o.discount, o.discount_code,
		o.delivery_fee, o.total, o.total_weight, o.created_at, o.updated_at,
		COALESCE(
			JSONB_AGG(
				JSONB_BUILD_OBJECT(
					'id', oi.product_id,
					'name', oi.name,
					'unitPrice', oi.unit_price,
					'quantity', oi.quantity,
					'image', oi.image,
					'maxStock', oi.max_stock,
					'weightKg', oi.weight_kg,
					'weight', oi.weight,
					'color', oi.color
				) ORDER BY oi.position
			) FILTER (WHERE oi.id IS NOT NULL),
			'[]'::jsonb
		) AS items`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// GetByID retrieves an order and its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (o *domain.Order, err error) {
	query := orderSelect + `
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		WHERE o.id = $1
		GROUP BY o.id`

	ctx, end := database.TraceQuery(ctx, "GetOrder", query)
	defer func() { end(err) }()

	o, err = scanOrder(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("order", id)
	}
	return o, err
}

// ListByUser returns the user's orders newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, page pagination.Params) (orders []domain.Order, total int, err error) {
	query := orderSelect + `,
		count(*) OVER() AS total_count
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		WHERE o.user_id = $1
		GROUP BY o.id
		ORDER BY o.created_at DESC
		LIMIT $2 OFFSET $3`

	ctx, end := database.TraceQuery(ctx, "ListOrdersByUser", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, userID, page.PerPage, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders = []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, total, nil
}

// UpdateStatus moves the order from one status to another.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, from, to string) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, time.Now().UTC(), id, from,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.Conflict(fmt.Sprintf("order %s is no longer %s", id, from))
	}
	return nil
}

// MarkPaid records payment on the order and its invoice together.
func (r *OrderRepository) MarkPaid(ctx context.Context, id, status string) error {
	now := time.Now().UTC()
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx,
			`UPDATE orders SET payment_status = $1, status = $2, updated_at = $3 WHERE id = $4`,
			domain.PaymentStatusPaid, status, now, id,
		)
		if err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("order", id)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE invoices SET payment_status = $1 WHERE order_id = $2`,
			domain.PaymentStatusPaid, id,
		); err != nil {
			return fmt.Errorf("mark invoice paid: %w", err)
		}
		return nil
	})
}

func scanOrder(row pgx.Row, extra ...any) (*domain.Order, error) {
	var (
		o            domain.Order
		customerJSON []byte
		shippingJSON []byte
		itemsJSON    []byte
	)
	dest := []any{
		&o.ID,
		&o.UserID,
		&o.OrderNumber,
		&o.Status,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&customerJSON,
		&shippingJSON,
		&o.Subtotal,
		&o.Discount,
		&o.DiscountCode,
		&o.DeliveryFee,
		&o.Total,
		&o.TotalWeight,
		&o.CreatedAt,
		&o.UpdatedAt,
		&itemsJSON,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if err := json.Unmarshal(customerJSON, &o.CustomerInfo); err != nil {
		return nil, fmt.Errorf("unmarshal customer info: %w", err)
	}
	if err := json.Unmarshal(shippingJSON, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	o.Items = []domain.CartItem{}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}
	return &o, nil
}
