package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/database"
	apperrors "github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/errors"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/domain"
)

// PlacementRepository implements repository.PlacementRepository.
type PlacementRepository struct {
	pool database.DBTX
}

// NewPlacementRepository creates a PostgreSQL-backed placement repository.
func NewPlacementRepository(pool database.DBTX) *PlacementRepository {
	return &PlacementRepository{pool: pool}
}

// PlaceOrder writes the order, its items, the invoice and the coupon
// redemption in a single transaction.
func (r *PlacementRepository) PlaceOrder(ctx context.Context, o *domain.Order, inv *domain.Invoice, redemption *domain.CouponRedemption) (err error) {
	ctx, end := database.TraceQuery(ctx, "PlaceOrder", "INSERT INTO orders, order_items, invoices, coupon_redemptions")
	defer func() { end(err) }()

	customerJSON, err := json.Marshal(o.CustomerInfo)
	if err != nil {
		return fmt.Errorf("marshal customer info: %w", err)
	}
	shippingJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}
	itemsJSON, err := json.Marshal(inv.Items)
	if err != nil {
		return fmt.Errorf("marshal invoice items: %w", err)
	}

	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (
				id, user_id, order_number, status, payment_method, payment_status,
				customer_info, shipping_address, subtotal, discount, discount_code,
				delivery_fee, total, total_weight, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			o.ID, o.UserID, o.OrderNumber, o.Status, o.PaymentMethod, o.PaymentStatus,
			customerJSON, shippingJSON, o.Subtotal, o.Discount, o.DiscountCode,
			o.DeliveryFee, o.Total, o.TotalWeight, o.CreatedAt, o.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i, item := range o.Items {
			_, err := tx.Exec(ctx, `
				INSERT INTO order_items (
					id, order_id, position, product_id, name, unit_price, quantity,
					image, max_stock, weight_kg, weight, color
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				uuid.NewString(), o.ID, i, item.ID, item.Name, item.UnitPrice, item.Quantity,
				item.Image, item.MaxStock, nullWeight(item.WeightKg), item.Weight, item.Color,
			)
			if err != nil {
				return fmt.Errorf("insert order item %s: %w", item.ID, err)
			}
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO invoices (
				id, invoice_number, order_id, user_id, customer_info, items,
				subtotal, discount, discount_code, delivery_fee, total,
				payment_method, payment_status, order_date
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			inv.ID, inv.InvoiceNumber, inv.OrderID, inv.UserID, customerJSON, itemsJSON,
			inv.Subtotal, inv.Discount, inv.DiscountCode, inv.DeliveryFee, inv.Total,
			inv.PaymentMethod, inv.PaymentStatus, inv.OrderDate,
		)
		if err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}

		if redemption == nil {
			return nil
		}
		return consumeCoupon(ctx, tx, redemption)
	})
}

// consumeCoupon bumps used_count only while the limit allows it, then
// records the redemption. The unique order_id keeps it to one per order.
func consumeCoupon(ctx context.Context, tx pgx.Tx, red *domain.CouponRedemption) error {
	ct, err := tx.Exec(ctx, `
		UPDATE coupons
		SET used_count = used_count + 1, updated_at = $2
		WHERE id = $1 AND is_active AND (usage_limit IS NULL OR used_count < usage_limit)`,
		red.CouponID, red.RedeemedAt,
	)
	if err != nil {
		return fmt.Errorf("consume coupon: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.CouponRejected(domain.RejectExhausted)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO coupon_redemptions (id, coupon_id, order_id, user_id, discount_amount, redeemed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		red.ID, red.CouponID, red.OrderID, red.UserID, red.DiscountAmount, red.RedeemedAt,
	)
	if err != nil {
		return fmt.Errorf("insert coupon redemption: %w", err)
	}
	return nil
}

func nullWeight(w *decimal.Decimal) decimal.NullDecimal {
	if w == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*w)
}
