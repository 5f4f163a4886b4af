package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/database"
	apperrors "github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/errors"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/domain"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/repository"
)

const couponColumns = `id, code, description, discount_type, discount_value,
	min_order_amount, max_discount_amount, usage_limit, used_count,
	valid_from, valid_until, is_active, created_at, updated_at`

// CouponRepository implements repository.CouponRepository using PostgreSQL.
type CouponRepository struct {
	pool database.DBTX
}

// NewCouponRepository creates a PostgreSQL-backed coupon repository.
func NewCouponRepository(pool database.DBTX) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// Create inserts a new coupon.
func (r *CouponRepository) Create(ctx context.Context, c *domain.Coupon) (err error) {
	query := `
		INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	ctx, end := database.TraceQuery(ctx, "CreateCoupon", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		c.ID,
		c.Code,
		c.Description,
		c.DiscountType,
		c.DiscountValue,
		c.MinOrderAmount,
		c.MaxDiscountAmount,
		usageLimitArg(c.UsageLimit),
		c.UsedCount,
		c.ValidFrom,
		c.ValidUntil,
		c.IsActive,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("coupon", "code", c.Code)
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

// GetByCode retrieves a coupon by code.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (c *domain.Coupon, err error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	ctx, end := database.TraceQuery(ctx, "GetCouponByCode", query)
	defer func() { end(err) }()

	c, err = scanCoupon(r.pool.QueryRow(ctx, query, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("coupon", code)
	}
	return c, err
}

// List returns coupons newest first with the total count.
func (r *CouponRepository) List(ctx context.Context, filter repository.CouponFilter) ([]domain.Coupon, int, error) {
	query := `
		SELECT ` + couponColumns + `, count(*) OVER() AS total_count
		FROM coupons
		WHERE ($1::boolean IS NULL OR is_active = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, filter.Active, filter.Page.PerPage, filter.Page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	coupons := []domain.Coupon{}
	total := 0
	for rows.Next() {
		c, err := scanCoupon(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		coupons = append(coupons, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate coupon rows: %w", err)
	}
	return coupons, total, nil
}

// SetActive switches a coupon on or off.
func (r *CouponRepository) SetActive(ctx context.Context, code string, active bool) (*domain.Coupon, error) {
	query := `
		UPDATE coupons SET is_active = $1, updated_at = $2
		WHERE code = $3
		RETURNING ` + couponColumns

	c, err := scanCoupon(r.pool.QueryRow(ctx, query, active, time.Now().UTC(), code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("coupon", code)
	}
	return c, err
}

// scanCoupon reads one coupon row. extra receives trailing columns such as
// a window count.
func scanCoupon(row pgx.Row, extra ...any) (*domain.Coupon, error) {
	var (
		c          domain.Coupon
		usageLimit pgtype.Int4
	)
	dest := []any{
		&c.ID,
		&c.Code,
		&c.Description,
		&c.DiscountType,
		&c.DiscountValue,
		&c.MinOrderAmount,
		&c.MaxDiscountAmount,
		&usageLimit,
		&c.UsedCount,
		&c.ValidFrom,
		&c.ValidUntil,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan coupon: %w", err)
	}
	if usageLimit.Valid {
		limit := int(usageLimit.Int32)
		c.UsageLimit = &limit
	}
	return &c, nil
}

func usageLimitArg(limit *int) pgtype.Int4 {
	if limit == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: int32(*limit), Valid: true} // #nosec G115 -- bounded by request validation
}
