package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DeliveryTier is a base fee plus the weight it covers.
type DeliveryTier struct {
	BaseFee     decimal.Decimal
	AllowanceKg decimal.Decimal
}

// Delivery fee tiers, in taka.
var (
	DhakaCityTier = DeliveryTier{BaseFee: decimal.NewFromInt(80), AllowanceKg: decimal.NewFromInt(2)}
	OutsideTier   = DeliveryTier{BaseFee: decimal.NewFromInt(130), AllowanceKg: decimal.NewFromInt(1)}

	// OverageRate is charged per started kilogram above the allowance.
	OverageRate = decimal.NewFromInt(20)
)

// TierFor picks the tier for district. Only "dhaka city" (any case) gets
// the city rate.
func TierFor(district string) DeliveryTier {
	if strings.EqualFold(strings.TrimSpace(district), "dhaka city") {
		return DhakaCityTier
	}
	return OutsideTier
}

// ComputeDeliveryFee returns the delivery fee for a parcel of totalWeightKg
// sent to district.
func ComputeDeliveryFee(district string, totalWeightKg decimal.Decimal, freeDelivery bool) decimal.Decimal {
	if freeDelivery {
		return decimal.Zero
	}
	tier := TierFor(district)
	extra := decimal.Max(decimal.Zero, totalWeightKg.Sub(tier.AllowanceKg)).Ceil()
	return tier.BaseFee.Add(extra.Mul(OverageRate))
}
