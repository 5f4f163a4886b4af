package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/domain"
)

// ItemInput is a product line sent by the storefront.
type ItemInput struct {
	ID        string           `json:"id" validate:"required"`
	Name      string           `json:"name" validate:"required"`
	UnitPrice decimal.Decimal  `json:"unitPrice" validate:"gte=0"`
	Quantity  int              `json:"quantity" validate:"gte=1"`
	Image     string           `json:"image,omitempty"`
	MaxStock  int              `json:"maxStock" validate:"gte=0"`
	WeightKg  *decimal.Decimal `json:"weightKg,omitempty"`
	Weight    string           `json:"weight,omitempty"`
	Color     string           `json:"color,omitempty"`
}

// CartItem converts the input into a domain line.
func (in ItemInput) CartItem() domain.CartItem {
	item := domain.CartItem{
		ID:        strings.TrimSpace(in.ID),
		Name:      strings.TrimSpace(in.Name),
		UnitPrice: in.UnitPrice,
		Quantity:  in.Quantity,
		Image:     in.Image,
		MaxStock:  in.MaxStock,
		Weight:    strings.TrimSpace(in.Weight),
		Color:     in.Color,
	}
	if in.WeightKg != nil && in.WeightKg.IsPositive() {
		w := *in.WeightKg
		item.WeightKg = &w
	}
	return item
}

// precisionProblems lists amounts finer than what orders can store, keyed
// by field name under prefix.
func (in ItemInput) precisionProblems(prefix string) map[string]string {
	problems := make(map[string]string)
	if !domain.FitsScale(in.UnitPrice, domain.MoneyScale) {
		problems[prefix+"unitPrice"] = fmt.Sprintf("must have at most %d decimal places", domain.MoneyScale)
	}
	if in.WeightKg != nil && !domain.FitsScale(*in.WeightKg, domain.WeightScale) {
		problems[prefix+"weightKg"] = fmt.Sprintf("must have at most %d decimal places", domain.WeightScale)
	}
	return problems
}
