package discount

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type is the discount calculation kind.
type Type string

const (
	TypePercentage  Type = "PERCENTAGE"
	TypeFixedAmount Type = "FIXED_AMOUNT"
	TypeBOGO        Type = "BOGO"
)

// Discount is a promotion that can be applied to a cart. Codes are
// stored uppercase and matched case-insensitively. The transaction
// engines only read discounts; editing happens elsewhere.
type Discount struct {
	ID          uuid.UUID           `json:"id"`
	Code        string              `json:"code"`
	Type        Type                `json:"type"`
	Value       decimal.Decimal     `json:"value"`
	MinPurchase decimal.Decimal     `json:"min_purchase"`
	MaxDiscount decimal.NullDecimal `json:"max_discount,omitempty"`
	StartDate   *time.Time          `json:"start_date,omitempty"`
	EndDate     *time.Time          `json:"end_date,omitempty"`
	IsActive    bool                `json:"is_active"`
	CreatedAt   time.Time           `json:"created_at"`
}

// ValidateRequest is the payload for the coupon validation endpoint.
type ValidateRequest struct {
	Code      string          `json:"code"`
	CartTotal decimal.Decimal `json:"cart_total"`
}

// Resolution is a discount resolved against a concrete cart total.
type Resolution struct {
	Discount       *Discount       `json:"discount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}
