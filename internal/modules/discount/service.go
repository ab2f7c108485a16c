package discount

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/retailops/pos-backend/internal/apperr"
)

var oneHundred = decimal.NewFromInt(100)

// Service resolves discount codes into concrete monetary amounts.
type Service interface {
	// Resolve validates the code against the cart total and computes
	// the discount amount.
	Resolve(ctx context.Context, code string, cartTotal decimal.Decimal) (*Resolution, error)
}

type service struct {
	repo Repository
}

// NewService creates a new discount evaluator.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Resolve(ctx context.Context, code string, cartTotal decimal.Decimal) (*Resolution, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", apperr.ErrValidation)
	}

	d, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	amount, err := Compute(d, cartTotal, time.Now())
	if err != nil {
		return nil, err
	}
	return &Resolution{Discount: d, DiscountAmount: amount}, nil
}

// Compute turns a discount into a monetary amount against a cart
// total. It is the single computation shared by the validation
// endpoint and order creation, so both apply identical validity and
// clamping rules. The result is always within [0, cartTotal].
func Compute(d *Discount, cartTotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !d.IsActive {
		return decimal.Zero, fmt.Errorf("discount %s is inactive: %w", d.Code, apperr.ErrNotFound)
	}
	if d.StartDate != nil && now.Before(*d.StartDate) {
		return decimal.Zero, fmt.Errorf("%w: discount %s is not active yet", apperr.ErrValidation, d.Code)
	}
	if d.EndDate != nil && now.After(*d.EndDate) {
		return decimal.Zero, fmt.Errorf("%w: discount %s has expired", apperr.ErrValidation, d.Code)
	}
	if cartTotal.LessThan(d.MinPurchase) {
		return decimal.Zero, fmt.Errorf("%w: cart total below minimum purchase of %s", apperr.ErrValidation, d.MinPurchase)
	}

	var amount decimal.Decimal
	switch d.Type {
	case TypePercentage:
		amount = cartTotal.Mul(d.Value).Div(oneHundred)
		if d.MaxDiscount.Valid && amount.GreaterThan(d.MaxDiscount.Decimal) {
			amount = d.MaxDiscount.Decimal
		}
	case TypeFixedAmount:
		amount = d.Value
	case TypeBOGO:
		// BOGO codes exist in the catalog but have no checkout
		// semantics yet; reject rather than silently apply zero.
		return decimal.Zero, fmt.Errorf("%w: discount type BOGO is not redeemable at checkout", apperr.ErrValidation)
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown discount type %s", apperr.ErrValidation, d.Type)
	}

	return ClampToCart(amount, cartTotal), nil
}

// ClampToCart bounds a discount amount to [0, cartTotal] so a discount
// can never drive an order total negative. Applied to computed coupon
// amounts and to caller-supplied explicit amounts alike.
func ClampToCart(amount, cartTotal decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(cartTotal) {
		return cartTotal
	}
	return amount
}
