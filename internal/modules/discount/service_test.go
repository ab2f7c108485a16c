package discount

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/pos-backend/internal/apperr"
)

type fakeRepo struct {
	byCode map[string]*Discount
}

func (f *fakeRepo) GetByCode(_ context.Context, code string) (*Discount, error) {
	if d, ok := f.byCode[code]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("discount code %s: %w", code, apperr.ErrNotFound)
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*Discount, error) {
	for _, d := range f.byCode {
		if d.ID.String() == id {
			return d, nil
		}
	}
	return nil, fmt.Errorf("discount %s: %w", id, apperr.ErrNotFound)
}

func active(typ Type, value int64) *Discount {
	return &Discount{
		ID:       uuid.New(),
		Code:     "TEST",
		Type:     typ,
		Value:    decimal.NewFromInt(value),
		IsActive: true,
	}
}

func TestCompute(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	tests := []struct {
		name      string
		discount  func() *Discount
		cartTotal int64
		want      int64
		wantErr   error
	}{
		{
			name:      "percentage",
			discount:  func() *Discount { return active(TypePercentage, 10) },
			cartTotal: 20000,
			want:      2000,
		},
		{
			name: "percentage capped at max",
			discount: func() *Discount {
				d := active(TypePercentage, 50)
				d.MaxDiscount = decimal.NewNullDecimal(decimal.NewFromInt(5000))
				return d
			},
			cartTotal: 20000,
			want:      5000,
		},
		{
			name:      "fixed amount",
			discount:  func() *Discount { return active(TypeFixedAmount, 1500) },
			cartTotal: 20000,
			want:      1500,
		},
		{
			name:      "fixed amount clamped to cart",
			discount:  func() *Discount { return active(TypeFixedAmount, 30000) },
			cartTotal: 20000,
			want:      20000,
		},
		{
			name: "inactive",
			discount: func() *Discount {
				d := active(TypePercentage, 10)
				d.IsActive = false
				return d
			},
			cartTotal: 20000,
			wantErr:   apperr.ErrNotFound,
		},
		{
			name: "not started yet",
			discount: func() *Discount {
				d := active(TypePercentage, 10)
				d.StartDate = &future
				return d
			},
			cartTotal: 20000,
			wantErr:   apperr.ErrValidation,
		},
		{
			name: "expired",
			discount: func() *Discount {
				d := active(TypePercentage, 10)
				d.EndDate = &past
				return d
			},
			cartTotal: 20000,
			wantErr:   apperr.ErrValidation,
		},
		{
			name: "inside window",
			discount: func() *Discount {
				d := active(TypePercentage, 10)
				d.StartDate = &past
				d.EndDate = &future
				return d
			},
			cartTotal: 20000,
			want:      2000,
		},
		{
			name: "below minimum purchase",
			discount: func() *Discount {
				d := active(TypePercentage, 10)
				d.MinPurchase = decimal.NewFromInt(50000)
				return d
			},
			cartTotal: 20000,
			wantErr:   apperr.ErrValidation,
		},
		{
			name:      "bogo not redeemable",
			discount:  func() *Discount { return active(TypeBOGO, 1) },
			cartTotal: 20000,
			wantErr:   apperr.ErrValidation,
		},
		{
			name:      "unknown type",
			discount:  func() *Discount { return active(Type("MYSTERY"), 1) },
			cartTotal: 20000,
			wantErr:   apperr.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.discount(), decimal.NewFromInt(tt.cartTotal), now)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.NewFromInt(tt.want)), "got %s want %d", got, tt.want)
		})
	}
}

func TestClampToCart(t *testing.T) {
	cart := decimal.NewFromInt(10000)

	assert.True(t, ClampToCart(decimal.NewFromInt(-5), cart).IsZero())
	assert.True(t, ClampToCart(decimal.NewFromInt(3000), cart).Equal(decimal.NewFromInt(3000)))
	assert.True(t, ClampToCart(decimal.NewFromInt(99999), cart).Equal(cart))
}

func TestResolve(t *testing.T) {
	d := active(TypePercentage, 25)
	d.Code = "SAVE25"
	repo := &fakeRepo{byCode: map[string]*Discount{"SAVE25": d}}
	svc := NewService(repo)

	res, err := svc.Resolve(context.Background(), "save25 ", decimal.NewFromInt(8000))
	require.NoError(t, err)
	assert.Equal(t, d.ID, res.Discount.ID)
	assert.True(t, res.DiscountAmount.Equal(decimal.NewFromInt(2000)))

	_, err = svc.Resolve(context.Background(), "NOPE", decimal.NewFromInt(8000))
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Resolve(context.Background(), "  ", decimal.NewFromInt(8000))
	require.ErrorIs(t, err, apperr.ErrValidation)
}
