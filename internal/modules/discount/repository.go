package discount

import "context"

// Repository defines read access to discounts. The transaction engines
// never create or edit them.
type Repository interface {
	// GetByCode looks a discount up by its uppercase code.
	GetByCode(ctx context.Context, code string) (*Discount, error)

	// GetByID looks a discount up by id.
	GetByID(ctx context.Context, id string) (*Discount, error)
}
