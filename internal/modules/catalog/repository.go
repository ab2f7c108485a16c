package catalog

import (
	"context"

	"github.com/retailops/pos-backend/internal/modules/ledger"
)

// Repository defines data access for products and serial units.
type Repository interface {
	// CreateProduct persists a product and its initial serial units in
	// one transaction.
	CreateProduct(ctx context.Context, p *Product, units []*SerialUnit) error

	// GetProductByID retrieves a single product.
	GetProductByID(ctx context.Context, id string) (*Product, error)

	// ListProducts returns the catalog, newest first.
	ListProducts(ctx context.Context) ([]*Product, error)

	// UpdateProduct saves edited product fields.
	UpdateProduct(ctx context.Context, p *Product) error

	// DeleteProduct removes a product that no historical order
	// references. Referenced products fail with a conflict.
	DeleteProduct(ctx context.Context, id string) error

	// Restock increments stock, creates any new serial units and
	// appends the IN ledger entry, all in one transaction.
	Restock(ctx context.Context, productID string, quantity int, units []*SerialUnit, movement *ledger.StockMovement) (*Product, error)

	// ListSerialUnits returns a product's serial units.
	ListSerialUnits(ctx context.Context, productID string) ([]*SerialUnit, error)
}
