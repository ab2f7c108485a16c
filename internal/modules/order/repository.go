package order

import (
	"context"
	"errors"

	"github.com/retailops/pos-backend/internal/modules/ledger"
)

// ErrDuplicateOrderNumber is returned by CreateOrder when the
// generated order number collides with an existing one. The service
// retries with a fresh number.
var ErrDuplicateOrderNumber = errors.New("duplicate order number")

// Repository defines data access for the order transaction engine.
type Repository interface {
	// GetProductForSale fetches the product state a checkout line
	// needs: price, cost, stock, serialization flag and warranty.
	GetProductForSale(ctx context.Context, productID string) (*SaleProduct, error)

	// GetSerialUnit fetches a serial unit by id.
	GetSerialUnit(ctx context.Context, serialUnitID string) (*SaleSerialUnit, error)

	// GetSerialUnitBySerial fetches a serial unit by product and
	// serial number.
	GetSerialUnitBySerial(ctx context.Context, productID, serialNumber string) (*SaleSerialUnit, error)

	// CreateOrder commits the whole sale in one transaction: for each
	// line a conditional stock decrement (and serial compare-and-set
	// for serialized lines), then order, items, payment and ledger
	// rows. Any failure rolls everything back.
	CreateOrder(ctx context.Context, o *Order, movements []*ledger.StockMovement) error

	// GetOrderByID retrieves an order with items and payment.
	GetOrderByID(ctx context.Context, id string) (*Order, error)

	// ListOrders returns orders matching the filter, newest first.
	ListOrders(ctx context.Context, f ListFilter) ([]*Order, error)

	// UpdateStatus advances an order to a new lifecycle status.
	UpdateStatus(ctx context.Context, id string, status OrderStatus) error
}
