package returns

import "context"

// Repository defines data access for the return transaction engine.
type Repository interface {
	// CreateReturn commits the whole return in one transaction: it
	// validates each requested line against the order's items and the
	// cumulative quantity already returned, reverses stock and serial
	// allocations, appends RETURN ledger entries and persists the
	// return with its items. Refund amounts are computed inside the
	// transaction from the order-item price snapshots. Any failure
	// rolls everything back.
	CreateReturn(ctx context.Context, ret *Return, lines []ReturnLine) error

	// GetReturnByID retrieves a return with its items.
	GetReturnByID(ctx context.Context, id string) (*Return, error)

	// ListReturns returns recent returns, newest first.
	ListReturns(ctx context.Context, limit, offset int) ([]*Return, error)
}
