package ledger

import "context"

// Repository defines read access to the stock ledger. Writes only
// happen through AppendTx inside the owning transaction; there is no
// standalone insert, update or delete path.
type Repository interface {
	// ListByProduct returns movements for a product, newest first.
	ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*StockMovement, error)

	// List returns movements across all products, newest first.
	List(ctx context.Context, limit, offset int) ([]*StockMovement, error)
}
