package ledger

import (
	"time"

	"github.com/google/uuid"
)

// MovementType classifies a stock-affecting event.
type MovementType string

const (
	MovementOut    MovementType = "OUT"    // sale
	MovementReturn MovementType = "RETURN" // customer return
	MovementIn     MovementType = "IN"     // restock / manual adjustment
)

// StockMovement is one append-only entry in the stock ledger. Quantity
// is signed: negative for OUT, positive for RETURN and IN. Entries are
// never updated or deleted; they reconcile stock_quantity over time.
type StockMovement struct {
	ID        uuid.UUID    `json:"id"`
	ProductID uuid.UUID    `json:"product_id"`
	Type      MovementType `json:"type"`
	Quantity  int          `json:"quantity"`
	Reason    string       `json:"reason"`
	UserID    uuid.UUID    `json:"user_id"`
	CreatedAt time.Time    `json:"created_at"`
}
