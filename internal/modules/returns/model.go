package returns

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// refundNetOfLineDiscount selects the refund policy: when true, a
// returned line refunds the unit price minus its prorated share of the
// original per-line discount; when false the refund is gross unit
// price times quantity. The platform refunds gross.
const refundNetOfLineDiscount = false

// ReturnStatus is the lifecycle state of a return.
type ReturnStatus string

const (
	ReturnCompleted ReturnStatus = "COMPLETED"
)

// Return reverses part of a committed order: stock goes back, serial
// units become available again, and the refund is recorded.
type Return struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"order_id"`
	Reason      string          `json:"reason"`
	TotalRefund decimal.Decimal `json:"total_refund"`
	Status      ReturnStatus    `json:"status"`
	ProcessedBy uuid.UUID       `json:"processed_by"`
	Items       []*ReturnItem   `json:"items,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ReturnItem is one returned line, bound to the original order item.
type ReturnItem struct {
	ID           uuid.UUID       `json:"id"`
	ReturnID     uuid.UUID       `json:"return_id"`
	OrderItemID  uuid.UUID       `json:"order_item_id"`
	Quantity     int             `json:"quantity"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
}

// ReturnLine is one requested line in a return.
type ReturnLine struct {
	OrderItemID string `json:"orderItemId"`
	Quantity    int    `json:"quantity"`
}

// CreateReturnRequest is the payload for processing a return.
type CreateReturnRequest struct {
	OrderID string       `json:"orderId"`
	Reason  string       `json:"reason"`
	Items   []ReturnLine `json:"items"`
}
