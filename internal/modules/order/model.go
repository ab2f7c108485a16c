package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of an order. Orders are
// born COMPLETED at checkout; later transitions never re-run stock
// logic.
type OrderStatus string

const (
	StatusCompleted OrderStatus = "COMPLETED"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// PaymentMethod indicates how the sale was settled. Payments are
// recorded as already settled; no gateway is involved.
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "CASH"
	PaymentMobileMoney PaymentMethod = "MOBILE_MONEY"
	PaymentCard        PaymentMethod = "CARD"
)

// Order is one committed sale.
type Order struct {
	ID             uuid.UUID       `json:"id"`
	OrderNumber    string          `json:"order_number"`
	CustomerID     *uuid.UUID      `json:"customer_id,omitempty"` // nil for walk-in sales
	AgentID        uuid.UUID       `json:"agent_id"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Status         OrderStatus     `json:"status"`
	Items          []*OrderItem    `json:"items,omitempty"`
	Payment        *Payment        `json:"payment,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// OrderItem is a financial snapshot of one sold line. It is immutable
// after creation; later product price edits must not drift it.
type OrderItem struct {
	ID             uuid.UUID           `json:"id"`
	OrderID        uuid.UUID           `json:"order_id"`
	ProductID      uuid.UUID           `json:"product_id"`
	Quantity       int                 `json:"quantity"`
	UnitPrice      decimal.Decimal     `json:"unit_price"`
	CostPrice      decimal.NullDecimal `json:"cost_price,omitempty"`
	DiscountAmount decimal.Decimal     `json:"discount_amount"`
	SerialUnitID   *uuid.UUID          `json:"serial_unit_id,omitempty"`
	SerialNumber   string              `json:"serial_number,omitempty"`
	WarrantyExpiry *time.Time          `json:"warranty_expiry,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// Payment is the 1:1 settlement record created atomically with its
// order.
type Payment struct {
	ID             uuid.UUID       `json:"id"`
	OrderID        uuid.UUID       `json:"order_id"`
	Method         PaymentMethod   `json:"method"`
	Amount         decimal.Decimal `json:"amount"`
	AmountTendered decimal.Decimal `json:"amount_tendered"`
	ChangeAmount   decimal.Decimal `json:"change_amount"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
}

// CartLine is one requested line in a checkout.
type CartLine struct {
	ProductID      string           `json:"productId"`
	Quantity       int              `json:"quantity"`
	SerialItemID   string           `json:"serialItemId,omitempty"`
	SerialNumber   string           `json:"serialNumber,omitempty"`
	DiscountAmount *decimal.Decimal `json:"discountAmount,omitempty"`
}

// CreateOrderRequest is the checkout payload. An explicit
// discountAmount takes precedence over discountId, which takes
// precedence over couponCode.
type CreateOrderRequest struct {
	Items          []CartLine       `json:"items"`
	PaymentMethod  string           `json:"paymentMethod"`
	CustomerID     string           `json:"customerId,omitempty"`
	AmountTendered *decimal.Decimal `json:"amountTendered,omitempty"`
	DiscountID     string           `json:"discountId,omitempty"`
	DiscountAmount *decimal.Decimal `json:"discountAmount,omitempty"`
	CouponCode     string           `json:"couponCode,omitempty"`
}

// UpdateStatusRequest advances an order's lifecycle status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// SaleProduct is the slice of product state the checkout needs.
type SaleProduct struct {
	ID             uuid.UUID
	Name           string
	Price          decimal.Decimal
	CostPrice      decimal.NullDecimal
	StockQuantity  int
	IsSerialized   bool
	WarrantyMonths int
}

// SaleSerialUnit is the slice of serial-unit state the checkout needs.
type SaleSerialUnit struct {
	ID           uuid.UUID
	ProductID    uuid.UUID
	SerialNumber string
	Status       string
}

// ListFilter scopes order listings by role.
type ListFilter struct {
	CustomerID string
	AgentID    string
	Status     string
	Limit      int
	Offset     int
}
