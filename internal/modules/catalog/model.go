package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable item. For serialized products stock_quantity is
// a parallel counter kept in sync with the number of AVAILABLE serial
// units; for plain products it is authoritative on its own.
type Product struct {
	ID             uuid.UUID           `json:"id"`
	Name           string              `json:"name"`
	Price          decimal.Decimal     `json:"price"`
	CostPrice      decimal.NullDecimal `json:"cost_price,omitempty"`
	StockQuantity  int                 `json:"stock_quantity"`
	IsSerialized   bool                `json:"is_serialized"`
	WarrantyMonths int                 `json:"warranty_months"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// SerialUnitStatus is the lifecycle state of one tracked physical unit.
type SerialUnitStatus string

const (
	SerialAvailable SerialUnitStatus = "AVAILABLE"
	SerialSold      SerialUnitStatus = "SOLD"
)

// SerialUnit is one physical unit of a serialized product. It is owned
// exclusively by its product; the transition to SOLD happens only
// inside a successful order transaction, and back to AVAILABLE only
// inside a successful return.
type SerialUnit struct {
	ID           uuid.UUID        `json:"id"`
	ProductID    uuid.UUID        `json:"product_id"`
	SerialNumber string           `json:"serial_number"`
	Status       SerialUnitStatus `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
}

// CreateProductRequest is the payload for adding a catalog product.
type CreateProductRequest struct {
	Name           string           `json:"name"`
	Price          decimal.Decimal  `json:"price"`
	CostPrice      *decimal.Decimal `json:"cost_price,omitempty"`
	StockQuantity  int              `json:"stock_quantity"`
	IsSerialized   bool             `json:"is_serialized"`
	WarrantyMonths int              `json:"warranty_months"`
	SerialNumbers  []string         `json:"serial_numbers,omitempty"`
}

// UpdateProductRequest carries partial product edits. Nil fields are
// left untouched.
type UpdateProductRequest struct {
	Name           *string          `json:"name,omitempty"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	CostPrice      *decimal.Decimal `json:"cost_price,omitempty"`
	WarrantyMonths *int             `json:"warranty_months,omitempty"`
}

// RestockRequest adds stock to a product. Serialized products restock
// by serial number; plain products by quantity.
type RestockRequest struct {
	Quantity      int      `json:"quantity"`
	SerialNumbers []string `json:"serial_numbers,omitempty"`
	Reason        string   `json:"reason,omitempty"`
}
