package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailops/pos-backend/internal/apperr"
	"github.com/retailops/pos-backend/internal/authn"
	"github.com/retailops/pos-backend/internal/modules/ledger"
)

// Service defines catalog business logic.
type Service interface {
	CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)
	UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (*Product, error)
	DeleteProduct(ctx context.Context, id string) error

	// Restock adds stock and records the IN movement in the ledger.
	Restock(ctx context.Context, id string, req RestockRequest) (*Product, error)

	ListSerialUnits(ctx context.Context, productID string) ([]*SerialUnit, error)
}

type service struct {
	repo Repository
}

// NewService creates a new catalog service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", apperr.ErrValidation)
	}
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must be >= 0", apperr.ErrValidation)
	}
	if req.WarrantyMonths < 0 {
		return nil, fmt.Errorf("%w: warranty_months must be >= 0", apperr.ErrValidation)
	}

	p := &Product{
		ID:             uuid.New(),
		Name:           strings.TrimSpace(req.Name),
		Price:          req.Price,
		StockQuantity:  req.StockQuantity,
		IsSerialized:   req.IsSerialized,
		WarrantyMonths: req.WarrantyMonths,
	}
	if req.CostPrice != nil {
		if req.CostPrice.IsNegative() {
			return nil, fmt.Errorf("%w: cost_price must be >= 0", apperr.ErrValidation)
		}
		if req.Price.LessThan(*req.CostPrice) {
			return nil, fmt.Errorf("%w: price must not be below cost_price", apperr.ErrValidation)
		}
		p.CostPrice = decimal.NewNullDecimal(*req.CostPrice)
	}

	var units []*SerialUnit
	if req.IsSerialized {
		units = buildSerialUnits(p.ID, req.SerialNumbers)
		if len(units) != len(req.SerialNumbers) {
			return nil, fmt.Errorf("%w: serial_numbers must be non-empty and unique", apperr.ErrValidation)
		}
		// The stock counter mirrors the number of available units.
		p.StockQuantity = len(units)
	} else {
		if len(req.SerialNumbers) > 0 {
			return nil, fmt.Errorf("%w: serial_numbers only apply to serialized products", apperr.ErrValidation)
		}
		if req.StockQuantity < 0 {
			return nil, fmt.Errorf("%w: stock_quantity must be >= 0", apperr.ErrValidation)
		}
	}

	if err := s.repo.CreateProduct(ctx, p, units); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetProductByID(ctx, id)
}

func (s *service) ListProducts(ctx context.Context) ([]*Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *service) UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (*Product, error) {
	p, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", apperr.ErrValidation)
		}
		p.Name = name
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, fmt.Errorf("%w: price must be >= 0", apperr.ErrValidation)
		}
		p.Price = *req.Price
	}
	if req.CostPrice != nil {
		if req.CostPrice.IsNegative() {
			return nil, fmt.Errorf("%w: cost_price must be >= 0", apperr.ErrValidation)
		}
		p.CostPrice = decimal.NewNullDecimal(*req.CostPrice)
	}
	if p.CostPrice.Valid && p.Price.LessThan(p.CostPrice.Decimal) {
		return nil, fmt.Errorf("%w: price must not be below cost_price", apperr.ErrValidation)
	}
	if req.WarrantyMonths != nil {
		if *req.WarrantyMonths < 0 {
			return nil, fmt.Errorf("%w: warranty_months must be >= 0", apperr.ErrValidation)
		}
		p.WarrantyMonths = *req.WarrantyMonths
	}

	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) DeleteProduct(ctx context.Context, id string) error {
	return s.repo.DeleteProduct(ctx, id)
}

func (s *service) Restock(ctx context.Context, id string, req RestockRequest) (*Product, error) {
	actor, ok := authn.FromContext(ctx)
	if !ok || !actor.IsStaff() {
		return nil, fmt.Errorf("%w: staff identity required", apperr.ErrValidation)
	}

	p, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	quantity := req.Quantity
	var units []*SerialUnit
	if p.IsSerialized {
		units = buildSerialUnits(p.ID, req.SerialNumbers)
		if len(units) == 0 || len(units) != len(req.SerialNumbers) {
			return nil, fmt.Errorf("%w: serialized restock needs unique serial_numbers", apperr.ErrValidation)
		}
		quantity = len(units)
	} else if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", apperr.ErrValidation)
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "manual restock"
	}

	movement := &ledger.StockMovement{
		ProductID: p.ID,
		Type:      ledger.MovementIn,
		Quantity:  quantity,
		Reason:    reason,
		UserID:    actor.ID,
	}
	return s.repo.Restock(ctx, id, quantity, units, movement)
}

func (s *service) ListSerialUnits(ctx context.Context, productID string) ([]*SerialUnit, error) {
	return s.repo.ListSerialUnits(ctx, productID)
}

// buildSerialUnits trims, de-duplicates and materializes serial units.
// Returns fewer units than inputs when a blank or duplicate serial was
// supplied, which callers treat as a validation failure.
func buildSerialUnits(productID uuid.UUID, serialNumbers []string) []*SerialUnit {
	seen := make(map[string]struct{}, len(serialNumbers))
	units := make([]*SerialUnit, 0, len(serialNumbers))
	for _, sn := range serialNumbers {
		sn = strings.TrimSpace(sn)
		if sn == "" {
			continue
		}
		if _, dup := seen[sn]; dup {
			continue
		}
		seen[sn] = struct{}{}
		units = append(units, &SerialUnit{
			ID:           uuid.New(),
			ProductID:    productID,
			SerialNumber: sn,
			Status:       SerialAvailable,
		})
	}
	return units
}
