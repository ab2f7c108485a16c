package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailops/pos-backend/internal/apperr"
	"github.com/retailops/pos-backend/internal/authn"
	"github.com/retailops/pos-backend/internal/metrics"
	"github.com/retailops/pos-backend/internal/modules/audit"
	"github.com/retailops/pos-backend/internal/modules/discount"
	"github.com/retailops/pos-backend/internal/modules/ledger"
)

// orderNumberAttempts bounds the retry loop on an order-number
// collision; the suffix space makes more than one retry very unlikely.
const orderNumberAttempts = 3

// AuditSink records best-effort audit entries.
type AuditSink interface {
	Record(ctx context.Context, e audit.Entry)
}

// Service defines the order transaction engine.
type Service interface {
	// PlaceOrder converts a cart into a committed sale atomically:
	// stock checks, serial allocation, discount application, totals,
	// and persistence of order, items, payment and ledger entries.
	PlaceOrder(ctx context.Context, req CreateOrderRequest) (*Order, error)

	// GetOrder retrieves an order the acting user is allowed to see.
	GetOrder(ctx context.Context, id string) (*Order, error)

	// ListOrders returns orders scoped to the acting user's role.
	ListOrders(ctx context.Context, status string, limit, offset int) ([]*Order, error)

	// UpdateStatus advances an order's lifecycle without re-running
	// stock logic.
	UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (*Order, error)
}

type service struct {
	repo      Repository
	discounts discount.Repository
	auditor   AuditSink
}

// NewService creates a new order service.
func NewService(repo Repository, discounts discount.Repository, auditor AuditSink) Service {
	return &service{repo: repo, discounts: discounts, auditor: auditor}
}

// validTransitions defines the allowed status state machine.
var validTransitions = map[OrderStatus][]OrderStatus{
	StatusCompleted: {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusDelivered, StatusCancelled},
	StatusDelivered: {},
	StatusCancelled: {},
}

func (s *service) PlaceOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	actor, ok := authn.FromContext(ctx)
	if !ok || !actor.IsStaff() {
		return nil, fmt.Errorf("%w: staff identity required to ring up a sale", apperr.ErrValidation)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one item", apperr.ErrValidation)
	}

	method := PaymentMethod(strings.ToUpper(strings.TrimSpace(req.PaymentMethod)))
	switch method {
	case PaymentCash, PaymentMobileMoney, PaymentCard:
	default:
		return nil, fmt.Errorf("%w: invalid paymentMethod %q (allowed: CASH, MOBILE_MONEY, CARD)", apperr.ErrValidation, req.PaymentMethod)
	}

	var customerID *uuid.UUID
	if req.CustomerID != "" {
		uid, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid customerId", apperr.ErrValidation)
		}
		customerID = &uid
	}

	// ── Build order items: price snapshots, stock checks, serial allocation ──
	now := time.Now()
	items := make([]*OrderItem, 0, len(req.Items))
	subtotal := decimal.Zero

	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be > 0 for product %s", apperr.ErrValidation, line.ProductID)
		}

		p, err := s.repo.GetProductForSale(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		// Advisory read for deterministic first-failure attribution;
		// the conditional decrement inside the transaction is the
		// authoritative check.
		if p.StockQuantity < line.Quantity {
			metrics.StockConflictsTotal.Inc()
			return nil, fmt.Errorf("insufficient stock for %s (have %d, want %d): %w",
				p.Name, p.StockQuantity, line.Quantity, apperr.ErrInsufficientStock)
		}

		lineDiscount := decimal.Zero
		if line.DiscountAmount != nil {
			lineDiscount = *line.DiscountAmount
		}
		gross := p.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		if lineDiscount.IsNegative() || lineDiscount.GreaterThan(gross) {
			return nil, fmt.Errorf("%w: line discount for %s must be within [0, %s]", apperr.ErrValidation, p.Name, gross)
		}

		item := &OrderItem{
			ID:             uuid.New(),
			ProductID:      p.ID,
			Quantity:       line.Quantity,
			UnitPrice:      p.Price,
			CostPrice:      p.CostPrice,
			DiscountAmount: lineDiscount,
		}
		if p.WarrantyMonths > 0 {
			expiry := now.AddDate(0, p.WarrantyMonths, 0)
			item.WarrantyExpiry = &expiry
		}

		if p.IsSerialized {
			// One serial unit per line; a larger quantity would take
			// stock without selling matching units and drift the stock
			// counter away from the AVAILABLE unit count.
			if line.Quantity != 1 {
				return nil, fmt.Errorf("%w: serialized product %s is sold one unit per line", apperr.ErrValidation, p.Name)
			}
			unit, err := s.resolveSerialUnit(ctx, p, line)
			if err != nil {
				return nil, err
			}
			item.SerialUnitID = &unit.ID
			item.SerialNumber = unit.SerialNumber
		} else if line.SerialItemID != "" || line.SerialNumber != "" {
			return nil, fmt.Errorf("%w: product %s is not serialized", apperr.ErrValidation, p.Name)
		}

		subtotal = subtotal.Add(gross.Sub(lineDiscount))
		items = append(items, item)
	}

	// ── Resolve the order-level discount ─────────────────────────────────────
	discountAmount, err := s.resolveOrderDiscount(ctx, req, subtotal, now)
	if err != nil {
		return nil, err
	}

	// Tax is fixed at zero by policy in this flow.
	taxAmount := decimal.Zero
	total := subtotal.Sub(discountAmount)

	tendered := total
	if req.AmountTendered != nil {
		tendered = *req.AmountTendered
		if tendered.LessThan(total) {
			return nil, fmt.Errorf("%w: amountTendered %s is below total %s", apperr.ErrValidation, tendered, total)
		}
	}

	// ── Commit, retrying on an order-number collision ────────────────────────
	var o *Order
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		o = &Order{
			ID:             uuid.New(),
			OrderNumber:    generateOrderNumber(),
			CustomerID:     customerID,
			AgentID:        actor.ID,
			Subtotal:       subtotal,
			DiscountAmount: discountAmount,
			TaxAmount:      taxAmount,
			TotalAmount:    total,
			Status:         StatusCompleted,
			Items:          items,
			Payment: &Payment{
				ID:             uuid.New(),
				Method:         method,
				Amount:         total,
				AmountTendered: tendered,
				ChangeAmount:   tendered.Sub(total),
				Status:         "COMPLETED",
			},
		}

		movements := make([]*ledger.StockMovement, 0, len(items))
		for _, item := range items {
			movements = append(movements, &ledger.StockMovement{
				ProductID: item.ProductID,
				Type:      ledger.MovementOut,
				Quantity:  -item.Quantity,
				Reason:    fmt.Sprintf("sale order %s", o.OrderNumber),
				UserID:    actor.ID,
			})
		}

		err = s.repo.CreateOrder(ctx, o, movements)
		if err == nil {
			break
		}
		if errors.Is(err, ErrDuplicateOrderNumber) {
			continue
		}
		if errors.Is(err, apperr.ErrInsufficientStock) || errors.Is(err, apperr.ErrConflict) {
			metrics.StockConflictsTotal.Inc()
		}
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to allocate order number: %w", err)
	}

	metrics.OrdersCreatedTotal.Inc()
	s.auditor.Record(ctx, audit.Entry{
		Action:     "order_create",
		EntityType: "order",
		EntityID:   o.ID.String(),
		ActorID:    actor.ID,
		Detail:     fmt.Sprintf("number=%s,total=%s,items=%d", o.OrderNumber, o.TotalAmount, len(o.Items)),
	})
	return o, nil
}

func (s *service) resolveSerialUnit(ctx context.Context, p *SaleProduct, line CartLine) (*SaleSerialUnit, error) {
	var (
		unit *SaleSerialUnit
		err  error
	)
	switch {
	case line.SerialItemID != "":
		unit, err = s.repo.GetSerialUnit(ctx, line.SerialItemID)
	case line.SerialNumber != "":
		unit, err = s.repo.GetSerialUnitBySerial(ctx, line.ProductID, line.SerialNumber)
	default:
		return nil, fmt.Errorf("%w: serial unit required for serialized product %s", apperr.ErrValidation, p.Name)
	}
	if err != nil {
		return nil, err
	}
	if unit.ProductID != p.ID {
		return nil, fmt.Errorf("serial unit %s does not belong to product %s: %w", unit.SerialNumber, p.Name, apperr.ErrConflict)
	}
	if unit.Status != string(SerialStatusAvailable) {
		return nil, fmt.Errorf("serial unit %s is not available: %w", unit.SerialNumber, apperr.ErrConflict)
	}
	return unit, nil
}

// resolveOrderDiscount picks the order-level discount: an explicit
// amount wins over discountId, which wins over couponCode. Every path
// runs through the shared clamp so the total can never go negative.
func (s *service) resolveOrderDiscount(ctx context.Context, req CreateOrderRequest, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	switch {
	case req.DiscountAmount != nil:
		return discount.ClampToCart(*req.DiscountAmount, subtotal), nil
	case req.DiscountID != "":
		d, err := s.discounts.GetByID(ctx, req.DiscountID)
		if err != nil {
			return decimal.Zero, err
		}
		return discount.Compute(d, subtotal, now)
	case req.CouponCode != "":
		d, err := s.discounts.GetByCode(ctx, req.CouponCode)
		if err != nil {
			return decimal.Zero, err
		}
		return discount.Compute(d, subtotal, now)
	}
	return decimal.Zero, nil
}

func (s *service) GetOrder(ctx context.Context, id string) (*Order, error) {
	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	actor, ok := authn.FromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: identity required", apperr.ErrValidation)
	}
	switch actor.Role {
	case authn.RoleCustomer:
		if o.CustomerID == nil || *o.CustomerID != actor.ID {
			return nil, fmt.Errorf("order %s: %w", id, apperr.ErrNotFound)
		}
	case authn.RoleSalesAgent:
		if o.AgentID != actor.ID {
			return nil, fmt.Errorf("order %s: %w", id, apperr.ErrNotFound)
		}
	}
	return o, nil
}

func (s *service) ListOrders(ctx context.Context, status string, limit, offset int) ([]*Order, error) {
	actor, ok := authn.FromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: identity required", apperr.ErrValidation)
	}
	f := ListFilter{Status: strings.ToUpper(strings.TrimSpace(status)), Limit: limit, Offset: offset}
	switch actor.Role {
	case authn.RoleCustomer:
		f.CustomerID = actor.ID.String()
	case authn.RoleSalesAgent:
		f.AgentID = actor.ID.String()
	}
	return s.repo.ListOrders(ctx, f)
}

func (s *service) UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (*Order, error) {
	actor, ok := authn.FromContext(ctx)
	if !ok || !actor.IsStaff() {
		return nil, fmt.Errorf("%w: staff identity required", apperr.ErrValidation)
	}

	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	newStatus := OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	allowed := false
	for _, next := range validTransitions[o.Status] {
		if next == newStatus {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: cannot transition order from %s to %s", apperr.ErrValidation, o.Status, newStatus)
	}

	if err := s.repo.UpdateStatus(ctx, id, newStatus); err != nil {
		return nil, err
	}
	o.Status = newStatus

	s.auditor.Record(ctx, audit.Entry{
		Action:     "order_status_update",
		EntityType: "order",
		EntityID:   o.ID.String(),
		ActorID:    actor.ID,
		Detail:     fmt.Sprintf("status=%s", newStatus),
	})
	return o, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

// SerialStatusAvailable mirrors catalog.SerialAvailable without
// importing the catalog package into the engine.
const SerialStatusAvailable = "AVAILABLE"

// generateOrderNumber creates a human-readable order number:
// ORD-YYYYMMDD-XXXX. Uniqueness is enforced by the orders table
// constraint plus the retry loop in PlaceOrder.
func generateOrderNumber() string {
	date := time.Now().UTC().Format("20060102")
	suffix := strings.ToUpper(uuid.New().String()[:4])
	return fmt.Sprintf("ORD-%s-%s", date, suffix)
}
