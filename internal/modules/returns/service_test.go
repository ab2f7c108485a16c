package returns

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/pos-backend/internal/apperr"
	"github.com/retailops/pos-backend/internal/authn"
	"github.com/retailops/pos-backend/internal/modules/audit"
	"github.com/retailops/pos-backend/internal/modules/ledger"
)

// fakeOrderItem mirrors the order-item snapshot the return reads.
type fakeOrderItem struct {
	productID      uuid.UUID
	quantity       int
	unitPrice      decimal.Decimal
	discountAmount decimal.Decimal
	serialUnitID   *uuid.UUID
}

type fakeOrder struct {
	number string
	status string
	items  map[uuid.UUID]*fakeOrderItem
}

// fakeRepo replays the transactional semantics of the postgres
// repository in memory: validate every line against the cumulative
// returned quantities, then apply all effects or none.
type fakeRepo struct {
	mu           sync.Mutex
	orders       map[uuid.UUID]*fakeOrder
	stock        map[uuid.UUID]int
	serialStatus map[uuid.UUID]string
	returned     map[uuid.UUID]int
	returns      []*Return
	movements    []*ledger.StockMovement
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		orders:       make(map[uuid.UUID]*fakeOrder),
		stock:        make(map[uuid.UUID]int),
		serialStatus: make(map[uuid.UUID]string),
		returned:     make(map[uuid.UUID]int),
	}
}

func (f *fakeRepo) CreateReturn(_ context.Context, ret *Return, lines []ReturnLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[ret.OrderID]
	if !ok {
		return fmt.Errorf("order %s: %w", ret.OrderID, apperr.ErrNotFound)
	}
	if o.status == "CANCELLED" {
		return fmt.Errorf("%w: cannot return items from a cancelled order", apperr.ErrValidation)
	}

	pending := make(map[uuid.UUID]int)
	ret.TotalRefund = decimal.Zero
	ret.Items = ret.Items[:0]

	for _, line := range lines {
		itemID, err := uuid.Parse(line.OrderItemID)
		if err != nil {
			return fmt.Errorf("%w: invalid orderItemId", apperr.ErrValidation)
		}
		item, ok := o.items[itemID]
		if !ok {
			return fmt.Errorf("order item %s does not belong to order %s: %w", line.OrderItemID, o.number, apperr.ErrNotFound)
		}
		if f.returned[itemID]+pending[itemID]+line.Quantity > item.quantity {
			return fmt.Errorf("%w: return quantity exceeds remaining for order item %s", apperr.ErrValidation, line.OrderItemID)
		}
		pending[itemID] += line.Quantity

		refund := item.unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		ret.TotalRefund = ret.TotalRefund.Add(refund)
		ret.Items = append(ret.Items, &ReturnItem{
			ID:           uuid.New(),
			ReturnID:     ret.ID,
			OrderItemID:  itemID,
			Quantity:     line.Quantity,
			RefundAmount: refund,
		})
	}

	for _, item := range ret.Items {
		src := o.items[item.OrderItemID]
		f.returned[item.OrderItemID] += item.Quantity
		f.stock[src.productID] += item.Quantity
		if src.serialUnitID != nil {
			f.serialStatus[*src.serialUnitID] = "AVAILABLE"
		}
		f.movements = append(f.movements, &ledger.StockMovement{
			ProductID: src.productID,
			Type:      ledger.MovementReturn,
			Quantity:  item.Quantity,
			Reason:    fmt.Sprintf("return for order %s: %s", o.number, ret.Reason),
			UserID:    ret.ProcessedBy,
		})
	}
	f.returns = append(f.returns, ret)
	return nil
}

func (f *fakeRepo) GetReturnByID(_ context.Context, id string) (*Return, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ret := range f.returns {
		if ret.ID.String() == id {
			return ret, nil
		}
	}
	return nil, fmt.Errorf("return %s: %w", id, apperr.ErrNotFound)
}

func (f *fakeRepo) ListReturns(_ context.Context, limit, offset int) ([]*Return, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Return{}, f.returns...), nil
}

type noopAudit struct{}

func (noopAudit) Record(context.Context, audit.Entry) {}

func staffContext() context.Context {
	return authn.WithActor(context.Background(), authn.Actor{ID: uuid.New(), Role: authn.RoleManager})
}

// seedOrder registers a completed order with one item of the given
// quantity and unit price, returning the order and item IDs.
func seedOrder(repo *fakeRepo, quantity int, unitPrice int64) (uuid.UUID, uuid.UUID) {
	orderID := uuid.New()
	itemID := uuid.New()
	productID := uuid.New()
	repo.orders[orderID] = &fakeOrder{
		number: "ORD-20260828-TEST",
		status: "COMPLETED",
		items: map[uuid.UUID]*fakeOrderItem{
			itemID: {
				productID: productID,
				quantity:  quantity,
				unitPrice: decimal.NewFromInt(unitPrice),
			},
		},
	}
	repo.stock[productID] = 0
	return orderID, itemID
}

func TestCreateReturnHappyPath(t *testing.T) {
	repo := newFakeRepo()
	orderID, itemID := seedOrder(repo, 3, 1000)
	svc := NewService(repo, noopAudit{})

	ret, err := svc.CreateReturn(staffContext(), CreateReturnRequest{
		OrderID: orderID.String(),
		Reason:  "customer changed mind",
		Items:   []ReturnLine{{OrderItemID: itemID.String(), Quantity: 2}},
	})
	require.NoError(t, err)

	assert.True(t, ret.TotalRefund.Equal(decimal.NewFromInt(2000)), "refund = %s", ret.TotalRefund)
	assert.Equal(t, ReturnCompleted, ret.Status)
	require.Len(t, ret.Items, 1)
	assert.Equal(t, 2, ret.Items[0].Quantity)

	productID := repo.orders[orderID].items[itemID].productID
	assert.Equal(t, 2, repo.stock[productID])
	require.Len(t, repo.movements, 1)
	assert.Equal(t, ledger.MovementReturn, repo.movements[0].Type)
	assert.Equal(t, 2, repo.movements[0].Quantity)
}

func TestCreateReturnReleasesSerialUnit(t *testing.T) {
	repo := newFakeRepo()
	orderID, itemID := seedOrder(repo, 1, 45000)
	serialID := uuid.New()
	repo.orders[orderID].items[itemID].serialUnitID = &serialID
	repo.serialStatus[serialID] = "SOLD"
	svc := NewService(repo, noopAudit{})

	_, err := svc.CreateReturn(staffContext(), CreateReturnRequest{
		OrderID: orderID.String(),
		Reason:  "defective unit",
		Items:   []ReturnLine{{OrderItemID: itemID.String(), Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "AVAILABLE", repo.serialStatus[serialID])
}

func TestCreateReturnOverQuantity(t *testing.T) {
	repo := newFakeRepo()
	orderID, itemID := seedOrder(repo, 3, 1000)
	svc := NewService(repo, noopAudit{})

	_, err := svc.CreateReturn(staffContext(), CreateReturnRequest{
		OrderID: orderID.String(),
		Reason:  "customer changed mind",
		Items:   []ReturnLine{{OrderItemID: itemID.String(), Quantity: 4}},
	})
	require.ErrorIs(t, err, apperr.ErrValidation)

	productID := repo.orders[orderID].items[itemID].productID
	assert.Equal(t, 0, repo.stock[productID])
	assert.Empty(t, repo.returns)
	assert.Empty(t, repo.movements)
}

func TestCreateReturnCumulativeBound(t *testing.T) {
	repo := newFakeRepo()
	orderID, itemID := seedOrder(repo, 3, 1000)
	svc := NewService(repo, noopAudit{})

	_, err := svc.CreateReturn(staffContext(), CreateReturnRequest{
		OrderID: orderID.String(),
		Reason:  "first partial return",
		Items:   []ReturnLine{{OrderItemID: itemID.String(), Quantity: 2}},
	})
	require.NoError(t, err)

	// 2 of 3 already returned, a second return of 2 exceeds the order.
	_, err = svc.CreateReturn(staffContext(), CreateReturnRequest{
		OrderID: orderID.String(),
		Reason:  "second partial return",
		Items:   []ReturnLine{{OrderItemID: itemID.String(), Quantity: 2}},
	})
	require.ErrorIs(t, err, apperr.ErrValidation)

	// Returning the last remaining unit still works.
	_, err = svc.CreateReturn(staffContext(), CreateReturnRequest{
		OrderID: orderID.String(),
		Reason:  "final partial return",
		Items:   []ReturnLine{{OrderItemID: itemID.String(), Quantity: 1}},
	})
	require.NoError(t, err)

	productID := repo.orders[orderID].items[itemID].productID
	assert.Equal(t, 3, repo.stock[productID])
}

func TestCreateReturnDuplicateLineSameItem(t *testing.T) {
	repo := newFakeRepo()
	orderID, itemID := seedOrder(repo, 3, 1000)
	svc := NewService(repo, noopAudit{})

	// Two lines referencing the same item count against the same bound.
	_, err := svc.CreateReturn(staffContext(), CreateReturnRequest{
		OrderID: orderID.String(),
		Reason:  "split across lines",
		Items: []ReturnLine{
			{OrderItemID: itemID.String(), Quantity: 2},
			{OrderItemID: itemID.String(), Quantity: 2},
		},
	})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateReturnCancelledOrder(t *testing.T) {
	repo := newFakeRepo()
	orderID, itemID := seedOrder(repo, 3, 1000)
	repo.orders[orderID].status = "CANCELLED"
	svc := NewService(repo, noopAudit{})

	_, err := svc.CreateReturn(staffContext(), CreateReturnRequest{
		OrderID: orderID.String(),
		Reason:  "should not matter",
		Items:   []ReturnLine{{OrderItemID: itemID.String(), Quantity: 1}},
	})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateReturnUnknownOrder(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, noopAudit{})

	_, err := svc.CreateReturn(staffContext(), CreateReturnRequest{
		OrderID: uuid.NewString(),
		Reason:  "no such order",
		Items:   []ReturnLine{{OrderItemID: uuid.NewString(), Quantity: 1}},
	})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateReturnForeignOrderItem(t *testing.T) {
	repo := newFakeRepo()
	orderID, _ := seedOrder(repo, 3, 1000)
	_, otherItemID := seedOrder(repo, 2, 500)
	svc := NewService(repo, noopAudit{})

	_, err := svc.CreateReturn(staffContext(), CreateReturnRequest{
		OrderID: orderID.String(),
		Reason:  "item from another order",
		Items:   []ReturnLine{{OrderItemID: otherItemID.String(), Quantity: 1}},
	})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateReturnValidation(t *testing.T) {
	repo := newFakeRepo()
	orderID, itemID := seedOrder(repo, 3, 1000)
	svc := NewService(repo, noopAudit{})

	tests := []struct {
		name string
		req  CreateReturnRequest
	}{
		{
			name: "short reason",
			req: CreateReturnRequest{
				OrderID: orderID.String(),
				Reason:  "bad",
				Items:   []ReturnLine{{OrderItemID: itemID.String(), Quantity: 1}},
			},
		},
		{
			name: "no items",
			req: CreateReturnRequest{
				OrderID: orderID.String(),
				Reason:  "valid reason here",
			},
		},
		{
			name: "zero quantity",
			req: CreateReturnRequest{
				OrderID: orderID.String(),
				Reason:  "valid reason here",
				Items:   []ReturnLine{{OrderItemID: itemID.String(), Quantity: 0}},
			},
		},
		{
			name: "invalid order id",
			req: CreateReturnRequest{
				OrderID: "not-a-uuid",
				Reason:  "valid reason here",
				Items:   []ReturnLine{{OrderItemID: itemID.String(), Quantity: 1}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateReturn(staffContext(), tt.req)
			require.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestCreateReturnRequiresStaff(t *testing.T) {
	repo := newFakeRepo()
	orderID, itemID := seedOrder(repo, 3, 1000)
	svc := NewService(repo, noopAudit{})
	ctx := authn.WithActor(context.Background(), authn.Actor{ID: uuid.New(), Role: authn.RoleCustomer})

	_, err := svc.CreateReturn(ctx, CreateReturnRequest{
		OrderID: orderID.String(),
		Reason:  "customer cannot self-serve",
		Items:   []ReturnLine{{OrderItemID: itemID.String(), Quantity: 1}},
	})
	require.ErrorIs(t, err, apperr.ErrValidation)
}
