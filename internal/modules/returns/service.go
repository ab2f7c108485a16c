package returns

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/retailops/pos-backend/internal/apperr"
	"github.com/retailops/pos-backend/internal/authn"
	"github.com/retailops/pos-backend/internal/metrics"
	"github.com/retailops/pos-backend/internal/modules/audit"
)

// minReasonLength is the shortest accepted return reason.
const minReasonLength = 5

// AuditSink records best-effort audit entries.
type AuditSink interface {
	Record(ctx context.Context, e audit.Entry)
}

// Service defines the return transaction engine.
type Service interface {
	// CreateReturn validates the request against the original order
	// and commits the reversal atomically.
	CreateReturn(ctx context.Context, req CreateReturnRequest) (*Return, error)

	// GetReturn retrieves a return with its items.
	GetReturn(ctx context.Context, id string) (*Return, error)

	// ListReturns returns recent returns, newest first.
	ListReturns(ctx context.Context, limit, offset int) ([]*Return, error)
}

type service struct {
	repo    Repository
	auditor AuditSink
}

// NewService creates a new returns service.
func NewService(repo Repository, auditor AuditSink) Service {
	return &service{repo: repo, auditor: auditor}
}

func (s *service) CreateReturn(ctx context.Context, req CreateReturnRequest) (*Return, error) {
	actor, ok := authn.FromContext(ctx)
	if !ok || !actor.IsStaff() {
		return nil, fmt.Errorf("%w: staff identity required to process a return", apperr.ErrValidation)
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid orderId", apperr.ErrValidation)
	}
	reason := strings.TrimSpace(req.Reason)
	if len(reason) < minReasonLength {
		return nil, fmt.Errorf("%w: reason must be at least %d characters", apperr.ErrValidation, minReasonLength)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: return must contain at least one item", apperr.ErrValidation)
	}
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be > 0 for order item %s", apperr.ErrValidation, line.OrderItemID)
		}
	}

	ret := &Return{
		ID:          uuid.New(),
		OrderID:     orderID,
		Reason:      reason,
		Status:      ReturnCompleted,
		ProcessedBy: actor.ID,
	}
	if err := s.repo.CreateReturn(ctx, ret, req.Items); err != nil {
		return nil, err
	}

	metrics.ReturnsCreatedTotal.Inc()
	s.auditor.Record(ctx, audit.Entry{
		Action:     "return_create",
		EntityType: "return",
		EntityID:   ret.ID.String(),
		ActorID:    actor.ID,
		Detail:     fmt.Sprintf("order=%s,refund=%s,items=%d", ret.OrderID, ret.TotalRefund, len(ret.Items)),
	})
	return ret, nil
}

func (s *service) GetReturn(ctx context.Context, id string) (*Return, error) {
	return s.repo.GetReturnByID(ctx, id)
}

func (s *service) ListReturns(ctx context.Context, limit, offset int) ([]*Return, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListReturns(ctx, limit, offset)
}
