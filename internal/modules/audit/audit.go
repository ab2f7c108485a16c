package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Entry is one audit-log record.
type Entry struct {
	ID         uuid.UUID `json:"id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	ActorID    uuid.UUID `json:"actor_id"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Sink writes audit entries best-effort. A failed write is logged and
// swallowed; it never fails the business operation that triggered it.
type Sink struct {
	db  *sql.DB
	log *zap.Logger
}

func NewSink(db *sql.DB, log *zap.Logger) *Sink {
	return &Sink{db: db, log: log}
}

// Record inserts the entry, logging any failure instead of returning it.
func (s *Sink) Record(ctx context.Context, e Entry) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, action, entity_type, entity_id, actor_id, detail)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.Action, e.EntityType, e.EntityID, e.ActorID, e.Detail)
	if err != nil {
		s.log.Warn("audit entry dropped",
			zap.String("action", e.Action),
			zap.String("entity_id", e.EntityID),
			zap.Error(err))
	}
}
