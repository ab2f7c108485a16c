package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// AppendTx writes one ledger entry inside a caller-owned transaction.
// The order, return and restock transactions all append through here so
// a rolled-back transaction leaves no ledger row behind.
func AppendTx(ctx context.Context, tx *sql.Tx, m *StockMovement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO stock_movements (id, product_id, type, quantity, reason, user_id)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		m.ID, m.ProductID, m.Type, m.Quantity, m.Reason, m.UserID)
	if err != nil {
		return fmt.Errorf("insert stock_movement: %w", err)
	}
	return nil
}

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*StockMovement, error) {
	uid, err := uuid.Parse(productID)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, `
		SELECT id, product_id, type, quantity, reason, user_id, created_at
		FROM stock_movements WHERE product_id=$1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, uid, limit, offset)
}

func (r *postgresRepo) List(ctx context.Context, limit, offset int) ([]*StockMovement, error) {
	return r.query(ctx, `
		SELECT id, product_id, type, quantity, reason, user_id, created_at
		FROM stock_movements
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *postgresRepo) query(ctx context.Context, query string, args ...interface{}) ([]*StockMovement, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var movements []*StockMovement
	for rows.Next() {
		m := &StockMovement{}
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Type, &m.Quantity,
			&m.Reason, &m.UserID, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
