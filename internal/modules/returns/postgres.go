package returns

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailops/pos-backend/internal/apperr"
	"github.com/retailops/pos-backend/internal/modules/ledger"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

// orderItemRow is the order-item snapshot the return needs.
type orderItemRow struct {
	id             uuid.UUID
	productID      uuid.UUID
	quantity       int
	unitPrice      decimal.Decimal
	discountAmount decimal.Decimal
	serialUnitID   *uuid.UUID
}

func (r *postgresRepo) CreateReturn(ctx context.Context, ret *Return, lines []ReturnLine) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Lock the order row so concurrent returns against the same order
	// serialize and the cumulative check below stays correct.
	var orderNumber, status string
	err = tx.QueryRowContext(ctx, `
		SELECT order_number, status FROM orders WHERE id=$1 FOR UPDATE`, ret.OrderID).
		Scan(&orderNumber, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("order %s: %w", ret.OrderID, apperr.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if status == "CANCELLED" {
		return fmt.Errorf("%w: cannot return items from a cancelled order", apperr.ErrValidation)
	}

	items, err := loadOrderItems(ctx, tx, ret.OrderID)
	if err != nil {
		return err
	}
	returned, err := loadReturnedQuantities(ctx, tx, ret.OrderID)
	if err != nil {
		return err
	}

	ret.TotalRefund = decimal.Zero
	ret.Items = make([]*ReturnItem, 0, len(lines))

	for _, line := range lines {
		itemID, err := uuid.Parse(line.OrderItemID)
		if err != nil {
			return fmt.Errorf("%w: invalid orderItemId", apperr.ErrValidation)
		}
		item, ok := items[itemID]
		if !ok {
			return fmt.Errorf("order item %s does not belong to order %s: %w", line.OrderItemID, orderNumber, apperr.ErrNotFound)
		}
		if returned[itemID]+line.Quantity > item.quantity {
			return fmt.Errorf("%w: return quantity %d exceeds remaining %d for order item %s",
				apperr.ErrValidation, line.Quantity, item.quantity-returned[itemID], line.OrderItemID)
		}
		returned[itemID] += line.Quantity

		refund := lineRefund(item, line.Quantity)
		ret.TotalRefund = ret.TotalRefund.Add(refund)
		ret.Items = append(ret.Items, &ReturnItem{
			ID:           uuid.New(),
			ReturnID:     ret.ID,
			OrderItemID:  itemID,
			Quantity:     line.Quantity,
			RefundAmount: refund,
		})

		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET stock_quantity = stock_quantity + $1, updated_at = NOW()
			WHERE id = $2`, line.Quantity, item.productID); err != nil {
			return fmt.Errorf("restore stock: %w", err)
		}

		if item.serialUnitID != nil {
			if _, err := tx.ExecContext(ctx, `
				UPDATE serial_units SET status = 'AVAILABLE'
				WHERE id = $1`, item.serialUnitID); err != nil {
				return fmt.Errorf("release serial unit: %w", err)
			}
		}

		if err := ledger.AppendTx(ctx, tx, &ledger.StockMovement{
			ProductID: item.productID,
			Type:      ledger.MovementReturn,
			Quantity:  line.Quantity,
			Reason:    fmt.Sprintf("return for order %s: %s", orderNumber, ret.Reason),
			UserID:    ret.ProcessedBy,
		}); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO returns (id, order_id, reason, total_refund, status, processed_by)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		ret.ID, ret.OrderID, ret.Reason, ret.TotalRefund, ret.Status, ret.ProcessedBy)
	if err != nil {
		return fmt.Errorf("insert return: %w", err)
	}
	for _, item := range ret.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO return_items (id, return_id, order_item_id, quantity, refund_amount)
			VALUES ($1,$2,$3,$4,$5)`,
			item.ID, ret.ID, item.OrderItemID, item.Quantity, item.RefundAmount)
		if err != nil {
			return fmt.Errorf("insert return_item: %w", err)
		}
	}

	return tx.Commit()
}

func (r *postgresRepo) GetReturnByID(ctx context.Context, id string) (*Return, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid return id", apperr.ErrValidation)
	}
	ret := &Return{}
	err = r.db.QueryRowContext(ctx, `
		SELECT id, order_id, reason, total_refund, status, processed_by, created_at
		FROM returns WHERE id=$1`, uid).
		Scan(&ret.ID, &ret.OrderID, &ret.Reason, &ret.TotalRefund, &ret.Status,
			&ret.ProcessedBy, &ret.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("return %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, return_id, order_item_id, quantity, refund_amount
		FROM return_items WHERE return_id=$1`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		item := &ReturnItem{}
		if err := rows.Scan(&item.ID, &item.ReturnID, &item.OrderItemID,
			&item.Quantity, &item.RefundAmount); err != nil {
			return nil, err
		}
		ret.Items = append(ret.Items, item)
	}
	return ret, rows.Err()
}

func (r *postgresRepo) ListReturns(ctx context.Context, limit, offset int) ([]*Return, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, reason, total_refund, status, processed_by, created_at
		FROM returns ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []*Return
	for rows.Next() {
		ret := &Return{}
		if err := rows.Scan(&ret.ID, &ret.OrderID, &ret.Reason, &ret.TotalRefund,
			&ret.Status, &ret.ProcessedBy, &ret.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, ret)
	}
	return result, rows.Err()
}

// ── helpers ──────────────────────────────────────────────────────────────────

func loadOrderItems(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (map[uuid.UUID]*orderItemRow, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, product_id, quantity, unit_price, discount_amount, serial_unit_id
		FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make(map[uuid.UUID]*orderItemRow)
	for rows.Next() {
		item := &orderItemRow{}
		var serialUnitID sql.NullString
		if err := rows.Scan(&item.id, &item.productID, &item.quantity,
			&item.unitPrice, &item.discountAmount, &serialUnitID); err != nil {
			return nil, err
		}
		if serialUnitID.Valid {
			uid, err := uuid.Parse(serialUnitID.String)
			if err == nil {
				item.serialUnitID = &uid
			}
		}
		items[item.id] = item
	}
	return items, rows.Err()
}

// loadReturnedQuantities sums quantities already returned per order
// item across all prior returns of the order, inside the current
// transaction, so cumulative over-returns are caught.
func loadReturnedQuantities(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (map[uuid.UUID]int, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT ri.order_item_id, COALESCE(SUM(ri.quantity), 0)
		FROM return_items ri
		JOIN returns rt ON rt.id = ri.return_id
		WHERE rt.order_id = $1
		GROUP BY ri.order_item_id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	returned := make(map[uuid.UUID]int)
	for rows.Next() {
		var itemID uuid.UUID
		var qty int
		if err := rows.Scan(&itemID, &qty); err != nil {
			return nil, err
		}
		returned[itemID] = qty
	}
	return returned, rows.Err()
}

// lineRefund computes the refund for one returned line per the
// package refund policy.
func lineRefund(item *orderItemRow, quantity int) decimal.Decimal {
	qty := decimal.NewFromInt(int64(quantity))
	refund := item.unitPrice.Mul(qty)
	if refundNetOfLineDiscount && item.quantity > 0 {
		prorated := item.discountAmount.Mul(qty).Div(decimal.NewFromInt(int64(item.quantity)))
		refund = refund.Sub(prorated)
	}
	return refund
}
