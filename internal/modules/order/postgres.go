package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/retailops/pos-backend/internal/apperr"
	"github.com/retailops/pos-backend/internal/modules/ledger"
)

const pqUniqueViolation = "23505"

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) GetProductForSale(ctx context.Context, productID string) (*SaleProduct, error) {
	uid, err := uuid.Parse(productID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid productId", apperr.ErrValidation)
	}
	p := &SaleProduct{}
	err = r.db.QueryRowContext(ctx, `
		SELECT id, name, price, cost_price, stock_quantity, is_serialized, warranty_months
		FROM products WHERE id=$1`, uid).
		Scan(&p.ID, &p.Name, &p.Price, &p.CostPrice, &p.StockQuantity, &p.IsSerialized, &p.WarrantyMonths)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", productID, apperr.ErrNotFound)
	}
	return p, err
}

func (r *postgresRepo) GetSerialUnit(ctx context.Context, serialUnitID string) (*SaleSerialUnit, error) {
	uid, err := uuid.Parse(serialUnitID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid serialItemId", apperr.ErrValidation)
	}
	u := &SaleSerialUnit{}
	err = r.db.QueryRowContext(ctx, `
		SELECT id, product_id, serial_number, status
		FROM serial_units WHERE id=$1`, uid).
		Scan(&u.ID, &u.ProductID, &u.SerialNumber, &u.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("serial unit %s: %w", serialUnitID, apperr.ErrNotFound)
	}
	return u, err
}

func (r *postgresRepo) GetSerialUnitBySerial(ctx context.Context, productID, serialNumber string) (*SaleSerialUnit, error) {
	uid, err := uuid.Parse(productID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid productId", apperr.ErrValidation)
	}
	u := &SaleSerialUnit{}
	err = r.db.QueryRowContext(ctx, `
		SELECT id, product_id, serial_number, status
		FROM serial_units WHERE product_id=$1 AND serial_number=$2`, uid, serialNumber).
		Scan(&u.ID, &u.ProductID, &u.SerialNumber, &u.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("serial number %s: %w", serialNumber, apperr.ErrNotFound)
	}
	return u, err
}

// CreateOrder commits the sale as one transaction. Stock is taken with
// a conditional decrement and serial units with a compare-and-set, so
// concurrent checkouts contending for the same stock or unit cannot
// both succeed; the database's row locking serializes them.
func (r *postgresRepo) CreateOrder(ctx context.Context, o *Order, movements []*ledger.StockMovement) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, item := range o.Items {
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock_quantity = stock_quantity - $1, updated_at = NOW()
			WHERE id = $2 AND stock_quantity >= $1`,
			item.Quantity, item.ProductID)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM products WHERE id=$1)`, item.ProductID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("product %s: %w", item.ProductID, apperr.ErrNotFound)
			}
			return fmt.Errorf("insufficient stock for product %s: %w", item.ProductID, apperr.ErrInsufficientStock)
		}

		if item.SerialUnitID != nil {
			res, err := tx.ExecContext(ctx, `
				UPDATE serial_units SET status = 'SOLD'
				WHERE id = $1 AND product_id = $2 AND status = 'AVAILABLE'`,
				item.SerialUnitID, item.ProductID)
			if err != nil {
				return fmt.Errorf("allocate serial unit: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("serial unit %s is not available: %w", item.SerialNumber, apperr.ErrConflict)
			}
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders
		  (id, order_number, customer_id, agent_id, subtotal, discount_amount, tax_amount, total_amount, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		o.ID, o.OrderNumber, o.CustomerID, o.AgentID,
		o.Subtotal, o.DiscountAmount, o.TaxAmount, o.TotalAmount, o.Status)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation && pqErr.Constraint == "orders_order_number_key" {
			return fmt.Errorf("order number %s: %w", o.OrderNumber, ErrDuplicateOrderNumber)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Items {
		item.OrderID = o.ID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items
			  (id, order_id, product_id, quantity, unit_price, cost_price, discount_amount,
			   serial_unit_id, serial_number, warranty_expiry)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			item.ID, o.ID, item.ProductID, item.Quantity, item.UnitPrice, item.CostPrice,
			item.DiscountAmount, item.SerialUnitID, nullableString(item.SerialNumber), item.WarrantyExpiry)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	o.Payment.OrderID = o.ID
	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (id, order_id, method, amount, amount_tendered, change_amount, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		o.Payment.ID, o.ID, o.Payment.Method, o.Payment.Amount,
		o.Payment.AmountTendered, o.Payment.ChangeAmount, o.Payment.Status)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	for _, m := range movements {
		if err := ledger.AppendTx(ctx, tx, m); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *postgresRepo) GetOrderByID(ctx context.Context, id string) (*Order, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid order id", apperr.ErrValidation)
	}
	o, err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT id, order_number, customer_id, agent_id, subtotal, discount_amount,
		       tax_amount, total_amount, status, created_at, updated_at
		FROM orders WHERE id=$1`, uid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if o.Items, err = r.listItems(ctx, o.ID); err != nil {
		return nil, err
	}
	if o.Payment, err = r.getPayment(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) ListOrders(ctx context.Context, f ListFilter) ([]*Order, error) {
	query := `
		SELECT id, order_number, customer_id, agent_id, subtotal, discount_amount,
		       tax_amount, total_amount, status, created_at, updated_at
		FROM orders WHERE 1=1`
	args := []interface{}{}
	if f.CustomerID != "" {
		args = append(args, f.CustomerID)
		query += fmt.Sprintf(" AND customer_id=$%d", len(args))
	}
	if f.AgentID != "" {
		args = append(args, f.AgentID)
		query += fmt.Sprintf(" AND agent_id=$%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND status=$%d", len(args))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, f.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, status OrderStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status=$1, updated_at=$2 WHERE id=$3`,
		status, time.Now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("order %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*Order, error) {
	o := &Order{}
	var customerID sql.NullString
	err := row.Scan(&o.ID, &o.OrderNumber, &customerID, &o.AgentID,
		&o.Subtotal, &o.DiscountAmount, &o.TaxAmount, &o.TotalAmount,
		&o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if customerID.Valid {
		uid, err := uuid.Parse(customerID.String)
		if err == nil {
			o.CustomerID = &uid
		}
	}
	return o, nil
}

func (r *postgresRepo) listItems(ctx context.Context, orderID uuid.UUID) ([]*OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price, cost_price, discount_amount,
		       serial_unit_id, serial_number, warranty_expiry, created_at
		FROM order_items WHERE order_id=$1 ORDER BY created_at ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*OrderItem
	for rows.Next() {
		item := &OrderItem{}
		var serialUnitID sql.NullString
		var serialNumber sql.NullString
		var warrantyExpiry sql.NullTime
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity,
			&item.UnitPrice, &item.CostPrice, &item.DiscountAmount,
			&serialUnitID, &serialNumber, &warrantyExpiry, &item.CreatedAt); err != nil {
			return nil, err
		}
		if serialUnitID.Valid {
			uid, err := uuid.Parse(serialUnitID.String)
			if err == nil {
				item.SerialUnitID = &uid
			}
		}
		item.SerialNumber = serialNumber.String
		if warrantyExpiry.Valid {
			item.WarrantyExpiry = &warrantyExpiry.Time
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *postgresRepo) getPayment(ctx context.Context, orderID uuid.UUID) (*Payment, error) {
	p := &Payment{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, method, amount, amount_tendered, change_amount, status, created_at
		FROM payments WHERE order_id=$1`, orderID).
		Scan(&p.ID, &p.OrderID, &p.Method, &p.Amount, &p.AmountTendered,
			&p.ChangeAmount, &p.Status, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
