package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/retailops/pos-backend/internal/apperr"
	"github.com/retailops/pos-backend/internal/modules/ledger"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) CreateProduct(ctx context.Context, p *Product, units []*SerialUnit) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO products
		  (id, name, price, cost_price, stock_quantity, is_serialized, warranty_months)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.Name, p.Price, p.CostPrice, p.StockQuantity, p.IsSerialized, p.WarrantyMonths)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	for _, u := range units {
		if err := insertSerialUnit(ctx, tx, u); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *postgresRepo) GetProductByID(ctx context.Context, id string) (*Product, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid product id", apperr.ErrValidation)
	}
	p := &Product{}
	err = r.db.QueryRowContext(ctx, `
		SELECT id, name, price, cost_price, stock_quantity, is_serialized, warranty_months, created_at, updated_at
		FROM products WHERE id=$1`, uid).
		Scan(&p.ID, &p.Name, &p.Price, &p.CostPrice, &p.StockQuantity,
			&p.IsSerialized, &p.WarrantyMonths, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, apperr.ErrNotFound)
	}
	return p, err
}

func (r *postgresRepo) ListProducts(ctx context.Context) ([]*Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, price, cost_price, stock_quantity, is_serialized, warranty_months, created_at, updated_at
		FROM products ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []*Product
	for rows.Next() {
		p := &Product{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.CostPrice, &p.StockQuantity,
			&p.IsSerialized, &p.WarrantyMonths, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *postgresRepo) UpdateProduct(ctx context.Context, p *Product) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name=$1, price=$2, cost_price=$3, warranty_months=$4, updated_at=NOW()
		WHERE id=$5`,
		p.Name, p.Price, p.CostPrice, p.WarrantyMonths, p.ID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("product %s: %w", p.ID, apperr.ErrNotFound)
	}
	return nil
}

func (r *postgresRepo) DeleteProduct(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: invalid product id", apperr.ErrValidation)
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id=$1`, uid)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			return fmt.Errorf("product %s is referenced by historical orders: %w", id, apperr.ErrConflict)
		}
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("product %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *postgresRepo) Restock(ctx context.Context, productID string, quantity int, units []*SerialUnit, movement *ledger.StockMovement) (*Product, error) {
	uid, err := uuid.Parse(productID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid product id", apperr.ErrValidation)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE products SET stock_quantity = stock_quantity + $1, updated_at = NOW()
		WHERE id = $2`, quantity, uid)
	if err != nil {
		return nil, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil, fmt.Errorf("product %s: %w", productID, apperr.ErrNotFound)
	}

	for _, u := range units {
		if err := insertSerialUnit(ctx, tx, u); err != nil {
			return nil, err
		}
	}

	if err := ledger.AppendTx(ctx, tx, movement); err != nil {
		return nil, err
	}

	p := &Product{}
	err = tx.QueryRowContext(ctx, `
		SELECT id, name, price, cost_price, stock_quantity, is_serialized, warranty_months, created_at, updated_at
		FROM products WHERE id=$1`, uid).
		Scan(&p.ID, &p.Name, &p.Price, &p.CostPrice, &p.StockQuantity,
			&p.IsSerialized, &p.WarrantyMonths, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return p, tx.Commit()
}

func (r *postgresRepo) ListSerialUnits(ctx context.Context, productID string) ([]*SerialUnit, error) {
	uid, err := uuid.Parse(productID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid product id", apperr.ErrValidation)
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, serial_number, status, created_at
		FROM serial_units WHERE product_id=$1 ORDER BY created_at ASC`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var units []*SerialUnit
	for rows.Next() {
		u := &SerialUnit{}
		if err := rows.Scan(&u.ID, &u.ProductID, &u.SerialNumber, &u.Status, &u.CreatedAt); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func insertSerialUnit(ctx context.Context, tx *sql.Tx, u *SerialUnit) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO serial_units (id, product_id, serial_number, status)
		VALUES ($1,$2,$3,$4)`,
		u.ID, u.ProductID, u.SerialNumber, u.Status)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return fmt.Errorf("serial number %s already exists for this product: %w", u.SerialNumber, apperr.ErrConflict)
		}
		return fmt.Errorf("insert serial_unit: %w", err)
	}
	return nil
}
