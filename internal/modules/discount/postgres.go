package discount

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/retailops/pos-backend/internal/apperr"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const selectColumns = `id, code, type, value, min_purchase, max_discount, start_date, end_date, is_active, created_at`

func (r *postgresRepo) GetByCode(ctx context.Context, code string) (*Discount, error) {
	d, err := r.scan(r.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM discounts WHERE code=$1`,
		strings.ToUpper(strings.TrimSpace(code))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("discount code %s: %w", code, apperr.ErrNotFound)
	}
	return d, err
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Discount, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid discount id", apperr.ErrValidation)
	}
	d, err := r.scan(r.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM discounts WHERE id=$1`, uid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("discount %s: %w", id, apperr.ErrNotFound)
	}
	return d, err
}

func (r *postgresRepo) scan(row *sql.Row) (*Discount, error) {
	d := &Discount{}
	var start, end sql.NullTime
	err := row.Scan(&d.ID, &d.Code, &d.Type, &d.Value, &d.MinPurchase,
		&d.MaxDiscount, &start, &end, &d.IsActive, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	if start.Valid {
		d.StartDate = &start.Time
	}
	if end.Valid {
		d.EndDate = &end.Time
	}
	return d, nil
}
