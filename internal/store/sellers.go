package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const sellerColumns = `id, trendyol_seller_id, shop_name, default_commission_rate,
	default_cargo_cost, is_active, created_at, updated_at`

func scanSeller(row interface{ Scan(...any) error }) (Seller, error) {
	var s Seller
	err := row.Scan(
		&s.ID, &s.TrendyolSellerID, &s.ShopName, &s.DefaultCommissionRate,
		&s.DefaultCargoCost, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// CreateSellerParams holds the fields for a new seller account.
type CreateSellerParams struct {
	ID                    uuid.UUID
	TrendyolSellerID      string
	ShopName              string
	DefaultCommissionRate decimal.Decimal
	DefaultCargoCost      decimal.Decimal
}

// CreateSeller inserts a seller account and returns it.
func (q *Queries) CreateSeller(ctx context.Context, p CreateSellerParams) (Seller, error) {
	now := time.Now().UTC()
	row := q.db.QueryRow(ctx, `
		INSERT INTO sellers (id, trendyol_seller_id, shop_name, default_commission_rate,
			default_cargo_cost, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6)
		RETURNING `+sellerColumns,
		p.ID, p.TrendyolSellerID, p.ShopName, p.DefaultCommissionRate,
		p.DefaultCargoCost, now,
	)
	return scanSeller(row)
}

// GetSeller returns a seller by ID, or ErrNotFound.
func (q *Queries) GetSeller(ctx context.Context, id uuid.UUID) (Seller, error) {
	row := q.db.QueryRow(ctx, `SELECT `+sellerColumns+` FROM sellers WHERE id = $1`, id)
	s, err := scanSeller(row)
	if err != nil {
		return Seller{}, mapNotFound(err)
	}
	return s, nil
}
