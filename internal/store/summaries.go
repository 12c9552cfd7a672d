package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DailyAggregate is the raw SQL aggregate over one seller-day of active-line
// calculations, before margin derivation.
type DailyAggregate struct {
	TotalItems          int64
	TotalRevenue        decimal.Decimal
	TotalRevenueExclVAT decimal.Decimal
	TotalProductCost    decimal.Decimal
	TotalCommission     decimal.Decimal
	TotalCargoCost      decimal.Decimal
	TotalPlatformFee    decimal.Decimal
	TotalVATPayable     decimal.Decimal
	TotalCost           decimal.Decimal
	TotalProfit         decimal.Decimal
	ItemsWithCost       int64
	ItemsWithoutCost    int64
}

// AggregateDailyProfit re-scans every active-line calculation for a seller on
// the given day and returns the wholesale aggregate. Summaries are always
// rebuilt from this query, never patched, so they self-heal after any missed
// update.
func (q *Queries) AggregateDailyProfit(ctx context.Context, sellerID uuid.UUID, day time.Time) (DailyAggregate, error) {
	var a DailyAggregate
	err := q.db.QueryRow(ctx, `
		SELECT
			COUNT(c.id),
			COALESCE(SUM(c.net_sale_price), 0),
			COALESCE(SUM(c.net_sale_price_excl_vat), 0),
			COALESCE(SUM(c.product_cost_excl_vat), 0),
			COALESCE(SUM(c.commission_amount_excl_vat), 0),
			COALESCE(SUM(c.cargo_cost_excl_vat), 0),
			COALESCE(SUM(c.platform_fee_excl_vat), 0),
			COALESCE(SUM(c.net_vat_payable), 0),
			COALESCE(SUM(c.total_cost), 0),
			COALESCE(SUM(c.net_profit), 0),
			COUNT(c.id) FILTER (WHERE c.has_cost_data),
			COUNT(c.id) FILTER (WHERE NOT c.has_cost_data)
		FROM order_item_calculations c
		JOIN order_items oi ON oi.id = c.order_item_id
		JOIN orders o ON o.id = oi.order_id
		WHERE o.seller_id = $1
		  AND o.order_date::date = $2::date
		  AND oi.item_status = 'active'
		  AND o.status = ANY($3)`,
		sellerID, day, RevenueStatuses,
	).Scan(
		&a.TotalItems, &a.TotalRevenue, &a.TotalRevenueExclVAT, &a.TotalProductCost,
		&a.TotalCommission, &a.TotalCargoCost, &a.TotalPlatformFee, &a.TotalVATPayable,
		&a.TotalCost, &a.TotalProfit, &a.ItemsWithCost, &a.ItemsWithoutCost,
	)
	return a, err
}

// CountOrdersForDay counts a seller's revenue-status orders dated on the
// given day.
func (q *Queries) CountOrdersForDay(ctx context.Context, sellerID uuid.UUID, day time.Time) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders
		WHERE seller_id = $1 AND order_date::date = $2::date AND status = ANY($3)`,
		sellerID, day, RevenueStatuses,
	).Scan(&count)
	return count, err
}

const dailySummaryColumns = `id, seller_id, summary_date,
	total_orders, total_items, total_revenue, total_revenue_excl_vat,
	total_product_cost, total_commission, total_cargo_cost, total_platform_fee,
	total_vat_payable, total_cost, total_profit, average_margin,
	items_with_cost, items_without_cost, created_at, updated_at`

func scanDailySummary(row interface{ Scan(...any) error }) (DailyProfitSummary, error) {
	var s DailyProfitSummary
	err := row.Scan(
		&s.ID, &s.SellerID, &s.SummaryDate,
		&s.TotalOrders, &s.TotalItems, &s.TotalRevenue, &s.TotalRevenueExclVAT,
		&s.TotalProductCost, &s.TotalCommission, &s.TotalCargoCost, &s.TotalPlatformFee,
		&s.TotalVATPayable, &s.TotalCost, &s.TotalProfit, &s.AverageMargin,
		&s.ItemsWithCost, &s.ItemsWithoutCost, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// UpsertDailySummaryParams carries a fully recomputed seller-day aggregate.
type UpsertDailySummaryParams struct {
	SellerID    uuid.UUID
	SummaryDate time.Time

	TotalOrders         int32
	TotalItems          int32
	TotalRevenue        decimal.Decimal
	TotalRevenueExclVAT decimal.Decimal
	TotalProductCost    decimal.Decimal
	TotalCommission     decimal.Decimal
	TotalCargoCost      decimal.Decimal
	TotalPlatformFee    decimal.Decimal
	TotalVATPayable     decimal.Decimal
	TotalCost           decimal.Decimal
	TotalProfit         decimal.Decimal
	AverageMargin       decimal.Decimal
	ItemsWithCost       int32
	ItemsWithoutCost    int32
}

// UpsertDailySummary replaces the single summary row for (seller, date).
func (q *Queries) UpsertDailySummary(ctx context.Context, p UpsertDailySummaryParams) (DailyProfitSummary, error) {
	now := time.Now().UTC()
	row := q.db.QueryRow(ctx, `
		INSERT INTO daily_profit_summaries (id, seller_id, summary_date,
			total_orders, total_items, total_revenue, total_revenue_excl_vat,
			total_product_cost, total_commission, total_cargo_cost, total_platform_fee,
			total_vat_payable, total_cost, total_profit, average_margin,
			items_with_cost, items_without_cost, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $18)
		ON CONFLICT (seller_id, summary_date) DO UPDATE SET
			total_orders = EXCLUDED.total_orders,
			total_items = EXCLUDED.total_items,
			total_revenue = EXCLUDED.total_revenue,
			total_revenue_excl_vat = EXCLUDED.total_revenue_excl_vat,
			total_product_cost = EXCLUDED.total_product_cost,
			total_commission = EXCLUDED.total_commission,
			total_cargo_cost = EXCLUDED.total_cargo_cost,
			total_platform_fee = EXCLUDED.total_platform_fee,
			total_vat_payable = EXCLUDED.total_vat_payable,
			total_cost = EXCLUDED.total_cost,
			total_profit = EXCLUDED.total_profit,
			average_margin = EXCLUDED.average_margin,
			items_with_cost = EXCLUDED.items_with_cost,
			items_without_cost = EXCLUDED.items_without_cost,
			updated_at = EXCLUDED.updated_at
		RETURNING `+dailySummaryColumns,
		uuid.New(), p.SellerID, p.SummaryDate,
		p.TotalOrders, p.TotalItems, p.TotalRevenue, p.TotalRevenueExclVAT,
		p.TotalProductCost, p.TotalCommission, p.TotalCargoCost, p.TotalPlatformFee,
		p.TotalVATPayable, p.TotalCost, p.TotalProfit, p.AverageMargin,
		p.ItemsWithCost, p.ItemsWithoutCost, now,
	)
	return scanDailySummary(row)
}

// GetDailySummary returns the summary for (seller, date), or ErrNotFound.
func (q *Queries) GetDailySummary(ctx context.Context, sellerID uuid.UUID, day time.Time) (DailyProfitSummary, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+dailySummaryColumns+` FROM daily_profit_summaries
		 WHERE seller_id = $1 AND summary_date = $2::date`,
		sellerID, day,
	)
	s, err := scanDailySummary(row)
	if err != nil {
		return DailyProfitSummary{}, mapNotFound(err)
	}
	return s, nil
}

// ProductAggregate is the all-time SQL aggregate across a product's active
// calculated lines.
type ProductAggregate struct {
	TotalQuantity int64
	TotalRevenue  decimal.Decimal
	TotalCost     decimal.Decimal
	TotalProfit   decimal.Decimal
}

// AggregateProductProfit computes a product's all-time totals.
func (q *Queries) AggregateProductProfit(ctx context.Context, productID uuid.UUID) (ProductAggregate, error) {
	var a ProductAggregate
	err := q.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(oi.quantity), 0),
			COALESCE(SUM(c.net_sale_price_excl_vat), 0),
			COALESCE(SUM(c.total_cost), 0),
			COALESCE(SUM(c.net_profit), 0)
		FROM order_item_calculations c
		JOIN order_items oi ON oi.id = c.order_item_id
		WHERE oi.product_id = $1
		  AND oi.item_status = 'active'`,
		productID,
	).Scan(&a.TotalQuantity, &a.TotalRevenue, &a.TotalCost, &a.TotalProfit)
	return a, err
}

// AggregateProductProfitSince computes a product's quantity and profit over
// lines whose order date is at or after the cutoff.
func (q *Queries) AggregateProductProfitSince(ctx context.Context, productID uuid.UUID, since time.Time) (quantity int64, prof decimal.Decimal, err error) {
	err = q.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(oi.quantity), 0),
			COALESCE(SUM(c.net_profit), 0)
		FROM order_item_calculations c
		JOIN order_items oi ON oi.id = c.order_item_id
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.product_id = $1
		  AND oi.item_status = 'active'
		  AND o.order_date >= $2`,
		productID, since,
	).Scan(&quantity, &prof)
	return quantity, prof, err
}

const productSummaryColumns = `id, product_id,
	total_quantity_sold, total_revenue, total_cost, total_profit,
	average_profit_per_item, average_margin, is_profitable,
	last_30_days_quantity, last_30_days_profit, created_at, updated_at`

func scanProductSummary(row interface{ Scan(...any) error }) (ProductProfitSummary, error) {
	var s ProductProfitSummary
	err := row.Scan(
		&s.ID, &s.ProductID,
		&s.TotalQuantitySold, &s.TotalRevenue, &s.TotalCost, &s.TotalProfit,
		&s.AverageProfitPerItem, &s.AverageMargin, &s.IsProfitable,
		&s.Last30DaysQuantity, &s.Last30DaysProfit, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// UpsertProductSummaryParams carries a fully recomputed product aggregate.
type UpsertProductSummaryParams struct {
	ProductID uuid.UUID

	TotalQuantitySold    int32
	TotalRevenue         decimal.Decimal
	TotalCost            decimal.Decimal
	TotalProfit          decimal.Decimal
	AverageProfitPerItem decimal.Decimal
	AverageMargin        decimal.Decimal
	IsProfitable         bool
	Last30DaysQuantity   int32
	Last30DaysProfit     decimal.Decimal
}

// UpsertProductSummary replaces the single summary row for a product.
func (q *Queries) UpsertProductSummary(ctx context.Context, p UpsertProductSummaryParams) (ProductProfitSummary, error) {
	now := time.Now().UTC()
	row := q.db.QueryRow(ctx, `
		INSERT INTO product_profit_summaries (id, product_id,
			total_quantity_sold, total_revenue, total_cost, total_profit,
			average_profit_per_item, average_margin, is_profitable,
			last_30_days_quantity, last_30_days_profit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		ON CONFLICT (product_id) DO UPDATE SET
			total_quantity_sold = EXCLUDED.total_quantity_sold,
			total_revenue = EXCLUDED.total_revenue,
			total_cost = EXCLUDED.total_cost,
			total_profit = EXCLUDED.total_profit,
			average_profit_per_item = EXCLUDED.average_profit_per_item,
			average_margin = EXCLUDED.average_margin,
			is_profitable = EXCLUDED.is_profitable,
			last_30_days_quantity = EXCLUDED.last_30_days_quantity,
			last_30_days_profit = EXCLUDED.last_30_days_profit,
			updated_at = EXCLUDED.updated_at
		RETURNING `+productSummaryColumns,
		uuid.New(), p.ProductID,
		p.TotalQuantitySold, p.TotalRevenue, p.TotalCost, p.TotalProfit,
		p.AverageProfitPerItem, p.AverageMargin, p.IsProfitable,
		p.Last30DaysQuantity, p.Last30DaysProfit, now,
	)
	return scanProductSummary(row)
}

// GetProductSummary returns a product's summary row, or ErrNotFound.
func (q *Queries) GetProductSummary(ctx context.Context, productID uuid.UUID) (ProductProfitSummary, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+productSummaryColumns+` FROM product_profit_summaries WHERE product_id = $1`,
		productID,
	)
	s, err := scanProductSummary(row)
	if err != nil {
		return ProductProfitSummary{}, mapNotFound(err)
	}
	return s, nil
}
