package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/karpanel/api/internal/profit"
)

const calculationColumns = `id, order_item_id,
	gross_sale_price, discount_amount, net_sale_price,
	product_cost_excl_vat, purchase_vat_rate, purchase_vat, product_cost_incl_vat,
	sales_vat_rate, sales_vat, net_sale_price_excl_vat,
	commission_rate, commission_amount_excl_vat, commission_vat_rate, commission_vat, commission_total,
	cargo_cost_excl_vat, cargo_vat_rate, cargo_vat, cargo_cost_total,
	platform_fee_excl_vat, platform_fee_vat_rate, platform_fee_vat, platform_fee_total,
	withholding_tax_rate, withholding_tax,
	total_output_vat, total_input_vat, net_vat_payable,
	total_marketplace_deductions, total_cost,
	net_profit, profit_margin_percent,
	is_profitable, has_cost_data, calculation_notes,
	created_at, updated_at`

func scanCalculation(row interface{ Scan(...any) error }) (OrderItemCalculation, error) {
	var c OrderItemCalculation
	err := row.Scan(
		&c.ID, &c.OrderItemID,
		&c.GrossSalePrice, &c.DiscountAmount, &c.NetSalePrice,
		&c.ProductCostExclVAT, &c.PurchaseVATRate, &c.PurchaseVAT, &c.ProductCostInclVAT,
		&c.SalesVATRate, &c.SalesVAT, &c.NetSalePriceExclVAT,
		&c.CommissionRate, &c.CommissionAmountExclVAT, &c.CommissionVATRate, &c.CommissionVAT, &c.CommissionTotal,
		&c.CargoCostExclVAT, &c.CargoVATRate, &c.CargoVAT, &c.CargoCostTotal,
		&c.PlatformFeeExclVAT, &c.PlatformFeeVATRate, &c.PlatformFeeVAT, &c.PlatformFeeTotal,
		&c.WithholdingTaxRate, &c.WithholdingTax,
		&c.TotalOutputVAT, &c.TotalInputVAT, &c.NetVATPayable,
		&c.TotalMarketplaceDeductions, &c.TotalCost,
		&c.NetProfit, &c.ProfitMarginPercent,
		&c.IsProfitable, &c.HasCostData, &c.CalculationNotes,
		&c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// UpsertOrderItemCalculation stores a profit breakdown for an order line.
// The UNIQUE constraint on order_item_id guarantees at most one row per line;
// a recalculation fully replaces the previous breakdown.
func (q *Queries) UpsertOrderItemCalculation(ctx context.Context, orderItemID uuid.UUID, r profit.Result) (OrderItemCalculation, error) {
	now := time.Now().UTC()
	row := q.db.QueryRow(ctx, `
		INSERT INTO order_item_calculations (id, order_item_id,
			gross_sale_price, discount_amount, net_sale_price,
			product_cost_excl_vat, purchase_vat_rate, purchase_vat, product_cost_incl_vat,
			sales_vat_rate, sales_vat, net_sale_price_excl_vat,
			commission_rate, commission_amount_excl_vat, commission_vat_rate, commission_vat, commission_total,
			cargo_cost_excl_vat, cargo_vat_rate, cargo_vat, cargo_cost_total,
			platform_fee_excl_vat, platform_fee_vat_rate, platform_fee_vat, platform_fee_total,
			withholding_tax_rate, withholding_tax,
			total_output_vat, total_input_vat, net_vat_payable,
			total_marketplace_deductions, total_cost,
			net_profit, profit_margin_percent,
			is_profitable, has_cost_data, calculation_notes,
			created_at, updated_at)
		VALUES ($1, $2,
			$3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12,
			$13, $14, $15, $16, $17,
			$18, $19, $20, $21,
			$22, $23, $24, $25,
			$26, $27,
			$28, $29, $30,
			$31, $32,
			$33, $34,
			$35, $36, $37,
			$38, $38)
		ON CONFLICT (order_item_id) DO UPDATE SET
			gross_sale_price = EXCLUDED.gross_sale_price,
			discount_amount = EXCLUDED.discount_amount,
			net_sale_price = EXCLUDED.net_sale_price,
			product_cost_excl_vat = EXCLUDED.product_cost_excl_vat,
			purchase_vat_rate = EXCLUDED.purchase_vat_rate,
			purchase_vat = EXCLUDED.purchase_vat,
			product_cost_incl_vat = EXCLUDED.product_cost_incl_vat,
			sales_vat_rate = EXCLUDED.sales_vat_rate,
			sales_vat = EXCLUDED.sales_vat,
			net_sale_price_excl_vat = EXCLUDED.net_sale_price_excl_vat,
			commission_rate = EXCLUDED.commission_rate,
			commission_amount_excl_vat = EXCLUDED.commission_amount_excl_vat,
			commission_vat_rate = EXCLUDED.commission_vat_rate,
			commission_vat = EXCLUDED.commission_vat,
			commission_total = EXCLUDED.commission_total,
			cargo_cost_excl_vat = EXCLUDED.cargo_cost_excl_vat,
			cargo_vat_rate = EXCLUDED.cargo_vat_rate,
			cargo_vat = EXCLUDED.cargo_vat,
			cargo_cost_total = EXCLUDED.cargo_cost_total,
			platform_fee_excl_vat = EXCLUDED.platform_fee_excl_vat,
			platform_fee_vat_rate = EXCLUDED.platform_fee_vat_rate,
			platform_fee_vat = EXCLUDED.platform_fee_vat,
			platform_fee_total = EXCLUDED.platform_fee_total,
			withholding_tax_rate = EXCLUDED.withholding_tax_rate,
			withholding_tax = EXCLUDED.withholding_tax,
			total_output_vat = EXCLUDED.total_output_vat,
			total_input_vat = EXCLUDED.total_input_vat,
			net_vat_payable = EXCLUDED.net_vat_payable,
			total_marketplace_deductions = EXCLUDED.total_marketplace_deductions,
			total_cost = EXCLUDED.total_cost,
			net_profit = EXCLUDED.net_profit,
			profit_margin_percent = EXCLUDED.profit_margin_percent,
			is_profitable = EXCLUDED.is_profitable,
			has_cost_data = EXCLUDED.has_cost_data,
			calculation_notes = EXCLUDED.calculation_notes,
			updated_at = EXCLUDED.updated_at
		RETURNING `+calculationColumns,
		uuid.New(), orderItemID,
		r.GrossSalePrice, r.DiscountAmount, r.NetSalePrice,
		r.ProductCostExclVAT, r.PurchaseVATRate, r.PurchaseVAT, r.ProductCostInclVAT,
		r.SalesVATRate, r.SalesVAT, r.NetSalePriceExclVAT,
		r.CommissionRate, r.CommissionAmountExclVAT, r.CommissionVATRate, r.CommissionVAT, r.CommissionTotal,
		r.CargoCostExclVAT, r.CargoVATRate, r.CargoVAT, r.CargoCostTotal,
		r.PlatformFeeExclVAT, r.PlatformFeeVATRate, r.PlatformFeeVAT, r.PlatformFeeTotal,
		r.WithholdingTaxRate, r.WithholdingTax,
		r.TotalOutputVAT, r.TotalInputVAT, r.NetVATPayable,
		r.TotalMarketplaceDeductions, r.TotalCost,
		r.NetProfit, r.ProfitMarginPercent,
		r.IsProfitable, r.HasCostData, r.Notes,
		now,
	)
	return scanCalculation(row)
}

// GetOrderItemCalculation returns the stored breakdown for an order line,
// or ErrNotFound if the line has not been calculated.
func (q *Queries) GetOrderItemCalculation(ctx context.Context, orderItemID uuid.UUID) (OrderItemCalculation, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+calculationColumns+` FROM order_item_calculations WHERE order_item_id = $1`,
		orderItemID,
	)
	c, err := scanCalculation(row)
	if err != nil {
		return OrderItemCalculation{}, mapNotFound(err)
	}
	return c, nil
}

// CountCalculationsForOrderItem reports how many calculation rows exist for
// a line. The schema allows at most one; this exists for invariant checks.
func (q *Queries) CountCalculationsForOrderItem(ctx context.Context, orderItemID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM order_item_calculations WHERE order_item_id = $1`,
		orderItemID,
	).Scan(&count)
	return count, err
}
