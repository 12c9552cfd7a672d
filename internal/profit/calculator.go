// Package profit implements the profit calculation engine for marketplace
// order lines under Turkish VAT rules.
//
// The calculation follows ledger-style accounting: every intermediate
// monetary value is rounded half-up to 4 decimal places as it is produced,
// so each line of the breakdown is independently auditable. The step order
// is load-bearing (rounding a running total is not the same as rounding
// each term), so Calculate runs the steps in a fixed sequence:
//
//  1. gross_sale_price = unit_price × quantity
//  2. net_sale_price = gross_sale_price − discount
//  3. extract sales VAT from the VAT-inclusive net sale price (division,
//     never multiplication on the gross figure)
//  4. product cost + purchase VAT
//  5. commission on the VAT-EXCLUDED sale price (marketplace convention)
//  6. cargo and platform fee, each VAT added on the exclusive base
//  7. VAT settlement: output VAT − input VAT (may go negative = refund)
//  8. withholding tax
//  9. total marketplace deductions (VAT-inclusive retention)
//  10. total cost, including net VAT payable as a real cash flow
//  11. net profit
//  12. profit margin, 2 decimal places, exactly 0 on zero revenue
//
// The calculator is stateless and side-effect free: no I/O, no clock, no
// logging. Warnings (missing cost, refund position, loss) are accumulated
// into the result's Notes field.
package profit

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Calculator computes profit breakdowns. It carries only the default rates
// and is safe for concurrent use.
type Calculator struct {
	defaults Defaults
}

// NewCalculator creates a calculator with the given default rates.
func NewCalculator(defaults Defaults) *Calculator {
	return &Calculator{defaults: defaults}
}

// round4 rounds to calculation precision. decimal.Round rounds half away
// from zero, which matches the statutory half-up convention.
func round4(d decimal.Decimal) decimal.Decimal { return d.Round(4) }

// round2 rounds to display precision.
func round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// ExtractVAT splits a VAT-inclusive amount into its exclusive base and VAT
// portion using the statutory division method:
//
//	base = gross / (1 + rate/100)
//	vat  = gross − base
//
// Both outputs are rounded to 4 decimal places, so base + vat always
// reconstructs the gross amount exactly.
func ExtractVAT(gross, rate decimal.Decimal) (base, vat decimal.Decimal) {
	divisor := one.Add(rate.Div(hundred))
	base = round4(gross.Div(divisor))
	vat = round4(gross.Sub(base))
	return base, vat
}

// AddVAT applies a VAT rate to a VAT-exclusive base:
//
//	vat   = base × rate/100
//	total = base + vat
func AddVAT(base, rate decimal.Decimal) (vat, total decimal.Decimal) {
	vat = round4(base.Mul(rate).Div(hundred))
	total = round4(base.Add(vat))
	return vat, total
}

// resolved is an Input after default-rate resolution: every rate is concrete
// and the absent-cost state is captured in hasCostData.
type resolved struct {
	unitPrice      decimal.Decimal
	quantity       decimal.Decimal
	discountAmount decimal.Decimal

	productCostExclVAT decimal.Decimal
	hasCostData        bool

	salesVATRate       decimal.Decimal
	purchaseVATRate    decimal.Decimal
	commissionRate     decimal.Decimal
	commissionVATRate  decimal.Decimal
	cargoVATRate       decimal.Decimal
	platformVATRate    decimal.Decimal
	withholdingTaxRate decimal.Decimal

	cargoCostExclVAT   decimal.Decimal
	platformFeeExclVAT decimal.Decimal
}

// resolve applies the calculator defaults to unset rate fields. It is the
// single place where fallback decisions are made; Calculate itself never
// inspects optionality.
func (c *Calculator) resolve(in Input) resolved {
	qty := in.Quantity
	if qty == 0 {
		qty = 1
	}

	r := resolved{
		unitPrice:      in.UnitPrice,
		quantity:       decimal.NewFromInt(int64(qty)),
		discountAmount: in.DiscountAmount,

		salesVATRate:       orDefault(in.SalesVATRate, c.defaults.SalesVATRate),
		purchaseVATRate:    orDefault(in.PurchaseVATRate, c.defaults.PurchaseVATRate),
		commissionRate:     orDefault(in.CommissionRate, c.defaults.CommissionRate),
		commissionVATRate:  orDefault(in.CommissionVATRate, c.defaults.CommissionVATRate),
		cargoVATRate:       orDefault(in.CargoVATRate, c.defaults.CargoVATRate),
		platformVATRate:    orDefault(in.PlatformVATRate, c.defaults.PlatformVATRate),
		withholdingTaxRate: orDefault(in.WithholdingTaxRate, c.defaults.WithholdingTaxRate),

		cargoCostExclVAT:   in.CargoCostExclVAT,
		platformFeeExclVAT: in.PlatformFeeExclVAT,
	}

	if in.ProductCostExclVAT != nil {
		r.productCostExclVAT = *in.ProductCostExclVAT
		r.hasCostData = true
	}

	return r
}

func orDefault(v *decimal.Decimal, def decimal.Decimal) decimal.Decimal {
	if v != nil {
		return *v
	}
	return def
}

// Calculate computes the full profit breakdown for one order line.
//
// Business edge cases never produce an error: a missing product cost is
// computed as zero and flagged, a negative net VAT payable is surfaced as a
// refund position, and a zero-revenue line yields a margin of exactly 0.
func (c *Calculator) Calculate(in Input) Result {
	r := c.resolve(in)

	var notes []string

	// Step 1-2: Revenue.
	grossSalePrice := round4(r.unitPrice.Mul(r.quantity))
	netSalePrice := round4(grossSalePrice.Sub(r.discountAmount))

	// Step 3: Extract sales VAT from the VAT-inclusive net sale price.
	netSalePriceExclVAT, salesVAT := ExtractVAT(netSalePrice, r.salesVATRate)

	// Step 4: Product cost with purchase VAT.
	purchaseVAT, productCostInclVAT := AddVAT(r.productCostExclVAT, r.purchaseVATRate)

	if !r.hasCostData {
		notes = append(notes, "product cost not entered, calculated as 0")
	}

	// Step 5: Commission on the VAT-excluded sale price.
	commissionExclVAT := round4(netSalePriceExclVAT.Mul(r.commissionRate).Div(hundred))
	commissionVAT := round4(commissionExclVAT.Mul(r.commissionVATRate).Div(hundred))
	commissionTotal := round4(commissionExclVAT.Add(commissionVAT))

	// Step 6: Cargo and platform fee.
	cargoVAT, cargoCostTotal := AddVAT(r.cargoCostExclVAT, r.cargoVATRate)
	platformFeeVAT, platformFeeTotal := AddVAT(r.platformFeeExclVAT, r.platformVATRate)

	// Step 7: VAT settlement (KDV mahsuplaşma). Output VAT collected on the
	// sale minus input VAT paid on costs. Negative means a refund position
	// and must not be clamped.
	totalOutputVAT := salesVAT
	totalInputVAT := round4(purchaseVAT.Add(commissionVAT).Add(cargoVAT).Add(platformFeeVAT))
	netVATPayable := round4(totalOutputVAT.Sub(totalInputVAT))

	if netVATPayable.IsNegative() {
		notes = append(notes, fmt.Sprintf("VAT refund position: %s", netVATPayable.Abs()))
	}

	// Step 8: Withholding tax, usually zero.
	withholdingTax := round4(netSalePriceExclVAT.Mul(r.withholdingTaxRate).Div(hundred))

	// Step 9: Everything the marketplace retains, VAT-inclusive.
	totalMarketplaceDeductions := round4(commissionTotal.Add(cargoCostTotal).Add(platformFeeTotal))

	// Step 10: Total cost on VAT-exclusive bases. Net VAT payable is a real
	// cash flow to the tax authority (or from it, when negative), so it is
	// part of cost alongside the marketplace deductions.
	totalCost := round4(r.productCostExclVAT.
		Add(netVATPayable).
		Add(commissionExclVAT).
		Add(r.cargoCostExclVAT).
		Add(r.platformFeeExclVAT).
		Add(withholdingTax))

	// Step 11: Net profit.
	netProfit := round4(netSalePriceExclVAT.Sub(totalCost))

	// Step 12: Margin. Zero-revenue lines report exactly 0.
	profitMargin := decimal.Zero
	if netSalePriceExclVAT.IsPositive() {
		profitMargin = round2(netProfit.Div(netSalePriceExclVAT).Mul(hundred))
	}

	// Strictly positive: a break-even line is not profitable.
	isProfitable := netProfit.IsPositive()

	if !isProfitable && r.hasCostData {
		notes = append(notes, "this item is selling at a loss")
	}

	return Result{
		GrossSalePrice: grossSalePrice,
		DiscountAmount: r.discountAmount,
		NetSalePrice:   netSalePrice,

		ProductCostExclVAT: r.productCostExclVAT,
		PurchaseVATRate:    r.purchaseVATRate,
		PurchaseVAT:        purchaseVAT,
		ProductCostInclVAT: productCostInclVAT,

		SalesVATRate:        r.salesVATRate,
		SalesVAT:            salesVAT,
		NetSalePriceExclVAT: netSalePriceExclVAT,

		CommissionRate:          r.commissionRate,
		CommissionAmountExclVAT: commissionExclVAT,
		CommissionVATRate:       r.commissionVATRate,
		CommissionVAT:           commissionVAT,
		CommissionTotal:         commissionTotal,

		CargoCostExclVAT: r.cargoCostExclVAT,
		CargoVATRate:     r.cargoVATRate,
		CargoVAT:         cargoVAT,
		CargoCostTotal:   cargoCostTotal,

		PlatformFeeExclVAT: r.platformFeeExclVAT,
		PlatformFeeVATRate: r.platformVATRate,
		PlatformFeeVAT:     platformFeeVAT,
		PlatformFeeTotal:   platformFeeTotal,

		WithholdingTaxRate: r.withholdingTaxRate,
		WithholdingTax:     withholdingTax,

		TotalOutputVAT: totalOutputVAT,
		TotalInputVAT:  totalInputVAT,
		NetVATPayable:  netVATPayable,

		TotalMarketplaceDeductions: totalMarketplaceDeductions,
		TotalCost:                  totalCost,

		NetProfit:           netProfit,
		ProfitMarginPercent: profitMargin,

		IsProfitable: isProfitable,
		HasCostData:  r.hasCostData,
		Notes:        strings.Join(notes, " | "),
	}
}
