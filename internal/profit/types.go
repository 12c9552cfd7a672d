package profit

import "github.com/shopspring/decimal"

// Input holds everything needed to compute the profit breakdown for a single
// order line. All monetary amounts are decimal; all rates are percentages on
// a 0-100 scale (20.00 means 20%).
//
// UnitPrice and DiscountAmount are VAT-inclusive, as reported by the
// marketplace. CargoCostExclVAT and PlatformFeeExclVAT are VAT-exclusive
// bases; callers holding VAT-inclusive figures extract the base first with
// ExtractVAT.
//
// Pointer fields are optional. A nil ProductCostExclVAT means the cost is
// unknown, which is a distinct state from a zero cost. Nil rate fields fall
// back to the calculator's configured defaults.
type Input struct {
	UnitPrice      decimal.Decimal
	Quantity       int
	DiscountAmount decimal.Decimal

	ProductCostExclVAT *decimal.Decimal

	SalesVATRate       *decimal.Decimal
	PurchaseVATRate    *decimal.Decimal
	CommissionRate     *decimal.Decimal
	CommissionVATRate  *decimal.Decimal
	CargoVATRate       *decimal.Decimal
	PlatformVATRate    *decimal.Decimal
	WithholdingTaxRate *decimal.Decimal

	CargoCostExclVAT   decimal.Decimal
	PlatformFeeExclVAT decimal.Decimal
}

// Result is the complete, immutable profit breakdown for one order line.
// Monetary values carry 4 decimal places; ProfitMarginPercent is rounded to
// 2 for display. Rates echo the effective values used, after default
// resolution.
type Result struct {
	// Revenue
	GrossSalePrice decimal.Decimal
	DiscountAmount decimal.Decimal
	NetSalePrice   decimal.Decimal

	// Product cost
	ProductCostExclVAT decimal.Decimal
	PurchaseVATRate    decimal.Decimal
	PurchaseVAT        decimal.Decimal
	ProductCostInclVAT decimal.Decimal

	// Sales VAT
	SalesVATRate        decimal.Decimal
	SalesVAT            decimal.Decimal
	NetSalePriceExclVAT decimal.Decimal

	// Commission
	CommissionRate          decimal.Decimal
	CommissionAmountExclVAT decimal.Decimal
	CommissionVATRate       decimal.Decimal
	CommissionVAT           decimal.Decimal
	CommissionTotal         decimal.Decimal

	// Cargo
	CargoCostExclVAT decimal.Decimal
	CargoVATRate     decimal.Decimal
	CargoVAT         decimal.Decimal
	CargoCostTotal   decimal.Decimal

	// Platform service fee
	PlatformFeeExclVAT decimal.Decimal
	PlatformFeeVATRate decimal.Decimal
	PlatformFeeVAT     decimal.Decimal
	PlatformFeeTotal   decimal.Decimal

	// Withholding tax
	WithholdingTaxRate decimal.Decimal
	WithholdingTax     decimal.Decimal

	// VAT settlement
	TotalOutputVAT decimal.Decimal
	TotalInputVAT  decimal.Decimal
	NetVATPayable  decimal.Decimal

	// Totals
	TotalMarketplaceDeductions decimal.Decimal
	TotalCost                  decimal.Decimal

	// Profit
	NetProfit           decimal.Decimal
	ProfitMarginPercent decimal.Decimal

	// Flags
	IsProfitable bool
	HasCostData  bool
	Notes        string
}

// Defaults holds the fallback rates applied when an Input leaves a rate unset.
// All values are on the 0-100 percentage scale.
type Defaults struct {
	SalesVATRate       decimal.Decimal
	PurchaseVATRate    decimal.Decimal
	CommissionRate     decimal.Decimal
	CommissionVATRate  decimal.Decimal
	CargoVATRate       decimal.Decimal
	PlatformVATRate    decimal.Decimal
	WithholdingTaxRate decimal.Decimal
}

// StandardDefaults returns the conventional Turkish marketplace defaults:
// 20% VAT across the board, 12% commission, no withholding.
func StandardDefaults() Defaults {
	twenty := decimal.NewFromInt(20)
	return Defaults{
		SalesVATRate:       twenty,
		PurchaseVATRate:    twenty,
		CommissionRate:     decimal.NewFromInt(12),
		CommissionVATRate:  twenty,
		CargoVATRate:       twenty,
		PlatformVATRate:    twenty,
		WithholdingTaxRate: decimal.Zero,
	}
}
