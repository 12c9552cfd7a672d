package profit

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func newTestCalculator() *Calculator {
	return NewCalculator(StandardDefaults())
}

// referenceInput is the canonical worked example: a 120.00 TL sale with a
// 50.00 TL cost, 20% VAT everywhere, 12% commission, 10.00 cargo and 5.00
// platform fee (both VAT-exclusive).
func referenceInput() Input {
	return Input{
		UnitPrice:          dec("120.00"),
		Quantity:           1,
		DiscountAmount:     decimal.Zero,
		ProductCostExclVAT: decPtr("50.00"),
		CargoCostExclVAT:   dec("10.00"),
		PlatformFeeExclVAT: dec("5.00"),
	}
}

func TestCalculate_ReferenceScenario(t *testing.T) {
	calc := newTestCalculator()
	result := calc.Calculate(referenceInput())

	checks := []struct {
		name string
		got  decimal.Decimal
		want decimal.Decimal
	}{
		{"GrossSalePrice", result.GrossSalePrice, dec("120.0000")},
		{"NetSalePrice", result.NetSalePrice, dec("120.0000")},
		{"NetSalePriceExclVAT", result.NetSalePriceExclVAT, dec("100.0000")},
		{"SalesVAT", result.SalesVAT, dec("20.0000")},
		{"PurchaseVAT", result.PurchaseVAT, dec("10.0000")},
		{"ProductCostInclVAT", result.ProductCostInclVAT, dec("60.0000")},
		{"CommissionAmountExclVAT", result.CommissionAmountExclVAT, dec("12.0000")},
		{"CommissionVAT", result.CommissionVAT, dec("2.4000")},
		{"CommissionTotal", result.CommissionTotal, dec("14.4000")},
		{"CargoVAT", result.CargoVAT, dec("2.0000")},
		{"CargoCostTotal", result.CargoCostTotal, dec("12.0000")},
		{"PlatformFeeVAT", result.PlatformFeeVAT, dec("1.0000")},
		{"PlatformFeeTotal", result.PlatformFeeTotal, dec("6.0000")},
		{"TotalOutputVAT", result.TotalOutputVAT, dec("20.0000")},
		{"TotalInputVAT", result.TotalInputVAT, dec("15.4000")},
		{"NetVATPayable", result.NetVATPayable, dec("4.6000")},
		{"WithholdingTax", result.WithholdingTax, dec("0")},
		{"TotalMarketplaceDeductions", result.TotalMarketplaceDeductions, dec("32.4000")},
		{"TotalCost", result.TotalCost, dec("81.6000")},
		{"NetProfit", result.NetProfit, dec("18.4000")},
		{"ProfitMarginPercent", result.ProfitMarginPercent, dec("18.40")},
	}

	for _, c := range checks {
		if !c.got.Equal(c.want) {
			t.Errorf("%s: want %s, got %s", c.name, c.want, c.got)
		}
	}

	if !result.IsProfitable {
		t.Error("expected IsProfitable true")
	}
	if !result.HasCostData {
		t.Error("expected HasCostData true")
	}
	if result.Notes != "" {
		t.Errorf("expected empty notes, got %q", result.Notes)
	}
}

func TestCalculate_VATExtractionRoundTrip(t *testing.T) {
	// base + vat must reconstruct the gross amount exactly after rounding,
	// including rates that produce repeating decimals.
	tests := []struct {
		gross string
		rate  string
	}{
		{"120.00", "20"},
		{"99.99", "20"},
		{"99.99", "18"},
		{"10.00", "18"},
		{"1234.56", "1"},
		{"0.01", "20"},
		{"777.77", "8"},
		{"100.03", "10"},
	}

	for _, tt := range tests {
		t.Run(tt.gross+"@"+tt.rate, func(t *testing.T) {
			base, vat := ExtractVAT(dec(tt.gross), dec(tt.rate))
			if sum := base.Add(vat); !sum.Equal(dec(tt.gross)) {
				t.Errorf("base %s + vat %s = %s, want %s", base, vat, sum, tt.gross)
			}
		})
	}
}

func TestCalculate_RoundTripOnResult(t *testing.T) {
	calc := newTestCalculator()

	in := referenceInput()
	in.UnitPrice = dec("99.99")
	result := calc.Calculate(in)

	sum := result.NetSalePriceExclVAT.Add(result.SalesVAT)
	if !sum.Equal(result.NetSalePrice) {
		t.Errorf("excl %s + vat %s = %s, want net sale price %s",
			result.NetSalePriceExclVAT, result.SalesVAT, sum, result.NetSalePrice)
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	calc := newTestCalculator()

	first := calc.Calculate(referenceInput())
	second := calc.Calculate(referenceInput())

	if !first.NetProfit.Equal(second.NetProfit) ||
		!first.TotalCost.Equal(second.TotalCost) ||
		!first.NetVATPayable.Equal(second.NetVATPayable) ||
		first.Notes != second.Notes {
		t.Errorf("repeated calculation differs: %+v vs %+v", first, second)
	}
}

func TestCalculate_CostMonotonicity(t *testing.T) {
	calc := newTestCalculator()

	low := referenceInput()
	high := referenceInput()
	high.ProductCostExclVAT = decPtr("60.00")

	lowResult := calc.Calculate(low)
	highResult := calc.Calculate(high)

	if !highResult.NetProfit.LessThan(lowResult.NetProfit) {
		t.Errorf("higher cost should strictly decrease profit: cost 50 -> %s, cost 60 -> %s",
			lowResult.NetProfit, highResult.NetProfit)
	}
}

func TestCalculate_ProfitabilityBoundary(t *testing.T) {
	// With every rate explicitly zero the pipeline degenerates to
	// profit = price - cost, so the boundary can be pinned exactly.
	zero := decimal.Zero
	zeroRates := Input{
		UnitPrice:          dec("50.00"),
		Quantity:           1,
		SalesVATRate:       &zero,
		PurchaseVATRate:    &zero,
		CommissionRate:     &zero,
		CommissionVATRate:  &zero,
		CargoVATRate:       &zero,
		PlatformVATRate:    &zero,
		WithholdingTaxRate: &zero,
	}

	calc := newTestCalculator()

	breakEven := zeroRates
	breakEven.ProductCostExclVAT = decPtr("50.00")
	result := calc.Calculate(breakEven)
	if !result.NetProfit.IsZero() {
		t.Fatalf("expected zero profit, got %s", result.NetProfit)
	}
	if result.IsProfitable {
		t.Error("zero profit must not be profitable")
	}

	justProfitable := zeroRates
	justProfitable.ProductCostExclVAT = decPtr("49.9999")
	result = calc.Calculate(justProfitable)
	if !result.NetProfit.Equal(dec("0.0001")) {
		t.Fatalf("expected profit 0.0001, got %s", result.NetProfit)
	}
	if !result.IsProfitable {
		t.Error("profit of 0.0001 must be profitable")
	}
}

func TestCalculate_MissingCost(t *testing.T) {
	calc := newTestCalculator()

	in := referenceInput()
	in.ProductCostExclVAT = nil
	result := calc.Calculate(in)

	if result.HasCostData {
		t.Error("expected HasCostData false")
	}
	if !result.ProductCostExclVAT.IsZero() {
		t.Errorf("expected zero cost in totals, got %s", result.ProductCostExclVAT)
	}
	if !result.PurchaseVAT.IsZero() {
		t.Errorf("expected zero purchase VAT, got %s", result.PurchaseVAT)
	}
	if !strings.Contains(result.Notes, "product cost not entered") {
		t.Errorf("expected missing-cost note, got %q", result.Notes)
	}
}

func TestCalculate_VATRefundPosition(t *testing.T) {
	calc := newTestCalculator()

	// A 1% sales VAT against 20% input VAT on a substantial cost puts the
	// settlement into a refund position.
	in := Input{
		UnitPrice:          dec("101.00"),
		Quantity:           1,
		SalesVATRate:       decPtr("1"),
		ProductCostExclVAT: decPtr("50.00"),
	}
	result := calc.Calculate(in)

	if !result.NetVATPayable.IsNegative() {
		t.Fatalf("expected negative net VAT payable, got %s", result.NetVATPayable)
	}
	if !strings.Contains(result.Notes, "VAT refund position") {
		t.Errorf("expected refund note, got %q", result.Notes)
	}
}

func TestCalculate_ZeroRevenue(t *testing.T) {
	calc := newTestCalculator()

	result := calc.Calculate(Input{
		UnitPrice:          decimal.Zero,
		Quantity:           1,
		ProductCostExclVAT: decPtr("10.00"),
	})

	if !result.ProfitMarginPercent.IsZero() {
		t.Errorf("zero-revenue margin must be exactly 0, got %s", result.ProfitMarginPercent)
	}
	if result.IsProfitable {
		t.Error("zero-revenue line cannot be profitable")
	}
	if !strings.Contains(result.Notes, "loss") {
		t.Errorf("expected loss note, got %q", result.Notes)
	}
}

func TestCalculate_LossNoteRequiresCostData(t *testing.T) {
	calc := newTestCalculator()

	// Without cost data a non-profitable result is already flagged by the
	// missing-cost note; the loss note would be misleading.
	result := calc.Calculate(Input{UnitPrice: decimal.Zero, Quantity: 1})

	if strings.Contains(result.Notes, "loss") {
		t.Errorf("loss note must not appear without cost data, got %q", result.Notes)
	}
}

func TestCalculate_DefaultResolution(t *testing.T) {
	calc := newTestCalculator()

	// Leave every rate unset: the standard defaults should be echoed back.
	result := calc.Calculate(Input{UnitPrice: dec("120.00"), Quantity: 1})

	if !result.SalesVATRate.Equal(dec("20")) {
		t.Errorf("SalesVATRate default: want 20, got %s", result.SalesVATRate)
	}
	if !result.CommissionRate.Equal(dec("12")) {
		t.Errorf("CommissionRate default: want 12, got %s", result.CommissionRate)
	}
	if !result.WithholdingTaxRate.IsZero() {
		t.Errorf("WithholdingTaxRate default: want 0, got %s", result.WithholdingTaxRate)
	}

	// An explicit zero must not be replaced by a default.
	zero := decimal.Zero
	result = calc.Calculate(Input{
		UnitPrice:      dec("120.00"),
		Quantity:       1,
		CommissionRate: &zero,
	})
	if !result.CommissionAmountExclVAT.IsZero() {
		t.Errorf("explicit zero commission rate ignored: got %s", result.CommissionAmountExclVAT)
	}
}

func TestCalculate_ZeroQuantityTreatedAsOne(t *testing.T) {
	calc := newTestCalculator()

	result := calc.Calculate(Input{UnitPrice: dec("120.00"), Quantity: 0})
	if !result.GrossSalePrice.Equal(dec("120.0000")) {
		t.Errorf("zero quantity: want gross 120.0000, got %s", result.GrossSalePrice)
	}
}

func TestCalculate_QuantityAndDiscount(t *testing.T) {
	calc := newTestCalculator()

	in := Input{
		UnitPrice:          dec("60.00"),
		Quantity:           3,
		DiscountAmount:     dec("30.00"),
		ProductCostExclVAT: decPtr("25.00"),
	}
	result := calc.Calculate(in)

	if !result.GrossSalePrice.Equal(dec("180.0000")) {
		t.Errorf("gross: want 180.0000, got %s", result.GrossSalePrice)
	}
	if !result.NetSalePrice.Equal(dec("150.0000")) {
		t.Errorf("net: want 150.0000, got %s", result.NetSalePrice)
	}
	// 150 / 1.2 = 125 exactly.
	if !result.NetSalePriceExclVAT.Equal(dec("125.0000")) {
		t.Errorf("excl VAT: want 125.0000, got %s", result.NetSalePriceExclVAT)
	}
}

func TestCalculate_PerStepRounding(t *testing.T) {
	calc := newTestCalculator()

	// 99.99 / 1.20 = 83.3250 exactly; commission 12% of that is 9.9990;
	// commission VAT 20% of that is 1.9998. Each figure must carry the
	// per-step rounded value, not a value rounded only at the end.
	in := Input{
		UnitPrice:          dec("99.99"),
		Quantity:           1,
		ProductCostExclVAT: decPtr("33.33"),
	}
	result := calc.Calculate(in)

	if !result.NetSalePriceExclVAT.Equal(dec("83.3250")) {
		t.Errorf("NetSalePriceExclVAT: want 83.3250, got %s", result.NetSalePriceExclVAT)
	}
	if !result.CommissionAmountExclVAT.Equal(dec("9.9990")) {
		t.Errorf("CommissionAmountExclVAT: want 9.9990, got %s", result.CommissionAmountExclVAT)
	}
	if !result.CommissionVAT.Equal(dec("1.9998")) {
		t.Errorf("CommissionVAT: want 1.9998, got %s", result.CommissionVAT)
	}
	// Purchase VAT: 33.33 * 0.20 = 6.6660.
	if !result.PurchaseVAT.Equal(dec("6.6660")) {
		t.Errorf("PurchaseVAT: want 6.6660, got %s", result.PurchaseVAT)
	}
}

func TestCalculate_WithholdingTax(t *testing.T) {
	calc := newTestCalculator()

	in := referenceInput()
	in.WithholdingTaxRate = decPtr("1")
	result := calc.Calculate(in)

	// 1% of 100.0000.
	if !result.WithholdingTax.Equal(dec("1.0000")) {
		t.Errorf("WithholdingTax: want 1.0000, got %s", result.WithholdingTax)
	}
	// Total cost grows by the withholding amount: 81.6 + 1.
	if !result.TotalCost.Equal(dec("82.6000")) {
		t.Errorf("TotalCost: want 82.6000, got %s", result.TotalCost)
	}
	if !result.NetProfit.Equal(dec("17.4000")) {
		t.Errorf("NetProfit: want 17.4000, got %s", result.NetProfit)
	}
}

func TestAddVAT(t *testing.T) {
	tests := []struct {
		base      string
		rate      string
		wantVAT   string
		wantTotal string
	}{
		{"50.00", "20", "10.0000", "60.0000"},
		{"10.00", "20", "2.0000", "12.0000"},
		{"0", "20", "0", "0"},
		{"33.33", "18", "5.9994", "39.3294"},
	}

	for _, tt := range tests {
		t.Run(tt.base+"@"+tt.rate, func(t *testing.T) {
			vat, total := AddVAT(dec(tt.base), dec(tt.rate))
			if !vat.Equal(dec(tt.wantVAT)) {
				t.Errorf("vat: want %s, got %s", tt.wantVAT, vat)
			}
			if !total.Equal(dec(tt.wantTotal)) {
				t.Errorf("total: want %s, got %s", tt.wantTotal, total)
			}
		})
	}
}
