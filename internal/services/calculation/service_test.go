package calculation_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karpanel/api/internal/config"
	"github.com/karpanel/api/internal/services/calculation"
	"github.com/karpanel/api/internal/store"
	"github.com/karpanel/api/internal/testutil"
)

var testDB *testutil.TestDB

func TestMain(m *testing.M) {
	var code int
	defer func() { os.Exit(code) }()

	db, err := testutil.SetupTestDB()
	if err != nil {
		log.Fatalf("setting up test database: %v", err)
	}
	defer db.Close()
	testDB = db

	code = m.Run()
}

func newService() *calculation.Service {
	return calculation.NewService(testDB.Pool, testCalcConfig(), nil)
}

func testCalcConfig() config.CalcConfig {
	twenty := decimal.NewFromInt(20)
	return config.CalcConfig{
		SalesVATRate:       twenty,
		PurchaseVATRate:    twenty,
		CargoVATRate:       twenty,
		PlatformVATRate:    twenty,
		CommissionVATRate:  twenty,
		CommissionRate:     decimal.NewFromInt(12),
		WithholdingTaxRate: decimal.Zero,
		MarketplaceVATRate: twenty,
		PendingBatchLimit:  500,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, name string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s: want %s, got %s", name, want, got)
	}
}

// referenceItem seeds the 120.00 TL scenario: one unit, cost 50.00 excl VAT,
// cargo 12.00 and platform fee 6.00 gross (10.00 and 5.00 excl VAT at 20%).
func referenceItem(t *testing.T, orderDate time.Time) (store.Seller, store.Product, store.OrderItem) {
	t.Helper()
	seller := testDB.FixtureSeller(t, "Ornek Magaza")
	product := testDB.FixtureProductWithCost(t, seller.ID, "BRC-120", "Telefon Kilifi", "50.00")
	order := testDB.FixtureOrder(t, seller.ID, uuid.NewString(), orderDate)
	item := testDB.FixtureOrderItem(t, order.ID, testutil.OrderItemFixture{
		Barcode:            "BRC-120",
		ProductName:        "Telefon Kilifi",
		Quantity:           1,
		UnitPrice:          "120.00",
		CargoCost:          "12.00",
		PlatformServiceFee: "6.00",
	})
	return seller, product, item
}

func TestCalculate_StoresFullBreakdown(t *testing.T) {
	testDB.Truncate(t)
	svc := newService()
	ctx := context.Background()

	_, product, item := referenceItem(t, time.Now().UTC())

	calc, err := svc.Calculate(ctx, item.ID)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	assertDecimal(t, "NetSalePrice", calc.NetSalePrice, dec("120.0000"))
	assertDecimal(t, "NetSalePriceExclVAT", calc.NetSalePriceExclVAT, dec("100.0000"))
	assertDecimal(t, "SalesVAT", calc.SalesVAT, dec("20.0000"))
	assertDecimal(t, "ProductCostExclVAT", calc.ProductCostExclVAT, dec("50.0000"))
	assertDecimal(t, "CommissionAmountExclVAT", calc.CommissionAmountExclVAT, dec("12.0000"))
	assertDecimal(t, "CargoCostExclVAT", calc.CargoCostExclVAT, dec("10.0000"))
	assertDecimal(t, "PlatformFeeExclVAT", calc.PlatformFeeExclVAT, dec("5.0000"))
	assertDecimal(t, "TotalInputVAT", calc.TotalInputVAT, dec("15.4000"))
	assertDecimal(t, "NetVATPayable", calc.NetVATPayable, dec("4.6000"))
	assertDecimal(t, "TotalCost", calc.TotalCost, dec("81.6000"))
	assertDecimal(t, "NetProfit", calc.NetProfit, dec("18.4000"))
	assertDecimal(t, "ProfitMarginPercent", calc.ProfitMarginPercent, dec("18.40"))
	if !calc.IsProfitable {
		t.Error("IsProfitable: want true")
	}
	if !calc.HasCostData {
		t.Error("HasCostData: want true")
	}

	q := store.New(testDB.Pool)
	stored, err := q.GetOrderItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetOrderItem: %v", err)
	}
	if !stored.IsCalculated {
		t.Error("order item should be flagged calculated")
	}
	if stored.ProductID == nil || *stored.ProductID != product.ID {
		t.Error("order item should be linked to the catalog product by barcode")
	}
}

func TestCalculate_UpsertReplacesExistingRow(t *testing.T) {
	testDB.Truncate(t)
	svc := newService()
	ctx := context.Background()

	_, _, item := referenceItem(t, time.Now().UTC())

	first, err := svc.Calculate(ctx, item.ID)
	if err != nil {
		t.Fatalf("first Calculate: %v", err)
	}
	second, err := svc.Calculate(ctx, item.ID)
	if err != nil {
		t.Fatalf("second Calculate: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("recalculation should reuse the stored row, got %s then %s", first.ID, second.ID)
	}
	assertDecimal(t, "NetProfit", second.NetProfit, first.NetProfit)

	q := store.New(testDB.Pool)
	count, err := q.CountCalculationsForOrderItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("CountCalculationsForOrderItem: %v", err)
	}
	if count != 1 {
		t.Errorf("want exactly 1 calculation row, got %d", count)
	}
}

func TestCalculate_MissingCostStillCalculates(t *testing.T) {
	testDB.Truncate(t)
	svc := newService()
	ctx := context.Background()

	seller := testDB.FixtureSeller(t, "Maliyetsiz Magaza")
	testDB.FixtureProduct(t, seller.ID, "NO-COST", "Bilinmeyen Urun")
	order := testDB.FixtureOrder(t, seller.ID, uuid.NewString(), time.Now().UTC())
	item := testDB.FixtureOrderItem(t, order.ID, testutil.OrderItemFixture{
		Barcode:     "NO-COST",
		ProductName: "Bilinmeyen Urun",
		Quantity:    1,
		UnitPrice:   "120.00",
	})

	calc, err := svc.Calculate(ctx, item.ID)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if calc.HasCostData {
		t.Error("HasCostData: want false for a product without cost")
	}
	assertDecimal(t, "ProductCostExclVAT", calc.ProductCostExclVAT, decimal.Zero)
	if calc.CalculationNotes == "" {
		t.Error("missing cost should leave an explanatory note")
	}
}

func TestCalculate_ProductCommissionOverridesLineRate(t *testing.T) {
	testDB.Truncate(t)
	svc := newService()
	ctx := context.Background()

	seller := testDB.FixtureSeller(t, "Komisyon Magaza")
	order := testDB.FixtureOrder(t, seller.ID, uuid.NewString(), time.Now().UTC())

	// Catalog override at 15% beats the 10% rate reported on the line.
	overridden := testDB.FixtureProductWithCost(t, seller.ID, "KOM-1", "Urun Bir", "50.00")
	if _, err := testDB.Pool.Exec(ctx,
		`UPDATE products SET commission_rate = 15 WHERE id = $1`, overridden.ID,
	); err != nil {
		t.Fatalf("setting product commission rate: %v", err)
	}
	withOverride := testDB.FixtureOrderItem(t, order.ID, testutil.OrderItemFixture{
		Barcode: "KOM-1", ProductName: "Urun Bir", Quantity: 1,
		UnitPrice: "120.00", CommissionRate: "10.00",
		CargoCost: "12.00", PlatformServiceFee: "6.00",
	})

	// Without an override the line rate applies.
	testDB.FixtureProductWithCost(t, seller.ID, "KOM-2", "Urun Iki", "50.00")
	lineOnly := testDB.FixtureOrderItem(t, order.ID, testutil.OrderItemFixture{
		Barcode: "KOM-2", ProductName: "Urun Iki", Quantity: 1,
		UnitPrice: "120.00", CommissionRate: "10.00",
	})

	calc, err := svc.Calculate(ctx, withOverride.ID)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	assertDecimal(t, "CommissionRate", calc.CommissionRate, dec("15"))
	assertDecimal(t, "CommissionAmountExclVAT", calc.CommissionAmountExclVAT, dec("15.0000"))
	// Versus the 12% reference scenario: commission up 3.00, its VAT up
	// 0.60, net VAT payable down 0.60, so profit drops from 18.40 to 16.00.
	assertDecimal(t, "NetProfit", calc.NetProfit, dec("16.0000"))

	calc, err = svc.Calculate(ctx, lineOnly.ID)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	assertDecimal(t, "line CommissionRate", calc.CommissionRate, dec("10.00"))
	assertDecimal(t, "line CommissionAmountExclVAT", calc.CommissionAmountExclVAT, dec("10.0000"))
}

func TestCalculate_UnknownBarcodeCreatesProduct(t *testing.T) {
	testDB.Truncate(t)
	svc := newService()
	ctx := context.Background()

	seller := testDB.FixtureSeller(t, "Yeni Magaza")
	order := testDB.FixtureOrder(t, seller.ID, uuid.NewString(), time.Now().UTC())
	item := testDB.FixtureOrderItem(t, order.ID, testutil.OrderItemFixture{
		Barcode:     "FRESH-1",
		ProductName: "Katalog Disi Urun",
		Quantity:    1,
		UnitPrice:   "60.00",
	})

	if _, err := svc.Calculate(ctx, item.ID); err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	q := store.New(testDB.Pool)
	product, err := q.GetProductByBarcode(ctx, seller.ID, "FRESH-1")
	if err != nil {
		t.Fatalf("product should exist after calculation: %v", err)
	}
	if product.HasCostData {
		t.Error("auto-created product should have no cost data")
	}
	if product.Title != "Katalog Disi Urun" {
		t.Errorf("auto-created product title: got %q", product.Title)
	}
}

func TestCalculate_UnknownItem(t *testing.T) {
	testDB.Truncate(t)
	svc := newService()

	_, err := svc.Calculate(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("want error for unknown order item")
	}
}

func TestCalculateOrder_SkipsNonActiveItems(t *testing.T) {
	testDB.Truncate(t)
	svc := newService()
	ctx := context.Background()

	seller := testDB.FixtureSeller(t, "Iade Magaza")
	order := testDB.FixtureOrder(t, seller.ID, uuid.NewString(), time.Now().UTC())
	active := testDB.FixtureOrderItem(t, order.ID, testutil.OrderItemFixture{
		Barcode: "A-1", ProductName: "Aktif", Quantity: 1, UnitPrice: "100.00",
	})
	cancelled := testDB.FixtureOrderItem(t, order.ID, testutil.OrderItemFixture{
		Barcode: "A-2", ProductName: "Iptal", Quantity: 1, UnitPrice: "100.00",
		ItemStatus: "cancelled",
	})

	calcs, err := svc.CalculateOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("CalculateOrder: %v", err)
	}
	if len(calcs) != 1 {
		t.Fatalf("results: want 1, got %d", len(calcs))
	}
	if calcs[0].OrderItemID != active.ID {
		t.Errorf("result should belong to the active item, got %s", calcs[0].OrderItemID)
	}

	q := store.New(testDB.Pool)
	if _, err := q.GetOrderItemCalculation(ctx, active.ID); err != nil {
		t.Errorf("active item should have a calculation: %v", err)
	}
	if _, err := q.GetOrderItemCalculation(ctx, cancelled.ID); err == nil {
		t.Error("cancelled item should not have a calculation")
	}
}

func TestCalculateOrder_NonRevenueStatusSkipped(t *testing.T) {
	testDB.Truncate(t)
	svc := newService()
	ctx := context.Background()

	seller := testDB.FixtureSeller(t, "Iptal Magaza")
	order := testDB.FixtureOrderWithStatus(t, seller.ID, uuid.NewString(), time.Now().UTC(), "Cancelled")
	item := testDB.FixtureOrderItem(t, order.ID, testutil.OrderItemFixture{
		Barcode: "C-1", ProductName: "Urun", Quantity: 1, UnitPrice: "100.00",
	})

	calcs, err := svc.CalculateOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("CalculateOrder: %v", err)
	}
	if len(calcs) != 0 {
		t.Errorf("results: want none for cancelled order, got %d", len(calcs))
	}

	q := store.New(testDB.Pool)
	if _, err := q.GetOrderItemCalculation(ctx, item.ID); err == nil {
		t.Error("cancelled order's item should not be calculated")
	}
}

func TestCalculatePending_ProcessesThenDrains(t *testing.T) {
	testDB.Truncate(t)
	svc := newService()
	ctx := context.Background()

	seller := testDB.FixtureSeller(t, "Bekleyen Magaza")
	day := time.Now().UTC()
	orderA := testDB.FixtureOrder(t, seller.ID, uuid.NewString(), day)
	orderB := testDB.FixtureOrder(t, seller.ID, uuid.NewString(), day)
	for i, orderID := range []uuid.UUID{orderA.ID, orderA.ID, orderB.ID} {
		testDB.FixtureOrderItem(t, orderID, testutil.OrderItemFixture{
			Barcode:     uuid.NewString(),
			ProductName: "Urun",
			Quantity:    int32(i + 1),
			UnitPrice:   "50.00",
		})
	}
	// A cancelled order's line must never enter the batch.
	cancelledOrder := testDB.FixtureOrderWithStatus(t, seller.ID, uuid.NewString(), day, "Cancelled")
	testDB.FixtureOrderItem(t, cancelledOrder.ID, testutil.OrderItemFixture{
		Barcode: "SKIP-1", ProductName: "Urun", Quantity: 1, UnitPrice: "50.00",
	})

	processed, failed, err := svc.CalculatePending(ctx, seller.ID, 0)
	if err != nil {
		t.Fatalf("CalculatePending: %v", err)
	}
	if processed != 3 || failed != 0 {
		t.Errorf("first run: want processed=3 failed=0, got processed=%d failed=%d", processed, failed)
	}

	processed, failed, err = svc.CalculatePending(ctx, seller.ID, 0)
	if err != nil {
		t.Fatalf("second CalculatePending: %v", err)
	}
	if processed != 0 || failed != 0 {
		t.Errorf("drained run: want processed=0 failed=0, got processed=%d failed=%d", processed, failed)
	}
}

func TestRecalculateProduct_PicksUpNewCost(t *testing.T) {
	testDB.Truncate(t)
	svc := newService()
	ctx := context.Background()

	_, product, item := referenceItem(t, time.Now().UTC())

	before, err := svc.Calculate(ctx, item.ID)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	assertDecimal(t, "NetProfit before", before.NetProfit, dec("18.4000"))

	q := store.New(testDB.Pool)
	if _, err := q.UpdateProductCost(ctx, store.UpdateProductCostParams{
		ID:          product.ID,
		CostExclVAT: dec("40.00"),
	}); err != nil {
		t.Fatalf("UpdateProductCost: %v", err)
	}

	processed, failed, err := svc.RecalculateProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("RecalculateProduct: %v", err)
	}
	if processed != 1 || failed != 0 {
		t.Fatalf("want processed=1 failed=0, got processed=%d failed=%d", processed, failed)
	}

	after, err := q.GetOrderItemCalculation(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetOrderItemCalculation: %v", err)
	}
	// Cost drops 10.00; purchase VAT drops 2.00, so net VAT payable rises
	// 2.00 and profit improves by the remaining 8.00.
	assertDecimal(t, "ProductCostExclVAT after", after.ProductCostExclVAT, dec("40.0000"))
	assertDecimal(t, "NetProfit after", after.NetProfit, dec("26.4000"))
}

func TestRefreshDailySummary_MatchesStoredCalculations(t *testing.T) {
	testDB.Truncate(t)
	svc := newService()
	ctx := context.Background()

	seller := testDB.FixtureSeller(t, "Gunluk Magaza")
	day := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	order := testDB.FixtureOrder(t, seller.ID, uuid.NewString(), day)

	// Two costed reference lines and one without cost data.
	var items []store.OrderItem
	testDB.FixtureProductWithCost(t, seller.ID, "D-1", "Urun Bir", "50.00")
	for _, barcode := range []string{"D-1", "D-1"} {
		items = append(items, testDB.FixtureOrderItem(t, order.ID, testutil.OrderItemFixture{
			Barcode: barcode, ProductName: "Urun Bir", Quantity: 1,
			UnitPrice: "120.00", CargoCost: "12.00", PlatformServiceFee: "6.00",
		}))
	}
	items = append(items, testDB.FixtureOrderItem(t, order.ID, testutil.OrderItemFixture{
		Barcode: "D-2", ProductName: "Urun Iki", Quantity: 1, UnitPrice: "60.00",
	}))

	if processed, failed, err := svc.CalculatePending(ctx, seller.ID, 0); err != nil || processed != 3 || failed != 0 {
		t.Fatalf("CalculatePending: processed=%d failed=%d err=%v", processed, failed, err)
	}

	summary, err := svc.RefreshDailySummary(ctx, seller.ID, day)
	if err != nil {
		t.Fatalf("RefreshDailySummary: %v", err)
	}

	if summary.TotalOrders != 1 {
		t.Errorf("TotalOrders: want 1, got %d", summary.TotalOrders)
	}
	if summary.TotalItems != 3 {
		t.Errorf("TotalItems: want 3, got %d", summary.TotalItems)
	}
	if summary.ItemsWithCost != 2 || summary.ItemsWithoutCost != 1 {
		t.Errorf("cost split: want 2/1, got %d/%d", summary.ItemsWithCost, summary.ItemsWithoutCost)
	}
	// 2 x 120.00 + 60.00 gross; 2 x 100.0000 + 50.0000 excl VAT.
	assertDecimal(t, "TotalRevenue", summary.TotalRevenue, dec("300.0000"))
	assertDecimal(t, "TotalRevenueExclVAT", summary.TotalRevenueExclVAT, dec("250.0000"))
	assertDecimal(t, "TotalProductCost", summary.TotalProductCost, dec("100.0000"))

	// The summary profit is exactly the sum of the stored line profits.
	q := store.New(testDB.Pool)
	lineProfitSum := decimal.Zero
	for _, item := range items {
		c, err := q.GetOrderItemCalculation(ctx, item.ID)
		if err != nil {
			t.Fatalf("GetOrderItemCalculation: %v", err)
		}
		lineProfitSum = lineProfitSum.Add(c.NetProfit)
	}
	assertDecimal(t, "TotalProfit equals line sum", summary.TotalProfit, lineProfitSum)

	again, err := svc.RefreshDailySummary(ctx, seller.ID, day)
	if err != nil {
		t.Fatalf("second RefreshDailySummary: %v", err)
	}
	if again.ID != summary.ID {
		t.Error("summary refresh should reuse the stored row")
	}
	assertDecimal(t, "TotalProfit stable", again.TotalProfit, summary.TotalProfit)
}

func TestRefreshDailySummary_EmptyDayZeroes(t *testing.T) {
	testDB.Truncate(t)
	svc := newService()
	ctx := context.Background()

	seller := testDB.FixtureSeller(t, "Bos Gun Magaza")
	summary, err := svc.RefreshDailySummary(ctx, seller.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("RefreshDailySummary: %v", err)
	}
	if summary.TotalItems != 0 {
		t.Errorf("TotalItems: want 0, got %d", summary.TotalItems)
	}
	assertDecimal(t, "TotalProfit", summary.TotalProfit, decimal.Zero)
	assertDecimal(t, "AverageMargin", summary.AverageMargin, decimal.Zero)
}

func TestRefreshDailySummaryRange(t *testing.T) {
	testDB.Truncate(t)
	svc := newService()
	ctx := context.Background()

	seller := testDB.FixtureSeller(t, "Aralik Magaza")
	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 2)

	summaries, err := svc.RefreshDailySummaryRange(ctx, seller.ID, from, to)
	if err != nil {
		t.Fatalf("RefreshDailySummaryRange: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("want 3 daily summaries, got %d", len(summaries))
	}

	if _, err := svc.RefreshDailySummaryRange(ctx, seller.ID, to, from); err == nil {
		t.Error("reversed range should be rejected")
	}
}

func TestRefreshProductSummary(t *testing.T) {
	testDB.Truncate(t)
	svc := newService()
	ctx := context.Background()

	seller, product, item := referenceItem(t, time.Now().UTC())
	old := testDB.FixtureOrder(t, seller.ID, uuid.NewString(), time.Now().UTC().AddDate(0, 0, -45))
	oldItem := testDB.FixtureOrderItem(t, old.ID, testutil.OrderItemFixture{
		Barcode: product.Barcode, ProductName: product.Title, Quantity: 2,
		UnitPrice: "120.00", CargoCost: "12.00", PlatformServiceFee: "6.00",
	})

	for _, id := range []uuid.UUID{item.ID, oldItem.ID} {
		if _, err := svc.Calculate(ctx, id); err != nil {
			t.Fatalf("Calculate: %v", err)
		}
	}

	summary, err := svc.RefreshProductSummary(ctx, product.ID)
	if err != nil {
		t.Fatalf("RefreshProductSummary: %v", err)
	}

	if summary.TotalQuantitySold != 3 {
		t.Errorf("TotalQuantitySold: want 3, got %d", summary.TotalQuantitySold)
	}
	if !summary.IsProfitable {
		t.Error("IsProfitable: want true")
	}
	// The 45-day-old line must not count toward the trailing window.
	if summary.Last30DaysQuantity != 1 {
		t.Errorf("Last30DaysQuantity: want 1, got %d", summary.Last30DaysQuantity)
	}
	if summary.TotalProfit.LessThanOrEqual(summary.Last30DaysProfit) {
		t.Error("all-time profit should exceed the trailing-30-day profit here")
	}
}

func TestRefreshProductSummary_UnknownProduct(t *testing.T) {
	testDB.Truncate(t)
	svc := newService()

	if _, err := svc.RefreshProductSummary(context.Background(), uuid.New()); err == nil {
		t.Fatal("want error for unknown product")
	}
}
