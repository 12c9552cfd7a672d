package product_test

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karpanel/api/internal/services/product"
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

func newService() *product.Service {
	return product.NewService(testDB.Pool, nil)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestUpdateCost_FirstCostSetsFlag(t *testing.T) {
	testDB.Truncate(t)
	svc := newService()
	ctx := context.Background()

	seller := testDB.FixtureSeller(t, "Maliyet Magaza")
	created := testDB.FixtureProduct(t, seller.ID, "CST-1", "Urun")
	if created.HasCostData {
		t.Fatal("new product should have no cost data")
	}

	updated, err := svc.UpdateCost(ctx, created.ID, dec("42.50"), nil)
	if err != nil {
		t.Fatalf("UpdateCost: %v", err)
	}

	if !updated.HasCostData {
		t.Error("HasCostData: want true after cost update")
	}
	if !updated.ProductCostExclVAT.Valid || !updated.ProductCostExclVAT.Decimal.Equal(dec("42.50")) {
		t.Errorf("ProductCostExclVAT: want 42.50, got %v", updated.ProductCostExclVAT)
	}
	if updated.CostUpdatedAt == nil {
		t.Error("CostUpdatedAt should be stamped")
	}

	// The first cost has no predecessor, so no history row yet.
	history, err := svc.ListCostHistory(ctx, created.ID)
	if err != nil {
		t.Fatalf("ListCostHistory: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("want empty history after first cost, got %d rows", len(history))
	}
}

func TestUpdateCost_ArchivesPreviousValue(t *testing.T) {
	testDB.Truncate(t)
	svc := newService()
	ctx := context.Background()

	seller := testDB.FixtureSeller(t, "Tarihce Magaza")
	created := testDB.FixtureProductWithCost(t, seller.ID, "CST-2", "Urun", "30.00")

	vatRate := dec("10")
	updated, err := svc.UpdateCost(ctx, created.ID, dec("35.00"), &vatRate)
	if err != nil {
		t.Fatalf("UpdateCost: %v", err)
	}

	if !updated.ProductCostExclVAT.Decimal.Equal(dec("35.00")) {
		t.Errorf("cost: want 35.00, got %s", updated.ProductCostExclVAT.Decimal)
	}
	if !updated.PurchaseVATRate.Equal(vatRate) {
		t.Errorf("purchase VAT rate: want 10, got %s", updated.PurchaseVATRate)
	}

	history, err := svc.ListCostHistory(ctx, created.ID)
	if err != nil {
		t.Fatalf("ListCostHistory: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("want 1 history row, got %d", len(history))
	}
	if !history[0].CostExclVAT.Equal(dec("30.00")) {
		t.Errorf("archived cost: want 30.00, got %s", history[0].CostExclVAT)
	}
}

func TestUpdateCost_RejectsNegative(t *testing.T) {
	testDB.Truncate(t)
	svc := newService()

	seller := testDB.FixtureSeller(t, "Negatif Magaza")
	created := testDB.FixtureProduct(t, seller.ID, "CST-3", "Urun")

	if _, err := svc.UpdateCost(context.Background(), created.ID, dec("-1.00"), nil); err == nil {
		t.Fatal("negative cost should be rejected")
	}
}

func TestUpdateCost_UnknownProduct(t *testing.T) {
	testDB.Truncate(t)
	svc := newService()

	_, err := svc.UpdateCost(context.Background(), uuid.New(), dec("10.00"), nil)
	if !errors.Is(err, product.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestListBySeller(t *testing.T) {
	testDB.Truncate(t)
	svc := newService()
	ctx := context.Background()

	seller := testDB.FixtureSeller(t, "Liste Magaza")
	other := testDB.FixtureSeller(t, "Baska Magaza")
	testDB.FixtureProduct(t, seller.ID, "L-1", "Bir")
	testDB.FixtureProduct(t, seller.ID, "L-2", "Iki")
	testDB.FixtureProduct(t, other.ID, "L-3", "Uc")

	products, err := svc.ListBySeller(ctx, seller.ID)
	if err != nil {
		t.Fatalf("ListBySeller: %v", err)
	}
	if len(products) != 2 {
		t.Errorf("want 2 products, got %d", len(products))
	}
}
