package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karpanel/api/internal/store"
)

// FixtureSeller creates a seller with a 12% default commission and no
// default cargo cost.
func (tdb *TestDB) FixtureSeller(t *testing.T, shopName string) store.Seller {
	t.Helper()
	q := store.New(tdb.Pool)

	seller, err := q.CreateSeller(context.Background(), store.CreateSellerParams{
		ID:                    uuid.New(),
		TrendyolSellerID:      uuid.NewString(),
		ShopName:              shopName,
		DefaultCommissionRate: decimal.NewFromInt(12),
		DefaultCargoCost:      decimal.Zero,
	})
	if err != nil {
		t.Fatalf("creating fixture seller %q: %v", shopName, err)
	}
	return seller
}

// FixtureProduct creates a product without cost data, with 20% VAT rates.
func (tdb *TestDB) FixtureProduct(t *testing.T, sellerID uuid.UUID, barcode, title string) store.Product {
	t.Helper()
	q := store.New(tdb.Pool)

	product, err := q.CreateProduct(context.Background(), store.CreateProductParams{
		ID:              uuid.New(),
		SellerID:        sellerID,
		Barcode:         barcode,
		Title:           title,
		PurchaseVATRate: decimal.NewFromInt(20),
		SalesVATRate:    decimal.NewFromInt(20),
	})
	if err != nil {
		t.Fatalf("creating fixture product %q: %v", barcode, err)
	}
	return product
}

// FixtureProductWithCost creates a product and sets its purchase cost.
func (tdb *TestDB) FixtureProductWithCost(t *testing.T, sellerID uuid.UUID, barcode, title, costExclVAT string) store.Product {
	t.Helper()
	q := store.New(tdb.Pool)

	product := tdb.FixtureProduct(t, sellerID, barcode, title)
	updated, err := q.UpdateProductCost(context.Background(), store.UpdateProductCostParams{
		ID:          product.ID,
		CostExclVAT: decimal.RequireFromString(costExclVAT),
	})
	if err != nil {
		t.Fatalf("setting fixture product cost for %q: %v", barcode, err)
	}
	return updated
}

// FixtureOrder creates an order header in Delivered status.
func (tdb *TestDB) FixtureOrder(t *testing.T, sellerID uuid.UUID, orderNumber string, orderDate time.Time) store.Order {
	t.Helper()
	return tdb.FixtureOrderWithStatus(t, sellerID, orderNumber, orderDate, "Delivered")
}

// FixtureOrderWithStatus creates an order header in the given status.
func (tdb *TestDB) FixtureOrderWithStatus(t *testing.T, sellerID uuid.UUID, orderNumber string, orderDate time.Time, status string) store.Order {
	t.Helper()
	q := store.New(tdb.Pool)

	order, err := q.CreateOrder(context.Background(), store.CreateOrderParams{
		ID:            uuid.New(),
		SellerID:      sellerID,
		OrderNumber:   orderNumber,
		OrderDate:     orderDate,
		Status:        status,
		TotalPrice:    decimal.Zero,
		TotalDiscount: decimal.Zero,
	})
	if err != nil {
		t.Fatalf("creating fixture order %q: %v", orderNumber, err)
	}
	return order
}

// OrderItemFixture describes one order line to create.
type OrderItemFixture struct {
	Barcode            string
	ProductName        string
	Quantity           int32
	UnitPrice          string
	DiscountAmount     string
	CommissionRate     string
	CargoCost          string
	PlatformServiceFee string
	ItemStatus         string
}

// FixtureOrderItem creates one order line. Empty monetary strings default
// to zero; an empty status defaults to active.
func (tdb *TestDB) FixtureOrderItem(t *testing.T, orderID uuid.UUID, f OrderItemFixture) store.OrderItem {
	t.Helper()
	q := store.New(tdb.Pool)

	item, err := q.CreateOrderItem(context.Background(), store.CreateOrderItemParams{
		ID:                 uuid.New(),
		OrderID:            orderID,
		Barcode:            f.Barcode,
		ProductName:        f.ProductName,
		Quantity:           f.Quantity,
		UnitPrice:          decimal.RequireFromString(f.UnitPrice),
		DiscountAmount:     fixtureDec(f.DiscountAmount),
		CommissionRate:     fixtureNullDec(f.CommissionRate),
		CargoCost:          fixtureDec(f.CargoCost),
		PlatformServiceFee: fixtureDec(f.PlatformServiceFee),
		ItemStatus:         f.ItemStatus,
	})
	if err != nil {
		t.Fatalf("creating fixture order item %q: %v", f.Barcode, err)
	}
	return item
}

func fixtureDec(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	return decimal.RequireFromString(s)
}

func fixtureNullDec(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}
