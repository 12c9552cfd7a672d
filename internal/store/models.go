package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Seller is a marketplace seller account. API credentials and sync state
// live outside this service.
type Seller struct {
	ID                    uuid.UUID
	TrendyolSellerID      string
	ShopName              string
	DefaultCommissionRate decimal.Decimal
	DefaultCargoCost      decimal.Decimal
	IsActive              bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Product is a seller's catalog entry. ProductCostExclVAT is nullable: a
// product without an entered cost is a first-class state, tracked by
// HasCostData. CommissionRate overrides the seller default when set.
type Product struct {
	ID                 uuid.UUID
	SellerID           uuid.UUID
	Barcode            string
	ProductCode        string
	Title              string
	Brand              string
	ProductCostExclVAT decimal.NullDecimal
	PurchaseVATRate    decimal.Decimal
	SalesVATRate       decimal.Decimal
	CommissionRate     decimal.NullDecimal
	HasCostData        bool
	CostUpdatedAt      *time.Time
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ProductCostHistory records a superseded cost value.
type ProductCostHistory struct {
	ID            uuid.UUID
	ProductID     uuid.UUID
	CostExclVAT   decimal.Decimal
	VATRate       decimal.Decimal
	EffectiveDate time.Time
	CreatedAt     time.Time
}

// Order is a marketplace order header.
type Order struct {
	ID            uuid.UUID
	SellerID      uuid.UUID
	OrderNumber   string
	OrderDate     time.Time
	Status        string
	TotalPrice    decimal.Decimal
	TotalDiscount decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderItem is a single order line, the unit of profit calculation.
// UnitPrice, CargoCost and PlatformServiceFee are VAT-inclusive as reported
// by the marketplace.
type OrderItem struct {
	ID                 uuid.UUID
	OrderID            uuid.UUID
	ProductID          *uuid.UUID
	Barcode            string
	ProductName        string
	Quantity           int32
	UnitPrice          decimal.Decimal
	DiscountAmount     decimal.Decimal
	CommissionRate     decimal.NullDecimal
	CargoCost          decimal.Decimal
	PlatformServiceFee decimal.Decimal
	ItemStatus         string
	IsCalculated       bool
	CreatedAt          time.Time
}

// OrderItemCalculation is the stored profit breakdown for one order line.
// Exactly one row exists per calculated line; recalculation replaces it.
type OrderItemCalculation struct {
	ID          uuid.UUID
	OrderItemID uuid.UUID

	GrossSalePrice decimal.Decimal
	DiscountAmount decimal.Decimal
	NetSalePrice   decimal.Decimal

	ProductCostExclVAT decimal.Decimal
	PurchaseVATRate    decimal.Decimal
	PurchaseVAT        decimal.Decimal
	ProductCostInclVAT decimal.Decimal

	SalesVATRate        decimal.Decimal
	SalesVAT            decimal.Decimal
	NetSalePriceExclVAT decimal.Decimal

	CommissionRate          decimal.Decimal
	CommissionAmountExclVAT decimal.Decimal
	CommissionVATRate       decimal.Decimal
	CommissionVAT           decimal.Decimal
	CommissionTotal         decimal.Decimal

	CargoCostExclVAT decimal.Decimal
	CargoVATRate     decimal.Decimal
	CargoVAT         decimal.Decimal
	CargoCostTotal   decimal.Decimal

	PlatformFeeExclVAT decimal.Decimal
	PlatformFeeVATRate decimal.Decimal
	PlatformFeeVAT     decimal.Decimal
	PlatformFeeTotal   decimal.Decimal

	WithholdingTaxRate decimal.Decimal
	WithholdingTax     decimal.Decimal

	TotalOutputVAT decimal.Decimal
	TotalInputVAT  decimal.Decimal
	NetVATPayable  decimal.Decimal

	TotalMarketplaceDeductions decimal.Decimal
	TotalCost                  decimal.Decimal

	NetProfit           decimal.Decimal
	ProfitMarginPercent decimal.Decimal

	IsProfitable     bool
	HasCostData      bool
	CalculationNotes string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DailyProfitSummary aggregates one seller-day of calculated lines. It is
// always recomputed wholesale, never patched incrementally.
type DailyProfitSummary struct {
	ID          uuid.UUID
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

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProductProfitSummary aggregates a product's all-time and trailing-30-day
// performance across its active calculated lines.
type ProductProfitSummary struct {
	ID        uuid.UUID
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

	CreatedAt time.Time
	UpdatedAt time.Time
}
