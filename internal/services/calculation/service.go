// Package calculation orchestrates profit calculations over stored orders:
// it resolves each order line's product and rates, runs the calculator, and
// persists exactly one result row per line. It also maintains the daily and
// per-product summary tables, which are always rebuilt from the stored
// calculations rather than patched in place.
package calculation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/karpanel/api/internal/config"
	"github.com/karpanel/api/internal/profit"
	"github.com/karpanel/api/internal/store"
)

var (
	// ErrNotFound is returned when an order, order item, or product does
	// not exist.
	ErrNotFound = errors.New("not found")
)

// Service provides business logic for profit calculation and summaries.
type Service struct {
	queries *store.Queries
	pool    *pgxpool.Pool
	calc    *profit.Calculator
	cfg     config.CalcConfig
	logger  *slog.Logger
}

// NewService creates a new calculation service. The fallback rates in cfg
// seed the calculator's defaults.
func NewService(pool *pgxpool.Pool, cfg config.CalcConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		queries: store.New(pool),
		pool:    pool,
		calc: profit.NewCalculator(profit.Defaults{
			SalesVATRate:       cfg.SalesVATRate,
			PurchaseVATRate:    cfg.PurchaseVATRate,
			CommissionRate:     cfg.CommissionRate,
			CommissionVATRate:  cfg.CommissionVATRate,
			CargoVATRate:       cfg.CargoVATRate,
			PlatformVATRate:    cfg.PlatformVATRate,
			WithholdingTaxRate: cfg.WithholdingTaxRate,
		}),
		cfg:    cfg,
		logger: logger,
	}
}

// Calculate computes and stores the profit breakdown for one order line.
// The whole operation runs in a single transaction: product auto-linking,
// the result upsert, and the line's calculated flag commit together or not
// at all. Calling it again for the same line replaces the stored row, so
// there is never more than one result per line.
func (s *Service) Calculate(ctx context.Context, orderItemID uuid.UUID) (store.OrderItemCalculation, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return store.OrderItemCalculation{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	qtx := s.queries.WithTx(tx)

	item, err := qtx.GetOrderItem(ctx, orderItemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.OrderItemCalculation{}, fmt.Errorf("order item %s: %w", orderItemID, ErrNotFound)
		}
		return store.OrderItemCalculation{}, fmt.Errorf("failed to get order item: %w", err)
	}

	order, err := qtx.GetOrder(ctx, item.OrderID)
	if err != nil {
		return store.OrderItemCalculation{}, fmt.Errorf("failed to get order: %w", err)
	}

	seller, err := qtx.GetSeller(ctx, order.SellerID)
	if err != nil {
		return store.OrderItemCalculation{}, fmt.Errorf("failed to get seller: %w", err)
	}

	product, err := s.resolveProduct(ctx, qtx, &item, seller)
	if err != nil {
		return store.OrderItemCalculation{}, err
	}

	result := s.calc.Calculate(s.buildInput(item, product, seller))

	calc, err := qtx.UpsertOrderItemCalculation(ctx, item.ID, result)
	if err != nil {
		return store.OrderItemCalculation{}, fmt.Errorf("failed to store calculation: %w", err)
	}

	if err := qtx.SetOrderItemCalculated(ctx, item.ID, true); err != nil {
		return store.OrderItemCalculation{}, fmt.Errorf("failed to mark item calculated: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return store.OrderItemCalculation{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("order item calculated",
		"order_item_id", item.ID,
		"order_number", order.OrderNumber,
		"net_profit", calc.NetProfit,
		"has_cost_data", calc.HasCostData,
	)

	return calc, nil
}

// resolveProduct returns the catalog product behind an order line, linking
// by barcode when the line is not linked yet and creating a bare catalog
// entry when the barcode is unknown. A product created here has no cost
// data; its lines still calculate, flagged accordingly.
func (s *Service) resolveProduct(ctx context.Context, qtx *store.Queries, item *store.OrderItem, seller store.Seller) (store.Product, error) {
	if item.ProductID != nil {
		product, err := qtx.GetProduct(ctx, *item.ProductID)
		if err != nil {
			return store.Product{}, fmt.Errorf("failed to get product: %w", err)
		}
		return product, nil
	}

	product, err := qtx.GetProductByBarcode(ctx, seller.ID, item.Barcode)
	if errors.Is(err, store.ErrNotFound) {
		product, err = qtx.CreateProduct(ctx, store.CreateProductParams{
			ID:              uuid.New(),
			SellerID:        seller.ID,
			Barcode:         item.Barcode,
			Title:           item.ProductName,
			PurchaseVATRate: s.cfg.PurchaseVATRate,
			SalesVATRate:    s.cfg.SalesVATRate,
		})
		if err != nil {
			return store.Product{}, fmt.Errorf("failed to create product for barcode %s: %w", item.Barcode, err)
		}
		s.logger.Info("product created from order line",
			"product_id", product.ID,
			"barcode", product.Barcode,
		)
	} else if err != nil {
		return store.Product{}, fmt.Errorf("failed to look up product by barcode: %w", err)
	}

	if err := qtx.LinkOrderItemProduct(ctx, item.ID, product.ID); err != nil {
		return store.Product{}, fmt.Errorf("failed to link order item to product: %w", err)
	}
	item.ProductID = &product.ID

	return product, nil
}

// buildInput assembles the calculator input for one line. The commission
// rate falls through product override -> line rate -> seller default; cargo
// falls back to the seller default when the line reports none. Cargo and
// platform fees arrive VAT-inclusive and are reduced to their bases here.
func (s *Service) buildInput(item store.OrderItem, product store.Product, seller store.Seller) profit.Input {
	in := profit.Input{
		UnitPrice:       item.UnitPrice,
		Quantity:        int(item.Quantity),
		DiscountAmount:  item.DiscountAmount,
		SalesVATRate:    &product.SalesVATRate,
		PurchaseVATRate: &product.PurchaseVATRate,
	}

	if product.HasCostData && product.ProductCostExclVAT.Valid {
		cost := product.ProductCostExclVAT.Decimal
		in.ProductCostExclVAT = &cost
	}

	switch {
	case product.CommissionRate.Valid:
		in.CommissionRate = &product.CommissionRate.Decimal
	case item.CommissionRate.Valid:
		in.CommissionRate = &item.CommissionRate.Decimal
	default:
		in.CommissionRate = &seller.DefaultCommissionRate
	}

	cargoGross := item.CargoCost
	if cargoGross.IsZero() {
		cargoGross = seller.DefaultCargoCost
	}
	in.CargoCostExclVAT, _ = profit.ExtractVAT(cargoGross, s.cfg.MarketplaceVATRate)
	in.PlatformFeeExclVAT, _ = profit.ExtractVAT(item.PlatformServiceFee, s.cfg.MarketplaceVATRate)

	return in
}

// CalculateOrder calculates every active line of one order and returns the
// stored breakdown for each. Orders outside the revenue statuses are skipped
// entirely. Line failures do not abort the rest of the order; the first
// failure is reported after all lines ran, alongside the results that did
// land.
func (s *Service) CalculateOrder(ctx context.Context, orderID uuid.UUID) ([]store.OrderItemCalculation, error) {
	order, err := s.queries.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if !slices.Contains(store.RevenueStatuses, order.Status) {
		s.logger.Info("order skipped, status carries no revenue",
			"order_id", order.ID,
			"status", order.Status,
		)
		return nil, nil
	}

	items, err := s.queries.ListOrderItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}

	var results []store.OrderItemCalculation
	var firstErr error
	for _, item := range items {
		if item.ItemStatus != "active" {
			continue
		}
		calc, err := s.Calculate(ctx, item.ID)
		if err != nil {
			s.logger.Warn("order item calculation failed",
				"order_item_id", item.ID,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		results = append(results, calc)
	}

	return results, firstErr
}

// CalculatePending picks up a seller's uncalculated active lines on
// revenue-status orders and calculates them one by one. A failing line is
// logged and counted, never aborts the batch. limit <= 0 uses the
// configured batch limit.
func (s *Service) CalculatePending(ctx context.Context, sellerID uuid.UUID, limit int) (processed, failed int, err error) {
	if limit <= 0 {
		limit = s.cfg.PendingBatchLimit
	}

	items, err := s.queries.ListPendingOrderItems(ctx, sellerID, int32(limit))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list pending order items: %w", err)
	}

	for _, item := range items {
		if _, err := s.Calculate(ctx, item.ID); err != nil {
			s.logger.Warn("pending item calculation failed",
				"order_item_id", item.ID,
				"error", err,
			)
			failed++
			continue
		}
		processed++
	}

	s.logger.Info("pending batch finished",
		"seller_id", sellerID,
		"processed", processed,
		"failed", failed,
	)

	return processed, failed, nil
}

// RecalculateProduct re-runs the calculation for every active line linked
// to a product. Called after a cost update so stored results pick up the
// new cost.
func (s *Service) RecalculateProduct(ctx context.Context, productID uuid.UUID) (processed, failed int, err error) {
	items, err := s.queries.ListActiveOrderItemsByProduct(ctx, productID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list order items for product: %w", err)
	}

	for _, item := range items {
		if _, err := s.Calculate(ctx, item.ID); err != nil {
			s.logger.Warn("product recalculation failed for item",
				"order_item_id", item.ID,
				"error", err,
			)
			failed++
			continue
		}
		processed++
	}

	s.logger.Info("product recalculated",
		"product_id", productID,
		"processed", processed,
		"failed", failed,
	)

	return processed, failed, nil
}

// RefreshDailySummary rebuilds the summary row for one seller-day from the
// stored calculations and upserts it. Running it twice in a row yields the
// same row.
func (s *Service) RefreshDailySummary(ctx context.Context, sellerID uuid.UUID, day time.Time) (store.DailyProfitSummary, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return store.DailyProfitSummary{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	qtx := s.queries.WithTx(tx)

	agg, err := qtx.AggregateDailyProfit(ctx, sellerID, day)
	if err != nil {
		return store.DailyProfitSummary{}, fmt.Errorf("failed to aggregate daily profit: %w", err)
	}

	orders, err := qtx.CountOrdersForDay(ctx, sellerID, day)
	if err != nil {
		return store.DailyProfitSummary{}, fmt.Errorf("failed to count orders: %w", err)
	}

	summary, err := qtx.UpsertDailySummary(ctx, store.UpsertDailySummaryParams{
		SellerID:            sellerID,
		SummaryDate:         day,
		TotalOrders:         int32(orders),
		TotalItems:          int32(agg.TotalItems),
		TotalRevenue:        agg.TotalRevenue,
		TotalRevenueExclVAT: agg.TotalRevenueExclVAT,
		TotalProductCost:    agg.TotalProductCost,
		TotalCommission:     agg.TotalCommission,
		TotalCargoCost:      agg.TotalCargoCost,
		TotalPlatformFee:    agg.TotalPlatformFee,
		TotalVATPayable:     agg.TotalVATPayable,
		TotalCost:           agg.TotalCost,
		TotalProfit:         agg.TotalProfit,
		AverageMargin:       marginPercent(agg.TotalProfit, agg.TotalRevenueExclVAT),
		ItemsWithCost:       int32(agg.ItemsWithCost),
		ItemsWithoutCost:    int32(agg.ItemsWithoutCost),
	})
	if err != nil {
		return store.DailyProfitSummary{}, fmt.Errorf("failed to upsert daily summary: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return store.DailyProfitSummary{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("daily summary refreshed",
		"seller_id", sellerID,
		"date", day.Format("2006-01-02"),
		"total_items", summary.TotalItems,
		"total_profit", summary.TotalProfit,
	)

	return summary, nil
}

// RefreshDailySummaryRange rebuilds summaries for every day in [from, to],
// inclusive.
func (s *Service) RefreshDailySummaryRange(ctx context.Context, sellerID uuid.UUID, from, to time.Time) ([]store.DailyProfitSummary, error) {
	from = from.Truncate(24 * time.Hour)
	to = to.Truncate(24 * time.Hour)
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range: %s is before %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}

	var summaries []store.DailyProfitSummary
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		summary, err := s.RefreshDailySummary(ctx, sellerID, day)
		if err != nil {
			return summaries, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// RefreshProductSummary rebuilds a product's all-time and trailing-30-day
// aggregate from the stored calculations.
func (s *Service) RefreshProductSummary(ctx context.Context, productID uuid.UUID) (store.ProductProfitSummary, error) {
	if _, err := s.queries.GetProduct(ctx, productID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ProductProfitSummary{}, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return store.ProductProfitSummary{}, fmt.Errorf("failed to get product: %w", err)
	}

	agg, err := s.queries.AggregateProductProfit(ctx, productID)
	if err != nil {
		return store.ProductProfitSummary{}, fmt.Errorf("failed to aggregate product profit: %w", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	recentQty, recentProfit, err := s.queries.AggregateProductProfitSince(ctx, productID, cutoff)
	if err != nil {
		return store.ProductProfitSummary{}, fmt.Errorf("failed to aggregate recent product profit: %w", err)
	}

	avgProfit := decimal.Zero
	if agg.TotalQuantity > 0 {
		avgProfit = agg.TotalProfit.DivRound(decimal.NewFromInt(agg.TotalQuantity), 4)
	}

	summary, err := s.queries.UpsertProductSummary(ctx, store.UpsertProductSummaryParams{
		ProductID:            productID,
		TotalQuantitySold:    int32(agg.TotalQuantity),
		TotalRevenue:         agg.TotalRevenue,
		TotalCost:            agg.TotalCost,
		TotalProfit:          agg.TotalProfit,
		AverageProfitPerItem: avgProfit,
		AverageMargin:        marginPercent(agg.TotalProfit, agg.TotalRevenue),
		IsProfitable:         agg.TotalProfit.IsPositive(),
		Last30DaysQuantity:   int32(recentQty),
		Last30DaysProfit:     recentProfit,
	})
	if err != nil {
		return store.ProductProfitSummary{}, fmt.Errorf("failed to upsert product summary: %w", err)
	}

	return summary, nil
}

// GetCalculation returns the stored breakdown for one order line.
func (s *Service) GetCalculation(ctx context.Context, orderItemID uuid.UUID) (store.OrderItemCalculation, error) {
	calc, err := s.queries.GetOrderItemCalculation(ctx, orderItemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.OrderItemCalculation{}, fmt.Errorf("calculation for item %s: %w", orderItemID, ErrNotFound)
		}
		return store.OrderItemCalculation{}, fmt.Errorf("failed to get calculation: %w", err)
	}
	return calc, nil
}

// GetDailySummary returns the stored summary for one seller-day.
func (s *Service) GetDailySummary(ctx context.Context, sellerID uuid.UUID, day time.Time) (store.DailyProfitSummary, error) {
	summary, err := s.queries.GetDailySummary(ctx, sellerID, day)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.DailyProfitSummary{}, fmt.Errorf("daily summary: %w", ErrNotFound)
		}
		return store.DailyProfitSummary{}, fmt.Errorf("failed to get daily summary: %w", err)
	}
	return summary, nil
}

// GetProductSummary returns the stored summary for one product.
func (s *Service) GetProductSummary(ctx context.Context, productID uuid.UUID) (store.ProductProfitSummary, error) {
	summary, err := s.queries.GetProductSummary(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ProductProfitSummary{}, fmt.Errorf("product summary: %w", ErrNotFound)
		}
		return store.ProductProfitSummary{}, fmt.Errorf("failed to get product summary: %w", err)
	}
	return summary, nil
}

// marginPercent computes profit as a percentage of revenue, rounded to 2
// decimal places. A non-positive revenue yields zero rather than a division
// error or a nonsense percentage.
func marginPercent(prof, revenue decimal.Decimal) decimal.Decimal {
	if !revenue.IsPositive() {
		return decimal.Zero
	}
	return prof.Mul(decimal.NewFromInt(100)).DivRound(revenue, 2)
}
