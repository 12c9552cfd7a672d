package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karpanel/api/internal/services/calculation"
	"github.com/karpanel/api/internal/store"
)

// CalculationHandler holds dependencies for calculation API endpoints.
type CalculationHandler struct {
	calcSvc *calculation.Service
	logger  *slog.Logger
}

// NewCalculationHandler creates a new calculation handler.
func NewCalculationHandler(calcSvc *calculation.Service, logger *slog.Logger) *CalculationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CalculationHandler{
		calcSvc: calcSvc,
		logger:  logger,
	}
}

// RegisterRoutes registers all calculation API routes on the given mux.
func (h *CalculationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/order-items/{id}/calculate", h.CalculateItem)
	mux.HandleFunc("GET /api/order-items/{id}/calculation", h.GetCalculation)
	mux.HandleFunc("POST /api/orders/{id}/calculate", h.CalculateOrder)
	mux.HandleFunc("POST /api/sellers/{id}/calculate-pending", h.CalculatePending)
	mux.HandleFunc("POST /api/sellers/{id}/daily-summary/{date}/refresh", h.RefreshDailySummary)
	mux.HandleFunc("GET /api/sellers/{id}/daily-summary/{date}", h.GetDailySummary)
	mux.HandleFunc("POST /api/products/{id}/recalculate", h.RecalculateProduct)
	mux.HandleFunc("POST /api/products/{id}/summary/refresh", h.RefreshProductSummary)
	mux.HandleFunc("GET /api/products/{id}/summary", h.GetProductSummary)
}

// --- JSON response types ---

type calculationJSON struct {
	ID          uuid.UUID `json:"id"`
	OrderItemID uuid.UUID `json:"order_item_id"`

	GrossSalePrice decimal.Decimal `json:"gross_sale_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	NetSalePrice   decimal.Decimal `json:"net_sale_price"`

	ProductCostExclVAT decimal.Decimal `json:"product_cost_excl_vat"`
	PurchaseVATRate    decimal.Decimal `json:"purchase_vat_rate"`
	PurchaseVAT        decimal.Decimal `json:"purchase_vat"`
	ProductCostInclVAT decimal.Decimal `json:"product_cost_incl_vat"`

	SalesVATRate        decimal.Decimal `json:"sales_vat_rate"`
	SalesVAT            decimal.Decimal `json:"sales_vat"`
	NetSalePriceExclVAT decimal.Decimal `json:"net_sale_price_excl_vat"`

	CommissionRate          decimal.Decimal `json:"commission_rate"`
	CommissionAmountExclVAT decimal.Decimal `json:"commission_amount_excl_vat"`
	CommissionVATRate       decimal.Decimal `json:"commission_vat_rate"`
	CommissionVAT           decimal.Decimal `json:"commission_vat"`
	CommissionTotal         decimal.Decimal `json:"commission_total"`

	CargoCostExclVAT decimal.Decimal `json:"cargo_cost_excl_vat"`
	CargoVATRate     decimal.Decimal `json:"cargo_vat_rate"`
	CargoVAT         decimal.Decimal `json:"cargo_vat"`
	CargoCostTotal   decimal.Decimal `json:"cargo_cost_total"`

	PlatformFeeExclVAT decimal.Decimal `json:"platform_fee_excl_vat"`
	PlatformFeeVATRate decimal.Decimal `json:"platform_fee_vat_rate"`
	PlatformFeeVAT     decimal.Decimal `json:"platform_fee_vat"`
	PlatformFeeTotal   decimal.Decimal `json:"platform_fee_total"`

	WithholdingTaxRate decimal.Decimal `json:"withholding_tax_rate"`
	WithholdingTax     decimal.Decimal `json:"withholding_tax"`

	TotalOutputVAT decimal.Decimal `json:"total_output_vat"`
	TotalInputVAT  decimal.Decimal `json:"total_input_vat"`
	NetVATPayable  decimal.Decimal `json:"net_vat_payable"`

	TotalMarketplaceDeductions decimal.Decimal `json:"total_marketplace_deductions"`
	TotalCost                  decimal.Decimal `json:"total_cost"`

	NetProfit           decimal.Decimal `json:"net_profit"`
	ProfitMarginPercent decimal.Decimal `json:"profit_margin_percent"`

	IsProfitable     bool   `json:"is_profitable"`
	HasCostData      bool   `json:"has_cost_data"`
	CalculationNotes string `json:"calculation_notes,omitempty"`

	UpdatedAt string `json:"updated_at"`
}

func toCalculationJSON(c store.OrderItemCalculation) calculationJSON {
	return calculationJSON{
		ID:          c.ID,
		OrderItemID: c.OrderItemID,

		GrossSalePrice: c.GrossSalePrice,
		DiscountAmount: c.DiscountAmount,
		NetSalePrice:   c.NetSalePrice,

		ProductCostExclVAT: c.ProductCostExclVAT,
		PurchaseVATRate:    c.PurchaseVATRate,
		PurchaseVAT:        c.PurchaseVAT,
		ProductCostInclVAT: c.ProductCostInclVAT,

		SalesVATRate:        c.SalesVATRate,
		SalesVAT:            c.SalesVAT,
		NetSalePriceExclVAT: c.NetSalePriceExclVAT,

		CommissionRate:          c.CommissionRate,
		CommissionAmountExclVAT: c.CommissionAmountExclVAT,
		CommissionVATRate:       c.CommissionVATRate,
		CommissionVAT:           c.CommissionVAT,
		CommissionTotal:         c.CommissionTotal,

		CargoCostExclVAT: c.CargoCostExclVAT,
		CargoVATRate:     c.CargoVATRate,
		CargoVAT:         c.CargoVAT,
		CargoCostTotal:   c.CargoCostTotal,

		PlatformFeeExclVAT: c.PlatformFeeExclVAT,
		PlatformFeeVATRate: c.PlatformFeeVATRate,
		PlatformFeeVAT:     c.PlatformFeeVAT,
		PlatformFeeTotal:   c.PlatformFeeTotal,

		WithholdingTaxRate: c.WithholdingTaxRate,
		WithholdingTax:     c.WithholdingTax,

		TotalOutputVAT: c.TotalOutputVAT,
		TotalInputVAT:  c.TotalInputVAT,
		NetVATPayable:  c.NetVATPayable,

		TotalMarketplaceDeductions: c.TotalMarketplaceDeductions,
		TotalCost:                  c.TotalCost,

		NetProfit:           c.NetProfit,
		ProfitMarginPercent: c.ProfitMarginPercent,

		IsProfitable:     c.IsProfitable,
		HasCostData:      c.HasCostData,
		CalculationNotes: c.CalculationNotes,

		UpdatedAt: c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type batchResultJSON struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

type orderResultsJSON struct {
	Processed int               `json:"processed"`
	Results   []calculationJSON `json:"results"`
}

type dailySummaryJSON struct {
	SellerID    uuid.UUID `json:"seller_id"`
	SummaryDate string    `json:"summary_date"`

	TotalOrders         int32           `json:"total_orders"`
	TotalItems          int32           `json:"total_items"`
	TotalRevenue        decimal.Decimal `json:"total_revenue"`
	TotalRevenueExclVAT decimal.Decimal `json:"total_revenue_excl_vat"`
	TotalProductCost    decimal.Decimal `json:"total_product_cost"`
	TotalCommission     decimal.Decimal `json:"total_commission"`
	TotalCargoCost      decimal.Decimal `json:"total_cargo_cost"`
	TotalPlatformFee    decimal.Decimal `json:"total_platform_fee"`
	TotalVATPayable     decimal.Decimal `json:"total_vat_payable"`
	TotalCost           decimal.Decimal `json:"total_cost"`
	TotalProfit         decimal.Decimal `json:"total_profit"`
	AverageMargin       decimal.Decimal `json:"average_margin"`
	ItemsWithCost       int32           `json:"items_with_cost"`
	ItemsWithoutCost    int32           `json:"items_without_cost"`
}

func toDailySummaryJSON(s store.DailyProfitSummary) dailySummaryJSON {
	return dailySummaryJSON{
		SellerID:    s.SellerID,
		SummaryDate: s.SummaryDate.Format("2006-01-02"),

		TotalOrders:         s.TotalOrders,
		TotalItems:          s.TotalItems,
		TotalRevenue:        s.TotalRevenue,
		TotalRevenueExclVAT: s.TotalRevenueExclVAT,
		TotalProductCost:    s.TotalProductCost,
		TotalCommission:     s.TotalCommission,
		TotalCargoCost:      s.TotalCargoCost,
		TotalPlatformFee:    s.TotalPlatformFee,
		TotalVATPayable:     s.TotalVATPayable,
		TotalCost:           s.TotalCost,
		TotalProfit:         s.TotalProfit,
		AverageMargin:       s.AverageMargin,
		ItemsWithCost:       s.ItemsWithCost,
		ItemsWithoutCost:    s.ItemsWithoutCost,
	}
}

type productSummaryJSON struct {
	ProductID uuid.UUID `json:"product_id"`

	TotalQuantitySold    int32           `json:"total_quantity_sold"`
	TotalRevenue         decimal.Decimal `json:"total_revenue"`
	TotalCost            decimal.Decimal `json:"total_cost"`
	TotalProfit          decimal.Decimal `json:"total_profit"`
	AverageProfitPerItem decimal.Decimal `json:"average_profit_per_item"`
	AverageMargin        decimal.Decimal `json:"average_margin"`
	IsProfitable         bool            `json:"is_profitable"`
	Last30DaysQuantity   int32           `json:"last_30_days_quantity"`
	Last30DaysProfit     decimal.Decimal `json:"last_30_days_profit"`
}

func toProductSummaryJSON(s store.ProductProfitSummary) productSummaryJSON {
	return productSummaryJSON{
		ProductID: s.ProductID,

		TotalQuantitySold:    s.TotalQuantitySold,
		TotalRevenue:         s.TotalRevenue,
		TotalCost:            s.TotalCost,
		TotalProfit:          s.TotalProfit,
		AverageProfitPerItem: s.AverageProfitPerItem,
		AverageMargin:        s.AverageMargin,
		IsProfitable:         s.IsProfitable,
		Last30DaysQuantity:   s.Last30DaysQuantity,
		Last30DaysProfit:     s.Last30DaysProfit,
	}
}

// --- Handlers ---

// CalculateItem handles POST /api/order-items/{id}/calculate
func (h *CalculationHandler) CalculateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	calc, err := h.calcSvc.Calculate(r.Context(), id)
	if err != nil {
		if errors.Is(err, calculation.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorJSON{Error: "order item not found"})
			return
		}
		h.logger.Error("failed to calculate order item", "order_item_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCalculationJSON(calc))
}

// GetCalculation handles GET /api/order-items/{id}/calculation
func (h *CalculationHandler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	calc, err := h.calcSvc.GetCalculation(r.Context(), id)
	if err != nil {
		if errors.Is(err, calculation.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorJSON{Error: "calculation not found"})
			return
		}
		h.logger.Error("failed to get calculation", "order_item_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCalculationJSON(calc))
}

// CalculateOrder handles POST /api/orders/{id}/calculate
func (h *CalculationHandler) CalculateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	calcs, err := h.calcSvc.CalculateOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, calculation.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorJSON{Error: "order not found"})
			return
		}
		h.logger.Error("failed to calculate order", "order_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	results := make([]calculationJSON, len(calcs))
	for i, c := range calcs {
		results[i] = toCalculationJSON(c)
	}
	writeJSON(w, http.StatusOK, orderResultsJSON{Processed: len(calcs), Results: results})
}

// CalculatePending handles POST /api/sellers/{id}/calculate-pending
func (h *CalculationHandler) CalculatePending(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var limit int
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorJSON{Error: "invalid limit"})
			return
		}
		limit = n
	}

	processed, failed, err := h.calcSvc.CalculatePending(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("failed to calculate pending items", "seller_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, batchResultJSON{Processed: processed, Failed: failed})
}

// RecalculateProduct handles POST /api/products/{id}/recalculate
func (h *CalculationHandler) RecalculateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	processed, failed, err := h.calcSvc.RecalculateProduct(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to recalculate product", "product_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, batchResultJSON{Processed: processed, Failed: failed})
}

// RefreshDailySummary handles POST /api/sellers/{id}/daily-summary/{date}/refresh
func (h *CalculationHandler) RefreshDailySummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	day, err := time.Parse("2006-01-02", r.PathValue("date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "invalid date, expected YYYY-MM-DD"})
		return
	}

	summary, err := h.calcSvc.RefreshDailySummary(r.Context(), id, day)
	if err != nil {
		h.logger.Error("failed to refresh daily summary", "seller_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toDailySummaryJSON(summary))
}

// GetDailySummary handles GET /api/sellers/{id}/daily-summary/{date}
func (h *CalculationHandler) GetDailySummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	day, err := time.Parse("2006-01-02", r.PathValue("date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "invalid date, expected YYYY-MM-DD"})
		return
	}

	summary, err := h.calcSvc.GetDailySummary(r.Context(), id, day)
	if err != nil {
		if errors.Is(err, calculation.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorJSON{Error: "daily summary not found"})
			return
		}
		h.logger.Error("failed to get daily summary", "seller_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toDailySummaryJSON(summary))
}

// RefreshProductSummary handles POST /api/products/{id}/summary/refresh
func (h *CalculationHandler) RefreshProductSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	summary, err := h.calcSvc.RefreshProductSummary(r.Context(), id)
	if err != nil {
		if errors.Is(err, calculation.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorJSON{Error: "product not found"})
			return
		}
		h.logger.Error("failed to refresh product summary", "product_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProductSummaryJSON(summary))
}

// GetProductSummary handles GET /api/products/{id}/summary
func (h *CalculationHandler) GetProductSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	summary, err := h.calcSvc.GetProductSummary(r.Context(), id)
	if err != nil {
		if errors.Is(err, calculation.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorJSON{Error: "product summary not found"})
			return
		}
		h.logger.Error("failed to get product summary", "product_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProductSummaryJSON(summary))
}
