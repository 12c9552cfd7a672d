package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karpanel/api/internal/profit"
	"github.com/karpanel/api/internal/services/calculation"
	"github.com/karpanel/api/internal/services/product"
	"github.com/karpanel/api/internal/store"
)

// ProductHandler holds dependencies for product API endpoints. It carries
// the calculation service so a cost update can immediately ripple into the
// stored line calculations and the product summary.
type ProductHandler struct {
	productSvc *product.Service
	calcSvc    *calculation.Service
	logger     *slog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(productSvc *product.Service, calcSvc *calculation.Service, logger *slog.Logger) *ProductHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductHandler{
		productSvc: productSvc,
		calcSvc:    calcSvc,
		logger:     logger,
	}
}

// RegisterRoutes registers all product API routes on the given mux.
func (h *ProductHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("PUT /api/products/{id}/cost", h.UpdateCost)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("GET /api/products/{id}/cost-history", h.ListCostHistory)
	mux.HandleFunc("GET /api/sellers/{id}/products", h.ListSellerProducts)
}

// --- JSON request/response types ---

// updateCostRequest carries monetary fields as strings so they pass through
// the strict decimal parse; a malformed or missing cost is rejected instead
// of silently becoming zero.
type updateCostRequest struct {
	CostExclVAT string `json:"cost_excl_vat"`
	VATRate     string `json:"vat_rate,omitempty"`
}

type updateCostResponse struct {
	Product      productJSON `json:"product"`
	Recalculated int         `json:"recalculated"`
	Failed       int         `json:"failed"`
}

type productJSON struct {
	ID                 uuid.UUID        `json:"id"`
	SellerID           uuid.UUID        `json:"seller_id"`
	Barcode            string           `json:"barcode"`
	ProductCode        string           `json:"product_code,omitempty"`
	Title              string           `json:"title"`
	Brand              string           `json:"brand,omitempty"`
	ProductCostExclVAT *decimal.Decimal `json:"product_cost_excl_vat"`
	PurchaseVATRate    decimal.Decimal  `json:"purchase_vat_rate"`
	SalesVATRate       decimal.Decimal  `json:"sales_vat_rate"`
	CommissionRate     *decimal.Decimal `json:"commission_rate"`
	HasCostData        bool             `json:"has_cost_data"`
	CostUpdatedAt      *string          `json:"cost_updated_at"`
	IsActive           bool             `json:"is_active"`
}

func toProductJSON(p store.Product) productJSON {
	out := productJSON{
		ID:              p.ID,
		SellerID:        p.SellerID,
		Barcode:         p.Barcode,
		ProductCode:     p.ProductCode,
		Title:           p.Title,
		Brand:           p.Brand,
		PurchaseVATRate: p.PurchaseVATRate,
		SalesVATRate:    p.SalesVATRate,
		HasCostData:     p.HasCostData,
		IsActive:        p.IsActive,
	}
	if p.ProductCostExclVAT.Valid {
		out.ProductCostExclVAT = &p.ProductCostExclVAT.Decimal
	}
	if p.CommissionRate.Valid {
		out.CommissionRate = &p.CommissionRate.Decimal
	}
	if p.CostUpdatedAt != nil {
		ts := p.CostUpdatedAt.UTC().Format(time.RFC3339)
		out.CostUpdatedAt = &ts
	}
	return out
}

type costHistoryJSON struct {
	CostExclVAT   decimal.Decimal `json:"cost_excl_vat"`
	VATRate       decimal.Decimal `json:"vat_rate"`
	EffectiveDate string          `json:"effective_date"`
}

// --- Handlers ---

// UpdateCost handles PUT /api/products/{id}/cost. After the cost is stored,
// every active line of the product is recalculated and the product summary
// refreshed, so the response already reflects the new cost everywhere.
func (h *ProductHandler) UpdateCost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req updateCostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "invalid request body"})
		return
	}
	cost, err := profit.ParseDecimal("cost_excl_vat", req.CostExclVAT)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: err.Error()})
		return
	}
	vatRate, err := profit.ParseOptionalDecimal("vat_rate", req.VATRate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: err.Error()})
		return
	}
	if cost.IsNegative() {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "cost_excl_vat must not be negative"})
		return
	}

	updated, err := h.productSvc.UpdateCost(r.Context(), id, cost, vatRate)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorJSON{Error: "product not found"})
			return
		}
		h.logger.Error("failed to update product cost", "product_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	recalculated, failed, err := h.calcSvc.RecalculateProduct(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to recalculate after cost update", "product_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}
	if _, err := h.calcSvc.RefreshProductSummary(r.Context(), id); err != nil {
		h.logger.Error("failed to refresh summary after cost update", "product_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, updateCostResponse{
		Product:      toProductJSON(updated),
		Recalculated: recalculated,
		Failed:       failed,
	})
}

// GetProduct handles GET /api/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.productSvc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorJSON{Error: "product not found"})
			return
		}
		h.logger.Error("failed to get product", "product_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProductJSON(p))
}

// ListCostHistory handles GET /api/products/{id}/cost-history
func (h *ProductHandler) ListCostHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	history, err := h.productSvc.ListCostHistory(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorJSON{Error: "product not found"})
			return
		}
		h.logger.Error("failed to list cost history", "product_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	out := make([]costHistoryJSON, len(history))
	for i, entry := range history {
		out[i] = costHistoryJSON{
			CostExclVAT:   entry.CostExclVAT,
			VATRate:       entry.VATRate,
			EffectiveDate: entry.EffectiveDate.UTC().Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// ListSellerProducts handles GET /api/sellers/{id}/products
func (h *ProductHandler) ListSellerProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	products, err := h.productSvc.ListBySeller(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list products", "seller_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	out := make([]productJSON, len(products))
	for i, p := range products {
		out[i] = toProductJSON(p)
	}
	writeJSON(w, http.StatusOK, out)
}
