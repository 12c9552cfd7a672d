// Package product manages the seller catalog and product purchase costs.
// Cost changes are versioned: the superseded value moves into a history row
// in the same transaction that writes the new one.
package product

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/karpanel/api/internal/store"
)

var (
	// ErrNotFound is returned when a product does not exist.
	ErrNotFound = errors.New("product not found")
)

// Service provides business logic for product operations.
type Service struct {
	queries *store.Queries
	pool    *pgxpool.Pool
	logger  *slog.Logger
}

// NewService creates a new product service.
func NewService(pool *pgxpool.Pool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		queries: store.New(pool),
		pool:    pool,
		logger:  logger,
	}
}

// UpdateCost sets a product's VAT-exclusive purchase cost. If the product
// already had a cost, that value is archived to the cost history inside the
// same transaction. A nil vatRate keeps the product's current purchase VAT
// rate. Stored line calculations are not touched here; the caller decides
// whether to recalculate.
func (s *Service) UpdateCost(ctx context.Context, productID uuid.UUID, costExclVAT decimal.Decimal, vatRate *decimal.Decimal) (store.Product, error) {
	if costExclVAT.IsNegative() {
		return store.Product{}, fmt.Errorf("cost must not be negative, got %s", costExclVAT)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return store.Product{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	qtx := s.queries.WithTx(tx)

	current, err := qtx.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Product{}, ErrNotFound
		}
		return store.Product{}, fmt.Errorf("failed to get product: %w", err)
	}

	if current.HasCostData && current.ProductCostExclVAT.Valid {
		effective := time.Now().UTC()
		if current.CostUpdatedAt != nil {
			effective = *current.CostUpdatedAt
		}
		err := qtx.CreateProductCostHistory(ctx, current.ID,
			current.ProductCostExclVAT.Decimal, current.PurchaseVATRate, effective)
		if err != nil {
			return store.Product{}, fmt.Errorf("failed to archive previous cost: %w", err)
		}
	}

	updated, err := qtx.UpdateProductCost(ctx, store.UpdateProductCostParams{
		ID:          productID,
		CostExclVAT: costExclVAT,
		VATRate:     vatRate,
	})
	if err != nil {
		return store.Product{}, fmt.Errorf("failed to update product cost: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return store.Product{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("product cost updated",
		"product_id", updated.ID,
		"barcode", updated.Barcode,
		"cost_excl_vat", costExclVAT,
	)

	return updated, nil
}

// Get returns one product by ID.
func (s *Service) Get(ctx context.Context, productID uuid.UUID) (store.Product, error) {
	product, err := s.queries.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Product{}, ErrNotFound
		}
		return store.Product{}, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// ListBySeller returns a seller's catalog.
func (s *Service) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]store.Product, error) {
	products, err := s.queries.ListProductsBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// ListCostHistory returns a product's archived cost values, newest first.
func (s *Service) ListCostHistory(ctx context.Context, productID uuid.UUID) ([]store.ProductCostHistory, error) {
	if _, err := s.Get(ctx, productID); err != nil {
		return nil, err
	}
	history, err := s.queries.ListProductCostHistory(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cost history: %w", err)
	}
	return history, nil
}
