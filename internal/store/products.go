package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const productColumns = `id, seller_id, barcode, product_code, title, brand,
	product_cost_excl_vat, purchase_vat_rate, sales_vat_rate, commission_rate,
	has_cost_data, cost_updated_at, is_active, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.SellerID, &p.Barcode, &p.ProductCode, &p.Title, &p.Brand,
		&p.ProductCostExclVAT, &p.PurchaseVATRate, &p.SalesVATRate, &p.CommissionRate,
		&p.HasCostData, &p.CostUpdatedAt, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// CreateProductParams holds the fields for a new catalog entry. Cost fields
// are absent on creation; costs arrive later through UpdateProductCost.
type CreateProductParams struct {
	ID              uuid.UUID
	SellerID        uuid.UUID
	Barcode         string
	ProductCode     string
	Title           string
	Brand           string
	PurchaseVATRate decimal.Decimal
	SalesVATRate    decimal.Decimal
}

// CreateProduct inserts a product and returns it.
func (q *Queries) CreateProduct(ctx context.Context, p CreateProductParams) (Product, error) {
	now := time.Now().UTC()
	row := q.db.QueryRow(ctx, `
		INSERT INTO products (id, seller_id, barcode, product_code, title, brand,
			purchase_vat_rate, sales_vat_rate, has_cost_data, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, TRUE, $9, $9)
		RETURNING `+productColumns,
		p.ID, p.SellerID, p.Barcode, p.ProductCode, p.Title, p.Brand,
		p.PurchaseVATRate, p.SalesVATRate, now,
	)
	return scanProduct(row)
}

// GetProduct returns a product by ID, or ErrNotFound.
func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, mapNotFound(err)
	}
	return p, nil
}

// GetProductByBarcode returns a seller's product by barcode, or ErrNotFound.
func (q *Queries) GetProductByBarcode(ctx context.Context, sellerID uuid.UUID, barcode string) (Product, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE seller_id = $1 AND barcode = $2`,
		sellerID, barcode,
	)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, mapNotFound(err)
	}
	return p, nil
}

// ListProductsBySeller returns all products for a seller ordered by barcode.
func (q *Queries) ListProductsBySeller(ctx context.Context, sellerID uuid.UUID) ([]Product, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE seller_id = $1 ORDER BY barcode`,
		sellerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// UpdateProductCostParams sets a product's cost basis. VAT rate is optional;
// nil leaves the stored purchase VAT rate untouched.
type UpdateProductCostParams struct {
	ID          uuid.UUID
	CostExclVAT decimal.Decimal
	VATRate     *decimal.Decimal
}

// UpdateProductCost sets the cost, flips has_cost_data, and stamps
// cost_updated_at. Returns the updated product.
func (q *Queries) UpdateProductCost(ctx context.Context, p UpdateProductCostParams) (Product, error) {
	now := time.Now().UTC()
	row := q.db.QueryRow(ctx, `
		UPDATE products
		SET product_cost_excl_vat = $2,
		    purchase_vat_rate = COALESCE($3, purchase_vat_rate),
		    has_cost_data = TRUE,
		    cost_updated_at = $4,
		    updated_at = $4
		WHERE id = $1
		RETURNING `+productColumns,
		p.ID, p.CostExclVAT, p.VATRate, now,
	)
	product, err := scanProduct(row)
	if err != nil {
		return Product{}, mapNotFound(err)
	}
	return product, nil
}

// CreateProductCostHistory records a superseded cost value.
func (q *Queries) CreateProductCostHistory(ctx context.Context, productID uuid.UUID, costExclVAT, vatRate decimal.Decimal, effectiveDate time.Time) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO product_cost_history (id, product_id, cost_excl_vat, vat_rate, effective_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), productID, costExclVAT, vatRate, effectiveDate, time.Now().UTC(),
	)
	return err
}

// ListProductCostHistory returns a product's cost history, newest first.
func (q *Queries) ListProductCostHistory(ctx context.Context, productID uuid.UUID) ([]ProductCostHistory, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, product_id, cost_excl_vat, vat_rate, effective_date, created_at
		FROM product_cost_history
		WHERE product_id = $1
		ORDER BY created_at DESC`,
		productID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []ProductCostHistory
	for rows.Next() {
		var h ProductCostHistory
		if err := rows.Scan(&h.ID, &h.ProductID, &h.CostExclVAT, &h.VATRate, &h.EffectiveDate, &h.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
