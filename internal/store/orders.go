package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, seller_id, order_number, order_date, status,
	total_price, total_discount, created_at, updated_at`

const orderItemColumns = `id, order_id, product_id, barcode, product_name, quantity,
	unit_price, discount_amount, commission_rate, cargo_cost, platform_service_fee,
	item_status, is_calculated, created_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.SellerID, &o.OrderNumber, &o.OrderDate, &o.Status,
		&o.TotalPrice, &o.TotalDiscount, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func scanOrderItem(row interface{ Scan(...any) error }) (OrderItem, error) {
	var it OrderItem
	err := row.Scan(
		&it.ID, &it.OrderID, &it.ProductID, &it.Barcode, &it.ProductName, &it.Quantity,
		&it.UnitPrice, &it.DiscountAmount, &it.CommissionRate, &it.CargoCost, &it.PlatformServiceFee,
		&it.ItemStatus, &it.IsCalculated, &it.CreatedAt,
	)
	return it, err
}

// CreateOrderParams holds the fields for a new order header.
type CreateOrderParams struct {
	ID            uuid.UUID
	SellerID      uuid.UUID
	OrderNumber   string
	OrderDate     time.Time
	Status        string
	TotalPrice    decimal.Decimal
	TotalDiscount decimal.Decimal
}

// CreateOrder inserts an order header and returns it.
func (q *Queries) CreateOrder(ctx context.Context, p CreateOrderParams) (Order, error) {
	now := time.Now().UTC()
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (id, seller_id, order_number, order_date, status,
			total_price, total_discount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING `+orderColumns,
		p.ID, p.SellerID, p.OrderNumber, p.OrderDate, p.Status,
		p.TotalPrice, p.TotalDiscount, now,
	)
	return scanOrder(row)
}

// GetOrder returns an order by ID, or ErrNotFound.
func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		return Order{}, mapNotFound(err)
	}
	return o, nil
}

// CreateOrderItemParams holds the fields for a new order line.
type CreateOrderItemParams struct {
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
}

// CreateOrderItem inserts an order line and returns it.
func (q *Queries) CreateOrderItem(ctx context.Context, p CreateOrderItemParams) (OrderItem, error) {
	if p.ItemStatus == "" {
		p.ItemStatus = "active"
	}
	row := q.db.QueryRow(ctx, `
		INSERT INTO order_items (id, order_id, product_id, barcode, product_name, quantity,
			unit_price, discount_amount, commission_rate, cargo_cost, platform_service_fee,
			item_status, is_calculated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, FALSE, $13)
		RETURNING `+orderItemColumns,
		p.ID, p.OrderID, p.ProductID, p.Barcode, p.ProductName, p.Quantity,
		p.UnitPrice, p.DiscountAmount, p.CommissionRate, p.CargoCost, p.PlatformServiceFee,
		p.ItemStatus, time.Now().UTC(),
	)
	return scanOrderItem(row)
}

// GetOrderItem returns an order line by ID, or ErrNotFound.
func (q *Queries) GetOrderItem(ctx context.Context, id uuid.UUID) (OrderItem, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderItemColumns+` FROM order_items WHERE id = $1`, id)
	it, err := scanOrderItem(row)
	if err != nil {
		return OrderItem{}, mapNotFound(err)
	}
	return it, nil
}

// ListOrderItems returns all lines of an order.
func (q *Queries) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+orderItemColumns+` FROM order_items WHERE order_id = $1 ORDER BY created_at`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrderItems(rows)
}

// ListPendingOrderItems returns up to limit active, not-yet-calculated lines
// for a seller, restricted to revenue-generating orders.
func (q *Queries) ListPendingOrderItems(ctx context.Context, sellerID uuid.UUID, limit int32) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+prefixColumns("oi", orderItemColumns)+`
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.seller_id = $1
		  AND oi.is_calculated = FALSE
		  AND oi.item_status = 'active'
		  AND o.status = ANY($2)
		ORDER BY o.order_date
		LIMIT $3`,
		sellerID, RevenueStatuses, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrderItems(rows)
}

// ListActiveOrderItemsByProduct returns every active line referencing a
// product, across all of its orders.
func (q *Queries) ListActiveOrderItemsByProduct(ctx context.Context, productID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+prefixColumns("oi", orderItemColumns)+`
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.product_id = $1
		  AND oi.item_status = 'active'
		  AND o.status = ANY($2)
		ORDER BY o.order_date`,
		productID, RevenueStatuses,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrderItems(rows)
}

// LinkOrderItemProduct attaches a product to an order line.
func (q *Queries) LinkOrderItemProduct(ctx context.Context, itemID, productID uuid.UUID) error {
	_, err := q.db.Exec(ctx,
		`UPDATE order_items SET product_id = $2 WHERE id = $1`,
		itemID, productID,
	)
	return err
}

// SetOrderItemCalculated flips an order line's calculated flag.
func (q *Queries) SetOrderItemCalculated(ctx context.Context, itemID uuid.UUID, calculated bool) error {
	_, err := q.db.Exec(ctx,
		`UPDATE order_items SET is_calculated = $2 WHERE id = $1`,
		itemID, calculated,
	)
	return err
}

func collectOrderItems(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]OrderItem, error) {
	var items []OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// prefixColumns qualifies a comma-separated column list with a table alias
// for use in joined queries.
func prefixColumns(alias, columns string) string {
	cols := strings.Split(columns, ",")
	for i, col := range cols {
		cols[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}
