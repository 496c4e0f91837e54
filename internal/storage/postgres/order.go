package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/orders-api/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Omitted draft fields arrive as NULL and COALESCE to the column defaults,
// so defaulting stays in one place: the database.
const insertOrderSQL = `
INSERT INTO orders (id, status, issue_date, shipping_total)
VALUES ($1, COALESCE($2::order_status, 'PENDING'), COALESCE($3, CURRENT_DATE), COALESCE($4, 0))
RETURNING id, created_at, updated_at, status, issue_date, shipping_total`

// All line items go in as one statement. order_id comes from the order
// inserted in the same transaction, never from client input.
const insertLineItemsSQL = `
INSERT INTO line_items (id, order_id, product_id, name, quantity, unit, unit_price, tax_rate_percentage, discount)
SELECT t.id, $1, t.product_id, t.name, t.quantity, t.unit, t.unit_price,
       COALESCE(t.tax_rate_percentage, 0), COALESCE(t.discount, 0)
FROM unnest(
    $2::uuid[], $3::text[], $4::text[], $5::numeric[], $6::text[], $7::numeric[], $8::numeric[], $9::numeric[]
) AS t(id, product_id, name, quantity, unit, unit_price, tax_rate_percentage, discount)
RETURNING id, order_id, product_id, name, quantity, unit, unit_price, tax_rate_percentage, discount`

// Create inserts the order row and all line-item rows in a single
// transaction. The order insert runs first so its identifier is available
// for the line items; any error at any step rolls the whole transaction
// back and nothing is persisted.
func (r *OrderRepository) Create(ctx context.Context, draft order.Draft, items []order.LineItemDraft) (*order.Order, error) {
	var created order.Order

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var status *string
		if draft.Status != nil {
			s := string(*draft.Status)
			status = &s
		}

		var scannedStatus string
		err := tx.QueryRow(ctx, insertOrderSQL, draft.ID, status, draft.IssueDate, draft.ShippingTotal).Scan(
			&created.ID,
			&created.CreatedAt,
			&created.UpdatedAt,
			&scannedStatus,
			&created.IssueDate,
			&created.ShippingTotal,
		)
		if err != nil {
			return errors.Wrap(err, "insert order")
		}
		created.Status = order.Status(scannedStatus)

		created.LineItems, err = insertLineItems(ctx, tx, created.ID, items)
		if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func insertLineItems(ctx context.Context, tx pgx.Tx, orderID string, items []order.LineItemDraft) ([]order.LineItem, error) {
	inserted := make([]order.LineItem, 0, len(items))
	if len(items) == 0 {
		return inserted, nil
	}

	var (
		ids        = make([]string, len(items))
		productIDs = make([]string, len(items))
		names      = make([]string, len(items))
		quantities = make([]decimal.Decimal, len(items))
		units      = make([]string, len(items))
		unitPrices = make([]decimal.Decimal, len(items))
		taxRates   = make([]*decimal.Decimal, len(items))
		discounts  = make([]*decimal.Decimal, len(items))
	)
	for i, item := range items {
		ids[i] = item.ID
		productIDs[i] = item.ProductID
		names[i] = item.Name
		quantities[i] = item.Quantity
		units[i] = item.Unit
		unitPrices[i] = item.UnitPrice
		taxRates[i] = item.TaxRatePercentage
		discounts[i] = item.Discount
	}

	rows, err := tx.Query(ctx, insertLineItemsSQL,
		orderID, ids, productIDs, names, quantities, units, unitPrices, taxRates, discounts,
	)
	if err != nil {
		return nil, errors.Wrap(err, "insert line items")
	}
	defer rows.Close()

	for rows.Next() {
		var item order.LineItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&item.Quantity,
			&item.Unit,
			&item.UnitPrice,
			&item.TaxRatePercentage,
			&item.Discount,
		); err != nil {
			return nil, errors.Wrap(err, "scan line item")
		}
		inserted = append(inserted, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "insert line items")
	}

	return inserted, nil
}
