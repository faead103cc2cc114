package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"fsanano/marketplace/internal/model"
)

const selectOngoingOrder = `SELECT id, buyer_id, status, order_date, total_payment
              FROM orders
              WHERE buyer_id = $1 AND status = 'ongoing'`

// GetOngoingOrder returns the buyer's cart.
func (r *Repository) GetOngoingOrder(ctx context.Context, buyerID int64) (model.Order, error) {
	return r.scanOrder(ctx, selectOngoingOrder, buyerID)
}

// GetOngoingOrderForUpdate returns the buyer's cart and locks it for the rest of the transaction.
func (r *Repository) GetOngoingOrderForUpdate(ctx context.Context, buyerID int64) (model.Order, error) {
	return r.scanOrder(ctx, selectOngoingOrder+" FOR UPDATE", buyerID)
}

func (r *Repository) scanOrder(ctx context.Context, query string, args ...any) (model.Order, error) {
	var (
		o      model.Order
		status string
	)
	err := r.getExecutor(ctx).QueryRow(ctx, query, args...).
		Scan(&o.ID, &o.BuyerID, &status, &o.Date, &o.TotalPayment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, fmt.Errorf("cart: %w", model.ErrNotFound)
		}
		return model.Order{}, fmt.Errorf("failed to get order: %w", err)
	}
	o.Status = model.OrderStatus(status)
	return o, nil
}

// CreateOngoingOrder inserts an empty cart for the buyer. When a concurrent
// request created one first, that cart is returned instead.
func (r *Repository) CreateOngoingOrder(ctx context.Context, buyerID int64, date time.Time) (model.Order, error) {
	query := `INSERT INTO orders (buyer_id, status, order_date, total_payment)
              VALUES ($1, 'ongoing', $2, 0)
              ON CONFLICT DO NOTHING
              RETURNING id, buyer_id, status, order_date, total_payment`

	o, err := r.scanOrder(ctx, query, buyerID, date)
	if errors.Is(err, model.ErrNotFound) {
		return r.GetOngoingOrderForUpdate(ctx, buyerID)
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("create order: %w", err)
	}
	return o, nil
}

// GetLine returns the line for itemID within the order.
func (r *Repository) GetLine(ctx context.Context, orderID, itemID int64) (model.OrderLine, error) {
	query := `SELECT order_id, item_id, quantity, unit_price
              FROM order_lines
              WHERE order_id = $1 AND item_id = $2`

	var l model.OrderLine
	err := r.getExecutor(ctx).QueryRow(ctx, query, orderID, itemID).
		Scan(&l.OrderID, &l.ItemID, &l.Quantity, &l.UnitPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.OrderLine{}, fmt.Errorf("item %d in order %d: %w", itemID, orderID, model.ErrNotFound)
		}
		return model.OrderLine{}, fmt.Errorf("failed to get order line: %w", err)
	}
	return l, nil
}

func (r *Repository) InsertLine(ctx context.Context, l model.OrderLine) error {
	query := `INSERT INTO order_lines (order_id, item_id, quantity, unit_price)
              VALUES ($1, $2, $3, $4)`

	if _, err := r.getExecutor(ctx).Exec(ctx, query, l.OrderID, l.ItemID, l.Quantity, l.UnitPrice); err != nil {
		return fmt.Errorf("insert order line: %w", err)
	}
	return nil
}

func (r *Repository) UpdateLine(ctx context.Context, l model.OrderLine) error {
	query := `UPDATE order_lines
              SET quantity = $3, unit_price = $4
              WHERE order_id = $1 AND item_id = $2`

	tag, err := r.getExecutor(ctx).Exec(ctx, query, l.OrderID, l.ItemID, l.Quantity, l.UnitPrice)
	if err != nil {
		return fmt.Errorf("update order line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %d in order %d: %w", l.ItemID, l.OrderID, model.ErrNotFound)
	}
	return nil
}

func (r *Repository) DeleteLine(ctx context.Context, orderID, itemID int64) error {
	tag, err := r.getExecutor(ctx).Exec(ctx,
		"DELETE FROM order_lines WHERE order_id = $1 AND item_id = $2", orderID, itemID)
	if err != nil {
		return fmt.Errorf("delete order line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %d in order %d: %w", itemID, orderID, model.ErrNotFound)
	}
	return nil
}

// AddToTotal shifts the order total by delta in a single statement and returns the new total.
func (r *Repository) AddToTotal(ctx context.Context, orderID, delta int64) (int64, error) {
	query := `UPDATE orders
              SET total_payment = total_payment + $2
              WHERE id = $1
              RETURNING total_payment`

	var total int64
	if err := r.getExecutor(ctx).QueryRow(ctx, query, orderID, delta).Scan(&total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("order %d: %w", orderID, model.ErrNotFound)
		}
		return 0, fmt.Errorf("update order total: %w", err)
	}
	return total, nil
}

// DeleteOrder removes the order; its lines go with it.
func (r *Repository) DeleteOrder(ctx context.Context, orderID int64) error {
	tag, err := r.getExecutor(ctx).Exec(ctx, "DELETE FROM orders WHERE id = $1", orderID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", orderID, model.ErrNotFound)
	}
	return nil
}

// ListLines returns the raw lines of an order, ordered by item id.
func (r *Repository) ListLines(ctx context.Context, orderID int64) ([]model.OrderLine, error) {
	query := `SELECT order_id, item_id, quantity, unit_price
              FROM order_lines
              WHERE order_id = $1
              ORDER BY item_id`

	rows, err := r.getExecutor(ctx).Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	defer rows.Close()

	var lines []model.OrderLine
	for rows.Next() {
		var l model.OrderLine
		if err = rows.Scan(&l.OrderID, &l.ItemID, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}
	return lines, nil
}

// ListCartLines returns the order lines resolved against the catalog.
func (r *Repository) ListCartLines(ctx context.Context, orderID int64) ([]model.CartLine, error) {
	query := `SELECT ol.item_id, COALESCE(i.name, ''), ol.quantity, ol.unit_price, COALESCE(i.url, '')
              FROM order_lines ol
              LEFT JOIN items i ON i.id = ol.item_id
              WHERE ol.order_id = $1
              ORDER BY ol.item_id`

	rows, err := r.getExecutor(ctx).Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	defer rows.Close()

	lines := []model.CartLine{}
	for rows.Next() {
		var l model.CartLine
		if err = rows.Scan(&l.ItemID, &l.Name, &l.Quantity, &l.UnitPrice, &l.URL); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}
	return lines, nil
}

// CompleteOrder marks an ongoing order as settled on date.
func (r *Repository) CompleteOrder(ctx context.Context, orderID int64, date time.Time) error {
	query := `UPDATE orders
              SET status = 'completed', order_date = $2
              WHERE id = $1 AND status = 'ongoing'`

	tag, err := r.getExecutor(ctx).Exec(ctx, query, orderID, date)
	if err != nil {
		return fmt.Errorf("complete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d is not ongoing: %w", orderID, model.ErrConflict)
	}
	return nil
}

// PurchaseHistory returns the buyer's completed orders, newest first.
func (r *Repository) PurchaseHistory(ctx context.Context, buyerID int64) ([]model.PurchaseRecord, error) {
	query := `SELECT o.id, o.order_date, o.total_payment,
                     ol.item_id, COALESCE(i.name, ''), ol.unit_price, ol.quantity, COALESCE(i.url, '')
              FROM orders o
              JOIN order_lines ol ON ol.order_id = o.id
              LEFT JOIN items i ON i.id = ol.item_id
              WHERE o.buyer_id = $1 AND o.status = 'completed'
              ORDER BY o.order_date DESC, o.id DESC, ol.item_id`

	rows, err := r.getExecutor(ctx).Query(ctx, query, buyerID)
	if err != nil {
		return nil, fmt.Errorf("purchase history: %w", err)
	}
	defer rows.Close()

	history := []model.PurchaseRecord{}
	for rows.Next() {
		var (
			rec  model.PurchaseRecord
			line model.CartLine
		)
		if err = rows.Scan(&rec.OrderID, &rec.OrderDate, &rec.Total,
			&line.ItemID, &line.Name, &line.UnitPrice, &line.Quantity, &line.URL); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		// rows arrive grouped by order
		if n := len(history); n > 0 && history[n-1].OrderID == rec.OrderID {
			history[n-1].Items = append(history[n-1].Items, line)
			continue
		}
		rec.Items = []model.CartLine{line}
		history = append(history, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase history: %w", err)
	}
	return history, nil
}
