package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/storefront/internal/checkout"
)

const orderColumns = `id, session_id, name, mobile, email, address, pincode, payment_method, status,
	total_price, total_discount, delivery_charge, grand_total, created_at, updated_at`

var orderItemColumns = []string{
	"order_id", "position", "product_id", "title", "description", "image", "size",
	"price", "discount", "quantity", "discounted_unit_price", "line_total",
}

func scanOrder(row pgx.CollectableRow) (checkout.Order, error) {
	var o checkout.Order
	err := row.Scan(&o.ID, &o.SessionID, &o.Name, &o.Mobile, &o.Email, &o.Address, &o.Pincode, &o.PaymentMethod, &o.Status,
		&o.Summary.TotalPrice, &o.Summary.TotalDiscount, &o.Summary.DeliveryCharge, &o.Summary.GrandTotal,
		&o.CreatedAt, &o.UpdatedAt)
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return o, err
}

// CreateOrder implements checkout.Store. The order and its items are written
// in one transaction.
func (s *Store) CreateOrder(ctx context.Context, o checkout.Order) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO orders (`+orderColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			o.ID, o.SessionID, o.Name, o.Mobile, o.Email, o.Address, o.Pincode, o.PaymentMethod, o.Status,
			o.Summary.TotalPrice, o.Summary.TotalDiscount, o.Summary.DeliveryCharge, o.Summary.GrandTotal,
			o.CreatedAt, o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"order_items"}, orderItemColumns,
			pgx.CopyFromSlice(len(o.Items), func(i int) ([]any, error) {
				it := o.Items[i]
				return []any{o.ID, i, it.ProductID, it.Title, it.Description, it.Image, it.Size,
					it.Price, it.Discount, it.Quantity, it.DiscountedUnitPrice, it.LineTotal}, nil
			}))
		if err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
		return nil
	})
}

// ListOrders implements checkout.Store.
func (s *Store) ListOrders(ctx context.Context, sessionID string) ([]checkout.Order, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE session_id = $1 ORDER BY created_at DESC, id`, sessionID)
	if err != nil {
		return nil, err
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	items, err := s.orderItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

// GetOrder implements checkout.Store.
func (s *Store) GetOrder(ctx context.Context, sessionID, orderID string) (checkout.Order, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 AND session_id = $2`, orderID, sessionID)
	if err != nil {
		return checkout.Order{}, err
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return checkout.Order{}, checkout.ErrNotFound
	}
	if err != nil {
		return checkout.Order{}, err
	}
	items, err := s.orderItems(ctx, []string{o.ID})
	if err != nil {
		return checkout.Order{}, err
	}
	o.Items = items[o.ID]
	return o, nil
}

// UpdateOrderStatus implements checkout.Store with a single conditional update.
func (s *Store) UpdateOrderStatus(ctx context.Context, sessionID, orderID string, from []string, status string) error {
	if from == nil {
		from = []string{}
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders SET status = $4, updated_at = now()
		WHERE id = $1 AND session_id = $2 AND (cardinality($3::text[]) = 0 OR status = ANY($3))`,
		orderID, sessionID, from, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	err = s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1 AND session_id = $2)`, orderID, sessionID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return checkout.ErrNotFound
	}
	return checkout.ErrNotCancellable
}

func (s *Store) orderItems(ctx context.Context, orderIDs []string) (map[string][]checkout.OrderItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT order_id, product_id, title, description, image, size, price, discount, quantity, discounted_unit_price, line_total
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]checkout.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			it      checkout.OrderItem
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Title, &it.Description, &it.Image, &it.Size,
			&it.Price, &it.Discount, &it.Quantity, &it.DiscountedUnitPrice, &it.LineTotal); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, rows.Err()
}
