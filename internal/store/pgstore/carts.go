package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/storefront/internal/cart"
)

// ListItems implements cart.Store.
func (s *Store) ListItems(ctx context.Context, sessionID string) ([]cart.Item, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, product_id, title, description, image, size, price, discount, quantity, added_at
		FROM cart_items
		WHERE session_id = $1
		ORDER BY added_at, id`, sessionID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Item, error) {
		var it cart.Item
		err := row.Scan(&it.ID, &it.ProductID, &it.Title, &it.Description, &it.Image, &it.Size, &it.Price, &it.Discount, &it.Quantity, &it.AddedAt)
		it.AddedAt = it.AddedAt.UTC()
		return it, err
	})
}

// AddItem implements cart.Store.
func (s *Store) AddItem(ctx context.Context, sessionID string, it cart.Item) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO cart_items (id, session_id, product_id, title, description, image, size, price, discount, quantity, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		it.ID, sessionID, it.ProductID, it.Title, it.Description, it.Image, it.Size, it.Price, it.Discount, it.Quantity, it.AddedAt)
	return err
}

// RemoveItem implements cart.Store.
func (s *Store) RemoveItem(ctx context.Context, sessionID, itemID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND session_id = $2`, itemID, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}

// ClearItems implements cart.Store.
func (s *Store) ClearItems(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM cart_items WHERE session_id = $1`, sessionID)
	return err
}
