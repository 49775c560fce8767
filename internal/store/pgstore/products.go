package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/storefront/internal/catalog"
)

const productColumns = `id, title, description, category, gender, price, discount, rating, image, images, sizes`

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Category, &p.Gender, &p.Price, &p.Discount, &p.Rating, &p.Image, &p.Images, &p.Sizes)
	return p, err
}

// ListProducts returns every product in insertion order.
func (s *Store) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetProduct loads a product by id.
func (s *Store) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if err != nil {
		return catalog.Product{}, err
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, err
}

// ListCategories returns the curated categories, or the distinct product
// categories when none are curated.
func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM categories ORDER BY position, name`)
	if err != nil {
		return nil, err
	}
	categories, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if len(categories) > 0 {
		return categories, nil
	}
	rows, err = s.pool.Query(ctx, `SELECT DISTINCT category FROM products WHERE category <> '' ORDER BY category`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// InsertProducts upserts products by id in the given order.
func (s *Store) InsertProducts(ctx context.Context, products []catalog.Product) error {
	batch := &pgx.Batch{}
	for _, p := range products {
		id := p.ID
		if id == "" {
			id = uuid.NewString()
		}
		batch.Queue(`INSERT INTO products (`+productColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO NOTHING`,
			id, p.Title, p.Description, p.Category, p.Gender, p.Price, p.Discount, p.Rating, p.Image, nonNil(p.Images), nonNil(p.Sizes))
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert products: %w", err)
	}
	return nil
}

// SetCategories replaces the curated category list.
func (s *Store) SetCategories(ctx context.Context, categories []string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM categories`); err != nil {
			return err
		}
		for i, name := range categories {
			if _, err := tx.Exec(ctx, `INSERT INTO categories (name, position) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`, name, i); err != nil {
				return err
			}
		}
		return nil
	})
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
