// Package memstore is an in-process implementation of the catalog, cart and
// order stores. It backs the "memory" driver and service tests.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/catalog"
	"github.com/noah-isme/storefront/internal/checkout"
)

// Store keeps everything in maps guarded by a single lock.
type Store struct {
	mu         sync.RWMutex
	products   []catalog.Product
	categories []string
	carts      map[string][]cart.Item
	orders     map[string][]checkout.Order
}

// New returns a store seeded with products in arrival order.
func New(products ...catalog.Product) *Store {
	return &Store{
		products: slices.Clone(products),
		carts:    map[string][]cart.Item{},
		orders:   map[string][]checkout.Order{},
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// InsertProducts appends products to the collection.
func (s *Store) InsertProducts(_ context.Context, products []catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append(s.products, products...)
	return nil
}

// SetCategories overrides the category list. Without it categories are
// derived from products.
func (s *Store) SetCategories(_ context.Context, categories []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = slices.Clone(categories)
	return nil
}

// ListProducts implements catalog.Source.
func (s *Store) ListProducts(context.Context) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.products), nil
}

// ListCategories implements catalog.Source.
func (s *Store) ListCategories(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.categories) > 0 {
		return slices.Clone(s.categories), nil
	}
	seen := map[string]struct{}{}
	out := []string{}
	for _, p := range s.products {
		if _, ok := seen[p.Category]; ok || p.Category == "" {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out, nil
}

// GetProduct implements catalog.Source.
func (s *Store) GetProduct(_ context.Context, id string) (catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return catalog.Product{}, catalog.ErrNotFound
}

// ListItems implements cart.Store.
func (s *Store) ListItems(_ context.Context, sessionID string) ([]cart.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.carts[sessionID]), nil
}

// AddItem implements cart.Store.
func (s *Store) AddItem(_ context.Context, sessionID string, item cart.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[sessionID] = append(s.carts[sessionID], item)
	return nil
}

// RemoveItem implements cart.Store.
func (s *Store) RemoveItem(_ context.Context, sessionID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.carts[sessionID]
	idx := slices.IndexFunc(items, func(it cart.Item) bool { return it.ID == itemID })
	if idx < 0 {
		return cart.ErrNotFound
	}
	s.carts[sessionID] = slices.Delete(slices.Clone(items), idx, idx+1)
	return nil
}

// ClearItems implements cart.Store.
func (s *Store) ClearItems(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
	return nil
}

// CreateOrder implements checkout.Store.
func (s *Store) CreateOrder(_ context.Context, order checkout.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order.Items = slices.Clone(order.Items)
	s.orders[order.SessionID] = append(s.orders[order.SessionID], order)
	return nil
}

// ListOrders implements checkout.Store. Newest orders come first.
func (s *Store) ListOrders(_ context.Context, sessionID string) ([]checkout.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orders := slices.Clone(s.orders[sessionID])
	slices.Reverse(orders)
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

// GetOrder implements checkout.Store.
func (s *Store) GetOrder(_ context.Context, sessionID, orderID string) (checkout.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders[sessionID] {
		if o.ID == orderID {
			return o, nil
		}
	}
	return checkout.Order{}, checkout.ErrNotFound
}

// UpdateOrderStatus implements checkout.Store.
func (s *Store) UpdateOrderStatus(_ context.Context, sessionID, orderID string, from []string, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := s.orders[sessionID]
	for i := range orders {
		if orders[i].ID != orderID {
			continue
		}
		if len(from) > 0 && !slices.Contains(from, orders[i].Status) {
			return checkout.ErrNotCancellable
		}
		orders[i].Status = status
		orders[i].UpdatedAt = time.Now().UTC()
		return nil
	}
	return checkout.ErrNotFound
}
