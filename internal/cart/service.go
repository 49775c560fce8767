package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/storefront/internal/catalog"
	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/obs"
	"github.com/noah-isme/storefront/internal/pricing"
)

// ErrNotFound indicates the requested cart item could not be located.
var ErrNotFound = errors.New("cart item not found")

// Store persists cart items per shopper session.
type Store interface {
	ListItems(ctx context.Context, sessionID string) ([]Item, error)
	AddItem(ctx context.Context, sessionID string, item Item) error
	RemoveItem(ctx context.Context, sessionID, itemID string) error
	ClearItems(ctx context.Context, sessionID string) error
}

// ProductFinder resolves a single product. catalog.Source satisfies it.
type ProductFinder interface {
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
}

// AddInput is the payload for adding a product to the cart.
type AddInput struct {
	ProductID string `json:"productId" validate:"required"`
	Size      string `json:"size" validate:"omitempty,max=16"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=99"`
}

// Service encapsulates cart domain operations.
type Service struct {
	Store    Store
	Products ProductFinder
	Pricing  *pricing.Engine
	Now      func() time.Time
}

func (s *Service) engine() pricing.Engine {
	if s != nil && s.Pricing != nil {
		return *s.Pricing
	}
	return pricing.DefaultEngine
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) ready() error {
	if s == nil || s.Store == nil || s.Products == nil {
		return errors.New("cart service not configured")
	}
	return nil
}

// Add copies the product's commerce fields into a new cart line.
func (s *Service) Add(ctx context.Context, sessionID string, in AddInput) (Item, error) {
	if err := s.ready(); err != nil {
		return Item{}, err
	}
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.Size = strings.TrimSpace(in.Size)
	if err := common.ValidateStruct(in); err != nil {
		return Item{}, err
	}
	product, err := s.Products.GetProduct(ctx, in.ProductID)
	if err != nil {
		return Item{}, err
	}
	item := Item{
		ID:          uuid.NewString(),
		ProductID:   product.ID,
		Title:       product.Title,
		Description: product.Description,
		Image:       product.Image,
		Size:        in.Size,
		Price:       product.Price,
		Discount:    product.Discount,
		Quantity:    in.Quantity,
		AddedAt:     s.now().UTC(),
	}
	if err := item.Line().Validate(); err != nil {
		return Item{}, fmt.Errorf("product %s: %w", product.ID, err)
	}
	if err := s.Store.AddItem(ctx, sessionID, item); err != nil {
		return Item{}, fmt.Errorf("add cart item: %w", err)
	}
	return item, nil
}

// Remove deletes a single cart line.
func (s *Service) Remove(ctx context.Context, sessionID, itemID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return ErrNotFound
	}
	return s.Store.RemoveItem(ctx, sessionID, itemID)
}

// Items returns the stored cart lines for a session.
func (s *Service) Items(ctx context.Context, sessionID string) ([]Item, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	items, err := s.Store.ListItems(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	return items, nil
}

// View prices the cart for a session.
func (s *Service) View(ctx context.Context, sessionID string) (View, error) {
	items, err := s.Items(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	return s.Price(items)
}

// Price builds a View for items with the configured engine.
func (s *Service) Price(items []Item) (View, error) {
	views := make([]ItemView, 0, len(items))
	for _, it := range items {
		v, err := NewItemView(it)
		if err != nil {
			obs.RecordCartSummary("invalid")
			return View{}, fmt.Errorf("item %s: %w", it.ID, err)
		}
		views = append(views, v)
	}
	summary, err := s.engine().Summarize(Lines(items))
	if err != nil {
		obs.RecordCartSummary("invalid")
		return View{}, err
	}
	obs.RecordCartSummary("ok")
	return View{Items: views, Summary: summary, Count: Count(items)}, nil
}
