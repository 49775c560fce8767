package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/pricing"
)

type cartItemDoc struct {
	ID          string        `bson:"_id"`
	SessionID   string        `bson:"sessionId"`
	ProductID   string        `bson:"productId"`
	Title       string        `bson:"title"`
	Description string        `bson:"description,omitempty"`
	Image       string        `bson:"image,omitempty"`
	Size        string        `bson:"size,omitempty"`
	Price       pricing.Money `bson:"price"`
	Discount    int           `bson:"discount"`
	Quantity    int           `bson:"quantity"`
	AddedAt     time.Time     `bson:"addedAt"`
}

func toCartItemDoc(sessionID string, it cart.Item) cartItemDoc {
	return cartItemDoc{
		ID:          it.ID,
		SessionID:   sessionID,
		ProductID:   it.ProductID,
		Title:       it.Title,
		Description: it.Description,
		Image:       it.Image,
		Size:        it.Size,
		Price:       it.Price,
		Discount:    it.Discount,
		Quantity:    it.Quantity,
		AddedAt:     it.AddedAt,
	}
}

func (d cartItemDoc) item() cart.Item {
	return cart.Item{
		ID:          d.ID,
		ProductID:   d.ProductID,
		Title:       d.Title,
		Description: d.Description,
		Image:       d.Image,
		Size:        d.Size,
		Price:       d.Price,
		Discount:    d.Discount,
		Quantity:    d.Quantity,
		AddedAt:     d.AddedAt.UTC(),
	}
}

// ListItems implements cart.Store.
func (s *Store) ListItems(ctx context.Context, sessionID string) ([]cart.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "addedAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(CartItemsCollection).Find(ctx, bson.M{"sessionId": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []cartItemDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	items := make([]cart.Item, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.item())
	}
	return items, nil
}

// AddItem implements cart.Store.
func (s *Store) AddItem(ctx context.Context, sessionID string, item cart.Item) error {
	ctx, cancel := context.WithTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	_, err := s.db.Collection(CartItemsCollection).InsertOne(ctx, toCartItemDoc(sessionID, item))
	return err
}

// RemoveItem implements cart.Store.
func (s *Store) RemoveItem(ctx context.Context, sessionID, itemID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	res, err := s.db.Collection(CartItemsCollection).DeleteOne(ctx, bson.M{"_id": itemID, "sessionId": sessionID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return cart.ErrNotFound
	}
	return nil
}

// ClearItems implements cart.Store.
func (s *Store) ClearItems(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	_, err := s.db.Collection(CartItemsCollection).DeleteMany(ctx, bson.M{"sessionId": sessionID})
	return err
}
