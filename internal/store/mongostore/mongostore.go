// Package mongostore implements the catalog, cart and order stores on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/noah-isme/storefront/internal/obs"
	"github.com/noah-isme/storefront/internal/store"
)

// Collection names.
const (
	ProductsCollection   = "products"
	CategoriesCollection = "categories"
	CartItemsCollection  = "cart_items"
	OrdersCollection     = "orders"
	CountersCollection   = "counters"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 5 * time.Second
)

// Options configures Connect.
type Options struct {
	URI      string
	Database string
	Images   store.ImageResolver
}

// Store is backed by a single Mongo database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	images store.ImageResolver
}

// Connect dials Mongo, verifies the primary is reachable and ensures indexes.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	if opts.URI == "" {
		return nil, errors.New("mongostore: uri is required")
	}
	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetMonitor(obs.NewMongoMonitor()).
		SetServerSelectionTimeout(5 * time.Second)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	s := New(client, opts.Database, opts.Images)
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// New wraps an existing client.
func New(client *mongo.Client, database string, images store.ImageResolver) *Store {
	if database == "" {
		database = "storefront"
	}
	return &Store{client: client, db: client.Database(database), images: images}
}

// Ping checks the primary.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the product arrival index and the session lookup
// indexes used by carts and orders.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	_, err := s.db.Collection(ProductsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: arrivalOrder,
	})
	if err != nil {
		return fmt.Errorf("create product index: %w", err)
	}
	_, err = s.db.Collection(CartItemsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "sessionId", Value: 1}, {Key: "addedAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create cart index: %w", err)
	}
	_, err = s.db.Collection(OrdersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "sessionId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create order index: %w", err)
	}
	return nil
}
