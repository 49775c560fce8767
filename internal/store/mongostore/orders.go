package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noah-isme/storefront/internal/checkout"
	"github.com/noah-isme/storefront/internal/pricing"
)

type orderItemDoc struct {
	ProductID           string        `bson:"productId"`
	Title               string        `bson:"title"`
	Description         string        `bson:"description,omitempty"`
	Image               string        `bson:"image,omitempty"`
	Size                string        `bson:"size,omitempty"`
	Price               pricing.Money `bson:"price"`
	Discount            int           `bson:"discount"`
	Quantity            int           `bson:"quantity"`
	DiscountedUnitPrice pricing.Money `bson:"discountedUnitPrice"`
	LineTotal           pricing.Money `bson:"lineTotal"`
}

type summaryDoc struct {
	TotalPrice     pricing.Money `bson:"totalPrice"`
	TotalDiscount  pricing.Money `bson:"totalDiscount"`
	DeliveryCharge pricing.Money `bson:"deliveryCharge"`
	GrandTotal     pricing.Money `bson:"grandTotal"`
}

type orderDoc struct {
	ID            string         `bson:"_id"`
	SessionID     string         `bson:"sessionId"`
	Name          string         `bson:"name"`
	Mobile        string         `bson:"mobile"`
	Email         string         `bson:"email,omitempty"`
	Address       string         `bson:"address"`
	Pincode       string         `bson:"pincode,omitempty"`
	PaymentMethod string         `bson:"paymentMethod"`
	Items         []orderItemDoc `bson:"items"`
	Summary       summaryDoc     `bson:"summary"`
	Status        string         `bson:"orderStatus"`
	CreatedAt     time.Time      `bson:"createdAt"`
	UpdatedAt     time.Time      `bson:"updatedAt"`
}

func toOrderDoc(o checkout.Order) orderDoc {
	items := make([]orderItemDoc, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemDoc(it))
	}
	return orderDoc{
		ID:            o.ID,
		SessionID:     o.SessionID,
		Name:          o.Name,
		Mobile:        o.Mobile,
		Email:         o.Email,
		Address:       o.Address,
		Pincode:       o.Pincode,
		PaymentMethod: o.PaymentMethod,
		Items:         items,
		Summary:       summaryDoc(o.Summary),
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func (d orderDoc) order() checkout.Order {
	items := make([]checkout.OrderItem, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, checkout.OrderItem(it))
	}
	return checkout.Order{
		ID:            d.ID,
		SessionID:     d.SessionID,
		Name:          d.Name,
		Mobile:        d.Mobile,
		Email:         d.Email,
		Address:       d.Address,
		Pincode:       d.Pincode,
		PaymentMethod: d.PaymentMethod,
		Items:         items,
		Summary:       pricing.Summary(d.Summary),
		Status:        d.Status,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

// CreateOrder implements checkout.Store.
func (s *Store) CreateOrder(ctx context.Context, order checkout.Order) error {
	ctx, cancel := context.WithTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	_, err := s.db.Collection(OrdersCollection).InsertOne(ctx, toOrderDoc(order))
	return err
}

// ListOrders implements checkout.Store.
func (s *Store) ListOrders(ctx context.Context, sessionID string) ([]checkout.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.db.Collection(OrdersCollection).Find(ctx, bson.M{"sessionId": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	orders := make([]checkout.Order, 0, len(docs))
	for _, d := range docs {
		orders = append(orders, d.order())
	}
	return orders, nil
}

// GetOrder implements checkout.Store.
func (s *Store) GetOrder(ctx context.Context, sessionID, orderID string) (checkout.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultReadTimeout)
	defer cancel()

	var doc orderDoc
	err := s.db.Collection(OrdersCollection).FindOne(ctx, bson.M{"_id": orderID, "sessionId": sessionID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return checkout.Order{}, checkout.ErrNotFound
	}
	if err != nil {
		return checkout.Order{}, err
	}
	return doc.order(), nil
}

// UpdateOrderStatus implements checkout.Store with a single conditional update.
func (s *Store) UpdateOrderStatus(ctx context.Context, sessionID, orderID string, from []string, status string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := bson.M{"_id": orderID, "sessionId": sessionID}
	if len(from) > 0 {
		filter["orderStatus"] = bson.M{"$in": from}
	}
	coll := s.db.Collection(OrdersCollection)
	res, err := coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"orderStatus": status, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := coll.CountDocuments(ctx, bson.M{"_id": orderID, "sessionId": sessionID})
	if err != nil {
		return err
	}
	if n == 0 {
		return checkout.ErrNotFound
	}
	return checkout.ErrNotCancellable
}
