package mongostore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noah-isme/storefront/internal/catalog"
	"github.com/noah-isme/storefront/internal/pricing"
	"github.com/noah-isme/storefront/internal/store"
)

// arrivalOrder sorts by the insertion sequence. Documents written before seq
// existed have no value, sort first and fall back to _id.
var arrivalOrder = bson.D{{Key: "seq", Value: 1}, {Key: "_id", Value: 1}}

// ListProducts returns every product in insertion order.
func (s *Store) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultReadTimeout)
	defer cancel()

	cursor, err := s.db.Collection(ProductsCollection).Find(ctx, bson.M{}, options.Find().SetSort(arrivalOrder))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	products := make([]catalog.Product, 0, len(docs))
	for _, doc := range docs {
		p, err := decodeProduct(doc, s.images)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

// GetProduct loads a product by its hex ObjectID or string id.
func (s *Store) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultReadTimeout)
	defer cancel()

	var doc bson.M
	err := s.db.Collection(ProductsCollection).FindOne(ctx, bson.M{"_id": productKey(id)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return catalog.Product{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Product{}, err
	}
	return decodeProduct(doc, s.images)
}

// ListCategories reads the curated category document and falls back to the
// distinct product categories.
func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultReadTimeout)
	defer cancel()

	var doc bson.M
	err := s.db.Collection(CategoriesCollection).FindOne(ctx, bson.M{}).Decode(&doc)
	switch {
	case err == nil:
		if categories := store.StringList(doc["categories"]); len(categories) > 0 {
			return categories, nil
		}
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, err
	}

	values, err := s.db.Collection(ProductsCollection).Distinct(ctx, "category", bson.M{})
	if err != nil {
		return nil, err
	}
	categories := store.StringList(values)
	sort.Strings(categories)
	return categories, nil
}

// InsertProducts stores products, keeping hex ids as ObjectIDs.
func (s *Store) InsertProducts(ctx context.Context, products []catalog.Product) error {
	if len(products) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultReadTimeout)
	defer cancel()

	last, err := s.reserveSeq(ctx, ProductsCollection, int64(len(products)))
	if err != nil {
		return err
	}
	if _, err := s.db.Collection(ProductsCollection).InsertMany(ctx, sequenced(products, last)); err != nil {
		return fmt.Errorf("insert products: %w", err)
	}
	return nil
}

// sequenced encodes products numbering them up to and including last.
func sequenced(products []catalog.Product, last int64) []any {
	first := last - int64(len(products)) + 1
	docs := make([]any, 0, len(products))
	for i, p := range products {
		doc := encodeProduct(p)
		doc["seq"] = first + int64(i)
		docs = append(docs, doc)
	}
	return docs
}

// reserveSeq atomically advances the named counter by n and returns its new value.
func (s *Store) reserveSeq(ctx context.Context, name string, n int64) (int64, error) {
	var counter struct {
		Value int64 `bson:"value"`
	}
	err := s.db.Collection(CountersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": n}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("reserve %s sequence: %w", name, err)
	}
	return counter.Value, nil
}

// SetCategories replaces the curated category list.
func (s *Store) SetCategories(ctx context.Context, categories []string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	_, err := s.db.Collection(CategoriesCollection).UpdateOne(ctx,
		bson.M{},
		bson.M{"$set": bson.M{"categories": categories}},
		options.Update().SetUpsert(true),
	)
	return err
}

func productKey(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

func encodeProduct(p catalog.Product) bson.M {
	doc := bson.M{
		"title":       p.Title,
		"description": p.Description,
		"category":    p.Category,
		"gender":      p.Gender,
		"price":       p.Price,
		"discount":    p.Discount,
		"rating":      p.Rating,
		"mainImg":     p.Image,
		"carousel":    p.Images,
		"sizes":       p.Sizes,
	}
	if p.ID != "" {
		doc["_id"] = productKey(p.ID)
	}
	return doc
}

// decodeProduct maps a loosely shaped product document. Legacy documents use
// several field names for the title and image. Missing numeric fields read
// as zero; present but unreadable or fractional prices and discounts fail
// with pricing.ErrInvalidInput.
func decodeProduct(doc bson.M, images store.ImageResolver) (catalog.Product, error) {
	id := idString(doc["_id"])
	price, err := wholeNumber(doc, "price")
	if err != nil {
		return catalog.Product{}, fmt.Errorf("product %s: %w", id, err)
	}
	discount, err := wholeNumber(doc, "discount")
	if err != nil {
		return catalog.Product{}, fmt.Errorf("product %s: %w", id, err)
	}
	rating, err := number(doc["rating"])
	if err != nil {
		return catalog.Product{}, fmt.Errorf("product %s: rating: %w", id, err)
	}
	p := catalog.Product{
		ID:          id,
		Title:       firstOf(doc, "title", "name"),
		Description: firstOf(doc, "description"),
		Category:    firstOf(doc, "category"),
		Gender:      firstOf(doc, "gender"),
		Price:       pricing.Money(price),
		Discount:    int(discount),
		Rating:      rating,
		Image:       images.Resolve(doc),
		Sizes:       store.StringList(doc["sizes"]),
	}
	for _, ref := range append(store.StringList(doc["carousel"]), store.StringList(doc["images"])...) {
		p.Images = append(p.Images, images.Normalize(ref))
	}
	return p, nil
}

func idString(v any) string {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func firstOf(doc bson.M, keys ...string) string {
	for _, key := range keys {
		if values := store.StringList(doc[key]); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// wholeNumber reads doc[key] as an integral amount.
func wholeNumber(doc bson.M, key string) (int64, error) {
	f, err := number(doc[key])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("%s %v is not a whole number: %w", key, f, pricing.ErrInvalidInput)
	}
	return int64(f), nil
}

// number converts BSON numerics and numeric strings. A missing value is zero.
func number(v any) (float64, error) {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int:
		return float64(t), nil
	case float64:
		f = t
	case primitive.Decimal128:
		f, err = strconv.ParseFloat(t.String(), 64)
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, fmt.Errorf("unsupported type %T: %w", v, pricing.ErrInvalidInput)
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("unreadable number %v: %w", v, pricing.ErrInvalidInput)
	}
	return f, nil
}
