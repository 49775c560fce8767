package mongostore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/catalog"
	"github.com/noah-isme/storefront/internal/checkout"
	"github.com/noah-isme/storefront/internal/pricing"
	"github.com/noah-isme/storefront/internal/store"
)

func TestDecodeProductHandlesLegacyShapes(t *testing.T) {
	oid := primitive.NewObjectID()
	images := store.ImageResolver{BaseURL: "https://cdn.test", Placeholder: "https://cdn.test/none.png"}

	p, err := decodeProduct(bson.M{
		"_id":      oid,
		"name":     "Linen Shirt",
		"category": "Shirts",
		"gender":   "Men",
		"price":    int32(1499),
		"discount": 12.0,
		"rating":   4.5,
		"images":   primitive.A{"/img/linen-1.jpg", "https://other.test/linen-2.jpg"},
		"sizes":    primitive.A{"S", "M", " "},
	}, images)
	require.NoError(t, err)

	require.Equal(t, oid.Hex(), p.ID)
	require.Equal(t, "Linen Shirt", p.Title)
	require.EqualValues(t, 1499, p.Price)
	require.Equal(t, 12, p.Discount)
	require.InDelta(t, 4.5, p.Rating, 0.001)
	require.Equal(t, "https://cdn.test/img/linen-1.jpg", p.Image)
	require.Equal(t, []string{"https://cdn.test/img/linen-1.jpg", "https://other.test/linen-2.jpg"}, p.Images)
	require.Equal(t, []string{"S", "M"}, p.Sizes)
}

func TestDecodeProductDefaults(t *testing.T) {
	p, err := decodeProduct(bson.M{"_id": "p-1", "title": "Cap", "price": "250"}, store.ImageResolver{})
	require.NoError(t, err)
	require.Equal(t, "p-1", p.ID)
	require.EqualValues(t, 250, p.Price)
	require.Zero(t, p.Discount)
	require.Equal(t, store.DefaultPlaceholderImage, p.Image)
}

func TestDecodeProductKeepsMalformedPrices(t *testing.T) {
	p, err := decodeProduct(bson.M{"_id": "bad", "price": int64(-5), "discount": int32(150)}, store.ImageResolver{})
	require.NoError(t, err)
	require.ErrorIs(t, p.Validate(), pricing.ErrInvalidInput)
}

func TestDecodeProductRejectsUnreadableNumbers(t *testing.T) {
	cases := []struct {
		name string
		doc  bson.M
		msg  string
	}{
		{name: "letter in price", doc: bson.M{"_id": "p1", "price": "12O0"}, msg: "price"},
		{name: "word discount", doc: bson.M{"_id": "p2", "price": 100, "discount": "ten"}, msg: "discount"},
		{name: "fractional discount", doc: bson.M{"_id": "p3", "price": 100, "discount": 10.4}, msg: "not a whole number"},
		{name: "fractional price string", doc: bson.M{"_id": "p4", "price": "99.5"}, msg: "not a whole number"},
		{name: "unsupported type", doc: bson.M{"_id": "p5", "price": true}, msg: "unsupported type"},
		{name: "unreadable rating", doc: bson.M{"_id": "p6", "price": 100, "rating": "great"}, msg: "rating"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeProduct(tc.doc, store.ImageResolver{})
			require.ErrorIs(t, err, pricing.ErrInvalidInput)
			require.ErrorContains(t, err, tc.msg)
		})
	}
}

func TestDecodeProductAcceptsWholeNumberForms(t *testing.T) {
	dec, err := primitive.ParseDecimal128("1250")
	require.NoError(t, err)
	p, err := decodeProduct(bson.M{"_id": "p1", "price": dec, "discount": "15", "rating": nil}, store.ImageResolver{})
	require.NoError(t, err)
	require.EqualValues(t, 1250, p.Price)
	require.Equal(t, 15, p.Discount)
	require.Zero(t, p.Rating)
}

func TestSequencedNumbersProductsInArrivalOrder(t *testing.T) {
	docs := sequenced([]catalog.Product{{ID: "a"}, {ID: "b"}, {ID: "c"}}, 12)
	require.Len(t, docs, 3)
	for i, want := range []int64{10, 11, 12} {
		doc := docs[i].(bson.M)
		require.Equal(t, want, doc["seq"])
	}
	require.Equal(t, "a", docs[0].(bson.M)["_id"])
	require.Equal(t, bson.D{{Key: "seq", Value: 1}, {Key: "_id", Value: 1}}, arrivalOrder)
}

func TestEncodeProductRoundTripsThroughDecode(t *testing.T) {
	oid := primitive.NewObjectID()
	in := catalog.Product{
		ID:       oid.Hex(),
		Title:    "Saree",
		Category: "Ethnic",
		Gender:   "Women",
		Price:    2499,
		Discount: 30,
		Image:    "https://cdn.test/saree.jpg",
		Sizes:    []string{"Free"},
	}
	doc := encodeProduct(in)
	require.Equal(t, oid, doc["_id"])

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var decoded bson.M
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	out, err := decodeProduct(decoded, store.ImageResolver{})
	require.NoError(t, err)
	require.Equal(t, in.ID, out.ID)
	require.Equal(t, in.Price, out.Price)
	require.Equal(t, in.Discount, out.Discount)
	require.Equal(t, in.Image, out.Image)
	require.Equal(t, in.Sizes, out.Sizes)
}

func TestProductKey(t *testing.T) {
	oid := primitive.NewObjectID()
	require.Equal(t, oid, productKey(oid.Hex()))
	require.Equal(t, "sku-1", productKey("sku-1"))
}

func TestDocumentMapping(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	item := cart.Item{ID: "i1", ProductID: "p1", Title: "Tee", Price: 399, Discount: 5, Quantity: 2, AddedAt: now}
	require.Equal(t, item, toCartItemDoc("s1", item).item())

	order := checkout.Order{
		ID:            "o1",
		SessionID:     "s1",
		Name:          "Asha",
		PaymentMethod: checkout.PaymentCOD,
		Items:         []checkout.OrderItem{{ProductID: "p1", Price: 399, Quantity: 2, LineTotal: 798}},
		Summary:       pricing.Summary{TotalPrice: 798, DeliveryCharge: 50, GrandTotal: 848},
		Status:        checkout.StatusPlaced,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.Equal(t, order, toOrderDoc(order).order())
}
