package repo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agrideliver/server/internal/agent/model"
	errx "github.com/agrideliver/server/internal/core/error"
	logx "github.com/agrideliver/server/pkg/logger"
)

const (
	collectionProducts   = "products"
	collectionCategories = "categories"
	collectionKnowledge  = "website_knowledge"
	collectionOrders     = "orders"

	knowledgeMatchLimit = 3
)

// MongoCatalogRepository is the read-only gateway over products, categories,
// curated website knowledge, and orders.
type MongoCatalogRepository struct {
	db *mongo.Database
}

func NewMongoCatalogRepository(db *mongo.Database) *MongoCatalogRepository {
	return &MongoCatalogRepository{db: db}
}

// productDoc mirrors the storefront's product document after the category
// $lookup/$unwind stage.
type productDoc struct {
	ID            primitive.ObjectID `bson:"_id"`
	Name          string             `bson:"name"`
	NameHi        string             `bson:"nameHi"`
	Description   string             `bson:"description"`
	Price         float64            `bson:"price"`
	ImageURL      string             `bson:"imageUrl"`
	StockQuantity int                `bson:"stockQuantity"`
	Category      categoryDoc        `bson:"category"`
}

type categoryDoc struct {
	ID     primitive.ObjectID `bson:"_id"`
	Name   string             `bson:"name"`
	NameHi string             `bson:"nameHi"`
}

type knowledgeDoc struct {
	Page    string `bson:"page"`
	Title   string `bson:"title"`
	Content string `bson:"content"`
}

type orderDoc struct {
	ID            primitive.ObjectID `bson:"_id"`
	UserID        string             `bson:"user_id"`
	Items         []model.CartLine   `bson:"items"`
	TotalAmount   float64            `bson:"total_amount"`
	PaymentStatus string             `bson:"payment_status"`
	Timestamp     time.Time          `bson:"timestamp"`
}

// caseInsensitive builds a literal, case-insensitive regex filter. The query
// text is user controlled, so it is always quoted.
func caseInsensitive(query string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(query)), Options: "i"}
}

func inStockFilter() bson.M {
	return bson.M{"isActive": true, "stockQuantity": bson.M{"$gt": 0}}
}

func categoryLookupStages() []bson.D {
	return []bson.D{
		{{Key: "$lookup", Value: bson.M{
			"from":         collectionCategories,
			"localField":   "categoryId",
			"foreignField": "_id",
			"as":           "category",
		}}},
		{{Key: "$unwind", Value: "$category"}},
	}
}

func (r *MongoCatalogRepository) SearchProducts(ctx context.Context, query string, limit int) ([]model.ProductCandidate, error) {
	regex := caseInsensitive(query)
	match := inStockFilter()
	match["$or"] = bson.A{
		bson.M{"name": regex},
		bson.M{"nameHi": regex},
		bson.M{"description": regex},
	}

	pipeline := []bson.D{{{Key: "$match", Value: match}}}
	pipeline = append(pipeline, categoryLookupStages()...)
	pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})

	return r.aggregateProducts(ctx, pipeline)
}

func (r *MongoCatalogRepository) ProductsByCategory(ctx context.Context, category string, limit int) ([]model.ProductCandidate, error) {
	regex := caseInsensitive(category)

	var cat categoryDoc
	err := r.db.Collection(collectionCategories).FindOne(ctx, bson.M{
		"$or": bson.A{bson.M{"name": regex}, bson.M{"nameHi": regex}},
	}).Decode(&cat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []model.ProductCandidate{}, nil
	}
	if err != nil {
		return nil, errx.WrapMongo(err)
	}

	filter := inStockFilter()
	filter["categoryId"] = cat.ID

	cursor, err := r.db.Collection(collectionProducts).Find(ctx, filter, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, errx.WrapMongo(err)
	}
	defer cursor.Close(ctx)

	var docs []productDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errx.WrapMongo(err)
	}

	candidates := make([]model.ProductCandidate, 0, len(docs))
	for _, d := range docs {
		d.Category = cat
		candidates = append(candidates, toCandidate(d))
	}
	return candidates, nil
}

func (r *MongoCatalogRepository) RecommendedProducts(ctx context.Context, limit int) ([]model.ProductCandidate, error) {
	pipeline := []bson.D{
		{{Key: "$match", Value: inStockFilter()}},
		{{Key: "$sample", Value: bson.M{"size": limit}}},
	}
	pipeline = append(pipeline, categoryLookupStages()...)

	return r.aggregateProducts(ctx, pipeline)
}

// LookupKnowledge free-text matches the curated knowledge base and renders
// the top matches as "{title}:\n{content}" blocks separated by blank lines.
func (r *MongoCatalogRepository) LookupKnowledge(ctx context.Context, query string) (string, error) {
	regex := caseInsensitive(query)
	filter := bson.M{"$or": bson.A{
		bson.M{"page": regex},
		bson.M{"title": regex},
		bson.M{"content": regex},
	}}

	cursor, err := r.db.Collection(collectionKnowledge).Find(ctx, filter, options.Find().SetLimit(knowledgeMatchLimit))
	if err != nil {
		return "", errx.WrapMongo(err)
	}
	defer cursor.Close(ctx)

	var docs []knowledgeDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return "", errx.WrapMongo(err)
	}
	if len(docs) == 0 {
		return "", nil
	}

	blocks := make([]string, 0, len(docs))
	for _, d := range docs {
		blocks = append(blocks, fmt.Sprintf("%s:\n%s", d.Title, d.Content))
	}
	return strings.Join(blocks, "\n\n"), nil
}

// LookupOrder returns the order only when it belongs to userID. A malformed
// ID or a foreign/missing order yields (nil, nil) so the caller can emit its
// "not found" context.
func (r *MongoCatalogRepository) LookupOrder(ctx context.Context, orderID, userID string) (*model.OrderSummary, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(orderID))
	if err != nil {
		return nil, nil
	}

	var doc orderDoc
	err = r.db.Collection(collectionOrders).FindOne(ctx, bson.M{"_id": oid, "user_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		logx.Error().Err(err).Str("order_id", orderID).Msg("failed to look up order")
		return nil, errx.WrapMongo(err)
	}

	summary := toOrderSummary(doc)
	return &summary, nil
}

func (r *MongoCatalogRepository) ListRecentOrders(ctx context.Context, userID string, limit int) ([]model.OrderSummary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.db.Collection(collectionOrders).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, errx.WrapMongo(err)
	}
	defer cursor.Close(ctx)

	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errx.WrapMongo(err)
	}

	summaries := make([]model.OrderSummary, 0, len(docs))
	for _, d := range docs {
		summaries = append(summaries, toOrderSummary(d))
	}
	return summaries, nil
}

func (r *MongoCatalogRepository) aggregateProducts(ctx context.Context, pipeline []bson.D) ([]model.ProductCandidate, error) {
	cursor, err := r.db.Collection(collectionProducts).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errx.WrapMongo(err)
	}
	defer cursor.Close(ctx)

	var docs []productDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errx.WrapMongo(err)
	}

	candidates := make([]model.ProductCandidate, 0, len(docs))
	for _, d := range docs {
		candidates = append(candidates, toCandidate(d))
	}
	return candidates, nil
}

func toCandidate(d productDoc) model.ProductCandidate {
	return model.ProductCandidate{
		ID:            d.ID.Hex(),
		Name:          d.Name,
		LocalizedName: d.NameHi,
		Description:   d.Description,
		Price:         d.Price,
		ImageURL:      d.ImageURL,
		StockLevel:    d.StockQuantity,
		CategoryName:  d.Category.Name,
	}
}

func toOrderSummary(d orderDoc) model.OrderSummary {
	return model.OrderSummary{
		ID:        d.ID.Hex(),
		Status:    d.PaymentStatus,
		Total:     d.TotalAmount,
		ItemCount: len(d.Items),
		PlacedAt:  d.Timestamp,
	}
}
