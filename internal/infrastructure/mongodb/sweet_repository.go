package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sweetshop/inventory-api/internal/domain"
	"github.com/sweetshop/inventory-api/pkg/logging"
	"github.com/sweetshop/inventory-api/pkg/metrics"
)

// SweetRepository persists sweets in the "sweets" collection
type SweetRepository struct {
	collection *mongo.Collection
	metrics    *metrics.Metrics
	logger     *logging.Logger
}

// NewSweetRepository creates a SweetRepository and ensures its indexes
func NewSweetRepository(db *mongo.Database, m *metrics.Metrics, logger *logging.Logger) *SweetRepository {
	collection := db.Collection("sweets")

	repo := &SweetRepository{collection: collection, metrics: m, logger: logger}
	repo.ensureIndexes(context.Background())

	return repo
}

func (r *SweetRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *SweetRepository) observe(ctx context.Context, operation string, start time.Time, err error) {
	duration := time.Since(start)
	if r.metrics != nil {
		r.metrics.RecordMongoDBOperation("sweets", operation, err == nil, duration)
	}
	if r.logger != nil {
		r.logger.DatabaseQuery(ctx, "sweets", operation, duration, err == nil)
	}
}

// Create inserts a new sweet and fills in its generated ID
func (r *SweetRepository) Create(ctx context.Context, sweet *domain.Sweet) (err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "insertOne", start, err) }()

	result, err := r.collection.InsertOne(ctx, sweet)
	if err != nil {
		return fmt.Errorf("failed to insert sweet: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		sweet.ID = oid
	}

	return nil
}

// FindByID returns the sweet with the given ID, or (nil, nil) when the ID is
// malformed or no document matches
func (r *SweetRepository) FindByID(ctx context.Context, id string) (sweet *domain.Sweet, err error) {
	oid, idErr := primitive.ObjectIDFromHex(id)
	if idErr != nil {
		return nil, nil
	}

	start := time.Now()
	defer func() { r.observe(ctx, "findOne", start, err) }()

	var found domain.Sweet
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&found)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find sweet: %w", err)
	}

	return &found, nil
}

// FindAll returns sweets matching the filter, newest first
func (r *SweetRepository) FindAll(ctx context.Context, filter domain.SweetFilter, limit, offset int) (sweets []*domain.Sweet, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "find", start, err) }()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset))

	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find sweets: %w", err)
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &sweets); err != nil {
		return nil, fmt.Errorf("failed to decode sweets: %w", err)
	}

	return sweets, nil
}

// Count returns the number of sweets matching the filter
func (r *SweetRepository) Count(ctx context.Context, filter domain.SweetFilter) (count int64, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "countDocuments", start, err) }()

	count, err = r.collection.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count sweets: %w", err)
	}
	return count, nil
}

// UpdateByID applies the populated fields of update and returns the updated
// document, or (nil, nil) when no document matches
func (r *SweetRepository) UpdateByID(ctx context.Context, id string, update domain.SweetUpdate) (sweet *domain.Sweet, err error) {
	oid, idErr := primitive.ObjectIDFromHex(id)
	if idErr != nil {
		return nil, nil
	}

	start := time.Now()
	defer func() { r.observe(ctx, "findOneAndUpdate", start, err) }()

	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Category != nil {
		set["category"] = *update.Category
	}
	if update.Price != nil {
		set["price"] = *update.Price
	}
	if update.Quantity != nil {
		set["quantity"] = *update.Quantity
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.Sweet
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update sweet: %w", err)
	}

	return &updated, nil
}

// DeleteByID removes the sweet and returns its prior state, or (nil, nil)
// when no document matches
func (r *SweetRepository) DeleteByID(ctx context.Context, id string) (sweet *domain.Sweet, err error) {
	oid, idErr := primitive.ObjectIDFromHex(id)
	if idErr != nil {
		return nil, nil
	}

	start := time.Now()
	defer func() { r.observe(ctx, "findOneAndDelete", start, err) }()

	var deleted domain.Sweet
	err = r.collection.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&deleted)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete sweet: %w", err)
	}

	return &deleted, nil
}

// ApplyQuantityDelta adds delta to the stored quantity server-side and
// returns the updated document
func (r *SweetRepository) ApplyQuantityDelta(ctx context.Context, id string, delta int) (sweet *domain.Sweet, err error) {
	oid, idErr := primitive.ObjectIDFromHex(id)
	if idErr != nil {
		return nil, nil
	}

	start := time.Now()
	defer func() { r.observe(ctx, "findOneAndUpdate", start, err) }()

	update := bson.M{
		"$inc": bson.M{"quantity": delta},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.Sweet
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply quantity delta: %w", err)
	}

	return &updated, nil
}

// DecrementQuantity subtracts quantity only when the stored value is at least
// that large. The precondition and the decrement are one server-side
// operation, so concurrent purchases can never drive the quantity negative.
// (nil, nil) means no document matched: absent sweet or insufficient stock.
func (r *SweetRepository) DecrementQuantity(ctx context.Context, id string, quantity int) (sweet *domain.Sweet, err error) {
	oid, idErr := primitive.ObjectIDFromHex(id)
	if idErr != nil {
		return nil, nil
	}

	start := time.Now()
	defer func() { r.observe(ctx, "findOneAndUpdate", start, err) }()

	filter := bson.M{
		"_id":      oid,
		"quantity": bson.M{"$gte": quantity},
	}
	update := bson.M{
		"$inc": bson.M{"quantity": -quantity},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.Sweet
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decrement quantity: %w", err)
	}

	return &updated, nil
}

func buildFilter(filter domain.SweetFilter) bson.M {
	query := bson.M{}

	if filter.Name != "" {
		query["name"] = bson.M{"$regex": primitive.Regex{Pattern: filter.Name, Options: "i"}}
	}
	if filter.Category != "" {
		query["category"] = bson.M{"$regex": primitive.Regex{Pattern: filter.Category, Options: "i"}}
	}

	price := bson.M{}
	if filter.MinPrice != nil {
		price["$gte"] = *filter.MinPrice
	}
	if filter.MaxPrice != nil {
		price["$lte"] = *filter.MaxPrice
	}
	if len(price) > 0 {
		query["price"] = price
	}

	return query
}
