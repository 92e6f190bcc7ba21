package mongodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sweetshop/inventory-api/internal/domain"
	"github.com/sweetshop/inventory-api/pkg/logging"
	"github.com/sweetshop/inventory-api/pkg/metrics"
)

// UserRepository persists users in the "users" collection
type UserRepository struct {
	collection *mongo.Collection
	metrics    *metrics.Metrics
	logger     *logging.Logger
}

// NewUserRepository creates a UserRepository and ensures its indexes
func NewUserRepository(db *mongo.Database, m *metrics.Metrics, logger *logging.Logger) *UserRepository {
	collection := db.Collection("users")

	repo := &UserRepository{collection: collection, metrics: m, logger: logger}
	repo.ensureIndexes(context.Background())

	return repo
}

func (r *UserRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *UserRepository) observe(ctx context.Context, operation string, start time.Time, err error) {
	duration := time.Since(start)
	if r.metrics != nil {
		r.metrics.RecordMongoDBOperation("users", operation, err == nil, duration)
	}
	if r.logger != nil {
		r.logger.DatabaseQuery(ctx, "users", operation, duration, err == nil)
	}
}

// Create inserts a new user and fills in its generated ID
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "insertOne", start, err) }()

	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("user with this email already exists")
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid
	}

	return nil
}

// FindByEmail returns the user with the given email, or (nil, nil) when no
// document matches. Lookup is case-insensitive via lower-cased storage.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (user *domain.User, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "findOne", start, err) }()

	var found domain.User
	err = r.collection.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&found)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return &found, nil
}

// EmailExists reports whether a user with the given email exists
func (r *UserRepository) EmailExists(ctx context.Context, email string) (exists bool, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "countDocuments", start, err) }()

	count, err := r.collection.CountDocuments(ctx, bson.M{"email": strings.ToLower(email)})
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return count > 0, nil
}
