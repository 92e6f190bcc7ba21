package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/sweetshop/inventory-api/internal/domain"
	mongoRepo "github.com/sweetshop/inventory-api/internal/infrastructure/mongodb"
	"github.com/sweetshop/inventory-api/pkg/logging"
	"github.com/sweetshop/inventory-api/pkg/mongodb"
)

// seed populates the catalog with an initial set of sweets and, when
// ADMIN_EMAIL and ADMIN_PASSWORD are set, an admin account.
func main() {
	_ = godotenv.Load()

	logger := logging.New(logging.DefaultConfig("inventory-seed"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mongoConfig := &mongodb.Config{
		URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		Database:       getEnv("MONGODB_DATABASE", "sweetshop"),
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    10,
		MinPoolSize:    1,
	}

	client, err := mongodb.NewClient(ctx, mongoConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer client.Close(ctx)
	logger.Info("Connected to MongoDB", "database", mongoConfig.Database)

	if err := client.Collection("sweets").Drop(ctx); err != nil {
		logger.WithError(err).Error("Failed to clear sweets collection")
		os.Exit(1)
	}
	logger.Info("Cleared existing sweets")

	repo := mongoRepo.NewSweetRepository(client.Database(), nil, logger)

	seeds := []struct {
		name     string
		category string
		price    float64
		quantity int
	}{
		{"Chocolate Bar", "Chocolate", 2.99, 50},
		{"Gummy Bears", "Gummies", 1.99, 100},
		{"Lollipop", "Hard Candy", 0.99, 200},
		{"Caramel Candy", "Caramel", 1.49, 75},
		{"Jelly Beans", "Gummies", 3.49, 150},
		{"Marshmallow", "Soft Candy", 2.49, 80},
		{"Toffee", "Hard Candy", 1.99, 60},
		{"Licorice", "Hard Candy", 1.79, 90},
	}

	for _, s := range seeds {
		sweet, err := domain.NewSweet(s.name, s.category, s.price, s.quantity)
		if err != nil {
			logger.WithError(err).Error("Invalid seed sweet", "name", s.name)
			os.Exit(1)
		}
		if err := repo.Create(ctx, sweet); err != nil {
			logger.WithError(err).Error("Failed to create sweet", "name", s.name)
			os.Exit(1)
		}
		logger.Info("Seeded sweet",
			"name", sweet.Name,
			"category", sweet.Category,
			"price", sweet.Price,
			"quantity", sweet.Quantity,
		)
	}
	logger.Info("Seeding complete", "count", len(seeds))

	if err := seedAdmin(ctx, client, logger); err != nil {
		logger.WithError(err).Error("Failed to seed admin user")
		os.Exit(1)
	}
}

func seedAdmin(ctx context.Context, client *mongodb.Client, logger *logging.Logger) error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		logger.Info("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin user")
		return nil
	}

	users := mongoRepo.NewUserRepository(client.Database(), nil, logger)

	exists, err := users.EmailExists(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		logger.Info("Admin user already exists", "email", email)
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin, err := domain.NewUser(getEnv("ADMIN_USERNAME", "admin"), email, string(hash))
	if err != nil {
		return err
	}
	admin.Role = domain.RoleAdmin

	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	logger.Info("Seeded admin user", "email", admin.Email)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
