package main

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/sweetshop/inventory-api/internal/application"
	"github.com/sweetshop/inventory-api/internal/auth"
	"github.com/sweetshop/inventory-api/internal/domain"
	kafkaPub "github.com/sweetshop/inventory-api/internal/infrastructure/kafka"
	mongoRepo "github.com/sweetshop/inventory-api/internal/infrastructure/mongodb"
	"github.com/sweetshop/inventory-api/pkg/api"
	"github.com/sweetshop/inventory-api/pkg/errors"
	"github.com/sweetshop/inventory-api/pkg/kafka"
	"github.com/sweetshop/inventory-api/pkg/logging"
	"github.com/sweetshop/inventory-api/pkg/metrics"
	"github.com/sweetshop/inventory-api/pkg/middleware"
	"github.com/sweetshop/inventory-api/pkg/mongodb"
)

const serviceName = "inventory-api"

func main() {
	// Load .env if present; environment variables take precedence
	_ = godotenv.Load()

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting inventory-api")

	config := loadConfig()
	if config.JWTSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}
	ctx := context.Background()

	// Initialize Prometheus metrics
	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)
	logger.Info("Metrics initialized")

	// Initialize MongoDB
	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Initialize Kafka producer and event publisher
	kafkaProducer := kafka.NewProducer(config.Kafka)
	defer kafkaProducer.Close()
	inventoryPublisher := kafkaPub.NewEventPublisher(kafkaProducer, kafka.Topics.InventoryEvents, "/"+serviceName, m, logger)
	userPublisher := kafkaPub.NewEventPublisher(kafkaProducer, kafka.Topics.UserEvents, "/"+serviceName, m, logger)
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	// Initialize repositories
	sweetRepo := mongoRepo.NewSweetRepository(mongoClient.Database(), m, logger)
	userRepo := mongoRepo.NewUserRepository(mongoClient.Database(), m, logger)

	// Initialize token manager and application services
	jwtManager := auth.NewJWTManager(config.JWTSecret, serviceName, config.JWTTTL)
	sweetService := application.NewSweetApplicationService(sweetRepo, inventoryPublisher, m, logger)
	authService := application.NewAuthApplicationService(userRepo, jwtManager, userPublisher, m, logger)

	// Setup Gin router with middleware
	router := gin.New()
	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)
	router.Use(middleware.MetricsMiddleware(m))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	authRoutes := router.Group("/api/auth")
	{
		authRoutes.POST("/register", registerHandler(authService, logger))
		authRoutes.POST("/login", loginHandler(authService, logger))
	}

	// All sweets routes require a valid token; delete and restock are admin-only
	sweets := router.Group("/api/sweets")
	sweets.Use(auth.RequireAuth(jwtManager))
	{
		sweets.GET("", listSweetsHandler(sweetService, logger))
		sweets.GET("/search", searchSweetsHandler(sweetService, logger))
		sweets.POST("", createSweetHandler(sweetService, logger))
		sweets.GET("/:id", getSweetHandler(sweetService, logger))
		sweets.PUT("/:id", updateSweetHandler(sweetService, logger))
		sweets.POST("/:id/purchase", purchaseHandler(sweetService, logger))
		sweets.DELETE("/:id", auth.RequireRole(domain.RoleAdmin), deleteSweetHandler(sweetService, logger))
		sweets.POST("/:id/restock", auth.RequireRole(domain.RoleAdmin), restockHandler(sweetService, logger))
	}

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr string
	JWTSecret  string
	JWTTTL     time.Duration
	MongoDB    *mongodb.Config
	Kafka      *kafka.Config
}

func loadConfig() *Config {
	jwtTTL, err := time.ParseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil {
		jwtTTL = 24 * time.Hour
	}

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		JWTTTL:     jwtTTL,
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "sweetshop"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:      []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ClientID:     serviceName,
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: -1,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func registerHandler(service *application.AuthApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Username string `json:"username" binding:"required,min=3,max=50,safe_string"`
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required,min=6"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.RegisterCommand{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
		}

		result, err := service.Register(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}

func loginHandler(service *application.AuthApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.LoginCommand{
			Email:    req.Email,
			Password: req.Password,
		}

		result, err := service.Login(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func createSweetHandler(service *application.SweetApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Name     string  `json:"name" binding:"required,sweet_name"`
			Category string  `json:"category" binding:"required,sweet_category"`
			Price    float64 `json:"price" binding:"gte=0"`
			Quantity int     `json:"quantity" binding:"gte=0"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.CreateSweetCommand{
			Name:      req.Name,
			Category:  req.Category,
			Price:     req.Price,
			Quantity:  req.Quantity,
			CreatedBy: auth.GetUserID(c),
		}

		sweet, err := service.CreateSweet(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, sweet)
	}
}

func getSweetHandler(service *application.SweetApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetSweetQuery{ID: c.Param("id")}

		sweet, err := service.GetSweet(c.Request.Context(), query)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, sweet)
	}
}

func listSweetsHandler(service *application.SweetApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		page := api.ParsePagination(c)
		query := application.ListSweetsQuery{
			Limit:  int(page.GetLimit()),
			Offset: int(page.GetOffset()),
		}

		sweets, total, err := service.ListSweets(c.Request.Context(), query)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, api.NewPageResponse(sweets, page.Page, page.PageSize, total))
	}
}

func searchSweetsHandler(service *application.SweetApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		page := api.ParsePagination(c)
		query := application.ListSweetsQuery{
			Filter: domain.SweetFilter{
				Name:     c.Query("name"),
				Category: c.Query("category"),
				MinPrice: api.ParseFloatQuery(c, "minPrice"),
				MaxPrice: api.ParseFloatQuery(c, "maxPrice"),
			},
			Limit:  int(page.GetLimit()),
			Offset: int(page.GetOffset()),
		}

		sweets, total, err := service.ListSweets(c.Request.Context(), query)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, api.NewPageResponse(sweets, page.Page, page.PageSize, total))
	}
}

func updateSweetHandler(service *application.SweetApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Name     *string  `json:"name" binding:"omitempty,sweet_name"`
			Category *string  `json:"category" binding:"omitempty,sweet_category"`
			Price    *float64 `json:"price" binding:"omitempty,gte=0"`
			Quantity *int     `json:"quantity" binding:"omitempty,gte=0"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.UpdateSweetCommand{
			ID: c.Param("id"),
			Update: domain.SweetUpdate{
				Name:     req.Name,
				Category: req.Category,
				Price:    req.Price,
				Quantity: req.Quantity,
			},
		}

		sweet, err := service.UpdateSweet(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, sweet)
	}
}

func deleteSweetHandler(service *application.SweetApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		cmd := application.DeleteSweetCommand{
			ID:      c.Param("id"),
			ActorID: auth.GetUserID(c),
		}

		sweet, err := service.DeleteSweet(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, sweet)
	}
}

func purchaseHandler(service *application.SweetApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		// Quantity defaults to 1 when the body is empty or omits it
		req := struct {
			Quantity int `json:"quantity"`
		}{Quantity: 1}
		if err := c.ShouldBindJSON(&req); err != nil && !stderrors.Is(err, io.EOF) {
			responder.RespondWithAppError(errors.ErrBadRequest("invalid request body: " + err.Error()))
			return
		}

		cmd := application.PurchaseCommand{
			ID:       c.Param("id"),
			Quantity: req.Quantity,
			ActorID:  auth.GetUserID(c),
		}

		result, err := service.Purchase(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func restockHandler(service *application.SweetApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Quantity int `json:"quantity" binding:"required,gt=0"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.RestockCommand{
			ID:       c.Param("id"),
			Quantity: req.Quantity,
			ActorID:  auth.GetUserID(c),
		}

		result, err := service.Restock(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
