package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/franciscosanchezn/campus-canteen-api/docs" // Import generated docs
	"github.com/franciscosanchezn/campus-canteen-api/internal/auth"
	"github.com/franciscosanchezn/campus-canteen-api/internal/cart"
	"github.com/franciscosanchezn/campus-canteen-api/internal/config"
	"github.com/franciscosanchezn/campus-canteen-api/internal/controllers"
	"github.com/franciscosanchezn/campus-canteen-api/internal/database"
	"github.com/franciscosanchezn/campus-canteen-api/internal/events"
	"github.com/franciscosanchezn/campus-canteen-api/internal/gateway"
	"github.com/franciscosanchezn/campus-canteen-api/internal/middleware"
	"github.com/franciscosanchezn/campus-canteen-api/internal/models"
	"github.com/franciscosanchezn/campus-canteen-api/internal/notifier"
	"github.com/franciscosanchezn/campus-canteen-api/internal/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/swaggo/files"
	"github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const sessionCookieName = "canteen_session"

// app holds the long lived collaborators started by main
type app struct {
	db            *gorm.DB
	configuration *config.Config
	notifications *notifier.Dispatcher
	orderEvents   *events.Dispatcher
	amqp          *events.AMQPPublisher
}

// @title Campus Canteen API
// @version 1.0
// @description Menu, cart, checkout, payments and order tracking for a campus canteen
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// Load environment variables
	loadDotenvFile()

	// Initialize logger
	setUpLogger()

	// Load configuration
	a := &app{configuration: loadConfig()}
	a.setLogLevel()

	// Initialize database connection
	a.setupDatabase()
	defer a.closeDatabase()

	// Outbound notifications and order events
	a.setupDispatchers()

	router := a.setupRouter()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              fmt.Sprintf("%v:%d", a.configuration.Host, a.configuration.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Server stopped with error")
	}

	// Let in-flight emails and events finish before closing the broker
	a.notifications.Wait()
	a.orderEvents.Wait()
	if a.amqp != nil {
		a.amqp.Close()
	}
	log.Info("Server stopped")
}

// checkPanicErr checks if an error occurred and panics if it did
func checkPanicErr(err error) {
	if err != nil {
		panic(err)
	}
}

// loadDotenvFile loads environment variables from a .env file
// If the file is not found, it will log a warning and use system environment variables
func loadDotenvFile() {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}
}

// setUpLogger initializes the logger with a JSON formatter and sets the log level based on the environment
func setUpLogger() {
	log.SetFormatter(&log.JSONFormatter{})
	environment := config.GetEnvWithDefault("APP_ENV", "development")
	switch environment {
	case "development":
		log.SetLevel(log.DebugLevel)
	case "production":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

// setLogLevel applies LOG_LEVEL to the main logger and the package loggers
func (a *app) setLogLevel() {
	level, err := log.ParseLevel(a.configuration.LogLevel)
	if err != nil {
		log.WithError(err).Warnf("Unknown LOG_LEVEL %q, keeping %s", a.configuration.LogLevel, log.GetLevel())
		return
	}
	log.SetLevel(level)
	services.SetLogLevel(level)
	controllers.SetLogLevel(level)
	middleware.SetLogLevel(level)
}

// loadConfig loads the application configuration from environment variables
// It returns a Config struct or panics if there is an error
func loadConfig() *config.Config {
	conf, err := config.LoadConfig()
	checkPanicErr(err)
	return conf
}

// setupDatabase opens the configured database, migrates the schema and seeds an empty menu
func (a *app) setupDatabase() {
	conf := a.configuration
	db, err := database.InitDatabase(database.DatabaseConfig{
		Driver:   conf.DBDriver,
		Host:     conf.DBHost,
		Port:     conf.DBPort,
		User:     conf.DBUser,
		Password: conf.DBPassword,
		Name:     conf.DBName,
		SSLMode:  conf.DBSSLMode,
		URL:      conf.DatabaseURL,
		Path:     conf.DBPath,
	})
	checkPanicErr(err)
	checkPanicErr(database.Migrate(db))
	a.db = db

	// Create only if is empty
	var count int64
	db.Model(&models.MenuItem{}).Count(&count)
	if count == 0 {
		log.Info("Database is empty, seeding initial data")
		checkPanicErr(seedDatabase(db))
	} else {
		log.Info("Database already seeded with initial data")
	}
}

func (a *app) closeDatabase() {
	if a.db == nil {
		return
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}

// seedDatabase seeds the database with a starter menu
func seedDatabase(db *gorm.DB) error {
	menu := map[string][]models.MenuItem{
		"Rice": {
			{Name: "Chicken Biryani", Description: "Basmati rice with spiced chicken", Price: decimal.RequireFromString("180.00"), Stock: 40, IsPopular: true},
			{Name: "Khichuri", Description: "Rice and lentils with egg", Price: decimal.RequireFromString("90.00"), Stock: 30},
		},
		"Snacks": {
			{Name: "Singara", Price: decimal.RequireFromString("10.00"), Stock: 100, IsPopular: true},
			{Name: "Fuchka", Description: "Six pieces with tamarind water", Price: decimal.RequireFromString("50.00"), Stock: 50},
		},
		"Drinks": {
			{Name: "Milk Tea", Price: decimal.RequireFromString("15.00"), Stock: 200},
			{Name: "Lemon Juice", Price: decimal.RequireFromString("35.00"), Stock: 60},
		},
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for name, items := range menu {
			category := models.Category{Name: name}
			if err := tx.Where(models.Category{Name: name}).FirstOrCreate(&category).Error; err != nil {
				return err
			}
			for i := range items {
				items[i].CategoryID = &category.ID
				items[i].IsActive = true
				if err := tx.Create(&items[i]).Error; err != nil {
					return err
				}
			}
		}
		log.Info("Database seeded successfully")
		return nil
	})
}

// setupDispatchers picks SES or the log for email and RabbitMQ or the log for order events
func (a *app) setupDispatchers() {
	conf := a.configuration

	var sender notifier.Sender = notifier.LogSender{}
	if conf.SESEnabled {
		ses, err := notifier.NewSESSender(context.Background(), notifier.SESConfig{
			Region:          conf.AWSRegion,
			AccessKeyID:     conf.AWSAccessKeyID,
			SecretAccessKey: conf.AWSSecretAccessKey,
			SenderEmail:     conf.SenderEmail,
		})
		if err != nil {
			log.WithError(err).Warn("SES unavailable, notifications will be logged")
		} else {
			sender = ses
		}
	}
	a.notifications = notifier.NewDispatcher(sender, 0)

	var publisher events.Publisher = events.LogPublisher{}
	if conf.AMQPURL != "" {
		amqp, err := events.NewAMQPPublisher(conf.AMQPURL)
		if err != nil {
			log.WithError(err).Warn("RabbitMQ unavailable, order events will be logged")
		} else {
			a.amqp = amqp
			publisher = amqp
		}
	}
	a.orderEvents = events.NewDispatcher(publisher, 0)
}

// gateways returns the payment providers that have credentials configured
func (a *app) gateways() map[models.PaymentMethod]gateway.Gateway {
	conf := a.configuration
	gateways := map[models.PaymentMethod]gateway.Gateway{}
	if conf.StripeSecretKey != "" {
		gateways[models.MethodStripe] = gateway.NewStripe(conf.StripeBaseURL, conf.StripeSecretKey, conf.GatewayTimeout())
	}
	if conf.SSLCommerzStoreID != "" {
		gateways[models.MethodSSLCommerz] = gateway.NewSSLCommerz(conf.SSLCommerzBaseURL, conf.SSLCommerzStoreID, conf.SSLCommerzStorePass, conf.GatewayTimeout())
	}
	for method := range gateways {
		log.WithField("method", method).Info("Payment gateway enabled")
	}
	return gateways
}

// setupRouter initializes the Gin router and sets up the routes
// It returns the configured router
func (a *app) setupRouter() *gin.Engine {
	if a.configuration.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = a.configuration.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AddAllowHeaders("Authorization", "X-Request-ID")
	router.Use(cors.New(corsConfig))

	store := cookie.NewStore([]byte(a.configuration.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   a.configuration.Environment == "production",
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(sessionCookieName, store))

	secret := []byte(a.configuration.JWTSecret)
	render := controllers.JSONRenderer{}
	cartStore := cart.NewSessionStore()

	userService := services.NewUserService(a.db)
	catalogService := services.NewCatalogService(a.db)
	reviewService := services.NewReviewService(a.db)
	paymentService := services.NewPaymentService(a.db, a.gateways(), services.PaymentSettings{
		Currency:   a.configuration.Currency,
		SuccessURL: a.configuration.PaymentSuccessURL,
		FailureURL: a.configuration.PaymentFailureURL,
		Timeout:    a.configuration.GatewayTimeout(),
	}, a.notifications, a.orderEvents)
	orderService := services.NewOrderService(a.db, paymentService, a.notifications, a.orderEvents)
	tokens := auth.NewTokenIssuer(secret, auth.DefaultTTL, userService)

	// Health check endpoint
	router.GET("/health", a.healthCheckHandler)

	controllers.RegisterRoutes(router, controllers.Handlers{
		Auth:      controllers.NewAuthController(userService, tokens, render),
		Catalog:   controllers.NewCatalogController(catalogService, render),
		Cart:      controllers.NewCartController(cartStore, catalogService, render),
		Orders:    controllers.NewOrderController(orderService, cartStore, render, paymentService.Settings().FailureURL),
		Payments:  controllers.NewPaymentController(paymentService, render),
		Reviews:   controllers.NewReviewController(reviewService, render),
		Dashboard: controllers.NewDashboardController(services.NewDashboardService(a.db), render),
		Admin:     controllers.NewAdminController(userService, reviewService, render),
	}, middleware.JWTAuth(secret, userService))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	return router
}

// healthCheckHandler handles the health check endpoint
// @Summary Health check
// @Description Check if the service and its database are reachable
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (a *app) healthCheckHandler(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	if sqlDB, err := a.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "campus-canteen-api",
	})
}
