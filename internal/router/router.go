package router

import (
	"log"

	"github.com/l3v3l-match/backend/internal/handlers"
	"github.com/l3v3l-match/backend/internal/middleware"
	"github.com/l3v3l-match/backend/internal/models"
	"github.com/l3v3l-match/backend/internal/repositories"
	"github.com/l3v3l-match/backend/internal/services"
	"github.com/l3v3l-match/backend/internal/transports"
	"github.com/l3v3l-match/backend/pkg/config"
	"github.com/l3v3l-match/backend/pkg/firebase"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Logger())
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, cfg *config.Config, db *config.DB, firebaseApp *firebase.App, logger *zap.Logger) {
	// AutoMigrate PostgreSQL models
	if err := db.Postgres.AutoMigrate(&models.User{}); err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	mongoDB := db.Mongo.Database(cfg.MongoDatabase)
	userRepo := repositories.NewPostgresUserRepository(db.Postgres)
	queueRepo := repositories.NewMongoQueueRepository(mongoDB)
	preferenceRepo := repositories.NewMongoPreferenceRepository(mongoDB)
	logRepo := repositories.NewMongoDeliveryLogRepository(mongoDB)
	templateRepo := repositories.NewMongoTemplateRepository(mongoDB)

	// --- Initialize Transports ---
	senders := map[models.Channel]transports.Transport{
		models.ChannelEmail: transports.NewEmailTransport(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.FromEmail, cfg.FromName),
		models.ChannelSMS:   transports.NewSMSTransport(cfg.SMSBaseURL, cfg.SMSAPIKey, cfg.SMSSenderID),
		models.ChannelPush:  transports.NewPushTransport(firebaseApp.MessagingClient),
	}

	// --- Initialize Services ---
	enqueueService := services.NewEnqueueService(preferenceRepo, queueRepo, logRepo, userRepo, logger)
	dispatcherCfg := services.DefaultDispatcherConfig()
	dispatcherCfg.BatchSize = cfg.DispatchBatchSize
	dispatcher := services.NewDispatcher(queueRepo, logRepo, templateRepo, userRepo, senders, dispatcherCfg, logger)
	eventDispatcher := services.NewEventDispatcher(enqueueService, db.Redis, logger)

	// --- Tracking callbacks (unauthenticated: hit by mail clients) ---
	analyticsHandler := handlers.NewAnalyticsHandler(logRepo)
	analyticsHandler.RegisterTrackingRoutes(e)
	log.Println("Tracking routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware())
	log.Println("JWT authentication middleware applied to /api/v1 group.")

	notificationHandler := handlers.NewNotificationHandler(enqueueService, dispatcher, eventDispatcher, queueRepo)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")

	preferenceHandler := handlers.NewPreferenceHandler(preferenceRepo)
	preferenceHandler.RegisterPreferenceRoutes(api)
	log.Println("Preference routes configured.")

	analyticsHandler.RegisterAnalyticsRoutes(api)
	log.Println("Analytics routes configured.")

	// --- Producer routes (mobile clients authenticate with Firebase) ---
	producer := e.Group("/api/v1/producer")
	producer.Use(middleware.FirebaseAuthMiddleware(firebaseApp.AuthClient))
	notificationHandler.RegisterEventRoutes(producer)
	log.Println("Producer event routes configured.")
}
