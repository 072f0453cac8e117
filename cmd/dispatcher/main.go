package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/l3v3l-match/backend/internal/models"
	"github.com/l3v3l-match/backend/internal/repositories"
	"github.com/l3v3l-match/backend/internal/services"
	"github.com/l3v3l-match/backend/internal/transports"
	"github.com/l3v3l-match/backend/pkg/config"
	"github.com/l3v3l-match/backend/pkg/firebase"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// The dispatcher worker drains the notification queue on a fixed schedule.
// Any number of these processes may run side by side: they coordinate only
// through the queue store's atomic claim.
func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if cfg.Env == "development" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	ctx := context.Background()
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	mongoDB := db.Mongo.Database(cfg.MongoDatabase)
	queueRepo := repositories.NewMongoQueueRepository(mongoDB)
	logRepo := repositories.NewMongoDeliveryLogRepository(mongoDB)
	templateRepo := repositories.NewMongoTemplateRepository(mongoDB)
	userRepo := repositories.NewPostgresUserRepository(db.Postgres)

	senders := map[models.Channel]transports.Transport{
		models.ChannelEmail: transports.NewEmailTransport(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.FromEmail, cfg.FromName),
		models.ChannelSMS:   transports.NewSMSTransport(cfg.SMSBaseURL, cfg.SMSAPIKey, cfg.SMSSenderID),
		models.ChannelPush:  transports.NewPushTransport(firebaseApp.MessagingClient),
	}

	dispatcherCfg := services.DefaultDispatcherConfig()
	dispatcherCfg.BatchSize = cfg.DispatchBatchSize
	dispatcherCfg.StuckTimeout = time.Duration(cfg.StuckTimeoutMinutes) * time.Minute
	dispatcher := services.NewDispatcher(queueRepo, logRepo, templateRepo, userRepo, senders, dispatcherCfg, logger)

	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger))
	scheduler := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))

	spec := fmt.Sprintf("@every %s", cfg.DispatchInterval)
	if _, err := scheduler.AddFunc(spec, func() {
		runCtx, cancel := context.WithTimeout(context.Background(), cfg.DispatchInterval*2)
		defer cancel()
		if _, err := dispatcher.Run(runCtx); err != nil {
			logger.Error("dispatcher run failed", zap.Error(err))
		}
	}); err != nil {
		log.Fatalf("Failed to schedule dispatcher: %v", err)
	}

	scheduler.Start()
	logger.Info("dispatcher worker started", zap.Duration("interval", cfg.DispatchInterval))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down, waiting for in-flight run")
	<-scheduler.Stop().Done()
	logger.Info("dispatcher worker stopped")
}
