// File: careline/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"careline/config"
	"careline/cron"
	"careline/database"
	contactRepoPkg "careline/database/repository/contact"
	incidentRepoPkg "careline/database/repository/incident"
	reminderRepoPkg "careline/database/repository/reminder"
	userRepoPkg "careline/database/repository/user"
	"careline/handlers"
	"careline/middleware"
	"careline/models"
	"careline/routes"
	"careline/services/dispatch"
	"careline/services/escalation"
	"careline/services/scheduler"
	"careline/services/tasks"
	"careline/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitDedupCache()
	utils.FirebaseInit()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	incidentRepo := incidentRepoPkg.NewMongoIncidentRepo()
	reminderRepo := reminderRepoPkg.NewMongoReminderRepo()
	contactRepo := contactRepoPkg.NewMongoContactRepo()
	userRepo := userRepoPkg.NewMongoUserRepo()

	// outbound channels behind the dispatcher.
	dispatcher := &dispatch.DefaultDispatcher{
		Channels: map[string]dispatch.Channel{
			models.ChannelPush: &dispatch.PushChannel{Client: utils.FCMClient},
			models.ChannelSMS: &dispatch.WebhookChannel{
				ChannelName: models.ChannelSMS,
				URL:         config.AppConfig.SMSProviderURL,
				APIKey:      config.AppConfig.SMSProviderKey,
			},
			models.ChannelVoice: &dispatch.WebhookChannel{
				ChannelName: models.ChannelVoice,
				URL:         config.AppConfig.VoiceProviderURL,
				APIKey:      config.AppConfig.VoiceProviderKey,
			},
			models.ChannelEmergency: &dispatch.WebhookChannel{
				ChannelName: models.ChannelEmergency,
				URL:         config.AppConfig.EmergencyAPIURL,
				APIKey:      config.AppConfig.EmergencyAPIKey,
			},
		},
		MaxAttempts: config.AppConfig.DispatchMaxAttempts,
		BackoffBase: time.Duration(config.AppConfig.DispatchBackoffBaseSeconds) * time.Second,
		SendTimeout: time.Duration(config.AppConfig.DispatchTimeoutSeconds) * time.Second,
		Logger:      logger,
	}

	// task queue client shared by the engine and the scheduler.
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskQueueDB,
	})
	defer asynqClient.Close()
	enqueuer := &tasks.AsynqEnqueuer{Client: asynqClient}

	// services.
	engine := escalation.NewDefaultEngine(
		incidentRepo,
		contactRepo,
		enqueuer,
		time.Duration(config.AppConfig.TierTimeoutSeconds)*time.Second,
		logger,
	)
	reminderScheduler := &scheduler.Scheduler{
		Reminders:  reminderRepo,
		Enqueuer:   enqueuer,
		TickWindow: time.Duration(config.AppConfig.SchedulerTickSeconds) * time.Second,
		Logger:     logger,
	}

	// background worker and periodic jobs.
	cron.InitWorker(cron.WorkerDeps{
		Dispatcher: dispatcher,
		Engine:     engine,
		Incidents:  incidentRepo,
		Reminders:  reminderRepo,
		Users:      userRepo,
	})
	periodic, err := cron.StartPeriodicJobs(reminderScheduler, engine)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to start periodic jobs: %v", err)
	}

	utils.StartHealthMonitor(
		[]*redis.Client{utils.GetCacheClient(), utils.GetDedupClient()},
		database.MongoClient,
	)

	// handlers.
	sosHandler := handlers.NewSOSHandler(engine, incidentRepo, utils.GetDedupClient())
	reminderHandler := handlers.NewReminderHandler(reminderRepo)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		// SOS endpoints.
		TriggerHandler:         sosHandler.TriggerHandler,
		SOSAckHandler:          sosHandler.AckHandler,
		ResolveHandler:         sosHandler.ResolveHandler,
		ListIncidentsHandler:   sosHandler.ListIncidentsHandler,
		IncidentHistoryHandler: sosHandler.IncidentHistoryHandler,

		// Reminder endpoints.
		CreateReminderHandler:  reminderHandler.CreateHandler,
		ListRemindersHandler:   reminderHandler.ListHandler,
		SnoozeReminderHandler:  reminderHandler.SnoozeHandler,
		CancelReminderHandler:  reminderHandler.CancelHandler,
		ReminderAckHandler:     reminderHandler.AckHandler,
		FailedRemindersHandler: reminderHandler.FailedHandler,
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	periodic.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
