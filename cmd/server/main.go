package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/socialsync/configs"
	"github.com/maheshrc27/socialsync/internal/api/handlers"
	"github.com/maheshrc27/socialsync/internal/api/middleware"
	job "github.com/maheshrc27/socialsync/internal/jobs"
	"github.com/maheshrc27/socialsync/internal/platform"
	"github.com/maheshrc27/socialsync/internal/queue"
	"github.com/maheshrc27/socialsync/internal/repository"
	"github.com/maheshrc27/socialsync/internal/service"
	"github.com/maheshrc27/socialsync/internal/sync"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	accountRepo := repository.NewAccountRepository(db)
	postRepo := repository.NewPostRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)
	followerRepo := repository.NewFollowerRepository(db)
	syncJobRepo := repository.NewSyncJobRepository(db)
	rateLimitRepo := repository.NewRateLimitRepository(db)
	apiKeyRepo := repository.NewApiKeyRepository(db)

	graphClient := platform.NewGraphClient(cfg.FacebookAppID, cfg.FacebookAppSecret)
	rateTracker := sync.NewRateLimitTracker(rateLimitRepo)

	registry := platform.NewRegistry(
		platform.NewFacebookAdapter(*cfg, graphClient, rateTracker),
		platform.NewInstagramAdapter(*cfg, graphClient, rateTracker),
		platform.NewYoutubeAdapter(*cfg, rateTracker),
		platform.NewSyntheticAdapter(),
	)

	refresher := sync.NewCredentialRefresher(*cfg, accountRepo, graphClient)
	persister := sync.NewPersister(postRepo, engagementRepo, followerRepo)
	engine := sync.NewEngine(*cfg, accountRepo, syncJobRepo, registry, refresher, persister)

	accountService := service.NewAccountService(*cfg, accountRepo, graphClient)
	reportService := service.NewReportService(*cfg, postRepo, engagementRepo, followerRepo)
	apiKeyService := service.NewApiKeyService(apiKeyRepo)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	// cron jobs
	scheduler := job.NewSyncScheduler(*cfg, accountRepo, engine)
	refreshTokenJob := job.NewTokenRefreshJob(accountRepo, refresher)
	reportExportJob := job.NewReportExportJob(accountRepo, reportService)
	cleanupJob := job.NewCleanupJob(rateLimitRepo)

	if err := scheduler.ScheduleRecurring(cfg.Sync.CronSpec, "scheduled"); err != nil {
		log.Fatalf("Invalid sync cron expression: %v", err)
	}
	scheduler.AddHousekeeping("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	scheduler.AddHousekeeping("@daily", reportExportJob.ExportDailyReports)
	scheduler.AddHousekeeping("@hourly", cleanupJob.PurgeExpiredWindows)
	scheduler.Start()
	defer scheduler.Stop()

	account := handlers.NewAccountHandler(accountService, scheduler, *cfg)
	app.Get("/auth/:platform", account.AddAccount)
	app.Get("/auth/:platform/callback", account.CallbackHandler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	syncH := handlers.NewSyncHandler(engine, accountService, client)
	api.Post("/sync/trigger", syncH.TriggerSync)
	api.Post("/sync/enqueue", syncH.EnqueueSync)
	api.Get("/sync/jobs", syncH.ListJobs)
	api.Get("/sync/jobs/stuck", syncH.ListStuckJobs)

	// connected accounts api routes
	api.Get("/accounts", account.ListAccounts)
	api.Post("/accounts/disconnect", account.DisconnectAccount)
	api.Post("/accounts/schedule", account.SetAccountSchedule)

	// queue worker
	queueW := queue.NewQueue(engine)

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: cfg.Sync.Concurrency,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeSyncAccount, queueW.HandleSyncAccountTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
