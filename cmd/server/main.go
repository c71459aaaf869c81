package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Th3drata/Tomodoro/internal/changefeed"
	"github.com/Th3drata/Tomodoro/internal/config"
	"github.com/Th3drata/Tomodoro/internal/database"
	"github.com/Th3drata/Tomodoro/internal/handlers"
	"github.com/Th3drata/Tomodoro/internal/middleware"
	"github.com/Th3drata/Tomodoro/internal/repository"
	"github.com/Th3drata/Tomodoro/internal/router"
	"github.com/Th3drata/Tomodoro/internal/services"
	"github.com/Th3drata/Tomodoro/internal/timer"
	"github.com/Th3drata/Tomodoro/internal/websocket"
	"github.com/Th3drata/Tomodoro/internal/worker"
)

func main() {
	log.Println("🚀 Starting Tomodoro server...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	policy, err := config.LoadTimerPolicy(cfg.TimerPolicyFile)
	if err != nil {
		log.Fatalf("✗ Timer policy invalid: %v", err)
	}
	log.Printf("✓ Timer policy loaded (focus %d / break %d / long break %d min)",
		policy.Defaults.FocusMinutes, policy.Defaults.BreakMinutes, policy.Defaults.LongBreakMinutes)

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	applied, err := database.RunMigrations(pool, cfg.MigrationsPath)
	if err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Printf("✓ Database migrations applied (%d new)", len(applied))

	// ──── Initialize Repositories ────
	feed := changefeed.NewRedis(redisClients.PubSub)
	userRepo := repository.NewUserRepo(pool)
	sessionRepo := repository.NewSessionRepo(pool, feed)
	intervalRepo := repository.NewIntervalRepo(pool, feed)
	settingsRepo := repository.NewSettingsRepo(pool, feed)

	// ──── Step 5: Start Completion Worker Pool ────
	workerPool := worker.NewPool(cfg.CompletionWorkers, 256)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.CompletionWorkers)

	// ──── Step 6: Start WebSocket Hub ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, sessionRepo, intervalRepo, settingsRepo)
	log.Println("✓ WebSocket hub started")

	// ──── Step 7: Start Timer Engines ────
	engines := timer.NewManager(timer.ManagerConfig{
		Defaults: policy.Defaults,
		Options: timer.Options{
			TickInterval: cfg.TickInterval,
			Limits:       policy.Limits,
			Dispatcher:   workerPool,
		},
		Sessions: sessionRepo,
		Interval: intervalRepo,
		Settings: settingsRepo,
		Watcher:  sessionRepo,
		Sink:     wsHub,
		Notifier: wsHub,
	})
	sweeper := services.NewEngineSweeper(engines, wsHub)
	sweeper.Start()
	log.Printf("✓ Timer engines ready (tick %s)", cfg.TickInterval)

	// ──── Initialize Services ────
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.FrontendURL)
	authService := services.NewAuthService(userRepo, redisClients.Store, jwtAuth, emailService, engines, cfg.GoogleClientID)
	sessionService := services.NewSessionService(sessionRepo, intervalRepo)
	reviewService := services.NewReviewService(sessionService, intervalRepo, sessionRepo)
	settingsService := services.NewSettingsService(settingsRepo, engines, policy.Defaults, policy.Limits)
	timerService := services.NewTimerService(engines, sessionService)
	statsService := services.NewStatsService(intervalRepo, sessionRepo)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	sessionHandler := handlers.NewSessionHandler(sessionService, reviewService)
	settingsHandler := handlers.NewSettingsHandler(settingsService)
	timerHandler := handlers.NewTimerHandler(timerService)
	statsHandler := handlers.NewStatsHandler(statsService)

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		sessionHandler,
		settingsHandler,
		timerHandler,
		statsHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	shutdownDone := awaitShutdown(sigChan, server, 30*time.Second,
		sweeper.Stop,
		engines.Shutdown,
		workerPool.Stop,
	)

	log.Printf("✓ Tomodoro ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	// Pending completion writes still need the pools deferred above.
	<-shutdownDone
	log.Println("✓ Shutdown complete")
}
