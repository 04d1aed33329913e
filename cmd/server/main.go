package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"intake-backend/internal/config"
	"intake-backend/internal/database"
	"intake-backend/internal/handlers"
	"intake-backend/internal/middleware"
	"intake-backend/internal/repository"
	"intake-backend/internal/router"
	"intake-backend/internal/services"
	"intake-backend/internal/websocket"
	"intake-backend/internal/worker"
	"intake-backend/migrations"
)

func main() {
	log.Println("🚀 Starting Intake Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Snapshot Store ────
	var store services.KeyValueStore
	var pubsub *redis.Client
	if cfg.RedisURL != "" {
		redisClients, err := database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisClients.Close()
		store = repository.NewRedisSnapshotStore(redisClients.Store, cfg.SnapshotTTL)
		pubsub = redisClients.PubSub
		log.Println("✓ Redis connected")
	} else {
		store = repository.NewMemoryStore()
		log.Println("✓ Using in-memory snapshot store (REDIS_URL not set)")
	}

	// ──── Step 3: Questionnaire Sources ────
	var sources services.QuestionnaireSources
	if cfg.QuestionnaireURL != "" {
		sources.Remote = services.NewHTTPQuestionSource(cfg.QuestionnaireURL, cfg.FetchTimeout)
	}
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("✗ PostgreSQL connection failed: %v", err)
		}
		defer pool.Close()
		log.Println("✓ PostgreSQL connected")

		if err := database.RunMigrations(pool, migrations.FS); err != nil {
			log.Fatalf("✗ Database migration failed: %v", err)
		}
		log.Println("✓ Database migrations applied")

		questionnaireRepo := repository.NewQuestionnaireRepo(pool)
		seeded, err := questionnaireRepo.SeedIfEmpty(context.Background(), cfg.QuestionnaireID)
		if err != nil {
			log.Printf("✗ Questionnaire seed failed: %v", err)
		} else if seeded {
			log.Printf("✓ Seeded questionnaire %s", cfg.QuestionnaireID)
		}
		sources.Stored = services.NewRepoQuestionSource(questionnaireRepo, cfg.QuestionnaireID)
	}
	if cfg.QuestionnaireFile != "" {
		sources.File = services.NewFileQuestionSource(cfg.QuestionnaireFile)
	}
	questionSource := sources.Chain()

	// ──── Step 4: Snapshot Write Pool ────
	gateway := services.NewSnapshotGateway(store)
	writePool := worker.NewPool(gateway, cfg.PersistWorkers, 256)
	writePool.Start()
	log.Printf("✓ Snapshot write pool started (%d goroutines)", cfg.PersistWorkers)

	// ──── Step 5: WebSocket Hub ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	wsHub := websocket.NewHub(pubsub, jwtAuth, cfg.FrontendURL)
	log.Println("✓ WebSocket hub started")

	// ──── Step 6: Sessions ────
	sessionManager := services.NewSessionManager(gateway, writePool, wsHub, questionSource)
	questionnaire := sessionManager.RefreshQuestionnaire(context.Background())
	log.Printf("✓ Questionnaire loaded (%d questions)", len(questionnaire.Questions))

	sweeper := services.NewSessionSweeper(sessionManager, cfg.SessionIdleTTL, cfg.QuestionnaireRefreshIn)
	sweeper.Start()
	log.Println("✓ Session sweeper started")

	quizHandler := handlers.NewQuizHandler(sessionManager, jwtAuth)

	// ──── Step 7: Start HTTP Server ────
	r := router.New(jwtAuth, quizHandler, wsHub, cfg.FrontendURL)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		sweeper.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Intake Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1/quiz", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/quiz/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	// Drain pending snapshot writes before the stores close.
	sessionManager.Close()
}
