/**
 * @description
 * This is the main entry point for the mission-service. It is responsible for
 * initializing all components of the service, including configuration, database connection,
 * external API clients, message brokers, repositories, the core application service,
 * and the HTTP server. It wires everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9: Optional mission cache mirror.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/businessclient, pkg/ledgerclient: Clients for sibling services.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fluzio/mission-service/internal/api"
	"github.com/fluzio/mission-service/internal/app"
	"github.com/fluzio/mission-service/internal/config"
	"github.com/fluzio/mission-service/internal/store"
	"github.com/fluzio/mission-service/pkg/businessclient"
	"github.com/fluzio/mission-service/pkg/ledgerclient"
	"github.com/fluzio/mission-service/pkg/rabbitmq"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.InternalAPIKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"internal api key must be configured\" env=INTERNAL_API_KEY")
	}

	log.Printf("level=info component=bootstrap msg=\"starting mission-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	// Align pool sizing with the other platform services.
	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer to publish lifecycle and decision events.
	// A broker outage degrades to the fallback publisher; the service still boots.
	var producer rabbitmq.Publisher
	eventProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rabbitmq.EventProducerFallback{}
	} else {
		defer eventProducer.Close()
		producer = eventProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Clients for the sibling services: the points ledger (award on approval)
	// and the business directory (city lookup for competitive pricing).
	ledgerClient := ledgerclient.NewClient(cfg.LedgerServiceURL, cfg.InternalAPIKey)
	businessClient := businessclient.NewClient(cfg.BusinessServiceURL, cfg.InternalAPIKey)

	// Optional Redis mirror for mission reads. Missing or unreachable Redis
	// disables the cache; every read then hits the authoritative store.
	var redisClient *redis.Client
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; mission cache disabled\" env=REDIS_URL")
	} else {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; mission cache disabled\" err=%v", parseErr)
		} else {
			redisClient = redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; mission cache disabled\" err=%v", pingErr)
				redisClient.Close()
				redisClient = nil
			} else {
				defer redisClient.Close()
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
		}
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Pricing constants: production defaults overridden by environment config.
	analyzerCfg := app.DefaultAnalyzerConfig()
	analyzerCfg.ValuePerCompletionEUR = cfg.ValuePerCompletionEUR
	analyzerCfg.PointsPerEuro = cfg.PointsPerEuro
	analyzerCfg.ViewsPerParticipant = cfg.ViewsPerParticipant
	analyzerCfg.MinEstimatedViews = cfg.MinEstimatedViews
	analyzerCfg.DefaultTimeToCompleteMin = cfg.DefaultTimeToComplete
	analyzerCfg.RatingExcellent = cfg.RatingExcellent
	analyzerCfg.RatingGood = cfg.RatingGood
	analyzerCfg.RatingFair = cfg.RatingFair

	estimatorCfg := app.DefaultEstimatorConfig()
	estimatorCfg.MinPoints = cfg.MinMissionPoints
	estimatorCfg.MaxPoints = cfg.MaxMissionPoints

	// Initialize the core application service with its dependencies.
	missionService := app.NewService(
		repository,
		ledgerClient,
		businessClient,
		producer,
		analyzerCfg,
		estimatorCfg,
	)
	if redisClient != nil {
		missionService.SetMissionCache(app.NewRedisMissionCache(
			redisClient,
			cfg.MissionCachePrefix,
			time.Duration(cfg.MissionCacheTTLSeconds)*time.Second,
		))
	}

	// Initialize the API handlers.
	missionHandlers := api.NewMissionHandlers(missionService)

	// Set up the HTTP router and define the API routes.
	router := chi.NewRouter()
	router.Mount("/missions", api.MissionRoutes(missionHandlers, cfg.JWKSURL))

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	// Wire up the lifecycle consumer: other replicas' lifecycle events
	// invalidate this replica's cache mirror.
	lifecycleConsumer := missionService.LifecycleConsumer()

	rabbitConsumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq consumer unavailable; cross-replica cache invalidation disabled\" err=%v", err)
	} else {
		defer rabbitConsumer.Close()

		lifecycleBindings := map[string]func([]byte) bool{
			"mission.lifecycle.activated": lifecycleConsumer.HandleMessage,
			"mission.lifecycle.paused":    lifecycleConsumer.HandleMessage,
			"mission.lifecycle.completed": lifecycleConsumer.HandleMessage,
		}

		if err := rabbitConsumer.ConsumeWithBindings("fluzio.events", cfg.MissionEventQueue, lifecycleBindings); err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"lifecycle consumer start failed\" err=%v", err)
		}
	}

	// Start the cron-driven expiry sweep.
	sweeper := app.NewSweeper(missionService, cfg.MissionExpirySchedule)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"expiry sweeper start failed\" err=%v", err)
	}

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}
	<-sweeper.Stop().Done()

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
