package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"luvrix-giveaway-engine/docs"
	"luvrix-giveaway-engine/internal/common/cache"
	"luvrix-giveaway-engine/internal/common/config"
	"luvrix-giveaway-engine/internal/common/logger"
	"luvrix-giveaway-engine/internal/common/middleware"
	"luvrix-giveaway-engine/internal/events"
	giveawayhttp "luvrix-giveaway-engine/internal/features/giveaway/delivery/http"
	giveawayrepo "luvrix-giveaway-engine/internal/features/giveaway/repository"
	giveawaymemory "luvrix-giveaway-engine/internal/features/giveaway/repository/memory"
	giveawaypg "luvrix-giveaway-engine/internal/features/giveaway/repository/postgres"
	giveawayservice "luvrix-giveaway-engine/internal/features/giveaway/service"
	supporthttp "luvrix-giveaway-engine/internal/features/support/delivery/http"
	supportrepo "luvrix-giveaway-engine/internal/features/support/repository"
	supportmemory "luvrix-giveaway-engine/internal/features/support/repository/memory"
	supportpg "luvrix-giveaway-engine/internal/features/support/repository/postgres"
	supportservice "luvrix-giveaway-engine/internal/features/support/service"
	"luvrix-giveaway-engine/internal/metrics"
	"luvrix-giveaway-engine/internal/platform/postgres"
	"luvrix-giveaway-engine/internal/platform/redis"
	"luvrix-giveaway-engine/internal/platform/telegram"
	"luvrix-giveaway-engine/internal/workers"
)

// @title           Luvrix Giveaway API
// @version         1.0
// @description     Points-based giveaways for Telegram Mini Apps: participation ledger, eligibility, winner selection and support.
// @BasePath        /api/v1

// @securityDefinitions.apikey TelegramInitData
// @in header
// @name init_data
// @description Telegram Mini App init_data string for authentication

// @tag.name giveaways
// @tag.description Public giveaway catalog

// @tag.name participation
// @tag.description Joining, task completion and eligibility status

// @tag.name support
// @tag.description Support ledger, independent of winner selection

// @tag.name admin
// @tag.description Giveaway administration and winner selection

type storage struct {
	giveaways    giveawayrepo.GiveawayRepository
	participants giveawayrepo.ParticipantRepository
	selections   giveawayrepo.SelectionRepository
	supports     supportrepo.SupportRepository
	health       func(ctx context.Context) error
	close        func() error
	collector    prometheus.Collector
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Warn("Using in-memory storage, data is lost on restart")
		store := giveawaymemory.NewStore()
		return &storage{
			giveaways:    store.Giveaways(),
			participants: store.Participants(),
			selections:   store.Selections(),
			supports:     supportmemory.NewSupportRepository(),
			health:       func(context.Context) error { return nil },
			close:        func() error { return nil },
		}, nil
	}

	client, err := postgres.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Postgres.AutoMigrate {
		if err := client.Migrate(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
		logger.Info("Database schema migrated")
	}
	db := client.GetDB()
	return &storage{
		giveaways:    giveawaypg.NewGiveawayRepository(db),
		participants: giveawaypg.NewParticipantRepository(db),
		selections:   giveawaypg.NewSelectionRepository(db),
		supports:     supportpg.NewSupportRepository(db),
		health:       client.HealthCheck,
		close:        client.Close,
		collector:    client.Collector(),
	}, nil
}

func main() {
	cfg := config.Load()

	logger.Init(logger.Options{Service: cfg.ServiceName, Level: cfg.LogLevel, Console: cfg.Debug})

	zlog, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	zlog.Info("Starting Luvrix giveaway engine",
		zap.String("storage", cfg.StorageDriver),
		zap.Bool("redis", cfg.Redis.Enabled),
		zap.Bool("debug", cfg.Debug),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("Failed to open storage", zap.Error(err))
	}
	defer store.close()

	// Without Redis the cache is L1 only and events are dropped
	var (
		redisClient redis.RedisClient
		l2          *cache.CacheService
		publisher   = events.NewNopPublisher()
	)
	if cfg.Redis.Enabled {
		redisClient, err = redis.CreateRedisClient(cfg)
		if err != nil {
			zlog.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()

		l2 = cache.NewCacheService(redisClient, cfg.ServiceName+":")
		publisher = events.NewStreamPublisher(redisClient, cfg.Events.Stream, zlog)
	}

	layered, err := cache.NewLayered(l2, cache.LayeredConfig{
		L1MaxCost: cfg.Cache.L1MaxCost,
		TTL:       cfg.Cache.TTL,
	}, zlog)
	if err != nil {
		zlog.Fatal("Failed to create cache", zap.Error(err))
	}
	defer layered.Close()

	metrics.Register(prometheus.DefaultRegisterer)
	if store.collector != nil {
		prometheus.MustRegister(store.collector)
	}
	prometheus.MustRegister(metrics.NewCacheCollector(layered.Stats))

	deps := giveawayservice.Deps{
		Giveaways:    store.giveaways,
		Participants: store.participants,
		Selections:   store.selections,
		Cache:        layered,
		Publisher:    publisher,
		Config:       cfg,
		Logger:       zlog,
	}
	giveawaySvc := giveawayservice.NewGiveawayService(deps)
	participationSvc := giveawayservice.NewParticipationService(deps)
	selectionSvc := giveawayservice.NewSelectionService(deps, nil)
	supportSvc := supportservice.NewSupportService(store.supports, store.giveaways, layered, publisher, cfg.Engine.OperationTimeout, zlog)

	if redisClient != nil && cfg.Telegram.NotifyWinners {
		worker := workers.NewRedisStreamWorker(
			redisClient,
			telegram.NewClient(cfg.Telegram.BotToken),
			workers.StreamConfig{
				Stream:        cfg.Events.Stream,
				Group:         cfg.Events.ConsumerGroup,
				Consumer:      cfg.Events.ConsumerName,
				ClaimMinIdle:  cfg.Events.ClaimMinIdle,
				MaxDeliveries: cfg.Events.MaxDeliveries,
			},
			zlog,
		)
		go worker.Start(ctx)
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// Router
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorHandler(zlog))
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Accept", "X-Request-ID", middleware.InitDataHeader}
	router.Use(cors.New(corsConfig))

	auth := middleware.NewTelegramAuth(cfg.Telegram.BotToken, cfg.Telegram.InitDataTTL, zlog)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, zlog)
	go limiter.Cleanup(ctx)

	v1 := router.Group("/api/v1")
	giveawayhttp.NewGiveawayHandler(giveawaySvc, participationSvc, selectionSvc, zlog).
		RegisterRoutes(v1, giveawayhttp.Guards{
			User:  []gin.HandlerFunc{auth.Required()},
			Admin: []gin.HandlerFunc{auth.Required(), middleware.RequireAdmin(cfg.AdminIDSet(), zlog)},
			Limit: []gin.HandlerFunc{limiter.Handler()},
		})
	supporthttp.NewSupportHandler(supportSvc, zlog).
		RegisterRoutes(v1, limiter.Handler(), auth.Optional())

	setupOpsRoutes(router, cfg, store, redisClient)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		zlog.Info("Starting HTTP server", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Server forced to shutdown", zap.Error(err))
	}

	zlog.Info("Server exited")
}

func setupOpsRoutes(router *gin.Engine, cfg *config.Config, store *storage, redisClient redis.RedisClient) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   cfg.ServiceName,
		})
	})

	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := store.health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   "storage unavailable",
				"details": err.Error(),
			})
			return
		}

		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unready",
					"error":   "redis unavailable",
					"details": err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   cfg.ServiceName,
		})
	})

	metricsHandler := gin.WrapH(promhttp.Handler())
	if cfg.Metrics.User != "" {
		router.GET("/metrics", gin.BasicAuth(gin.Accounts{cfg.Metrics.User: cfg.Metrics.Password}), metricsHandler)
	} else {
		router.GET("/metrics", metricsHandler)
	}

	docs.SwaggerInfo.BasePath = "/api/v1"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
