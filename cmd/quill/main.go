package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/quill/internal/cache"
	"github.com/weiawesome/quill/internal/config"
	"github.com/weiawesome/quill/internal/consumer"
	"github.com/weiawesome/quill/internal/handler"
	"github.com/weiawesome/quill/internal/reconciler"
	"github.com/weiawesome/quill/internal/repository"
	"github.com/weiawesome/quill/internal/service"
	"github.com/weiawesome/quill/internal/store"
	"github.com/weiawesome/quill/pkg/database"
	"github.com/weiawesome/quill/pkg/jwt"
	pkglog "github.com/weiawesome/quill/pkg/log"
	"github.com/weiawesome/quill/pkg/metrics"
	"github.com/weiawesome/quill/pkg/middleware"
	"github.com/weiawesome/quill/pkg/pubsub"
	"github.com/weiawesome/quill/pkg/storage"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// 2. Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "quill",
	})
	logger := pkglog.L()

	// 3. Init DB and schema
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to get underlying sql.DB")
	}
	defer sqlDB.Close()

	if err := repository.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")

	// 4. Caches: Redis when configured, process-local otherwise
	var (
		followStore   store.FollowStore
		profileCache  cache.ProfileCache
		trendingCache cache.TrendingCache
	)
	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.Redis.Address).Msg("failed to connect to redis")
		}
		defer rdb.Close()

		followStore = store.NewRedisFollowStore(rdb, cfg.Cache.Prefix)
		profileCache = cache.NewRedisProfileCache(rdb, cfg.Cache.Prefix)
		trendingCache = cache.NewRedisTrendingCache(rdb, cfg.Cache.Prefix)
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	} else {
		followStore = store.NewMemoryFollowStore()
		profileCache = cache.NewMemoryProfileCache()
		trendingCache = cache.NewMemoryTrendingCache()
		logger.Warn().Msg("REDIS_ADDRESS not configured; using in-process caches")
	}

	// 5. Event publisher
	publisher, err := pubsub.NewPublisher(cfg.Events)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Events.Driver).Msg("failed to create event publisher")
	}
	defer publisher.Close()

	// 6. Repositories and services
	userRepo := repository.NewGormUserRepository(db)
	postRepo := repository.NewGormPostRepository(db)
	engagementRepo := repository.NewGormEngagementRepository(db)
	followRepo := repository.NewGormFollowRepository(db)

	identitySvc := service.NewIdentityService(userRepo, profileCache, cfg.Cache.ProfileTTL)
	graphSvc := service.NewSocialGraphService(followRepo, followStore, identitySvc, publisher, cfg.Feed)
	services := handler.Services{
		Identity:   identitySvc,
		Posts:      service.NewPostService(postRepo, identitySvc, publisher, cfg.Feed),
		Engagement: service.NewEngagementService(engagementRepo, postRepo, identitySvc, publisher, cfg.Feed),
		Graph:      graphSvc,
		Feed:       service.NewFeedService(postRepo, userRepo, graphSvc, identitySvc, trendingCache, cfg.Cache.TrendingTTL, cfg.Feed),
		Analytics:  service.NewAnalyticsService(postRepo, engagementRepo, graphSvc),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 7. Featured-image uploads
	if cfg.Storage.Enabled {
		s3Storage, err := storage.NewS3Storage(ctx, cfg.Storage.S3)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init object storage")
		}
		services.Media = service.NewMediaService(s3Storage, cfg.Storage.PresignExpiry, cfg.Storage.MaxBytes)
		logger.Info().Str("bucket", cfg.Storage.S3.Bucket).Msg("featured-image uploads enabled")
	}

	// 8. Token verification
	verifier, err := jwt.NewVerifier(cfg.Identity)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token verifier")
	}
	authMiddleware := middleware.NewAuthMiddleware(verifier)

	// 9. Kafka CDC consumer for the follows table
	var kafkaConsumer *consumer.ConfluentConsumer
	if cfg.Kafka.Brokers != "" {
		kc, err := consumer.NewConfluentConsumer(cfg.Kafka, graphSvc)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create kafka consumer, CDC invalidation disabled")
		} else if err := kc.Start(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to start kafka consumer")
		} else {
			kafkaConsumer = kc
			logger.Info().Str("topic", cfg.Kafka.Topic).Msg("kafka CDC consumer started")
		}
	} else {
		logger.Info().Msg("KAFKA_BROKERS not configured; CDC consumer disabled")
	}

	// 10. Hot-key reconciler
	rec := reconciler.New(followStore, followRepo, cfg.Reconciler)
	rec.Start(ctx)
	logger.Info().Dur("interval", cfg.Reconciler.Interval).Int("top_n", cfg.Reconciler.TopN).Msg("reconciler started")

	// 11. Router
	viewLimiter := middleware.NewRateLimiter(cfg.RateLimit)
	viewLimiter.StartCleanup(time.Minute, ctx.Done())

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(pkglog.GinMiddleware(logger))

	r.GET("/health", func(c *gin.Context) {
		if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	handler.NewHandler(services, authMiddleware, viewLimiter).RegisterRoutes(r)

	// 12. Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logger.Info().Str("addr", addr).Msg("quill starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// 13. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutdown signal received")

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		// HTTP drains first, then the background workers stop.
		timeout := cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("HTTP server forced to shutdown")
		}

		cancel()

		if kafkaConsumer != nil {
			if err := kafkaConsumer.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing kafka consumer")
			}
		}

		rec.Stop()
		<-rec.Done()
	}()

	select {
	case <-shutdownDone:
		logger.Info().Msg("quill stopped")
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("shutdown timed out after 30s")
	}
}
