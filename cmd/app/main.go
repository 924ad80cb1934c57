package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hardmine/internal/bot"
	"hardmine/internal/config"
	"hardmine/internal/db"
	"hardmine/internal/events"
	httpServer "hardmine/internal/http"
	"hardmine/internal/http/handlers"
	"hardmine/internal/logger"
	"hardmine/internal/repository"
	"hardmine/internal/service"
	"hardmine/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool := db.Connect(ctx, cfg.DatabaseURL)
	defer dbPool.Close()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable at startup", "addr", cfg.RedisAddr, "error", err)
		}
		defer rdb.Close()
	}

	balance := service.NewBalanceService(dbPool)
	audit := service.NewAuditService(dbPool)
	referrals := service.NewReferralService(dbPool, balance, audit, cfg.Mining.ReferralBonusCS, cfg.BotUsername, cfg.WebAppShortName)
	users := service.NewUserService(dbPool, referrals, cfg.AdminTelegramIDs)
	equipment := service.NewEquipmentService(dbPool, balance, audit)
	powerUps := service.NewPowerUpService(dbPool, balance, audit)
	admin := service.NewAdminService(dbPool, balance, audit)
	payments := service.NewPaymentService(dbPool, balance, audit)

	store := repository.NewMiningStore(dbPool)
	network := service.NewNetworkService(store, rdb)
	hub := ws.NewHub()

	publishers := events.Fanout{hub}
	if rdb != nil {
		publishers = append(publishers, events.NewRedisPublisher(rdb, cfg.BlockEventsChannel))
	}
	scheduler := service.NewBlockScheduler(store, service.SchedulerConfig{
		Interval:     cfg.Mining.BlockInterval,
		BlockReward:  cfg.Mining.BlockReward,
		RetryBackoff: cfg.Mining.RetryBackoff,
	}, service.WithPublisher(publishers))

	janitor := service.NewJanitor(powerUps, cfg.Mining.PowerUpRetention)
	if err := janitor.Schedule(ctx, cfg.Mining.PurgeSchedule); err != nil {
		logger.Fatal("invalid power-up purge schedule", "spec", cfg.Mining.PurgeSchedule, "error", err)
	}

	h := &handlers.Handler{
		BotToken:  cfg.BotToken,
		DevMode:   cfg.DevMode,
		Users:     users,
		Referrals: referrals,
		Equipment: equipment,
		PowerUps:  powerUps,
		Balance:   balance,
		Network:   network,
		Admin:     admin,
		Audit:     audit,
		Blocks:    repository.NewBlockRepository(dbPool),
		Mining:    scheduler,
	}

	if !cfg.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), cors(cfg.AllowedOrigin))
	httpServer.RegisterRoutes(r, cfg, httpServer.Deps{
		Handler: h,
		Health:  handlers.NewHealthHandler(dbPool, scheduler, version),
		Hub:     hub,
		Redis:   rdb,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	janitor.Start()
	defer janitor.Stop()

	if rdb != nil {
		consumerName, _ := os.Hostname()
		if consumerName == "" {
			consumerName = "hardmine"
		}
		consumer := events.NewPaymentConsumer(rdb, cfg.PaymentsStream, events.DefaultPaymentsGroup, consumerName, payments)
		g.Go(func() error {
			return consumer.Run(gctx)
		})
	} else {
		logger.Warn("REDIS_ADDR not set, payment consumer disabled")
	}

	if cfg.AdminBotEnabled {
		adminBot, err := bot.NewAdminBot(cfg.BotToken, admin, scheduler, audit, cfg.AdminTelegramIDs)
		if err != nil {
			logger.Error("admin bot disabled", "error", err)
		} else {
			go adminBot.Start()
			defer adminBot.Stop()
		}
	}

	g.Go(func() error {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited")
}

// CORS for production (frontend on different domain)
func cors(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (allowedOrigin == "" || origin == allowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
