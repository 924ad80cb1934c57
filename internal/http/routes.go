package http

import (
	"hardmine/internal/config"
	"hardmine/internal/http/handlers"
	"hardmine/internal/http/middleware"
	"hardmine/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
)

// Deps is everything the router needs; built once in cmd/app.
type Deps struct {
	Handler *handlers.Handler
	Health  *handlers.HealthHandler
	Hub     *ws.Hub
	Redis   *redis.Client // nil disables the shared rate limiter
}

func RegisterRoutes(r *gin.Engine, cfg *config.Config, d Deps) {
	r.Use(middleware.RequestID(), middleware.Metrics(), middleware.AccessLog())

	// Health checks (no rate limiting)
	r.GET("/health", d.Health.Health)
	r.GET("/healthz", d.Health.Liveness)
	r.GET("/readyz", d.Health.Readiness)
	r.GET("/health/mining", d.Health.Mining)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := middleware.NewRateLimiter(d.Redis)

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(limiter.ByIP("api", cfg.APIRateLimit, cfg.APIRateWindow))
	registerAPIRoutes(v1, d.Handler, limiter, cfg)

	// Legacy /api routes for backward compatibility
	api := r.Group("/api")
	api.Use(limiter.ByIP("api", cfg.APIRateLimit, cfg.APIRateWindow))
	api.GET("/health", d.Health.Health)
	registerAPIRoutes(api, d.Handler, limiter, cfg)

	// WebSocket for block events
	r.GET("/ws", ws.HandleWS(d.Hub, cfg.AllowedOrigin))
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, limiter *middleware.RateLimiter, cfg *config.Config) {
	auth := middleware.JWT()
	// per user, not per IP
	actionRL := limiter.ByUser("action", cfg.ActionRateLimit, cfg.ActionRateWindow)

	// Auth
	api.POST("/auth", h.Auth)

	// User profile
	api.GET("/me", auth, h.Me)
	api.GET("/me/transactions", auth, h.GetMyTransactions)
	api.GET("/me/equipment", auth, h.GetMyEquipment)
	api.GET("/me/powerups", auth, h.GetMyPowerUps)

	// Mining
	mining := api.Group("/mining")
	{
		mining.GET("/block/latest", h.GetLatestBlock)
		mining.GET("/blocks", h.GetRecentBlocks)
		mining.GET("/stats", h.GetMiningStats)
		mining.GET("/top", h.GetTopMiners)
		mining.GET("/rewards", auth, h.GetMyRewards)
		mining.GET("/calendar", auth, h.GetMiningCalendar)
	}

	// Equipment shop
	api.GET("/equipment", h.GetEquipmentCatalog)
	api.POST("/equipment/:id/buy", auth, actionRL, h.BuyEquipment)
	api.POST("/equipment/:id/upgrade", auth, actionRL, h.UpgradeEquipment)

	// Power-ups
	api.GET("/powerups/offers", h.GetPowerUpOffers)
	api.POST("/powerups/:code/activate", auth, actionRL, h.ActivatePowerUp)

	// Referral system
	referral := api.Group("/referral")
	referral.Use(auth)
	{
		referral.GET("/code", h.GetReferralCode)
		referral.GET("/link", h.GetReferralLink)
		referral.GET("/stats", h.GetReferralStats)
		referral.POST("/apply", actionRL, h.ApplyReferralCode)
	}

	// Admin
	admin := api.Group("/admin")
	admin.Use(auth, middleware.AdminOnly(h.IsAdmin))
	{
		admin.GET("/mining", h.GetAdminMining)
		admin.POST("/mining/pause", h.PauseMining)
		admin.POST("/mining/resume", h.ResumeMining)
		admin.POST("/mining/mine", h.ForceMine)
		admin.GET("/audit", h.GetAuditLogs)
	}
}
