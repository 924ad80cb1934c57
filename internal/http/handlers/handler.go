package handlers

import (
	"context"
	"strconv"
	"time"

	"hardmine/internal/domain"
	"hardmine/internal/repository"
	"hardmine/internal/service"
)

// MiningControl is the scheduler surface the API exposes.
type MiningControl interface {
	Health() service.MiningHealth
	LastBlock() *domain.Block
	NextBlockAt() time.Time
	Interval() time.Duration
	BlockReward() int64
	Pause()
	Resume()
	Paused() bool
	MineNow(ctx context.Context) (*service.BlockMined, error)
}

// BlockReader is the read side of the chain.
type BlockReader interface {
	LatestBlock(ctx context.Context) (*domain.Block, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.Block, error)
	RewardsByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.BlockReward, error)
	RewardSummary(ctx context.Context, userID int64) (*repository.RewardSummary, error)
}

type Handler struct {
	BotToken string
	DevMode  bool

	Users     *service.UserService
	Referrals *service.ReferralService
	Equipment *service.EquipmentService
	PowerUps  *service.PowerUpService
	Balance   *service.BalanceService
	Network   *service.NetworkService
	Admin     *service.AdminService
	Audit     *service.AuditService
	Blocks    BlockReader
	Mining    MiningControl

	now func() time.Time
}

func (h *Handler) clock() time.Time {
	if h.now != nil {
		return h.now()
	}
	return time.Now()
}

// getUserID извлекает user_id из контекста Gin
func getUserID(c interface{ Get(any) (any, bool) }) (int64, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	switch v := uidVal.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

func queryInt(raw string, def, lo, hi int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
