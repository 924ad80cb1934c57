package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"hardmine/internal/domain"
	"hardmine/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// AdminService provides admin statistics and operations
type AdminService struct {
	db        *pgxpool.Pool
	users     *repository.UserRepository
	blocks    *repository.BlockRepository
	referrals *repository.ReferralRepository
	balance   *BalanceService
	audit     *AuditService
}

// NewAdminService creates a new admin service
func NewAdminService(db *pgxpool.Pool, balance *BalanceService, audit *AuditService) *AdminService {
	return &AdminService{
		db:        db,
		users:     repository.NewUserRepository(db),
		blocks:    repository.NewBlockRepository(db),
		referrals: repository.NewReferralRepository(db),
		balance:   balance,
		audit:     audit,
	}
}

// Stats represents platform statistics
type Stats struct {
	Users  *repository.UserTotals  `json:"users"`
	Chain  *repository.ChainTotals `json:"chain"`
	Mining *MiningHealth           `json:"mining,omitempty"`
}

// GetStats returns platform statistics. health may be nil when the scheduler
// runs in another process.
func (s *AdminService) GetStats(ctx context.Context, health *MiningHealth) (*Stats, error) {
	users, err := s.users.GetTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("user totals: %w", err)
	}
	chain, err := s.blocks.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain totals: %w", err)
	}
	return &Stats{Users: users, Chain: chain, Mining: health}, nil
}

// UserInfo represents user information for admin
type UserInfo struct {
	*domain.User
	Blocks     int64 `json:"blocks"`
	TotalMined int64 `json:"total_mined"`
	Referrals  int   `json:"referrals"`
}

// ResolveUser finds a user by telegram id or #internal id.
func (s *AdminService) ResolveUser(ctx context.Context, identifier string) (*domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, repository.ErrUserNotFound
	}
	if strings.HasPrefix(identifier, "#") {
		id, err := strconv.ParseInt(identifier[1:], 10, 64)
		if err != nil {
			return nil, repository.ErrUserNotFound
		}
		return s.users.GetByID(ctx, id)
	}
	if tgID, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		return s.users.GetByTgID(ctx, tgID)
	}
	return nil, repository.ErrUserNotFound
}

func (s *AdminService) GetUserInfo(ctx context.Context, identifier string) (*UserInfo, error) {
	u, err := s.ResolveUser(ctx, identifier)
	if err != nil {
		return nil, err
	}
	info := &UserInfo{User: u}
	if sum, err := s.blocks.RewardSummary(ctx, u.ID); err == nil {
		info.Blocks, info.TotalMined = sum.Blocks, sum.TotalMined
	}
	if rs, err := s.referrals.GetReferralStats(ctx, u.ID); err == nil {
		info.Referrals = rs.TotalReferrals
	}
	return info, nil
}

// GrantCS credits CS to the user identified by tg id. The ledger row and the
// audit entry are written in the same transaction as the credit.
func (s *AdminService) GrantCS(ctx context.Context, adminTgID int64, identifier string, amount int64) (*domain.User, decimal.Decimal, error) {
	if amount <= 0 {
		return nil, decimal.Zero, errors.New("amount must be positive")
	}
	u, err := s.ResolveUser(ctx, identifier)
	if err != nil {
		return nil, decimal.Zero, err
	}
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, decimal.Zero, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	newBalance, err := s.balance.CreditWithTx(ctx, tx, u.ID, domain.CurrencyCS, decimal.NewFromInt(amount), domain.TxAdminGrant,
		map[string]interface{}{"admin_tg_id": adminTgID})
	if err != nil {
		return nil, decimal.Zero, err
	}
	if err := s.audit.LogAdminActionWithTx(ctx, tx, adminTgID, domain.AuditActionAdminGrant, u.ID, map[string]interface{}{
		"currency": domain.CurrencyCS,
		"amount":   amount,
	}); err != nil {
		return nil, decimal.Zero, fmt.Errorf("audit grant: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, decimal.Zero, err
	}
	return u, newBalance, nil
}

// GetAllUserTgIDs returns telegram ids for broadcasts.
func (s *AdminService) GetAllUserTgIDs(ctx context.Context) ([]int64, error) {
	return s.users.ListTgIDs(ctx)
}

func (s *AdminService) TopReferrers(ctx context.Context, limit int) ([]repository.ReferrerCount, error) {
	return s.referrals.GetTopReferrers(ctx, limit)
}

func (s *AdminService) RecentBlocks(ctx context.Context, limit int) ([]*domain.Block, error) {
	return s.blocks.ListRecent(ctx, limit)
}
