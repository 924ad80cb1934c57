package service

import (
	"context"
	"errors"

	"hardmine/internal/domain"
	"hardmine/internal/repository"
	"hardmine/internal/telegram"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrSelfReferral    = errors.New("cannot refer yourself")
	ErrAlreadyReferred = repository.ErrAlreadyReferred
	ErrUnknownReferral = errors.New("unknown referral code")
)

type ReferralService struct {
	db          *pgxpool.Pool
	users       *repository.UserRepository
	referrals   *repository.ReferralRepository
	balance     *BalanceService
	audit       *AuditService
	bonus       decimal.Decimal
	botUsername string
	appName     string
}

func NewReferralService(db *pgxpool.Pool, balance *BalanceService, audit *AuditService, bonusCS int64, botUsername, appName string) *ReferralService {
	return &ReferralService{
		db:          db,
		users:       repository.NewUserRepository(db),
		referrals:   repository.NewReferralRepository(db),
		balance:     balance,
		audit:       audit,
		bonus:       decimal.NewFromInt(bonusCS),
		botUsername: botUsername,
		appName:     appName,
	}
}

func (s *ReferralService) Link(code string) string {
	return telegram.ReferralLink(s.botUsername, s.appName, code)
}

// Apply links referee to the owner of code and credits the referrer bonus.
// A user can be referred once.
func (s *ReferralService) Apply(ctx context.Context, refereeID int64, code string) (*domain.Referral, error) {
	referrer, err := s.users.GetByReferralCode(ctx, code)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUnknownReferral
	}
	if err != nil {
		return nil, err
	}
	if referrer.ID == refereeID {
		return nil, ErrSelfReferral
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// lock both users (order by ID to prevent deadlocks)
	first, second := referrer.ID, refereeID
	if first > second {
		first, second = second, first
	}
	locked := make(map[int64]*domain.User, 2)
	for _, id := range []int64{first, second} {
		u, err := s.users.LockWithTx(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = u
	}
	if locked[refereeID].ReferredBy != nil {
		return nil, ErrAlreadyReferred
	}

	ref := &domain.Referral{ReferrerID: referrer.ID, RefereeID: refereeID, BonusEarned: s.bonus}
	if err := s.referrals.CreateWithTx(ctx, tx, ref); err != nil {
		return nil, err
	}
	if s.bonus.IsPositive() {
		if _, err := s.balance.CreditWithTx(ctx, tx, referrer.ID, domain.CurrencyCS, s.bonus, domain.TxReferralBonus,
			map[string]interface{}{"referee_id": refereeID}); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, refereeID, domain.AuditActionReferralApply, domain.AuditCategoryReferral, map[string]interface{}{
		"referrer_id": referrer.ID,
		"bonus":       s.bonus.String(),
	})
	return ref, nil
}

func (s *ReferralService) Stats(ctx context.Context, userID int64) (*repository.ReferralStats, error) {
	return s.referrals.GetReferralStats(ctx, userID)
}

func (s *ReferralService) List(ctx context.Context, userID int64, limit int) ([]domain.Referral, error) {
	return s.referrals.GetReferralsByUser(ctx, userID, limit)
}

func (s *ReferralService) TopReferrers(ctx context.Context, limit int) ([]repository.ReferrerCount, error) {
	return s.referrals.GetTopReferrers(ctx, limit)
}
