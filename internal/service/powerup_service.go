package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hardmine/internal/domain"
	"hardmine/internal/mining"
	"hardmine/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPowerUp = errors.New("invalid power-up")
	ErrUnknownOffer   = errors.New("unknown power-up offer")
)

// PowerUpService owns the power-up lifecycle: activation, read-time
// filtering of active boosts, and purging of expired rows.
type PowerUpService struct {
	db      *pgxpool.Pool
	repo    *repository.PowerUpRepository
	balance *BalanceService
	audit   *AuditService
	now     func() time.Time
}

func NewPowerUpService(db *pgxpool.Pool, balance *BalanceService, audit *AuditService) *PowerUpService {
	return &PowerUpService{
		db:      db,
		repo:    repository.NewPowerUpRepository(db),
		balance: balance,
		audit:   audit,
		now:     time.Now,
	}
}

func newPowerUp(userID int64, kind domain.PowerUpKind, boostPct decimal.Decimal, duration time.Duration, now time.Time) (domain.PowerUp, error) {
	switch {
	case !kind.Valid():
		return domain.PowerUp{}, fmt.Errorf("%w: kind %q", ErrInvalidPowerUp, kind)
	case !boostPct.IsPositive():
		return domain.PowerUp{}, fmt.Errorf("%w: boost %s", ErrInvalidPowerUp, boostPct)
	case duration < time.Minute:
		return domain.PowerUp{}, fmt.Errorf("%w: duration %s", ErrInvalidPowerUp, duration)
	}
	return domain.PowerUp{
		UserID:      userID,
		Kind:        kind,
		BoostPct:    boostPct,
		ActivatedAt: now,
		ExpiresAt:   now.Add(duration),
	}, nil
}

// Activate starts a power-up now. Same-kind power-ups stack without limit.
func (s *PowerUpService) Activate(ctx context.Context, userID int64, kind domain.PowerUpKind, boostPct decimal.Decimal, duration time.Duration) (*domain.PowerUp, error) {
	p, err := newPowerUp(userID, kind, boostPct, duration, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetActive returns the user's power-ups active at now. Expired rows that
// are not purged yet are never returned.
func (s *PowerUpService) GetActive(ctx context.Context, userID int64, now time.Time) ([]domain.PowerUp, error) {
	ups, err := s.repo.ListActiveByUser(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	return mining.ActivePowerUps(userID, ups, now), nil
}

// Upcoming returns power-ups that are active now or start later.
func (s *PowerUpService) Upcoming(ctx context.Context, userID int64, now time.Time) ([]domain.PowerUp, error) {
	return s.repo.ListByUserUntil(ctx, userID, now)
}

// Purchase charges the offer price and activates the power-up atomically.
func (s *PowerUpService) Purchase(ctx context.Context, userID int64, code string) (*domain.PowerUp, decimal.Decimal, error) {
	offer, ok := mining.FindOffer(code)
	if !ok {
		return nil, decimal.Zero, ErrUnknownOffer
	}
	p, err := newPowerUp(userID, offer.Kind, offer.BoostPct, offer.Duration, s.now())
	if err != nil {
		return nil, decimal.Zero, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, decimal.Zero, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	balance, err := s.balance.DebitWithTx(ctx, tx, userID, offer.Currency, offer.Price, domain.TxPowerUpBuy,
		map[string]interface{}{"offer": offer.Code})
	if err != nil {
		return nil, decimal.Zero, err
	}
	if err := s.repo.Create(ctx, tx, &p); err != nil {
		return nil, decimal.Zero, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, decimal.Zero, err
	}

	s.audit.Log(ctx, userID, domain.AuditActionPowerUpActivate, domain.AuditCategoryPurchase, map[string]interface{}{
		"offer":      offer.Code,
		"expires_at": p.ExpiresAt,
	})
	return &p, balance, nil
}

// Purge deletes power-ups that expired before the cutoff.
func (s *PowerUpService) Purge(ctx context.Context, before time.Time) (int64, error) {
	return s.repo.DeleteExpired(ctx, before)
}
