package service

import (
	"context"
	"errors"

	"hardmine/internal/domain"
	"hardmine/internal/mining"
	"hardmine/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrMaxOwned     = errors.New("maximum quantity owned")
	ErrMaxLevel     = errors.New("equipment is at max level")
	ErrNotOwned     = repository.ErrNotOwned
	ErrNoSuchDevice = repository.ErrEquipmentNotFound
)

type PurchaseResult struct {
	Owned         domain.OwnedEquipment `json:"owned"`
	Cost          decimal.Decimal       `json:"cost"`
	Currency      string                `json:"currency"`
	Balance       decimal.Decimal       `json:"balance"`
	TotalHashrate int64                 `json:"total_hashrate"`
}

// EquipmentService sells and upgrades equipment. Every write recomputes the
// per-unit hashrate and the user's cached total in the same transaction.
type EquipmentService struct {
	db        *pgxpool.Pool
	equipment *repository.EquipmentRepository
	users     *repository.UserRepository
	balance   *BalanceService
	audit     *AuditService
}

func NewEquipmentService(db *pgxpool.Pool, balance *BalanceService, audit *AuditService) *EquipmentService {
	return &EquipmentService{
		db:        db,
		equipment: repository.NewEquipmentRepository(db),
		users:     repository.NewUserRepository(db),
		balance:   balance,
		audit:     audit,
	}
}

func (s *EquipmentService) Catalog(ctx context.Context) ([]*domain.EquipmentType, error) {
	return s.equipment.ListTypes(ctx)
}

func (s *EquipmentService) Owned(ctx context.Context, userID int64) ([]domain.OwnedEquipment, error) {
	return s.equipment.ListOwned(ctx, userID)
}

// planPurchase returns the holding after buying one more unit and its price.
func planPurchase(et *domain.EquipmentType, owned domain.OwnedEquipment) (domain.OwnedEquipment, decimal.Decimal, error) {
	if et.MaxOwned > 0 && owned.Quantity >= et.MaxOwned {
		return owned, decimal.Zero, ErrMaxOwned
	}
	if owned.UpgradeLevel == 0 {
		owned.UpgradeLevel = 1
	}
	unit, err := mining.UnitHashrate(et.BaseHashrate, owned.UpgradeLevel)
	if err != nil {
		return owned, decimal.Zero, err
	}
	owned.EquipmentTypeID = et.ID
	owned.Quantity++
	owned.CurrentHashrate = unit
	return owned, et.BasePrice, nil
}

// planUpgrade raises every unit of the holding by one level.
func planUpgrade(et *domain.EquipmentType, owned domain.OwnedEquipment) (domain.OwnedEquipment, decimal.Decimal, error) {
	if owned.Quantity <= 0 {
		return owned, decimal.Zero, ErrNotOwned
	}
	if owned.UpgradeLevel >= mining.MaxUpgradeLevel {
		return owned, decimal.Zero, ErrMaxLevel
	}
	perUnit, err := mining.UpgradeCost(et.BasePrice, owned.UpgradeLevel)
	if err != nil {
		return owned, decimal.Zero, err
	}
	unit, err := mining.UnitHashrate(et.BaseHashrate, owned.UpgradeLevel+1)
	if err != nil {
		return owned, decimal.Zero, err
	}
	owned.UpgradeLevel++
	owned.CurrentHashrate = unit
	return owned, perUnit.Mul(decimal.NewFromInt(int64(owned.Quantity))), nil
}

func (s *EquipmentService) Buy(ctx context.Context, userID, typeID int64) (*PurchaseResult, error) {
	return s.apply(ctx, userID, typeID, domain.TxEquipmentBuy, domain.AuditActionEquipmentBuy, planPurchase)
}

func (s *EquipmentService) Upgrade(ctx context.Context, userID, typeID int64) (*PurchaseResult, error) {
	return s.apply(ctx, userID, typeID, domain.TxEquipmentUpgrade, domain.AuditActionEquipmentUpgrade, planUpgrade)
}

type equipmentPlan func(*domain.EquipmentType, domain.OwnedEquipment) (domain.OwnedEquipment, decimal.Decimal, error)

func (s *EquipmentService) apply(ctx context.Context, userID, typeID int64, txType, auditAction string, plan equipmentPlan) (*PurchaseResult, error) {
	et, err := s.equipment.GetType(ctx, typeID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// user row first, same lock order as block commits
	user, err := s.users.LockWithTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	current := domain.OwnedEquipment{UserID: userID, EquipmentTypeID: et.ID, UpgradeLevel: 1}
	existing, err := s.equipment.GetOwnedForUpdate(ctx, tx, userID, et.ID)
	switch {
	case err == nil:
		current = *existing
	case !errors.Is(err, repository.ErrNotOwned):
		return nil, err
	}

	next, cost, err := plan(et, current)
	if err != nil {
		return nil, err
	}

	balance := user.CSBalance
	if et.Currency == domain.CurrencyCHST {
		balance = user.CHSTBalance
	}
	meta := map[string]interface{}{"equipment": et.Code, "level": next.UpgradeLevel, "quantity": next.Quantity}
	if cost.IsPositive() {
		balance, err = s.balance.DebitWithTx(ctx, tx, userID, et.Currency, cost, txType, meta)
		if err != nil {
			return nil, err
		}
	}

	if err := s.equipment.UpsertOwnedWithTx(ctx, tx, &next); err != nil {
		return nil, err
	}
	total, err := s.users.RecomputeHashrateWithTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	meta["cost"] = cost.String()
	meta["currency"] = et.Currency
	s.audit.Log(ctx, userID, auditAction, domain.AuditCategoryPurchase, meta)

	return &PurchaseResult{
		Owned:         next,
		Cost:          cost,
		Currency:      et.Currency,
		Balance:       balance,
		TotalHashrate: total,
	}, nil
}
