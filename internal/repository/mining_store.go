package repository

import (
	"context"
	"time"

	"hardmine/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MiningStore is the persistence the block scheduler and the network
// aggregator read from and commit to.
type MiningStore struct {
	blocks    *BlockRepository
	equipment *EquipmentRepository
	powerUps  *PowerUpRepository
}

func NewMiningStore(db *pgxpool.Pool) *MiningStore {
	return &MiningStore{
		blocks:    NewBlockRepository(db),
		equipment: NewEquipmentRepository(db),
		powerUps:  NewPowerUpRepository(db),
	}
}

func (s *MiningStore) LatestBlock(ctx context.Context) (*domain.Block, error) {
	return s.blocks.LatestBlock(ctx)
}

func (s *MiningStore) ListMiners(ctx context.Context) ([]domain.MinerState, error) {
	return s.equipment.ListMiners(ctx)
}

func (s *MiningStore) ListActivePowerUps(ctx context.Context, at time.Time) ([]domain.PowerUp, error) {
	return s.powerUps.ListActive(ctx, at)
}

func (s *MiningStore) CommitBlock(ctx context.Context, block *domain.Block, rewards []domain.BlockReward) error {
	return s.blocks.CommitBlock(ctx, block, rewards)
}
