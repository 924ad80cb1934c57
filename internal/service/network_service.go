package service

import (
	"context"
	"encoding/json"
	"time"

	"hardmine/internal/domain"
	"hardmine/internal/logger"
	"hardmine/internal/mining"

	"github.com/redis/go-redis/v9"
)

const (
	snapshotCacheKey = "hardmine:snapshot"
	snapshotCacheTTL = 15 * time.Second
)

// NetworkStore is the read side of MiningStore.
type NetworkStore interface {
	ListMiners(ctx context.Context) ([]domain.MinerState, error)
	ListActivePowerUps(ctx context.Context, at time.Time) ([]domain.PowerUp, error)
}

// NetworkService aggregates network-wide hashrate for display. The block
// scheduler computes its own snapshot per tick and never reads this cache.
type NetworkService struct {
	store NetworkStore
	rdb   *redis.Client
}

// NewNetworkService creates the aggregator; rdb may be nil to disable caching.
func NewNetworkService(store NetworkStore, rdb *redis.Client) *NetworkService {
	return &NetworkService{store: store, rdb: rdb}
}

// Snapshot computes the live network totals at now.
func (s *NetworkService) Snapshot(ctx context.Context, now time.Time) (mining.NetworkSnapshot, error) {
	miners, err := s.store.ListMiners(ctx)
	if err != nil {
		return mining.NetworkSnapshot{}, err
	}
	powerUps, err := s.store.ListActivePowerUps(ctx, now)
	if err != nil {
		return mining.NetworkSnapshot{}, err
	}
	return mining.Snapshot(miners, powerUps, now), nil
}

// Cached returns a recent snapshot from Redis when available.
func (s *NetworkService) Cached(ctx context.Context, now time.Time) (mining.NetworkSnapshot, error) {
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, snapshotCacheKey).Bytes(); err == nil {
			var snap mining.NetworkSnapshot
			if json.Unmarshal(raw, &snap) == nil {
				return snap, nil
			}
		}
	}

	snap, err := s.Snapshot(ctx, now)
	if err != nil {
		return snap, err
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(snap); err == nil {
			if err := s.rdb.Set(ctx, snapshotCacheKey, raw, snapshotCacheTTL).Err(); err != nil {
				logger.WithContext(ctx).Warn("snapshot cache write failed", "error", err)
			}
		}
	}
	return snap, nil
}
