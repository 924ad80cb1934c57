package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hardmine/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory MiningStore with injectable commit failures.
type memStore struct {
	mu        sync.Mutex
	blocks    []domain.Block
	rewards   []domain.BlockReward
	balances  map[int64]int64
	miners    []domain.MinerState
	powerUps  []domain.PowerUp
	failNext  int
	commits   int
	committed []time.Time // wall clock of each successful commit
	listGate  chan struct{}
	listEnter chan struct{}
}

func newMemStore() *memStore {
	return &memStore{balances: make(map[int64]int64)}
}

func (m *memStore) LatestBlock(ctx context.Context) (*domain.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.blocks) == 0 {
		return nil, nil
	}
	b := m.blocks[len(m.blocks)-1]
	return &b, nil
}

func (m *memStore) ListMiners(ctx context.Context) ([]domain.MinerState, error) {
	if m.listEnter != nil {
		m.listEnter <- struct{}{}
	}
	if m.listGate != nil {
		select {
		case <-m.listGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.MinerState(nil), m.miners...), nil
}

func (m *memStore) ListActivePowerUps(ctx context.Context, at time.Time) ([]domain.PowerUp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PowerUp
	for _, p := range m.powerUps {
		if p.ActiveAt(at) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) CommitBlock(ctx context.Context, block *domain.Block, rewards []domain.BlockReward) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits++
	if m.failNext > 0 {
		m.failNext--
		return errors.New("connection reset by peer")
	}

	var number int64 = 1
	if n := len(m.blocks); n > 0 {
		number = m.blocks[n-1].Number + 1
	}
	block.Number = number
	block.ID = number
	m.blocks = append(m.blocks, *block)
	m.committed = append(m.committed, time.Now())
	for i := range rewards {
		rewards[i].BlockID = block.ID
		rewards[i].BlockNumber = number
		m.rewards = append(m.rewards, rewards[i])
		m.balances[rewards[i].UserID] += rewards[i].Reward
	}
	return nil
}

func (m *memStore) blockCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blocks)
}

type captured struct {
	mu     sync.Mutex
	events []*BlockMined
}

func (c *captured) PublishBlock(ctx context.Context, ev *BlockMined) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func miner(userID, hashrate int64) domain.MinerState {
	return domain.MinerState{UserID: userID, Equipment: []domain.OwnedEquipment{
		{UserID: userID, Quantity: 1, UpgradeLevel: 1, CurrentHashrate: hashrate},
	}}
}

var epoch = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func newTestScheduler(store MiningStore, opts ...SchedulerOption) *BlockScheduler {
	cfg := SchedulerConfig{Interval: 5 * time.Minute, BlockReward: 100000, RetryBackoff: time.Millisecond}
	return NewBlockScheduler(store, cfg, append([]SchedulerOption{WithClock(fixedClock(epoch))}, opts...)...)
}

func TestMineNowDistributesReward(t *testing.T) {
	store := newMemStore()
	store.miners = []domain.MinerState{miner(1, 100), miner(2, 200), miner(3, 700)}
	pub := &captured{}
	s := newTestScheduler(store, WithPublisher(pub))
	require.NoError(t, s.Init(context.Background()))

	ev, err := s.MineNow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), ev.Block.Number)
	assert.Equal(t, int64(1000), ev.Block.TotalHashrate)
	assert.Equal(t, 3, ev.Block.ActiveMiners)
	assert.Equal(t, int64(100000), ev.Block.Distributed)
	assert.Equal(t, map[int64]int64{1: 10000, 2: 20000, 3: 70000}, store.balances)
	assert.Equal(t, epoch.Add(5*time.Minute), ev.NextBlockAt)
	assert.Equal(t, epoch.Add(5*time.Minute), s.NextBlockAt())

	require.Len(t, pub.events, 1)
	assert.Equal(t, int64(1), pub.events[0].Block.Number)
	assert.Equal(t, StateIdle, s.State())
}

func TestCommitRetrySucceedsOnce(t *testing.T) {
	store := newMemStore()
	store.blocks = []domain.Block{{ID: 41, Number: 41, MinedAt: epoch.Add(-5 * time.Minute)}}
	store.miners = []domain.MinerState{miner(1, 100)}
	store.failNext = 1
	s := newTestScheduler(store)
	require.NoError(t, s.Init(context.Background()))

	ev, err := s.MineNow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, store.commits)
	assert.Equal(t, 2, store.blockCount())
	assert.Equal(t, int64(42), ev.Block.Number)
	assert.Equal(t, int64(100000), store.balances[1])
	assert.Zero(t, s.Health().ConsecutiveFailures)
}

func TestEpochSkippedAfterSecondFailure(t *testing.T) {
	store := newMemStore()
	store.miners = []domain.MinerState{miner(1, 100)}
	store.failNext = 2 * DegradedAfterFailures
	s := newTestScheduler(store)
	require.NoError(t, s.Init(context.Background()))

	for i := 1; i <= DegradedAfterFailures; i++ {
		_, err := s.MineNow(context.Background())
		require.Error(t, err)
		assert.Equal(t, i, s.Health().ConsecutiveFailures)
	}
	assert.Zero(t, store.blockCount())
	assert.Empty(t, store.balances)

	h := s.Health()
	assert.Equal(t, "degraded", h.Status)
	assert.Nil(t, h.LastSuccessfulMine)
	// cadence continues from the failed slot
	assert.Equal(t, epoch.Add(5*time.Minute), h.NextBlockAt)

	_, err := s.MineNow(context.Background())
	require.NoError(t, err)
	h = s.Health()
	assert.Equal(t, "healthy", h.Status)
	assert.Zero(t, h.ConsecutiveFailures)
	require.NotNil(t, h.LastSuccessfulMine)
	assert.Equal(t, epoch, *h.LastSuccessfulMine)
	assert.Equal(t, int64(1), h.LastBlockNumber)
}

func TestEmptyNetworkStillRecordsBlock(t *testing.T) {
	store := newMemStore()
	s := newTestScheduler(store)

	ev, err := s.MineNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), ev.Block.Number)
	assert.Zero(t, ev.Block.Distributed)
	assert.Zero(t, ev.Block.ActiveMiners)
	assert.Equal(t, int64(100000), ev.Block.Reward)
	assert.Empty(t, ev.Rewards)
}

func TestExpiredPowerUpExcluded(t *testing.T) {
	store := newMemStore()
	store.miners = []domain.MinerState{miner(1, 100), miner(2, 100)}
	store.powerUps = []domain.PowerUp{
		{UserID: 1, Kind: domain.PowerUpHashrate, BoostPct: decimal.NewFromInt(100),
			ActivatedAt: epoch.Add(-time.Hour), ExpiresAt: epoch.Add(-time.Second)},
		{UserID: 2, Kind: domain.PowerUpLuck, BoostPct: decimal.NewFromInt(20),
			ActivatedAt: epoch.Add(-time.Hour), ExpiresAt: epoch},
	}
	s := newTestScheduler(store)

	ev, err := s.MineNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(200), ev.Block.TotalHashrate)
	assert.Equal(t, map[int64]int64{1: 50000, 2: 50000}, store.balances)
}

func TestInvalidMinerIsExcluded(t *testing.T) {
	store := newMemStore()
	store.miners = []domain.MinerState{miner(1, 100), miner(2, -40)}
	s := newTestScheduler(store)

	ev, err := s.MineNow(context.Background())
	require.NoError(t, err)
	require.Len(t, ev.Rewards, 1)
	assert.Equal(t, int64(1), ev.Rewards[0].UserID)
	assert.Equal(t, int64(100000), ev.Rewards[0].Reward)
}

func TestOverlappingTickIsRejected(t *testing.T) {
	store := newMemStore()
	store.miners = []domain.MinerState{miner(1, 100)}
	store.listGate = make(chan struct{})
	store.listEnter = make(chan struct{}, 1)
	s := newTestScheduler(store)

	done := make(chan error, 1)
	go func() {
		_, err := s.MineNow(context.Background())
		done <- err
	}()
	<-store.listEnter
	assert.Equal(t, StateCollecting, s.State())

	_, err := s.MineNow(context.Background())
	assert.ErrorIs(t, err, ErrTickInProgress)

	close(store.listGate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, store.blockCount())
}

func TestPauseResume(t *testing.T) {
	store := newMemStore()
	s := newTestScheduler(store)

	s.Pause()
	assert.True(t, s.Paused())
	assert.True(t, s.Health().Paused)
	_, err := s.MineNow(context.Background())
	assert.ErrorIs(t, err, ErrMiningPaused)

	s.runSlot(context.Background(), epoch)
	assert.Zero(t, store.blockCount())
	assert.Equal(t, epoch.Add(5*time.Minute), s.NextBlockAt())

	s.Resume()
	assert.False(t, s.Paused())
	_, err = s.MineNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.blockCount())
}

func TestInitSchedulesFromLatestBlock(t *testing.T) {
	store := newMemStore()
	store.blocks = []domain.Block{{Number: 7, MinedAt: epoch.Add(-2 * time.Minute)}}
	s := newTestScheduler(store)
	require.NoError(t, s.Init(context.Background()))
	assert.Equal(t, epoch.Add(3*time.Minute), s.NextBlockAt())
	assert.Equal(t, int64(7), s.Health().LastBlockNumber)

	// a head older than one interval fires immediately
	store.blocks = []domain.Block{{Number: 8, MinedAt: epoch.Add(-time.Hour)}}
	require.NoError(t, s.Init(context.Background()))
	assert.Equal(t, epoch, s.NextBlockAt())
}

func TestDefaultInterval(t *testing.T) {
	s := NewBlockScheduler(newMemStore(), SchedulerConfig{BlockReward: 1})
	assert.Equal(t, DefaultBlockInterval, s.Interval())
}

func TestRunProducesBlocksOnCadence(t *testing.T) {
	store := newMemStore()
	store.miners = []domain.MinerState{miner(1, 10)}
	s := NewBlockScheduler(store, SchedulerConfig{Interval: 20 * time.Millisecond, BlockReward: 50, RetryBackoff: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return store.blockCount() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	store.mu.Lock()
	defer store.mu.Unlock()
	for i, b := range store.blocks {
		assert.Equal(t, int64(i+1), b.Number)
		if i > 0 {
			assert.False(t, b.MinedAt.Before(store.blocks[i-1].MinedAt.Add(20*time.Millisecond)))
		}
	}
}

func TestMineNowReschedulesRunTimer(t *testing.T) {
	const interval = 200 * time.Millisecond
	store := newMemStore()
	store.miners = []domain.MinerState{miner(1, 10)}
	s := NewBlockScheduler(store, SchedulerConfig{Interval: interval, BlockReward: 50, RetryBackoff: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return !s.NextBlockAt().IsZero() }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	forced, err := s.MineNow(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return store.blockCount() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, forced.Block.MinedAt, store.blocks[0].MinedAt)
	assert.GreaterOrEqual(t, store.blocks[1].MinedAt.Sub(store.blocks[0].MinedAt), interval)
	for i, b := range store.blocks {
		assert.False(t, b.MinedAt.After(store.committed[i]), "block %d stamped after its commit", b.Number)
	}
}

func TestRunSlotIgnoresFutureSlot(t *testing.T) {
	store := newMemStore()
	store.miners = []domain.MinerState{miner(1, 10)}
	s := newTestScheduler(store)
	require.NoError(t, s.Init(context.Background()))

	s.runSlot(context.Background(), epoch.Add(time.Minute))
	assert.Zero(t, store.blockCount())

	s.runSlot(context.Background(), epoch)
	assert.Equal(t, 1, store.blockCount())
}
