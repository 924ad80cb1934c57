package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"hardmine/internal/domain"
	"hardmine/internal/logger"
	"hardmine/internal/mining"
)

const (
	DefaultBlockInterval  = 300 * time.Second
	DegradedAfterFailures = 3

	commitTimeout = 30 * time.Second
)

var (
	ErrTickInProgress = errors.New("block tick already in progress")
	ErrMiningPaused   = errors.New("mining is paused")
)

// MiningStore is what the scheduler needs from persistence.
type MiningStore interface {
	LatestBlock(ctx context.Context) (*domain.Block, error)
	ListMiners(ctx context.Context) ([]domain.MinerState, error)
	ListActivePowerUps(ctx context.Context, at time.Time) ([]domain.PowerUp, error)
	CommitBlock(ctx context.Context, block *domain.Block, rewards []domain.BlockReward) error
}

// BlockMined is emitted after a block is committed.
type BlockMined struct {
	Block       domain.Block
	Rewards     []domain.BlockReward
	NextBlockAt time.Time
}

type BlockPublisher interface {
	PublishBlock(ctx context.Context, ev *BlockMined)
}

type SchedulerState int32

const (
	StateIdle SchedulerState = iota
	StateCollecting
	StateAllocating
	StateCommitting
)

func (s SchedulerState) String() string {
	switch s {
	case StateCollecting:
		return "collecting"
	case StateAllocating:
		return "allocating"
	case StateCommitting:
		return "committing"
	default:
		return "idle"
	}
}

type SchedulerConfig struct {
	Interval     time.Duration
	BlockReward  int64
	RetryBackoff time.Duration
}

type MiningHealth struct {
	Status              string     `json:"status"`
	State               string     `json:"state"`
	Paused              bool       `json:"paused"`
	LastSuccessfulMine  *time.Time `json:"last_successful_mine"`
	LastBlockNumber     int64      `json:"last_block_number"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	NextBlockAt         time.Time  `json:"next_block_at"`
}

func (h MiningHealth) Degraded() bool {
	return h.ConsecutiveFailures >= DegradedAfterFailures
}

type SchedulerOption func(*BlockScheduler)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *BlockScheduler) { s.now = now }
}

func WithPublisher(p BlockPublisher) SchedulerOption {
	return func(s *BlockScheduler) { s.publisher = p }
}

// BlockScheduler produces one block per interval:
// idle -> collecting -> allocating -> committing -> idle.
// At most one tick runs at a time.
type BlockScheduler struct {
	store     MiningStore
	cfg       SchedulerConfig
	now       func() time.Time
	publisher BlockPublisher
	log       *slog.Logger
	wake      chan struct{} // nextAt moved outside Run's timer

	running atomic.Bool
	paused  atomic.Bool
	state   atomic.Int32

	mu          sync.RWMutex
	lastBlock   *domain.Block
	lastSuccess time.Time
	failures    int
	nextAt      time.Time
}

func NewBlockScheduler(store MiningStore, cfg SchedulerConfig, opts ...SchedulerOption) *BlockScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultBlockInterval
	}
	s := &BlockScheduler{
		store: store,
		cfg:   cfg,
		now:   time.Now,
		log:   logger.With("component", "block_scheduler"),
		wake:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BlockScheduler) Interval() time.Duration { return s.cfg.Interval }
func (s *BlockScheduler) BlockReward() int64      { return s.cfg.BlockReward }

// Init loads the chain head and schedules the next block from it.
func (s *BlockScheduler) Init(ctx context.Context) error {
	latest, err := s.store.LatestBlock(ctx)
	if err != nil {
		return fmt.Errorf("load latest block: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.now().Add(s.cfg.Interval)
	if latest != nil {
		s.lastBlock = latest
		s.lastSuccess = latest.MinedAt
		next = latest.MinedAt.Add(s.cfg.Interval)
	}
	s.nextAt = s.clampLocked(next)
	return nil
}

// Run drives the block cadence until ctx is cancelled.
func (s *BlockScheduler) Run(ctx context.Context) error {
	for {
		err := s.Init(ctx)
		if err == nil {
			break
		}
		s.log.Error("scheduler init failed", "error", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.retryBackoff()):
		}
	}

	s.log.Info("block scheduler started", "interval", s.cfg.Interval, "reward", s.cfg.BlockReward, "next_block_at", s.NextBlockAt())

	timer := time.NewTimer(s.untilNext())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("block scheduler stopped")
			return nil
		case <-timer.C:
			s.runSlot(ctx, s.NextBlockAt())
			timer.Reset(s.untilNext())
		case <-s.wake:
			timer.Reset(s.untilNext())
		}
	}
}

func (s *BlockScheduler) runSlot(ctx context.Context, slot time.Time) {
	// an out-of-band tick moved the slot after the timer was armed
	if slot.After(s.now()) {
		return
	}
	if s.paused.Load() {
		s.log.Info("mining paused, skipping slot", "slot", slot)
		s.setNext(slot.Add(s.cfg.Interval))
		return
	}

	if _, err := s.mine(ctx, slot); err != nil {
		if errors.Is(err, ErrTickInProgress) {
			s.log.Warn("previous tick still running, skipping slot", "slot", slot)
			s.setNext(slot.Add(s.cfg.Interval))
		}
	}
}

// MineNow runs one tick immediately, out of the regular cadence.
func (s *BlockScheduler) MineNow(ctx context.Context) (*BlockMined, error) {
	if s.paused.Load() {
		return nil, ErrMiningPaused
	}
	return s.mine(ctx, s.now())
}

func (s *BlockScheduler) mine(ctx context.Context, slot time.Time) (*BlockMined, error) {
	if !s.running.CompareAndSwap(false, true) {
		blockFailures.WithLabelValues("overlap").Inc()
		return nil, ErrTickInProgress
	}
	defer s.running.Store(false)
	defer s.state.Store(int32(StateIdle))

	start := time.Now()
	defer func() { blockTickSeconds.Observe(time.Since(start).Seconds()) }()

	ev, err := s.attempt(ctx, slot)
	if err != nil && ctx.Err() == nil {
		s.log.Warn("block attempt failed, retrying", "slot", slot, "backoff", s.retryBackoff(), "error", err)
		blockFailures.WithLabelValues("retry").Inc()
		select {
		case <-ctx.Done():
		case <-time.After(s.retryBackoff()):
			ev, err = s.attempt(ctx, slot)
		}
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.mu.Lock()
		s.failures++
		failures := s.failures
		s.nextAt = s.clampLocked(slot.Add(s.cfg.Interval))
		s.mu.Unlock()
		s.rearm()

		blockFailures.WithLabelValues("skipped").Inc()
		s.log.Error("block epoch skipped", "slot", slot, "consecutive_failures", failures, "error", err)
		return nil, err
	}

	s.mu.Lock()
	s.failures = 0
	s.lastSuccess = ev.Block.MinedAt
	b := ev.Block
	s.lastBlock = &b
	s.nextAt = s.clampLocked(ev.Block.MinedAt.Add(s.cfg.Interval))
	ev.NextBlockAt = s.nextAt
	s.mu.Unlock()
	s.rearm()

	blocksMined.Inc()
	rewardsDistributed.Add(float64(ev.Block.Distributed))
	networkHashrate.Set(float64(ev.Block.TotalHashrate))
	activeMinersGauge.Set(float64(ev.Block.ActiveMiners))

	s.log.Info("block mined",
		"number", ev.Block.Number,
		"miners", ev.Block.ActiveMiners,
		"hashrate", ev.Block.TotalHashrate,
		"distributed", ev.Block.Distributed,
	)

	if s.publisher != nil {
		s.publisher.PublishBlock(context.WithoutCancel(ctx), ev)
	}
	return ev, nil
}

// attempt runs collect, allocate and commit once for the block at instant at.
func (s *BlockScheduler) attempt(ctx context.Context, at time.Time) (*BlockMined, error) {
	s.state.Store(int32(StateCollecting))
	miners, err := s.store.ListMiners(ctx)
	if err != nil {
		return nil, fmt.Errorf("list miners: %w", err)
	}
	powerUps, err := s.store.ListActivePowerUps(ctx, at)
	if err != nil {
		return nil, fmt.Errorf("list power-ups: %w", err)
	}

	effs, rejected := mining.ComposeAll(miners, powerUps, at)
	for _, r := range rejected {
		s.log.Warn("miner excluded from block", "user_id", r.UserID, "reason", r.Reason)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.state.Store(int32(StateAllocating))
	contributions := make([]mining.Contribution, 0, len(effs))
	for _, e := range effs {
		contributions = append(contributions, mining.ContributionOf(e))
	}
	alloc := mining.Allocate(s.cfg.BlockReward, contributions)
	for _, r := range alloc.Rejected {
		s.log.Warn("contribution rejected", "user_id", r.UserID, "reason", r.Reason)
	}

	block := domain.Block{
		MinedAt:       at,
		Reward:        s.cfg.BlockReward,
		Distributed:   alloc.Distributed,
		TotalHashrate: alloc.TotalHashrate,
		ActiveMiners:  len(alloc.Rewards),
		Difficulty:    mining.Difficulty(alloc.TotalHashrate, s.cfg.Interval),
	}
	rewards := make([]domain.BlockReward, 0, len(alloc.Rewards))
	for _, r := range alloc.Rewards {
		rewards = append(rewards, domain.BlockReward{
			UserID:   r.UserID,
			Hashrate: r.Hashrate,
			SharePct: r.SharePct,
			Reward:   r.Reward,
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// once committing starts it finishes or rolls back, shutdown does not cut it short
	s.state.Store(int32(StateCommitting))
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()
	if err := s.store.CommitBlock(commitCtx, &block, rewards); err != nil {
		return nil, fmt.Errorf("commit block: %w", err)
	}

	return &BlockMined{Block: block, Rewards: rewards}, nil
}

func (s *BlockScheduler) Pause() {
	if !s.paused.Swap(true) {
		s.log.Info("mining paused")
	}
}

func (s *BlockScheduler) Resume() {
	if s.paused.Swap(false) {
		s.log.Info("mining resumed")
	}
}

func (s *BlockScheduler) Paused() bool { return s.paused.Load() }

func (s *BlockScheduler) State() SchedulerState {
	return SchedulerState(s.state.Load())
}

func (s *BlockScheduler) NextBlockAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextAt
}

// LastBlock returns the last block this scheduler saw committed, or nil.
func (s *BlockScheduler) LastBlock() *domain.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastBlock == nil {
		return nil
	}
	b := *s.lastBlock
	return &b
}

func (s *BlockScheduler) Health() MiningHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := MiningHealth{
		Status:              "healthy",
		State:               s.State().String(),
		Paused:              s.paused.Load(),
		ConsecutiveFailures: s.failures,
		NextBlockAt:         s.nextAt,
	}
	if !s.lastSuccess.IsZero() {
		t := s.lastSuccess
		h.LastSuccessfulMine = &t
	}
	if s.lastBlock != nil {
		h.LastBlockNumber = s.lastBlock.Number
	}
	if h.Degraded() {
		h.Status = "degraded"
	}
	return h
}

func (s *BlockScheduler) setNext(t time.Time) {
	s.mu.Lock()
	s.nextAt = s.clampLocked(t)
	s.mu.Unlock()
	s.rearm()
}

// rearm asks Run to reset its timer to the current nextAt.
func (s *BlockScheduler) rearm() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// a next block already in the past fires immediately, missed slots are not replayed
func (s *BlockScheduler) clampLocked(t time.Time) time.Time {
	if now := s.now(); t.Before(now) {
		return now
	}
	return t
}

func (s *BlockScheduler) untilNext() time.Duration {
	d := s.NextBlockAt().Sub(s.now())
	if d < 0 {
		return 0
	}
	return d
}

func (s *BlockScheduler) retryBackoff() time.Duration {
	if s.cfg.RetryBackoff <= 0 {
		return 2 * time.Second
	}
	return s.cfg.RetryBackoff
}
