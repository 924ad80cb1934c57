package integration

import (
	"context"
	"testing"
	"time"

	"hardmine/internal/domain"
	"hardmine/internal/repository"
	"hardmine/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEquipmentPurchaseAndBlockReward(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	balance := service.NewBalanceService(db)
	equipment := service.NewEquipmentService(db, balance, nil)
	users := repository.NewUserRepository(db)
	rig := starterRig(t, db)

	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")

	for _, u := range []*domain.User{alice, bob} {
		_, err := balance.Credit(ctx, u.ID, rig.Currency, rig.BasePrice.Mul(decimal.NewFromInt(3)), domain.TxAdminGrant, nil)
		require.NoError(t, err)
	}

	res, err := equipment.Buy(ctx, alice.ID, rig.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Owned.Quantity)
	assert.Equal(t, rig.BaseHashrate, res.TotalHashrate)

	_, err = equipment.Buy(ctx, bob.ID, rig.ID)
	require.NoError(t, err)
	res, err = equipment.Buy(ctx, bob.ID, rig.ID)
	require.NoError(t, err)
	assert.Equal(t, 2*rig.BaseHashrate, res.TotalHashrate)

	before := map[int64]decimal.Decimal{}
	for _, u := range []*domain.User{alice, bob} {
		got, err := users.GetByID(ctx, u.ID)
		require.NoError(t, err)
		before[u.ID] = got.CSBalance
	}

	store := repository.NewMiningStore(db)
	sched := service.NewBlockScheduler(store, service.SchedulerConfig{
		Interval:    time.Minute,
		BlockReward: 100000,
	})
	require.NoError(t, sched.Init(ctx))

	ev, err := sched.MineNow(ctx)
	require.NoError(t, err)
	assert.Positive(t, ev.Block.Number)
	assert.LessOrEqual(t, ev.Block.Distributed, ev.Block.Reward)

	var sum int64
	got := map[int64]int64{}
	for _, rw := range ev.Rewards {
		sum += rw.Reward
		got[rw.UserID] = rw.Reward
	}
	assert.Equal(t, ev.Block.Distributed, sum)
	require.Contains(t, got, alice.ID)
	require.Contains(t, got, bob.ID)
	// bob has twice alice's hashrate
	assert.InDelta(t, 2*got[alice.ID], got[bob.ID], 2)

	for _, u := range []*domain.User{alice, bob} {
		after, err := users.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, after.CSBalance.Sub(before[u.ID]).Equal(decimal.NewFromInt(got[u.ID])), "user %d", u.ID)
	}

	blocks := repository.NewBlockRepository(db)
	latest, err := blocks.LatestBlock(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, latest.Number, ev.Block.Number)

	history, err := blocks.RewardsByUser(ctx, bob.ID, 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, ev.Block.Number, history[0].BlockNumber)
}

func TestEquipmentInsufficientFunds(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	balance := service.NewBalanceService(db)
	equipment := service.NewEquipmentService(db, balance, nil)
	rig := starterRig(t, db)
	carol := newUser(t, db, "carol")

	_, err := equipment.Buy(ctx, carol.ID, rig.ID)
	assert.ErrorIs(t, err, service.ErrInsufficientFunds)

	owned, err := equipment.Owned(ctx, carol.ID)
	require.NoError(t, err)
	assert.Empty(t, owned)
}

func TestBlockNumbersAreSequential(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	blocks := repository.NewBlockRepository(db)

	a := &domain.Block{MinedAt: time.Now().UTC(), Reward: 100}
	b := &domain.Block{MinedAt: time.Now().UTC(), Reward: 100}
	require.NoError(t, blocks.CommitBlock(ctx, a, nil))
	require.NoError(t, blocks.CommitBlock(ctx, b, nil))
	assert.Equal(t, a.Number+1, b.Number)
}

func TestCommitBlockRollsBackOnFailedCredit(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	blocks := repository.NewBlockRepository(db)
	users := repository.NewUserRepository(db)
	txs := repository.NewTransactionRepository(db)

	dave := newUser(t, db, "dave")
	before, err := blocks.LatestBlock(ctx)
	require.NoError(t, err)

	block := &domain.Block{MinedAt: time.Now().UTC(), Reward: 1000, Distributed: 1000, TotalHashrate: 20, ActiveMiners: 2}
	rewards := []domain.BlockReward{
		{UserID: dave.ID, Hashrate: 10, SharePct: decimal.NewFromInt(50), Reward: 500},
		{UserID: 1 << 40, Hashrate: 10, SharePct: decimal.NewFromInt(50), Reward: 500},
	}
	require.Error(t, blocks.CommitBlock(ctx, block, rewards))

	after, err := blocks.LatestBlock(ctx)
	require.NoError(t, err)
	if before == nil {
		assert.Nil(t, after)
	} else {
		require.NotNil(t, after)
		assert.Equal(t, before.Number, after.Number)
	}

	history, err := blocks.RewardsByUser(ctx, dave.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	got, err := users.GetByID(ctx, dave.ID)
	require.NoError(t, err)
	assert.True(t, got.CSBalance.IsZero(), got.CSBalance.String())

	ledger, err := txs.GetByUserID(ctx, dave.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, ledger)
}
