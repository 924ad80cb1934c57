package mining

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var one = decimal.NewFromInt(1)

func contrib(userID, hashrate int64) Contribution {
	return Contribution{UserID: userID, EffectiveHashrate: hashrate, LuckMultiplier: one}
}

func rewardsByUser(a Allocation) map[int64]int64 {
	out := make(map[int64]int64, len(a.Rewards))
	for _, r := range a.Rewards {
		out[r.UserID] = r.Reward
	}
	return out
}

func TestAllocateSoloMiner(t *testing.T) {
	a := Allocate(100000, []Contribution{contrib(1, 100)})
	require.Len(t, a.Rewards, 1)
	assert.Equal(t, int64(100000), a.Rewards[0].Reward)
	assert.Equal(t, "100", a.Rewards[0].SharePct.String())
	assert.Equal(t, int64(100000), a.Distributed)
}

func TestAllocateProportional(t *testing.T) {
	a := Allocate(90000, []Contribution{contrib(2, 200), contrib(1, 100)})
	assert.Equal(t, map[int64]int64{1: 30000, 2: 60000}, rewardsByUser(a))
	assert.Equal(t, int64(300), a.TotalHashrate)

	a = Allocate(100000, []Contribution{contrib(1, 100), contrib(2, 200), contrib(3, 700)})
	assert.Equal(t, map[int64]int64{1: 10000, 2: 20000, 3: 70000}, rewardsByUser(a))
}

func TestAllocateLuck(t *testing.T) {
	a := Allocate(10000, []Contribution{{UserID: 1, EffectiveHashrate: 50, LuckMultiplier: decimal.RequireFromString("1.2")}})
	require.Len(t, a.Rewards, 1)
	assert.Equal(t, int64(12000), a.Rewards[0].Reward)
}

func TestAllocateEmptyNetwork(t *testing.T) {
	a := Allocate(100000, nil)
	assert.Empty(t, a.Rewards)
	assert.Zero(t, a.Distributed)

	a = Allocate(100000, []Contribution{contrib(1, 0), contrib(2, 0)})
	assert.Empty(t, a.Rewards)
	assert.Empty(t, a.Rejected)
}

func TestAllocateRoundingIsNeverRedistributed(t *testing.T) {
	a := Allocate(100, []Contribution{contrib(1, 1), contrib(2, 1), contrib(3, 1)})
	assert.Equal(t, map[int64]int64{1: 33, 2: 33, 3: 33}, rewardsByUser(a))
	assert.Equal(t, int64(99), a.Distributed)
}

func TestAllocateNoOverMint(t *testing.T) {
	hashrates := []int64{1, 7, 13, 101, 997, 4096, 12345, 3}
	var cs []Contribution
	for i, h := range hashrates {
		cs = append(cs, contrib(int64(i+1), h))
	}
	for _, pool := range []int64{1, 99, 100000, 7777777} {
		a := Allocate(pool, cs)
		var sum int64
		for _, r := range a.Rewards {
			sum += r.Reward
		}
		assert.LessOrEqual(t, sum, pool)
		assert.Equal(t, sum, a.Distributed)
	}
}

func TestAllocateEqualHashrateEqualReward(t *testing.T) {
	a := Allocate(1000, []Contribution{contrib(5, 77), contrib(9, 77), contrib(2, 10)})
	got := rewardsByUser(a)
	assert.Equal(t, got[5], got[9])
}

func TestAllocateRejectsInvalid(t *testing.T) {
	a := Allocate(1000, []Contribution{
		contrib(1, 100),
		contrib(2, -50),
		{UserID: 3, EffectiveHashrate: 10, LuckMultiplier: decimal.NewFromInt(-1)},
		contrib(1, 300),
	})
	assert.Equal(t, map[int64]int64{1: 1000}, rewardsByUser(a))
	require.Len(t, a.Rejected, 3)
	assert.Equal(t, int64(2), a.Rejected[0].UserID)
	assert.Equal(t, int64(3), a.Rejected[1].UserID)
	assert.Equal(t, "duplicate user", a.Rejected[2].Reason)
}

func TestAllocateOrderedAndDeterministic(t *testing.T) {
	in := []Contribution{contrib(30, 5), contrib(10, 9), contrib(20, 1)}
	a := Allocate(1000, in)
	b := Allocate(1000, []Contribution{in[2], in[0], in[1]})

	require.Len(t, a.Rewards, 3)
	assert.Equal(t, []int64{10, 20, 30}, []int64{a.Rewards[0].UserID, a.Rewards[1].UserID, a.Rewards[2].UserID})
	assert.Equal(t, a.Rewards, b.Rewards)
}

func TestAllocateRejectsUnsetLuck(t *testing.T) {
	a := Allocate(1000, []Contribution{
		contrib(1, 100),
		{UserID: 2, EffectiveHashrate: 100},
		{UserID: 3, EffectiveHashrate: 100, LuckMultiplier: decimal.RequireFromString("0.5")},
	})
	assert.Equal(t, map[int64]int64{1: 1000}, rewardsByUser(a))
	assert.Equal(t, int64(100), a.TotalHashrate)
	require.Len(t, a.Rejected, 2)
	assert.Equal(t, int64(2), a.Rejected[0].UserID)
	assert.Equal(t, "luck multiplier below 1", a.Rejected[0].Reason)
	assert.Equal(t, int64(3), a.Rejected[1].UserID)
}
