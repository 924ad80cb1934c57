package mining

import (
	"testing"
	"time"

	"hardmine/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimalFromInt(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestProjectCalendarHonoursExpiry(t *testing.T) {
	in := CalendarInput{
		UserID:    1,
		Equipment: []domain.OwnedEquipment{rig(100, 1)},
		PowerUps: []domain.PowerUp{
			boost(1, domain.PowerUpHashrate, 100, t0.Add(-time.Minute), t0.Add(7*time.Minute)),
		},
		OthersHashrate: 200,
		BlockReward:    100000,
		FirstBlockAt:   t0,
		Interval:       5 * time.Minute,
		Blocks:         3,
	}

	entries, err := ProjectCalendar(in)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// boosted: 200 of 400
	assert.Equal(t, int64(200), entries[0].EffectiveHashrate)
	assert.Equal(t, int64(50000), entries[0].ExpectedReward)
	assert.Equal(t, int64(200), entries[1].EffectiveHashrate)
	// expired: 100 of 300
	assert.Equal(t, int64(100), entries[2].EffectiveHashrate)
	assert.Equal(t, int64(33333), entries[2].ExpectedReward)
	assert.Equal(t, t0.Add(10*time.Minute), entries[2].At)
}

func TestProjectCalendarIdleUser(t *testing.T) {
	entries, err := ProjectCalendar(CalendarInput{UserID: 1, BlockReward: 100, FirstBlockAt: t0, Interval: time.Minute, Blocks: 2, OthersHashrate: 10})
	require.NoError(t, err)
	for _, e := range entries {
		assert.Zero(t, e.ExpectedReward)
		assert.True(t, e.SharePct.IsZero())
	}
}

func TestProjectCalendarRange(t *testing.T) {
	_, err := ProjectCalendar(CalendarInput{Blocks: 0})
	assert.ErrorIs(t, err, ErrCalendarRange)
	_, err = ProjectCalendar(CalendarInput{Blocks: MaxCalendarBlocks + 1})
	assert.ErrorIs(t, err, ErrCalendarRange)
}

func TestFindOffer(t *testing.T) {
	o, ok := FindOffer("turbo_50")
	require.True(t, ok)
	assert.Equal(t, domain.PowerUpHashrate, o.Kind)
	assert.Equal(t, time.Hour, o.Duration)

	_, ok = FindOffer("nope")
	assert.False(t, ok)
	assert.Len(t, PowerUpOffers(), 4)
}
