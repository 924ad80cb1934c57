package mining

import (
	"errors"
	"time"

	"hardmine/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	DefaultCalendarBlocks = 12
	MaxCalendarBlocks     = 288
)

var ErrCalendarRange = errors.New("calendar block count out of range")

type CalendarInput struct {
	UserID    int64
	Equipment []domain.OwnedEquipment
	PowerUps  []domain.PowerUp
	// OthersHashrate is the network hashrate excluding this user, held constant.
	OthersHashrate int64
	BlockReward    int64
	FirstBlockAt   time.Time
	Interval       time.Duration
	Blocks         int
}

type CalendarEntry struct {
	Index             int             `json:"index"`
	At                time.Time       `json:"at"`
	EffectiveHashrate int64           `json:"effective_hashrate"`
	LuckMultiplier    decimal.Decimal `json:"luck_multiplier"`
	SharePct          decimal.Decimal `json:"share_pct"`
	ExpectedReward    int64           `json:"expected_reward"`
}

// ProjectCalendar estimates the user's reward for the next Blocks blocks.
// Power-up expiry is taken into account per block; everything else is frozen.
func ProjectCalendar(in CalendarInput) ([]CalendarEntry, error) {
	if in.Blocks < 1 || in.Blocks > MaxCalendarBlocks {
		return nil, ErrCalendarRange
	}
	if in.OthersHashrate < 0 {
		in.OthersHashrate = 0
	}

	entries := make([]CalendarEntry, 0, in.Blocks)
	for i := 0; i < in.Blocks; i++ {
		at := in.FirstBlockAt.Add(time.Duration(i) * in.Interval)
		eff, err := ComputeEffective(in.UserID, in.Equipment, in.PowerUps, at)
		if err != nil {
			return nil, err
		}

		entry := CalendarEntry{
			Index:             i,
			At:                at,
			EffectiveHashrate: eff.EffectiveHashrate,
			LuckMultiplier:    eff.LuckMultiplier,
			SharePct:          decimal.Zero,
		}
		total := in.OthersHashrate + eff.EffectiveHashrate
		if eff.EffectiveHashrate > 0 && total > 0 {
			t := decimal.NewFromInt(total)
			entry.SharePct = decimal.NewFromInt(eff.EffectiveHashrate).Mul(hundred).DivRound(t, 4)
			entry.ExpectedReward = rewardFor(in.BlockReward, eff.EffectiveHashrate, eff.LuckMultiplier, t)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
