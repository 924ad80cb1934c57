package mining

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Contribution is one user's input to a block allocation.
type Contribution struct {
	UserID            int64
	EffectiveHashrate int64
	LuckMultiplier    decimal.Decimal
}

type Reward struct {
	UserID   int64           `json:"user_id"`
	Hashrate int64           `json:"hashrate"`
	SharePct decimal.Decimal `json:"share_pct"`
	Reward   int64           `json:"reward"`
}

// Rejection is a contribution left out of an allocation.
type Rejection struct {
	UserID int64
	Reason string
}

type Allocation struct {
	Rewards       []Reward
	Rejected      []Rejection
	TotalHashrate int64
	Distributed   int64
}

// ContributionOf converts composer output into allocator input.
func ContributionOf(e Effective) Contribution {
	return Contribution{UserID: e.UserID, EffectiveHashrate: e.EffectiveHashrate, LuckMultiplier: e.LuckMultiplier}
}

var minLuck = decimal.NewFromInt(1)

// Allocate splits pool proportionally to effective hashrate:
// reward = floor(pool * h / total * luck). Fractional remainders are burned.
// Users with zero hashrate receive nothing and do not appear in Rewards.
// Luck multipliers below 1 are rejected.
func Allocate(pool int64, contributions []Contribution) Allocation {
	var alloc Allocation

	seen := make(map[int64]bool, len(contributions))
	valid := make([]Contribution, 0, len(contributions))
	for _, c := range contributions {
		switch {
		case c.EffectiveHashrate < 0:
			alloc.Rejected = append(alloc.Rejected, Rejection{UserID: c.UserID, Reason: "negative hashrate"})
			continue
		case c.LuckMultiplier.LessThan(minLuck):
			// zero value included; use ContributionOf
			alloc.Rejected = append(alloc.Rejected, Rejection{UserID: c.UserID, Reason: "luck multiplier below 1"})
			continue
		case seen[c.UserID]:
			alloc.Rejected = append(alloc.Rejected, Rejection{UserID: c.UserID, Reason: "duplicate user"})
			continue
		}
		seen[c.UserID] = true
		if c.EffectiveHashrate == 0 {
			continue
		}
		valid = append(valid, c)
		alloc.TotalHashrate += c.EffectiveHashrate
	}

	if alloc.TotalHashrate == 0 || pool <= 0 {
		return alloc
	}

	sort.Slice(valid, func(i, j int) bool { return valid[i].UserID < valid[j].UserID })

	total := decimal.NewFromInt(alloc.TotalHashrate)
	for _, c := range valid {
		r := rewardFor(pool, c.EffectiveHashrate, c.LuckMultiplier, total)
		alloc.Rewards = append(alloc.Rewards, Reward{
			UserID:   c.UserID,
			Hashrate: c.EffectiveHashrate,
			SharePct: decimal.NewFromInt(c.EffectiveHashrate).Mul(hundred).DivRound(total, 4),
			Reward:   r,
		})
		alloc.Distributed += r
	}
	return alloc
}

func rewardFor(pool, hashrate int64, luck, total decimal.Decimal) int64 {
	if total.IsZero() {
		return 0
	}
	num := decimal.NewFromInt(pool).Mul(decimal.NewFromInt(hashrate)).Mul(luck)
	q, _ := num.QuoRem(total, 0)
	return q.IntPart()
}
