package mining

import (
	"time"

	"hardmine/internal/domain"
)

type NetworkSnapshot struct {
	TotalHashrate int64     `json:"total_hashrate"`
	ActiveMiners  int       `json:"active_miners"`
	At            time.Time `json:"at"`
}

// ComposeAll runs the composer for every miner at instant at. Miners whose
// state is invalid are returned as rejections instead of failing the batch.
func ComposeAll(miners []domain.MinerState, powerUps []domain.PowerUp, at time.Time) ([]Effective, []Rejection) {
	byUser := make(map[int64][]domain.PowerUp)
	for _, p := range powerUps {
		byUser[p.UserID] = append(byUser[p.UserID], p)
	}

	out := make([]Effective, 0, len(miners))
	var rejected []Rejection
	for _, m := range miners {
		eff, err := ComputeEffective(m.UserID, m.Equipment, byUser[m.UserID], at)
		if err != nil {
			rejected = append(rejected, Rejection{UserID: m.UserID, Reason: err.Error()})
			continue
		}
		out = append(out, eff)
	}
	return out, rejected
}

// Snapshot reduces composer output into network totals.
func Snapshot(miners []domain.MinerState, powerUps []domain.PowerUp, at time.Time) NetworkSnapshot {
	effs, _ := ComposeAll(miners, powerUps, at)
	return SnapshotOf(effs, at)
}

// SnapshotOf totals already composed hashrates.
func SnapshotOf(effs []Effective, at time.Time) NetworkSnapshot {
	snap := NetworkSnapshot{At: at}
	for _, e := range effs {
		if e.EffectiveHashrate > 0 {
			snap.TotalHashrate += e.EffectiveHashrate
			snap.ActiveMiners++
		}
	}
	return snap
}
