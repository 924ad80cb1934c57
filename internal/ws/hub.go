package ws

import (
	"context"
	"slices"
	"sync/atomic"

	"hardmine/internal/logger"
	"hardmine/internal/service"

	"github.com/puzpuzpuz/xsync/v4"
)

// Hub fans block events out to connected miners. A user may hold several
// connections (phone + desktop).
type Hub struct {
	clients *xsync.Map[int64, []*Client]
	count   atomic.Int64
}

func NewHub() *Hub {
	return &Hub{clients: xsync.NewMap[int64, []*Client]()}
}

func (h *Hub) Register(c *Client) {
	h.clients.Compute(c.UserID, func(old []*Client, loaded bool) ([]*Client, xsync.ComputeOp) {
		next := make([]*Client, 0, len(old)+1)
		next = append(next, old...)
		return append(next, c), xsync.UpdateOp
	})
	h.count.Add(1)
	connectedClients.Set(float64(h.count.Load()))
}

func (h *Hub) Unregister(c *Client) {
	removed := false
	h.clients.Compute(c.UserID, func(old []*Client, loaded bool) ([]*Client, xsync.ComputeOp) {
		idx := slices.Index(old, c)
		if idx < 0 {
			return old, xsync.CancelOp
		}
		removed = true
		if len(old) == 1 {
			return nil, xsync.DeleteOp
		}
		return slices.Delete(slices.Clone(old), idx, idx+1), xsync.UpdateOp
	})
	if removed {
		h.count.Add(-1)
		connectedClients.Set(float64(h.count.Load()))
	}
}

// Connected returns the number of open connections.
func (h *Hub) Connected() int {
	return int(h.count.Load())
}

func (h *Hub) Broadcast(msg []byte) int {
	sent := 0
	h.clients.Range(func(_ int64, cs []*Client) bool {
		for _, c := range cs {
			if c.enqueue(msg) {
				sent++
			}
		}
		return true
	})
	return sent
}

func (h *Hub) SendTo(userID int64, msg []byte) int {
	cs, ok := h.clients.Load(userID)
	if !ok {
		return 0
	}
	sent := 0
	for _, c := range cs {
		if c.enqueue(msg) {
			sent++
		}
	}
	return sent
}

// PublishBlock sends block_mined to everyone and a reward message to each
// rewarded user that is online.
func (h *Hub) PublishBlock(ctx context.Context, ev *service.BlockMined) {
	msg, err := encode(MsgBlockMined, BlockMinedPayload{
		Number:        ev.Block.Number,
		MinedAt:       ev.Block.MinedAt,
		Reward:        ev.Block.Reward,
		Distributed:   ev.Block.Distributed,
		TotalHashrate: ev.Block.TotalHashrate,
		ActiveMiners:  ev.Block.ActiveMiners,
		NextBlockAt:   ev.NextBlockAt,
	})
	if err != nil {
		logger.WithContext(ctx).Error("encode block_mined", "error", err)
		return
	}
	h.Broadcast(msg)

	for _, rw := range ev.Rewards {
		if rw.Reward <= 0 {
			continue
		}
		if _, online := h.clients.Load(rw.UserID); !online {
			continue
		}
		msg, err := encode(MsgReward, RewardPayload{
			BlockNumber: rw.BlockNumber,
			Hashrate:    rw.Hashrate,
			SharePct:    rw.SharePct,
			Reward:      rw.Reward,
		})
		if err != nil {
			continue
		}
		h.SendTo(rw.UserID, msg)
	}
}
