package events

import (
	"context"
	"encoding/json"
	"time"

	"hardmine/internal/logger"
	"hardmine/internal/service"

	"github.com/redis/go-redis/v9"
)

// BlockEvent is the JSON published on the block events channel so other
// instances (bot, analytics) can follow the chain.
type BlockEvent struct {
	Number        int64         `json:"number"`
	MinedAt       time.Time     `json:"mined_at"`
	Reward        int64         `json:"reward"`
	Distributed   int64         `json:"distributed"`
	TotalHashrate int64         `json:"total_hashrate"`
	ActiveMiners  int           `json:"active_miners"`
	NextBlockAt   time.Time     `json:"next_block_at"`
	Rewards       []RewardEvent `json:"rewards"`
}

type RewardEvent struct {
	UserID int64 `json:"user_id"`
	Reward int64 `json:"reward"`
}

func NewBlockEvent(ev *service.BlockMined) BlockEvent {
	out := BlockEvent{
		Number:        ev.Block.Number,
		MinedAt:       ev.Block.MinedAt,
		Reward:        ev.Block.Reward,
		Distributed:   ev.Block.Distributed,
		TotalHashrate: ev.Block.TotalHashrate,
		ActiveMiners:  ev.Block.ActiveMiners,
		NextBlockAt:   ev.NextBlockAt,
		Rewards:       make([]RewardEvent, 0, len(ev.Rewards)),
	}
	for _, rw := range ev.Rewards {
		if rw.Reward > 0 {
			out.Rewards = append(out.Rewards, RewardEvent{UserID: rw.UserID, Reward: rw.Reward})
		}
	}
	return out
}

// RedisPublisher publishes committed blocks to a Redis Pub/Sub channel.
// Best-effort: failures are logged, the block is already committed.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) PublishBlock(ctx context.Context, ev *service.BlockMined) {
	payload, err := json.Marshal(NewBlockEvent(ev))
	if err != nil {
		logger.WithContext(ctx).Error("encode block event", "error", err)
		return
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		logger.WithContext(ctx).Warn("failed to publish block event", "channel", p.channel, "block", ev.Block.Number, "error", err)
	}
}

// Fanout forwards each block to every publisher in order.
type Fanout []service.BlockPublisher

func (f Fanout) PublishBlock(ctx context.Context, ev *service.BlockMined) {
	for _, p := range f {
		if p != nil {
			p.PublishBlock(ctx, ev)
		}
	}
}
