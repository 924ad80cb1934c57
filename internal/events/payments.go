package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"hardmine/internal/logger"
	"hardmine/internal/service"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultPaymentsGroup = "hardmine-payments"

	readCount        = 50
	readBlock        = 5 * time.Second
	retryInterval    = time.Second
	maxRetryInterval = 30 * time.Second

	// pending entries idle this long are claimed and retried
	defaultReclaimEvery = 30 * time.Second
	defaultMinIdle      = time.Minute
)

var errNoData = errors.New("payment message has no data field")

// PaymentConfirmer credits a confirmed payment. Replays must be no-ops.
type PaymentConfirmer interface {
	Confirm(ctx context.Context, ev service.PaymentConfirmed) (bool, error)
}

// PaymentConsumer reads confirmed payments from a Redis stream using a
// consumer group, so every payment is delivered at least once.
type PaymentConsumer struct {
	rdb      *redis.Client
	stream   string
	group    string
	consumer string
	payments PaymentConfirmer

	reclaimEvery time.Duration
	minIdle      time.Duration
}

func NewPaymentConsumer(rdb *redis.Client, stream, group, consumer string, payments PaymentConfirmer) *PaymentConsumer {
	if group == "" {
		group = DefaultPaymentsGroup
	}
	return &PaymentConsumer{
		rdb:          rdb,
		stream:       stream,
		group:        group,
		consumer:     consumer,
		payments:     payments,
		reclaimEvery: defaultReclaimEvery,
		minIdle:      defaultMinIdle,
	}
}

// Run blocks until ctx is cancelled. Entries left pending by a previous run
// of this consumer are processed first. While running, entries whose credit
// failed (or that a dead consumer left behind) are reclaimed once idle.
func (c *PaymentConsumer) Run(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	logger.Info("payment consumer ready", "stream", c.stream, "group", c.group, "consumer", c.consumer)

	lastID := "0"
	backoff := retryInterval
	lastReclaim := time.Now()
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.consumer,
			Streams:  []string{c.stream, lastID},
			Count:    readCount,
			Block:    readBlock,
		}).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			logger.Warn("payment stream read failed, will retry", "stream", c.stream, "error", err, "retry_in", backoff)
			select {
			case <-time.After(backoff):
				backoff = min(backoff*2, maxRetryInterval)
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		backoff = retryInterval

		n := 0
		for _, st := range streams {
			n += len(st.Messages)
			c.process(ctx, st.Messages)
		}
		// pending backlog read once, then only new entries
		if lastID == "0" && n < readCount {
			lastID = ">"
		}

		if time.Since(lastReclaim) >= c.reclaimEvery {
			c.reclaim(ctx)
			lastReclaim = time.Now()
		}
	}
}

func (c *PaymentConsumer) process(ctx context.Context, msgs []redis.XMessage) {
	for _, msg := range msgs {
		if !c.handle(ctx, msg) {
			continue
		}
		if err := c.rdb.XAck(ctx, c.stream, c.group, msg.ID).Err(); err != nil {
			logger.Warn("payment ack failed", "id", msg.ID, "error", err)
		}
	}
}

// reclaim takes over pending entries idle longer than minIdle and retries them.
func (c *PaymentConsumer) reclaim(ctx context.Context) {
	start := "0-0"
	for {
		msgs, next, err := c.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.stream,
			Group:    c.group,
			Consumer: c.consumer,
			MinIdle:  c.minIdle,
			Start:    start,
			Count:    readCount,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("payment reclaim failed", "stream", c.stream, "error", err)
			}
			return
		}
		if len(msgs) > 0 {
			logger.Info("retrying pending payments", "count", len(msgs))
			c.process(ctx, msgs)
		}
		if next == "0-0" || next == "" {
			return
		}
		start = next
	}
}

// handle reports whether the entry should be acknowledged. Malformed
// entries are acked so they don't block the group, credit failures are
// left pending for redelivery.
func (c *PaymentConsumer) handle(ctx context.Context, msg redis.XMessage) bool {
	ev, err := decodePayment(msg.Values)
	if err != nil {
		logger.Error("dropping malformed payment", "id", msg.ID, "error", err)
		return true
	}

	credited, err := c.payments.Confirm(ctx, ev)
	switch {
	case errors.Is(err, service.ErrInvalidPayment):
		logger.Error("dropping invalid payment", "id", msg.ID, "tx_hash", ev.TxHash, "error", err)
		return true
	case err != nil:
		logger.Error("payment credit failed", "id", msg.ID, "tx_hash", ev.TxHash, "error", err)
		return false
	case !credited:
		logger.Info("payment already processed", "tx_hash", ev.TxHash)
	default:
		logger.Info("payment credited", "tx_hash", ev.TxHash, "user_id", ev.UserID, "currency", ev.Currency, "amount", ev.Amount.String())
	}
	return true
}

func decodePayment(values map[string]interface{}) (service.PaymentConfirmed, error) {
	var ev service.PaymentConfirmed
	var raw []byte
	switch v := values["data"].(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return ev, errNoData
	}
	err := json.Unmarshal(raw, &ev)
	return ev, err
}
