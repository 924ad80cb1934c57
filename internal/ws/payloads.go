package ws

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// server → client
type BlockMinedPayload struct {
	Number        int64     `json:"number"`
	MinedAt       time.Time `json:"mined_at"`
	Reward        int64     `json:"reward"`
	Distributed   int64     `json:"distributed"`
	TotalHashrate int64     `json:"total_hashrate"`
	ActiveMiners  int       `json:"active_miners"`
	NextBlockAt   time.Time `json:"next_block_at"`
}

type RewardPayload struct {
	BlockNumber int64           `json:"block_number"`
	Hashrate    int64           `json:"hashrate"`
	SharePct    decimal.Decimal `json:"share_pct"`
	Reward      int64           `json:"reward"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func encode(msgType string, payload any) ([]byte, error) {
	env := Envelope{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}
