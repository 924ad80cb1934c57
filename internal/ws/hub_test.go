package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hardmine/internal/domain"
	"hardmine/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, hub *Hub) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	service.InitJWT("ws-test-secret")

	r := gin.New()
	r.GET("/ws", HandleWS(hub, ""))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string, userID int64) *websocket.Conn {
	t.Helper()
	token, err := service.GenerateJWT(userID)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	env := read(t, conn)
	require.Equal(t, MsgReady, env.Type)
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func TestHubPublishBlock(t *testing.T) {
	hub := NewHub()
	url := startServer(t, hub)

	alice := dial(t, url, 1)
	bob := dial(t, url, 2)
	assert.Equal(t, 2, hub.Connected())

	minedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	hub.PublishBlock(context.Background(), &service.BlockMined{
		Block: domain.Block{Number: 7, MinedAt: minedAt, Reward: 1000, Distributed: 999, TotalHashrate: 300, ActiveMiners: 2},
		Rewards: []domain.BlockReward{
			{BlockNumber: 7, UserID: 1, Hashrate: 200, SharePct: decimal.RequireFromString("66.6667"), Reward: 666},
			{BlockNumber: 7, UserID: 2, Hashrate: 1, Reward: 0},
		},
		NextBlockAt: minedAt.Add(5 * time.Minute),
	})

	env := read(t, alice)
	require.Equal(t, MsgBlockMined, env.Type)
	var block BlockMinedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &block))
	assert.Equal(t, int64(7), block.Number)
	assert.Equal(t, int64(999), block.Distributed)
	assert.True(t, block.NextBlockAt.Equal(minedAt.Add(5*time.Minute)))

	env = read(t, alice)
	require.Equal(t, MsgReward, env.Type)
	var reward RewardPayload
	require.NoError(t, json.Unmarshal(env.Payload, &reward))
	assert.Equal(t, int64(666), reward.Reward)

	// zero rewards are not pushed
	env = read(t, bob)
	assert.Equal(t, MsgBlockMined, env.Type)
	require.NoError(t, bob.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	env = read(t, bob)
	assert.Equal(t, MsgPong, env.Type)
}

func TestHubUnregisterOnClose(t *testing.T) {
	hub := NewHub()
	url := startServer(t, hub)

	conn := dial(t, url, 5)
	require.Equal(t, 1, hub.Connected())
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.Connected() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.SendTo(5, []byte(`{}`)))
}
