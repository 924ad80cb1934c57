package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"hardmine/internal/logger"
	"hardmine/internal/ws"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v2"
)

// Connects to /ws with a token and waits for the next block_mined event.
func main() {
	logger.Init("info", false)

	app := &cli.App{
		Name:  "ws_smoke",
		Usage: "wait for a live block over the websocket",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "127.0.0.1:8080", EnvVars: []string{"WS_ADDR"}},
			&cli.StringFlag{Name: "token", Required: true, EnvVars: []string{"WS_TOKEN"}},
			&cli.DurationFlag{Name: "timeout", Value: 6 * time.Minute, Usage: "how long to wait for a block"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatal("ws smoke failed", "error", err)
	}
}

func run(c *cli.Context) error {
	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	u := url.URL{Scheme: "ws", Host: c.String("addr"), Path: "/ws", RawQuery: "token=" + url.QueryEscape(c.String("token"))}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.Duration("timeout"))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"`+ws.MsgPing+`"}`)); err != nil {
		return fmt.Errorf("write ping: %w", err)
	}

	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var env ws.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			logger.Warn("bad frame", "raw", string(raw))
			continue
		}

		switch env.Type {
		case ws.MsgReady, ws.MsgPong:
			logger.Info("got", "type", env.Type)
		case ws.MsgBlockMined:
			var p ws.BlockMinedPayload
			_ = json.Unmarshal(env.Payload, &p)
			logger.Info("block mined", "number", p.Number, "miners", p.ActiveMiners, "distributed", p.Distributed, "next", p.NextBlockAt)
			// reward for this socket's user follows the block, if any
			_ = conn.SetReadDeadline(time.Now().Add(time.Second))
			if _, raw, err := conn.ReadMessage(); err == nil {
				logger.Info("after block", "frame", string(raw))
			}
			logger.Info("smoke test finished")
			return nil
		case ws.MsgError:
			return fmt.Errorf("server error: %s", env.Payload)
		}
	}
	return fmt.Errorf("no block within %s", c.Duration("timeout"))
}
