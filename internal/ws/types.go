package ws

const (
	// client - server
	MsgPing = "ping"

	// server - client
	MsgReady      = "ready"
	MsgPong       = "pong"
	MsgBlockMined = "block_mined"
	MsgReward     = "reward"
	MsgError      = "error"
)
