package request

// CreateRoomRequest creates a room with the sender as host
type CreateRoomRequest struct {
	PlayerID    string `json:"playerId"`
	PlayerName  string `json:"playerName"`
	TotalRounds int    `json:"totalRounds"`
}

// JoinRequest joins (or rejoins) a room
type JoinRequest struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// PlayerRequest carries just the acting player, for host- or drawer-gated
// actions
type PlayerRequest struct {
	PlayerID string `json:"playerId"`
}

// GuessRequest submits a chat message or guess
type GuessRequest struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Text       string `json:"text"`
}

// DrawingRequest publishes a drawing snapshot. Final snapshots are
// persisted; live ones are broadcast only.
type DrawingRequest struct {
	PlayerID string `json:"playerId"`
	Data     []byte `json:"data"`
	Final    bool   `json:"final"`
}
