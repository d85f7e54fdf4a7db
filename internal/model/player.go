package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Player is a membership row keyed by (RoomCode, PlayerID).
// A row is created on join, updated in place on reconnect or leave, and
// never hard-deleted while the room exists.
type Player struct {
	RoomCode   RoomCode
	ID         PlayerID
	PlayerName string
	IsHost     bool // exactly one per room
	IsDrawing  bool // at most one per room, only while the room is playing
	Score      int  // monotonically non-decreasing

	// Connected is the durable liveness flag, written synchronously on
	// leave/disconnect. It is deliberately distinct from the ephemeral
	// presence roster, which reflects only open subscriptions.
	Connected bool

	JoinedAt  time.Time
	UpdatedAt time.Time
}
