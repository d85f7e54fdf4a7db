package model

import "time"

// RoomCode is the human-readable identifier players use to join a room
type RoomCode string

// RoomStatus represents where a room is in its lifecycle.
// A room only ever moves forward: waiting -> playing -> finished.
type RoomStatus string

const (
	RoomStatusWaiting  RoomStatus = "waiting"
	RoomStatusPlaying  RoomStatus = "playing"
	RoomStatusFinished RoomStatus = "finished"
)

// Room is the persisted source of truth for one game session.
// Every client derives its local phase from this row; nobody holds
// canonical in-memory state.
type Room struct {
	Code        RoomCode
	HostID      PlayerID
	Status      RoomStatus
	CurrentWord string // empty unless Status is playing

	// CurrentDrawer mirrors the IsDrawing player flag so a room read alone
	// is enough to project local phase. Empty while waiting/finished.
	CurrentDrawer PlayerID

	CurrentRound int
	TotalRounds  int

	// Authoritative deadlines for the active round. Local countdowns are
	// display-only; only the host-authorized write advances the round.
	RoundDeadline time.Time
	GuessDeadline time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the room still accepts game-state transitions
func (r *Room) IsActive() bool {
	return r.Status != RoomStatusFinished
}

// Advancing reports whether the room row is mid-transition: status says
// playing but the drawer or word has not landed yet. Readers observing this
// half-state must treat it as "still the previous round" and wait for the
// next change notification.
func (r *Room) Advancing() bool {
	return r.Status == RoomStatusPlaying && (r.CurrentDrawer == "" || r.CurrentWord == "")
}
