package session

import (
	"time"

	"github.com/karalama/karalama/internal/model"
)

// State is the local game phase a client renders. It is never stored: each
// client projects it from the shared room row and its own identity.
type State string

const (
	StateWaiting  State = "waiting"
	StateDrawing  State = "drawing"
	StateGuessing State = "guessing"
	StateRoundEnd State = "round_end"
	StateGameEnd  State = "game_end"
)

// Project derives the local phase from a room row. last is the previous
// stable projection: a playing room whose drawer or word has not landed yet
// is a half-written transition, and the client keeps showing last until the
// next change notification completes the row.
func Project(room *model.Room, now time.Time, last State) State {
	if room == nil {
		return StateWaiting
	}
	switch room.Status {
	case model.RoomStatusWaiting:
		return StateWaiting
	case model.RoomStatusFinished:
		return StateGameEnd
	case model.RoomStatusPlaying:
		if room.Advancing() {
			if last == "" {
				return StateWaiting
			}
			return last
		}
		if !room.GuessDeadline.IsZero() {
			if now.Before(room.GuessDeadline) {
				return StateGuessing
			}
			return StateRoundEnd
		}
		if now.Before(room.RoundDeadline) {
			return StateDrawing
		}
		return StateRoundEnd
	default:
		return StateWaiting
	}
}

// IsDrawer reports whether the local player holds the brush
func IsDrawer(room *model.Room, localPlayerID model.PlayerID) bool {
	return room != nil && room.Status == model.RoomStatusPlaying && room.CurrentDrawer == localPlayerID
}
