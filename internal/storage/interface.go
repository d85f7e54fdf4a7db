package storage

import (
	"context"

	"github.com/karalama/karalama/internal/model"
)

// Storage defines the interface for data persistence.
//
// SetDrawer and AddScore exist at this layer because both are multi-step
// updates that must be atomic per room/player row; each backend closes the
// race its own way (transaction in redis, one mutex in memory).
type Storage interface {
	// Room operations
	SaveRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error)
	RoomExists(ctx context.Context, code model.RoomCode) (bool, error)
	DeleteRoom(ctx context.Context, code model.RoomCode) error

	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, code model.RoomCode, id model.PlayerID) (*model.Player, error)
	// GetPlayers returns the room's players ordered by join time
	GetPlayers(ctx context.Context, code model.RoomCode) ([]*model.Player, error)
	// SetDrawer clears every IsDrawing flag in the room and then sets the
	// flag for id, as one atomic operation. An empty id just clears.
	SetDrawer(ctx context.Context, code model.RoomCode, id model.PlayerID) error
	// AddScore applies a linearizable increment to one player row and
	// returns the new score
	AddScore(ctx context.Context, code model.RoomCode, id model.PlayerID, delta int) (int, error)

	// Message operations (append-only)
	AppendMessage(ctx context.Context, msg *model.Message) error
	GetMessages(ctx context.Context, code model.RoomCode) ([]*model.Message, error)

	// Drawing operations
	SaveDrawing(ctx context.Context, snapshot *model.DrawingSnapshot) error
	LatestDrawing(ctx context.Context, code model.RoomCode) (*model.DrawingSnapshot, error)
}
