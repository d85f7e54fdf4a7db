package redis

import (
	"fmt"

	"github.com/karalama/karalama/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "karalama"

// roomKey returns the Redis key for a Room
func roomKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, code)
}

// playerKey returns the Redis key for a Player row
func playerKey(code model.RoomCode, id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s:%s", keyPrefix, code, id)
}

// playersIndexKey returns the Redis key for the ZSET of a room's players,
// scored by join time so range reads come back in join order
func playersIndexKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:idx:players:%s", keyPrefix, code)
}

// messagesKey returns the Redis key for a room's append-only message list
func messagesKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:messages:%s", keyPrefix, code)
}

// drawingsKey returns the Redis key for a room's drawing snapshot list
func drawingsKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:drawings:%s", keyPrefix, code)
}
