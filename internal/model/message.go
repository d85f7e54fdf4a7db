package model

import "time"

// MessageID uniquely identifies a chat/guess message
type MessageID string

// Message is an append-only chat or guess entry for a room
type Message struct {
	ID             MessageID
	RoomCode       RoomCode
	PlayerID       PlayerID
	PlayerName     string
	Text           string
	IsCorrectGuess bool
	CreatedAt      time.Time
}

// SnapshotID uniquely identifies a drawing snapshot
type SnapshotID string

// DrawingSnapshot is a persisted raster captured by the drawing surface.
// Data is an opaque blob owned by that collaborator; the coordinator only
// passes it through.
type DrawingSnapshot struct {
	ID        SnapshotID
	RoomCode  RoomCode
	PlayerID  PlayerID
	Data      []byte
	Word      string
	CreatedAt time.Time
}
