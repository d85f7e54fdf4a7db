package response

import (
	"time"

	"github.com/karalama/karalama/internal/model"
)

// Room is the API view of a room row. The current word is omitted unless
// the viewer is the drawer or the room is past playing.
type Room struct {
	Code          string     `json:"code"`
	HostID        string     `json:"hostId"`
	Status        string     `json:"status"`
	CurrentWord   string     `json:"currentWord,omitempty"`
	CurrentDrawer string     `json:"currentDrawer,omitempty"`
	CurrentRound  int        `json:"currentRound"`
	TotalRounds   int        `json:"totalRounds"`
	RoundDeadline *time.Time `json:"roundDeadline,omitempty"`
	GuessDeadline *time.Time `json:"guessDeadline,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Player is the API view of a player row
type Player struct {
	ID         string    `json:"id"`
	PlayerName string    `json:"playerName"`
	IsHost     bool      `json:"isHost"`
	IsDrawing  bool      `json:"isDrawing"`
	Score      int       `json:"score"`
	Connected  bool      `json:"connected"`
	JoinedAt   time.Time `json:"joinedAt"`
}

// RoomDetail bundles a room with its roster
type RoomDetail struct {
	Room    Room     `json:"room"`
	Players []Player `json:"players"`
}

// Message is the API view of a chat message or guess
type Message struct {
	ID             string    `json:"id"`
	PlayerID       string    `json:"playerId"`
	PlayerName     string    `json:"playerName"`
	Text           string    `json:"text"`
	IsCorrectGuess bool      `json:"isCorrectGuess"`
	CreatedAt      time.Time `json:"createdAt"`
}

// GuessResult reports what a submitted guess did
type GuessResult struct {
	Message Message `json:"message"`
	Correct bool    `json:"correct"`
}

// Drawing is the API view of a stored drawing snapshot
type Drawing struct {
	ID        string    `json:"id"`
	PlayerID  string    `json:"playerId"`
	Data      []byte    `json:"data"`
	CreatedAt time.Time `json:"createdAt"`
}

// Prediction is one ranked classifier guess
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Predictions ranks guesses about the latest drawing. TargetRank is the
// position of the drawing's actual word, -1 when it did not make the list.
type Predictions struct {
	Predictions []Prediction `json:"predictions"`
	TargetRank  int          `json:"targetRank"`
}

// RoomFromModel converts a room row, masking the word from guessers
func RoomFromModel(room *model.Room, viewerID model.PlayerID) Room {
	out := Room{
		Code:          string(room.Code),
		HostID:        string(room.HostID),
		Status:        string(room.Status),
		CurrentWord:   room.CurrentWord,
		CurrentDrawer: string(room.CurrentDrawer),
		CurrentRound:  room.CurrentRound,
		TotalRounds:   room.TotalRounds,
		CreatedAt:     room.CreatedAt,
		UpdatedAt:     room.UpdatedAt,
	}
	if !room.RoundDeadline.IsZero() {
		d := room.RoundDeadline
		out.RoundDeadline = &d
	}
	if !room.GuessDeadline.IsZero() {
		d := room.GuessDeadline
		out.GuessDeadline = &d
	}
	if room.Status == model.RoomStatusPlaying && viewerID != room.CurrentDrawer {
		out.CurrentWord = ""
	}
	return out
}

// PlayerFromModel converts a player row
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:         string(p.ID),
		PlayerName: p.PlayerName,
		IsHost:     p.IsHost,
		IsDrawing:  p.IsDrawing,
		Score:      p.Score,
		Connected:  p.Connected,
		JoinedAt:   p.JoinedAt,
	}
}

// PlayersFromModel converts a join-ordered roster
func PlayersFromModel(players []*model.Player) []Player {
	out := make([]Player, len(players))
	for i, p := range players {
		out[i] = PlayerFromModel(p)
	}
	return out
}

// MessageFromModel converts a stored message
func MessageFromModel(m *model.Message) Message {
	return Message{
		ID:             string(m.ID),
		PlayerID:       string(m.PlayerID),
		PlayerName:     m.PlayerName,
		Text:           m.Text,
		IsCorrectGuess: m.IsCorrectGuess,
		CreatedAt:      m.CreatedAt,
	}
}

// MessagesFromModel converts a message history
func MessagesFromModel(msgs []*model.Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = MessageFromModel(m)
	}
	return out
}

// DrawingFromModel converts a drawing snapshot. The word is never exposed
// through this view.
func DrawingFromModel(d *model.DrawingSnapshot) Drawing {
	return Drawing{
		ID:        string(d.ID),
		PlayerID:  string(d.PlayerID),
		Data:      d.Data,
		CreatedAt: d.CreatedAt,
	}
}
