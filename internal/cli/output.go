package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Room:
		o.printRoom(v)
	case RoomDetail:
		o.printRoomDetail(v)
	case []Message:
		o.printMessages(v)
	case GuessResult:
		o.printGuessResult(v)
	case Drawing:
		o.printDrawing(v)
	case Predictions:
		o.printPredictions(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Room response type (matches API)
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
}

// Player response type
type Player struct {
	ID         string `json:"id"`
	PlayerName string `json:"playerName"`
	IsHost     bool   `json:"isHost"`
	IsDrawing  bool   `json:"isDrawing"`
	Score      int    `json:"score"`
	Connected  bool   `json:"connected"`
}

// RoomDetail response type
type RoomDetail struct {
	Room    Room     `json:"room"`
	Players []Player `json:"players"`
}

// Message response type
type Message struct {
	ID             string    `json:"id"`
	PlayerID       string    `json:"playerId"`
	PlayerName     string    `json:"playerName"`
	Text           string    `json:"text"`
	IsCorrectGuess bool      `json:"isCorrectGuess"`
	CreatedAt      time.Time `json:"createdAt"`
}

// GuessResult response type
type GuessResult struct {
	Message Message `json:"message"`
	Correct bool    `json:"correct"`
}

// Drawing response type
type Drawing struct {
	ID        string    `json:"id"`
	PlayerID  string    `json:"playerId"`
	Data      []byte    `json:"data"`
	CreatedAt time.Time `json:"createdAt"`
}

// Prediction response type
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Predictions response type
type Predictions struct {
	Predictions []Prediction `json:"predictions"`
	TargetRank  int          `json:"targetRank"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printRoom(r Room) {
	fmt.Printf("Room: %s\n", r.Code)
	fmt.Printf("Status: %s\n", r.Status)
	fmt.Printf("Round: %d/%d\n", r.CurrentRound, r.TotalRounds)
	if r.CurrentDrawer != "" {
		fmt.Printf("Drawer: %s\n", r.CurrentDrawer)
	}
	if r.CurrentWord != "" {
		fmt.Printf("Word: %s\n", r.CurrentWord)
	}
	if r.RoundDeadline != nil {
		fmt.Printf("Round ends: %s\n", r.RoundDeadline.Format(time.RFC3339))
	}
	if r.GuessDeadline != nil {
		fmt.Printf("Guessing ends: %s\n", r.GuessDeadline.Format(time.RFC3339))
	}
}

func (o *Output) printRoomDetail(d RoomDetail) {
	o.printRoom(d.Room)
	fmt.Printf("Players (%d):\n", len(d.Players))
	for _, p := range d.Players {
		tags := ""
		if p.IsHost {
			tags += " [host]"
		}
		if p.IsDrawing {
			tags += " [drawing]"
		}
		if !p.Connected {
			tags += " [offline]"
		}
		fmt.Printf("  - %s (%s) - %d points%s\n", p.PlayerName, p.ID, p.Score, tags)
	}
}

func (o *Output) printMessages(msgs []Message) {
	for _, m := range msgs {
		marker := ""
		if m.IsCorrectGuess {
			marker = " *"
		}
		fmt.Printf("[%s] %s: %s%s\n", m.CreatedAt.Format("15:04:05"), m.PlayerName, m.Text, marker)
	}
}

func (o *Output) printGuessResult(g GuessResult) {
	if g.Correct {
		fmt.Println("Correct!")
	} else {
		fmt.Println("Not it.")
	}
	fmt.Printf("%s: %s\n", g.Message.PlayerName, g.Message.Text)
}

func (o *Output) printDrawing(d Drawing) {
	fmt.Printf("Drawing: %s\n", d.ID)
	fmt.Printf("By: %s\n", d.PlayerID)
	fmt.Printf("Size: %d bytes\n", len(d.Data))
	fmt.Printf("Saved: %s\n", d.CreatedAt.Format(time.RFC3339))
}

func (o *Output) printPredictions(p Predictions) {
	fmt.Println("Predictions:")
	for i, pred := range p.Predictions {
		marker := ""
		if i == p.TargetRank {
			marker = " <- target"
		}
		fmt.Printf("  %2d. %s (%.1f%%)%s\n", i+1, pred.Label, pred.Confidence*100, marker)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
