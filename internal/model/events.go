package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind identifies the variant carried by a bus event.
// The set is closed: anything else is rejected at the transport boundary.
type EventKind string

const (
	EventPresence      EventKind = "presence"
	EventDrawing       EventKind = "drawing"
	EventChat          EventKind = "chat"
	EventRoomChanged   EventKind = "room_changed"
	EventPlayerChanged EventKind = "player_changed"
	EventPlayerLeaving EventKind = "player_leaving"
)

// Event is the envelope for everything published on the broadcast bus
type Event struct {
	Kind      EventKind
	RoomCode  RoomCode
	Timestamp time.Time
	Payload   any // one of the *Payload structs below, matching Kind
}

// PresencePayload is the periodic "I am here" announcement. Online=false is
// the best-effort leave notice; durable membership still comes from the
// player row's Connected flag.
type PresencePayload struct {
	PlayerID   PlayerID  `json:"playerId"`
	PlayerName string    `json:"playerName"`
	IsHost     bool      `json:"isHost"`
	Online     bool      `json:"online"`
	LastSeen   time.Time `json:"lastSeen"`
}

// DrawingPayload carries a full raster snapshot, not a delta. Final marks
// the durable end-of-round snapshot as opposed to a live stroke update.
type DrawingPayload struct {
	PlayerID    PlayerID `json:"playerId"`
	DrawingData []byte   `json:"drawingData"`
	Final       bool     `json:"final"`
}

// ChatPayload is a chat message or guess as broadcast to the room
type ChatPayload struct {
	PlayerID       PlayerID  `json:"playerId"`
	PlayerName     string    `json:"playerName"`
	Message        string    `json:"message"`
	IsCorrectGuess bool      `json:"isCorrectGuess"`
	Timestamp      time.Time `json:"timestamp"`
}

// RoomChangedPayload is the change-feed notification for a room row,
// carrying the new row content
type RoomChangedPayload struct {
	Room Room `json:"room"`
}

// PlayerChangedPayload is the change-feed notification for a player row
type PlayerChangedPayload struct {
	Player Player `json:"player"`
}

// PlayerLeavingPayload is the best-effort goodbye published before the
// durable Connected=false write. Delivery is not guaranteed.
type PlayerLeavingPayload struct {
	PlayerID PlayerID `json:"playerId"`
}

// envelope is the wire form of an Event
type envelope struct {
	Kind      EventKind       `json:"kind"`
	RoomCode  RoomCode        `json:"roomCode"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// EncodeEvent serializes an event for transport. The payload type must match
// the declared kind.
func EncodeEvent(ev Event) ([]byte, error) {
	if err := checkPayloadKind(ev); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(envelope{
		Kind:      ev.Kind,
		RoomCode:  ev.RoomCode,
		Timestamp: ev.Timestamp,
		Payload:   payload,
	})
}

// DecodeEvent parses and validates a wire message. Unknown kinds and
// payloads that do not match their kind are rejected rather than trusted.
func DecodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if env.RoomCode == "" {
		return Event{}, fmt.Errorf("%w: missing room code", ErrMalformedPayload)
	}

	ev := Event{
		Kind:      env.Kind,
		RoomCode:  env.RoomCode,
		Timestamp: env.Timestamp,
	}

	switch env.Kind {
	case EventPresence:
		var p PresencePayload
		if err := strictUnmarshal(env.Payload, &p); err != nil {
			return Event{}, err
		}
		if p.PlayerID == "" {
			return Event{}, fmt.Errorf("%w: presence missing player id", ErrMalformedPayload)
		}
		ev.Payload = p
	case EventDrawing:
		var p DrawingPayload
		if err := strictUnmarshal(env.Payload, &p); err != nil {
			return Event{}, err
		}
		ev.Payload = p
	case EventChat:
		var p ChatPayload
		if err := strictUnmarshal(env.Payload, &p); err != nil {
			return Event{}, err
		}
		if p.PlayerID == "" {
			return Event{}, fmt.Errorf("%w: chat missing player id", ErrMalformedPayload)
		}
		ev.Payload = p
	case EventRoomChanged:
		var p RoomChangedPayload
		if err := strictUnmarshal(env.Payload, &p); err != nil {
			return Event{}, err
		}
		if p.Room.Code == "" {
			return Event{}, fmt.Errorf("%w: room change missing code", ErrMalformedPayload)
		}
		ev.Payload = p
	case EventPlayerChanged:
		var p PlayerChangedPayload
		if err := strictUnmarshal(env.Payload, &p); err != nil {
			return Event{}, err
		}
		if p.Player.ID == "" {
			return Event{}, fmt.Errorf("%w: player change missing id", ErrMalformedPayload)
		}
		ev.Payload = p
	case EventPlayerLeaving:
		var p PlayerLeavingPayload
		if err := strictUnmarshal(env.Payload, &p); err != nil {
			return Event{}, err
		}
		ev.Payload = p
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEventKind, env.Kind)
	}

	return ev, nil
}

func strictUnmarshal(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty payload", ErrMalformedPayload)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

func checkPayloadKind(ev Event) error {
	ok := false
	switch ev.Payload.(type) {
	case PresencePayload:
		ok = ev.Kind == EventPresence
	case DrawingPayload:
		ok = ev.Kind == EventDrawing
	case ChatPayload:
		ok = ev.Kind == EventChat
	case RoomChangedPayload:
		ok = ev.Kind == EventRoomChanged
	case PlayerChangedPayload:
		ok = ev.Kind == EventPlayerChanged
	case PlayerLeavingPayload:
		ok = ev.Kind == EventPlayerLeaving
	}
	if !ok {
		return fmt.Errorf("%w: payload does not match kind %q", ErrMalformedPayload, ev.Kind)
	}
	return nil
}
