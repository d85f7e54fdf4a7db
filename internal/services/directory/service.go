package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/karalama/karalama/internal/bus"
	"github.com/karalama/karalama/internal/dependencies/clock"
	"github.com/karalama/karalama/internal/dependencies/random"
	"github.com/karalama/karalama/internal/model"
	"github.com/karalama/karalama/internal/storage"
)

const (
	// codeAlphabet drops I, O and 0, which read ambiguously on a shared
	// screen. 33 symbols over 6 positions gives ~1.29e9 codes.
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ123456789"
	codeLength   = 6

	// maxCodeAttempts bounds the collision retry loop
	maxCodeAttempts = 10

	// defaultTotalRounds applies when a host does not pick a round count
	defaultTotalRounds = 5
)

// Service is the room directory: every durable room, player, message and
// drawing write goes through here, and each write fans a change notification
// out on the bus. Notifications are fire-and-forget; readers self-heal from
// the next durable read.
type Service struct {
	storage storage.Storage
	bus     bus.Bus
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
}

func New(store storage.Storage, b bus.Bus, clk clock.Clock, rnd random.Random, logger *slog.Logger) *Service {
	return &Service{
		storage: store,
		bus:     b,
		clock:   clk,
		random:  rnd,
		logger:  logger.With(slog.String("component", "directory")),
	}
}

// CreateRoom allocates a fresh room code, persists the room and its host
// player, and returns the room
func (s *Service) CreateRoom(ctx context.Context, hostID model.PlayerID, hostName string, totalRounds int) (*model.Room, error) {
	if totalRounds <= 0 {
		totalRounds = defaultTotalRounds
	}

	code, err := s.allocateCode(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	room := &model.Room{
		Code:         code,
		HostID:       hostID,
		Status:       model.RoomStatusWaiting,
		CurrentRound: 1,
		TotalRounds:  totalRounds,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.storage.SaveRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("saving room: %w", err)
	}

	host := &model.Player{
		RoomCode:   code,
		ID:         hostID,
		PlayerName: hostName,
		IsHost:     true,
		Connected:  true,
		JoinedAt:   now,
		UpdatedAt:  now,
	}
	if err := s.storage.SavePlayer(ctx, host); err != nil {
		return nil, fmt.Errorf("saving host player: %w", err)
	}

	s.publishRoom(ctx, room)
	s.publishPlayer(ctx, host)
	return room, nil
}

func (s *Service) allocateCode(ctx context.Context) (model.RoomCode, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := model.RoomCode(s.random.String(codeLength, codeAlphabet))
		exists, err := s.storage.RoomExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("checking room code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique room code after %d attempts", maxCodeAttempts)
}

// AddPlayer joins a player to a room. The upsert is idempotent: rejoining
// only flips Connected back on, keeping score and join order.
func (s *Service) AddPlayer(ctx context.Context, code model.RoomCode, playerID model.PlayerID, playerName string) (*model.Player, error) {
	room, err := s.storage.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.Status == model.RoomStatusFinished {
		return nil, model.ErrRoomFinished
	}

	now := s.clock.Now()
	player, err := s.storage.GetPlayer(ctx, code, playerID)
	switch {
	case err == nil:
		player.Connected = true
		player.UpdatedAt = now
	case errors.Is(err, model.ErrPlayerNotFound):
		player = &model.Player{
			RoomCode:   code,
			ID:         playerID,
			PlayerName: playerName,
			Connected:  true,
			JoinedAt:   now,
			UpdatedAt:  now,
		}
	default:
		return nil, err
	}

	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("saving player: %w", err)
	}
	s.publishPlayer(ctx, player)
	return player, nil
}

func (s *Service) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return s.storage.GetRoom(ctx, code)
}

func (s *Service) GetPlayer(ctx context.Context, code model.RoomCode, id model.PlayerID) (*model.Player, error) {
	return s.storage.GetPlayer(ctx, code, id)
}

// GetPlayers returns the room's players in join order
func (s *Service) GetPlayers(ctx context.Context, code model.RoomCode) ([]*model.Player, error) {
	return s.storage.GetPlayers(ctx, code)
}

func (s *Service) GetMessages(ctx context.Context, code model.RoomCode) ([]*model.Message, error) {
	return s.storage.GetMessages(ctx, code)
}

func (s *Service) LatestDrawing(ctx context.Context, code model.RoomCode) (*model.DrawingSnapshot, error) {
	return s.storage.LatestDrawing(ctx, code)
}

// statusRank orders the forward-only lifecycle
var statusRank = map[model.RoomStatus]int{
	model.RoomStatusWaiting:  0,
	model.RoomStatusPlaying:  1,
	model.RoomStatusFinished: 2,
}

// SetStatus moves the room forward in its lifecycle. Backward writes and
// writes to a finished room are accepted but ignored; the current row is
// returned either way.
func (s *Service) SetStatus(ctx context.Context, code model.RoomCode, status model.RoomStatus) (*model.Room, error) {
	room, err := s.storage.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if statusRank[status] <= statusRank[room.Status] {
		return room, nil
	}

	room.Status = status
	room.UpdatedAt = s.clock.Now()
	if err := s.storage.SaveRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("saving room: %w", err)
	}
	s.publishRoom(ctx, room)
	return room, nil
}

// SaveRoom persists a room row as-is, stamping UpdatedAt, and publishes the
// change. The turn scheduler uses this for round transitions.
func (s *Service) SaveRoom(ctx context.Context, room *model.Room) error {
	room.UpdatedAt = s.clock.Now()
	if err := s.storage.SaveRoom(ctx, room); err != nil {
		return fmt.Errorf("saving room: %w", err)
	}
	s.publishRoom(ctx, room)
	return nil
}

// SetDrawer atomically clears every IsDrawing flag in the room and sets the
// flag for playerID. An empty playerID just clears.
func (s *Service) SetDrawer(ctx context.Context, code model.RoomCode, playerID model.PlayerID) error {
	if err := s.storage.SetDrawer(ctx, code, playerID); err != nil {
		return err
	}
	if playerID == "" {
		return nil
	}
	drawer, err := s.storage.GetPlayer(ctx, code, playerID)
	if err != nil {
		return err
	}
	s.publishPlayer(ctx, drawer)
	return nil
}

// AddScore applies a linearizable score increment and returns the new total
func (s *Service) AddScore(ctx context.Context, code model.RoomCode, playerID model.PlayerID, delta int) (int, error) {
	score, err := s.storage.AddScore(ctx, code, playerID, delta)
	if err != nil {
		return 0, err
	}
	player, err := s.storage.GetPlayer(ctx, code, playerID)
	if err != nil {
		return score, err
	}
	s.publishPlayer(ctx, player)
	return score, nil
}

// SetConnected writes the durable liveness flag
func (s *Service) SetConnected(ctx context.Context, code model.RoomCode, playerID model.PlayerID, connected bool) error {
	player, err := s.storage.GetPlayer(ctx, code, playerID)
	if err != nil {
		return err
	}
	player.Connected = connected
	player.UpdatedAt = s.clock.Now()
	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return fmt.Errorf("saving player: %w", err)
	}
	s.publishPlayer(ctx, player)
	return nil
}

// AppendMessage stores a chat message or guess and broadcasts it on the
// room's chat topic
func (s *Service) AppendMessage(ctx context.Context, code model.RoomCode, playerID model.PlayerID, playerName, text string, isCorrectGuess bool) (*model.Message, error) {
	now := s.clock.Now()
	msg := &model.Message{
		ID:             model.MessageID(uuid.NewString()),
		RoomCode:       code,
		PlayerID:       playerID,
		PlayerName:     playerName,
		Text:           text,
		IsCorrectGuess: isCorrectGuess,
		CreatedAt:      now,
	}
	if err := s.storage.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("appending message: %w", err)
	}

	s.publish(ctx, bus.ChatTopic(code), model.Event{
		Kind:      model.EventChat,
		RoomCode:  code,
		Timestamp: now,
		Payload: model.ChatPayload{
			PlayerID:       playerID,
			PlayerName:     playerName,
			Message:        text,
			IsCorrectGuess: isCorrectGuess,
			Timestamp:      now,
		},
	})
	return msg, nil
}

// SaveDrawing stores a full drawing snapshot and broadcasts it on the
// room's drawing topic
func (s *Service) SaveDrawing(ctx context.Context, code model.RoomCode, playerID model.PlayerID, data []byte, word string) (*model.DrawingSnapshot, error) {
	now := s.clock.Now()
	snapshot := &model.DrawingSnapshot{
		ID:        model.SnapshotID(uuid.NewString()),
		RoomCode:  code,
		PlayerID:  playerID,
		Data:      data,
		Word:      word,
		CreatedAt: now,
	}
	if err := s.storage.SaveDrawing(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("saving drawing: %w", err)
	}

	s.publish(ctx, bus.DrawingTopic(code), model.Event{
		Kind:      model.EventDrawing,
		RoomCode:  code,
		Timestamp: now,
		Payload: model.DrawingPayload{
			PlayerID:    playerID,
			DrawingData: data,
			Final:       true,
		},
	})
	return snapshot, nil
}

func (s *Service) publishRoom(ctx context.Context, room *model.Room) {
	s.publish(ctx, bus.RoomChangeTopic(room.Code), model.Event{
		Kind:      model.EventRoomChanged,
		RoomCode:  room.Code,
		Timestamp: s.clock.Now(),
		Payload:   model.RoomChangedPayload{Room: *room},
	})
}

func (s *Service) publishPlayer(ctx context.Context, player *model.Player) {
	s.publish(ctx, bus.PlayerChangeTopic(player.RoomCode), model.Event{
		Kind:      model.EventPlayerChanged,
		RoomCode:  player.RoomCode,
		Timestamp: s.clock.Now(),
		Payload:   model.PlayerChangedPayload{Player: *player},
	})
}

func (s *Service) publish(ctx context.Context, topic string, ev model.Event) {
	if err := s.bus.Publish(ctx, topic, ev); err != nil {
		s.logger.Warn("dropping change notification",
			slog.String("topic", topic),
			slog.String("error", err.Error()))
	}
}
