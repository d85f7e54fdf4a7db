package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/karalama/karalama/internal/model"
	"github.com/karalama/karalama/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	rooms    map[model.RoomCode]*model.Room
	players  map[playerKey]*model.Player
	messages map[model.RoomCode][]*model.Message
	drawings map[model.RoomCode][]*model.DrawingSnapshot
}

type playerKey struct {
	roomCode model.RoomCode
	playerID model.PlayerID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		rooms:    make(map[model.RoomCode]*model.Room),
		players:  make(map[playerKey]*model.Player),
		messages: make(map[model.RoomCode][]*model.Message),
		drawings: make(map[model.RoomCode][]*model.DrawingSnapshot),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *room
	s.rooms[room.Code] = &copied
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	copied := *room
	return &copied, nil
}

func (s *Storage) RoomExists(ctx context.Context, code model.RoomCode) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[code]
	return ok, nil
}

func (s *Storage) DeleteRoom(ctx context.Context, code model.RoomCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
	for key := range s.players {
		if key.roomCode == code {
			delete(s.players, key)
		}
	}
	delete(s.messages, code)
	delete(s.drawings, code)
	return nil
}

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *player
	s.players[playerKey{player.RoomCode, player.ID}] = &copied
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, code model.RoomCode, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[playerKey{code, id}]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	copied := *player
	return &copied, nil
}

func (s *Storage) GetPlayers(ctx context.Context, code model.RoomCode) ([]*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var players []*model.Player
	for key, p := range s.players {
		if key.roomCode == code {
			copied := *p
			players = append(players, &copied)
		}
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].ID < players[j].ID
		}
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})
	return players, nil
}

func (s *Storage) SetDrawer(ctx context.Context, code model.RoomCode, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := id == ""
	for key, p := range s.players {
		if key.roomCode != code {
			continue
		}
		p.IsDrawing = p.ID == id
		if p.ID == id {
			found = true
		}
	}
	if !found {
		return model.ErrPlayerNotFound
	}
	return nil
}

func (s *Storage) AddScore(ctx context.Context, code model.RoomCode, id model.PlayerID, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.players[playerKey{code, id}]
	if !ok {
		return 0, model.ErrPlayerNotFound
	}
	player.Score += delta
	return player.Score, nil
}

// Message operations

func (s *Storage) AppendMessage(ctx context.Context, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *msg
	s.messages[msg.RoomCode] = append(s.messages[msg.RoomCode], &copied)
	return nil
}

func (s *Storage) GetMessages(ctx context.Context, code model.RoomCode) ([]*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[code]
	out := make([]*model.Message, len(msgs))
	for i, m := range msgs {
		copied := *m
		out[i] = &copied
	}
	return out, nil
}

// Drawing operations

func (s *Storage) SaveDrawing(ctx context.Context, snapshot *model.DrawingSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *snapshot
	s.drawings[snapshot.RoomCode] = append(s.drawings[snapshot.RoomCode], &copied)
	return nil
}

func (s *Storage) LatestDrawing(ctx context.Context, code model.RoomCode) (*model.DrawingSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	drawings := s.drawings[code]
	if len(drawings) == 0 {
		return nil, nil
	}
	copied := *drawings[len(drawings)-1]
	return &copied, nil
}
