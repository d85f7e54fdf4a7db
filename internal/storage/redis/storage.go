package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/karalama/karalama/internal/model"
	"github.com/karalama/karalama/internal/storage"
)

// maxTxRetries bounds optimistic-lock retries on contended rows
const maxTxRetries = 16

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, roomKey(room.Code), data, s.cfg.RoomTTL).Err()
}

func (s *Storage) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	data, err := s.client.Get(ctx, roomKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}

	var room model.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *Storage) RoomExists(ctx context.Context, code model.RoomCode) (bool, error) {
	exists, err := s.client.Exists(ctx, roomKey(code)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

func (s *Storage) DeleteRoom(ctx context.Context, code model.RoomCode) error {
	ids, err := s.client.ZRange(ctx, playersIndexKey(code), 0, -1).Result()
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, playerKey(code, model.PlayerID(id)))
	}
	pipe.Del(ctx, playersIndexKey(code))
	pipe.Del(ctx, roomKey(code))
	pipe.Del(ctx, messagesKey(code))
	pipe.Del(ctx, drawingsKey(code))
	_, err = pipe.Exec(ctx)
	return err
}

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	// ZAddNX keeps the original join-time score on rejoin, so join order
	// survives reconnects
	pipe := s.client.Pipeline()
	pipe.Set(ctx, playerKey(player.RoomCode, player.ID), data, s.cfg.RoomTTL)
	pipe.ZAddNX(ctx, playersIndexKey(player.RoomCode), redis.Z{
		Score:  float64(player.JoinedAt.UnixNano()),
		Member: string(player.ID),
	})
	pipe.Expire(ctx, playersIndexKey(player.RoomCode), s.cfg.RoomTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetPlayer(ctx context.Context, code model.RoomCode, id model.PlayerID) (*model.Player, error) {
	data, err := s.client.Get(ctx, playerKey(code, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *Storage) GetPlayers(ctx context.Context, code model.RoomCode) ([]*model.Player, error) {
	ids, err := s.client.ZRange(ctx, playersIndexKey(code), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Player{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = playerKey(code, model.PlayerID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	players := make([]*model.Player, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue // row may have expired
		}
		var player model.Player
		if err := json.Unmarshal([]byte(val.(string)), &player); err != nil {
			continue
		}
		players = append(players, &player)
	}

	return players, nil
}

// SetDrawer clears every drawing flag in the room and sets the new one as a
// single WATCHed transaction: two drawer writes racing each other cannot
// interleave into a room with two (or zero) drawers.
func (s *Storage) SetDrawer(ctx context.Context, code model.RoomCode, id model.PlayerID) error {
	indexKey := playersIndexKey(code)

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		ids, err := s.client.ZRange(ctx, indexKey, 0, -1).Result()
		if err != nil {
			return err
		}

		watched := make([]string, 0, len(ids)+1)
		watched = append(watched, indexKey)
		for _, pid := range ids {
			watched = append(watched, playerKey(code, model.PlayerID(pid)))
		}

		txf := func(tx *redis.Tx) error {
			// Membership changed since the pre-read: retry with fresh keys
			current, err := tx.ZRange(ctx, indexKey, 0, -1).Result()
			if err != nil {
				return err
			}
			if len(current) != len(ids) {
				return redis.TxFailedErr
			}

			found := id == ""
			updated := make(map[string][]byte, len(ids))
			for _, pid := range ids {
				key := playerKey(code, model.PlayerID(pid))
				data, err := tx.Get(ctx, key).Bytes()
				if err != nil {
					if errors.Is(err, redis.Nil) {
						continue
					}
					return err
				}
				var player model.Player
				if err := json.Unmarshal(data, &player); err != nil {
					return err
				}
				player.IsDrawing = player.ID == id
				if player.ID == id {
					found = true
				}
				out, err := json.Marshal(&player)
				if err != nil {
					return err
				}
				updated[key] = out
			}
			if !found {
				return model.ErrPlayerNotFound
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for key, data := range updated {
					pipe.Set(ctx, key, data, s.cfg.RoomTTL)
				}
				return nil
			})
			return err
		}

		err = s.client.Watch(ctx, txf, watched...)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return redis.TxFailedErr
}

// AddScore increments one player row under an optimistic compare-and-swap,
// retrying on contention so concurrent correct guesses cannot lose updates.
func (s *Storage) AddScore(ctx context.Context, code model.RoomCode, id model.PlayerID, delta int) (int, error) {
	key := playerKey(code, id)
	var newScore int

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrPlayerNotFound
			}
			return err
		}

		var player model.Player
		if err := json.Unmarshal(data, &player); err != nil {
			return err
		}
		player.Score += delta
		newScore = player.Score

		out, err := json.Marshal(&player)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.cfg.RoomTTL)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return newScore, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return 0, err
	}
	return 0, redis.TxFailedErr
}

// Message operations

func (s *Storage) AppendMessage(ctx context.Context, msg *model.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, messagesKey(msg.RoomCode), data)
	pipe.Expire(ctx, messagesKey(msg.RoomCode), s.cfg.RoomTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetMessages(ctx context.Context, code model.RoomCode) ([]*model.Message, error) {
	values, err := s.client.LRange(ctx, messagesKey(code), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	msgs := make([]*model.Message, 0, len(values))
	for _, val := range values {
		var msg model.Message
		if err := json.Unmarshal([]byte(val), &msg); err != nil {
			continue
		}
		msgs = append(msgs, &msg)
	}
	return msgs, nil
}

// Drawing operations

func (s *Storage) SaveDrawing(ctx context.Context, snapshot *model.DrawingSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, drawingsKey(snapshot.RoomCode), data)
	pipe.Expire(ctx, drawingsKey(snapshot.RoomCode), s.cfg.RoomTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) LatestDrawing(ctx context.Context, code model.RoomCode) (*model.DrawingSnapshot, error) {
	data, err := s.client.LIndex(ctx, drawingsKey(code), -1).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var snapshot model.DrawingSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
