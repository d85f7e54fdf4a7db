package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/karalama/karalama/internal/dependencies/clock"
	"github.com/karalama/karalama/internal/model"
	"github.com/karalama/karalama/internal/services/directory"
	"github.com/karalama/karalama/internal/services/lexicon"
)

// Config holds the round timing knobs
type Config struct {
	// RoundDuration is how long the drawer has before the round times out
	RoundDuration time.Duration
	// GuessDuration is how long guessers have once the drawing is finalized
	GuessDuration time.Duration
}

func DefaultConfig() Config {
	return Config{
		RoundDuration: 60 * time.Second,
		GuessDuration: 30 * time.Second,
	}
}

// minPlayersToStart: a drawer plus at least one guesser
const minPlayersToStart = 2

// Service is the turn scheduler. It is the only writer of CurrentWord,
// CurrentRound and the drawer flags, and every transition is host-gated at
// this layer since the storage accepts writes from anyone. Deadlines are
// stamped on the room row; clients only ever render countdowns from them.
type Service struct {
	directory *directory.Service
	lexicon   *lexicon.Service
	clock     clock.Clock
	config    Config
	logger    *slog.Logger
}

func New(dir *directory.Service, lex *lexicon.Service, clk clock.Clock, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		directory: dir,
		lexicon:   lex,
		clock:     clk,
		config:    cfg,
		logger:    logger.With(slog.String("component", "scheduler")),
	}
}

// StartGame moves a waiting room into its first round: picks a word, makes
// the first connected player (join order) the drawer, and stamps the round
// deadline. Host only.
func (s *Service) StartGame(ctx context.Context, code model.RoomCode, requestingPlayerID model.PlayerID) (*model.Room, error) {
	room, err := s.directory.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if requestingPlayerID != room.HostID {
		return nil, model.ErrNotHost
	}
	switch room.Status {
	case model.RoomStatusPlaying:
		return nil, model.ErrGameInProgress
	case model.RoomStatusFinished:
		return nil, model.ErrRoomFinished
	}

	connected, err := s.connectedPlayers(ctx, code)
	if err != nil {
		return nil, err
	}
	if len(connected) < minPlayersToStart {
		return nil, model.ErrInsufficientPlayers
	}

	word, err := s.lexicon.RandomWord()
	if err != nil {
		return nil, err
	}
	drawer := connected[0]

	// The room row lands first and carries the authoritative drawer. The
	// per-player IsDrawing flag is denormalized and trails by one write; a
	// waiting room must never show a drawer flag.
	room.Status = model.RoomStatusPlaying
	room.CurrentRound = 1
	room.CurrentWord = word
	room.CurrentDrawer = drawer.ID
	room.RoundDeadline = s.clock.Now().Add(s.config.RoundDuration)
	room.GuessDeadline = time.Time{}
	if err := s.directory.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	if err := s.directory.SetDrawer(ctx, code, drawer.ID); err != nil {
		return nil, fmt.Errorf("setting first drawer: %w", err)
	}

	s.logger.Info("game started",
		slog.String("room", string(code)),
		slog.String("drawer", string(drawer.ID)),
		slog.Int("totalRounds", room.TotalRounds))
	return room, nil
}

// AdvanceRound finishes the current round: either ends the game after the
// last round, or rotates the drawer to the next connected player in join
// order (skipping disconnected, wrapping) and draws a fresh word. Host only.
func (s *Service) AdvanceRound(ctx context.Context, code model.RoomCode, requestingPlayerID model.PlayerID) (*model.Room, error) {
	room, err := s.directory.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if requestingPlayerID != room.HostID {
		return nil, model.ErrNotHost
	}
	if room.Status != model.RoomStatusPlaying {
		return nil, model.ErrRoomNotPlaying
	}

	if room.CurrentRound >= room.TotalRounds {
		return s.finishGame(ctx, room)
	}

	players, err := s.directory.GetPlayers(ctx, code)
	if err != nil {
		return nil, err
	}
	drawer, err := nextDrawer(players, room.CurrentDrawer)
	if err != nil {
		return nil, err
	}
	word, err := s.lexicon.RandomWord()
	if err != nil {
		return nil, err
	}

	// Room row first, IsDrawing flag second, same as StartGame
	room.CurrentRound++
	room.CurrentWord = word
	room.CurrentDrawer = drawer.ID
	room.RoundDeadline = s.clock.Now().Add(s.config.RoundDuration)
	room.GuessDeadline = time.Time{}
	if err := s.directory.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	if err := s.directory.SetDrawer(ctx, code, drawer.ID); err != nil {
		return nil, fmt.Errorf("rotating drawer: %w", err)
	}

	s.logger.Info("round advanced",
		slog.String("room", string(code)),
		slog.Int("round", room.CurrentRound),
		slog.String("drawer", string(drawer.ID)))
	return room, nil
}

func (s *Service) finishGame(ctx context.Context, room *model.Room) (*model.Room, error) {
	room.Status = model.RoomStatusFinished
	room.CurrentWord = ""
	room.CurrentDrawer = ""
	room.RoundDeadline = time.Time{}
	room.GuessDeadline = time.Time{}
	if err := s.directory.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	if err := s.directory.SetDrawer(ctx, room.Code, ""); err != nil {
		return nil, fmt.Errorf("clearing drawer: %w", err)
	}

	s.logger.Info("game finished", slog.String("room", string(room.Code)))
	return room, nil
}

// OpenGuessWindow stamps the guess deadline once the drawer finalizes the
// drawing. Host only.
func (s *Service) OpenGuessWindow(ctx context.Context, code model.RoomCode, requestingPlayerID model.PlayerID) (*model.Room, error) {
	room, err := s.directory.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if requestingPlayerID != room.HostID {
		return nil, model.ErrNotHost
	}
	if room.Status != model.RoomStatusPlaying {
		return nil, model.ErrRoomNotPlaying
	}
	if room.CurrentDrawer == "" {
		return nil, model.ErrNoDrawer
	}

	room.GuessDeadline = s.clock.Now().Add(s.config.GuessDuration)
	if err := s.directory.SaveRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *Service) connectedPlayers(ctx context.Context, code model.RoomCode) ([]*model.Player, error) {
	players, err := s.directory.GetPlayers(ctx, code)
	if err != nil {
		return nil, err
	}
	connected := make([]*model.Player, 0, len(players))
	for _, p := range players {
		if p.Connected {
			connected = append(connected, p)
		}
	}
	return connected, nil
}

// nextDrawer walks the join-ordered player list round-robin from the current
// drawer, skipping disconnected players and wrapping. Rotation trusts the
// durable Connected flag, not the ephemeral presence roster.
func nextDrawer(players []*model.Player, current model.PlayerID) (*model.Player, error) {
	start := 0
	for i, p := range players {
		if p.ID == current {
			start = i + 1
			break
		}
	}
	for i := 0; i < len(players); i++ {
		candidate := players[(start+i)%len(players)]
		if candidate.Connected {
			return candidate, nil
		}
	}
	return nil, model.ErrInsufficientPlayers
}
