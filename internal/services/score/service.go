package score

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/karalama/karalama/internal/model"
	"github.com/karalama/karalama/internal/services/directory"
	"github.com/karalama/karalama/internal/services/lexicon"
)

const (
	// guesserPoints rewards the player who named the drawing
	guesserPoints = 10
	// drawerPoints rewards the drawer whose drawing got guessed
	drawerPoints = 5
)

// Service is the score ledger. All increments go through the directory's
// linearizable AddScore, so concurrent correct guesses never lose points.
type Service struct {
	directory *directory.Service
	lexicon   *lexicon.Service
	logger    *slog.Logger
}

func New(dir *directory.Service, lex *lexicon.Service, logger *slog.Logger) *Service {
	return &Service{
		directory: dir,
		lexicon:   lex,
		logger:    logger.With(slog.String("component", "score")),
	}
}

// SubmitGuess appends a chat message and, when the text names the current
// word while a round is live, awards points. The guess matches if it equals
// the stored word or its translation; comparison is case-insensitive and
// trimmed. Returns the stored message and whether it was a correct guess.
func (s *Service) SubmitGuess(ctx context.Context, code model.RoomCode, playerID model.PlayerID, playerName, text string) (*model.Message, bool, error) {
	room, err := s.directory.GetRoom(ctx, code)
	if err != nil {
		return nil, false, err
	}

	live := room.Status == model.RoomStatusPlaying && !room.Advancing()
	if !live || playerID == room.CurrentDrawer || !s.lexicon.Matches(text, room.CurrentWord) {
		msg, err := s.directory.AppendMessage(ctx, code, playerID, playerName, text, false)
		return msg, false, err
	}

	msg, err := s.ApplyCorrectGuess(ctx, room, playerID, playerName, text)
	if err != nil {
		return nil, false, err
	}
	return msg, true, nil
}

// ApplyCorrectGuess awards the guesser and the current drawer and appends
// the guess with its correct flag set. Rejected outside an active round.
func (s *Service) ApplyCorrectGuess(ctx context.Context, room *model.Room, guesserID model.PlayerID, guesserName, text string) (*model.Message, error) {
	if room.Status != model.RoomStatusPlaying {
		return nil, model.ErrRoomNotPlaying
	}
	if room.CurrentDrawer == "" {
		return nil, model.ErrNoDrawer
	}
	if guesserID == room.CurrentDrawer {
		return nil, model.ErrDrawerCannotGuess
	}

	guesserScore, err := s.directory.AddScore(ctx, room.Code, guesserID, guesserPoints)
	if err != nil {
		return nil, fmt.Errorf("crediting guesser: %w", err)
	}
	drawerScore, err := s.directory.AddScore(ctx, room.Code, room.CurrentDrawer, drawerPoints)
	if err != nil {
		return nil, fmt.Errorf("crediting drawer: %w", err)
	}

	s.logger.Info("correct guess",
		slog.String("room", string(room.Code)),
		slog.String("guesser", string(guesserID)),
		slog.Int("guesserScore", guesserScore),
		slog.Int("drawerScore", drawerScore))

	return s.directory.AppendMessage(ctx, room.Code, guesserID, guesserName, text, true)
}
