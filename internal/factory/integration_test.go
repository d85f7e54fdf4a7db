package factory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/karalama/karalama/internal/bus"
	"github.com/karalama/karalama/internal/model"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
	s.app.LoadTestLexicon()
}

// Test: complete game flow from room creation to the final scoreboard
func (s *IntegrationSuite) TestCompleteGameFlow() {
	s.app.MockRandom.QueueString("ROOM01")

	// Step 1: host creates a room
	room, err := s.app.Directory.CreateRoom(s.ctx, "host", "Ayşe", 2)
	s.Require().NoError(err)
	s.Equal(model.RoomCode("ROOM01"), room.Code)

	// Step 2: a guest joins
	_, err = s.app.Directory.AddPlayer(s.ctx, room.Code, "guest", "Fatma")
	s.Require().NoError(err)

	// Step 3: host starts the game. The exhausted mock random always
	// draws the first word, so round one is "balık" with the host drawing.
	started, err := s.app.Scheduler.StartGame(s.ctx, room.Code, "host")
	s.Require().NoError(err)
	s.Equal(model.RoomStatusPlaying, started.Status)
	s.Equal(model.PlayerID("host"), started.CurrentDrawer)
	s.Equal("balık", started.CurrentWord)
	s.Equal(1, started.CurrentRound)

	// Step 4: the drawer finalizes a drawing and the host opens guessing
	_, err = s.app.Directory.SaveDrawing(s.ctx, room.Code, "host", []byte("raster"), started.CurrentWord)
	s.Require().NoError(err)
	opened, err := s.app.Scheduler.OpenGuessWindow(s.ctx, room.Code, "host")
	s.Require().NoError(err)
	s.False(opened.GuessDeadline.IsZero())

	// Step 5: the guest guesses via the English label
	msg, correct, err := s.app.Score.SubmitGuess(s.ctx, room.Code, "guest", "Fatma", "Fish")
	s.Require().NoError(err)
	s.True(correct)
	s.True(msg.IsCorrectGuess)

	// Step 6: round two rotates the drawer to the guest
	advanced, err := s.app.Scheduler.AdvanceRound(s.ctx, room.Code, "host")
	s.Require().NoError(err)
	s.Equal(2, advanced.CurrentRound)
	s.Equal(model.PlayerID("guest"), advanced.CurrentDrawer)

	// Step 7: now the host guesses
	_, correct, err = s.app.Score.SubmitGuess(s.ctx, room.Code, "host", "Ayşe", advanced.CurrentWord)
	s.Require().NoError(err)
	s.True(correct)

	// Step 8: advancing past the last round finishes the game
	finished, err := s.app.Scheduler.AdvanceRound(s.ctx, room.Code, "host")
	s.Require().NoError(err)
	s.Equal(model.RoomStatusFinished, finished.Status)
	s.Empty(finished.CurrentWord)
	s.Empty(finished.CurrentDrawer)

	// Step 9: both players earned one guess and one drawing credit
	players, err := s.app.Directory.GetPlayers(s.ctx, room.Code)
	s.Require().NoError(err)
	scores := map[model.PlayerID]int{}
	for _, p := range players {
		scores[p.ID] = p.Score
	}
	s.Equal(15, scores["host"])
	s.Equal(15, scores["guest"])

	// Step 10: the guess history survives in order
	msgs, err := s.app.Directory.GetMessages(s.ctx, room.Code)
	s.Require().NoError(err)
	s.Require().Len(msgs, 2)
	s.Equal("Fatma", msgs[0].PlayerName)
	s.True(msgs[0].IsCorrectGuess)
}

// Test: leaving and rejoining keeps the player's score and join order
func (s *IntegrationSuite) TestRejoinKeepsScore() {
	s.app.MockRandom.QueueString("ROOM01")

	room, err := s.app.Directory.CreateRoom(s.ctx, "host", "Ayşe", 2)
	s.Require().NoError(err)
	_, err = s.app.Directory.AddPlayer(s.ctx, room.Code, "guest", "Fatma")
	s.Require().NoError(err)

	_, err = s.app.Directory.AddScore(s.ctx, room.Code, "guest", 10)
	s.Require().NoError(err)

	s.Require().NoError(s.app.Directory.SetConnected(s.ctx, room.Code, "guest", false))
	rejoined, err := s.app.Directory.AddPlayer(s.ctx, room.Code, "guest", "Fatma")
	s.Require().NoError(err)
	s.True(rejoined.Connected)
	s.Equal(10, rejoined.Score)

	players, err := s.app.Directory.GetPlayers(s.ctx, room.Code)
	s.Require().NoError(err)
	s.Require().Len(players, 2)
	s.Equal(model.PlayerID("guest"), players[1].ID)
}

// Test: durable writes land on the broadcast bus
func (s *IntegrationSuite) TestChangeFeedDelivery() {
	s.app.MockRandom.QueueString("ROOM01")

	room, err := s.app.Directory.CreateRoom(s.ctx, "host", "Ayşe", 2)
	s.Require().NoError(err)

	var (
		mu    sync.Mutex
		kinds []model.EventKind
	)
	record := func(ev model.Event) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, ev.Kind)
	}

	manager := bus.NewChannelManager(s.app.Bus)
	defer manager.Close()
	s.Require().NoError(manager.Subscribe(s.ctx, bus.RoomChangeTopic(room.Code), record))
	s.Require().NoError(manager.Subscribe(s.ctx, bus.PlayerChangeTopic(room.Code), record))

	_, err = s.app.Directory.AddPlayer(s.ctx, room.Code, "guest", "Fatma")
	s.Require().NoError(err)
	_, err = s.app.Scheduler.StartGame(s.ctx, room.Code, "host")
	s.Require().NoError(err)

	// One player change for the join, one for the drawer flag, then the
	// room row flipping to playing.
	s.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(kinds) >= 3
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	s.Contains(kinds, model.EventPlayerChanged)
	s.Contains(kinds, model.EventRoomChanged)
}

// Test: redis config is required when redis storage is selected
func (s *IntegrationSuite) TestFactoryValidation() {
	_, err := New(Config{StorageType: StorageTypeRedis})
	s.Error(err)

	_, err = New(Config{StorageType: "bogus"})
	s.Error(err)

	app, err := New(Config{})
	s.Require().NoError(err)
	s.NotNil(app.Directory)
	s.NotNil(app.Classifier)
	s.NoError(app.Close())
}
