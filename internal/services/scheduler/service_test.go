package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/karalama/karalama/internal/bus"
	"github.com/karalama/karalama/internal/dependencies/mocks"
	"github.com/karalama/karalama/internal/model"
	"github.com/karalama/karalama/internal/services/directory"
	"github.com/karalama/karalama/internal/services/lexicon"
	"github.com/karalama/karalama/internal/services/scheduler"
	"github.com/karalama/karalama/internal/storage/memory"
	"github.com/karalama/karalama/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite

	ctx       context.Context
	clock     *mocks.MockClock
	random    *mocks.MockRandom
	bus       *bus.MemoryBus
	directory *directory.Service
	lexicon   *lexicon.Service
	service   *scheduler.Service

	code model.RoomCode
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.bus = bus.NewMemory()
	s.directory = directory.New(memory.New(), s.bus, s.clock, s.random, testutil.NopLogger())
	s.lexicon = lexicon.New(s.random)
	s.service = scheduler.New(s.directory, s.lexicon, s.clock, scheduler.DefaultConfig(), testutil.NopLogger())

	s.code = s.setupRoom("ABC123", 4)
}

// setupRoom creates a room with the host plus two guests, all connected
func (s *ServiceSuite) setupRoom(code string, totalRounds int) model.RoomCode {
	s.random.QueueString(code)
	room, err := s.directory.CreateRoom(s.ctx, "host", "Ayşe", totalRounds)
	s.Require().NoError(err)
	_, err = s.directory.AddPlayer(s.ctx, room.Code, "guest-1", "Fatma")
	s.Require().NoError(err)
	_, err = s.directory.AddPlayer(s.ctx, room.Code, "guest-2", "Mehmet")
	s.Require().NoError(err)
	return room.Code
}

// assertOneDrawer checks the at-most-one-drawing-flag invariant and that
// the flag agrees with the room row
func (s *ServiceSuite) assertOneDrawer(room *model.Room) {
	players, err := s.directory.GetPlayers(s.ctx, room.Code)
	s.Require().NoError(err)
	drawing := 0
	for _, p := range players {
		if p.IsDrawing {
			drawing++
			s.Equal(room.CurrentDrawer, p.ID)
		}
	}
	if room.Status == model.RoomStatusPlaying {
		s.Equal(1, drawing)
	} else {
		s.Equal(0, drawing)
	}
}

func (s *ServiceSuite) TestStartGame() {
	room, err := s.service.StartGame(s.ctx, s.code, "host")
	s.Require().NoError(err)

	s.Equal(model.RoomStatusPlaying, room.Status)
	s.Equal(1, room.CurrentRound)
	s.Equal(s.lexicon.Words()[0], room.CurrentWord)
	s.Equal(model.PlayerID("host"), room.CurrentDrawer)
	s.Equal(s.clock.Now().Add(60*time.Second), room.RoundDeadline)
	s.True(room.GuessDeadline.IsZero())
	s.assertOneDrawer(room)
}

// The memory bus delivers on the publisher's goroutine, so the recorded
// order below is exactly the storage write order.
func (s *ServiceSuite) TestStartGamePublishesRoomBeforeDrawerFlag() {
	var observed []model.Event
	record := func(ev model.Event) {
		observed = append(observed, ev)
	}
	_, err := s.bus.Subscribe(s.ctx, bus.RoomChangeTopic(s.code), record)
	s.Require().NoError(err)
	_, err = s.bus.Subscribe(s.ctx, bus.PlayerChangeTopic(s.code), record)
	s.Require().NoError(err)

	_, err = s.service.StartGame(s.ctx, s.code, "host")
	s.Require().NoError(err)

	playingAt, drawingAt := -1, -1
	for i, ev := range observed {
		switch p := ev.Payload.(type) {
		case model.RoomChangedPayload:
			if playingAt < 0 && p.Room.Status == model.RoomStatusPlaying {
				playingAt = i
			}
		case model.PlayerChangedPayload:
			if drawingAt < 0 && p.Player.IsDrawing {
				drawingAt = i
			}
		}
	}
	s.Require().GreaterOrEqual(playingAt, 0)
	s.Require().GreaterOrEqual(drawingAt, 0)

	// A reader must never see a drawing flag while the room still says
	// waiting; the playing room row has to land first.
	s.Less(playingAt, drawingAt)
}

func (s *ServiceSuite) TestStartGameNonHost() {
	_, err := s.service.StartGame(s.ctx, s.code, "guest-1")
	s.ErrorIs(err, model.ErrNotHost)
}

func (s *ServiceSuite) TestStartGameTwice() {
	_, err := s.service.StartGame(s.ctx, s.code, "host")
	s.Require().NoError(err)
	_, err = s.service.StartGame(s.ctx, s.code, "host")
	s.ErrorIs(err, model.ErrGameInProgress)
}

func (s *ServiceSuite) TestStartGameNeedsAGuesser() {
	s.Require().NoError(s.directory.SetConnected(s.ctx, s.code, "guest-1", false))
	s.Require().NoError(s.directory.SetConnected(s.ctx, s.code, "guest-2", false))

	_, err := s.service.StartGame(s.ctx, s.code, "host")
	s.ErrorIs(err, model.ErrInsufficientPlayers)
}

func (s *ServiceSuite) TestAdvanceRoundRotatesByJoinOrder() {
	_, err := s.service.StartGame(s.ctx, s.code, "host")
	s.Require().NoError(err)

	wantDrawers := []model.PlayerID{"guest-1", "guest-2", "host"}
	for i, want := range wantDrawers {
		room, err := s.service.AdvanceRound(s.ctx, s.code, "host")
		s.Require().NoError(err)
		s.Equal(i+2, room.CurrentRound)
		s.Equal(want, room.CurrentDrawer)
		s.assertOneDrawer(room)
	}
}

func (s *ServiceSuite) TestAdvanceRoundSkipsDisconnected() {
	_, err := s.service.StartGame(s.ctx, s.code, "host")
	s.Require().NoError(err)
	s.Require().NoError(s.directory.SetConnected(s.ctx, s.code, "guest-1", false))

	room, err := s.service.AdvanceRound(s.ctx, s.code, "host")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("guest-2"), room.CurrentDrawer)
}

func (s *ServiceSuite) TestAdvanceRoundStampsFreshDeadline() {
	start, err := s.service.StartGame(s.ctx, s.code, "host")
	s.Require().NoError(err)

	s.clock.Advance(45 * time.Second)
	room, err := s.service.AdvanceRound(s.ctx, s.code, "host")
	s.Require().NoError(err)
	s.Equal(s.clock.Now().Add(60*time.Second), room.RoundDeadline)
	s.True(room.RoundDeadline.After(start.RoundDeadline))
	s.True(room.GuessDeadline.IsZero())
}

func (s *ServiceSuite) TestAdvanceRoundNonHost() {
	_, err := s.service.StartGame(s.ctx, s.code, "host")
	s.Require().NoError(err)
	_, err = s.service.AdvanceRound(s.ctx, s.code, "guest-1")
	s.ErrorIs(err, model.ErrNotHost)
}

func (s *ServiceSuite) TestAdvanceRoundRequiresPlaying() {
	_, err := s.service.AdvanceRound(s.ctx, s.code, "host")
	s.ErrorIs(err, model.ErrRoomNotPlaying)
}

func (s *ServiceSuite) TestGameFinishesAfterLastRound() {
	code := s.setupRoom("XYZ789", 2)
	_, err := s.service.StartGame(s.ctx, code, "host")
	s.Require().NoError(err)
	_, err = s.service.AdvanceRound(s.ctx, code, "host")
	s.Require().NoError(err)

	room, err := s.service.AdvanceRound(s.ctx, code, "host")
	s.Require().NoError(err)
	s.Equal(model.RoomStatusFinished, room.Status)
	s.Empty(room.CurrentWord)
	s.Empty(string(room.CurrentDrawer))
	s.True(room.RoundDeadline.IsZero())
	s.assertOneDrawer(room)

	_, err = s.service.AdvanceRound(s.ctx, code, "host")
	s.ErrorIs(err, model.ErrRoomNotPlaying)
}

func (s *ServiceSuite) TestRoundNumberNeverExceedsTotal() {
	code := s.setupRoom("QRS456", 3)
	room, err := s.service.StartGame(s.ctx, code, "host")
	s.Require().NoError(err)

	for room.Status == model.RoomStatusPlaying {
		s.LessOrEqual(room.CurrentRound, room.TotalRounds)
		s.GreaterOrEqual(room.CurrentRound, 1)
		prev := room.CurrentRound
		room, err = s.service.AdvanceRound(s.ctx, code, "host")
		s.Require().NoError(err)
		if room.Status == model.RoomStatusPlaying {
			s.Equal(prev+1, room.CurrentRound)
		}
	}
}

func (s *ServiceSuite) TestOpenGuessWindow() {
	_, err := s.service.StartGame(s.ctx, s.code, "host")
	s.Require().NoError(err)

	s.clock.Advance(20 * time.Second)
	room, err := s.service.OpenGuessWindow(s.ctx, s.code, "host")
	s.Require().NoError(err)
	s.Equal(s.clock.Now().Add(30*time.Second), room.GuessDeadline)
}

func (s *ServiceSuite) TestOpenGuessWindowGuards() {
	_, err := s.service.OpenGuessWindow(s.ctx, s.code, "host")
	s.ErrorIs(err, model.ErrRoomNotPlaying)

	_, err = s.service.StartGame(s.ctx, s.code, "host")
	s.Require().NoError(err)
	_, err = s.service.OpenGuessWindow(s.ctx, s.code, "guest-1")
	s.ErrorIs(err, model.ErrNotHost)
}
