package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/karalama/karalama/internal/bus"
	"github.com/karalama/karalama/internal/dependencies/clock"
	"github.com/karalama/karalama/internal/dependencies/mocks"
	"github.com/karalama/karalama/internal/model"
	"github.com/karalama/karalama/internal/services/directory"
	"github.com/karalama/karalama/internal/services/lexicon"
	"github.com/karalama/karalama/internal/services/scheduler"
	"github.com/karalama/karalama/internal/services/score"
	"github.com/karalama/karalama/internal/session"
	"github.com/karalama/karalama/internal/storage/memory"
	"github.com/karalama/karalama/internal/testutil"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

// stack bundles one full in-memory service wiring
type stack struct {
	bus       *bus.MemoryBus
	directory *directory.Service
	lexicon   *lexicon.Service
	scheduler *scheduler.Service
	score     *score.Service
	clock     clock.Clock
	random    *mocks.MockRandom
}

// newStack wires services over in-memory storage and bus. Timer tests pass
// the real clock with short durations; everything else runs on a mock.
func newStack(clk clock.Clock, cfg scheduler.Config) *stack {
	rnd := mocks.NewMockRandom()
	b := bus.NewMemory()
	dir := directory.New(memory.New(), b, clk, rnd, testutil.NopLogger())
	lex := lexicon.New(rnd)
	return &stack{
		bus:       b,
		directory: dir,
		lexicon:   lex,
		scheduler: scheduler.New(dir, lex, clk, cfg, testutil.NopLogger()),
		score:     score.New(dir, lex, testutil.NopLogger()),
		clock:     clk,
		random:    rnd,
	}
}

func (st *stack) session(code model.RoomCode, id model.PlayerID, name string) *session.Session {
	return session.New(st.directory, st.scheduler, st.score, st.bus, st.clock,
		session.DefaultConfig(), testutil.NopLogger(), code, id, name)
}

type SessionSuite struct {
	suite.Suite

	ctx   context.Context
	stack *stack
	code  model.RoomCode

	host  *session.Session
	guest *session.Session
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	s.ctx = context.Background()
	s.stack = newStack(mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)), scheduler.DefaultConfig())
	s.code = s.createRoom(s.stack, "ABC123")

	s.host = s.stack.session(s.code, "host", "Ayşe")
	s.Require().NoError(s.host.Start(s.ctx))
	s.guest = s.stack.session(s.code, "guest", "Fatma")
	s.Require().NoError(s.guest.Start(s.ctx))
}

func (s *SessionSuite) TearDownTest() {
	_ = s.host.Leave(s.ctx)
	_ = s.guest.Leave(s.ctx)
}

func (s *SessionSuite) createRoom(st *stack, code string) model.RoomCode {
	st.random.QueueString(code)
	room, err := st.directory.CreateRoom(s.ctx, "host", "Ayşe", 2)
	s.Require().NoError(err)
	return room.Code
}

func (s *SessionSuite) view(sess *session.Session) session.View {
	v, err := sess.View(s.ctx)
	s.Require().NoError(err)
	return v
}

func (s *SessionSuite) TestStartSeedsRosterAndProjectsWaiting() {
	v := s.view(s.host)
	s.Equal(session.StateWaiting, v.State)
	s.False(v.IsDrawer)

	// The guest joined after the host seeded its roster; the membership
	// change notification fills it in
	s.Eventually(func() bool {
		return len(s.view(s.host).Roster) == 2
	}, waitFor, tick)
	roster := s.view(s.host).Roster
	s.Equal(model.PlayerID("guest"), roster[0].PlayerID)
	s.Equal(model.PlayerID("host"), roster[1].PlayerID)
}

func (s *SessionSuite) TestStartGameProjectsDrawingForBothSides() {
	_, err := s.host.StartGame(s.ctx)
	s.Require().NoError(err)

	hv := s.view(s.host)
	s.Equal(session.StateDrawing, hv.State)
	s.True(hv.IsDrawer)
	s.NotEmpty(hv.Room.CurrentWord)

	s.Eventually(func() bool {
		gv := s.view(s.guest)
		return gv.State == session.StateDrawing && !gv.IsDrawer
	}, waitFor, tick)

	// Guessers never see the word they are guessing
	gv := s.view(s.guest)
	s.Empty(gv.Room.CurrentWord)
}

func (s *SessionSuite) TestStartGameNonHost() {
	_, err := s.guest.StartGame(s.ctx)
	s.ErrorIs(err, model.ErrNotHost)
}

func (s *SessionSuite) TestCorrectGuessClosesOwnWindowOnly() {
	_, err := s.host.StartGame(s.ctx)
	s.Require().NoError(err)
	s.Eventually(func() bool {
		return s.view(s.guest).State == session.StateDrawing
	}, waitFor, tick)

	word := s.view(s.host).Room.CurrentWord
	msg, correct, err := s.guest.SubmitGuess(s.ctx, word)
	s.Require().NoError(err)
	s.True(correct)
	s.True(msg.IsCorrectGuess)

	gv := s.view(s.guest)
	s.True(gv.HasGuessedThisRound)
	s.Equal(word, gv.Room.CurrentWord) // revealed once guessed

	// The round itself keeps running for everyone else
	hv := s.view(s.host)
	s.False(hv.HasGuessedThisRound)
	s.Equal(session.StateDrawing, hv.State)
}

func (s *SessionSuite) TestChatReachesEveryone() {
	_, _, err := s.guest.SubmitGuess(s.ctx, "merhaba")
	s.Require().NoError(err)

	s.Eventually(func() bool {
		hv := s.view(s.host)
		return len(hv.Messages) == 1 && hv.Messages[0].Message == "merhaba"
	}, waitFor, tick)
}

func (s *SessionSuite) TestLiveStrokesReachGuests() {
	_, err := s.host.StartGame(s.ctx)
	s.Require().NoError(err)

	data := []byte("stroke-data")
	s.Require().NoError(s.host.PublishDrawing(s.ctx, data))

	s.Eventually(func() bool {
		gv := s.view(s.guest)
		return gv.Drawing != nil && string(gv.Drawing.DrawingData) == string(data) && !gv.Drawing.Final
	}, waitFor, tick)
}

func (s *SessionSuite) TestOnlyDrawerPublishes() {
	_, err := s.host.StartGame(s.ctx)
	s.Require().NoError(err)

	s.ErrorIs(s.guest.PublishDrawing(s.ctx, []byte("x")), model.ErrNotDrawer)
	_, err = s.guest.FinalizeDrawing(s.ctx, []byte("x"))
	s.ErrorIs(err, model.ErrNotDrawer)
}

func (s *SessionSuite) TestFinalizeDrawingOpensGuessWindow() {
	_, err := s.host.StartGame(s.ctx)
	s.Require().NoError(err)

	_, err = s.host.FinalizeDrawing(s.ctx, []byte("final-raster"))
	s.Require().NoError(err)

	// The host session reacts to the final snapshot by stamping the guess
	// deadline, flipping everyone to guessing
	s.Eventually(func() bool {
		return s.view(s.guest).State == session.StateGuessing
	}, waitFor, tick)
	s.Eventually(func() bool {
		return s.view(s.host).State == session.StateGuessing
	}, waitFor, tick)

	room, err := s.stack.directory.GetRoom(s.ctx, s.code)
	s.Require().NoError(err)
	s.False(room.GuessDeadline.IsZero())
}

func (s *SessionSuite) TestLeaveIsDurableAndFinal() {
	s.Require().NoError(s.guest.Leave(s.ctx))

	player, err := s.stack.directory.GetPlayer(s.ctx, s.code, "guest")
	s.Require().NoError(err)
	s.False(player.Connected)

	// The goodbye drops the guest from the host's roster
	s.Eventually(func() bool {
		for _, e := range s.view(s.host).Roster {
			if e.PlayerID == "guest" {
				return false
			}
		}
		return true
	}, waitFor, tick)

	// The session refuses further work, and a second leave is a no-op
	_, err = s.guest.View(s.ctx)
	s.ErrorIs(err, model.ErrSessionClosed)
	s.NoError(s.guest.Leave(s.ctx))
}

func (s *SessionSuite) TestRejoinAfterLeave() {
	s.Require().NoError(s.guest.Leave(s.ctx))

	again := s.stack.session(s.code, "guest", "Fatma")
	s.Require().NoError(again.Start(s.ctx))
	defer func() { _ = again.Leave(s.ctx) }()

	player, err := s.stack.directory.GetPlayer(s.ctx, s.code, "guest")
	s.Require().NoError(err)
	s.True(player.Connected)
}

// Timer-driven transitions run on the real clock with short rounds

func TestHostAdvancesWhenRoundExpires(t *testing.T) {
	st := newStack(clock.New(), scheduler.Config{
		RoundDuration: 50 * time.Millisecond,
		GuessDuration: 50 * time.Millisecond,
	})
	ctx := context.Background()

	st.random.QueueString("TIMER1")
	room, err := st.directory.CreateRoom(ctx, "host", "Ayşe", 2)
	if err != nil {
		t.Fatal(err)
	}

	host := st.session(room.Code, "host", "Ayşe")
	if err := host.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = host.Leave(ctx) }()
	guest := st.session(room.Code, "guest", "Fatma")
	if err := guest.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = guest.Leave(ctx) }()

	if _, err := host.StartGame(ctx); err != nil {
		t.Fatal(err)
	}

	// Nobody finalizes a drawing, so the round deadline expires and the
	// host rotates the drawer to the guest
	deadline := time.Now().Add(waitFor)
	for time.Now().Before(deadline) {
		v, err := guest.View(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if v.Room.CurrentRound == 2 {
			if v.Room.Status == model.RoomStatusPlaying && !v.IsDrawer {
				t.Fatalf("round 2 drawer is %s, want guest", v.Room.CurrentDrawer)
			}
			return
		}
		time.Sleep(tick)
	}
	t.Fatal("round never advanced to the guest")
}

func TestGameEndsAfterGuessWindowOfLastRound(t *testing.T) {
	st := newStack(clock.New(), scheduler.Config{
		RoundDuration: 40 * time.Millisecond,
		GuessDuration: 40 * time.Millisecond,
	})
	ctx := context.Background()

	st.random.QueueString("TIMER2")
	room, err := st.directory.CreateRoom(ctx, "host", "Ayşe", 1)
	if err != nil {
		t.Fatal(err)
	}

	host := st.session(room.Code, "host", "Ayşe")
	if err := host.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = host.Leave(ctx) }()
	guest := st.session(room.Code, "guest", "Fatma")
	if err := guest.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = guest.Leave(ctx) }()

	if _, err := host.StartGame(ctx); err != nil {
		t.Fatal(err)
	}

	// A single round on a short clock runs out and, being the last round,
	// finishes the game for every session
	deadline := time.Now().Add(waitFor)
	for time.Now().Before(deadline) {
		hv, err := host.View(ctx)
		if err != nil {
			t.Fatal(err)
		}
		gv, err := guest.View(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if hv.State == session.StateGameEnd && gv.State == session.StateGameEnd {
			return
		}
		time.Sleep(tick)
	}
	t.Fatal("game never ended after the last round")
}
