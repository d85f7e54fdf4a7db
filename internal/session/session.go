package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/karalama/karalama/internal/bus"
	"github.com/karalama/karalama/internal/dependencies/clock"
	"github.com/karalama/karalama/internal/model"
	"github.com/karalama/karalama/internal/services/directory"
	"github.com/karalama/karalama/internal/services/scheduler"
	"github.com/karalama/karalama/internal/services/score"
)

// Config holds the session loop knobs
type Config struct {
	// HeartbeatInterval is the presence announcement cadence
	HeartbeatInterval time.Duration
	// PresenceStaleAfter marks roster entries offline after this silence
	PresenceStaleAfter time.Duration
	// InboxSize buffers bus callbacks and timer ticks
	InboxSize int
	// MaxRecentMessages caps the chat window kept in memory
	MaxRecentMessages int
}

func DefaultConfig() Config {
	return Config{
		HeartbeatInterval:  15 * time.Second,
		PresenceStaleAfter: 45 * time.Second,
		InboxSize:          64,
		MaxRecentMessages:  100,
	}
}

// View is a consistent snapshot of everything a client renders
type View struct {
	Room                model.Room           `json:"room"`
	State               State                `json:"state"`
	IsDrawer            bool                 `json:"isDrawer"`
	HasGuessedThisRound bool                 `json:"hasGuessedThisRound"`
	Roster              []RosterEntry        `json:"roster"`
	Messages            []model.ChatPayload  `json:"messages"`
	Drawing             *model.DrawingPayload `json:"drawing,omitempty"`
}

// Session is one client's membership in a room, run as a single logical
// actor: timer ticks, bus callbacks and user actions all funnel through one
// serialized inbox, so the loop-owned state below needs no locking. Storage
// round trips happen from the loop; enqueues never block on them.
type Session struct {
	code       model.RoomCode
	playerID   model.PlayerID
	playerName string

	directory *directory.Service
	scheduler *scheduler.Service
	score     *score.Service
	channels  *bus.ChannelManager
	clock     clock.Clock
	config    Config
	logger    *slog.Logger

	inbox    chan func()
	done     chan struct{}
	loopDone chan struct{}
	leave    sync.Once

	// loop-owned state, only touched from run()
	room        *model.Room
	state       State
	guessedWord string // CurrentWord at the time of this player's correct guess
	roster      *Roster
	timers      *timerSet
	recent      []model.ChatPayload
	lastDrawing *model.DrawingPayload
}

func New(dir *directory.Service, sched *scheduler.Service, sc *score.Service, b bus.Bus, clk clock.Clock, cfg Config, logger *slog.Logger, code model.RoomCode, playerID model.PlayerID, playerName string) *Session {
	return &Session{
		code:       code,
		playerID:   playerID,
		playerName: playerName,
		directory:  dir,
		scheduler:  sched,
		score:      sc,
		channels:   bus.NewChannelManager(b),
		clock:      clk,
		config:     cfg,
		logger: logger.With(
			slog.String("component", "session"),
			slog.String("room", string(code)),
			slog.String("player", string(playerID))),
		inbox:    make(chan func(), cfg.InboxSize),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
		roster:   NewRoster(),
		timers:   newTimerSet(clk),
	}
}

// Start joins the room, subscribes to its topics and launches the loop.
// The join is the directory's idempotent upsert, so reconnecting resumes
// the same membership.
func (s *Session) Start(ctx context.Context) error {
	if _, err := s.directory.AddPlayer(ctx, s.code, s.playerID, s.playerName); err != nil {
		return err
	}
	room, err := s.directory.GetRoom(ctx, s.code)
	if err != nil {
		return err
	}
	s.room = room
	s.state = Project(room, s.clock.Now(), "")
	s.seedRoster(ctx)

	if err := s.subscribe(ctx); err != nil {
		s.channels.Close()
		return err
	}

	// Announce and arm timers before the loop starts so nothing races the
	// loop-owned state
	s.announcePresence(ctx, true)
	s.scheduleTimers()

	go s.run()
	go s.heartbeatLoop()
	return nil
}

// seedRoster primes the roster from the durable player rows; presence
// announcements patch it from there
func (s *Session) seedRoster(ctx context.Context) {
	players, err := s.directory.GetPlayers(ctx, s.code)
	if err != nil {
		s.logger.Warn("seeding roster from directory failed", slog.String("error", err.Error()))
		return
	}
	entries := make([]RosterEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, RosterEntry{
			PlayerID:   p.ID,
			PlayerName: p.PlayerName,
			IsHost:     p.IsHost,
			Online:     p.Connected,
			LastSeen:   p.UpdatedAt,
		})
	}
	s.roster.Sync(entries)
}

func (s *Session) subscribe(ctx context.Context) error {
	subs := map[string]bus.Handler{
		bus.PresenceTopic(s.code):     s.onPresence,
		bus.DrawingTopic(s.code):      s.onDrawing,
		bus.ChatTopic(s.code):         s.onChat,
		bus.RoomChangeTopic(s.code):   s.onRoomChange,
		bus.PlayerChangeTopic(s.code): s.onPlayerChange,
	}
	for topic, h := range subs {
		if err := s.channels.Subscribe(ctx, topic, h); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) run() {
	defer close(s.loopDone)
	for {
		select {
		case fn := <-s.inbox:
			fn()
		case <-s.done:
			return
		}
	}
}

func (s *Session) heartbeatLoop() {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.post(func() {
				s.announcePresence(context.Background(), true)
				s.roster.Prune(s.clock.Now(), s.config.PresenceStaleAfter)
			})
		case <-s.done:
			return
		}
	}
}

// post enqueues loop work without blocking. Bus handlers run on transport
// goroutines and must return promptly, so a full inbox drops the event;
// the next durable read heals whatever was missed.
func (s *Session) post(fn func()) {
	select {
	case s.inbox <- fn:
	case <-s.done:
	default:
		s.logger.Warn("inbox full, dropping event")
	}
}

// do runs fn on the loop and waits for it, for user actions that need a
// result
func (s *Session) do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	wrapped := func() {
		fn()
		close(ran)
	}
	select {
	case s.inbox <- wrapped:
	case <-s.done:
		return model.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ran:
		return nil
	case <-s.done:
		return model.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// --- bus handlers (transport goroutines; enqueue only) ---

func (s *Session) onPresence(ev model.Event) {
	switch p := ev.Payload.(type) {
	case model.PresencePayload:
		s.post(func() { s.roster.Apply(p) })
	case model.PlayerLeavingPayload:
		s.post(func() { s.roster.Leave(p.PlayerID) })
	}
}

func (s *Session) onDrawing(ev model.Event) {
	p, ok := ev.Payload.(model.DrawingPayload)
	if !ok {
		return
	}
	s.post(func() {
		s.lastDrawing = &p
		if p.Final {
			s.maybeOpenGuessWindow(p.PlayerID)
		}
	})
}

// maybeOpenGuessWindow is the host's reaction to a finalized drawing: stamp
// the guess deadline so every client flips to guessing together. Non-host
// sessions ignore it; the drawer finalizing is usually not the host.
func (s *Session) maybeOpenGuessWindow(drawerID model.PlayerID) {
	if !s.isHost() || s.room == nil {
		return
	}
	if s.room.Status != model.RoomStatusPlaying || s.room.Advancing() {
		return
	}
	if s.room.CurrentDrawer != drawerID || !s.room.GuessDeadline.IsZero() {
		return
	}
	room, err := s.scheduler.OpenGuessWindow(context.Background(), s.code, s.playerID)
	if err != nil {
		s.logger.Warn("opening guess window failed", slog.String("error", err.Error()))
		s.refresh()
		return
	}
	s.applyRoom(room)
}

func (s *Session) onChat(ev model.Event) {
	p, ok := ev.Payload.(model.ChatPayload)
	if !ok {
		return
	}
	s.post(func() {
		s.recent = append(s.recent, p)
		if len(s.recent) > s.config.MaxRecentMessages {
			s.recent = s.recent[len(s.recent)-s.config.MaxRecentMessages:]
		}
	})
}

func (s *Session) onRoomChange(ev model.Event) {
	p, ok := ev.Payload.(model.RoomChangedPayload)
	if !ok {
		return
	}
	room := p.Room
	s.post(func() { s.applyRoom(&room) })
}

func (s *Session) onPlayerChange(ev model.Event) {
	p, ok := ev.Payload.(model.PlayerChangedPayload)
	if !ok {
		return
	}
	player := p.Player
	s.post(func() {
		// Durable membership changes refresh the roster's identity bits;
		// liveness stays presence-driven
		if entry, ok := s.roster.entries[player.ID]; ok {
			entry.PlayerName = player.PlayerName
			entry.IsHost = player.IsHost
			s.roster.entries[player.ID] = entry
		} else {
			s.roster.Apply(model.PresencePayload{
				PlayerID:   player.ID,
				PlayerName: player.PlayerName,
				IsHost:     player.IsHost,
				Online:     player.Connected,
				LastSeen:   player.UpdatedAt,
			})
		}
	})
}

// --- loop-side state transitions ---

// applyRoom installs a fresh room row, reprojects and rearms the timers
func (s *Session) applyRoom(room *model.Room) {
	if s.room != nil && room.CurrentWord != s.room.CurrentWord {
		// New word means new round; the local guess window reopens
		s.guessedWord = ""
	}
	s.room = room
	s.state = Project(room, s.clock.Now(), s.state)
	s.scheduleTimers()
}

func (s *Session) scheduleTimers() {
	if s.room == nil {
		return
	}
	s.timers.ScheduleRound(s.room.RoundDeadline, func() { s.post(s.onRoundTick) })
	s.timers.ScheduleGuess(s.room.GuessDeadline, func() { s.post(s.onGuessTick) })
}

// onRoundTick fires when the round deadline passes. If the drawing was
// finalized in time, the guess window is open and this tick is moot;
// otherwise only the host advances the shared state, everyone else just
// reprojects and waits for the change notification.
func (s *Session) onRoundTick() {
	s.refresh()
	if s.room == nil || s.room.Status != model.RoomStatusPlaying {
		return
	}
	if !s.room.GuessDeadline.IsZero() || s.clock.Now().Before(s.room.RoundDeadline) {
		return
	}
	s.state = StateRoundEnd
	if s.isHost() {
		s.advance()
	}
}

// onGuessTick fires when the guess deadline passes; the host drives the
// shared transition
func (s *Session) onGuessTick() {
	s.refresh()
	if s.room == nil || s.room.Status != model.RoomStatusPlaying {
		return
	}
	if s.room.GuessDeadline.IsZero() || s.clock.Now().Before(s.room.GuessDeadline) {
		return
	}
	s.state = StateRoundEnd
	if s.isHost() {
		s.advance()
	}
}

func (s *Session) advance() {
	room, err := s.scheduler.AdvanceRound(context.Background(), s.code, s.playerID)
	if err != nil {
		s.logger.Warn("advancing round failed", slog.String("error", err.Error()))
		s.refresh()
		return
	}
	s.applyRoom(room)
}

// refresh re-reads the durable room row. Unrecognized errors fall back to
// the waiting projection rather than guessing at a phase.
func (s *Session) refresh() {
	room, err := s.directory.GetRoom(context.Background(), s.code)
	if err != nil {
		s.logger.Warn("room refresh failed", slog.String("error", err.Error()))
		s.room = nil
		s.state = StateWaiting
		return
	}
	s.applyRoom(room)
}

func (s *Session) isHost() bool {
	return s.room != nil && s.room.HostID == s.playerID
}

func (s *Session) announcePresence(ctx context.Context, online bool) {
	err := s.channels.Publish(ctx, bus.PresenceTopic(s.code), model.Event{
		Kind:      model.EventPresence,
		RoomCode:  s.code,
		Timestamp: s.clock.Now(),
		Payload: model.PresencePayload{
			PlayerID:   s.playerID,
			PlayerName: s.playerName,
			IsHost:     s.isHost(),
			Online:     online,
			LastSeen:   s.clock.Now(),
		},
	})
	if err != nil {
		s.logger.Warn("presence announcement failed", slog.String("error", err.Error()))
	}
}

// --- user actions ---

// View returns a consistent snapshot for rendering. The current word is
// masked while this player is supposed to be guessing it.
func (s *Session) View(ctx context.Context) (View, error) {
	var v View
	err := s.do(ctx, func() {
		if s.room != nil {
			v.Room = *s.room
		}
		v.State = s.state
		v.IsDrawer = IsDrawer(s.room, s.playerID)
		v.HasGuessedThisRound = s.room != nil && s.guessedWord != "" && s.guessedWord == s.room.CurrentWord
		v.Roster = s.roster.Entries()
		v.Messages = append([]model.ChatPayload(nil), s.recent...)
		v.Drawing = s.lastDrawing

		masked := (v.State == StateDrawing || v.State == StateGuessing) && !v.IsDrawer && !v.HasGuessedThisRound
		if masked {
			v.Room.CurrentWord = ""
		}
	})
	return v, err
}

// StartGame begins the first round; the directory rejects non-hosts
func (s *Session) StartGame(ctx context.Context) (*model.Room, error) {
	var (
		room *model.Room
		err  error
	)
	doErr := s.do(ctx, func() {
		room, err = s.scheduler.StartGame(ctx, s.code, s.playerID)
		if err == nil {
			s.applyRoom(room)
		}
	})
	if doErr != nil {
		return nil, doErr
	}
	return room, err
}

// SubmitGuess sends a chat message, scoring it when it names the current
// word. A correct guess closes only this player's guess window.
func (s *Session) SubmitGuess(ctx context.Context, text string) (*model.Message, bool, error) {
	var (
		msg     *model.Message
		correct bool
		err     error
	)
	doErr := s.do(ctx, func() {
		msg, correct, err = s.score.SubmitGuess(ctx, s.code, s.playerID, s.playerName, text)
		if correct && s.room != nil {
			s.guessedWord = s.room.CurrentWord
		}
	})
	if doErr != nil {
		return nil, false, doErr
	}
	return msg, correct, err
}

// PublishDrawing broadcasts a live stroke snapshot without persisting it.
// Drawer only.
func (s *Session) PublishDrawing(ctx context.Context, data []byte) error {
	var err error
	doErr := s.do(ctx, func() {
		if !IsDrawer(s.room, s.playerID) {
			err = model.ErrNotDrawer
			return
		}
		err = s.channels.Publish(ctx, bus.DrawingTopic(s.code), model.Event{
			Kind:      model.EventDrawing,
			RoomCode:  s.code,
			Timestamp: s.clock.Now(),
			Payload: model.DrawingPayload{
				PlayerID:    s.playerID,
				DrawingData: data,
			},
		})
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// FinalizeDrawing persists the finished drawing; the durable save also
// broadcasts the final snapshot, which triggers the host to open the guess
// window. Drawer only.
func (s *Session) FinalizeDrawing(ctx context.Context, data []byte) (*model.DrawingSnapshot, error) {
	var (
		snapshot *model.DrawingSnapshot
		err      error
	)
	doErr := s.do(ctx, func() {
		if !IsDrawer(s.room, s.playerID) {
			err = model.ErrNotDrawer
			return
		}
		snapshot, err = s.directory.SaveDrawing(ctx, s.code, s.playerID, data, s.room.CurrentWord)
	})
	if doErr != nil {
		return nil, doErr
	}
	return snapshot, err
}

// Leave tears the session down: a best-effort goodbye on the bus, then the
// durable Connected=false write, then timers and subscriptions. After Leave
// returns no handler or timer fires again.
func (s *Session) Leave(ctx context.Context) error {
	var err error
	s.leave.Do(func() {
		now := s.clock.Now()
		pubErr := s.channels.Publish(ctx, bus.PresenceTopic(s.code), model.Event{
			Kind:      model.EventPlayerLeaving,
			RoomCode:  s.code,
			Timestamp: now,
			Payload:   model.PlayerLeavingPayload{PlayerID: s.playerID},
		})
		if pubErr != nil {
			s.logger.Warn("leave announcement failed", slog.String("error", pubErr.Error()))
		}

		err = s.directory.SetConnected(ctx, s.code, s.playerID, false)

		s.timers.StopAll()
		s.channels.Close()
		close(s.done)
		<-s.loopDone
	})
	return err
}
