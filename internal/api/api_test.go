package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/karalama/karalama/internal/api"
	"github.com/karalama/karalama/internal/api/apierr"
	"github.com/karalama/karalama/internal/api/response"
	"github.com/karalama/karalama/internal/bus"
	"github.com/karalama/karalama/internal/dependencies/mocks"
	"github.com/karalama/karalama/internal/model"
	"github.com/karalama/karalama/internal/services/classifier"
	"github.com/karalama/karalama/internal/services/directory"
	"github.com/karalama/karalama/internal/services/lexicon"
	"github.com/karalama/karalama/internal/services/scheduler"
	"github.com/karalama/karalama/internal/services/score"
	"github.com/karalama/karalama/internal/storage/memory"
	"github.com/karalama/karalama/internal/testutil"
)

type APISuite struct {
	suite.Suite

	router    http.Handler
	random    *mocks.MockRandom
	clock     *mocks.MockClock
	directory *directory.Service
	bus       *bus.MemoryBus
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	s.random = mocks.NewMockRandom()
	s.clock = mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s.bus = bus.NewMemory()

	logger := testutil.NopLogger()
	s.directory = directory.New(memory.New(), s.bus, s.clock, s.random, logger)
	lex := lexicon.New(s.random)

	s.router = api.NewRouter(api.RouterConfig{
		Logger:     logger,
		Directory:  s.directory,
		Scheduler:  scheduler.New(s.directory, lex, s.clock, scheduler.DefaultConfig(), logger),
		Score:      score.New(s.directory, lex, logger),
		Classifier: classifier.NewFallback(lex, s.random),
		Lexicon:    lex,
		Bus:        s.bus,
		Clock:      s.clock,
	})
}

func (s *APISuite) request(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *APISuite) decode(rec *httptest.ResponseRecorder, into any) {
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(into))
}

func (s *APISuite) errorCode(rec *httptest.ResponseRecorder) string {
	var er apierr.ErrorResponse
	s.decode(rec, &er)
	return er.Error.Code
}

// createRoom makes a room hosted by "host" and returns its code
func (s *APISuite) createRoom(code string) string {
	s.random.QueueString(code)
	rec := s.request(http.MethodPost, "/api/v1/rooms", map[string]any{
		"playerId":    "host",
		"playerName":  "Ayşe",
		"totalRounds": 2,
	})
	s.Require().Equal(http.StatusCreated, rec.Code)

	var detail response.RoomDetail
	s.decode(rec, &detail)
	return detail.Room.Code
}

func (s *APISuite) join(code, playerID, playerName string) {
	rec := s.request(http.MethodPost, "/api/v1/rooms/"+code+"/join", map[string]any{
		"playerId":   playerID,
		"playerName": playerName,
	})
	s.Require().Equal(http.StatusOK, rec.Code)
}

func (s *APISuite) TestHealth() {
	rec := s.request(http.MethodGet, "/api/v1/health", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status":"ok"}`, rec.Body.String())
}

func (s *APISuite) TestCreateRoom() {
	code := s.createRoom("ABC123")
	s.Equal("ABC123", code)

	rec := s.request(http.MethodGet, "/api/v1/rooms/"+code, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var detail response.RoomDetail
	s.decode(rec, &detail)
	s.Equal("waiting", detail.Room.Status)
	s.Equal("host", detail.Room.HostID)
	s.Equal(1, detail.Room.CurrentRound)
	s.Require().Len(detail.Players, 1)
	s.True(detail.Players[0].IsHost)
}

func (s *APISuite) TestCreateRoomValidation() {
	rec := s.request(http.MethodPost, "/api/v1/rooms", map[string]any{"playerName": "Ayşe"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal(apierr.CodeInvalidRequest, s.errorCode(rec))
}

func (s *APISuite) TestRoomNotFound() {
	rec := s.request(http.MethodGet, "/api/v1/rooms/NOSUCH", nil)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal(apierr.CodeRoomNotFound, s.errorCode(rec))
}

func (s *APISuite) TestJoinAndLeave() {
	code := s.createRoom("ABC123")
	s.join(code, "guest", "Fatma")

	rec := s.request(http.MethodGet, "/api/v1/rooms/"+code, nil)
	var detail response.RoomDetail
	s.decode(rec, &detail)
	s.Require().Len(detail.Players, 2)
	s.True(detail.Players[1].Connected)

	rec = s.request(http.MethodPost, "/api/v1/rooms/"+code+"/leave", map[string]any{"playerId": "guest"})
	s.Equal(http.StatusNoContent, rec.Code)

	rec = s.request(http.MethodGet, "/api/v1/rooms/"+code, nil)
	s.decode(rec, &detail)
	s.False(detail.Players[1].Connected)
}

func (s *APISuite) TestStartGameAndWordMasking() {
	code := s.createRoom("ABC123")
	s.join(code, "guest", "Fatma")

	rec := s.request(http.MethodPost, "/api/v1/rooms/"+code+"/start", map[string]any{"playerId": "guest"})
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal(apierr.CodeNotHost, s.errorCode(rec))

	rec = s.request(http.MethodPost, "/api/v1/rooms/"+code+"/start", map[string]any{"playerId": "host"})
	s.Require().Equal(http.StatusOK, rec.Code)

	var room response.Room
	s.decode(rec, &room)
	s.Equal("playing", room.Status)
	s.Equal(1, room.CurrentRound)
	s.NotEmpty(room.CurrentWord) // the host is the first drawer
	s.NotNil(room.RoundDeadline)

	// Guessers never see the word
	rec = s.request(http.MethodGet, "/api/v1/rooms/"+code+"?playerId=guest", nil)
	var detail response.RoomDetail
	s.decode(rec, &detail)
	s.Empty(detail.Room.CurrentWord)

	// The drawer does
	rec = s.request(http.MethodGet, "/api/v1/rooms/"+code+"?playerId=host", nil)
	s.decode(rec, &detail)
	s.NotEmpty(detail.Room.CurrentWord)
}

func (s *APISuite) TestGuessFlow() {
	code := s.createRoom("ABC123")
	s.join(code, "guest", "Fatma")
	rec := s.request(http.MethodPost, "/api/v1/rooms/"+code+"/start", map[string]any{"playerId": "host"})
	s.Require().Equal(http.StatusOK, rec.Code)
	var room response.Room
	s.decode(rec, &room)

	rec = s.request(http.MethodPost, "/api/v1/rooms/"+code+"/guess", map[string]any{
		"playerId": "guest", "playerName": "Fatma", "text": "wrong answer",
	})
	s.Require().Equal(http.StatusOK, rec.Code)
	var result response.GuessResult
	s.decode(rec, &result)
	s.False(result.Correct)

	rec = s.request(http.MethodPost, "/api/v1/rooms/"+code+"/guess", map[string]any{
		"playerId": "guest", "playerName": "Fatma", "text": room.CurrentWord,
	})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(rec, &result)
	s.True(result.Correct)
	s.True(result.Message.IsCorrectGuess)

	// Guesser +10, drawer +5
	rec = s.request(http.MethodGet, "/api/v1/rooms/"+code, nil)
	var detail response.RoomDetail
	s.decode(rec, &detail)
	scores := map[string]int{}
	for _, p := range detail.Players {
		scores[p.ID] = p.Score
	}
	s.Equal(10, scores["guest"])
	s.Equal(5, scores["host"])

	// The guess history is durable
	rec = s.request(http.MethodGet, "/api/v1/rooms/"+code+"/messages", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var msgs []response.Message
	s.decode(rec, &msgs)
	s.Len(msgs, 2)
}

func (s *APISuite) TestDrawingEndpoints() {
	code := s.createRoom("ABC123")
	s.join(code, "guest", "Fatma")
	rec := s.request(http.MethodPost, "/api/v1/rooms/"+code+"/start", map[string]any{"playerId": "host"})
	s.Require().Equal(http.StatusOK, rec.Code)

	// No snapshot yet
	rec = s.request(http.MethodGet, "/api/v1/rooms/"+code+"/drawing", nil)
	s.Equal(http.StatusNoContent, rec.Code)

	// Only the drawer may publish
	rec = s.request(http.MethodPost, "/api/v1/rooms/"+code+"/drawing", map[string]any{
		"playerId": "guest", "data": []byte("nope"),
	})
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal(apierr.CodeNotDrawer, s.errorCode(rec))

	// Live stroke broadcasts without persisting
	rec = s.request(http.MethodPost, "/api/v1/rooms/"+code+"/drawing", map[string]any{
		"playerId": "host", "data": []byte("live"),
	})
	s.Equal(http.StatusNoContent, rec.Code)
	rec = s.request(http.MethodGet, "/api/v1/rooms/"+code+"/drawing", nil)
	s.Equal(http.StatusNoContent, rec.Code)

	// Final snapshot persists
	rec = s.request(http.MethodPost, "/api/v1/rooms/"+code+"/drawing", map[string]any{
		"playerId": "host", "data": []byte("raster"), "final": true,
	})
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.request(http.MethodGet, "/api/v1/rooms/"+code+"/drawing", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var drawing response.Drawing
	s.decode(rec, &drawing)
	s.Equal([]byte("raster"), drawing.Data)
}

func (s *APISuite) TestPredictions() {
	code := s.createRoom("ABC123")
	s.join(code, "guest", "Fatma")
	rec := s.request(http.MethodPost, "/api/v1/rooms/"+code+"/start", map[string]any{"playerId": "host"})
	s.Require().Equal(http.StatusOK, rec.Code)

	// Nothing to classify yet
	rec = s.request(http.MethodGet, "/api/v1/rooms/"+code+"/drawing/predictions", nil)
	s.Equal(http.StatusNoContent, rec.Code)

	rec = s.request(http.MethodPost, "/api/v1/rooms/"+code+"/drawing", map[string]any{
		"playerId": "host", "data": []byte("raster"), "final": true,
	})
	s.Require().Equal(http.StatusCreated, rec.Code)

	// The word is still in play, so guessers cannot peek at the ranking
	rec = s.request(http.MethodGet, "/api/v1/rooms/"+code+"/drawing/predictions?playerId=guest", nil)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.request(http.MethodGet, "/api/v1/rooms/"+code+"/drawing/predictions?playerId=host", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var preds response.Predictions
	s.decode(rec, &preds)
	s.NotEmpty(preds.Predictions)
	s.GreaterOrEqual(preds.TargetRank, 0)
	s.Less(preds.TargetRank, 3)
}

func (s *APISuite) TestGuessWindowRoute() {
	code := s.createRoom("ABC123")
	s.join(code, "guest", "Fatma")
	rec := s.request(http.MethodPost, "/api/v1/rooms/"+code+"/start", map[string]any{"playerId": "host"})
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.request(http.MethodPost, "/api/v1/rooms/"+code+"/guess-window", map[string]any{"playerId": "guest"})
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.request(http.MethodPost, "/api/v1/rooms/"+code+"/guess-window", map[string]any{"playerId": "host"})
	s.Require().Equal(http.StatusOK, rec.Code)
	var room response.Room
	s.decode(rec, &room)
	s.NotNil(room.GuessDeadline)
}

func (s *APISuite) TestAdvanceRoute() {
	code := s.createRoom("ABC123")
	s.join(code, "guest", "Fatma")
	rec := s.request(http.MethodPost, "/api/v1/rooms/"+code+"/start", map[string]any{"playerId": "host"})
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.request(http.MethodPost, "/api/v1/rooms/"+code+"/advance", map[string]any{"playerId": "host"})
	s.Require().Equal(http.StatusOK, rec.Code)
	var room response.Room
	s.decode(rec, &room)
	s.Equal(2, room.CurrentRound)
	s.Equal("guest", room.CurrentDrawer)

	// Last round done: the game finishes
	rec = s.request(http.MethodPost, "/api/v1/rooms/"+code+"/advance", map[string]any{"playerId": "host"})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(rec, &room)
	s.Equal("finished", room.Status)
	s.Empty(room.CurrentDrawer)
}

func (s *APISuite) TestEventStream() {
	code := s.createRoom("ABC123")

	server := httptest.NewServer(s.router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/rooms/"+code+"/events", nil)
	s.Require().NoError(err)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer func() { _ = resp.Body.Close() }()
	s.Equal("text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		for {
			line, err := reader.ReadString('\n')
			s.Require().NoError(err)
			if strings.HasPrefix(line, "event: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "event: "))
			}
		}
	}

	s.Equal("connected", readEvent())

	// A join lands on the stream as a player change
	s.join(code, "guest", "Fatma")
	s.Equal(string(model.EventPlayerChanged), readEvent())
}
