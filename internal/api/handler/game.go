package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/karalama/karalama/internal/api/apierr"
	"github.com/karalama/karalama/internal/api/request"
	"github.com/karalama/karalama/internal/api/response"
	"github.com/karalama/karalama/internal/model"
	"github.com/karalama/karalama/internal/services/scheduler"
	"github.com/karalama/karalama/internal/services/score"
)

// GameHandler handles round transitions and guessing
type GameHandler struct {
	scheduler *scheduler.Service
	score     *score.Service
}

// NewGameHandler creates a new game handler
func NewGameHandler(sched *scheduler.Service, sc *score.Service) *GameHandler {
	return &GameHandler{scheduler: sched, score: sc}
}

func decodePlayer(w http.ResponseWriter, r *http.Request) (model.PlayerID, bool) {
	var req request.PlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("playerId is required"))
		return "", false
	}
	return model.PlayerID(req.PlayerID), true
}

// Start handles POST /api/v1/rooms/{code}/start
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])
	playerID, ok := decodePlayer(w, r)
	if !ok {
		return
	}

	room, err := h.scheduler.StartGame(r.Context(), code, playerID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RoomFromModel(room, playerID))
}

// Advance handles POST /api/v1/rooms/{code}/advance
func (h *GameHandler) Advance(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])
	playerID, ok := decodePlayer(w, r)
	if !ok {
		return
	}

	room, err := h.scheduler.AdvanceRound(r.Context(), code, playerID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RoomFromModel(room, playerID))
}

// OpenGuessWindow handles POST /api/v1/rooms/{code}/guess-window, the host's
// reaction to a finalized drawing
func (h *GameHandler) OpenGuessWindow(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])
	playerID, ok := decodePlayer(w, r)
	if !ok {
		return
	}

	room, err := h.scheduler.OpenGuessWindow(r.Context(), code, playerID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RoomFromModel(room, playerID))
}

// Guess handles POST /api/v1/rooms/{code}/guess
func (h *GameHandler) Guess(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])

	var req request.GuessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}
	if req.PlayerID == "" || req.Text == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("playerId and text are required"))
		return
	}

	msg, correct, err := h.score.SubmitGuess(r.Context(), code, model.PlayerID(req.PlayerID), req.PlayerName, req.Text)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.GuessResult{
		Message: response.MessageFromModel(msg),
		Correct: correct,
	})
}
