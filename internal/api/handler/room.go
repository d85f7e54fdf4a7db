package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/karalama/karalama/internal/api/apierr"
	"github.com/karalama/karalama/internal/api/request"
	"github.com/karalama/karalama/internal/api/response"
	"github.com/karalama/karalama/internal/bus"
	"github.com/karalama/karalama/internal/dependencies/clock"
	"github.com/karalama/karalama/internal/model"
	"github.com/karalama/karalama/internal/services/classifier"
	"github.com/karalama/karalama/internal/services/directory"
	"github.com/karalama/karalama/internal/services/lexicon"
)

// RoomHandler handles room lifecycle and content endpoints
type RoomHandler struct {
	directory  *directory.Service
	bus        bus.Bus
	clock      clock.Clock
	classifier classifier.Classifier
	lexicon    *lexicon.Service
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(dir *directory.Service, b bus.Bus, clk clock.Clock, cls classifier.Classifier, lex *lexicon.Service) *RoomHandler {
	return &RoomHandler{directory: dir, bus: b, clock: clk, classifier: cls, lexicon: lex}
}

// Create handles POST /api/v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}
	if req.PlayerID == "" || req.PlayerName == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("playerId and playerName are required"))
		return
	}

	room, err := h.directory.CreateRoom(r.Context(), model.PlayerID(req.PlayerID), req.PlayerName, req.TotalRounds)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	players, err := h.directory.GetPlayers(r.Context(), room.Code)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.RoomDetail{
		Room:    response.RoomFromModel(room, model.PlayerID(req.PlayerID)),
		Players: response.PlayersFromModel(players),
	})
}

// Get handles GET /api/v1/rooms/{code}. The optional playerId query names
// the viewer, so the drawer sees the word and nobody else does.
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])
	viewer := model.PlayerID(r.URL.Query().Get("playerId"))

	room, err := h.directory.GetRoom(r.Context(), code)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	players, err := h.directory.GetPlayers(r.Context(), code)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomDetail{
		Room:    response.RoomFromModel(room, viewer),
		Players: response.PlayersFromModel(players),
	})
}

// Join handles POST /api/v1/rooms/{code}/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])

	var req request.JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}
	if req.PlayerID == "" || req.PlayerName == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("playerId and playerName are required"))
		return
	}

	if _, err := h.directory.AddPlayer(r.Context(), code, model.PlayerID(req.PlayerID), req.PlayerName); err != nil {
		apierr.WriteError(w, err)
		return
	}

	room, err := h.directory.GetRoom(r.Context(), code)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	players, err := h.directory.GetPlayers(r.Context(), code)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomDetail{
		Room:    response.RoomFromModel(room, model.PlayerID(req.PlayerID)),
		Players: response.PlayersFromModel(players),
	})
}

// Leave handles POST /api/v1/rooms/{code}/leave. The goodbye broadcast is
// best-effort; the durable Connected=false write is what counts.
func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])

	var req request.PlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}

	_ = h.bus.Publish(r.Context(), bus.PresenceTopic(code), model.Event{
		Kind:      model.EventPlayerLeaving,
		RoomCode:  code,
		Timestamp: h.clock.Now(),
		Payload:   model.PlayerLeavingPayload{PlayerID: model.PlayerID(req.PlayerID)},
	})

	if err := h.directory.SetConnected(r.Context(), code, model.PlayerID(req.PlayerID), false); err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Messages handles GET /api/v1/rooms/{code}/messages
func (h *RoomHandler) Messages(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])

	if _, err := h.directory.GetRoom(r.Context(), code); err != nil {
		apierr.WriteError(w, err)
		return
	}
	msgs, err := h.directory.GetMessages(r.Context(), code)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.MessagesFromModel(msgs))
}

// GetDrawing handles GET /api/v1/rooms/{code}/drawing
func (h *RoomHandler) GetDrawing(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])

	if _, err := h.directory.GetRoom(r.Context(), code); err != nil {
		apierr.WriteError(w, err)
		return
	}
	latest, err := h.directory.LatestDrawing(r.Context(), code)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	if latest == nil {
		response.NoContent(w)
		return
	}
	response.JSON(w, http.StatusOK, response.DrawingFromModel(latest))
}

// Predictions handles GET /api/v1/rooms/{code}/drawing/predictions. The
// ranking names the drawing's word, so while that word is still in play only
// the drawer may fetch it.
func (h *RoomHandler) Predictions(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])
	viewer := model.PlayerID(r.URL.Query().Get("playerId"))

	room, err := h.directory.GetRoom(r.Context(), code)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	latest, err := h.directory.LatestDrawing(r.Context(), code)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	if latest == nil {
		response.NoContent(w)
		return
	}

	inPlay := room.Status == model.RoomStatusPlaying && latest.Word == room.CurrentWord
	if inPlay && viewer != room.CurrentDrawer {
		apierr.WriteError(w, model.ErrNotDrawer)
		return
	}

	predictions, err := h.classifier.Predict(r.Context(), latest.Data, latest.Word)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	out := response.Predictions{
		Predictions: make([]response.Prediction, len(predictions)),
		TargetRank:  classifier.Rank(predictions, h.lexicon, latest.Word),
	}
	for i, p := range predictions {
		out.Predictions[i] = response.Prediction{Label: p.Label, Confidence: p.Confidence}
	}
	response.JSON(w, http.StatusOK, out)
}

// PostDrawing handles POST /api/v1/rooms/{code}/drawing. Live snapshots are
// broadcast only; final ones are persisted (which also broadcasts them with
// the final flag set). Drawer only.
func (h *RoomHandler) PostDrawing(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])

	var req request.DrawingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}

	room, err := h.directory.GetRoom(r.Context(), code)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	if model.PlayerID(req.PlayerID) != room.CurrentDrawer {
		apierr.WriteError(w, model.ErrNotDrawer)
		return
	}

	if req.Final {
		snapshot, err := h.directory.SaveDrawing(r.Context(), code, model.PlayerID(req.PlayerID), req.Data, room.CurrentWord)
		if err != nil {
			apierr.WriteError(w, err)
			return
		}
		response.JSON(w, http.StatusCreated, response.DrawingFromModel(snapshot))
		return
	}

	err = h.bus.Publish(r.Context(), bus.DrawingTopic(code), model.Event{
		Kind:      model.EventDrawing,
		RoomCode:  code,
		Timestamp: h.clock.Now(),
		Payload: model.DrawingPayload{
			PlayerID:    model.PlayerID(req.PlayerID),
			DrawingData: req.Data,
		},
	})
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.NoContent(w)
}
