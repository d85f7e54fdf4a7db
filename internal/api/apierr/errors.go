package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/karalama/karalama/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeRoomNotFound        = "ROOM_NOT_FOUND"
	CodeRoomFinished        = "ROOM_FINISHED"
	CodeNoGameInProgress    = "NO_GAME_IN_PROGRESS"
	CodeGameInProgress      = "GAME_IN_PROGRESS"
	CodePlayerNotFound      = "PLAYER_NOT_FOUND"
	CodeNotHost             = "NOT_HOST"
	CodeNotDrawer           = "NOT_DRAWER"
	CodeDrawerCannotGuess   = "DRAWER_CANNOT_GUESS"
	CodeInsufficientPlayers = "INSUFFICIENT_PLAYERS"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRoomNotFound, "Room not found"}}
	case errors.Is(err, model.ErrRoomFinished):
		return &httpError{http.StatusConflict, APIError{CodeRoomFinished, "Room is already finished"}}
	case errors.Is(err, model.ErrRoomNotPlaying):
		return &httpError{http.StatusConflict, APIError{CodeNoGameInProgress, "No game in progress"}}
	case errors.Is(err, model.ErrGameInProgress):
		return &httpError{http.StatusConflict, APIError{CodeGameInProgress, "Game is already in progress"}}
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found in room"}}
	case errors.Is(err, model.ErrNotHost):
		return &httpError{http.StatusForbidden, APIError{CodeNotHost, "Only the host can perform this action"}}
	case errors.Is(err, model.ErrNotDrawer):
		return &httpError{http.StatusForbidden, APIError{CodeNotDrawer, "Only the drawer can perform this action"}}
	case errors.Is(err, model.ErrDrawerCannotGuess):
		return &httpError{http.StatusForbidden, APIError{CodeDrawerCannotGuess, "The drawer cannot submit guesses"}}
	case errors.Is(err, model.ErrInsufficientPlayers):
		return &httpError{http.StatusConflict, APIError{CodeInsufficientPlayers, "Not enough connected players"}}
	case errors.Is(err, model.ErrNoDrawer):
		return &httpError{http.StatusConflict, APIError{CodeNoGameInProgress, "Room has no active drawer"}}
	default:
		// Unknown errors stay opaque; the client retries against fresh state
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
