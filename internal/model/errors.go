package model

import "errors"

// Common errors used across the application
var (
	// Room errors
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFinished   = errors.New("room is finished")
	ErrRoomNotPlaying = errors.New("room has no game in progress")
	ErrGameInProgress = errors.New("game is in progress")

	// Player errors
	ErrPlayerNotFound      = errors.New("player not found in room")
	ErrNotHost             = errors.New("player is not the host")
	ErrNotDrawer           = errors.New("player is not the drawer")
	ErrDrawerCannotGuess   = errors.New("the drawer cannot submit guesses")
	ErrInsufficientPlayers = errors.New("not enough connected players")
	ErrNoDrawer            = errors.New("room has no active drawer")

	// Session errors
	ErrSessionClosed = errors.New("session is closed")

	// Bus errors
	ErrBusClosed        = errors.New("bus is closed")
	ErrMalformedPayload = errors.New("malformed event payload")
	ErrUnknownEventKind = errors.New("unknown event kind")

	// Collaborator errors
	ErrLexiconEmpty = errors.New("lexicon has no words loaded")
)
