package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/karalama/karalama/internal/api/handler"
	"github.com/karalama/karalama/internal/api/middleware"
	"github.com/karalama/karalama/internal/bus"
	"github.com/karalama/karalama/internal/dependencies/clock"
	"github.com/karalama/karalama/internal/services/classifier"
	"github.com/karalama/karalama/internal/services/directory"
	"github.com/karalama/karalama/internal/services/lexicon"
	"github.com/karalama/karalama/internal/services/scheduler"
	"github.com/karalama/karalama/internal/services/score"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger     *slog.Logger
	Directory  *directory.Service
	Scheduler  *scheduler.Service
	Score      *score.Service
	Classifier classifier.Classifier
	Lexicon    *lexicon.Service
	Bus        bus.Bus
	Clock      clock.Clock
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	roomHandler := handler.NewRoomHandler(cfg.Directory, cfg.Bus, cfg.Clock, cfg.Classifier, cfg.Lexicon)
	gameHandler := handler.NewGameHandler(cfg.Scheduler, cfg.Score)
	eventsHandler := handler.NewEventsHandler(cfg.Bus, cfg.Logger)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))

	// Room lifecycle
	api.HandleFunc("/rooms", roomHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{code}", roomHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}/join", roomHandler.Join).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{code}/leave", roomHandler.Leave).Methods(http.MethodPost)

	// Game flow (host- or drawer-gated at the service layer)
	api.HandleFunc("/rooms/{code}/start", gameHandler.Start).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{code}/advance", gameHandler.Advance).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{code}/guess-window", gameHandler.OpenGuessWindow).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{code}/guess", gameHandler.Guess).Methods(http.MethodPost)

	// Room content
	api.HandleFunc("/rooms/{code}/messages", roomHandler.Messages).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}/drawing", roomHandler.GetDrawing).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}/drawing", roomHandler.PostDrawing).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{code}/drawing/predictions", roomHandler.Predictions).Methods(http.MethodGet)

	// Event stream
	api.HandleFunc("/rooms/{code}/events", eventsHandler.Stream).Methods(http.MethodGet)

	// Health check endpoint
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
