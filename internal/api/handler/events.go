package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/karalama/karalama/internal/bus"
	"github.com/karalama/karalama/internal/model"
)

const (
	// pingPeriod is the keepalive comment cadence
	pingPeriod = 15 * time.Second

	// sendBufferSize buffers bus events per connected stream; a slow
	// consumer drops events rather than blocking the bus
	sendBufferSize = 256
)

// EventsHandler streams a room's bus topics to browsers over SSE. Each
// connection holds its own channel manager, torn down on disconnect.
type EventsHandler struct {
	bus    bus.Bus
	logger *slog.Logger
}

// NewEventsHandler creates the SSE handler
func NewEventsHandler(b bus.Bus, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		bus:    b,
		logger: logger.With(slog.String("component", "sse")),
	}
}

// Stream handles GET /api/v1/rooms/{code}/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	send := make(chan []byte, sendBufferSize)
	forward := func(ev model.Event) {
		data, err := model.EncodeEvent(ev)
		if err != nil {
			return
		}
		select {
		case send <- formatSSE(string(ev.Kind), data):
		default:
			h.logger.Warn("stream buffer full, dropping event",
				slog.String("room", string(code)),
				slog.String("kind", string(ev.Kind)))
		}
	}

	manager := bus.NewChannelManager(h.bus)
	defer manager.Close()
	for _, topic := range bus.RoomTopics(code) {
		if err := manager.Subscribe(r.Context(), topic, forward); err != nil {
			h.logger.Error("subscribing stream failed",
				slog.String("topic", topic),
				slog.String("error", err.Error()))
			http.Error(w, "Subscription failed", http.StatusInternalServerError)
			return
		}
	}

	_, _ = w.Write([]byte("event: connected\ndata: {\"status\":\"connected\"}\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-send:
			if _, err := w.Write(message); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func formatSSE(event string, data []byte) []byte {
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event, data))
}
