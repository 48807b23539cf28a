package status_handler

import (
	"encoding/json"
	"net/http"
	"time"

	app_error "github.com/hakanakfirat27/zeugma-realtime/internal/errors"
	"github.com/hakanakfirat27/zeugma-realtime/internal/handlers"
	"github.com/hakanakfirat27/zeugma-realtime/internal/middleware"
	"github.com/hakanakfirat27/zeugma-realtime/internal/session"
)

// StatusHandler exposes the headless agent's state over a local HTTP
// surface: liveness, engine stats and the badge breakdown.
type StatusHandler struct {
	Engine *session.Engine
}

func NewStatusHandler(engine *session.Engine) *StatusHandler {
	return &StatusHandler{Engine: engine}
}

func (h *StatusHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   "zeugma-realtime",
	})
}

func (h *StatusHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	stats := h.Engine.Stats()
	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handlers.CreateResponse("get sync engine stats", stats, reqID))
	return nil
}

func (h *StatusHandler) HandleGetBadge(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}

	body := map[string]any{
		"total":   h.Engine.Badge.Total(),
		"sources": h.Engine.Badge.Snapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handlers.CreateResponse("get unread badge", body, reqID))
	return nil
}

func (h *StatusHandler) HandleGetRooms(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handlers.CreateResponse("get room list", h.Engine.Rooms(), reqID))
	return nil
}
