package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hakanakfirat27/zeugma-realtime/internal/handlers"
	status_handler "github.com/hakanakfirat27/zeugma-realtime/internal/handlers/status-handler"
	"github.com/hakanakfirat27/zeugma-realtime/internal/middleware"
	"github.com/hakanakfirat27/zeugma-realtime/internal/session"
)

// NewRouter builds the local status API of the sync agent.
func NewRouter(engine *session.Engine) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.WithRequestId)

	h := status_handler.NewStatusHandler(engine)

	r.Get("/healthz", h.HandleHealth)
	r.Route("/status", func(r chi.Router) {
		r.Get("/", handlers.WrapHandler(h.HandleGetStats))
		r.Get("/badge", handlers.WrapHandler(h.HandleGetBadge))
		r.Get("/rooms", handlers.WrapHandler(h.HandleGetRooms))
	})

	return r
}
