package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/quizzz-live/backend/internal/hub"
	"github.com/quizzz-live/backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, publicURL string, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/join/{code}/qr.png", JoinQR(h, publicURL, log))
	r.Get("/ws", ws.Handler(h, log))
	return r
}
