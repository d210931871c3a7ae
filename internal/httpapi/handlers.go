package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/quizzz-live/backend/internal/hub"
)

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// JoinQR renders a QR code of the participant join URL for a live quiz,
// for the host to put on a projector. Unknown or finished codes 404.
func JoinQR(h *hub.Hub, publicURL string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		joinCode := chi.URLParam(r, "code")

		reply := make(chan hub.LookupResult, 1)
		h.Inbox() <- hub.LookupCode{Code: joinCode, Reply: reply}
		if res := <-reply; res.Err != nil {
			http.Error(w, "quiz not found", http.StatusNotFound)
			return
		}

		png, err := qrcode.Encode(publicURL+"/join/"+joinCode, qrcode.Medium, 256)
		if err != nil {
			log.Error("qr encode failed", zap.String("code", joinCode), zap.Error(err))
			http.Error(w, "failed to generate qr code", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(png)
	}
}
