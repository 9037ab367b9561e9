package server

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wappahq/wappa/internal/runtime"
)

// maxBodyBytes bounds inbound webhook bodies. Cloud API payloads are
// small; anything larger is not a legitimate delivery.
const maxBodyBytes = 1 << 20

// WebhookHandler serves the per-tenant webhook verification and receive
// endpoints.
type WebhookHandler struct {
	app    *runtime.App
	logger *slog.Logger
}

// NewWebhookHandler creates the handler over a runtime App.
func NewWebhookHandler(app *runtime.App, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{app: app, logger: logger}
}

// Mount registers the webhook routes on r.
func (h *WebhookHandler) Mount(r chi.Router) {
	r.Get("/webhook/{tenant}", h.HandleVerify)
	r.Post("/webhook/{tenant}", h.HandleReceive)
}

// HandleVerify implements Meta's subscription handshake: echo
// hub.challenge when hub.verify_token matches the tenant's token.
func (h *WebhookHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")
	t, ok := h.app.Registry().Get(tenantID)
	if !ok {
		http.Error(w, "unknown tenant", http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || q.Get("hub.verify_token") != t.VerifyToken {
		http.Error(w, "verification failed", http.StatusForbidden)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(q.Get("hub.challenge")))
}

// HandleReceive authenticates and dispatches one webhook delivery. The
// response status comes from the dispatch outcome; see Result.HTTPStatus.
func (h *WebhookHandler) HandleReceive(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")
	AddLogField(r.Context(), "tenant_id", tenantID)

	t, ok := h.app.Registry().Get(tenantID)
	if !ok {
		http.Error(w, "unknown tenant", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if t.AppSecret != "" {
		if err := VerifySignature(t.AppSecret, body, r.Header.Get("X-Hub-Signature-256")); err != nil {
			h.logger.Warn("signature rejected",
				slog.String("tenant_id", tenantID),
				slog.String("error", err.Error()),
			)
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	res := h.app.HandleInbound(r.Context(), tenantID, body)
	AddLogField(r.Context(), "outcome", string(res.Outcome))
	AddError(r.Context(), res.Err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.HTTPStatus())
	w.Write([]byte(`{"outcome":"` + string(res.Outcome) + `"}`))
}
