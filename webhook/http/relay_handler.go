package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dfryer1193/xbrush/internal/metrics"
	"github.com/dfryer1193/xbrush/notify/application"
	"github.com/dfryer1193/xbrush/notify/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/go-github/v75/github"
	"github.com/rs/zerolog/log"
)

const maxRelayBody = 1 << 20

// RelayHandler forwards chat and repository notifications to Slack.
type RelayHandler struct {
	webhookSecret []byte
	forwarder     domain.Forwarder
}

func NewRelayHandler(forwarder domain.Forwarder, webhookSecret string) *RelayHandler {
	return &RelayHandler{
		webhookSecret: []byte(webhookSecret),
		forwarder:     forwarder,
	}
}

func (h *RelayHandler) RegisterRoutes(r chi.Router) {
	r.HandleFunc("/hooks/slack", h.HandleSlack)
	r.HandleFunc("/hooks/github", h.HandleGitWebhook)
}

// HandleSlack relays a JSON body to the Slack webhook unchanged.
func (h *RelayHandler) HandleSlack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "Method not allowed"})
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRelayBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Failed to read body"})
		return
	}

	if !json.Valid(payload) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Body must be JSON"})
		return
	}

	h.forward(w, r, "slack", payload, http.StatusOK)
}

// HandleGitWebhook summarises GitHub push events into Slack messages.
func (h *RelayHandler) HandleGitWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "Method not allowed"})
		return
	}

	if len(h.webhookSecret) == 0 {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "GitHub webhook secret is not configured"})
		return
	}

	payload, err := github.ValidatePayload(r, h.webhookSecret)
	if err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	event, err := github.ParseWebHook(github.WebHookType(r), payload)
	if err != nil {
		http.Error(w, "Invalid event", http.StatusBadRequest)
		return
	}

	evt, ok := event.(*github.PushEvent)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	msg, err := application.EncodeMessage(application.SummarizePush(evt))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	h.forward(w, r, "github", msg, http.StatusNoContent)
}

func (h *RelayHandler) forward(w http.ResponseWriter, r *http.Request, source string, payload []byte, okStatus int) {
	if err := h.forwarder.Forward(r.Context(), payload); err != nil {
		log.Error().Err(err).Str("source", source).Msg("Failed to relay notification")
		metrics.RecordNotification(source, "error")

		msg := "Failed to reach Slack"
		if errors.Is(err, domain.ErrNotConfigured) {
			msg = "Slack webhook URL is not configured"
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": msg})
		return
	}

	metrics.RecordNotification(source, "ok")
	if okStatus == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, okStatus, map[string]any{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}
