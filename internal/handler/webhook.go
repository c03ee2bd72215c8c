package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/voicebridge/telephony-relay-go/internal/errors"
	"github.com/voicebridge/telephony-relay-go/internal/middleware"
	"github.com/voicebridge/telephony-relay-go/internal/service"
)

const processTimeout = 30 * time.Second

// WebhookHandler receives conferencing platform webhooks. The signature
// middleware has already verified the payload by the time Receive runs.
type WebhookHandler struct {
	webhookService *service.WebhookService
	enabled        bool
}

func NewWebhookHandler(webhookService *service.WebhookService, enabled bool) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		enabled:        enabled,
	}
}

// POST /platform/webhook
// Acknowledges immediately and processes the event in the background, so
// slow downstreams never cause webhook retries.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		writeError(w, apperrors.TelephonyDisabled())
		return
	}

	raw := middleware.GetRawBody(r.Context())
	if raw == nil {
		writeError(w, apperrors.RawBodyRequired())
		return
	}

	event, err := h.webhookService.NormalizeEvent(raw)
	if err != nil {
		log.Warn().Err(err).Msg("webhook payload could not be parsed")
		writeError(w, apperrors.ValidationError("Invalid webhook payload"))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
		defer cancel()
		if err := h.webhookService.Process(ctx, event); err != nil {
			log.Error().
				Str("eventId", event.ID).
				Str("roomName", event.RoomName).
				Err(err).
				Msg("webhook processing failed")
		}
	}()

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
