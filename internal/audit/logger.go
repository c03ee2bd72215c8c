package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventIntegrationCreate EventType = "integration_create"
	EventIntegrationDelete EventType = "integration_delete"
	EventNumberConnect     EventType = "number_connect"
	EventNumberDisconnect  EventType = "number_disconnect"
	EventCredentialFailure EventType = "credential_failure"
	EventSignatureFailure  EventType = "webhook_signature_failure"
	EventAuthFailure       EventType = "auth_failure"
	EventRateLimitExceed   EventType = "rate_limit_exceeded"
)

// Event is a security-relevant action. Credential material never appears
// here; integrations are correlated by fingerprint.
type Event struct {
	Type                  EventType
	IntegrationID         string
	CredentialFingerprint string
	E164                  string
	IP                    string
	UserAgent             string
	Details               map[string]interface{}
}

func Log(ctx context.Context, event Event) {
	logger := log.With().
		Str("audit", "security").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.IntegrationID != "" {
		logger = logger.With().Str("integration_id", event.IntegrationID).Logger()
	}
	if event.CredentialFingerprint != "" {
		logger = logger.With().Str("credential_fingerprint", event.CredentialFingerprint).Logger()
	}
	if event.E164 != "" {
		logger = logger.With().Str("e164", event.E164).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}
	if event.UserAgent != "" {
		logger = logger.With().Str("user_agent", event.UserAgent).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("security audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}

func LogFromRequest(r *http.Request, event Event) {
	event.IP = getClientIP(r)
	event.UserAgent = r.UserAgent()
	Log(r.Context(), event)
}

func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
