package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/voicebridge/telephony-relay-go/internal/audit"
	"github.com/voicebridge/telephony-relay-go/internal/util"
)

type contextKey string

const RawBodyContextKey contextKey = "rawBody"

// GetRawBody returns the verified raw request body stored by the
// signature middleware, or nil when verification did not run.
func GetRawBody(ctx context.Context) []byte {
	if body, ok := ctx.Value(RawBodyContextKey).([]byte); ok {
		return body
	}
	return nil
}

// SignatureMiddleware verifies webhook payloads with HMAC-SHA256 over the
// exact raw bytes received. The verified body is stashed on the context so
// handlers never re-read (and possibly re-serialize) it.
type SignatureMiddleware struct {
	secret string
	header string
}

func NewSignatureMiddleware(secret string) *SignatureMiddleware {
	return &SignatureMiddleware{secret: secret, header: "X-Webhook-Signature"}
}

func (m *SignatureMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error().Err(err).Msg("signature middleware: failed to read body")
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "Failed to read request body",
			})
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		if m.secret == "" {
			log.Warn().Msg("webhook signature verification bypassed: WEBHOOK_SECRET is not configured")
			ctx := context.WithValue(r.Context(), RawBodyContextKey, body)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		signature := r.Header.Get(m.header)
		if signature == "" {
			log.Warn().Msg("signature middleware: missing signature header")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing signature",
			})
			return
		}

		computed := util.HmacSHA256(m.secret, string(body))
		if !util.ConstantTimeEqual(computed, signature) {
			log.Warn().
				Str("remoteAddr", r.RemoteAddr).
				Msg("signature middleware: invalid signature")
			audit.LogFromRequest(r, audit.Event{Type: audit.EventSignatureFailure})
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid signature",
			})
			return
		}

		ctx := context.WithValue(r.Context(), RawBodyContextKey, body)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
