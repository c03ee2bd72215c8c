package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebridge/telephony-relay-go/internal/util"
)

func TestSignatureMiddleware(t *testing.T) {
	const secret = "test-webhook-secret"
	body := `{"event":"room_started","room":{"name":"call-1"}}`

	var captured []byte
	handler := NewSignatureMiddleware(secret).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRawBody(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("accepts valid signature and stashes raw body", func(t *testing.T) {
		captured = nil
		req := httptest.NewRequest(http.MethodPost, "/platform/webhook", strings.NewReader(body))
		req.Header.Set("X-Webhook-Signature", util.HmacSHA256(secret, body))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, body, string(captured))
	})

	t.Run("rejects missing signature", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/platform/webhook", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects invalid signature", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/platform/webhook", strings.NewReader(body))
		req.Header.Set("X-Webhook-Signature", "deadbeef")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects signature computed over different body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/platform/webhook", strings.NewReader(body))
		req.Header.Set("X-Webhook-Signature", util.HmacSHA256(secret, body+" "))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bypasses verification when secret empty", func(t *testing.T) {
		captured = nil
		open := NewSignatureMiddleware("").Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = GetRawBody(r.Context())
			w.WriteHeader(http.StatusOK)
		}))
		req := httptest.NewRequest(http.MethodPost, "/platform/webhook", strings.NewReader(body))
		rec := httptest.NewRecorder()

		open.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, body, string(captured))
	})
}
