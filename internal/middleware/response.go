package middleware

import (
	"net/http"

	"github.com/voicebridge/telephony-relay-go/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}
