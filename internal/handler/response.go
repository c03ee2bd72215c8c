package handler

import (
	"net/http"
	"time"

	"github.com/voicebridge/telephony-relay-go/internal/httputil"
	"github.com/voicebridge/telephony-relay-go/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

// formatIntegration omits the sealed credential; only the fingerprint is
// ever shown to clients.
func formatIntegration(integration model.Integration) map[string]any {
	return map[string]any{
		"id":                    integration.ID,
		"provider":              integration.Provider,
		"name":                  integration.Name,
		"credentialFingerprint": integration.CredentialFingerprint,
		"status":                integration.Status,
		"providerResources":     integration.ProviderResources,
		"createdAt":             integration.CreatedAt.Format(time.RFC3339),
		"updatedAt":             integration.UpdatedAt.Format(time.RFC3339),
	}
}

func formatBinding(binding model.Binding) map[string]any {
	return map[string]any{
		"id":               binding.ID,
		"integrationId":    binding.IntegrationID,
		"provider":         binding.Provider,
		"providerNumberId": binding.ProviderNumberID,
		"e164":             binding.E164,
		"agentId":          binding.AgentID,
		"agentConfig":      binding.AgentConfig,
		"enabled":          binding.Enabled,
		"createdAt":        binding.CreatedAt.Format(time.RFC3339),
		"updatedAt":        binding.UpdatedAt.Format(time.RFC3339),
	}
}
