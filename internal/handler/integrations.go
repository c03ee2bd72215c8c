package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/voicebridge/telephony-relay-go/internal/audit"
	apperrors "github.com/voicebridge/telephony-relay-go/internal/errors"
	"github.com/voicebridge/telephony-relay-go/internal/model"
	"github.com/voicebridge/telephony-relay-go/internal/provider"
	"github.com/voicebridge/telephony-relay-go/internal/service"
)

// IntegrationHandler exposes the management API for provider onboarding
// and number routing.
type IntegrationHandler struct {
	onboarding *service.OnboardingService
}

func NewIntegrationHandler(onboarding *service.OnboardingService) *IntegrationHandler {
	return &IntegrationHandler{onboarding: onboarding}
}

func (h *IntegrationHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/integrations", h.CreateIntegration)
	r.Get("/integrations", h.ListIntegrations)
	r.Get("/integrations/{id}", h.GetIntegration)
	r.Delete("/integrations/{id}", h.DeleteIntegration)
	r.Post("/integrations/verify-credentials", h.VerifyCredentials)
	r.Post("/integrations/{id}/status", h.UpdateIntegrationStatus)
	r.Get("/integrations/{id}/numbers", h.ListNumbers)
	r.Post("/integrations/{id}/numbers/connect", h.ConnectNumber)

	r.Get("/bindings", h.ListBindings)
	r.Get("/bindings/{id}", h.GetBinding)
	r.Get("/bindings/by-number/{e164}", h.GetBindingByNumber)
	r.Post("/bindings/{id}/disable", h.DisableBinding)
	r.Post("/bindings/{id}/disconnect", h.DisconnectNumber)

	return r
}

type credentialRequest struct {
	Provider  model.Provider `json:"provider"`
	Name      *string        `json:"name,omitempty"`
	AccountID string         `json:"accountId,omitempty"`
	APIKey    string         `json:"apiKey,omitempty"`
	APISecret string         `json:"apiSecret,omitempty"`
}

func (req *credentialRequest) credentials() provider.Credentials {
	return provider.Credentials{
		AccountID: req.AccountID,
		APIKey:    req.APIKey,
		APISecret: req.APISecret,
	}
}

// pathID returns the {id} URL parameter, rejecting anything that is not a
// UUID before it reaches the database.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, apperrors.InvalidInput("id", "must be a UUID"))
		return "", false
	}
	return id, true
}

// POST /v1/integrations/verify
func (h *IntegrationHandler) VerifyCredentials(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}
	if !req.Provider.Valid() {
		writeError(w, apperrors.InvalidInput("provider", "must be one of twilio, telnyx, plivo"))
		return
	}

	if err := h.onboarding.VerifyCredentials(r.Context(), req.Provider, req.credentials()); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// POST /v1/integrations
func (h *IntegrationHandler) CreateIntegration(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}
	if !req.Provider.Valid() {
		writeError(w, apperrors.InvalidInput("provider", "must be one of twilio, telnyx, plivo"))
		return
	}

	integration, err := h.onboarding.CreateIntegration(r.Context(), req.Provider, req.Name, req.credentials())
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:                  audit.EventIntegrationCreate,
		IntegrationID:         integration.ID,
		CredentialFingerprint: integration.CredentialFingerprint,
		Details:               map[string]interface{}{"provider": string(integration.Provider)},
	})
	writeJSON(w, http.StatusCreated, formatIntegration(*integration))
}

// GET /v1/integrations
func (h *IntegrationHandler) ListIntegrations(w http.ResponseWriter, r *http.Request) {
	pagination := ParsePagination(r)

	integrations, err := h.onboarding.ListIntegrations(r.Context(), pagination.Limit, pagination.Offset)
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(integrations))
	for _, integration := range integrations {
		items = append(items, formatIntegration(integration))
	}
	writeJSON(w, http.StatusOK, map[string]any{"integrations": items})
}

// GET /v1/integrations/{id}
func (h *IntegrationHandler) GetIntegration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	integration, err := h.onboarding.GetIntegration(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, formatIntegration(*integration))
}

// DELETE /v1/integrations/{id}
func (h *IntegrationHandler) DeleteIntegration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := h.onboarding.DeleteIntegration(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:          audit.EventIntegrationDelete,
		IntegrationID: result.IntegrationID,
		Details:       map[string]interface{}{"deletedBindings": result.DeletedBindings},
	})
	writeJSON(w, http.StatusOK, result)
}

// POST /v1/integrations/{id}/status
func (h *IntegrationHandler) UpdateIntegrationStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Status model.IntegrationStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	integration, err := h.onboarding.SetIntegrationStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, formatIntegration(*integration))
}

// GET /v1/integrations/{id}/numbers
func (h *IntegrationHandler) ListNumbers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	numbers, err := h.onboarding.ListNumbers(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"numbers": numbers})
}

// POST /v1/integrations/{id}/numbers/connect
func (h *IntegrationHandler) ConnectNumber(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		ProviderNumberID string          `json:"providerNumberId"`
		E164             string          `json:"e164"`
		AgentID          *string         `json:"agentId,omitempty"`
		AgentConfig      json.RawMessage `json:"agentConfig,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}
	if req.ProviderNumberID == "" {
		writeError(w, apperrors.MissingRequired("providerNumberId"))
		return
	}
	if req.E164 == "" {
		writeError(w, apperrors.MissingRequired("e164"))
		return
	}

	result, err := h.onboarding.ConnectNumber(r.Context(), service.ConnectNumberParams{
		IntegrationID:    id,
		ProviderNumberID: req.ProviderNumberID,
		RequestedE164:    req.E164,
		AgentID:          req.AgentID,
		AgentConfig:      req.AgentConfig,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:          audit.EventNumberConnect,
		IntegrationID: id,
		E164:          result.Binding.E164,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"binding":      formatBinding(*result.Binding),
		"inboundSetup": result.InboundSetup,
		"trunk":        result.Trunk,
	})
}

// GET /v1/bindings
func (h *IntegrationHandler) ListBindings(w http.ResponseWriter, r *http.Request) {
	pagination := ParsePagination(r)

	bindings, err := h.onboarding.ListBindings(r.Context(), pagination.Limit, pagination.Offset)
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(bindings))
	for _, binding := range bindings {
		items = append(items, formatBinding(binding))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bindings": items})
}

// GET /v1/bindings/{id}
func (h *IntegrationHandler) GetBinding(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	binding, err := h.onboarding.GetBinding(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, formatBinding(*binding))
}

// GET /v1/bindings/by-number/{e164}
func (h *IntegrationHandler) GetBindingByNumber(w http.ResponseWriter, r *http.Request) {
	binding, err := h.onboarding.GetBindingByNumber(r.Context(), chi.URLParam(r, "e164"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, formatBinding(*binding))
}

// POST /v1/bindings/{id}/disable
func (h *IntegrationHandler) DisableBinding(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	binding, err := h.onboarding.DisableBinding(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, formatBinding(*binding))
}

// POST /v1/bindings/{id}/disconnect
func (h *IntegrationHandler) DisconnectNumber(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := h.onboarding.DisconnectNumber(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type: audit.EventNumberDisconnect,
		E164: result.E164,
	})
	writeJSON(w, http.StatusOK, result)
}
