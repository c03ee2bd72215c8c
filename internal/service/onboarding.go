package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	apperrors "github.com/voicebridge/telephony-relay-go/internal/errors"
	"github.com/voicebridge/telephony-relay-go/internal/model"
	"github.com/voicebridge/telephony-relay-go/internal/platform"
	"github.com/voicebridge/telephony-relay-go/internal/provider"
	"github.com/voicebridge/telephony-relay-go/internal/repository"
	"github.com/voicebridge/telephony-relay-go/internal/util"
	"github.com/voicebridge/telephony-relay-go/internal/vault"
)

// trunkNamePrefix plus the integration id gives each integration a
// deterministic trunk name, so ensure-style provisioning can find a trunk
// it created earlier by listing.
const trunkNamePrefix = "ai-agent-trunk-"

// OnboardingService orchestrates provider credential management and number
// provisioning. Provider calls are idempotent ensures, so a failed connect
// can be retried without leaking provider resources.
type OnboardingService struct {
	integrations repository.IntegrationRepository
	bindings     repository.BindingRepository
	vault        *vault.Vault
	adapters     provider.Registry
	provisioner  platform.Provisioner
	sipHost      string
}

func NewOnboardingService(
	integrations repository.IntegrationRepository,
	bindings repository.BindingRepository,
	v *vault.Vault,
	adapters provider.Registry,
	provisioner platform.Provisioner,
	sipHost string,
) *OnboardingService {
	return &OnboardingService{
		integrations: integrations,
		bindings:     bindings,
		vault:        v,
		adapters:     adapters,
		provisioner:  provisioner,
		sipHost:      sipHost,
	}
}

type ConnectNumberParams struct {
	IntegrationID    string
	ProviderNumberID string
	RequestedE164    string
	AgentID          *string
	AgentConfig      json.RawMessage
}

type ConnectNumberResult struct {
	Binding      *model.Binding         `json:"binding"`
	InboundSetup *platform.InboundSetup `json:"inboundSetup"`
	Trunk        *model.TrunkResource   `json:"trunk"`
}

type DisconnectNumberResult struct {
	BindingID string                  `json:"bindingId"`
	E164      string                  `json:"e164"`
	Removal   *platform.RemovalResult `json:"removal"`
}

type DeleteIntegrationResult struct {
	IntegrationID   string `json:"integrationId"`
	DeletedBindings int    `json:"deletedBindings"`
	TrunkDeleted    bool   `json:"trunkDeleted"`
}

// VerifyCredentials checks the credential set against the provider's API
// without persisting anything.
func (s *OnboardingService) VerifyCredentials(ctx context.Context, p model.Provider, creds provider.Credentials) error {
	adapter, ok := s.adapters.Get(p)
	if !ok {
		return apperrors.InvalidInput("provider", fmt.Sprintf("unsupported provider %q", p))
	}
	if err := adapter.VerifyCredentials(ctx, creds); err != nil {
		return mapProviderErr(err)
	}
	return nil
}

// CreateIntegration verifies the credentials, seals them, and persists the
// integration. Re-submitting the same credentials for the same provider
// returns the existing integration instead of creating a duplicate.
func (s *OnboardingService) CreateIntegration(ctx context.Context, p model.Provider, name *string, creds provider.Credentials) (*model.Integration, error) {
	adapter, ok := s.adapters.Get(p)
	if !ok {
		return nil, apperrors.InvalidInput("provider", fmt.Sprintf("unsupported provider %q", p))
	}
	if err := adapter.VerifyCredentials(ctx, creds); err != nil {
		return nil, mapProviderErr(err)
	}

	plaintext, err := json.Marshal(creds)
	if err != nil {
		return nil, apperrors.Internal("failed to encode credentials").WithCause(err)
	}
	fingerprint := vault.Fingerprint(plaintext)

	existing, err := s.integrations.FindByFingerprint(ctx, p, fingerprint)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing != nil {
		return existing, nil
	}

	sealed, err := s.vault.Encrypt(plaintext)
	if err != nil {
		return nil, apperrors.Internal("failed to seal credentials").WithCause(err)
	}

	integration, err := s.integrations.Create(ctx, model.CreateIntegrationParams{
		Provider:              p,
		Name:                  name,
		EncryptedCredential:   sealed,
		CredentialFingerprint: fingerprint,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("integrationId", integration.ID).
		Str("provider", string(p)).
		Str("fingerprint", fingerprint[:12]).
		Msg("integration created")

	// Trunk provisioning is repeated by connectNumber, so a failure here
	// only costs a retry later.
	if _, err := s.ensureTrunk(ctx, integration, adapter, creds); err != nil {
		log.Warn().
			Str("integrationId", integration.ID).
			Err(err).
			Msg("eager trunk provisioning failed, deferred to number connect")
	}

	return integration, nil
}

// GetIntegration returns the integration or a NOT_FOUND error.
func (s *OnboardingService) GetIntegration(ctx context.Context, id string) (*model.Integration, error) {
	integration, err := s.integrations.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if integration == nil {
		return nil, apperrors.NotFound("Integration")
	}
	return integration, nil
}

// ListIntegrations pages over non-deleted integrations.
func (s *OnboardingService) ListIntegrations(ctx context.Context, limit, offset int) ([]model.Integration, error) {
	integrations, err := s.integrations.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return integrations, nil
}

// ListNumbers enumerates the phone numbers owned by the integration's
// provider account.
func (s *OnboardingService) ListNumbers(ctx context.Context, integrationID string) ([]model.ProviderNumber, error) {
	_, adapter, creds, err := s.load(ctx, integrationID)
	if err != nil {
		return nil, err
	}

	numbers, err := adapter.ListNumbers(ctx, creds)
	if err != nil {
		return nil, mapProviderErr(err)
	}
	return numbers, nil
}

// ConnectNumber provisions the full inbound path for one number:
//
//  1. assert the provider's number matches the requested E.164
//  2. ensure the platform's inbound trunk and dispatch rule for the DID
//  3. ensure a provider trunk pointed at our SIP host
//  4. attach the number to that trunk
//  5. upsert the binding
//
// The platform side is ensured before the provider side so that the moment
// a carrier starts sending calls, the platform can accept them.
func (s *OnboardingService) ConnectNumber(ctx context.Context, params ConnectNumberParams) (*ConnectNumberResult, error) {
	integration, adapter, creds, err := s.load(ctx, params.IntegrationID)
	if err != nil {
		return nil, err
	}

	number, err := adapter.GetNumber(ctx, creds, params.ProviderNumberID)
	if err != nil {
		return nil, mapProviderErr(err)
	}

	requested, err := util.NormalizeE164(params.RequestedE164)
	if err != nil {
		return nil, apperrors.InvalidInput("e164", err.Error())
	}
	actual, err := util.NormalizeE164(number.E164)
	if err != nil {
		return nil, apperrors.ProviderError(fmt.Sprintf("provider returned unparseable number %q", number.E164)).WithCause(err)
	}
	if requested != actual {
		return nil, apperrors.NumberMismatch(requested, actual)
	}

	setup, err := s.provisioner.EnsureInboundSetupForDid(ctx, requested)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "platform inbound setup failed", err)
	}

	trunk, err := s.ensureTrunk(ctx, integration, adapter, creds)
	if err != nil {
		return nil, err
	}

	if err := adapter.AttachNumber(ctx, creds, trunk.ID, number.ID); err != nil {
		return nil, mapProviderErr(err)
	}

	binding, err := s.bindings.UpsertByE164(ctx, model.UpsertBindingParams{
		IntegrationID:    integration.ID,
		Provider:         integration.Provider,
		ProviderNumberID: number.ID,
		E164:             requested,
		AgentID:          params.AgentID,
		AgentConfig:      params.AgentConfig,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("integrationId", integration.ID).
		Str("e164", requested).
		Str("trunkId", trunk.ID).
		Str("bindingId", binding.ID).
		Msg("number connected")

	return &ConnectNumberResult{
		Binding:      binding,
		InboundSetup: setup,
		Trunk:        trunk,
	}, nil
}

// DisconnectNumber tears down routing for a binding. The platform side is
// removed first; if that fails the binding stays enabled, so the number is
// never left ringing into a room nothing answers.
func (s *OnboardingService) DisconnectNumber(ctx context.Context, bindingID string) (*DisconnectNumberResult, error) {
	binding, err := s.bindings.FindByID(ctx, bindingID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if binding == nil {
		return nil, apperrors.NotFound("Binding")
	}

	integration, adapter, creds, err := s.load(ctx, binding.IntegrationID)
	if err != nil {
		return nil, err
	}

	removal, err := s.provisioner.RemoveInboundSetupForDid(ctx, binding.E164)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "platform inbound teardown failed", err)
	}

	trunkID := integration.ProviderResources[model.ResourceKeyTrunkID]
	if trunkID != "" {
		if err := adapter.DetachNumber(ctx, creds, trunkID, binding.ProviderNumberID); err != nil && !errors.Is(err, provider.ErrNotFound) {
			return nil, mapProviderErr(err)
		}
	}

	if err := s.bindings.SoftDelete(ctx, binding.ID); err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("bindingId", binding.ID).
		Str("e164", binding.E164).
		Msg("number disconnected")

	return &DisconnectNumberResult{
		BindingID: binding.ID,
		E164:      binding.E164,
		Removal:   removal,
	}, nil
}

// DeleteIntegration disconnects every binding, removes the provider trunk,
// and soft-deletes the integration. On partial failure the integration row
// survives so a retry can finish the teardown.
func (s *OnboardingService) DeleteIntegration(ctx context.Context, integrationID string) (*DeleteIntegrationResult, error) {
	integration, adapter, creds, err := s.load(ctx, integrationID)
	if err != nil {
		return nil, err
	}

	bindings, err := s.bindings.FindByIntegrationID(ctx, integration.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	result := &DeleteIntegrationResult{IntegrationID: integration.ID}
	trunkID := integration.ProviderResources[model.ResourceKeyTrunkID]

	for _, binding := range bindings {
		if _, err := s.provisioner.RemoveInboundSetupForDid(ctx, binding.E164); err != nil {
			return result, apperrors.Wrap(apperrors.ErrCodeInternal,
				fmt.Sprintf("platform teardown failed for %s", binding.E164), err)
		}
		if trunkID != "" {
			if err := adapter.DetachNumber(ctx, creds, trunkID, binding.ProviderNumberID); err != nil && !errors.Is(err, provider.ErrNotFound) {
				return result, mapProviderErr(err)
			}
		}
		if err := s.bindings.SoftDelete(ctx, binding.ID); err != nil {
			return result, apperrors.Database(err)
		}
		result.DeletedBindings++
	}

	if trunkID != "" {
		if err := adapter.DeleteTrunk(ctx, creds, trunkID); err != nil && !errors.Is(err, provider.ErrNotFound) {
			return result, mapProviderErr(err)
		}
		result.TrunkDeleted = true
	}

	if err := s.integrations.SoftDelete(ctx, integration.ID); err != nil {
		return result, apperrors.Database(err)
	}

	log.Info().
		Str("integrationId", integration.ID).
		Int("deletedBindings", result.DeletedBindings).
		Msg("integration deleted")

	return result, nil
}

// SetIntegrationStatus flips an integration between active and disabled
// without touching its bindings or provider resources.
func (s *OnboardingService) SetIntegrationStatus(ctx context.Context, id string, status model.IntegrationStatus) (*model.Integration, error) {
	if !status.Valid() {
		return nil, apperrors.InvalidInput("status", "must be one of active, disabled")
	}
	integration, err := s.integrations.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if integration == nil {
		return nil, apperrors.NotFound("Integration")
	}

	log.Info().
		Str("integrationId", integration.ID).
		Str("status", string(status)).
		Msg("integration status updated")
	return integration, nil
}

// DisableBinding takes a number out of routing while leaving the provider
// trunk attachment in place, so it can be re-enabled by reconnecting.
func (s *OnboardingService) DisableBinding(ctx context.Context, id string) (*model.Binding, error) {
	binding, err := s.bindings.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if binding == nil {
		return nil, apperrors.NotFound("Binding")
	}

	if err := s.bindings.Disable(ctx, binding.ID); err != nil {
		return nil, apperrors.Database(err)
	}
	binding.Enabled = false

	log.Info().
		Str("bindingId", binding.ID).
		Str("e164", binding.E164).
		Msg("binding disabled")
	return binding, nil
}

// ListBindings pages over non-deleted bindings.
func (s *OnboardingService) ListBindings(ctx context.Context, limit, offset int) ([]model.Binding, error) {
	bindings, err := s.bindings.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return bindings, nil
}

// GetBinding returns the binding or a NOT_FOUND error.
func (s *OnboardingService) GetBinding(ctx context.Context, id string) (*model.Binding, error) {
	binding, err := s.bindings.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if binding == nil {
		return nil, apperrors.NotFound("Binding")
	}
	return binding, nil
}

// GetBindingByNumber looks up the enabled binding for a dialed number.
func (s *OnboardingService) GetBindingByNumber(ctx context.Context, rawNumber string) (*model.Binding, error) {
	e164, err := util.NormalizeE164(rawNumber)
	if err != nil {
		return nil, apperrors.InvalidInput("e164", err.Error())
	}
	binding, err := s.bindings.FindEnabledByE164(ctx, e164)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if binding == nil {
		return nil, apperrors.NotFound("Binding")
	}
	return binding, nil
}

// ensureTrunk finds or creates the integration's provider trunk and its
// origination target, caching the ids on the integration row. Lookup order:
// cached resource map, then list-by-name, then create.
func (s *OnboardingService) ensureTrunk(ctx context.Context, integration *model.Integration, adapter provider.Adapter, creds provider.Credentials) (*model.TrunkResource, error) {
	name := trunkNamePrefix + integration.ID

	var trunk *model.TrunkResource
	if cached := integration.ProviderResources[model.ResourceKeyTrunkID]; cached != "" {
		trunk = &model.TrunkResource{ID: cached, Name: name}
	} else {
		trunks, err := adapter.ListTrunks(ctx, creds)
		if err != nil {
			return nil, mapProviderErr(err)
		}
		for i := range trunks {
			if trunks[i].Name == name {
				trunk = &trunks[i]
				break
			}
		}
		if trunk == nil {
			trunk, err = adapter.CreateTrunk(ctx, creds, name)
			if err != nil {
				return nil, mapProviderErr(err)
			}
		}
	}

	originationID, err := adapter.EnsureOriginationTarget(ctx, creds, trunk.ID, s.sipHost)
	if err != nil {
		return nil, mapProviderErr(err)
	}
	trunk.OriginationID = originationID

	resources := model.ResourceMap{}
	for k, v := range integration.ProviderResources {
		resources[k] = v
	}
	resources[model.ResourceKeyTrunkID] = trunk.ID
	resources[model.ResourceKeyOriginationID] = originationID

	updated, err := s.integrations.UpdateResources(ctx, integration.ID, resources)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if updated != nil {
		integration.ProviderResources = updated.ProviderResources
	}

	return trunk, nil
}

// load fetches the integration and decrypts its credentials.
func (s *OnboardingService) load(ctx context.Context, integrationID string) (*model.Integration, provider.Adapter, provider.Credentials, error) {
	var zero provider.Credentials

	integration, err := s.integrations.FindByID(ctx, integrationID)
	if err != nil {
		return nil, nil, zero, apperrors.Database(err)
	}
	if integration == nil {
		return nil, nil, zero, apperrors.NotFound("Integration")
	}

	adapter, ok := s.adapters.Get(integration.Provider)
	if !ok {
		return nil, nil, zero, apperrors.Internal(fmt.Sprintf("no adapter registered for provider %q", integration.Provider))
	}

	plaintext, err := s.vault.Decrypt(integration.EncryptedCredential)
	if err != nil {
		log.Error().
			Str("integrationId", integration.ID).
			Err(err).
			Msg("credential decryption failed")
		return nil, nil, zero, apperrors.CredentialsCorrupted().WithCause(err)
	}

	var creds provider.Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, nil, zero, apperrors.CredentialsCorrupted().WithCause(err)
	}

	return integration, adapter, creds, nil
}

// mapProviderErr converts adapter sentinel errors into client-facing codes.
func mapProviderErr(err error) error {
	switch {
	case errors.Is(err, provider.ErrAuthInvalid):
		return apperrors.CredentialsInvalid().WithCause(err)
	case errors.Is(err, provider.ErrRateLimited):
		return apperrors.ProviderRateLimited().WithCause(err)
	case errors.Is(err, provider.ErrNotFound):
		return apperrors.NotFound("Provider resource").WithCause(err)
	case errors.Is(err, provider.ErrValidation):
		return apperrors.New(apperrors.ErrCodeValidation, "Provider rejected the request").WithCause(err)
	case errors.Is(err, provider.ErrUnreachable):
		return apperrors.ProviderUnreachable().WithCause(err)
	case errors.Is(err, provider.ErrEnumerationExceeded):
		return apperrors.EnumerationExceeded("provider resources").WithCause(err)
	default:
		return apperrors.ProviderError("Provider request failed").WithCause(err)
	}
}
