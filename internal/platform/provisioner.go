package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const provisionTimeout = 10 * time.Second

// InboundSetup describes the conferencing-side resources that route a DID
// into a room: an inbound trunk and a dispatch rule.
type InboundSetup struct {
	NormalizedDid  string `json:"normalizedDid"`
	InboundTrunkID string `json:"inboundTrunkId"`
	DispatchRuleID string `json:"dispatchRuleId"`
}

// RemovalResult reports what the platform tore down for a DID.
type RemovalResult struct {
	NormalizedDid       string `json:"normalizedDid"`
	InboundTrunkID      string `json:"inboundTrunkId,omitempty"`
	TrunkDeleted        bool   `json:"trunkDeleted"`
	DispatchRuleUpdated bool   `json:"dispatchRuleUpdated"`
	DispatchRuleDeleted bool   `json:"dispatchRuleDeleted"`
}

// Provisioner is the conferencing-platform provisioning port. Ensure and
// Remove are both idempotent on the platform side.
type Provisioner interface {
	EnsureInboundSetupForDid(ctx context.Context, e164 string) (*InboundSetup, error)
	RemoveInboundSetupForDid(ctx context.Context, e164 string) (*RemovalResult, error)
}

// RESTProvisioner talks to the platform's provisioning API over JSON/HTTP.
type RESTProvisioner struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewRESTProvisioner(baseURL, apiKey string) *RESTProvisioner {
	return &RESTProvisioner{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: provisionTimeout},
	}
}

func (p *RESTProvisioner) EnsureInboundSetupForDid(ctx context.Context, e164 string) (*InboundSetup, error) {
	var setup InboundSetup
	if err := p.post(ctx, "/v1/inbound/ensure", map[string]string{"did": e164}, &setup); err != nil {
		return nil, err
	}
	log.Info().
		Str("did", setup.NormalizedDid).
		Str("inboundTrunkId", setup.InboundTrunkID).
		Str("dispatchRuleId", setup.DispatchRuleID).
		Msg("platform inbound setup ensured")
	return &setup, nil
}

func (p *RESTProvisioner) RemoveInboundSetupForDid(ctx context.Context, e164 string) (*RemovalResult, error) {
	var result RemovalResult
	if err := p.post(ctx, "/v1/inbound/remove", map[string]string{"did": e164}, &result); err != nil {
		return nil, err
	}
	log.Info().
		Str("did", result.NormalizedDid).
		Bool("trunkDeleted", result.TrunkDeleted).
		Bool("dispatchRuleDeleted", result.DispatchRuleDeleted).
		Msg("platform inbound setup removed")
	return &result, nil
}

func (p *RESTProvisioner) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("platform: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("platform: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("platform: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("platform: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("platform: %s returned status %d", path, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("platform: decode response: %w", err)
		}
	}
	return nil
}
