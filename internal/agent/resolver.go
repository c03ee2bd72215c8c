package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/voicebridge/telephony-relay-go/internal/model"
)

const resolveTimeout = 5 * time.Second

// ErrAgentNotFound is returned when no agent exists for the given id.
var ErrAgentNotFound = errors.New("agent: not found")

// Resolver looks up the current configuration of a live agent by id. The
// agent registry itself is an external collaborator.
type Resolver interface {
	ResolveByAgentID(ctx context.Context, agentID string) (*model.AgentConfig, error)
}

// RESTResolver fetches agent configurations from the agent registry API.
type RESTResolver struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewRESTResolver(baseURL, apiKey string) *RESTResolver {
	return &RESTResolver{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: resolveTimeout},
	}
}

func (r *RESTResolver) ResolveByAgentID(ctx context.Context, agentID string) (*model.AgentConfig, error) {
	endpoint := r.baseURL + "/v1/agents/" + url.PathEscape(agentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("agent: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("agent: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("agent %s: %w", agentID, ErrAgentNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("agent: registry returned status %d", resp.StatusCode)
	}

	var cfg model.AgentConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		return nil, fmt.Errorf("agent: decode response: %w", err)
	}
	if cfg.AgentID == "" {
		cfg.AgentID = agentID
	}
	return &cfg, nil
}
