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

	"github.com/voicebridge/telephony-relay-go/internal/model"
)

const dispatchTimeout = 10 * time.Second

// AgentDispatcher joins an agent into a call's room. Callers are
// responsible for at-most-once semantics; Dispatch itself just performs
// the side effect.
type AgentDispatcher interface {
	Dispatch(ctx context.Context, roomName string, decision model.RouteDecision) error
}

// RESTDispatcher asks the agent service to join a room over JSON/HTTP.
type RESTDispatcher struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewRESTDispatcher(baseURL, apiKey string) *RESTDispatcher {
	return &RESTDispatcher{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: dispatchTimeout},
	}
}

func (d *RESTDispatcher) Dispatch(ctx context.Context, roomName string, decision model.RouteDecision) error {
	payload, err := json.Marshal(map[string]any{
		"roomName":    roomName,
		"agentConfig": decision.Config,
		"source":      decision.Source,
	})
	if err != nil {
		return fmt.Errorf("dispatch: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/v1/dispatch", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("dispatch: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch: request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("dispatch: agent service returned status %d", resp.StatusCode)
	}

	log.Info().
		Str("roomName", roomName).
		Str("source", string(decision.Source)).
		Dur("elapsed", time.Since(start)).
		Msg("agent dispatched to room")
	return nil
}
