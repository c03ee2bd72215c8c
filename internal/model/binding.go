package model

import (
	"encoding/json"
	"time"
)

// Binding maps one connected phone number to the agent that answers it.
// At most one enabled, non-deleted binding exists per E.164 number; the
// store enforces this with a partial unique index.
type Binding struct {
	ID               string          `db:"id"`
	IntegrationID    string          `db:"integration_id"`
	Provider         Provider        `db:"provider"`
	ProviderNumberID string          `db:"provider_number_id"`
	E164             string          `db:"e164"`
	AgentID          *string         `db:"agent_id"`
	AgentConfig      json.RawMessage `db:"agent_config"`
	Enabled          bool            `db:"enabled"`
	DeletedAt        *time.Time      `db:"deleted_at"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// Routable reports whether the binding carries enough to pick an agent.
func (b *Binding) Routable() bool {
	return (b.AgentID != nil && *b.AgentID != "") || len(b.AgentConfig) > 0
}

type UpsertBindingParams struct {
	IntegrationID    string
	Provider         Provider
	ProviderNumberID string
	E164             string
	AgentID          *string
	AgentConfig      json.RawMessage
}
