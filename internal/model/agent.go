package model

import "encoding/json"

// AgentConfig describes the agent that should be joined to a call room.
type AgentConfig struct {
	AgentID      string          `json:"agentId,omitempty"`
	Name         string          `json:"name"`
	Instructions string          `json:"instructions,omitempty"`
	Voice        string          `json:"voice,omitempty"`
	Greeting     string          `json:"greeting,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}

// RouteSource records how a routing decision was made.
type RouteSource string

const (
	RouteSourceDefault RouteSource = "default"
	RouteSourcePinned  RouteSource = "pinned"
	RouteSourceLive    RouteSource = "live"
)

// RouteDecision is the outcome of resolving a dialed number to an agent.
type RouteDecision struct {
	Config    AgentConfig `json:"config"`
	Source    RouteSource `json:"source"`
	BindingID string      `json:"bindingId,omitempty"`
}
