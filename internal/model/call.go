package model

import "time"

type CallStatus string

const (
	CallStatusCreated         CallStatus = "created"
	CallStatusAgentDispatched CallStatus = "agent_dispatched"
	CallStatusEnded           CallStatus = "ended"
	CallStatusFailed          CallStatus = "failed"
)

type CallDirection string

const (
	CallDirectionInbound  CallDirection = "inbound"
	CallDirectionOutbound CallDirection = "outbound"
)

// Call is the ephemeral record of an in-flight or completed call, keyed by
// room name with a secondary index by call id. Held in redis with a TTL.
type Call struct {
	RoomName        string            `json:"roomName"`
	CallID          string            `json:"callId,omitempty"`
	Direction       CallDirection     `json:"direction"`
	FromNumber      string            `json:"fromNumber,omitempty"`
	ToNumber        string            `json:"toNumber,omitempty"`
	Status          CallStatus        `json:"status"`
	AgentDispatched bool              `json:"agentDispatched"`
	SIPAttributes   map[string]string `json:"sipAttributes,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// CallEventKind is the provider-agnostic classification of a webhook event.
type CallEventKind string

const (
	CallEventCallStarted       CallEventKind = "call_started"
	CallEventParticipantJoined CallEventKind = "participant_joined"
	CallEventCallEnded         CallEventKind = "call_ended"
	CallEventUnknown           CallEventKind = "unknown"
)

// StartsCall reports whether the event should trigger agent dispatch.
func (k CallEventKind) StartsCall() bool {
	return k == CallEventCallStarted || k == CallEventParticipantJoined
}

// CallEvent is a normalized call-lifecycle event extracted from a verified
// webhook payload.
type CallEvent struct {
	ID            string            `json:"id"`
	Kind          CallEventKind     `json:"kind"`
	RoomName      string            `json:"roomName"`
	CallID        string            `json:"callId,omitempty"`
	FromNumber    string            `json:"fromNumber,omitempty"`
	ToNumber      string            `json:"toNumber,omitempty"`
	SIPAttributes map[string]string `json:"sipAttributes,omitempty"`
	OccurredAt    time.Time         `json:"occurredAt"`
}
