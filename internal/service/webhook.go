package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voicebridge/telephony-relay-go/internal/callstate"
	"github.com/voicebridge/telephony-relay-go/internal/model"
	"github.com/voicebridge/telephony-relay-go/internal/platform"
	"github.com/voicebridge/telephony-relay-go/internal/util"
)

// SIP participant attributes carried on conferencing webhook payloads.
const (
	sipAttrCallID     = "sip.callID"
	sipAttrFromNumber = "sip.phoneNumber"
	sipAttrToNumber   = "sip.trunkPhoneNumber"
)

// WebhookService turns verified webhook payloads into call state changes
// and at-most-once agent dispatches. Handlers acknowledge the webhook
// before Process runs; everything here is best effort and fully logged.
type WebhookService struct {
	calls      *callstate.Store
	routing    *RoutingService
	dispatcher platform.AgentDispatcher
}

func NewWebhookService(calls *callstate.Store, routing *RoutingService, dispatcher platform.AgentDispatcher) *WebhookService {
	return &WebhookService{
		calls:      calls,
		routing:    routing,
		dispatcher: dispatcher,
	}
}

// webhookPayload mirrors the conferencing platform's webhook envelope.
type webhookPayload struct {
	Event string `json:"event"`
	ID    string `json:"id"`
	Room  struct {
		Name string `json:"name"`
	} `json:"room"`
	Participant struct {
		Identity   string            `json:"identity"`
		Attributes map[string]string `json:"attributes"`
	} `json:"participant"`
	CreatedAt int64 `json:"createdAt"`
}

// NormalizeEvent parses a raw webhook body into a provider-agnostic call
// event. A payload without an id gets a deterministic one derived from the
// body, so retries of the same delivery still dedupe.
func (s *WebhookService) NormalizeEvent(raw []byte) (*model.CallEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}

	event := &model.CallEvent{
		ID:            payload.ID,
		RoomName:      payload.Room.Name,
		SIPAttributes: payload.Participant.Attributes,
		OccurredAt:    time.Unix(payload.CreatedAt, 0).UTC(),
	}
	if event.ID == "" {
		event.ID = util.SHA256Hex(raw)
	}
	if payload.CreatedAt == 0 {
		event.OccurredAt = time.Now().UTC()
	}

	switch payload.Event {
	case "room_started":
		event.Kind = model.CallEventCallStarted
	case "participant_joined":
		event.Kind = model.CallEventParticipantJoined
	case "room_finished", "participant_left":
		event.Kind = model.CallEventCallEnded
	default:
		event.Kind = model.CallEventUnknown
	}

	attrs := payload.Participant.Attributes
	if attrs != nil {
		event.CallID = attrs[sipAttrCallID]
		event.FromNumber = attrs[sipAttrFromNumber]
		event.ToNumber = attrs[sipAttrToNumber]
	}

	// Only SIP participants carry call attributes; a bare participant
	// event is not a call lifecycle change.
	if event.Kind == model.CallEventParticipantJoined && event.CallID == "" {
		event.Kind = model.CallEventUnknown
	}

	return event, nil
}

// Process applies one normalized event: dedupe, record call state, and
// dispatch the agent exactly once per room.
func (s *WebhookService) Process(ctx context.Context, event *model.CallEvent) error {
	first, err := s.calls.RecordEventSeen(ctx, event.ID)
	if err != nil {
		return err
	}
	if !first {
		log.Debug().
			Str("eventId", event.ID).
			Msg("duplicate webhook event ignored")
		return nil
	}

	if event.RoomName == "" {
		log.Debug().
			Str("eventId", event.ID).
			Str("kind", string(event.Kind)).
			Msg("webhook event without room, ignored")
		return nil
	}

	switch {
	case event.Kind.StartsCall():
		return s.handleCallStart(ctx, event)
	case event.Kind == model.CallEventCallEnded:
		return s.handleCallEnd(ctx, event)
	default:
		log.Debug().
			Str("eventId", event.ID).
			Str("roomName", event.RoomName).
			Msg("webhook event kind not actionable")
		return nil
	}
}

func (s *WebhookService) handleCallStart(ctx context.Context, event *model.CallEvent) error {
	now := time.Now().UTC()

	call, err := s.calls.GetCall(ctx, event.RoomName)
	if err != nil {
		return err
	}
	if call == nil {
		call = &model.Call{
			RoomName:  event.RoomName,
			Direction: model.CallDirectionInbound,
			Status:    model.CallStatusCreated,
			CreatedAt: now,
		}
	}
	if event.CallID != "" {
		call.CallID = event.CallID
	}
	if event.FromNumber != "" {
		call.FromNumber = event.FromNumber
	}
	if event.ToNumber != "" {
		call.ToNumber = event.ToNumber
	}
	if event.SIPAttributes != nil {
		call.SIPAttributes = event.SIPAttributes
	}
	call.UpdatedAt = now

	if err := s.calls.SaveCall(ctx, call); err != nil {
		return err
	}

	first, err := s.calls.MarkAgentDispatched(ctx, event.RoomName)
	if err != nil {
		return err
	}
	if !first {
		log.Debug().
			Str("roomName", event.RoomName).
			Msg("agent already dispatched for room")
		return nil
	}

	decision := s.routing.Resolve(ctx, RouteQuery{
		RoomName: event.RoomName,
		From:     event.FromNumber,
		To:       event.ToNumber,
	})

	if err := s.dispatcher.Dispatch(ctx, event.RoomName, decision); err != nil {
		log.Error().
			Str("roomName", event.RoomName).
			Str("source", string(decision.Source)).
			Err(err).
			Msg("agent dispatch failed")
		// Release the flag so the next lifecycle event for this room
		// retries the dispatch instead of finding it already taken.
		if clearErr := s.calls.ClearAgentDispatched(ctx, event.RoomName); clearErr != nil {
			log.Error().Err(clearErr).Msg("failed to release dispatch flag")
		}
		call.Status = model.CallStatusFailed
		call.UpdatedAt = time.Now().UTC()
		if saveErr := s.calls.SaveCall(ctx, call); saveErr != nil {
			log.Error().Err(saveErr).Msg("failed to record dispatch failure")
		}
		return err
	}

	call.Status = model.CallStatusAgentDispatched
	call.AgentDispatched = true
	call.UpdatedAt = time.Now().UTC()
	return s.calls.SaveCall(ctx, call)
}

func (s *WebhookService) handleCallEnd(ctx context.Context, event *model.CallEvent) error {
	call, err := s.calls.GetCall(ctx, event.RoomName)
	if err != nil {
		return err
	}
	if call == nil {
		return nil
	}

	call.Status = model.CallStatusEnded
	call.UpdatedAt = time.Now().UTC()
	if err := s.calls.SaveCall(ctx, call); err != nil {
		return err
	}

	log.Info().
		Str("roomName", event.RoomName).
		Str("callId", call.CallID).
		Msg("call ended")
	return nil
}
