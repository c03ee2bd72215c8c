package service

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/voicebridge/telephony-relay-go/internal/agent"
	"github.com/voicebridge/telephony-relay-go/internal/model"
	"github.com/voicebridge/telephony-relay-go/internal/repository"
	"github.com/voicebridge/telephony-relay-go/internal/util"
)

// RoutingService resolves a dialed number to the agent that should answer.
// Resolve never returns an error: any failure along the way degrades to
// the default agent so the caller hears something instead of silence.
type RoutingService struct {
	bindings     repository.BindingRepository
	resolver     agent.Resolver
	defaultAgent model.AgentConfig
}

func NewRoutingService(bindings repository.BindingRepository, resolver agent.Resolver, defaultAgent model.AgentConfig) *RoutingService {
	return &RoutingService{
		bindings:     bindings,
		resolver:     resolver,
		defaultAgent: defaultAgent,
	}
}

type RouteQuery struct {
	RoomName string
	From     string
	To       string
}

// Resolve picks the agent for an inbound call. Precedence: a pinned
// agent config on the binding wins over live resolution by agent id,
// which wins over the default agent.
func (s *RoutingService) Resolve(ctx context.Context, query RouteQuery) model.RouteDecision {
	if query.To == "" {
		return s.defaultDecision()
	}

	e164, err := util.NormalizeE164(query.To)
	if err != nil {
		log.Warn().
			Str("roomName", query.RoomName).
			Str("to", query.To).
			Err(err).
			Msg("unparseable dialed number, routing to default agent")
		return s.defaultDecision()
	}

	binding, err := s.bindings.FindEnabledByE164(ctx, e164)
	if err != nil {
		log.Error().
			Str("roomName", query.RoomName).
			Str("e164", e164).
			Err(err).
			Msg("binding lookup failed, routing to default agent")
		return s.defaultDecision()
	}
	if binding == nil || !binding.Routable() {
		return s.defaultDecision()
	}

	if len(binding.AgentConfig) > 0 {
		var cfg model.AgentConfig
		if err := json.Unmarshal(binding.AgentConfig, &cfg); err != nil {
			log.Error().
				Str("bindingId", binding.ID).
				Err(err).
				Msg("invalid pinned agent config, routing to default agent")
			return s.defaultDecision()
		}
		if cfg.AgentID == "" && binding.AgentID != nil {
			cfg.AgentID = *binding.AgentID
		}
		return model.RouteDecision{
			Config:    cfg,
			Source:    model.RouteSourcePinned,
			BindingID: binding.ID,
		}
	}

	cfg, err := s.resolver.ResolveByAgentID(ctx, *binding.AgentID)
	if err != nil || cfg == nil {
		log.Warn().
			Str("bindingId", binding.ID).
			Str("agentId", *binding.AgentID).
			Err(err).
			Msg("live agent resolution failed, routing to default agent")
		return s.defaultDecision()
	}

	return model.RouteDecision{
		Config:    *cfg,
		Source:    model.RouteSourceLive,
		BindingID: binding.ID,
	}
}

func (s *RoutingService) defaultDecision() model.RouteDecision {
	return model.RouteDecision{
		Config: s.defaultAgent,
		Source: model.RouteSourceDefault,
	}
}
