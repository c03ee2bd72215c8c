package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/voicebridge/telephony-relay-go/internal/agent"
	"github.com/voicebridge/telephony-relay-go/internal/model"
)

func newRoutingFixture() (*RoutingService, *mockBindingRepo, *mockResolver) {
	bindings := &mockBindingRepo{}
	resolver := &mockResolver{}
	svc := NewRoutingService(bindings, resolver, model.AgentConfig{
		AgentID:  "default",
		Name:     "Receptionist",
		Greeting: "Hello",
	})
	return svc, bindings, resolver
}

func strPtr(s string) *string { return &s }

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("empty dialed number routes to default without lookup", func(t *testing.T) {
		svc, bindings, _ := newRoutingFixture()

		decision := svc.Resolve(ctx, RouteQuery{RoomName: "room-1"})
		assert.Equal(t, model.RouteSourceDefault, decision.Source)
		assert.Equal(t, "default", decision.Config.AgentID)
		bindings.AssertNotCalled(t, "FindEnabledByE164", mock.Anything, mock.Anything)
	})

	t.Run("garbage dialed number routes to default", func(t *testing.T) {
		svc, bindings, _ := newRoutingFixture()

		decision := svc.Resolve(ctx, RouteQuery{RoomName: "room-1", To: "not-a-number"})
		assert.Equal(t, model.RouteSourceDefault, decision.Source)
		bindings.AssertNotCalled(t, "FindEnabledByE164", mock.Anything, mock.Anything)
	})

	t.Run("no binding routes to default", func(t *testing.T) {
		svc, bindings, _ := newRoutingFixture()
		bindings.On("FindEnabledByE164", mock.Anything, "+14155550100").Return(nil, nil)

		decision := svc.Resolve(ctx, RouteQuery{To: "+14155550100"})
		assert.Equal(t, model.RouteSourceDefault, decision.Source)
	})

	t.Run("store failure routes to default", func(t *testing.T) {
		svc, bindings, _ := newRoutingFixture()
		bindings.On("FindEnabledByE164", mock.Anything, "+14155550100").
			Return(nil, errors.New("connection refused"))

		decision := svc.Resolve(ctx, RouteQuery{To: "+14155550100"})
		assert.Equal(t, model.RouteSourceDefault, decision.Source)
	})

	t.Run("pinned config wins over live resolution", func(t *testing.T) {
		svc, bindings, resolver := newRoutingFixture()
		pinned, _ := json.Marshal(model.AgentConfig{Name: "Pinned Bot", Greeting: "Hi there"})
		bindings.On("FindEnabledByE164", mock.Anything, "+14155550100").Return(&model.Binding{
			ID:          "bind-1",
			AgentID:     strPtr("agent-7"),
			AgentConfig: pinned,
			Enabled:     true,
		}, nil)

		decision := svc.Resolve(ctx, RouteQuery{To: "+14155550100"})
		assert.Equal(t, model.RouteSourcePinned, decision.Source)
		assert.Equal(t, "Pinned Bot", decision.Config.Name)
		assert.Equal(t, "agent-7", decision.Config.AgentID)
		assert.Equal(t, "bind-1", decision.BindingID)
		resolver.AssertNotCalled(t, "ResolveByAgentID", mock.Anything, mock.Anything)
	})

	t.Run("agent id resolves live", func(t *testing.T) {
		svc, bindings, resolver := newRoutingFixture()
		bindings.On("FindEnabledByE164", mock.Anything, "+14155550100").Return(&model.Binding{
			ID:      "bind-1",
			AgentID: strPtr("agent-7"),
			Enabled: true,
		}, nil)
		resolver.On("ResolveByAgentID", mock.Anything, "agent-7").
			Return(&model.AgentConfig{AgentID: "agent-7", Name: "Live Bot"}, nil)

		decision := svc.Resolve(ctx, RouteQuery{To: "+14155550100"})
		assert.Equal(t, model.RouteSourceLive, decision.Source)
		assert.Equal(t, "Live Bot", decision.Config.Name)
	})

	t.Run("resolver failure routes to default", func(t *testing.T) {
		svc, bindings, resolver := newRoutingFixture()
		bindings.On("FindEnabledByE164", mock.Anything, "+14155550100").Return(&model.Binding{
			ID:      "bind-1",
			AgentID: strPtr("agent-gone"),
			Enabled: true,
		}, nil)
		resolver.On("ResolveByAgentID", mock.Anything, "agent-gone").
			Return(nil, agent.ErrAgentNotFound)

		decision := svc.Resolve(ctx, RouteQuery{To: "+14155550100"})
		assert.Equal(t, model.RouteSourceDefault, decision.Source)
	})

	t.Run("resolver returning nil config routes to default", func(t *testing.T) {
		svc, bindings, resolver := newRoutingFixture()
		bindings.On("FindEnabledByE164", mock.Anything, "+14155550100").Return(&model.Binding{
			ID:      "bind-1",
			AgentID: strPtr("agent-7"),
			Enabled: true,
		}, nil)
		resolver.On("ResolveByAgentID", mock.Anything, "agent-7").Return(nil, nil)

		decision := svc.Resolve(ctx, RouteQuery{To: "+14155550100"})
		assert.Equal(t, model.RouteSourceDefault, decision.Source)
	})

	t.Run("binding without agent routes to default", func(t *testing.T) {
		svc, bindings, _ := newRoutingFixture()
		bindings.On("FindEnabledByE164", mock.Anything, "+14155550100").Return(&model.Binding{
			ID:      "bind-1",
			Enabled: true,
		}, nil)

		decision := svc.Resolve(ctx, RouteQuery{To: "+14155550100"})
		assert.Equal(t, model.RouteSourceDefault, decision.Source)
	})

	t.Run("corrupt pinned config routes to default", func(t *testing.T) {
		svc, bindings, _ := newRoutingFixture()
		bindings.On("FindEnabledByE164", mock.Anything, "+14155550100").Return(&model.Binding{
			ID:          "bind-1",
			AgentConfig: json.RawMessage(`{not json`),
			Enabled:     true,
		}, nil)

		decision := svc.Resolve(ctx, RouteQuery{To: "+14155550100"})
		assert.Equal(t, model.RouteSourceDefault, decision.Source)
	})
}
