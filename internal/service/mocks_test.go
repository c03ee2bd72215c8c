package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/voicebridge/telephony-relay-go/internal/model"
	"github.com/voicebridge/telephony-relay-go/internal/platform"
	"github.com/voicebridge/telephony-relay-go/internal/provider"
	"github.com/voicebridge/telephony-relay-go/internal/repository"
)

// Mock integration repository
type mockIntegrationRepo struct {
	mock.Mock
}

func (m *mockIntegrationRepo) Create(ctx context.Context, params model.CreateIntegrationParams) (*model.Integration, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Integration), args.Error(1)
}

func (m *mockIntegrationRepo) FindByID(ctx context.Context, id string) (*model.Integration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Integration), args.Error(1)
}

func (m *mockIntegrationRepo) FindByFingerprint(ctx context.Context, p model.Provider, fingerprint string) (*model.Integration, error) {
	args := m.Called(ctx, p, fingerprint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Integration), args.Error(1)
}

func (m *mockIntegrationRepo) FindAll(ctx context.Context, limit, offset int) ([]model.Integration, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Integration), args.Error(1)
}

func (m *mockIntegrationRepo) UpdateResources(ctx context.Context, id string, resources model.ResourceMap) (*model.Integration, error) {
	args := m.Called(ctx, id, resources)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Integration), args.Error(1)
}

func (m *mockIntegrationRepo) UpdateStatus(ctx context.Context, id string, status model.IntegrationStatus) (*model.Integration, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Integration), args.Error(1)
}

func (m *mockIntegrationRepo) SoftDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockIntegrationRepo) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockIntegrationRepo) WithTx(tx *sqlx.Tx) repository.IntegrationRepository {
	return m
}

// Mock binding repository
type mockBindingRepo struct {
	mock.Mock
}

func (m *mockBindingRepo) UpsertByE164(ctx context.Context, params model.UpsertBindingParams) (*model.Binding, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Binding), args.Error(1)
}

func (m *mockBindingRepo) FindEnabledByE164(ctx context.Context, e164 string) (*model.Binding, error) {
	args := m.Called(ctx, e164)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Binding), args.Error(1)
}

func (m *mockBindingRepo) FindByID(ctx context.Context, id string) (*model.Binding, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Binding), args.Error(1)
}

func (m *mockBindingRepo) FindAll(ctx context.Context, limit, offset int) ([]model.Binding, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Binding), args.Error(1)
}

func (m *mockBindingRepo) FindByIntegrationID(ctx context.Context, integrationID string) ([]model.Binding, error) {
	args := m.Called(ctx, integrationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Binding), args.Error(1)
}

func (m *mockBindingRepo) Disable(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockBindingRepo) SoftDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockBindingRepo) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBindingRepo) WithTx(tx *sqlx.Tx) repository.BindingRepository {
	return m
}

// Mock provider adapter
type mockAdapter struct {
	mock.Mock
	provider model.Provider
}

func (m *mockAdapter) Provider() model.Provider {
	return m.provider
}

func (m *mockAdapter) VerifyCredentials(ctx context.Context, creds provider.Credentials) error {
	args := m.Called(ctx, creds)
	return args.Error(0)
}

func (m *mockAdapter) ListNumbers(ctx context.Context, creds provider.Credentials) ([]model.ProviderNumber, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProviderNumber), args.Error(1)
}

func (m *mockAdapter) GetNumber(ctx context.Context, creds provider.Credentials, providerNumberID string) (*model.ProviderNumber, error) {
	args := m.Called(ctx, creds, providerNumberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProviderNumber), args.Error(1)
}

func (m *mockAdapter) ListTrunks(ctx context.Context, creds provider.Credentials) ([]model.TrunkResource, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TrunkResource), args.Error(1)
}

func (m *mockAdapter) CreateTrunk(ctx context.Context, creds provider.Credentials, name string) (*model.TrunkResource, error) {
	args := m.Called(ctx, creds, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TrunkResource), args.Error(1)
}

func (m *mockAdapter) EnsureOriginationTarget(ctx context.Context, creds provider.Credentials, trunkID, sipHost string) (string, error) {
	args := m.Called(ctx, creds, trunkID, sipHost)
	return args.String(0), args.Error(1)
}

func (m *mockAdapter) AttachNumber(ctx context.Context, creds provider.Credentials, trunkID, providerNumberID string) error {
	args := m.Called(ctx, creds, trunkID, providerNumberID)
	return args.Error(0)
}

func (m *mockAdapter) DetachNumber(ctx context.Context, creds provider.Credentials, trunkID, providerNumberID string) error {
	args := m.Called(ctx, creds, trunkID, providerNumberID)
	return args.Error(0)
}

func (m *mockAdapter) DeleteTrunk(ctx context.Context, creds provider.Credentials, trunkID string) error {
	args := m.Called(ctx, creds, trunkID)
	return args.Error(0)
}

// Mock platform provisioner
type mockProvisioner struct {
	mock.Mock
}

func (m *mockProvisioner) EnsureInboundSetupForDid(ctx context.Context, e164 string) (*platform.InboundSetup, error) {
	args := m.Called(ctx, e164)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*platform.InboundSetup), args.Error(1)
}

func (m *mockProvisioner) RemoveInboundSetupForDid(ctx context.Context, e164 string) (*platform.RemovalResult, error) {
	args := m.Called(ctx, e164)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*platform.RemovalResult), args.Error(1)
}

// Mock agent resolver
type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) ResolveByAgentID(ctx context.Context, agentID string) (*model.AgentConfig, error) {
	args := m.Called(ctx, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AgentConfig), args.Error(1)
}

// Mock agent dispatcher
type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, roomName string, decision model.RouteDecision) error {
	args := m.Called(ctx, roomName, decision)
	return args.Error(0)
}
