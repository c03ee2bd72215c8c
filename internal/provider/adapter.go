package provider

import (
	"context"

	"github.com/voicebridge/telephony-relay-go/internal/model"
)

// Credentials is the decrypted provider credential set. Field meaning is
// provider-specific: Twilio uses AccountID as the account SID with an API
// key pair, Telnyx uses APIKey as a bearer token, Plivo uses AccountID as
// the auth ID and APISecret as the auth token.
type Credentials struct {
	AccountID string `json:"accountId,omitempty"`
	APIKey    string `json:"apiKey,omitempty"`
	APISecret string `json:"apiSecret,omitempty"`
}

// Adapter is the provider-agnostic contract every telephony provider
// implements. All calls map transport and HTTP failures into the small
// error set in errors.go. Create-style verbs are safe to call when the
// resource may already exist.
//
// No provider REST calls happen outside this package.
type Adapter interface {
	Provider() model.Provider

	VerifyCredentials(ctx context.Context, creds Credentials) error

	ListNumbers(ctx context.Context, creds Credentials) ([]model.ProviderNumber, error)
	GetNumber(ctx context.Context, creds Credentials, providerNumberID string) (*model.ProviderNumber, error)

	ListTrunks(ctx context.Context, creds Credentials) ([]model.TrunkResource, error)
	CreateTrunk(ctx context.Context, creds Credentials, name string) (*model.TrunkResource, error)

	// EnsureOriginationTarget makes the trunk forward inbound calls to the
	// given SIP host, reusing an existing target when one already points
	// there. Returns the provider's identifier for the target.
	EnsureOriginationTarget(ctx context.Context, creds Credentials, trunkID, sipHost string) (string, error)

	AttachNumber(ctx context.Context, creds Credentials, trunkID, providerNumberID string) error
	DetachNumber(ctx context.Context, creds Credentials, trunkID, providerNumberID string) error

	DeleteTrunk(ctx context.Context, creds Credentials, trunkID string) error
}

// Registry selects an adapter by the provider discriminant stored on an
// integration. Constructed once at process start, read-only thereafter.
type Registry map[model.Provider]Adapter

func NewRegistry(adapters ...Adapter) Registry {
	r := make(Registry, len(adapters))
	for _, a := range adapters {
		r[a.Provider()] = a
	}
	return r
}

func (r Registry) Get(p model.Provider) (Adapter, bool) {
	a, ok := r[p]
	return a, ok
}
