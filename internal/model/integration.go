package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Provider identifies a supported SIP trunking provider.
type Provider string

const (
	ProviderTwilio Provider = "twilio"
	ProviderTelnyx Provider = "telnyx"
	ProviderPlivo  Provider = "plivo"
)

func (p Provider) Valid() bool {
	switch p {
	case ProviderTwilio, ProviderTelnyx, ProviderPlivo:
		return true
	}
	return false
}

type IntegrationStatus string

const (
	IntegrationStatusActive   IntegrationStatus = "active"
	IntegrationStatusDisabled IntegrationStatus = "disabled"
)

func (s IntegrationStatus) Valid() bool {
	switch s {
	case IntegrationStatusActive, IntegrationStatusDisabled:
		return true
	}
	return false
}

// ResourceMap holds provider-side resource identifiers created during
// onboarding (trunk id, origination target id). It is a cache of
// already-provisioned state, not a source of truth.
type ResourceMap map[string]string

func (m ResourceMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *ResourceMap) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	case nil:
		*m = ResourceMap{}
		return nil
	default:
		return fmt.Errorf("unsupported type for ResourceMap: %T", src)
	}
}

// Integration is one (tenant, provider) credential set plus the provider
// resources provisioned for it.
type Integration struct {
	ID                    string            `db:"id"`
	Provider              Provider          `db:"provider"`
	Name                  *string           `db:"name"`
	EncryptedCredential   string            `db:"encrypted_credential"`
	CredentialFingerprint string            `db:"credential_fingerprint"`
	Status                IntegrationStatus `db:"status"`
	ProviderResources     ResourceMap       `db:"provider_resources"`
	DeletedAt             *time.Time        `db:"deleted_at"`
	CreatedAt             time.Time         `db:"created_at"`
	UpdatedAt             time.Time         `db:"updated_at"`
}

type CreateIntegrationParams struct {
	Provider              Provider
	Name                  *string
	EncryptedCredential   string
	CredentialFingerprint string
	ProviderResources     ResourceMap
}
