package model

// ProviderNumber is a phone number as the provider reports it.
type ProviderNumber struct {
	ID           string `json:"id"`
	E164         string `json:"e164"`
	FriendlyName string `json:"friendlyName,omitempty"`
}

// TrunkResource is a provider-side SIP trunk (or equivalent connection)
// together with the origination target pointing at our inbound SIP host.
type TrunkResource struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	OriginationID string `json:"originationId,omitempty"`
}

// Resource map keys shared by all provider adapters.
const (
	ResourceKeyTrunkID       = "trunkId"
	ResourceKeyOriginationID = "originationId"
)
