package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/voicebridge/telephony-relay-go/internal/model"
)

const telnyxBaseURL = "https://api.telnyx.com/v2"

// Telnyx provisions an FQDN connection plus an FQDN record pointing at our
// inbound SIP host; numbers route by assigning them to the connection.
type Telnyx struct {
	client  *restClient
	baseURL string
}

func NewTelnyx() *Telnyx {
	return NewTelnyxWithEndpoint(telnyxBaseURL)
}

// NewTelnyxWithEndpoint overrides the API endpoint; used by tests.
func NewTelnyxWithEndpoint(baseURL string) *Telnyx {
	return &Telnyx{
		client:  newRESTClient("telnyx"),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (t *Telnyx) Provider() model.Provider { return model.ProviderTelnyx }

func (t *Telnyx) do(ctx context.Context, creds Credentials, method, endpoint string, body, out any) error {
	return t.client.do(ctx, apiRequest{
		method: method,
		url:    endpoint,
		bearer: creds.APIKey,
		json:   body,
	}, out)
}

func (t *Telnyx) VerifyCredentials(ctx context.Context, creds Credentials) error {
	if creds.APIKey == "" {
		return fmt.Errorf("telnyx: API key is required: %w", ErrAuthInvalid)
	}
	return t.do(ctx, creds, "GET", t.baseURL+"/phone_numbers?page[size]=1", nil, nil)
}

type telnyxNumber struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phone_number"`
}

type telnyxMeta struct {
	TotalPages int `json:"total_pages"`
	PageNumber int `json:"page_number"`
}

func (t *Telnyx) ListNumbers(ctx context.Context, creds Credentials) ([]model.ProviderNumber, error) {
	var numbers []model.ProviderNumber

	for page := 1; ; page++ {
		if page > maxListPages {
			return nil, fmt.Errorf("telnyx: listing numbers: %w", ErrEnumerationExceeded)
		}
		var resp struct {
			Data []telnyxNumber `json:"data"`
			Meta telnyxMeta     `json:"meta"`
		}
		endpoint := fmt.Sprintf("%s/phone_numbers?page[size]=100&page[number]=%d", t.baseURL, page)
		if err := t.do(ctx, creds, "GET", endpoint, nil, &resp); err != nil {
			return nil, err
		}
		for _, n := range resp.Data {
			numbers = append(numbers, model.ProviderNumber{ID: n.ID, E164: n.PhoneNumber})
		}
		if page >= resp.Meta.TotalPages {
			break
		}
	}
	return numbers, nil
}

func (t *Telnyx) GetNumber(ctx context.Context, creds Credentials, providerNumberID string) (*model.ProviderNumber, error) {
	var resp struct {
		Data telnyxNumber `json:"data"`
	}
	endpoint := t.baseURL + "/phone_numbers/" + url.PathEscape(providerNumberID)
	if err := t.do(ctx, creds, "GET", endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return &model.ProviderNumber{ID: resp.Data.ID, E164: resp.Data.PhoneNumber}, nil
}

type telnyxConnection struct {
	ID             string `json:"id"`
	ConnectionName string `json:"connection_name"`
}

func (t *Telnyx) ListTrunks(ctx context.Context, creds Credentials) ([]model.TrunkResource, error) {
	var trunks []model.TrunkResource

	for page := 1; ; page++ {
		if page > maxListPages {
			return nil, fmt.Errorf("telnyx: listing connections: %w", ErrEnumerationExceeded)
		}
		var resp struct {
			Data []telnyxConnection `json:"data"`
			Meta telnyxMeta         `json:"meta"`
		}
		endpoint := fmt.Sprintf("%s/fqdn_connections?page[size]=100&page[number]=%d", t.baseURL, page)
		if err := t.do(ctx, creds, "GET", endpoint, nil, &resp); err != nil {
			return nil, err
		}
		for _, c := range resp.Data {
			trunks = append(trunks, model.TrunkResource{ID: c.ID, Name: c.ConnectionName})
		}
		if page >= resp.Meta.TotalPages {
			break
		}
	}
	return trunks, nil
}

func (t *Telnyx) CreateTrunk(ctx context.Context, creds Credentials, name string) (*model.TrunkResource, error) {
	var resp struct {
		Data telnyxConnection `json:"data"`
	}
	body := map[string]any{"connection_name": name}
	if err := t.do(ctx, creds, "POST", t.baseURL+"/fqdn_connections", body, &resp); err != nil {
		return nil, err
	}
	return &model.TrunkResource{ID: resp.Data.ID, Name: resp.Data.ConnectionName}, nil
}

func (t *Telnyx) EnsureOriginationTarget(ctx context.Context, creds Credentials, trunkID, sipHost string) (string, error) {
	var listResp struct {
		Data []struct {
			ID   string `json:"id"`
			FQDN string `json:"fqdn"`
		} `json:"data"`
	}
	endpoint := t.baseURL + "/fqdns?filter[connection_id]=" + url.QueryEscape(trunkID)
	if err := t.do(ctx, creds, "GET", endpoint, nil, &listResp); err != nil {
		return "", err
	}
	for _, f := range listResp.Data {
		if f.FQDN == sipHost {
			return f.ID, nil
		}
	}

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	body := map[string]any{
		"connection_id":   trunkID,
		"fqdn":            sipHost,
		"dns_record_type": "a",
		"port":            5060,
	}
	if err := t.do(ctx, creds, "POST", t.baseURL+"/fqdns", body, &created); err != nil {
		return "", err
	}
	return created.Data.ID, nil
}

// AttachNumber assigns the number to the connection. PATCH is naturally
// idempotent: re-assigning to the same connection is a no-op.
func (t *Telnyx) AttachNumber(ctx context.Context, creds Credentials, trunkID, providerNumberID string) error {
	endpoint := t.baseURL + "/phone_numbers/" + url.PathEscape(providerNumberID)
	body := map[string]any{"connection_id": trunkID}
	return t.do(ctx, creds, "PATCH", endpoint, body, nil)
}

func (t *Telnyx) DetachNumber(ctx context.Context, creds Credentials, trunkID, providerNumberID string) error {
	endpoint := t.baseURL + "/phone_numbers/" + url.PathEscape(providerNumberID)
	body := map[string]any{"connection_id": ""}
	return t.do(ctx, creds, "PATCH", endpoint, body, nil)
}

func (t *Telnyx) DeleteTrunk(ctx context.Context, creds Credentials, trunkID string) error {
	return t.do(ctx, creds, "DELETE", t.baseURL+"/fqdn_connections/"+url.PathEscape(trunkID), nil, nil)
}
