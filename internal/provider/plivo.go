package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/voicebridge/telephony-relay-go/internal/model"
)

const plivoBaseURL = "https://api.plivo.com/v1"

// Plivo provisions a Zentrunk inbound trunk plus an origination URI
// pointing at our SIP host. Plivo identifies numbers by the number itself.
type Plivo struct {
	client  *restClient
	baseURL string
}

func NewPlivo() *Plivo {
	return NewPlivoWithEndpoint(plivoBaseURL)
}

// NewPlivoWithEndpoint overrides the API endpoint; used by tests.
func NewPlivoWithEndpoint(baseURL string) *Plivo {
	return &Plivo{
		client:  newRESTClient("plivo"),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (p *Plivo) Provider() model.Provider { return model.ProviderPlivo }

func (p *Plivo) account(creds Credentials) string {
	return fmt.Sprintf("%s/Account/%s", p.baseURL, url.PathEscape(creds.AccountID))
}

func (p *Plivo) do(ctx context.Context, creds Credentials, method, endpoint string, body, out any) error {
	return p.client.do(ctx, apiRequest{
		method:    method,
		url:       endpoint,
		basicUser: creds.AccountID,
		basicPass: creds.APISecret,
		json:      body,
	}, out)
}

func (p *Plivo) VerifyCredentials(ctx context.Context, creds Credentials) error {
	if creds.AccountID == "" || creds.APISecret == "" {
		return fmt.Errorf("plivo: auth ID and auth token are required: %w", ErrAuthInvalid)
	}
	return p.do(ctx, creds, "GET", p.account(creds)+"/", nil, nil)
}

func (p *Plivo) ListNumbers(ctx context.Context, creds Credentials) ([]model.ProviderNumber, error) {
	var numbers []model.ProviderNumber
	const pageSize = 100

	for page := 0; ; page++ {
		if page >= maxListPages {
			return nil, fmt.Errorf("plivo: listing numbers: %w", ErrEnumerationExceeded)
		}
		var resp struct {
			Objects []struct {
				Number string `json:"number"`
				Alias  string `json:"alias"`
			} `json:"objects"`
			Meta struct {
				Next *string `json:"next"`
			} `json:"meta"`
		}
		endpoint := fmt.Sprintf("%s/Number/?limit=%d&offset=%d", p.account(creds), pageSize, page*pageSize)
		if err := p.do(ctx, creds, "GET", endpoint, nil, &resp); err != nil {
			return nil, err
		}
		for _, n := range resp.Objects {
			numbers = append(numbers, model.ProviderNumber{
				ID:           n.Number,
				E164:         "+" + n.Number,
				FriendlyName: n.Alias,
			})
		}
		if resp.Meta.Next == nil || *resp.Meta.Next == "" {
			break
		}
	}
	return numbers, nil
}

func (p *Plivo) GetNumber(ctx context.Context, creds Credentials, providerNumberID string) (*model.ProviderNumber, error) {
	var resp struct {
		Number string `json:"number"`
		Alias  string `json:"alias"`
	}
	endpoint := fmt.Sprintf("%s/Number/%s/", p.account(creds), url.PathEscape(providerNumberID))
	if err := p.do(ctx, creds, "GET", endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return &model.ProviderNumber{ID: resp.Number, E164: "+" + resp.Number, FriendlyName: resp.Alias}, nil
}

func (p *Plivo) ListTrunks(ctx context.Context, creds Credentials) ([]model.TrunkResource, error) {
	var trunks []model.TrunkResource
	const pageSize = 100

	for page := 0; ; page++ {
		if page >= maxListPages {
			return nil, fmt.Errorf("plivo: listing trunks: %w", ErrEnumerationExceeded)
		}
		var resp struct {
			Objects []struct {
				TrunkID string `json:"trunk_id"`
				Name    string `json:"name"`
			} `json:"objects"`
			Meta struct {
				Next *string `json:"next"`
			} `json:"meta"`
		}
		endpoint := fmt.Sprintf("%s/Zentrunk/Trunk/?limit=%d&offset=%d", p.account(creds), pageSize, page*pageSize)
		if err := p.do(ctx, creds, "GET", endpoint, nil, &resp); err != nil {
			return nil, err
		}
		for _, t := range resp.Objects {
			trunks = append(trunks, model.TrunkResource{ID: t.TrunkID, Name: t.Name})
		}
		if resp.Meta.Next == nil || *resp.Meta.Next == "" {
			break
		}
	}
	return trunks, nil
}

func (p *Plivo) CreateTrunk(ctx context.Context, creds Credentials, name string) (*model.TrunkResource, error) {
	var resp struct {
		TrunkID string `json:"trunk_id"`
	}
	body := map[string]any{"name": name, "trunk_direction": "inbound"}
	if err := p.do(ctx, creds, "POST", p.account(creds)+"/Zentrunk/Trunk/", body, &resp); err != nil {
		return nil, err
	}
	return &model.TrunkResource{ID: resp.TrunkID, Name: name}, nil
}

func (p *Plivo) EnsureOriginationTarget(ctx context.Context, creds Credentials, trunkID, sipHost string) (string, error) {
	sipURI := "sip:" + sipHost
	listEndpoint := fmt.Sprintf("%s/Zentrunk/Trunk/%s/OriginationURI/", p.account(creds), url.PathEscape(trunkID))

	var listResp struct {
		Objects []struct {
			URIID string `json:"uri_id"`
			URI   string `json:"uri"`
		} `json:"objects"`
	}
	if err := p.do(ctx, creds, "GET", listEndpoint, nil, &listResp); err != nil {
		return "", err
	}
	for _, o := range listResp.Objects {
		if o.URI == sipURI {
			return o.URIID, nil
		}
	}

	var created struct {
		URIID string `json:"uri_id"`
	}
	body := map[string]any{"uri": sipURI, "name": "inbound"}
	if err := p.do(ctx, creds, "POST", listEndpoint, body, &created); err != nil {
		return "", err
	}
	return created.URIID, nil
}

func (p *Plivo) AttachNumber(ctx context.Context, creds Credentials, trunkID, providerNumberID string) error {
	endpoint := fmt.Sprintf("%s/Zentrunk/Trunk/%s/Number/%s/",
		p.account(creds), url.PathEscape(trunkID), url.PathEscape(providerNumberID))

	// Already attached is a no-op.
	err := p.do(ctx, creds, "GET", endpoint, nil, nil)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return err
	}
	return p.do(ctx, creds, "POST", endpoint, nil, nil)
}

func (p *Plivo) DetachNumber(ctx context.Context, creds Credentials, trunkID, providerNumberID string) error {
	endpoint := fmt.Sprintf("%s/Zentrunk/Trunk/%s/Number/%s/",
		p.account(creds), url.PathEscape(trunkID), url.PathEscape(providerNumberID))
	return p.do(ctx, creds, "DELETE", endpoint, nil, nil)
}

func (p *Plivo) DeleteTrunk(ctx context.Context, creds Credentials, trunkID string) error {
	endpoint := fmt.Sprintf("%s/Zentrunk/Trunk/%s/", p.account(creds), url.PathEscape(trunkID))
	return p.do(ctx, creds, "DELETE", endpoint, nil, nil)
}
