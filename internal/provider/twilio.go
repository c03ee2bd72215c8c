package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/voicebridge/telephony-relay-go/internal/model"
)

const (
	twilioTrunkingBaseURL = "https://trunking.twilio.com/v1"
	twilioAPIBaseURL      = "https://api.twilio.com/2010-04-01"
)

// Twilio provisions Elastic SIP Trunking resources: a trunk plus an
// origination URL pointing at our inbound SIP host.
type Twilio struct {
	client      *restClient
	trunkingURL string
	apiURL      string
}

func NewTwilio() *Twilio {
	return NewTwilioWithEndpoints(twilioTrunkingBaseURL, twilioAPIBaseURL)
}

// NewTwilioWithEndpoints overrides the API endpoints; used by tests.
func NewTwilioWithEndpoints(trunkingURL, apiURL string) *Twilio {
	return &Twilio{
		client:      newRESTClient("twilio"),
		trunkingURL: strings.TrimSuffix(trunkingURL, "/"),
		apiURL:      strings.TrimSuffix(apiURL, "/"),
	}
}

func (t *Twilio) Provider() model.Provider { return model.ProviderTwilio }

// Twilio accepts either account SID + auth token or an API key pair.
func (t *Twilio) auth(creds Credentials) (user, pass string) {
	if creds.APIKey != "" {
		return creds.APIKey, creds.APISecret
	}
	return creds.AccountID, creds.APISecret
}

func (t *Twilio) get(ctx context.Context, creds Credentials, endpoint string, out any) error {
	user, pass := t.auth(creds)
	return t.client.do(ctx, apiRequest{method: "GET", url: endpoint, basicUser: user, basicPass: pass}, out)
}

func (t *Twilio) postForm(ctx context.Context, creds Credentials, endpoint string, form url.Values, out any) error {
	user, pass := t.auth(creds)
	return t.client.do(ctx, apiRequest{method: "POST", url: endpoint, basicUser: user, basicPass: pass, form: form}, out)
}

func (t *Twilio) delete(ctx context.Context, creds Credentials, endpoint string) error {
	user, pass := t.auth(creds)
	return t.client.do(ctx, apiRequest{method: "DELETE", url: endpoint, basicUser: user, basicPass: pass}, nil)
}

func (t *Twilio) VerifyCredentials(ctx context.Context, creds Credentials) error {
	if creds.AccountID == "" || creds.APISecret == "" {
		return fmt.Errorf("twilio: account SID and secret are required: %w", ErrAuthInvalid)
	}
	endpoint := fmt.Sprintf("%s/Accounts/%s.json", t.apiURL, creds.AccountID)
	return t.get(ctx, creds, endpoint, nil)
}

type twilioNumber struct {
	SID          string `json:"sid"`
	PhoneNumber  string `json:"phone_number"`
	FriendlyName string `json:"friendly_name"`
}

func (n twilioNumber) toModel() model.ProviderNumber {
	return model.ProviderNumber{ID: n.SID, E164: n.PhoneNumber, FriendlyName: n.FriendlyName}
}

func (t *Twilio) ListNumbers(ctx context.Context, creds Credentials) ([]model.ProviderNumber, error) {
	var numbers []model.ProviderNumber
	next := fmt.Sprintf("%s/Accounts/%s/IncomingPhoneNumbers.json?PageSize=100", t.apiURL, creds.AccountID)

	for page := 0; next != ""; page++ {
		if page >= maxListPages {
			return nil, fmt.Errorf("twilio: listing numbers: %w", ErrEnumerationExceeded)
		}
		var resp struct {
			IncomingPhoneNumbers []twilioNumber `json:"incoming_phone_numbers"`
			NextPageURI          string         `json:"next_page_uri"`
		}
		if err := t.get(ctx, creds, next, &resp); err != nil {
			return nil, err
		}
		for _, n := range resp.IncomingPhoneNumbers {
			numbers = append(numbers, n.toModel())
		}
		next = ""
		if resp.NextPageURI != "" {
			next = t.apiURL + strings.TrimPrefix(resp.NextPageURI, "/2010-04-01")
		}
	}
	return numbers, nil
}

func (t *Twilio) GetNumber(ctx context.Context, creds Credentials, providerNumberID string) (*model.ProviderNumber, error) {
	var n twilioNumber
	endpoint := fmt.Sprintf("%s/Accounts/%s/IncomingPhoneNumbers/%s.json", t.apiURL, creds.AccountID, providerNumberID)
	if err := t.get(ctx, creds, endpoint, &n); err != nil {
		return nil, err
	}
	num := n.toModel()
	return &num, nil
}

type twilioTrunk struct {
	SID          string `json:"sid"`
	FriendlyName string `json:"friendly_name"`
}

func (t *Twilio) ListTrunks(ctx context.Context, creds Credentials) ([]model.TrunkResource, error) {
	var trunks []model.TrunkResource
	next := t.trunkingURL + "/Trunks?PageSize=100"

	for page := 0; next != ""; page++ {
		if page >= maxListPages {
			return nil, fmt.Errorf("twilio: listing trunks: %w", ErrEnumerationExceeded)
		}
		var resp struct {
			Trunks []twilioTrunk `json:"trunks"`
			Meta   struct {
				NextPageURL string `json:"next_page_url"`
			} `json:"meta"`
		}
		if err := t.get(ctx, creds, next, &resp); err != nil {
			return nil, err
		}
		for _, tr := range resp.Trunks {
			trunks = append(trunks, model.TrunkResource{ID: tr.SID, Name: tr.FriendlyName})
		}
		next = resp.Meta.NextPageURL
	}
	return trunks, nil
}

func (t *Twilio) CreateTrunk(ctx context.Context, creds Credentials, name string) (*model.TrunkResource, error) {
	var tr twilioTrunk
	form := url.Values{"FriendlyName": {name}}
	if err := t.postForm(ctx, creds, t.trunkingURL+"/Trunks", form, &tr); err != nil {
		return nil, err
	}
	return &model.TrunkResource{ID: tr.SID, Name: tr.FriendlyName}, nil
}

func (t *Twilio) EnsureOriginationTarget(ctx context.Context, creds Credentials, trunkID, sipHost string) (string, error) {
	sipURL := "sip:" + sipHost
	listURL := fmt.Sprintf("%s/Trunks/%s/OriginationUrls", t.trunkingURL, trunkID)

	var listResp struct {
		OriginationURLs []struct {
			SID    string `json:"sid"`
			SipURL string `json:"sip_url"`
		} `json:"origination_urls"`
	}
	if err := t.get(ctx, creds, listURL, &listResp); err != nil {
		return "", err
	}
	for _, o := range listResp.OriginationURLs {
		if o.SipURL == sipURL {
			return o.SID, nil
		}
	}

	var created struct {
		SID string `json:"sid"`
	}
	form := url.Values{
		"FriendlyName": {"inbound"},
		"SipUrl":       {sipURL},
		"Weight":       {"1"},
		"Priority":     {"1"},
		"Enabled":      {"true"},
	}
	if err := t.postForm(ctx, creds, listURL, form, &created); err != nil {
		return "", err
	}
	return created.SID, nil
}

func (t *Twilio) AttachNumber(ctx context.Context, creds Credentials, trunkID, providerNumberID string) error {
	listURL := fmt.Sprintf("%s/Trunks/%s/PhoneNumbers", t.trunkingURL, trunkID)

	var listResp struct {
		PhoneNumbers []struct {
			SID string `json:"sid"`
		} `json:"phone_numbers"`
	}
	if err := t.get(ctx, creds, listURL, &listResp); err != nil {
		return err
	}
	for _, n := range listResp.PhoneNumbers {
		if n.SID == providerNumberID {
			return nil // already attached
		}
	}

	form := url.Values{"PhoneNumberSid": {providerNumberID}}
	return t.postForm(ctx, creds, listURL, form, nil)
}

func (t *Twilio) DetachNumber(ctx context.Context, creds Credentials, trunkID, providerNumberID string) error {
	endpoint := fmt.Sprintf("%s/Trunks/%s/PhoneNumbers/%s", t.trunkingURL, trunkID, providerNumberID)
	return t.delete(ctx, creds, endpoint)
}

func (t *Twilio) DeleteTrunk(ctx context.Context, creds Credentials, trunkID string) error {
	return t.delete(ctx, creds, fmt.Sprintf("%s/Trunks/%s", t.trunkingURL, trunkID))
}

