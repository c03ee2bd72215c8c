package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twilioCreds() Credentials {
	return Credentials{AccountID: "AC123", APISecret: "token"}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{401, ErrAuthInvalid},
		{403, ErrAuthInvalid},
		{429, ErrRateLimited},
		{404, ErrNotFound},
		{400, ErrValidation},
		{422, ErrValidation},
		{500, ErrProvider},
		{503, ErrProvider},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"message":"nope"}`)
			}))
			defer srv.Close()

			adapter := NewTwilioWithEndpoints(srv.URL, srv.URL)
			err := adapter.VerifyCredentials(context.Background(), twilioCreds())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTransportErrorMapsToUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	adapter := NewTwilioWithEndpoints(srv.URL, srv.URL)
	err := adapter.VerifyCredentials(context.Background(), twilioCreds())
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestErrorDetailSurfacesProviderMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		fmt.Fprint(w, `{"message":"PhoneNumberSid is invalid"}`)
	}))
	defer srv.Close()

	adapter := NewTwilioWithEndpoints(srv.URL, srv.URL)
	err := adapter.VerifyCredentials(context.Background(), twilioCreds())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PhoneNumberSid is invalid")
}

func TestTwilioListNumbersPagination(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/Accounts/AC123/IncomingPhoneNumbers.json", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("Page")
		switch page {
		case "", "0":
			json.NewEncoder(w).Encode(map[string]any{
				"incoming_phone_numbers": []map[string]string{
					{"sid": "PN1", "phone_number": "+14155550100"},
					{"sid": "PN2", "phone_number": "+14155550101"},
				},
				"next_page_uri": "/2010-04-01/Accounts/AC123/IncomingPhoneNumbers.json?Page=1",
			})
		default:
			json.NewEncoder(w).Encode(map[string]any{
				"incoming_phone_numbers": []map[string]string{
					{"sid": "PN3", "phone_number": "+14155550102"},
				},
			})
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	adapter := NewTwilioWithEndpoints(srv.URL, srv.URL)
	numbers, err := adapter.ListNumbers(context.Background(), twilioCreds())
	require.NoError(t, err)
	require.Len(t, numbers, 3)
	assert.Equal(t, "PN1", numbers[0].ID)
	assert.Equal(t, "+14155550102", numbers[2].E164)
}

func TestTwilioListNumbersPageCap(t *testing.T) {
	// Every page points at another page; the adapter must refuse to return
	// a truncated list.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"incoming_phone_numbers": []map[string]string{
				{"sid": "PN1", "phone_number": "+14155550100"},
			},
			"next_page_uri": "/2010-04-01" + r.URL.Path + "?Page=next",
		})
	}))
	defer srv.Close()

	adapter := NewTwilioWithEndpoints(srv.URL, srv.URL)
	_, err := adapter.ListNumbers(context.Background(), twilioCreds())
	assert.ErrorIs(t, err, ErrEnumerationExceeded)
}

func TestTelnyxListTrunksPageCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"id": "c1", "connection_name": "trunk"}},
			"meta": map[string]int{"total_pages": 99, "page_number": 1},
		})
	}))
	defer srv.Close()

	adapter := NewTelnyxWithEndpoint(srv.URL)
	_, err := adapter.ListTrunks(context.Background(), Credentials{APIKey: "KEY"})
	assert.ErrorIs(t, err, ErrEnumerationExceeded)
}

func TestTwilioEnsureOriginationTargetReusesExisting(t *testing.T) {
	created := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/Trunks/TK1/OriginationUrls", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			created++
			json.NewEncoder(w).Encode(map[string]string{"sid": "OU-new"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"origination_urls": []map[string]string{
				{"sid": "OU1", "sip_url": "sip:inbound.example.com"},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	adapter := NewTwilioWithEndpoints(srv.URL, srv.URL)
	id, err := adapter.EnsureOriginationTarget(context.Background(), twilioCreds(), "TK1", "inbound.example.com")
	require.NoError(t, err)
	assert.Equal(t, "OU1", id)
	assert.Zero(t, created)

	id, err = adapter.EnsureOriginationTarget(context.Background(), twilioCreds(), "TK1", "other.example.com")
	require.NoError(t, err)
	assert.Equal(t, "OU-new", id)
	assert.Equal(t, 1, created)
}

func TestTwilioAttachNumberIdempotent(t *testing.T) {
	attached := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/Trunks/TK1/PhoneNumbers", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			attached++
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"sid":"PN1"}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"phone_numbers": []map[string]string{{"sid": "PN-existing"}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	adapter := NewTwilioWithEndpoints(srv.URL, srv.URL)

	// Already attached: no POST issued.
	require.NoError(t, adapter.AttachNumber(context.Background(), twilioCreds(), "TK1", "PN-existing"))
	assert.Zero(t, attached)

	require.NoError(t, adapter.AttachNumber(context.Background(), twilioCreds(), "TK1", "PN1"))
	assert.Equal(t, 1, attached)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(NewTwilio(), NewTelnyx(), NewPlivo())

	a, ok := reg.Get("twilio")
	require.True(t, ok)
	assert.Equal(t, "twilio", string(a.Provider()))

	_, ok = reg.Get("unknown")
	assert.False(t, ok)
}
