package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	requestTimeout = 15 * time.Second

	// maxListPages bounds internal pagination of list verbs. Exceeding it
	// surfaces ErrEnumerationExceeded instead of a truncated list.
	maxListPages = 20
)

// restClient is the transport shared by all adapters: bounded timeout,
// basic/bearer auth, JSON or form bodies, and HTTP status mapping into the
// provider error taxonomy.
type restClient struct {
	name string
	hc   *http.Client
}

func newRESTClient(name string) *restClient {
	return &restClient{
		name: name,
		hc:   &http.Client{Timeout: requestTimeout},
	}
}

type apiRequest struct {
	method string
	url    string

	basicUser string
	basicPass string
	bearer    string

	form url.Values
	json any
}

func (c *restClient) do(ctx context.Context, req apiRequest, out any) error {
	var body io.Reader
	contentType := ""
	switch {
	case req.form != nil:
		body = strings.NewReader(req.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.json != nil:
		encoded, err := json.Marshal(req.json)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", c.name, err)
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.name, err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.bearer)
	} else if req.basicUser != "" {
		httpReq.SetBasicAuth(req.basicUser, req.basicPass)
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %v: %w", c.name, err, ErrUnreachable)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", c.name, ErrUnreachable)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(c.name, resp.StatusCode, errorDetail(respBody))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%s: decode response: %v: %w", c.name, err, ErrProvider)
		}
	}
	return nil
}

// errorDetail pulls a human-readable message out of common provider error
// body shapes, falling back to a truncated raw body.
func errorDetail(body []byte) string {
	var generic struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
		Errors  []struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &generic); err == nil {
		switch {
		case generic.Message != "":
			return generic.Message
		case generic.Error != "":
			return generic.Error
		case generic.Detail != "":
			return generic.Detail
		case len(generic.Errors) > 0 && generic.Errors[0].Detail != "":
			return generic.Errors[0].Detail
		case len(generic.Errors) > 0:
			return generic.Errors[0].Title
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
