// Package formclient is a small Go client for the public form submission
// API, mirroring the browser SDK's contract for server-side integrations.
package formclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultAPIURL is used when Config.APIURL is empty.
const DefaultAPIURL = "https://forms.datalinc.io/api/forms/submit"

// Config configures a Client.
type Config struct {
	// ClientID identifies the tenant whose form is being submitted. Required.
	ClientID string
	// Origin is sent as the Origin header on every submission. The API
	// checks it against the tenant's registered domain, so it must be the
	// site the tenant has on record, e.g. "https://www.acme.com". Required.
	Origin string
	// FormType is the form category. Defaults to "contact".
	FormType string
	// APIURL overrides the submission endpoint.
	APIURL string
	// HTTPClient overrides the HTTP client used for requests.
	HTTPClient *http.Client
}

// Client submits forms on behalf of one tenant.
type Client struct {
	clientID string
	origin   string
	formType string
	apiURL   string
	http     *http.Client
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("formclient: ClientID is required")
	}
	if cfg.Origin == "" {
		return nil, fmt.Errorf("formclient: Origin is required, the API rejects submissions without one")
	}

	c := &Client{
		clientID: cfg.ClientID,
		origin:   cfg.Origin,
		formType: cfg.FormType,
		apiURL:   cfg.APIURL,
		http:     cfg.HTTPClient,
	}
	if c.formType == "" {
		c.formType = "contact"
	}
	if c.apiURL == "" {
		c.apiURL = DefaultAPIURL
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
	}
	return c, nil
}

// FormData is the submitter-provided content of one submission.
type FormData struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Message  string         `json:"message"`
	Company  string         `json:"company,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Result is the server's success response.
type Result struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	Success bool   `json:"success"`
}

// APIError is a non-2xx response from the submission API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("formclient: submission failed: %d %s", e.StatusCode, e.Message)
}

// Submit sends one form submission.
func (c *Client) Submit(ctx context.Context, data FormData) (*Result, error) {
	payload := struct {
		FormData
		ClientID string `json:"clientId"`
		FormType string `json:"formType"`
	}{FormData: data, ClientID: c.clientID, FormType: c.formType}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("formclient: encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("formclient: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", c.origin)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("formclient: sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("formclient: decoding response: %w", err)
	}
	return &result, nil
}
