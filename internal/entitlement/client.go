// Package entitlement talks to the external billing and identity services
// over HTTP/JSON: entitlement verification for the session gate and logout.
package entitlement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/alfredjeanlab/jobline/internal/model"
)

// Error is a non-success answer from an external service. Message is the
// human-readable explanation returned by the service, if any.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Client verifies entitlements against GET {baseURL}/v1/entitlements/{identity}.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates an entitlement client. When token is non-empty it is sent
// as a bearer token on every request.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Verify asks whether identity's entitlement has expired. Deadlines come from ctx.
func (c *Client) Verify(ctx context.Context, identity string) (model.Entitlement, error) {
	var ent model.Entitlement
	if identity == "" {
		return ent, errors.New("identity is required")
	}
	var body struct {
		IsExpired *bool  `json:"is_expired"`
		Message   string `json:"message"`
	}
	if err := doJSON(ctx, c.httpClient, http.MethodGet, c.baseURL+"/v1/entitlements/"+url.PathEscape(identity), c.token, nil, &body); err != nil {
		return ent, err
	}
	if body.IsExpired == nil {
		return ent, errors.New("malformed entitlement response: missing is_expired")
	}
	ent.IsExpired = *body.IsExpired
	ent.Message = body.Message
	return ent, nil
}

// Auth ends sessions at the identity provider via POST {baseURL}/v1/logout.
// A nil *Auth, or one with an empty base URL, logs out locally only.
type Auth struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewAuth(baseURL, token string) *Auth {
	return &Auth{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

func (a *Auth) Logout(ctx context.Context, identity string) error {
	if a == nil || a.baseURL == "" {
		return nil
	}
	req := map[string]string{"identity": identity}
	return doJSON(ctx, a.httpClient, http.MethodPost, a.baseURL+"/v1/logout", a.token, req, nil)
}

func doJSON(ctx context.Context, hc *http.Client, method, target, token string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &errResp) == nil {
			switch {
			case errResp.Message != "":
				msg = errResp.Message
			case errResp.Error != "":
				msg = errResp.Error
			}
		}
		return &Error{StatusCode: resp.StatusCode, Message: msg}
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
