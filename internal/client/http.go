package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/jobline/internal/model"
	"github.com/alfredjeanlab/jobline/internal/presence"
)

// SessionHeader is the request header carrying the session id.
const SessionHeader = "X-Session-ID"

// HTTPClient implements JobsClient using the HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client

	mu        sync.RWMutex
	sessionID string
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// SetSession sets the session id sent with every request.
func (c *HTTPClient) SetSession(sessionID string) {
	c.mu.Lock()
	c.sessionID = sessionID
	c.mu.Unlock()
}

// --- Lanes ---

func (c *HTTPClient) ListLane(ctx context.Context, lane string) ([]*model.Job, error) {
	var resp struct {
		Jobs []*model.Job `json:"jobs"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/lanes/"+url.PathEscape(lane), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

func (c *HTTPClient) GetJob(ctx context.Context, id string) (*model.LaneJob, error) {
	var lj model.LaneJob
	if err := c.doJSON(ctx, http.MethodGet, jobPath(id, ""), nil, &lj); err != nil {
		return nil, err
	}
	return &lj, nil
}

// jobPath returns /v1/jobs/{id}, followed by /{action} when action is set.
func jobPath(id, action string) string {
	p := "/v1/jobs/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

type moveBody struct {
	Actor       string     `json:"actor,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (c *HTTPClient) ClaimJob(ctx context.Context, id, actor string) (*model.Job, error) {
	var job model.Job
	if err := c.doJSON(ctx, http.MethodPost, jobPath(id, "claim"), moveBody{Actor: actor}, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *HTTPClient) RejectJob(ctx context.Context, id, actor string) error {
	return c.doJSON(ctx, http.MethodPost, jobPath(id, "reject"), moveBody{Actor: actor}, nil)
}

func (c *HTTPClient) CompleteJob(ctx context.Context, id string, completedAt *time.Time, actor string) (*model.Job, error) {
	var job model.Job
	body := moveBody{Actor: actor, CompletedAt: completedAt}
	if err := c.doJSON(ctx, http.MethodPost, jobPath(id, "complete"), body, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *HTTPClient) IngestJob(ctx context.Context, job *model.Job) (*model.Job, error) {
	var created model.Job
	if err := c.doJSON(ctx, http.MethodPost, "/v1/jobs", job, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *HTTPClient) GetEvents(ctx context.Context, jobID string) ([]*model.Event, error) {
	var resp struct {
		Events []*model.Event `json:"events"`
	}
	if err := c.doJSON(ctx, http.MethodGet, jobPath(jobID, "events"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// --- Sessions ---

func (c *HTTPClient) CreateSession(ctx context.Context, identity string) (*model.Session, error) {
	var sess model.Session
	if err := c.doJSON(ctx, http.MethodPost, "/v1/sessions", map[string]string{"identity": identity}, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (c *HTTPClient) ActivateSession(ctx context.Context, sessionID, identity string) (*model.Session, error) {
	var sess model.Session
	path := "/v1/sessions/" + url.PathEscape(sessionID) + "/activate"
	if err := c.doJSON(ctx, http.MethodPost, path, map[string]string{"identity": identity}, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (c *HTTPClient) GetSession(ctx context.Context, sessionID string, wait time.Duration) (*model.Session, error) {
	path := "/v1/sessions/" + url.PathEscape(sessionID)
	if wait > 0 {
		path += "?wait=" + url.QueryEscape(wait.String())
	}
	var sess model.Session
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (c *HTTPClient) Logout(ctx context.Context, sessionID string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/sessions/"+url.PathEscape(sessionID)+"/logout", nil, nil)
}

// --- Workers ---

func (c *HTTPClient) Roster(ctx context.Context, staleThreshold time.Duration) ([]presence.Entry, error) {
	path := "/v1/workers/roster"
	if secs := int(staleThreshold.Seconds()); secs > 0 {
		path += "?stale_threshold_secs=" + strconv.Itoa(secs)
	}
	var resp struct {
		Workers []presence.Entry `json:"workers"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Workers, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server. State and Reason
// are set when the session gate rejected the request.
type APIError struct {
	StatusCode int
	Message    string
	State      string
	Reason     string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("HTTP %d: %s (%s)", e.StatusCode, e.Message, e.Reason)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded (for 204 responses).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RLock()
	if c.sessionID != "" {
		req.Header.Set(SessionHeader, c.sessionID)
	}
	c.mu.RUnlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

// decodeAPIError builds an APIError from an error response. Bodies that are
// not the server's JSON error shape are kept verbatim as the message.
func decodeAPIError(status int, body []byte) *APIError {
	var e struct {
		Error  string `json:"error"`
		State  string `json:"state"`
		Reason string `json:"reason"`
	}
	if json.Unmarshal(body, &e) != nil || e.Error == "" {
		return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
	}
	return &APIError{StatusCode: status, Message: e.Error, State: e.State, Reason: e.Reason}
}
