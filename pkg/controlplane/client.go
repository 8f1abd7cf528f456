// Package controlplane implements two-way reconciliation with a remote
// document store whose per-user sub-collections mirror the local model:
// users/{uid}/queue_decisions, users/{uid}/operation_requests,
// selection_preferences/{uid}, api_keys/{uid}, dashboard_data/{uid},
// persona_profiles/{uid}.
//
// A plain bearer-token JSON REST client: bodies are marshalled per call,
// every request carries a context-scoped timeout, and non-2xx responses
// surface as typed errors the sync layer can classify.
package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Config configures a Client.
type Config struct {
	BaseURL     string
	BearerToken string
	Logger      *logrus.Logger
}

// Client is a typed REST client over the remote document store.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *logrus.Logger
}

// New builds a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("controlplane: base URL required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.BearerToken,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}, nil
}

// apiError carries the HTTP status and body of a non-2xx response.
type apiError struct {
	statusCode int
	body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("controlplane api error: status=%d body=%s", e.statusCode, e.body)
}

// IsTransient reports whether err (as returned from Client methods) should
// be retried with backoff: 429 or 5xx.
func IsTransient(err error) bool {
	var ae *apiError
	if !asAPIError(err, &ae) {
		return false
	}
	return ae.statusCode == http.StatusTooManyRequests || ae.statusCode >= 500
}

func asAPIError(err error, target **apiError) bool {
	ae, ok := err.(*apiError)
	if !ok {
		return false
	}
	*target = ae
	return true
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("controlplane: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("controlplane: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.WithFields(logrus.Fields{"method": method, "path": path}).Debug("controlplane: request")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("controlplane: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("controlplane: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WithFields(logrus.Fields{
			"method":      method,
			"path":        path,
			"status_code": resp.StatusCode,
		}).Warn("controlplane: non-2xx response")
		return &apiError{statusCode: resp.StatusCode, body: string(respBody)}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("controlplane: decode response: %w", err)
	}
	return nil
}

// QueueDecision is one pending decision under users/{uid}/queue_decisions.
type QueueDecision struct {
	ID         string `json:"id"`
	UID        string `json:"uid"`
	TweetID    string `json:"tweet_id"`
	Action     string `json:"action"` // "approve" | "skip"
	SkipReason string `json:"skip_reason,omitempty"`
}

// GetQueueDecisions fetches pending decisions. uid empty means all users.
func (c *Client) GetQueueDecisions(ctx context.Context, uid string) ([]QueueDecision, error) {
	path := "/queue_decisions"
	if uid != "" {
		path = "/users/" + uid + "/queue_decisions"
	}
	var out struct {
		Decisions []QueueDecision `json:"decisions"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Decisions, nil
}

// MarkDecisionsProcessed deletes the given decision ids for uid so they do
// not re-apply on the next pull.
func (c *Client) MarkDecisionsProcessed(ctx context.Context, uid string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	body := struct {
		IDs []string `json:"ids"`
	}{IDs: ids}
	return c.do(ctx, http.MethodPost, "/users/"+uid+"/queue_decisions/delete", body, nil)
}

// RawPreferences is the flat document shape at selection_preferences/{uid},
// matching the dashboard's form field names.
type RawPreferences map[string]string

// GetSelectionPreferences fetches the raw flat preferences document.
func (c *Client) GetSelectionPreferences(ctx context.Context, uid string) (RawPreferences, error) {
	var raw RawPreferences
	if err := c.do(ctx, http.MethodGet, "/selection_preferences/"+uid, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// PutDashboardData writes (merges) a dashboard snapshot for uid.
func (c *Client) PutDashboardData(ctx context.Context, uid string, snapshot Snapshot) error {
	return c.do(ctx, http.MethodPut, "/dashboard_data/"+uid, snapshot, nil)
}

// APIKeys is the per-user secret bundle loaded from api_keys/{uid}.
type APIKeys struct {
	SocialDataAPIKey   string `json:"socialdata_api_key"`
	OpenAIAPIKey       string `json:"openai_api_key"`
	XBearerToken       string `json:"x_bearer_token"`
	XAPIKey            string `json:"x_api_key"`
	XAPISecret         string `json:"x_api_secret"`
	XAccessToken       string `json:"x_access_token"`
	XAccessTokenSecret string `json:"x_access_token_secret"`
}

// GetAPIKeys fetches uid's API key bundle.
func (c *Client) GetAPIKeys(ctx context.Context, uid string) (APIKeys, error) {
	var keys APIKeys
	if err := c.do(ctx, http.MethodGet, "/api_keys/"+uid, nil, &keys); err != nil {
		return APIKeys{}, err
	}
	return keys, nil
}

// Env returns the API key bundle rendered as child-process environment
// variable assignments, for operation-request subprocess isolation.
func (k APIKeys) Env() []string {
	return []string{
		"SOCIALDATA_API_KEY=" + k.SocialDataAPIKey,
		"OPENAI_API_KEY=" + k.OpenAIAPIKey,
		"X_BEARER_TOKEN=" + k.XBearerToken,
		"X_API_KEY=" + k.XAPIKey,
		"X_API_SECRET=" + k.XAPISecret,
		"X_ACCESS_TOKEN=" + k.XAccessToken,
		"X_ACCESS_TOKEN_SECRET=" + k.XAccessTokenSecret,
	}
}

// OperationRequest is one sub-document of users/{uid}/operation_requests.
type OperationRequest struct {
	ID        string   `json:"id"`
	UID       string   `json:"uid"`
	Command   string   `json:"command"`
	Args      []string `json:"args,omitempty"`
	Status    string   `json:"status"` // pending | running | completed | failed
	Stdout    string   `json:"stdout,omitempty"`
	Stderr    string   `json:"stderr,omitempty"`
	CreatedAt string   `json:"created_at,omitempty"`
}

// GetPendingOperationRequests fetches oldest-first pending operation
// requests across all users.
func (c *Client) GetPendingOperationRequests(ctx context.Context) ([]OperationRequest, error) {
	var out struct {
		Requests []OperationRequest `json:"requests"`
	}
	if err := c.do(ctx, http.MethodGet, "/operation_requests?status=pending", nil, &out); err != nil {
		return nil, err
	}
	return out.Requests, nil
}

// UpdateOperationRequest patches status and (truncated) output for a
// single operation request.
func (c *Client) UpdateOperationRequest(ctx context.Context, uid, id string, update OperationRequest) error {
	return c.do(ctx, http.MethodPatch, "/users/"+uid+"/operation_requests/"+id, update, nil)
}
