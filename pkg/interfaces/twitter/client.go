package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ClientOption allows for customization of the client.
type ClientOption func(*TwitterClient)

type TwitterClient struct {
	config  *TwitterConfig
	auth    *Authenticator
	logger  *logrus.Logger
	limiter *rate.Limiter
}

// NewTwitterClient creates a new Twitter API posting client for one account.
// It bounds outbound requests to config.RateLimit calls per
// config.RateWindow minutes.
func NewTwitterClient(config *TwitterConfig, opts ...ClientOption) (*TwitterClient, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	auth, err := NewAuthenticator(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}

	window := time.Duration(config.RateWindow) * time.Minute
	if window <= 0 {
		window = 15 * time.Minute
	}
	every := window / time.Duration(config.RateLimit)

	client := &TwitterClient{
		config:  config,
		auth:    auth,
		logger:  config.Logger,
		limiter: rate.NewLimiter(rate.Every(every), config.RateLimit),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Recreate closes out the current OAuth1-signed HTTP client and builds a
// fresh one from the same credentials, used after a Cloudflare-flavored
// challenge response to start over with a clean session.
func (c *TwitterClient) Recreate() error {
	auth, err := NewAuthenticator(c.config)
	if err != nil {
		return fmt.Errorf("failed to recreate authenticator: %w", err)
	}
	c.auth = auth
	return nil
}

// handleResponse checks for API errors in the response.
func (c *TwitterClient) handleResponse(resp *http.Response) error {
	c.logger.WithFields(logrus.Fields{
		"account_id":  c.config.AccountID,
		"status_code": resp.StatusCode,
	}).Debug("received API response")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}

	var errResp struct {
		Errors []TwitterError `json:"errors"`
		Detail string         `json:"detail"`
		Title  string         `json:"title"`
		Status int            `json:"status"`
	}
	if jsonErr := json.Unmarshal(body, &errResp); jsonErr != nil {
		return &apiError{statusCode: resp.StatusCode, body: string(body)}
	}

	if len(errResp.Errors) > 0 {
		c.logger.WithFields(logrus.Fields{
			"account_id":  c.config.AccountID,
			"status_code": resp.StatusCode,
			"error_code":  errResp.Errors[0].Code,
			"message":     errResp.Errors[0].Message,
		}).Error("twitter API error")
		return &apiError{statusCode: resp.StatusCode, body: string(body), detail: errResp.Errors[0].Message}
	}
	if errResp.Detail != "" {
		return &apiError{statusCode: resp.StatusCode, body: string(body), detail: errResp.Detail}
	}

	return &apiError{statusCode: resp.StatusCode, body: string(body)}
}

// apiError carries the HTTP status and raw detail so callers (the
// quote-RT fallback in particular) can branch on response content
// without re-parsing the body themselves.
type apiError struct {
	statusCode int
	body       string
	detail     string
}

func (e *apiError) Error() string {
	if e.detail != "" {
		return fmt.Sprintf("twitter api error: status=%d detail=%s", e.statusCode, e.detail)
	}
	return fmt.Sprintf("twitter api error: status=%d body=%s", e.statusCode, e.body)
}

func (c *TwitterClient) handleRateLimits(resp *http.Response) error {
	if resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}

	endpointReset := parseInt64Header(resp.Header.Get("x-rate-limit-reset"))
	dailyReset := parseInt64Header(resp.Header.Get("x-user-limit-24hour-reset"))

	var resetTime time.Time
	if endpointReset > dailyReset {
		resetTime = time.Unix(endpointReset, 0)
	} else {
		resetTime = time.Unix(dailyReset, 0)
	}
	waitDuration := time.Until(resetTime)

	c.logger.WithFields(logrus.Fields{
		"account_id":    c.config.AccountID,
		"reset_time":    resetTime.Format(time.RFC3339),
		"wait_duration": waitDuration.Round(time.Second),
	}).Warning("rate limit exceeded")

	return fmt.Errorf("rate limit exceeded, reset in %v at %v",
		waitDuration.Round(time.Second), resetTime.Format(time.RFC3339))
}

func (c *TwitterClient) makeRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	fullURL := c.config.BaseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.WithFields(logrus.Fields{
		"account_id": c.config.AccountID,
		"method":     method,
		"url":        fullURL,
	}).Debug("making request to Twitter API")

	resp, err := c.auth.GetClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		if err := c.handleRateLimits(resp); err != nil {
			resp.Body.Close()
			return nil, err
		}
	}

	if err := c.handleResponse(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp, nil
}

func parseIntHeader(value string) int {
	if value == "" {
		return 0
	}
	i, _ := strconv.Atoi(value)
	return i
}

func parseInt64Header(value string) int64 {
	if value == "" {
		return 0
	}
	i, _ := strconv.ParseInt(value, 10, 64)
	return i
}
