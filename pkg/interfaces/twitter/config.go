package twitter

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// TwitterConfig holds one account's posting credentials plus the shared
// client tuning knobs. Each configured account loads its own set of
// TWITTER_*_<PREFIX> environment variables so a single process can drive
// several accounts side by side.
type TwitterConfig struct {
	AccountID string

	// API Authentication (OAuth 1.0a user-context, required for posting)
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string

	// API Endpoints
	BaseURL       string
	TweetEndpoint string

	// Rate Limiting / retry
	RateLimit     int
	RateWindow    int
	RetryAttempts int

	Logger *logrus.Logger
}

// NewTwitterConfig loads credentials for one account. envPrefix is an
// account-specific suffix (e.g. "MAIN", "SUB1") appended to every
// TWITTER_* variable name; an empty prefix reads the bare names, so a
// single-account deployment needs no prefix at all.
func NewTwitterConfig(accountID, envPrefix string, logger *logrus.Logger) (*TwitterConfig, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	key := func(name string) string {
		if envPrefix == "" {
			return name
		}
		return name + "_" + strings.ToUpper(envPrefix)
	}

	rateLimit, _ := strconv.Atoi(getEnvOrDefault(key("TWITTER_RATE_LIMIT"), "180"))
	rateWindow, _ := strconv.Atoi(getEnvOrDefault(key("TWITTER_RATE_WINDOW"), "15"))
	retryAttempts, _ := strconv.Atoi(getEnvOrDefault(key("TWITTER_RETRY_ATTEMPTS"), "3"))

	if logger == nil {
		logger = logrus.New()
	}

	config := &TwitterConfig{
		AccountID:         accountID,
		ConsumerKey:       os.Getenv(key("TWITTER_CONSUMER_KEY")),
		ConsumerSecret:    os.Getenv(key("TWITTER_CONSUMER_SECRET")),
		AccessToken:       os.Getenv(key("TWITTER_ACCESS_TOKEN")),
		AccessTokenSecret: os.Getenv(key("TWITTER_ACCESS_TOKEN_SECRET")),

		BaseURL:       getEnvOrDefault(key("TWITTER_API_BASE_URL"), "https://api.twitter.com/2"),
		TweetEndpoint: "/tweets",

		RateLimit:     rateLimit,
		RateWindow:    rateWindow,
		RetryAttempts: retryAttempts,

		Logger: logger,
	}

	config.Logger.WithFields(logrus.Fields{
		"account_id":          accountID,
		"consumer_key_exists": config.ConsumerKey != "",
		"base_url":            config.BaseURL,
		"rate_limit":          config.RateLimit,
	}).Debug("Twitter config initialized")

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *TwitterConfig) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}

	if c.ConsumerKey == "" || c.ConsumerSecret == "" ||
		c.AccessToken == "" || c.AccessTokenSecret == "" {
		c.Logger.WithFields(logrus.Fields{
			"account_id":                 c.AccountID,
			"consumer_key_exists":        c.ConsumerKey != "",
			"consumer_secret_exists":     c.ConsumerSecret != "",
			"access_token_exists":        c.AccessToken != "",
			"access_token_secret_exists": c.AccessTokenSecret != "",
		}).Debug("OAuth credentials validation")
		return fmt.Errorf("account %s: OAuth 1.0a credentials (consumer key/secret, access token/secret) are required for posting", c.AccountID)
	}

	if c.RateLimit < 1 {
		return fmt.Errorf("rate limit must be positive")
	}
	if c.RateWindow < 1 {
		return fmt.Errorf("rate window must be positive")
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts cannot be negative")
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://api.twitter.com/2"
	}
	if c.TweetEndpoint == "" {
		c.TweetEndpoint = "/tweets"
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEndpoint returns the full URL for a given endpoint.
func (c *TwitterConfig) GetEndpoint(endpoint string) string {
	return c.BaseURL + endpoint
}
