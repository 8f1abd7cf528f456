package twitter

import (
	"fmt"
	"net/http"
	"time"

	"github.com/mrjones/oauth"
	"github.com/sirupsen/logrus"
)

const (
	RequestTokenURL   = "https://api.twitter.com/oauth/request_token"
	AuthorizeTokenURL = "https://api.twitter.com/oauth/authorize"
	AccessTokenURL    = "https://api.twitter.com/oauth/access_token"
)

// Authenticator wraps an OAuth 1.0a user-context HTTP client. Posting
// tweets requires user-context credentials, so there is no bearer-token/
// app-only path here.
type Authenticator struct {
	client            *http.Client
	consumerKey       string
	consumerSecret    string
	accessToken       string
	accessTokenSecret string
}

func NewAuthenticator(config *TwitterConfig) (*Authenticator, error) {
	log := config.Logger.WithFields(logrus.Fields{
		"component":  "Authenticator",
		"account_id": config.AccountID,
	})

	consumer := oauth.NewConsumer(config.ConsumerKey, config.ConsumerSecret, oauth.ServiceProvider{
		RequestTokenUrl:   RequestTokenURL,
		AuthorizeTokenUrl: AuthorizeTokenURL,
		AccessTokenUrl:    AccessTokenURL,
	})

	consumer.HttpClient = &http.Client{
		Timeout: 30 * time.Second,
	}

	token := oauth.AccessToken{
		Token:  config.AccessToken,
		Secret: config.AccessTokenSecret,
	}

	client, err := consumer.MakeHttpClient(&token)
	if err != nil {
		log.WithError(err).Error("failed to create OAuth client")
		return nil, fmt.Errorf("failed to create OAuth client: %w", err)
	}

	log.Debug("user authenticator created")

	return &Authenticator{
		client:            client,
		consumerKey:       config.ConsumerKey,
		consumerSecret:    config.ConsumerSecret,
		accessToken:       config.AccessToken,
		accessTokenSecret: config.AccessTokenSecret,
	}, nil
}

func (a *Authenticator) GetClient() *http.Client {
	return a.client
}
