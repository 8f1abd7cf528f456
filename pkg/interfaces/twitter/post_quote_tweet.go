package twitter

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// PostQuote creates a quote-RT referencing quoteTweetID.
func (c *TwitterClient) PostQuote(ctx context.Context, text, quoteTweetID string) (*Tweet, error) {
	tweet, err := c.PostTweet(ctx, text, &TweetOptions{QuoteTweetID: quoteTweetID})
	if err != nil {
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{
		"account_id":     c.config.AccountID,
		"tweet_id":       tweet.ID,
		"quote_tweet_id": quoteTweetID,
	}).Debug("posted quote tweet")
	return tweet, nil
}

// IsQuoteRestricted reports whether err is the posting backend's "this
// tweet cannot be quoted" rejection: a 403 whose detail mentions
// "Quoting". Callers fall back to a text+URL embed and retry once rather
// than surfacing this as a hard failure.
func IsQuoteRestricted(err error) bool {
	ae, ok := asAPIError(err)
	if !ok || ae.statusCode != 403 {
		return false
	}
	return strings.Contains(strings.ToLower(ae.detail), "quoting") ||
		strings.Contains(strings.ToLower(ae.body), "quoting")
}

// IsCloudflareChallenge reports whether err is an HTML challenge page in
// front of the posting backend rather than a JSON API error.
func IsCloudflareChallenge(err error) bool {
	ae, ok := asAPIError(err)
	if !ok {
		return false
	}
	body := strings.ToLower(ae.body)
	return strings.Contains(body, "<html") && strings.Contains(body, "cloudflare")
}

func asAPIError(err error) (*apiError, bool) {
	ae, ok := err.(*apiError)
	return ae, ok
}

// PostQuoteWithFallback posts a quote-RT, and on a quote-restriction
// error retries once as an original post with the source URL embedded in
// the text. The bool return reports whether the fallback path was taken.
func PostQuoteWithFallback(ctx context.Context, c *TwitterClient, text, quoteTweetID, quoteURL string) (*Tweet, bool, error) {
	tweet, err := c.PostQuote(ctx, text, quoteTweetID)
	if err == nil {
		return tweet, false, nil
	}
	if !IsQuoteRestricted(err) {
		return nil, false, err
	}

	c.logger.WithFields(logrus.Fields{
		"account_id":     c.config.AccountID,
		"quote_tweet_id": quoteTweetID,
	}).Warn("quote restricted, falling back to text+URL embed")

	fallbackText := text + "\n" + quoteURL
	tweet, err = c.PostTweet(ctx, fallbackText, nil)
	if err != nil {
		return nil, true, err
	}
	return tweet, true, nil
}
