package twitter

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const cloudflareRetryLimit = 3

// PostTweet posts an original tweet (optionally a reply), decoding the
// single Tweet the tweet-create endpoint returns. On an HTML challenge
// response the signed session is recreated and the request retried with
// backoff, up to cloudflareRetryLimit times.
func (c *TwitterClient) PostTweet(ctx context.Context, text string, opts *TweetOptions) (*Tweet, error) {
	req := buildRequest(text, opts)

	c.logger.WithFields(logrus.Fields{
		"account_id": c.config.AccountID,
		"endpoint":   c.config.TweetEndpoint,
		"length":     len([]rune(text)),
	}).Debug("posting tweet")

	tweet, err := c.postTweetRequest(ctx, req)
	for attempt := 1; err != nil && IsCloudflareChallenge(err) && attempt <= cloudflareRetryLimit; attempt++ {
		c.logger.WithFields(logrus.Fields{
			"account_id": c.config.AccountID,
			"attempt":    attempt,
		}).Warn("challenge page from posting backend, recreating session")

		if rerr := c.Recreate(); rerr != nil {
			return nil, rerr
		}
		timer := time.NewTimer(time.Duration(attempt) * 2 * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		tweet, err = c.postTweetRequest(ctx, req)
	}
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"account_id": c.config.AccountID,
			"error":      err.Error(),
		}).Error("failed to post tweet")
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"account_id": c.config.AccountID,
		"tweet_id":   tweet.ID,
	}).Info("posted tweet")
	return tweet, nil
}
