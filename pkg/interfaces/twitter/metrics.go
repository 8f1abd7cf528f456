package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

// TweetMetrics is the subset of a tweet-lookup response the dashboard
// export's metrics refresh cares about: the current engagement counters for a
// previously posted tweet.
type TweetMetrics struct {
	ID        string `json:"id"`
	Likes     int    `json:"like_count"`
	Retweets  int    `json:"retweet_count"`
	Replies   int    `json:"reply_count"`
	Quotes    int    `json:"quote_count"`
	Bookmarks int    `json:"bookmark_count"`
}

type tweetLookupResponse struct {
	Data struct {
		ID             string `json:"id"`
		PublicMetrics  struct {
			LikeCount    int `json:"like_count"`
			RetweetCount int `json:"retweet_count"`
			ReplyCount   int `json:"reply_count"`
			QuoteCount   int `json:"quote_count"`
			BookmarkCount int `json:"bookmark_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Errors []TwitterError `json:"errors,omitempty"`
}

// GetTweetMetrics looks up one posted tweet's current engagement
// counters.
func (c *TwitterClient) GetTweetMetrics(ctx context.Context, tweetID string) (*TweetMetrics, error) {
	endpoint := fmt.Sprintf("/tweets/%s?tweet.fields=public_metrics", tweetID)
	resp, err := c.makeRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var lookup tweetLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lookup); err != nil {
		return nil, fmt.Errorf("failed to decode tweet lookup response: %w", err)
	}
	if len(lookup.Errors) > 0 {
		return nil, fmt.Errorf("twitter API error: %s", lookup.Errors[0].Message)
	}

	c.logger.WithFields(logrus.Fields{
		"account_id": c.config.AccountID,
		"tweet_id":   tweetID,
	}).Debug("fetched tweet metrics")

	return &TweetMetrics{
		ID:        lookup.Data.ID,
		Likes:     lookup.Data.PublicMetrics.LikeCount,
		Retweets:  lookup.Data.PublicMetrics.RetweetCount,
		Replies:   lookup.Data.PublicMetrics.ReplyCount,
		Quotes:    lookup.Data.PublicMetrics.QuoteCount,
		Bookmarks: lookup.Data.PublicMetrics.BookmarkCount,
	}, nil
}
