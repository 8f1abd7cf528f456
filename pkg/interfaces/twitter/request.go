package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// TweetOptions carries the optional parameters a post can set: a reply
// target, a quote target, or both are mutually exclusive in practice (the
// Generation Orchestrator only ever sets one), but the wire format allows
// either.
type TweetOptions struct {
	ReplyTo      string // in_reply_to_tweet_id
	QuoteTweetID string
}

// createTweetRequest is the tweet-create request body:
// {text, quote_tweet_id?, reply.in_reply_to_tweet_id?}.
type createTweetRequest struct {
	Text  string `json:"text"`
	Quote string `json:"quote_tweet_id,omitempty"`
	Reply *struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	} `json:"reply,omitempty"`
}

func buildRequest(text string, opts *TweetOptions) createTweetRequest {
	req := createTweetRequest{Text: text}
	if opts == nil {
		return req
	}
	if opts.QuoteTweetID != "" {
		req.Quote = opts.QuoteTweetID
	}
	if opts.ReplyTo != "" {
		req.Reply = &struct {
			InReplyToTweetID string `json:"in_reply_to_tweet_id"`
		}{InReplyToTweetID: opts.ReplyTo}
	}
	return req
}

// postTweetRequest posts a tweet-create request and decodes the single
// Tweet it returns.
func (c *TwitterClient) postTweetRequest(ctx context.Context, req createTweetRequest) (*Tweet, error) {
	resp, err := c.makeRequest(ctx, http.MethodPost, c.config.TweetEndpoint, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var tweetResp TweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&tweetResp); err != nil {
		return nil, fmt.Errorf("failed to decode tweet response: %w", err)
	}
	if len(tweetResp.Errors) > 0 {
		return nil, fmt.Errorf("twitter API error: %s", tweetResp.Errors[0].Message)
	}
	if tweetResp.Data == nil {
		return nil, fmt.Errorf("twitter API returned no tweet data")
	}
	return tweetResp.Data, nil
}
