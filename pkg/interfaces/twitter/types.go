package twitter

import "fmt"

// Tweet is the subset of the v2 Tweet object the posting flow reads back:
// the object id/text, plus the handful of fields useful for logging and
// thread bookkeeping.
type Tweet struct {
	ID               string `json:"id"`
	Text             string `json:"text"`
	AuthorID         string `json:"author_id,omitempty"`
	ConversationID   string `json:"conversation_id,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
	ReferencedTweets []struct {
		Type string `json:"type"` // "retweeted", "quoted", or "replied_to"
		ID   string `json:"id"`
	} `json:"referenced_tweets,omitempty"`
}

// TweetResponse is the tweet-create endpoint's response envelope:
// {"data": {...}} on success, or {"errors": [...]} / {"detail": "..."} on
// failure.
type TweetResponse struct {
	Data   *Tweet         `json:"data,omitempty"`
	Errors []TwitterError `json:"errors,omitempty"`
}

// TwitterError represents an error entry returned by the Twitter API.
type TwitterError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *TwitterError) Error() string {
	return fmt.Sprintf("Twitter API error %d: %s", e.Code, e.Message)
}
