// Package normalize maps heterogeneous candidate payloads, a manually
// pasted source URL or a raw search-API hit, onto the one CandidateRecord
// shape the queue store understands. Candidates come in two variants, a
// manually pasted URL or a raw search-API payload, and the two entry
// points dispatch on that.
package normalize

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/queue"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/xerrors"
)

// Source is the sum type the Normalizer dispatches on.
type Source interface {
	isSource()
}

// URLSource is a manually-added candidate identified by its source-platform URL.
type URLSource struct {
	URL  string
	Memo string
}

func (URLSource) isSource() {}

// APISource is a best-effort candidate from the candidate-feed backend,
// in either legacy or v2 field shape.
type APISource struct {
	Payload map[string]any
}

func (APISource) isSource() {}

var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(?:www\.)?(?:x\.com|twitter\.com|mobile\.twitter\.com)/([^/]+)/status/(\d+)`),
	regexp.MustCompile(`^https?://(?:www\.)?vxtwitter\.com/([^/]+)/status/(\d+)`),
	regexp.MustCompile(`^https?://(?:www\.)?fxtwitter\.com/([^/]+)/status/(\d+)`),
}

// IsValidTweetURL is a cheap pre-filter: does raw look like a tweet URL
// at all?
func IsValidTweetURL(raw string) bool {
	_, _, err := ParseURL(raw)
	return err == nil
}

// ParseURL extracts (username, tweetID) from a supported source URL,
// stripping any query string first. It returns xerrors.ErrInvalidSource on
// a non-matching URL.
func ParseURL(raw string) (username, tweetID string, err error) {
	if idx := strings.Index(raw, "?"); idx != -1 {
		raw = raw[:idx]
	}
	for _, pat := range urlPatterns {
		if m := pat.FindStringSubmatch(raw); m != nil {
			return m[1], m[2], nil
		}
	}
	return "", "", fmt.Errorf("%w: %s", xerrors.ErrInvalidSource, raw)
}

// BuildURL is the inverse of ParseURL.
func BuildURL(username, tweetID string) string {
	return fmt.Sprintf("https://x.com/%s/status/%s", username, tweetID)
}

// FromURL builds a CandidateRecord from a manually supplied source URL.
func FromURL(src URLSource) (queue.CandidateRecord, error) {
	username, tweetID, err := ParseURL(src.URL)
	if err != nil {
		return queue.CandidateRecord{}, err
	}
	if _, err := url.Parse(src.URL); err != nil {
		return queue.CandidateRecord{}, fmt.Errorf("%w: %s", xerrors.ErrInvalidSource, src.URL)
	}
	return queue.CandidateRecord{
		TweetID:        tweetID,
		AuthorUsername: username,
		SourceURL:      BuildURL(username, tweetID),
		Source:         "manual",
		FeedbackNote:   src.Memo,
		CollectedAt:    time.Now(),
	}, nil
}

// FromAPIData maps a search-API hit (legacy or v2 shape) onto a
// CandidateRecord.
func FromAPIData(src APISource) (queue.CandidateRecord, error) {
	p := src.Payload

	tweetID := firstString(p, "id_str", "id", "tweet_id")
	if tweetID == "" {
		return queue.CandidateRecord{}, fmt.Errorf("%w: missing tweet id", xerrors.ErrInvalidSource)
	}

	text := firstString(p, "full_text", "text")

	username := ""
	authorName := ""
	if user, ok := p["user"].(map[string]any); ok {
		username = firstString(user, "screen_name", "username")
		authorName = firstString(user, "name")
	}
	if username == "" {
		username = firstString(p, "author_username", "username")
	}
	if authorName == "" {
		authorName = firstString(p, "author_name", "name")
	}

	likes := firstInt(p, "favorite_count", "like_count")
	retweets := firstInt(p, "retweet_count")
	replies := firstInt(p, "reply_count")
	quotes := firstInt(p, "quote_count")
	bookmarks := firstInt(p, "bookmark_count")

	if metrics, ok := p["public_metrics"].(map[string]any); ok {
		if likes == 0 {
			likes = asInt(metrics["like_count"])
		}
		if retweets == 0 {
			retweets = asInt(metrics["retweet_count"])
		}
		if replies == 0 {
			replies = asInt(metrics["reply_count"])
		}
		if quotes == 0 {
			quotes = asInt(metrics["quote_count"])
		}
		if bookmarks == 0 {
			bookmarks = asInt(metrics["bookmark_count"])
		}
	}

	lang := firstString(p, "lang")

	return queue.CandidateRecord{
		TweetID:        tweetID,
		AuthorUsername: username,
		AuthorName:     authorName,
		Text:           text,
		Lang:           lang,
		Likes:          likes,
		Retweets:       retweets,
		Replies:        replies,
		Quotes:         quotes,
		Bookmarks:      bookmarks,
		SourceURL:      BuildURL(username, tweetID),
		Source:         "api",
		CollectedAt:    time.Now(),
	}, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func firstInt(m map[string]any, keys ...string) int {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if n := asInt(v); n != 0 {
				return n
			}
		}
	}
	return 0
}

func asInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case string:
		n, _ := strconv.Atoi(t)
		return n
	default:
		return 0
	}
}
