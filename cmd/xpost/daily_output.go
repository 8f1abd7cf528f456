package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/atomicfile"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/queue"
)

// DailyPost is one entry of the per-day output file generate writes and
// post consumes. A post stays in the file after publication with Posted
// set, so re-runs of post within the same day skip it.
type DailyPost struct {
	Text      string       `json:"text"`
	Type      string       `json:"type"` // rotation content type
	Slot      string       `json:"slot"`
	Time      string       `json:"time"` // "HH:MM"
	Date      string       `json:"date"`
	AccountID int          `json:"account_id"`
	Score     *queue.Score `json:"score,omitempty"`
	IsSafe    bool         `json:"is_safe"`
	Posted    bool         `json:"posted"`
	TweetID   string       `json:"tweet_id,omitempty"`
	PostedAt  string       `json:"posted_at,omitempty"`
}

func dailyOutputPath(outputDir string, day time.Time, accountID int) string {
	return filepath.Join(outputDir, "daily", fmt.Sprintf("%s_%d.json", day.Format("2006-01-02"), accountID))
}

func saveDailyPosts(path string, posts []DailyPost) error {
	return atomicfile.WriteJSON(path, posts)
}

func loadDailyPosts(path string) ([]DailyPost, error) {
	var posts []DailyPost
	if err := atomicfile.ReadJSON(path, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// markDailyPosted flags the slot's entry as posted and stamps the new
// tweet id, rewriting the file in place.
func markDailyPosted(path, slot, tweetID string) error {
	posts, err := loadDailyPosts(path)
	if err != nil {
		return err
	}
	for i := range posts {
		if posts[i].Slot == slot {
			posts[i].Posted = true
			posts[i].TweetID = tweetID
			posts[i].PostedAt = time.Now().Format(time.RFC3339)
			break
		}
	}
	return saveDailyPosts(path, posts)
}

// shouldPostNow reports whether the post's scheduled time is within
// toleranceMinutes of now.
func shouldPostNow(post DailyPost, now time.Time, toleranceMinutes int) bool {
	t, err := time.Parse("15:04", post.Time)
	if err != nil {
		return false
	}
	diff := (t.Hour()*60 + t.Minute()) - (now.Hour()*60 + now.Minute())
	if diff < 0 {
		diff = -diff
	}
	return diff <= toleranceMinutes
}

// lastDailyPostAgo reports the time since the most recent posted entry,
// or 24h when nothing was posted yet today.
func lastDailyPostAgo(posts []DailyPost, now time.Time) time.Duration {
	ago := 24 * time.Hour
	for _, p := range posts {
		if !p.Posted || p.PostedAt == "" {
			continue
		}
		if ts, err := time.Parse(time.RFC3339, p.PostedAt); err == nil {
			if d := now.Sub(ts); d < ago {
				ago = d
			}
		}
	}
	return ago
}
