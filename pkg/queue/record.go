// Package queue implements the candidate queue state machine: the
// persistent pending/processed stores, their atomic-rename discipline, and
// the feedback log each curation decision appends to.
package queue

import "time"

// Status is the curation state of a CandidateRecord.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusSkipped  Status = "skipped"
	StatusPosted   Status = "posted"
)

// SkipReason enumerates the operator-facing reasons a candidate can be
// skipped.
type SkipReason string

const (
	SkipTopicMismatch   SkipReason = "topic_mismatch"
	SkipSourceUntrusted SkipReason = "source_untrusted"
	SkipTooOld          SkipReason = "too_old"
	SkipLowQuality      SkipReason = "low_quality"
	SkipOffBrand        SkipReason = "off_brand"
	SkipOther           SkipReason = "other"
)

// Score is the rubric-shaped result attached to a generated post. It is
// stored verbatim inside CandidateRecord so the dashboard can render it
// without recomputing anything.
type Score struct {
	Total       float64        `json:"total"`
	Hook        int            `json:"hook"`
	Specificity int            `json:"specificity"`
	Humanity    int            `json:"humanity"`
	Structure   int            `json:"structure"`
	CTA         int            `json:"cta"`
	Penalty     int            `json:"penalty"`
	Details     map[string]any `json:"details,omitempty"`
}

// CandidateRecord is one row of the queue.
type CandidateRecord struct {
	// Origin.
	TweetID          string    `json:"tweet_id"`
	AuthorUsername   string    `json:"author_username"`
	AuthorName       string    `json:"author_name"`
	Text             string    `json:"text"`
	Lang             string    `json:"lang,omitempty"`
	Likes            int       `json:"likes"`
	Retweets         int       `json:"retweets"`
	Replies          int       `json:"replies"`
	Quotes           int       `json:"quotes"`
	Bookmarks        int       `json:"bookmarks"`
	SourceURL        string    `json:"source_url"`
	Source           string    `json:"source"` // "manual" | "api" | ...
	CollectedAt      time.Time `json:"collected_at"`

	// Curation state.
	Status       Status     `json:"status"`
	AddedAt      time.Time  `json:"added_at"`
	SkipReason   SkipReason `json:"skip_reason,omitempty"`
	FeedbackNote string     `json:"feedback_note,omitempty"`

	// Scoring.
	PreferenceMatchScore float64  `json:"preference_match_score"`
	MatchedTopics        []string `json:"matched_topics,omitempty"`
	MatchedKeywords      []string `json:"matched_keywords,omitempty"`

	// Generation.
	GeneratedText  string     `json:"generated_text"`
	TemplateID     string     `json:"template_id,omitempty"`
	GenScore       *Score     `json:"score,omitempty"`
	PostType       string     `json:"post_type,omitempty"` // "quote_rt" | "original"
	SlotID         string     `json:"slot_id,omitempty"`
	ScheduledAt    string     `json:"scheduled_at,omitempty"` // "HH:MM"
	PostedTweetID  string     `json:"posted_tweet_id,omitempty"`
	PostedAt       *time.Time `json:"posted_at,omitempty"`
}

// Generated carries everything SetGenerated stamps on a record: the text
// and template it came from, its rubric score, and the planner slot it
// was assigned to.
type Generated struct {
	Text       string
	TemplateID string
	Score      *Score
	PostType   string
	SlotID     string
	TimeLabel  string
}
