package queue

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/atomicfile"
	"github.com/sirupsen/logrus"
)

// FeedbackEntry is one append-only audit record of an operator decision.
type FeedbackEntry struct {
	TweetID              string     `json:"tweet_id"`
	AuthorUsername       string     `json:"author_username"`
	Decision             string     `json:"decision"` // "approved" | "skipped"
	SkipReason           SkipReason `json:"skip_reason,omitempty"`
	FeedbackNote         string     `json:"feedback_note,omitempty"`
	PreferenceMatchScore float64    `json:"preference_match_score"`
	MatchedTopics        []string   `json:"matched_topics,omitempty"`
	MatchedKeywords      []string   `json:"matched_keywords,omitempty"`
	Likes                int        `json:"likes"`
	DecidedAt            time.Time  `json:"decided_at"`
}

// CountPair tracks approved/skipped counts for one bucket (source, topic,
// or keyword).
type CountPair struct {
	Approved int `json:"approved"`
	Skipped  int `json:"skipped"`
}

// FeedbackStats is the aggregated view stored alongside the entry log,
// updated incrementally on every recorded decision.
type FeedbackStats struct {
	Total         int                  `json:"total"`
	Approved      int                  `json:"approved"`
	Skipped       int                  `json:"skipped"`
	ApprovalRate  float64              `json:"approval_rate"`
	BySource      map[string]CountPair `json:"by_source"`
	ByTopic       map[string]CountPair `json:"by_topic"`
	ByKeyword     map[string]CountPair `json:"by_keyword"`
	ByReason      map[string]int       `json:"by_reason"`
}

type feedbackFile struct {
	Entries []FeedbackEntry `json:"entries"`
	Stats   FeedbackStats   `json:"stats"`
}

// FeedbackLog owns data/feedback/selection_feedback.json.
type FeedbackLog struct {
	mu   sync.Mutex
	path string
	log  *logrus.Logger
}

func newFeedbackLog(dir string, log *logrus.Logger) (*FeedbackLog, error) {
	fb := &FeedbackLog{
		path: filepath.Join(dir, "selection_feedback.json"),
		log:  log,
	}
	return fb, nil
}

func emptyStats() FeedbackStats {
	return FeedbackStats{
		BySource:  map[string]CountPair{},
		ByTopic:   map[string]CountPair{},
		ByKeyword: map[string]CountPair{},
		ByReason:  map[string]int{},
	}
}

func (f *FeedbackLog) load() (feedbackFile, error) {
	var ff feedbackFile
	if err := atomicfile.ReadJSON(f.path, &ff); err != nil {
		ff = feedbackFile{Entries: []FeedbackEntry{}, Stats: emptyStats()}
		return ff, nil
	}
	if ff.Stats.BySource == nil {
		ff.Stats.BySource = map[string]CountPair{}
	}
	if ff.Stats.ByTopic == nil {
		ff.Stats.ByTopic = map[string]CountPair{}
	}
	if ff.Stats.ByKeyword == nil {
		ff.Stats.ByKeyword = map[string]CountPair{}
	}
	if ff.Stats.ByReason == nil {
		ff.Stats.ByReason = map[string]int{}
	}
	return ff, nil
}

// record appends one feedback entry for a curation decision and updates
// the aggregated counters in the same write.
func (f *FeedbackLog) record(item CandidateRecord, decision string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	ff, err := f.load()
	if err != nil {
		return err
	}

	entry := FeedbackEntry{
		TweetID:              item.TweetID,
		AuthorUsername:       item.AuthorUsername,
		Decision:             decision,
		SkipReason:           item.SkipReason,
		FeedbackNote:         item.FeedbackNote,
		PreferenceMatchScore: item.PreferenceMatchScore,
		MatchedTopics:        item.MatchedTopics,
		MatchedKeywords:      item.MatchedKeywords,
		Likes:                item.Likes,
		DecidedAt:            time.Now(),
	}
	ff.Entries = append(ff.Entries, entry)

	st := &ff.Stats
	st.Total++
	switch decision {
	case "approved":
		st.Approved++
	case "skipped":
		st.Skipped++
	}
	if st.Total > 0 {
		st.ApprovalRate = round2(float64(st.Approved) / float64(st.Total))
	}

	source := item.AuthorUsername
	if source == "" {
		source = "unknown"
	}
	bumpPair(st.BySource, source, decision)

	for _, topic := range item.MatchedTopics {
		bumpPair(st.ByTopic, topic, decision)
	}
	for _, kw := range item.MatchedKeywords {
		bumpPair(st.ByKeyword, kw, decision)
	}
	if decision == "skipped" && item.SkipReason != "" {
		st.ByReason[string(item.SkipReason)]++
	}

	return atomicfile.WriteJSON(f.path, ff)
}

func bumpPair(m map[string]CountPair, key, decision string) {
	p := m[key]
	switch decision {
	case "approved":
		p.Approved++
	case "skipped":
		p.Skipped++
	}
	m[key] = p
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func (f *FeedbackLog) stats() (FeedbackStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ff, err := f.load()
	if err != nil {
		return FeedbackStats{}, fmt.Errorf("queue: feedback stats: %w", err)
	}
	return ff.Stats, nil
}
