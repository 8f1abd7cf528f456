package queue

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/atomicfile"
	"github.com/sirupsen/logrus"
)

// Store is the persistent pending/processed mapping over CandidateRecord.
// It is the sole owner of the two backing JSON files: no other component
// may read or write them directly.
type Store struct {
	mu sync.Mutex

	dir           string
	pendingPath   string
	processedPath string

	feedback *FeedbackLog
	log      *logrus.Logger
}

// NewStore opens (and, if absent, initializes) the pending/processed store
// rooted at dir, plus the feedback log rooted at feedbackDir.
func NewStore(dir, feedbackDir string, log *logrus.Logger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("queue: mkdir %s: %w", dir, err)
	}

	s := &Store{
		dir:           dir,
		pendingPath:   filepath.Join(dir, "pending_tweets.json"),
		processedPath: filepath.Join(dir, "processed_tweets.json"),
		log:           log,
	}

	fb, err := newFeedbackLog(feedbackDir, log)
	if err != nil {
		return nil, err
	}
	s.feedback = fb

	for _, p := range []string{s.pendingPath, s.processedPath} {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			if err := atomicfile.WriteJSON(p, []CandidateRecord{}); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func (s *Store) load(path string) ([]CandidateRecord, error) {
	var records []CandidateRecord
	if err := atomicfile.ReadJSON(path, &records); err != nil {
		if os.IsNotExist(err) {
			return []CandidateRecord{}, nil
		}
		s.log.WithError(err).WithField("path", path).
			Error("queue: store corrupt beyond recovery, reinitializing empty")
		return []CandidateRecord{}, nil
	}
	return records, nil
}

func (s *Store) save(path string, records []CandidateRecord) error {
	return atomicfile.WriteJSON(path, records)
}

// Add inserts record as pending. It returns false without mutating state
// if tweet_id already exists in pending or processed.
func (s *Store) Add(record CandidateRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.load(s.pendingPath)
	if err != nil {
		return false, err
	}
	processed, err := s.load(s.processedPath)
	if err != nil {
		return false, err
	}

	for _, r := range pending {
		if r.TweetID == record.TweetID {
			return false, nil
		}
	}
	for _, r := range processed {
		if r.TweetID == record.TweetID {
			return false, nil
		}
	}

	record.Status = StatusPending
	if record.AddedAt.IsZero() {
		record.AddedAt = time.Now()
	}
	pending = append(pending, record)
	if err := s.save(s.pendingPath, pending); err != nil {
		return false, err
	}
	return true, nil
}

// AddBatch adds each record in turn, returning the count actually added.
func (s *Store) AddBatch(records []CandidateRecord) (int, error) {
	added := 0
	for _, r := range records {
		ok, err := s.Add(r)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// GetPending returns all pending (un-decided) records.
func (s *Store) GetPending() ([]CandidateRecord, error) {
	return s.filterPending(func(r CandidateRecord) bool { return r.Status == StatusPending })
}

// GetApproved returns approved, not-yet-posted records.
func (s *Store) GetApproved() ([]CandidateRecord, error) {
	return s.filterPending(func(r CandidateRecord) bool { return r.Status == StatusApproved })
}

// GetGenerated returns approved records that already carry generated text.
func (s *Store) GetGenerated() ([]CandidateRecord, error) {
	return s.filterPending(func(r CandidateRecord) bool {
		return r.Status == StatusApproved && r.GeneratedText != ""
	})
}

// GetAllPending returns every record in the pending file regardless of status.
func (s *Store) GetAllPending() ([]CandidateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(s.pendingPath)
}

// GetProcessed returns every posted record, oldest first.
func (s *Store) GetProcessed() ([]CandidateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(s.processedPath)
}

func (s *Store) filterPending(pred func(CandidateRecord) bool) ([]CandidateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, err := s.load(s.pendingPath)
	if err != nil {
		return nil, err
	}
	out := make([]CandidateRecord, 0, len(pending))
	for _, r := range pending {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// GetTodayPostedCount counts processed records whose posted_at falls on
// today's local date.
func (s *Store) GetTodayPostedCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	processed, err := s.load(s.processedPath)
	if err != nil {
		return 0, err
	}
	today := time.Now().Format("2006-01-02")
	count := 0
	for _, r := range processed {
		if r.PostedAt != nil && strings.HasPrefix(r.PostedAt.Format(time.RFC3339), today) {
			count++
		}
	}
	return count, nil
}

// Approve transitions a record to approved (skipped -> approved is
// allowed, approved -> approved is a no-op) and records one feedback entry
// per distinct-from-previous transition.
func (s *Store) Approve(tweetID string) (bool, error) {
	return s.transition(tweetID, StatusApproved, func(r *CandidateRecord) {
		r.Status = StatusApproved
	}, "approved")
}

// ApproveAllPending bulk-approves every currently pending record, returning
// the count approved. No per-item feedback is emitted: this is a bulk
// operator action, not a per-candidate decision.
func (s *Store) ApproveAllPending() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, err := s.load(s.pendingPath)
	if err != nil {
		return 0, err
	}
	count := 0
	for i := range pending {
		if pending[i].Status == StatusPending {
			pending[i].Status = StatusApproved
			count++
		}
	}
	if err := s.save(s.pendingPath, pending); err != nil {
		return 0, err
	}
	return count, nil
}

// Skip is shorthand for SkipWithReason with no reason or note.
func (s *Store) Skip(tweetID string) (bool, error) {
	return s.SkipWithReason(tweetID, "", "")
}

// SkipWithReason transitions a record to skipped, recording an operator
// reason and free-text note, and records one feedback entry.
func (s *Store) SkipWithReason(tweetID string, reason SkipReason, note string) (bool, error) {
	return s.transition(tweetID, StatusSkipped, func(r *CandidateRecord) {
		r.Status = StatusSkipped
		r.SkipReason = reason
		r.FeedbackNote = note
	}, "skipped")
}

func (s *Store) transition(tweetID string, target Status, mutate func(*CandidateRecord), decision string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.load(s.pendingPath)
	if err != nil {
		return false, err
	}
	var found *CandidateRecord
	for i := range pending {
		if pending[i].TweetID == tweetID {
			if pending[i].Status == target {
				// Repeating the same decision is a no-op: no write, no
				// feedback entry.
				return true, nil
			}
			mutate(&pending[i])
			found = &pending[i]
			break
		}
	}
	if found == nil {
		return false, nil
	}
	if err := s.save(s.pendingPath, pending); err != nil {
		return false, err
	}
	if err := s.feedback.record(*found, decision); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes a record from the pending store entirely (no feedback
// entry; this is an administrative action, not a curation decision).
func (s *Store) Remove(tweetID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, err := s.load(s.pendingPath)
	if err != nil {
		return false, err
	}
	out := pending[:0:0]
	removed := false
	for _, r := range pending {
		if r.TweetID == tweetID {
			removed = true
			continue
		}
		out = append(out, r)
	}
	if !removed {
		return false, nil
	}
	return true, s.save(s.pendingPath, out)
}

// SetPreferenceScore records the preference-match score and its matched
// topics/keywords on a pending record.
func (s *Store) SetPreferenceScore(tweetID string, score float64, topics, keywords []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, err := s.load(s.pendingPath)
	if err != nil {
		return err
	}
	for i := range pending {
		if pending[i].TweetID == tweetID {
			pending[i].PreferenceMatchScore = score
			pending[i].MatchedTopics = topics
			pending[i].MatchedKeywords = keywords
			break
		}
	}
	return s.save(s.pendingPath, pending)
}

// SetGenerated records the generated text, template, score, and slot
// assignment for a pending/approved record.
func (s *Store) SetGenerated(tweetID string, g Generated) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, err := s.load(s.pendingPath)
	if err != nil {
		return err
	}
	for i := range pending {
		if pending[i].TweetID == tweetID {
			pending[i].GeneratedText = g.Text
			pending[i].TemplateID = g.TemplateID
			pending[i].GenScore = g.Score
			pending[i].PostType = g.PostType
			pending[i].SlotID = g.SlotID
			pending[i].ScheduledAt = g.TimeLabel
			break
		}
	}
	return s.save(s.pendingPath, pending)
}

// MarkPosted moves a record from pending to processed with its posted id
// and timestamp.
func (s *Store) MarkPosted(tweetID, postedTweetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.load(s.pendingPath)
	if err != nil {
		return err
	}
	processed, err := s.load(s.processedPath)
	if err != nil {
		return err
	}

	idx := -1
	for i, r := range pending {
		if r.TweetID == tweetID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("queue: mark_posted: %s not found in pending", tweetID)
	}

	now := time.Now()
	rec := pending[idx]
	rec.Status = StatusPosted
	rec.PostedTweetID = postedTweetID
	rec.PostedAt = &now

	processed = append(processed, rec)
	pending = append(pending[:idx], pending[idx+1:]...)

	if err := s.save(s.pendingPath, pending); err != nil {
		return err
	}
	return s.save(s.processedPath, processed)
}

// Stats reports queue counters, including today's posted count.
type Stats struct {
	Pending     int `json:"pending"`
	Approved    int `json:"approved"`
	Skipped     int `json:"skipped"`
	PostedTotal int `json:"posted_total"`
	PostedToday int `json:"posted_today"`
}

// Stats returns current queue counters.
func (s *Store) Stats() (Stats, error) {
	s.mu.Lock()
	pending, err := s.load(s.pendingPath)
	if err != nil {
		s.mu.Unlock()
		return Stats{}, err
	}
	processed, err := s.load(s.processedPath)
	if err != nil {
		s.mu.Unlock()
		return Stats{}, err
	}
	s.mu.Unlock()

	var st Stats
	for _, r := range pending {
		switch r.Status {
		case StatusPending:
			st.Pending++
		case StatusApproved:
			st.Approved++
		case StatusSkipped:
			st.Skipped++
		}
	}
	st.PostedTotal = len(processed)
	todayCount, err := s.GetTodayPostedCount()
	if err != nil {
		return st, err
	}
	st.PostedToday = todayCount
	return st, nil
}

// Cleanup removes processed records older than days (by posted_at, falling
// back to added_at).
func (s *Store) Cleanup(days int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	processed, err := s.load(s.processedPath)
	if err != nil {
		return err
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	kept := processed[:0:0]
	for _, r := range processed {
		ts := r.AddedAt
		if r.PostedAt != nil {
			ts = *r.PostedAt
		}
		if !ts.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	return s.save(s.processedPath, kept)
}

// FeedbackStats exposes the aggregated counters accumulated by the
// feedback log, for the dashboard snapshot and PDCA Updater.
func (s *Store) FeedbackStats() (FeedbackStats, error) {
	return s.feedback.stats()
}
