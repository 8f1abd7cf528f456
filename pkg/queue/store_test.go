package queue

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	s, err := NewStore(filepath.Join(dir, "queue"), filepath.Join(dir, "feedback"), log)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

// Adding the same tweet_id twice leaves pending=1; the second call
// reports added=false without mutating state.
func TestAddDedup(t *testing.T) {
	s := testStore(t)
	rec := CandidateRecord{TweetID: "12345", AuthorUsername: "sama", Text: "hello"}

	added, err := s.Add(rec)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !added {
		t.Fatalf("expected first Add to succeed")
	}

	added2, err := s.Add(rec)
	if err != nil {
		t.Fatalf("Add (dup): %v", err)
	}
	if added2 {
		t.Fatalf("expected duplicate Add to return false")
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Pending != 1 {
		t.Fatalf("expected pending=1, got %d", stats.Pending)
	}
}

// tweet_id is unique across pending and processed: an id already
// archived in processed cannot be re-added.
func TestAddRejectsIDAlreadyProcessed(t *testing.T) {
	s := testStore(t)
	rec := CandidateRecord{TweetID: "999", AuthorUsername: "x", Text: "t", Status: StatusApproved, GeneratedText: "g"}
	if _, err := s.Add(rec); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Approve("999"); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkPosted("999", "posted-1"); err != nil {
		t.Fatal(err)
	}

	added, err := s.Add(CandidateRecord{TweetID: "999", AuthorUsername: "x", Text: "t2"})
	if err != nil {
		t.Fatal(err)
	}
	if added {
		t.Fatalf("expected Add to reject a tweet_id already in processed")
	}
}

// Curation transitions: skipped -> approved allowed, approved ->
// approved is a no-op, approved -> skipped allowed.
func TestCurationTransitions(t *testing.T) {
	s := testStore(t)
	if _, err := s.Add(CandidateRecord{TweetID: "1", AuthorUsername: "a", Text: "t"}); err != nil {
		t.Fatal(err)
	}

	if ok, err := s.Skip("1"); err != nil || !ok {
		t.Fatalf("Skip: ok=%v err=%v", ok, err)
	}
	if ok, err := s.Approve("1"); err != nil || !ok {
		t.Fatalf("skipped->approved should be allowed: ok=%v err=%v", ok, err)
	}
	if ok, err := s.Approve("1"); err != nil || !ok {
		t.Fatalf("approved->approved should be a no-op success: ok=%v err=%v", ok, err)
	}
	if ok, err := s.Skip("1"); err != nil || !ok {
		t.Fatalf("approved->skipped should be allowed: ok=%v err=%v", ok, err)
	}

	stats, err := s.FeedbackStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 3 {
		t.Fatalf("expected 3 feedback entries (one per distinct transition, none for the no-op), got %d", stats.Total)
	}
}

// Approve applied twice appends one feedback entry for the first call
// only, and does not error.
func TestApproveIdempotence(t *testing.T) {
	s := testStore(t)
	if _, err := s.Add(CandidateRecord{TweetID: "42", AuthorUsername: "a", Text: "t"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Approve("42"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Approve("42"); err != nil {
		t.Fatal(err)
	}
	pending, err := s.GetApproved()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Status != StatusApproved {
		t.Fatalf("expected exactly one approved record, got %+v", pending)
	}
}

// Posted records carry posted_tweet_id and posted_at, and move from
// pending to processed.
func TestMarkPosted(t *testing.T) {
	s := testStore(t)
	if _, err := s.Add(CandidateRecord{TweetID: "7", AuthorUsername: "a", Text: "t"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Approve("7"); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkPosted("7", "remote-id-7"); err != nil {
		t.Fatal(err)
	}

	processed, err := s.GetProcessed()
	if err != nil {
		t.Fatal(err)
	}
	if len(processed) != 1 {
		t.Fatalf("expected one processed record, got %d", len(processed))
	}
	rec := processed[0]
	if rec.Status != StatusPosted || rec.PostedTweetID != "remote-id-7" || rec.PostedAt == nil {
		t.Fatalf("expected posted record with id+timestamp, got %+v", rec)
	}

	allPending, err := s.GetAllPending()
	if err != nil {
		t.Fatal(err)
	}
	if len(allPending) != 0 {
		t.Fatalf("expected pending store to be emptied after mark_posted, got %d", len(allPending))
	}
}

func TestSetGeneratedStampsSlotAssignment(t *testing.T) {
	s := testStore(t)
	if _, err := s.Add(CandidateRecord{TweetID: "8", AuthorUsername: "a", Text: "t"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Approve("8"); err != nil {
		t.Fatal(err)
	}
	err := s.SetGenerated("8", Generated{
		Text:       "generated comment",
		TemplateID: "translate_comment",
		PostType:   "quote_rt",
		SlotID:     "noon",
		TimeLabel:  "12:07",
	})
	if err != nil {
		t.Fatal(err)
	}
	generated, err := s.GetGenerated()
	if err != nil {
		t.Fatal(err)
	}
	if len(generated) != 1 {
		t.Fatalf("expected one generated record, got %d", len(generated))
	}
	rec := generated[0]
	if rec.PostType != "quote_rt" || rec.SlotID != "noon" || rec.ScheduledAt != "12:07" {
		t.Fatalf("expected slot assignment persisted on the record, got %+v", rec)
	}
}

func TestSkipWithReasonRecordsNoteAndReason(t *testing.T) {
	s := testStore(t)
	if _, err := s.Add(CandidateRecord{TweetID: "3", AuthorUsername: "a", Text: "t"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SkipWithReason("3", SkipTopicMismatch, "not on-brand"); err != nil {
		t.Fatal(err)
	}
	pending, err := s.GetAllPending()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].SkipReason != SkipTopicMismatch || pending[0].FeedbackNote != "not on-brand" {
		t.Fatalf("unexpected record: %+v", pending)
	}
}

func TestCleanupRemovesOldProcessed(t *testing.T) {
	s := testStore(t)
	if _, err := s.Add(CandidateRecord{TweetID: "5", AuthorUsername: "a", Text: "t"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Approve("5"); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkPosted("5", "r5"); err != nil {
		t.Fatal(err)
	}
	if err := s.Cleanup(0); err != nil {
		t.Fatal(err)
	}
	processed, err := s.GetProcessed()
	if err != nil {
		t.Fatal(err)
	}
	if len(processed) != 0 {
		t.Fatalf("expected Cleanup(0) to drop the just-posted record (posted before the cutoff), got %d", len(processed))
	}
}
