package controlplane

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/preference"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/queue"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestMapPreferencesToLocal(t *testing.T) {
	g := gomega.NewWithT(t)

	raw := RawPreferences{
		"weekly_focus":        "focus on AI safety",
		"focus_keywords":      "ai, safety , alignment",
		"preferred_topics":    "llm, agents",
		"min_likes_override":  "50",
		"extra_keywords":      "robotics, ai",
		"prompt_tone":         "casual",
		"prompt_custom_directive": "avoid hashtags",
	}

	var local preference.Preferences
	local.KeywordWeights = map[string]float64{"ai": 5.0}

	updated := MapPreferencesToLocal(raw, &local)

	g.Expect(local.WeeklyFocus.Directive).To(gomega.Equal("focus on AI safety"))
	g.Expect(local.WeeklyFocus.FocusKeywords).To(gomega.Equal([]string{"ai", "safety", "alignment"}))
	g.Expect(local.TopicPreferences.Preferred).To(gomega.Equal([]string{"llm", "agents"}))
	g.Expect(local.ThresholdOverrides.MinLikes).To(gomega.Equal(50))
	g.Expect(local.KeywordWeights["ai"]).To(gomega.Equal(5.0), "pre-existing keyword weight must not be overwritten")
	g.Expect(local.KeywordWeights["robotics"]).To(gomega.Equal(2.0))
	g.Expect(local.PromptOverrides.Tone).To(gomega.Equal("casual"))
	g.Expect(local.PromptOverrides.CustomDirective).To(gomega.Equal("avoid hashtags"))
	g.Expect(updated).To(gomega.ContainElement("keyword:robotics"))
	g.Expect(updated).NotTo(gomega.ContainElement("keyword:ai"))
}

func TestSyncQueueDecisionsAppliesAndMarksProcessed(t *testing.T) {
	g := gomega.NewWithT(t)

	dir := t.TempDir()
	store, err := queue.NewStore(filepath.Join(dir, "queue"), filepath.Join(dir, "feedback"), quietLogger())
	g.Expect(err).NotTo(gomega.HaveOccurred())
	_, err = store.Add(queue.CandidateRecord{TweetID: "t1", AuthorUsername: "a"})
	g.Expect(err).NotTo(gomega.HaveOccurred())

	var deletedIDs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/users/u1/queue_decisions":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"decisions": []QueueDecision{{ID: "d1", UID: "u1", TweetID: "t1", Action: "approve"}},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/users/u1/queue_decisions/delete":
			var body struct{ IDs []string }
			_ = json.NewDecoder(r.Body).Decode(&body)
			deletedIDs = body.IDs
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL, Logger: quietLogger()})
	g.Expect(err).NotTo(gomega.HaveOccurred())

	result, err := client.SyncQueueDecisions(context.Background(), store, "u1")
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(result.Approved).To(gomega.Equal(1))
	g.Expect(deletedIDs).To(gomega.Equal([]string{"d1"}))

	approved, err := store.GetApproved()
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(approved).To(gomega.HaveLen(1))
}

func TestIsTransientClassifiesStatusCodes(t *testing.T) {
	g := gomega.NewWithT(t)
	g.Expect(IsTransient(&apiError{statusCode: http.StatusTooManyRequests})).To(gomega.BeTrue())
	g.Expect(IsTransient(&apiError{statusCode: http.StatusInternalServerError})).To(gomega.BeTrue())
	g.Expect(IsTransient(&apiError{statusCode: http.StatusUnauthorized})).To(gomega.BeFalse())
	g.Expect(IsTransient(os.ErrNotExist)).To(gomega.BeFalse())
}
