package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestSendWithoutWebhookURLIsNoop(t *testing.T) {
	g := gomega.NewWithT(t)
	n := New("", quietLogger())
	ok := n.Send(context.Background(), "hello", nil)
	g.Expect(ok).To(gomega.BeFalse())
}

func TestSendPostsExpectedPayload(t *testing.T) {
	g := gomega.NewWithT(t)

	var received payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.Expect(r.Method).To(gomega.Equal(http.MethodPost))
		g.Expect(json.NewDecoder(r.Body).Decode(&received)).To(gomega.Succeed())
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := New(srv.URL, quietLogger())
	ok := n.Send(context.Background(), "hi", []Embed{{Title: "t", Color: ColorSuccess}})
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(received.Content).To(gomega.Equal("hi"))
	g.Expect(received.Embeds).To(gomega.HaveLen(1))
	g.Expect(received.Embeds[0].Color).To(gomega.Equal(ColorSuccess))
}

func TestSendReturnsFalseOnServerError(t *testing.T) {
	g := gomega.NewWithT(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New(srv.URL, quietLogger())
	ok := n.Send(context.Background(), "hi", nil)
	g.Expect(ok).To(gomega.BeFalse())
}

func TestNotifyPostCompletedBuildsEmbed(t *testing.T) {
	g := gomega.NewWithT(t)

	var received payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.Expect(json.NewDecoder(r.Body).Decode(&received)).To(gomega.Succeed())
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := New(srv.URL, quietLogger())
	ok := n.NotifyPostCompleted(context.Background(), "kitayama", "posted text", "12345")
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(received.Embeds).To(gomega.HaveLen(1))
	g.Expect(received.Embeds[0].Fields).To(gomega.HaveLen(2))
	g.Expect(received.Embeds[0].Fields[0].Value).To(gomega.Equal("12345"))
}

func TestNotifyCurateResultsIncludesScheduleEmbed(t *testing.T) {
	g := gomega.NewWithT(t)

	var received payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.Expect(json.NewDecoder(r.Body).Decode(&received)).To(gomega.Succeed())
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := New(srv.URL, quietLogger())
	results := []PostSummary{
		{Text: "comment 1", OriginalText: "original 1", AuthorUsername: "austen_allred", TemplateID: "translate_comment", ScoreTotal: 7, ScoreRank: "A"},
	}
	schedule := []ScheduleItem{{Time: "09:00", Type: "quote_rt"}, {Time: "12:00", Type: "original"}}

	ok := n.NotifyCurateResults(context.Background(), "kitayama", results, schedule)
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(len(received.Embeds)).To(gomega.BeNumerically(">=", 3))
}
