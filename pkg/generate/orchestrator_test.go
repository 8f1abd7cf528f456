package generate

import (
	"context"
	"testing"
	"time"

	"github.com/onsi/gomega"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/llm"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/persona"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/preference"
	prompts "github.com/kitayama-ai/x-quote-rt-bot/pkg/prompts/templates"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/safety"
)

type stubLLM struct {
	responses []string
	calls     int
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	resp := s.responses[s.calls%len(s.responses)]
	s.calls++
	return resp, nil
}

func testRules() Rules {
	var r Rules
	r.Templates = []TemplateRule{
		{ID: "translate_comment", Name: "市場インパクト型", Description: "desc", MaxDailyUses: 2},
		{ID: "summary_points", Name: "要点まとめ型", Description: "desc", MaxDailyUses: 2},
	}
	r.QuoteRT.MinCommentLength = 30
	return r
}

func TestGenerateHardTruncatesAndCleansFence(t *testing.T) {
	g := gomega.NewWithT(t)

	stub := &stubLLM{responses: []string{
		"```\n" + "海外で話題の新型AIモデルが発表された。市場は大きく反応し、関連銘柄の時価総額は軒並み急騰している。専門家は次の波が来ると口を揃える。これは歴史的な転換点になるだろう、今すぐ動け。もっと長い文章をここに追加して百二十文字を超えるようにする。" + "\n```",
	}}

	loader := prompts.NewLoader("../../prompts/templates")
	orch := NewOrchestrator(stub, loader, testRules(), safety.DefaultThresholds())

	req := Request{
		OriginalText:   "Big AI news today",
		AuthorUsername: "austen_allred",
		AuthorName:     "Austen",
		Likes:          100,
		Retweets:       20,
		IsQuoteRT:      true,
		LastPostAgo:    time.Hour,
	}

	result, err := orch.Generate(context.Background(), req, preference.PromptOverrides{}, persona.Profile{})
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect([]rune(result.Text)).To(gomega.HaveLen(120))
	g.Expect(result.Text).NotTo(gomega.ContainSubstring("```"))
	g.Expect(result.TemplateID).NotTo(gomega.BeEmpty())
}

func TestSelectTemplateIDRespectsDailyCapAndRecency(t *testing.T) {
	g := gomega.NewWithT(t)

	loader := prompts.NewLoader("../../prompts/templates")
	orch := NewOrchestrator(&stubLLM{responses: []string{"x"}}, loader, testRules(), safety.DefaultThresholds())

	first := orch.selectTemplateID("", nil)
	orch.recordUsage(first)
	orch.recordUsage(first)
	// first is now at its daily cap (2); the next pick must differ.
	second := orch.selectTemplateID("", nil)
	g.Expect(second).NotTo(gomega.Equal(first))
}
