package generate

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/onsi/gomega"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/persona"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/preference"
	prompts "github.com/kitayama-ai/x-quote-rt-bot/pkg/prompts/templates"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/safety"
)

func TestOriginalTypeForRotatesByWeekdayAndSlot(t *testing.T) {
	g := gomega.NewWithT(t)

	monday := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	g.Expect(monday.Weekday()).To(gomega.Equal(time.Monday))
	g.Expect(OriginalTypeFor(monday, 0)).To(gomega.Equal("問題提起"))
	g.Expect(OriginalTypeFor(monday, 1)).To(gomega.Equal("How to"))
	g.Expect(OriginalTypeFor(monday, 2)).To(gomega.Equal("ストーリー"))
	// slot indexes past the rotation wrap around.
	g.Expect(OriginalTypeFor(monday, 3)).To(gomega.Equal("問題提起"))

	tuesday := monday.AddDate(0, 0, 1)
	g.Expect(OriginalTypeFor(tuesday, 0)).NotTo(gomega.Equal(OriginalTypeFor(monday, 0)))
}

func TestGenerateOriginalUsesDedicatedTemplateAndLongerCap(t *testing.T) {
	g := gomega.NewWithT(t)

	long := strings.Repeat("AI自動化の実践で時間を取り戻す話。", 30)
	stub := &stubLLM{responses: []string{long}}

	loader := prompts.NewLoader("../../prompts/templates")
	orch := NewOrchestrator(stub, loader, testRules(), safety.DefaultThresholds())

	req := OriginalRequest{
		Date:      time.Date(2026, 8, 3, 7, 0, 0, 0, time.UTC),
		PostType:  "問題提起",
		SlotID:    "early_morning",
		TimeLabel: "07:05",
	}
	result, err := orch.GenerateOriginal(context.Background(), req, preference.PromptOverrides{}, persona.Profile{})
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(result.TemplateID).To(gomega.Equal("original_post"))
	g.Expect(len([]rune(result.Text))).To(gomega.BeNumerically("<=", 280))
	g.Expect(len([]rune(result.Text))).To(gomega.BeNumerically(">", 120), "originals get the full budget, not the quote-RT cap")
}
