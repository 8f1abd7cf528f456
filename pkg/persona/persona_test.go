package persona

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/llm"
)

func TestAnalyzeFirstPersonFrequency(t *testing.T) {
	posts := []string{
		"私はAIエージェントが好きです。",
		"私は毎日コードを書いています。",
		"僕はたまにゲームをします。",
	}
	p := Analyze(posts)
	if p.FirstPerson != "私" {
		t.Fatalf("expected 私 as the most frequent first-person pronoun, got %q", p.FirstPerson)
	}
}

func TestAnalyzeCatchphrasesRequireThreeOccurrences(t *testing.T) {
	posts := []string{
		"ぶっちゃけ言うと、今日は疲れた",
		"ぶっちゃけ言うと、明日も忙しい",
		"ぶっちゃけ言うと、やる気出ない",
		"たった一度だけの表現です",
	}
	p := Analyze(posts)
	found := false
	for _, c := range p.Catchphrases {
		if c == "ぶっちゃけ言うと" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a 3x-repeated 4-15 char chunk to be extracted as a catchphrase, got %v", p.Catchphrases)
	}
	for _, c := range p.Catchphrases {
		if c == "たった一度だけの表現です" {
			t.Fatalf("a chunk seen once should not be extracted as a catchphrase")
		}
	}
}

func TestAnalyzeStructuralStats(t *testing.T) {
	posts := []string{"12345", "1234567890"}
	p := Analyze(posts)
	if p.AvgTweetLength != 7.5 {
		t.Fatalf("expected average length 7.5, got %v", p.AvgTweetLength)
	}
}

func TestAnalyzeEmptyCorpus(t *testing.T) {
	p := Analyze(nil)
	if p.AvgTweetLength != 0 || p.AvgLineCount != 0 || p.EmojiFrequency != 0 {
		t.Fatalf("expected zero-valued stats for an empty corpus, got %+v", p)
	}
}

func TestSelectSampleTweetsFiltersByLengthBand(t *testing.T) {
	short := "short"
	tooLong := strings.Repeat("あ", 300)
	good := strings.Repeat("あ", 80)
	posts := []string{short, tooLong, good}
	p := Analyze(posts)
	if len(p.SampleTweets) != 1 || p.SampleTweets[0] != good {
		t.Fatalf("expected only the in-band sample to be selected, got %v", p.SampleTweets)
	}
}

type stubLLM struct {
	response string
	err      error
}

func (s stubLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.response, s.err
}

func TestInjectionBlockIncludesSummaryWhenPresent(t *testing.T) {
	p := Profile{FirstPerson: "私", FormalityLevel: "mixed", PromptSummary: "AIについて発信"}
	block := InjectionBlock(p)
	if !strings.Contains(block, "AIについて発信") {
		t.Fatalf("expected injection block to include the prompt summary, got %q", block)
	}
	if !strings.Contains(block, "私") {
		t.Fatalf("expected injection block to include the first-person pronoun, got %q", block)
	}
}

func TestAIAnalyzeNoopWithoutModel(t *testing.T) {
	p := Profile{}
	if err := AIAnalyze(context.Background(), nil, &p, []string{"a"}); err != nil {
		t.Fatalf("expected no-op success with a nil model, got %v", err)
	}
	if p.PromptSummary != "" {
		t.Fatalf("expected prompt summary to remain empty without a model")
	}
}

func TestAIAnalyzePropagatesError(t *testing.T) {
	p := Profile{}
	wantErr := errors.New("model unavailable")
	err := AIAnalyze(context.Background(), stubLLM{err: wantErr}, &p, []string{"a", "b"})
	if err == nil || !strings.Contains(err.Error(), wantErr.Error()) {
		t.Fatalf("expected the model's error to propagate, got %v", err)
	}
}

func TestAIAnalyzeSetsPromptSummary(t *testing.T) {
	p := Profile{}
	err := AIAnalyze(context.Background(), stubLLM{response: "  要約テキスト  "}, &p, []string{"a"})
	if err != nil {
		t.Fatalf("AIAnalyze: %v", err)
	}
	if p.PromptSummary != "要約テキスト" {
		t.Fatalf("expected trimmed prompt summary, got %q", p.PromptSummary)
	}
}
