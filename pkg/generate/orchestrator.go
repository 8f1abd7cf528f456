package generate

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/backoff"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/llm"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/persona"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/preference"
	prompts "github.com/kitayama-ai/x-quote-rt-bot/pkg/prompts/templates"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/safety"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/score"
)

const (
	maxLengthChars    = 120
	scoreRetryLimit   = 2
	llmBackoffBase    = 2 * time.Second
	llmMaxRetries     = 2 // base attempt + 2 retries = 3 attempts total
	recentTemplateCap = 10
)

var (
	codeFencePrefix = regexp.MustCompile("^```[a-zA-Z]*\n")
	codeFenceSuffix = regexp.MustCompile("\n```$")
)

// Request is the input to Generate: an approved candidate plus the
// operator's persona/preference configuration.
type Request struct {
	OriginalText   string
	AuthorUsername string
	AuthorName     string
	Likes          int
	Retweets       int
	TemplateID     string // preferred; empty selects by rotation
	PastPosts      []string
	LastPostAgo    time.Duration
	IsQuoteRT      bool
	QuoteRT        safety.QuoteRTContext
}

// Result is the Orchestrator's output: the cleaned text plus the rubric
// score and safety verdict it was accepted with.
type Result struct {
	Text       string
	TemplateID string
	Score      score.Result
	Safety     safety.Result
}

// Orchestrator owns the daily template-rotation state and assembles/sends
// generation prompts through an LLM port.
type Orchestrator struct {
	llm        llm.LLM
	loader     *prompts.Loader
	rules      Rules
	thresholds safety.Thresholds

	mu              sync.Mutex
	templateUsage   map[string]int
	usageDate       string
	recentTemplates []string
}

// NewOrchestrator builds an Orchestrator from a loaded template roster, an
// LLM port, and the safety thresholds generated text must clear.
func NewOrchestrator(llmClient llm.LLM, loader *prompts.Loader, rules Rules, thresholds safety.Thresholds) *Orchestrator {
	return &Orchestrator{
		llm:           llmClient,
		loader:        loader,
		rules:         rules,
		thresholds:    thresholds,
		templateUsage: map[string]int{},
	}
}

// Generate produces a quote-RT (or original) comment for req, selecting a
// template, assembling the prompt (with persona and prompt_overrides
// injected), calling the LLM with backoff, and retrying on a low score or a
// safety-gate failure.
func (o *Orchestrator) Generate(ctx context.Context, req Request, po preference.PromptOverrides, profile persona.Profile) (Result, error) {
	templateID := o.selectTemplateID(req.TemplateID, po.EnabledTemplates)

	body, err := o.loader.Load(templateID)
	if err != nil {
		return Result{}, err
	}
	body = prompts.ApplyOverrides(body, po)

	text, err := o.generateOnce(ctx, body, templateID, profile, req, "")
	if err != nil {
		return Result{}, err
	}

	sc := score.Score(text)
	sf := safety.Check(text, req.PastPosts, req.LastPostAgo, req.IsQuoteRT, req.QuoteRT, o.thresholds)

	for retry := 0; retry < scoreRetryLimit; retry++ {
		if sc.Total >= 5 && sf.IsSafe {
			break
		}
		hint := buildRetryHint(sc, sf, o.rules.QuoteRT.MinCommentLength)
		text, err = o.generateOnce(ctx, body, templateID, profile, req, hint)
		if err != nil {
			break
		}
		sc = score.Score(text)
		sf = safety.Check(text, req.PastPosts, req.LastPostAgo, req.IsQuoteRT, req.QuoteRT, o.thresholds)
	}

	o.recordUsage(templateID)

	return Result{Text: text, TemplateID: templateID, Score: sc, Safety: sf}, nil
}

// selectTemplateID implements template rotation: daily counters,
// enabled-set filtering, max_daily_uses exclusion, and a last-2-used
// exclusion to avoid back-to-back repeats.
func (o *Orchestrator) selectTemplateID(preferred string, enabled []string) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	today := time.Now().Format("2006-01-02")
	if o.usageDate != today {
		o.templateUsage = map[string]int{}
		o.recentTemplates = nil
		o.usageDate = today
	}

	maxDaily := o.rules.MaxDailyUses()
	enabledIDs := enabled
	if len(enabledIDs) == 0 {
		enabledIDs = o.rules.IDs()
	}

	if preferred != "" && maxDaily[preferred] > 0 && containsString(enabledIDs, preferred) {
		if o.templateUsage[preferred] < maxDaily[preferred] {
			return preferred
		}
	}

	available := make([]string, 0, len(enabledIDs))
	for _, id := range enabledIDs {
		if !containsString(o.rules.IDs(), id) {
			continue
		}
		limit := maxDaily[id]
		if limit == 0 {
			limit = 2
		}
		if o.templateUsage[id] < limit {
			available = append(available, id)
		}
	}
	if len(available) == 0 {
		available = enabledIDs
	}

	if len(available) > 1 && len(o.recentTemplates) > 0 {
		recent := lastN(o.recentTemplates, 2)
		nonRecent := make([]string, 0, len(available))
		for _, id := range available {
			if !containsString(recent, id) {
				nonRecent = append(nonRecent, id)
			}
		}
		if len(nonRecent) > 0 {
			available = nonRecent
		}
	}

	chosen := available[rand.Intn(len(available))]

	o.recentTemplates = append(o.recentTemplates, chosen)
	if len(o.recentTemplates) > recentTemplateCap {
		o.recentTemplates = o.recentTemplates[len(o.recentTemplates)-recentTemplateCap:]
	}

	return chosen
}

func (o *Orchestrator) recordUsage(templateID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.templateUsage[templateID]++
}

// generateOnce assembles the full prompt and issues one LLM call with
// backoff, returning the cleaned, length-capped text.
func (o *Orchestrator) generateOnce(ctx context.Context, templateBody, templateID string, profile persona.Profile, req Request, retryHint string) (string, error) {
	prompt := assemblePrompt(templateBody, templateID, o.rules.Describe(templateID), profile, req, retryHint)

	raw, err := o.callLLM(ctx, prompt)
	if err != nil {
		return "", err
	}
	return cleanAndCap(raw, maxLengthChars), nil
}

func (o *Orchestrator) callLLM(ctx context.Context, prompt string) (string, error) {
	var raw string
	err := backoff.WithBackoff(ctx, "generate.llm", llmMaxRetries, llmBackoffBase, func(ctx context.Context) error {
		out, err := o.llm.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		raw = out
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate: llm call failed: %w", err)
	}
	return raw, nil
}

// cleanAndCap strips a surrounding code fence and quote marks, then
// hard-truncates to max runes with an ellipsis suffix.
func cleanAndCap(text string, max int) string {
	text = strings.TrimSpace(text)
	text = codeFencePrefix.ReplaceAllString(text, "")
	text = codeFenceSuffix.ReplaceAllString(text, "")
	text = strings.Trim(text, "\"'`")
	text = strings.TrimSpace(text)

	runes := []rune(text)
	if len(runes) > max {
		text = string(runes[:max-3]) + "..."
	}
	return text
}

// assemblePrompt appends the persona block, the variation directive, the
// current template's label, the source tweet context, and the length-cap
// directive, in that order.
func assemblePrompt(templateBody, templateID string, rule TemplateRule, profile persona.Profile, req Request, retryHint string) string {
	var b strings.Builder
	b.WriteString(templateBody)
	b.WriteString("\n\n")

	if injected := persona.InjectionBlock(profile); injected != "" {
		b.WriteString(injected)
		b.WriteString("\n")
	}

	if variety := varietyHint(req.PastPosts); variety != "" {
		b.WriteString(variety)
	}

	fmt.Fprintf(&b, "━━━━━━━━━━━━━━━━━━\n■ 今回の条件\n━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Fprintf(&b, "- テンプレート: %s — %s\n", rule.Name, rule.Description)
	fmt.Fprintf(&b, "- テンプレートID: %s\n", templateID)
	if retryHint != "" {
		fmt.Fprintf(&b, "- リトライ指示: %s\n", retryHint)
	}

	fmt.Fprintf(&b, "\n━━━━━━━━━━━━━━━━━━\n■ 元ツイート情報\n━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Fprintf(&b, "- 著者: @%s (%s)\n", req.AuthorUsername, req.AuthorName)
	fmt.Fprintf(&b, "- いいね: %d件 / RT: %d件\n", req.Likes, req.Retweets)
	fmt.Fprintf(&b, "- テキスト（英語原文）:\n%s\n", req.OriginalText)

	fmt.Fprintf(&b, "\n━━━━━━━━━━━━━━━━━━\n■ 出力\n━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Fprintf(&b, "ツイート本文だけを出力しろ。余計な説明は一切不要。必ず%d字以内（X APIの文字カウント制限）。\n", maxLengthChars)

	return b.String()
}

// varietyHint lists the first lines of the last 5 generated posts so the
// model avoids reusing the same opening.
func varietyHint(pastPosts []string) string {
	recent := lastN(pastPosts, 5)
	var openings []string
	for _, p := range recent {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		firstLine := strings.SplitN(p, "\n", 2)[0]
		if r := []rune(firstLine); len(r) > 40 {
			firstLine = string(r[:40])
		}
		if firstLine != "" {
			openings = append(openings, firstLine)
		}
	}
	if len(openings) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("━━━━━━━━━━━━━━━━━━\n■ バリエーション指示（超重要）\n━━━━━━━━━━━━━━━━━━\n\n")
	b.WriteString("以下は直近の生成済み投稿の冒頭。これらと同じ見出し語・同じ冒頭パターンは使うな。\n\n")
	for _, o := range openings {
		fmt.Fprintf(&b, "- %s\n", o)
	}
	b.WriteString("\n")
	return b.String()
}

// buildRetryHint assembles the hint block for a scoring-driven retry:
// which rubric dimensions fell short, which safety rules were violated,
// plus the quote-RT minimum-length reminder.
func buildRetryHint(sc score.Result, sf safety.Result, minCommentLength int) string {
	var hints []string
	if sc.Total < 5 {
		if sc.Hook < 2 {
			hints = append(hints, "フックを強くしろ")
		}
		if sc.Humanity < 2 {
			hints = append(hints, "もっとカジュアルに")
		}
	}
	if !sf.IsSafe {
		hints = append(hints, fmt.Sprintf("修正: %s", strings.Join(sf.Violations, ", ")))
	}
	if minCommentLength > 0 {
		hints = append(hints, fmt.Sprintf("最低%d字以上のコメントを書け", minCommentLength))
	}
	return strings.Join(hints, "; ")
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func lastN[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
