package generate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/persona"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/preference"
	prompts "github.com/kitayama-ai/x-quote-rt-bot/pkg/prompts/templates"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/safety"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/score"
)

const (
	originalTemplateID = "original_post"
	// Standalone posts get the platform's full budget; quote-RTs are
	// capped tighter because the quoted link eats into it.
	maxLengthOriginal = 280
	originalScoreMin  = 6
)

// weeklyRotation assigns a content type to each of the day's first three
// original slots (later slots cycle through the row again), varying by
// weekday so a week of output does not repeat itself.
var weeklyRotation = [7][3]string{
	time.Sunday:    {"モチベーション", "来週の予告", "コミュニティ系"},
	time.Monday:    {"問題提起", "How to", "ストーリー"},
	time.Tuesday:   {"反常識", "リスト", "気づき"},
	time.Wednesday: {"問題提起", "How to（保存狙い）", "失敗談"},
	time.Thursday:  {"権威引用", "リスト（保存狙い）", "振り返り"},
	time.Friday:    {"反常識", "How to", "今週のまとめ"},
	time.Saturday:  {"ストーリー", "ツール紹介", "自由枠"},
}

// OriginalTypeFor returns the rotation content type for the i-th original
// slot of the given day.
func OriginalTypeFor(day time.Time, slotIndex int) string {
	row := weeklyRotation[day.Weekday()]
	return row[slotIndex%len(row)]
}

// OriginalRequest is the input to GenerateOriginal: the slot being filled
// and the dedup context.
type OriginalRequest struct {
	Date      time.Time
	PostType  string // rotation content type, e.g. "問題提起"
	SlotID    string
	TimeLabel string
	PastPosts []string
}

// GenerateOriginal produces a standalone post for one planner slot. It
// uses the dedicated original-post template rather than the quote-RT
// rotation, scores against the stricter original threshold, and runs the
// safety gate in original mode (longer length band, link cap enforced).
func (o *Orchestrator) GenerateOriginal(ctx context.Context, req OriginalRequest, po preference.PromptOverrides, profile persona.Profile) (Result, error) {
	body, err := o.loader.Load(originalTemplateID)
	if err != nil {
		return Result{}, err
	}
	body = prompts.ApplyOverrides(body, po)

	text, err := o.generateOriginalOnce(ctx, body, profile, req, "")
	if err != nil {
		return Result{}, err
	}

	sc := score.Score(text)
	sf := safety.Check(text, req.PastPosts, 24*time.Hour, false, safety.QuoteRTContext{}, o.thresholds)

	for retry := 0; retry < scoreRetryLimit; retry++ {
		if sc.Total >= originalScoreMin && sf.IsSafe {
			break
		}
		hint := buildRetryHint(sc, sf, 0)
		text, err = o.generateOriginalOnce(ctx, body, profile, req, hint)
		if err != nil {
			break
		}
		sc = score.Score(text)
		sf = safety.Check(text, req.PastPosts, 24*time.Hour, false, safety.QuoteRTContext{}, o.thresholds)
	}

	return Result{Text: text, TemplateID: originalTemplateID, Score: sc, Safety: sf}, nil
}

func (o *Orchestrator) generateOriginalOnce(ctx context.Context, templateBody string, profile persona.Profile, req OriginalRequest, retryHint string) (string, error) {
	prompt := assembleOriginalPrompt(templateBody, profile, req, retryHint)

	raw, err := o.callLLM(ctx, prompt)
	if err != nil {
		return "", err
	}
	return cleanAndCap(raw, maxLengthOriginal), nil
}

var weekdayJa = [7]string{"日", "月", "火", "水", "木", "金", "土"}

func assembleOriginalPrompt(templateBody string, profile persona.Profile, req OriginalRequest, retryHint string) string {
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
	fmt.Fprintf(&b, "- 日付: %s (%s曜日)\n", req.Date.Format("2006-01-02"), weekdayJa[req.Date.Weekday()])
	fmt.Fprintf(&b, "- 投稿タイプ: %s\n", req.PostType)
	fmt.Fprintf(&b, "- 時間帯: %s (%s)\n", req.SlotID, req.TimeLabel)
	if retryHint != "" {
		fmt.Fprintf(&b, "- リトライ指示: %s\n", retryHint)
	}

	fmt.Fprintf(&b, "\n━━━━━━━━━━━━━━━━━━\n■ 出力\n━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Fprintf(&b, "ツイート本文だけを出力しろ。余計な説明は一切不要。必ず%d字以内。\n", maxLengthOriginal)

	return b.String()
}
