// Package notify implements the Notifier: a best-effort Discord webhook
// client for daily-post digests, post-completion receipts, safety alerts,
// metrics snapshots, and weekly PDCA reports.
//
// Failures are logged and reported to the caller as a bool, never as an
// error: a dead webhook must not take a posting run down with it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Embed accent colors, keyed to score bands and severity.
const (
	ColorSuccess = 0x00D26A
	ColorWarning = 0xFFAA00
	ColorDanger  = 0xFF4444
	ColorInfo    = 0x4DB8FF
	ColorPurple  = 0x9B59B6
)

// Embed is one Discord embed object.
type Embed struct {
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Color       int         `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Timestamp   string      `json:"timestamp,omitempty"`
}

// EmbedField is one entry of an Embed's "fields" array.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type payload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Notifier posts best-effort messages to a Discord-style incoming webhook.
// A failed or unconfigured send is never fatal to the caller: it is logged
// and swallowed.
type Notifier struct {
	webhookURL string
	http       *http.Client
	logger     *logrus.Logger
}

// New builds a Notifier. An empty webhookURL is valid: Send becomes a
// logged no-op.
func New(webhookURL string, logger *logrus.Logger) *Notifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Notifier{
		webhookURL: webhookURL,
		http:       &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Send posts content and/or embeds to the webhook. It returns false (never
// an error the caller must handle) when the webhook is unconfigured or the
// request fails.
func (n *Notifier) Send(ctx context.Context, content string, embeds []Embed) bool {
	if n.webhookURL == "" {
		n.logger.Debug("notify: webhook URL not configured, skipping")
		return false
	}

	body, err := json.Marshal(payload{Content: content, Embeds: embeds})
	if err != nil {
		n.logger.WithError(err).Error("notify: marshal payload")
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		n.logger.WithError(err).Error("notify: build request")
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		n.logger.WithError(err).Error("notify: send failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.WithField("status_code", resp.StatusCode).Error("notify: webhook rejected message")
		return false
	}
	return true
}

// PostSummary is the per-post shape NotifyDailyPosts and
// NotifyCurateResults render.
type PostSummary struct {
	Text           string
	Type           string
	Time           string
	OriginalText   string
	AuthorUsername string
	TemplateID     string
	ScoreTotal     float64
	ScoreRank      string
	ScoreHook      int
	ScoreSpecifity int
	ScoreHumanity  int
	ScoreStructure int
	ScoreCTA       int
	SafetyOK       bool
	Violations     []string
}

func rankEmoji(rank string) string {
	switch rank {
	case "S":
		return "🏆"
	case "A":
		return "🥇"
	case "B":
		return "🥈"
	case "C":
		return "🥉"
	default:
		return ""
	}
}

func scoreColor(total float64) int {
	switch {
	case total >= 8:
		return ColorSuccess
	case total >= 6:
		return ColorInfo
	case total >= 4:
		return ColorWarning
	default:
		return ColorDanger
	}
}

// NotifyDailyPosts renders the day's candidate posts as a header embed plus
// one embed per post.
func (n *Notifier) NotifyDailyPosts(ctx context.Context, accountName, accountHandle string, posts []PostSummary, date string) bool {
	if date == "" {
		date = time.Now().Format("2006/01/02")
	}

	embeds := []Embed{{
		Title:       fmt.Sprintf("🤖 %s — 本日の投稿案 (%s)", accountName, date),
		Description: fmt.Sprintf("**%s** の投稿案 %d本", accountHandle, len(posts)),
		Color:       ColorInfo,
	}}

	for i, p := range posts {
		scoreText := fmt.Sprintf(
			"\n\n📊 **スコア: %.0f/8** %s [%s]\n├ フック力: %d/2\n├ 具体性: %d/2\n├ 人間味: %d/2\n├ 構成: %d/1\n└ CTA: %d/1",
			p.ScoreTotal, rankEmoji(p.ScoreRank), p.ScoreRank, p.ScoreHook, p.ScoreSpecifity, p.ScoreHumanity, p.ScoreStructure, p.ScoreCTA,
		)

		safetyText := "\n🛡️ 安全チェック: ✅ PASS"
		if !p.SafetyOK {
			safetyText = "\n🛡️ 安全チェック: ❌ FAIL"
			for _, v := range p.Violations {
				safetyText += fmt.Sprintf("\n  ⛔ %s", v)
			}
		}

		embeds = append(embeds, Embed{
			Title:       fmt.Sprintf("📝 投稿 %d/%d (%s 予定) [%s]", i+1, len(posts), p.Time, p.Type),
			Description: fmt.Sprintf("```\n%s\n```%s%s", p.Text, scoreText, safetyText),
			Color:       scoreColor(p.ScoreTotal),
		})
	}

	embeds = append(embeds, Embed{
		Description: "✅ 承認  |  ✏️ 修正依頼  |  ❌ スキップ",
		Color:       ColorPurple,
	})

	return n.Send(ctx, "", embeds)
}

// NotifyPostCompleted announces a successful post.
func (n *Notifier) NotifyPostCompleted(ctx context.Context, accountName, tweetText, tweetID string) bool {
	if len([]rune(tweetText)) > 200 {
		tweetText = string([]rune(tweetText)[:200])
	}
	embed := Embed{
		Title:       fmt.Sprintf("✅ 投稿完了 — %s", accountName),
		Description: fmt.Sprintf("```\n%s\n```", tweetText),
		Fields: []EmbedField{
			{Name: "Tweet ID", Value: tweetID, Inline: true},
			{Name: "URL", Value: fmt.Sprintf("https://x.com/i/status/%s", tweetID), Inline: true},
		},
		Color:     ColorSuccess,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	return n.Send(ctx, "", []Embed{embed})
}

// NotifySafetyAlert announces a safety-gate rejection.
func (n *Notifier) NotifySafetyAlert(ctx context.Context, accountName, tweetText string, violations []string) bool {
	if len([]rune(tweetText)) > 200 {
		tweetText = string([]rune(tweetText)[:200])
	}
	value := ""
	for _, v := range violations {
		value += fmt.Sprintf("⛔ %s\n", v)
	}
	embed := Embed{
		Title:       fmt.Sprintf("🚨 安全チェック不合格 — %s", accountName),
		Description: fmt.Sprintf("```\n%s\n```", tweetText),
		Fields:      []EmbedField{{Name: "違反内容", Value: value}},
		Color:       ColorDanger,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	return n.Send(ctx, "", []Embed{embed})
}

// Metrics is the daily snapshot NotifyMetrics renders.
type Metrics struct {
	Followers       int
	AvgLikes        float64
	AvgRetweets     float64
	EngagementRate  float64
}

// NotifyMetrics renders a daily engagement snapshot.
func (n *Notifier) NotifyMetrics(ctx context.Context, accountName string, m Metrics) bool {
	embed := Embed{
		Title: fmt.Sprintf("📊 日次メトリクス — %s", accountName),
		Fields: []EmbedField{
			{Name: "フォロワー", Value: fmt.Sprintf("%d", m.Followers), Inline: true},
			{Name: "平均いいね", Value: fmt.Sprintf("%.1f", m.AvgLikes), Inline: true},
			{Name: "平均RT", Value: fmt.Sprintf("%.1f", m.AvgRetweets), Inline: true},
			{Name: "エンゲージメント率", Value: fmt.Sprintf("%.1f%%", m.EngagementRate), Inline: true},
		},
		Color:     ColorInfo,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	return n.Send(ctx, "", []Embed{embed})
}

// NotifyError announces a pipeline error.
func (n *Notifier) NotifyError(ctx context.Context, title, errMessage string) bool {
	if len([]rune(errMessage)) > 1000 {
		errMessage = string([]rune(errMessage)[:1000])
	}
	embed := Embed{
		Title:       fmt.Sprintf("⚠️ エラー: %s", title),
		Description: fmt.Sprintf("```\n%s\n```", errMessage),
		Color:       ColorDanger,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	return n.Send(ctx, "", []Embed{embed})
}

// NotifyWeeklyReport renders the PDCA Updater's weekly report text.
func (n *Notifier) NotifyWeeklyReport(ctx context.Context, accountName, reportText string) bool {
	if len([]rune(reportText)) > 4000 {
		reportText = string([]rune(reportText)[:4000])
	}
	embed := Embed{
		Title:       fmt.Sprintf("📈 週次レポート — %s", accountName),
		Description: reportText,
		Color:       ColorPurple,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	return n.Send(ctx, "", []Embed{embed})
}

// ScheduleItem is one planned-slot entry NotifyCurateResults renders.
type ScheduleItem struct {
	Time string
	Type string
}

// NotifyCurateResults renders a batch of freshly generated quote-RT
// comments plus the day's posting schedule.
func (n *Notifier) NotifyCurateResults(ctx context.Context, accountName string, results []PostSummary, schedule []ScheduleItem) bool {
	embeds := []Embed{{
		Title:       fmt.Sprintf("🔄 引用RT生成結果 — %s", accountName),
		Description: fmt.Sprintf("**%d件** の引用RTコメントを生成しました", len(results)),
		Color:       ColorInfo,
	}}

	max := len(results)
	if max > 10 {
		max = 10
	}
	for i := 0; i < max; i++ {
		r := results[i]
		original := r.OriginalText
		if len([]rune(original)) > 100 {
			original = string([]rune(original)[:100])
		}
		text := r.Text
		if len([]rune(text)) > 300 {
			text = string([]rune(text)[:300])
		}

		scoreText := ""
		if r.ScoreRank != "" {
			scoreText = fmt.Sprintf("\n📊 スコア: %.0f/8 [%s]", r.ScoreTotal, r.ScoreRank)
		}

		color := ColorInfo
		if r.ScoreTotal >= 6 {
			color = ColorSuccess
		}

		embeds = append(embeds, Embed{
			Title: fmt.Sprintf("🔄 引用RT %d/%d — @%s [%s]", i+1, len(results), r.AuthorUsername, r.TemplateID),
			Description: fmt.Sprintf(
				"**元ツイート:**\n> %s...\n\n**生成コメント:**\n```\n%s\n```%s",
				original, text, scoreText,
			),
			Color: color,
		})
	}

	if len(schedule) > 0 {
		scheduleText := ""
		quoteCount, origCount := 0, 0
		for _, s := range schedule {
			icon := "✍️"
			if s.Type == "quote_rt" {
				icon = "🔄"
				quoteCount++
			} else {
				origCount++
			}
			scheduleText += fmt.Sprintf("%s %s %s\n", s.Time, icon, s.Type)
		}
		embeds = append(embeds, Embed{
			Title: "📋 本日の投稿スケジュール",
			Description: fmt.Sprintf(
				"```\n%s```\n合計: %d件 (引用RT: %d / オリジナル: %d)",
				scheduleText, len(schedule), quoteCount, origCount,
			),
			Color: ColorPurple,
		})
	}

	embeds = append(embeds, Embed{
		Description: "✅ 承認して投稿  |  ✏️ 修正依頼  |  ❌ スキップ\n\n`xpost curate-post` で投稿実行",
		Color:       ColorPurple,
	})

	return n.Send(ctx, "", embeds)
}
