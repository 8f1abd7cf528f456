// Package pdca implements the PDCA Updater: it reads the aggregated
// FeedbackEntry counters accumulated by pkg/queue's feedback log and
// proposes (or applies) adjustments to the Preferences document: the
// "Act" phase of the weekly selection PDCA cycle.
package pdca

import (
	"fmt"
	"sort"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/preference"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/queue"
)

// Thresholds governing when a bucket is promoted/demoted/adjusted.
const (
	MinDecisionsForAdjust = 10
	PromoteThreshold      = 0.80
	DemoteThreshold       = 0.30
	MaxWeightChange       = 0.5

	keywordBoostStep  = 0.2
	keywordReduceStep = 0.3
	keywordWeightMin  = 0.0
	keywordWeightMax  = 3.0
)

// RateEntry is one scored bucket (account, keyword, or topic) crossing a
// promote/demote threshold.
type RateEntry struct {
	Key   string  `json:"key"`
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// SkipReasonCount is one entry of the top-skip-reasons ranking.
type SkipReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// Analysis holds Analyze's promote/demote recommendations plus the
// top-skip-reasons ranking the report renders.
type Analysis struct {
	TotalDecisions int `json:"total_decisions"`
	ApprovalRate   float64 `json:"approval_rate"`

	AccountPromote []RateEntry `json:"account_promote"`
	AccountDemote  []RateEntry `json:"account_demote"`

	KeywordBoost  []RateEntry `json:"keyword_boost"`
	KeywordReduce []RateEntry `json:"keyword_reduce"`

	TopicBoost  []RateEntry `json:"topic_boost"`
	TopicReduce []RateEntry `json:"topic_reduce"`

	TopSkipReasons []SkipReasonCount `json:"top_skip_reasons"`
}

// Analyze computes promote/demote recommendations from stats, ignoring any
// bucket whose subtotal is below MinDecisionsForAdjust.
func Analyze(stats queue.FeedbackStats) Analysis {
	if stats.Total == 0 {
		return Analysis{}
	}

	a := Analysis{
		TotalDecisions: stats.Total,
		ApprovalRate:   round3(stats.ApprovalRate),
	}

	a.AccountPromote, a.AccountDemote = splitByRate(stats.BySource)
	a.KeywordBoost, a.KeywordReduce = splitByRate(stats.ByKeyword)
	a.TopicBoost, a.TopicReduce = splitByRate(stats.ByTopic)

	type reasonCount struct {
		reason string
		count  int
	}
	reasons := make([]reasonCount, 0, len(stats.ByReason))
	for r, c := range stats.ByReason {
		reasons = append(reasons, reasonCount{r, c})
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i].count > reasons[j].count })
	for i := 0; i < len(reasons) && i < 5; i++ {
		a.TopSkipReasons = append(a.TopSkipReasons, SkipReasonCount{Reason: reasons[i].reason, Count: reasons[i].count})
	}

	return a
}

func splitByRate(m map[string]queue.CountPair) (promote, demote []RateEntry) {
	for key, pair := range m {
		count := pair.Approved + pair.Skipped
		if count < MinDecisionsForAdjust {
			continue
		}
		rate := float64(pair.Approved) / float64(count)
		entry := RateEntry{Key: key, Rate: round3(rate), Count: count}
		switch {
		case rate >= PromoteThreshold:
			promote = append(promote, entry)
		case rate <= DemoteThreshold:
			demote = append(demote, entry)
		}
	}
	sort.Slice(promote, func(i, j int) bool { return promote[i].Rate > promote[j].Rate })
	sort.Slice(demote, func(i, j int) bool { return demote[i].Rate < demote[j].Rate })
	return promote, demote
}

// UpdateResult reports what AutoUpdate changed.
type UpdateResult struct {
	Changes []string `json:"changes"`
	Summary string   `json:"summary"`
}

// AutoUpdate applies Analyze's recommendations onto prefs in place,
// bumping the version and stamping updated_by when anything changed, and
// returns the human-readable change list. The caller decides whether to
// persist the mutated document.
func AutoUpdate(analysis Analysis, prefs *preference.Preferences) UpdateResult {
	if analysis.TotalDecisions < MinDecisionsForAdjust {
		return UpdateResult{
			Summary: fmt.Sprintf("データ不足（%d/%d件）。調整スキップ。", analysis.TotalDecisions, MinDecisionsForAdjust),
		}
	}

	var changes []string

	if prefs.KeywordWeights == nil {
		prefs.KeywordWeights = map[string]float64{}
	}
	for _, e := range analysis.KeywordBoost {
		current := prefs.KeywordWeights[e.Key]
		if current == 0 {
			current = 1.0
		}
		next := minFloat(current+keywordBoostStep, current+MaxWeightChange, keywordWeightMax)
		if next != current {
			prefs.KeywordWeights[e.Key] = round1(next)
			changes = append(changes, fmt.Sprintf("キーワード '%s' weight: %.1f → %.1f (承認率%.0f%%)", e.Key, current, next, e.Rate*100))
		}
	}
	for _, e := range analysis.KeywordReduce {
		current := prefs.KeywordWeights[e.Key]
		if current == 0 {
			current = 1.0
		}
		next := maxFloat(current-keywordReduceStep, current-MaxWeightChange, keywordWeightMin)
		if next != current {
			prefs.KeywordWeights[e.Key] = round1(next)
			changes = append(changes, fmt.Sprintf("キーワード '%s' weight: %.1f → %.1f (承認率%.0f%%)", e.Key, current, next, e.Rate*100))
		}
	}

	boosted := toSet(prefs.AccountOverrides.Boosted)
	for _, e := range analysis.AccountPromote {
		if !boosted[e.Key] {
			boosted[e.Key] = true
			changes = append(changes, fmt.Sprintf("アカウント @%s → 優先追加 (承認率%.0f%%)", e.Key, e.Rate*100))
		}
	}
	for _, e := range analysis.AccountDemote {
		if boosted[e.Key] {
			delete(boosted, e.Key)
			changes = append(changes, fmt.Sprintf("アカウント @%s → 優先解除 (承認率%.0f%%)", e.Key, e.Rate*100))
		}
	}
	prefs.AccountOverrides.Boosted = sortedKeys(boosted)

	preferred := toSet(prefs.TopicPreferences.Preferred)
	avoid := toSet(prefs.TopicPreferences.Avoid)
	for _, e := range analysis.TopicBoost {
		switch {
		case avoid[e.Key]:
			delete(avoid, e.Key)
			preferred[e.Key] = true
			changes = append(changes, fmt.Sprintf("トピック '%s' → 回避→優先に変更 (承認率%.0f%%)", e.Key, e.Rate*100))
		case !preferred[e.Key]:
			preferred[e.Key] = true
			changes = append(changes, fmt.Sprintf("トピック '%s' → 優先追加 (承認率%.0f%%)", e.Key, e.Rate*100))
		}
	}
	for _, e := range analysis.TopicReduce {
		switch {
		case preferred[e.Key]:
			delete(preferred, e.Key)
			avoid[e.Key] = true
			changes = append(changes, fmt.Sprintf("トピック '%s' → 優先→回避に変更 (承認率%.0f%%)", e.Key, e.Rate*100))
		case !avoid[e.Key]:
			avoid[e.Key] = true
			changes = append(changes, fmt.Sprintf("トピック '%s' → 回避追加 (承認率%.0f%%)", e.Key, e.Rate*100))
		}
	}
	prefs.TopicPreferences.Preferred = sortedKeys(preferred)
	prefs.TopicPreferences.Avoid = sortedKeys(avoid)

	if len(changes) > 0 {
		prefs.Version++
		prefs.UpdatedBy = "auto_pdca"
	}

	summary := "調整なし（条件を満たす項目なし）"
	if len(changes) > 0 {
		summary = fmt.Sprintf("調整%d件", len(changes))
	}
	return UpdateResult{Changes: changes, Summary: summary}
}

// GenerateReport renders a Discord-ready text summary of analysis for the
// notification sink.
func GenerateReport(analysis Analysis) string {
	if analysis.TotalDecisions == 0 {
		return "📊 **選定PDCA**: フィードバックデータなし"
	}

	report := fmt.Sprintf("🎯 **選定PDCA分析**\n━━━━━━━━━━━━━━━━━━\n判断数: %d件\n承認率: %.1f%%\n",
		analysis.TotalDecisions, analysis.ApprovalRate*100)

	if len(analysis.AccountPromote) > 0 {
		report += "\n✅ **高承認率アカウント:**\n"
		for i, p := range analysis.AccountPromote {
			if i >= 3 {
				break
			}
			report += fmt.Sprintf("  @%s: %.0f%% (%d件)\n", p.Key, p.Rate*100, p.Count)
		}
	}

	if len(analysis.AccountDemote) > 0 {
		report += "\n⚠️ **低承認率アカウント:**\n"
		for i, d := range analysis.AccountDemote {
			if i >= 3 {
				break
			}
			report += fmt.Sprintf("  @%s: %.0f%% (%d件)\n", d.Key, d.Rate*100, d.Count)
		}
	}

	if len(analysis.TopSkipReasons) > 0 {
		report += "\n📋 **スキップ理由TOP:**\n"
		for i, sr := range analysis.TopSkipReasons {
			if i >= 3 {
				break
			}
			report += fmt.Sprintf("  %s: %d件\n", skipReasonLabel(sr.Reason), sr.Count)
		}
	}

	return report
}

var skipReasonLabels = map[string]string{
	"topic_mismatch":    "トピック不一致",
	"source_untrusted":  "ソース不適切",
	"too_old":           "古すぎる",
	"low_quality":       "品質不足",
	"off_brand":         "ブランド不適合",
	"other":             "その他",
}

func skipReasonLabel(reason string) string {
	if label, ok := skipReasonLabels[reason]; ok {
		return label
	}
	return reason
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, i := range items {
		m[i] = true
	}
	return m
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func minFloat(vals ...float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxFloat(vals ...float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func round1(v float64) float64 { return float64(int(v*10+0.5)) / 10 }
func round3(v float64) float64 { return float64(int(v*1000+0.5)) / 1000 }
