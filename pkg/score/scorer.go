// Package score implements the post scorer: an 8-point rubric over a
// generated text (hook, specificity, humanity, structure, CTA, penalties).
package score

import (
	"fmt"
	"regexp"
	"strings"
)

// Result is the pure rubric output.
type Result struct {
	Total       float64
	Hook        int
	Specificity int
	Humanity    int
	Structure   int
	CTA         int
	Penalty     int
	Details     map[string]any
}

// Rank buckets Total into S/A/B/C.
func (r Result) Rank() string {
	switch {
	case r.Total >= 8:
		return "S"
	case r.Total >= 6:
		return "A"
	case r.Total >= 4:
		return "B"
	default:
		return "C"
	}
}

var (
	strongHooks = []*regexp.Regexp{
		regexp.MustCompile(`^(ぶっちゃけ|正直|マジで|結論|断言)`),
		regexp.MustCompile(`^「.+」`),
		regexp.MustCompile(`^\d+[時間分万円%]`),
		regexp.MustCompile(`^(やばい|えぐい|これ)`),
		regexp.MustCompile(`^(知らない|まだ.+してる)`),
	}
	mediumHooks = []*regexp.Regexp{
		regexp.MustCompile(`^(最近|今月|この前)`),
		regexp.MustCompile(`^AI[でがは]`),
		regexp.MustCompile(`^.{1,10}[。、]$`),
	}
	numberPattern     = regexp.MustCompile(`\d+[時間分万円%倍個件本日週月]`)
	comparisonPattern = regexp.MustCompile(`[→⇒]|から|が.+に`)
	toolPattern       = regexp.MustCompile(`(?i)(Claude|ChatGPT|GAS|Gemini|note|スプシ|スプレッドシート|Python|GitHub)`)
	urlPattern        = regexp.MustCompile(`https?://`)
	hashtagPattern    = regexp.MustCompile(`#\S+`)
	ctaPatterns       = []*regexp.Regexp{
		regexp.MustCompile(`ブクマ`),
		regexp.MustCompile(`保存`),
		regexp.MustCompile(`プロフ`),
		regexp.MustCompile(`リンク`),
		regexp.MustCompile(`べき[。．]?$`),
		regexp.MustCompile(`一択[。．]?$`),
		regexp.MustCompile(`間違いない[。．]?$`),
		regexp.MustCompile(`ガチ[。．]?$`),
		regexp.MustCompile(`マジ[。．]?$`),
		regexp.MustCompile(`[。．]$`),
	}
)

var casualMarkers = []string{
	"ぶっちゃけ", "マジで", "ガチ", "なんだよね", "してた",
	"だよな", "じゃん", "えぐい", "やばい", "なんだけど",
	"正直", "結論から", "これは",
}

var aiMarkers = []string{
	"素晴らしい", "革新的", "画期的", "いかがでしたか",
	"活用してみてください", "重要です", "解説します",
	"しましょう", "おすすめです",
}

// Score rubric-scores text.
func Score(text string) Result {
	details := map[string]any{}
	lines := strings.Split(strings.TrimSpace(text), "\n")
	firstLine := ""
	if len(lines) > 0 {
		firstLine = lines[0]
	}

	hook := 0
	switch {
	case anyMatch(strongHooks, firstLine):
		hook = 2
		details["hook"] = "強フック検出"
	case anyMatch(mediumHooks, firstLine):
		hook = 1
		details["hook"] = "中フック検出"
	default:
		details["hook"] = "フック弱い"
	}

	numbers := numberPattern.FindAllString(text, -1)
	comparisons := comparisonPattern.FindAllString(text, -1)
	tools := toolPattern.FindAllString(text, -1)

	specificity := 0
	switch {
	case len(numbers) >= 2 || (len(numbers) > 0 && len(comparisons) > 0):
		specificity = 2
		details["specificity"] = fmt.Sprintf("数字%d個, 比較表現あり", len(numbers))
	case len(numbers) > 0 || len(tools) > 0:
		specificity = 1
		details["specificity"] = fmt.Sprintf("数字%d個 / ツール名%d個", len(numbers), len(tools))
	default:
		details["specificity"] = "具体性不足"
	}

	casualCount := countMarkers(text, casualMarkers)
	aiCount := countMarkers(text, aiMarkers)
	humanity := 0
	switch {
	case casualCount >= 2 && aiCount == 0:
		humanity = 2
		details["humanity"] = fmt.Sprintf("カジュアル表現%d個, AI感ゼロ", casualCount)
	case casualCount >= 1 && aiCount <= 1:
		humanity = 1
		details["humanity"] = fmt.Sprintf("カジュアル%d個, AI感%d個", casualCount, aiCount)
	default:
		details["humanity"] = fmt.Sprintf("人間味不足 (カジュアル%d, AI感%d)", casualCount, aiCount)
	}

	textLen := len([]rune(strings.ReplaceAll(text, "\n", "")))
	lineCount := 0
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			lineCount++
		}
	}
	structure := 0
	if textLen >= 40 && textLen <= 280 && lineCount >= 3 {
		structure = 1
		details["structure"] = fmt.Sprintf("%d字, %d行 — OK", textLen, lineCount)
	} else {
		details["structure"] = fmt.Sprintf("%d字, %d行 — 要改善", textLen, lineCount)
	}

	lastLines := text
	if len(lines) >= 2 {
		lastLines = strings.Join(lines[len(lines)-2:], "\n")
	}
	cta := 0
	if anyMatch(ctaPatterns, lastLines) {
		cta = 1
		details["cta"] = "CTA検出"
	} else {
		details["cta"] = "CTAなし"
	}

	penalty := 0
	var penalties []string
	if urlPattern.MatchString(text) {
		penalty--
		penalties = append(penalties, "URL含有")
	}
	hashtags := hashtagPattern.FindAllString(text, -1)
	if len(hashtags) > 3 {
		penalty--
		penalties = append(penalties, fmt.Sprintf("ハッシュタグ%d個", len(hashtags)))
	}
	if textLen > 280 {
		penalty--
		penalties = append(penalties, fmt.Sprintf("文字数超過(%d字)", textLen))
	}
	if len(penalties) > 0 {
		details["penalty"] = penalties
	} else {
		details["penalty"] = "なし"
	}

	total := hook + specificity + humanity + structure + cta + penalty
	if total < 0 {
		total = 0
	}

	return Result{
		Total:       float64(total),
		Hook:        hook,
		Specificity: specificity,
		Humanity:    humanity,
		Structure:   structure,
		CTA:         cta,
		Penalty:     penalty,
		Details:     details,
	}
}

func anyMatch(pats []*regexp.Regexp, s string) bool {
	for _, p := range pats {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

func countMarkers(text string, markers []string) int {
	count := 0
	for _, m := range markers {
		if strings.Contains(text, m) {
			count++
		}
	}
	return count
}

// FormatScore renders a Result for Discord-style notification embeds.
func FormatScore(r Result) string {
	return fmt.Sprintf(
		"📊 スコア: %.0f/8 [%s]\n├ フック力: %d/2 (%v)\n├ 具体性: %d/2 (%v)\n├ 人間味: %d/2 (%v)\n├ 構成: %d/1 (%v)\n├ CTA: %d/1 (%v)\n└ ペナルティ: %d (%v)",
		r.Total, r.Rank(),
		r.Hook, r.Details["hook"],
		r.Specificity, r.Details["specificity"],
		r.Humanity, r.Details["humanity"],
		r.Structure, r.Details["structure"],
		r.CTA, r.Details["cta"],
		r.Penalty, r.Details["penalty"],
	)
}
