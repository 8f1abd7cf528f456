// Package safety implements the pre-publication validator: NG-words,
// length/hashtag/link caps, near-duplicate detection, posting-interval
// enforcement, and quote-RT-specific rules.
package safety

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// QuoteRTContext carries the quote-RT-specific inputs to Check: how many
// times the same source account was already quoted today, and the current
// consecutive quote-RT streak.
type QuoteRTContext struct {
	SourceUsername        string
	SameSourceUsedToday    int
	ConsecutiveQuoteStreak int
}

// Result is the pure output of Check.
type Result struct {
	IsSafe     bool
	Violations []string
	Warnings   []string
}

// Thresholds are the tunable limits Check enforces.
type Thresholds struct {
	MinCharsOriginal      int
	MaxCharsOriginal      int
	MinCharsQuoteRT       int
	MaxCharsQuoteRT       int
	MaxHashtags           int
	MaxLinks              int
	DuplicateThreshold    float64
	PostingIntervalMin    time.Duration
	MaxSameSourcePerDay   int
	MaxConsecutiveQuotes  int
	NGWords                []string
	BannedQuoteOnlyPatterns []string
}

// DefaultThresholds returns the production limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinCharsOriginal:       40,
		MaxCharsOriginal:       280,
		MinCharsQuoteRT:        30,
		MaxCharsQuoteRT:        250,
		MaxHashtags:            3,
		MaxLinks:               1,
		DuplicateThreshold:     0.8,
		PostingIntervalMin:     30 * time.Minute,
		MaxSameSourcePerDay:    1,
		MaxConsecutiveQuotes:   2,
		BannedQuoteOnlyPatterns: []string{"翻訳しました", "Translation:", "translated"},
	}
}

var (
	urlPattern     = regexp.MustCompile(`https?://\S+`)
	hashtagPattern = regexp.MustCompile(`#\S+`)
)

// Check runs every hard-violation and warning rule against text, given the
// recent posting history and whether this is a quote-RT.
func Check(text string, pastPosts []string, lastPostAgo time.Duration, isQuoteRT bool, qrt QuoteRTContext, th Thresholds) Result {
	var violations, warnings []string

	for _, ng := range th.NGWords {
		if ng == "" {
			continue
		}
		if strings.Contains(strings.ToLower(text), strings.ToLower(ng)) {
			violations = append(violations, fmt.Sprintf("NGワード検出: %s", ng))
		}
	}

	stripped := strings.ReplaceAll(text, "\n", "")
	length := len([]rune(stripped))
	minChars, maxChars := th.MinCharsOriginal, th.MaxCharsOriginal
	if isQuoteRT {
		minChars, maxChars = th.MinCharsQuoteRT, th.MaxCharsQuoteRT
	}
	if length < minChars || length > maxChars {
		violations = append(violations, fmt.Sprintf("文字数範囲外: %d文字 (許容 %d-%d)", length, minChars, maxChars))
	}

	hashtags := hashtagPattern.FindAllString(text, -1)
	if len(hashtags) > th.MaxHashtags {
		violations = append(violations, fmt.Sprintf("ハッシュタグ過多: %d個", len(hashtags)))
	}

	urls := urlPattern.FindAllString(text, -1)
	if !isQuoteRT && len(urls) > th.MaxLinks {
		violations = append(violations, fmt.Sprintf("リンク過多: %d個", len(urls)))
	}
	if isQuoteRT && len(urls) > 0 {
		warnings = append(warnings, "引用RT内にURL — プラットフォームが引用元リンクを自動付与します")
	}

	for _, past := range pastPosts {
		ratio := SimilarityRatio(text, past)
		if ratio >= th.DuplicateThreshold {
			violations = append(violations, fmt.Sprintf("類似度が高い過去投稿あり (similarity=%.2f)", ratio))
			break
		}
	}

	if lastPostAgo < th.PostingIntervalMin {
		violations = append(violations, fmt.Sprintf("投稿間隔不足: 前回投稿から%s", lastPostAgo.Round(time.Second)))
	}

	if isQuoteRT {
		if qrt.SameSourceUsedToday >= th.MaxSameSourcePerDay {
			violations = append(violations, fmt.Sprintf("同一ソースを本日既に%d回引用済み: %s", qrt.SameSourceUsedToday, qrt.SourceUsername))
		}
		for _, pat := range th.BannedQuoteOnlyPatterns {
			if strings.Contains(text, pat) {
				violations = append(violations, fmt.Sprintf("翻訳のみ投稿パターン検出: %s", pat))
			}
		}
		if qrt.ConsecutiveQuoteStreak >= th.MaxConsecutiveQuotes {
			warnings = append(warnings, fmt.Sprintf("引用RTの連続投稿が%d回に達しています", qrt.ConsecutiveQuoteStreak))
		}
	}

	emojiCount := countEmoji(text)
	if emojiCount > 3 {
		warnings = append(warnings, fmt.Sprintf("絵文字が多い: %d個", emojiCount))
	}

	return Result{
		IsSafe:     len(violations) == 0,
		Violations: violations,
		Warnings:   warnings,
	}
}

var emojiPattern = regexp.MustCompile(`[\x{1F300}-\x{1FAFF}\x{2600}-\x{27BF}]`)

func countEmoji(text string) int {
	return len(emojiPattern.FindAllString(text, -1))
}
