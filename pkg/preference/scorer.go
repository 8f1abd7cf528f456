package preference

import (
	"math"
	"strings"
)

// Result is the pure output of scoring one candidate.
type Result struct {
	Score          float64
	MatchedTopics  []string
	MatchedKeywords []string
	IsBlocked      bool
	IsFocusMatch   bool
}

// Score blends the engagement-independent signals (keyword weights, topic
// cluster classification, account boosts, weekly focus) into a single
// preference score.
func Score(text, author string, prefs Preferences) Result {
	if contains(prefs.AccountOverrides.Blocked, author) {
		return Result{Score: 0, IsBlocked: true}
	}

	lower := strings.ToLower(text)
	score := 1.0

	matchedKeywords := []string{}
	keywordSum := 0.0
	for kw, weight := range prefs.KeywordWeights {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			matchedKeywords = append(matchedKeywords, kw)
			keywordSum += weight
		}
	}
	if keywordSum > 2.0 {
		keywordSum = 2.0
	}
	score += keywordSum

	matchedTopics := classifyTopics(lower, prefs.TopicClusters)
	for _, topic := range matchedTopics {
		if contains(prefs.TopicPreferences.Preferred, topic) {
			score += 1.0
		}
		if contains(prefs.TopicPreferences.Avoid, topic) {
			score -= 1.5
		}
	}

	if contains(prefs.AccountOverrides.Boosted, author) {
		score *= 1.5
	}

	isFocusMatch := false
	for _, kw := range prefs.WeeklyFocus.FocusKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			score += 0.5
			isFocusMatch = true
			break
		}
	}
	if contains(prefs.WeeklyFocus.FocusAccounts, author) {
		score += 0.5
		isFocusMatch = true
	}

	if score < 0 {
		score = 0
	}
	score = math.Round(score*100) / 100

	return Result{
		Score:           score,
		MatchedTopics:   matchedTopics,
		MatchedKeywords: matchedKeywords,
		IsFocusMatch:    isFocusMatch,
	}
}

// classifyTopics matches text against clusters: a topic matches if ≥2
// cluster keywords appear, or a single keyword of length ≥5 appears.
func classifyTopics(lower string, clusters map[string][]string) []string {
	var matched []string
	for topic, keywords := range clusters {
		count := 0
		longMatch := false
		for _, kw := range keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(kw)) {
				count++
				if len([]rune(kw)) >= 5 {
					longMatch = true
				}
			}
		}
		if count >= 2 || longMatch {
			matched = append(matched, topic)
		}
	}
	return matched
}

// contains is case-insensitive on both sides: operators enter account
// handles and topic names in whatever casing they like, while the feed
// reports canonical casing.
func contains(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// Blended computes the upstream collector ranking key: (likes + 3*retweets) * max(score, 0.1).
func Blended(likes, retweets int, score float64) float64 {
	s := score
	if s < 0.1 {
		s = 0.1
	}
	return float64(likes+3*retweets) * s
}
