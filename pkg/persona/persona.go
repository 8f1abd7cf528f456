// Package persona implements the Persona Analyzer: deriving a style
// profile from a target account's prior posts, used to inject voice and
// tone into generation prompts.
package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/llm"
)

// Profile is the derived style profile for one target account.
type Profile struct {
	FirstPerson     string   `json:"first_person"`
	SentenceEndings []string `json:"sentence_endings"`
	Catchphrases    []string `json:"catchphrases"`
	EmotionWords    []string `json:"emotion_words"`
	AvgTweetLength  float64  `json:"avg_tweet_length"`
	AvgLineCount    float64  `json:"avg_line_count"`
	EmojiFrequency  float64  `json:"emoji_frequency"`
	TopEmojis       []string `json:"top_emojis"`
	PunctuationStyle string  `json:"punctuation_style"`
	FormalityLevel  string   `json:"formality_level"`
	Tone            string   `json:"tone,omitempty"`
	Topics          []string `json:"topics,omitempty"`
	PromptSummary   string   `json:"prompt_summary,omitempty"`
	SampleTweets    []string `json:"sample_tweets"`
}

// firstPersons is the fixed candidate list of first-person pronouns scanned
// for frequency.
var firstPersons = []string{"私", "僕", "俺", "自分"}

// emotionWords is the fixed candidate list scanned for the EmotionWords field.
var emotionWords = []string{"やばい", "えぐい", "マジで", "ぶっちゃけ", "正直", "ガチ"}

// endingPatterns is the fixed regex table of sentence-ending styles.
var endingPatterns = []struct {
	Label   string
	Pattern *regexp.Regexp
}{
	{"polite_masu", regexp.MustCompile(`ます[。！？]?$`)},
	{"polite_desu", regexp.MustCompile(`です[。！？]?$`)},
	{"casual_da", regexp.MustCompile(`だ[。！？]?$`)},
	{"casual_yo", regexp.MustCompile(`よ[。！？]?$`)},
	{"casual_ne", regexp.MustCompile(`ね[。！？]?$`)},
	{"casual_na", regexp.MustCompile(`な[。！？]?$`)},
	{"question", regexp.MustCompile(`[？?]$`)},
	{"exclamation", regexp.MustCompile(`[！!]$`)},
}

var nominalStopPattern = regexp.MustCompile(`[\p{Han}\p{Hiragana}\p{Katakana}]+。?$`)
var kanjiPattern = regexp.MustCompile(`\p{Han}`)
var emojiPattern = regexp.MustCompile(`[\x{1F300}-\x{1FAFF}\x{2600}-\x{27BF}]`)
var urlPattern = regexp.MustCompile(`https?://`)

// Analyze derives a Profile from a corpus of past posts using only
// statistical passes, no LLM.
func Analyze(posts []string) Profile {
	p := Profile{}

	p.FirstPerson = mostFrequent(posts, firstPersons)
	p.SentenceEndings = analyzeEndings(posts)
	p.Catchphrases = extractCatchphrases(posts)
	p.EmotionWords = frequentWords(posts, emotionWords)

	totalLen, totalLines, sampleWithEmoji := 0, 0, 0
	kanjiChars, totalChars := 0, 0
	for _, post := range posts {
		totalLen += len([]rune(post))
		lines := strings.Split(post, "\n")
		totalLines += len(lines)
		if emojiPattern.MatchString(post) {
			sampleWithEmoji++
		}
		kanjiChars += len(kanjiPattern.FindAllString(post, -1))
		totalChars += len([]rune(post))
	}
	n := len(posts)
	if n > 0 {
		p.AvgTweetLength = float64(totalLen) / float64(n)
		p.AvgLineCount = float64(totalLines) / float64(n)
		p.EmojiFrequency = float64(sampleWithEmoji) / float64(n)
	}
	p.TopEmojis = topEmojis(posts)
	p.PunctuationStyle = classifyPunctuation(posts)
	p.FormalityLevel = classifyFormality(p.SentenceEndings)
	p.SampleTweets = selectSampleTweets(posts)

	return p
}

func mostFrequent(posts []string, candidates []string) string {
	counts := map[string]int{}
	for _, post := range posts {
		for _, c := range candidates {
			counts[c] += strings.Count(post, c)
		}
	}
	best, bestCount := "", 0
	for _, c := range candidates {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best
}

func frequentWords(posts []string, candidates []string) []string {
	counts := map[string]int{}
	for _, post := range posts {
		for _, c := range candidates {
			if strings.Contains(post, c) {
				counts[c]++
			}
		}
	}
	var out []string
	for _, c := range candidates {
		if counts[c] > 0 {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return counts[out[i]] > counts[out[j]] })
	return out
}

func analyzeEndings(posts []string) []string {
	counts := map[string]int{}
	for _, post := range posts {
		for _, line := range strings.Split(post, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			matched := false
			for _, ep := range endingPatterns {
				if ep.Pattern.MatchString(line) {
					counts[ep.Label]++
					matched = true
					break
				}
			}
			if !matched && nominalStopPattern.MatchString(line) {
				counts["nominal_stop"]++
			}
		}
	}
	type kv struct {
		k string
		v int
	}
	var kvs []kv
	for k, v := range counts {
		kvs = append(kvs, kv{k, v})
	}
	sort.Slice(kvs, func(i, j int) bool { return kvs[i].v > kvs[j].v })
	var out []string
	for _, e := range kvs {
		out = append(out, e.k)
	}
	return out
}

// extractCatchphrases counts 4-15 char chunks split on punctuation and
// newlines, keeping those appearing >=3 times.
func extractCatchphrases(posts []string) []string {
	splitter := regexp.MustCompile(`[。、\n！？]`)
	counts := map[string]int{}
	for _, post := range posts {
		for _, chunk := range splitter.Split(post, -1) {
			chunk = strings.TrimSpace(chunk)
			n := len([]rune(chunk))
			if n >= 4 && n <= 15 {
				counts[chunk]++
			}
		}
	}
	var out []string
	for phrase, c := range counts {
		if c >= 3 {
			out = append(out, phrase)
		}
	}
	sort.Slice(out, func(i, j int) bool { return counts[out[i]] > counts[out[j]] })
	return out
}

func topEmojis(posts []string) []string {
	counts := map[string]int{}
	for _, post := range posts {
		for _, e := range emojiPattern.FindAllString(post, -1) {
			counts[e]++
		}
	}
	var out []string
	for e := range counts {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return counts[out[i]] > counts[out[j]] })
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

func classifyPunctuation(posts []string) string {
	periods, breaks, nominal := 0, 0, 0
	for _, post := range posts {
		periods += strings.Count(post, "。")
		breaks += strings.Count(post, "\n")
		for _, line := range strings.Split(post, "\n") {
			if nominalStopPattern.MatchString(strings.TrimSpace(line)) {
				nominal++
			}
		}
	}
	n := len(posts)
	if n == 0 {
		return "mixed"
	}
	switch {
	case float64(nominal)/float64(n) > 0.3:
		return "heavy_nominal_stop"
	case float64(breaks)/float64(n) > 2:
		return "many_line_breaks"
	case float64(periods)/float64(n) > 2:
		return "many_periods"
	default:
		return "few_periods"
	}
}

func classifyFormality(endings []string) string {
	politeCount, casualCount := 0, 0
	for _, e := range endings {
		switch e {
		case "polite_masu", "polite_desu":
			politeCount++
		case "casual_da", "casual_yo", "casual_ne", "casual_na":
			casualCount++
		}
	}
	switch {
	case politeCount > casualCount*2:
		return "politeベース"
	case casualCount > politeCount*2:
		return "casualベース"
	default:
		return "mixed"
	}
}

// selectSampleTweets picks up to 8 exemplars in the 50-250 char band,
// preferring ones with line breaks and without URLs. When fewer than 5
// posts fall in the band, all of them are returned.
func selectSampleTweets(posts []string) []string {
	type scored struct {
		text  string
		score int
	}
	var candidates []scored
	for _, post := range posts {
		n := len([]rune(post))
		if n < 50 || n > 250 {
			continue
		}
		sc := 0
		if strings.Contains(post, "\n") {
			sc++
		}
		if !urlPattern.MatchString(post) {
			sc++
		}
		candidates = append(candidates, scored{post, sc})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	max := 8
	if len(candidates) < max {
		max = len(candidates)
	}
	if max < 5 && len(candidates) >= 5 {
		max = 5
	}
	out := make([]string, 0, max)
	for i := 0; i < max; i++ {
		out = append(out, candidates[i].text)
	}
	return out
}

// AIAnalyze optionally calls the LLM with up to 30 samples to derive tone,
// topics, and a prompt-ready summary, filling the fields the statistical
// pass cannot.
func AIAnalyze(ctx context.Context, model llm.LLM, p *Profile, posts []string) error {
	if model == nil {
		return nil
	}
	n := len(posts)
	if n > 30 {
		n = 30
	}
	prompt := fmt.Sprintf(
		"次のツイート群から、トーン・話題・200字以内の要約を {\"tone\": ..., \"topics\": [...], \"summary\": ...} のJSONで返してください:\n%s",
		strings.Join(posts[:n], "\n---\n"),
	)
	text, err := model.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("persona: ai analyze: %w", err)
	}
	text = strings.TrimSpace(text)

	var parsed struct {
		Tone    string   `json:"tone"`
		Topics  []string `json:"topics"`
		Summary string   `json:"summary"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err == nil && parsed.Summary != "" {
		p.Tone = parsed.Tone
		p.Topics = parsed.Topics
		p.PromptSummary = parsed.Summary
		return nil
	}

	// Non-JSON responses still make a usable summary.
	p.PromptSummary = text
	return nil
}

// InjectionBlock renders the deterministic Markdown block the Generation
// Orchestrator appends to its prompts.
func InjectionBlock(p Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## アカウントのペルソナ\n")
	fmt.Fprintf(&b, "- 一人称: %s\n", p.FirstPerson)
	fmt.Fprintf(&b, "- 文末パターン: %s\n", strings.Join(p.SentenceEndings, ", "))
	fmt.Fprintf(&b, "- 口癖: %s\n", strings.Join(p.Catchphrases, ", "))
	tone := p.Tone
	if tone == "" {
		tone = p.FormalityLevel
	}
	fmt.Fprintf(&b, "- トーン: %s\n", tone)
	if len(p.Topics) > 0 {
		fmt.Fprintf(&b, "- 話題: %s\n", strings.Join(p.Topics, ", "))
	}
	if p.PromptSummary != "" {
		fmt.Fprintf(&b, "- 要約: %s\n", p.PromptSummary)
	}
	return b.String()
}
