package safety

import (
	"strings"
	"testing"
	"time"
)

func originalText(n int) string {
	// 40-280 char band filler that avoids NG words / urls / hashtags.
	return strings.Repeat("あ", n)
}

// An identical past post is flagged with a similarity violation;
// changing a quarter of the string clears it.
func TestCheckDuplicateThreshold(t *testing.T) {
	th := DefaultThresholds()
	th.MinCharsOriginal = 20 // the sample sits under the production minimum
	past := "AIで副業を自動化したら3時間の作業が30分になった。マジでやばい。"
	pastPosts := []string{past}

	res := Check(past, pastPosts, time.Hour, false, QuoteRTContext{}, th)
	if res.IsSafe {
		t.Fatalf("expected identical text to be flagged unsafe, got %+v", res)
	}
	foundSimilarity := false
	for _, v := range res.Violations {
		if strings.Contains(v, "類似度") {
			foundSimilarity = true
		}
	}
	if !foundSimilarity {
		t.Fatalf("expected a violation mentioning similarity, got %v", res.Violations)
	}

	runes := []rune(past)
	quarter := len(runes) / 4
	mutated := append([]rune(nil), runes...)
	for i := 0; i < quarter; i++ {
		mutated[i] = '変'
	}
	res2 := Check(string(mutated), pastPosts, time.Hour, false, QuoteRTContext{}, th)
	if !res2.IsSafe {
		t.Fatalf("expected mutated text (1/4 changed) to pass safety, got %+v", res2)
	}
}

func TestCheckNGWord(t *testing.T) {
	th := DefaultThresholds()
	th.NGWords = []string{"badword"}
	text := originalText(30) + "badword" + originalText(10)
	res := Check(text, nil, time.Hour, false, QuoteRTContext{}, th)
	if res.IsSafe {
		t.Fatalf("expected NG word to cause a hard violation")
	}
}

func TestCheckLengthBounds(t *testing.T) {
	th := DefaultThresholds()

	tooShort := Check("short", nil, time.Hour, false, QuoteRTContext{}, th)
	if tooShort.IsSafe {
		t.Fatalf("expected text under min length to fail")
	}

	tooLong := Check(originalText(300), nil, time.Hour, false, QuoteRTContext{}, th)
	if tooLong.IsSafe {
		t.Fatalf("expected text over max length to fail")
	}

	okOriginal := Check(originalText(50), nil, time.Hour, false, QuoteRTContext{}, th)
	if !okOriginal.IsSafe {
		t.Fatalf("expected a 50-char original to pass, got %+v", okOriginal)
	}

	// quote-RT uses the tighter [30,250] band.
	okQuote := Check(originalText(35), nil, time.Hour, true, QuoteRTContext{}, th)
	if !okQuote.IsSafe {
		t.Fatalf("expected a 35-char quote-RT to pass, got %+v", okQuote)
	}
}

func TestCheckPostingInterval(t *testing.T) {
	th := DefaultThresholds()
	res := Check(originalText(50), nil, 5*time.Minute, false, QuoteRTContext{}, th)
	if res.IsSafe {
		t.Fatalf("expected an elapsed time under posting_interval_min_minutes to fail")
	}
}

func TestCheckQuoteRTSameSourceLimit(t *testing.T) {
	th := DefaultThresholds()
	qrt := QuoteRTContext{SourceUsername: "sama", SameSourceUsedToday: 1}
	res := Check(originalText(35), nil, time.Hour, true, qrt, th)
	if res.IsSafe {
		t.Fatalf("expected same-source-already-used-today to fail for quote-RT")
	}
}

func TestCheckQuoteRTBannedTranslationPattern(t *testing.T) {
	th := DefaultThresholds()
	text := "Translation: " + originalText(30)
	res := Check(text, nil, time.Hour, true, QuoteRTContext{}, th)
	if res.IsSafe {
		t.Fatalf("expected a translation-only pattern to fail on a quote-RT")
	}
}

func TestCheckHashtagAndLinkCaps(t *testing.T) {
	th := DefaultThresholds()
	manyHashtags := originalText(40) + " #a #b #c #d"
	res := Check(manyHashtags, nil, time.Hour, false, QuoteRTContext{}, th)
	if res.IsSafe {
		t.Fatalf("expected hashtag count over max_hashtags to fail")
	}

	linky := originalText(40) + " https://example.com/1 https://example.com/2"
	res2 := Check(linky, nil, time.Hour, false, QuoteRTContext{}, th)
	if res2.IsSafe {
		t.Fatalf("expected link count over max_links to fail for an original post")
	}

	// quote-RT with a URL warns but doesn't block.
	quoteLinky := originalText(35) + " https://example.com/1"
	res3 := Check(quoteLinky, nil, time.Hour, true, QuoteRTContext{}, th)
	if !res3.IsSafe {
		t.Fatalf("expected quote-RT URL to be a warning, not a violation: %+v", res3)
	}
	if len(res3.Warnings) == 0 {
		t.Fatalf("expected a warning about the URL in a quote-RT")
	}
}

func TestCheckConsecutiveQuoteStreakWarns(t *testing.T) {
	th := DefaultThresholds()
	qrt := QuoteRTContext{ConsecutiveQuoteStreak: th.MaxConsecutiveQuotes}
	res := Check(originalText(35), nil, time.Hour, true, qrt, th)
	if !res.IsSafe {
		t.Fatalf("consecutive streak should warn, not block: %+v", res)
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected a warning about the consecutive quote-RT streak")
	}
}

func TestSimilarityRatioBounds(t *testing.T) {
	if r := SimilarityRatio("", ""); r != 1.0 {
		t.Fatalf("two empty strings should be fully similar, got %v", r)
	}
	if r := SimilarityRatio("abc", "xyz"); r != 0.0 {
		t.Fatalf("disjoint strings should have zero similarity, got %v", r)
	}
	if r := SimilarityRatio("hello world", "hello world"); r != 1.0 {
		t.Fatalf("identical strings should have similarity 1.0, got %v", r)
	}
}
