package score

import "testing"

func TestScoreStrongHookAndCTA(t *testing.T) {
	text := "ぶっちゃけAIエージェントで3時間の作業が30分になった\nこれはマジでやばい\n保存しとくべき。"
	r := Score(text)
	if r.Hook != 2 {
		t.Fatalf("expected strong hook (2), got %d (%v)", r.Hook, r.Details["hook"])
	}
	if r.CTA != 1 {
		t.Fatalf("expected CTA detected, got %d (%v)", r.CTA, r.Details["cta"])
	}
}

func TestScoreWeakHookNoNumbers(t *testing.T) {
	text := "今日は普通の一日でした\n特に何もありませんでした\nまた明日書きます"
	r := Score(text)
	if r.Hook != 0 {
		t.Fatalf("expected weak hook (0), got %d", r.Hook)
	}
	if r.Specificity != 0 {
		t.Fatalf("expected no specificity without numbers/tools, got %d", r.Specificity)
	}
}

func TestScorePenaltiesForURLAndHashtagsAndLength(t *testing.T) {
	long := ""
	for i := 0; i < 300; i++ {
		long += "あ"
	}
	text := long + " https://example.com #a #b #c #d"
	r := Score(text)
	if r.Penalty >= 0 {
		t.Fatalf("expected negative penalty for url+hashtags+length, got %d", r.Penalty)
	}
	if r.Total < 0 {
		t.Fatalf("total must floor at 0, got %v", r.Total)
	}
}

func TestScoreRankBuckets(t *testing.T) {
	cases := []struct {
		total float64
		want  string
	}{
		{8, "S"}, {6, "A"}, {4, "B"}, {0, "C"}, {3, "C"},
	}
	for _, c := range cases {
		r := Result{Total: c.total}
		if got := r.Rank(); got != c.want {
			t.Fatalf("Rank(%v) = %q, want %q", c.total, got, c.want)
		}
	}
}

func TestScoreHumanityVsAISmell(t *testing.T) {
	casual := "ぶっちゃけガチでやばいと思う。"
	ai := "これは素晴らしい革新的な発見です。活用してみてください。"

	rc := Score(casual)
	ra := Score(ai)
	if rc.Humanity <= ra.Humanity {
		t.Fatalf("expected casual text to score higher humanity than AI-smelling text: casual=%d ai=%d", rc.Humanity, ra.Humanity)
	}
}
