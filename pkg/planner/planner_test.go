package planner

import (
	"math/rand"
	"testing"
	"time"
)

func minutesOf(plan DailyPlan) []int {
	out := make([]int, len(plan))
	for i, s := range plan {
		out[i] = minuteOfDay(s.ScheduledHour, s.ScheduledMin)
	}
	return out
}

// Minimum interval enforcement: 10 fixed slots with jitter=0, plan of
// 10 with min_interval=60 yields the exact documented consecutive
// differences and no shifts.
func TestPlanDailyMinimumIntervalScenario(t *testing.T) {
	bases := []int{420, 510, 615, 720, 855, 960, 1080, 1185, 1260, 1350}
	slots := make([]Slot, len(bases))
	for i, m := range bases {
		slots[i] = Slot{
			ID:            fmtSlotID(i),
			BaseHour:      m / 60,
			BaseMinute:    m % 60,
			JitterMinutes: 0,
			TypePool:      []PostType{Original, QuoteRT},
		}
	}

	opts := PlanOptions{
		DailyMin:             10,
		DailyMax:             10,
		AvailableQuotes:      10,
		MinIntervalMinutes:   60,
		QuoteRTRatioMax:      0.7,
		MaxConsecutiveQuotes: 2,
		Slots:                slots,
		Rand:                 rand.New(rand.NewSource(1)),
	}
	plan := PlanDaily(opts)
	if len(plan) != 10 {
		t.Fatalf("expected 10 slots, got %d", len(plan))
	}

	mins := minutesOf(plan)
	wantDiffs := []int{90, 105, 105, 135, 105, 120, 105, 75, 90}
	for i := 1; i < len(mins); i++ {
		diff := mins[i] - mins[i-1]
		if diff < 60 {
			t.Fatalf("consecutive diff %d (index %d) below min_interval 60", diff, i)
		}
		if diff != wantDiffs[i-1] {
			t.Fatalf("diff[%d] = %d, want %d (no shift expected with jitter=0)", i-1, diff, wantDiffs[i-1])
		}
	}

	quoteCount := 0
	for _, s := range plan {
		if s.Type == QuoteRT {
			quoteCount++
		}
	}
	if ratio := float64(quoteCount) / float64(len(plan)); ratio > 0.7 {
		t.Fatalf("quote_rt ratio %v exceeds 0.7", ratio)
	}
	if streak := maxConsecutiveQuoteStreak(plan); streak > 2 {
		t.Fatalf("found a run of %d consecutive quote_rt slots, want <= 2", streak)
	}
}

func fmtSlotID(i int) string {
	return "slot_" + string(rune('a'+i))
}

func maxConsecutiveQuoteStreak(plan DailyPlan) int {
	best, cur := 0, 0
	for _, s := range plan {
		if s.Type == QuoteRT {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 0
		}
	}
	return best
}

// Warm-up phase 0: account started yesterday means phase week_0 caps
// quote_rt at 0 and originals at <= 3.
func TestPlanDailyWarmupWeekZero(t *testing.T) {
	now := time.Now()
	start := now.AddDate(0, 0, -1)
	warmup := GetWarmupLimits(&start, now)
	if warmup == nil || warmup.Phase != "week_0" {
		t.Fatalf("expected week_0 phase, got %+v", warmup)
	}

	opts := PlanOptions{
		DailyMin:             1,
		DailyMax:             10,
		AvailableQuotes:      10,
		MinIntervalMinutes:   60,
		QuoteRTRatioMax:      0.7,
		MaxConsecutiveQuotes: 2,
		Warmup:               warmup,
		Rand:                 rand.New(rand.NewSource(2)),
	}
	plan := PlanDaily(opts)

	quoteCount, originalCount := 0, 0
	for _, s := range plan {
		switch s.Type {
		case QuoteRT:
			quoteCount++
		case Original:
			originalCount++
		}
	}
	if quoteCount != 0 {
		t.Fatalf("expected zero quote_rt in week_0 warm-up, got %d", quoteCount)
	}
	if originalCount > 3 {
		t.Fatalf("expected <=3 originals in week_0 warm-up, got %d", originalCount)
	}
}

func TestGetWarmupLimitsNilWithoutStartDate(t *testing.T) {
	if got := GetWarmupLimits(nil, time.Now()); got != nil {
		t.Fatalf("expected nil warm-up limits without a start date, got %+v", got)
	}
}

// For any window of max_consecutive_quotes+1 consecutive
// slots, at least one is original, checked across repeated randomized runs.
func TestPlanDailyConsecutiveQuoteInvariant(t *testing.T) {
	for seed := int64(0); seed < 30; seed++ {
		opts := PlanOptions{
			DailyMin:             4,
			DailyMax:             10,
			AvailableQuotes:      10,
			MinIntervalMinutes:   30,
			QuoteRTRatioMax:      0.7,
			MaxConsecutiveQuotes: 2,
			Rand:                 rand.New(rand.NewSource(seed)),
		}
		plan := PlanDaily(opts)
		if streak := maxConsecutiveQuoteStreak(plan); streak > opts.MaxConsecutiveQuotes {
			t.Fatalf("seed %d: found streak %d > max %d", seed, streak, opts.MaxConsecutiveQuotes)
		}
		mins := minutesOf(plan)
		for i := 1; i < len(mins); i++ {
			if mins[i]-mins[i-1] < opts.MinIntervalMinutes {
				t.Fatalf("seed %d: interval %d below minimum %d", seed, mins[i]-mins[i-1], opts.MinIntervalMinutes)
			}
		}
	}
}

func TestSlotForNow(t *testing.T) {
	plan := DailyPlan{
		{SlotID: "a", ScheduledHour: 9, ScheduledMin: 0, Type: Original},
		{SlotID: "b", ScheduledHour: 18, ScheduledMin: 30, Type: QuoteRT},
	}
	now := time.Date(2026, 1, 1, 9, 5, 0, 0, time.UTC)
	slot, ok := SlotForNow(plan, now, 10)
	if !ok || slot.SlotID != "a" {
		t.Fatalf("expected to find slot a within tolerance, got %+v ok=%v", slot, ok)
	}

	farNow := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	_, ok2 := SlotForNow(plan, farNow, 10)
	if ok2 {
		t.Fatalf("expected no slot within tolerance at noon")
	}
}
