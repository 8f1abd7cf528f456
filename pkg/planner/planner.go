// Package planner implements the Mix Planner: the fixed 10-slot roster,
// multi-week warm-up ramp, quadratic daily-count selection, type
// assignment, time jitter, and minimum-interval sweep that produce a
// DailyPlan.
package planner

import (
	"math"
	"math/rand"
	"sort"
	"time"
)

// PostType is the kind of post assigned to a slot.
type PostType string

const (
	Original PostType = "original"
	QuoteRT  PostType = "quote_rt"
)

// MinIntervalMinutes is the default minimum spacing between posts.
const MinIntervalMinutes = 60

// Slot is one roster entry before randomization.
type Slot struct {
	ID             string
	BaseHour       int
	BaseMinute     int
	JitterMinutes  int
	TypePool       []PostType
}

// PlannedSlot is one entry of a produced DailyPlan.
type PlannedSlot struct {
	SlotID         string   `json:"slot_id"`
	ScheduledHour  int      `json:"scheduled_hour"`
	ScheduledMin   int      `json:"scheduled_minute"`
	Type           PostType `json:"type"`
	TimeLabel      string   `json:"time_label"`
}

// DailyPlan is the ordered sequence of publishing slots for one day.
type DailyPlan []PlannedSlot

// DefaultSlots is the fixed 10-slot roster over the posting window.
var DefaultSlots = []Slot{
	{ID: "early_morning", BaseHour: 7, BaseMinute: 0, JitterMinutes: 15, TypePool: []PostType{Original}},
	{ID: "morning_commute", BaseHour: 8, BaseMinute: 30, JitterMinutes: 15, TypePool: []PostType{Original, QuoteRT}},
	{ID: "late_morning", BaseHour: 10, BaseMinute: 15, JitterMinutes: 20, TypePool: []PostType{Original, QuoteRT}},
	{ID: "noon", BaseHour: 12, BaseMinute: 0, JitterMinutes: 15, TypePool: []PostType{Original, QuoteRT}},
	{ID: "early_afternoon", BaseHour: 14, BaseMinute: 15, JitterMinutes: 20, TypePool: []PostType{QuoteRT}},
	{ID: "mid_afternoon", BaseHour: 16, BaseMinute: 0, JitterMinutes: 20, TypePool: []PostType{Original, QuoteRT}},
	{ID: "evening_commute", BaseHour: 18, BaseMinute: 0, JitterMinutes: 15, TypePool: []PostType{Original, QuoteRT}},
	{ID: "early_evening", BaseHour: 19, BaseMinute: 30, JitterMinutes: 20, TypePool: []PostType{QuoteRT}},
	{ID: "night", BaseHour: 21, BaseMinute: 0, JitterMinutes: 20, TypePool: []PostType{Original, QuoteRT}},
	{ID: "late_night", BaseHour: 22, BaseMinute: 45, JitterMinutes: 15, TypePool: []PostType{Original}},
}

// WarmupLimits caps daily volume/composition for a new account.
type WarmupLimits struct {
	Phase          string
	DailyMin       int
	DailyMax       int
	MaxQuoteRT     int
	MaxOriginal    int
}

// GetWarmupLimits returns the phase caps for an account given its start
// date (nil means no warm-up applies).
func GetWarmupLimits(startDate *time.Time, now time.Time) *WarmupLimits {
	if startDate == nil {
		return nil
	}
	days := int(now.Sub(*startDate).Hours() / 24)
	switch {
	case days < 7:
		return &WarmupLimits{Phase: "week_0", DailyMin: 1, DailyMax: 3, MaxQuoteRT: 0, MaxOriginal: 3}
	case days < 14:
		return &WarmupLimits{Phase: "week_1", DailyMin: 2, DailyMax: 4, MaxQuoteRT: 1, MaxOriginal: 3}
	case days < 21:
		return &WarmupLimits{Phase: "week_2", DailyMin: 3, DailyMax: 6, MaxQuoteRT: 2, MaxOriginal: 4}
	case days < 28:
		return &WarmupLimits{Phase: "week_3", DailyMin: 4, DailyMax: 8, MaxQuoteRT: 4, MaxOriginal: 5}
	default:
		return &WarmupLimits{Phase: "week_4_plus", DailyMin: 4, DailyMax: 10, MaxQuoteRT: 7, MaxOriginal: 6}
	}
}

// PlanOptions parameterizes PlanDaily.
type PlanOptions struct {
	DailyMin             int
	DailyMax             int
	AvailableQuotes      int
	MinIntervalMinutes   int
	QuoteRTRatioMax      float64
	MaxConsecutiveQuotes int
	Warmup               *WarmupLimits
	Rand                 *rand.Rand
	Slots                []Slot // defaults to DefaultSlots if nil
}

func (o *PlanOptions) normalize() {
	if o.DailyMin == 0 {
		o.DailyMin = 4
	}
	if o.DailyMax == 0 {
		o.DailyMax = 10
	}
	if o.MinIntervalMinutes == 0 {
		o.MinIntervalMinutes = MinIntervalMinutes
	}
	if o.QuoteRTRatioMax == 0 {
		o.QuoteRTRatioMax = 0.7
	}
	if o.MaxConsecutiveQuotes == 0 {
		o.MaxConsecutiveQuotes = 2
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.Slots == nil {
		o.Slots = DefaultSlots
	}
}

// PlanDaily produces a DailyPlan: pick a target count, select slots,
// assign types, jitter times, then enforce the minimum interval.
func PlanDaily(opts PlanOptions) DailyPlan {
	opts.normalize()

	dailyMin, dailyMax := opts.DailyMin, opts.DailyMax
	availableQuotes := opts.AvailableQuotes
	if opts.Warmup != nil {
		if opts.Warmup.DailyMin > dailyMin {
			dailyMin = opts.Warmup.DailyMin
		}
		if opts.Warmup.DailyMax < dailyMax || dailyMax == 0 {
			dailyMax = opts.Warmup.DailyMax
		}
		if opts.Warmup.MaxQuoteRT < availableQuotes {
			availableQuotes = opts.Warmup.MaxQuoteRT
		}
	}
	if dailyMax < dailyMin {
		// Warm-up caps win over the configured floor.
		dailyMin = dailyMax
	}

	n := randomDailyCount(opts.Rand, dailyMin, dailyMax)
	selected := selectSlots(opts.Rand, opts.Slots, n)
	typed := assignTypes(selected, availableQuotes, opts.QuoteRTRatioMax, opts.MaxConsecutiveQuotes)
	jittered := randomizeTimes(opts.Rand, typed)
	return enforceMinInterval(jittered, opts.MinIntervalMinutes)
}

// randomDailyCount picks N in [min, max] with quadratic weight favoring
// higher counts, so runs feel "active" but vary.
func randomDailyCount(r *rand.Rand, min, max int) int {
	if max <= min {
		return min
	}
	span := max - min
	weights := make([]float64, span+1)
	total := 0.0
	for i := 0; i <= span; i++ {
		w := float64((i + 1) * (i + 1))
		weights[i] = w
		total += w
	}
	pick := r.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if pick <= acc {
			return min + i
		}
	}
	return max
}

// selectSlots always includes the earliest and latest base-time slots,
// random-samples the rest up to n, then sorts by base time.
func selectSlots(r *rand.Rand, slots []Slot, n int) []Slot {
	if n >= len(slots) {
		n = len(slots)
	}
	if n <= 0 {
		return nil
	}
	ordered := append([]Slot(nil), slots...)
	sort.Slice(ordered, func(i, j int) bool {
		return minuteOfDay(ordered[i].BaseHour, ordered[i].BaseMinute) < minuteOfDay(ordered[j].BaseHour, ordered[j].BaseMinute)
	})

	if n <= 2 {
		out := []Slot{ordered[0]}
		if n == 2 {
			out = append(out, ordered[len(ordered)-1])
		}
		return out
	}

	first, last := ordered[0], ordered[len(ordered)-1]
	middle := append([]Slot(nil), ordered[1:len(ordered)-1]...)
	r.Shuffle(len(middle), func(i, j int) { middle[i], middle[j] = middle[j], middle[i] })

	need := n - 2
	if need > len(middle) {
		need = len(middle)
	}
	picked := append([]Slot{first, last}, middle[:need]...)
	sort.Slice(picked, func(i, j int) bool {
		return minuteOfDay(picked[i].BaseHour, picked[i].BaseMinute) < minuteOfDay(picked[j].BaseHour, picked[j].BaseMinute)
	})
	return picked
}

// assignTypes walks slots in time order, respecting each slot's type pool,
// the consecutive-quote cap, and the overall quote-RT budget.
func assignTypes(slots []Slot, availableQuotes int, ratioMax float64, maxConsecutive int) []PlannedSlot {
	maxQuotesByRatio := int(math.Floor(float64(len(slots)) * ratioMax))
	quoteBudget := availableQuotes
	if maxQuotesByRatio < quoteBudget {
		quoteBudget = maxQuotesByRatio
	}
	if len(slots) < quoteBudget {
		quoteBudget = len(slots)
	}

	out := make([]PlannedSlot, 0, len(slots))
	streak := 0
	quotesUsed := 0

	for _, s := range slots {
		canQuote := containsType(s.TypePool, QuoteRT) && quotesUsed < quoteBudget && streak < maxConsecutive
		canOriginal := containsType(s.TypePool, Original)

		var t PostType
		switch {
		case canQuote && canOriginal:
			if streak >= maxConsecutive {
				t = Original
			} else {
				t = QuoteRT
			}
		case canQuote:
			t = QuoteRT
		case canOriginal:
			t = Original
		default:
			t = Original
		}

		if t == QuoteRT {
			streak++
			quotesUsed++
		} else {
			streak = 0
		}

		out = append(out, PlannedSlot{
			SlotID:        s.ID,
			ScheduledHour: s.BaseHour,
			ScheduledMin:  s.BaseMinute,
			Type:          t,
		})
	}
	return out
}

func containsType(pool []PostType, t PostType) bool {
	for _, p := range pool {
		if p == t {
			return true
		}
	}
	return false
}

// randomizeTimes draws a jitter delta for each slot and clamps the hour to [6, 23].
func randomizeTimes(r *rand.Rand, slots []PlannedSlot) []PlannedSlot {
	out := make([]PlannedSlot, len(slots))
	for i, s := range slots {
		jitter := 0
		if base, ok := jitterFor(s.SlotID); ok {
			jitter = base
		}
		delta := 0
		if jitter > 0 {
			delta = r.Intn(2*jitter+1) - jitter
		}
		total := minuteOfDay(s.ScheduledHour, s.ScheduledMin) + delta
		if total < 6*60 {
			total = 6 * 60
		}
		if total > 23*60+59 {
			total = 23*60 + 59
		}
		s.ScheduledHour = total / 60
		s.ScheduledMin = total % 60
		s.TimeLabel = formatTime(s.ScheduledHour, s.ScheduledMin)
		out[i] = s
	}
	return out
}

func jitterFor(slotID string) (int, bool) {
	for _, s := range DefaultSlots {
		if s.ID == slotID {
			return s.JitterMinutes, true
		}
	}
	return 0, false
}

// enforceMinInterval sweeps left to right, pushing a slot forward to
// exactly the minimum gap when it would otherwise land too close to the
// previous one.
func enforceMinInterval(slots []PlannedSlot, minInterval int) []PlannedSlot {
	sort.Slice(slots, func(i, j int) bool {
		return minuteOfDay(slots[i].ScheduledHour, slots[i].ScheduledMin) < minuteOfDay(slots[j].ScheduledHour, slots[j].ScheduledMin)
	})
	out := make([]PlannedSlot, len(slots))
	prevMinute := -1 << 30
	for i, s := range slots {
		m := minuteOfDay(s.ScheduledHour, s.ScheduledMin)
		if prevMinute > -1<<29 && m-prevMinute < minInterval {
			m = prevMinute + minInterval
		}
		if m > 23*60+59 {
			m = 23*60 + 59
		}
		s.ScheduledHour = m / 60
		s.ScheduledMin = m % 60
		s.TimeLabel = formatTime(s.ScheduledHour, s.ScheduledMin)
		out[i] = s
		prevMinute = m
	}
	return out
}

func minuteOfDay(hour, minute int) int {
	return hour*60 + minute
}

func formatTime(hour, minute int) string {
	return time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC).Format("15:04")
}

// SlotForNow returns the slot (if any) whose scheduled minute-of-day is
// within toleranceMinutes of now's minute-of-day.
func SlotForNow(plan DailyPlan, now time.Time, toleranceMinutes int) (PlannedSlot, bool) {
	nowMinute := minuteOfDay(now.Hour(), now.Minute())
	for _, s := range plan {
		diff := minuteOfDay(s.ScheduledHour, s.ScheduledMin) - nowMinute
		if diff < 0 {
			diff = -diff
		}
		if diff <= toleranceMinutes {
			return s, true
		}
	}
	return PlannedSlot{}, false
}

// FormatPlan renders a plan for the dispatcher's terminal summary and the
// notifier.
func FormatPlan(plan DailyPlan) string {
	s := ""
	for _, slot := range plan {
		s += slot.TimeLabel + " " + string(slot.Type) + "\n"
	}
	return s
}
