package pdca

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/db/models"
)

// RecordCycle persists one PDCA cycle's outcome to the metrics warehouse
// when db is non-nil.
func RecordCycle(db *gorm.DB, accountID int, analysis Analysis, changeCount int, ranAt time.Time) error {
	if db == nil {
		return nil
	}
	cycle := models.PDCACycle{
		ID:             uuid.NewString(),
		AccountID:      accountID,
		TotalDecisions: analysis.TotalDecisions,
		ApprovalRate:   analysis.ApprovalRate,
		ChangeCount:    changeCount,
		RanAt:          ranAt,
	}
	if err := db.Create(&cycle).Error; err != nil {
		return fmt.Errorf("pdca: record cycle: %w", err)
	}
	return nil
}

// WeeklyTrend is one historical PDCA cycle row used to render week-over-
// week deltas in the Weekly Reporter.
type WeeklyTrend struct {
	RanAt          time.Time
	ApprovalRate   float64
	ChangeCount    int
	TotalDecisions int
}

// LoadTrend reads up to the last n PDCA cycles for accountID, oldest
// first, for trending. Returns (nil, nil) when db is nil; the weekly
// report then degrades to single-cycle output.
func LoadTrend(db *gorm.DB, accountID, n int) ([]WeeklyTrend, error) {
	if db == nil {
		return nil, nil
	}
	var rows []models.PDCACycle
	if err := db.Where("account_id = ?", accountID).
		Order("ran_at desc").
		Limit(n).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("pdca: load trend: %w", err)
	}
	trend := make([]WeeklyTrend, len(rows))
	for i, r := range rows {
		// rows come back newest-first; reverse into chronological order.
		j := len(rows) - 1 - i
		trend[j] = WeeklyTrend{
			RanAt:          r.RanAt,
			ApprovalRate:   r.ApprovalRate,
			ChangeCount:    r.ChangeCount,
			TotalDecisions: r.TotalDecisions,
		}
	}
	return trend, nil
}

// GenerateWeeklyReport renders GenerateReport's single-cycle text plus,
// when trend has at least two points, a week-over-week approval-rate
// delta line. With no metrics warehouse configured it is identical to
// GenerateReport's output.
func GenerateWeeklyReport(analysis Analysis, trend []WeeklyTrend) string {
	report := GenerateReport(analysis)
	if len(trend) < 2 {
		return report
	}

	latest := trend[len(trend)-1]
	previous := trend[len(trend)-2]
	delta := (latest.ApprovalRate - previous.ApprovalRate) * 100

	arrow := "→"
	switch {
	case delta > 0.05:
		arrow = "↑"
	case delta < -0.05:
		arrow = "↓"
	}

	report += fmt.Sprintf("\n📈 **週次トレンド:** 承認率 %.1f%% %s (前回比 %+.1fpt, 過去%d回分)\n",
		latest.ApprovalRate*100, arrow, delta, len(trend))

	return report
}
