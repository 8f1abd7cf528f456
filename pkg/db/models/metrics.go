package models

import "time"

// PostMetric is one row of the metrics warehouse: a daily engagement
// snapshot for a posted tweet, consumed by the weekly report for
// week-over-week trending.
type PostMetric struct {
	ID             string    `gorm:"primaryKey;column:id"`
	AccountID      int       `gorm:"column:account_id;not null;index"`
	TweetID        string    `gorm:"column:tweet_id;not null;index"`
	PostType       string    `gorm:"column:post_type;not null"` // "original" | "quote_rt"
	TemplateID     string    `gorm:"column:template_id"`
	Likes          int       `gorm:"column:likes;default:0"`
	Retweets       int       `gorm:"column:retweets;default:0"`
	Replies        int       `gorm:"column:replies;default:0"`
	Quotes         int       `gorm:"column:quotes;default:0"`
	Impressions    int       `gorm:"column:impressions;default:0"`
	PostedAt       time.Time `gorm:"column:posted_at;not null;index"`
	CollectedAt    time.Time `gorm:"column:collected_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for the PostMetric model.
func (PostMetric) TableName() string {
	return "post_metrics"
}

// PDCACycle is one row of the Metrics Warehouse: the outcome of a single
// PDCA Updater run, letting the Weekly Reporter trend approval rate and
// adjustment volume across cycles instead of reporting only the latest.
type PDCACycle struct {
	ID             string    `gorm:"primaryKey;column:id"`
	AccountID      int       `gorm:"column:account_id;not null;index"`
	TotalDecisions int       `gorm:"column:total_decisions;not null"`
	ApprovalRate   float64   `gorm:"column:approval_rate;not null"`
	ChangeCount    int       `gorm:"column:change_count;not null"`
	RanAt          time.Time `gorm:"column:ran_at;not null;index"`
}

// TableName specifies the table name for the PDCACycle model.
func (PDCACycle) TableName() string {
	return "pdca_cycles"
}
