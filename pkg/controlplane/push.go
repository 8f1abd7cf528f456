package controlplane

import (
	"context"
	"fmt"
	"time"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/preference"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/queue"
)

// Snapshot is the dashboard document written to dashboard_data/{uid}:
// current stats, the full pending queue, the newest posted records, recent
// metrics files, PDCA insights, and the active preferences.
type Snapshot struct {
	UpdatedAt    time.Time                 `json:"updated_at"`
	Stats        queue.Stats               `json:"stats"`
	Queue        []queue.CandidateRecord   `json:"queue"`
	RecentPosted []queue.CandidateRecord   `json:"recent_posted"`
	Metrics      []map[string]any          `json:"metrics"`
	PDCAInsights any                       `json:"pdca_insights,omitempty"`
	Preferences  preference.Preferences    `json:"preferences"`
}

const (
	maxRecentPosted = 30
	maxMetricsFiles = 7
)

// BuildSnapshot assembles the push payload from the local stores. metrics
// and pdcaInsights are supplied by the caller (Metrics Warehouse /
// pkg/pdca are optional collaborators), already trimmed or untrimmed;
// BuildSnapshot enforces the 7-file cap on metrics itself.
func BuildSnapshot(store *queue.Store, prefs preference.Preferences, metrics []map[string]any, pdcaInsights any) (Snapshot, error) {
	pending, err := store.GetAllPending()
	if err != nil {
		return Snapshot{}, fmt.Errorf("controlplane: load pending for snapshot: %w", err)
	}
	stats, err := store.Stats()
	if err != nil {
		return Snapshot{}, fmt.Errorf("controlplane: load stats for snapshot: %w", err)
	}
	recent, err := recentPosted(store)
	if err != nil {
		return Snapshot{}, err
	}

	if len(metrics) > maxMetricsFiles {
		metrics = metrics[len(metrics)-maxMetricsFiles:]
	}

	return Snapshot{
		UpdatedAt:    time.Now(),
		Stats:        stats,
		Queue:        pending,
		RecentPosted: recent,
		Metrics:      metrics,
		PDCAInsights: pdcaInsights,
		Preferences:  prefs,
	}, nil
}

// recentPosted reads the processed records through Store's public surface
// only; the backing queue files stay owned by the Store.
func recentPosted(store *queue.Store) ([]queue.CandidateRecord, error) {
	processed, err := store.GetProcessed()
	if err != nil {
		return nil, fmt.Errorf("controlplane: load processed for snapshot: %w", err)
	}
	if len(processed) > maxRecentPosted {
		processed = processed[len(processed)-maxRecentPosted:]
	}
	return processed, nil
}

// Push builds a dashboard snapshot and writes it to the remote store.
func (c *Client) Push(ctx context.Context, uid string, store *queue.Store, prefs preference.Preferences, metrics []map[string]any, pdcaInsights any) error {
	snap, err := BuildSnapshot(store, prefs, metrics, pdcaInsights)
	if err != nil {
		return err
	}
	return c.PutDashboardData(ctx, uid, snap)
}
