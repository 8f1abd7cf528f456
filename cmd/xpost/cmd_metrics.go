package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/db/models"
	twitter "github.com/kitayama-ai/x-quote-rt-bot/pkg/interfaces/twitter"
)

const metricsLookback = 10

// refreshMetrics pulls current engagement counters for the most recent
// posted tweets, writes today's metrics file under data/output/analysis,
// and records a warehouse row per tweet when a database is configured.
// Missing posting credentials degrade to a no-op: the dashboard then
// serves whatever metrics files already exist.
func refreshMetrics(ctx context.Context, app *App, ac *AccountContext) {
	cfg, err := twitter.NewTwitterConfig(fmt.Sprint(ac.Account.ID), ac.Account.EnvPrefix, app.Log)
	if err != nil {
		app.Log.WithError(err).Debug("metrics: posting credentials unavailable, skipping refresh")
		return
	}
	client, err := twitter.NewTwitterClient(cfg)
	if err != nil {
		app.Log.WithError(err).Debug("metrics: posting client unavailable, skipping refresh")
		return
	}

	processed, err := ac.Queue.GetProcessed()
	if err != nil {
		app.Log.WithError(err).Warn("metrics: load processed records")
		return
	}
	if len(processed) > metricsLookback {
		processed = processed[len(processed)-metricsLookback:]
	}

	var rows []map[string]any
	for _, rec := range processed {
		if rec.PostedTweetID == "" {
			continue
		}
		m, err := client.GetTweetMetrics(ctx, rec.PostedTweetID)
		if err != nil {
			app.Log.WithError(err).WithField("tweet_id", rec.PostedTweetID).Warn("metrics: lookup failed")
			continue
		}
		rows = append(rows, map[string]any{
			"tweet_id":  m.ID,
			"likes":     m.Likes,
			"retweets":  m.Retweets,
			"replies":   m.Replies,
			"quotes":    m.Quotes,
			"bookmarks": m.Bookmarks,
		})

		if app.DB != nil && rec.PostedAt != nil {
			postType := rec.PostType
			if postType == "" {
				postType = "quote_rt"
			}
			row := models.PostMetric{
				ID:          uuid.NewString(),
				AccountID:   ac.Account.ID,
				TweetID:     m.ID,
				PostType:    postType,
				TemplateID:  rec.TemplateID,
				Likes:       m.Likes,
				Retweets:    m.Retweets,
				Replies:     m.Replies,
				Quotes:      m.Quotes,
				PostedAt:    *rec.PostedAt,
				CollectedAt: time.Now(),
			}
			if err := app.DB.Create(&row).Error; err != nil {
				app.Log.WithError(err).Warn("metrics: record warehouse row")
			}
		}
	}
	if len(rows) == 0 {
		return
	}

	analysisDir := filepath.Join(ac.Account.OutputDir, "analysis")
	if err := os.MkdirAll(analysisDir, 0o755); err != nil {
		app.Log.WithError(err).Warn("metrics: mkdir analysis dir")
		return
	}
	path := filepath.Join(analysisDir, fmt.Sprintf("metrics_%s_%d.json", time.Now().Format("2006-01-02"), ac.Account.ID))
	data, err := json.MarshalIndent(map[string]any{
		"date":    time.Now().Format("2006-01-02"),
		"account": ac.Account.ID,
		"tweets":  rows,
	}, "", "  ")
	if err != nil {
		app.Log.WithError(err).Warn("metrics: marshal metrics file")
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		app.Log.WithError(err).Warn("metrics: write metrics file")
		return
	}
	app.Log.WithField("path", path).Info("metrics: refreshed")
}

// loadRecentMetrics reads up to the 7 newest metrics files from
// data/output/analysis for the dashboard snapshot.
func loadRecentMetrics(outputDir string, app *App) []map[string]any {
	pattern := filepath.Join(outputDir, "analysis", "metrics_*.json")
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return nil
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	if len(matches) > 7 {
		matches = matches[:7]
	}

	var out []map[string]any
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			app.Log.WithField("path", path).Warn("metrics: skipping unreadable metrics file")
			continue
		}
		out = append(out, doc)
	}
	return out
}
