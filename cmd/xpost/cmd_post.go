package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/safety"
	twitter "github.com/kitayama-ai/x-quote-rt-bot/pkg/interfaces/twitter"
)

const postToleranceMinutes = 30

// cmdPost publishes the eligible scheduled posts from today's daily
// output file: entries not yet posted whose slot time falls within the
// tolerance window, re-checked by the safety gate just before the
// tweet-create call. Quote-RTs are published by cmdCuratePost instead.
func cmdPost(ctx context.Context, app *App, args []string) error {
	fs, accountID := newFlagSet("post")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ac, err := app.loadAccount(*accountID)
	if err != nil {
		return err
	}

	now := time.Now()
	path := dailyOutputPath(ac.Account.OutputDir, now, ac.Account.ID)
	posts, err := loadDailyPosts(path)
	if err != nil {
		if os.IsNotExist(err) {
			app.Log.Info("post: no daily output for today, run generate first")
			return nil
		}
		return fmt.Errorf("post: load daily output: %w", err)
	}

	var due []DailyPost
	for _, p := range posts {
		if !p.Posted && shouldPostNow(p, now, postToleranceMinutes) {
			due = append(due, p)
		}
	}
	if len(due) == 0 {
		app.Log.Info("post: no scheduled post due now")
		return nil
	}

	cfg, err := twitter.NewTwitterConfig(fmt.Sprint(ac.Account.ID), ac.Account.EnvPrefix, app.Log)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	client, err := twitter.NewTwitterClient(cfg)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}

	postedTexts := make([]string, 0, len(posts))
	for _, p := range posts {
		if p.Posted {
			postedTexts = append(postedTexts, p.Text)
		}
	}
	lastPostAgo := lastDailyPostAgo(posts, now)

	for _, p := range due {
		result := safety.Check(p.Text, postedTexts, lastPostAgo, false, safety.QuoteRTContext{}, safety.DefaultThresholds())
		if !result.IsSafe {
			app.Log.WithFields(map[string]any{
				"slot":       p.Slot,
				"violations": result.Violations,
			}).Warn("post: safety gate blocked scheduled post")
			app.Notifier.NotifySafetyAlert(ctx, ac.Account.DisplayName, p.Text, result.Violations)
			continue
		}

		tweet, err := client.PostTweet(ctx, p.Text, nil)
		if err != nil {
			app.Log.WithError(err).WithField("slot", p.Slot).Error("post: tweet-create failed")
			app.Notifier.NotifyError(ctx, "post failed", err.Error())
			continue
		}

		if err := markDailyPosted(path, p.Slot, tweet.ID); err != nil {
			return fmt.Errorf("post: mark posted: %w", err)
		}
		app.Log.WithFields(map[string]any{"slot": p.Slot, "tweet_id": tweet.ID}).Info("post: published scheduled post")
		app.Notifier.NotifyPostCompleted(ctx, ac.Account.DisplayName, p.Text, tweet.ID)

		postedTexts = append(postedTexts, p.Text)
		lastPostAgo = 0
	}

	return nil
}
