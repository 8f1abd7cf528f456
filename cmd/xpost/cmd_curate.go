package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/generate"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/normalize"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/notify"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/persona"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/planner"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/preference"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/queue"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/safety"
	twitter "github.com/kitayama-ai/x-quote-rt-bot/pkg/interfaces/twitter"
)

// cmdCurate generates quote-RT comments for every approved candidate in
// the queue: candidates are re-scored against the current preferences,
// processed best-first, and each successful generation is stored on the
// record together with its planner slot assignment. cmdCuratePost
// performs the actual publishing.
func cmdCurate(ctx context.Context, app *App, args []string) error {
	fs, accountID := newFlagSet("curate")
	dryRun := fs.Bool("dry-run", false, "generate but skip the notifier")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ac, err := app.loadAccount(*accountID)
	if err != nil {
		return err
	}
	if ac.LLM == nil {
		return fmt.Errorf("curate: no LLM client configured")
	}

	prefs, err := ac.Prefs.Load()
	if err != nil {
		return err
	}
	rules, err := generate.LoadRules("config/quote_rt_rules.json")
	if err != nil {
		return err
	}
	profile, err := loadPersonaProfile(ac)
	if err != nil {
		app.Log.WithError(err).Warn("curate: no persona profile, generating without one")
	}
	orch := generate.NewOrchestrator(ac.LLM, ac.Loader, rules, safety.DefaultThresholds())

	stats, err := ac.Queue.Stats()
	if err != nil {
		return err
	}
	app.Log.WithFields(map[string]any{
		"pending":      stats.Pending,
		"approved":     stats.Approved,
		"posted_today": stats.PostedToday,
	}).Info("curate: queue state")

	approved, err := ac.Queue.GetApproved()
	if err != nil {
		return err
	}
	if len(approved) == 0 {
		if stats.Pending > 0 {
			app.Log.WithField("pending", stats.Pending).Info("curate: candidates are waiting for approval")
		} else {
			app.Log.Info("curate: queue is empty, add candidates with add-tweet or collect")
		}
		return nil
	}

	// Re-score against the current preference document so decisions made
	// since collection reorder the work best-first.
	for i := range approved {
		res := preference.Score(approved[i].Text, approved[i].AuthorUsername, prefs)
		blended := preference.Blended(approved[i].Likes, approved[i].Retweets, res.Score)
		approved[i].PreferenceMatchScore = blended
		if err := ac.Queue.SetPreferenceScore(approved[i].TweetID, blended, res.MatchedTopics, res.MatchedKeywords); err != nil {
			app.Log.WithError(err).WithField("tweet_id", approved[i].TweetID).Warn("curate: failed to persist score")
		}
	}
	sort.SliceStable(approved, func(i, j int) bool {
		return approved[i].PreferenceMatchScore > approved[j].PreferenceMatchScore
	})

	processed, err := ac.Queue.GetProcessed()
	if err != nil {
		return err
	}
	pastPosts := recentGeneratedTexts(processed, 10)

	limits := planner.GetWarmupLimits(ac.Account.StartDate, time.Now())
	plan := planner.PlanDaily(planner.PlanOptions{
		Warmup:          limits,
		AvailableQuotes: len(approved),
	})
	var quoteSlots []planner.PlannedSlot
	for _, slot := range plan {
		if slot.Type == planner.QuoteRT {
			quoteSlots = append(quoteSlots, slot)
		}
	}

	var summaries []notify.PostSummary
	generatedCount := 0
	for _, rec := range approved {
		if rec.Text == "" {
			app.Log.WithField("tweet_id", rec.TweetID).Warn("curate: candidate has no text, skipping")
			continue
		}

		req := generate.Request{
			OriginalText:   rec.Text,
			AuthorUsername: rec.AuthorUsername,
			AuthorName:     rec.AuthorName,
			Likes:          rec.Likes,
			Retweets:       rec.Retweets,
			PastPosts:      pastPosts,
			LastPostAgo:    24 * time.Hour,
			IsQuoteRT:      true,
			QuoteRT: safety.QuoteRTContext{
				SourceUsername: rec.AuthorUsername,
			},
		}

		result, err := orch.Generate(ctx, req, prefs.PromptOverrides, profile)
		if err != nil {
			app.Log.WithError(err).WithField("tweet_id", rec.TweetID).Error("curate: generation failed")
			continue
		}

		gen := queue.Generated{
			Text:       result.Text,
			TemplateID: result.TemplateID,
			Score:      scoreToQueue(result.Score),
			PostType:   string(planner.QuoteRT),
		}
		if generatedCount < len(quoteSlots) {
			gen.SlotID = quoteSlots[generatedCount].SlotID
			gen.TimeLabel = quoteSlots[generatedCount].TimeLabel
		}
		if err := ac.Queue.SetGenerated(rec.TweetID, gen); err != nil {
			app.Log.WithError(err).WithField("tweet_id", rec.TweetID).Error("curate: failed to persist generated text")
			continue
		}
		generatedCount++
		pastPosts = append(pastPosts, result.Text)

		summaries = append(summaries, notify.PostSummary{
			Text:           result.Text,
			Type:           string(planner.QuoteRT),
			Time:           gen.TimeLabel,
			OriginalText:   rec.Text,
			AuthorUsername: rec.AuthorUsername,
			TemplateID:     result.TemplateID,
			ScoreTotal:     result.Score.Total,
			ScoreRank:      result.Score.Rank(),
			SafetyOK:       result.Safety.IsSafe,
			Violations:     result.Safety.Violations,
		})
	}

	app.Log.WithFields(map[string]any{
		"generated": generatedCount,
		"approved":  len(approved),
	}).Info("curate: generation finished")
	fmt.Println(planner.FormatPlan(plan))

	if !*dryRun && len(summaries) > 0 {
		var schedule []notify.ScheduleItem
		for _, slot := range plan {
			schedule = append(schedule, notify.ScheduleItem{Time: slot.TimeLabel, Type: string(slot.Type)})
		}
		app.Notifier.NotifyCurateResults(ctx, ac.Account.DisplayName, summaries, schedule)
	}
	return nil
}

// cmdCuratePost publishes generated quote-RTs from the queue,
// oldest-first, capped by posting_rules.daily_limit_per_account minus
// what was already posted today. Each record passes the safety gate one
// last time just before the tweet-create call.
func cmdCuratePost(ctx context.Context, app *App, args []string) error {
	fs, accountID := newFlagSet("curate-post")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ac, err := app.loadAccount(*accountID)
	if err != nil {
		return err
	}

	rules, err := generate.LoadRules("config/quote_rt_rules.json")
	if err != nil {
		return err
	}

	generated, err := ac.Queue.GetGenerated()
	if err != nil {
		return err
	}
	if len(generated) == 0 {
		app.Log.Info("curate-post: no generated quote-RTs waiting")
		return nil
	}

	dailyLimit := rules.DailyLimit()
	postedToday, err := ac.Queue.GetTodayPostedCount()
	if err != nil {
		return err
	}
	remaining := dailyLimit - postedToday
	if remaining <= 0 {
		app.Log.WithFields(map[string]any{
			"daily_limit":  dailyLimit,
			"posted_today": postedToday,
		}).Warn("curate-post: daily posting limit reached")
		return nil
	}
	if len(generated) > remaining {
		generated = generated[:remaining]
	}
	app.Log.WithFields(map[string]any{
		"queued":    len(generated),
		"remaining": remaining,
	}).Info("curate-post: publishing")

	cfg, err := twitter.NewTwitterConfig(fmt.Sprint(ac.Account.ID), ac.Account.EnvPrefix, app.Log)
	if err != nil {
		return fmt.Errorf("curate-post: %w", err)
	}
	client, err := twitter.NewTwitterClient(cfg)
	if err != nil {
		return fmt.Errorf("curate-post: %w", err)
	}

	processed, err := ac.Queue.GetProcessed()
	if err != nil {
		return err
	}
	pastPosts := recentGeneratedTexts(processed, 20)

	lastPostAgo := 24 * time.Hour
	for _, p := range processed {
		if p.PostedAt != nil && time.Since(*p.PostedAt) < lastPostAgo {
			lastPostAgo = time.Since(*p.PostedAt)
		}
	}
	sameSourceToday := map[string]int{}
	today := time.Now().Format("2006-01-02")
	for _, p := range processed {
		if p.PostedAt != nil && p.PostedAt.Format("2006-01-02") == today {
			sameSourceToday[p.AuthorUsername]++
		}
	}

	postedCount := 0
	for _, rec := range generated {
		isQuote := rec.PostType != string(planner.Original)
		result := safety.Check(rec.GeneratedText, pastPosts, lastPostAgo, isQuote, safety.QuoteRTContext{
			SourceUsername:      rec.AuthorUsername,
			SameSourceUsedToday: sameSourceToday[rec.AuthorUsername],
		}, safety.DefaultThresholds())
		if !result.IsSafe {
			app.Log.WithFields(map[string]any{
				"tweet_id":   rec.TweetID,
				"violations": result.Violations,
			}).Warn("curate-post: safety gate blocked quote-RT")
			app.Notifier.NotifySafetyAlert(ctx, ac.Account.DisplayName, rec.GeneratedText, result.Violations)
			continue
		}

		var tweet *twitter.Tweet
		var wasFallback bool
		if isQuote {
			quoteURL := normalize.BuildURL(rec.AuthorUsername, rec.TweetID)
			tweet, wasFallback, err = twitter.PostQuoteWithFallback(ctx, client, rec.GeneratedText, rec.TweetID, quoteURL)
		} else {
			tweet, err = client.PostTweet(ctx, rec.GeneratedText, nil)
		}
		if err != nil {
			app.Log.WithError(err).WithField("tweet_id", rec.TweetID).Error("curate-post: publish failed")
			app.Notifier.NotifyError(ctx, "curate-post failed", err.Error())
			continue
		}
		if wasFallback {
			app.Log.WithField("tweet_id", rec.TweetID).Warn("curate-post: quote restricted, posted as standalone tweet")
		}

		if err := ac.Queue.MarkPosted(rec.TweetID, tweet.ID); err != nil {
			return fmt.Errorf("curate-post: mark posted: %w", err)
		}
		postedCount++
		lastPostAgo = 0
		sameSourceToday[rec.AuthorUsername]++
		pastPosts = append(pastPosts, rec.GeneratedText)

		app.Notifier.NotifyPostCompleted(ctx, ac.Account.DisplayName, rec.GeneratedText, tweet.ID)
	}

	app.Log.WithFields(map[string]any{
		"posted":       postedCount,
		"total_today":  postedToday + postedCount,
		"daily_limit":  dailyLimit,
	}).Info("curate-post: finished")
	return nil
}

func recentGeneratedTexts(records []queue.CandidateRecord, n int) []string {
	var out []string
	for _, r := range records {
		if r.GeneratedText != "" {
			out = append(out, r.GeneratedText)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

func loadPersonaProfile(ac *AccountContext) (persona.Profile, error) {
	return persona.LoadProfile(ac.Account.PersonaPath)
}
