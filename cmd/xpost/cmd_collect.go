package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/feed"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/normalize"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/preference"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/xerrors"
)

// cmdCollect fans a preferences-derived query set out across the
// candidate-feed worker pool and loads the results into the account-1
// queue, applying the min-likes gate before any auto-approval. The
// preferences' max_age_hours threshold is not applied.
func cmdCollect(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("collect", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "search and report, do not enqueue")
	autoApprove := fs.Bool("auto-approve", false, "approve candidates clearing the preference threshold")
	minLikes := fs.Int("min-likes", 0, "override the preferences min_likes threshold")
	maxTweets := fs.Int("max-tweets", 0, "override the preferences max_tweets threshold")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ac, err := app.loadAccount(1)
	if err != nil {
		return err
	}

	prefs, err := ac.Prefs.Load()
	if err != nil {
		return err
	}

	minL := prefs.ThresholdOverrides.MinLikes
	if *minLikes > 0 {
		minL = *minLikes
	}
	maxT := prefs.ThresholdOverrides.MaxTweets
	if maxT == 0 {
		maxT = 100
	}
	if *maxTweets > 0 {
		maxT = *maxTweets
	}

	feedCfg, err := feed.NewConfig(app.Log)
	if err != nil {
		return err
	}
	client := feed.NewClient(feedCfg)

	queries := collectionQueries(prefs)
	if len(queries) == 0 {
		app.Log.Info("collect: no focus keywords or topics configured, nothing to search")
		return nil
	}

	results := feed.RunQueries(ctx, client, feedCfg, queries, maxT)

	added, skipped := 0, 0
	for _, res := range results {
		if res.Err != nil {
			app.Log.WithError(res.Err).WithField("query", res.Task.Query).Warn("collect: query failed")
			continue
		}
		for _, payload := range res.Payloads {
			rec, err := normalize.FromAPIData(normalize.APISource{Payload: payload})
			if err != nil {
				skipped++
				continue
			}
			if rec.Likes < minL {
				skipped++
				continue
			}

			score := preference.Score(rec.Text, rec.AuthorUsername, prefs)
			rec.PreferenceMatchScore = preference.Blended(rec.Likes, rec.Retweets, score.Score)
			rec.MatchedTopics = score.MatchedTopics
			rec.MatchedKeywords = score.MatchedKeywords

			if *dryRun {
				added++
				continue
			}

			ok, err := ac.Queue.Add(rec)
			if err != nil && !errors.Is(err, xerrors.ErrDuplicateCandidate) {
				app.Log.WithError(err).WithField("tweet_id", rec.TweetID).Warn("collect: failed to enqueue candidate")
				continue
			}
			if !ok {
				skipped++
				continue
			}
			added++

			if *autoApprove {
				_, _ = ac.Queue.Approve(rec.TweetID)
			}
		}
	}

	app.Log.WithFields(map[string]any{"added": added, "skipped": skipped}).Info("collect: finished")
	return nil
}

// collectionQueries derives candidate-feed search queries from the active
// Preferences document's focus keywords, focus accounts, and preferred
// topic clusters.
func collectionQueries(prefs preference.Preferences) []string {
	var queries []string
	queries = append(queries, prefs.WeeklyFocus.FocusKeywords...)
	for _, acct := range prefs.WeeklyFocus.FocusAccounts {
		queries = append(queries, fmt.Sprintf("from:%s", acct))
	}
	for _, topic := range prefs.TopicPreferences.Preferred {
		queries = append(queries, prefs.TopicClusters[topic]...)
	}
	return dedupeStrings(queries)
}

func dedupeStrings(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
