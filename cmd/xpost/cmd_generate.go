package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/generate"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/notify"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/planner"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/queue"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/safety"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/score"
)

// maxDailyOriginals bounds how many standalone posts one generate run
// drafts; warm-up phase caps clamp it further.
const maxDailyOriginals = 3

// cmdGenerate produces today's original (standalone) posts: one per
// original-typed planner slot, written to the per-day output file that
// cmdPost later publishes from. Quote-RT commentary is cmdCurate's job.
func cmdGenerate(ctx context.Context, app *App, args []string) error {
	fs, accountID := newFlagSet("generate")
	dryRun := fs.Bool("dry-run", false, "print the drafts but skip the notifier")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ac, err := app.loadAccount(*accountID)
	if err != nil {
		return err
	}
	if ac.LLM == nil {
		return fmt.Errorf("generate: no LLM client configured")
	}

	prefs, err := ac.Prefs.Load()
	if err != nil {
		return err
	}
	rules, err := generate.LoadRules("config/quote_rt_rules.json")
	if err != nil {
		return err
	}
	profile, _ := loadPersonaProfile(ac)
	orch := generate.NewOrchestrator(ac.LLM, ac.Loader, rules, safety.DefaultThresholds())

	now := time.Now()
	limits := planner.GetWarmupLimits(ac.Account.StartDate, now)
	plan := planner.PlanDaily(planner.PlanOptions{Warmup: limits})

	maxOriginals := maxDailyOriginals
	if limits != nil && limits.MaxOriginal < maxOriginals {
		maxOriginals = limits.MaxOriginal
	}
	var originalSlots []planner.PlannedSlot
	for _, slot := range plan {
		if slot.Type == planner.Original && len(originalSlots) < maxOriginals {
			originalSlots = append(originalSlots, slot)
		}
	}
	if len(originalSlots) == 0 {
		app.Log.Info("generate: no original slots available today")
		return nil
	}

	processed, err := ac.Queue.GetProcessed()
	if err != nil {
		return err
	}
	pastPosts := recentGeneratedTexts(processed, 10)

	var posts []DailyPost
	var summaries []notify.PostSummary
	for i, slot := range originalSlots {
		req := generate.OriginalRequest{
			Date:      now,
			PostType:  generate.OriginalTypeFor(now, i),
			SlotID:    slot.SlotID,
			TimeLabel: slot.TimeLabel,
			PastPosts: pastPosts,
		}
		result, err := orch.GenerateOriginal(ctx, req, prefs.PromptOverrides, profile)
		if err != nil {
			app.Log.WithError(err).WithField("slot_id", slot.SlotID).Error("generate: slot failed")
			continue
		}
		pastPosts = append(pastPosts, result.Text)

		app.Log.WithFields(map[string]any{
			"slot_id": slot.SlotID,
			"type":    req.PostType,
			"score":   result.Score.Total,
		}).Info("generate: drafted original post")
		fmt.Printf("\n--- %s (%s) [%s] ---\n%s\n%s\n",
			slot.SlotID, slot.TimeLabel, req.PostType, result.Text, score.FormatScore(result.Score))

		posts = append(posts, DailyPost{
			Text:      result.Text,
			Type:      req.PostType,
			Slot:      slot.SlotID,
			Time:      slot.TimeLabel,
			Date:      now.Format("2006-01-02"),
			AccountID: ac.Account.ID,
			Score:     scoreToQueue(result.Score),
			IsSafe:    result.Safety.IsSafe,
		})
		summaries = append(summaries, notify.PostSummary{
			Text:           result.Text,
			Type:           "original",
			Time:           slot.TimeLabel,
			ScoreTotal:     result.Score.Total,
			ScoreRank:      result.Score.Rank(),
			ScoreHook:      result.Score.Hook,
			ScoreSpecifity: result.Score.Specificity,
			ScoreHumanity:  result.Score.Humanity,
			ScoreStructure: result.Score.Structure,
			ScoreCTA:       result.Score.CTA,
			SafetyOK:       result.Safety.IsSafe,
			Violations:     result.Safety.Violations,
		})
	}

	if len(posts) == 0 {
		return fmt.Errorf("generate: no posts were produced")
	}

	path := dailyOutputPath(ac.Account.OutputDir, now, ac.Account.ID)
	if err := saveDailyPosts(path, posts); err != nil {
		return fmt.Errorf("generate: save daily output: %w", err)
	}
	app.Log.WithFields(map[string]any{"path": path, "count": len(posts)}).Info("generate: wrote daily output")

	if !*dryRun {
		app.Notifier.NotifyDailyPosts(ctx, ac.Account.DisplayName, ac.Account.TargetUsername, summaries, now.Format("2006-01-02"))
	}
	return nil
}

func scoreToQueue(sc score.Result) *queue.Score {
	return &queue.Score{
		Total:       sc.Total,
		Hook:        sc.Hook,
		Specificity: sc.Specificity,
		Humanity:    sc.Humanity,
		Structure:   sc.Structure,
		CTA:         sc.CTA,
		Penalty:     sc.Penalty,
		Details:     sc.Details,
	}
}
