package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/controlplane"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/pdca"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/persona"
)

// cmdNotifyTest sends a minimal embed through the configured webhook so an
// operator can verify DISCORD_WEBHOOK_URL before relying on it in a cron
// job.
func cmdNotifyTest(ctx context.Context, app *App, args []string) error {
	ok := app.Notifier.Send(ctx, "xpost notify-test: webhook reachable", nil)
	if !ok {
		return fmt.Errorf("notify-test: webhook send failed")
	}
	app.Log.Info("notify-test: webhook delivered")
	return nil
}

// cmdSetupSheets verifies the control-plane connection an operator needs
// before scheduling sync-queue/sync-settings: it performs a read-only pull
// of the remote preferences document and reports whether the
// configuration round-trips.
func cmdSetupSheets(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("setup-sheets", flag.ContinueOnError)
	uid := fs.String("uid", os.Getenv("CONTROL_PLANE_UID"), "remote user id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cp, err := app.controlPlaneClient()
	if err != nil {
		return err
	}
	if _, err := cp.GetSelectionPreferences(ctx, *uid); err != nil {
		return fmt.Errorf("setup-sheets: control plane unreachable: %w", err)
	}
	app.Log.Info("setup-sheets: control plane reachable, sync-queue/sync-settings are ready to schedule")
	return nil
}

// cmdExportDashboard writes the current dashboard snapshot (pending queue,
// stats, recent posts, preferences) as JSON to data/output, and pushes it
// to the control plane when one is configured.
func cmdExportDashboard(ctx context.Context, app *App, args []string) error {
	fs, accountID := newFlagSet("export-dashboard")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ac, err := app.loadAccount(*accountID)
	if err != nil {
		return err
	}
	prefs, err := ac.Prefs.Load()
	if err != nil {
		return err
	}

	refreshMetrics(ctx, app, ac)
	metrics := loadRecentMetrics(ac.Account.OutputDir, app)

	snap, err := controlplane.BuildSnapshot(ac.Queue, prefs, metrics, nil)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(ac.Account.OutputDir, fmt.Sprintf("dashboard_%s.json", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("export-dashboard: %w", err)
	}
	app.Log.WithField("path", path).Info("export-dashboard: wrote snapshot")

	if app.haveControlPlane {
		cp, err := app.controlPlaneClient()
		if err == nil {
			if err := cp.PutDashboardData(ctx, os.Getenv("CONTROL_PLANE_UID"), snap); err != nil {
				app.Log.WithError(err).Warn("export-dashboard: push to control plane failed")
			}
		}
	}
	return nil
}

// cmdPreferences prints the active Preferences document, optionally
// merging remote selection preferences first.
func cmdPreferences(ctx context.Context, app *App, args []string) error {
	fs, accountID := newFlagSet("preferences")
	sync := fs.Bool("sync", false, "pull remote selection preferences first")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ac, err := app.loadAccount(*accountID)
	if err != nil {
		return err
	}

	if *sync {
		if cp, err := app.controlPlaneClient(); err == nil {
			if _, err := cp.SyncSelectionPreferences(ctx, ac.Prefs, os.Getenv("CONTROL_PLANE_UID")); err != nil {
				app.Log.WithError(err).Warn("preferences: remote sync failed, showing local document")
			}
		}
	}

	prefs, err := ac.Prefs.Load()
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// cmdSelectionPDCA analyzes the feedback log, reports promote/demote
// recommendations, and with --auto-adjust applies and persists them,
// recording the cycle to the Metrics Warehouse when one is configured.
func cmdSelectionPDCA(ctx context.Context, app *App, args []string) error {
	fs, accountID := newFlagSet("selection-pdca")
	autoAdjust := fs.Bool("auto-adjust", false, "apply and persist recommended changes")
	dryRun := fs.Bool("dry-run", false, "report only, never persist even with --auto-adjust")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ac, err := app.loadAccount(*accountID)
	if err != nil {
		return err
	}

	stats, err := ac.Queue.FeedbackStats()
	if err != nil {
		return err
	}
	analysis := pdca.Analyze(stats)

	changeCount := 0
	if *autoAdjust {
		prefs, err := ac.Prefs.Load()
		if err != nil {
			return err
		}
		result := pdca.AutoUpdate(analysis, &prefs)
		changeCount = len(result.Changes)
		if !*dryRun && changeCount > 0 {
			prefs.UpdatedAt = time.Now()
			if err := ac.Prefs.Save(prefs); err != nil {
				return err
			}
		}
		app.Log.WithField("changes", result.Changes).Info("selection-pdca: " + result.Summary)
	}

	var trend []pdca.WeeklyTrend
	if app.DB != nil {
		if !*dryRun {
			if err := pdca.RecordCycle(app.DB, *accountID, analysis, changeCount, time.Now()); err != nil {
				app.Log.WithError(err).Warn("selection-pdca: failed to record cycle to metrics warehouse")
			}
		}
		trend, _ = pdca.LoadTrend(app.DB, *accountID, 8)
	}

	report := pdca.GenerateWeeklyReport(analysis, trend)
	fmt.Println(report)
	app.Notifier.NotifyWeeklyReport(ctx, ac.Account.DisplayName, report)
	return nil
}

// cmdAnalyzePersona derives a PersonaProfile from a corpus of past posts
// (a newline-delimited --file, or the local posted history) and persists it
// for the Generation Orchestrator to inject.
func cmdAnalyzePersona(ctx context.Context, app *App, args []string) error {
	fs, accountID := newFlagSet("analyze-persona")
	username := fs.String("username", "", "source account whose posts to analyze (informational only without a feed)")
	file := fs.String("file", "", "newline-delimited file of past posts to analyze")
	count := fs.Int("count", 100, "maximum number of posts to analyze")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ac, err := app.loadAccount(*accountID)
	if err != nil {
		return err
	}

	var posts []string
	if *file != "" {
		posts, err = readLines(*file, *count)
		if err != nil {
			return err
		}
	} else {
		processed, err := ac.Queue.GetProcessed()
		if err != nil {
			return err
		}
		posts = recentGeneratedTexts(processed, *count)
	}
	if len(posts) == 0 {
		return fmt.Errorf("analyze-persona: no posts to analyze (supply --file or accumulate posted history)")
	}
	if *username != "" {
		app.Log.WithField("username", *username).Debug("analyze-persona: username is informational; posts come from --file or local history")
	}

	profile := persona.Analyze(posts)
	if ac.LLM != nil {
		if err := persona.AIAnalyze(ctx, ac.LLM, &profile, posts); err != nil {
			app.Log.WithError(err).Warn("analyze-persona: AI pass failed, keeping statistical profile")
		}
	}

	if err := persona.SaveProfile(ac.Account.PersonaPath, profile); err != nil {
		return err
	}
	if err := os.WriteFile(ac.Account.PersonaPromptPath, []byte(persona.InjectionBlock(profile)), 0o644); err != nil {
		return fmt.Errorf("analyze-persona: write prompt block: %w", err)
	}

	app.Log.WithFields(map[string]any{
		"samples":   len(posts),
		"formality": profile.FormalityLevel,
		"tone":      profile.Tone,
	}).Info("analyze-persona: profile saved")
	return nil
}

func readLines(path string, max int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("analyze-persona: open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() && len(lines) < max {
		line := scanner.Text()
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
