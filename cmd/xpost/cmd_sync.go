package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

// cmdSyncQueue pulls remote queue decisions and applies them to account 1's
// local queue, or pushes a dashboard snapshot, depending on --direction.
func cmdSyncQueue(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("sync-queue", flag.ContinueOnError)
	direction := fs.String("direction", "to_sheet", "to_sheet | from_sheet | full")
	uid := fs.String("uid", os.Getenv("CONTROL_PLANE_UID"), "remote user id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cp, err := app.controlPlaneClient()
	if err != nil {
		return err
	}

	ac, err := app.loadAccount(1)
	if err != nil {
		return err
	}

	switch *direction {
	case "from_sheet":
		result, err := cp.SyncQueueDecisions(ctx, ac.Queue, *uid)
		if err != nil {
			return err
		}
		app.Log.WithFields(map[string]any{
			"approved": result.Approved,
			"skipped":  result.Skipped,
			"not_found": result.NotFound,
		}).Info("sync-queue: applied remote decisions")
	case "to_sheet", "full":
		prefs, err := ac.Prefs.Load()
		if err != nil {
			return err
		}
		if err := cp.Push(ctx, *uid, ac.Queue, prefs, nil, nil); err != nil {
			return err
		}
		app.Log.Info("sync-queue: pushed dashboard snapshot")
		if *direction == "full" {
			result, err := cp.SyncQueueDecisions(ctx, ac.Queue, *uid)
			if err != nil {
				return err
			}
			app.Log.WithField("approved", result.Approved).Info("sync-queue: full sync also applied remote decisions")
		}
	default:
		return fmt.Errorf("sync-queue: unknown direction %q", *direction)
	}
	return nil
}

// cmdSyncSettings pulls selection_preferences/{uid} from the control plane
// and merges it onto the local Preferences document.
func cmdSyncSettings(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("sync-settings", flag.ContinueOnError)
	uid := fs.String("uid", os.Getenv("CONTROL_PLANE_UID"), "remote user id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cp, err := app.controlPlaneClient()
	if err != nil {
		return err
	}

	ac, err := app.loadAccount(1)
	if err != nil {
		return err
	}

	updated, err := cp.SyncSelectionPreferences(ctx, ac.Prefs, *uid)
	if err != nil {
		return err
	}
	app.Log.WithField("updated_fields", updated).Info("sync-settings: merged remote preferences")
	return nil
}

// cmdSyncFromFirebase is the combined queue+preferences pull used by the
// scheduled sync job, with optional scoping to one side.
func cmdSyncFromFirebase(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("sync-from-firebase", flag.ContinueOnError)
	uid := fs.String("uid", os.Getenv("CONTROL_PLANE_UID"), "remote user id")
	queueOnly := fs.Bool("queue-only", false, "sync only queue decisions")
	prefsOnly := fs.Bool("prefs-only", false, "sync only selection preferences")
	quiet := fs.Bool("quiet", false, "suppress per-field logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cp, err := app.controlPlaneClient()
	if err != nil {
		return err
	}
	ac, err := app.loadAccount(1)
	if err != nil {
		return err
	}

	if !*prefsOnly {
		result, err := cp.SyncQueueDecisions(ctx, ac.Queue, *uid)
		if err != nil {
			return err
		}
		if !*quiet {
			app.Log.WithField("approved", result.Approved).WithField("skipped", result.Skipped).Info("sync-from-firebase: queue decisions applied")
		}
	}
	if !*queueOnly {
		updated, err := cp.SyncSelectionPreferences(ctx, ac.Prefs, *uid)
		if err != nil {
			return err
		}
		if !*quiet {
			app.Log.WithField("updated_fields", updated).Info("sync-from-firebase: preferences merged")
		}
	}
	return nil
}

// cmdProcessOperations drains the remote operation-request queue, running
// each request as a subprocess of this same binary.
func cmdProcessOperations(ctx context.Context, app *App, args []string) error {
	cp, err := app.controlPlaneClient()
	if err != nil {
		return err
	}
	n, err := cp.ProcessOperations(ctx, os.Args[0])
	if err != nil {
		return err
	}
	app.Log.WithField("processed", n).Info("process-operations: finished")
	return nil
}
