// Command xpost is the dispatcher CLI: a thin command surface composing
// the queue store, preference scorer, safety gate, mix planner,
// generation orchestrator, persona analyzer, control-plane sync, and PDCA
// updater into cron-schedulable subcommands. One dispatch map plus a
// flag.FlagSet per subcommand.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

var commands = map[string]func(ctx context.Context, app *App, args []string) error{
	"generate":          cmdGenerate,
	"post":              cmdPost,
	"curate":            cmdCurate,
	"curate-post":       cmdCuratePost,
	"collect":           cmdCollect,
	"add-tweet":         cmdAddTweet,
	"import-urls":       cmdImportURLs,
	"notify-test":       cmdNotifyTest,
	"setup-sheets":      cmdSetupSheets,
	"sync-queue":        cmdSyncQueue,
	"sync-settings":     cmdSyncSettings,
	"export-dashboard":  cmdExportDashboard,
	"preferences":       cmdPreferences,
	"selection-pdca":    cmdSelectionPDCA,
	"sync-from-firebase": cmdSyncFromFirebase,
	"process-operations": cmdProcessOperations,
	"analyze-persona":   cmdAnalyzePersona,
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	subcommand := os.Args[1]
	fn, ok := commands[subcommand]
	if !ok {
		fmt.Fprintf(os.Stderr, "xpost: unknown command %q\n", subcommand)
		printUsage()
		os.Exit(1)
	}

	log := logrus.StandardLogger()
	setupLogger(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Warn("xpost: received shutdown signal")
		cancel()
	}()

	app, err := NewApp(log)
	if err != nil {
		log.WithError(err).Fatal("xpost: failed to initialize")
	}
	defer app.Close()

	color.New(color.FgCyan, color.Bold).Printf("▶ %s\n", subcommand)

	if err := fn(ctx, app, os.Args[2:]); err != nil {
		log.WithError(err).WithField("command", subcommand).Error("xpost: command failed")
		app.notifyFailure(ctx, subcommand, err)
		color.New(color.FgRed, color.Bold).Printf("✗ %s failed: %v\n", subcommand, err)
		os.Exit(1)
	}

	color.New(color.FgGreen, color.Bold).Printf("✓ %s complete\n", subcommand)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: xpost <command> [flags]")
	fmt.Fprintln(os.Stderr, "commands:")
	for name := range commands {
		fmt.Fprintf(os.Stderr, "  %s\n", name)
	}
}

func setupLogger(log *logrus.Logger) {
	logLevel := os.Getenv("LOG_LEVEL")
	if level, err := logrus.ParseLevel(logLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
}
