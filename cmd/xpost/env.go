package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/account"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/controlplane"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/db"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/feed"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/llm"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/llm/openai"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/logging"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/notify"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/preference"
	prompts "github.com/kitayama-ai/x-quote-rt-bot/pkg/prompts/templates"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/queue"
)

// App bundles the collaborators nearly every subcommand needs. It is built
// once in main and handed to each command function rather than re-derived
// per command.
type App struct {
	Log      *logrus.Logger
	Notifier *notify.Notifier
	DB       *gorm.DB // nil unless DatabaseConfigured

	controlPlaneCfg controlplane.Config
	haveControlPlane bool
}

func NewApp(log *logrus.Logger) (*App, error) {
	log.SetFormatter(logging.NewColoredJSONFormatter())

	app := &App{Log: log}

	app.Notifier = notify.New(os.Getenv("DISCORD_WEBHOOK_URL"), log)

	if db.DatabaseConfigured() {
		gdb, err := db.SetupDatabase(log)
		if err != nil {
			log.WithError(err).Warn("xpost: metrics warehouse unavailable, continuing without it")
		} else {
			app.DB = gdb
		}
	}

	if base := os.Getenv("CONTROL_PLANE_BASE_URL"); base != "" {
		app.controlPlaneCfg = controlplane.Config{
			BaseURL:     base,
			BearerToken: os.Getenv("CONTROL_PLANE_TOKEN"),
			Logger:      log,
		}
		app.haveControlPlane = true
	}

	return app, nil
}

func (a *App) Close() {
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

func (a *App) notifyFailure(ctx context.Context, command string, err error) {
	a.Notifier.NotifyError(ctx, fmt.Sprintf("xpost %s failed", command), err.Error())
}

func (a *App) controlPlaneClient() (*controlplane.Client, error) {
	if !a.haveControlPlane {
		return nil, fmt.Errorf("xpost: CONTROL_PLANE_BASE_URL not configured")
	}
	return controlplane.New(a.controlPlaneCfg)
}

// AccountContext bundles one target account's storage and collaborators,
// loaded on demand by commands that take --account.
type AccountContext struct {
	Account  *account.Config
	Queue    *queue.Store
	Prefs    *preference.Store
	Feed     *feed.Config
	Loader   *prompts.Loader
	LLM      llm.LLM
}

func (a *App) loadAccount(id int) (*AccountContext, error) {
	acct, err := account.Load(id, "data", a.Log)
	if err != nil {
		return nil, err
	}
	store, err := queue.NewStore(acct.QueueDir, acct.FeedbackDir, a.Log)
	if err != nil {
		return nil, err
	}
	prefs := preference.NewStore("config")
	loader := prompts.NewLoader("prompts/templates")

	var model llm.LLM
	if oaCfg, err := openai.NewConfig(); err == nil {
		oaCfg.Logger = a.Log
		if client, err := openai.NewClient(oaCfg); err == nil {
			model = client
		} else {
			a.Log.WithError(err).Warn("xpost: openai client unavailable")
		}
	} else {
		a.Log.WithError(err).Warn("xpost: openai config unavailable, generation disabled")
	}

	return &AccountContext{
		Account: acct,
		Queue:   store,
		Prefs:   prefs,
		Loader:  loader,
		LLM:     model,
	}, nil
}

// newFlagSet returns a FlagSet pre-wired with the --account flag every
// account-scoped subcommand accepts; callers add their own flags before
// calling Parse.
func newFlagSet(name string) (*flag.FlagSet, *int) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	id := fs.Int("account", 1, "target account number")
	return fs, id
}
