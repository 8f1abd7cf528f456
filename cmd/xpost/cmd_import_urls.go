package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/normalize"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/xerrors"
)

// cmdAddTweet enqueues a single tweet URL passed as a positional argument.
// It is the command the operation-request processor dispatches for remote
// "add-tweet" requests, so it must stay cheap and non-interactive.
func cmdAddTweet(ctx context.Context, app *App, args []string) error {
	fs, accountID := newFlagSet("add-tweet")
	memo := fs.String("memo", "", "free-text note attached to the candidate")
	autoApprove := fs.Bool("auto-approve", false, "approve the candidate immediately")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("add-tweet: expected exactly one tweet URL argument")
	}
	rawURL := fs.Arg(0)

	ac, err := app.loadAccount(*accountID)
	if err != nil {
		return err
	}

	rec, err := normalize.FromURL(normalize.URLSource{URL: rawURL, Memo: *memo})
	if err != nil {
		return fmt.Errorf("add-tweet: %w", err)
	}

	ok, err := ac.Queue.Add(rec)
	if err != nil {
		return fmt.Errorf("add-tweet: %w", err)
	}
	if !ok {
		app.Log.WithField("tweet_id", rec.TweetID).Info("add-tweet: already queued")
		fmt.Println("already queued:", rec.TweetID)
		return nil
	}
	if *autoApprove {
		_, _ = ac.Queue.Approve(rec.TweetID)
	}

	app.Log.WithFields(map[string]any{
		"tweet_id": rec.TweetID,
		"author":   rec.AuthorUsername,
	}).Info("add-tweet: queued")
	fmt.Println("queued:", rec.TweetID)
	return nil
}

// cmdImportURLs reads tweet URLs, one per line, from stdin and enqueues
// each as a manually sourced candidate, the operator-driven alternative
// to the candidate-feed collector.
func cmdImportURLs(ctx context.Context, app *App, args []string) error {
	fs, accountID := newFlagSet("import-urls")
	autoApprove := fs.Bool("auto-approve", false, "approve every imported URL immediately")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ac, err := app.loadAccount(*accountID)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(os.Stdin)
	added, skipped, invalid := 0, 0, 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !normalize.IsValidTweetURL(line) {
			invalid++
			app.Log.WithField("url", line).Warn("import-urls: not a recognized tweet URL")
			continue
		}

		rec, err := normalize.FromURL(normalize.URLSource{URL: line})
		if err != nil {
			invalid++
			app.Log.WithError(err).WithField("url", line).Warn("import-urls: failed to parse")
			continue
		}

		ok, err := ac.Queue.Add(rec)
		if err != nil && !errors.Is(err, xerrors.ErrDuplicateCandidate) {
			return fmt.Errorf("import-urls: %w", err)
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
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("import-urls: read stdin: %w", err)
	}

	app.Log.WithFields(map[string]any{
		"added":   added,
		"skipped": skipped,
		"invalid": invalid,
	}).Info("import-urls: finished")
	return nil
}
