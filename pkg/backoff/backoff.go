// Package backoff implements the single generic retry primitive every
// network collaborator (LLM, posting, candidate feed, remote store)
// funnels through.
package backoff

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// Op is a unit of work that may fail transiently.
type Op func(ctx context.Context) error

// WithBackoff calls op up to maxRetries+1 times, waiting
// base*2^attempt between attempts, until it succeeds or the attempts are
// exhausted. label is used for log context only.
func WithBackoff(ctx context.Context, label string, maxRetries int, base time.Duration, op Op) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}
		delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
		logrus.WithFields(logrus.Fields{
			"label":   label,
			"attempt": attempt + 1,
			"delay":   delay,
			"error":   lastErr,
		}).Warn("backoff: retrying after transient failure")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
