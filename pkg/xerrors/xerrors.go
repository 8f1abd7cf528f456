// Package xerrors defines the error kinds shared across the pipeline.
//
// These are sentinel values, not a type hierarchy: callers match with
// errors.Is and wrap with fmt.Errorf("...: %w", Err...) the same way the
// rest of this codebase does.
package xerrors

import "errors"

var (
	// ErrInvalidSource indicates a malformed URL or candidate payload.
	ErrInvalidSource = errors.New("invalid source")

	// ErrDuplicateCandidate indicates a tweet_id already present in
	// pending or processed.
	ErrDuplicateCandidate = errors.New("duplicate candidate")

	// ErrSafetyViolation indicates the safety gate blocked a generated text.
	ErrSafetyViolation = errors.New("safety violation")

	// ErrRemoteTransient indicates a timeout, 429, 5xx, or Cloudflare
	// challenge page from a remote collaborator. Callers retry with backoff.
	ErrRemoteTransient = errors.New("remote transient error")

	// ErrRemotePermanent indicates a 401/403 that is not a quote
	// restriction. Callers do not retry or mutate state.
	ErrRemotePermanent = errors.New("remote permanent error")

	// ErrQueueCorruption indicates a queue store file failed to parse
	// and its backup also failed to parse.
	ErrQueueCorruption = errors.New("queue store corruption")

	// ErrConfigMissing indicates a required secret is absent for a
	// requested action.
	ErrConfigMissing = errors.New("required configuration missing")
)
