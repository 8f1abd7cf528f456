package xerrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrappedErrorsMatchSentinels(t *testing.T) {
	cases := []error{
		ErrInvalidSource,
		ErrDuplicateCandidate,
		ErrSafetyViolation,
		ErrRemoteTransient,
		ErrRemotePermanent,
		ErrQueueCorruption,
		ErrConfigMissing,
	}
	for _, sentinel := range cases {
		wrapped := fmt.Errorf("collect: %w: %s", sentinel, "detail")
		if !errors.Is(wrapped, sentinel) {
			t.Fatalf("expected wrapped error to match sentinel %v", sentinel)
		}
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	all := []error{
		ErrInvalidSource, ErrDuplicateCandidate, ErrSafetyViolation,
		ErrRemoteTransient, ErrRemotePermanent, ErrQueueCorruption, ErrConfigMissing,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j && errors.Is(a, b) {
				t.Fatalf("sentinels %d and %d unexpectedly match", i, j)
			}
		}
	}
}
