package pipeline

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/docnum/internal/xref"
)

// IsRetryable reports whether a build error may clear on a fresh attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, xref.ErrBookmarkCollision)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(min(attempt, 5))) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3
