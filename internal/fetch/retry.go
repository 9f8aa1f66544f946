package fetch

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// retryableStatuses are the HTTP statuses worth another attempt at the same
// URL after a backoff sleep.
var retryableStatuses = map[int]struct{}{
	429: {},
	403: {},
	500: {},
	502: {},
	503: {},
	504: {},
}

func isRetryableStatus(code int) bool {
	_, ok := retryableStatuses[code]
	return ok
}

// BackoffPolicy computes jittered exponential delays between attempts:
// min(cap, base*2^attempt) plus random jitter in [0, base).
type BackoffPolicy struct {
	base time.Duration
	cap  time.Duration
}

// NewBackoffPolicy builds a policy with the standard one-second base and
// sixty-second cap.
func NewBackoffPolicy() *BackoffPolicy {
	return &BackoffPolicy{base: time.Second, cap: 60 * time.Second}
}

// NewBackoffPolicyWith builds a policy with explicit base and cap, used by
// tests to keep retry loops fast.
func NewBackoffPolicyWith(base, cap time.Duration) *BackoffPolicy {
	return &BackoffPolicy{base: base, cap: cap}
}

// Delay returns the wait duration before retrying after the given attempt.
func (p *BackoffPolicy) Delay(attempt int) time.Duration {
	delay := float64(p.base) * math.Pow(2, float64(attempt))
	if delay > float64(p.cap) {
		delay = float64(p.cap)
	}
	return time.Duration(delay) + randomJitter(p.base)
}

// Sleep blocks for the attempt's delay or until the context is done.
func (p *BackoffPolicy) Sleep(ctx context.Context, attempt int) {
	timer := time.NewTimer(p.Delay(attempt))
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
