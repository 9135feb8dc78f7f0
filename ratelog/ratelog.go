// Package ratelog provides a token-bucket-limited wrapper around a
// logrus entry, so a storm of malformed packets cannot turn into a
// denial of service via log volume.
package ratelog

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Limiter rate-limits WARN-level log lines to at most Burst messages
// per Interval, dropping (and counting) the rest silently.
type Limiter struct {
	Log      logrus.FieldLogger
	Burst    int
	Interval time.Duration

	mu       sync.Mutex
	tokens   int
	window   time.Time
	dropped  uint64
	initOnce sync.Once
}

// New returns a Limiter allowing burst messages through per interval.
func New(log logrus.FieldLogger, burst int, interval time.Duration) *Limiter {
	return &Limiter{Log: log, Burst: burst, Interval: interval}
}

func (l *Limiter) init() {
	l.tokens = l.Burst
	l.window = time.Now()
}

// Warnf logs at WARN level, subject to the rate limit. Safe for a
// nil *Limiter, in which case every call is dropped.
func (l *Limiter) Warnf(format string, args ...interface{}) {
	if l == nil || l.Log == nil {
		return
	}

	l.mu.Lock()
	l.initOnce.Do(l.init)

	now := time.Now()
	if now.Sub(l.window) >= l.Interval {
		if l.dropped > 0 {
			l.Log.WithField("dropped", l.dropped).Warn("ratelog: suppressed messages")
			l.dropped = 0
		}
		l.window = now
		l.tokens = l.Burst
	}

	if l.tokens <= 0 {
		l.dropped++
		l.mu.Unlock()
		return
	}
	l.tokens--
	l.mu.Unlock()

	l.Log.Warnf(format, args...)
}
