package throttle

import (
	"sync"
	"time"

	"github.com/i474232898/air-quality-alerts/internal/aqi"
)

// FeedDecision is the outcome of a feed evaluation.
type FeedDecision int

const (
	Skip FeedDecision = iota
	Regenerate
)

func (d FeedDecision) String() string {
	if d == Regenerate {
		return "regenerate"
	}
	return "skip"
}

// FeedThrottle limits feed regeneration to once per interval, for tiers at
// or above its floor. It is safe for concurrent use.
type FeedThrottle struct {
	floor    int
	interval time.Duration

	mu             sync.RWMutex
	lastRenderedAt time.Time
	content        []byte
}

// NewFeedThrottle starts with placeholder as the current document.
func NewFeedThrottle(floor int, interval time.Duration, placeholder []byte) *FeedThrottle {
	return &FeedThrottle{
		floor:    floor,
		interval: interval,
		content:  placeholder,
	}
}

// Evaluate calls render and swaps in its output when a regeneration is due.
// A render error leaves the current document and timestamp untouched.
func (t *FeedThrottle) Evaluate(tier aqi.Tier, now time.Time, render func() ([]byte, error)) (FeedDecision, error) {
	if tier.Rank < t.floor {
		return Skip, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.lastRenderedAt.IsZero() && now.Sub(t.lastRenderedAt) < t.interval {
		return Skip, nil
	}

	doc, err := render()
	if err != nil {
		return Skip, err
	}

	t.lastRenderedAt = now
	t.content = doc
	return Regenerate, nil
}

// Document returns the current feed and when it was rendered (zero if the
// placeholder is still in place).
func (t *FeedThrottle) Document() ([]byte, time.Time) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.content, t.lastRenderedAt
}
