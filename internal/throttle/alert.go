// Package throttle decides when a classified reading may trigger an alert
// dispatch or a feed regeneration.
package throttle

import (
	"sort"
	"sync"
	"time"

	"github.com/i474232898/air-quality-alerts/internal/aqi"
)

// Decision is the outcome of an alert evaluation.
type Decision int

const (
	Suppress Decision = iota
	Dispatch
)

func (d Decision) String() string {
	if d == Dispatch {
		return "dispatch"
	}
	return "suppress"
}

// CoverRule reports whether a recent alert at rank fired blocks a new alert
// at rank current.
type CoverRule func(current, fired int) bool

// CoverHigherOrEqual blocks an alert when any rank at or above it fired
// within the cooldown. Escalation is never blocked by a lower rank.
func CoverHigherOrEqual(current, fired int) bool {
	return fired >= current
}

// CoverSameRank gives every rank an independent cooldown.
func CoverSameRank(current, fired int) bool {
	return fired == current
}

// CoverRuleByName resolves the names accepted in configuration.
func CoverRuleByName(name string) (CoverRule, bool) {
	switch name {
	case "escalation", "":
		return CoverHigherOrEqual, true
	case "independent":
		return CoverSameRank, true
	default:
		return nil, false
	}
}

// AlertThrottle is an escalation-aware cooldown over tier ranks.
// It is safe for concurrent use.
type AlertThrottle struct {
	floor    int
	cooldown time.Duration
	covers   CoverRule

	mu        sync.Mutex
	lastFired map[int]time.Time // ranks >= floor only
}

// NewAlertThrottle tracks ranks floor..maxRank inclusive. A nil rule means
// CoverHigherOrEqual.
func NewAlertThrottle(floor, maxRank int, cooldown time.Duration, rule CoverRule) *AlertThrottle {
	if rule == nil {
		rule = CoverHigherOrEqual
	}
	t := &AlertThrottle{
		floor:     floor,
		cooldown:  cooldown,
		covers:    rule,
		lastFired: make(map[int]time.Time),
	}
	for r := floor; r <= maxRank; r++ {
		t.lastFired[r] = time.Time{}
	}
	return t
}

// Floor returns the minimum rank considered for alerting.
func (t *AlertThrottle) Floor() int {
	return t.floor
}

// Evaluate decides whether tier may alert at now. A Dispatch decision is
// recorded before returning, so delivery failures cannot reopen the window.
func (t *AlertThrottle) Evaluate(tier aqi.Tier, now time.Time) Decision {
	if tier.Rank < t.floor {
		return Suppress
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for rank, at := range t.lastFired {
		if at.IsZero() || !t.covers(tier.Rank, rank) {
			continue
		}
		if now.Sub(at) < t.cooldown {
			return Suppress
		}
	}

	t.lastFired[tier.Rank] = now
	return Dispatch
}

// RankFiring is one entry of a throttle snapshot.
type RankFiring struct {
	Rank        int
	LastFiredAt time.Time
}

// Snapshot returns the tracked ranks in ascending order with their last
// dispatch time (zero if never).
func (t *AlertThrottle) Snapshot() []RankFiring {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]RankFiring, 0, len(t.lastFired))
	for rank, at := range t.lastFired {
		out = append(out, RankFiring{Rank: rank, LastFiredAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}
