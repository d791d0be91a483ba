// Package monitor runs the poll cycle: fetch a reading, classify it, and
// drive the feed and alert throttles.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/air-quality-alerts/internal/aqi"
	"github.com/i474232898/air-quality-alerts/internal/notify"
	"github.com/i474232898/air-quality-alerts/internal/observability"
	"github.com/i474232898/air-quality-alerts/internal/throttle"
)

// Renderer turns a reading into the syndication document.
type Renderer interface {
	Render(reading aqi.Reading) ([]byte, error)
}

// Store keeps recent readings for the query API.
type Store interface {
	Save(r aqi.Reading)
	Latest(stationID string) (aqi.Reading, error)
	Range(stationID string, from, to time.Time) ([]aqi.Reading, error)
}

// Options wires a Service. Every field except Clock is required.
type Options struct {
	StationID       string
	Provider        aqi.Provider
	Scale           *aqi.Scale
	Alerts          *throttle.AlertThrottle
	Feed            *throttle.FeedThrottle
	Renderer        Renderer
	Notifier        notify.Notifier
	Store           Store
	Clock           clockwork.Clock
	DispatchTimeout time.Duration
	Logger          *slog.Logger
	Metrics         *observability.Metrics
}

// CycleResult summarises one poll cycle.
type CycleResult struct {
	Reading  aqi.Reading
	Feed     throttle.FeedDecision
	FeedErr  error
	Alert    throttle.Decision
	AlertErr error
}

// Service orchestrates poll cycles. It owns both throttles; nothing else
// mutates them.
type Service struct {
	opts Options

	mu       sync.Mutex // one cycle at a time
	inflight sync.WaitGroup
}

// NewService creates a new Service.
func NewService(opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.DispatchTimeout <= 0 {
		opts.DispatchTimeout = 15 * time.Second
	}
	return &Service{opts: opts}
}

// RunCycle performs one poll. A fetch failure is returned and leaves both
// throttles untouched; render failures are reported in the result and only
// skip their own step.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.opts.Clock.Now()
	defer func() {
		s.opts.Metrics.CycleDuration.Observe(s.opts.Clock.Since(start).Seconds())
	}()

	reading, err := s.opts.Provider.Fetch(ctx, s.opts.StationID)
	if err != nil {
		s.opts.Metrics.Polls.WithLabelValues("fetch_error").Inc()
		s.opts.Logger.Error("fetch failed; skipping cycle",
			"provider", s.opts.Provider.Name(),
			"station", s.opts.StationID,
			"error", err,
		)
		return CycleResult{}, err
	}
	s.opts.Metrics.Polls.WithLabelValues("ok").Inc()

	now := s.opts.Clock.Now()
	reading.Tier = s.opts.Scale.Classify(reading.Value)
	if reading.Station.ID == "" {
		reading.Station.ID = s.opts.StationID
	}
	s.opts.Store.Save(reading)

	s.opts.Metrics.CurrentAQI.Set(reading.Value)
	s.opts.Metrics.CurrentRank.Set(float64(reading.Tier.Rank))
	s.opts.Logger.Info("aqi reading",
		"station", reading.Station.ID,
		"aqi", reading.Value,
		"tier", reading.Tier.Label,
		"rank", reading.Tier.Rank,
		"observed_at", reading.ObservedAt,
	)

	result := CycleResult{Reading: reading}
	result.Feed, result.FeedErr = s.feedStep(reading, now)
	result.Alert, result.AlertErr = s.alertStep(reading, now)
	return result, nil
}

func (s *Service) feedStep(reading aqi.Reading, now time.Time) (throttle.FeedDecision, error) {
	decision, err := s.opts.Feed.Evaluate(reading.Tier, now, func() ([]byte, error) {
		return s.opts.Renderer.Render(reading)
	})
	if err != nil {
		s.opts.Metrics.FeedDecision.WithLabelValues("render_error").Inc()
		s.opts.Logger.Error("feed render failed; keeping previous document", "error", err)
		return decision, err
	}

	s.opts.Metrics.FeedDecision.WithLabelValues(decision.String()).Inc()
	if decision == throttle.Regenerate {
		s.opts.Logger.Info("feed regenerated", "tier", reading.Tier.Label)
	}
	return decision, nil
}

func (s *Service) alertStep(reading aqi.Reading, now time.Time) (throttle.Decision, error) {
	if reading.Tier.Rank < s.opts.Alerts.Floor() {
		s.opts.Metrics.AlertDecision.WithLabelValues(throttle.Suppress.String()).Inc()
		return throttle.Suppress, nil
	}

	// Format before evaluating so a bad reading does not consume the cooldown.
	alert, err := notify.NewAlert(reading)
	if err != nil {
		s.opts.Metrics.AlertDecision.WithLabelValues("render_error").Inc()
		s.opts.Logger.Error("alert render failed; skipping alert step", "error", err)
		return throttle.Suppress, err
	}

	decision := s.opts.Alerts.Evaluate(reading.Tier, now)
	s.opts.Metrics.AlertDecision.WithLabelValues(decision.String()).Inc()
	if decision != throttle.Dispatch {
		s.opts.Logger.Debug("alert suppressed by cooldown", "tier", reading.Tier.Label)
		return decision, nil
	}

	s.dispatch(alert)
	return decision, nil
}

// dispatch sends the alert in the background. The throttle has already
// recorded the attempt; the outcome is only logged.
func (s *Service) dispatch(alert notify.Alert) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.opts.DispatchTimeout)
		defer cancel()

		if err := s.opts.Notifier.Send(ctx, alert); err != nil {
			s.opts.Metrics.Dispatches.WithLabelValues("error").Inc()
			s.opts.Logger.Error("alert delivery failed",
				"notifier", s.opts.Notifier.Name(),
				"tier", alert.Tier.Label,
				"error", err,
			)
			return
		}
		s.opts.Metrics.Dispatches.WithLabelValues("success").Inc()
		s.opts.Logger.Info("alert delivered",
			"notifier", s.opts.Notifier.Name(),
			"tier", alert.Tier.Label,
			"aqi", alert.Value,
		)
	}()
}

// Wait blocks until all in-flight deliveries have finished.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// FeedDocument returns the current syndication document.
func (s *Service) FeedDocument() []byte {
	doc, _ := s.opts.Feed.Document()
	return doc
}

// Latest returns the most recent reading.
func (s *Service) Latest() (aqi.Reading, error) {
	return s.opts.Store.Latest(s.opts.StationID)
}

// History returns readings observed between from and to.
func (s *Service) History(from, to time.Time) ([]aqi.Reading, error) {
	if to.Before(from) {
		return nil, errors.New("to must not be before from")
	}
	return s.opts.Store.Range(s.opts.StationID, from, to)
}

// StationID returns the monitored station.
func (s *Service) StationID() string {
	return s.opts.StationID
}
