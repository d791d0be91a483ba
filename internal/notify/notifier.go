// Package notify delivers AQI alerts to subscribers.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/i474232898/air-quality-alerts/internal/aqi"
)

// ErrDispatch wraps delivery failures.
var ErrDispatch = errors.New("dispatch alert")

// Alert is the payload handed to a Notifier.
type Alert struct {
	StationID  string    `json:"stationId"`
	Station    string    `json:"station"`
	Value      float64   `json:"value"`
	Tier       aqi.Tier  `json:"tier"`
	ObservedAt time.Time `json:"observedAt"`
	Text       string    `json:"text"`
}

// Notifier sends alerts to an external channel.
type Notifier interface {
	Name() string

	// Send delivers an alert. Implementations must be safe for concurrent use.
	Send(ctx context.Context, alert Alert) error
}

// NewAlert renders the alert text for a reading. It fails with
// aqi.ErrIncompleteReading when the reading lacks station context.
func NewAlert(r aqi.Reading) (Alert, error) {
	if err := r.Validate(); err != nil {
		return Alert{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🚨 Air quality alert: %s\n", r.Station.Name)
	fmt.Fprintf(&b, "Level: %s (%s)\n", r.Tier.Label, r.Tier.Color)
	fmt.Fprintf(&b, "AQI: %g\n", r.Value)
	if r.DominantPollutant != "" {
		fmt.Fprintf(&b, "Dominant pollutant: %s\n", r.DominantPollutant)
	}
	fmt.Fprintf(&b, "Observed: %s", r.ObservedAt.Format("2006-01-02 15:04 -07:00"))
	if r.Station.URL != "" {
		fmt.Fprintf(&b, "\n%s", r.Station.URL)
	}

	return Alert{
		StationID:  r.Station.ID,
		Station:    r.Station.Name,
		Value:      r.Value,
		Tier:       r.Tier,
		ObservedAt: r.ObservedAt,
		Text:       b.String(),
	}, nil
}
