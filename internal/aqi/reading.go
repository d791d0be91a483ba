package aqi

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrIncompleteReading is returned when a reading lacks the context needed to
// render a feed item or an alert message.
var ErrIncompleteReading = errors.New("incomplete reading")

var validate = validator.New()

// Station describes the monitoring station a reading came from.
type Station struct {
	ID   string    `json:"id"`
	Name string    `json:"name" validate:"required"`
	URL  string    `json:"url,omitempty" validate:"omitempty,url"`
	Geo  []float64 `json:"geo,omitempty"`
}

// Pollutant is one entry of the per-pollutant index breakdown (pm25, o3, ...).
type Pollutant struct {
	Code  string  `json:"code" validate:"required"`
	Value float64 `json:"value"`
}

// ForecastDay is the daily forecast for one pollutant.
type ForecastDay struct {
	Pollutant string  `json:"pollutant"`
	Day       string  `json:"day"`
	Avg       float64 `json:"avg"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
}

// Attribution credits the agencies publishing the station data.
type Attribution struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Reading is a single classified observation for a station.
type Reading struct {
	Value      float64   `json:"value" validate:"gte=0"`
	Tier       Tier      `json:"tier"`
	ObservedAt time.Time `json:"observedAt" validate:"required"`
	FetchedAt  time.Time `json:"fetchedAt"`

	Station           Station       `json:"station"`
	DominantPollutant string        `json:"dominantPollutant,omitempty"`
	Pollutants        []Pollutant   `json:"pollutants,omitempty" validate:"dive"`
	Forecast          []ForecastDay `json:"forecast,omitempty"`
	Attributions      []Attribution `json:"attributions,omitempty"`
}

// Validate reports whether the reading carries enough context to be rendered.
func (r Reading) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrIncompleteReading, err)
	}
	return nil
}
