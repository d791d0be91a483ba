package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/air-quality-alerts/internal/aqi"
)

const waqiBaseURL = "https://api.waqi.info/feed"

// WAQIProvider implements aqi.Provider for the World Air Quality Index API.
type WAQIProvider struct {
	name    string
	token   string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewWAQIProvider(client *http.Client, token string) *WAQIProvider {
	return &WAQIProvider{
		name:    "waqi",
		token:   token,
		baseURL: waqiBaseURL,
		client:  client,
		circuit: newCircuitBreaker("waqi"),
	}
}

// WithBaseURL points the provider at another endpoint, e.g. a test server.
func (p *WAQIProvider) WithBaseURL(u string) *WAQIProvider {
	p.baseURL = u
	return p
}

func (p *WAQIProvider) Name() string {
	return p.name
}

func (p *WAQIProvider) Fetch(ctx context.Context, stationID string) (aqi.Reading, error) {
	if p.token == "" {
		return aqi.Reading{}, fmt.Errorf("%w: waqi %w", ErrFetch, ErrMissingToken)
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("token", p.token)

		u := fmt.Sprintf("%s/%s/?%s", p.baseURL, url.PathEscape(stationID), values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, p.client, p.circuit, buildRequest)
	if err != nil {
		return aqi.Reading{}, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return aqi.Reading{}, fmt.Errorf("%w: decode response: %w", ErrFetch, err)
	}
	if envelope.Status != "ok" {
		// On errors WAQI puts a plain message string in data.
		var msg string
		_ = json.Unmarshal(envelope.Data, &msg)
		return aqi.Reading{}, fmt.Errorf("%w: waqi status %q: %s", ErrFetch, envelope.Status, msg)
	}

	var payload waqiData
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return aqi.Reading{}, fmt.Errorf("%w: decode data: %w", ErrFetch, err)
	}

	value, err := parseIndex(payload.AQI)
	if err != nil {
		return aqi.Reading{}, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	now := time.Now().UTC()
	return aqi.Reading{
		Value:      value,
		ObservedAt: payload.Time.observedAt(now),
		FetchedAt:  now,
		Station: aqi.Station{
			ID:   stationID,
			Name: payload.City.Name,
			URL:  payload.City.URL,
			Geo:  payload.City.Geo,
		},
		DominantPollutant: payload.DominantPol,
		Pollutants:        payload.pollutants(),
		Forecast:          payload.forecast(),
		Attributions:      payload.attributions(),
	}, nil
}

type waqiData struct {
	AQI          json.RawMessage `json:"aqi"`
	Idx          int             `json:"idx"`
	DominantPol  string          `json:"dominentpol"`
	Attributions []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"attributions"`
	City struct {
		Name string    `json:"name"`
		URL  string    `json:"url"`
		Geo  []float64 `json:"geo"`
	} `json:"city"`
	IAQI map[string]struct {
		V float64 `json:"v"`
	} `json:"iaqi"`
	Time     waqiTime `json:"time"`
	Forecast struct {
		Daily map[string][]struct {
			Avg float64 `json:"avg"`
			Day string  `json:"day"`
			Max float64 `json:"max"`
			Min float64 `json:"min"`
		} `json:"daily"`
	} `json:"forecast"`
}

type waqiTime struct {
	S   string `json:"s"`
	TZ  string `json:"tz"`
	V   int64  `json:"v"`
	ISO string `json:"iso"`
}

func (t waqiTime) observedAt(fallback time.Time) time.Time {
	if ts, err := time.Parse(time.RFC3339, t.ISO); err == nil {
		return ts
	}
	if t.S != "" && t.TZ != "" {
		if ts, err := time.Parse("2006-01-02 15:04:05-07:00", t.S+t.TZ); err == nil {
			return ts
		}
	}
	return fallback
}

func (d waqiData) pollutants() []aqi.Pollutant {
	out := make([]aqi.Pollutant, 0, len(d.IAQI))
	for code, v := range d.IAQI {
		out = append(out, aqi.Pollutant{Code: code, Value: v.V})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (d waqiData) forecast() []aqi.ForecastDay {
	var out []aqi.ForecastDay
	for pol, days := range d.Forecast.Daily {
		for _, day := range days {
			out = append(out, aqi.ForecastDay{
				Pollutant: pol,
				Day:       day.Day,
				Avg:       day.Avg,
				Min:       day.Min,
				Max:       day.Max,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].Pollutant < out[j].Pollutant
	})
	return out
}

func (d waqiData) attributions() []aqi.Attribution {
	out := make([]aqi.Attribution, 0, len(d.Attributions))
	for _, a := range d.Attributions {
		out = append(out, aqi.Attribution{Name: a.Name, URL: a.URL})
	}
	return out
}

// parseIndex accepts the numeric index or its quoted form. WAQI reports "-"
// when the station has no current value.
func parseIndex(raw json.RawMessage) (float64, error) {
	raw = bytes.Trim(bytes.TrimSpace(raw), `"`)
	if len(raw) == 0 || string(raw) == "-" || string(raw) == "null" {
		return 0, fmt.Errorf("station reported no aqi value")
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid aqi value %q", raw)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative aqi value %v", v)
	}
	return v, nil
}
