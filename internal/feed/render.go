// Package feed renders AQI readings as an RSS 2.0 document.
package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/feeds"

	"github.com/i474232898/air-quality-alerts/internal/aqi"
)

// Placeholder is served until the first document has been rendered.
var Placeholder = []byte(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>No data yet</title></channel></rss>`)

// Renderer builds the feed document for a reading.
type Renderer struct {
	title string
	link  string
	now   func() time.Time
}

// NewRenderer creates a renderer whose channel points at link.
func NewRenderer(title, link string) *Renderer {
	return &Renderer{
		title: title,
		link:  link,
		now:   time.Now,
	}
}

// Render produces the RSS document. Readings without station context are
// rejected with aqi.ErrIncompleteReading.
func (r *Renderer) Render(reading aqi.Reading) ([]byte, error) {
	if err := reading.Validate(); err != nil {
		return nil, err
	}

	link := r.link
	if reading.Station.URL != "" {
		link = reading.Station.URL
	}
	now := r.now().UTC()

	f := &feeds.Feed{
		Title:       fmt.Sprintf("%s: %s", r.title, reading.Station.Name),
		Link:        &feeds.Link{Href: link},
		Description: fmt.Sprintf("Air quality above the %q level at %s", reading.Tier.Label, reading.Station.Name),
		Id:          link,
		Updated:     now,
		Created:     now,
		Items: []*feeds.Item{{
			Title:       fmt.Sprintf("AQI %s: %s", formatValue(reading.Value), reading.Tier.Label),
			Link:        &feeds.Link{Href: link},
			Description: describe(reading),
			Id:          ItemID(reading),
			Created:     reading.ObservedAt,
			Updated:     now,
		}},
	}

	doc, err := f.ToRss()
	if err != nil {
		return nil, fmt.Errorf("render rss: %w", err)
	}
	return []byte(doc), nil
}

// ItemID is stable for a station and observation time, so feed readers do
// not show the same observation twice.
func ItemID(reading aqi.Reading) string {
	name := reading.Station.ID + "|" + reading.ObservedAt.UTC().Format(time.RFC3339)
	return "urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func describe(r aqi.Reading) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Observed at %s (%s level, %s).", r.ObservedAt.Format("2006-01-02 15:04 MST"), r.Tier.Label, r.Tier.Color)
	if r.DominantPollutant != "" {
		fmt.Fprintf(&b, " Dominant pollutant: %s.", r.DominantPollutant)
	}
	if len(r.Pollutants) > 0 {
		parts := make([]string, 0, len(r.Pollutants))
		for _, p := range r.Pollutants {
			parts = append(parts, fmt.Sprintf("%s %s", p.Code, formatValue(p.Value)))
		}
		fmt.Fprintf(&b, " Pollutants: %s.", strings.Join(parts, ", "))
	}
	for _, d := range r.Forecast {
		if d.Pollutant != r.DominantPollutant {
			continue
		}
		fmt.Fprintf(&b, " Forecast %s: avg %s (min %s, max %s).", d.Day, formatValue(d.Avg), formatValue(d.Min), formatValue(d.Max))
	}
	b.WriteString(" Take precautions when outdoors.")
	return b.String()
}

func formatValue(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.1f", v), "0"), ".")
}
