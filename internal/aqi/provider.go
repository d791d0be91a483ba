package aqi

import "context"

// Provider abstracts an upstream air-quality data source.
// Fetch returns an unclassified reading; Tier is filled in by the caller.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, stationID string) (Reading, error)
}
