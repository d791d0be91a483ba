package aqi

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_DefaultScale(t *testing.T) {
	s := DefaultScale()

	tests := []struct {
		value float64
		rank  int
		label string
	}{
		{0, 0, "Good"},
		{50, 0, "Good"},
		{50.5, 1, "Moderate"},
		{100, 1, "Moderate"},
		{101, 2, "Unhealthy for Sensitive Groups"},
		{150, 2, "Unhealthy for Sensitive Groups"},
		{151, 3, "Unhealthy"},
		{200, 3, "Unhealthy"},
		{250, 4, "Very Unhealthy"},
		{300, 4, "Very Unhealthy"},
		{301, 5, "Hazardous"},
		{999, 5, "Hazardous"},
	}

	for _, tt := range tests {
		tier := s.Classify(tt.value)
		assert.Equal(t, tt.rank, tier.Rank, "value %v", tt.value)
		assert.Equal(t, tt.label, tier.Label, "value %v", tt.value)
	}
}

func TestClassify_BoundaryBelongsToLowerTier(t *testing.T) {
	s := DefaultScale()
	for _, tier := range s.Tiers()[:s.Len()-1] {
		assert.Equal(t, tier.Rank, s.Classify(tier.UpperBound).Rank, "bound %v", tier.UpperBound)
		assert.Equal(t, tier.Rank+1, s.Classify(math.Nextafter(tier.UpperBound, math.Inf(1))).Rank)
	}
}

func TestClassify_NegativeClampsToFirstTier(t *testing.T) {
	assert.Equal(t, 0, DefaultScale().Classify(-5).Rank)
}

func TestScaleTier(t *testing.T) {
	s := DefaultScale()

	tier, ok := s.Tier(3)
	require.True(t, ok)
	assert.Equal(t, "red", tier.Color)

	_, ok = s.Tier(6)
	assert.False(t, ok)
	_, ok = s.Tier(-1)
	assert.False(t, ok)
}

func TestNewScale_Invalid(t *testing.T) {
	tests := map[string][]Tier{
		"empty":          nil,
		"bounded top":    {{Label: "a", UpperBound: 10}},
		"not increasing": {{Label: "a", UpperBound: 10}, {Label: "b", UpperBound: 10}, {Label: "c", UpperBound: math.Inf(1)}},
		"no label":       {{UpperBound: math.Inf(1)}},
		"negative":       {{Label: "a", UpperBound: -1}, {Label: "b", UpperBound: math.Inf(1)}},
	}

	for name, tiers := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewScale(tiers)
			assert.ErrorIs(t, err, ErrInvalidScale)
		})
	}
}

func TestParseScale(t *testing.T) {
	raw := []byte(`
tiers:
  - label: Low
    color: green
    upper_bound: 40
  - label: Medium
    color: amber
    upper_bound: 120.5
  - label: High
    color: red
`)
	s, err := ParseScale(raw)
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())

	assert.Equal(t, "Low", s.Classify(40).Label)
	assert.Equal(t, "Medium", s.Classify(120.5).Label)
	assert.Equal(t, 2, s.Classify(121).Rank)
}

func TestParseScale_BadBound(t *testing.T) {
	_, err := ParseScale([]byte("tiers:\n  - label: a\n    upper_bound: lots\n"))
	assert.ErrorIs(t, err, ErrInvalidScale)
}

func TestLoadScale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scale.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tiers:\n  - label: a\n    upper_bound: 10\n  - label: b\n    upper_bound: inf\n"), 0o600))

	s, err := LoadScale(path)
	require.NoError(t, err)
	assert.Equal(t, "b", s.Classify(11).Label)

	_, err = LoadScale(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestReadingValidate(t *testing.T) {
	r := Reading{
		Value:      42,
		ObservedAt: time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC),
		Station:    Station{ID: "@1437", Name: "Taipei"},
	}
	require.NoError(t, r.Validate())

	missingName := r
	missingName.Station.Name = ""
	assert.ErrorIs(t, missingName.Validate(), ErrIncompleteReading)

	missingTime := r
	missingTime.ObservedAt = time.Time{}
	assert.ErrorIs(t, missingTime.Validate(), ErrIncompleteReading)
}
