package aqi

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrInvalidScale is returned when a tier table does not partition [0, +Inf).
var ErrInvalidScale = errors.New("invalid tier scale")

// Tier is one severity bucket of the AQI scale. UpperBound is inclusive.
type Tier struct {
	Rank       int     `json:"rank"`
	Label      string  `json:"label"`
	Color      string  `json:"color"`
	UpperBound float64 `json:"upperBound"`
}

// Scale is an ordered tier table. The zero value is not usable; build one with
// NewScale or DefaultScale.
type Scale struct {
	tiers []Tier
}

// DefaultScale returns the US EPA AQI breakpoints.
func DefaultScale() *Scale {
	s, _ := NewScale([]Tier{
		{Label: "Good", Color: "green", UpperBound: 50},
		{Label: "Moderate", Color: "yellow", UpperBound: 100},
		{Label: "Unhealthy for Sensitive Groups", Color: "orange", UpperBound: 150},
		{Label: "Unhealthy", Color: "red", UpperBound: 200},
		{Label: "Very Unhealthy", Color: "purple", UpperBound: 300},
		{Label: "Hazardous", Color: "maroon", UpperBound: math.Inf(1)},
	})
	return s
}

// NewScale validates tiers and assigns ranks by position.
// Bounds must be strictly increasing and the last one must be +Inf.
func NewScale(tiers []Tier) (*Scale, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("%w: no tiers", ErrInvalidScale)
	}

	out := make([]Tier, len(tiers))
	for i, t := range tiers {
		if t.Label == "" {
			return nil, fmt.Errorf("%w: tier %d has no label", ErrInvalidScale, i)
		}
		if t.UpperBound < 0 {
			return nil, fmt.Errorf("%w: tier %q has a negative bound", ErrInvalidScale, t.Label)
		}
		if i > 0 && t.UpperBound <= out[i-1].UpperBound {
			return nil, fmt.Errorf("%w: bound of %q is not above %q", ErrInvalidScale, t.Label, out[i-1].Label)
		}
		t.Rank = i
		out[i] = t
	}

	if !math.IsInf(out[len(out)-1].UpperBound, 1) {
		return nil, fmt.Errorf("%w: last tier must be unbounded", ErrInvalidScale)
	}

	return &Scale{tiers: out}, nil
}

// Classify maps a reading to its tier. A value equal to a bound belongs to
// the lower tier. Negative values clamp to rank 0.
func (s *Scale) Classify(value float64) Tier {
	i := sort.Search(len(s.tiers), func(i int) bool {
		return value <= s.tiers[i].UpperBound
	})
	if i == len(s.tiers) {
		// NaN compares false against every bound.
		i = 0
	}
	return s.tiers[i]
}

// Tier returns the tier with the given rank.
func (s *Scale) Tier(rank int) (Tier, bool) {
	if rank < 0 || rank >= len(s.tiers) {
		return Tier{}, false
	}
	return s.tiers[rank], true
}

// Len returns the number of tiers.
func (s *Scale) Len() int {
	return len(s.tiers)
}

// Tiers returns a copy of the table.
func (s *Scale) Tiers() []Tier {
	out := make([]Tier, len(s.tiers))
	copy(out, s.tiers)
	return out
}

// scaleFile is the YAML layout accepted by LoadScale. A missing or "inf"
// bound marks the open-ended top tier.
type scaleFile struct {
	Tiers []struct {
		Label      string `yaml:"label"`
		Color      string `yaml:"color"`
		UpperBound any    `yaml:"upper_bound"`
	} `yaml:"tiers"`
}

// LoadScale reads a custom tier table from a YAML file.
func LoadScale(path string) (*Scale, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scale file: %w", err)
	}
	return ParseScale(raw)
}

// ParseScale decodes a YAML tier table.
func ParseScale(raw []byte) (*Scale, error) {
	var f scaleFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScale, err)
	}

	tiers := make([]Tier, 0, len(f.Tiers))
	for _, t := range f.Tiers {
		bound, err := parseBound(t.UpperBound)
		if err != nil {
			return nil, fmt.Errorf("%w: tier %q: %v", ErrInvalidScale, t.Label, err)
		}
		tiers = append(tiers, Tier{Label: t.Label, Color: t.Color, UpperBound: bound})
	}
	return NewScale(tiers)
}

func parseBound(v any) (float64, error) {
	switch b := v.(type) {
	case nil:
		return math.Inf(1), nil
	case int:
		return float64(b), nil
	case float64:
		return b, nil
	case string:
		if b == "inf" {
			return math.Inf(1), nil
		}
		return strconv.ParseFloat(b, 64)
	default:
		return 0, fmt.Errorf("unsupported bound %v", v)
	}
}
