package store

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/air-quality-alerts/internal/aqi"
)

var (
	// ErrNotFound is returned when no readings are available for a station.
	ErrNotFound = errors.New("no readings for station")
)

// ReadingHistory holds a time-ordered list of readings for a station.
type ReadingHistory struct {
	Readings []aqi.Reading
}

// MemoryStore is a concurrency-safe in-memory reading history. It lives for
// the process lifetime only.
type MemoryStore struct {
	mu sync.RWMutex

	// key: station id
	data map[string]*ReadingHistory

	maxHistory int           // max readings per station
	maxAge     time.Duration // max age by observation time
	clock      clockwork.Clock
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory or maxAge is <= 0, that limit is not enforced.
func NewMemoryStore(maxHistory int, maxAge time.Duration, clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		data:       make(map[string]*ReadingHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		clock:      clock,
	}
}

// Save appends a reading and enforces retention. A reading observed at the
// same time as the latest one replaces it, since WAQI refreshes hourly and
// polls are usually more frequent.
func (s *MemoryStore) Save(r aqi.Reading) {
	key := r.Station.ID

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &ReadingHistory{}
		s.data[key] = history
	}

	if n := len(history.Readings); n > 0 && history.Readings[n-1].ObservedAt.Equal(r.ObservedAt) {
		history.Readings[n-1] = r
	} else {
		history.Readings = append(history.Readings, r)
	}

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Readings) > s.maxHistory {
		over := len(history.Readings) - s.maxHistory
		history.Readings = history.Readings[over:]
	}

	// Enforce retention by age, always keeping the latest reading.
	if s.maxAge > 0 {
		cutoff := s.clock.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Readings)-1; i++ {
			if !history.Readings[i].ObservedAt.Before(cutoff) {
				break
			}
		}
		history.Readings = history.Readings[i:]
	}
}

// Latest returns the most recent reading for a station.
func (s *MemoryStore) Latest(stationID string) (aqi.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[stationID]
	if !ok || len(history.Readings) == 0 {
		return aqi.Reading{}, ErrNotFound
	}
	return history.Readings[len(history.Readings)-1], nil
}

// Range returns all readings for a station observed between from and to (inclusive).
func (s *MemoryStore) Range(stationID string, from, to time.Time) ([]aqi.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[stationID]
	if !ok || len(history.Readings) == 0 {
		return nil, ErrNotFound
	}

	var result []aqi.Reading
	for _, r := range history.Readings {
		if !r.ObservedAt.Before(from) && !r.ObservedAt.After(to) {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
