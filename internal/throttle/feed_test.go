package throttle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var placeholder = []byte("<rss/>")

func renderer(doc string, calls *int) func() ([]byte, error) {
	return func() ([]byte, error) {
		*calls++
		return []byte(doc), nil
	}
}

func TestFeedThrottle_InitialPlaceholder(t *testing.T) {
	th := NewFeedThrottle(2, time.Hour, placeholder)

	doc, at := th.Document()
	assert.Equal(t, placeholder, doc)
	assert.True(t, at.IsZero())
}

func TestFeedThrottle_Scenario(t *testing.T) {
	th := NewFeedThrottle(2, 60*time.Minute, placeholder)
	calls := 0

	steps := []struct {
		at    time.Duration
		value float64
		doc   string
		want  FeedDecision
	}{
		{0, 110, "first", Regenerate},
		{30 * time.Minute, 130, "second", Skip},
		{65 * time.Minute, 90, "third", Skip}, // below floor
		{70 * time.Minute, 140, "fourth", Regenerate},
	}

	for _, s := range steps {
		got, err := th.Evaluate(tierOf(t, s.value), t0.Add(s.at), renderer(s.doc, &calls))
		require.NoError(t, err)
		assert.Equal(t, s.want, got, "t=%v", s.at)
	}

	doc, at := th.Document()
	assert.Equal(t, "fourth", string(doc))
	assert.Equal(t, t0.Add(70*time.Minute), at)
	assert.Equal(t, 2, calls)
}

func TestFeedThrottle_AtMostOncePerInterval(t *testing.T) {
	th := NewFeedThrottle(0, time.Hour, placeholder)
	calls := 0

	for i := 0; i < 12; i++ {
		_, err := th.Evaluate(tierOf(t, 10), t0.Add(time.Duration(i)*5*time.Minute), renderer("doc", &calls))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls)

	got, err := th.Evaluate(tierOf(t, 10), t0.Add(time.Hour), renderer("doc", &calls))
	require.NoError(t, err)
	assert.Equal(t, Regenerate, got)
}

func TestFeedThrottle_RenderErrorKeepsState(t *testing.T) {
	th := NewFeedThrottle(2, time.Hour, placeholder)
	boom := errors.New("boom")

	got, err := th.Evaluate(tierOf(t, 120), t0, func() ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Skip, got)

	doc, at := th.Document()
	assert.Equal(t, placeholder, doc)
	assert.True(t, at.IsZero())

	calls := 0
	got, err = th.Evaluate(tierOf(t, 120), t0.Add(time.Minute), renderer("ok", &calls))
	require.NoError(t, err)
	assert.Equal(t, Regenerate, got)
}
