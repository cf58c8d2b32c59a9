package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calcore/internal/model"
	"calcore/internal/store"
)

func TestCollector(t *testing.T) {
	s := store.New(store.Options{})

	start := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	_, err := s.AddEvents([]model.EventInput{
		{ID: "plain", Title: "Plain", Start: start, End: start.Add(time.Hour)},
		{
			ID: "daily", Title: "Daily", Start: start, End: start.Add(15 * time.Minute),
			RecurrenceRule: &model.RecurrenceRule{Freq: "DAILY"},
		},
	})
	require.NoError(t, err)

	// One miss, then one hit.
	_, err = s.GetEventsInRange(start, start.Add(24*time.Hour))
	require.NoError(t, err)
	_, err = s.GetEventsInRange(start, start.Add(24*time.Hour))
	require.NoError(t, err)

	c := NewCollector(s)
	assert.Equal(t, 6, testutil.CollectAndCount(c))

	expected := `# HELP calcore_events Number of events currently held by the store.
# TYPE calcore_events gauge
calcore_events 2
# HELP calcore_events_by_recurrence Number of stored events split by recurrence.
# TYPE calcore_events_by_recurrence gauge
calcore_events_by_recurrence{recurring="true"} 1
calcore_events_by_recurrence{recurring="false"} 1
# HELP calcore_query_cache_lookups_total Range-query cache lookups split by result.
# TYPE calcore_query_cache_lookups_total counter
calcore_query_cache_lookups_total{result="hit"} 1
calcore_query_cache_lookups_total{result="miss"} 1
`
	err = testutil.CollectAndCompare(c, strings.NewReader(expected),
		"calcore_events", "calcore_events_by_recurrence", "calcore_query_cache_lookups_total")
	assert.NoError(t, err)
}
