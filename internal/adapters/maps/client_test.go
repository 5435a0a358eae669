package maps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const directionsBody = `{
  "status": "OK",
  "geocoded_waypoints": [],
  "routes": [{
    "summary": "Lake Shore Dr",
    "legs": [{
      "distance": {"value": 5200, "text": "5.2 km"},
      "duration": {"value": 900, "text": "15 mins"},
      "duration_in_traffic": {"value": 1200, "text": "20 mins"},
      "steps": [
        {"html_instructions": "Head <b>north</b> on <b>Michigan Ave</b>", "distance": {"value": 100, "text": "0.1 km"}, "duration": {"value": 60, "text": "1 min"}},
        {"html_instructions": "Turn <b>right</b><div style=\"font-size:0.9em\">Destination will be on the left</div>", "distance": {"value": 50, "text": "50 m"}, "duration": {"value": 30, "text": "1 min"}}
      ]
    }]
  }]
}`

const nearbyBody = `{
  "status": "OK",
  "results": [
    {"name": "E Huron St", "place_id": "a"},
    {"name": "N Fairbanks Ct", "place_id": "b"},
    {"name": "", "place_id": "c"}
  ]
}`

func newTestClient(t *testing.T, opts ...Option) (*Client, *atomic.Int32, *atomic.Value) {
	t.Helper()
	var hits atomic.Int32
	var lastQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		lastQuery.Store(r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "directions"):
			_, _ = w.Write([]byte(directionsBody))
		case strings.Contains(r.URL.Path, "nearbysearch"):
			_, _ = w.Write([]byte(nearbyBody))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	c, err := New("test-key", append([]Option{WithBaseURL(srv.URL)}, opts...)...)
	require.NoError(t, err)
	return c, &hits, &lastQuery
}

func TestClient_Directions(t *testing.T) {
	c, hits, query := newTestClient(t)
	ctx := context.Background()

	legs, err := c.Directions(ctx, RouteRequest{Origin: "400 N Michigan Ave, Chicago", Mode: Driving, Alternatives: true})
	require.NoError(t, err)
	require.Len(t, legs, 1)

	leg := legs[0]
	assert.Equal(t, 15*time.Minute, leg.Duration)
	assert.Equal(t, 20*time.Minute, leg.DurationInTraffic)
	assert.Equal(t, 5200, leg.DistanceMeters)
	assert.Equal(t, []string{
		"Head north on Michigan Ave",
		"Turn right - Destination will be on the left",
	}, leg.Steps)

	q := query.Load().(string)
	assert.Contains(t, q, "departure_time=now")
	assert.Contains(t, q, "traffic_model=best_guess")
	assert.Contains(t, q, "alternatives=true")

	t.Run("cached", func(t *testing.T) {
		before := hits.Load()
		_, err := c.Directions(ctx, RouteRequest{Origin: "400 N MICHIGAN AVE, CHICAGO ", Mode: Driving, Alternatives: true})
		require.NoError(t, err)
		assert.Equal(t, before, hits.Load())
	})

	t.Run("arrival time replaces departure", func(t *testing.T) {
		arrive := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
		_, err := c.Directions(ctx, RouteRequest{Origin: "Navy Pier", Mode: Transit, ArrivalTime: arrive})
		require.NoError(t, err)
		q := query.Load().(string)
		assert.Contains(t, q, "arrival_time=1772532000")
		assert.NotContains(t, q, "traffic_model")
	})

	t.Run("origin is required", func(t *testing.T) {
		_, err := c.Directions(ctx, RouteRequest{Origin: "  "})
		assert.Error(t, err)
	})
}

func TestClient_WithoutCache(t *testing.T) {
	c, hits, _ := newTestClient(t, WithCache(0, 0))
	for range 2 {
		_, err := c.Directions(context.Background(), RouteRequest{Origin: "Navy Pier"})
		require.NoError(t, err)
	}
	assert.EqualValues(t, 2, hits.Load())
}

func TestClient_NearbyRoads(t *testing.T) {
	c, _, query := newTestClient(t)

	roads, err := c.NearbyRoads(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"E Huron St", "N Fairbanks Ct", "Unknown Road"}, roads)
	assert.Contains(t, query.Load().(string), "radius=1000")

	roads, err = c.NearbyRoads(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, roads, 1)
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Continue onto I-90 - Toll road", StripHTML(`Continue onto <b>I-90</b><div style="font-size:0.9em">Toll road</div>`))
	assert.Equal(t, "Turn left & merge", StripHTML("Turn left &amp; merge"))
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
