package web

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-sorter/pkg/pipeline"
)

type fakeStats struct {
	snap pipeline.Snapshot
}

func (f *fakeStats) Stats() pipeline.Snapshot { return f.snap }

func newTestServer() (*Server, *fakeStats) {
	stats := &fakeStats{snap: pipeline.Snapshot{
		RunsStarted:   5,
		RunsSucceeded: 4,
		RunsFailed:    1,
		LastLabel:     "paper",
		LastMethod:    "plurality",
	}}
	return NewServer(0, stats), stats
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer()

	resp, err := s.app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 5, body["runs"])
}

func TestStatus(t *testing.T) {
	s, _ := newTestServer()

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/status", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, 200, resp.StatusCode)

	var snap pipeline.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, uint64(4), snap.RunsSucceeded)
	assert.Equal(t, "paper", snap.LastLabel)
	assert.Equal(t, "plurality", snap.LastMethod)
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer()

	resp, err := s.app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "sorter_runs_started 5")
	assert.Contains(t, string(body), "sorter_runs_succeeded 4")
	assert.Contains(t, string(body), "sorter_runs_failed 1")
	assert.Contains(t, string(body), "sorter_feed_clients 0")
}

func TestEventsRequiresUpgrade(t *testing.T) {
	s, _ := newTestServer()

	resp, err := s.app.Test(httptest.NewRequest("GET", "/ws/events", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 426, resp.StatusCode)
}
