package admin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"detection-api/broker"
	"detection-api/fingerprint"
	"detection-api/internal/metrics"
	"detection-api/miner"
	"detection-api/modelclient"
	"detection-api/predictioncache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusIncludesQueueDepthWithBroker(t *testing.T) {
	store := predictioncache.NewMemoryStore()
	b := broker.NewBroker(store, modelclient.NewMockClassifier(), 16, time.Second)
	srv := httptest.NewServer(NewServer(b, store, nil).e)
	t.Cleanup(func() {
		srv.Close()
		b.Stop()
	})

	resp, err := http.Get(srv.URL + "/admin/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "ok", status.Status)
	assert.GreaterOrEqual(t, status.UptimeSeconds, 0.0)
	require.NotNil(t, status.QueueDepth)
	assert.Equal(t, 0, *status.QueueDepth)
}

func TestStatusOmitsQueueDepthWithoutBroker(t *testing.T) {
	srv := httptest.NewServer(NewServer(nil, nil, nil).e)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/admin/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var status statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Nil(t, status.QueueDepth)
}

func TestCachedPredictionLookup(t *testing.T) {
	store := predictioncache.NewMemoryStore()
	fp := fingerprint.Sum([]byte("debuggable image"))
	require.NoError(t, store.Set(context.Background(), fp, 0.42))

	srv := httptest.NewServer(NewServer(nil, store, nil).e)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/admin/v1/cache/" + fp.String())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cached cachedPredictionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cached))
	assert.Equal(t, fp.String(), cached.Fingerprint)
	assert.Equal(t, 0.42, cached.Probability)

	missing := fingerprint.Sum([]byte("never seen"))
	resp, err = http.Get(srv.URL + "/admin/v1/cache/" + missing.String())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	stats := miner.NewRequestStats()
	stats.Record("hk-a", "1", "10.0.0.1")
	stats.Record("hk-a", "1", "10.0.0.1")

	srv := httptest.NewServer(NewServer(nil, nil, statsSource{stats}).e)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/admin/v1/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snapshot miner.StatsSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snapshot))
	assert.Equal(t, int64(2), snapshot.TotalRequests)
	assert.Equal(t, int64(2), snapshot.ByHotkey["hk-a"])
}

type statsSource struct {
	stats *miner.RequestStats
}

func (s statsSource) Stats() miner.StatsSnapshot {
	return s.stats.Snapshot()
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.InferenceTimeoutsTotal.Add(0)

	srv := httptest.NewServer(NewServer(nil, nil, nil).e)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "dapi_inference_timeouts_total"))
}
