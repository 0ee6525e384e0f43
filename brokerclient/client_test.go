package brokerclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"detection-api/fingerprint"
	"detection-api/predictionapi"
	"detection-api/predictioncache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJson(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestPredictLocalCacheHitSkipsBroker(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJson(t, w, http.StatusOK, predictionapi.PredictResponse{Probability: 0.1})
	}))
	defer server.Close()

	localTier := predictioncache.NewMemoryStore()
	image := []byte("already seen locally")
	require.NoError(t, localTier.Set(context.Background(), fingerprint.Sum(image), 0.88))

	client := NewClient(server.URL, localTier, 50*time.Millisecond, 3)
	result, err := client.Predict(context.Background(), image)
	require.NoError(t, err)
	assert.Equal(t, 0.88, result.Probability)
	assert.Equal(t, SourceLocalCache, result.Source)
	assert.Equal(t, int32(0), hits.Load())
}

func TestPredictFreshResultPopulatesLocalTier(t *testing.T) {
	image := []byte("fresh image")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, _, err := r.FormFile(predictionapi.MultipartFileField)
		require.NoError(t, err)
		defer file.Close()
		uploaded, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, image, uploaded)

		writeJson(t, w, http.StatusOK, predictionapi.PredictResponse{FromCache: false, Probability: 0.8})
	}))
	defer server.Close()

	localTier := predictioncache.NewMemoryStore()
	client := NewClient(server.URL, localTier, time.Second, 3)

	result, err := client.Predict(context.Background(), image)
	require.NoError(t, err)
	assert.Equal(t, 0.8, result.Probability)
	assert.Equal(t, SourceBroker, result.Source)

	cached, found, err := localTier.Get(context.Background(), fingerprint.Sum(image))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 0.8, cached)
}

func TestPredictServerCacheHitSkipsLocalWrite(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJson(t, w, http.StatusOK, predictionapi.PredictResponse{FromCache: true, Probability: 0.6})
	}))
	defer server.Close()

	localTier := predictioncache.NewMemoryStore()
	client := NewClient(server.URL, localTier, time.Second, 3)

	result, err := client.Predict(context.Background(), []byte("warm on the server"))
	require.NoError(t, err)
	assert.Equal(t, 0.6, result.Probability)
	assert.Equal(t, SourceBrokerCache, result.Source)
	assert.Equal(t, 0, localTier.Len())
}

func TestPredictRetriesTimeoutsThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			// Slower than the client timeout, so the client gives up.
			time.Sleep(200 * time.Millisecond)
			return
		}
		writeJson(t, w, http.StatusOK, predictionapi.PredictResponse{FromCache: false, Probability: 0.8})
	}))
	defer server.Close()

	client := NewClient(server.URL, predictioncache.NewMemoryStore(), 50*time.Millisecond, 3)

	result, err := client.Predict(context.Background(), []byte("flaky upstream"))
	require.NoError(t, err)
	assert.Equal(t, 0.8, result.Probability)
	assert.Equal(t, SourceBroker, result.Source)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestPredictRetriesBrokerTimeoutResponses(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 1 {
			writeJson(t, w, http.StatusGatewayTimeout, predictionapi.ErrorResponse{Error: predictionapi.TimeoutErrorMessage})
			return
		}
		writeJson(t, w, http.StatusOK, predictionapi.PredictResponse{FromCache: true, Probability: 0.7})
	}))
	defer server.Close()

	client := NewClient(server.URL, predictioncache.NewMemoryStore(), time.Second, 3)

	result, err := client.Predict(context.Background(), []byte("timed out once upstream"))
	require.NoError(t, err)
	assert.Equal(t, 0.7, result.Probability)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestPredictRetriesApplicationErrorsUntilExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		writeJson(t, w, http.StatusOK, predictionapi.ErrorResponse{Error: "worker hiccup"})
	}))
	defer server.Close()

	client := NewClient(server.URL, predictioncache.NewMemoryStore(), time.Second, 3)

	_, err := client.Predict(context.Background(), []byte("always unlucky"))
	require.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.ErrorContains(t, err, "worker hiccup")
	assert.Equal(t, int32(3), attempts.Load())
}

func TestPredictAbortsOnTransportError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	client := NewClient(server.URL, predictioncache.NewMemoryStore(), time.Second, 3)

	_, err := client.Predict(context.Background(), []byte("doomed"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, int32(1), attempts.Load(), "transport failures must not be retried")
}

func TestPredictAbortsWhenConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	brokerUrl := server.URL
	server.Close()

	client := NewClient(brokerUrl, predictioncache.NewMemoryStore(), time.Second, 3)

	_, err := client.Predict(context.Background(), []byte("nobody home"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAttemptsExhausted)
}
