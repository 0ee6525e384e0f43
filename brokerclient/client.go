// Package brokerclient is the miner-side caller of the GPU server. It
// answers from a local cache tier when it can, and otherwise talks to the
// broker with a retry policy that distinguishes timeouts, transport
// failures and application errors.
package brokerclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"detection-api/fingerprint"
	"detection-api/internal/metrics"
	"detection-api/logging"
	"detection-api/predictionapi"
	"detection-api/predictioncache"
	"detection-api/utils"
)

// ErrAttemptsExhausted is returned when every attempt was consumed by a
// retryable failure. It wraps the last failure seen.
var ErrAttemptsExhausted = errors.New("predict attempts exhausted")

type Client struct {
	brokerUrl  string
	localTier  predictioncache.Store
	httpClient *http.Client
	maxRetries int
}

func NewClient(brokerUrl string, localTier predictioncache.Store, requestTimeout time.Duration, maxRetries int) *Client {
	return &Client{
		brokerUrl:  brokerUrl,
		localTier:  localTier,
		httpClient: utils.NewHttpClient(requestTimeout),
		maxRetries: maxRetries,
	}
}

// Predict checks the local tier, then calls the broker up to maxRetries
// times. Timeouts and application errors consume an attempt and continue;
// any other transport failure aborts immediately. A fresh broker result
// is mirrored into the local tier; a broker cache hit is not, since the
// shared tier is already warm. The two tiers may diverge in which
// fingerprints they hold.
func (c *Client) Predict(ctx context.Context, image []byte) (Result, error) {
	fp := fingerprint.Sum(image)

	if probability, found, err := c.localTier.Get(ctx, fp); err != nil {
		logging.Warn("Local cache lookup failed", logging.Cache,
			"fingerprint", fp, "error", err)
	} else if found {
		metrics.CacheHitsTotal.WithLabelValues("local").Inc()
		return Result{Probability: probability, Source: SourceLocalCache}, nil
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		response, err := c.callBroker(ctx, image)
		if err != nil {
			if isTimeout(err) {
				logging.Warn("Predict attempt timed out", logging.Inferences,
					"attempt", attempt, "max_retries", c.maxRetries, "fingerprint", fp)
				lastErr = err
				continue
			}
			var appErr *predictionapi.ApplicationError
			if errors.As(err, &appErr) {
				logging.Warn("Broker reported an application error", logging.Inferences,
					"attempt", attempt, "max_retries", c.maxRetries, "error", appErr.Message)
				lastErr = err
				continue
			}
			// Other transport failures are not retried: a refused
			// connection will not fix itself within this call.
			logging.Error("Predict transport failure, aborting", logging.Inferences,
				"attempt", attempt, "error", err)
			return Result{}, err
		}

		if response.FromCache {
			return Result{Probability: response.Probability, Source: SourceBrokerCache}, nil
		}

		if err := c.localTier.Set(ctx, fp, response.Probability); err != nil {
			logging.Warn("Local cache write failed", logging.Cache,
				"fingerprint", fp, "error", err)
		}
		return Result{Probability: response.Probability, Source: SourceBroker}, nil
	}

	return Result{}, fmt.Errorf("%w: %w", ErrAttemptsExhausted, lastErr)
}

func (c *Client) callBroker(ctx context.Context, image []byte) (*predictionapi.PredictResponse, error) {
	req, err := predictionapi.NewPredictRequest(ctx, c.brokerUrl, image)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusOK {
		return predictionapi.DecodePredictResponse(body)
	}

	// Non-2xx responses that still carry the broker's JSON error shape
	// (504 inference timeout, 503 queue full) count as application
	// errors and stay retryable.
	var errResp predictionapi.ErrorResponse
	if unmarshalErr := json.Unmarshal(body, &errResp); unmarshalErr == nil && errResp.Error != "" {
		return nil, &predictionapi.ApplicationError{Message: errResp.Error}
	}
	return nil, fmt.Errorf("broker returned status %d", resp.StatusCode)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
