package modelclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"detection-api/utils"
)

const (
	ClassifyPath = "/api/v1/classify"
	HealthPath   = "/api/v1/health"
)

type Client struct {
	serverUrl string
	client    http.Client
}

func NewModelClient(serverUrl string, timeout time.Duration) *Client {
	return &Client{
		serverUrl: serverUrl,
		client:    *utils.NewHttpClient(timeout),
	}
}

type ClassifyResponse struct {
	Probability float64 `json:"probability"`
}

func (c *Client) Classify(ctx context.Context, image []byte) (float64, error) {
	requestUrl, err := url.JoinPath(c.serverUrl, ClassifyPath)
	if err != nil {
		return 0, err
	}

	resp, err := utils.SendPostBytesRequest(ctx, &c.client, requestUrl, "application/octet-stream", image)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("model runner returned status %d", resp.StatusCode)
	}

	var body ClassifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode classify response: %w", err)
	}
	return body.Probability, nil
}

func (c *Client) Health(ctx context.Context) (bool, error) {
	requestUrl, err := url.JoinPath(c.serverUrl, HealthPath)
	if err != nil {
		return false, err
	}

	resp, err := utils.SendGetRequest(ctx, &c.client, requestUrl)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}
