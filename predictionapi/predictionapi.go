// Package predictionapi holds the wire types of the predict HTTP
// boundary, shared by the public server handlers and the broker client.
package predictionapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
)

const (
	PredictPath        = "/predict"
	MultipartFileField = "file"

	TimeoutErrorMessage = "Inference timeout"
	BusyErrorMessage    = "Server busy"
)

type PredictResponse struct {
	FromCache   bool    `json:"from_cache"`
	Probability float64 `json:"probability"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// ApplicationError is a failure reported inside a transport-successful
// response body. The retry policy treats it like a timeout, not like a
// transport failure.
type ApplicationError struct {
	Message string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("application error: %s", e.Message)
}

// NewPredictRequest builds the multipart upload the predict endpoint
// expects. The filename is cosmetic; only the bytes matter.
func NewPredictRequest(ctx context.Context, serverUrl string, image []byte) (*http.Request, error) {
	requestUrl, err := url.JoinPath(serverUrl, PredictPath)
	if err != nil {
		return nil, err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(MultipartFileField, "image.jpg")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(image); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestUrl, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}

// DecodePredictResponse parses a transport-successful predict body. A
// body carrying an "error" field is an application-level failure even
// under a 200 status; a body without a probability is treated the same
// way.
func DecodePredictResponse(body []byte) (*PredictResponse, error) {
	var envelope struct {
		FromCache   *bool    `json:"from_cache"`
		Probability *float64 `json:"probability"`
		Error       string   `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &ApplicationError{Message: fmt.Sprintf("malformed body: %v", err)}
	}
	if envelope.Error != "" {
		return nil, &ApplicationError{Message: envelope.Error}
	}
	if envelope.Probability == nil {
		return nil, &ApplicationError{Message: "response has no probability"}
	}

	resp := &PredictResponse{Probability: *envelope.Probability}
	if envelope.FromCache != nil {
		resp.FromCache = *envelope.FromCache
	}
	return resp, nil
}
