package miner

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"detection-api/apiconfig"
	"detection-api/brokerclient"
	"detection-api/modelclient"
	"detection-api/platform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHandler(backend Backend) *Handler {
	registry := platform.NewStaticRegistry([]apiconfig.RegistrationConfig{
		{Uid: 1, Hotkey: "hk-validator", Stake: 12000, Trust: 0.9, IsValidator: true},
		{Uid: 9, Hotkey: "hk-zero"},
	})
	policy := platform.NewStakePolicy(registry, 100)
	return NewHandler(backend, registry, policy, NewRequestStats(), "https://models.example.com/convnext.onnx")
}

func validatorChallenge(image []byte) platform.ChallengeRequest {
	req := platform.NewChallengeRequest()
	req.Image = base64.StdEncoding.EncodeToString(image)
	req.Dendrite = &platform.Dendrite{Hotkey: "hk-validator", IP: "10.0.0.1"}
	return req
}

func TestForwardAnswersChallenge(t *testing.T) {
	predictor := brokerclient.NewMockPredictor()
	predictor.Result = brokerclient.Result{Probability: 0.8, Source: brokerclient.SourceBroker}
	handler := testHandler(NewBrokerBackend(predictor))

	image := []byte("challenge image bytes")
	req := validatorChallenge(image)

	resp := handler.Forward(context.Background(), &req)
	assert.Equal(t, 0.8, resp.Prediction)
	assert.Equal(t, "https://models.example.com/convnext.onnx", resp.ModelUrl)

	predictor.Mu.Lock()
	assert.Equal(t, 1, predictor.PredictCalled)
	assert.Equal(t, image, predictor.LastImage)
	predictor.Mu.Unlock()

	snapshot := handler.Stats()
	assert.Equal(t, int64(1), snapshot.TotalRequests)
	assert.Equal(t, int64(1), snapshot.ByHotkey["hk-validator"])
	assert.Equal(t, int64(1), snapshot.ByUid["1"])
	assert.Equal(t, int64(1), snapshot.ByIp["10.0.0.1"])
}

func TestForwardToleratesInferenceFailure(t *testing.T) {
	predictor := brokerclient.NewMockPredictor()
	predictor.PredictError = errors.New("broker unreachable")
	handler := testHandler(NewBrokerBackend(predictor))

	req := validatorChallenge([]byte("image"))
	resp := handler.Forward(context.Background(), &req)

	assert.Equal(t, -1.0, resp.Prediction)
	assert.Empty(t, resp.ModelUrl)
}

func TestForwardRejectsUndecodableImage(t *testing.T) {
	predictor := brokerclient.NewMockPredictor()
	handler := testHandler(NewBrokerBackend(predictor))

	req := platform.NewChallengeRequest()
	req.Image = "not valid base64 !!!"
	req.Dendrite = &platform.Dendrite{Hotkey: "hk-validator", IP: "10.0.0.1"}

	resp := handler.Forward(context.Background(), &req)
	assert.Equal(t, -1.0, resp.Prediction)

	predictor.Mu.Lock()
	assert.Equal(t, 0, predictor.PredictCalled)
	predictor.Mu.Unlock()
}

func TestForwardCountsUnknownSenders(t *testing.T) {
	predictor := brokerclient.NewMockPredictor()
	predictor.Result = brokerclient.Result{Probability: 0.4, Source: brokerclient.SourceBroker}
	handler := testHandler(NewBrokerBackend(predictor))

	req := platform.NewChallengeRequest()
	req.Image = base64.StdEncoding.EncodeToString([]byte("anonymous"))

	resp := handler.Forward(context.Background(), &req)
	assert.Equal(t, 0.4, resp.Prediction)

	snapshot := handler.Stats()
	assert.Equal(t, int64(1), snapshot.ByHotkey[UnknownSender])
	assert.Equal(t, int64(1), snapshot.ByUid[UnknownSender])
	assert.Equal(t, int64(1), snapshot.ByIp[UnknownSender])
}

func TestForwardWithLocalModelBackend(t *testing.T) {
	classifier := modelclient.NewMockClassifier()
	classifier.Probability = 0.3
	handler := testHandler(NewModelBackend(classifier))

	image := []byte("local mode image")
	req := validatorChallenge(image)

	resp := handler.Forward(context.Background(), &req)
	assert.Equal(t, 0.3, resp.Prediction)

	classifier.Mu.Lock()
	assert.Equal(t, 1, classifier.ClassifyCalled)
	assert.Equal(t, image, classifier.LastImage)
	classifier.Mu.Unlock()
}

func TestBlacklistDelegatesToPolicy(t *testing.T) {
	handler := testHandler(NewBrokerBackend(brokerclient.NewMockPredictor()))

	req := validatorChallenge([]byte("image"))
	refused, reason := handler.Blacklist(context.Background(), &req)
	assert.False(t, refused)
	assert.Empty(t, reason)

	anonymous := platform.NewChallengeRequest()
	refused, reason = handler.Blacklist(context.Background(), &anonymous)
	assert.True(t, refused)
	assert.Contains(t, reason, "no caller identity")

	understaked := platform.NewChallengeRequest()
	understaked.Dendrite = &platform.Dendrite{Hotkey: "hk-zero", IP: "10.0.0.3"}
	refused, reason = handler.Blacklist(context.Background(), &understaked)
	assert.True(t, refused)
	assert.Contains(t, reason, "below the minimum")
}

func TestPriorityDelegatesToPolicy(t *testing.T) {
	handler := testHandler(NewBrokerBackend(brokerclient.NewMockPredictor()))

	req := validatorChallenge([]byte("image"))
	assert.Equal(t, 12000.0, handler.Priority(context.Background(), &req))

	anonymous := platform.NewChallengeRequest()
	assert.Equal(t, 0.0, handler.Priority(context.Background(), &anonymous))
}

func TestForwardLogsTestnetLabel(t *testing.T) {
	predictor := brokerclient.NewMockPredictor()
	predictor.Result = brokerclient.Result{Probability: 0.9, Source: brokerclient.SourceLocalCache}
	handler := testHandler(NewBrokerBackend(predictor))

	req := validatorChallenge([]byte("labelled"))
	req.TestnetLabel = 1

	resp := handler.Forward(context.Background(), &req)
	assert.Equal(t, 0.9, resp.Prediction)

	require.Equal(t, -1, platform.NewChallengeRequest().TestnetLabel)
}
