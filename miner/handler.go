package miner

import (
	"context"
	"encoding/base64"
	"strconv"

	"detection-api/brokerclient"
	"detection-api/internal/metrics"
	"detection-api/logging"
	"detection-api/modelclient"
	"detection-api/platform"
)

// Backend produces a probability for raw image bytes. Both serving modes
// satisfy it: the caching broker client and a direct model runner.
type Backend interface {
	Infer(ctx context.Context, image []byte) (float64, error)
}

type brokerBackend struct {
	predictor brokerclient.Predictor
}

// NewBrokerBackend answers challenges through the caching broker client.
func NewBrokerBackend(predictor brokerclient.Predictor) Backend {
	return &brokerBackend{predictor: predictor}
}

func (b *brokerBackend) Infer(ctx context.Context, image []byte) (float64, error) {
	result, err := b.predictor.Predict(ctx, image)
	if err != nil {
		return 0, err
	}
	return result.Probability, nil
}

type modelBackend struct {
	classifier modelclient.Classifier
}

// NewModelBackend answers challenges against the model runner directly,
// without any caching tier.
func NewModelBackend(classifier modelclient.Classifier) Backend {
	return &modelBackend{classifier: classifier}
}

func (b *modelBackend) Infer(ctx context.Context, image []byte) (float64, error) {
	return b.classifier.Classify(ctx, image)
}

// Handler serves platform challenges. It owns provenance logging and request
// accounting; authorization and scheduling decisions are delegated to the
// platform policy.
type Handler struct {
	backend  Backend
	registry platform.Registry
	policy   platform.Policy
	stats    *RequestStats
	modelUrl string
}

func NewHandler(backend Backend, registry platform.Registry, policy platform.Policy, stats *RequestStats, modelUrl string) *Handler {
	return &Handler{
		backend:  backend,
		registry: registry,
		policy:   policy,
		stats:    stats,
		modelUrl: modelUrl,
	}
}

type senderInfo struct {
	hotkey       string
	ip           string
	registration platform.Registration
	registered   bool
}

func (info senderInfo) callerClass() string {
	switch {
	case !info.registered:
		return "unknown"
	case info.registration.IsValidator:
		return "validator"
	default:
		return "registered"
	}
}

// Forward answers one challenge. Inference failures are tolerated: the
// response keeps the no-answer prediction and the serving loop moves on.
func (h *Handler) Forward(ctx context.Context, req *platform.ChallengeRequest) platform.ChallengeResponse {
	sender := h.recordSender(req)
	response := platform.NewChallengeResponse()

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		logging.Error("Failed to decode challenge image", logging.Challenges,
			"hotkey", sender.hotkey, "error", err)
		return response
	}

	probability, err := h.backend.Infer(ctx, image)
	if err != nil {
		logging.Error("Error performing inference", logging.Challenges,
			"hotkey", sender.hotkey, "error", err)
		return response
	}
	response.Prediction = probability
	response.ModelUrl = h.modelUrl

	logging.Info("Challenge answered", logging.Challenges,
		"hotkey", sender.hotkey, "prediction", response.Prediction)
	if req.TestnetLabel != -1 {
		logging.Info("Testnet label attached to challenge", logging.Challenges,
			"label", req.TestnetLabel)
	}
	return response
}

// Blacklist logs the check and delegates the decision to the platform
// policy.
func (h *Handler) Blacklist(_ context.Context, req *platform.ChallengeRequest) (bool, string) {
	hotkey, ip := senderIdentity(req)
	logging.Debug("Blacklist check", logging.Challenges, "hotkey", hotkey, "ip", ip)

	refused, reason := h.policy.Blacklist(req)
	if refused {
		logging.Info("Challenge refused", logging.Challenges,
			"hotkey", hotkey, "ip", ip, "reason", reason)
	}
	return refused, reason
}

// Priority logs the assignment and delegates the ordering to the platform
// policy.
func (h *Handler) Priority(_ context.Context, req *platform.ChallengeRequest) float64 {
	hotkey, _ := senderIdentity(req)
	priority := h.policy.Priority(req)
	logging.Debug("Priority assigned", logging.Challenges, "hotkey", hotkey, "priority", priority)
	return priority
}

// Stats exposes the request counters for the admin surface.
func (h *Handler) Stats() StatsSnapshot {
	return h.stats.Snapshot()
}

// recordSender resolves the caller against the registry, bumps the request
// counters and logs the provenance of the challenge.
func (h *Handler) recordSender(req *platform.ChallengeRequest) senderInfo {
	info := senderInfo{hotkey: UnknownSender, ip: UnknownSender}
	if hotkey, ip := senderIdentity(req); hotkey != "" {
		info.hotkey = hotkey
		if ip != "" {
			info.ip = ip
		}
		info.registration, info.registered = h.registry.LookupByHotkey(hotkey)
	}

	uidKey := ""
	if info.registered {
		uidKey = strconv.FormatInt(info.registration.UID, 10)
	}
	h.stats.Record(info.hotkey, uidKey, info.ip)
	metrics.ChallengeRequestsTotal.WithLabelValues(info.callerClass()).Inc()

	keyvals := []interface{}{"hotkey", info.hotkey, "ip", info.ip}
	if info.registered {
		keyvals = append(keyvals,
			"uid", info.registration.UID,
			"stake", info.registration.Stake,
			"trust", info.registration.Trust,
			"incentive", info.registration.Incentive,
			"emission", info.registration.Emission,
			"validator", info.registration.IsValidator)
	}
	logging.Info("Challenge received", logging.Challenges, keyvals...)

	switch {
	case info.hotkey == UnknownSender:
		logging.Warn("Challenge from unknown sender, no hotkey provided", logging.Challenges, "ip", info.ip)
	case !info.registered:
		logging.Warn("Hotkey is not registered", logging.Challenges, "hotkey", info.hotkey)
	case info.registration.Stake == 0:
		logging.Warn("Zero stake sender", logging.Challenges, "hotkey", info.hotkey)
	}
	return info
}

func senderIdentity(req *platform.ChallengeRequest) (hotkey, ip string) {
	if req.Dendrite == nil {
		return "", ""
	}
	return req.Dendrite.Hotkey, req.Dendrite.IP
}
