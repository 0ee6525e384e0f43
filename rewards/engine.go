package rewards

import (
	"errors"
	"sync"

	"detection-api/internal/metrics"
	"detection-api/logging"
)

// NoResponse is the sentinel prediction a miner carries when it produced no
// answer, either because it never replied or because inference failed.
const NoResponse float64 = -1

// Modality names the challenge media type a tracker is scoped to.
type Modality string

const (
	ModalityImage Modality = "image"
	ModalityVideo Modality = "video"
)

// Status classifies how a single prediction was scored.
type Status int

const (
	StatusScored Status = iota
	StatusNoResponse
	StatusInvalid
	StatusFailed
)

// String returns the label used in logs and metrics.
func (s Status) String() string {
	switch s {
	case StatusScored:
		return "scored"
	case StatusNoResponse:
		return "no_response"
	case StatusInvalid:
		return "invalid"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrBatchMismatch marks outcomes whose batch position had no matching
// prediction or hotkey.
var ErrBatchMismatch = errors.New("challenge batch fields have mismatched lengths")

// Outcome is the scoring result for one miner in one challenge.
type Outcome struct {
	UID    int64
	Reward float64
	Status Status
	// Metrics is the long-window snapshot after this observation. Nil when
	// the miner's history was not consulted (no response, failure).
	Metrics *WindowMetrics
	// Err is set only for StatusFailed.
	Err error
}

// Engine scores challenge batches against per-miner performance history.
//
// All scoring is serialized through a single lock: batches arrive from the
// event feed faster than windows move, and a sequential scheduler keeps the
// read-modify-write on the trackers trivially correct.
type Engine struct {
	mu          sync.Mutex
	trackers    map[Modality]*PerformanceTracker
	windowShort int
	windowLong  int
}

// NewEngine creates an engine scoring accuracy over windowShort observations
// and MCC over windowLong observations.
func NewEngine(windowShort, windowLong int) *Engine {
	return &Engine{
		trackers:    make(map[Modality]*PerformanceTracker),
		windowShort: windowShort,
		windowLong:  windowLong,
	}
}

// Score evaluates one finished challenge. It produces one Outcome per UID, in
// order. Predictions equal to NoResponse earn a zero reward without touching
// the miner's history. Predictions outside [0, 1] are penalized to a zero
// reward but still count against the miner's history, same as any other wrong
// answer would.
func (e *Engine) Score(modality Modality, label float64, predictions []float64, uids []int64, hotkeys []string) []Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	tracker := e.tracker(modality)

	outcomes := make([]Outcome, len(uids))
	for i, uid := range uids {
		if i >= len(predictions) || i >= len(hotkeys) {
			logging.Error("Challenge batch is missing fields for miner", logging.Rewards,
				"uid", uid, "index", i, "predictions", len(predictions), "hotkeys", len(hotkeys))
			outcomes[i] = Outcome{UID: uid, Status: StatusFailed, Err: ErrBatchMismatch}
		} else {
			outcomes[i] = e.scoreMiner(tracker, label, predictions[i], uid, hotkeys[i])
		}
		metrics.RewardOutcomesTotal.WithLabelValues(outcomes[i].Status.String()).Inc()
	}
	return outcomes
}

func (e *Engine) scoreMiner(tracker *PerformanceTracker, label, prediction float64, uid int64, hotkey string) Outcome {
	if prediction == NoResponse {
		return Outcome{UID: uid, Status: StatusNoResponse}
	}

	if tracked, ok := tracker.Hotkey(uid); ok && tracked != hotkey {
		logging.Info("Miner hotkey changed, resetting performance history", logging.Rewards,
			"uid", uid, "previousHotkey", tracked, "hotkey", hotkey)
		tracker.ResetMinerHistory(uid, hotkey)
	}

	tracker.Update(uid, prediction, label, hotkey)

	longWindow := tracker.Metrics(uid, e.windowLong)
	shortWindow := tracker.Metrics(uid, e.windowShort)

	penalty := computePenalty(prediction)
	reward := (0.5*longWindow.MCC + 0.5*shortWindow.Accuracy) * penalty

	status := StatusScored
	if penalty == 0 {
		logging.Warn("Prediction outside valid probability range", logging.Rewards,
			"uid", uid, "prediction", prediction)
		status = StatusInvalid
	}
	return Outcome{UID: uid, Reward: reward, Status: status, Metrics: &longWindow}
}

// Metrics returns the long-window snapshot for one miner without recording
// an observation.
func (e *Engine) Metrics(modality Modality, uid int64) WindowMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.tracker(modality).Metrics(uid, e.windowLong)
}

func (e *Engine) tracker(modality Modality) *PerformanceTracker {
	tracker, ok := e.trackers[modality]
	if !ok {
		tracker = NewPerformanceTracker(e.windowLong)
		e.trackers[modality] = tracker
	}
	return tracker
}

// computePenalty gates rewards for predictions outside the valid probability
// range.
func computePenalty(prediction float64) float64 {
	if prediction < 0 || prediction > 1 {
		return 0
	}
	return 1
}

// Rewards flattens outcomes into the per-miner reward vector, preserving
// batch order.
func Rewards(outcomes []Outcome) []float64 {
	rewards := make([]float64, len(outcomes))
	for i, outcome := range outcomes {
		rewards[i] = outcome.Reward
	}
	return rewards
}
