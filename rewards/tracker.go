package rewards

import "math"

// decisionThreshold binarizes probabilities into class decisions. Both
// predictions and labels are compared against it, so labels may arrive as
// soft values without breaking the confusion counts.
const decisionThreshold = 0.5

// WindowMetrics summarizes a miner's recent classification quality.
type WindowMetrics struct {
	MCC      float64 `json:"mcc"`
	Accuracy float64 `json:"accuracy"`
}

type observation struct {
	prediction float64
	label      float64
}

// PerformanceTracker keeps a rolling window of scored observations per miner
// UID along with the hotkey each UID was last seen with.
//
// The tracker is not safe for concurrent use. The Engine owns one tracker per
// modality and serializes access through its own lock.
type PerformanceTracker struct {
	window  int
	history map[int64][]observation
	hotkeys map[int64]string
}

// NewPerformanceTracker creates a tracker that retains at most window
// observations per UID.
func NewPerformanceTracker(window int) *PerformanceTracker {
	return &PerformanceTracker{
		window:  window,
		history: make(map[int64][]observation),
		hotkeys: make(map[int64]string),
	}
}

// Hotkey returns the hotkey the UID was last updated with.
func (t *PerformanceTracker) Hotkey(uid int64) (string, bool) {
	hotkey, ok := t.hotkeys[uid]
	return hotkey, ok
}

// Update appends an observation to the UID's history, trimming it to the
// tracker's window, and records the hotkey that produced it.
func (t *PerformanceTracker) Update(uid int64, prediction, label float64, hotkey string) {
	hist := append(t.history[uid], observation{prediction: prediction, label: label})
	if len(hist) > t.window {
		hist = hist[len(hist)-t.window:]
	}
	t.history[uid] = hist
	t.hotkeys[uid] = hotkey
}

// ResetMinerHistory drops the UID's accumulated history and re-registers it
// under the given hotkey. Called when a UID is observed with a new hotkey,
// which means the slot was taken over by a different miner.
func (t *PerformanceTracker) ResetMinerHistory(uid int64, hotkey string) {
	delete(t.history, uid)
	t.hotkeys[uid] = hotkey
}

// Metrics computes MCC and accuracy over the UID's most recent observations,
// considering at most window of them. An empty history yields zero metrics,
// and a degenerate confusion matrix (any all-zero row or column) yields an
// MCC of zero.
func (t *PerformanceTracker) Metrics(uid int64, window int) WindowMetrics {
	hist := t.history[uid]
	if window < len(hist) {
		hist = hist[len(hist)-window:]
	}
	if len(hist) == 0 {
		return WindowMetrics{}
	}

	var tp, tn, fp, fn float64
	for _, obs := range hist {
		predicted := obs.prediction > decisionThreshold
		actual := obs.label > decisionThreshold
		switch {
		case predicted && actual:
			tp++
		case !predicted && !actual:
			tn++
		case predicted && !actual:
			fp++
		default:
			fn++
		}
	}

	metrics := WindowMetrics{Accuracy: (tp + tn) / float64(len(hist))}
	denominator := (tp + fp) * (tp + fn) * (tn + fp) * (tn + fn)
	if denominator > 0 {
		metrics.MCC = (tp*tn - fp*fn) / math.Sqrt(denominator)
	}
	return metrics
}
