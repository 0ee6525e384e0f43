package rewards

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsEmptyHistory(t *testing.T) {
	tracker := NewPerformanceTracker(100)

	metrics := tracker.Metrics(7, 10)
	assert.Equal(t, 0.0, metrics.MCC)
	assert.Equal(t, 0.0, metrics.Accuracy)
}

func TestMetricsAccuracyCountsRecentWindow(t *testing.T) {
	tracker := NewPerformanceTracker(100)

	// Ten wrong answers followed by ten right ones.
	for i := 0; i < 10; i++ {
		tracker.Update(1, 0.9, 0.0, "hk-1")
	}
	for i := 0; i < 10; i++ {
		tracker.Update(1, 0.9, 1.0, "hk-1")
	}

	assert.Equal(t, 1.0, tracker.Metrics(1, 10).Accuracy)
	assert.Equal(t, 0.5, tracker.Metrics(1, 20).Accuracy)
}

func TestMetricsMCCPerfectClassifier(t *testing.T) {
	tracker := NewPerformanceTracker(100)

	for i := 0; i < 10; i++ {
		tracker.Update(3, 0.9, 1.0, "hk-3")
		tracker.Update(3, 0.1, 0.0, "hk-3")
	}

	metrics := tracker.Metrics(3, 100)
	assert.Equal(t, 1.0, metrics.MCC)
	assert.Equal(t, 1.0, metrics.Accuracy)
}

func TestMetricsMCCMixedConfusionMatrix(t *testing.T) {
	tracker := NewPerformanceTracker(100)

	// tp=2 tn=2 fp=1 fn=1
	tracker.Update(4, 0.9, 1.0, "hk-4")
	tracker.Update(4, 0.8, 1.0, "hk-4")
	tracker.Update(4, 0.1, 0.0, "hk-4")
	tracker.Update(4, 0.2, 0.0, "hk-4")
	tracker.Update(4, 0.9, 0.0, "hk-4")
	tracker.Update(4, 0.1, 1.0, "hk-4")

	metrics := tracker.Metrics(4, 100)
	assert.InDelta(t, 1.0/3.0, metrics.MCC, 1e-9)
	assert.InDelta(t, 4.0/6.0, metrics.Accuracy, 1e-9)
}

func TestMetricsMCCDegenerateMatrixIsZero(t *testing.T) {
	tracker := NewPerformanceTracker(100)

	// Single-class history: the denominator vanishes.
	for i := 0; i < 5; i++ {
		tracker.Update(5, 0.9, 1.0, "hk-5")
	}

	metrics := tracker.Metrics(5, 100)
	assert.Equal(t, 0.0, metrics.MCC)
	assert.Equal(t, 1.0, metrics.Accuracy)
}

func TestUpdateTrimsHistoryToWindow(t *testing.T) {
	tracker := NewPerformanceTracker(5)

	// Three wrong answers get pushed out by five right ones.
	for i := 0; i < 3; i++ {
		tracker.Update(6, 0.9, 0.0, "hk-6")
	}
	for i := 0; i < 5; i++ {
		tracker.Update(6, 0.9, 1.0, "hk-6")
	}

	assert.Equal(t, 1.0, tracker.Metrics(6, 100).Accuracy)
}

func TestResetMinerHistory(t *testing.T) {
	tracker := NewPerformanceTracker(100)

	tracker.Update(7, 0.9, 1.0, "hk-old")
	tracker.Update(7, 0.9, 1.0, "hk-old")

	tracker.ResetMinerHistory(7, "hk-new")

	hotkey, ok := tracker.Hotkey(7)
	assert.True(t, ok)
	assert.Equal(t, "hk-new", hotkey)
	assert.Equal(t, WindowMetrics{}, tracker.Metrics(7, 100))
}

func TestBinarizationThresholdIsStrict(t *testing.T) {
	tracker := NewPerformanceTracker(100)

	// A prediction of exactly 0.5 counts as the negative class.
	tracker.Update(8, 0.5, 0.0, "hk-8")
	assert.Equal(t, 1.0, tracker.Metrics(8, 100).Accuracy)

	tracker.Update(9, 0.5, 1.0, "hk-9")
	assert.Equal(t, 0.0, tracker.Metrics(9, 100).Accuracy)
}
