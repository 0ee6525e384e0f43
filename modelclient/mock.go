package modelclient

import (
	"context"
	"sync"
	"time"

	"detection-api/logging"
)

// MockClassifier is a mock implementation of Classifier for testing
type MockClassifier struct {
	Mu sync.Mutex

	// Scripted behavior
	Probability float64
	Latency     time.Duration // simulated model runtime per call
	Healthy     bool

	// Error injection
	ClassifyError error
	HealthError   error

	// Call tracking
	ClassifyCalled int
	HealthCalled   int

	// Capture parameters
	LastImage []byte
}

// NewMockClassifier creates a new mock classifier with default values
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{
		Healthy: true,
	}
}

func (m *MockClassifier) Classify(_ context.Context, image []byte) (float64, error) {
	m.Mu.Lock()
	logging.Debug("MockClassifier. Classify: called", logging.Testing)
	m.ClassifyCalled++
	m.LastImage = image
	probability := m.Probability
	err := m.ClassifyError
	latency := m.Latency
	m.Mu.Unlock()

	// Sleep outside the lock so health checks and call-count reads are
	// not blocked by a slow scripted inference.
	if latency > 0 {
		time.Sleep(latency)
	}

	if err != nil {
		return 0, err
	}
	return probability, nil
}

func (m *MockClassifier) Health(_ context.Context) (bool, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.HealthCalled++
	if m.HealthError != nil {
		return false, m.HealthError
	}
	return m.Healthy, nil
}

// Ensure MockClassifier implements Classifier
var _ Classifier = (*MockClassifier)(nil)
