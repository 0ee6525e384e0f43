package brokerclient

import (
	"context"
	"sync"
)

// MockPredictor is a mock implementation of Predictor for testing
type MockPredictor struct {
	Mu sync.Mutex

	// Scripted behavior
	Result Result

	// Error injection
	PredictError error

	// Call tracking
	PredictCalled int

	// Capture parameters
	LastImage []byte
}

func NewMockPredictor() *MockPredictor {
	return &MockPredictor{}
}

func (m *MockPredictor) Predict(_ context.Context, image []byte) (Result, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.PredictCalled++
	m.LastImage = image
	if m.PredictError != nil {
		return Result{}, m.PredictError
	}
	return m.Result, nil
}

// Ensure MockPredictor implements Predictor
var _ Predictor = (*MockPredictor)(nil)
