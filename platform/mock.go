package platform

import (
	"context"
	"sync"

	"detection-api/rewards"
)

// MockWeightReporter records Report calls for tests.
type MockWeightReporter struct {
	Mu sync.Mutex

	ReportError error

	ReportCalled int
	LastModality rewards.Modality
	LastOutcomes []rewards.Outcome
}

var _ WeightReporter = (*MockWeightReporter)(nil)

func NewMockWeightReporter() *MockWeightReporter {
	return &MockWeightReporter{}
}

func (m *MockWeightReporter) Report(_ context.Context, modality rewards.Modality, outcomes []rewards.Outcome) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	m.ReportCalled++
	m.LastModality = modality
	m.LastOutcomes = outcomes
	return m.ReportError
}
