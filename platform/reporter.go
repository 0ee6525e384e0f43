package platform

import (
	"context"

	"detection-api/logging"
	"detection-api/rewards"
)

// WeightReporter hands scored outcomes back to the base platform's weight
// setter. Chain submission lives behind this interface so validators can run
// against a log-only reporter on dev networks.
type WeightReporter interface {
	Report(ctx context.Context, modality rewards.Modality, outcomes []rewards.Outcome) error
}

// LogReporter writes every outcome to the log instead of submitting weights.
type LogReporter struct{}

var _ WeightReporter = (*LogReporter)(nil)

func NewLogReporter() *LogReporter {
	return &LogReporter{}
}

func (r *LogReporter) Report(_ context.Context, modality rewards.Modality, outcomes []rewards.Outcome) error {
	for _, outcome := range outcomes {
		keyvals := []interface{}{
			"modality", modality,
			"uid", outcome.UID,
			"reward", outcome.Reward,
			"status", outcome.Status.String(),
		}
		if outcome.Metrics != nil {
			keyvals = append(keyvals, "mcc", outcome.Metrics.MCC, "accuracy", outcome.Metrics.Accuracy)
		}
		if outcome.Err != nil {
			keyvals = append(keyvals, "error", outcome.Err)
		}
		logging.Info("Miner weight", logging.Rewards, keyvals...)
	}
	return nil
}
