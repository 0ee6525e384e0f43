package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"detection-api/apiconfig"
	"detection-api/internal/event_listener"
	"detection-api/logging"
	"detection-api/platform"
	"detection-api/rewards"
)

func main() {
	config, err := apiconfig.LoadDefaultConfigManager()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rewardsConfig := config.GetRewardsConfig()
	engine := rewards.NewEngine(rewardsConfig.WindowShort, rewardsConfig.WindowLong)
	reporter := platform.NewLogReporter()

	validatorConfig := config.GetValidatorConfig()
	modality := rewards.Modality(validatorConfig.Modality)
	if modality == "" {
		modality = rewards.ModalityImage
	}

	logging.Info("start event listener", logging.EventProcessing,
		"feed", validatorConfig.EventFeedUrl, "modality", modality)
	listener := event_listener.NewEventListener(validatorConfig.EventFeedUrl, modality, engine, reporter)
	if err := listener.Start(ctx); err != nil {
		log.Fatalf("Event listener failed: %v", err)
	}
}
