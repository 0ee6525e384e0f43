package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"detection-api/apiconfig"
	"detection-api/brokerclient"
	adminserver "detection-api/internal/server/admin"
	challengeserver "detection-api/internal/server/challenge"
	"detection-api/logging"
	"detection-api/miner"
	"detection-api/modelclient"
	"detection-api/platform"
	"detection-api/predictioncache"
)

func main() {
	config, err := apiconfig.LoadDefaultConfigManager()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := buildBackend(ctx, config)
	if err != nil {
		log.Fatalf("Error building inference backend: %v", err)
	}

	minerConfig := config.GetMinerConfig()
	registry := platform.NewStaticRegistry(config.GetRegistry())
	policy := platform.NewStakePolicy(registry, minerConfig.MinStake)
	stats := miner.NewRequestStats()
	handler := miner.NewHandler(backend, registry, policy, stats, minerConfig.ModelUrl)

	if minerConfig.StatsLogIntervalSeconds > 0 {
		go logStatsPeriodically(ctx, stats, minerConfig)
	}

	addr := fmt.Sprintf(":%v", minerConfig.ChallengePort)
	logging.Info("start challenge server on addr", logging.Server, "addr", addr, "mode", minerConfig.Mode)
	challengeServer := challengeserver.NewServer(handler)
	challengeServer.Start(addr)

	serverConfig := config.GetServerConfig()
	addr = fmt.Sprintf(":%v", serverConfig.AdminPort)
	logging.Info("start admin server on addr", logging.Server, "addr", addr)
	adminServer := adminserver.NewServer(nil, nil, handler)
	adminServer.Start(addr)

	<-ctx.Done()
	logging.Info("Shutting down", logging.System)
	stats.LogSummary()
}

func buildBackend(ctx context.Context, config *apiconfig.ConfigManager) (miner.Backend, error) {
	minerConfig := config.GetMinerConfig()
	switch minerConfig.Mode {
	case apiconfig.ModeLocal:
		modelConfig := config.GetModelConfig()
		classifier := modelclient.NewModelClient(modelConfig.Url, modelConfig.RequestTimeout())
		healthy, err := classifier.Health(ctx)
		if err != nil {
			return nil, fmt.Errorf("model runner health check failed: %w", err)
		}
		if !healthy {
			return nil, fmt.Errorf("model runner at %s reported unhealthy", modelConfig.Url)
		}
		return miner.NewModelBackend(classifier), nil
	case apiconfig.ModeBroker:
		clientConfig := config.GetClientConfig()
		localTier, err := buildLocalTier(ctx, clientConfig, config.GetCacheConfig().KeyPrefix)
		if err != nil {
			return nil, err
		}
		client := brokerclient.NewClient(clientConfig.BrokerUrl, localTier, clientConfig.RequestTimeout(), clientConfig.MaxRetries)
		return miner.NewBrokerBackend(client), nil
	default:
		return nil, fmt.Errorf("unknown miner mode %q", minerConfig.Mode)
	}
}

// buildLocalTier picks the miner-side cache tier. A redis url makes cache
// entries survive restarts and get shared between co-located miners; without
// one the tier is process-local memory.
func buildLocalTier(ctx context.Context, clientConfig apiconfig.ClientConfig, keyPrefix string) (predictioncache.Store, error) {
	if clientConfig.LocalRedisUrl == "" {
		return predictioncache.NewMemoryStore(), nil
	}
	return predictioncache.NewRedisStore(ctx, clientConfig.LocalRedisUrl, keyPrefix)
}

func logStatsPeriodically(ctx context.Context, stats *miner.RequestStats, minerConfig apiconfig.MinerConfig) {
	ticker := time.NewTicker(minerConfig.StatsLogInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats.LogSummary()
			if err := stats.ExportToFile(minerConfig.StatsExportPath); err != nil {
				logging.Error("Failed to export request stats", logging.Miners, "error", err)
			}
		}
	}
}
