package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"detection-api/apiconfig"
	"detection-api/broker"
	adminserver "detection-api/internal/server/admin"
	pserver "detection-api/internal/server/public"
	"detection-api/logging"
	"detection-api/modelclient"
	"detection-api/predictioncache"
)

func main() {
	config, err := apiconfig.LoadDefaultConfigManager()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cacheConfig := config.GetCacheConfig()
	store, err := predictioncache.NewRedisStore(ctx, cacheConfig.RedisUrl, cacheConfig.KeyPrefix)
	if err != nil {
		log.Fatalf("Error connecting to prediction cache: %v", err)
	}
	defer store.Close()

	modelConfig := config.GetModelConfig()
	classifier := modelclient.NewModelClient(modelConfig.Url, modelConfig.RequestTimeout())
	healthy, err := classifier.Health(ctx)
	if err != nil {
		log.Fatalf("Model runner health check failed: %v", err)
	}
	if !healthy {
		log.Fatalf("Model runner at %s reported unhealthy", modelConfig.Url)
	}

	brokerConfig := config.GetBrokerConfig()
	inferenceBroker := broker.NewBroker(store, classifier, brokerConfig.QueueSize, brokerConfig.WaitTimeout())

	serverConfig := config.GetServerConfig()
	addr := fmt.Sprintf(":%v", serverConfig.Port)
	logging.Info("start public server on addr", logging.Server, "addr", addr)
	publicServer := pserver.NewServer(inferenceBroker, classifier, serverConfig.BodyLimit)
	publicServer.Start(addr)

	addr = fmt.Sprintf(":%v", serverConfig.AdminPort)
	logging.Info("start admin server on addr", logging.Server, "addr", addr)
	adminServer := adminserver.NewServer(inferenceBroker, store, nil)
	adminServer.Start(addr)

	<-ctx.Done()
	logging.Info("Shutting down", logging.System)
	inferenceBroker.Stop()
}
