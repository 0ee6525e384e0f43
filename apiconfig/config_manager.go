package apiconfig

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type ConfigManager struct {
	currentConfig  Config
	KoanProvider   koanf.Provider
	WriterProvider WriteCloserProvider
	mutex          sync.Mutex
}

type WriteCloserProvider interface {
	GetWriter() WriteCloser
}

func LoadDefaultConfigManager() (*ConfigManager, error) {
	manager := ConfigManager{
		KoanProvider:   getFileProvider(),
		WriterProvider: NewFileWriteCloserProvider(getConfigPath()),
		mutex:          sync.Mutex{},
	}
	err := manager.Load()
	if err != nil {
		return nil, err
	}
	return &manager, nil
}

func (cm *ConfigManager) Load() error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	config, err := readConfig(cm.KoanProvider)
	if err != nil {
		return err
	}
	cm.currentConfig = config
	return nil
}

func (cm *ConfigManager) Write() error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	return writeConfig(cm.currentConfig, cm.WriterProvider.GetWriter())
}

// GetConfig returns a copy; slices inside are shared and treated as
// read-only by callers.
func (cm *ConfigManager) GetConfig() Config {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	return cm.currentConfig
}

func (cm *ConfigManager) GetServerConfig() ServerConfig {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	return cm.currentConfig.Server
}

func (cm *ConfigManager) GetCacheConfig() CacheConfig {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	return cm.currentConfig.Cache
}

func (cm *ConfigManager) GetModelConfig() ModelConfig {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	return cm.currentConfig.Model
}

func (cm *ConfigManager) GetBrokerConfig() BrokerConfig {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	return cm.currentConfig.Broker
}

func (cm *ConfigManager) GetClientConfig() ClientConfig {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	return cm.currentConfig.Client
}

func (cm *ConfigManager) GetMinerConfig() MinerConfig {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	return cm.currentConfig.Miner
}

func (cm *ConfigManager) GetValidatorConfig() ValidatorConfig {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	return cm.currentConfig.Validator
}

func (cm *ConfigManager) GetRewardsConfig() RewardsConfig {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	return cm.currentConfig.Rewards
}

func (cm *ConfigManager) GetRegistry() []RegistrationConfig {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	return cm.currentConfig.Registry
}

func (cm *ConfigManager) SetRegistry(registry []RegistrationConfig) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.currentConfig.Registry = registry
	slog.Info("Setting registry", "entries", len(registry))
	return writeConfig(cm.currentConfig, cm.WriterProvider.GetWriter())
}

func getFileProvider() koanf.Provider {
	configPath := getConfigPath()
	return file.Provider(configPath)
}

func getConfigPath() string {
	configPath := os.Getenv("API_CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml" // Default value if the environment variable is not set
	}
	return configPath
}

type FileWriteCloserProvider struct {
	path string
}

func NewFileWriteCloserProvider(path string) *FileWriteCloserProvider {
	return &FileWriteCloserProvider{path: path}
}

func (f *FileWriteCloserProvider) GetWriter() WriteCloser {
	file, err := os.OpenFile(f.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0755)
	if err != nil {
		slog.Error("error opening config file for write", "path", f.path, "error", err)
		return nil
	}
	return file
}

func readConfig(provider koanf.Provider) (Config, error) {
	k := koanf.New(".")
	parser := yaml.Parser()

	if err := k.Load(provider, parser); err != nil {
		return Config{}, fmt.Errorf("error loading config: %w", err)
	}
	err := k.Load(env.Provider("DAPI_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "DAPI_")), "__", ".", -1)
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("error loading env: %w", err)
	}

	var config Config
	err = k.Unmarshal("", &config)
	if err != nil {
		return Config{}, fmt.Errorf("error unmarshalling config: %w", err)
	}
	applyDefaults(&config)

	if err := loadRegistryConfig(&config); err != nil {
		return Config{}, fmt.Errorf("error loading registry config: %w", err)
	}
	return config, nil
}

func writeConfig(config Config, writer WriteCloser) error {
	if writer == nil {
		return fmt.Errorf("no config writer available")
	}
	k := koanf.New(".")
	parser := yaml.Parser()
	err := k.Load(structs.Provider(config, "koanf"), nil)
	if err != nil {
		slog.Error("error loading config", "error", err)
		return err
	}
	output, err := k.Marshal(parser)
	if err != nil {
		slog.Error("error marshalling config", "error", err)
		return err
	}
	_, err = writer.Write(output)
	if err != nil {
		slog.Error("error writing config", "error", err)
		return err
	}
	return nil
}

type WriteCloser interface {
	Write([]byte) (int, error)
	Close() error
}

// Called once at startup to merge registry entries from a separate file,
// the way orchestration drops a registry snapshot next to the daemon.
func loadRegistryConfig(config *Config) error {
	if config.RegistryConfigIsMerged {
		slog.Info("Registry config already merged. Skipping")
		return nil
	}

	registryConfigPath, found := os.LookupEnv("REGISTRY_CONFIG_PATH")
	if !found || strings.TrimSpace(registryConfigPath) == "" {
		return nil
	}

	slog.Info("Loading and merging registry configuration", "path", registryConfigPath)

	newEntries, err := parseRegistrationsFromRegistryJson(registryConfigPath)
	if err != nil {
		return err
	}

	// Reject duplicate hotkeys across existing and new entries.
	seenHotkeys := make(map[string]bool)
	for _, entry := range config.Registry {
		if seenHotkeys[entry.Hotkey] {
			return fmt.Errorf("duplicate hotkey found in config: %s", entry.Hotkey)
		}
		seenHotkeys[entry.Hotkey] = true
	}
	for _, entry := range newEntries {
		if seenHotkeys[entry.Hotkey] {
			return fmt.Errorf("duplicate hotkey found in config: %s", entry.Hotkey)
		}
		seenHotkeys[entry.Hotkey] = true
	}

	config.Registry = append(config.Registry, newEntries...)
	config.RegistryConfigIsMerged = true

	slog.Info("Successfully loaded and merged registry configuration",
		"new_entries", len(newEntries),
		"total_entries", len(config.Registry))
	return nil
}

func parseRegistrationsFromRegistryJson(registryConfigPath string) ([]RegistrationConfig, error) {
	file, err := os.Open(registryConfigPath)
	if err != nil {
		slog.Error("Failed to open registry config file", "error", err)
		return nil, err
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		slog.Error("Failed to read registry config file", "error", err)
		return nil, err
	}

	var newEntries []RegistrationConfig
	if err := json.Unmarshal(bytes, &newEntries); err != nil {
		slog.Error("Failed to parse registry config JSON", "error", err)
		return nil, err
	}

	return newEntries, nil
}
