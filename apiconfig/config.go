package apiconfig

import "time"

type Config struct {
	Server    ServerConfig         `koanf:"server"`
	Cache     CacheConfig          `koanf:"cache"`
	Model     ModelConfig          `koanf:"model"`
	Broker    BrokerConfig         `koanf:"broker"`
	Client    ClientConfig         `koanf:"client"`
	Miner     MinerConfig          `koanf:"miner"`
	Validator ValidatorConfig      `koanf:"validator"`
	Rewards   RewardsConfig        `koanf:"rewards"`
	Registry  []RegistrationConfig `koanf:"registry"`

	// Set after the optional REGISTRY_CONFIG_PATH merge so a config
	// rewrite does not merge the same file twice.
	RegistryConfigIsMerged bool `koanf:"registry_config_is_merged"`
}

type ServerConfig struct {
	Port      int    `koanf:"port"`
	AdminPort int    `koanf:"admin_port"`
	BodyLimit string `koanf:"body_limit"`
}

type CacheConfig struct {
	RedisUrl  string `koanf:"redis_url"`
	KeyPrefix string `koanf:"key_prefix"`
}

type ModelConfig struct {
	Url                   string `koanf:"url"`
	RequestTimeoutSeconds int    `koanf:"request_timeout_seconds"`
}

func (c ModelConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

type BrokerConfig struct {
	QueueSize          int `koanf:"queue_size"`
	WaitTimeoutSeconds int `koanf:"wait_timeout_seconds"`
}

func (c BrokerConfig) WaitTimeout() time.Duration {
	return time.Duration(c.WaitTimeoutSeconds) * time.Second
}

type ClientConfig struct {
	BrokerUrl             string `koanf:"broker_url"`
	LocalRedisUrl         string `koanf:"local_redis_url"`
	RequestTimeoutSeconds int    `koanf:"request_timeout_seconds"`
	MaxRetries            int    `koanf:"max_retries"`
}

func (c ClientConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

type MinerConfig struct {
	// Mode selects how challenges are answered: "local" runs the model
	// runner directly, "broker" goes through the caching broker client.
	Mode                    string  `koanf:"mode"`
	ModelUrl                string  `koanf:"model_url"`
	ChallengePort           int     `koanf:"challenge_port"`
	MinStake                float64 `koanf:"min_stake"`
	StatsLogIntervalSeconds int     `koanf:"stats_log_interval_seconds"`
	StatsExportPath         string  `koanf:"stats_export_path"`
}

func (c MinerConfig) StatsLogInterval() time.Duration {
	return time.Duration(c.StatsLogIntervalSeconds) * time.Second
}

type ValidatorConfig struct {
	EventFeedUrl string `koanf:"event_feed_url"`
	Modality     string `koanf:"modality"`
}

type RewardsConfig struct {
	WindowShort int `koanf:"window_short"`
	WindowLong  int `koanf:"window_long"`
}

// RegistrationConfig mirrors one registry entry of the base platform so
// dev nets can run against a static snapshot instead of a live chain.
type RegistrationConfig struct {
	Uid         int64   `koanf:"uid" json:"uid"`
	Hotkey      string  `koanf:"hotkey" json:"hotkey"`
	Stake       float64 `koanf:"stake" json:"stake"`
	Trust       float64 `koanf:"trust" json:"trust"`
	Incentive   float64 `koanf:"incentive" json:"incentive"`
	Emission    float64 `koanf:"emission" json:"emission"`
	IsValidator bool    `koanf:"is_validator" json:"is_validator"`
}

const (
	ModeLocal  = "local"
	ModeBroker = "broker"

	DefaultQueueSize          = 256
	DefaultWaitTimeoutSeconds = 60
	DefaultMaxRetries         = 3
	DefaultRequestTimeoutSecs = 3
	DefaultModelTimeoutSecs   = 60
	DefaultWindowShort        = 10
	DefaultWindowLong         = 100
	DefaultBodyLimit          = "25M"
)

// applyDefaults fills zero values that have a sane serving default. Ports
// and URLs stay explicit: a daemon missing those should fail loudly at
// startup, not listen somewhere surprising.
func applyDefaults(config *Config) {
	if config.Broker.QueueSize == 0 {
		config.Broker.QueueSize = DefaultQueueSize
	}
	if config.Broker.WaitTimeoutSeconds == 0 {
		config.Broker.WaitTimeoutSeconds = DefaultWaitTimeoutSeconds
	}
	if config.Client.MaxRetries == 0 {
		config.Client.MaxRetries = DefaultMaxRetries
	}
	if config.Client.RequestTimeoutSeconds == 0 {
		config.Client.RequestTimeoutSeconds = DefaultRequestTimeoutSecs
	}
	if config.Model.RequestTimeoutSeconds == 0 {
		config.Model.RequestTimeoutSeconds = DefaultModelTimeoutSecs
	}
	if config.Rewards.WindowShort == 0 {
		config.Rewards.WindowShort = DefaultWindowShort
	}
	if config.Rewards.WindowLong == 0 {
		config.Rewards.WindowLong = DefaultWindowLong
	}
	if config.Server.BodyLimit == "" {
		config.Server.BodyLimit = DefaultBodyLimit
	}
	if config.Miner.Mode == "" {
		config.Miner.Mode = ModeBroker
	}
}
