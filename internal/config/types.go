// Package config loads and validates the deskflow YAML configuration.
package config

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	History    HistoryConfig    `yaml:"history"`
	Escalation EscalationConfig `yaml:"escalation"`
	Routing    RoutingConfig    `yaml:"routing"`
	Engagement EngagementConfig `yaml:"engagement"`
	Storage    StorageConfig    `yaml:"storage"`
}

// ServerConfig controls the HTTP gateway.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Bind string `yaml:"bind"` // "loopback" or "lan"
	// AuthToken protects the API. Supports ${ENV_VAR} references so
	// the token does not live in the config file. Empty disables auth.
	AuthToken string `yaml:"authToken"`
	// AllowedOrigins lists browser origins allowed to open the
	// websocket feed. "*" allows any. Empty denies cross-origin.
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// HistoryConfig controls the in-memory session history.
type HistoryConfig struct {
	MaxSize int `yaml:"maxSize"`
	Window  int `yaml:"window"`
	// IdleExpiryHours is how long an untouched session survives.
	IdleExpiryHours int `yaml:"idleExpiryHours"`
}

// EscalationConfig tunes the rule evaluator.
type EscalationConfig struct {
	MaxAttempts int      `yaml:"maxAttempts"`
	Rules       []string `yaml:"rules"`
}

// RoutingConfig controls intent routing.
type RoutingConfig struct {
	// KnowledgeIntents lists the intents answered from the knowledge
	// base instead of the default acknowledgement.
	KnowledgeIntents []string `yaml:"knowledgeIntents"`
}

// EngagementConfig controls proactive delivery.
type EngagementConfig struct {
	Enabled bool `yaml:"enabled"`
	// WorkerIntervalSeconds is the deferred-queue poll interval.
	WorkerIntervalSeconds int `yaml:"workerIntervalSeconds"`
}

// StorageConfig controls persistence.
type StorageConfig struct {
	// Path is the SQLite database file. Empty selects the default
	// under the deskflow home directory.
	Path string `yaml:"path"`
}

// ConfigError indicates a problem loading or parsing configuration.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// Defaults returns a Config with all defaults applied.
func Defaults() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}
