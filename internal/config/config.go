// Package config loads and validates jobwatch's settings: a YAML file
// describing the crawl schedule and search targets, overridable by
// environment variables and in-process defaults, in env > file > defaults
// priority. CLI flags do not override individual settings.
package config

import "time"

// Version is set at build time via ldflags.
var Version = "dev"

// Config is jobwatch's root configuration.
type Config struct {
	Schedule    ScheduleConfig    `mapstructure:"schedule" yaml:"schedule"`
	Searches    []SearchConfig    `mapstructure:"searches" yaml:"searches"`
	Governor    GovernorConfig    `mapstructure:"governor" yaml:"governor"`
	Database    DatabaseConfig    `mapstructure:"database" yaml:"database"`
	LLM         LLMConfig         `mapstructure:"llm"      yaml:"llm"`
	Proxy       ProxyConfig       `mapstructure:"proxy"    yaml:"proxy"`
	Fingerprint FingerprintConfig `mapstructure:"fingerprint" yaml:"fingerprint"`
	Logging     LoggingConfig    `mapstructure:"logging"  yaml:"logging"`
}

// ScheduleConfig drives the cron trigger.
type ScheduleConfig struct {
	Cron     string `mapstructure:"cron"     yaml:"cron"`
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

// SearchConfig is one entry in the crawl plan: a cross product of
// keywords and locations applied against two independent target kinds.
// JobBoards holds aggregator board identifiers (e.g. "indeed",
// "linkedin"), routed through the external board-aggregator collaborator
// and never touched by Fetcher or ExtractionCache; CompanyPages holds
// URL templates fetched and extracted directly.
type SearchConfig struct {
	Keywords     []string            `mapstructure:"keywords"      yaml:"keywords"`
	Locations    []string            `mapstructure:"locations"     yaml:"locations"`
	JobBoards    []string            `mapstructure:"job_boards"    yaml:"job_boards"`
	CompanyPages []CompanyPageConfig `mapstructure:"company_pages" yaml:"company_pages"`
}

// CompanyPageConfig is a single company careers page target. URL is a
// template containing {keyword}/{location} placeholders the orchestrator
// substitutes with URL-encoded values.
type CompanyPageConfig struct {
	URL      string `mapstructure:"url"       yaml:"url"`
	JSRender bool   `mapstructure:"js_render" yaml:"js_render"`
}

// GovernorConfig configures the adaptive delay and circuit breaker.
type GovernorConfig struct {
	MinDelay                time.Duration `mapstructure:"min_delay"                 yaml:"min_delay"`
	MaxDelay                time.Duration `mapstructure:"max_delay"                 yaml:"max_delay"`
	CircuitBreakerThreshold int           `mapstructure:"circuit_breaker_threshold" yaml:"circuit_breaker_threshold"`
	CircuitBreakerCooldown  time.Duration `mapstructure:"circuit_breaker_cooldown"  yaml:"circuit_breaker_cooldown"`
	MaxConcurrentPerDomain  int           `mapstructure:"max_concurrent_per_domain" yaml:"max_concurrent_per_domain"`
}

// DatabaseConfig configures the MongoDB connection.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"      yaml:"url"`
	Database string `mapstructure:"database" yaml:"database"`
}

// LLMConfig configures the injected Planner capability.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"    yaml:"provider"`
	Endpoint    string  `mapstructure:"endpoint"    yaml:"endpoint"`
	Model       string  `mapstructure:"model"       yaml:"model"`
	ModelKey    string  `mapstructure:"model_key"   yaml:"model_key"`
	MaxTokens   int     `mapstructure:"max_tokens"  yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
}

// ProxyConfig configures the proxy pool.
type ProxyConfig struct {
	URLs []string `mapstructure:"urls" yaml:"urls"`
}

// FingerprintConfig locates the user-agent pool file.
type FingerprintConfig struct {
	UserAgentPoolPath string `mapstructure:"user_agent_pool_path" yaml:"user_agent_pool_path"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns a Config with the defaults named in spec.md §4.C/D.
func DefaultConfig() *Config {
	return &Config{
		Schedule: ScheduleConfig{
			Cron:     "0 */6 * * *",
			Timezone: "UTC",
		},
		Governor: GovernorConfig{
			MinDelay:                2 * time.Second,
			MaxDelay:                7 * time.Second,
			CircuitBreakerThreshold: 5,
			CircuitBreakerCooldown:  300 * time.Second,
			MaxConcurrentPerDomain:  1,
		},
		Database: DatabaseConfig{
			Database: "jobwatch",
		},
		LLM: LLMConfig{
			Provider:    "ollama",
			MaxTokens:   4096,
			Temperature: 0.1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
