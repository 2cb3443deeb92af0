package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment variables.
// Priority (highest to lowest): env vars > config file > defaults. CLI
// flags are not read here; configPath is the only caller-supplied input.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("JOBWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("jobwatch")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".jobwatch"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// database_url/llm_model_key/proxy_url/log_level are named directly in
	// spec.md §6 rather than nested under their section, so AutomaticEnv's
	// dotted-path mapping won't see them; bind them explicitly.
	bindFlatEnvVars(v)
	applyFlatOverrides(v, cfg)

	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	return Load(path)
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("schedule.cron", cfg.Schedule.Cron)
	v.SetDefault("schedule.timezone", cfg.Schedule.Timezone)

	v.SetDefault("governor.min_delay", cfg.Governor.MinDelay)
	v.SetDefault("governor.max_delay", cfg.Governor.MaxDelay)
	v.SetDefault("governor.circuit_breaker_threshold", cfg.Governor.CircuitBreakerThreshold)
	v.SetDefault("governor.circuit_breaker_cooldown", cfg.Governor.CircuitBreakerCooldown)
	v.SetDefault("governor.max_concurrent_per_domain", cfg.Governor.MaxConcurrentPerDomain)

	v.SetDefault("database.database", cfg.Database.Database)

	v.SetDefault("llm.provider", cfg.LLM.Provider)
	v.SetDefault("llm.max_tokens", cfg.LLM.MaxTokens)
	v.SetDefault("llm.temperature", cfg.LLM.Temperature)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}

func bindFlatEnvVars(v *viper.Viper) {
	_ = v.BindEnv("database_url", "JOBWATCH_DATABASE_URL")
	_ = v.BindEnv("llm_model_key", "JOBWATCH_LLM_MODEL_KEY")
	_ = v.BindEnv("proxy_url", "JOBWATCH_PROXY_URL")
	_ = v.BindEnv("log_level", "JOBWATCH_LOG_LEVEL")
	_ = v.BindEnv("min_delay", "JOBWATCH_MIN_DELAY")
	_ = v.BindEnv("max_delay", "JOBWATCH_MAX_DELAY")
	_ = v.BindEnv("circuit_breaker_threshold", "JOBWATCH_CIRCUIT_BREAKER_THRESHOLD")
	_ = v.BindEnv("circuit_breaker_cooldown", "JOBWATCH_CIRCUIT_BREAKER_COOLDOWN")
	_ = v.BindEnv("max_concurrent_per_domain", "JOBWATCH_MAX_CONCURRENT_PER_DOMAIN")
}

func applyFlatOverrides(v *viper.Viper, cfg *Config) {
	if s := v.GetString("database_url"); s != "" {
		cfg.Database.URL = s
	}
	if s := v.GetString("llm_model_key"); s != "" {
		cfg.LLM.ModelKey = s
	}
	if s := v.GetString("proxy_url"); s != "" {
		cfg.Proxy.URLs = append(cfg.Proxy.URLs, s)
	}
	if s := v.GetString("log_level"); s != "" {
		cfg.Logging.Level = s
	}
	if d := v.GetDuration("min_delay"); d > 0 {
		cfg.Governor.MinDelay = d
	}
	if d := v.GetDuration("max_delay"); d > 0 {
		cfg.Governor.MaxDelay = d
	}
	if n := v.GetInt("circuit_breaker_threshold"); n > 0 {
		cfg.Governor.CircuitBreakerThreshold = n
	}
	if d := v.GetDuration("circuit_breaker_cooldown"); d > 0 {
		cfg.Governor.CircuitBreakerCooldown = d
	}
	if n := v.GetInt("max_concurrent_per_domain"); n > 0 {
		cfg.Governor.MaxConcurrentPerDomain = n
	}
}
