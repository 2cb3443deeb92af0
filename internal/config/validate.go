package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Schedule.Cron == "" {
		return fmt.Errorf("schedule.cron must be set")
	}
	if cfg.Schedule.Timezone == "" {
		return fmt.Errorf("schedule.timezone must be set")
	}

	if len(cfg.Searches) == 0 {
		return fmt.Errorf("searches must contain at least one entry")
	}
	for i, s := range cfg.Searches {
		if len(s.Keywords) == 0 {
			return fmt.Errorf("searches[%d].keywords must contain at least one entry", i)
		}
		if len(s.JobBoards) == 0 && len(s.CompanyPages) == 0 {
			return fmt.Errorf("searches[%d] must set job_boards or company_pages", i)
		}
	}

	if cfg.Governor.MinDelay <= 0 {
		return fmt.Errorf("governor.min_delay must be > 0")
	}
	if cfg.Governor.MaxDelay < cfg.Governor.MinDelay {
		return fmt.Errorf("governor.max_delay must be >= governor.min_delay")
	}
	if cfg.Governor.CircuitBreakerThreshold < 1 {
		return fmt.Errorf("governor.circuit_breaker_threshold must be >= 1")
	}
	if cfg.Governor.CircuitBreakerCooldown <= 0 {
		return fmt.Errorf("governor.circuit_breaker_cooldown must be > 0")
	}
	if cfg.Governor.MaxConcurrentPerDomain < 1 {
		return fmt.Errorf("governor.max_concurrent_per_domain must be >= 1")
	}

	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url (or JOBWATCH_DATABASE_URL) must be set")
	}

	validProviders := map[string]bool{"ollama": true, "openai": true, "custom": true}
	if !validProviders[cfg.LLM.Provider] {
		return fmt.Errorf("llm.provider must be ollama/openai/custom, got %q", cfg.LLM.Provider)
	}

	for _, proxyURL := range cfg.Proxy.URLs {
		if _, err := url.Parse(proxyURL); err != nil {
			return fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

// ValidateURL checks if a URL string is valid for crawling.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
