package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/finops-tools/vm-consolidator/internal/allocator"
	"github.com/finops-tools/vm-consolidator/internal/storage"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultSolveTimeout   = 30 * time.Second
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string        `yaml:"port"`
	InitialPools         []allocator.Pool
	SolveTimeout         time.Duration `yaml:"solve_timeout"`
	GrowthPercent        *float64      `yaml:"growth_percent"`
	ShutdownGracePeriod  time.Duration `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    time.Duration `yaml:"read_header_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	IdleTimeout          time.Duration `yaml:"idle_timeout"`
	EnableRequestLogging bool          `yaml:"enable_request_logging"`
	RateLimitRPS         float64       `yaml:"-"`
	RateLimitBurst       int           `yaml:"-"`
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	Pools                []yamlPool    `yaml:"pools"`
	SolveTimeout         string        `yaml:"solve_timeout"`
	GrowthPercent        *float64      `yaml:"growth_percent"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging bool          `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
}

// yamlPool represents one pool entry in YAML.
type yamlPool struct {
	Name     string  `yaml:"name"`
	Capacity float64 `yaml:"capacity"`
	Cost     float64 `yaml:"cost"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	PoolsStr       *string
	RateLimitRPS   *float64
	RateLimitBurst *int
	SolveTimeout   *time.Duration
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Load from YAML file if specified
	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		applyYAMLConfig(&cfg, yamlCfg)
	}

	// Apply environment variables (override YAML)
	applyEnvConfig(&cfg)

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		if err := applyCLIOverrides(&cfg, overrides); err != nil {
			return Config{}, err
		}
	}

	// Validate final configuration
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		InitialPools:         storage.DefaultPools(),
		SolveTimeout:         defaultSolveTimeout,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         60 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	if len(yamlCfg.Pools) > 0 {
		pools := make([]allocator.Pool, 0, len(yamlCfg.Pools))
		for _, p := range yamlCfg.Pools {
			pools = append(pools, allocator.Pool{Name: p.Name, Capacity: p.Capacity, Cost: p.Cost})
		}
		cfg.InitialPools = pools
	}

	if yamlCfg.GrowthPercent != nil {
		cfg.GrowthPercent = yamlCfg.GrowthPercent
	}

	if yamlCfg.SolveTimeout != "" {
		if d, err := time.ParseDuration(yamlCfg.SolveTimeout); err == nil {
			cfg.SolveTimeout = d
		}
	}

	if yamlCfg.ShutdownGracePeriod != "" {
		if d, err := time.ParseDuration(yamlCfg.ShutdownGracePeriod); err == nil {
			cfg.ShutdownGracePeriod = d
		}
	}

	if yamlCfg.ReadHeaderTimeout != "" {
		if d, err := time.ParseDuration(yamlCfg.ReadHeaderTimeout); err == nil {
			cfg.ReadHeaderTimeout = d
		}
	}

	if yamlCfg.WriteTimeout != "" {
		if d, err := time.ParseDuration(yamlCfg.WriteTimeout); err == nil {
			cfg.WriteTimeout = d
		}
	}

	if yamlCfg.IdleTimeout != "" {
		if d, err := time.ParseDuration(yamlCfg.IdleTimeout); err == nil {
			cfg.IdleTimeout = d
		}
	}

	cfg.EnableRequestLogging = yamlCfg.EnableRequestLogging

	if yamlCfg.RateLimit.RPS >= 0 {
		cfg.RateLimitRPS = yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst >= 0 {
		cfg.RateLimitBurst = yamlCfg.RateLimit.Burst
	}
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if rawPools := strings.TrimSpace(os.Getenv("POOLS")); rawPools != "" {
		pools, err := parsePoolSpecs(rawPools)
		if err == nil && len(pools) > 0 {
			cfg.InitialPools = pools
		}
	}

	if timeout := strings.TrimSpace(os.Getenv("SOLVE_TIMEOUT")); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.SolveTimeout = d
		}
	}

	if growth := strings.TrimSpace(os.Getenv("GROWTH_PERCENT")); growth != "" {
		if value, err := strconv.ParseFloat(growth, 64); err == nil {
			cfg.GrowthPercent = &value
		}
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) error {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.PoolsStr != nil && *overrides.PoolsStr != "" {
		pools, err := parsePoolSpecs(*overrides.PoolsStr)
		if err != nil {
			return fmt.Errorf("parse pools: %w", err)
		}
		cfg.InitialPools = pools
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	if overrides.SolveTimeout != nil && *overrides.SolveTimeout > 0 {
		cfg.SolveTimeout = *overrides.SolveTimeout
	}

	return nil
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.SolveTimeout <= 0 {
		return fmt.Errorf("SOLVE_TIMEOUT must be > 0")
	}
	if len(cfg.InitialPools) == 0 {
		return fmt.Errorf("pool catalog cannot be empty")
	}
	return nil
}

// parsePoolSpecs parses a comma-separated string of name:capacity:cost pool
// specs, e.g. "SMALL:1:100,MEDIUM:4:300,LARGE:10:350".
func parsePoolSpecs(raw string) ([]allocator.Pool, error) {
	parts := strings.Split(raw, ",")
	pools := make([]allocator.Pool, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid pool spec %q, expected name:capacity:cost", part)
		}

		name := strings.TrimSpace(fields[0])
		if name == "" {
			return nil, fmt.Errorf("pool spec %q has an empty name", part)
		}
		capacity, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid capacity in %q", part)
		}
		if capacity <= 0 {
			return nil, fmt.Errorf("pool capacity must be positive, got %v", capacity)
		}
		cost, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid cost in %q", part)
		}
		if cost < 0 {
			return nil, fmt.Errorf("pool cost must be non-negative, got %v", cost)
		}

		pools = append(pools, allocator.Pool{Name: name, Capacity: capacity, Cost: cost})
	}
	if len(pools) == 0 {
		return nil, fmt.Errorf("no pool specs provided")
	}
	return pools, nil
}
