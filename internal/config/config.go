package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // "json" or "text"

	DefaultPersonality string `yaml:"default_personality"`
	Override           string `yaml:"override"` // forces the personality of new threads

	// TimeScale speeds up (>1) or slows down (<1) every scripted delay.
	TimeScale        float64 `yaml:"time_scale"`
	EmpathRareChance float64 `yaml:"empath_rare_chance"`
	AnimateRewrite   bool    `yaml:"animate_rewrite"`

	// Seed makes personalities deterministic; zero draws from the runtime.
	Seed uint64 `yaml:"seed"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:               "8080",
		LogLevel:           "info",
		LogFormat:          "json",
		DefaultPersonality: "clueless",
		TimeScale:          1,
		EmpathRareChance:   0.01,
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getFloatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getUintEnv(key string, def uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// Load builds the config from defaults, then the YAML file named by
// FAIRY_CONFIG if any, then FAIRY_* env vars.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("FAIRY_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnv("FAIRY_PORT", getEnv("PORT", cfg.Port))
	cfg.LogLevel = getEnv("FAIRY_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("FAIRY_LOG_FORMAT", cfg.LogFormat)
	cfg.DefaultPersonality = getEnv("FAIRY_DEFAULT_PERSONALITY", cfg.DefaultPersonality)
	cfg.Override = getEnv("FAIRY_OVERRIDE", cfg.Override)
	cfg.AnimateRewrite = getBoolEnv("FAIRY_ANIMATE_REWRITE", cfg.AnimateRewrite)

	var err error
	if cfg.TimeScale, err = getFloatEnv("FAIRY_TIME_SCALE", cfg.TimeScale); err != nil {
		return nil, err
	}
	if cfg.EmpathRareChance, err = getFloatEnv("FAIRY_EMPATH_RARE_CHANCE", cfg.EmpathRareChance); err != nil {
		return nil, err
	}
	if cfg.Seed, err = getUintEnv("FAIRY_SEED", cfg.Seed); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

// Validate checks ranges. Personality ids are checked by the registry.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port must be set")
	}
	if c.TimeScale <= 0 {
		return fmt.Errorf("time_scale must be positive, got %v", c.TimeScale)
	}
	if c.EmpathRareChance < 0 || c.EmpathRareChance > 1 {
		return fmt.Errorf("empath_rare_chance must be within [0, 1], got %v", c.EmpathRareChance)
	}
	return nil
}
