// Package config handles configuration loading for Plexus.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for Plexus.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Runtime   RuntimeConfig   `mapstructure:"runtime"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	Routing   RoutingRef      `mapstructure:"routing"`
}

// AnthropicConfig holds Anthropic provider settings.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key.
	APIKey string `mapstructure:"api_key"`
	// Model is the Claude model to use.
	Model string `mapstructure:"model"`
	// UseAWSBedrock routes calls through AWS Bedrock.
	UseAWSBedrock bool `mapstructure:"use_aws_bedrock"`
	// AWSRegion is the AWS region for Bedrock.
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional AWS profile name.
	AWSProfile string `mapstructure:"aws_profile"`
}

// RuntimeConfig holds runtime behavior settings.
type RuntimeConfig struct {
	// MaxRetries is how many attempts structured-output calls make.
	MaxRetries int `mapstructure:"max_retries"`
	// DebugLog is the path of the runtime debug log; empty disables it.
	DebugLog string `mapstructure:"debug_log"`
}

// MemoryConfig holds memory store settings.
type MemoryConfig struct {
	// Path is the SQLite database file path.
	Path string `mapstructure:"path"`
}

// RoutingRef points at the model routing file.
type RoutingRef struct {
	// File is the path of the YAML routing file; empty uses built-in
	// defaults.
	File string `mapstructure:"file"`
}

// Load loads configuration from XDG paths, a project override, and
// environment variables. Precedence (highest to lowest):
//  1. Environment variables (ANTHROPIC_API_KEY, PLEXUS_*)
//  2. Project config (.plexus.yaml in the current directory)
//  3. User config (~/.config/plexus/config.yaml)
//  4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if project := findProjectConfig(); project != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(project)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("PLEXUS")
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("runtime.max_retries", 3)
	v.SetDefault("runtime.debug_log", "")
	v.SetDefault("memory.path", defaultMemoryPath())
	v.SetDefault("routing.file", "")
}

// userConfigDir returns the XDG config directory for plexus.
func userConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "plexus")
}

// defaultMemoryPath returns the XDG data path of the memory database.
func defaultMemoryPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "plexus", "memory.db")
}

// findProjectConfig looks for .plexus.yaml in the current directory.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	candidate := filepath.Join(cwd, ".plexus.yaml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// Routing declares capability aliases and default providers, loaded from a
// YAML file. Transforms are code, not configuration; the file only declares
// id equivalences and provider selection.
type Routing struct {
	// DefaultProviders maps a capability id to the default provider id.
	DefaultProviders map[string]string `yaml:"default_providers"`
	// Aliases lists groups of interchangeable capability ids, canonical id
	// first.
	Aliases []AliasEntry `yaml:"aliases"`
}

// AliasEntry is one group of interchangeable capability ids.
type AliasEntry struct {
	// IDs lists the ids, canonical first.
	IDs []string `yaml:"ids"`
}

// DefaultRouting returns the routing used when no file is configured:
// text-generation served by the anthropic provider.
func DefaultRouting() Routing {
	return Routing{
		DefaultProviders: map[string]string{"text-generation": "anthropic"},
	}
}

// LoadRouting reads a routing file. An empty path returns DefaultRouting.
func LoadRouting(path string) (Routing, error) {
	if path == "" {
		return DefaultRouting(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Routing{}, fmt.Errorf("read routing file: %w", err)
	}
	var routing Routing
	if err := yaml.Unmarshal(raw, &routing); err != nil {
		return Routing{}, fmt.Errorf("parse routing file: %w", err)
	}
	if routing.DefaultProviders == nil {
		routing.DefaultProviders = map[string]string{}
	}
	return routing, nil
}
