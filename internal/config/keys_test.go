package config

import (
	"errors"
	"testing"
)

func TestGetAPIKeyFromEnvironment(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env-key")

	key, err := GetAPIKey(&Config{Anthropic: AnthropicConfig{APIKey: "sk-ant-config-key"}})
	if err != nil {
		t.Fatalf("get api key: %v", err)
	}
	if key != "sk-ant-env-key" {
		t.Errorf("environment should win, got %q", key)
	}
}

func TestGetAPIKeyFromConfig(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	key, err := GetAPIKey(&Config{Anthropic: AnthropicConfig{APIKey: "sk-ant-config-key"}})
	if err != nil {
		t.Fatalf("get api key: %v", err)
	}
	if key != "sk-ant-config-key" {
		t.Errorf("expected config key, got %q", key)
	}
}

func TestGetAPIKeyMissing(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	if _, err := GetAPIKey(&Config{}); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestGetAPIKeyUnexpandedReference(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := &Config{Anthropic: AnthropicConfig{APIKey: "${UNDEFINED_PLEXUS_KEY}"}}
	if _, err := GetAPIKey(cfg); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("unexpanded reference should not count as a key, got %v", err)
	}
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid key", "sk-ant-REDACTED", false},
		{"empty key", "", true},
		{"wrong prefix", "sk-openai-12345678901234567890", true},
		{"too short", "sk-ant-abc", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAPIKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"sk-ant-REDACTED", "sk-ant-...wxyz"},
		{"", "(not set)"},
		{"short", "***"},
	}
	for _, tt := range tests {
		if got := MaskAPIKey(tt.key); got != tt.want {
			t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestGetAPIKeySource(t *testing.T) {
	t.Run("environment", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env-key")
		if got := GetAPIKeySource(&Config{}); got != KeySourceEnv {
			t.Errorf("expected KeySourceEnv, got %v", got)
		}
	})

	t.Run("config", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")
		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "sk-ant-config-key"}}
		if got := GetAPIKeySource(cfg); got != KeySourceConfig {
			t.Errorf("expected KeySourceConfig, got %v", got)
		}
	})

	t.Run("none", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")
		if got := GetAPIKeySource(&Config{}); got != KeySourceNone {
			t.Errorf("expected KeySourceNone, got %v", got)
		}
	})
}
