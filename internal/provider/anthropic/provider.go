// Package anthropic implements the text-generation capability on the
// Anthropic API, either directly or through AWS Bedrock.
package anthropic

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/ShayCichocki/plexus/internal/capability"
	"github.com/ShayCichocki/plexus/internal/schema"
)

// defaultMaxTokens bounds a generation when the caller sets no limit.
const defaultMaxTokens = 8192

// Config contains the settings for creating a Provider.
type Config struct {
	// ID is the provider id used for registration and explicit selection.
	// Defaults to "anthropic".
	ID string
	// Model is the Claude model to use.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, the ANTHROPIC_API_KEY
	// environment variable is used.
	APIKey string
	// UseAWSBedrock routes calls through AWS Bedrock instead of the direct
	// API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock.
	AWSRegion string
	// AWSProfile is the optional AWS profile name.
	AWSProfile string
}

// Provider exposes the text-generation capability over the Anthropic SDK.
type Provider struct {
	id    string
	inner anthropic.Client
	model anthropic.Model
}

var inputSchema = schema.MustNew(
	"text-generation-input",
	"A prompt for plain text generation.",
	map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt": map[string]any{
				"type":        "string",
				"description": "the prompt to complete",
			},
		},
		"required":             []any{"prompt"},
		"additionalProperties": false,
	},
)

var outputSchema = schema.MustNew(
	"text-generation-output",
	"The generated text.",
	map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "the generated completion",
			},
		},
		"required":             []any{"text"},
		"additionalProperties": false,
	},
)

var configSchema = schema.MustNew(
	"text-generation-config",
	"Optional sampling settings for text generation.",
	map[string]any{
		"type": "object",
		"properties": map[string]any{
			"temperature": map[string]any{
				"type":        "number",
				"minimum":     0,
				"maximum":     1,
				"description": "sampling temperature",
			},
			"max_tokens": map[string]any{
				"type":        "integer",
				"minimum":     1,
				"description": "maximum tokens to generate",
			},
		},
		"additionalProperties": false,
	},
)

// New creates a Provider from config.
func New(cfg Config) (*Provider, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	if cfg.UseAWSBedrock {
		model = translateModelForBedrock(model)
	}

	id := cfg.ID
	if id == "" {
		id = "anthropic"
	}

	return &Provider{
		id:    id,
		inner: anthropic.NewClient(opts...),
		model: model,
	}, nil
}

// translateModelForBedrock converts standard Anthropic model names to the
// cross-region Bedrock inference profile format.
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}
	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	return model
}

// ID returns the provider id.
func (p *Provider) ID() string {
	return p.id
}

// Capabilities lists the capabilities this provider implements.
func (p *Provider) Capabilities() []capability.Descriptor {
	return []capability.Descriptor{p.descriptor()}
}

// Capability returns the descriptor for a capability id.
func (p *Provider) Capability(id string) (capability.Descriptor, bool) {
	if id != capability.TextGeneration {
		return capability.Descriptor{}, false
	}
	return p.descriptor(), true
}

func (p *Provider) descriptor() capability.Descriptor {
	return capability.Descriptor{
		ID:     capability.TextGeneration,
		Input:  inputSchema,
		Output: outputSchema,
		Config: configSchema,
	}
}

// Execute runs a text generation. Input and config have already been
// validated against the descriptor schemas by the resolver.
func (p *Provider) Execute(ctx context.Context, capabilityID string, input any, config map[string]any) (any, error) {
	if capabilityID != capability.TextGeneration {
		return nil, fmt.Errorf("unsupported capability: %s", capabilityID)
	}

	prompt := ""
	if m, ok := input.(map[string]any); ok {
		prompt, _ = m["prompt"].(string)
	}
	if prompt == "" {
		return nil, fmt.Errorf("text generation requires a non-empty prompt")
	}

	params := anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if temp, ok := floatValue(config, "temperature"); ok {
		params.Temperature = anthropic.Float(temp)
	}
	if maxTokens, ok := floatValue(config, "max_tokens"); ok {
		params.MaxTokens = int64(maxTokens)
	}

	resp, err := p.inner.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("API call failed: %w", err)
	}

	var result strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			result.WriteString(variant.Text)
		}
	}

	return map[string]any{"text": result.String()}, nil
}

// floatValue reads a numeric config value regardless of how JSON decoding
// represented it.
func floatValue(config map[string]any, key string) (float64, bool) {
	if config == nil {
		return 0, false
	}
	switch v := config[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
