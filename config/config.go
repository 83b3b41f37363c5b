// Package config loads dispatch settings from an optional TOML file and
// environment overrides.
//
// Precedence, highest first: environment, file, built-in defaults.
// Credentials have no defaults and must come from the file or environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fwojciec/dispatch"
)

// Provider names accepted in Config.Provider.
const (
	ProviderWatsonx = "watsonx"
	ProviderGemini  = "gemini"
)

// DefaultSystemPrompt frames the assistant for logistics questions.
const DefaultSystemPrompt = "You are a helpful logistics assistant for a delivery company. " +
	"Answer questions about shipments, tracking and deliveries concisely. End every answer with [END]."

// Config is the complete dispatch configuration.
type Config struct {
	Provider string        `toml:"provider"`
	Watsonx  WatsonxConfig `toml:"watsonx"`
	Gemini   GeminiConfig  `toml:"gemini"`
	Chat     ChatConfig    `toml:"chat"`
	Log      LogConfig     `toml:"log"`
	Metrics  MetricsConfig `toml:"metrics"`
}

// WatsonxConfig holds IBM watsonx.ai credentials and endpoints.
type WatsonxConfig struct {
	APIKey    string `toml:"api_key"`
	ProjectID string `toml:"project_id"`
	URL       string `toml:"url"`
	IAMURL    string `toml:"iam_url"`
	ModelID   string `toml:"model_id"`
}

// GeminiConfig holds Google Gemini settings.
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// ChatConfig holds session defaults and generation settings.
type ChatConfig struct {
	SystemPrompt  string           `toml:"system_prompt"`
	MaxNewTokens  int              `toml:"max_new_tokens"`
	StopSequences []string         `toml:"stop_sequences"`
	Moderation    ModerationConfig `toml:"moderation"`
}

// ModerationConfig applies to both the HAP and PII detectors, on input and
// output.
type ModerationConfig struct {
	Enabled   bool    `toml:"enabled"`
	Threshold float64 `toml:"threshold"`
	Mask      bool    `toml:"mask"`
}

// DecodingParams returns the decoding settings sent with every turn.
func (c ChatConfig) DecodingParams() dispatch.DecodingParams {
	p := dispatch.DefaultDecoding()
	p.MaxNewTokens = c.MaxNewTokens
	p.StopSequences = slices.Clone(c.StopSequences)
	return p
}

// ModerationConfig returns the moderation block sent with every turn.
func (c ChatConfig) ModerationConfig() dispatch.ModerationConfig {
	rule := dispatch.ModerationRule{
		Input:     c.Moderation.Enabled,
		Output:    c.Moderation.Enabled,
		Threshold: c.Moderation.Threshold,
		Mask:      c.Moderation.Mask,
	}
	return dispatch.ModerationConfig{HAP: rule, PII: rule}
}

// Sanitizer strips the default stop markers and the configured stop
// sequences from replies.
func (c ChatConfig) Sanitizer() dispatch.Sanitizer {
	return dispatch.NewSanitizer(slices.Concat(dispatch.DefaultStopMarkers, c.StopSequences)...)
}

// LogConfig controls the log file.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// Default returns a Config with built-in defaults and no credentials.
func Default() *Config {
	return &Config{
		Provider: ProviderWatsonx,
		Watsonx: WatsonxConfig{
			URL:     "https://us-south.ml.cloud.ibm.com",
			IAMURL:  "https://iam.cloud.ibm.com/identity/token",
			ModelID: "ibm/granite-3-8b-instruct",
		},
		Gemini: GeminiConfig{Model: "gemini-2.5-flash"},
		Chat:   defaultChat(),
		Log:    LogConfig{Level: "info"},
	}
}

func defaultChat() ChatConfig {
	decoding := dispatch.DefaultDecoding()
	hap := dispatch.DefaultModeration().HAP
	return ChatConfig{
		SystemPrompt:  DefaultSystemPrompt,
		MaxNewTokens:  decoding.MaxNewTokens,
		StopSequences: decoding.StopSequences,
		Moderation: ModerationConfig{
			Enabled:   hap.Input || hap.Output,
			Threshold: hap.Threshold,
			Mask:      hap.Mask,
		},
	}
}

// Load builds a Config from defaults, the TOML file at path (skipped when
// path is empty or the file does not exist) and the environment as seen
// through getenv.
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields with non-empty environment values. Values that
// do not parse are reported together and leave their field unchanged.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	var errs []error
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	parse := func(key string, fn func(string) error) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		if err := fn(v); err != nil {
			errs = append(errs, fmt.Errorf("%s=%q: %w", key, v, err))
		}
	}
	set(&c.Provider, "DISPATCH_PROVIDER")
	set(&c.Watsonx.APIKey, "WATSONX_API_KEY")
	set(&c.Watsonx.ProjectID, "WATSONX_PROJECT_ID")
	set(&c.Watsonx.URL, "WATSONX_URL")
	set(&c.Watsonx.IAMURL, "WATSONX_IAM_URL")
	set(&c.Watsonx.ModelID, "WATSONX_MODEL_ID")
	set(&c.Gemini.APIKey, "GEMINI_API_KEY")
	set(&c.Chat.SystemPrompt, "DISPATCH_SYSTEM_PROMPT")
	set(&c.Log.Level, "LOG_LEVEL")
	set(&c.Metrics.Addr, "METRICS_ADDR")

	parse("DISPATCH_MAX_NEW_TOKENS", func(v string) error {
		n, err := strconv.Atoi(v)
		if err == nil {
			c.Chat.MaxNewTokens = n
		}
		return err
	})
	parse("DISPATCH_STOP_SEQUENCES", func(v string) error {
		c.Chat.StopSequences = splitList(v)
		return nil
	})
	parse("DISPATCH_MODERATION", func(v string) error {
		b, err := strconv.ParseBool(v)
		if err == nil {
			c.Chat.Moderation.Enabled = b
		}
		return err
	})
	parse("DISPATCH_MODERATION_THRESHOLD", func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			c.Chat.Moderation.Threshold = f
		}
		return err
	})
	parse("DISPATCH_MODERATION_MASK", func(v string) error {
		b, err := strconv.ParseBool(v)
		if err == nil {
			c.Chat.Moderation.Mask = b
		}
		return err
	})
	return errors.Join(errs...)
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate reports every missing or invalid setting for the selected
// provider, joined into one error.
func (c *Config) Validate() error {
	var errs []error
	switch c.Provider {
	case ProviderWatsonx:
		if c.Watsonx.APIKey == "" {
			errs = append(errs, ValidationError{"watsonx.api_key", "required (set WATSONX_API_KEY)"})
		}
		if c.Watsonx.ProjectID == "" {
			errs = append(errs, ValidationError{"watsonx.project_id", "required (set WATSONX_PROJECT_ID)"})
		}
		if c.Watsonx.URL == "" {
			errs = append(errs, ValidationError{"watsonx.url", "required"})
		}
		if c.Watsonx.IAMURL == "" {
			errs = append(errs, ValidationError{"watsonx.iam_url", "required"})
		}
		if c.Watsonx.ModelID == "" {
			errs = append(errs, ValidationError{"watsonx.model_id", "required"})
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			errs = append(errs, ValidationError{"gemini.api_key", "required (set GEMINI_API_KEY)"})
		}
	default:
		errs = append(errs, ValidationError{"provider", fmt.Sprintf("unknown provider %q, supported: watsonx, gemini", c.Provider)})
	}
	if c.Chat.MaxNewTokens < 1 {
		errs = append(errs, ValidationError{"chat.max_new_tokens", fmt.Sprintf("must be at least 1, got %d", c.Chat.MaxNewTokens)})
	}
	if m := c.Chat.Moderation; m.Enabled && (m.Threshold <= 0 || m.Threshold > 1) {
		errs = append(errs, ValidationError{"chat.moderation.threshold", fmt.Sprintf("must be in (0, 1], got %g", m.Threshold)})
	}
	return errors.Join(errs...)
}
