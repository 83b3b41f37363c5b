package dispatch

import (
	"context"
	"fmt"
)

// Generator is a strategy interface for text-generation backends.
// Implementations must not retry; failures are returned as *Error with Kind
// ErrUpstream or ErrParse.
type Generator interface {
	Generate(ctx context.Context, token string, req GenerationRequest) (GenerationResult, error)
}

// DecodingParams controls how the model picks output tokens.
type DecodingParams struct {
	Method            string // "greedy" or "sample"
	MaxNewTokens      int
	MinNewTokens      int
	RepetitionPenalty float64
	StopSequences     []string
}

// DefaultDecoding returns deterministic decoding capped at 200 new tokens,
// stopping on the [END] marker.
func DefaultDecoding() DecodingParams {
	return DecodingParams{
		Method:            "greedy",
		MaxNewTokens:      200,
		MinNewTokens:      0,
		RepetitionPenalty: 1,
		StopSequences:     []string{"[END]"},
	}
}

// ModerationRule configures one detector of the moderation block.
type ModerationRule struct {
	Input     bool    // scan the prompt
	Output    bool    // scan the generated text
	Threshold float64 // detection probability in (0, 1]
	Mask      bool    // remove the detected entity value instead of rejecting
}

// ModerationConfig asks the provider to scan for harmful content (HAP) and
// personally identifying information (PII).
type ModerationConfig struct {
	HAP ModerationRule
	PII ModerationRule
}

// DefaultModeration enables HAP and PII detection on input and output with a
// 0.5 threshold, masking matches.
func DefaultModeration() ModerationConfig {
	rule := ModerationRule{Input: true, Output: true, Threshold: 0.5, Mask: true}
	return ModerationConfig{HAP: rule, PII: rule}
}

// GenerationRequest is one immutable generation call.
type GenerationRequest struct {
	Prompt     string
	Decoding   DecodingParams
	Moderation ModerationConfig
}

// Validate checks universal constraints on GenerationRequest.
// Generators may apply additional backend-specific validation.
func (r GenerationRequest) Validate() error {
	if r.Prompt == "" {
		return fmt.Errorf("prompt must not be empty: %w", ErrValidation)
	}
	if r.Decoding.MaxNewTokens < 0 || r.Decoding.MinNewTokens < 0 {
		return fmt.Errorf("token limits must be non-negative: %w", ErrValidation)
	}
	if r.Decoding.MinNewTokens > r.Decoding.MaxNewTokens && r.Decoding.MaxNewTokens != 0 {
		return fmt.Errorf("min_new_tokens %d exceeds max_new_tokens %d: %w",
			r.Decoding.MinNewTokens, r.Decoding.MaxNewTokens, ErrValidation)
	}
	for _, rule := range []ModerationRule{r.Moderation.HAP, r.Moderation.PII} {
		if (rule.Input || rule.Output) && (rule.Threshold <= 0 || rule.Threshold > 1) {
			return fmt.Errorf("moderation threshold must be in (0, 1], got %g: %w", rule.Threshold, ErrValidation)
		}
	}
	return nil
}

// GenerationResult is the first generated result of a successful call.
type GenerationResult struct {
	Text            string
	GeneratedTokens int
	InputTokens     int
	StopReason      string // provider-specific, e.g. "eos_token" or "max_tokens"
}
