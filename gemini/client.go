package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fwojciec/dispatch"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ dispatch.Generator = (*Client)(nil)

// Client implements [dispatch.Generator] for the Google Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// Option configures a [Client].
type Option func(*Client)

// WithModel sets the model ID. Default is gemini-2.5-flash.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	c := &Client{
		client: gc,
		model:  defaultModel,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Generate sends one non-streaming request. The token argument is unused.
func (c *Client) Generate(ctx context.Context, _ string, req dispatch.GenerationRequest) (dispatch.GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return dispatch.GenerationResult{}, fmt.Errorf("gemini: %w", err)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), BuildConfig(req))
	if err != nil {
		return dispatch.GenerationResult{}, fmt.Errorf("gemini: %w", &dispatch.Error{
			Kind:   dispatch.ErrUpstream,
			Status: apiStatus(err),
			Err:    err,
		})
	}
	return ExtractResult(resp)
}

// BuildConfig maps decoding and moderation settings onto the SDK config.
// Greedy decoding becomes temperature 0. Exported for testing.
func BuildConfig(req dispatch.GenerationRequest) *genai.GenerateContentConfig {
	d := req.Decoding
	config := &genai.GenerateContentConfig{
		StopSequences:  d.StopSequences,
		SafetySettings: SafetySettings(req.Moderation.HAP),
	}
	if d.MaxNewTokens > 0 {
		config.MaxOutputTokens = int32(d.MaxNewTokens)
	}
	if d.Method == "greedy" {
		config.Temperature = genai.Ptr[float32](0)
	}
	return config
}

var harmCategories = []genai.HarmCategory{
	genai.HarmCategoryHarassment,
	genai.HarmCategoryHateSpeech,
	genai.HarmCategoryDangerousContent,
	genai.HarmCategorySexuallyExplicit,
}

// SafetySettings translates a HAP rule into one setting per harm category.
// Gemini has no PII detector, so only HAP is mapped.
func SafetySettings(rule dispatch.ModerationRule) []*genai.SafetySetting {
	threshold := blockThreshold(rule)
	settings := make([]*genai.SafetySetting, 0, len(harmCategories))
	for _, cat := range harmCategories {
		settings = append(settings, &genai.SafetySetting{Category: cat, Threshold: threshold})
	}
	return settings
}

func blockThreshold(rule dispatch.ModerationRule) genai.HarmBlockThreshold {
	switch {
	case !rule.Input && !rule.Output:
		return genai.HarmBlockThresholdBlockNone
	case rule.Threshold <= 0.3:
		return genai.HarmBlockThresholdBlockLowAndAbove
	case rule.Threshold > 0.7:
		return genai.HarmBlockThresholdBlockOnlyHigh
	default:
		return genai.HarmBlockThresholdBlockMediumAndAbove
	}
}

// ExtractResult pulls the reply text and usage out of a response. A
// response with no text is a parse failure. Exported for testing.
func ExtractResult(resp *genai.GenerateContentResponse) (dispatch.GenerationResult, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return dispatch.GenerationResult{}, parseError(errors.New("response has no candidates"))
	}
	var b strings.Builder
	if content := resp.Candidates[0].Content; content != nil {
		for _, p := range content.Parts {
			if p != nil && !p.Thought {
				b.WriteString(p.Text)
			}
		}
	}
	if b.Len() == 0 {
		return dispatch.GenerationResult{}, parseError(fmt.Errorf("candidate has no text, finish reason %q", resp.Candidates[0].FinishReason))
	}

	res := dispatch.GenerationResult{
		Text:       b.String(),
		StopReason: string(resp.Candidates[0].FinishReason),
	}
	if u := resp.UsageMetadata; u != nil {
		res.GeneratedTokens = int(u.CandidatesTokenCount)
		res.InputTokens = int(u.PromptTokenCount)
	}
	return res, nil
}

func apiStatus(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

func parseError(cause error) error {
	return fmt.Errorf("gemini: %w", &dispatch.Error{Kind: dispatch.ErrParse, Err: cause})
}
