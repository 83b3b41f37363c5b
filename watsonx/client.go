package watsonx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/fwojciec/dispatch"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Interface compliance check.
var _ dispatch.Generator = (*Client)(nil)

// Client implements [dispatch.Generator] for the watsonx.ai text generation
// API. It never retries.
type Client struct {
	projectID  string
	modelID    string
	baseURL    string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the regional API base URL. Useful for testing with
// httptest.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithModel sets the model ID. Default is ibm/granite-3-8b-instruct.
func WithModel(model string) Option {
	return func(c *Client) { c.modelID = model }
}

// WithHTTPClient sets a custom HTTP client. The default has a 10s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a [Client] that bills generations to projectID.
func New(projectID string, opts ...Option) *Client {
	c := &Client{
		projectID:  projectID,
		modelID:    defaultModel,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Generate sends one generation request authorized by token and returns the
// first result.
func (c *Client) Generate(ctx context.Context, token string, req dispatch.GenerationRequest) (_ dispatch.GenerationResult, err error) {
	ctx, span := tracer.Start(ctx, "watsonx.generate")
	span.SetAttributes(attribute.String("watsonx.model_id", c.modelID))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, dispatch.KindOf(err))
		}
		span.End()
	}()

	if err := req.Validate(); err != nil {
		return dispatch.GenerationResult{}, fmt.Errorf("watsonx: %w", err)
	}

	body, err := json.Marshal(c.buildRequestBody(req))
	if err != nil {
		return dispatch.GenerationResult{}, fmt.Errorf("watsonx: %w", err)
	}

	endpoint := c.baseURL + generationPath + "?" + url.Values{"version": {apiVersion}}.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return dispatch.GenerationResult{}, upstreamError(0, "", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return dispatch.GenerationResult{}, upstreamError(0, "", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return dispatch.GenerationResult{}, upstreamError(resp.StatusCode, "", fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return dispatch.GenerationResult{}, parseHTTPError(resp.StatusCode, raw)
	}
	return parseResult(raw)
}

func (c *Client) buildRequestBody(req dispatch.GenerationRequest) apiRequest {
	d := req.Decoding
	return apiRequest{
		Input: req.Prompt,
		Parameters: apiParameters{
			DecodingMethod:    d.Method,
			MaxNewTokens:      d.MaxNewTokens,
			MinNewTokens:      d.MinNewTokens,
			RepetitionPenalty: d.RepetitionPenalty,
			StopSequences:     d.StopSequences,
		},
		ModelID:     c.modelID,
		ProjectID:   c.projectID,
		Moderations: convertModeration(req.Moderation),
	}
}

// convertModeration returns nil when no detector is enabled, so the
// provider applies its own defaults.
func convertModeration(m dispatch.ModerationConfig) *apiModerations {
	hap, pii := convertRule(m.HAP), convertRule(m.PII)
	if hap == nil && pii == nil {
		return nil
	}
	return &apiModerations{HAP: hap, PII: pii}
}

func convertRule(r dispatch.ModerationRule) *apiDetector {
	if !r.Input && !r.Output {
		return nil
	}
	side := func(enabled bool) apiDetectorSide {
		if !enabled {
			return apiDetectorSide{}
		}
		s := apiDetectorSide{Enabled: true, Threshold: r.Threshold}
		if r.Mask {
			s.Mask = &apiMask{RemoveEntityValue: true}
		}
		return s
	}
	return &apiDetector{Input: side(r.Input), Output: side(r.Output)}
}

func parseResult(raw []byte) (dispatch.GenerationResult, error) {
	var ar apiResponse
	if err := json.Unmarshal(raw, &ar); err != nil {
		return dispatch.GenerationResult{}, parseError(raw, fmt.Errorf("decode body: %w", err))
	}
	if ar.Results == nil {
		return dispatch.GenerationResult{}, parseError(raw, errors.New("response has no results field"))
	}
	if len(*ar.Results) == 0 {
		return dispatch.GenerationResult{}, parseError(raw, errors.New("response has empty results"))
	}
	first := (*ar.Results)[0]
	if first.GeneratedText == nil {
		return dispatch.GenerationResult{}, parseError(raw, errors.New("first result has no generated_text"))
	}
	return dispatch.GenerationResult{
		Text:            *first.GeneratedText,
		GeneratedTokens: first.GeneratedTokenCount,
		InputTokens:     first.InputTokenCount,
		StopReason:      first.StopReason,
	}, nil
}

func parseHTTPError(status int, raw []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(raw, &apiErr); err != nil || len(apiErr.Errors) == 0 {
		return upstreamError(status, string(raw), statusCause(status))
	}
	first := apiErr.Errors[0]
	return upstreamError(status, string(raw), fmt.Errorf("%s: %s", first.Code, first.Message))
}

func statusCause(status int) error {
	if text := http.StatusText(status); text != "" {
		return errors.New(text)
	}
	return errors.New("unexpected status")
}

func upstreamError(status int, body string, cause error) error {
	return fmt.Errorf("watsonx: %w", &dispatch.Error{
		Kind:   dispatch.ErrUpstream,
		Status: status,
		Body:   body,
		Err:    cause,
	})
}

func parseError(raw []byte, cause error) error {
	return fmt.Errorf("watsonx: %w", &dispatch.Error{
		Kind: dispatch.ErrParse,
		Body: string(raw),
		Err:  cause,
	})
}
