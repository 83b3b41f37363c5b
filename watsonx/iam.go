package watsonx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/dispatch"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Interface compliance check.
var _ dispatch.TokenSource = (*TokenCache)(nil)

var tracer = otel.Tracer("github.com/fwojciec/dispatch/watsonx")

// TokenCache exchanges an API key for IAM bearer tokens and caches the
// current one. It is safe for concurrent use; concurrent callers that miss
// the cache wait for a single exchange.
type TokenCache struct {
	apiKey     string
	iamURL     string
	ttl        time.Duration
	httpClient *http.Client
	now        func() time.Time

	mu   sync.Mutex
	cred dispatch.Credential
}

// TokenOption configures a [TokenCache].
type TokenOption func(*TokenCache)

// WithIAMURL sets the token exchange URL. Useful for testing with httptest.
func WithIAMURL(u string) TokenOption {
	return func(c *TokenCache) { c.iamURL = u }
}

// WithTokenTTL sets how long a fetched token is reused.
func WithTokenTTL(d time.Duration) TokenOption {
	return func(c *TokenCache) { c.ttl = d }
}

// WithTokenHTTPClient sets a custom HTTP client. The default has a 10s
// timeout.
func WithTokenHTTPClient(hc *http.Client) TokenOption {
	return func(c *TokenCache) { c.httpClient = hc }
}

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(c *TokenCache) { c.now = now }
}

// NewTokenCache creates a [TokenCache] for the given API key.
func NewTokenCache(apiKey string, opts ...TokenOption) *TokenCache {
	c := &TokenCache{
		apiKey:     apiKey,
		iamURL:     defaultIAMURL,
		ttl:        defaultTokenTTL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Token returns the cached credential while it is valid, and exchanges the
// API key for a new one otherwise. Failures are not cached.
func (c *TokenCache) Token(ctx context.Context) (dispatch.Credential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cred.Valid(c.now()) {
		return c.cred, nil
	}
	c.cred = dispatch.Credential{}

	token, err := c.exchange(ctx)
	if err != nil {
		return dispatch.Credential{}, err
	}
	c.cred = dispatch.Credential{Token: token, IssuedAt: c.now(), TTL: c.ttl}
	return c.cred, nil
}

func (c *TokenCache) exchange(ctx context.Context) (_ string, err error) {
	ctx, span := tracer.Start(ctx, "watsonx.iam_token")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "token exchange failed")
		}
		span.End()
	}()

	if c.apiKey == "" {
		return "", credentialError(0, "", errors.New("API key is not set"))
	}

	form := url.Values{}
	form.Set("grant_type", apiKeyGrantType)
	form.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.iamURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", credentialError(0, "", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", credentialError(0, "", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", credentialError(resp.StatusCode, "", fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", credentialError(resp.StatusCode, string(body), statusCause(resp.StatusCode))
	}

	var ir iamResponse
	if err := json.Unmarshal(body, &ir); err != nil {
		return "", credentialError(resp.StatusCode, string(body), fmt.Errorf("decode body: %w", err))
	}
	if ir.AccessToken == "" {
		return "", credentialError(resp.StatusCode, string(body), errors.New("response has no access_token"))
	}
	return ir.AccessToken, nil
}

func credentialError(status int, body string, cause error) error {
	return fmt.Errorf("watsonx: %w", &dispatch.Error{
		Kind:   dispatch.ErrCredential,
		Status: status,
		Body:   body,
		Err:    cause,
	})
}
