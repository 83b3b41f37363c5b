package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/fwojciec/dispatch"
	"github.com/fwojciec/dispatch/config"
	"github.com/fwojciec/dispatch/gemini"
	"github.com/fwojciec/dispatch/metrics"
	"github.com/fwojciec/dispatch/watsonx"
)

// resolveBackend constructs the token source and generator for the
// configured provider, instrumented with m. A nil m records nothing.
func resolveBackend(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (dispatch.TokenSource, dispatch.Generator, error) {
	var (
		tokens dispatch.TokenSource
		gen    dispatch.Generator
	)
	switch cfg.Provider {
	case config.ProviderWatsonx:
		w := cfg.Watsonx
		if w.APIKey == "" || w.ProjectID == "" {
			return nil, nil, errors.New("watsonx: WATSONX_API_KEY and WATSONX_PROJECT_ID must be set")
		}
		tokens = watsonx.NewTokenCache(w.APIKey, watsonx.WithIAMURL(w.IAMURL))
		gen = watsonx.New(w.ProjectID, watsonx.WithBaseURL(w.URL), watsonx.WithModel(w.ModelID))
	case config.ProviderGemini:
		if cfg.Gemini.APIKey == "" {
			return nil, nil, errors.New("gemini: GEMINI_API_KEY must be set")
		}
		var opts []gemini.Option
		if cfg.Gemini.Model != "" {
			opts = append(opts, gemini.WithModel(cfg.Gemini.Model))
		}
		client, err := gemini.New(ctx, cfg.Gemini.APIKey, opts...)
		if err != nil {
			return nil, nil, err
		}
		// Gemini authenticates with its API key; the token is unused.
		tokens = dispatch.StaticToken("gemini")
		gen = client
	default:
		return nil, nil, fmt.Errorf("unknown provider %q: must be \"watsonx\" or \"gemini\"", cfg.Provider)
	}

	tokens = &metrics.TokenSource{Source: tokens, Metrics: m}
	gen = &metrics.Generator{Generator: gen, Provider: cfg.Provider, Metrics: m}
	return tokens, gen, nil
}
