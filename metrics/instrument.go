package metrics

import (
	"context"
	"time"

	"github.com/fwojciec/dispatch"
)

// Interface compliance checks.
var (
	_ dispatch.TokenSource = (*TokenSource)(nil)
	_ dispatch.Generator   = (*Generator)(nil)
)

// TokenSource counts fetches made through the wrapped source.
type TokenSource struct {
	Source  dispatch.TokenSource
	Metrics *Metrics
}

func (s *TokenSource) Token(ctx context.Context) (dispatch.Credential, error) {
	cred, err := s.Source.Token(ctx)
	s.Metrics.ObserveToken(outcome(err))
	return cred, err
}

// Generator records outcome and latency of calls to the wrapped generator.
type Generator struct {
	Generator dispatch.Generator
	Provider  string
	Metrics   *Metrics
	Now       func() time.Time // defaults to time.Now
}

func (g *Generator) Generate(ctx context.Context, token string, req dispatch.GenerationRequest) (dispatch.GenerationResult, error) {
	now := g.Now
	if now == nil {
		now = time.Now
	}
	start := now()
	res, err := g.Generator.Generate(ctx, token, req)
	g.Metrics.ObserveGeneration(g.Provider, outcome(err), now().Sub(start).Seconds(), res.GeneratedTokens)
	return res, err
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := dispatch.KindOf(err); kind != "" {
		return kind
	}
	return "error"
}
