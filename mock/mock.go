// Package mock provides test doubles for dispatch interfaces using function
// fields.
package mock

import (
	"context"

	"github.com/fwojciec/dispatch"
)

// Interface compliance checks.
var (
	_ dispatch.TokenSource = (*TokenSource)(nil)
	_ dispatch.Generator   = (*Generator)(nil)
)

// TokenSource is a test double for dispatch.TokenSource.
// Set TokenFn before calling Token.
type TokenSource struct {
	TokenFn func(ctx context.Context) (dispatch.Credential, error)
}

// Token delegates to TokenFn.
func (s *TokenSource) Token(ctx context.Context) (dispatch.Credential, error) {
	return s.TokenFn(ctx)
}

// Generator is a test double for dispatch.Generator.
// Set GenerateFn before calling Generate.
type Generator struct {
	GenerateFn func(ctx context.Context, token string, req dispatch.GenerationRequest) (dispatch.GenerationResult, error)
}

// Generate delegates to GenerateFn.
func (g *Generator) Generate(ctx context.Context, token string, req dispatch.GenerationRequest) (dispatch.GenerationResult, error) {
	return g.GenerateFn(ctx, token, req)
}
