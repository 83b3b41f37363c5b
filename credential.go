package dispatch

import (
	"context"
	"math"
	"time"
)

// Credential is a bearer token together with the time it was issued and
// how long it may be reused.
type Credential struct {
	Token    string
	IssuedAt time.Time
	TTL      time.Duration
}

// Valid reports whether the credential may still be presented at now.
func (c Credential) Valid(now time.Time) bool {
	return c.Token != "" && now.Before(c.IssuedAt.Add(c.TTL))
}

// TokenSource hands out bearer tokens for the generation endpoint.
// Failures are returned as *Error with Kind ErrCredential.
type TokenSource interface {
	Token(ctx context.Context) (Credential, error)
}

// StaticToken is a TokenSource that always returns the same token. It pairs
// with generators that authenticate on their own, such as an API-key client.
type StaticToken string

// Token returns the static token. It never expires.
func (s StaticToken) Token(context.Context) (Credential, error) {
	return Credential{Token: string(s), IssuedAt: time.Now(), TTL: time.Duration(math.MaxInt64)}, nil
}
